package pgvectore

import (
	"context"
	"errors"
	"fmt"
	"io"
	"sync"
	"time"

	"github.com/Abraxas-365/siteqa/document"
	"github.com/Abraxas-365/siteqa/vectorstore"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/pgvector/pgvector-go"
)

const storeName = "pgvector"

var (
	_ vectorstore.Store   = (*PGVectorStore)(nil)
	_ vectorstore.Dropper = (*PGVectorStore)(nil)
	_ io.Closer           = (*PGVectorStore)(nil)
)

// PGVectorStore keeps one crawled site per table using the pgvector
// extension. Similarity is cosine.
type PGVectorStore struct {
	pool      *pgxpool.Pool
	name      string
	table     string
	metaTable string
	dimension int

	mu   sync.RWMutex
	meta vectorstore.Metadata
}

type Options struct {
	TableName string
	Dimension int
}

func NewPGVectorStore(ctx context.Context, connString string, opts Options) (*PGVectorStore, error) {
	if opts.TableName == "" {
		opts.TableName = "siteqa_chunks"
	}
	if opts.Dimension <= 0 {
		return nil, vectorstore.NewInitFailedError(storeName,
			fmt.Errorf("dimension must be positive, got %d", opts.Dimension))
	}

	config, err := pgxpool.ParseConfig(connString)
	if err != nil {
		return nil, vectorstore.NewInitFailedError(storeName, fmt.Errorf("error parsing connection string: %w", err))
	}

	pool, err := pgxpool.NewWithConfig(ctx, config)
	if err != nil {
		return nil, vectorstore.NewInitFailedError(storeName, fmt.Errorf("error creating connection pool: %w", err))
	}

	return &PGVectorStore{
		pool:      pool,
		name:      opts.TableName,
		table:     pgx.Identifier{opts.TableName}.Sanitize(),
		metaTable: pgx.Identifier{opts.TableName + "_meta"}.Sanitize(),
		dimension: opts.Dimension,
	}, nil
}

// InitDB creates the extension, tables and index, and loads the metadata of
// any previously built content.
func (p *PGVectorStore) InitDB(ctx context.Context, forceRecreate bool) error {
	stmts := []string{"CREATE EXTENSION IF NOT EXISTS vector"}
	if forceRecreate {
		stmts = append(stmts,
			fmt.Sprintf("DROP TABLE IF EXISTS %s", p.table),
			fmt.Sprintf("DROP TABLE IF EXISTS %s", p.metaTable))
	}
	stmts = append(stmts,
		fmt.Sprintf(`
		CREATE TABLE IF NOT EXISTS %s (
			id SERIAL PRIMARY KEY,
			seq INTEGER NOT NULL,
			char_offset INTEGER NOT NULL,
			content TEXT NOT NULL,
			embedding vector(%d) NOT NULL
		)`, p.table, p.dimension),
		fmt.Sprintf(`
		CREATE TABLE IF NOT EXISTS %s (
			id BOOLEAN PRIMARY KEY DEFAULT TRUE CHECK (id),
			model TEXT NOT NULL,
			dimension INTEGER NOT NULL,
			source TEXT NOT NULL,
			title TEXT NOT NULL DEFAULT '',
			chunk_count INTEGER NOT NULL,
			created_at TIMESTAMP WITH TIME ZONE NOT NULL
		)`, p.metaTable),
		fmt.Sprintf(`
		CREATE INDEX IF NOT EXISTS %s
		ON %s
		USING hnsw (embedding vector_cosine_ops)`,
			pgx.Identifier{p.name + "_embedding_idx"}.Sanitize(), p.table),
	)

	for _, stmt := range stmts {
		if _, err := p.pool.Exec(ctx, stmt); err != nil {
			return vectorstore.NewInitFailedError(storeName, err)
		}
	}

	return p.loadMetadata(ctx)
}

func (p *PGVectorStore) loadMetadata(ctx context.Context) error {
	var meta vectorstore.Metadata
	err := p.pool.QueryRow(ctx, fmt.Sprintf(
		`SELECT model, dimension, source, title, chunk_count, created_at FROM %s`, p.metaTable),
	).Scan(&meta.Model, &meta.Dimension, &meta.Source, &meta.Title, &meta.Count, &meta.CreatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil
	}
	if err != nil {
		return vectorstore.NewInitFailedError(storeName, err)
	}

	p.mu.Lock()
	p.meta = meta
	p.mu.Unlock()
	return nil
}

// Build replaces all rows in one transaction.
func (p *PGVectorStore) Build(ctx context.Context, meta vectorstore.Metadata, chunks []document.Chunk, vectors [][]float32) error {
	if meta.Dimension == 0 {
		meta.Dimension = p.dimension
	}
	dim, err := vectorstore.CheckBuild(storeName, meta, chunks, vectors)
	if err != nil {
		return err
	}
	if dim != p.dimension {
		return vectorstore.NewDimensionMismatchError(storeName, "Build",
			fmt.Sprintf("vectors have %d dimensions, table has %d", dim, p.dimension))
	}
	meta.Dimension = dim
	meta.Count = len(chunks)
	if meta.CreatedAt.IsZero() {
		meta.CreatedAt = time.Now().UTC()
	}

	tx, err := p.pool.Begin(ctx)
	if err != nil {
		return vectorstore.NewBuildFailedError(storeName, err)
	}
	defer tx.Rollback(ctx)

	batch := &pgx.Batch{}
	batch.Queue(fmt.Sprintf("DELETE FROM %s", p.table))
	batch.Queue(fmt.Sprintf("DELETE FROM %s", p.metaTable))

	insertSQL := fmt.Sprintf(`
		INSERT INTO %s (seq, char_offset, content, embedding)
		VALUES ($1, $2, $3, $4::vector)
	`, p.table)
	for i, c := range chunks {
		batch.Queue(insertSQL, c.Seq, c.Offset, c.Text, pgvector.NewVector(vectors[i]))
	}

	batch.Queue(fmt.Sprintf(`
		INSERT INTO %s (model, dimension, source, title, chunk_count, created_at)
		VALUES ($1, $2, $3, $4, $5, $6)
	`, p.metaTable), meta.Model, meta.Dimension, meta.Source, meta.Title, meta.Count, meta.CreatedAt)

	results := tx.SendBatch(ctx, batch)
	for i := 0; i < batch.Len(); i++ {
		if _, err := results.Exec(); err != nil {
			results.Close()
			return vectorstore.NewBuildFailedError(storeName, fmt.Errorf("statement %d: %w", i, err))
		}
	}
	if err := results.Close(); err != nil {
		return vectorstore.NewBuildFailedError(storeName, err)
	}

	if err := tx.Commit(ctx); err != nil {
		return vectorstore.NewBuildFailedError(storeName, err)
	}

	p.mu.Lock()
	p.meta = meta
	p.mu.Unlock()
	return nil
}

func (p *PGVectorStore) Search(ctx context.Context, vector []float32, k int) ([]vectorstore.Result, error) {
	if err := vectorstore.CheckQuery(storeName, p.dimension, vector, k); err != nil {
		return nil, err
	}

	query := fmt.Sprintf(`
		SELECT
			seq,
			char_offset,
			content,
			1 - (embedding <=> $1::vector) AS similarity
		FROM %s
		ORDER BY embedding <=> $1::vector, seq
		LIMIT $2
	`, p.table)

	rows, err := p.pool.Query(ctx, query, pgvector.NewVector(vector), k)
	if err != nil {
		return nil, vectorstore.NewSearchFailedError(storeName, err)
	}
	defer rows.Close()

	var results []vectorstore.Result
	for rows.Next() {
		var (
			res   vectorstore.Result
			score float64
		)
		if err := rows.Scan(&res.Chunk.Seq, &res.Chunk.Offset, &res.Chunk.Text, &score); err != nil {
			return nil, vectorstore.NewSearchFailedError(storeName, fmt.Errorf("error scanning row: %w", err))
		}
		res.Score = float32(score)
		results = append(results, res)
	}

	if err := rows.Err(); err != nil {
		return nil, vectorstore.NewSearchFailedError(storeName, fmt.Errorf("error iterating rows: %w", err))
	}

	return results, nil
}

func (p *PGVectorStore) Len(ctx context.Context) (int, error) {
	var n int
	err := p.pool.QueryRow(ctx, fmt.Sprintf("SELECT count(*) FROM %s", p.table)).Scan(&n)
	if err != nil {
		return 0, vectorstore.NewSearchFailedError(storeName, err)
	}
	return n, nil
}

func (p *PGVectorStore) Metadata() vectorstore.Metadata {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.meta
}

// Drop removes the chunk and metadata tables.
func (p *PGVectorStore) Drop(ctx context.Context) error {
	_, err := p.pool.Exec(ctx, fmt.Sprintf("DROP TABLE IF EXISTS %s, %s", p.table, p.metaTable))
	if err != nil {
		return vectorstore.NewBuildFailedError(storeName, fmt.Errorf("drop tables: %w", err))
	}
	p.mu.Lock()
	p.meta = vectorstore.Metadata{}
	p.mu.Unlock()
	return nil
}

// Close closes the database connection pool
func (p *PGVectorStore) Close() error {
	if p.pool != nil {
		p.pool.Close()
	}
	return nil
}
