package memory

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/Abraxas-365/siteqa/chathistory"
	"github.com/lib/pq"
)

var _ chathistory.Repository = (*PostgresRepository)(nil)

type PostgresRepository struct {
	db *sql.DB
}

// Open connects through the lib/pq driver.
func Open(dsn string) (*sql.DB, error) {
	connector, err := pq.NewConnector(dsn)
	if err != nil {
		return nil, fmt.Errorf("invalid postgres dsn: %w", err)
	}
	return sql.OpenDB(connector), nil
}

func NewPostgresRepository(db *sql.DB) (*PostgresRepository, error) {
	if db == nil {
		return nil, errors.New("database connection is required")
	}
	return &PostgresRepository{db: db}, nil
}

// Required database schema
const schema = `
CREATE TABLE IF NOT EXISTS siteqa_exchanges (
    id BIGSERIAL PRIMARY KEY,
    conversation_id TEXT NOT NULL,
    question TEXT NOT NULL,
    answer TEXT NOT NULL,
    created_at TIMESTAMP WITH TIME ZONE NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_siteqa_exchanges_conversation_id ON siteqa_exchanges(conversation_id, id);
`

func (r *PostgresRepository) InitSchema(ctx context.Context) error {
	_, err := r.db.ExecContext(ctx, schema)
	return err
}

// Append inserts the exchange and deletes everything older than the newest
// window rows, in one transaction.
func (r *PostgresRepository) Append(ctx context.Context, conversationID string, ex chathistory.Exchange, window int) error {
	if window <= 0 {
		window = chathistory.DefaultWindow
	}

	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	_, err = tx.ExecContext(ctx, `
		INSERT INTO siteqa_exchanges (conversation_id, question, answer, created_at)
		VALUES ($1, $2, $3, $4)
	`, conversationID, ex.Question, ex.Answer, ex.At)
	if err != nil {
		return fmt.Errorf("failed to insert exchange: %w", err)
	}

	_, err = tx.ExecContext(ctx, `
		DELETE FROM siteqa_exchanges
		WHERE conversation_id = $1
		  AND id NOT IN (
			SELECT id FROM siteqa_exchanges
			WHERE conversation_id = $1
			ORDER BY id DESC
			LIMIT $2
		  )
	`, conversationID, window)
	if err != nil {
		return fmt.Errorf("failed to trim history: %w", err)
	}

	return tx.Commit()
}

func (r *PostgresRepository) Recent(ctx context.Context, conversationID string, limit int) ([]chathistory.Exchange, error) {
	if limit <= 0 {
		limit = chathistory.DefaultWindow
	}

	query := `
		SELECT question, answer, created_at FROM (
			SELECT id, question, answer, created_at
			FROM siteqa_exchanges
			WHERE conversation_id = $1
			ORDER BY id DESC
			LIMIT $2
		) newest
		ORDER BY id ASC
	`
	rows, err := r.db.QueryContext(ctx, query, conversationID, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var exchanges []chathistory.Exchange
	for rows.Next() {
		var ex chathistory.Exchange
		if err := rows.Scan(&ex.Question, &ex.Answer, &ex.At); err != nil {
			return nil, err
		}
		exchanges = append(exchanges, ex)
	}

	return exchanges, rows.Err()
}

func (r *PostgresRepository) Clear(ctx context.Context, conversationID string) error {
	_, err := r.db.ExecContext(ctx, `DELETE FROM siteqa_exchanges WHERE conversation_id = $1`, conversationID)
	return err
}

// ClearMany drops the history of several conversations at once.
func (r *PostgresRepository) ClearMany(ctx context.Context, conversationIDs []string) error {
	if len(conversationIDs) == 0 {
		return nil
	}
	_, err := r.db.ExecContext(ctx,
		`DELETE FROM siteqa_exchanges WHERE conversation_id = ANY($1)`, pq.Array(conversationIDs))
	return err
}
