package qdrant

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/Abraxas-365/siteqa/document"
	"github.com/Abraxas-365/siteqa/vectorstore"
	"github.com/google/uuid"
	qdrant "github.com/qdrant/go-client/qdrant"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/credentials/insecure"
	"google.golang.org/grpc/status"
	"google.golang.org/protobuf/proto"
)

const (
	storeName       = "qdrant"
	DefaultAddr     = "localhost:6334"
	upsertBatchSize = 256
	tieSlack        = 8
)

var (
	_ vectorstore.Store   = (*QdrantStore)(nil)
	_ vectorstore.Dropper = (*QdrantStore)(nil)
)

// QdrantStore keeps one crawled site per Qdrant collection.
type QdrantStore struct {
	conn        *grpc.ClientConn
	points      qdrant.PointsClient
	collections qdrant.CollectionsClient
	collection  string

	mu   sync.RWMutex
	meta vectorstore.Metadata
}

func NewQdrantStore(addr, collection string) (*QdrantStore, error) {
	if addr == "" {
		addr = DefaultAddr
	}
	if collection == "" {
		collection = "siteqa_chunks"
	}

	conn, err := grpc.NewClient(addr, grpc.WithTransportCredentials(insecure.NewCredentials()))
	if err != nil {
		return nil, vectorstore.NewInitFailedError(storeName, fmt.Errorf("could not connect to Qdrant: %w", err))
	}

	return &QdrantStore{
		conn:        conn,
		points:      qdrant.NewPointsClient(conn),
		collections: qdrant.NewCollectionsClient(conn),
		collection:  collection,
	}, nil
}

// Build drops and recreates the collection sized for vectors, then upserts
// every chunk.
func (q *QdrantStore) Build(ctx context.Context, meta vectorstore.Metadata, chunks []document.Chunk, vectors [][]float32) error {
	dim, err := vectorstore.CheckBuild(storeName, meta, chunks, vectors)
	if err != nil {
		return err
	}
	if dim == 0 {
		return vectorstore.NewInvalidArgumentError(storeName, "Build", "cannot size a collection without vectors")
	}
	meta.Dimension = dim
	meta.Count = len(chunks)
	if meta.CreatedAt.IsZero() {
		meta.CreatedAt = time.Now().UTC()
	}

	_, err = q.collections.Delete(ctx, &qdrant.DeleteCollection{CollectionName: q.collection})
	if err != nil && status.Code(err) != codes.NotFound {
		return vectorstore.NewBuildFailedError(storeName, fmt.Errorf("drop collection: %w", err))
	}

	_, err = q.collections.Create(ctx, &qdrant.CreateCollection{
		CollectionName: q.collection,
		VectorsConfig: qdrant.NewVectorsConfig(&qdrant.VectorParams{
			Size:     uint64(dim),
			Distance: qdrant.Distance_Cosine,
		}),
	})
	if err != nil {
		return vectorstore.NewBuildFailedError(storeName, fmt.Errorf("create collection: %w", err))
	}

	for start := 0; start < len(chunks); start += upsertBatchSize {
		end := min(start+upsertBatchSize, len(chunks))

		points := make([]*qdrant.PointStruct, 0, end-start)
		for i := start; i < end; i++ {
			points = append(points, &qdrant.PointStruct{
				Id:      &qdrant.PointId{PointIdOptions: &qdrant.PointId_Uuid{Uuid: uuid.NewString()}},
				Vectors: &qdrant.Vectors{VectorsOptions: &qdrant.Vectors_Vector{Vector: &qdrant.Vector{Data: vectors[i]}}},
				Payload: chunkToPayload(chunks[i], meta.Source),
			})
		}

		_, err := q.points.Upsert(ctx, &qdrant.UpsertPoints{
			CollectionName: q.collection,
			Points:         points,
			Wait:           proto.Bool(true),
		})
		if err != nil {
			return vectorstore.NewBuildFailedError(storeName, fmt.Errorf("upsert points %d-%d: %w", start, end, err))
		}
	}

	q.mu.Lock()
	q.meta = meta
	q.mu.Unlock()
	return nil
}

func (q *QdrantStore) Search(ctx context.Context, vector []float32, k int) ([]vectorstore.Result, error) {
	if err := vectorstore.CheckQuery(storeName, q.Metadata().Dimension, vector, k); err != nil {
		return nil, err
	}

	// Qdrant cuts at the limit before ties are ordered by seq, so widen the
	// window until the k-th score is not shared past its edge.
	limit := k + tieSlack
	for {
		results, err := q.search(ctx, vector, limit)
		if err != nil {
			return nil, err
		}
		sortResults(results)
		if !boundaryTied(results, k, limit) {
			if len(results) > k {
				results = results[:k]
			}
			return results, nil
		}
		limit *= 2
	}
}

func (q *QdrantStore) search(ctx context.Context, vector []float32, limit int) ([]vectorstore.Result, error) {
	resp, err := q.points.Search(ctx, &qdrant.SearchPoints{
		CollectionName: q.collection,
		Vector:         vector,
		Limit:          uint64(limit),
		WithPayload:    &qdrant.WithPayloadSelector{SelectorOptions: &qdrant.WithPayloadSelector_Enable{Enable: true}},
	})
	if err != nil {
		if status.Code(err) == codes.NotFound {
			return nil, nil
		}
		return nil, vectorstore.NewSearchFailedError(storeName, err)
	}

	results := make([]vectorstore.Result, 0, len(resp.GetResult()))
	for _, hit := range resp.GetResult() {
		results = append(results, vectorstore.Result{
			Chunk: payloadToChunk(hit.GetPayload()),
			Score: hit.GetScore(),
		})
	}
	return results, nil
}

func (q *QdrantStore) Len(ctx context.Context) (int, error) {
	resp, err := q.points.Count(ctx, &qdrant.CountPoints{
		CollectionName: q.collection,
		Exact:          proto.Bool(true),
	})
	if err != nil {
		if status.Code(err) == codes.NotFound {
			return 0, nil
		}
		return 0, vectorstore.NewSearchFailedError(storeName, err)
	}
	return int(resp.GetResult().GetCount()), nil
}

func (q *QdrantStore) Metadata() vectorstore.Metadata {
	q.mu.RLock()
	defer q.mu.RUnlock()
	return q.meta
}

// Drop deletes the collection.
func (q *QdrantStore) Drop(ctx context.Context) error {
	_, err := q.collections.Delete(ctx, &qdrant.DeleteCollection{CollectionName: q.collection})
	if err != nil && status.Code(err) != codes.NotFound {
		return vectorstore.NewBuildFailedError(storeName, fmt.Errorf("drop collection: %w", err))
	}
	q.mu.Lock()
	q.meta = vectorstore.Metadata{}
	q.mu.Unlock()
	return nil
}

func (q *QdrantStore) Close() error {
	return q.conn.Close()
}

func chunkToPayload(c document.Chunk, source string) map[string]*qdrant.Value {
	return map[string]*qdrant.Value{
		"content": {Kind: &qdrant.Value_StringValue{StringValue: c.Text}},
		"offset":  {Kind: &qdrant.Value_IntegerValue{IntegerValue: int64(c.Offset)}},
		"seq":     {Kind: &qdrant.Value_IntegerValue{IntegerValue: int64(c.Seq)}},
		"source":  {Kind: &qdrant.Value_StringValue{StringValue: source}},
	}
}

func payloadToChunk(payload map[string]*qdrant.Value) document.Chunk {
	return document.Chunk{
		Text:   payload["content"].GetStringValue(),
		Offset: int(payload["offset"].GetIntegerValue()),
		Seq:    int(payload["seq"].GetIntegerValue()),
	}
}

// boundaryTied reports whether a full page of sorted results may have left
// out points scoring the same as the k-th one.
func boundaryTied(results []vectorstore.Result, k, limit int) bool {
	if len(results) < limit || len(results) <= k {
		return false
	}
	return results[len(results)-1].Score == results[k-1].Score
}

// sortResults orders by score, then by chunk sequence for equal scores.
func sortResults(results []vectorstore.Result) {
	sort.SliceStable(results, func(a, b int) bool {
		if results[a].Score != results[b].Score {
			return results[a].Score > results[b].Score
		}
		return results[a].Chunk.Seq < results[b].Chunk.Seq
	})
}
