package embedding

import (
	"context"
	"fmt"
)

// Embedder represents an interface for text embedding operations
type Embedder interface {
	// EmbedDocuments converts a slice of documents into vector embeddings,
	// one per input and in input order
	EmbedDocuments(ctx context.Context, documents []string) ([][]float32, error)

	// EmbedQuery converts a single query text into a vector embedding
	EmbedQuery(ctx context.Context, text string) ([]float32, error)

	// ModelID identifies the model producing the vectors. Indexes built with
	// one model id cannot be queried with another.
	ModelID() string

	// Dimensions is the length of every vector, or 0 when it is only known
	// after the first call.
	Dimensions() int
}

// CheckBatch verifies that a provider returned one vector per input and that
// all vectors share the same length.
func CheckBatch(op string, inputs int, vectors [][]float32) error {
	if len(vectors) != inputs {
		return NewEmbeddingError(op, nil, ErrCodeAPIError,
			fmt.Sprintf("expected %d embeddings, got %d", inputs, len(vectors)))
	}
	for i, v := range vectors {
		if len(v) == 0 || len(v) != len(vectors[0]) {
			return ErrInvalidDimensions(op, len(vectors[0]), len(v), i)
		}
	}
	return nil
}
