package vectorstore

import (
	"context"
	"fmt"
	"time"

	"github.com/Abraxas-365/siteqa/document"
)

// Metadata describes the content of an index
type Metadata struct {
	Model     string    `json:"model"`
	Dimension int       `json:"dimension"`
	Source    string    `json:"source"`
	Title     string    `json:"title,omitempty"`
	CreatedAt time.Time `json:"created_at"`
	Count     int       `json:"count"`
}

// Result is a chunk returned by a similarity search
type Result struct {
	Chunk document.Chunk `json:"chunk"`
	Score float32        `json:"score"`
}

// Chunks drops the scores.
func Chunks(results []Result) []document.Chunk {
	chunks := make([]document.Chunk, len(results))
	for i, r := range results {
		chunks[i] = r.Chunk
	}
	return chunks
}

// Store interface defines the operations that any vector database adapter must implement
type Store interface {
	// Build replaces the store contents with chunks and their vectors
	Build(ctx context.Context, meta Metadata, chunks []document.Chunk, vectors [][]float32) error

	// Search returns up to k chunks ordered by descending similarity
	Search(ctx context.Context, vector []float32, k int) ([]Result, error)

	// Len returns the number of stored chunks
	Len(ctx context.Context) (int, error)

	// Metadata describes the last successful Build
	Metadata() Metadata
}

// Dropper is implemented by stores whose contents outlive the process,
// such as a database table. Drop deletes them.
type Dropper interface {
	Drop(ctx context.Context) error
}

// CheckBuild validates the arguments shared by every Store.Build.
func CheckBuild(store string, meta Metadata, chunks []document.Chunk, vectors [][]float32) (int, error) {
	if len(chunks) != len(vectors) {
		return 0, NewDimensionMismatchError(store, "Build",
			fmt.Sprintf("%d chunks but %d vectors", len(chunks), len(vectors)))
	}
	dim := meta.Dimension
	for i, v := range vectors {
		if len(v) == 0 {
			return 0, NewDimensionMismatchError(store, "Build", fmt.Sprintf("vector %d is empty", i))
		}
		if dim == 0 {
			dim = len(v)
		}
		if len(v) != dim {
			return 0, NewDimensionMismatchError(store, "Build",
				fmt.Sprintf("vector %d has %d dimensions, expected %d", i, len(v), dim))
		}
	}
	return dim, nil
}

// CheckQuery validates the arguments shared by every Store.Search.
func CheckQuery(store string, dim int, vector []float32, k int) error {
	if k <= 0 {
		return NewInvalidArgumentError(store, "Search", fmt.Sprintf("k must be positive, got %d", k))
	}
	if dim > 0 && len(vector) != dim {
		return NewDimensionMismatchError(store, "Search",
			fmt.Sprintf("query has %d dimensions, index has %d", len(vector), dim))
	}
	return nil
}
