package vectorstore

import (
	"context"
	"math"
	"sort"
	"sync"
	"time"

	"github.com/Abraxas-365/siteqa/document"
)

const memoryStore = "memory"

var _ Store = (*Index)(nil)

// Index is an in-memory exact nearest-neighbour index ranking chunks by
// cosine similarity.
type Index struct {
	mu      sync.RWMutex
	meta    Metadata
	chunks  []document.Chunk
	vectors [][]float32
	norms   []float64
}

// NewIndex returns an empty index for vectors produced by model.
func NewIndex(model string) *Index {
	return &Index{meta: Metadata{Model: model}}
}

// Build creates an index holding chunks and their vectors.
func Build(meta Metadata, chunks []document.Chunk, vectors [][]float32) (*Index, error) {
	ix := NewIndex(meta.Model)
	if err := ix.Build(context.Background(), meta, chunks, vectors); err != nil {
		return nil, err
	}
	return ix, nil
}

// Build replaces the index contents. On error the previous contents are kept.
func (ix *Index) Build(ctx context.Context, meta Metadata, chunks []document.Chunk, vectors [][]float32) error {
	dim, err := CheckBuild(memoryStore, meta, chunks, vectors)
	if err != nil {
		return err
	}

	if meta.Model == "" {
		meta.Model = ix.Metadata().Model
	}
	meta.Dimension = dim
	meta.Count = len(chunks)
	if meta.CreatedAt.IsZero() {
		meta.CreatedAt = time.Now().UTC()
	}

	cs := make([]document.Chunk, len(chunks))
	copy(cs, chunks)
	vs := make([][]float32, len(vectors))
	norms := make([]float64, len(vectors))
	for i, v := range vectors {
		vs[i] = append([]float32(nil), v...)
		norms[i] = norm(v)
	}

	ix.mu.Lock()
	defer ix.mu.Unlock()
	ix.meta = meta
	ix.chunks = cs
	ix.vectors = vs
	ix.norms = norms
	return nil
}

// Search ranks every stored chunk against vector. Chunks with equal scores
// keep their build order.
func (ix *Index) Search(ctx context.Context, vector []float32, k int) ([]Result, error) {
	ix.mu.RLock()
	defer ix.mu.RUnlock()

	if err := CheckQuery(memoryStore, ix.meta.Dimension, vector, k); err != nil {
		return nil, err
	}
	if len(ix.chunks) == 0 {
		return nil, nil
	}

	qn := norm(vector)
	results := make([]Result, len(ix.chunks))
	for i, v := range ix.vectors {
		results[i] = Result{
			Chunk: ix.chunks[i],
			Score: cosine(vector, qn, v, ix.norms[i]),
		}
	}

	sort.SliceStable(results, func(a, b int) bool {
		return results[a].Score > results[b].Score
	})

	if k < len(results) {
		results = results[:k]
	}
	return results, nil
}

func (ix *Index) Len(ctx context.Context) (int, error) {
	ix.mu.RLock()
	defer ix.mu.RUnlock()
	return len(ix.chunks), nil
}

func (ix *Index) Metadata() Metadata {
	ix.mu.RLock()
	defer ix.mu.RUnlock()
	return ix.meta
}

func norm(v []float32) float64 {
	var sum float64
	for _, x := range v {
		sum += float64(x) * float64(x)
	}
	return math.Sqrt(sum)
}

func cosine(q []float32, qn float64, v []float32, vn float64) float32 {
	if qn == 0 || vn == 0 {
		return 0
	}
	var dot float64
	for i := range q {
		dot += float64(q[i]) * float64(v[i])
	}
	return float32(dot / (qn * vn))
}
