package vectorstore

import (
	"context"
	"strings"

	"github.com/Abraxas-365/siteqa/document"
	"github.com/Abraxas-365/siteqa/embedding"
)

// Retriever embeds questions and looks them up in a Store
type Retriever struct {
	store    Store
	embedder embedding.Embedder
	opts     *Options
}

// NewRetriever creates a retriever over store. The embedder must be the one
// that produced the stored vectors.
func NewRetriever(store Store, embedder embedding.Embedder, opts ...Option) *Retriever {
	options := defaultOptions()
	for _, opt := range opts {
		opt(options)
	}

	return &Retriever{
		store:    store,
		embedder: embedder,
		opts:     options,
	}
}

// Store returns the store the retriever queries.
func (r *Retriever) Store() Store {
	return r.store
}

// Retrieve returns the k chunks most similar to question, most similar
// first. A k of zero uses the configured default.
func (r *Retriever) Retrieve(ctx context.Context, question string, k int) ([]document.Chunk, error) {
	results, err := r.RetrieveScored(ctx, question, k)
	if err != nil {
		return nil, err
	}
	return Chunks(results), nil
}

// RetrieveScored is Retrieve keeping similarity scores.
func (r *Retriever) RetrieveScored(ctx context.Context, question string, k int) ([]Result, error) {
	if k == 0 {
		k = r.opts.TopK
	}
	if k < 0 {
		return nil, NewInvalidArgumentError("retriever", "Retrieve", "k must be positive")
	}
	if strings.TrimSpace(question) == "" {
		return nil, NewInvalidArgumentError("retriever", "Retrieve", "question is empty")
	}

	n, err := r.store.Len(ctx)
	if err != nil {
		return nil, NewSearchFailedError("retriever", err)
	}
	if n == 0 {
		return nil, NewNotIndexedError("retriever")
	}

	vector, err := r.embedder.EmbedQuery(ctx, question)
	if err != nil {
		return nil, NewEmbeddingFailedError("retriever", err)
	}

	results, err := r.store.Search(ctx, vector, k)
	if err != nil {
		return nil, err
	}

	if r.opts.ScoreThreshold <= 0 {
		return results, nil
	}
	kept := results[:0]
	for _, res := range results {
		if res.Score >= r.opts.ScoreThreshold {
			kept = append(kept, res)
		}
	}
	return kept, nil
}
