package openai

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"github.com/Abraxas-365/siteqa/embedding"
	"github.com/sashabaranov/go-openai"
)

var _ embedding.Embedder = (*OpenAIEmbedder)(nil)

type OpenAIEmbedder struct {
	client  *openai.Client
	options *embedding.EmbeddingOptions
}

// DefaultOptions returns the default options for OpenAI embeddings
func DefaultOptions() *embedding.EmbeddingOptions {
	return &embedding.EmbeddingOptions{
		Model:     string(openai.SmallEmbedding3),
		BatchSize: 100,
		Normalize: true,
	}
}

// NewOpenAIEmbedder creates a new OpenAI embedder with the given API key and options
func NewOpenAIEmbedder(apiKey string, opts ...embedding.Option) *OpenAIEmbedder {
	options := DefaultOptions()
	for _, opt := range opts {
		opt(options)
	}

	config := openai.DefaultConfig(apiKey)
	if options.BaseURL != "" {
		config.BaseURL = options.BaseURL
	}
	client := openai.NewClientWithConfig(config)

	return &OpenAIEmbedder{
		client:  client,
		options: options,
	}
}

func (e *OpenAIEmbedder) ModelID() string {
	return "openai/" + e.options.Model
}

// Dimensions returns the configured vector size, falling back to the
// published size of well-known models.
func (e *OpenAIEmbedder) Dimensions() int {
	if e.options.Dimensions > 0 {
		return e.options.Dimensions
	}
	switch openai.EmbeddingModel(e.options.Model) {
	case openai.AdaEmbeddingV2, openai.SmallEmbedding3:
		return 1536
	case openai.LargeEmbedding3:
		return 3072
	}
	return 0
}

// EmbedDocuments implements the Embedder interface
func (e *OpenAIEmbedder) EmbedDocuments(ctx context.Context, documents []string) ([][]float32, error) {
	if len(documents) == 0 {
		return nil, embedding.ErrEmptyInput("EmbedDocuments")
	}

	// Process in batches if needed
	if len(documents) > e.options.BatchSize {
		return e.embedInBatches(ctx, documents)
	}

	resp, err := e.client.CreateEmbeddings(ctx, e.request(documents))
	if err != nil {
		return nil, e.handleError("EmbedDocuments", err)
	}

	// The API tags each item with its input position.
	embeddings := make([][]float32, len(documents))
	for _, item := range resp.Data {
		if item.Index < 0 || item.Index >= len(embeddings) {
			return nil, embedding.NewEmbeddingError("EmbedDocuments", nil, embedding.ErrCodeAPIError,
				fmt.Sprintf("embedding index %d out of range", item.Index))
		}
		embeddings[item.Index] = item.Embedding
		if e.options.Normalize {
			embedding.Normalize(embeddings[item.Index])
		}
	}

	if err := embedding.CheckBatch("EmbedDocuments", len(documents), embeddings); err != nil {
		return nil, err
	}
	return embeddings, nil
}

// EmbedQuery implements the Embedder interface
func (e *OpenAIEmbedder) EmbedQuery(ctx context.Context, text string) ([]float32, error) {
	if text == "" {
		return nil, embedding.ErrEmptyInput("EmbedQuery")
	}

	resp, err := e.client.CreateEmbeddings(ctx, e.request([]string{text}))
	if err != nil {
		return nil, e.handleError("EmbedQuery", err)
	}

	if len(resp.Data) == 0 {
		return nil, embedding.NewEmbeddingError("EmbedQuery", nil, embedding.ErrCodeAPIError,
			"no embedding returned from API")
	}

	vec := resp.Data[0].Embedding
	if e.options.Normalize {
		embedding.Normalize(vec)
	}

	return vec, nil
}

func (e *OpenAIEmbedder) request(input []string) openai.EmbeddingRequest {
	req := openai.EmbeddingRequest{
		Input: input,
		Model: openai.EmbeddingModel(e.options.Model),
	}
	if e.options.Dimensions > 0 && openai.EmbeddingModel(e.options.Model) != openai.AdaEmbeddingV2 {
		req.Dimensions = e.options.Dimensions
	}
	return req
}

// embedInBatches processes documents in batches
func (e *OpenAIEmbedder) embedInBatches(ctx context.Context, documents []string) ([][]float32, error) {
	var allEmbeddings [][]float32

	for i := 0; i < len(documents); i += e.options.BatchSize {
		end := i + e.options.BatchSize
		if end > len(documents) {
			end = len(documents)
		}

		batch := documents[i:end]
		batchEmbeddings, err := e.EmbedDocuments(ctx, batch)
		if err != nil {
			return nil, fmt.Errorf("error processing batch %d: %w", i/e.options.BatchSize, err)
		}

		allEmbeddings = append(allEmbeddings, batchEmbeddings...)
	}

	return allEmbeddings, nil
}

// handleError converts OpenAI API errors to embedding errors
func (e *OpenAIEmbedder) handleError(op string, err error) error {
	if err == nil {
		return nil
	}

	var apiErr *openai.APIError
	if errors.As(err, &apiErr) {
		switch apiErr.HTTPStatusCode {
		case http.StatusBadRequest:
			return embedding.ErrInvalidInput(op, err, apiErr.Message)
		case http.StatusUnauthorized:
			return embedding.NewEmbeddingError(op, err, embedding.ErrCodeUnauthorized, "invalid API key")
		case http.StatusNotFound:
			return embedding.ErrModelNotAvailable(op, err)
		case http.StatusTooManyRequests:
			return embedding.ErrRateLimitExceeded(op, err)
		}
		if apiErr.HTTPStatusCode >= 500 {
			return embedding.NewEmbeddingError(op, err, embedding.ErrCodeModelNotAvailable,
				"embedding API server error")
		}
		return embedding.NewEmbeddingError(op, err, embedding.ErrCodeAPIError,
			fmt.Sprintf("OpenAI API error: %s", apiErr.Message))
	}

	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return embedding.NewEmbeddingError(op, err, embedding.ErrCodeContextCanceled, "request canceled")
	}

	// Transport failures mean the endpoint serving the model is unreachable.
	return embedding.ErrModelNotAvailable(op, err)
}
