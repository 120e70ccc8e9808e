package ollama

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/Abraxas-365/siteqa/embedding"
)

var _ embedding.Embedder = (*OllamaEmbedder)(nil)

const (
	DefaultBaseURL    = "http://localhost:11434"
	DefaultModel      = "nomic-embed-text"
	DefaultDimensions = 768
	DefaultTimeout    = 30 * time.Second
)

// OllamaEmbedder embeds text with a model served by a local Ollama daemon.
type OllamaEmbedder struct {
	client  *http.Client
	options *embedding.EmbeddingOptions
}

type embedRequest struct {
	Model  string `json:"model"`
	Prompt string `json:"prompt"`
}

type embedResponse struct {
	Embedding []float64 `json:"embedding"`
}

// DefaultOptions returns the default options for Ollama embeddings
func DefaultOptions() *embedding.EmbeddingOptions {
	return &embedding.EmbeddingOptions{
		Model:      DefaultModel,
		BaseURL:    DefaultBaseURL,
		Dimensions: DefaultDimensions,
		BatchSize:  1,
		Normalize:  true,
	}
}

func NewOllamaEmbedder(opts ...embedding.Option) *OllamaEmbedder {
	options := DefaultOptions()
	for _, opt := range opts {
		opt(options)
	}

	return &OllamaEmbedder{
		client:  &http.Client{Timeout: DefaultTimeout},
		options: options,
	}
}

func (e *OllamaEmbedder) ModelID() string {
	return "ollama/" + e.options.Model
}

func (e *OllamaEmbedder) Dimensions() int {
	return e.options.Dimensions
}

// EmbedDocuments implements the Embedder interface. Ollama has no batch
// endpoint, so documents are embedded one request at a time.
func (e *OllamaEmbedder) EmbedDocuments(ctx context.Context, documents []string) ([][]float32, error) {
	if len(documents) == 0 {
		return nil, embedding.ErrEmptyInput("EmbedDocuments")
	}

	embeddings := make([][]float32, len(documents))
	for i, doc := range documents {
		vec, err := e.embed(ctx, "EmbedDocuments", doc)
		if err != nil {
			return nil, fmt.Errorf("embed document %d: %w", i, err)
		}
		embeddings[i] = vec
	}

	if err := embedding.CheckBatch("EmbedDocuments", len(documents), embeddings); err != nil {
		return nil, err
	}
	return embeddings, nil
}

// EmbedQuery implements the Embedder interface
func (e *OllamaEmbedder) EmbedQuery(ctx context.Context, text string) ([]float32, error) {
	if text == "" {
		return nil, embedding.ErrEmptyInput("EmbedQuery")
	}
	return e.embed(ctx, "EmbedQuery", text)
}

// Ping checks that the daemon is reachable without running inference.
func (e *OllamaEmbedder) Ping(ctx context.Context) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, e.options.BaseURL+"/api/tags", http.NoBody)
	if err != nil {
		return embedding.ErrModelNotAvailable("Ping", err)
	}

	resp, err := e.client.Do(req)
	if err != nil {
		return embedding.ErrModelNotAvailable("Ping", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return embedding.ErrModelNotAvailable("Ping", fmt.Errorf("status %d", resp.StatusCode))
	}
	return nil
}

func (e *OllamaEmbedder) embed(ctx context.Context, op, text string) ([]float32, error) {
	body, err := json.Marshal(embedRequest{Model: e.options.Model, Prompt: text})
	if err != nil {
		return nil, embedding.NewEmbeddingError(op, err, embedding.ErrCodeInternal, "marshal request")
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, e.options.BaseURL+"/api/embeddings", bytes.NewReader(body))
	if err != nil {
		return nil, embedding.NewEmbeddingError(op, err, embedding.ErrCodeInternal, "create request")
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := e.client.Do(req)
	if err != nil {
		if errors.Is(err, context.Canceled) {
			return nil, embedding.NewEmbeddingError(op, err, embedding.ErrCodeContextCanceled, "request canceled")
		}
		return nil, embedding.ErrModelNotAvailable(op, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, e.handleStatus(op, resp)
	}

	var out embedResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return nil, embedding.NewEmbeddingError(op, err, embedding.ErrCodeAPIError, "decode response")
	}
	if len(out.Embedding) == 0 {
		return nil, embedding.NewEmbeddingError(op, nil, embedding.ErrCodeAPIError, "empty embedding returned")
	}
	if e.options.Dimensions > 0 && len(out.Embedding) != e.options.Dimensions {
		return nil, embedding.ErrInvalidDimensions(op, e.options.Dimensions, len(out.Embedding), 0)
	}

	vec := make([]float32, len(out.Embedding))
	for i, v := range out.Embedding {
		vec[i] = float32(v)
	}
	if e.options.Normalize {
		embedding.Normalize(vec)
	}
	return vec, nil
}

func (e *OllamaEmbedder) handleStatus(op string, resp *http.Response) error {
	msg, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
	err := fmt.Errorf("ollama status %d: %s", resp.StatusCode, bytes.TrimSpace(msg))

	switch {
	case resp.StatusCode == http.StatusNotFound, resp.StatusCode >= 500:
		return embedding.ErrModelNotAvailable(op, err)
	case resp.StatusCode == http.StatusTooManyRequests:
		return embedding.ErrRateLimitExceeded(op, err)
	case resp.StatusCode == http.StatusBadRequest:
		return embedding.ErrInvalidInput(op, err, string(msg))
	default:
		return embedding.NewEmbeddingError(op, err, embedding.ErrCodeAPIError, "ollama API error")
	}
}
