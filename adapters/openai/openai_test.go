package openai

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/Abraxas-365/siteqa/embedding"
	"github.com/Abraxas-365/siteqa/llm"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestOpenAILLM_Chat(t *testing.T) {
	var got map[string]any
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/chat/completions", r.URL.Path)
		assert.Equal(t, "Bearer test-key", r.Header.Get("Authorization"))
		_ = json.NewDecoder(r.Body).Decode(&got)

		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{
			"id": "chatcmpl-1",
			"object": "chat.completion",
			"choices": [{"index": 0, "message": {"role": "assistant", "content": "  Blue.  "}, "finish_reason": "stop"}],
			"usage": {"prompt_tokens": 12, "completion_tokens": 2, "total_tokens": 14}
		}`))
	}))
	defer srv.Close()

	client := NewOpenAILLM("test-key", GroqDefaultModel, WithBaseURL(srv.URL))
	msg, err := client.Chat(context.Background(), []llm.Message{
		{Role: llm.RoleSystem, Content: "rules"},
		{Role: llm.RoleUser, Content: "What color is the sky?"},
	})
	require.NoError(t, err)

	assert.Equal(t, "Blue.", msg.Content)
	require.NotNil(t, msg.Usage)
	assert.Equal(t, 14, msg.Usage.TotalTokens)

	assert.Equal(t, GroqDefaultModel, got["model"])
	assert.InDelta(t, 0.1, got["temperature"], 1e-6)
	assert.EqualValues(t, 1024, got["max_tokens"])
	assert.Len(t, got["messages"], 2)
}

func TestOpenAILLM_ErrorMapping(t *testing.T) {
	tests := []struct {
		name   string
		status int
		code   string
	}{
		{"unauthorized", http.StatusUnauthorized, llm.ErrUnauthorized},
		{"rate limited", http.StatusTooManyRequests, llm.ErrRateLimitExceeded},
		{"server error", http.StatusInternalServerError, llm.ErrAPIError},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.Header().Set("Content-Type", "application/json")
				w.WriteHeader(tt.status)
				_, _ = w.Write([]byte(`{"error": {"message": "nope", "type": "error"}}`))
			}))
			defer srv.Close()

			client := NewOpenAILLM("k", "m", WithBaseURL(srv.URL))
			_, err := client.Chat(context.Background(), []llm.Message{{Role: llm.RoleUser, Content: "q"}})
			require.Error(t, err)
			assert.True(t, llm.IsCode(err, tt.code), "got %v", err)
		})
	}
}

func TestOpenAIEmbedder_OrderAndErrors(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("Authorization") == "Bearer bad" {
			w.Header().Set("Content-Type", "application/json")
			w.WriteHeader(http.StatusServiceUnavailable)
			_, _ = w.Write([]byte(`{"error": {"message": "overloaded", "type": "server_error"}}`))
			return
		}
		w.Header().Set("Content-Type", "application/json")
		// Items deliberately out of order.
		_, _ = w.Write([]byte(`{
			"object": "list",
			"model": "text-embedding-3-small",
			"data": [
				{"object": "embedding", "index": 1, "embedding": [0, 2]},
				{"object": "embedding", "index": 0, "embedding": [3, 4]}
			]
		}`))
	}))
	defer srv.Close()

	e := NewOpenAIEmbedder("key", embedding.WithBaseURL(srv.URL))
	vecs, err := e.EmbedDocuments(context.Background(), []string{"a", "b"})
	require.NoError(t, err)
	require.Len(t, vecs, 2)
	assert.InDelta(t, 0.6, vecs[0][0], 1e-6)
	assert.InDelta(t, 1.0, vecs[1][1], 1e-6)
	assert.Equal(t, 1536, e.Dimensions())
	assert.Equal(t, "openai/text-embedding-3-small", e.ModelID())

	bad := NewOpenAIEmbedder("bad", embedding.WithBaseURL(srv.URL))
	_, err = bad.EmbedQuery(context.Background(), "q")
	require.Error(t, err)
	assert.True(t, embedding.IsModelNotAvailable(err))
}
