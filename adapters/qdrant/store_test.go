package qdrant

import (
	"context"
	"fmt"
	"os"
	"testing"

	"github.com/Abraxas-365/siteqa/document"
	"github.com/Abraxas-365/siteqa/vectorstore"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPayloadRoundTrip(t *testing.T) {
	c := document.Chunk{Text: "The sky is blue.", Offset: 800, Seq: 1}
	payload := chunkToPayload(c, "https://example.com")

	assert.Equal(t, "https://example.com", payload["source"].GetStringValue())
	assert.Equal(t, c, payloadToChunk(payload))
}

func TestSortResults_TiesBySeq(t *testing.T) {
	results := []vectorstore.Result{
		{Chunk: document.Chunk{Seq: 3}, Score: 0.5},
		{Chunk: document.Chunk{Seq: 1}, Score: 0.9},
		{Chunk: document.Chunk{Seq: 2}, Score: 0.5},
		{Chunk: document.Chunk{Seq: 0}, Score: 0.5},
	}
	sortResults(results)

	var seqs []int
	for _, r := range results {
		seqs = append(seqs, r.Chunk.Seq)
	}
	assert.Equal(t, []int{1, 0, 2, 3}, seqs)
}

func TestBoundaryTied(t *testing.T) {
	scored := func(scores ...float32) []vectorstore.Result {
		out := make([]vectorstore.Result, len(scores))
		for i, s := range scores {
			out[i] = vectorstore.Result{Chunk: document.Chunk{Seq: i}, Score: s}
		}
		return out
	}

	tests := []struct {
		name    string
		results []vectorstore.Result
		k       int
		limit   int
		want    bool
	}{
		{"short page holds every point", scored(0.9, 0.5, 0.5), 2, 4, false},
		{"full page with distinct edge", scored(0.9, 0.5, 0.4, 0.3), 2, 4, false},
		{"full page tied through the edge", scored(0.9, 0.5, 0.5, 0.5), 2, 4, true},
		{"tie ends inside the page", scored(0.5, 0.5, 0.5, 0.1), 2, 4, false},
		{"no more than k results", scored(0.5, 0.5), 2, 2, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, boundaryTied(tt.results, tt.k, tt.limit))
		})
	}
}

func TestQdrantStore_SearchValidatesBeforeCalling(t *testing.T) {
	store, err := NewQdrantStore("localhost:1", "unused")
	require.NoError(t, err)
	defer store.Close()

	_, err = store.Search(context.Background(), []float32{1}, 0)
	assert.True(t, vectorstore.IsCode(err, vectorstore.ErrCodeInvalidArgument))
}

// TestQdrantStore_Integration runs against a live Qdrant when
// SITEQA_TEST_QDRANT_ADDR is set.
func TestQdrantStore_Integration(t *testing.T) {
	addr := os.Getenv("SITEQA_TEST_QDRANT_ADDR")
	if addr == "" {
		t.Skip("SITEQA_TEST_QDRANT_ADDR not set")
	}
	ctx := context.Background()

	store, err := NewQdrantStore(addr, "siteqa_test_chunks")
	require.NoError(t, err)
	defer store.Close()

	chunks := []document.Chunk{{Text: "north", Seq: 0}, {Text: "east", Seq: 1}}
	require.NoError(t, store.Build(ctx, vectorstore.Metadata{Model: "m"}, chunks, [][]float32{{0, 1}, {1, 0}}))

	n, err := store.Len(ctx)
	require.NoError(t, err)
	assert.Equal(t, 2, n)

	results, err := store.Search(ctx, []float32{0, 1}, 1)
	require.NoError(t, err)
	require.Len(t, results, 1)
	assert.Equal(t, "north", results[0].Chunk.Text)

	// more equal-scoring chunks than fit in one page, stored out of order
	tied := make([]document.Chunk, 20)
	vectors := make([][]float32, 20)
	for i := range tied {
		tied[i] = document.Chunk{Text: fmt.Sprintf("chunk %d", i), Seq: 19 - i}
		vectors[i] = []float32{1, 1}
	}
	require.NoError(t, store.Build(ctx, vectorstore.Metadata{Model: "m"}, tied, vectors))

	results, err = store.Search(ctx, []float32{1, 1}, 4)
	require.NoError(t, err)
	require.Len(t, results, 4)
	for i, r := range results {
		assert.Equal(t, i, r.Chunk.Seq)
	}

	require.NoError(t, store.Drop(ctx))
	n, err = store.Len(ctx)
	require.NoError(t, err)
	assert.Zero(t, n)
}
