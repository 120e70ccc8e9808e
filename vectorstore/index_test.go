package vectorstore

import (
	"context"
	"testing"

	"github.com/Abraxas-365/siteqa/document"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testChunks(texts ...string) []document.Chunk {
	chunks := make([]document.Chunk, len(texts))
	for i, t := range texts {
		chunks[i] = document.Chunk{Text: t, Offset: i * 10, Seq: i}
	}
	return chunks
}

func buildTestIndex(t *testing.T) *Index {
	t.Helper()
	ix, err := Build(Metadata{Model: "test-model", Source: "https://example.com"},
		testChunks("north", "east", "north-east", "south"),
		[][]float32{
			{0, 1},
			{1, 0},
			{0.7071, 0.7071},
			{0, -1},
		})
	require.NoError(t, err)
	return ix
}

func TestIndex_Build(t *testing.T) {
	ix := buildTestIndex(t)
	ctx := context.Background()

	n, err := ix.Len(ctx)
	require.NoError(t, err)
	assert.Equal(t, 4, n)

	meta := ix.Metadata()
	assert.Equal(t, "test-model", meta.Model)
	assert.Equal(t, 2, meta.Dimension)
	assert.Equal(t, 4, meta.Count)
	assert.Equal(t, "https://example.com", meta.Source)
	assert.False(t, meta.CreatedAt.IsZero())
}

func TestIndex_BuildMismatch(t *testing.T) {
	tests := []struct {
		name    string
		meta    Metadata
		chunks  []document.Chunk
		vectors [][]float32
	}{
		{
			name:    "more chunks than vectors",
			chunks:  testChunks("a", "b"),
			vectors: [][]float32{{1, 0}},
		},
		{
			name:    "ragged vectors",
			chunks:  testChunks("a", "b"),
			vectors: [][]float32{{1, 0}, {1, 0, 0}},
		},
		{
			name:    "empty vector",
			chunks:  testChunks("a"),
			vectors: [][]float32{{}},
		},
		{
			name:    "dimension differs from metadata",
			meta:    Metadata{Dimension: 3},
			chunks:  testChunks("a"),
			vectors: [][]float32{{1, 0}},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Build(tt.meta, tt.chunks, tt.vectors)
			require.Error(t, err)
			assert.True(t, IsCode(err, ErrCodeDimensionMismatch), "got %v", err)
		})
	}
}

func TestIndex_SearchOrdersBySimilarity(t *testing.T) {
	ix := buildTestIndex(t)

	results, err := ix.Search(context.Background(), []float32{0, 1}, 10)
	require.NoError(t, err)
	require.Len(t, results, 4)

	var got []string
	for _, r := range results {
		got = append(got, r.Chunk.Text)
	}
	assert.Equal(t, []string{"north", "north-east", "east", "south"}, got)
	assert.InDelta(t, 1.0, results[0].Score, 1e-5)
	assert.InDelta(t, -1.0, results[3].Score, 1e-5)

	for i := 1; i < len(results); i++ {
		assert.GreaterOrEqual(t, results[i-1].Score, results[i].Score)
	}
}

func TestIndex_SearchLimitsToK(t *testing.T) {
	ix := buildTestIndex(t)

	results, err := ix.Search(context.Background(), []float32{1, 0}, 2)
	require.NoError(t, err)
	require.Len(t, results, 2)
	assert.Equal(t, "east", results[0].Chunk.Text)
	assert.Equal(t, "north-east", results[1].Chunk.Text)
}

func TestIndex_SearchTiesKeepBuildOrder(t *testing.T) {
	ix, err := Build(Metadata{Model: "m"},
		testChunks("first", "second", "third"),
		[][]float32{{1, 0}, {1, 0}, {1, 0}})
	require.NoError(t, err)

	results, err := ix.Search(context.Background(), []float32{1, 0}, 3)
	require.NoError(t, err)
	require.Len(t, results, 3)
	for i, want := range []string{"first", "second", "third"} {
		assert.Equal(t, want, results[i].Chunk.Text)
		assert.Equal(t, i, results[i].Chunk.Seq)
	}
}

func TestIndex_SearchInvalid(t *testing.T) {
	ix := buildTestIndex(t)
	ctx := context.Background()

	_, err := ix.Search(ctx, []float32{0, 1}, 0)
	assert.True(t, IsCode(err, ErrCodeInvalidArgument))

	_, err = ix.Search(ctx, []float32{0, 1}, -3)
	assert.True(t, IsCode(err, ErrCodeInvalidArgument))

	_, err = ix.Search(ctx, []float32{0, 1, 0}, 2)
	assert.True(t, IsCode(err, ErrCodeDimensionMismatch))
}

func TestIndex_SearchEmpty(t *testing.T) {
	results, err := NewIndex("m").Search(context.Background(), []float32{1}, 4)
	require.NoError(t, err)
	assert.Empty(t, results)
}

func TestIndex_RebuildReplaces(t *testing.T) {
	ix := buildTestIndex(t)
	ctx := context.Background()

	err := ix.Build(ctx, Metadata{Source: "https://other.example"},
		testChunks("only"), [][]float32{{1, 1, 1}})
	require.NoError(t, err)

	n, err := ix.Len(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, n)
	assert.Equal(t, 3, ix.Metadata().Dimension)
	assert.Equal(t, "test-model", ix.Metadata().Model)
	assert.Equal(t, "https://other.example", ix.Metadata().Source)

	results, err := ix.Search(ctx, []float32{1, 1, 1}, 4)
	require.NoError(t, err)
	require.Len(t, results, 1)
	assert.Equal(t, "only", results[0].Chunk.Text)
}

func TestIndex_FailedRebuildKeepsContents(t *testing.T) {
	ix := buildTestIndex(t)
	ctx := context.Background()

	err := ix.Build(ctx, Metadata{}, testChunks("a", "b"), [][]float32{{1}})
	require.Error(t, err)

	n, _ := ix.Len(ctx)
	assert.Equal(t, 4, n)
}

func TestIndex_BuildCopiesInput(t *testing.T) {
	vectors := [][]float32{{1, 0}}
	ix, err := Build(Metadata{Model: "m"}, testChunks("a"), vectors)
	require.NoError(t, err)

	vectors[0][0] = -1
	results, err := ix.Search(context.Background(), []float32{1, 0}, 1)
	require.NoError(t, err)
	assert.InDelta(t, 1.0, results[0].Score, 1e-6)
}
