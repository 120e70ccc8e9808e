package kb

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/Abraxas-365/siteqa/adapters/hashembed"
	"github.com/Abraxas-365/siteqa/adapters/inmemory"
	"github.com/Abraxas-365/siteqa/adapters/local/fsstore"
	"github.com/Abraxas-365/siteqa/adapters/web/websource"
	"github.com/Abraxas-365/siteqa/chathistory"
	"github.com/Abraxas-365/siteqa/datasource"
	"github.com/Abraxas-365/siteqa/document"
	"github.com/Abraxas-365/siteqa/embedding"
	"github.com/Abraxas-365/siteqa/llm"
	"github.com/Abraxas-365/siteqa/qa"
	"github.com/Abraxas-365/siteqa/vectorstore"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// contextLLM answers about the sky only when the context mentions it, the
// way a model following the system rules would.
type contextLLM struct {
	calls int
	err   error
}

func (c *contextLLM) Chat(ctx context.Context, messages []llm.Message, opts ...llm.Option) (*llm.Message, error) {
	c.calls++
	if c.err != nil {
		return nil, c.err
	}
	reply := qa.FallbackAnswer
	if len(messages) > 1 && strings.Contains(messages[1].Content, "sky") {
		reply = "The sky is blue."
	}
	return &llm.Message{Role: llm.RoleAssistant, Content: reply}, nil
}

type fixture struct {
	session *Session
	model   *contextLLM
	pages   map[string]string
	srv     *httptest.Server
}

func newFixture(t *testing.T, opts ...Option) *fixture {
	t.Helper()

	f := &fixture{model: &contextLLM{}, pages: map[string]string{}}
	f.srv = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		body, ok := f.pages[r.URL.Path]
		if !ok {
			http.NotFound(w, r)
			return
		}
		fmt.Fprintf(w, "<html><head><title>%s</title></head><body><p>%s</p></body></html>", r.URL.Path, body)
	}))
	t.Cleanup(f.srv.Close)

	emb, err := hashembed.New(hashembed.DefaultDimensions)
	require.NoError(t, err)
	disk, err := fsstore.New(t.TempDir())
	require.NoError(t, err)

	router := datasource.NewRouter(
		websource.NewWebSource(datasource.WithMinStaticLength(0)),
		nil,
		datasource.WithMinTextLength(0),
	)

	f.session, err = New("test-session", Deps{
		Router:   router,
		Embedder: emb,
		Answerer: qa.NewAnswerer(f.model),
		Memory:   chathistory.NewMemory(inmemory.NewInMemoryRepository()),
		Storage:  disk,
	}, opts...)
	require.NoError(t, err)
	return f
}

func (f *fixture) url(path string) string {
	return f.srv.URL + path
}

func TestSession_EndToEnd(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	f.pages["/colors"] = "The sky is blue. Grass is green."

	res, err := f.session.Crawl(ctx, f.url("/colors"), false)
	require.NoError(t, err)
	assert.Equal(t, 1, res.Chunks)
	assert.Equal(t, "hashembed-v1-384", res.Model)
	assert.Equal(t, datasource.ModeStatic, res.Mode)

	answer, err := f.session.Ask(ctx, "What color is the sky?")
	require.NoError(t, err)
	require.NotEmpty(t, answer.Sources)
	assert.Contains(t, answer.Sources[0].Chunk.Text, "sky")
	assert.Contains(t, answer.Sources[0].Chunk.Text, "blue")
	assert.Equal(t, "The sky is blue.", answer.Text)
	assert.False(t, answer.Fallback)
}

func TestSession_FallbackWhenSiteLacksAnswer(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	f.pages["/grass"] = "Grass is green."

	_, err := f.session.Crawl(ctx, f.url("/grass"), false)
	require.NoError(t, err)

	answer, err := f.session.Ask(ctx, "What color is the sky?")
	require.NoError(t, err)
	assert.Equal(t, "The answer is not available on the provided website", answer.Text)
	assert.True(t, answer.Fallback)
}

func TestSession_ScoreThresholdSkipsModel(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, WithScoreThreshold(0.05))
	f.pages["/grass"] = "Grass is green."

	_, err := f.session.Crawl(ctx, f.url("/grass"), false)
	require.NoError(t, err)

	answer, err := f.session.Ask(ctx, "What color is the sky?")
	require.NoError(t, err)
	assert.Equal(t, qa.FallbackAnswer, answer.Text)
	assert.Empty(t, answer.Sources)
	assert.Zero(t, f.model.calls)
}

func TestSession_AskBeforeCrawl(t *testing.T) {
	f := newFixture(t)

	_, err := f.session.Ask(context.Background(), "anything")
	require.Error(t, err)
	stage, ok := StageOf(err)
	require.True(t, ok)
	assert.Equal(t, StageRetrieve, stage)
	assert.True(t, vectorstore.IsCode(err, vectorstore.ErrCodeNotIndexed))
}

func TestSession_CrawlResetsHistory(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	f.pages["/colors"] = "The sky is blue. Grass is green."
	f.pages["/grass"] = "Grass is green."

	_, err := f.session.Crawl(ctx, f.url("/colors"), false)
	require.NoError(t, err)
	_, err = f.session.Ask(ctx, "What color is the sky?")
	require.NoError(t, err)
	assert.Equal(t, 1, f.session.Info(ctx).History)

	_, err = f.session.Crawl(ctx, f.url("/grass"), false)
	require.NoError(t, err)
	info := f.session.Info(ctx)
	assert.Zero(t, info.History)
	assert.Equal(t, f.url("/grass"), info.Source)
	assert.Equal(t, 1, info.Chunks)
}

func TestSession_FailedCrawlLeavesSessionEmpty(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	f.pages["/colors"] = "The sky is blue. Grass is green."

	_, err := f.session.Crawl(ctx, f.url("/colors"), false)
	require.NoError(t, err)

	_, err = f.session.Crawl(ctx, f.url("/missing"), false)
	require.Error(t, err)
	stage, _ := StageOf(err)
	assert.Equal(t, StageExtract, stage)
	assert.True(t, datasource.IsFetchError(err))

	assert.False(t, f.session.Info(ctx).Indexed)
	_, err = f.session.Ask(ctx, "What color is the sky?")
	assert.True(t, vectorstore.IsCode(err, vectorstore.ErrCodeNotIndexed))
}

func TestSession_EmptyPage(t *testing.T) {
	f := newFixture(t)
	f.pages["/empty"] = ""

	_, err := f.session.Crawl(context.Background(), f.url("/empty"), false)
	stage, _ := StageOf(err)
	assert.Equal(t, StageChunk, stage)
}

func TestSession_InvalidURL(t *testing.T) {
	f := newFixture(t)

	_, err := f.session.Crawl(context.Background(), "ftp://example.com", false)
	stage, _ := StageOf(err)
	assert.Equal(t, StageExtract, stage)
	assert.True(t, datasource.IsCode(err, datasource.ErrCodeInvalidURL))
}

func TestSession_GenerationErrorKeepsHistory(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	f.pages["/colors"] = "The sky is blue. Grass is green."

	_, err := f.session.Crawl(ctx, f.url("/colors"), false)
	require.NoError(t, err)
	_, err = f.session.Ask(ctx, "What color is the sky?")
	require.NoError(t, err)

	f.model.err = llm.NewLLMError("Chat", llm.ErrUnauthorized, "invalid API key", nil)
	_, err = f.session.Ask(ctx, "And the grass?")
	require.Error(t, err)
	stage, _ := StageOf(err)
	assert.Equal(t, StageGenerate, stage)
	assert.True(t, qa.IsGenerationError(err))
	assert.Equal(t, 1, f.session.Info(ctx).History)
}

func TestSession_HistoryBounded(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	f.pages["/colors"] = "The sky is blue. Grass is green."

	_, err := f.session.Crawl(ctx, f.url("/colors"), false)
	require.NoError(t, err)
	for i := 0; i < 7; i++ {
		_, err := f.session.Ask(ctx, fmt.Sprintf("What color is the sky? (%d)", i))
		require.NoError(t, err)
	}
	assert.Equal(t, chathistory.DefaultWindow, f.session.Info(ctx).History)

	require.NoError(t, f.session.ClearHistory(ctx))
	info := f.session.Info(ctx)
	assert.Zero(t, info.History)
	assert.True(t, info.Indexed)
}

func TestSession_SaveAndLoadIndex(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	f.pages["/colors"] = "The sky is blue. Grass is green."

	_, err := f.session.Crawl(ctx, f.url("/colors"), false)
	require.NoError(t, err)
	before, err := f.session.Ask(ctx, "What color is the sky?")
	require.NoError(t, err)
	require.NoError(t, f.session.SaveIndex(ctx, ""))

	require.NoError(t, f.session.Reset(ctx))
	assert.False(t, f.session.Info(ctx).Indexed)

	info, err := f.session.LoadIndex(ctx, "")
	require.NoError(t, err)
	assert.True(t, info.Indexed)
	assert.Equal(t, f.url("/colors"), info.Source)
	assert.Zero(t, info.History)

	after, err := f.session.Ask(ctx, "What color is the sky?")
	require.NoError(t, err)
	require.Len(t, after.Sources, len(before.Sources))
	for i := range before.Sources {
		assert.Equal(t, before.Sources[i].Chunk, after.Sources[i].Chunk)
		assert.InDelta(t, before.Sources[i].Score, after.Sources[i].Score, 1e-6)
	}
}

func TestSession_LoadMissingIndex(t *testing.T) {
	f := newFixture(t)

	_, err := f.session.LoadIndex(context.Background(), "nope")
	stage, _ := StageOf(err)
	assert.Equal(t, StagePersist, stage)
	assert.True(t, vectorstore.IsCode(err, vectorstore.ErrCodeFormat))
}

func TestSession_SaveWithoutIndex(t *testing.T) {
	f := newFixture(t)

	err := f.session.SaveIndex(context.Background(), "k")
	assert.True(t, vectorstore.IsCode(err, vectorstore.ErrCodeNotIndexed))
}

// failingEmbedder reports the model as unavailable.
type failingEmbedder struct{}

func (failingEmbedder) EmbedDocuments(ctx context.Context, docs []string) ([][]float32, error) {
	return nil, embedding.ErrModelNotAvailable("EmbedDocuments", errors.New("weights missing"))
}

func (failingEmbedder) EmbedQuery(ctx context.Context, text string) ([]float32, error) {
	return nil, embedding.ErrModelNotAvailable("EmbedQuery", errors.New("weights missing"))
}

func (failingEmbedder) ModelID() string { return "broken" }
func (failingEmbedder) Dimensions() int { return 3 }

func TestSession_EmbedFailure(t *testing.T) {
	f := newFixture(t)
	f.pages["/colors"] = "The sky is blue."
	f.session.deps.Embedder = failingEmbedder{}

	_, err := f.session.Crawl(context.Background(), f.url("/colors"), false)
	stage, _ := StageOf(err)
	assert.Equal(t, StageEmbed, stage)
	assert.True(t, embedding.IsModelNotAvailable(err))
}

// trackedStore counts how often the session releases it.
type trackedStore struct {
	vectorstore.Store
	buildErr error
	closeErr error
	dropped  int
	closed   int
}

func (s *trackedStore) Build(ctx context.Context, meta vectorstore.Metadata, chunks []document.Chunk, vectors [][]float32) error {
	if s.buildErr != nil {
		return s.buildErr
	}
	return s.Store.Build(ctx, meta, chunks, vectors)
}

func (s *trackedStore) Drop(ctx context.Context) error {
	s.dropped++
	return nil
}

func (s *trackedStore) Close() error {
	s.closed++
	return s.closeErr
}

type storeTracker struct {
	stores   []*trackedStore
	buildErr error
	closeErr error
}

func (tr *storeTracker) newStore(ctx context.Context, model string, dim int) (vectorstore.Store, error) {
	st := &trackedStore{Store: vectorstore.NewIndex(model), buildErr: tr.buildErr, closeErr: tr.closeErr}
	tr.stores = append(tr.stores, st)
	return st, nil
}

func (tr *storeTracker) assertReleased(t *testing.T, created int) {
	t.Helper()
	require.Len(t, tr.stores, created)
	for i, st := range tr.stores {
		assert.Equal(t, 1, st.dropped, "store %d dropped", i)
		assert.Equal(t, 1, st.closed, "store %d closed", i)
	}
}

func TestSession_ReleasesReplacedStores(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	f.pages["/colors"] = "The sky is blue. Grass is green."
	tracker := &storeTracker{}
	f.session.deps.NewStore = tracker.newStore

	for i := 0; i < 3; i++ {
		_, err := f.session.Crawl(ctx, f.url("/colors"), false)
		require.NoError(t, err)
	}
	require.Len(t, tracker.stores, 3)
	last := tracker.stores[2]
	assert.Zero(t, last.closed)

	require.NoError(t, f.session.Close(ctx))
	tracker.assertReleased(t, 3)

	require.NoError(t, f.session.Close(ctx))
	assert.Equal(t, 1, last.closed)
}

func TestSession_ResetReleasesStore(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	f.pages["/colors"] = "The sky is blue. Grass is green."
	tracker := &storeTracker{}
	f.session.deps.NewStore = tracker.newStore

	_, err := f.session.Crawl(ctx, f.url("/colors"), false)
	require.NoError(t, err)
	require.NoError(t, f.session.Reset(ctx))
	tracker.assertReleased(t, 1)
	assert.False(t, f.session.Info(ctx).Indexed)
}

func TestSession_FailedBuildReleasesStore(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	f.pages["/colors"] = "The sky is blue. Grass is green."
	tracker := &storeTracker{buildErr: errors.New("disk full")}
	f.session.deps.NewStore = tracker.newStore

	_, err := f.session.Crawl(ctx, f.url("/colors"), false)
	stage, _ := StageOf(err)
	assert.Equal(t, StageIndex, stage)
	tracker.assertReleased(t, 1)
	assert.False(t, f.session.Info(ctx).Indexed)
}

func TestSession_CloseReportsReleaseError(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	f.pages["/colors"] = "The sky is blue. Grass is green."
	tracker := &storeTracker{closeErr: errors.New("connection reset")}
	f.session.deps.NewStore = tracker.newStore

	_, err := f.session.Crawl(ctx, f.url("/colors"), false)
	require.NoError(t, err)

	err = f.session.Close(ctx)
	require.Error(t, err)
	stage, _ := StageOf(err)
	assert.Equal(t, StageIndex, stage)
	assert.False(t, f.session.Info(ctx).Indexed)
}

func TestNew_RequiresDeps(t *testing.T) {
	_, err := New("", Deps{})
	assert.Error(t, err)
}

func TestNew_GeneratesID(t *testing.T) {
	emb, err := hashembed.New(8)
	require.NoError(t, err)

	s, err := New("", Deps{
		Router:   datasource.NewRouter(nil, nil),
		Embedder: emb,
		Answerer: qa.NewAnswerer(&contextLLM{}),
		Memory:   chathistory.NewMemory(inmemory.NewInMemoryRepository()),
	})
	require.NoError(t, err)
	assert.NotEmpty(t, s.ID())
}
