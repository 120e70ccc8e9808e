package kb

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/Abraxas-365/siteqa/chathistory"
	"github.com/Abraxas-365/siteqa/datasource"
	"github.com/Abraxas-365/siteqa/document"
	"github.com/Abraxas-365/siteqa/embedding"
	"github.com/Abraxas-365/siteqa/qa"
	"github.com/Abraxas-365/siteqa/storage"
	"github.com/Abraxas-365/siteqa/vectorstore"
)

// StoreFactory returns an empty store for vectors of the given model and
// dimension. It is called once per crawl. The session owns the store: when
// it is replaced or the session closes, the store is dropped if it is a
// vectorstore.Dropper and closed if it is an io.Closer.
type StoreFactory func(ctx context.Context, model string, dim int) (vectorstore.Store, error)

// MemoryStores builds a fresh in-memory index per crawl.
func MemoryStores(ctx context.Context, model string, dim int) (vectorstore.Store, error) {
	return vectorstore.NewIndex(model), nil
}

// Deps are the collaborators of a Session. Splitter, NewStore and Storage
// are optional.
type Deps struct {
	Router   *datasource.Router
	Splitter document.Splitter
	Embedder embedding.Embedder
	Answerer *qa.Answerer
	Memory   *chathistory.Memory
	Storage  storage.DataStore
	NewStore StoreFactory
}

// Session owns one crawled site, its index and its conversation. Every
// operation holds the session lock, so requests on a session run one at a
// time.
type Session struct {
	id   string
	deps Deps
	opts *Options
	log  *slog.Logger

	mu        sync.Mutex
	store     vectorstore.Store
	retriever *vectorstore.Retriever
}

// CrawlResult summarizes an indexed page.
type CrawlResult struct {
	URL       string
	Title     string
	Mode      datasource.Mode
	Chars     int
	Chunks    int
	Model     string
	Dimension int
	Elapsed   time.Duration
}

// Answer is the reply to one question.
type Answer struct {
	Question string
	Text     string
	Sources  []vectorstore.Result
	// Fallback is set when the site did not contain the answer.
	Fallback bool
}

// Info describes the current state of a session.
type Info struct {
	ID        string
	Indexed   bool
	Source    string
	Title     string
	Chunks    int
	Model     string
	Dimension int
	CreatedAt time.Time
	History   int
}

// New creates a session. An empty id gets a generated one.
func New(id string, deps Deps, opts ...Option) (*Session, error) {
	options := defaultOptions()
	for _, opt := range opts {
		opt(options)
	}

	switch {
	case deps.Router == nil:
		return nil, errors.New("kb: extractor router is required")
	case deps.Embedder == nil:
		return nil, errors.New("kb: embedder is required")
	case deps.Answerer == nil:
		return nil, errors.New("kb: answerer is required")
	case deps.Memory == nil:
		return nil, errors.New("kb: history memory is required")
	}
	if deps.Splitter == nil {
		deps.Splitter = document.NewDefaultSplitter()
	}
	if deps.NewStore == nil {
		deps.NewStore = MemoryStores
	}
	if options.IndexKey == "" {
		options.IndexKey = DefaultIndexKey
	}
	if id == "" {
		id = deps.Memory.NewConversationID()
	}

	logger := options.Logger
	if logger == nil {
		logger = slog.Default()
	}

	return &Session{
		id:   id,
		deps: deps,
		opts: options,
		log:  logger.With("session", id),
	}, nil
}

func (s *Session) ID() string {
	return s.id
}

// Crawl replaces the session's index with the content of url. The previous
// index and history are discarded first, so a failed crawl leaves the
// session empty.
func (s *Session) Crawl(ctx context.Context, url string, renderJS bool) (*CrawlResult, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	start := time.Now()
	if err := s.resetLocked(ctx); err != nil {
		return nil, err
	}

	doc, err := s.deps.Router.Extract(ctx, url, renderJS)
	if err != nil {
		return nil, s.fail(stageError(StageExtract, err))
	}
	s.log.Info("page extracted", "url", doc.URL, "mode", doc.Mode, "chars", doc.Len())

	chunks, err := s.deps.Splitter.Split(doc.Text)
	if err != nil {
		return nil, s.fail(stageError(StageChunk, err))
	}
	if len(chunks) == 0 {
		return nil, s.fail(stageError(StageChunk, fmt.Errorf("no content to index at %s", doc.URL)))
	}

	vectors, err := s.deps.Embedder.EmbedDocuments(ctx, document.Texts(chunks))
	if err != nil {
		return nil, s.fail(stageError(StageEmbed, err))
	}

	model, dim := s.deps.Embedder.ModelID(), s.deps.Embedder.Dimensions()
	store, err := s.deps.NewStore(ctx, model, dim)
	if err != nil {
		return nil, s.fail(stageError(StageIndex, err))
	}
	meta := vectorstore.Metadata{Model: model, Source: doc.URL, Title: doc.Title}
	if err := store.Build(ctx, meta, chunks, vectors); err != nil {
		if rerr := releaseStore(ctx, store); rerr != nil {
			s.log.Warn("release of unbuilt store failed", "error", rerr)
		}
		return nil, s.fail(stageError(StageIndex, err))
	}

	s.setStoreLocked(store)
	meta = store.Metadata()

	result := &CrawlResult{
		URL:       doc.URL,
		Title:     doc.Title,
		Mode:      doc.Mode,
		Chars:     doc.Len(),
		Chunks:    len(chunks),
		Model:     meta.Model,
		Dimension: meta.Dimension,
		Elapsed:   time.Since(start),
	}
	s.log.Info("site indexed",
		"url", result.URL,
		"chunks", result.Chunks,
		"model", result.Model,
		"dimension", result.Dimension,
		"elapsed", result.Elapsed)
	return result, nil
}

// Ask answers question from the indexed site.
func (s *Session) Ask(ctx context.Context, question string) (*Answer, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	question = strings.TrimSpace(question)
	if s.retriever == nil {
		return nil, s.fail(stageError(StageRetrieve, vectorstore.NewNotIndexedError("session")))
	}

	results, err := s.retriever.RetrieveScored(ctx, question, s.opts.TopK)
	if err != nil {
		return nil, s.fail(stageError(StageRetrieve, err))
	}

	history, err := s.deps.Memory.Load(ctx, s.id)
	if err != nil {
		return nil, s.fail(stageError(StageHistory, err))
	}

	text, _, err := s.deps.Answerer.Answer(ctx, question, vectorstore.Chunks(results), history)
	if err != nil {
		return nil, s.fail(stageError(StageGenerate, err))
	}

	if _, err := s.deps.Memory.Record(ctx, s.id, question, text); err != nil {
		return nil, s.fail(stageError(StageHistory, err))
	}

	s.log.Info("question answered", "k", s.opts.TopK, "sources", len(results), "fallback", qa.IsFallback(text))
	return &Answer{
		Question: question,
		Text:     text,
		Sources:  results,
		Fallback: qa.IsFallback(text),
	}, nil
}

// SaveIndex writes the in-memory index to storage under key, or the
// default key when key is empty.
func (s *Session) SaveIndex(ctx context.Context, key string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if key == "" {
		key = s.opts.IndexKey
	}
	if s.deps.Storage == nil {
		return s.fail(stageError(StagePersist, errors.New("no index storage configured")))
	}
	if s.store == nil {
		return s.fail(stageError(StagePersist, vectorstore.NewNotIndexedError("session")))
	}
	ix, ok := s.store.(*vectorstore.Index)
	if !ok {
		return s.fail(stageError(StagePersist, fmt.Errorf("%T indexes persist on their own", s.store)))
	}

	if err := vectorstore.Save(ctx, s.deps.Storage, key, ix); err != nil {
		return s.fail(stageError(StagePersist, err))
	}
	s.log.Info("index saved", "key", key, "chunks", ix.Metadata().Count)
	return nil
}

// LoadIndex replaces the session's index with one saved under key and
// clears the conversation. The saved index must come from the session's
// embedding model.
func (s *Session) LoadIndex(ctx context.Context, key string) (*Info, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if key == "" {
		key = s.opts.IndexKey
	}
	if s.deps.Storage == nil {
		return nil, s.fail(stageError(StagePersist, errors.New("no index storage configured")))
	}

	ix, err := vectorstore.Load(ctx, s.deps.Storage, key, s.deps.Embedder.ModelID(), s.deps.Embedder.Dimensions())
	if err != nil {
		return nil, s.fail(stageError(StagePersist, err))
	}

	if err := s.resetLocked(ctx); err != nil {
		return nil, err
	}
	meta := ix.Metadata()
	s.setStoreLocked(ix)
	s.log.Info("index loaded", "key", key, "source", meta.Source, "chunks", meta.Count)

	info := s.infoLocked(ctx)
	return &info, nil
}

// ClearHistory forgets the conversation but keeps the index.
func (s *Session) ClearHistory(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.deps.Memory.Clear(ctx, s.id); err != nil {
		return s.fail(stageError(StageHistory, err))
	}
	return nil
}

// Reset discards the index and the conversation.
func (s *Session) Reset(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.resetLocked(ctx)
}

func (s *Session) Info(ctx context.Context) Info {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.infoLocked(ctx)
}

// Close ends the session, dropping its index and conversation and
// releasing the connections its store holds.
func (s *Session) Close(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	err := s.releaseLocked(ctx)
	if cerr := s.deps.Memory.Clear(ctx, s.id); cerr != nil {
		err = errors.Join(err, stageError(StageHistory, cerr))
	}
	return err
}

func (s *Session) infoLocked(ctx context.Context) Info {
	info := Info{ID: s.id}
	if h, err := s.deps.Memory.Load(ctx, s.id); err == nil {
		info.History = h.Len()
	}
	if s.store == nil {
		return info
	}

	meta := s.store.Metadata()
	info.Indexed = true
	info.Source = meta.Source
	info.Title = meta.Title
	info.Chunks = meta.Count
	info.Model = meta.Model
	info.Dimension = meta.Dimension
	info.CreatedAt = meta.CreatedAt
	return info
}

func (s *Session) setStoreLocked(store vectorstore.Store) {
	s.store = store
	s.retriever = vectorstore.NewRetriever(store, s.deps.Embedder,
		vectorstore.WithTopK(s.opts.TopK),
		vectorstore.WithScoreThreshold(s.opts.ScoreThreshold))
}

func (s *Session) resetLocked(ctx context.Context) error {
	if err := s.releaseLocked(ctx); err != nil {
		s.log.Warn("previous index not released", "error", err)
	}
	if err := s.deps.Memory.Clear(ctx, s.id); err != nil {
		return s.fail(stageError(StageHistory, err))
	}
	return nil
}

// releaseLocked forgets the current store and frees what it holds.
func (s *Session) releaseLocked(ctx context.Context) error {
	store := s.store
	s.store = nil
	s.retriever = nil
	if store == nil {
		return nil
	}
	if err := releaseStore(ctx, store); err != nil {
		return stageError(StageIndex, err)
	}
	return nil
}

func releaseStore(ctx context.Context, store vectorstore.Store) error {
	var errs []error
	if d, ok := store.(vectorstore.Dropper); ok {
		if err := d.Drop(ctx); err != nil {
			errs = append(errs, err)
		}
	}
	if c, ok := store.(io.Closer); ok {
		if err := c.Close(); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

func (s *Session) fail(err error) error {
	stage, _ := StageOf(err)
	s.log.Error("session operation failed", "stage", stage, "error", err)
	return err
}
