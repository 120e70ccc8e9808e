package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"

	"github.com/Abraxas-365/siteqa/adapters/anthropic"
	"github.com/Abraxas-365/siteqa/adapters/aws/bedrock"
	s3storage "github.com/Abraxas-365/siteqa/adapters/aws/s3/s3storage"
	"github.com/Abraxas-365/siteqa/adapters/gemini"
	"github.com/Abraxas-365/siteqa/adapters/hashembed"
	"github.com/Abraxas-365/siteqa/adapters/inmemory"
	"github.com/Abraxas-365/siteqa/adapters/local/fsstore"
	"github.com/Abraxas-365/siteqa/adapters/ollama"
	"github.com/Abraxas-365/siteqa/adapters/openai"
	"github.com/Abraxas-365/siteqa/adapters/pgvectore"
	pgmemory "github.com/Abraxas-365/siteqa/adapters/postgres"
	"github.com/Abraxas-365/siteqa/adapters/qdrant"
	redisstore "github.com/Abraxas-365/siteqa/adapters/redis"
	"github.com/Abraxas-365/siteqa/adapters/web/rendersource"
	"github.com/Abraxas-365/siteqa/adapters/web/websource"
	"github.com/Abraxas-365/siteqa/chathistory"
	"github.com/Abraxas-365/siteqa/config"
	"github.com/Abraxas-365/siteqa/datasource"
	"github.com/Abraxas-365/siteqa/document"
	"github.com/Abraxas-365/siteqa/embedding"
	"github.com/Abraxas-365/siteqa/kb"
	"github.com/Abraxas-365/siteqa/llm"
	"github.com/Abraxas-365/siteqa/qa"
	"github.com/Abraxas-365/siteqa/storage"
	"github.com/Abraxas-365/siteqa/vectorstore"
	"github.com/anthropics/anthropic-sdk-go/option"
	"github.com/redis/go-redis/v9"
)

// app holds the components shared by every session of one process.
type app struct {
	cfg *config.Config
	log *slog.Logger

	router   *datasource.Router
	splitter document.Splitter
	embedder embedding.Embedder
	answerer *qa.Answerer
	memory   *chathistory.Memory
	storage  storage.DataStore

	mu      sync.Mutex
	closers []func() error
}

func newApp(ctx context.Context, cfg *config.Config, log *slog.Logger) (*app, error) {
	a := &app{cfg: cfg, log: log}

	splitter, err := document.NewCharacterSplitter(cfg.Chunk.Size, cfg.Chunk.Overlap)
	if err != nil {
		return nil, err
	}
	a.splitter = splitter
	a.router = buildRouter(cfg)

	if a.embedder, err = buildEmbedder(cfg.Embedding); err != nil {
		return nil, err
	}

	model, err := buildLLM(ctx, cfg.LLM)
	if err != nil {
		return nil, err
	}
	a.answerer = qa.NewAnswerer(model,
		qa.WithContextTokens(cfg.LLM.ContextTokens),
		qa.WithTokenCounter(buildCounter(cfg.LLM, log)),
		qa.WithUncertaintyMarkers(cfg.LLM.UncertaintyMarkers),
		qa.WithChatOptions(
			llm.WithTemperature(cfg.LLM.Temperature),
			llm.WithMaxTokens(cfg.LLM.MaxTokens),
		),
	)

	repo, err := a.buildHistory(ctx)
	if err != nil {
		a.Close()
		return nil, err
	}
	a.memory = chathistory.NewMemory(repo, chathistory.WithWindow(cfg.History.Window))

	if a.storage, err = buildStorage(ctx, cfg.Index); err != nil {
		a.Close()
		return nil, err
	}

	log.Debug("components ready",
		"embedding", a.embedder.ModelID(),
		"llm", cfg.LLM.Provider,
		"index", cfg.Index.Backend,
		"history", cfg.History.Backend)
	return a, nil
}

func (a *app) onClose(fn func() error) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.closers = append(a.closers, fn)
}

// Close releases connections in reverse order of creation.
func (a *app) Close() error {
	a.mu.Lock()
	closers := a.closers
	a.closers = nil
	a.mu.Unlock()

	var errs []error
	for i := len(closers) - 1; i >= 0; i-- {
		if err := closers[i](); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

func (a *app) newSession(ctx context.Context, id string) (*kb.Session, error) {
	if id == "" {
		id = a.memory.NewConversationID()
	}
	return kb.New(id, kb.Deps{
		Router:   a.router,
		Splitter: a.splitter,
		Embedder: a.embedder,
		Answerer: a.answerer,
		Memory:   a.memory,
		Storage:  a.storage,
		NewStore: a.storeFactory(id),
	},
		kb.WithTopK(a.cfg.Retrieval.TopK),
		kb.WithScoreThreshold(a.cfg.Retrieval.ScoreThreshold),
		kb.WithIndexKey(a.cfg.Index.Key),
		kb.WithLogger(a.log),
	)
}

// storeName gives each session its own table or collection.
func storeName(base, sessionID string) string {
	id := strings.NewReplacer("-", "_", ".", "_").Replace(sessionID)
	if len(id) > 12 {
		id = id[:12]
	}
	return base + "_" + id
}

func (a *app) storeFactory(sessionID string) kb.StoreFactory {
	ic := a.cfg.Index
	switch ic.Backend {
	case "pgvector":
		return func(ctx context.Context, model string, dim int) (vectorstore.Store, error) {
			store, err := pgvectore.NewPGVectorStore(ctx, ic.PostgresURL, pgvectore.Options{
				TableName: storeName(ic.Table, sessionID),
				Dimension: dim,
			})
			if err != nil {
				return nil, err
			}
			if err := store.InitDB(ctx, true); err != nil {
				store.Close()
				return nil, err
			}
			return store, nil
		}
	case "qdrant":
		return func(ctx context.Context, model string, dim int) (vectorstore.Store, error) {
			store, err := qdrant.NewQdrantStore(ic.QdrantAddr, storeName(ic.Collection, sessionID))
			if err != nil {
				return nil, err
			}
			return store, nil
		}
	}
	return kb.MemoryStores
}

func buildRouter(cfg *config.Config) *datasource.Router {
	ec := cfg.Extract
	static := websource.NewWebSource(
		datasource.WithTimeout(ec.Timeout.Duration),
		datasource.WithMinStaticLength(ec.MinStaticLength),
	)
	rendered := rendersource.New(
		rendersource.WithTimeout(ec.RenderTimeout.Duration),
		rendersource.WithScrolls(ec.Scrolls, rendersource.DefaultScrollDelay),
		rendersource.WithChromePath(ec.ChromePath),
	)
	return datasource.NewRouter(static, rendered, datasource.WithMinTextLength(ec.MinTextLength))
}

func buildEmbedder(ec config.EmbeddingConfig) (embedding.Embedder, error) {
	switch ec.Provider {
	case "hash":
		return hashembed.New(ec.Dimensions)
	case "ollama":
		var opts []embedding.Option
		if ec.BaseURL != "" {
			opts = append(opts, embedding.WithBaseURL(ec.BaseURL))
		}
		// dimensions only apply to a model other than the default
		if ec.Model != "" {
			opts = append(opts, embedding.WithModel(ec.Model), embedding.WithDimensions(ec.Dimensions))
		}
		return ollama.NewOllamaEmbedder(opts...), nil
	case "openai":
		if ec.APIKey == "" {
			return nil, &config.Error{Field: "embedding.api_key", Message: "OPENAI_API_KEY is required for openai embeddings"}
		}
		var opts []embedding.Option
		if ec.Model != "" {
			opts = append(opts, embedding.WithModel(ec.Model))
		}
		if ec.BaseURL != "" {
			opts = append(opts, embedding.WithBaseURL(ec.BaseURL))
		}
		return openai.NewOpenAIEmbedder(ec.APIKey, opts...), nil
	}
	return nil, &config.Error{Field: "embedding.provider", Message: fmt.Sprintf("unknown provider %q", ec.Provider)}
}

func buildLLM(ctx context.Context, lc config.LLMConfig) (llm.LLM, error) {
	needKey := func() error {
		if lc.APIKey == "" {
			return &config.Error{Field: "llm.api_key", Message: fmt.Sprintf("an API key is required for %s", lc.Provider)}
		}
		return nil
	}

	switch lc.Provider {
	case "groq":
		if err := needKey(); err != nil {
			return nil, err
		}
		if lc.BaseURL != "" {
			model := lc.Model
			if model == "" {
				model = openai.GroqDefaultModel
			}
			return openai.NewOpenAILLM(lc.APIKey, model, openai.WithBaseURL(lc.BaseURL)), nil
		}
		return openai.NewGroqLLM(lc.APIKey, lc.Model), nil
	case "openai":
		if err := needKey(); err != nil {
			return nil, err
		}
		return openai.NewOpenAILLM(lc.APIKey, lc.Model, openai.WithBaseURL(lc.BaseURL)), nil
	case "anthropic":
		if err := needKey(); err != nil {
			return nil, err
		}
		var opts []option.RequestOption
		if lc.BaseURL != "" {
			opts = append(opts, option.WithBaseURL(lc.BaseURL))
		}
		return anthropic.NewAnthropicLLM(lc.APIKey, lc.Model, opts...), nil
	case "gemini":
		if err := needKey(); err != nil {
			return nil, err
		}
		return gemini.NewGeminiLLM(ctx, lc.APIKey, lc.Model)
	case "bedrock":
		model := bedrock.LLMModelID(lc.Model)
		if model == "" {
			model = bedrock.Claude3Haiku
		}
		return bedrock.NewFromConfig(ctx, lc.Region, model)
	}
	return nil, &config.Error{Field: "llm.provider", Message: fmt.Sprintf("unknown provider %q", lc.Provider)}
}

// buildCounter prefers the tokenizer of the model and falls back to an
// estimate when its encoding cannot be loaded.
func buildCounter(lc config.LLMConfig, log *slog.Logger) document.TokenCounter {
	if lc.Tokenizer == "approx" {
		return document.ApproxCounter{}
	}
	counter, err := document.NewTiktokenCounter(lc.Model)
	if err != nil {
		log.Warn("using approximate token counts", "model", lc.Model, "error", err)
		return document.ApproxCounter{}
	}
	return counter
}

func buildStorage(ctx context.Context, ic config.IndexConfig) (storage.DataStore, error) {
	if ic.Storage == "s3" {
		return s3storage.NewFromConfig(ctx, ic.Bucket, ic.Prefix)
	}
	return fsstore.New(ic.Dir)
}

func (a *app) buildHistory(ctx context.Context) (chathistory.Repository, error) {
	hc := a.cfg.History
	switch hc.Backend {
	case "redis":
		opts, err := redis.ParseURL(hc.RedisURL)
		if err != nil {
			return nil, &config.Error{Field: "history.redis_url", Message: "invalid URL", Err: err}
		}
		client := redis.NewClient(opts)
		a.onClose(client.Close)
		if err := client.Ping(ctx).Err(); err != nil {
			return nil, fmt.Errorf("connect to redis: %w", err)
		}
		return redisstore.NewHistoryRepository(client, hc.TTL.Duration), nil
	case "postgres":
		db, err := pgmemory.Open(hc.PostgresURL)
		if err != nil {
			return nil, err
		}
		a.onClose(db.Close)
		repo, err := pgmemory.NewPostgresRepository(db)
		if err != nil {
			return nil, err
		}
		if err := repo.InitSchema(ctx); err != nil {
			return nil, err
		}
		return repo, nil
	}
	return inmemory.NewInMemoryRepository(), nil
}
