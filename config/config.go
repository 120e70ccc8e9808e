package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/pelletier/go-toml/v2"
)

// DefaultFile is read from the working directory when no path is given.
const DefaultFile = "siteqa.toml"

// MaxHistoryWindow bounds how many exchanges a conversation keeps.
const MaxHistoryWindow = 5

// Duration reads TOML strings such as "15s".
type Duration struct {
	time.Duration
}

func (d *Duration) UnmarshalText(text []byte) error {
	v, err := time.ParseDuration(string(text))
	if err != nil {
		return err
	}
	d.Duration = v
	return nil
}

func (d Duration) MarshalText() ([]byte, error) {
	return []byte(d.Duration.String()), nil
}

type Config struct {
	Chunk     ChunkConfig     `toml:"chunk"`
	Retrieval RetrievalConfig `toml:"retrieval"`
	Extract   ExtractConfig   `toml:"extract"`
	Embedding EmbeddingConfig `toml:"embedding"`
	LLM       LLMConfig       `toml:"llm"`
	Index     IndexConfig     `toml:"index"`
	History   HistoryConfig   `toml:"history"`
	Server    ServerConfig    `toml:"server"`
	Log       LogConfig       `toml:"log"`
}

type ChunkConfig struct {
	Size    int `toml:"size"`
	Overlap int `toml:"overlap"`
}

type RetrievalConfig struct {
	TopK           int     `toml:"top_k"`
	ScoreThreshold float32 `toml:"score_threshold"`
}

type ExtractConfig struct {
	Timeout         Duration `toml:"timeout"`
	RenderTimeout   Duration `toml:"render_timeout"`
	Scrolls         int      `toml:"scrolls"`
	ChromePath      string   `toml:"chrome_path"`
	MinStaticLength int      `toml:"min_static_length"`
	MinTextLength   int      `toml:"min_text_length"`
}

type EmbeddingConfig struct {
	Provider   string `toml:"provider"` // hash, ollama or openai
	Model      string `toml:"model"`
	Dimensions int    `toml:"dimensions"`
	BaseURL    string `toml:"base_url"`
	APIKey     string `toml:"api_key"`
}

type LLMConfig struct {
	Provider           string  `toml:"provider"` // groq, openai, anthropic, gemini or bedrock
	Model              string  `toml:"model"`
	APIKey             string  `toml:"api_key"`
	BaseURL            string  `toml:"base_url"`
	Region             string  `toml:"region"`
	Temperature        float32 `toml:"temperature"`
	MaxTokens          int     `toml:"max_tokens"`
	ContextTokens      int     `toml:"context_tokens"`
	Tokenizer          string  `toml:"tokenizer"` // tiktoken or approx
	UncertaintyMarkers bool    `toml:"uncertainty_markers"`
}

type IndexConfig struct {
	Backend     string `toml:"backend"` // memory, pgvector or qdrant
	Storage     string `toml:"storage"` // local or s3
	Dir         string `toml:"dir"`
	Bucket      string `toml:"bucket"`
	Prefix      string `toml:"prefix"`
	Key         string `toml:"key"`
	PostgresURL string `toml:"postgres_url"`
	Table       string `toml:"table"`
	QdrantAddr  string `toml:"qdrant_addr"`
	Collection  string `toml:"collection"`
}

type HistoryConfig struct {
	Backend     string   `toml:"backend"` // memory, redis or postgres
	Window      int      `toml:"window"`
	RedisURL    string   `toml:"redis_url"`
	PostgresURL string   `toml:"postgres_url"`
	TTL         Duration `toml:"ttl"`
}

type ServerConfig struct {
	Addr string `toml:"addr"`
}

type LogConfig struct {
	Level  string `toml:"level"`
	Format string `toml:"format"`
}

// Default returns the built-in configuration: local hashing embeddings, an
// in-memory index saved under ./data and Groq for generation.
func Default() *Config {
	return &Config{
		Chunk:     ChunkConfig{Size: 1000, Overlap: 200},
		Retrieval: RetrievalConfig{TopK: 4},
		Extract: ExtractConfig{
			Timeout:         Duration{15 * time.Second},
			RenderTimeout:   Duration{45 * time.Second},
			Scrolls:         3,
			MinStaticLength: 500,
			MinTextLength:   100,
		},
		Embedding: EmbeddingConfig{Provider: "hash", Dimensions: 384},
		LLM: LLMConfig{
			Provider:      "groq",
			Temperature:   0.1,
			MaxTokens:     1024,
			ContextTokens: 6000,
			Tokenizer:     "tiktoken",
		},
		Index: IndexConfig{
			Backend:    "memory",
			Storage:    "local",
			Dir:        "data",
			Key:        "saved_index",
			Table:      "siteqa_chunks",
			Collection: "siteqa_chunks",
		},
		History: HistoryConfig{Backend: "memory", Window: 5, TTL: Duration{24 * time.Hour}},
		Server:  ServerConfig{Addr: ":8080"},
		Log:     LogConfig{Level: "info", Format: "text"},
	}
}

// Load builds the configuration from defaults, the TOML file at path (or
// DefaultFile when present), the given .env files and the environment, in
// increasing precedence.
func Load(path string, envFiles ...string) (*Config, error) {
	cfg := Default()

	explicit := path != ""
	if !explicit {
		path = DefaultFile
	}
	data, err := os.ReadFile(path)
	switch {
	case err == nil:
		if err := toml.Unmarshal(data, cfg); err != nil {
			return nil, &Error{Field: path, Message: "invalid TOML", Err: err}
		}
	case explicit || !errors.Is(err, fs.ErrNotExist):
		return nil, &Error{Field: path, Message: "cannot read config file", Err: err}
	}

	for _, f := range envFiles {
		if err := godotenv.Load(f); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return nil, &Error{Field: f, Message: "cannot read env file", Err: err}
		}
	}

	if err := cfg.ApplyEnv(os.LookupEnv); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// ApplyEnv overrides fields from environment variables.
func (c *Config) ApplyEnv(lookup func(string) (string, bool)) error {
	str := func(dst *string, keys ...string) {
		for _, k := range keys {
			if v, ok := lookup(k); ok && v != "" {
				*dst = v
				return
			}
		}
	}
	var errs []error
	integer := func(dst *int, key string) {
		if v, ok := lookup(key); ok && v != "" {
			n, err := strconv.Atoi(v)
			if err != nil {
				errs = append(errs, &Error{Field: key, Message: "not an integer", Err: err})
				return
			}
			*dst = n
		}
	}
	float := func(dst *float32, key string) {
		if v, ok := lookup(key); ok && v != "" {
			f, err := strconv.ParseFloat(v, 32)
			if err != nil {
				errs = append(errs, &Error{Field: key, Message: "not a number", Err: err})
				return
			}
			*dst = float32(f)
		}
	}

	integer(&c.Chunk.Size, "SITEQA_CHUNK_SIZE")
	integer(&c.Chunk.Overlap, "SITEQA_CHUNK_OVERLAP")
	integer(&c.Retrieval.TopK, "SITEQA_TOP_K")
	float(&c.Retrieval.ScoreThreshold, "SITEQA_SCORE_THRESHOLD")

	str(&c.Extract.ChromePath, "SITEQA_CHROME_PATH")

	str(&c.Embedding.Provider, "SITEQA_EMBEDDING_PROVIDER")
	str(&c.Embedding.Model, "SITEQA_EMBEDDING_MODEL")
	integer(&c.Embedding.Dimensions, "SITEQA_EMBEDDING_DIMENSIONS")
	str(&c.Embedding.BaseURL, "SITEQA_EMBEDDING_BASE_URL", "OLLAMA_HOST")

	str(&c.LLM.Provider, "SITEQA_LLM_PROVIDER")
	str(&c.LLM.Model, "SITEQA_LLM_MODEL")
	str(&c.LLM.BaseURL, "SITEQA_LLM_BASE_URL")
	str(&c.LLM.APIKey, "SITEQA_LLM_API_KEY")
	str(&c.LLM.Region, "AWS_REGION")
	float(&c.LLM.Temperature, "SITEQA_LLM_TEMPERATURE")
	integer(&c.LLM.MaxTokens, "SITEQA_LLM_MAX_TOKENS")
	str(&c.LLM.Tokenizer, "SITEQA_TOKENIZER")

	str(&c.Index.Backend, "SITEQA_INDEX_BACKEND")
	str(&c.Index.Storage, "SITEQA_INDEX_STORAGE")
	str(&c.Index.Dir, "SITEQA_INDEX_DIR")
	str(&c.Index.Bucket, "SITEQA_S3_BUCKET")
	str(&c.Index.PostgresURL, "SITEQA_PGVECTOR_URL", "DATABASE_URL")
	str(&c.Index.QdrantAddr, "QDRANT_ADDR")

	str(&c.History.Backend, "SITEQA_HISTORY_BACKEND")
	integer(&c.History.Window, "SITEQA_HISTORY_WINDOW")
	str(&c.History.RedisURL, "REDIS_URL")
	str(&c.History.PostgresURL, "SITEQA_HISTORY_POSTGRES_URL", "DATABASE_URL")

	str(&c.Server.Addr, "SITEQA_ADDR")
	str(&c.Log.Level, "SITEQA_LOG_LEVEL")
	str(&c.Log.Format, "SITEQA_LOG_FORMAT")

	if c.LLM.APIKey == "" {
		if key := providerKeyVar(c.LLM.Provider); key != "" {
			str(&c.LLM.APIKey, key)
		}
	}
	if c.Embedding.APIKey == "" && c.Embedding.Provider == "openai" {
		str(&c.Embedding.APIKey, "OPENAI_API_KEY")
	}

	return errors.Join(errs...)
}

func providerKeyVar(provider string) string {
	switch provider {
	case "groq":
		return "GROQ_API_KEY"
	case "openai":
		return "OPENAI_API_KEY"
	case "anthropic":
		return "ANTHROPIC_API_KEY"
	case "gemini":
		return "GEMINI_API_KEY"
	}
	return ""
}

func oneOf(field, value string, allowed ...string) error {
	for _, a := range allowed {
		if value == a {
			return nil
		}
	}
	return &Error{Field: field, Message: fmt.Sprintf("unknown value %q, want one of %s", value, strings.Join(allowed, ", "))}
}

// Validate checks values that would otherwise fail deep inside a component.
func (c *Config) Validate() error {
	var errs []error
	add := func(err error) {
		if err != nil {
			errs = append(errs, err)
		}
	}

	switch {
	case c.Chunk.Size <= 0:
		add(&Error{Field: "chunk.size", Message: "must be positive"})
	case c.Chunk.Overlap < 0:
		add(&Error{Field: "chunk.overlap", Message: "must not be negative"})
	case c.Chunk.Overlap >= c.Chunk.Size:
		add(&Error{Field: "chunk.overlap", Message: fmt.Sprintf("must be less than chunk.size (%d >= %d)", c.Chunk.Overlap, c.Chunk.Size)})
	}
	if c.Retrieval.TopK <= 0 {
		add(&Error{Field: "retrieval.top_k", Message: "must be positive"})
	}
	switch {
	case c.History.Window <= 0:
		add(&Error{Field: "history.window", Message: "must be positive"})
	case c.History.Window > MaxHistoryWindow:
		add(&Error{Field: "history.window", Message: fmt.Sprintf("must be at most %d", MaxHistoryWindow)})
	}

	add(oneOf("embedding.provider", c.Embedding.Provider, "hash", "ollama", "openai"))
	add(oneOf("llm.provider", c.LLM.Provider, "groq", "openai", "anthropic", "gemini", "bedrock"))
	add(oneOf("llm.tokenizer", c.LLM.Tokenizer, "tiktoken", "approx"))
	add(oneOf("index.backend", c.Index.Backend, "memory", "pgvector", "qdrant"))
	add(oneOf("index.storage", c.Index.Storage, "local", "s3"))
	add(oneOf("history.backend", c.History.Backend, "memory", "redis", "postgres"))
	add(oneOf("log.format", c.Log.Format, "text", "json"))

	if c.Index.Backend == "pgvector" && c.Index.PostgresURL == "" {
		add(&Error{Field: "index.postgres_url", Message: "required for the pgvector backend"})
	}
	if c.Index.Storage == "s3" && c.Index.Bucket == "" {
		add(&Error{Field: "index.bucket", Message: "required for s3 storage"})
	}
	if c.History.Backend == "redis" && c.History.RedisURL == "" {
		add(&Error{Field: "history.redis_url", Message: "required for the redis backend"})
	}
	if c.History.Backend == "postgres" && c.History.PostgresURL == "" {
		add(&Error{Field: "history.postgres_url", Message: "required for the postgres backend"})
	}

	return errors.Join(errs...)
}
