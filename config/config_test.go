package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func envMap(m map[string]string) func(string) (string, bool) {
	return func(k string) (string, bool) {
		v, ok := m[k]
		return v, ok
	}
}

func TestDefault(t *testing.T) {
	cfg := Default()
	require.NoError(t, cfg.Validate())

	assert.Equal(t, 1000, cfg.Chunk.Size)
	assert.Equal(t, 200, cfg.Chunk.Overlap)
	assert.Equal(t, 4, cfg.Retrieval.TopK)
	assert.Equal(t, 5, cfg.History.Window)
	assert.Equal(t, 15*time.Second, cfg.Extract.Timeout.Duration)
	assert.Equal(t, "saved_index", cfg.Index.Key)
}

func TestLoad_File(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "siteqa.toml")
	require.NoError(t, os.WriteFile(path, []byte(`
[chunk]
size = 500
overlap = 50

[extract]
timeout = "5s"

[llm]
provider = "anthropic"
model = "claude-3-5-haiku-latest"

[history]
backend = "redis"
redis_url = "redis://localhost:6379/0"
ttl = "1h"
`), 0o644))

	t.Setenv("ANTHROPIC_API_KEY", "sk-test")
	t.Setenv("SITEQA_TOP_K", "6")

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, 500, cfg.Chunk.Size)
	assert.Equal(t, 50, cfg.Chunk.Overlap)
	assert.Equal(t, 5*time.Second, cfg.Extract.Timeout.Duration)
	assert.Equal(t, "anthropic", cfg.LLM.Provider)
	assert.Equal(t, "sk-test", cfg.LLM.APIKey)
	assert.Equal(t, 6, cfg.Retrieval.TopK)
	assert.Equal(t, time.Hour, cfg.History.TTL.Duration)
	// untouched sections keep their defaults
	assert.Equal(t, 45*time.Second, cfg.Extract.RenderTimeout.Duration)
}

func TestLoad_MissingExplicitFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "nope.toml"))
	require.Error(t, err)
	assert.True(t, IsConfigError(err))
}

func TestLoad_InvalidTOML(t *testing.T) {
	path := filepath.Join(t.TempDir(), "bad.toml")
	require.NoError(t, os.WriteFile(path, []byte("[chunk\nsize = "), 0o644))

	_, err := Load(path)
	require.Error(t, err)
	assert.True(t, IsConfigError(err))
}

func TestLoad_EnvFile(t *testing.T) {
	dir := t.TempDir()
	envPath := filepath.Join(dir, ".env")
	require.NoError(t, os.WriteFile(envPath, []byte("SITEQA_CHUNK_SIZE=800\n"), 0o644))
	// godotenv.Load sets process variables; register cleanup through Setenv.
	t.Setenv("SITEQA_CHUNK_SIZE", "")
	require.NoError(t, os.Unsetenv("SITEQA_CHUNK_SIZE"))

	cfgPath := filepath.Join(dir, "siteqa.toml")
	require.NoError(t, os.WriteFile(cfgPath, nil, 0o644))

	cfg, err := Load(cfgPath, envPath, filepath.Join(dir, "missing.env"))
	require.NoError(t, err)
	assert.Equal(t, 800, cfg.Chunk.Size)
}

func TestApplyEnv(t *testing.T) {
	cfg := Default()
	err := cfg.ApplyEnv(envMap(map[string]string{
		"SITEQA_LLM_PROVIDER":    "gemini",
		"GEMINI_API_KEY":         "g-key",
		"GROQ_API_KEY":           "ignored",
		"SITEQA_SCORE_THRESHOLD": "0.25",
		"DATABASE_URL":           "postgres://db/siteqa",
		"SITEQA_INDEX_BACKEND":   "pgvector",
	}))
	require.NoError(t, err)

	assert.Equal(t, "gemini", cfg.LLM.Provider)
	assert.Equal(t, "g-key", cfg.LLM.APIKey)
	assert.InDelta(t, 0.25, cfg.Retrieval.ScoreThreshold, 1e-6)
	assert.Equal(t, "postgres://db/siteqa", cfg.Index.PostgresURL)
	assert.Equal(t, "postgres://db/siteqa", cfg.History.PostgresURL)
	require.NoError(t, cfg.Validate())
}

func TestApplyEnv_ExplicitKeyWins(t *testing.T) {
	cfg := Default()
	require.NoError(t, cfg.ApplyEnv(envMap(map[string]string{
		"SITEQA_LLM_API_KEY": "explicit",
		"GROQ_API_KEY":       "provider",
	})))
	assert.Equal(t, "explicit", cfg.LLM.APIKey)
}

func TestApplyEnv_BadNumbers(t *testing.T) {
	cfg := Default()
	err := cfg.ApplyEnv(envMap(map[string]string{
		"SITEQA_CHUNK_SIZE":      "big",
		"SITEQA_SCORE_THRESHOLD": "high",
	}))
	require.Error(t, err)
	assert.True(t, IsConfigError(err))
	assert.Contains(t, err.Error(), "SITEQA_CHUNK_SIZE")
	assert.Contains(t, err.Error(), "SITEQA_SCORE_THRESHOLD")
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name  string
		edit  func(*Config)
		field string
	}{
		{"zero chunk size", func(c *Config) { c.Chunk.Size = 0 }, "chunk.size"},
		{"negative overlap", func(c *Config) { c.Chunk.Overlap = -1 }, "chunk.overlap"},
		{"overlap not below size", func(c *Config) { c.Chunk.Overlap = 1000 }, "chunk.overlap"},
		{"zero top k", func(c *Config) { c.Retrieval.TopK = 0 }, "retrieval.top_k"},
		{"zero window", func(c *Config) { c.History.Window = 0 }, "history.window"},
		{"window above five", func(c *Config) { c.History.Window = 10 }, "history.window"},
		{"unknown llm", func(c *Config) { c.LLM.Provider = "mystery" }, "llm.provider"},
		{"unknown embedder", func(c *Config) { c.Embedding.Provider = "mystery" }, "embedding.provider"},
		{"pgvector without url", func(c *Config) { c.Index.Backend = "pgvector" }, "index.postgres_url"},
		{"s3 without bucket", func(c *Config) { c.Index.Storage = "s3" }, "index.bucket"},
		{"redis without url", func(c *Config) { c.History.Backend = "redis" }, "history.redis_url"},
		{"postgres without url", func(c *Config) { c.History.Backend = "postgres" }, "history.postgres_url"},
		{"unknown log format", func(c *Config) { c.Log.Format = "xml" }, "log.format"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Default()
			tt.edit(cfg)
			err := cfg.Validate()
			require.Error(t, err)
			assert.True(t, IsConfigError(err))
			assert.Contains(t, err.Error(), tt.field)
		})
	}
}
