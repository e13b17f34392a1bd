package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func clearEnv(t *testing.T) {
	for _, key := range []string{
		"OPENAI_API_KEY", "OPENAI_BASE_URL", "SPEECH_API_KEY", "PORT", "LOG_LEVEL",
		"VECTOR_STORE", "QDRANT_HOST", "QDRANT_PORT", "QDRANT_API_KEY", "DATABASE_URL",
		"WEAVIATE_CLUSTER_URL", "WEAVIATE_API_KEY", "SESSION_STORE", "REDIS_URL",
		"OTEL_ENABLED", "OTEL_EXPORTER_OTLP_ENDPOINT",
	} {
		t.Setenv(key, "")
	}
}

func TestLoad_MissingFileUsesDefaults(t *testing.T) {
	clearEnv(t)

	cfg, err := Load(filepath.Join(t.TempDir(), "missing.yaml"))
	require.NoError(t, err)

	assert.Equal(t, "qdrant", cfg.VectorStore.Type)
	assert.Equal(t, "medical_documents", cfg.VectorStore.Collection)
	assert.Equal(t, 6334, cfg.VectorStore.Qdrant.Port)
	assert.Equal(t, "gpt-3.5-turbo", cfg.Consult.Model)
	assert.Equal(t, 400, cfg.Consult.SummaryTokens)
	assert.Equal(t, 200, cfg.Consult.FollowUpTokens)
	assert.Equal(t, 500, cfg.Consult.TreatmentTokens)
	assert.InDelta(t, 0.7, cfg.Consult.Temperature, 1e-9)
	assert.Equal(t, "memory", cfg.Session.Store)
	assert.False(t, cfg.Tracing.Enabled)
	assert.Equal(t, "mediscan", cfg.Tracing.ServiceName)
}

func TestLoad_TracingFromEnv(t *testing.T) {
	clearEnv(t)
	t.Setenv("OTEL_ENABLED", "true")
	t.Setenv("OTEL_EXPORTER_OTLP_ENDPOINT", "jaeger:4318")

	cfg, err := Load("")
	require.NoError(t, err)
	assert.True(t, cfg.Tracing.Enabled)
	assert.Equal(t, "jaeger:4318", cfg.Tracing.Endpoint)
}

func TestLoad_FileThenEnvOverrides(t *testing.T) {
	clearEnv(t)

	path := filepath.Join(t.TempDir(), "mediscan.yaml")
	yaml := `
vector_store:
  type: sqlite
  collection: records
  sqlite:
    path: /tmp/records.db
consult:
  model: gpt-4o-mini
  summary_max_tokens: 800
speech:
  voice: alloy
`
	require.NoError(t, os.WriteFile(path, []byte(yaml), 0o644))

	t.Setenv("OPENAI_API_KEY", "sk-test")
	t.Setenv("QDRANT_PORT", "7000")

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "sqlite", cfg.VectorStore.Type)
	assert.Equal(t, "records", cfg.VectorStore.Collection)
	assert.Equal(t, "/tmp/records.db", cfg.VectorStore.SQLite.Path)
	assert.Equal(t, "gpt-4o-mini", cfg.Consult.Model)
	assert.Equal(t, 800, cfg.Consult.SummaryTokens)
	assert.Equal(t, 200, cfg.Consult.FollowUpTokens)
	assert.Equal(t, "alloy", cfg.Speech.Voice)
	assert.Equal(t, 7000, cfg.VectorStore.Qdrant.Port)
	assert.Equal(t, "sk-test", cfg.OpenAI.APIKey)
	assert.Equal(t, "sk-test", cfg.Speech.APIKey, "speech key falls back to the OpenAI key")
}

func TestLoad_ZeroTemperatureIsKept(t *testing.T) {
	clearEnv(t)

	path := filepath.Join(t.TempDir(), "mediscan.yaml")
	require.NoError(t, os.WriteFile(path, []byte("consult:\n  temperature: 0\n"), 0o644))

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Zero(t, cfg.Consult.Temperature)
	assert.Equal(t, 400, cfg.Consult.SummaryTokens)
}

func TestLoad_InvalidYAML(t *testing.T) {
	clearEnv(t)

	path := filepath.Join(t.TempDir(), "bad.yaml")
	require.NoError(t, os.WriteFile(path, []byte("vector_store: [unclosed"), 0o644))

	_, err := Load(path)
	assert.Error(t, err)
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr bool
	}{
		{"defaults", func(*Config) {}, false},
		{"unknown store", func(c *Config) { c.VectorStore.Type = "faiss" }, true},
		{"pgvector without dsn", func(c *Config) { c.VectorStore.Type = "pgvector" }, true},
		{"pgvector with dsn", func(c *Config) {
			c.VectorStore.Type = "pgvector"
			c.VectorStore.Postgres.DSN = "postgres://localhost/mediscan"
		}, false},
		{"weaviate without host", func(c *Config) { c.VectorStore.Type = "weaviate" }, true},
		{"redis without url", func(c *Config) { c.Session.Store = "redis" }, true},
		{"unknown ocr", func(c *Config) { c.OCR.Engine = "magic" }, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Default()
			tt.mutate(cfg)
			err := cfg.Validate()
			if tt.wantErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}
