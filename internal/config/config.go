// Package config loads MediScan configuration from a YAML file and the environment.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// Config is the root configuration structure.
type Config struct {
	Server      ServerConfig      `yaml:"server"`
	Log         LogConfig         `yaml:"log"`
	OpenAI      OpenAIConfig      `yaml:"openai"`
	Embedding   EmbeddingConfig   `yaml:"embedding"`
	VectorStore VectorStoreConfig `yaml:"vector_store"`
	Consult     ConsultConfig     `yaml:"consult"`
	OCR         OCRConfig         `yaml:"ocr"`
	Speech      SpeechConfig      `yaml:"speech"`
	Session     SessionConfig     `yaml:"session"`
	Tracing     TracingConfig     `yaml:"tracing"`
}

// ServerConfig configures the HTTP server.
type ServerConfig struct {
	Port           string `yaml:"port"`
	BodyLimitMB    int    `yaml:"body_limit_mb"`
	RequestTimeout int    `yaml:"request_timeout_secs"` // 0 disables the per-request timeout
	AllowOrigins   string `yaml:"allow_origins"`
}

// LogConfig configures structured logging.
type LogConfig struct {
	Level  string `yaml:"level"`  // debug | info | warn | error
	Format string `yaml:"format"` // text | json
	File   string `yaml:"file"`   // optional rotating log file
}

// OpenAIConfig holds the hosted model provider connection. The API key is env-only.
type OpenAIConfig struct {
	BaseURL string `yaml:"base_url"`
	APIKey  string `yaml:"-"`
}

// EmbeddingConfig configures the embedding model.
type EmbeddingConfig struct {
	Model     string `yaml:"model"`
	BaseURL   string `yaml:"base_url"` // OpenAI-compatible local server, overrides openai.base_url
	BatchSize int    `yaml:"batch_size"`
}

// VectorStoreConfig selects and configures the vector store backend.
type VectorStoreConfig struct {
	Type       string         `yaml:"type"` // memory | qdrant | sqlite | pgvector | weaviate
	Collection string         `yaml:"collection"`
	Qdrant     QdrantConfig   `yaml:"qdrant"`
	SQLite     SQLiteConfig   `yaml:"sqlite"`
	Postgres   PostgresConfig `yaml:"postgres"`
	Weaviate   WeaviateConfig `yaml:"weaviate"`
}

// QdrantConfig contains connection details for Qdrant (gRPC).
type QdrantConfig struct {
	Host   string `yaml:"host"`
	Port   int    `yaml:"port"`
	UseTLS bool   `yaml:"use_tls"`
	APIKey string `yaml:"-"`
}

// SQLiteConfig points at the local vector database file.
type SQLiteConfig struct {
	Path string `yaml:"path"`
}

// PostgresConfig configures the pgvector backend. The DSN is env-only.
type PostgresConfig struct {
	DSN string `yaml:"-"`
}

// WeaviateConfig contains connection details for a Weaviate cluster.
type WeaviateConfig struct {
	Host   string `yaml:"host"`
	Scheme string `yaml:"scheme"`
	APIKey string `yaml:"-"`
}

// ConsultConfig configures the chat model used for consultations.
type ConsultConfig struct {
	Model            string  `yaml:"model"`
	Temperature      float64 `yaml:"temperature"`
	SummaryTokens    int     `yaml:"summary_max_tokens"`
	FollowUpTokens   int     `yaml:"followup_max_tokens"`
	TreatmentTokens  int     `yaml:"treatment_max_tokens"`
	MaxContextTokens int     `yaml:"max_context_tokens"`
}

// OCRConfig selects the image-to-text engine.
type OCRConfig struct {
	Engine   string `yaml:"engine"` // vision | tesseract
	Model    string `yaml:"model"`
	Language string `yaml:"language"`
}

// SpeechConfig configures text-to-speech.
type SpeechConfig struct {
	Model    string `yaml:"model"`
	Voice    string `yaml:"voice"`
	Dir      string `yaml:"dir"`
	FileName string `yaml:"file_name"`
	APIKey   string `yaml:"-"`
}

// SessionConfig configures the session store.
type SessionConfig struct {
	Store    string `yaml:"store"` // memory | redis
	TTLMins  int    `yaml:"ttl_minutes"`
	RedisURL string `yaml:"-"`
}

// TracingConfig configures OpenTelemetry export. Disabled unless OTEL_ENABLED=true.
type TracingConfig struct {
	Enabled     bool   `yaml:"enabled"`
	Endpoint    string `yaml:"endpoint"` // OTLP/HTTP host:port
	ServiceName string `yaml:"service_name"`
}

// TTL returns the session lifetime.
func (s SessionConfig) TTL() time.Duration {
	return time.Duration(s.TTLMins) * time.Minute
}

// Default returns the built-in configuration.
func Default() *Config {
	return &Config{
		Server: ServerConfig{Port: "8080", BodyLimitMB: 20, RequestTimeout: 120, AllowOrigins: "*"},
		Log:    LogConfig{Level: "info", Format: "text"},
		Embedding: EmbeddingConfig{
			Model:     "text-embedding-3-small",
			BatchSize: 500,
		},
		VectorStore: VectorStoreConfig{
			Type:       "qdrant",
			Collection: "medical_documents",
			Qdrant:     QdrantConfig{Host: "localhost", Port: 6334},
			SQLite:     SQLiteConfig{Path: filepath.Join(".mediscan", "vectors.db")},
			Weaviate:   WeaviateConfig{Scheme: "https"},
		},
		Consult: ConsultConfig{
			Model:            "gpt-3.5-turbo",
			Temperature:      0.7,
			SummaryTokens:    400,
			FollowUpTokens:   200,
			TreatmentTokens:  500,
			MaxContextTokens: 12000,
		},
		OCR:     OCRConfig{Engine: "vision", Model: "gpt-4o-mini", Language: "eng"},
		Speech:  SpeechConfig{Model: "tts-1", Voice: "nova", Dir: os.TempDir(), FileName: "treatment_suggestion.mp3"},
		Session: SessionConfig{Store: "memory", TTLMins: 60},
		Tracing: TracingConfig{Endpoint: "localhost:4318", ServiceName: "mediscan"},
	}
}

// Load reads the config file at path (missing file means defaults), then applies the
// environment. A .env file in the working directory is loaded first when present.
func Load(path string) (*Config, error) {
	_ = godotenv.Load()

	cfg := Default()
	if path != "" {
		data, err := os.ReadFile(path)
		switch {
		case errors.Is(err, os.ErrNotExist):
		case err != nil:
			return nil, fmt.Errorf("failed to read config file: %w", err)
		default:
			if err := yaml.Unmarshal(data, cfg); err != nil {
				return nil, fmt.Errorf("failed to parse config file: %w", err)
			}
		}
	}

	applyEnv(cfg)
	applyDefaults(cfg)

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate reports configuration that cannot work.
func (c *Config) Validate() error {
	switch c.VectorStore.Type {
	case "memory", "qdrant", "sqlite":
	case "pgvector":
		if c.VectorStore.Postgres.DSN == "" {
			return fmt.Errorf("vector_store pgvector requires DATABASE_URL")
		}
	case "weaviate":
		if c.VectorStore.Weaviate.Host == "" {
			return fmt.Errorf("vector_store weaviate requires a host")
		}
	default:
		return fmt.Errorf("unknown vector store: %s", c.VectorStore.Type)
	}

	switch c.Session.Store {
	case "memory":
	case "redis":
		if c.Session.RedisURL == "" {
			return fmt.Errorf("session store redis requires REDIS_URL")
		}
	default:
		return fmt.Errorf("unknown session store: %s", c.Session.Store)
	}

	switch c.OCR.Engine {
	case "vision", "tesseract":
	default:
		return fmt.Errorf("unknown ocr engine: %s", c.OCR.Engine)
	}
	return nil
}

func applyEnv(cfg *Config) {
	cfg.OpenAI.APIKey = os.Getenv("OPENAI_API_KEY")
	cfg.OpenAI.BaseURL = getEnv("OPENAI_BASE_URL", cfg.OpenAI.BaseURL)
	cfg.Speech.APIKey = getEnv("SPEECH_API_KEY", cfg.OpenAI.APIKey)

	cfg.Server.Port = getEnv("PORT", cfg.Server.Port)
	cfg.Log.Level = getEnv("LOG_LEVEL", cfg.Log.Level)

	cfg.VectorStore.Type = getEnv("VECTOR_STORE", cfg.VectorStore.Type)
	cfg.VectorStore.Qdrant.Host = getEnv("QDRANT_HOST", cfg.VectorStore.Qdrant.Host)
	cfg.VectorStore.Qdrant.Port = getEnvInt("QDRANT_PORT", cfg.VectorStore.Qdrant.Port)
	cfg.VectorStore.Qdrant.APIKey = os.Getenv("QDRANT_API_KEY")
	cfg.VectorStore.Postgres.DSN = os.Getenv("DATABASE_URL")
	cfg.VectorStore.Weaviate.Host = getEnv("WEAVIATE_CLUSTER_URL", cfg.VectorStore.Weaviate.Host)
	cfg.VectorStore.Weaviate.APIKey = os.Getenv("WEAVIATE_API_KEY")

	cfg.Session.Store = getEnv("SESSION_STORE", cfg.Session.Store)
	cfg.Session.RedisURL = os.Getenv("REDIS_URL")

	if v := os.Getenv("OTEL_ENABLED"); v != "" {
		cfg.Tracing.Enabled = v == "true"
	}
	cfg.Tracing.Endpoint = getEnv("OTEL_EXPORTER_OTLP_ENDPOINT", cfg.Tracing.Endpoint)
}

func applyDefaults(cfg *Config) {
	def := Default()
	if cfg.VectorStore.Collection == "" {
		cfg.VectorStore.Collection = def.VectorStore.Collection
	}
	if cfg.Embedding.Model == "" {
		cfg.Embedding.Model = def.Embedding.Model
	}
	if cfg.Consult.Model == "" {
		cfg.Consult.Model = def.Consult.Model
	}
	if cfg.Consult.SummaryTokens == 0 {
		cfg.Consult.SummaryTokens = def.Consult.SummaryTokens
	}
	if cfg.Consult.FollowUpTokens == 0 {
		cfg.Consult.FollowUpTokens = def.Consult.FollowUpTokens
	}
	if cfg.Consult.TreatmentTokens == 0 {
		cfg.Consult.TreatmentTokens = def.Consult.TreatmentTokens
	}
	if cfg.Speech.FileName == "" {
		cfg.Speech.FileName = def.Speech.FileName
	}
	if cfg.Speech.Dir == "" {
		cfg.Speech.Dir = def.Speech.Dir
	}
	if cfg.Tracing.ServiceName == "" {
		cfg.Tracing.ServiceName = def.Tracing.ServiceName
	}
	if cfg.Session.TTLMins <= 0 {
		cfg.Session.TTLMins = def.Session.TTLMins
	}
}

func getEnv(key, defaultValue string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	if v := os.Getenv(key); v != "" {
		if i, err := strconv.Atoi(v); err == nil {
			return i
		}
	}
	return defaultValue
}
