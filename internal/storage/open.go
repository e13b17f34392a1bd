package storage

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/bull/mediscan/internal/config"
)

// Open builds the vector store selected by cfg.Type.
func Open(ctx context.Context, cfg config.VectorStoreConfig, logger *slog.Logger) (VectorStore, error) {
	if logger == nil {
		logger = slog.Default()
	}
	collection := cfg.Collection
	if collection == "" {
		collection = DefaultCollection
	}

	var (
		store VectorStore
		err   error
	)
	switch cfg.Type {
	case "memory":
		store = NewMemoryStore()
	case "qdrant", "":
		store, err = NewQdrantStorage(QdrantConfig{
			Host:       cfg.Qdrant.Host,
			Port:       cfg.Qdrant.Port,
			APIKey:     cfg.Qdrant.APIKey,
			UseTLS:     cfg.Qdrant.UseTLS,
			Collection: collection,
		})
	case "sqlite":
		store, err = NewSQLiteStore(cfg.SQLite.Path, collection)
	case "pgvector":
		store, err = NewPGVectorStore(ctx, cfg.Postgres.DSN, collection)
	case "weaviate":
		store, err = NewWeaviateStore(ctx, WeaviateConfig{
			Host:       cfg.Weaviate.Host,
			Scheme:     cfg.Weaviate.Scheme,
			APIKey:     cfg.Weaviate.APIKey,
			Collection: collection,
		})
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownStore, cfg.Type)
	}
	if err != nil {
		return nil, fmt.Errorf("open %s vector store: %w", cfg.Type, err)
	}

	logger.Info("vector store ready", "type", cfg.Type, "collection", collection)
	return store, nil
}
