// Package indexer stores document embeddings and retrieves the closest document for a query.
package indexer

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/bull/mediscan/internal/storage"
)

// ErrEmptyText is returned when there is nothing to embed.
var ErrEmptyText = errors.New("text is empty")

// Embedder turns text into vectors. Implemented by *embedding.Embedder.
type Embedder interface {
	Embed(ctx context.Context, text string) ([]float32, error)
}

// Indexer embeds documents and writes them to a vector store.
type Indexer struct {
	embedder Embedder
	store    storage.VectorStore
	logger   *slog.Logger
}

// New creates an Indexer over the given embedder and store.
func New(embedder Embedder, store storage.VectorStore, logger *slog.Logger) *Indexer {
	if logger == nil {
		logger = slog.Default()
	}
	return &Indexer{embedder: embedder, store: store, logger: logger}
}

// Index embeds text and stores it with metadata. The record ID is metadata["id"] when it is
// a non-empty string, which must be a UUID, otherwise a fresh UUID. The collection is created on first use with
// the dimension of the embedding. Returns the record ID.
func (ix *Indexer) Index(ctx context.Context, text string, metadata map[string]any) (string, error) {
	if strings.TrimSpace(text) == "" {
		return "", ErrEmptyText
	}

	id, _ := metadata["id"].(string)
	if id == "" {
		id = uuid.New().String()
	} else if _, err := uuid.Parse(id); err != nil {
		return "", fmt.Errorf("%w: %q", storage.ErrInvalidID, id)
	}

	vector, err := ix.embedder.Embed(ctx, text)
	if err != nil {
		return "", fmt.Errorf("embed: %w", err)
	}

	if err := ix.store.EnsureCollection(ctx, len(vector)); err != nil {
		return "", fmt.Errorf("ensure collection: %w", err)
	}

	meta := make(map[string]any, len(metadata)+1)
	for k, v := range metadata {
		meta[k] = v
	}
	meta["id"] = id
	if _, ok := meta["indexed_at"]; !ok {
		meta["indexed_at"] = time.Now().UTC().Format(time.RFC3339)
	}

	err = ix.store.Upsert(ctx, storage.Record{
		ID:       id,
		Vector:   vector,
		Text:     text,
		Metadata: meta,
	})
	if err != nil {
		return "", fmt.Errorf("upsert: %w", err)
	}

	ix.logger.Debug("Indexed document", "id", id, "dimension", len(vector), "chars", len(text))
	return id, nil
}
