package indexer

import (
	"context"
	"fmt"
	"strings"

	"github.com/bull/mediscan/internal/storage"
)

// DefaultTopK is the number of documents a query returns.
const DefaultTopK = 1

// Retriever finds the stored document closest to a query.
type Retriever struct {
	embedder Embedder
	store    storage.VectorStore
	topK     int
}

// NewRetriever creates a Retriever returning at most topK matches (DefaultTopK when <= 0).
func NewRetriever(embedder Embedder, store storage.VectorStore, topK int) *Retriever {
	if topK <= 0 {
		topK = DefaultTopK
	}
	return &Retriever{embedder: embedder, store: store, topK: topK}
}

// Query embeds text and returns the nearest stored documents that match filter (nil for
// all). An empty store yields an empty slice and no error.
func (r *Retriever) Query(ctx context.Context, text string, filter storage.Filter) ([]storage.Match, error) {
	return r.Search(ctx, text, r.topK, filter)
}

// Search is Query with a caller chosen limit.
func (r *Retriever) Search(ctx context.Context, text string, limit int, filter storage.Filter) ([]storage.Match, error) {
	if strings.TrimSpace(text) == "" {
		return []storage.Match{}, nil
	}
	if limit <= 0 {
		limit = r.topK
	}

	vector, err := r.embedder.Embed(ctx, text)
	if err != nil {
		return nil, fmt.Errorf("embed query: %w", err)
	}

	matches, err := r.store.Search(ctx, vector, limit, filter)
	if err != nil {
		return nil, fmt.Errorf("search: %w", err)
	}
	if len(matches) > limit {
		matches = matches[:limit]
	}
	return matches, nil
}
