package storage

import (
	"context"
	"encoding/json"
	"fmt"
	"maps"
	"slices"
)

// DefaultCollection is the collection medical documents are indexed into.
const DefaultCollection = "medical_documents"

// Record is one embedded document as it is written to a vector store.
type Record struct {
	ID       string         // UUID
	Vector   []float32      // Embedding of Text
	Text     string         // Extracted document text
	Metadata map[string]any // Caller supplied metadata (file name, kind, session id...)
}

// Match is a record returned from a similarity search.
type Match struct {
	ID       string
	Text     string
	Metadata map[string]any
	Score    float64 // Cosine similarity, higher is closer
}

// VectorStore is implemented by every vector database backend.
type VectorStore interface {
	// EnsureCollection creates the collection with the given vector dimension if it does not
	// exist yet. Idempotent.
	EnsureCollection(ctx context.Context, dimension int) error

	// Upsert writes records, replacing any with the same ID.
	Upsert(ctx context.Context, records ...Record) error

	// Search returns up to limit records ordered by descending cosine similarity, keeping
	// only records that match filter (nil matches everything). A missing or empty collection
	// yields no matches and no error.
	Search(ctx context.Context, vector []float32, limit int, filter Filter) ([]Match, error)

	// Health reports whether the backend is reachable.
	Health(ctx context.Context) error

	Close() error
}

// Filter restricts a search to records whose metadata holds each key with exactly the given
// string value. Keys must be plain identifiers.
type Filter map[string]string

// Matches reports whether metadata satisfies every condition of f.
func (f Filter) Matches(metadata map[string]any) bool {
	for key, want := range f {
		got, ok := metadata[key].(string)
		if !ok || got != want {
			return false
		}
	}
	return true
}

// keys returns the filter keys in sorted order, rejecting any that are not identifiers.
func (f Filter) keys() ([]string, error) {
	keys := slices.Sorted(maps.Keys(f))
	for _, key := range keys {
		if !validIdentifier(key) {
			return nil, fmt.Errorf("%w: key %q", ErrInvalidFilter, key)
		}
	}
	return keys, nil
}

// normalizeMetadata round-trips metadata through JSON so every backend sees only strings,
// float64, bool, nil, []any and map[string]any.
func normalizeMetadata(metadata map[string]any) (map[string]any, error) {
	if len(metadata) == 0 {
		return map[string]any{}, nil
	}
	data, err := json.Marshal(metadata)
	if err != nil {
		return nil, fmt.Errorf("encode metadata: %w", err)
	}
	out := map[string]any{}
	if err := json.Unmarshal(data, &out); err != nil {
		return nil, fmt.Errorf("decode metadata: %w", err)
	}
	return out, nil
}

// encodeMetadata serializes metadata for backends that store it as a JSON column.
func encodeMetadata(metadata map[string]any) (string, error) {
	if len(metadata) == 0 {
		return "{}", nil
	}
	data, err := json.Marshal(metadata)
	if err != nil {
		return "", fmt.Errorf("encode metadata: %w", err)
	}
	return string(data), nil
}

func decodeMetadata(raw string) map[string]any {
	out := map[string]any{}
	if raw == "" {
		return out
	}
	_ = json.Unmarshal([]byte(raw), &out)
	return out
}
