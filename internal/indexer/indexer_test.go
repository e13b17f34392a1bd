package indexer

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bull/mediscan/internal/storage"
)

// keywordEmbedder maps text onto a fixed vocabulary so similar texts get close vectors.
type keywordEmbedder struct {
	err   error
	calls int
}

var vocabulary = []string{"anemia", "fracture", "glucose", "hemoglobin"}

func (k *keywordEmbedder) Embed(_ context.Context, text string) ([]float32, error) {
	k.calls++
	if k.err != nil {
		return nil, k.err
	}
	lower := strings.ToLower(text)
	vector := make([]float32, len(vocabulary)+1)
	for i, word := range vocabulary {
		if strings.Contains(lower, word) {
			vector[i] = 1
		}
	}
	vector[len(vocabulary)] = 0.01 // keep vectors non-zero
	return vector, nil
}

func TestIndexer_IndexThenQuery(t *testing.T) {
	ctx := context.Background()
	embedder := &keywordEmbedder{}
	store := storage.NewMemoryStore()

	ix := New(embedder, store, nil)
	id, err := ix.Index(ctx, "Patient has mild anemia", map[string]any{"file": "labs.pdf"})
	require.NoError(t, err)
	assert.NotEmpty(t, id)

	_, err = ix.Index(ctx, "Hairline fracture of the left wrist", nil)
	require.NoError(t, err)

	matches, err := NewRetriever(embedder, store, 0).Query(ctx, "what does anemia mean?", nil)
	require.NoError(t, err)
	require.Len(t, matches, 1, "retrieval returns only the single best match")

	assert.Equal(t, id, matches[0].ID)
	assert.Equal(t, "Patient has mild anemia", matches[0].Text)
	assert.Equal(t, "labs.pdf", matches[0].Metadata["file"])
	assert.Equal(t, id, matches[0].Metadata["id"])
	assert.NotEmpty(t, matches[0].Metadata["indexed_at"])
}

func TestIndexer_UsesSuppliedID(t *testing.T) {
	store := storage.NewMemoryStore()
	ix := New(&keywordEmbedder{}, store, nil)

	supplied := "0b8e3f5a-6d2c-4f1e-9a7b-3c5d8e9f0a1b"
	id, err := ix.Index(context.Background(), "glucose 110 mg/dL", map[string]any{"id": supplied})
	require.NoError(t, err)
	assert.Equal(t, supplied, id)
}

func TestIndexer_RejectsNonUUIDID(t *testing.T) {
	store := storage.NewMemoryStore()
	embedder := &keywordEmbedder{}

	_, err := New(embedder, store, nil).Index(context.Background(), "glucose 110 mg/dL", map[string]any{"id": "doc-1"})
	assert.ErrorIs(t, err, storage.ErrInvalidID)
	assert.Zero(t, embedder.calls, "invalid ids fail before the embedding call")
	assert.Zero(t, store.Len())
}

func TestIndexer_NoDeduplicationAcrossCalls(t *testing.T) {
	store := storage.NewMemoryStore()
	ix := New(&keywordEmbedder{}, store, nil)

	for i := 0; i < 2; i++ {
		_, err := ix.Index(context.Background(), "Patient has mild anemia", nil)
		require.NoError(t, err)
	}
	assert.Equal(t, 2, store.Len())
}

func TestIndexer_Errors(t *testing.T) {
	store := storage.NewMemoryStore()

	_, err := New(&keywordEmbedder{}, store, nil).Index(context.Background(), "  ", nil)
	assert.ErrorIs(t, err, ErrEmptyText)

	boom := errors.New("embedding service down")
	_, err = New(&keywordEmbedder{err: boom}, store, nil).Index(context.Background(), "anemia", nil)
	assert.ErrorIs(t, err, boom)
	assert.Zero(t, store.Len())
}

func TestRetriever_EmptyStore(t *testing.T) {
	embedder := &keywordEmbedder{}
	matches, err := NewRetriever(embedder, storage.NewMemoryStore(), 1).Query(context.Background(), "anemia", nil)
	require.NoError(t, err)
	assert.Empty(t, matches)
}

func TestRetriever_BlankQuerySkipsEmbedding(t *testing.T) {
	embedder := &keywordEmbedder{}
	matches, err := NewRetriever(embedder, storage.NewMemoryStore(), 1).Query(context.Background(), "", nil)
	require.NoError(t, err)
	assert.Empty(t, matches)
	assert.Zero(t, embedder.calls)
}

func TestRetriever_SearchLimit(t *testing.T) {
	ctx := context.Background()
	embedder := &keywordEmbedder{}
	store := storage.NewMemoryStore()
	ix := New(embedder, store, nil)

	for _, text := range []string{"anemia", "anemia and low hemoglobin", "wrist fracture"} {
		_, err := ix.Index(ctx, text, nil)
		require.NoError(t, err)
	}

	matches, err := NewRetriever(embedder, store, 1).Search(ctx, "anemia", 2, nil)
	require.NoError(t, err)
	require.Len(t, matches, 2)
	assert.Equal(t, "anemia", matches[0].Text)
	assert.GreaterOrEqual(t, matches[0].Score, matches[1].Score)
}

func TestRetriever_QueryFilter(t *testing.T) {
	ctx := context.Background()
	embedder := &keywordEmbedder{}
	store := storage.NewMemoryStore()
	ix := New(embedder, store, nil)

	_, err := ix.Index(ctx, "Patient A has mild anemia", map[string]any{"session_id": "a"})
	require.NoError(t, err)
	_, err = ix.Index(ctx, "Patient B has a wrist fracture", map[string]any{"session_id": "b"})
	require.NoError(t, err)

	matches, err := NewRetriever(embedder, store, 1).Query(ctx, "is the fracture healing?", storage.Filter{"session_id": "a"})
	require.NoError(t, err)
	require.Len(t, matches, 1)
	assert.Equal(t, "Patient A has mild anemia", matches[0].Text)
}
