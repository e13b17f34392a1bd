package storage

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/weaviate/weaviate/entities/models"
)

// storeFactories lists the backends that run without an external service.
func storeFactories(t *testing.T) map[string]func() VectorStore {
	return map[string]func() VectorStore{
		"memory": func() VectorStore { return NewMemoryStore() },
		"sqlite": func() VectorStore {
			store, err := NewSQLiteStore(filepath.Join(t.TempDir(), "vectors.db"), "test_records")
			require.NoError(t, err)
			return store
		},
	}
}

func TestStore_IndexThenQueryRoundTrip(t *testing.T) {
	for name, open := range storeFactories(t) {
		t.Run(name, func(t *testing.T) {
			store := open()
			defer store.Close()
			ctx := context.Background()

			require.NoError(t, store.EnsureCollection(ctx, 3))
			require.NoError(t, store.EnsureCollection(ctx, 3), "EnsureCollection must be idempotent")

			anemia := Record{
				ID:       uuid.New().String(),
				Vector:   []float32{1, 0, 0},
				Text:     "Patient has mild anemia",
				Metadata: map[string]any{"file": "labs.pdf", "pages": 2},
			}
			fracture := Record{
				ID:     uuid.New().String(),
				Vector: []float32{0, 1, 0},
				Text:   "Hairline fracture of the left radius",
			}
			require.NoError(t, store.Upsert(ctx, anemia, fracture))

			matches, err := store.Search(ctx, []float32{0.9, 0.1, 0}, 1, nil)
			require.NoError(t, err)
			require.Len(t, matches, 1)

			assert.Equal(t, anemia.ID, matches[0].ID)
			assert.Equal(t, "Patient has mild anemia", matches[0].Text)
			assert.Equal(t, "labs.pdf", matches[0].Metadata["file"])
			assert.Equal(t, float64(2), matches[0].Metadata["pages"])
			assert.InDelta(t, 0.9939, matches[0].Score, 0.001)

			all, err := store.Search(ctx, []float32{0, 1, 0}, 10, nil)
			require.NoError(t, err)
			require.Len(t, all, 2)
			assert.Equal(t, fracture.ID, all[0].ID)
			assert.GreaterOrEqual(t, all[0].Score, all[1].Score)
		})
	}
}

func TestStore_UpsertReplacesSameID(t *testing.T) {
	for name, open := range storeFactories(t) {
		t.Run(name, func(t *testing.T) {
			store := open()
			defer store.Close()
			ctx := context.Background()
			require.NoError(t, store.EnsureCollection(ctx, 2))

			id := uuid.New().String()
			require.NoError(t, store.Upsert(ctx, Record{ID: id, Vector: []float32{1, 0}, Text: "first"}))
			require.NoError(t, store.Upsert(ctx, Record{ID: id, Vector: []float32{1, 0}, Text: "second"}))

			matches, err := store.Search(ctx, []float32{1, 0}, 10, nil)
			require.NoError(t, err)
			require.Len(t, matches, 1)
			assert.Equal(t, "second", matches[0].Text)
		})
	}
}

func TestStore_EmptyCollectionReturnsNoMatches(t *testing.T) {
	for name, open := range storeFactories(t) {
		t.Run(name, func(t *testing.T) {
			store := open()
			defer store.Close()
			ctx := context.Background()

			matches, err := store.Search(ctx, []float32{1, 0, 0}, 1, nil)
			require.NoError(t, err)
			assert.Empty(t, matches)

			require.NoError(t, store.EnsureCollection(ctx, 3))
			matches, err = store.Search(ctx, []float32{1, 0, 0}, 1, nil)
			require.NoError(t, err)
			assert.Empty(t, matches)
		})
	}
}

func TestStore_DimensionValidation(t *testing.T) {
	for name, open := range storeFactories(t) {
		t.Run(name, func(t *testing.T) {
			store := open()
			defer store.Close()
			ctx := context.Background()

			assert.ErrorIs(t, store.EnsureCollection(ctx, 0), ErrDimensionMismatch)

			err := store.Upsert(ctx, Record{ID: uuid.New().String(), Vector: []float32{1, 2, 3}})
			assert.ErrorIs(t, err, ErrCollectionNotFound)

			require.NoError(t, store.EnsureCollection(ctx, 3))
			err = store.Upsert(ctx, Record{ID: uuid.New().String(), Vector: []float32{1, 2}})
			assert.ErrorIs(t, err, ErrDimensionMismatch)

			require.NoError(t, store.Upsert(ctx, Record{ID: uuid.New().String(), Vector: []float32{1, 2, 3}}))
			_, err = store.Search(ctx, []float32{1, 2}, 1, nil)
			assert.ErrorIs(t, err, ErrDimensionMismatch)
		})
	}
}

func TestStore_SearchFilter(t *testing.T) {
	for name, open := range storeFactories(t) {
		t.Run(name, func(t *testing.T) {
			store := open()
			defer store.Close()
			ctx := context.Background()
			require.NoError(t, store.EnsureCollection(ctx, 2))

			mine := Record{
				ID:       uuid.New().String(),
				Vector:   []float32{0, 1},
				Text:     "Patient A has mild anemia",
				Metadata: map[string]any{"session_id": "a", "file": "labs.pdf"},
			}
			other := Record{
				ID:       uuid.New().String(),
				Vector:   []float32{1, 0},
				Text:     "Patient B is HIV positive",
				Metadata: map[string]any{"session_id": "b"},
			}
			require.NoError(t, store.Upsert(ctx, mine, other))

			// The query is closest to the other session's record.
			matches, err := store.Search(ctx, []float32{1, 0}, 1, Filter{"session_id": "a"})
			require.NoError(t, err)
			require.Len(t, matches, 1)
			assert.Equal(t, mine.ID, matches[0].ID)

			matches, err = store.Search(ctx, []float32{1, 0}, 5, Filter{"session_id": "a", "file": "labs.pdf"})
			require.NoError(t, err)
			assert.Len(t, matches, 1)

			matches, err = store.Search(ctx, []float32{1, 0}, 5, Filter{"session_id": "c"})
			require.NoError(t, err)
			assert.Empty(t, matches)

			_, err = store.Search(ctx, []float32{1, 0}, 5, Filter{"session_id') OR 1=1 --": "a"})
			assert.ErrorIs(t, err, ErrInvalidFilter)
		})
	}
}

func TestFilter_Matches(t *testing.T) {
	metadata := map[string]any{"session_id": "a", "pages": float64(2)}

	assert.True(t, Filter(nil).Matches(metadata))
	assert.True(t, Filter{"session_id": "a"}.Matches(metadata))
	assert.False(t, Filter{"session_id": "b"}.Matches(metadata))
	assert.False(t, Filter{"pages": "2"}.Matches(metadata), "only string values match")
	assert.False(t, Filter{"file": "labs.pdf"}.Matches(metadata))
}

func TestStore_Health(t *testing.T) {
	for name, open := range storeFactories(t) {
		t.Run(name, func(t *testing.T) {
			store := open()
			defer store.Close()
			assert.NoError(t, store.Health(context.Background()))
		})
	}
}

func TestSQLiteStore_PersistsAcrossReopen(t *testing.T) {
	path := filepath.Join(t.TempDir(), "vectors.db")
	ctx := context.Background()

	store, err := NewSQLiteStore(path, "")
	require.NoError(t, err)
	require.NoError(t, store.EnsureCollection(ctx, 2))
	require.NoError(t, store.Upsert(ctx, Record{ID: "a", Vector: []float32{0, 1}, Text: "kept"}))
	require.NoError(t, store.Close())

	reopened, err := NewSQLiteStore(path, "")
	require.NoError(t, err)
	defer reopened.Close()

	matches, err := reopened.Search(ctx, []float32{0, 1}, 1, nil)
	require.NoError(t, err)
	require.Len(t, matches, 1)
	assert.Equal(t, "kept", matches[0].Text)
}

func TestCosineSimilarity(t *testing.T) {
	assert.InDelta(t, 1.0, cosineSimilarity([]float32{1, 1}, []float32{2, 2}), 1e-9)
	assert.InDelta(t, 0.0, cosineSimilarity([]float32{1, 0}, []float32{0, 1}), 1e-9)
	assert.InDelta(t, -1.0, cosineSimilarity([]float32{1, 0}, []float32{-1, 0}), 1e-9)
	assert.Equal(t, 0.0, cosineSimilarity([]float32{0, 0}, []float32{1, 0}))
}

func TestVectorBlobRoundTrip(t *testing.T) {
	vector := []float32{0.25, -1.5, 3}
	decoded, err := blobToVector(vectorToBlob(vector))
	require.NoError(t, err)
	assert.Equal(t, vector, decoded)

	_, err = blobToVector([]byte{1, 2, 3})
	assert.Error(t, err)
}

func TestClassName(t *testing.T) {
	assert.Equal(t, "MedicalDocuments", className("medical_documents"))
	assert.Equal(t, "MedicalDocument", className("MedicalDocument"))
	assert.Equal(t, "Records", className("records"))
}

func TestParseWeaviateMatches(t *testing.T) {
	data := map[string]models.JSONObject{
		"Get": map[string]any{
			"MedicalDocuments": []any{
				map[string]any{
					"text":     "Patient has mild anemia",
					"metadata": `{"file":"labs.pdf"}`,
					"_additional": map[string]any{
						"id":       "6f1c1c1e-7d1d-4a53-9a57-0e6d3f0c9a11",
						"distance": 0.25,
					},
				},
			},
		},
	}
	matches := parseWeaviateMatches(data, "MedicalDocuments")
	require.Len(t, matches, 1)
	assert.Equal(t, "Patient has mild anemia", matches[0].Text)
	assert.Equal(t, "labs.pdf", matches[0].Metadata["file"])
	assert.Equal(t, "6f1c1c1e-7d1d-4a53-9a57-0e6d3f0c9a11", matches[0].ID)
	assert.InDelta(t, 0.75, matches[0].Score, 1e-9)

	assert.Empty(t, parseWeaviateMatches(map[string]models.JSONObject{}, "MedicalDocuments"))
}

func TestWeaviateWhere(t *testing.T) {
	where, err := weaviateWhere(nil)
	require.NoError(t, err)
	assert.Nil(t, where)

	where, err = weaviateWhere(Filter{"session_id": "a"})
	require.NoError(t, err)
	assert.NotNil(t, where)

	_, err = weaviateWhere(Filter{"session_id": "a*"})
	assert.ErrorIs(t, err, ErrInvalidFilter)

	_, err = weaviateWhere(Filter{"bad key": "a"})
	assert.ErrorIs(t, err, ErrInvalidFilter)
}
