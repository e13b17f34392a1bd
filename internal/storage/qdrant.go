package storage

import (
	"context"
	"fmt"
	"slices"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/google/uuid"
	"github.com/qdrant/go-client/qdrant"
)

// QdrantConfig holds connection settings for a Qdrant server.
type QdrantConfig struct {
	Host       string
	Port       int // gRPC port, usually 6334
	APIKey     string
	UseTLS     bool
	Collection string
}

// QdrantStorage wraps the Qdrant client with connection management and health checks.
type QdrantStorage struct {
	client     *qdrant.Client
	collection string
}

// NewQdrantStorage creates a new Qdrant client with health validation.
// It performs health check with retry on startup and fails fast if Qdrant is unreachable.
func NewQdrantStorage(cfg QdrantConfig) (*QdrantStorage, error) {
	if cfg.Collection == "" {
		cfg.Collection = DefaultCollection
	}

	// Create Qdrant client using gRPC
	client, err := qdrant.NewClient(&qdrant.Config{
		Host:   cfg.Host,
		Port:   cfg.Port,
		APIKey: cfg.APIKey,
		UseTLS: cfg.UseTLS,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create qdrant client: %w", err)
	}

	storage := &QdrantStorage{
		client:     client,
		collection: cfg.Collection,
	}

	ctx := context.Background()
	err = storage.healthCheckWithRetry(ctx)
	if err != nil {
		client.Close()
		return nil, fmt.Errorf("%w: %v", ErrStoreUnreachable, err)
	}

	return storage, nil
}

// newBackoff returns the retry policy shared by health checks and upserts.
// Initial interval 500ms, max interval 10s, max elapsed 30s.
func newBackoff() *backoff.ExponentialBackOff {
	b := backoff.NewExponentialBackOff()
	b.InitialInterval = 500 * time.Millisecond
	b.MaxInterval = 10 * time.Second
	b.MaxElapsedTime = 30 * time.Second
	return b
}

func (s *QdrantStorage) healthCheckWithRetry(ctx context.Context) error {
	return backoff.Retry(func() error {
		return s.Health(ctx)
	}, backoff.WithContext(newBackoff(), ctx))
}

// Health performs a single health check against Qdrant.
func (s *QdrantStorage) Health(ctx context.Context) error {
	result, err := s.client.HealthCheck(ctx)
	if err != nil {
		return fmt.Errorf("health check failed: %w", err)
	}

	if result == nil || result.Title == "" {
		return fmt.Errorf("health check returned invalid response")
	}

	return nil
}

// EnsureCollection creates the collection with a single unnamed cosine vector of the given
// dimension when it does not exist yet.
func (s *QdrantStorage) EnsureCollection(ctx context.Context, dimension int) error {
	if dimension <= 0 {
		return fmt.Errorf("%w: invalid dimension %d", ErrDimensionMismatch, dimension)
	}

	exists, err := s.collectionExists(ctx)
	if err != nil {
		return err
	}
	if exists {
		return nil
	}

	err = s.client.CreateCollection(ctx, &qdrant.CreateCollection{
		CollectionName: s.collection,
		VectorsConfig: qdrant.NewVectorsConfig(&qdrant.VectorParams{
			Size:     uint64(dimension),
			Distance: qdrant.Distance_Cosine,
		}),
	})
	if err != nil {
		return fmt.Errorf("failed to create collection: %w", err)
	}

	return nil
}

func (s *QdrantStorage) collectionExists(ctx context.Context) (bool, error) {
	collections, err := s.client.ListCollections(ctx)
	if err != nil {
		return false, fmt.Errorf("failed to list collections: %w", err)
	}
	return slices.Contains(collections, s.collection), nil
}

// ClearCollection drops the collection. The next EnsureCollection recreates it.
func (s *QdrantStorage) ClearCollection(ctx context.Context) error {
	err := s.client.DeleteCollection(ctx, s.collection)
	if err != nil {
		return fmt.Errorf("failed to delete collection: %w", err)
	}
	return nil
}

// Close closes the Qdrant client connection.
func (s *QdrantStorage) Close() error {
	if s.client != nil {
		return s.client.Close()
	}
	return nil
}

// upsertWithRetry performs upsert operation with exponential backoff retry.
func (s *QdrantStorage) upsertWithRetry(ctx context.Context, points []*qdrant.PointStruct) error {
	operation := func() error {
		_, err := s.client.Upsert(ctx, &qdrant.UpsertPoints{
			CollectionName: s.collection,
			Points:         points,
		})
		return err
	}

	return backoff.Retry(operation, backoff.WithContext(newBackoff(), ctx))
}

// Upsert stores records in batches of 100. The payload carries the document text and its
// metadata. Record IDs must be UUIDs; they are checked before anything is sent so a bad ID is
// not retried.
func (s *QdrantStorage) Upsert(ctx context.Context, records ...Record) error {
	if len(records) == 0 {
		return nil
	}
	for _, rec := range records {
		if _, err := uuid.Parse(rec.ID); err != nil {
			return fmt.Errorf("%w: %q", ErrInvalidID, rec.ID)
		}
	}

	batchSize := 100
	for i := 0; i < len(records); i += batchSize {
		end := min(i+batchSize, len(records))

		points := make([]*qdrant.PointStruct, 0, end-i)
		for _, rec := range records[i:end] {
			metadata, err := normalizeMetadata(rec.Metadata)
			if err != nil {
				return err
			}
			payload, err := qdrant.TryValueMap(map[string]any{
				"text":     rec.Text,
				"metadata": metadata,
			})
			if err != nil {
				return fmt.Errorf("failed to build payload for %s: %w", rec.ID, err)
			}
			points = append(points, &qdrant.PointStruct{
				Id:      qdrant.NewIDUUID(rec.ID),
				Vectors: qdrant.NewVectors(rec.Vector...),
				Payload: payload,
			})
		}

		if err := s.upsertWithRetry(ctx, points); err != nil {
			return fmt.Errorf("failed to upsert batch %d-%d: %w", i, end, err)
		}
	}

	return nil
}

// Search performs vector similarity search and returns up to limit matches with scores.
// Filter keys are matched against the nested metadata payload.
func (s *QdrantStorage) Search(ctx context.Context, vector []float32, limit int, filter Filter) ([]Match, error) {
	keys, err := filter.keys()
	if err != nil {
		return nil, err
	}
	exists, err := s.collectionExists(ctx)
	if err != nil {
		return nil, err
	}
	if !exists {
		return []Match{}, nil
	}

	query := &qdrant.QueryPoints{
		CollectionName: s.collection,
		Query:          qdrant.NewQuery(vector...),
		Limit:          qdrant.PtrOf(uint64(limit)),
		WithPayload:    qdrant.NewWithPayload(true),
		WithVectors:    qdrant.NewWithVectors(false),
	}
	if len(keys) > 0 {
		conditions := make([]*qdrant.Condition, 0, len(keys))
		for _, key := range keys {
			conditions = append(conditions, qdrant.NewMatch("metadata."+key, filter[key]))
		}
		query.Filter = &qdrant.Filter{Must: conditions}
	}

	results, err := s.client.Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to search collection: %w", err)
	}

	matches := make([]Match, 0, len(results))
	for _, result := range results {
		payload := result.Payload

		metadata := map[string]any{}
		if fields := payload["metadata"].GetStructValue().GetFields(); fields != nil {
			for k, v := range fields {
				metadata[k] = valueToAny(v)
			}
		}

		matches = append(matches, Match{
			ID:       result.Id.GetUuid(),
			Text:     payload["text"].GetStringValue(),
			Metadata: metadata,
			Score:    float64(result.Score),
		})
	}

	return matches, nil
}

// valueToAny converts a Qdrant payload value back into plain Go values.
func valueToAny(v *qdrant.Value) any {
	switch kind := v.GetKind().(type) {
	case *qdrant.Value_StringValue:
		return kind.StringValue
	case *qdrant.Value_IntegerValue:
		return float64(kind.IntegerValue)
	case *qdrant.Value_DoubleValue:
		return kind.DoubleValue
	case *qdrant.Value_BoolValue:
		return kind.BoolValue
	case *qdrant.Value_ListValue:
		list := make([]any, 0, len(kind.ListValue.GetValues()))
		for _, item := range kind.ListValue.GetValues() {
			list = append(list, valueToAny(item))
		}
		return list
	case *qdrant.Value_StructValue:
		out := make(map[string]any, len(kind.StructValue.GetFields()))
		for k, item := range kind.StructValue.GetFields() {
			out[k] = valueToAny(item)
		}
		return out
	default:
		return nil
	}
}
