package storage

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"unicode"

	"github.com/weaviate/weaviate-go-client/v4/weaviate"
	"github.com/weaviate/weaviate-go-client/v4/weaviate/auth"
	"github.com/weaviate/weaviate-go-client/v4/weaviate/filters"
	"github.com/weaviate/weaviate-go-client/v4/weaviate/graphql"
	"github.com/weaviate/weaviate/entities/models"
)

// WeaviateConfig holds connection settings for a Weaviate cluster.
type WeaviateConfig struct {
	Host       string // cluster host without scheme, e.g. "xyz.weaviate.cloud"
	Scheme     string // "https" for Weaviate Cloud
	APIKey     string
	Collection string
}

// WeaviateStore stores records as objects of one Weaviate class with caller supplied
// vectors (no server-side vectorizer).
type WeaviateStore struct {
	client *weaviate.Client
	class  string
}

// NewWeaviateStore connects to a Weaviate cluster and checks that it is ready.
func NewWeaviateStore(ctx context.Context, cfg WeaviateConfig) (*WeaviateStore, error) {
	if cfg.Collection == "" {
		cfg.Collection = DefaultCollection
	}
	if cfg.Scheme == "" {
		cfg.Scheme = "https"
	}
	class := className(cfg.Collection)
	if !validIdentifier(class) {
		return nil, fmt.Errorf("%w: %q", ErrInvalidCollection, cfg.Collection)
	}

	wcfg := weaviate.Config{
		Host:   strings.TrimPrefix(strings.TrimPrefix(cfg.Host, "https://"), "http://"),
		Scheme: cfg.Scheme,
	}
	if cfg.APIKey != "" {
		wcfg.AuthConfig = auth.ApiKey{Value: cfg.APIKey}
	}

	client, err := weaviate.NewClient(wcfg)
	if err != nil {
		return nil, fmt.Errorf("failed to create weaviate client: %w", err)
	}

	store := &WeaviateStore{client: client, class: class}
	if err := store.Health(ctx); err != nil {
		return nil, err
	}
	return store, nil
}

// className turns a collection name like "medical_documents" into the Weaviate class name
// "MedicalDocuments". Class names must start with an upper case letter.
func className(collection string) string {
	var b strings.Builder
	upper := true
	for _, r := range collection {
		if r == '_' || r == '-' || r == ' ' {
			upper = true
			continue
		}
		if upper {
			r = unicode.ToUpper(r)
			upper = false
		}
		b.WriteRune(r)
	}
	return b.String()
}

func (s *WeaviateStore) classExists(ctx context.Context) (bool, error) {
	exists, err := s.client.Schema().ClassExistenceChecker().WithClassName(s.class).Do(ctx)
	if err != nil {
		return false, fmt.Errorf("failed to check class %s: %w", s.class, err)
	}
	return exists, nil
}

// EnsureCollection creates the class when absent. Weaviate infers the vector dimension from
// the first object, so dimension is only validated.
func (s *WeaviateStore) EnsureCollection(ctx context.Context, dimension int) error {
	if dimension <= 0 {
		return fmt.Errorf("%w: invalid dimension %d", ErrDimensionMismatch, dimension)
	}

	exists, err := s.classExists(ctx)
	if err != nil {
		return err
	}
	if exists {
		return nil
	}

	err = s.client.Schema().ClassCreator().WithClass(&models.Class{
		Class:      s.class,
		Vectorizer: "none",
		VectorIndexConfig: map[string]any{
			"distance": "cosine",
		},
		Properties: []*models.Property{
			{Name: "text", DataType: []string{"text"}},
			// Field tokenization keeps the JSON as one token so Like filters see all of it.
			{Name: "metadata", DataType: []string{"text"}, Tokenization: "field"},
		},
	}).Do(ctx)
	if err != nil {
		return fmt.Errorf("failed to create class %s: %w", s.class, err)
	}
	return nil
}

func (s *WeaviateStore) Upsert(ctx context.Context, records ...Record) error {
	for _, rec := range records {
		metadata, err := encodeMetadata(rec.Metadata)
		if err != nil {
			return err
		}

		_, err = s.client.Data().Creator().
			WithClassName(s.class).
			WithID(rec.ID).
			WithProperties(map[string]any{
				"text":     rec.Text,
				"metadata": metadata,
			}).
			WithVector(rec.Vector).
			Do(ctx)
		if err != nil {
			return fmt.Errorf("failed to insert object %s: %w", rec.ID, err)
		}
	}
	return nil
}

// Search runs a nearVector query. Metadata is stored as JSON text, so each filter condition is
// a Like pattern on the encoded "key":"value" pair, and matches are checked again after
// decoding.
func (s *WeaviateStore) Search(ctx context.Context, vector []float32, limit int, filter Filter) ([]Match, error) {
	where, err := weaviateWhere(filter)
	if err != nil {
		return nil, err
	}
	exists, err := s.classExists(ctx)
	if err != nil {
		return nil, err
	}
	if !exists {
		return []Match{}, nil
	}

	nearVector := s.client.GraphQL().NearVectorArgBuilder().WithVector(vector)
	get := s.client.GraphQL().Get()
	if where != nil {
		get = get.WithWhere(where)
	}
	resp, err := get.
		WithClassName(s.class).
		WithFields(
			graphql.Field{Name: "text"},
			graphql.Field{Name: "metadata"},
			graphql.Field{Name: "_additional", Fields: []graphql.Field{
				{Name: "id"},
				{Name: "distance"},
			}},
		).
		WithNearVector(nearVector).
		WithLimit(limit).
		Do(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to search class %s: %w", s.class, err)
	}
	if len(resp.Errors) > 0 {
		return nil, fmt.Errorf("failed to search class %s: %s", s.class, resp.Errors[0].Message)
	}

	matches := parseWeaviateMatches(resp.Data, s.class)
	if len(filter) == 0 {
		return matches, nil
	}
	kept := matches[:0]
	for _, m := range matches {
		if filter.Matches(m.Metadata) {
			kept = append(kept, m)
		}
	}
	return kept, nil
}

// weaviateWhere builds one Like condition per filter key, joined with And. Returns nil for an
// empty filter.
func weaviateWhere(filter Filter) (*filters.WhereBuilder, error) {
	keys, err := filter.keys()
	if err != nil {
		return nil, err
	}
	if len(keys) == 0 {
		return nil, nil
	}

	operands := make([]*filters.WhereBuilder, 0, len(keys))
	for _, key := range keys {
		value, err := json.Marshal(filter[key])
		if err != nil {
			return nil, fmt.Errorf("%w: %v", ErrInvalidFilter, err)
		}
		if strings.ContainsAny(filter[key], "*?") {
			return nil, fmt.Errorf("%w: wildcard in value for %q", ErrInvalidFilter, key)
		}
		operands = append(operands, filters.Where().
			WithPath([]string{"metadata"}).
			WithOperator(filters.Like).
			WithValueText(fmt.Sprintf(`*"%s":%s*`, key, value)))
	}
	if len(operands) == 1 {
		return operands[0], nil
	}
	return filters.Where().WithOperator(filters.And).WithOperands(operands), nil
}

// parseWeaviateMatches walks the Get.<Class> list of a GraphQL response.
func parseWeaviateMatches(data map[string]models.JSONObject, class string) []Match {
	matches := []Match{}

	get, ok := data["Get"].(map[string]any)
	if !ok {
		return matches
	}
	objects, ok := get[class].([]any)
	if !ok {
		return matches
	}

	for _, obj := range objects {
		fields, ok := obj.(map[string]any)
		if !ok {
			continue
		}
		match := Match{Metadata: map[string]any{}}
		match.Text, _ = fields["text"].(string)
		if raw, ok := fields["metadata"].(string); ok {
			match.Metadata = decodeMetadata(raw)
		}
		if additional, ok := fields["_additional"].(map[string]any); ok {
			match.ID, _ = additional["id"].(string)
			if distance, ok := additional["distance"].(float64); ok {
				match.Score = 1 - distance
			}
		}
		matches = append(matches, match)
	}
	return matches
}

func (s *WeaviateStore) Health(ctx context.Context) error {
	ready, err := s.client.Misc().ReadyChecker().Do(ctx)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrStoreUnreachable, err)
	}
	if !ready {
		return fmt.Errorf("%w: cluster not ready", ErrStoreUnreachable)
	}
	return nil
}

// Close is a no-op; the Weaviate client holds no persistent connection.
func (s *WeaviateStore) Close() error { return nil }
