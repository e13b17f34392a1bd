package storage

import (
	"context"
	"fmt"
	"time"

	"github.com/pgvector/pgvector-go"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
	"gorm.io/gorm/logger"
)

// pgRecord is the row layout of a pgvector collection table.
type pgRecord struct {
	ID        string          `gorm:"type:uuid;primaryKey"`
	Text      string          `gorm:"type:text"`
	Metadata  string          `gorm:"type:jsonb"`
	Embedding pgvector.Vector `gorm:"type:vector"`
	CreatedAt time.Time       `gorm:"autoCreateTime"`
}

// PGVectorStore stores records in a Postgres table with a pgvector column. The collection
// name is the table name.
type PGVectorStore struct {
	db    *gorm.DB
	table string
}

// NewPGVectorStore connects to Postgres and enables the vector extension.
func NewPGVectorStore(ctx context.Context, dsn, collection string) (*PGVectorStore, error) {
	if collection == "" {
		collection = DefaultCollection
	}
	if !validIdentifier(collection) {
		return nil, fmt.Errorf("%w: %q", ErrInvalidCollection, collection)
	}

	db, err := gorm.Open(postgres.Open(dsn), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrStoreUnreachable, err)
	}

	store := &PGVectorStore{db: db, table: collection}
	if err := store.Health(ctx); err != nil {
		store.Close()
		return nil, err
	}

	if err := db.WithContext(ctx).Exec("CREATE EXTENSION IF NOT EXISTS vector").Error; err != nil {
		store.Close()
		return nil, fmt.Errorf("failed to enable pgvector extension: %w", err)
	}

	return store, nil
}

func (s *PGVectorStore) EnsureCollection(ctx context.Context, dimension int) error {
	if dimension <= 0 {
		return fmt.Errorf("%w: invalid dimension %d", ErrDimensionMismatch, dimension)
	}

	ddl := fmt.Sprintf(`CREATE TABLE IF NOT EXISTS %s (
		id uuid PRIMARY KEY,
		text text NOT NULL,
		metadata jsonb NOT NULL DEFAULT '{}',
		embedding vector(%d) NOT NULL,
		created_at timestamptz NOT NULL DEFAULT now()
	)`, s.table, dimension)
	if err := s.db.WithContext(ctx).Exec(ddl).Error; err != nil {
		return fmt.Errorf("failed to create collection: %w", err)
	}
	return nil
}

func (s *PGVectorStore) Upsert(ctx context.Context, records ...Record) error {
	if len(records) == 0 {
		return nil
	}

	rows := make([]pgRecord, 0, len(records))
	for _, rec := range records {
		metadata, err := encodeMetadata(rec.Metadata)
		if err != nil {
			return err
		}
		rows = append(rows, pgRecord{
			ID:        rec.ID,
			Text:      rec.Text,
			Metadata:  metadata,
			Embedding: pgvector.NewVector(rec.Vector),
		})
	}

	err := s.db.WithContext(ctx).
		Table(s.table).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "id"}},
			DoUpdates: clause.AssignmentColumns([]string{"text", "metadata", "embedding"}),
		}).
		Create(&rows).Error
	if err != nil {
		return fmt.Errorf("failed to upsert records: %w", err)
	}
	return nil
}

func (s *PGVectorStore) Search(ctx context.Context, vector []float32, limit int, filter Filter) ([]Match, error) {
	keys, err := filter.keys()
	if err != nil {
		return nil, err
	}
	if !s.db.WithContext(ctx).Migrator().HasTable(s.table) {
		return []Match{}, nil
	}

	// Cosine distance in pgvector is 1 - cosine similarity.
	type result struct {
		ID         string
		Text       string
		Metadata   string
		Similarity float64
	}
	var results []result

	query := pgvector.NewVector(vector)
	tx := s.db.WithContext(ctx).
		Table(s.table).
		Select("id, text, metadata::text AS metadata, 1 - (embedding <=> ?) AS similarity", query)
	for _, key := range keys {
		tx = tx.Where("metadata->>? = ?", key, filter[key])
	}
	err = tx.Order(gorm.Expr("embedding <=> ?", query)).
		Limit(limit).
		Scan(&results).Error
	if err != nil {
		return nil, fmt.Errorf("failed to search collection: %w", err)
	}

	matches := make([]Match, 0, len(results))
	for _, r := range results {
		matches = append(matches, Match{
			ID:       r.ID,
			Text:     r.Text,
			Metadata: decodeMetadata(r.Metadata),
			Score:    r.Similarity,
		})
	}
	return matches, nil
}

func (s *PGVectorStore) Health(ctx context.Context) error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return fmt.Errorf("%w: %v", ErrStoreUnreachable, err)
	}
	if err := sqlDB.PingContext(ctx); err != nil {
		return fmt.Errorf("%w: %v", ErrStoreUnreachable, err)
	}
	return nil
}

func (s *PGVectorStore) Close() error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}
