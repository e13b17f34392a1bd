package storage

import (
	"context"
	"database/sql"
	"embed"
	"encoding/binary"
	"errors"
	"fmt"
	"math"
	"os"
	"path/filepath"
	"strings"
	"time"

	_ "modernc.org/sqlite"
)

//go:embed schema.sql
var schemaFS embed.FS

// sqliteSchemaVersion is the version of schema.sql.
const sqliteSchemaVersion = 1

// SQLiteStore keeps vectors in a local SQLite file. Search loads the collection and ranks it
// by brute-force cosine similarity, which is adequate for a per-user document history.
type SQLiteStore struct {
	db         *sql.DB
	path       string
	collection string
}

// NewSQLiteStore opens or creates the database at path and applies the schema.
func NewSQLiteStore(path, collection string) (*SQLiteStore, error) {
	if collection == "" {
		collection = DefaultCollection
	}

	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("failed to create directory: %w", err)
		}
	}

	db, err := sql.Open("sqlite", path+"?_pragma=foreign_keys(1)&_pragma=journal_mode(WAL)&_pragma=synchronous(NORMAL)&_pragma=busy_timeout(5000)")
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("%w: %v", ErrStoreUnreachable, err)
	}

	store := &SQLiteStore{db: db, path: path, collection: collection}
	if err := store.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to migrate database: %w", err)
	}

	return store, nil
}

func (s *SQLiteStore) migrate() error {
	schema, err := schemaFS.ReadFile("schema.sql")
	if err != nil {
		return fmt.Errorf("failed to read schema: %w", err)
	}

	tx, err := s.db.Begin()
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.Exec(string(schema)); err != nil {
		return fmt.Errorf("failed to apply schema: %w", err)
	}
	if _, err := tx.Exec(
		"INSERT OR IGNORE INTO schema_version (version, applied_at) VALUES (?, ?)",
		sqliteSchemaVersion,
		time.Now().UTC().Format(time.RFC3339),
	); err != nil {
		return fmt.Errorf("failed to set schema version: %w", err)
	}

	return tx.Commit()
}

// dimension returns the collection's vector size, or 0 when the collection does not exist.
func (s *SQLiteStore) dimension(ctx context.Context) (int, error) {
	var dim int
	err := s.db.QueryRowContext(ctx,
		"SELECT dimension FROM collections WHERE name = ?", s.collection).Scan(&dim)
	if errors.Is(err, sql.ErrNoRows) {
		return 0, nil
	}
	if err != nil {
		return 0, fmt.Errorf("failed to read collection: %w", err)
	}
	return dim, nil
}

func (s *SQLiteStore) EnsureCollection(ctx context.Context, dimension int) error {
	if dimension <= 0 {
		return fmt.Errorf("%w: invalid dimension %d", ErrDimensionMismatch, dimension)
	}
	_, err := s.db.ExecContext(ctx,
		"INSERT OR IGNORE INTO collections (name, dimension, created_at) VALUES (?, ?, ?)",
		s.collection, dimension, time.Now().UTC().Format(time.RFC3339))
	if err != nil {
		return fmt.Errorf("failed to create collection: %w", err)
	}
	return nil
}

func (s *SQLiteStore) Upsert(ctx context.Context, records ...Record) error {
	if len(records) == 0 {
		return nil
	}

	dim, err := s.dimension(ctx)
	if err != nil {
		return err
	}
	if dim == 0 {
		return ErrCollectionNotFound
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	stmt, err := tx.PrepareContext(ctx, `
		INSERT OR REPLACE INTO records (collection, id, text, metadata, vector, dimension, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)
	`)
	if err != nil {
		return fmt.Errorf("failed to prepare statement: %w", err)
	}
	defer stmt.Close()

	now := time.Now().UTC().Format(time.RFC3339)
	for i, rec := range records {
		if len(rec.Vector) != dim {
			return fmt.Errorf("%w: record %d has %d dimensions, expected %d",
				ErrDimensionMismatch, i, len(rec.Vector), dim)
		}
		metadata, err := encodeMetadata(rec.Metadata)
		if err != nil {
			return err
		}
		if _, err := stmt.ExecContext(ctx, s.collection, rec.ID, rec.Text, metadata,
			vectorToBlob(rec.Vector), len(rec.Vector), now); err != nil {
			return fmt.Errorf("failed to insert record %s: %w", rec.ID, err)
		}
	}

	return tx.Commit()
}

func (s *SQLiteStore) Search(ctx context.Context, vector []float32, limit int, filter Filter) ([]Match, error) {
	keys, err := filter.keys()
	if err != nil {
		return nil, err
	}
	dim, err := s.dimension(ctx)
	if err != nil {
		return nil, err
	}
	if dim == 0 {
		return []Match{}, nil
	}
	if len(vector) != dim {
		return nil, fmt.Errorf("%w: query has %d dimensions, expected %d",
			ErrDimensionMismatch, len(vector), dim)
	}

	var query strings.Builder
	query.WriteString("SELECT id, text, metadata, vector FROM records WHERE collection = ?")
	args := []any{s.collection}
	for _, key := range keys {
		query.WriteString(" AND json_extract(metadata, ?) = ?")
		args = append(args, "$."+key, filter[key])
	}

	rows, err := s.db.QueryContext(ctx, query.String(), args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query vectors: %w", err)
	}
	defer rows.Close()

	var matches []Match
	for rows.Next() {
		var (
			id, text, metadata string
			blob               []byte
		)
		if err := rows.Scan(&id, &text, &metadata, &blob); err != nil {
			return nil, fmt.Errorf("failed to scan row: %w", err)
		}

		stored, err := blobToVector(blob)
		if err != nil || len(stored) != len(vector) {
			continue // skip malformed vectors
		}

		matches = append(matches, Match{
			ID:       id,
			Text:     text,
			Metadata: decodeMetadata(metadata),
			Score:    cosineSimilarity(vector, stored),
		})
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating rows: %w", err)
	}

	if matches == nil {
		return []Match{}, nil
	}
	return topMatches(matches, limit), nil
}

func (s *SQLiteStore) Health(ctx context.Context) error {
	if err := s.db.PingContext(ctx); err != nil {
		return fmt.Errorf("%w: %v", ErrStoreUnreachable, err)
	}
	return nil
}

func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

// vectorToBlob encodes a vector as little-endian float32s.
func vectorToBlob(vector []float32) []byte {
	blob := make([]byte, len(vector)*4)
	for i, v := range vector {
		binary.LittleEndian.PutUint32(blob[i*4:i*4+4], math.Float32bits(v))
	}
	return blob
}

func blobToVector(blob []byte) ([]float32, error) {
	if len(blob)%4 != 0 {
		return nil, fmt.Errorf("blob size %d is not a multiple of 4", len(blob))
	}

	vector := make([]float32, len(blob)/4)
	for i := range vector {
		vector[i] = math.Float32frombits(binary.LittleEndian.Uint32(blob[i*4 : i*4+4]))
	}
	return vector, nil
}
