package storage

import (
	"context"
	"fmt"
	"sync"
)

// MemoryStore keeps records in process memory and searches them by brute-force cosine
// similarity. Contents are lost on exit.
type MemoryStore struct {
	mu        sync.RWMutex
	dimension int
	ids       map[string]int
	records   []Record
}

// NewMemoryStore creates an empty in-memory store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{ids: make(map[string]int)}
}

func (s *MemoryStore) EnsureCollection(_ context.Context, dimension int) error {
	if dimension <= 0 {
		return fmt.Errorf("%w: invalid dimension %d", ErrDimensionMismatch, dimension)
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.dimension == 0 {
		s.dimension = dimension
	}
	return nil
}

func (s *MemoryStore) Upsert(_ context.Context, records ...Record) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.dimension == 0 {
		return ErrCollectionNotFound
	}
	for i, rec := range records {
		if len(rec.Vector) != s.dimension {
			return fmt.Errorf("%w: record %d has %d dimensions, expected %d",
				ErrDimensionMismatch, i, len(rec.Vector), s.dimension)
		}
	}

	for _, rec := range records {
		metadata, err := normalizeMetadata(rec.Metadata)
		if err != nil {
			return err
		}
		rec.Metadata = metadata
		rec.Vector = append([]float32(nil), rec.Vector...)

		if idx, ok := s.ids[rec.ID]; ok {
			s.records[idx] = rec
			continue
		}
		s.ids[rec.ID] = len(s.records)
		s.records = append(s.records, rec)
	}
	return nil
}

func (s *MemoryStore) Search(_ context.Context, vector []float32, limit int, filter Filter) ([]Match, error) {
	if _, err := filter.keys(); err != nil {
		return nil, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()

	if len(s.records) == 0 {
		return []Match{}, nil
	}
	if len(vector) != s.dimension {
		return nil, fmt.Errorf("%w: query has %d dimensions, expected %d",
			ErrDimensionMismatch, len(vector), s.dimension)
	}

	matches := make([]Match, 0, len(s.records))
	for _, rec := range s.records {
		if !filter.Matches(rec.Metadata) {
			continue
		}
		matches = append(matches, Match{
			ID:       rec.ID,
			Text:     rec.Text,
			Metadata: rec.Metadata,
			Score:    cosineSimilarity(vector, rec.Vector),
		})
	}
	return topMatches(matches, limit), nil
}

// Len returns the number of stored records.
func (s *MemoryStore) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.records)
}

func (s *MemoryStore) Health(context.Context) error { return nil }

func (s *MemoryStore) Close() error { return nil }
