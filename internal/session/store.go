package session

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/patrickmn/go-cache"

	"github.com/bull/mediscan/internal/config"
)

// Store persists session state. Get returns ErrNotFound for unknown or expired sessions.
type Store interface {
	Get(ctx context.Context, id string) (*State, error)
	Put(ctx context.Context, state *State) error
	Delete(ctx context.Context, id string) error
}

// CacheStore keeps sessions in process memory. A session expires TTL after its last write.
type CacheStore struct {
	cache *cache.Cache
}

// NewCacheStore creates an in-memory store. Expired sessions are purged every 10 minutes.
func NewCacheStore(ttl time.Duration) *CacheStore {
	return &CacheStore{cache: cache.New(ttl, 10*time.Minute)}
}

func (s *CacheStore) Get(_ context.Context, id string) (*State, error) {
	if x, found := s.cache.Get(id); found {
		return x.(*State).Clone(), nil
	}
	return nil, ErrNotFound
}

func (s *CacheStore) Put(_ context.Context, state *State) error {
	s.cache.Set(state.ID, state.Clone(), cache.DefaultExpiration)
	return nil
}

func (s *CacheStore) Delete(_ context.Context, id string) error {
	s.cache.Delete(id)
	return nil
}

// OpenStore builds the session store selected by cfg.Store.
func OpenStore(ctx context.Context, cfg config.SessionConfig, logger *slog.Logger) (Store, error) {
	if logger == nil {
		logger = slog.Default()
	}
	ttl := cfg.TTL()
	if ttl <= 0 {
		ttl = time.Hour
	}

	switch cfg.Store {
	case "", "memory":
		return NewCacheStore(ttl), nil
	case "redis":
		store, err := NewRedisStore(ctx, cfg.RedisURL, ttl)
		if err != nil {
			return nil, err
		}
		logger.Info("session store ready", "type", "redis")
		return store, nil
	default:
		return nil, fmt.Errorf("unknown session store %q", cfg.Store)
	}
}
