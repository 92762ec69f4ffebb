package checkpoint

import (
	"context"
	"time"

	"github.com/patrickmn/go-cache"
)

// MemoryStore keeps checkpoints in process. They are lost on restart.
type MemoryStore struct {
	cache *cache.Cache
}

func NewMemoryStore(defaultTTL time.Duration) *MemoryStore {
	return &MemoryStore{cache: cache.New(defaultTTL, 10*time.Minute)}
}

func (s *MemoryStore) Get(_ context.Context, key string) (int64, bool, error) {
	v, ok := s.cache.Get(key)
	if !ok {
		return 0, false, nil
	}
	height, ok := v.(int64)
	return height, ok, nil
}

func (s *MemoryStore) Set(_ context.Context, key string, height int64, ttl time.Duration) error {
	s.cache.Set(key, height, ttl)
	return nil
}

func (s *MemoryStore) Close() error { return nil }
