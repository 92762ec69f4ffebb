package checkpoint

import (
	"context"
	"time"

	"github.com/pkg/errors"
	"github.com/redis/go-redis/v9"
)

type RedisStore struct {
	client *redis.Client
}

func NewRedisStore(addr, password string, db int) *RedisStore {
	return &RedisStore{client: redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: password,
		DB:       db,
	})}
}

func (s *RedisStore) Get(ctx context.Context, key string) (int64, bool, error) {
	height, err := s.client.Get(ctx, key).Int64()
	if errors.Is(err, redis.Nil) {
		return 0, false, nil
	}
	if err != nil {
		return 0, false, errors.Wrapf(err, "get checkpoint %s", key)
	}
	return height, true, nil
}

func (s *RedisStore) Set(ctx context.Context, key string, height int64, ttl time.Duration) error {
	if err := s.client.Set(ctx, key, height, ttl).Err(); err != nil {
		return errors.Wrapf(err, "set checkpoint %s", key)
	}
	return nil
}

// Ping verifies the connection at startup.
func (s *RedisStore) Ping(ctx context.Context) error {
	return s.client.Ping(ctx).Err()
}

func (s *RedisStore) Close() error { return s.client.Close() }
