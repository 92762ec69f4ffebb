package checkpoint

import (
	"context"
	"time"
)

// IStore persists the last processed block height per chain.
type IStore interface {
	// Get returns ok=false when no checkpoint exists or it expired.
	Get(ctx context.Context, key string) (height int64, ok bool, err error)
	Set(ctx context.Context, key string, height int64, ttl time.Duration) error
	Close() error
}
