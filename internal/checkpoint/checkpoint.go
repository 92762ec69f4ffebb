package checkpoint

import (
	"github.com/pkg/errors"

	"github.com/dwarvesf/chain-scanner/internal/consts"
	"github.com/dwarvesf/chain-scanner/internal/utils/config"
	"github.com/dwarvesf/chain-scanner/internal/utils/logger"
)

const (
	DriverMemory = "memory"
	DriverRedis  = "redis"
)

// Key builds the cache key of a chain checkpoint.
func Key(prefix, cacheKey string) string {
	return prefix + consts.CHECKPOINT_KEY_PREFIX + cacheKey
}

func New(cfg config.CheckpointConfig, l *logger.Logger) (IStore, error) {
	switch cfg.Driver {
	case "", DriverMemory:
		l.Info("[checkpoint.New] using in-memory checkpoint store")
		return NewMemoryStore(cfg.TTL), nil
	case DriverRedis:
		if cfg.RedisAddr == "" {
			return nil, errors.New("checkpoint driver redis requires REDIS_ADDR")
		}
		l.Info("[checkpoint.New] using redis checkpoint store", map[string]string{"addr": cfg.RedisAddr})
		return NewRedisStore(cfg.RedisAddr, cfg.RedisPassword, cfg.RedisDB), nil
	}
	return nil, errors.Errorf("unknown checkpoint driver %q", cfg.Driver)
}
