package cache

import (
	"fmt"

	"github.com/opensource-finance/kestrel/internal/domain"
)

// New creates a classification cache based on configuration.
// "memory" is the default single-process memoization table; "redis"
// backs the table with an external store.
func New(cfg domain.CacheConfig) (domain.ClassificationCache, error) {
	switch cfg.Type {
	case "memory":
		return NewMemoryCache(cfg.MaxEntries), nil

	case "redis":
		return NewRedisCache(cfg.RedisAddr, cfg.RedisPassword, cfg.RedisDB)

	default:
		return nil, fmt.Errorf("unsupported cache type: %s", cfg.Type)
	}
}
