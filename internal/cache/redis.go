package cache

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/opensource-finance/kestrel/internal/domain"
)

const redisKeyPrefix = "kestrel:classification:"

// RedisCache implements ClassificationCache using Redis, for deployments
// that want the memoization table to outlive the process or be shared
// between replicas. Entries are stored without TTL, mirroring the
// no-expiry contract of the in-memory cache; bound growth with Redis's
// own eviction policy if needed.
type RedisCache struct {
	client *redis.Client
}

// NewRedisCache creates a new Redis-backed cache.
func NewRedisCache(addr, password string, db int) (*RedisCache, error) {
	if addr == "" {
		addr = "localhost:6379"
	}

	client := redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: password,
		DB:       db,
	})

	// Verify connection
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := client.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("failed to connect to redis: %w", err)
	}

	return &RedisCache{client: client}, nil
}

// Get returns the cached result for a fingerprint, or nil on a miss.
func (c *RedisCache) Get(ctx context.Context, fingerprint string) (*domain.ClassificationResult, error) {
	val, err := c.client.Get(ctx, redisKeyPrefix+fingerprint).Bytes()
	if err == redis.Nil {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}

	var result domain.ClassificationResult
	if err := json.Unmarshal(val, &result); err != nil {
		return nil, err
	}
	return &result, nil
}

// Put stores a result under a fingerprint.
func (c *RedisCache) Put(ctx context.Context, fingerprint string, result *domain.ClassificationResult) error {
	data, err := json.Marshal(result)
	if err != nil {
		return err
	}
	return c.client.Set(ctx, redisKeyPrefix+fingerprint, data, 0).Err()
}

// Invalidate removes a single entry.
func (c *RedisCache) Invalidate(ctx context.Context, fingerprint string) error {
	return c.client.Del(ctx, redisKeyPrefix+fingerprint).Err()
}

// Clear removes all classification entries. Only keys under the kestrel
// prefix are touched.
func (c *RedisCache) Clear(ctx context.Context) error {
	var cursor uint64
	for {
		keys, next, err := c.client.Scan(ctx, cursor, redisKeyPrefix+"*", 500).Result()
		if err != nil {
			return err
		}
		if len(keys) > 0 {
			if err := c.client.Del(ctx, keys...).Err(); err != nil {
				return err
			}
		}
		cursor = next
		if cursor == 0 {
			return nil
		}
	}
}

// Size returns the current entry count.
func (c *RedisCache) Size(ctx context.Context) (int64, error) {
	var count int64
	var cursor uint64
	for {
		keys, next, err := c.client.Scan(ctx, cursor, redisKeyPrefix+"*", 500).Result()
		if err != nil {
			return 0, err
		}
		count += int64(len(keys))
		cursor = next
		if cursor == 0 {
			return count, nil
		}
	}
}

// Ping checks Redis connectivity.
func (c *RedisCache) Ping(ctx context.Context) error {
	return c.client.Ping(ctx).Err()
}

// Close closes the Redis connection.
func (c *RedisCache) Close() error {
	return c.client.Close()
}
