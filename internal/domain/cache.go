package domain

import (
	"context"
)

// ClassificationCache memoizes classification results keyed by content
// fingerprint. Entries are shared across sessions on purpose: a cached
// classification is valid for any session with the identical complaint
// text and identical risk table serialization, because both feed the
// fingerprint. There is no expiry policy; entries live for the process
// lifetime unless explicitly invalidated or the cache is cleared.
type ClassificationCache interface {
	// Get returns the cached result for a fingerprint.
	// Returns nil, nil on a miss.
	Get(ctx context.Context, fingerprint string) (*ClassificationResult, error)

	// Put stores a result under a fingerprint.
	Put(ctx context.Context, fingerprint string, result *ClassificationResult) error

	// Invalidate removes a single entry. Used by feedback reprocessing
	// to force a live call for a specific complaint.
	Invalidate(ctx context.Context, fingerprint string) error

	// Clear removes all entries.
	Clear(ctx context.Context) error

	// Size returns the current entry count.
	Size(ctx context.Context) (int64, error)

	// Health check
	Ping(ctx context.Context) error

	// Lifecycle
	Close() error
}

// CacheConfig holds configuration for cache initialization.
type CacheConfig struct {
	// Type is the cache type: "memory" or "redis"
	Type string

	// MaxEntries bounds the memory cache. 0 means unbounded, matching
	// the source behavior; set a bound for long-lived deployments.
	MaxEntries int

	// Redis settings
	RedisAddr     string
	RedisPassword string
	RedisDB       int
}
