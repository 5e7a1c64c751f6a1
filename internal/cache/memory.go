// Package cache provides classification cache implementations for Kestrel.
package cache

import (
	"container/list"
	"context"
	"sync"

	"github.com/opensource-finance/kestrel/internal/domain"
)

// MemoryCache is a thread-safe in-process classification cache.
// With maxEntries == 0 it is a pure memoization table that only shrinks
// on explicit invalidation or clear, matching the source behavior. With
// a positive bound it evicts least-recently-used entries, the
// recommended hardening for long-lived deployments.
type MemoryCache struct {
	mu         sync.Mutex
	maxEntries int
	items      map[string]*list.Element
	order      *list.List
}

type cacheEntry struct {
	fingerprint string
	result      domain.ClassificationResult
}

// NewMemoryCache creates a new in-memory cache. maxEntries == 0 means
// unbounded.
func NewMemoryCache(maxEntries int) *MemoryCache {
	if maxEntries < 0 {
		maxEntries = 0
	}
	return &MemoryCache{
		maxEntries: maxEntries,
		items:      make(map[string]*list.Element),
		order:      list.New(),
	}
}

// Get returns the cached result for a fingerprint, or nil on a miss.
func (c *MemoryCache) Get(ctx context.Context, fingerprint string) (*domain.ClassificationResult, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	elem, ok := c.items[fingerprint]
	if !ok {
		return nil, nil
	}

	c.order.MoveToFront(elem)
	result := elem.Value.(*cacheEntry).result
	return &result, nil
}

// Put stores a result under a fingerprint.
func (c *MemoryCache) Put(ctx context.Context, fingerprint string, result *domain.ClassificationResult) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if elem, ok := c.items[fingerprint]; ok {
		c.order.MoveToFront(elem)
		elem.Value.(*cacheEntry).result = *result
		return nil
	}

	elem := c.order.PushFront(&cacheEntry{fingerprint: fingerprint, result: *result})
	c.items[fingerprint] = elem

	if c.maxEntries > 0 {
		for c.order.Len() > c.maxEntries {
			c.removeOldest()
		}
	}

	return nil
}

// Invalidate removes a single entry. Removing an absent fingerprint is
// not an error.
func (c *MemoryCache) Invalidate(ctx context.Context, fingerprint string) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if elem, ok := c.items[fingerprint]; ok {
		c.removeElement(elem)
	}
	return nil
}

// Clear removes all entries.
func (c *MemoryCache) Clear(ctx context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.items = make(map[string]*list.Element)
	c.order = list.New()
	return nil
}

// Size returns the current entry count.
func (c *MemoryCache) Size(ctx context.Context) (int64, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return int64(c.order.Len()), nil
}

// Ping checks cache health.
func (c *MemoryCache) Ping(ctx context.Context) error {
	return nil
}

// Close cleans up the cache.
func (c *MemoryCache) Close() error {
	return c.Clear(context.Background())
}

func (c *MemoryCache) removeElement(elem *list.Element) {
	c.order.Remove(elem)
	entry := elem.Value.(*cacheEntry)
	delete(c.items, entry.fingerprint)
}

func (c *MemoryCache) removeOldest() {
	elem := c.order.Back()
	if elem != nil {
		c.removeElement(elem)
	}
}
