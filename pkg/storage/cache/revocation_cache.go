package cache

import (
	"context"
	"time"

	lru "github.com/hashicorp/golang-lru/v2/expirable"
	"github.com/platinummonkey/larder/pkg/observability"
	"github.com/platinummonkey/larder/pkg/storage"
)

const cacheType = "revocation"

// RevocationCache wraps a RevocationStore with an in-process LRU.
// Only positive answers are cached: a revoked token never becomes valid
// again, so a stale "revoked" entry cannot admit a request.
type RevocationCache struct {
	next    storage.RevocationStore
	cache   *lru.LRU[string, struct{}]
	metrics *observability.Metrics
}

// NewRevocationCache creates a caching decorator around next.
// size <= 0 falls back to storage.DefaultConfig().CacheSize; ttl <= 0 to CacheTTL.
func NewRevocationCache(next storage.RevocationStore, size int, ttl time.Duration, metrics *observability.Metrics) *RevocationCache {
	defaults := storage.DefaultConfig()
	if size <= 0 {
		size = defaults.CacheSize
	}
	if ttl <= 0 {
		ttl = defaults.CacheTTL
	}

	c := &RevocationCache{next: next, metrics: metrics}
	c.cache = lru.NewLRU[string, struct{}](size, func(string, struct{}) {
		metrics.RecordCacheEviction(cacheType)
	}, ttl)
	return c
}

// Revoke writes through to the backing store and caches the entry
func (c *RevocationCache) Revoke(ctx context.Context, token string, expiresAt time.Time) error {
	if err := c.next.Revoke(ctx, token, expiresAt); err != nil {
		return err
	}
	c.cache.Add(token, struct{}{})
	c.metrics.SetCacheEntries(cacheType, c.cache.Len())
	return nil
}

// IsRevoked answers from the cache when possible
func (c *RevocationCache) IsRevoked(ctx context.Context, token string) (bool, error) {
	if _, ok := c.cache.Get(token); ok {
		c.metrics.RecordCacheHit(cacheType)
		return true, nil
	}
	c.metrics.RecordCacheMiss(cacheType)

	revoked, err := c.next.IsRevoked(ctx, token)
	if err != nil {
		return false, err
	}
	if revoked {
		c.cache.Add(token, struct{}{})
		c.metrics.SetCacheEntries(cacheType, c.cache.Len())
	}
	return revoked, nil
}

// PurgeExpired delegates to the backing store; cached entries age out on their own
func (c *RevocationCache) PurgeExpired(ctx context.Context, now time.Time) (int64, error) {
	return c.next.PurgeExpired(ctx, now)
}

// HealthCheck delegates when the backing store supports it
func (c *RevocationCache) HealthCheck(ctx context.Context) error {
	if hc, ok := c.next.(storage.HealthChecker); ok {
		return hc.HealthCheck(ctx)
	}
	return nil
}

// Len returns the number of cached entries
func (c *RevocationCache) Len() int {
	return c.cache.Len()
}
