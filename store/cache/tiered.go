package cache

import (
	"context"
	"time"

	"github.com/pkg/errors"
)

// TieredCache implements a two-tier caching strategy:
// - L1: In-memory cache (fast, process-local, always on)
// - L2: Redis cache (shared, OPTIONAL)
type TieredCache struct {
	l1    *Cache
	l2    RedisCacheInterface
	l2TTL time.Duration
}

// TieredCacheConfig holds the configuration for the tiered cache.
type TieredCacheConfig struct {
	L1MaxItems int           // Max items in L1 memory cache, zero for unbounded
	L1TTL      time.Duration // TTL for L1 entries, zero keeps them until cleared
	L2TTL      time.Duration // TTL for L2 Redis entries
	L2         RedisCacheInterface
}

// DefaultTieredConfig returns a memory-only configuration.
func DefaultTieredConfig() *TieredCacheConfig {
	return &TieredCacheConfig{
		L2TTL: 2 * time.Hour,
	}
}

// NewTieredCache creates a new tiered cache. A nil L2 disables the Redis tier.
func NewTieredCache(config *TieredCacheConfig) *TieredCache {
	if config == nil {
		config = DefaultTieredConfig()
	}
	l2 := config.L2
	if l2 == nil {
		l2 = NewNilRedisCache()
	}
	return &TieredCache{
		l1:    New(Config{DefaultTTL: config.L1TTL, MaxItems: config.L1MaxItems}),
		l2:    l2,
		l2TTL: config.L2TTL,
	}
}

// Get checks L1, then L2. L2 hits are promoted to L1.
func (t *TieredCache) Get(ctx context.Context, key string) (string, bool) {
	if value, found := t.l1.Get(ctx, key); found {
		return value, true
	}
	if value, found := t.l2.Get(ctx, key); found {
		t.l1.Set(ctx, key, value)
		return value, true
	}
	return "", false
}

// Set stores a value in both tiers.
func (t *TieredCache) Set(ctx context.Context, key, value string) {
	t.l1.Set(ctx, key, value)
	t.l2.SetWithTTL(ctx, key, value, t.l2TTL)
}

// Delete removes a value from both tiers.
func (t *TieredCache) Delete(ctx context.Context, key string) {
	t.l1.Delete(ctx, key)
	t.l2.Delete(ctx, key)
}

// ClearLocal drops the memory tier only; L2 entries expire on their own TTL.
func (t *TieredCache) ClearLocal(ctx context.Context) {
	t.l1.Clear(ctx)
}

// Clear clears both tiers.
func (t *TieredCache) Clear(ctx context.Context) {
	t.l1.Clear(ctx)
	t.l2.Clear(ctx)
}

// Stats returns cache statistics.
func (t *TieredCache) Stats() map[string]any {
	_, nilL2 := t.l2.(*NilRedisCache)
	return map[string]any{
		"l1_size":    t.l1.Size(),
		"l2_enabled": !nilL2,
	}
}

// Close closes all cache connections.
func (t *TieredCache) Close() error {
	var errs []error
	if err := t.l2.Close(); err != nil {
		errs = append(errs, err)
	}
	if err := t.l1.Close(); err != nil {
		errs = append(errs, err)
	}
	if len(errs) > 0 {
		return errors.Errorf("multiple errors: %v", errs)
	}
	return nil
}
