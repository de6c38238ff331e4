package cache

import (
	"context"
	"sync"
	"time"
)

// Config configures the in-memory cache.
type Config struct {
	// DefaultTTL applies to Set; zero keeps entries until cleared.
	DefaultTTL time.Duration
	// MaxItems bounds the cache; the oldest entry is evicted first. Zero means unbounded.
	MaxItems int
}

type item struct {
	value     string
	storedAt  time.Time
	expiresAt time.Time
}

// Cache is a mutex-guarded in-memory string cache.
type Cache struct {
	mu    sync.RWMutex
	data  map[string]item
	cfg   Config
	clock func() time.Time
}

// New creates an in-memory cache.
func New(cfg Config) *Cache {
	return &Cache{
		data:  make(map[string]item),
		cfg:   cfg,
		clock: time.Now,
	}
}

func (c *Cache) Get(_ context.Context, key string) (string, bool) {
	c.mu.RLock()
	it, ok := c.data[key]
	c.mu.RUnlock()
	if !ok {
		return "", false
	}
	if !it.expiresAt.IsZero() && c.clock().After(it.expiresAt) {
		c.mu.Lock()
		delete(c.data, key)
		c.mu.Unlock()
		return "", false
	}
	return it.value, true
}

func (c *Cache) Set(ctx context.Context, key, value string) {
	c.SetWithTTL(ctx, key, value, c.cfg.DefaultTTL)
}

func (c *Cache) SetWithTTL(_ context.Context, key, value string, ttl time.Duration) {
	now := c.clock()
	it := item{value: value, storedAt: now}
	if ttl > 0 {
		it.expiresAt = now.Add(ttl)
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	if _, exists := c.data[key]; !exists && c.cfg.MaxItems > 0 && len(c.data) >= c.cfg.MaxItems {
		c.evictOldestLocked()
	}
	c.data[key] = it
}

func (c *Cache) Delete(_ context.Context, key string) {
	c.mu.Lock()
	delete(c.data, key)
	c.mu.Unlock()
}

func (c *Cache) Clear(_ context.Context) {
	c.mu.Lock()
	c.data = make(map[string]item)
	c.mu.Unlock()
}

func (c *Cache) Size() int64 {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return int64(len(c.data))
}

func (c *Cache) Close() error {
	return nil
}

func (c *Cache) evictOldestLocked() {
	var oldestKey string
	var oldest time.Time
	for k, it := range c.data {
		if oldestKey == "" || it.storedAt.Before(oldest) {
			oldestKey, oldest = k, it.storedAt
		}
	}
	delete(c.data, oldestKey)
}
