package media

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/hrygo/shopfloor/store/cache"
)

// DefaultClearInterval is how often the local dedup cache is wiped.
const DefaultClearInterval = 2 * time.Hour

// Dedup maps file identity keys to the public address of their upload,
// so re-selecting the same file does not upload it again.
type Dedup struct {
	cache         *cache.TieredCache
	clearInterval time.Duration

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup
	once   sync.Once
}

// NewDedup wraps a tiered cache. A nil cache gets a memory-only one.
func NewDedup(c *cache.TieredCache, clearInterval time.Duration) *Dedup {
	if c == nil {
		c = cache.NewTieredCache(nil)
	}
	if clearInterval <= 0 {
		clearInterval = DefaultClearInterval
	}
	ctx, cancel := context.WithCancel(context.Background())
	return &Dedup{
		cache:         c,
		clearInterval: clearInterval,
		ctx:           ctx,
		cancel:        cancel,
	}
}

// Lookup returns the address recorded for key.
func (d *Dedup) Lookup(ctx context.Context, key string) (string, bool) {
	return d.cache.Get(ctx, key)
}

// Remember records the address of an uploaded file.
func (d *Dedup) Remember(ctx context.Context, key, url string) {
	if key == "" || url == "" {
		return
	}
	d.cache.Set(ctx, key, url)
}

// Start launches the clear loop. It runs until Close.
func (d *Dedup) Start() {
	d.once.Do(func() {
		d.wg.Add(1)
		go d.clearLoop()
	})
}

// Close stops the clear loop and releases the cache.
func (d *Dedup) Close() error {
	d.cancel()
	d.wg.Wait()
	return d.cache.Close()
}

// clearLoop wipes the local tier on a fixed wall-clock interval.
func (d *Dedup) clearLoop() {
	defer d.wg.Done()

	ticker := time.NewTicker(d.clearInterval)
	defer ticker.Stop()

	for {
		select {
		case <-d.ctx.Done():
			return
		case <-ticker.C:
			d.cache.ClearLocal(d.ctx)
			slog.Debug("image dedup cache cleared")
		}
	}
}
