// Package app builds the inventory session from a profile: one store, one
// media backend, one dedup cache and one aggregator per process.
package app

import (
	"context"
	stderrors "errors"
	"log/slog"

	"github.com/pkg/errors"

	"github.com/hrygo/shopfloor/internal/profile"
	"github.com/hrygo/shopfloor/plugin/extract"
	"github.com/hrygo/shopfloor/plugin/ocr"
	"github.com/hrygo/shopfloor/plugin/qrcode"
	"github.com/hrygo/shopfloor/plugin/storage"
	"github.com/hrygo/shopfloor/plugin/storage/s3"
	storagesupabase "github.com/hrygo/shopfloor/plugin/storage/supabase"
	"github.com/hrygo/shopfloor/plugin/textextract"
	"github.com/hrygo/shopfloor/server/internal/observability"
	"github.com/hrygo/shopfloor/server/inventory"
	"github.com/hrygo/shopfloor/server/label"
	"github.com/hrygo/shopfloor/server/media"
	"github.com/hrygo/shopfloor/server/stats"
	"github.com/hrygo/shopfloor/store"
	"github.com/hrygo/shopfloor/store/cache"
	"github.com/hrygo/shopfloor/store/db"
	dbsupabase "github.com/hrygo/shopfloor/store/db/supabase"
)

// App holds every component of an inventory session.
type App struct {
	Profile   *profile.Profile
	Store     *store.Store
	Media     storage.Backend
	Dedup     *media.Dedup
	Images    *media.Pipeline
	Encoder   *qrcode.Encoder
	Labels    *label.Service
	Extractor extract.Extractor
	Inventory *inventory.Aggregator
	Stats     *stats.Collector
	Metrics   *observability.Metrics
}

// New wires the components described by p. p must have been validated.
// Nothing is fetched until Start.
func New(ctx context.Context, p *profile.Profile) (*App, error) {
	driver, err := db.NewDBDriver(p)
	if err != nil {
		return nil, err
	}
	a := &App{
		Profile: p,
		Store:   store.New(driver, p),
		Metrics: observability.NewMetrics(),
	}

	a.Media, err = newMediaBackend(p, driver)
	if err != nil {
		a.Store.Close()
		return nil, err
	}
	if p.EnsureBucketsOnRun {
		if err := a.Media.EnsureBuckets(ctx, storage.DefaultBuckets()); err != nil {
			slog.Warn("failed to ensure media buckets", "backend", p.MediaBackend, "error", err)
		}
	}

	a.Dedup = media.NewDedup(newImageCache(p), p.ImageCacheClear)
	a.Images = media.NewPipeline(a.Dedup, media.NewNormalizer(media.DefaultNormalizerConfig()), a.Media, media.WithMetrics(a.Metrics))
	a.Encoder = qrcode.NewEncoder(nil)
	a.Labels = label.NewService(a.Encoder, a.Media, a.Metrics)
	a.Extractor = newExtractor(p)
	a.Inventory = inventory.NewAggregator(a.Store, a.Labels, inventory.Config{Metrics: a.Metrics})
	a.Stats = stats.NewCollector(a.Inventory)
	return a, nil
}

// Start loads the inventory and starts the background loops.
func (a *App) Start(ctx context.Context) error {
	a.Dedup.Start()
	return a.Inventory.Start(ctx)
}

// Close stops background work and releases connections.
func (a *App) Close() error {
	return stderrors.Join(
		a.Inventory.Close(),
		a.Dedup.Close(),
		a.Store.Close(),
	)
}

func newMediaBackend(p *profile.Profile, driver store.Driver) (storage.Backend, error) {
	switch p.MediaBackend {
	case "supabase":
		// Share the REST client when the entity store is Supabase too.
		if d, ok := driver.(*dbsupabase.DB); ok {
			return storagesupabase.NewFromClient(d.Client()), nil
		}
		return storagesupabase.New(p.SupabaseURL, p.SupabaseKey)
	case "s3":
		return s3.New(s3.Config{
			Endpoint:  p.S3Endpoint,
			AccessKey: p.S3AccessKey,
			SecretKey: p.S3SecretKey,
			Region:    p.S3Region,
			UseSSL:    p.S3UseSSL,
			PublicURL: p.S3PublicURL,
		})
	}
	return nil, errors.Errorf("unknown media backend %q", p.MediaBackend)
}

// newImageCache returns the dedup cache, with a Redis tier when configured
// and reachable.
func newImageCache(p *profile.Profile) *cache.TieredCache {
	cfg := cache.DefaultTieredConfig()
	cfg.L2TTL = p.ImageCacheClear
	if p.IsRedisEnabled() {
		redisCfg := cache.DefaultRedisConfig()
		redisCfg.Addr = p.RedisAddr
		redisCfg.Password = p.RedisPassword
		redisCfg.DB = p.RedisDB
		redisCfg.DefaultTTL = p.ImageCacheClear
		l2, err := cache.NewRedisCache(redisCfg)
		if err != nil {
			slog.Warn("redis unavailable, image dedup cache is memory-only", "addr", p.RedisAddr, "error", err)
		} else {
			cfg.L2 = l2
		}
	}
	return cache.NewTieredCache(cfg)
}

func newExtractor(p *profile.Profile) extract.Extractor {
	reader := &extract.Reader{}
	if p.OCREnabled {
		reader.Images = ocr.NewClient(&ocr.Config{
			TesseractPath: p.TesseractPath,
			DataPath:      p.TessdataPath,
			Languages:     p.OCRLanguages,
		})
	}
	if p.TextExtractEnabled {
		reader.Documents = textextract.NewClient(&textextract.Config{TikaServerURL: p.TikaServerURL})
	}
	return extract.NewLLMExtractor(extract.LLMConfig{
		APIKey:            p.LLMAPIKey,
		BaseURL:           p.LLMBaseURL,
		Model:             p.LLMModel,
		RequestsPerSecond: p.ExtractRPS,
	}, reader)
}
