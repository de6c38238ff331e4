package media

import (
	"context"
	"log/slog"
	"time"

	"github.com/hrygo/shopfloor/plugin/storage"
	inverrors "github.com/hrygo/shopfloor/server/internal/errors"
	"github.com/hrygo/shopfloor/server/internal/observability"
)

// Pipeline takes a user-selected image to a public address:
// dedup lookup, normalization, upload.
type Pipeline struct {
	dedup      *Dedup
	normalizer *Normalizer
	uploader   storage.Uploader
	bucket     string
	metrics    *observability.Metrics
	logger     *slog.Logger
}

// PipelineOption customizes a Pipeline.
type PipelineOption func(*Pipeline)

// WithBucket overrides the destination bucket.
func WithBucket(bucket string) PipelineOption {
	return func(p *Pipeline) { p.bucket = bucket }
}

// WithMetrics sets the metrics collector.
func WithMetrics(m *observability.Metrics) PipelineOption {
	return func(p *Pipeline) { p.metrics = m }
}

// WithLogger sets the logger.
func WithLogger(l *slog.Logger) PipelineOption {
	return func(p *Pipeline) { p.logger = l }
}

func NewPipeline(dedup *Dedup, normalizer *Normalizer, uploader storage.Uploader, opts ...PipelineOption) *Pipeline {
	if dedup == nil {
		dedup = NewDedup(nil, 0)
	}
	if normalizer == nil {
		normalizer = NewNormalizer(DefaultNormalizerConfig())
	}
	p := &Pipeline{
		dedup:      dedup,
		normalizer: normalizer,
		uploader:   uploader,
		bucket:     storage.BucketImages,
		metrics:    observability.GlobalMetrics(),
		logger:     slog.Default(),
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// UploadImage returns the public address of f, uploading it only when its
// identity key has not been seen. On failure it returns "" and a coded error;
// callers may treat the photo as absent and carry on.
func (p *Pipeline) UploadImage(ctx context.Context, f File) (url string, err error) {
	op := observability.NewOpContext(p.logger, "upload.image", "")
	start := time.Now()
	defer func() {
		p.metrics.RecordOp("upload.image", time.Since(start), err)
	}()

	contentType := MediaType(f)
	if !IsImage(contentType) {
		err = inverrors.InvalidArgument("file is not an image").
			WithContext("name", f.Name).
			WithContext("content_type", contentType)
		op.Warn("rejected non-image upload", slog.String("name", f.Name), slog.String("content_type", contentType))
		return "", err
	}

	key := Identify(f)
	if cached, ok := p.dedup.Lookup(ctx, key); ok {
		p.metrics.RecordDedupHit()
		op.Debug("image dedup hit", slog.String("key", key))
		return cached, nil
	}
	p.metrics.RecordDedupMiss()

	blob := p.normalizer.Normalize(ctx, f)
	if blob.ContentType != CanonicalType {
		op.Warn("storing unconverted image as jpeg", slog.String("name", f.Name), slog.String("content_type", blob.ContentType))
	}
	// The images bucket only accepts JPEG; unconverted bytes are stored under the same type and name.
	objectPath := storage.ImageObjectPath(CanonicalType)

	url, err = p.uploader.Upload(ctx, p.bucket, objectPath, blob.Data, CanonicalType)
	if err != nil {
		op.Error("image upload failed", err, slog.String("name", f.Name), slog.String("path", objectPath))
		return "", inverrors.Upload("failed to upload image", err).WithContext("path", objectPath)
	}

	p.dedup.Remember(ctx, key, url)
	op.Done("image uploaded",
		slog.String("path", objectPath),
		slog.Int("bytes", len(blob.Data)),
		slog.Int("width", blob.Width),
		slog.Int("height", blob.Height))
	return url, nil
}
