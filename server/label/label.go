// Package label gives inventory rows a scannable identifier code stored
// in the media store and referenced from the row's QR_Code column.
package label

import (
	"context"
	"log/slog"
	"strings"
	"time"

	"github.com/hrygo/shopfloor/plugin/qrcode"
	"github.com/hrygo/shopfloor/plugin/storage"
	inverrors "github.com/hrygo/shopfloor/server/internal/errors"
	"github.com/hrygo/shopfloor/server/internal/observability"
	"github.com/hrygo/shopfloor/store"
)

// Records is the slice of a repository the labeler needs.
type Records interface {
	Get(ctx context.Context, id string) (store.Entity, error)
	UpdateByID(ctx context.Context, id string, patch store.Patch) (store.Entity, error)
}

// Service encodes, uploads and records identifier codes.
type Service struct {
	encoder  *qrcode.Encoder
	uploader storage.Uploader
	metrics  *observability.Metrics
	logger   *slog.Logger
}

func NewService(encoder *qrcode.Encoder, uploader storage.Uploader, metrics *observability.Metrics) *Service {
	if encoder == nil {
		encoder = qrcode.NewEncoder(nil)
	}
	if metrics == nil {
		metrics = observability.GlobalMetrics()
	}
	return &Service{
		encoder:  encoder,
		uploader: uploader,
		metrics:  metrics,
		logger:   slog.Default(),
	}
}

// EncodeAndPersist returns the code address of row id, creating it when the
// row has none. A row that already has an address is returned as is, with no
// encoding or upload. Any failure yields "" and a coded error; callers may
// treat it as "no code".
func (s *Service) EncodeAndPersist(ctx context.Context, category store.Kind, id string, records Records) (url string, err error) {
	op := observability.NewOpContext(s.logger, "label.encode", string(category))
	start := time.Now()
	defer func() {
		s.metrics.RecordOp("label.encode", time.Since(start), err)
	}()

	if !category.Valid() || strings.TrimSpace(id) == "" {
		return "", inverrors.InvalidArgument("category and id are required").
			WithContext("category", string(category)).
			WithContext("id", id)
	}
	if records == nil || s.uploader == nil {
		return "", inverrors.InvalidArgument("labeler is not configured")
	}

	current, err := records.Get(ctx, id)
	if err != nil {
		op.Error("failed to read row", err, slog.String("id", id))
		code := inverrors.ErrCodeRemoteStore
		if store.IsNotFound(err) {
			code = inverrors.ErrCodeNotFound
		}
		return "", inverrors.Wrap(err, code, "failed to read row").WithContext("id", id)
	}
	if existing := current.Common().QRCode; existing != "" {
		op.Debug("row already labeled", slog.String("id", id))
		return existing, nil
	}

	png, err := s.encoder.PNG(string(category), id)
	if err != nil {
		op.Error("failed to encode identifier", err, slog.String("id", id))
		return "", inverrors.Encoding("failed to encode identifier", err).WithContext("id", id)
	}

	objectPath := storage.CodeObjectPath(string(category), id)
	url, err = s.uploader.Upload(ctx, storage.BucketQRCodes, objectPath, png, "image/png")
	if err != nil {
		op.Error("failed to upload identifier", err, slog.String("path", objectPath))
		return "", inverrors.Upload("failed to upload identifier", err).WithContext("path", objectPath)
	}

	if _, err = records.UpdateByID(ctx, id, store.Patch{store.ColumnQRCode: url}); err != nil {
		op.Error("failed to record identifier address", err, slog.String("id", id))
		return "", inverrors.RemoteStore("failed to record identifier address", err).WithContext("id", id)
	}

	op.Done("identifier recorded", slog.String("id", id), slog.String("path", objectPath))
	return url, nil
}
