package supabase

import (
	"bytes"
	"context"
	"io"
	"log/slog"
	"strconv"

	"github.com/pkg/errors"
	storage_go "github.com/supabase-community/storage-go"
	"github.com/supabase-community/supabase-go"

	"github.com/hrygo/shopfloor/plugin/storage"
)

// objectAPI is the part of the storage client the backend uses.
type objectAPI interface {
	UploadFile(bucketID, relativePath string, data io.Reader, fileOptions ...storage_go.FileOptions) (storage_go.FileUploadResponse, error)
	GetPublicUrl(bucketID, filePath string, urlOptions ...storage_go.UrlOptions) storage_go.SignedUrlResponse
	ListBuckets() ([]storage_go.Bucket, error)
	CreateBucket(id string, options storage_go.BucketOptions) (storage_go.Bucket, error)
}

// Backend stores media in Supabase Storage.
type Backend struct {
	api objectAPI
}

var _ storage.Backend = (*Backend)(nil)

// New creates a backend with its own client.
func New(url, key string) (*Backend, error) {
	client, err := supabase.NewClient(url, key, nil)
	if err != nil {
		return nil, errors.Wrap(err, "failed to create supabase client")
	}
	return NewFromClient(client), nil
}

// NewFromClient reuses an existing client, e.g. the one the store driver built.
func NewFromClient(client *supabase.Client) *Backend {
	return &Backend{api: client.Storage}
}

// Upload writes a new object; existing objects are never overwritten.
func (b *Backend) Upload(ctx context.Context, bucket, objectPath string, data []byte, contentType string) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	upsert := false
	cacheControl := "3600"
	_, err := b.api.UploadFile(bucket, objectPath, bytes.NewReader(data), storage_go.FileOptions{
		ContentType:  &contentType,
		CacheControl: &cacheControl,
		Upsert:       &upsert,
	})
	if err != nil {
		return "", errors.Wrapf(err, "failed to upload %s/%s", bucket, objectPath)
	}

	publicURL := b.api.GetPublicUrl(bucket, objectPath).SignedURL
	if publicURL == "" {
		return "", errors.Errorf("no public url for %s/%s", bucket, objectPath)
	}
	return publicURL, nil
}

// EnsureBuckets creates every missing bucket. Existing buckets are left as they are.
func (b *Backend) EnsureBuckets(ctx context.Context, specs []storage.BucketSpec) error {
	existing, err := b.api.ListBuckets()
	if err != nil {
		return errors.Wrap(err, "failed to list buckets")
	}
	have := make(map[string]bool, len(existing))
	for _, bucket := range existing {
		have[bucket.Name] = true
		have[bucket.Id] = true
	}

	for _, spec := range specs {
		if err := ctx.Err(); err != nil {
			return err
		}
		if have[spec.Name] {
			continue
		}
		_, err := b.api.CreateBucket(spec.Name, storage_go.BucketOptions{
			Public:           spec.Public,
			FileSizeLimit:    strconv.FormatInt(spec.SizeLimit, 10),
			AllowedMimeTypes: spec.AllowedMimeTypes,
		})
		if err != nil {
			return errors.Wrapf(err, "failed to create bucket %s", spec.Name)
		}
		slog.Info("bucket created", "bucket", spec.Name)

		// Placeholder so the public folder shows up in the dashboard.
		upsert := true
		if _, err := b.api.UploadFile(spec.Name, storage.PublicPrefix+"/.keep", bytes.NewReader(nil), storage_go.FileOptions{Upsert: &upsert}); err != nil {
			slog.Warn("failed to create public folder", "bucket", spec.Name, "error", err)
		}
	}
	return nil
}
