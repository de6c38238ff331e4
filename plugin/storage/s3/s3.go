package s3

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"log/slog"
	"strings"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"
	"github.com/pkg/errors"

	"github.com/hrygo/shopfloor/plugin/storage"
)

// Config holds the S3-compatible endpoint settings.
type Config struct {
	Endpoint  string
	AccessKey string
	SecretKey string
	Region    string
	UseSSL    bool
	// PublicURL is the base public objects are served from. Defaults to the endpoint.
	PublicURL string
}

// objectAPI is the part of the minio client the backend uses.
type objectAPI interface {
	PutObject(ctx context.Context, bucketName, objectName string, reader io.Reader, objectSize int64, opts minio.PutObjectOptions) (minio.UploadInfo, error)
	BucketExists(ctx context.Context, bucketName string) (bool, error)
	MakeBucket(ctx context.Context, bucketName string, opts minio.MakeBucketOptions) error
	SetBucketPolicy(ctx context.Context, bucketName, policy string) error
}

// Backend stores media in an S3-compatible object store (MinIO, AWS S3, R2).
type Backend struct {
	api       objectAPI
	region    string
	publicURL string
}

var _ storage.Backend = (*Backend)(nil)

func New(cfg Config) (*Backend, error) {
	if cfg.Endpoint == "" {
		return nil, errors.New("s3 endpoint is required")
	}
	client, err := minio.New(cfg.Endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(cfg.AccessKey, cfg.SecretKey, ""),
		Secure: cfg.UseSSL,
		Region: cfg.Region,
	})
	if err != nil {
		return nil, errors.Wrap(err, "failed to create s3 client")
	}

	publicURL := cfg.PublicURL
	if publicURL == "" {
		publicURL = client.EndpointURL().String()
	}
	return &Backend{
		api:       client,
		region:    cfg.Region,
		publicURL: strings.TrimRight(publicURL, "/"),
	}, nil
}

func (b *Backend) Upload(ctx context.Context, bucket, objectPath string, data []byte, contentType string) (string, error) {
	_, err := b.api.PutObject(ctx, bucket, objectPath, bytes.NewReader(data), int64(len(data)), minio.PutObjectOptions{
		ContentType:  contentType,
		CacheControl: "max-age=3600",
	})
	if err != nil {
		return "", errors.Wrapf(err, "failed to upload %s/%s", bucket, objectPath)
	}
	return fmt.Sprintf("%s/%s/%s", b.publicURL, bucket, objectPath), nil
}

// publicReadPolicy grants anonymous reads under the public prefix.
func publicReadPolicy(bucket string) string {
	return fmt.Sprintf(`{"Version":"2012-10-17","Statement":[{"Effect":"Allow","Principal":{"AWS":["*"]},"Action":["s3:GetObject"],"Resource":["arn:aws:s3:::%s/%s/*"]}]}`, bucket, storage.PublicPrefix)
}

func (b *Backend) EnsureBuckets(ctx context.Context, specs []storage.BucketSpec) error {
	for _, spec := range specs {
		exists, err := b.api.BucketExists(ctx, spec.Name)
		if err != nil {
			return errors.Wrapf(err, "failed to check bucket %s", spec.Name)
		}
		if exists {
			continue
		}
		if err := b.api.MakeBucket(ctx, spec.Name, minio.MakeBucketOptions{Region: b.region}); err != nil {
			return errors.Wrapf(err, "failed to create bucket %s", spec.Name)
		}
		if spec.Public {
			if err := b.api.SetBucketPolicy(ctx, spec.Name, publicReadPolicy(spec.Name)); err != nil {
				return errors.Wrapf(err, "failed to set policy on bucket %s", spec.Name)
			}
		}
		slog.Info("bucket created", "bucket", spec.Name)
	}
	return nil
}
