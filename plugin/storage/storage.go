package storage

import (
	"context"
	"fmt"
	"path"
	"strings"

	"github.com/google/uuid"
	"github.com/lithammer/shortuuid/v4"
)

const (
	// BucketImages holds normalized entity photos.
	BucketImages = "images"
	// BucketQRCodes holds identifier code images.
	BucketQRCodes = "qrcodes"

	// PublicPrefix is the folder public objects live under.
	PublicPrefix = "public"

	// MaxObjectSize is the per-object limit buckets are created with.
	MaxObjectSize = 5 * 1024 * 1024
)

// Uploader stores a blob and returns its public address.
type Uploader interface {
	Upload(ctx context.Context, bucket, objectPath string, data []byte, contentType string) (string, error)
}

// BucketSpec describes a bucket the application expects to exist.
type BucketSpec struct {
	Name             string
	Public           bool
	AllowedMimeTypes []string
	SizeLimit        int64
}

// Provisioner creates missing buckets.
type Provisioner interface {
	EnsureBuckets(ctx context.Context, specs []BucketSpec) error
}

// Backend is what a media backend implements.
type Backend interface {
	Uploader
	Provisioner
}

// DefaultBuckets returns the buckets the application writes to.
func DefaultBuckets() []BucketSpec {
	return []BucketSpec{
		{Name: BucketImages, Public: true, AllowedMimeTypes: []string{"image/jpeg", "image/jpg"}, SizeLimit: MaxObjectSize},
		{Name: BucketQRCodes, Public: true, AllowedMimeTypes: []string{"image/png"}, SizeLimit: MaxObjectSize},
	}
}

// ImageObjectPath returns a random, non-content-derived name for an image.
func ImageObjectPath(contentType string) string {
	return path.Join(PublicPrefix, uuid.NewString()+ExtensionFor(contentType))
}

// CodeObjectPath names an identifier code image for an entity.
func CodeObjectPath(category, id string) string {
	return path.Join(PublicPrefix, fmt.Sprintf("qr_%s_%s_%s.png", category, sanitize(id), shortuuid.New()))
}

// ExtensionFor maps a media type to a file extension.
func ExtensionFor(contentType string) string {
	switch strings.ToLower(contentType) {
	case "image/jpeg", "image/jpg":
		return ".jpg"
	case "image/png":
		return ".png"
	case "image/webp":
		return ".webp"
	case "image/gif":
		return ".gif"
	case "image/bmp":
		return ".bmp"
	case "image/tiff":
		return ".tiff"
	}
	return ".bin"
}

func sanitize(s string) string {
	return strings.Map(func(r rune) rune {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9', r == '-', r == '_':
			return r
		}
		return '-'
	}, s)
}
