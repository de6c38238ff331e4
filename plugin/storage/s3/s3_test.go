package s3

import (
	"context"
	"io"
	"testing"

	"github.com/minio/minio-go/v7"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hrygo/shopfloor/plugin/storage"
)

type fakeAPI struct {
	objects  map[string]int
	types    map[string]string
	existing map[string]bool
	made     []string
	policies map[string]string
}

func newFakeAPI() *fakeAPI {
	return &fakeAPI{objects: map[string]int{}, types: map[string]string{}, existing: map[string]bool{}, policies: map[string]string{}}
}

func (f *fakeAPI) PutObject(ctx context.Context, bucketName, objectName string, reader io.Reader, objectSize int64, opts minio.PutObjectOptions) (minio.UploadInfo, error) {
	raw, _ := io.ReadAll(reader)
	f.objects[bucketName+"/"+objectName] = len(raw)
	f.types[bucketName+"/"+objectName] = opts.ContentType
	return minio.UploadInfo{Bucket: bucketName, Key: objectName, Size: objectSize}, nil
}

func (f *fakeAPI) BucketExists(ctx context.Context, bucketName string) (bool, error) {
	return f.existing[bucketName], nil
}

func (f *fakeAPI) MakeBucket(ctx context.Context, bucketName string, opts minio.MakeBucketOptions) error {
	f.made = append(f.made, bucketName)
	f.existing[bucketName] = true
	return nil
}

func (f *fakeAPI) SetBucketPolicy(ctx context.Context, bucketName, policy string) error {
	f.policies[bucketName] = policy
	return nil
}

func TestNewDefaultsPublicURLToEndpoint(t *testing.T) {
	b, err := New(Config{Endpoint: "localhost:9000", AccessKey: "minio", SecretKey: "minio123"})
	require.NoError(t, err)
	assert.Equal(t, "http://localhost:9000", b.publicURL)

	_, err = New(Config{})
	assert.Error(t, err)
}

func TestUpload(t *testing.T) {
	api := newFakeAPI()
	b := &Backend{api: api, publicURL: "https://cdn.example.com"}

	url, err := b.Upload(context.Background(), storage.BucketQRCodes, "public/qr.png", []byte("png!"), "image/png")
	require.NoError(t, err)
	assert.Equal(t, "https://cdn.example.com/qrcodes/public/qr.png", url)
	assert.Equal(t, 4, api.objects["qrcodes/public/qr.png"])
	assert.Equal(t, "image/png", api.types["qrcodes/public/qr.png"])
}

func TestEnsureBuckets(t *testing.T) {
	api := newFakeAPI()
	api.existing[storage.BucketImages] = true
	b := &Backend{api: api}

	require.NoError(t, b.EnsureBuckets(context.Background(), storage.DefaultBuckets()))
	assert.Equal(t, []string{storage.BucketQRCodes}, api.made)
	assert.Contains(t, api.policies[storage.BucketQRCodes], "arn:aws:s3:::qrcodes/public/*")
}
