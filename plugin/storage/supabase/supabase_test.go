package supabase

import (
	"context"
	"io"
	"testing"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	storage_go "github.com/supabase-community/storage-go"

	"github.com/hrygo/shopfloor/plugin/storage"
)

type upload struct {
	bucket, path, contentType string
	size                      int
	upsert                    bool
}

type fakeAPI struct {
	uploads   []upload
	buckets   []storage_go.Bucket
	created   []string
	uploadErr error
}

func (f *fakeAPI) UploadFile(bucketID, relativePath string, data io.Reader, opts ...storage_go.FileOptions) (storage_go.FileUploadResponse, error) {
	if f.uploadErr != nil {
		return storage_go.FileUploadResponse{}, f.uploadErr
	}
	raw, _ := io.ReadAll(data)
	u := upload{bucket: bucketID, path: relativePath, size: len(raw)}
	if len(opts) > 0 {
		if opts[0].ContentType != nil {
			u.contentType = *opts[0].ContentType
		}
		if opts[0].Upsert != nil {
			u.upsert = *opts[0].Upsert
		}
	}
	f.uploads = append(f.uploads, u)
	return storage_go.FileUploadResponse{}, nil
}

func (f *fakeAPI) GetPublicUrl(bucketID, filePath string, urlOptions ...storage_go.UrlOptions) storage_go.SignedUrlResponse {
	return storage_go.SignedUrlResponse{SignedURL: "https://project.supabase.co/storage/v1/object/public/" + bucketID + "/" + filePath}
}

func (f *fakeAPI) ListBuckets() ([]storage_go.Bucket, error) {
	return f.buckets, nil
}

func (f *fakeAPI) CreateBucket(id string, options storage_go.BucketOptions) (storage_go.Bucket, error) {
	f.created = append(f.created, id)
	return storage_go.Bucket{Id: id, Name: id}, nil
}

func TestUpload(t *testing.T) {
	api := &fakeAPI{}
	b := &Backend{api: api}

	url, err := b.Upload(context.Background(), storage.BucketImages, "public/x.jpg", []byte("jpeg"), "image/jpeg")
	require.NoError(t, err)
	assert.Equal(t, "https://project.supabase.co/storage/v1/object/public/images/public/x.jpg", url)
	require.Len(t, api.uploads, 1)
	assert.Equal(t, "image/jpeg", api.uploads[0].contentType)
	assert.False(t, api.uploads[0].upsert)
	assert.Equal(t, 4, api.uploads[0].size)
}

func TestUploadFailure(t *testing.T) {
	b := &Backend{api: &fakeAPI{uploadErr: errors.New("payload too large")}}
	url, err := b.Upload(context.Background(), storage.BucketImages, "public/x.jpg", []byte("jpeg"), "image/jpeg")
	assert.Error(t, err)
	assert.Empty(t, url)
}

func TestEnsureBuckets(t *testing.T) {
	api := &fakeAPI{buckets: []storage_go.Bucket{{Id: storage.BucketImages, Name: storage.BucketImages}}}
	b := &Backend{api: api}

	require.NoError(t, b.EnsureBuckets(context.Background(), storage.DefaultBuckets()))
	assert.Equal(t, []string{storage.BucketQRCodes}, api.created)
	require.Len(t, api.uploads, 1)
	assert.Equal(t, "public/.keep", api.uploads[0].path)
}
