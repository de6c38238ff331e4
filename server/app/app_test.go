package app

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hrygo/shopfloor/internal/profile"
	"github.com/hrygo/shopfloor/plugin/extract"
	"github.com/hrygo/shopfloor/plugin/storage/s3"
	"github.com/hrygo/shopfloor/server/inventory"
	"github.com/hrygo/shopfloor/store"
)

func testProfile() *profile.Profile {
	return &profile.Profile{
		Mode:         "dev",
		Driver:       "sqlite",
		DSN:          ":memory:",
		MediaBackend: "s3",
		S3Endpoint:   "localhost:9000",
		S3AccessKey:  "minio",
		S3SecretKey:  "minio123",
		OCREnabled:   true,
		OCRLanguages: "spa+eng",
	}
}

func TestNewWiresSession(t *testing.T) {
	ctx := context.Background()
	p := testProfile()
	require.NoError(t, p.Validate())

	a, err := New(ctx, p)
	require.NoError(t, err)
	t.Cleanup(func() { assert.NoError(t, a.Close()) })

	assert.IsType(t, &s3.Backend{}, a.Media)
	assert.IsType(t, &extract.LLMExtractor{}, a.Extractor)
	assert.NotNil(t, a.Images)
	assert.NotNil(t, a.Labels)

	require.NoError(t, a.Start(ctx))
	assert.Equal(t, inventory.StateReady, a.Inventory.State())
	assert.Empty(t, a.Inventory.GetAll())

	created, err := a.Inventory.Repository(store.KindMaterial).Create(ctx, &store.Material{Base: store.Base{Name: "Cuero negro"}})
	require.NoError(t, err)
	assert.True(t, store.Persisted(created))
	assert.Len(t, a.Inventory.GetAll(), 1)
}

func TestNewExtractorWithoutKeyUsesHeuristics(t *testing.T) {
	p := testProfile()
	e := newExtractor(p)
	m, err := e.ExtractMaterial(context.Background(), extract.Source{Text: "Hilo encerado 1mm"})
	require.NoError(t, err)
	assert.Equal(t, "Hilo encerado 1mm", m.Name)
}

func TestNewRejectsUnknownBackend(t *testing.T) {
	p := testProfile()
	p.MediaBackend = "ftp"
	_, err := New(context.Background(), p)
	assert.ErrorContains(t, err, "unknown media backend")
}
