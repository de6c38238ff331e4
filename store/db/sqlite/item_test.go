package sqlite

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hrygo/shopfloor/internal/profile"
	"github.com/hrygo/shopfloor/store"
)

func newTestStore(t *testing.T) (*store.Store, *DB) {
	t.Helper()
	driver, err := NewDB(&profile.Profile{Mode: "dev", Driver: "sqlite", DSN: ":memory:"})
	require.NoError(t, err)
	db := driver.(*DB)

	clock := time.Date(2024, 3, 1, 9, 0, 0, 0, time.UTC)
	db.now = func() time.Time {
		clock = clock.Add(time.Second)
		return clock
	}
	seq := 0
	db.newID = func() string {
		seq++
		return fmt.Sprintf("id-%d", seq)
	}

	s := store.New(driver, nil)
	t.Cleanup(func() { s.Close() })
	return s, db
}

func TestItemLifecycle(t *testing.T) {
	ctx := context.Background()
	s, _ := newTestStore(t)

	for _, name := range []string{"Cuero negro", "Hilo encerado", "Cuero marrón"} {
		_, err := s.CreateItem(ctx, &store.Material{Base: store.Base{Name: name}, Stock: "10"})
		require.NoError(t, err)
	}

	t.Run("list newest first", func(t *testing.T) {
		list, err := s.ListItems(ctx, &store.FindItem{Kind: store.KindMaterial})
		require.NoError(t, err)
		require.Len(t, list, 3)
		assert.Equal(t, "Cuero marrón", list[0].Common().Name)
		assert.Equal(t, "Cuero negro", list[2].Common().Name)
		assert.True(t, list[0].Common().CreatedAt.After(list[1].Common().CreatedAt))
	})

	t.Run("name filter is case-insensitive substring", func(t *testing.T) {
		q := "CUERO"
		list, err := s.ListItems(ctx, &store.FindItem{Kind: store.KindMaterial, NameSearch: &q})
		require.NoError(t, err)
		require.Len(t, list, 2)
		for _, e := range list {
			assert.Contains(t, e.Common().Name, "uero")
		}
	})

	t.Run("wildcards match literally", func(t *testing.T) {
		q := "%"
		list, err := s.ListItems(ctx, &store.FindItem{Kind: store.KindMaterial, NameSearch: &q})
		require.NoError(t, err)
		assert.Empty(t, list)
	})

	t.Run("update returns merged row", func(t *testing.T) {
		updated, err := s.UpdateItem(ctx, &store.UpdateItem{
			Kind:  store.KindMaterial,
			ID:    "id-2",
			Patch: store.Patch{store.ColumnQRCode: "https://cdn/qr.png", "stock": "7"},
		})
		require.NoError(t, err)
		m := updated.(*store.Material)
		assert.Equal(t, "Hilo encerado", m.Name)
		assert.Equal(t, "https://cdn/qr.png", m.QRCode)
		assert.Equal(t, "7", m.Stock)
	})

	t.Run("get by id", func(t *testing.T) {
		e, err := s.GetItem(ctx, store.KindMaterial, "id-1")
		require.NoError(t, err)
		assert.Equal(t, "Cuero negro", e.Common().Name)

		_, err = s.GetItem(ctx, store.KindMaterial, "missing")
		assert.True(t, store.IsNotFound(err))
	})

	t.Run("update missing row", func(t *testing.T) {
		_, err := s.UpdateItem(ctx, &store.UpdateItem{Kind: store.KindMaterial, ID: "missing", Patch: store.Patch{"stock": "1"}})
		assert.True(t, store.IsNotFound(err))
	})

	t.Run("update rejects unknown column", func(t *testing.T) {
		_, err := s.UpdateItem(ctx, &store.UpdateItem{Kind: store.KindMaterial, ID: "id-1", Patch: store.Patch{"modelo": "x"}})
		require.Error(t, err)
		assert.False(t, store.IsNotFound(err))
		msg, _ := store.Detail(err)
		assert.Contains(t, msg, "unknown column")
	})
}

func TestProductColumns(t *testing.T) {
	ctx := context.Background()
	s, _ := newTestStore(t)

	created, err := s.CreateItem(ctx, &store.Product{
		Base:     store.Base{Name: "Bota Chelsea"},
		Price:    "120",
		Sizes:    store.SizeList{{Size: "42", Stock: 3, MinStock: 1}},
		Featured: true,
	})
	require.NoError(t, err)
	p := created.(*store.Product)
	assert.NotEmpty(t, p.ID)
	assert.True(t, p.Featured)
	require.Len(t, p.Sizes, 1)
	assert.Equal(t, "42", p.Sizes[0].Size)

	updated, err := s.UpdateItem(ctx, &store.UpdateItem{
		Kind:  store.KindProduct,
		ID:    p.ID,
		Patch: store.Patch{"tallas": []store.SizeStock{{Size: "40", Stock: 2}, {Size: "41", Stock: 0}}, "destacado": false},
	})
	require.NoError(t, err)
	p = updated.(*store.Product)
	assert.False(t, p.Featured)
	assert.Len(t, p.Sizes, 2)

	tools, err := s.ListItems(ctx, &store.FindItem{Kind: store.KindTool})
	require.NoError(t, err)
	assert.Empty(t, tools)
}
