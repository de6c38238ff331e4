package postgres

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hrygo/shopfloor/store"
)

type rowValues []any

func (r rowValues) Scan(dest ...any) error {
	for i, d := range dest {
		switch p := d.(type) {
		case *string:
			if i < len(r) {
				*p, _ = r[i].(string)
			}
		case *time.Time:
			*p = r[i].(time.Time)
		}
	}
	return nil
}

func TestPlaceholders(t *testing.T) {
	assert.Equal(t, "$1, $2, $3", placeholders(3))
	assert.Equal(t, "", placeholders(0))
}

func TestEscapeLike(t *testing.T) {
	assert.Equal(t, `50\% algodón\_v2 \\`, escapeLike(`50% algodón_v2 \`))
}

func TestSelectColumns(t *testing.T) {
	schema, err := store.SchemaFor(store.KindProduct)
	require.NoError(t, err)

	cols := selectColumns(schema)
	assert.Contains(t, cols, `"id"::text, "created_at"`)
	assert.Contains(t, cols, `COALESCE("QR_Code"::text, '')`)
	assert.Contains(t, cols, `COALESCE("destacado", false)`)
	assert.Contains(t, cols, `COALESCE("tallas"::text, '[]')`)
	assert.Len(t, insertColumns(schema), len(schema.WritableColumns()))
}

func TestScanEntity(t *testing.T) {
	created := time.Date(2024, 3, 1, 10, 0, 0, 0, time.UTC)
	e, err := scanEntity(rowValues{"7", created, "Cuero negro", "", "https://cdn/qr.png", "REF-1"}, store.KindMaterial)
	require.NoError(t, err)

	m := e.(*store.Material)
	assert.Equal(t, "7", m.ID)
	assert.Equal(t, created, m.CreatedAt)
	assert.Equal(t, "Cuero negro", m.Name)
	assert.Equal(t, "https://cdn/qr.png", m.QRCode)
	assert.Equal(t, "REF-1", m.Reference)
	assert.Empty(t, m.Stock)

	_, err = scanEntity(rowValues{}, store.Kind("zapato"))
	assert.Error(t, err)
}
