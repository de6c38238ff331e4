package store

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseKind(t *testing.T) {
	tests := []struct {
		in      string
		want    Kind
		wantErr bool
	}{
		{"material", KindMaterial, false},
		{"Tools", KindTool, false},
		{"herramienta", KindTool, false},
		{" producto ", KindProduct, false},
		{"shoe", "", true},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := ParseKind(tt.in)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestSchemaMatchesFields(t *testing.T) {
	for _, kind := range Kinds {
		t.Run(string(kind), func(t *testing.T) {
			schema, err := SchemaFor(kind)
			require.NoError(t, err)
			e, err := NewEntity(kind)
			require.NoError(t, err)
			assert.Len(t, e.Fields(), len(schema.Columns))

			values, err := Values(e)
			require.NoError(t, err)
			assert.Len(t, values, len(schema.WritableColumns()))
		})
	}
}

func TestValidatePatch(t *testing.T) {
	schema, err := SchemaFor(KindProduct)
	require.NoError(t, err)

	tests := []struct {
		name    string
		patch   Patch
		wantErr bool
	}{
		{"qr code", Patch{ColumnQRCode: "https://x"}, false},
		{"sizes", Patch{"tallas": []SizeStock{{Size: "40"}}}, false},
		{"featured", Patch{"destacado": true}, false},
		{"empty", Patch{}, true},
		{"unknown column", Patch{"modelo": "x"}, true},
		{"wrong type", Patch{"destacado": "yes"}, true},
		{"id is not writable", Patch{ColumnID: "1"}, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := schema.Validate(tt.patch)
			if tt.wantErr {
				var se *Error
				require.True(t, errors.As(err, &se))
				assert.Equal(t, CodeInvalidArgument, se.Code)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestApplyPatchAndRow(t *testing.T) {
	p := &Product{Base: Base{ID: "p1", Name: "Bota"}, Price: "100"}
	require.NoError(t, ApplyPatch(p, Patch{"precio": "120", "destacado": true, ColumnImageURL: "https://img"}))
	assert.Equal(t, "120", p.Price)
	assert.True(t, p.Featured)
	assert.Equal(t, "https://img", p.ImageURL)

	row, err := Row(p)
	require.NoError(t, err)
	assert.Equal(t, "Bota", row[ColumnName])
	assert.Equal(t, "120", row["precio"])
	assert.Equal(t, []SizeStock{}, row["tallas"])
	assert.NotContains(t, row, ColumnID)
	assert.NotContains(t, row, ColumnQRCode)
}

func TestCloneIsDeep(t *testing.T) {
	p := &Product{Base: Base{Name: "Bota"}, Sizes: SizeList{{Size: "40", Stock: 1}}}
	c := Clone(p).(*Product)
	c.Sizes[0].Stock = 9
	c.Name = "Sandalia"
	assert.Equal(t, 1, p.Sizes[0].Stock)
	assert.Equal(t, "Bota", p.Name)
}

func TestMatchesName(t *testing.T) {
	m := &Material{Base: Base{Name: "Cuero Negro"}}
	assert.True(t, MatchesName(m, ""))
	assert.True(t, MatchesName(m, "negro"))
	assert.False(t, MatchesName(m, "marrón"))
}

func TestSizeListScan(t *testing.T) {
	var l SizeList
	require.NoError(t, l.Scan(`[{"numero":"41","stock":2,"stockMinimo":1}]`))
	require.Len(t, l, 1)
	assert.Equal(t, 1, l[0].MinStock)

	require.NoError(t, l.Scan(nil))
	assert.Nil(t, l)
	assert.Error(t, l.Scan(42))
}

func TestErrorMatching(t *testing.T) {
	err := NotFound(KindMaterial, "7")
	assert.True(t, IsNotFound(err))
	assert.True(t, errors.Is(err, ErrNotFound))
	assert.False(t, IsNotFound(NewError(CodeRejected, "denied", "")))

	msg, detail := Detail(err)
	assert.Equal(t, "no rows", msg)
	assert.Equal(t, "material 7", detail)
}
