package store

import (
	"sort"

	"github.com/pkg/errors"
)

// ColumnType tells SQL drivers how to read a nullable column.
type ColumnType int

const (
	ColumnText ColumnType = iota
	ColumnBool
	ColumnJSON
)

type Column struct {
	Name string
	Type ColumnType
}

// Schema maps a kind onto its remote table.
// Columns lists the kind-specific columns in Fields() order; the common
// columns id, nombre, imagen_url, QR_Code and created_at are implicit.
type Schema struct {
	Kind    Kind
	Table   string
	Columns []Column
}

const (
	ColumnID        = "id"
	ColumnName      = "nombre"
	ColumnImageURL  = "imagen_url"
	ColumnQRCode    = "QR_Code"
	ColumnCreatedAt = "created_at"
)

func text(names ...string) []Column {
	cols := make([]Column, 0, len(names))
	for _, n := range names {
		cols = append(cols, Column{Name: n, Type: ColumnText})
	}
	return cols
}

var schemas = map[Kind]Schema{
	KindMaterial: {
		Kind:  KindMaterial,
		Table: "materiales",
		Columns: text("referencia", "unidades", "stock", "stock_minimo", "precio", "categoria",
			"proveedor", "descripcion", "fecha_adquisicion", "ubicacion"),
	},
	KindTool: {
		Kind:  KindTool,
		Table: "herramientas",
		Columns: text("modelo", "numero_serie", "estado", "fecha_adquisicion", "ultimo_mantenimiento",
			"proximo_mantenimiento", "ubicacion", "responsable", "descripcion"),
	},
	KindProduct: {
		Kind:  KindProduct,
		Table: "productos",
		Columns: []Column{
			{Name: "precio", Type: ColumnText},
			{Name: "stock", Type: ColumnText},
			{Name: "stock_minimo", Type: ColumnText},
			{Name: "categoria", Type: ColumnText},
			{Name: "descripcion", Type: ColumnText},
			{Name: "tallas", Type: ColumnJSON},
			{Name: "colores", Type: ColumnText},
			{Name: "tiempo_fabricacion", Type: ColumnText},
			{Name: "destacado", Type: ColumnBool},
		},
	},
}

// SchemaFor returns the table schema of a kind.
func SchemaFor(kind Kind) (Schema, error) {
	s, ok := schemas[kind]
	if !ok {
		return Schema{}, errors.Errorf("unknown inventory kind %q", kind)
	}
	return s, nil
}

// WritableColumns returns the columns a create or update may set, common ones first.
func (s Schema) WritableColumns() []Column {
	cols := []Column{
		{Name: ColumnName, Type: ColumnText},
		{Name: ColumnImageURL, Type: ColumnText},
		{Name: ColumnQRCode, Type: ColumnText},
	}
	return append(cols, s.Columns...)
}

func (s Schema) column(name string) (Column, bool) {
	for _, c := range s.WritableColumns() {
		if c.Name == name {
			return c, true
		}
	}
	return Column{}, false
}

// Patch is a partial update keyed by column name.
type Patch map[string]any

// Keys returns the patch columns in a stable order.
func (p Patch) Keys() []string {
	keys := make([]string, 0, len(p))
	for k := range p {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// Validate rejects unknown columns and values of the wrong type.
func (s Schema) Validate(p Patch) error {
	if len(p) == 0 {
		return NewError(CodeInvalidArgument, "empty update", "")
	}
	for _, key := range p.Keys() {
		col, ok := s.column(key)
		if !ok {
			return NewError(CodeInvalidArgument, "unknown column "+key, "table "+s.Table)
		}
		switch col.Type {
		case ColumnText:
			if _, ok := p[key].(string); !ok {
				return NewError(CodeInvalidArgument, "column "+key+" expects text", "")
			}
		case ColumnBool:
			if _, ok := p[key].(bool); !ok {
				return NewError(CodeInvalidArgument, "column "+key+" expects a boolean", "")
			}
		case ColumnJSON:
			switch p[key].(type) {
			case SizeList, []SizeStock:
			default:
				return NewError(CodeInvalidArgument, "column "+key+" expects a size list", "")
			}
		}
	}
	return nil
}

// Values returns the plain values of the writable columns of e, in WritableColumns order.
func Values(e Entity) ([]any, error) {
	b := e.Common()
	values := []any{b.Name, b.ImageURL, b.QRCode}
	for _, f := range e.Fields() {
		switch v := f.(type) {
		case *string:
			values = append(values, *v)
		case *bool:
			values = append(values, *v)
		case *SizeList:
			raw, err := v.Value()
			if err != nil {
				return nil, errors.Wrap(err, "failed to encode sizes")
			}
			values = append(values, raw)
		default:
			return nil, errors.Errorf("unsupported field type %T", f)
		}
	}
	return values, nil
}

// Row returns the writable columns of e as a column-keyed map, the shape REST inserts expect.
func Row(e Entity) (map[string]any, error) {
	s, err := SchemaFor(e.Kind())
	if err != nil {
		return nil, err
	}
	row := map[string]any{}
	b := e.Common()
	row[ColumnName] = b.Name
	if b.ImageURL != "" {
		row[ColumnImageURL] = b.ImageURL
	}
	if b.QRCode != "" {
		row[ColumnQRCode] = b.QRCode
	}
	for i, f := range e.Fields() {
		name := s.Columns[i].Name
		switch v := f.(type) {
		case *string:
			row[name] = *v
		case *bool:
			row[name] = *v
		case *SizeList:
			if *v == nil {
				row[name] = []SizeStock{}
			} else {
				row[name] = []SizeStock(*v)
			}
		}
	}
	return row, nil
}

// ApplyPatch writes the patch onto e in place.
func ApplyPatch(e Entity, p Patch) error {
	s, err := SchemaFor(e.Kind())
	if err != nil {
		return err
	}
	if err := s.Validate(p); err != nil {
		return err
	}
	b := e.Common()
	fields := e.Fields()
	for key, value := range p {
		switch key {
		case ColumnName:
			b.Name = value.(string)
			continue
		case ColumnImageURL:
			b.ImageURL = value.(string)
			continue
		case ColumnQRCode:
			b.QRCode = value.(string)
			continue
		}
		for i, col := range s.Columns {
			if col.Name != key {
				continue
			}
			switch dst := fields[i].(type) {
			case *string:
				*dst = value.(string)
			case *bool:
				*dst = value.(bool)
			case *SizeList:
				switch sizes := value.(type) {
				case SizeList:
					*dst = append(SizeList(nil), sizes...)
				case []SizeStock:
					*dst = append(SizeList(nil), sizes...)
				}
			}
		}
	}
	return nil
}

// PatchValue converts a patch value to something database/sql accepts.
func PatchValue(v any) (any, error) {
	switch sizes := v.(type) {
	case SizeList:
		return sizes.Value()
	case []SizeStock:
		return SizeList(sizes).Value()
	}
	return v, nil
}
