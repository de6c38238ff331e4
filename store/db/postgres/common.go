package postgres

import (
	"fmt"
	"strings"

	"github.com/hrygo/shopfloor/store"
)

// placeholder returns a placeholder for PostgreSQL (uses $n)
func placeholder(n int) string {
	return fmt.Sprintf("$%d", n)
}

// placeholders returns n placeholders for PostgreSQL
func placeholders(n int) string {
	list := []string{}
	for i := 0; i < n; i++ {
		list = append(list, placeholder(i+1))
	}
	return strings.Join(list, ", ")
}

// quote keeps mixed-case columns such as QR_Code addressable.
func quote(name string) string {
	return `"` + name + `"`
}

// escapeLike escapes LIKE wildcards so user text matches literally.
func escapeLike(s string) string {
	return strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`).Replace(s)
}

// selectColumns renders the select list of a schema, nulls folded to zero values.
func selectColumns(s store.Schema) string {
	cols := []string{quote(store.ColumnID) + "::text", quote(store.ColumnCreatedAt)}
	for _, c := range s.WritableColumns() {
		switch c.Type {
		case store.ColumnBool:
			cols = append(cols, "COALESCE("+quote(c.Name)+", false)")
		case store.ColumnJSON:
			cols = append(cols, "COALESCE("+quote(c.Name)+"::text, '[]')")
		default:
			cols = append(cols, "COALESCE("+quote(c.Name)+"::text, '')")
		}
	}
	return strings.Join(cols, ", ")
}

func insertColumns(s store.Schema) []string {
	cols := []string{}
	for _, c := range s.WritableColumns() {
		cols = append(cols, quote(c.Name))
	}
	return cols
}

type scanner interface {
	Scan(dest ...any) error
}

func scanEntity(row scanner, kind store.Kind) (store.Entity, error) {
	e, err := store.NewEntity(kind)
	if err != nil {
		return nil, err
	}
	b := e.Common()
	dest := []any{&b.ID, &b.CreatedAt, &b.Name, &b.ImageURL, &b.QRCode}
	dest = append(dest, e.Fields()...)
	if err := row.Scan(dest...); err != nil {
		return nil, err
	}
	return e, nil
}
