package sqlite

import (
	"strings"
	"time"

	"github.com/hrygo/shopfloor/store"
)

// placeholder returns a placeholder for SQLite (uses ?)
func placeholder(n int) string {
	return "?"
}

// placeholders returns n placeholders for SQLite
func placeholders(n int) string {
	list := []string{}
	for i := 0; i < n; i++ {
		list = append(list, placeholder(i+1))
	}
	return strings.Join(list, ", ")
}

func quote(name string) string {
	return `"` + name + `"`
}

func escapeLike(s string) string {
	return strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`).Replace(s)
}

func selectColumns(s store.Schema) string {
	cols := []string{quote(store.ColumnID), "created_ts"}
	for _, c := range s.WritableColumns() {
		cols = append(cols, quote(c.Name))
	}
	return strings.Join(cols, ", ")
}

func insertColumns(s store.Schema) []string {
	cols := []string{quote(store.ColumnID), "created_ts"}
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
	var createdTs int64
	dest := []any{&b.ID, &createdTs, &b.Name, &b.ImageURL, &b.QRCode}
	dest = append(dest, e.Fields()...)
	if err := row.Scan(dest...); err != nil {
		return nil, err
	}
	b.CreatedAt = time.UnixMilli(createdTs)
	return e, nil
}
