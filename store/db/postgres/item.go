package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/hrygo/shopfloor/store"
)

func (d *DB) ListItems(ctx context.Context, find *store.FindItem) ([]store.Entity, error) {
	schema, err := store.SchemaFor(find.Kind)
	if err != nil {
		return nil, store.WrapError(err, store.CodeInvalidArgument, "unknown kind")
	}

	where, args := []string{"1 = 1"}, []any{}
	if v := find.ID; v != nil {
		where, args = append(where, quote(store.ColumnID)+"::text = "+placeholder(len(args)+1)), append(args, *v)
	}
	if v := find.NameSearch; v != nil && *v != "" {
		where, args = append(where, quote(store.ColumnName)+" ILIKE "+placeholder(len(args)+1)), append(args, "%"+escapeLike(*v)+"%")
	}

	query := `SELECT ` + selectColumns(schema) + ` FROM ` + schema.Table + ` WHERE ` + strings.Join(where, " AND ") + ` ORDER BY ` + quote(store.ColumnCreatedAt) + ` DESC`
	if v := find.Limit; v != nil {
		query += fmt.Sprintf(" LIMIT %d", *v)
	}

	rows, err := d.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, store.WrapError(err, store.CodeUnavailable, "failed to list "+schema.Table)
	}
	defer rows.Close()

	list := make([]store.Entity, 0)
	for rows.Next() {
		e, err := scanEntity(rows, find.Kind)
		if err != nil {
			return nil, store.WrapError(err, store.CodeRejected, "failed to scan "+schema.Table)
		}
		list = append(list, e)
	}
	if err := rows.Err(); err != nil {
		return nil, store.WrapError(err, store.CodeUnavailable, "failed to iterate "+schema.Table)
	}
	return list, nil
}

func (d *DB) CreateItem(ctx context.Context, create store.Entity) (store.Entity, error) {
	schema, err := store.SchemaFor(create.Kind())
	if err != nil {
		return nil, store.WrapError(err, store.CodeInvalidArgument, "unknown kind")
	}
	args, err := store.Values(create)
	if err != nil {
		return nil, store.WrapError(err, store.CodeInvalidArgument, "invalid "+string(create.Kind()))
	}

	stmt := `INSERT INTO ` + schema.Table + ` (` + strings.Join(insertColumns(schema), ", ") + `)
		VALUES (` + placeholders(len(args)) + `)
		RETURNING ` + selectColumns(schema)
	created, err := scanEntity(d.db.QueryRowContext(ctx, stmt, args...), create.Kind())
	if err != nil {
		return nil, store.WrapError(err, store.CodeRejected, "failed to create "+string(create.Kind()))
	}
	return created, nil
}

func (d *DB) UpdateItem(ctx context.Context, update *store.UpdateItem) (store.Entity, error) {
	schema, err := store.SchemaFor(update.Kind)
	if err != nil {
		return nil, store.WrapError(err, store.CodeInvalidArgument, "unknown kind")
	}

	set, args := []string{}, []any{}
	for _, key := range update.Patch.Keys() {
		value, err := store.PatchValue(update.Patch[key])
		if err != nil {
			return nil, store.WrapError(err, store.CodeInvalidArgument, "invalid value for "+key)
		}
		set, args = append(set, quote(key)+" = "+placeholder(len(args)+1)), append(args, value)
	}
	if len(set) == 0 {
		return nil, store.NewError(store.CodeInvalidArgument, "no fields to update", "")
	}

	args = append(args, update.ID)
	stmt := `UPDATE ` + schema.Table + ` SET ` + strings.Join(set, ", ") + ` WHERE ` + quote(store.ColumnID) + `::text = ` + placeholder(len(args)) + ` RETURNING ` + selectColumns(schema)
	updated, err := scanEntity(d.db.QueryRowContext(ctx, stmt, args...), update.Kind)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, store.NotFound(update.Kind, update.ID)
		}
		return nil, store.WrapError(err, store.CodeRejected, "failed to update "+string(update.Kind))
	}
	return updated, nil
}
