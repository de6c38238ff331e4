package supabase

import (
	"context"
	"encoding/json"
	"strings"

	"github.com/pkg/errors"
	"github.com/supabase-community/postgrest-go"
	"github.com/supabase-community/supabase-go"

	"github.com/hrygo/shopfloor/internal/profile"
	"github.com/hrygo/shopfloor/store"
)

// DB reads and writes the inventory tables through the project's PostgREST endpoint.
type DB struct {
	client  *supabase.Client
	profile *profile.Profile
}

func NewDB(profile *profile.Profile) (store.Driver, error) {
	if profile == nil {
		return nil, errors.New("profile is nil")
	}
	client, err := supabase.NewClient(profile.SupabaseURL, profile.SupabaseKey, nil)
	if err != nil {
		return nil, errors.Wrap(err, "failed to create supabase client")
	}
	return &DB{client: client, profile: profile}, nil
}

// Client exposes the underlying client so the media backend can share it.
func (d *DB) Client() *supabase.Client {
	return d.client
}

func (d *DB) Close() error {
	return nil
}

func (d *DB) Ping(ctx context.Context) error {
	schema, _ := store.SchemaFor(store.KindMaterial)
	_, _, err := d.client.From(schema.Table).Select(store.ColumnID, "", false).Limit(1, "").Execute()
	if err != nil {
		return remoteError(err, "supabase unreachable", schema.Table)
	}
	return nil
}

func (d *DB) ListItems(ctx context.Context, find *store.FindItem) ([]store.Entity, error) {
	schema, err := store.SchemaFor(find.Kind)
	if err != nil {
		return nil, store.WrapError(err, store.CodeInvalidArgument, "unknown kind")
	}

	query := d.client.From(schema.Table).Select("*", "", false)
	if v := find.ID; v != nil {
		query = query.Eq(store.ColumnID, *v)
	}
	if v := find.NameSearch; v != nil && *v != "" {
		query = query.Ilike(store.ColumnName, "%"+likePattern(*v)+"%")
	}
	query = query.Order(store.ColumnCreatedAt, &postgrest.OrderOpts{Ascending: false})
	if v := find.Limit; v != nil {
		query = query.Limit(*v, "")
	}

	body, _, err := query.Execute()
	if err != nil {
		return nil, remoteError(err, "failed to list "+schema.Table, schema.Table)
	}
	list, err := decodeRows(body, find.Kind)
	if err != nil || find.NameSearch == nil || !strings.Contains(*find.NameSearch, "*") {
		return list, err
	}
	// "*" went out as a single-character wildcard; keep literal matches only.
	out := list[:0]
	for _, e := range list {
		if store.MatchesName(e, *find.NameSearch) {
			out = append(out, e)
		}
	}
	return out, nil
}

// likePattern escapes LIKE wildcards so user text matches literally.
// PostgREST rewrites every "*" to "%" and offers no escape for it, so "*" is
// sent as "_" and filtered exactly on return.
func likePattern(s string) string {
	return strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`, `*`, `_`).Replace(s)
}

func (d *DB) CreateItem(ctx context.Context, create store.Entity) (store.Entity, error) {
	schema, err := store.SchemaFor(create.Kind())
	if err != nil {
		return nil, store.WrapError(err, store.CodeInvalidArgument, "unknown kind")
	}
	row, err := store.Row(create)
	if err != nil {
		return nil, store.WrapError(err, store.CodeInvalidArgument, "invalid "+string(create.Kind()))
	}

	body, _, err := d.client.From(schema.Table).Insert(row, false, "", "representation", "").Execute()
	if err != nil {
		return nil, remoteError(err, "failed to create "+string(create.Kind()), schema.Table)
	}
	list, err := decodeRows(body, create.Kind())
	if err != nil {
		return nil, err
	}
	if len(list) == 0 {
		return nil, store.NewError(store.CodeRejected, "insert returned no rows", schema.Table)
	}
	return list[0], nil
}

func (d *DB) UpdateItem(ctx context.Context, update *store.UpdateItem) (store.Entity, error) {
	schema, err := store.SchemaFor(update.Kind)
	if err != nil {
		return nil, store.WrapError(err, store.CodeInvalidArgument, "unknown kind")
	}

	body, _, err := d.client.From(schema.Table).Update(map[string]any(update.Patch), "representation", "").Eq(store.ColumnID, update.ID).Execute()
	if err != nil {
		return nil, remoteError(err, "failed to update "+string(update.Kind), schema.Table)
	}
	list, err := decodeRows(body, update.Kind)
	if err != nil {
		return nil, err
	}
	if len(list) == 0 {
		return nil, store.NotFound(update.Kind, update.ID)
	}
	return list[0], nil
}

func decodeRows(body []byte, kind store.Kind) ([]store.Entity, error) {
	var raw []json.RawMessage
	if err := json.Unmarshal(body, &raw); err != nil {
		return nil, store.WrapError(err, store.CodeRejected, "unexpected response body")
	}
	list := make([]store.Entity, 0, len(raw))
	for _, r := range raw {
		e, err := store.NewEntity(kind)
		if err != nil {
			return nil, err
		}
		if err := json.Unmarshal(normalizeID(r), e); err != nil {
			return nil, store.WrapError(err, store.CodeRejected, "failed to decode "+string(kind))
		}
		list = append(list, e)
	}
	return list, nil
}

// normalizeID turns numeric identity ids into strings so every table decodes into Base.ID.
func normalizeID(row json.RawMessage) json.RawMessage {
	var fields map[string]json.RawMessage
	if err := json.Unmarshal(row, &fields); err != nil {
		return row
	}
	id, ok := fields[store.ColumnID]
	if !ok || len(id) == 0 || id[0] == '"' || string(id) == "null" {
		return row
	}
	quoted, _ := json.Marshal(string(id))
	fields[store.ColumnID] = quoted
	out, err := json.Marshal(fields)
	if err != nil {
		return row
	}
	return out
}

// remoteError keeps the PostgREST message and names the table as detail.
func remoteError(err error, message, table string) *store.Error {
	return &store.Error{Code: store.CodeRejected, Message: message, Detail: table, Cause: err}
}
