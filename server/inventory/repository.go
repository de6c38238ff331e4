// Package inventory keeps an in-memory mirror of the material, tool and
// product collections and serves cached searches over it.
package inventory

import (
	"context"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	inverrors "github.com/hrygo/shopfloor/server/internal/errors"
	"github.com/hrygo/shopfloor/server/internal/observability"
	"github.com/hrygo/shopfloor/store"
)

// Repository mirrors one collection of the remote store.
//
// Every remote call takes a ticket when it is issued. A response is applied
// to the local collection only if no newer ticket has been applied, so a slow
// response can never overwrite a fresher one.
type Repository struct {
	kind    store.Kind
	store   *store.Store
	metrics *observability.Metrics
	logger  *slog.Logger
	now     func() time.Time

	issued atomic.Uint64

	mu       sync.RWMutex
	items    []store.Entity
	err      string
	inFlight int
	applied  uint64
}

func NewRepository(kind store.Kind, st *store.Store) *Repository {
	return &Repository{
		kind:    kind,
		store:   st,
		metrics: observability.GlobalMetrics(),
		logger:  slog.Default(),
		now:     time.Now,
	}
}

func (r *Repository) Kind() store.Kind { return r.kind }

// Ticket reserves the next request ticket.
func (r *Repository) Ticket() uint64 {
	return r.issued.Add(1)
}

// List fetches the collection, filtered by a case-insensitive substring of
// the name when filter is non-empty, newest first. The result replaces the
// local collection.
func (r *Repository) List(ctx context.Context, filter string) ([]store.Entity, error) {
	return r.listTicket(ctx, filter, r.Ticket())
}

func (r *Repository) listTicket(ctx context.Context, filter string, ticket uint64) ([]store.Entity, error) {
	op := observability.NewOpContext(r.logger, "list", string(r.kind))
	r.begin()
	defer r.end()

	find := &store.FindItem{Kind: r.kind}
	if filter != "" {
		find.NameSearch = &filter
	}
	list, err := r.store.ListItems(ctx, find)
	r.metrics.RecordOp("list."+string(r.kind), op.Duration(), err)
	if err != nil {
		op.Error("failed to list items", err, slog.String(observability.LogFieldQuery, filter))
		r.fail(ticket, err)
		return nil, inverrors.RemoteStore("failed to list "+string(r.kind), err)
	}

	r.mu.Lock()
	if ticket >= r.applied {
		r.applied = ticket
		r.items = list
		r.err = ""
	} else {
		op.Debug("discarded stale list response", slog.Uint64("ticket", ticket), slog.Uint64("applied", r.applied))
	}
	r.mu.Unlock()

	op.Done("listed items", slog.String(observability.LogFieldQuery, filter), slog.Int("count", len(list)))
	return cloneAll(list), nil
}

// Create inserts e remotely and, on success, prepends the stored row to the
// local collection. On failure the local collection is unchanged.
func (r *Repository) Create(ctx context.Context, e store.Entity) (store.Entity, error) {
	op := observability.NewOpContext(r.logger, "create", string(r.kind))
	if e == nil || e.Kind() != r.kind {
		return nil, inverrors.InvalidArgument("entity kind does not match repository").WithContext("kind", string(r.kind))
	}
	ticket := r.Ticket()
	r.begin()
	defer r.end()

	created, err := r.store.CreateItem(ctx, e)
	r.metrics.RecordOp("create."+string(r.kind), op.Duration(), err)
	if err != nil {
		op.Error("failed to create item", err, slog.String("name", e.Common().Name))
		r.fail(ticket, err)
		return nil, inverrors.RemoteStore("failed to create "+string(r.kind), err)
	}
	if created.Common().CreatedAt.IsZero() {
		created.Common().CreatedAt = r.now()
	}

	r.mu.Lock()
	r.items = append([]store.Entity{created}, r.items...)
	r.err = ""
	if ticket > r.applied {
		r.applied = ticket
	}
	r.mu.Unlock()

	op.Done("created item", slog.String("id", created.Common().ID))
	return store.Clone(created), nil
}

// UpdateByID applies a partial update remotely and merges the returned row
// into the matching local entity.
func (r *Repository) UpdateByID(ctx context.Context, id string, patch store.Patch) (store.Entity, error) {
	op := observability.NewOpContext(r.logger, "update", string(r.kind))
	ticket := r.Ticket()
	r.begin()
	defer r.end()

	updated, err := r.store.UpdateItem(ctx, &store.UpdateItem{Kind: r.kind, ID: id, Patch: patch})
	r.metrics.RecordOp("update."+string(r.kind), op.Duration(), err)
	if err != nil {
		op.Error("failed to update item", err, slog.String("id", id))
		r.fail(ticket, err)
		if store.IsNotFound(err) {
			return nil, inverrors.Wrap(err, inverrors.ErrCodeNotFound, "no "+string(r.kind)+" with id "+id)
		}
		return nil, inverrors.RemoteStore("failed to update "+string(r.kind), err)
	}

	r.mu.Lock()
	for i, item := range r.items {
		if item.Common().ID == id {
			r.items[i] = updated
			break
		}
	}
	r.err = ""
	if ticket > r.applied {
		r.applied = ticket
	}
	r.mu.Unlock()

	op.Done("updated item", slog.String("id", id), slog.Any("columns", patch.Keys()))
	return store.Clone(updated), nil
}

// Get fetches one row by id without touching the local collection.
func (r *Repository) Get(ctx context.Context, id string) (store.Entity, error) {
	e, err := r.store.GetItem(ctx, r.kind, id)
	if err != nil {
		if store.IsNotFound(err) {
			return nil, inverrors.Wrap(err, inverrors.ErrCodeNotFound, "no "+string(r.kind)+" with id "+id)
		}
		return nil, inverrors.RemoteStore("failed to get "+string(r.kind), err)
	}
	return e, nil
}

// Items returns a copy of the local collection.
func (r *Repository) Items() []store.Entity {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return cloneAll(r.items)
}

// Err returns the message of the last failed request, or "".
func (r *Repository) Err() string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.err
}

// Loading reports whether a request is in flight.
func (r *Repository) Loading() bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.inFlight > 0
}

func (r *Repository) begin() {
	r.mu.Lock()
	r.inFlight++
	r.mu.Unlock()
}

func (r *Repository) end() {
	r.mu.Lock()
	r.inFlight--
	r.mu.Unlock()
}

// fail records err as the repository error unless a newer request has
// already been applied.
func (r *Repository) fail(ticket uint64, err error) {
	msg, detail := store.Detail(err)
	if detail != "" {
		msg += " (" + detail + ")"
	}
	r.mu.Lock()
	if ticket >= r.applied {
		r.err = msg
	}
	r.mu.Unlock()
}

func cloneAll(list []store.Entity) []store.Entity {
	out := make([]store.Entity, len(list))
	for i, e := range list {
		out[i] = store.Clone(e)
	}
	return out
}
