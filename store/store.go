package store

import (
	"context"

	"github.com/hrygo/shopfloor/internal/profile"
)

// Store provides access to the remote inventory tables.
type Store struct {
	profile *profile.Profile
	driver  Driver
}

// New creates a new instance of Store.
func New(driver Driver, profile *profile.Profile) *Store {
	return &Store{
		driver:  driver,
		profile: profile,
	}
}

func (s *Store) GetDriver() Driver {
	return s.driver
}

func (s *Store) Close() error {
	return s.driver.Close()
}

func (s *Store) Ping(ctx context.Context) error {
	return s.driver.Ping(ctx)
}

// ListItems returns the rows of one kind, newest first.
func (s *Store) ListItems(ctx context.Context, find *FindItem) ([]Entity, error) {
	if !find.Kind.Valid() {
		return nil, NewError(CodeInvalidArgument, "unknown inventory kind", string(find.Kind))
	}
	return s.driver.ListItems(ctx, find)
}

// GetItem fetches a single row by id. A missing row yields an error matching ErrNotFound.
func (s *Store) GetItem(ctx context.Context, kind Kind, id string) (Entity, error) {
	if id == "" {
		return nil, NewError(CodeInvalidArgument, "missing id", string(kind))
	}
	limit := 1
	list, err := s.ListItems(ctx, &FindItem{Kind: kind, ID: &id, Limit: &limit})
	if err != nil {
		return nil, err
	}
	if len(list) == 0 {
		return nil, NotFound(kind, id)
	}
	return list[0], nil
}

func (s *Store) CreateItem(ctx context.Context, create Entity) (Entity, error) {
	if create == nil {
		return nil, NewError(CodeInvalidArgument, "missing entity", "")
	}
	return s.driver.CreateItem(ctx, create)
}

func (s *Store) UpdateItem(ctx context.Context, update *UpdateItem) (Entity, error) {
	schema, err := SchemaFor(update.Kind)
	if err != nil {
		return nil, NewError(CodeInvalidArgument, err.Error(), "")
	}
	if update.ID == "" {
		return nil, NewError(CodeInvalidArgument, "missing id", string(update.Kind))
	}
	if err := schema.Validate(update.Patch); err != nil {
		return nil, err
	}
	return s.driver.UpdateItem(ctx, update)
}
