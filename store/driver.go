package store

import (
	"context"
)

// Driver is an interface for store driver.
// It contains all methods that an inventory backend should implement.
type Driver interface {
	Close() error

	// Ping checks the backend is reachable.
	Ping(ctx context.Context) error

	// Inventory item related methods.
	ListItems(ctx context.Context, find *FindItem) ([]Entity, error)
	CreateItem(ctx context.Context, create Entity) (Entity, error)
	UpdateItem(ctx context.Context, update *UpdateItem) (Entity, error)
}

// FindItem selects rows of one kind.
type FindItem struct {
	Kind Kind
	ID   *string
	// NameSearch is a case-insensitive substring match on the display name.
	NameSearch *string
	Limit      *int
}

type UpdateItem struct {
	Kind  Kind
	ID    string
	Patch Patch
}
