package db

import (
	"github.com/pkg/errors"

	"github.com/hrygo/shopfloor/internal/profile"
	"github.com/hrygo/shopfloor/store"
	"github.com/hrygo/shopfloor/store/db/postgres"
	"github.com/hrygo/shopfloor/store/db/sqlite"
	"github.com/hrygo/shopfloor/store/db/supabase"
)

// NewDBDriver creates new db driver based on profile.
//
// supabase is the production backend. postgres talks to the same tables
// without the REST layer. sqlite is a self-contained local store.
func NewDBDriver(profile *profile.Profile) (store.Driver, error) {
	var driver store.Driver
	var err error

	switch profile.Driver {
	case "supabase":
		driver, err = supabase.NewDB(profile)
	case "postgres":
		driver, err = postgres.NewDB(profile)
	case "sqlite":
		driver, err = sqlite.NewDB(profile)
	default:
		return nil, errors.Errorf("unknown db driver %q: supported drivers are supabase, postgres and sqlite", profile.Driver)
	}
	if err != nil {
		return nil, errors.Wrap(err, "failed to create db driver")
	}
	return driver, nil
}
