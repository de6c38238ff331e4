package sqlite

import (
	"context"
	"database/sql"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/pkg/errors"
	// Import the pure-Go SQLite driver.
	_ "modernc.org/sqlite"

	"github.com/hrygo/shopfloor/internal/profile"
	"github.com/hrygo/shopfloor/store"
)

// DB is a local inventory store. It creates its own tables, so it can run
// offline or back the test suites without a Supabase project.
type DB struct {
	db      *sql.DB
	profile *profile.Profile

	now   func() time.Time
	newID func() string
}

func NewDB(profile *profile.Profile) (store.Driver, error) {
	if profile == nil {
		return nil, errors.New("profile is nil")
	}
	if profile.DSN == "" {
		return nil, errors.New("dsn required")
	}

	dsn := profile.DSN
	if dsn != ":memory:" && !strings.Contains(dsn, "?") {
		dsn += "?_pragma=busy_timeout(10000)&_pragma=journal_mode(WAL)"
	}
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, errors.Wrapf(err, "failed to open db with dsn: %s", profile.DSN)
	}
	// One connection keeps :memory: databases alive and serializes writers.
	db.SetMaxOpenConns(1)

	d := &DB{
		db:      db,
		profile: profile,
		now:     time.Now,
		newID:   uuid.NewString,
	}
	if err := d.migrate(context.Background()); err != nil {
		db.Close()
		return nil, err
	}
	return d, nil
}

func (d *DB) GetDB() *sql.DB {
	return d.db
}

func (d *DB) Close() error {
	return d.db.Close()
}

func (d *DB) Ping(ctx context.Context) error {
	if err := d.db.PingContext(ctx); err != nil {
		return store.WrapError(err, store.CodeUnavailable, "sqlite unreachable")
	}
	return nil
}

func (d *DB) migrate(ctx context.Context) error {
	for _, kind := range store.Kinds {
		schema, err := store.SchemaFor(kind)
		if err != nil {
			return err
		}
		cols := []string{
			quote(store.ColumnID) + " TEXT NOT NULL PRIMARY KEY",
			"created_ts INTEGER NOT NULL",
		}
		for _, c := range schema.WritableColumns() {
			switch c.Type {
			case store.ColumnBool:
				cols = append(cols, quote(c.Name)+" INTEGER NOT NULL DEFAULT 0")
			case store.ColumnJSON:
				cols = append(cols, quote(c.Name)+" TEXT NOT NULL DEFAULT '[]'")
			default:
				cols = append(cols, quote(c.Name)+" TEXT NOT NULL DEFAULT ''")
			}
		}
		stmt := `CREATE TABLE IF NOT EXISTS ` + schema.Table + ` (` + strings.Join(cols, ", ") + `)`
		if _, err := d.db.ExecContext(ctx, stmt); err != nil {
			return errors.Wrapf(err, "failed to migrate %s", schema.Table)
		}
		slog.Debug("sqlite table ready", "table", schema.Table)
	}
	return nil
}
