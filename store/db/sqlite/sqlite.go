package sqlite

import (
	"context"
	"database/sql"

	"github.com/pkg/errors"

	"github.com/ayatoki/kiroku/internal/profile"
	"github.com/ayatoki/kiroku/store"

	// SQLite driver.
	_ "modernc.org/sqlite"
)

type DB struct {
	db      *sql.DB
	profile *profile.Profile
}

// NewDB opens the activity-log database the companion bot maintains.
func NewDB(profile *profile.Profile) (store.Driver, error) {
	if profile == nil {
		return nil, errors.New("profile is nil")
	}

	sqliteDB, err := sql.Open("sqlite", profile.DSN)
	if err != nil {
		return nil, errors.Wrapf(err, "failed to open db with dsn: %s", profile.DSN)
	}
	driver := DB{db: sqliteDB, profile: profile}

	// WAL lets this reader coexist with the bot's writer.
	if _, err := driver.db.Exec("PRAGMA journal_mode = WAL"); err != nil {
		return nil, errors.Wrap(err, "failed to enable WAL mode")
	}
	if _, err := driver.db.Exec("PRAGMA busy_timeout = 5000"); err != nil {
		return nil, errors.Wrap(err, "failed to set busy timeout")
	}

	return &driver, nil
}

func (d *DB) GetDB() *sql.DB {
	return d.db
}

func (d *DB) Close() error {
	return d.db.Close()
}

func (d *DB) Ping(ctx context.Context) error {
	return d.db.PingContext(ctx)
}
