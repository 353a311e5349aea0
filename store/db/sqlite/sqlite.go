package sqlite

import (
	"context"
	"database/sql"

	"github.com/pkg/errors"

	// SQLite driver.
	_ "modernc.org/sqlite"

	"github.com/hilite/wingman/internal/profile"
)

// DB is the sqlite implementation of store.Driver.
type DB struct {
	db      *sql.DB
	profile *profile.Profile
}

// NewDB opens the database in WAL mode with foreign keys enforced.
// busy_timeout makes concurrent writers from other processes wait for the
// file lock instead of failing immediately.
func NewDB(profile *profile.Profile) (*DB, error) {
	if profile == nil {
		return nil, errors.New("profile is nil")
	}
	if profile.DSN == "" {
		return nil, errors.New("dsn required")
	}

	dsn := profile.DSN + "?_pragma=foreign_keys(1)&_pragma=busy_timeout(10000)&_pragma=journal_mode(WAL)&_txlock=immediate"
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, errors.Wrapf(err, "failed to open db with dsn: %s", profile.DSN)
	}

	// A single connection avoids SQLITE_BUSY between in-process writers; the
	// cross-process case is handled by the file lock and busy_timeout.
	db.SetMaxOpenConns(1)

	return &DB{db: db, profile: profile}, nil
}

func (d *DB) GetDB() *sql.DB {
	return d.db
}

func (d *DB) Close() error {
	return d.db.Close()
}

// IsInitialized reports whether the schema has been bootstrapped.
func (d *DB) IsInitialized(ctx context.Context) (bool, error) {
	var count int
	stmt := "SELECT COUNT(*) FROM sqlite_master WHERE type = 'table' AND name = 'dialog'"
	if err := d.db.QueryRowContext(ctx, stmt).Scan(&count); err != nil {
		return false, errors.Wrap(err, "failed to query sqlite_master")
	}
	return count > 0, nil
}
