package db

import (
	"github.com/pkg/errors"

	"github.com/hilite/wingman/internal/profile"
	"github.com/hilite/wingman/store"
	"github.com/hilite/wingman/store/db/sqlite"
)

// ============================================================================
// DATABASE SUPPORT POLICY
// ============================================================================
// This project supports only SQLite.
//
// The store is device-local and shared between the foreground process and
// short-lived background processes (share extension, widget, shortcut
// handler). WAL journaling plus busy_timeout give us concurrent readers and
// serialized writers across processes, which is the whole concurrency story.
// A server database would add an operational dependency with nothing to
// serve it.
// ============================================================================

// NewDBDriver creates new db driver based on profile.
func NewDBDriver(profile *profile.Profile) (store.Driver, error) {
	switch profile.Driver {
	case "sqlite":
		driver, err := sqlite.NewDB(profile)
		if err != nil {
			return nil, errors.Wrap(err, "failed to create sqlite driver")
		}
		return driver, nil
	default:
		return nil, errors.Errorf("unknown db driver %q: only 'sqlite' is supported", profile.Driver)
	}
}
