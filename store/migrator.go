package store

import (
	"context"
	"embed"
	"fmt"
	"io/fs"
	"path/filepath"
	"sort"
	"strings"

	"github.com/pkg/errors"
)

// Migration system overview:
//
// A fresh database is initialized from LATEST.sql, the full current schema.
// Incremental migrations live next to it as NN__description.sql and are
// applied in lexicographic order against already-initialized databases; an
// applied file is recorded in the migration_history table so reruns are
// no-ops.

//go:embed migration
var migrationFS embed.FS

const (
	// MigrateFileNameSplit is the split character between the patch number and
	// the description in a migration file name, e.g. "01__add_summary.sql".
	MigrateFileNameSplit = "__"
	// LatestSchemaFileName is the full schema applied to fresh installations.
	LatestSchemaFileName = "LATEST.sql"
)

const createMigrationHistoryStmt = `
CREATE TABLE IF NOT EXISTS migration_history (
  version TEXT NOT NULL PRIMARY KEY,
  created_ts BIGINT NOT NULL DEFAULT (strftime('%s', 'now'))
)`

// Migrate brings the database schema up to date. SQLite auto-commits DDL per
// statement, so the pass is sequential rather than wrapped in a transaction;
// every step is idempotent and a crashed run resumes cleanly.
func (s *Store) Migrate(ctx context.Context) error {
	initialized, err := s.driver.IsInitialized(ctx)
	if err != nil {
		return errors.Wrap(err, "failed to check if database is initialized")
	}

	if err := s.execute(ctx, createMigrationHistoryStmt); err != nil {
		return errors.Wrap(err, "failed to create migration history table")
	}
	if !initialized {
		if err := s.applyLatestSchema(ctx); err != nil {
			return errors.Wrap(err, "failed to apply latest schema")
		}
	}
	if err := s.applyIncrementalMigrations(ctx, initialized); err != nil {
		return errors.Wrap(err, "failed to apply incremental migrations")
	}
	return nil
}

func (s *Store) migrationDir() string {
	return filepath.Join("migration", s.profile.Driver)
}

func (s *Store) applyLatestSchema(ctx context.Context) error {
	buf, err := fs.ReadFile(migrationFS, filepath.Join(s.migrationDir(), LatestSchemaFileName))
	if err != nil {
		return errors.Wrapf(err, "failed to read %s", LatestSchemaFileName)
	}
	if err := s.execute(ctx, string(buf)); err != nil {
		return err
	}
	// Record every migration file as applied so a fresh install never replays
	// increments already folded into LATEST.sql.
	files, err := s.listMigrationFiles()
	if err != nil {
		return err
	}
	for _, name := range files {
		if err := s.recordMigration(ctx, name); err != nil {
			return err
		}
	}
	return nil
}

func (s *Store) applyIncrementalMigrations(ctx context.Context, initialized bool) error {
	if !initialized {
		return nil
	}
	files, err := s.listMigrationFiles()
	if err != nil {
		return err
	}
	for _, name := range files {
		applied, err := s.isMigrationApplied(ctx, name)
		if err != nil {
			return err
		}
		if applied {
			continue
		}
		buf, err := fs.ReadFile(migrationFS, filepath.Join(s.migrationDir(), name))
		if err != nil {
			return errors.Wrapf(err, "failed to read migration %s", name)
		}
		if err := s.execute(ctx, string(buf)); err != nil {
			return errors.Wrapf(err, "failed to apply migration %s", name)
		}
		if err := s.recordMigration(ctx, name); err != nil {
			return err
		}
	}
	return nil
}

// listMigrationFiles returns incremental migration files sorted by name.
func (s *Store) listMigrationFiles() ([]string, error) {
	entries, err := fs.ReadDir(migrationFS, s.migrationDir())
	if err != nil {
		return nil, errors.Wrap(err, "failed to read migration dir")
	}
	var files []string
	for _, entry := range entries {
		name := entry.Name()
		if entry.IsDir() || name == LatestSchemaFileName {
			continue
		}
		if !strings.Contains(name, MigrateFileNameSplit) || !strings.HasSuffix(name, ".sql") {
			return nil, errors.Errorf("invalid migration filename: %s", name)
		}
		files = append(files, name)
	}
	sort.Strings(files)
	return files, nil
}

func (s *Store) isMigrationApplied(ctx context.Context, name string) (bool, error) {
	stmt := "SELECT COUNT(*) FROM migration_history WHERE version = ?"
	var count int
	if err := s.queryRow(ctx, stmt, name).Scan(&count); err != nil {
		return false, errors.Wrap(err, "failed to query migration history")
	}
	return count > 0, nil
}

func (s *Store) recordMigration(ctx context.Context, name string) error {
	stmt := "INSERT INTO migration_history (version) VALUES (?) ON CONFLICT (version) DO NOTHING"
	if err := s.execute(ctx, stmt, name); err != nil {
		return errors.Wrapf(err, "failed to record migration %s", name)
	}
	return nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func (s *Store) queryRow(ctx context.Context, stmt string, args ...any) rowScanner {
	return s.driver.GetDB().QueryRowContext(ctx, stmt, args...)
}

func (s *Store) execute(ctx context.Context, stmt string, args ...any) error {
	if _, err := s.driver.GetDB().ExecContext(ctx, stmt, args...); err != nil {
		return fmt.Errorf("failed to execute statement %q: %w", firstLine(stmt), err)
	}
	return nil
}

func firstLine(stmt string) string {
	if i := strings.IndexByte(stmt, '\n'); i >= 0 {
		return strings.TrimSpace(stmt[:i]) + " ..."
	}
	return stmt
}
