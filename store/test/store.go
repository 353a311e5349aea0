package test

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/hilite/wingman/internal/profile"
	"github.com/hilite/wingman/store"
	"github.com/hilite/wingman/store/db"
)

// NewTestingStore creates a store backed by a fresh sqlite database under a
// per-test temp directory, fully migrated.
func NewTestingStore(ctx context.Context, t *testing.T) *store.Store {
	p := GetTestingProfile(t)
	dbDriver, err := db.NewDBDriver(p)
	if err != nil {
		t.Fatalf("failed to create db driver: %v", err)
	}

	ts := store.New(dbDriver, p)
	if err := ts.Migrate(ctx); err != nil {
		t.Fatalf("failed to migrate database: %v", err)
	}

	t.Cleanup(func() {
		if err := ts.Close(); err != nil {
			t.Logf("failed to close store: %v", err)
		}
	})
	return ts
}

// GetTestingProfile returns a profile rooted at a per-test temp directory.
func GetTestingProfile(t *testing.T) *profile.Profile {
	dir := t.TempDir()
	return &profile.Profile{
		Mode:             "dev",
		Data:             dir,
		Driver:           "sqlite",
		DSN:              filepath.Join(dir, "wingman_test.db"),
		GroupReuseWindow: 10 * time.Second,
		ReplyCycleWindow: 10 * time.Second,
		ReaperInterval:   time.Minute,
	}
}
