package store

import (
	"context"
	"time"

	"github.com/hilite/wingman/internal/profile"
	"github.com/hilite/wingman/store/cache"
)

// Store provides database access to all raw objects.
type Store struct {
	profile *profile.Profile
	driver  Driver

	// Caches
	settingCache *cache.Cache // cache for user settings
}

// New creates a new instance of Store.
func New(driver Driver, profile *profile.Profile) *Store {
	cacheConfig := cache.Config{
		DefaultTTL:      10 * time.Minute,
		CleanupInterval: 5 * time.Minute,
		MaxItems:        1000,
	}

	return &Store{
		driver:       driver,
		profile:      profile,
		settingCache: cache.New(cacheConfig),
	}
}

func (s *Store) GetDriver() Driver {
	return s.driver
}

// RunInTransaction executes fn atomically: either every staged mutation
// commits, or none of them are visible. Store methods called with the context
// passed to fn run inside the transaction.
func (s *Store) RunInTransaction(ctx context.Context, fn func(ctx context.Context) error) error {
	return s.driver.RunInTransaction(ctx, fn)
}

func (s *Store) Close() error {
	s.settingCache.Close()
	return s.driver.Close()
}
