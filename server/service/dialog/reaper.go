package dialog

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/hilite/wingman/store"
)

// sweepConcurrency bounds parallel file deletions during a sweep.
const sweepConcurrency = 4

// Reaper is the best-effort hygiene pass removing image records no longer
// referenced by any dialog or group cover. It only ever sees last-committed
// state, so an image gaining a reference inside an open transaction is safe.
type Reaper struct {
	store  *store.Store
	logger *slog.Logger

	// kick is buffered with size one so redundant kicks coalesce.
	kick chan struct{}
	done chan struct{}
	once sync.Once
	wg   sync.WaitGroup

	// sweepMu serializes overlapping sweeps; each pass is re-entrant anyway
	// since a row already removed is a no-op.
	sweepMu sync.Mutex
}

func NewReaper(st *store.Store, logger *slog.Logger) *Reaper {
	return &Reaper{
		store:  st,
		logger: logger,
		kick:   make(chan struct{}, 1),
		done:   make(chan struct{}),
	}
}

// Kick schedules an asynchronous sweep. Safe to call redundantly.
func (r *Reaper) Kick() {
	select {
	case r.kick <- struct{}{}:
	default:
	}
}

// Start runs the background loop: a sweep on every kick and on a periodic
// ticker. Stop terminates it.
func (r *Reaper) Start(ctx context.Context, interval time.Duration) {
	r.wg.Add(1)
	go func() {
		defer r.wg.Done()
		ticker := time.NewTicker(interval)
		defer ticker.Stop()
		for {
			select {
			case <-r.done:
				return
			case <-ctx.Done():
				return
			case <-r.kick:
			case <-ticker.C:
			}
			if err := r.Sweep(ctx); err != nil {
				r.logger.Warn("orphan sweep failed", slog.String("error", err.Error()))
			}
		}
	}()
}

// Stop terminates the background loop and waits for it.
func (r *Reaper) Stop() {
	r.once.Do(func() { close(r.done) })
	r.wg.Wait()
}

// Sweep deletes every orphaned image's file and record. Failures on
// individual images are logged and skipped; cleanup is not correctness-
// critical and the next pass retries.
func (r *Reaper) Sweep(ctx context.Context) error {
	r.sweepMu.Lock()
	defer r.sweepMu.Unlock()

	orphans, err := r.store.ListImages(ctx, &store.FindImage{OrphanedOnly: true})
	if err != nil {
		return err
	}
	if len(orphans) == 0 {
		return nil
	}

	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(sweepConcurrency)
	for _, image := range orphans {
		g.Go(func() error {
			if err := r.store.DeleteImage(ctx, &store.DeleteImage{ID: image.ID}); err != nil {
				r.logger.Warn("failed to reap orphaned image",
					slog.Int64("image_id", int64(image.ID)),
					slog.String("error", err.Error()))
			}
			return nil
		})
	}
	_ = g.Wait()

	r.logger.Info("orphan sweep completed", slog.Int("reaped", len(orphans)))
	return nil
}
