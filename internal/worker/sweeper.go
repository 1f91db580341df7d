package worker

import (
	"context"
	"log"
	"time"

	"github.com/mariiahub/booking-core/internal/clock"
)

// SweepStore deletes rows whose TTL has passed.  Both methods take the
// cutoff explicitly so tests can sweep at a pinned instant.
type SweepStore interface {
	DeleteExpiredHolds(ctx context.Context, now time.Time) (int64, error)
	DeleteExpiredLocks(ctx context.Context, now time.Time) (int64, error)
}

// DefaultSweepInterval keeps garbage bounded without storming the
// store.  Sweeping late is harmless: every read path already excludes
// expired rows by timestamp, so a stalled sweeper makes capacity look
// scarce but can never overbook.
const DefaultSweepInterval = time.Minute

// Sweeper is the background reaper for lapsed holds and locks.  It is a
// correctness backstop, not a correctness requirement.
type Sweeper struct {
	store    SweepStore
	clock    clock.Clock
	interval time.Duration
}

// NewSweeper builds a sweeper.  A non-positive interval falls back to
// DefaultSweepInterval.
func NewSweeper(store SweepStore, clk clock.Clock, interval time.Duration) *Sweeper {
	if interval <= 0 {
		interval = DefaultSweepInterval
	}
	return &Sweeper{store: store, clock: clk, interval: interval}
}

// Run drives Sweep on a ticker until the context is cancelled.
func (s *Sweeper) Run(ctx context.Context) {
	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()
	log.Printf("sweeper: running every %s", s.interval)
	for {
		select {
		case <-ctx.Done():
			log.Printf("sweeper: stopping: %v", ctx.Err())
			return
		case <-ticker.C:
			if err := s.Sweep(ctx); err != nil {
				log.Printf("sweeper: sweep failed: %v", err)
			}
		}
	}
}

// Sweep deletes everything past its expires_at as of now.  Holds go
// first so a crash between the two deletes never leaves a hold guarded
// by nothing while its lock row lingers.
func (s *Sweeper) Sweep(ctx context.Context) error {
	now := s.clock.Now()

	holds, err := s.store.DeleteExpiredHolds(ctx, now)
	if err != nil {
		return err
	}
	locks, err := s.store.DeleteExpiredLocks(ctx, now)
	if err != nil {
		return err
	}
	if holds > 0 || locks > 0 {
		log.Printf("sweeper: reaped holds=%d locks=%d", holds, locks)
	}
	return nil
}
