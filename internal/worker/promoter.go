// Package worker contains the timer-driven background tasks: waitlist
// promotion and expiry sweeping.  Both reuse the same reservation
// primitives as the user-facing flows — there is exactly one commit
// path in the system, whichever trigger drives it.
package worker

import (
	"context"
	"errors"
	"log"
	"strconv"
	"time"

	"github.com/google/uuid"

	"github.com/mariiahub/booking-core/internal/booking"
	"github.com/mariiahub/booking-core/internal/clock"
	"github.com/mariiahub/booking-core/internal/model"
)

// WaitlistStore is the persistence contract the promoter needs.  Status
// transitions on entries belong to the promoter alone; the user-facing
// layer only reads entries (and may cancel pending ones).
type WaitlistStore interface {
	// WithTx runs fn as one transactional unit; nested transactional
	// calls inside fn join it.  The promoter commits the conversion and
	// the entry's PROMOTED transition together so neither can survive
	// without the other.
	WithTx(ctx context.Context, fn func(ctx context.Context) error) error

	// ListPromotable returns pending entries with attempts left, in
	// (priority_score desc, created_at asc) order, at most limit rows.
	ListPromotable(ctx context.Context, limit int) ([]*model.WaitlistEntry, error)

	// MarkPromoted transitions a still-pending entry to PROMOTED with
	// the booking reference, reporting whether the row changed.
	MarkPromoted(ctx context.Context, entryID, bookingID uint64) (bool, error)

	// MarkExpired transitions a still-pending entry to EXPIRED.
	MarkExpired(ctx context.Context, entryID uint64) (bool, error)

	// IncrementAttempts bumps the failed-attempt counter.
	IncrementAttempts(ctx context.Context, entryID uint64) error
}

// promoterLockKey guards the sweep itself so overlapping timers (or two
// service instances) do not walk the waitlist concurrently.  Individual
// promotions would still be safe without it — every attempt re-validates
// capacity inside CreateHold — but serializing sweeps keeps priority
// order meaningful.
const promoterLockKey = "waitlist:promoter"

// DefaultPromoterInterval matches the design target: promotion is a
// periodic background concern, not a real-time one.
const DefaultPromoterInterval = 3 * time.Minute

// defaultBatchSize bounds how many entries one sweep attempts.
const defaultBatchSize = 50

// Promoter periodically retries pending waitlist entries against
// current capacity, funneling every successful attempt through the
// normal hold-then-convert path.
type Promoter struct {
	holds     *booking.HoldManager
	converter *booking.Converter
	eval      *booking.Evaluator
	locks     *booking.LockManager
	store     WaitlistStore
	clock     clock.Clock
	interval  time.Duration
	batchSize int
	ownerID   string

	// Notify, when set, is called after an entry has been durably
	// promoted.  Used to publish waitlist.promoted events; failures
	// there must not affect promotion, so the hook returns nothing.
	Notify func(entry *model.WaitlistEntry, b *model.Booking)
}

// NewPromoter builds a promoter.  A non-positive interval falls back to
// DefaultPromoterInterval.
func NewPromoter(holds *booking.HoldManager, converter *booking.Converter, eval *booking.Evaluator, locks *booking.LockManager, store WaitlistStore, clk clock.Clock, interval time.Duration) *Promoter {
	if interval <= 0 {
		interval = DefaultPromoterInterval
	}
	return &Promoter{
		holds:     holds,
		converter: converter,
		eval:      eval,
		locks:     locks,
		store:     store,
		clock:     clk,
		interval:  interval,
		batchSize: defaultBatchSize,
		ownerID:   "promoter-" + uuid.NewString(),
	}
}

// Run drives Sweep on a ticker until the context is cancelled.  Errors
// are logged and the loop keeps going; a broken sweep must not take the
// worker down.
func (p *Promoter) Run(ctx context.Context) {
	ticker := time.NewTicker(p.interval)
	defer ticker.Stop()
	log.Printf("promoter: running every %s", p.interval)
	for {
		select {
		case <-ctx.Done():
			log.Printf("promoter: stopping: %v", ctx.Err())
			return
		case <-ticker.C:
			if err := p.Sweep(ctx); err != nil {
				log.Printf("promoter: sweep failed: %v", err)
			}
		}
	}
}

// Sweep runs one promotion pass.  It takes the promoter lock and walks
// promotable entries in priority order, attempting each one before
// moving on.  A promotion commits the booking and the entry transition
// as one unit, so a crash mid-sweep leaves at most an orphaned hold for
// the next sweep to reuse.
func (p *Promoter) Sweep(ctx context.Context) error {
	grant, acquired, err := p.locks.Acquire(ctx, promoterLockKey, p.ownerID)
	if err != nil {
		return err
	}
	if !acquired {
		// Another sweep is in flight; this tick just skips.
		return nil
	}
	defer func() {
		_ = p.locks.Release(ctx, grant)
	}()

	entries, err := p.store.ListPromotable(ctx, p.batchSize)
	if err != nil {
		return err
	}
	for _, entry := range entries {
		outcome, err := p.promote(ctx, entry)
		if err != nil {
			log.Printf("promoter: entry=%d outcome=error err=%v", entry.ID, err)
			continue
		}
		log.Printf("promoter: entry=%d outcome=%s", entry.ID, outcome)

		// Keep the lock alive across long batches.
		if g, ok, rerr := p.locks.Renew(ctx, grant); rerr == nil && ok {
			grant = g
		}
	}
	return nil
}

// promote attempts a single entry and records its status transition.
// The returned outcome string feeds the per-attempt observability log.
func (p *Promoter) promote(ctx context.Context, entry *model.WaitlistEntry) (string, error) {
	svc, err := p.eval.Service(ctx, entry.ServiceID)
	if err != nil {
		if errors.Is(err, booking.ErrServiceNotFound) {
			_, merr := p.store.MarkExpired(ctx, entry.ID)
			return "expired_service_gone", merr
		}
		return "", err
	}
	if !svc.Active {
		_, merr := p.store.MarkExpired(ctx, entry.ID)
		return "expired_service_inactive", merr
	}

	sessionID := promotionSessionID(entry)
	for _, key := range p.candidates(entry, svc) {
		hold, err := p.holds.CreateHold(ctx, key, entry.UserID, sessionID, entry.PartySize)
		switch {
		case err == nil:
			// fall through to conversion below
		case errors.Is(err, booking.ErrSlotContended),
			errors.Is(err, booking.ErrCapacityExceeded):
			continue
		case errors.Is(err, booking.ErrGroupSizeNotAllowed),
			errors.Is(err, booking.ErrInvalidPartySize):
			// The entry itself is unplaceable; retrying cannot help.
			_, merr := p.store.MarkExpired(ctx, entry.ID)
			return "expired_unplaceable", merr
		default:
			return "", err
		}

		b, err := p.convert(ctx, entry, hold)
		if err != nil {
			if errors.Is(err, errEntryNotPending) {
				// The entry was cancelled underneath the sweep; the
				// rollback discarded the booking.
				_, _ = p.holds.ReleaseHold(ctx, hold.ID, sessionID)
				return "entry_gone", nil
			}
			if booking.IsExpectedFlowError(err) || errors.Is(err, booking.ErrRepricingFailed) {
				// Give the capacity back and count the attempt; the
				// next sweep tries again.
				_, _ = p.holds.ReleaseHold(ctx, hold.ID, sessionID)
				break
			}
			return "", err
		}

		if p.Notify != nil {
			p.Notify(entry, b)
		}
		return "promoted", nil
	}

	return p.recordFailure(ctx, entry)
}

// errEntryNotPending aborts a promotion transaction whose entry changed
// status underneath it, rolling the freshly converted booking back.
var errEntryNotPending = errors.New("waitlist entry no longer pending")

// convert funnels a promotion hold through the one true commit path,
// using the contact details stored on the entry.  The conversion and the
// entry's PROMOTED transition commit atomically; a crash between them
// can therefore never leave a booking behind that the next sweep would
// duplicate.
func (p *Promoter) convert(ctx context.Context, entry *model.WaitlistEntry, hold *model.Hold) (*model.Booking, error) {
	var b *model.Booking
	err := p.store.WithTx(ctx, func(txCtx context.Context) error {
		res, err := p.converter.Convert(txCtx, booking.ConvertInput{
			HoldID:       hold.ID,
			SessionID:    hold.SessionID,
			ContactName:  entry.ContactName,
			ContactPhone: entry.ContactPhone,
		})
		if err != nil {
			return err
		}
		b = res.Booking

		changed, err := p.store.MarkPromoted(txCtx, entry.ID, b.ID)
		if err != nil {
			return err
		}
		if !changed {
			return errEntryNotPending
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return b, nil
}

// recordFailure bumps the attempt counter and expires the entry once
// the budget is spent.
func (p *Promoter) recordFailure(ctx context.Context, entry *model.WaitlistEntry) (string, error) {
	if err := p.store.IncrementAttempts(ctx, entry.ID); err != nil {
		return "", err
	}
	if entry.PromotionAttempts+1 >= entry.MaxAttempts {
		if _, err := p.store.MarkExpired(ctx, entry.ID); err != nil {
			return "", err
		}
		return "expired_attempts", nil
	}
	return "no_capacity", nil
}

// candidates lists the slot keys to try for an entry: the preferred
// slot first, then — for flexible entries — alternating later/earlier
// slots stepped by the service duration, out to the tolerance window.
// Candidates already in the past are skipped.
func (p *Promoter) candidates(entry *model.WaitlistEntry, svc *model.Service) []booking.SlotKey {
	now := p.clock.Now()
	keys := make([]booking.SlotKey, 0, 8)
	add := func(t time.Time) {
		if t.After(now) {
			keys = append(keys, booking.NewSlotKey(entry.ServiceID, t))
		}
	}

	add(entry.PreferredStartsAt)
	if !entry.Flexible || entry.ToleranceMin == 0 {
		return keys
	}

	step := time.Duration(svc.DurationMin) * time.Minute
	if step <= 0 {
		return keys
	}
	tolerance := time.Duration(entry.ToleranceMin) * time.Minute
	for offset := step; offset <= tolerance; offset += step {
		add(entry.PreferredStartsAt.Add(offset))
		add(entry.PreferredStartsAt.Add(-offset))
	}
	return keys
}

// promotionSessionID is stable per entry so a promotion attempt that
// crashed between hold creation and the entry-status update collides
// with its own leftover hold on the next sweep instead of claiming
// capacity twice.
func promotionSessionID(entry *model.WaitlistEntry) string {
	return "wl-" + strconv.FormatUint(entry.ID, 10)
}
