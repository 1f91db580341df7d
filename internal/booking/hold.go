package booking

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"errors"
	"fmt"
	"time"

	"github.com/mariiahub/booking-core/internal/clock"
	"github.com/mariiahub/booking-core/internal/model"
)

// ErrHoldExists is returned by HoldStore.InsertHold when the session
// already has a hold on the slot (store-level uniqueness on
// (service_id, slot_starts_at, session_id)).
var ErrHoldExists = errors.New("hold exists for slot and session")

// HoldStore is the persistence contract for holds.
type HoldStore interface {
	// InsertHold writes a new hold row, populating the generated id on
	// the passed record.  Returns ErrHoldExists on a duplicate
	// (slot, session) pair.
	InsertHold(ctx context.Context, h *model.Hold) error

	// GetHold returns the hold by id, expired or not, or
	// ErrHoldNotFound when no row exists.
	GetHold(ctx context.Context, id uint64) (*model.Hold, error)

	// GetHoldBySlotSession returns the session's non-expired hold on
	// the slot, or ErrHoldNotFound.
	GetHoldBySlotSession(ctx context.Context, serviceID uint64, slotStartsAt time.Time, sessionID string, now time.Time) (*model.Hold, error)

	// DeleteHoldBySession removes the hold iff the session matches,
	// reporting whether a row was deleted.
	DeleteHoldBySession(ctx context.Context, id uint64, sessionID string) (bool, error)

	// ExtendHold pushes expires_at forward and bumps the version iff
	// the session matches and the hold has not expired as of now.
	ExtendHold(ctx context.Context, id uint64, sessionID string, now, newExpiresAt time.Time) (bool, error)
}

// HoldManager creates and releases the short-lived reservations that
// carry a customer through checkout.  Creation serializes the capacity
// check and the insert behind a slot lock; the lock is released as soon
// as the hold row exists, because from that point the hold itself (plus
// store-level accounting) is the durable guard.  Holding the lock for
// the whole checkout would make the system single-threaded per slot.
type HoldManager struct {
	locks *LockManager
	eval  *Evaluator
	store HoldStore
	clock clock.Clock
	ttl   time.Duration
}

// DefaultHoldTTL covers a typical checkout: long enough to enter
// contact and payment details, short enough that abandoned carts give
// capacity back quickly.
const DefaultHoldTTL = 10 * time.Minute

// NewHoldManager builds a hold manager.  A non-positive ttl falls back
// to DefaultHoldTTL.
func NewHoldManager(locks *LockManager, eval *Evaluator, store HoldStore, clk clock.Clock, ttl time.Duration) *HoldManager {
	if ttl <= 0 {
		ttl = DefaultHoldTTL
	}
	return &HoldManager{locks: locks, eval: eval, store: store, clock: clk, ttl: ttl}
}

// TTL reports the hold lifetime this manager stamps on new holds.
func (m *HoldManager) TTL() time.Duration { return m.ttl }

// CreateHold places a provisional claim on the slot for the session.
//
// The sequence is lock → evaluate → insert → unlock.  The lock only
// serializes the evaluate+insert pair; without it the capacity read is
// advisory and two concurrent callers could both see room for the last
// spot.  Failure modes:
//   - ErrSlotContended when the slot lock is held elsewhere,
//   - the evaluator's reason (ErrCapacityExceeded and friends),
//   - ErrHoldConflict when the session already holds this slot with a
//     different party size.
//
// A repeated call with identical parameters returns the session's
// existing active hold, which makes retried checkouts and re-run
// promotion attempts safe.
func (m *HoldManager) CreateHold(ctx context.Context, key SlotKey, userID uint64, sessionID string, partySize uint32) (*model.Hold, error) {
	grant, acquired, err := m.locks.Acquire(ctx, key.LockKey(), sessionID)
	if err != nil {
		return nil, err
	}
	if !acquired {
		return nil, ErrSlotContended
	}
	// The lock's critical section spans the evaluate+insert below; every
	// exit path must release it.
	defer func() {
		_ = m.locks.Release(ctx, grant)
	}()

	svc, err := m.eval.Service(ctx, key.ServiceID)
	if err != nil {
		return nil, err
	}

	// Resolve a retry before counting capacity: the session's own earlier
	// hold counts toward the slot's usage, so a full slot must not mask
	// the hold the caller is trying to get back.
	existing, err := m.store.GetHoldBySlotSession(ctx, key.ServiceID, key.StartsAt, sessionID, m.clock.Now())
	if err == nil {
		if existing.PartySize != partySize {
			return nil, ErrHoldConflict
		}
		return existing, nil
	}
	if !errors.Is(err, ErrHoldNotFound) {
		return nil, err
	}

	ev, err := m.eval.EvaluateFor(ctx, svc, key, partySize)
	if err != nil {
		return nil, err
	}
	if !ev.Available {
		return nil, ev.Reason
	}

	token, err := randomToken(32)
	if err != nil {
		return nil, fmt.Errorf("generate hold token: %w", err)
	}

	now := m.clock.Now()
	hold := &model.Hold{
		ServiceID:    key.ServiceID,
		SlotStartsAt: key.StartsAt,
		SlotEndsAt:   key.StartsAt.Add(time.Duration(svc.DurationMin) * time.Minute),
		UserID:       userID,
		SessionID:    sessionID,
		PartySize:    partySize,
		HoldToken:    token,
		ExpiresAt:    now.Add(m.ttl),
		Version:      1,
	}

	if err := m.store.InsertHold(ctx, hold); err != nil {
		if errors.Is(err, ErrHoldExists) {
			return m.existingHold(ctx, key, sessionID, partySize)
		}
		return nil, fmt.Errorf("insert hold for %s: %w", key, err)
	}
	return hold, nil
}

// existingHold resolves an insert that collided with the session's own
// earlier hold.  Matching party size means a retry of the same request
// (a double-clicked checkout, or a promotion attempt re-run after a
// crash) and returns the original hold; a different size is a real
// conflict the caller has to resolve by releasing first.
func (m *HoldManager) existingHold(ctx context.Context, key SlotKey, sessionID string, partySize uint32) (*model.Hold, error) {
	existing, err := m.store.GetHoldBySlotSession(ctx, key.ServiceID, key.StartsAt, sessionID, m.clock.Now())
	if err != nil {
		if errors.Is(err, ErrHoldNotFound) {
			// The colliding row expired between insert and re-read.
			return nil, ErrSlotContended
		}
		return nil, err
	}
	if existing.PartySize != partySize {
		return nil, ErrHoldConflict
	}
	return existing, nil
}

// ReleaseHold deletes the hold iff sessionID owns it.  Releasing a hold
// that is already gone is a no-op; release is idempotent by design so
// clients can fire it on every abandoned checkout without checking
// state first.
func (m *HoldManager) ReleaseHold(ctx context.Context, holdID uint64, sessionID string) (bool, error) {
	deleted, err := m.store.DeleteHoldBySession(ctx, holdID, sessionID)
	if err != nil {
		return false, fmt.Errorf("release hold %d: %w", holdID, err)
	}
	return deleted, nil
}

// RenewHold extends an unexpired hold by one TTL under session
// ownership.  It returns the new expiry, ErrHoldNotFound when the hold
// is gone or lapsed, or ErrOwnershipMismatch when another session owns
// it.
func (m *HoldManager) RenewHold(ctx context.Context, holdID uint64, sessionID string) (time.Time, error) {
	now := m.clock.Now()
	newExpiry := now.Add(m.ttl)

	extended, err := m.store.ExtendHold(ctx, holdID, sessionID, now, newExpiry)
	if err != nil {
		return time.Time{}, fmt.Errorf("renew hold %d: %w", holdID, err)
	}
	if extended {
		return newExpiry, nil
	}

	// Distinguish the three reasons the conditional update missed.
	hold, err := m.store.GetHold(ctx, holdID)
	if err != nil {
		return time.Time{}, err
	}
	if hold.SessionID != sessionID {
		return time.Time{}, ErrOwnershipMismatch
	}
	return time.Time{}, ErrHoldExpired
}

// randomToken returns n bytes of cryptographically secure randomness,
// hex encoded.  Hold tokens are opaque correlation handles for clients;
// they carry no authority on their own.
func randomToken(n int) (string, error) {
	b := make([]byte, n)
	if _, err := rand.Read(b); err != nil {
		return "", err
	}
	return hex.EncodeToString(b), nil
}
