package booking

import (
	"context"
	"fmt"
	"time"

	"github.com/mariiahub/booking-core/internal/clock"
)

// LockStore is the persistence contract for slot locks.  The store must
// make UpsertLock atomic: a single statement that claims the key when no
// non-expired lock exists (or when the existing owner matches) and
// reports whether the claim succeeded.
type LockStore interface {
	// UpsertLock writes the lock row with the given owner, epoch and
	// expiry iff the key is free, expired, or already owned by owner.
	// It returns true when the lock is now held with the new epoch.
	UpsertLock(ctx context.Context, key, ownerID string, epoch int64, expiresAt time.Time) (bool, error)

	// DeleteLock removes the row iff owner and epoch both match.  A
	// mismatch deletes nothing and is not an error.
	DeleteLock(ctx context.Context, key, ownerID string, epoch int64) error

	// UpdateLockExpiry extends the row to newEpoch/expiresAt iff owner
	// and epoch match, returning whether the update took effect.
	UpdateLockExpiry(ctx context.Context, key, ownerID string, epoch, newEpoch int64, expiresAt time.Time) (bool, error)
}

// LockGrant is the proof of ownership returned by a successful acquire.
// Release and renew require the grant back so a caller whose lock
// expired and was reassigned cannot disturb the new holder.
type LockGrant struct {
	Key       string
	OwnerID   string
	Epoch     int64
	ExpiresAt time.Time
}

// LockManager hands out named TTL locks with monotonic epochs.  Acquire
// never blocks: callers either get the lock or a clean rejection and
// must retry with jittered backoff outside the core.  There is no
// queueing or fairness at this layer; the first successful writer wins.
type LockManager struct {
	store LockStore
	clock clock.Clock
	ttl   time.Duration
}

// DefaultLockTTL bounds the critical section a lock protects.  The
// capacity-check-then-insert sequence takes milliseconds; the TTL only
// needs to outlive a slow store round trip.
const DefaultLockTTL = 10 * time.Second

// NewLockManager builds a lock manager over the given store.  A
// non-positive ttl falls back to DefaultLockTTL.
func NewLockManager(store LockStore, clk clock.Clock, ttl time.Duration) *LockManager {
	if ttl <= 0 {
		ttl = DefaultLockTTL
	}
	return &LockManager{store: store, clock: clk, ttl: ttl}
}

// Acquire attempts to take the named lock for ownerID.  It succeeds when
// no non-expired lock exists for the key or the existing lock already
// belongs to ownerID (idempotent re-acquire).  The epoch is the acquire
// time in unix nanoseconds, so every successful acquire observably
// bumps the version.
func (m *LockManager) Acquire(ctx context.Context, key, ownerID string) (LockGrant, bool, error) {
	now := m.clock.Now()
	epoch := now.UnixNano()
	expiresAt := now.Add(m.ttl)

	acquired, err := m.store.UpsertLock(ctx, key, ownerID, epoch, expiresAt)
	if err != nil {
		return LockGrant{}, false, fmt.Errorf("acquire lock %s: %w", key, err)
	}
	if !acquired {
		return LockGrant{}, false, nil
	}
	return LockGrant{Key: key, OwnerID: ownerID, Epoch: epoch, ExpiresAt: expiresAt}, true, nil
}

// Release drops the lock described by the grant.  When the stored owner
// or epoch no longer match, the caller's ownership was already lost to
// expiry and reassignment; that case deletes nothing and returns nil.
func (m *LockManager) Release(ctx context.Context, g LockGrant) error {
	if err := m.store.DeleteLock(ctx, g.Key, g.OwnerID, g.Epoch); err != nil {
		return fmt.Errorf("release lock %s: %w", g.Key, err)
	}
	return nil
}

// Renew extends the grant by one TTL under the same owner+epoch match
// rule as Release.  On success it returns the refreshed grant with a new
// epoch; renewed == false means ownership was lost.
func (m *LockManager) Renew(ctx context.Context, g LockGrant) (LockGrant, bool, error) {
	now := m.clock.Now()
	newEpoch := now.UnixNano()
	expiresAt := now.Add(m.ttl)

	renewed, err := m.store.UpdateLockExpiry(ctx, g.Key, g.OwnerID, g.Epoch, newEpoch, expiresAt)
	if err != nil {
		return LockGrant{}, false, fmt.Errorf("renew lock %s: %w", g.Key, err)
	}
	if !renewed {
		return LockGrant{}, false, nil
	}
	return LockGrant{Key: g.Key, OwnerID: g.OwnerID, Epoch: newEpoch, ExpiresAt: expiresAt}, true, nil
}
