package repository

import (
	"context"
	"database/sql"
	"time"

	"github.com/mariiahub/booking-core/internal/model"
)

// Store bundles the per-table repositories behind one handle and adds
// the cross-table pieces: transactional scope and the capacity
// aggregate that reads holds and bookings together.  The flow layer's
// store interfaces (lock, hold, convert, capacity, sweep) are all
// satisfied by this one type.
type Store struct {
	db       *sql.DB
	Services *ServiceRepo
	Locks    *LockRepo
	Holds    *HoldRepo
	Bookings *BookingRepo
	Waitlist *WaitlistRepo
}

// NewStore builds a Store and its repositories over the given pool.
func NewStore(db *sql.DB) *Store {
	return &Store{
		db:       db,
		Services: NewServiceRepo(db),
		Locks:    NewLockRepo(db),
		Holds:    NewHoldRepo(db),
		Bookings: NewBookingRepo(db),
		Waitlist: NewWaitlistRepo(db),
	}
}

// DB exposes the underlying pool for lifecycle management (close,
// ping).
func (s *Store) DB() *sql.DB { return s.db }

// WithTx runs fn inside a single database transaction.  See the
// package-level WithTx for join/rollback semantics.
func (s *Store) WithTx(ctx context.Context, fn func(ctx context.Context) error) error {
	return WithTx(ctx, s.db, fn)
}

// Lock store.

func (s *Store) UpsertLock(ctx context.Context, key, ownerID string, epoch int64, expiresAt time.Time) (bool, error) {
	return s.Locks.UpsertLock(ctx, key, ownerID, epoch, expiresAt)
}

func (s *Store) DeleteLock(ctx context.Context, key, ownerID string, epoch int64) error {
	return s.Locks.DeleteLock(ctx, key, ownerID, epoch)
}

func (s *Store) UpdateLockExpiry(ctx context.Context, key, ownerID string, epoch, newEpoch int64, expiresAt time.Time) (bool, error) {
	return s.Locks.UpdateLockExpiry(ctx, key, ownerID, epoch, newEpoch, expiresAt)
}

// Hold store.

func (s *Store) InsertHold(ctx context.Context, h *model.Hold) error {
	return s.Holds.InsertHold(ctx, h)
}

func (s *Store) GetHold(ctx context.Context, id uint64) (*model.Hold, error) {
	return s.Holds.GetHold(ctx, id)
}

func (s *Store) GetHoldForUpdate(ctx context.Context, id uint64) (*model.Hold, error) {
	return s.Holds.GetHoldForUpdate(ctx, id)
}

func (s *Store) GetHoldBySlotSession(ctx context.Context, serviceID uint64, slotStartsAt time.Time, sessionID string, now time.Time) (*model.Hold, error) {
	return s.Holds.GetHoldBySlotSession(ctx, serviceID, slotStartsAt, sessionID, now)
}

func (s *Store) DeleteHoldBySession(ctx context.Context, id uint64, sessionID string) (bool, error) {
	return s.Holds.DeleteHoldBySession(ctx, id, sessionID)
}

func (s *Store) DeleteHold(ctx context.Context, id uint64) (bool, error) {
	return s.Holds.DeleteHold(ctx, id)
}

func (s *Store) ExtendHold(ctx context.Context, id uint64, sessionID string, now, newExpiresAt time.Time) (bool, error) {
	return s.Holds.ExtendHold(ctx, id, sessionID, now, newExpiresAt)
}

// Capacity store.

func (s *Store) SumActiveHoldParties(ctx context.Context, serviceID uint64, slotStartsAt, now time.Time) (uint32, error) {
	return s.Holds.SumActiveHoldParties(ctx, serviceID, slotStartsAt, now)
}

func (s *Store) SumBookedParties(ctx context.Context, serviceID uint64, slotStartsAt time.Time) (uint32, error) {
	return s.Bookings.SumBookedParties(ctx, serviceID, slotStartsAt)
}

// Booking store.

func (s *Store) InsertBooking(ctx context.Context, b *model.Booking) error {
	return s.Bookings.InsertBooking(ctx, b)
}

func (s *Store) CancelBooking(ctx context.Context, bookingID, userID uint64) (bool, error) {
	return s.Bookings.CancelBooking(ctx, bookingID, userID)
}

// Waitlist store.

func (s *Store) ListPromotable(ctx context.Context, limit int) ([]*model.WaitlistEntry, error) {
	return s.Waitlist.ListPromotable(ctx, limit)
}

func (s *Store) MarkPromoted(ctx context.Context, entryID, bookingID uint64) (bool, error) {
	return s.Waitlist.MarkPromoted(ctx, entryID, bookingID)
}

func (s *Store) MarkExpired(ctx context.Context, entryID uint64) (bool, error) {
	return s.Waitlist.MarkExpired(ctx, entryID)
}

func (s *Store) IncrementAttempts(ctx context.Context, entryID uint64) error {
	return s.Waitlist.IncrementAttempts(ctx, entryID)
}

// Sweep store.

func (s *Store) DeleteExpiredHolds(ctx context.Context, now time.Time) (int64, error) {
	return s.Holds.DeleteExpiredHolds(ctx, now)
}

func (s *Store) DeleteExpiredLocks(ctx context.Context, now time.Time) (int64, error) {
	return s.Locks.DeleteExpiredLocks(ctx, now)
}
