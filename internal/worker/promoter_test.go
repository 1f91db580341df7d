package worker

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mariiahub/booking-core/internal/booking"
	"github.com/mariiahub/booking-core/internal/clock"
	"github.com/mariiahub/booking-core/internal/model"
	"github.com/mariiahub/booking-core/internal/pricing"
)

type promoterFixture struct {
	clk      *clock.Fixed
	store    *memStore
	locks    *booking.LockManager
	holds    *booking.HoldManager
	promoter *Promoter
}

func newPromoterFixture(t *testing.T, capacity uint32) *promoterFixture {
	t.Helper()
	clk := clock.NewFixed(time.Date(2026, 3, 10, 9, 0, 0, 0, time.UTC))
	store := newMemStore(clk)
	store.addService(&model.Service{
		ID:             1,
		Name:           "Pilates Reformer",
		Category:       "fitness",
		DurationMin:    60,
		Capacity:       capacity,
		GroupAllowed:   true,
		MaxGroupSize:   4,
		BasePriceCents: 3000,
		Active:         true,
	})
	locks := booking.NewLockManager(store, clk, 10*time.Second)
	eval := booking.NewEvaluator(store, store, clk)
	holds := booking.NewHoldManager(locks, eval, store, clk, 10*time.Minute)
	converter := booking.NewConverter(store, eval, pricing.RuleQuoter{}, clk)
	promoter := NewPromoter(holds, converter, eval, locks, store, clk, time.Minute)
	return &promoterFixture{clk: clk, store: store, locks: locks, holds: holds, promoter: promoter}
}

func (f *promoterFixture) slot() time.Time {
	return f.clk.Now().Add(3 * time.Hour).Truncate(time.Minute)
}

func (f *promoterFixture) pendingEntry(userID uint64, priority int32, createdOffset time.Duration) *model.WaitlistEntry {
	return f.store.addEntry(&model.WaitlistEntry{
		ServiceID:         1,
		UserID:            userID,
		PartySize:         1,
		PreferredStartsAt: f.slot(),
		PriorityScore:     priority,
		MaxAttempts:       3,
		ContactName:       "User",
		ContactPhone:      "+48000000000",
		CreatedAt:         f.clk.Now().Add(createdOffset),
	})
}

func TestSweepPromotesPendingEntry(t *testing.T) {
	f := newPromoterFixture(t, 2)
	entry := f.pendingEntry(10, 0, 0)

	require.NoError(t, f.promoter.Sweep(context.Background()))

	got := f.store.entry(entry.ID)
	assert.Equal(t, model.WaitlistStatusPromoted, got.Status)
	require.NotNil(t, got.BookingID)

	b := f.store.bookings[*got.BookingID]
	require.NotNil(t, b)
	assert.Equal(t, model.BookingStatusConfirmed, b.Status)
	assert.Equal(t, uint64(10), b.UserID)
	assert.Equal(t, entry.PreferredStartsAt, b.SlotStartsAt)
	assert.Equal(t, entry.ContactName, b.ContactName)
}

func TestSweepHonorsPriorityThenAge(t *testing.T) {
	// Capacity 2, three single-person entries with priorities 10, 5, 5.
	// The high-priority entry and the older of the two fives win; the
	// younger five records a failed attempt.
	f := newPromoterFixture(t, 2)
	high := f.pendingEntry(1, 10, 0)
	older := f.pendingEntry(2, 5, -2*time.Hour)
	younger := f.pendingEntry(3, 5, -time.Hour)

	require.NoError(t, f.promoter.Sweep(context.Background()))

	assert.Equal(t, model.WaitlistStatusPromoted, f.store.entry(high.ID).Status)
	assert.Equal(t, model.WaitlistStatusPromoted, f.store.entry(older.ID).Status)

	missed := f.store.entry(younger.ID)
	assert.Equal(t, model.WaitlistStatusPending, missed.Status)
	assert.Equal(t, uint32(1), missed.PromotionAttempts)
}

func TestSweepSkipsWhenAnotherSweepHoldsLock(t *testing.T) {
	f := newPromoterFixture(t, 2)
	entry := f.pendingEntry(10, 0, 0)

	_, acquired, err := f.locks.Acquire(context.Background(), "waitlist:promoter", "other-instance")
	require.NoError(t, err)
	require.True(t, acquired)

	require.NoError(t, f.promoter.Sweep(context.Background()))

	got := f.store.entry(entry.ID)
	assert.Equal(t, model.WaitlistStatusPending, got.Status, "a held sweep lock must skip the pass")
	assert.Zero(t, got.PromotionAttempts)
}

func TestDoubleSweepPromotesAtMostOnce(t *testing.T) {
	f := newPromoterFixture(t, 4)
	entry := f.pendingEntry(10, 0, 0)

	require.NoError(t, f.promoter.Sweep(context.Background()))
	require.NoError(t, f.promoter.Sweep(context.Background()))

	got := f.store.entry(entry.ID)
	assert.Equal(t, model.WaitlistStatusPromoted, got.Status)
	assert.Equal(t, 1, f.store.bookingCount(), "re-sweeping must not duplicate the booking")
}

func TestSweepReusesLeftoverPromotionHold(t *testing.T) {
	// A previous attempt crashed after creating the hold but before the
	// entry update.  The stable per-entry session makes the next sweep
	// collide with its own leftover instead of claiming capacity twice.
	f := newPromoterFixture(t, 1)
	entry := f.pendingEntry(10, 0, 0)

	key := booking.NewSlotKey(1, entry.PreferredStartsAt)
	_, err := f.holds.CreateHold(context.Background(), key, entry.UserID, promotionSessionID(entry), entry.PartySize)
	require.NoError(t, err)

	require.NoError(t, f.promoter.Sweep(context.Background()))

	got := f.store.entry(entry.ID)
	assert.Equal(t, model.WaitlistStatusPromoted, got.Status)
	assert.Equal(t, 1, f.store.bookingCount())

	booked, err := f.store.SumBookedParties(context.Background(), 1, entry.PreferredStartsAt)
	require.NoError(t, err)
	assert.Equal(t, uint32(1), booked, "the leftover hold converts once, never doubles")
}

func TestSweepNoCapacityCountsAttempt(t *testing.T) {
	f := newPromoterFixture(t, 1)
	entry := f.pendingEntry(10, 0, 0)

	// Fill the preferred slot.
	require.NoError(t, f.store.InsertBooking(context.Background(), &model.Booking{
		ServiceID: 1, SlotStartsAt: entry.PreferredStartsAt, UserID: 99,
		PartySize: 1, Status: model.BookingStatusConfirmed,
	}))

	require.NoError(t, f.promoter.Sweep(context.Background()))

	got := f.store.entry(entry.ID)
	assert.Equal(t, model.WaitlistStatusPending, got.Status)
	assert.Equal(t, uint32(1), got.PromotionAttempts)
}

func TestSweepExpiresEntryAfterAttemptBudget(t *testing.T) {
	f := newPromoterFixture(t, 1)
	entry := f.pendingEntry(10, 0, 0)
	require.NoError(t, f.store.InsertBooking(context.Background(), &model.Booking{
		ServiceID: 1, SlotStartsAt: entry.PreferredStartsAt, UserID: 99,
		PartySize: 1, Status: model.BookingStatusConfirmed,
	}))

	for i := 0; i < 3; i++ { // MaxAttempts on the entry is 3
		require.NoError(t, f.promoter.Sweep(context.Background()))
	}

	got := f.store.entry(entry.ID)
	assert.Equal(t, model.WaitlistStatusExpired, got.Status)
	assert.Equal(t, uint32(3), got.PromotionAttempts)

	// Expired entries drop out of further sweeps.
	require.NoError(t, f.promoter.Sweep(context.Background()))
	assert.Equal(t, uint32(3), f.store.entry(entry.ID).PromotionAttempts)
}

func TestSweepFlexibleEntrySlidesToNearbySlot(t *testing.T) {
	f := newPromoterFixture(t, 1)
	entry := f.store.addEntry(&model.WaitlistEntry{
		ServiceID:         1,
		UserID:            10,
		PartySize:         1,
		PreferredStartsAt: f.slot(),
		Flexible:          true,
		ToleranceMin:      120,
		MaxAttempts:       3,
		ContactName:       "User",
		ContactPhone:      "+48000000000",
	})
	// Preferred slot is full; the slot one duration later is free.
	require.NoError(t, f.store.InsertBooking(context.Background(), &model.Booking{
		ServiceID: 1, SlotStartsAt: entry.PreferredStartsAt, UserID: 99,
		PartySize: 1, Status: model.BookingStatusConfirmed,
	}))

	require.NoError(t, f.promoter.Sweep(context.Background()))

	got := f.store.entry(entry.ID)
	require.Equal(t, model.WaitlistStatusPromoted, got.Status)
	require.NotNil(t, got.BookingID)
	b := f.store.bookings[*got.BookingID]
	assert.Equal(t, entry.PreferredStartsAt.Add(time.Hour), b.SlotStartsAt)
}

func TestSweepExpiresUnplaceableEntry(t *testing.T) {
	f := newPromoterFixture(t, 4)
	entry := f.store.addEntry(&model.WaitlistEntry{
		ServiceID:         1,
		UserID:            10,
		PartySize:         9, // above the service's max group size
		PreferredStartsAt: f.slot(),
		MaxAttempts:       3,
		ContactName:       "User",
		ContactPhone:      "+48000000000",
	})

	require.NoError(t, f.promoter.Sweep(context.Background()))

	assert.Equal(t, model.WaitlistStatusExpired, f.store.entry(entry.ID).Status)
}

func TestSweepExpiresEntryForInactiveService(t *testing.T) {
	f := newPromoterFixture(t, 4)
	off := &model.Service{ID: 2, Name: "Retired", DurationMin: 60, Capacity: 4, Active: false}
	f.store.addService(off)
	entry := f.store.addEntry(&model.WaitlistEntry{
		ServiceID:         2,
		UserID:            10,
		PartySize:         1,
		PreferredStartsAt: f.slot(),
		MaxAttempts:       3,
		ContactName:       "User",
		ContactPhone:      "+48000000000",
	})

	require.NoError(t, f.promoter.Sweep(context.Background()))

	assert.Equal(t, model.WaitlistStatusExpired, f.store.entry(entry.ID).Status)
}

func TestSweepNotifiesOnPromotion(t *testing.T) {
	f := newPromoterFixture(t, 2)
	entry := f.pendingEntry(10, 0, 0)

	var notifiedEntry uint64
	var notifiedBooking uint64
	f.promoter.Notify = func(e *model.WaitlistEntry, b *model.Booking) {
		notifiedEntry = e.ID
		notifiedBooking = b.ID
	}

	require.NoError(t, f.promoter.Sweep(context.Background()))

	assert.Equal(t, entry.ID, notifiedEntry)
	require.NotNil(t, f.store.entry(entry.ID).BookingID)
	assert.Equal(t, *f.store.entry(entry.ID).BookingID, notifiedBooking)
}

// cancelRacingStore flips every listed entry to CANCELLED right after the
// scan, the way a user cancel landing between the scan and the attempt
// would.
type cancelRacingStore struct {
	*memStore
}

func (s *cancelRacingStore) ListPromotable(ctx context.Context, limit int) ([]*model.WaitlistEntry, error) {
	out, err := s.memStore.ListPromotable(ctx, limit)
	s.mu.Lock()
	for _, e := range out {
		s.entries[e.ID].Status = model.WaitlistStatusCancelled
	}
	s.mu.Unlock()
	return out, err
}

func TestSweepRollsBackBookingWhenEntryCancelledMidSweep(t *testing.T) {
	// The conversion and the entry's PROMOTED transition commit as one
	// unit: when the transition cannot happen, the booking must vanish
	// with it and the promotion hold must be given back.
	f := newPromoterFixture(t, 2)
	entry := f.pendingEntry(10, 0, 0)

	eval := booking.NewEvaluator(f.store, f.store, f.clk)
	converter := booking.NewConverter(f.store, eval, pricing.RuleQuoter{}, f.clk)
	racing := &cancelRacingStore{memStore: f.store}
	p := NewPromoter(f.holds, converter, eval, f.locks, racing, f.clk, time.Minute)

	require.NoError(t, p.Sweep(context.Background()))

	got := f.store.entry(entry.ID)
	assert.Equal(t, model.WaitlistStatusCancelled, got.Status)
	assert.Nil(t, got.BookingID)
	assert.Zero(t, f.store.bookingCount(), "a rolled-back conversion must not leave a booking")

	held, err := f.store.SumActiveHoldParties(context.Background(), 1, f.slot(), f.clk.Now())
	require.NoError(t, err)
	assert.Zero(t, held, "the promotion hold is released with the rollback")
}
