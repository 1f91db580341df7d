package worker

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/mariiahub/booking-core/internal/booking"
	"github.com/mariiahub/booking-core/internal/clock"
	"github.com/mariiahub/booking-core/internal/model"
)

// memStore is the in-memory store backing worker tests.  It implements
// the booking flow contracts (LockStore, HoldStore, CapacityStore,
// Catalog, ConvertStore) plus WaitlistStore and SweepStore, mirroring
// how repository.Store satisfies all of them in production.
type memStore struct {
	mu sync.Mutex

	clk clock.Clock

	services map[uint64]*model.Service
	locks    map[string]*model.SlotLock

	holds      map[uint64]*model.Hold
	nextHoldID uint64

	bookings      map[uint64]*model.Booking
	nextBookingID uint64

	entries     map[uint64]*model.WaitlistEntry
	nextEntryID uint64
}

func newMemStore(clk clock.Clock) *memStore {
	return &memStore{
		clk:      clk,
		services: make(map[uint64]*model.Service),
		locks:    make(map[string]*model.SlotLock),
		holds:    make(map[uint64]*model.Hold),
		bookings: make(map[uint64]*model.Booking),
		entries:  make(map[uint64]*model.WaitlistEntry),
	}
}

func (s *memStore) addService(svc *model.Service) {
	s.mu.Lock()
	defer s.mu.Unlock()
	cp := *svc
	s.services[svc.ID] = &cp
}

func (s *memStore) addEntry(e *model.WaitlistEntry) *model.WaitlistEntry {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.nextEntryID++
	e.ID = s.nextEntryID
	if e.Status == "" {
		e.Status = model.WaitlistStatusPending
	}
	if e.CreatedAt.IsZero() {
		e.CreatedAt = s.clk.Now()
	}
	cp := *e
	s.entries[e.ID] = &cp
	return e
}

func (s *memStore) entry(id uint64) *model.WaitlistEntry {
	s.mu.Lock()
	defer s.mu.Unlock()
	e, ok := s.entries[id]
	if !ok {
		return nil
	}
	cp := *e
	return &cp
}

func (s *memStore) bookingCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.bookings)
}

// Catalog

func (s *memStore) GetService(_ context.Context, serviceID uint64) (*model.Service, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	svc, ok := s.services[serviceID]
	if !ok {
		return nil, booking.ErrServiceNotFound
	}
	cp := *svc
	return &cp, nil
}

// LockStore

func (s *memStore) UpsertLock(_ context.Context, key, ownerID string, epoch int64, expiresAt time.Time) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	now := s.clk.Now()
	cur, ok := s.locks[key]
	if ok && cur.ExpiresAt.After(now) && cur.OwnerID != ownerID {
		return false, nil
	}
	s.locks[key] = &model.SlotLock{LockKey: key, OwnerID: ownerID, Epoch: epoch, ExpiresAt: expiresAt}
	return true, nil
}

func (s *memStore) DeleteLock(_ context.Context, key, ownerID string, epoch int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	cur, ok := s.locks[key]
	if ok && cur.OwnerID == ownerID && cur.Epoch == epoch {
		delete(s.locks, key)
	}
	return nil
}

func (s *memStore) UpdateLockExpiry(_ context.Context, key, ownerID string, epoch, newEpoch int64, expiresAt time.Time) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	cur, ok := s.locks[key]
	if !ok || cur.OwnerID != ownerID || cur.Epoch != epoch {
		return false, nil
	}
	cur.Epoch = newEpoch
	cur.ExpiresAt = expiresAt
	return true, nil
}

// HoldStore

func (s *memStore) InsertHold(_ context.Context, h *model.Hold) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, existing := range s.holds {
		if existing.ServiceID == h.ServiceID &&
			existing.SlotStartsAt.Equal(h.SlotStartsAt) &&
			existing.SessionID == h.SessionID {
			return booking.ErrHoldExists
		}
	}
	s.nextHoldID++
	h.ID = s.nextHoldID
	h.CreatedAt = s.clk.Now()
	cp := *h
	s.holds[h.ID] = &cp
	return nil
}

func (s *memStore) GetHold(_ context.Context, id uint64) (*model.Hold, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	h, ok := s.holds[id]
	if !ok {
		return nil, booking.ErrHoldNotFound
	}
	cp := *h
	return &cp, nil
}

func (s *memStore) GetHoldBySlotSession(_ context.Context, serviceID uint64, slotStartsAt time.Time, sessionID string, now time.Time) (*model.Hold, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, h := range s.holds {
		if h.ServiceID == serviceID && h.SlotStartsAt.Equal(slotStartsAt) && h.SessionID == sessionID && h.ExpiresAt.After(now) {
			cp := *h
			return &cp, nil
		}
	}
	return nil, booking.ErrHoldNotFound
}

func (s *memStore) DeleteHoldBySession(_ context.Context, id uint64, sessionID string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	h, ok := s.holds[id]
	if !ok || h.SessionID != sessionID {
		return false, nil
	}
	delete(s.holds, id)
	return true, nil
}

func (s *memStore) ExtendHold(_ context.Context, id uint64, sessionID string, now, newExpiresAt time.Time) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	h, ok := s.holds[id]
	if !ok || h.SessionID != sessionID || !h.ExpiresAt.After(now) {
		return false, nil
	}
	h.ExpiresAt = newExpiresAt
	h.Version++
	return true, nil
}

// CapacityStore

func (s *memStore) SumActiveHoldParties(_ context.Context, serviceID uint64, slotStartsAt, now time.Time) (uint32, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var sum uint32
	for _, h := range s.holds {
		if h.ServiceID == serviceID && h.SlotStartsAt.Equal(slotStartsAt) && h.ExpiresAt.After(now) {
			sum += h.PartySize
		}
	}
	return sum, nil
}

func (s *memStore) SumBookedParties(_ context.Context, serviceID uint64, slotStartsAt time.Time) (uint32, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var sum uint32
	for _, b := range s.bookings {
		if b.ServiceID == serviceID && b.SlotStartsAt.Equal(slotStartsAt) && b.CountsAgainstCapacity() {
			sum += b.PartySize
		}
	}
	return sum, nil
}

// ConvertStore

func (s *memStore) WithTx(ctx context.Context, fn func(ctx context.Context) error) error {
	s.mu.Lock()
	holds := make(map[uint64]*model.Hold, len(s.holds))
	for id, h := range s.holds {
		cp := *h
		holds[id] = &cp
	}
	bookings := make(map[uint64]*model.Booking, len(s.bookings))
	for id, b := range s.bookings {
		cp := *b
		bookings[id] = &cp
	}
	entries := make(map[uint64]*model.WaitlistEntry, len(s.entries))
	for id, e := range s.entries {
		cp := *e
		entries[id] = &cp
	}
	nextHold, nextBooking, nextEntry := s.nextHoldID, s.nextBookingID, s.nextEntryID
	s.mu.Unlock()

	if err := fn(ctx); err != nil {
		s.mu.Lock()
		s.holds, s.bookings, s.entries = holds, bookings, entries
		s.nextHoldID, s.nextBookingID, s.nextEntryID = nextHold, nextBooking, nextEntry
		s.mu.Unlock()
		return err
	}
	return nil
}

func (s *memStore) GetHoldForUpdate(ctx context.Context, id uint64) (*model.Hold, error) {
	return s.GetHold(ctx, id)
}

func (s *memStore) InsertBooking(_ context.Context, b *model.Booking) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.nextBookingID++
	b.ID = s.nextBookingID
	b.CreatedAt = s.clk.Now()
	cp := *b
	s.bookings[b.ID] = &cp
	return nil
}

func (s *memStore) DeleteHold(_ context.Context, id uint64) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.holds[id]; !ok {
		return false, nil
	}
	delete(s.holds, id)
	return true, nil
}

// WaitlistStore

func (s *memStore) ListPromotable(_ context.Context, limit int) ([]*model.WaitlistEntry, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]*model.WaitlistEntry, 0)
	for _, e := range s.entries {
		if e.Status == model.WaitlistStatusPending && e.PromotionAttempts < e.MaxAttempts {
			cp := *e
			out = append(out, &cp)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].PriorityScore != out[j].PriorityScore {
			return out[i].PriorityScore > out[j].PriorityScore
		}
		if !out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].CreatedAt.Before(out[j].CreatedAt)
		}
		return out[i].ID < out[j].ID
	})
	if len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (s *memStore) MarkPromoted(_ context.Context, entryID, bookingID uint64) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	e, ok := s.entries[entryID]
	if !ok || e.Status != model.WaitlistStatusPending {
		return false, nil
	}
	e.Status = model.WaitlistStatusPromoted
	id := bookingID
	e.BookingID = &id
	return true, nil
}

func (s *memStore) MarkExpired(_ context.Context, entryID uint64) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	e, ok := s.entries[entryID]
	if !ok || e.Status != model.WaitlistStatusPending {
		return false, nil
	}
	e.Status = model.WaitlistStatusExpired
	return true, nil
}

func (s *memStore) IncrementAttempts(_ context.Context, entryID uint64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if e, ok := s.entries[entryID]; ok {
		e.PromotionAttempts++
	}
	return nil
}

// SweepStore

func (s *memStore) DeleteExpiredHolds(_ context.Context, now time.Time) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var n int64
	for id, h := range s.holds {
		if !h.ExpiresAt.After(now) {
			delete(s.holds, id)
			n++
		}
	}
	return n, nil
}

func (s *memStore) DeleteExpiredLocks(_ context.Context, now time.Time) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var n int64
	for key, l := range s.locks {
		if !l.ExpiresAt.After(now) {
			delete(s.locks, key)
			n++
		}
	}
	return n, nil
}
