package booking

import (
	"context"
	"sync"
	"time"

	"github.com/mariiahub/booking-core/internal/clock"
	"github.com/mariiahub/booking-core/internal/model"
)

// memStore is an in-memory stand-in for the MySQL-backed store.  It
// implements LockStore, HoldStore, CapacityStore, Catalog, ConvertStore
// and CancelStore under one mutex, so the check-and-set operations are
// atomic the same way single SQL statements are.
type memStore struct {
	mu sync.Mutex

	clk clock.Clock

	services map[uint64]*model.Service

	locks map[string]*model.SlotLock

	holds      map[uint64]*model.Hold
	nextHoldID uint64

	bookings      map[uint64]*model.Booking
	nextBookingID uint64
}

func newMemStore(clk clock.Clock) *memStore {
	return &memStore{
		clk:      clk,
		services: make(map[uint64]*model.Service),
		locks:    make(map[string]*model.SlotLock),
		holds:    make(map[uint64]*model.Hold),
		bookings: make(map[uint64]*model.Booking),
	}
}

func (s *memStore) addService(svc *model.Service) {
	s.mu.Lock()
	defer s.mu.Unlock()
	cp := *svc
	s.services[svc.ID] = &cp
}

// Catalog

func (s *memStore) GetService(_ context.Context, serviceID uint64) (*model.Service, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	svc, ok := s.services[serviceID]
	if !ok {
		return nil, ErrServiceNotFound
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

func (s *memStore) lockHolder(key string) (string, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	cur, ok := s.locks[key]
	if !ok {
		return "", false
	}
	return cur.OwnerID, true
}

// HoldStore

func (s *memStore) InsertHold(_ context.Context, h *model.Hold) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, existing := range s.holds {
		if existing.ServiceID == h.ServiceID &&
			existing.SlotStartsAt.Equal(h.SlotStartsAt) &&
			existing.SessionID == h.SessionID {
			return ErrHoldExists
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
		return nil, ErrHoldNotFound
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
	return nil, ErrHoldNotFound
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
	// Snapshot holds and bookings so a failed callback rolls back, the
	// way the SQL transaction would.
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
	nextHold, nextBooking := s.nextHoldID, s.nextBookingID
	s.mu.Unlock()

	if err := fn(ctx); err != nil {
		s.mu.Lock()
		s.holds, s.bookings = holds, bookings
		s.nextHoldID, s.nextBookingID = nextHold, nextBooking
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

// CancelStore

func (s *memStore) CancelBooking(_ context.Context, bookingID, userID uint64) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	b, ok := s.bookings[bookingID]
	if !ok || b.UserID != userID || !b.CountsAgainstCapacity() {
		return false, nil
	}
	b.Status = model.BookingStatusCancelled
	b.Version++
	return true, nil
}

func (s *memStore) holdCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.holds)
}

func (s *memStore) booking(id uint64) *model.Booking {
	s.mu.Lock()
	defer s.mu.Unlock()
	b, ok := s.bookings[id]
	if !ok {
		return nil
	}
	cp := *b
	return &cp
}
