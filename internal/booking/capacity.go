package booking

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/mariiahub/booking-core/internal/clock"
	"github.com/mariiahub/booking-core/internal/model"
)

// Catalog supplies service definitions.  The production implementation
// reads the services table; tests use an in-memory map.  GetService
// returns ErrServiceNotFound for unknown ids.
type Catalog interface {
	GetService(ctx context.Context, serviceID uint64) (*model.Service, error)
}

// CapacityStore exposes the two aggregate reads the evaluator needs.
// Both must exclude rows the core already treats as absent: expired
// holds (by timestamp, not by sweeper progress) and bookings outside
// the PENDING/CONFIRMED statuses.
type CapacityStore interface {
	SumActiveHoldParties(ctx context.Context, serviceID uint64, slotStartsAt, now time.Time) (uint32, error)
	SumBookedParties(ctx context.Context, serviceID uint64, slotStartsAt time.Time) (uint32, error)
}

// Evaluation is the outcome of a capacity check.  Reason is nil when
// the request fits; otherwise it is one of the flow sentinels
// (ErrCapacityExceeded, ErrGroupSizeNotAllowed, ErrServiceInactive).
type Evaluation struct {
	Available bool
	Remaining int32
	Reason    error
}

// Evaluator computes remaining capacity for a slot from confirmed
// bookings plus active holds, and enforces the service's group rules.
//
// The evaluation is a pure read.  It is only authoritative when run
// inside the lock-serialized section of hold creation; called anywhere
// else it is advisory, because capacity can change between the check
// and any use of the answer.
type Evaluator struct {
	store   CapacityStore
	catalog Catalog
	clock   clock.Clock
}

// NewEvaluator builds an evaluator over the given store and catalog.
func NewEvaluator(store CapacityStore, catalog Catalog, clk clock.Clock) *Evaluator {
	return &Evaluator{store: store, catalog: catalog, clock: clk}
}

// Evaluate reports whether the slot can absorb partySize more people.
// Rule rejections land in Evaluation.Reason; the error return is
// reserved for store and catalog failures.
func (e *Evaluator) Evaluate(ctx context.Context, key SlotKey, partySize uint32) (Evaluation, error) {
	svc, err := e.Service(ctx, key.ServiceID)
	if err != nil {
		return Evaluation{}, err
	}
	return e.EvaluateFor(ctx, svc, key, partySize)
}

// EvaluateFor is Evaluate with a service definition the caller already
// fetched, so flows that need the definition for other reasons (slot
// end time, pricing) avoid a second catalog read.
func (e *Evaluator) EvaluateFor(ctx context.Context, svc *model.Service, key SlotKey, partySize uint32) (Evaluation, error) {
	if partySize == 0 {
		return Evaluation{Reason: ErrInvalidPartySize}, nil
	}
	if !svc.Active {
		return Evaluation{Reason: ErrServiceInactive}, nil
	}
	if partySize > 1 && !svc.GroupAllowed {
		return Evaluation{Reason: ErrGroupSizeNotAllowed}, nil
	}
	if svc.MaxGroupSize > 0 && partySize > svc.MaxGroupSize {
		return Evaluation{Reason: ErrGroupSizeNotAllowed}, nil
	}

	remaining, err := e.Remaining(ctx, key, svc)
	if err != nil {
		return Evaluation{}, err
	}
	if int32(partySize) > remaining {
		return Evaluation{Remaining: remaining, Reason: ErrCapacityExceeded}, nil
	}
	return Evaluation{Available: true, Remaining: remaining}, nil
}

// Remaining returns capacity minus the sum of party sizes across
// non-expired holds and PENDING/CONFIRMED bookings for the slot.  The
// result can go negative if capacity was lowered after bookings were
// taken; callers treat anything below the requested size as full.
func (e *Evaluator) Remaining(ctx context.Context, key SlotKey, svc *model.Service) (int32, error) {
	now := e.clock.Now()

	held, err := e.store.SumActiveHoldParties(ctx, key.ServiceID, key.StartsAt, now)
	if err != nil {
		return 0, fmt.Errorf("sum active holds for %s: %w", key, err)
	}
	booked, err := e.store.SumBookedParties(ctx, key.ServiceID, key.StartsAt)
	if err != nil {
		return 0, fmt.Errorf("sum bookings for %s: %w", key, err)
	}
	return int32(svc.Capacity) - int32(held) - int32(booked), nil
}

// Service fetches the service definition, mapping any failure other
// than a clean not-found onto ErrCatalogUnavailable so callers can
// distinguish "no such service" from "catalog is down".
func (e *Evaluator) Service(ctx context.Context, serviceID uint64) (*model.Service, error) {
	svc, err := e.catalog.GetService(ctx, serviceID)
	if err != nil {
		if errors.Is(err, ErrServiceNotFound) {
			return nil, err
		}
		return nil, fmt.Errorf("%w: %v", ErrCatalogUnavailable, err)
	}
	return svc, nil
}
