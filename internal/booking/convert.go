package booking

import (
	"context"
	"errors"
	"fmt"
	"log"

	"github.com/mariiahub/booking-core/internal/clock"
	"github.com/mariiahub/booking-core/internal/model"
	"github.com/mariiahub/booking-core/internal/pricing"
)

// ConvertStore is the persistence contract for the commit path.  WithTx
// must run the callback inside a single store transaction: everything
// the callback writes commits together or not at all.
type ConvertStore interface {
	WithTx(ctx context.Context, fn func(ctx context.Context) error) error

	// GetHoldForUpdate reads the hold by id with a write lock for the
	// duration of the surrounding transaction, or ErrHoldNotFound.
	GetHoldForUpdate(ctx context.Context, id uint64) (*model.Hold, error)

	// InsertBooking writes the booking row, populating the generated id.
	InsertBooking(ctx context.Context, b *model.Booking) error

	// DeleteHold removes the hold unconditionally, reporting whether a
	// row was deleted.
	DeleteHold(ctx context.Context, id uint64) (bool, error)
}

// ConvertInput carries the checkout details supplied at commit time.
type ConvertInput struct {
	HoldID       uint64
	SessionID    string
	ContactName  string
	ContactPhone string
	PaymentRef   string
}

// ConvertResult pairs the committed booking with the pricing decision
// that produced its amounts.
type ConvertResult struct {
	Booking  *model.Booking
	Decision pricing.Decision
}

// Converter is the only path that turns a hold into a booking.  Direct
// checkouts, waitlist promotions and any future administrative flow all
// funnel through Convert, so "can this capacity be claimed" has exactly
// one answer site.
type Converter struct {
	store  ConvertStore
	eval   *Evaluator
	quoter pricing.Quoter
	clock  clock.Clock
}

// NewConverter builds a converter over the given store, evaluator and
// pricing collaborator.
func NewConverter(store ConvertStore, eval *Evaluator, quoter pricing.Quoter, clk clock.Clock) *Converter {
	return &Converter{store: store, eval: eval, quoter: quoter, clock: clk}
}

// Convert commits one valid, owned, unexpired hold into a booking.
//
// The hold is re-read under a write lock and re-checked against the
// clock; expiry never depends on the sweeper having run.  The price is
// re-quoted with current rules — whatever the customer saw at hold time
// was advisory.  Booking insert and hold delete share one transaction:
// a hold must never survive its own conversion, and a booking must
// never exist without having consumed exactly one hold.  Any error,
// including a pricing failure, rolls the transaction back and leaves
// the hold intact for a retry.
func (c *Converter) Convert(ctx context.Context, in ConvertInput) (*ConvertResult, error) {
	var result ConvertResult

	err := c.store.WithTx(ctx, func(txCtx context.Context) error {
		hold, err := c.store.GetHoldForUpdate(txCtx, in.HoldID)
		if err != nil {
			return err
		}
		now := c.clock.Now()
		if hold.Expired(now) {
			return ErrHoldExpired
		}
		if hold.SessionID != in.SessionID {
			return ErrOwnershipMismatch
		}

		svc, err := c.eval.Service(txCtx, hold.ServiceID)
		if err != nil {
			return err
		}
		decision, err := c.quoter.Quote(txCtx, svc, hold.PartySize, hold.SlotStartsAt, now)
		if err != nil {
			return fmt.Errorf("%w: %v", ErrRepricingFailed, err)
		}

		b := &model.Booking{
			ServiceID:        hold.ServiceID,
			SlotStartsAt:     hold.SlotStartsAt,
			SlotEndsAt:       hold.SlotEndsAt,
			UserID:           hold.UserID,
			PartySize:        hold.PartySize,
			Status:           model.BookingStatusConfirmed,
			HoldID:           hold.ID,
			ContactName:      in.ContactName,
			ContactPhone:     in.ContactPhone,
			BaseAmountCents:  decision.BaseAmountCents,
			DiscountCents:    decision.DiscountCents,
			FinalAmountCents: decision.FinalAmountCents,
			AppliedRules:     decision.RulesCSV(),
			Version:          1,
		}
		if in.PaymentRef != "" {
			ref := in.PaymentRef
			b.PaymentRef = &ref
		}

		if err := c.store.InsertBooking(txCtx, b); err != nil {
			return fmt.Errorf("insert booking for hold %d: %w", hold.ID, err)
		}
		deleted, err := c.store.DeleteHold(txCtx, hold.ID)
		if err != nil {
			return fmt.Errorf("delete hold %d: %w", hold.ID, err)
		}
		if !deleted {
			// The hold vanished inside our own write lock: the store
			// broke its atomicity contract.  Roll everything back.
			log.Printf("SEVERE: hold %d disappeared during conversion; aborting commit", hold.ID)
			return fmt.Errorf("hold %d lost during conversion", hold.ID)
		}

		result = ConvertResult{Booking: b, Decision: decision}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &result, nil
}

// CancelStore is the contract for booking cancellation.
type CancelStore interface {
	// CancelBooking transitions the user's booking to CANCELLED,
	// reporting whether a row changed.  Already-cancelled bookings
	// report false.
	CancelBooking(ctx context.Context, bookingID, userID uint64) (bool, error)
}

// CancelBooking flips the booking to CANCELLED on behalf of its owner.
// The freed capacity is visible to the very next evaluator read — there
// is no cache between the evaluator and the store to invalidate.
func CancelBooking(ctx context.Context, store CancelStore, bookingID, userID uint64) error {
	cancelled, err := store.CancelBooking(ctx, bookingID, userID)
	if err != nil {
		return fmt.Errorf("cancel booking %d: %w", bookingID, err)
	}
	if !cancelled {
		return ErrBookingNotFound
	}
	return nil
}

// IsExpectedFlowError reports whether err is one of the routine
// reservation outcomes that calling flows handle themselves (retry,
// offer alternatives, enqueue on the waitlist).  These are not logged
// as incidents.
func IsExpectedFlowError(err error) bool {
	return errors.Is(err, ErrSlotContended) ||
		errors.Is(err, ErrCapacityExceeded) ||
		errors.Is(err, ErrGroupSizeNotAllowed) ||
		errors.Is(err, ErrServiceInactive) ||
		errors.Is(err, ErrHoldNotFound) ||
		errors.Is(err, ErrHoldExpired) ||
		errors.Is(err, ErrOwnershipMismatch) ||
		errors.Is(err, ErrHoldConflict) ||
		errors.Is(err, ErrInvalidPartySize)
}
