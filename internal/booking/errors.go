// Package booking implements the slot-reservation core: lock-serialized
// capacity checks, short-lived holds, and the single commit path that
// turns a hold into a durable booking.  Background workers (waitlist
// promotion, expiry sweeping) reuse the same primitives.
package booking

import "errors"

// Errors returned by the reservation flow.  Handlers and workers match
// on these with errors.Is.  Contention and capacity errors are expected
// and frequent; they are outcomes, not incidents.
var (
	// ErrSlotContended means the slot's lock is held by another caller.
	// Transient: safe to retry with backoff.
	ErrSlotContended = errors.New("slot contended")

	// ErrCapacityExceeded means the slot cannot absorb the requested
	// party size.  Terminal for this request; offer alternatives or the
	// waitlist.
	ErrCapacityExceeded = errors.New("capacity exceeded")

	// ErrGroupSizeNotAllowed means the service's group rules reject the
	// requested party size.
	ErrGroupSizeNotAllowed = errors.New("group size not allowed")

	// ErrServiceNotFound means the catalog has no such service.
	ErrServiceNotFound = errors.New("service not found")

	// ErrServiceInactive means the service exists but no longer accepts
	// reservations.
	ErrServiceInactive = errors.New("service inactive")

	// ErrHoldNotFound means the hold is absent or already consumed.
	ErrHoldNotFound = errors.New("hold not found")

	// ErrHoldExpired means the hold's TTL lapsed before conversion.
	ErrHoldExpired = errors.New("hold expired")

	// ErrOwnershipMismatch means the caller's session does not own the
	// hold it is trying to act on.
	ErrOwnershipMismatch = errors.New("hold ownership mismatch")

	// ErrHoldConflict means the session already has an active hold on
	// the slot with a different party size.
	ErrHoldConflict = errors.New("conflicting hold for session")

	// ErrRepricingFailed means the pricing collaborator errored during
	// conversion.  The hold is left intact so conversion can be retried.
	ErrRepricingFailed = errors.New("repricing failed")

	// ErrCatalogUnavailable means the catalog collaborator could not be
	// reached.
	ErrCatalogUnavailable = errors.New("catalog unavailable")

	// ErrBookingNotFound means no such booking exists for the caller.
	ErrBookingNotFound = errors.New("booking not found")

	// ErrInvalidPartySize means the requested party size is not a
	// positive number.
	ErrInvalidPartySize = errors.New("invalid party size")
)
