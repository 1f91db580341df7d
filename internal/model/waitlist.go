package model

import "time"

// Waitlist entry status values.  Entries start PENDING and are owned by
// the promoter for status transitions: PROMOTED (with a booking
// reference) or EXPIRED once the attempt budget is spent.  Customers may
// CANCEL a pending entry themselves.
const (
	WaitlistStatusPending   = "PENDING"
	WaitlistStatusPromoted  = "PROMOTED"
	WaitlistStatusExpired   = "EXPIRED"
	WaitlistStatusCancelled = "CANCELLED"
)

// WaitlistEntry is a standing request for capacity that does not yet
// exist.  The promoter periodically re-evaluates pending entries in
// (priority desc, created_at asc) order and funnels successful ones
// through the same hold-then-convert path as a direct booking.
//
// Fields:
//  ID                – primary key identifier.
//  ServiceID         – service the customer wants.
//  UserID            – customer who enqueued the entry.
//  PartySize         – requested party size.
//  PreferredStartsAt – preferred slot start (UTC).
//  Flexible          – whether nearby slots within the tolerance are
//                      acceptable.
//  ToleranceMin      – half-width of the flexible window in minutes.
//  PriorityScore     – higher scores are attempted first.
//  Status            – one of the WaitlistStatus* constants.
//  PromotionAttempts – sweeps that failed to place this entry so far.
//  MaxAttempts       – attempt budget before the entry expires.
//  BookingID         – resulting booking once promoted.
//  ContactName       – stored contact details used at conversion.
//  ContactPhone      – stored contact details used at conversion.
type WaitlistEntry struct {
	ID                uint64    // waitlist_entries.id
	ServiceID         uint64    // waitlist_entries.service_id
	UserID            uint64    // waitlist_entries.user_id
	PartySize         uint32    // waitlist_entries.party_size
	PreferredStartsAt time.Time // waitlist_entries.preferred_starts_at
	Flexible          bool      // waitlist_entries.flexible
	ToleranceMin      uint32    // waitlist_entries.tolerance_min
	PriorityScore     int32     // waitlist_entries.priority_score
	Status            string    // waitlist_entries.status
	PromotionAttempts uint32    // waitlist_entries.promotion_attempts
	MaxAttempts       uint32    // waitlist_entries.max_attempts
	BookingID         *uint64   // waitlist_entries.booking_id (nullable)
	ContactName       string    // waitlist_entries.contact_name
	ContactPhone      string    // waitlist_entries.contact_phone
	CreatedAt         time.Time // waitlist_entries.created_at
	UpdatedAt         time.Time // waitlist_entries.updated_at
}
