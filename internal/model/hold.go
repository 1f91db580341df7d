package model

import "time"

// Hold represents a customer's provisional claim on slot capacity during
// checkout.  Holds count against capacity until they expire, are released
// or are converted into a booking.  Expiry is enforced by timestamp
// comparison on every read path; the background sweeper only garbage
// collects rows that all readers already treat as absent.
//
// Fields:
//  ID          – primary key identifier.
//  ServiceID   – service the slot belongs to.
//  SlotStartsAt – start of the held slot (UTC).
//  SlotEndsAt  – end of the held slot (UTC).
//  UserID      – customer who placed the hold.
//  SessionID   – checkout session that owns the hold.  Unique together
//                with the slot, so one session cannot hold a slot twice.
//  PartySize   – number of people the hold claims capacity for.
//  HoldToken   – opaque token returned to the client for correlation.
//  ExpiresAt   – when the hold lapses.
//  Version     – bumped on renewal.
type Hold struct {
	ID           uint64    // holds.id
	ServiceID    uint64    // holds.service_id
	SlotStartsAt time.Time // holds.slot_starts_at
	SlotEndsAt   time.Time // holds.slot_ends_at
	UserID       uint64    // holds.user_id
	SessionID    string    // holds.session_id
	PartySize    uint32    // holds.party_size
	HoldToken    string    // holds.hold_token
	ExpiresAt    time.Time // holds.expires_at
	Version      uint32    // holds.version
	CreatedAt    time.Time // holds.created_at
}

// Expired reports whether the hold has lapsed at the given instant.
func (h *Hold) Expired(now time.Time) bool {
	return !h.ExpiresAt.After(now)
}
