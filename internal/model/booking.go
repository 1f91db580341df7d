package model

import "time"

// Booking status values.  A booking is created PENDING or CONFIRMED,
// moves to COMPLETED after the slot has passed, or to CANCELLED.  Both
// PENDING and CONFIRMED count against slot capacity; CANCELLED frees
// capacity the moment it is persisted.
const (
	BookingStatusPending   = "PENDING"
	BookingStatusConfirmed = "CONFIRMED"
	BookingStatusCompleted = "COMPLETED"
	BookingStatusCancelled = "CANCELLED"
)

// Booking is a durable, confirmed claim on slot capacity.  Every booking
// originates from exactly one hold: the convert step inserts the booking
// and deletes the hold in the same transaction.
//
// Fields:
//  ID               – primary key identifier.
//  ServiceID        – service being booked.
//  SlotStartsAt     – start of the booked slot (UTC).
//  SlotEndsAt       – end of the booked slot (UTC).
//  UserID           – customer who owns the booking.
//  PartySize        – number of people covered.
//  Status           – one of the BookingStatus* constants.
//  HoldID           – id of the hold this booking was converted from.
//  ContactName      – contact details captured at conversion.
//  ContactPhone     – contact details captured at conversion.
//  PaymentRef       – external payment reference, if any.
//  BaseAmountCents  – price before discounts, from the pricing decision.
//  DiscountCents    – total discount applied.
//  FinalAmountCents – authoritative committed price.
//  AppliedRules     – comma-separated pricing rule names.
//  Version          – bumped on status transitions.
type Booking struct {
	ID               uint64    // bookings.id
	ServiceID        uint64    // bookings.service_id
	SlotStartsAt     time.Time // bookings.slot_starts_at
	SlotEndsAt       time.Time // bookings.slot_ends_at
	UserID           uint64    // bookings.user_id
	PartySize        uint32    // bookings.party_size
	Status           string    // bookings.status
	HoldID           uint64    // bookings.hold_id
	ContactName      string    // bookings.contact_name
	ContactPhone     string    // bookings.contact_phone
	PaymentRef       *string   // bookings.payment_ref (nullable)
	BaseAmountCents  uint32    // bookings.base_amount_cents
	DiscountCents    uint32    // bookings.discount_cents
	FinalAmountCents uint32    // bookings.final_amount_cents
	AppliedRules     string    // bookings.applied_rules
	Version          uint32    // bookings.version
	CreatedAt        time.Time // bookings.created_at
	UpdatedAt        time.Time // bookings.updated_at
}

// CountsAgainstCapacity reports whether the booking's status consumes
// slot capacity.
func (b *Booking) CountsAgainstCapacity() bool {
	return b.Status == BookingStatusPending || b.Status == BookingStatusConfirmed
}
