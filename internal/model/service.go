package model

import "time"

// Service describes a bookable offering from the catalog: a treatment,
// class or session that customers reserve slots for.  Capacity is the
// maximum aggregate party size a single slot of this service can accept.
// Group rules constrain how large a single reservation may be.
//
// Fields:
//  ID             – primary key identifier.
//  Name           – display name of the service.
//  Category       – coarse grouping (e.g. "beauty", "fitness").
//  DurationMin    – slot length in minutes.
//  Capacity       – maximum aggregate party size per slot.
//  GroupAllowed   – whether a reservation may cover more than one person.
//  MaxGroupSize   – largest party size a single reservation may request.
//  BasePriceCents – per-person price before discounts.
//  Active         – inactive services reject new holds.
type Service struct {
	ID             uint64    // services.id
	Name           string    // services.name
	Category       string    // services.category
	DurationMin    uint32    // services.duration_min
	Capacity       uint32    // services.capacity
	GroupAllowed   bool      // services.group_allowed
	MaxGroupSize   uint32    // services.max_group_size
	BasePriceCents uint32    // services.base_price_cents
	Active         bool      // services.active
	CreatedAt      time.Time // services.created_at
	UpdatedAt      time.Time // services.updated_at
}
