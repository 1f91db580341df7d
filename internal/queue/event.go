// Package queue defines message payloads exchanged over the message broker.
package queue

// BookingConfirmedEvent is published when a hold is successfully converted
// into a confirmed booking. It contains enough information for downstream
// consumers to log, notify, or trigger analytics without querying the
// primary database.
type BookingConfirmedEvent struct {
    BookingID        uint64 `json:"booking_id"`
    UserID           uint64 `json:"user_id"`
    ServiceID        uint64 `json:"service_id"`
    ServiceName      string `json:"service_name"`
    SlotStartsAt     string `json:"slot_starts_at"`
    SlotEndsAt       string `json:"slot_ends_at"`
    PartySize        uint32 `json:"party_size"`
    BaseAmountCents  uint32 `json:"base_amount_cents"`
    DiscountCents    uint32 `json:"discount_cents"`
    FinalAmountCents uint32 `json:"final_amount_cents"`
    AppliedRules     string `json:"applied_rules"`
    ConfirmedAt      string `json:"confirmed_at"`
}

// WaitlistPromotedEvent is published when the promoter converts a waitlist
// entry into a confirmed booking. Downstream consumers use it to notify the
// promoted customer.
type WaitlistPromotedEvent struct {
    EntryID      uint64 `json:"entry_id"`
    BookingID    uint64 `json:"booking_id"`
    UserID       uint64 `json:"user_id"`
    ServiceID    uint64 `json:"service_id"`
    SlotStartsAt string `json:"slot_starts_at"`
    PartySize    uint32 `json:"party_size"`
    PromotedAt   string `json:"promoted_at"`
}
