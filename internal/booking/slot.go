package booking

import (
	"fmt"
	"time"
)

// SlotKey addresses one bookable unit of capacity: a service at a
// specific start time.  It is derived, never stored as its own row;
// holds and bookings carry the (service_id, slot_starts_at) pair.
type SlotKey struct {
	ServiceID uint64
	StartsAt  time.Time
}

// NewSlotKey builds a slot key with the start time normalized to UTC
// and truncated to the minute, so keys derived from different sources
// compare equal.
func NewSlotKey(serviceID uint64, startsAt time.Time) SlotKey {
	return SlotKey{ServiceID: serviceID, StartsAt: startsAt.UTC().Truncate(time.Minute)}
}

// ParseSlotKey builds a slot key from the wire form used by the API:
// a date "2006-01-02" and a time "15:04", interpreted as UTC.
func ParseSlotKey(serviceID uint64, date, at string) (SlotKey, error) {
	t, err := time.Parse("2006-01-02 15:04", date+" "+at)
	if err != nil {
		return SlotKey{}, fmt.Errorf("invalid slot date/time: %w", err)
	}
	return NewSlotKey(serviceID, t), nil
}

// LockKey returns the resource name used to serialize mutations on this
// slot.  The same slot always maps to the same lock row.
func (k SlotKey) LockKey() string {
	return fmt.Sprintf("slot:%d:%s", k.ServiceID, k.StartsAt.Format("2006-01-02T15:04"))
}

// String renders the key for log lines.
func (k SlotKey) String() string {
	return k.LockKey()
}
