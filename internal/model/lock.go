package model

import "time"

// SlotLock is a short-lived mutual-exclusion marker over a slot key.  Its
// only job is to serialize the capacity-check-then-hold-insert sequence;
// the hold itself is the durable reservation.  At most one non-expired
// lock exists per key.  Epoch changes on every acquire and renew so a
// holder whose lock expired and was reassigned can detect the loss.
//
// Fields:
//  LockKey   – the resource name, derived from the slot key.
//  OwnerID   – opaque owner identifier (typically a session id).
//  Epoch     – monotonic version stamp, unix nanoseconds at acquisition.
//  ExpiresAt – when the lock lapses and becomes reacquirable.
type SlotLock struct {
	LockKey   string    // slot_locks.lock_key
	OwnerID   string    // slot_locks.owner_id
	Epoch     int64     // slot_locks.epoch
	ExpiresAt time.Time // slot_locks.expires_at
	CreatedAt time.Time // slot_locks.created_at
}
