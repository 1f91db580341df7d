package repository

import (
	"context"
	"database/sql"
	"time"
)

// LockRepo provides data access to the slot_locks table.  Acquisition
// is a single upsert whose SET clauses only take effect when the
// existing row is expired or already owned by the caller, so the
// grant/deny decision is made atomically by the database.
type LockRepo struct {
	db *sql.DB
}

// NewLockRepo returns a LockRepo bound to the provided database.
func NewLockRepo(db *sql.DB) *LockRepo { return &LockRepo{db: db} }

// UpsertLock tries to claim the lock row for ownerID.
//
// Rows-affected semantics of INSERT ... ON DUPLICATE KEY UPDATE decide
// the outcome: 1 means a fresh row was inserted, 2 means an existing
// row was taken over (expired, or an idempotent re-acquire), 0 means
// the row belongs to a live other owner and nothing changed.  The
// epoch column is assigned first so the owner_id condition still sees
// the pre-update owner when it is evaluated.
func (r *LockRepo) UpsertLock(ctx context.Context, key, ownerID string, epoch int64, expiresAt time.Time) (bool, error) {
	const stmt = `
        INSERT INTO slot_locks (lock_key, owner_id, epoch, expires_at)
        VALUES (?, ?, ?, ?)
        ON DUPLICATE KEY UPDATE
            epoch      = IF(expires_at <= UTC_TIMESTAMP() OR owner_id = VALUES(owner_id), VALUES(epoch), epoch),
            owner_id   = IF(expires_at <= UTC_TIMESTAMP() OR owner_id = VALUES(owner_id), VALUES(owner_id), owner_id),
            expires_at = IF(owner_id = VALUES(owner_id) AND epoch = VALUES(epoch), VALUES(expires_at), expires_at)`
	res, err := q(ctx, r.db).ExecContext(ctx, stmt,
		key, ownerID, epoch, expiresAt.UTC().Format("2006-01-02 15:04:05.000000"))
	if err != nil {
		return false, err
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	return affected > 0, nil
}

// DeleteLock removes the row iff owner and epoch both still match.  A
// mismatch means the caller's ownership already lapsed; deleting
// nothing is the correct behavior, not an error.
func (r *LockRepo) DeleteLock(ctx context.Context, key, ownerID string, epoch int64) error {
	const stmt = `DELETE FROM slot_locks WHERE lock_key = ? AND owner_id = ? AND epoch = ?`
	_, err := q(ctx, r.db).ExecContext(ctx, stmt, key, ownerID, epoch)
	return err
}

// UpdateLockExpiry extends the lock to a new epoch and expiry under the
// same owner+epoch match rule as DeleteLock, reporting whether the
// update took effect.
func (r *LockRepo) UpdateLockExpiry(ctx context.Context, key, ownerID string, epoch, newEpoch int64, expiresAt time.Time) (bool, error) {
	const stmt = `
        UPDATE slot_locks
        SET epoch = ?, expires_at = ?
        WHERE lock_key = ? AND owner_id = ? AND epoch = ?`
	res, err := q(ctx, r.db).ExecContext(ctx, stmt,
		newEpoch, expiresAt.UTC().Format("2006-01-02 15:04:05.000000"), key, ownerID, epoch)
	if err != nil {
		return false, err
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	return affected > 0, nil
}

// DeleteExpiredLocks reaps every lock whose expiry has passed the given
// cutoff, returning the number of rows removed.
func (r *LockRepo) DeleteExpiredLocks(ctx context.Context, now time.Time) (int64, error) {
	const stmt = `DELETE FROM slot_locks WHERE expires_at <= ?`
	res, err := q(ctx, r.db).ExecContext(ctx, stmt, now.UTC().Format("2006-01-02 15:04:05.000000"))
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}
