package repository

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/mariiahub/booking-core/internal/booking"
	"github.com/mariiahub/booking-core/internal/model"
)

// HoldRepo provides data access to the holds table.  Hold rows are the
// durable guard on capacity between checkout start and conversion; the
// unique key on (service_id, slot_starts_at, session_id) is what makes
// retried hold creation safe.  All expiry filters compare stored
// expires_at against an explicit cutoff so reads never depend on the
// sweeper having run.
type HoldRepo struct {
	db *sql.DB
}

// NewHoldRepo returns a HoldRepo bound to the provided database.
func NewHoldRepo(db *sql.DB) *HoldRepo { return &HoldRepo{db: db} }

const holdColumns = `id, service_id, slot_starts_at, slot_ends_at, user_id, session_id,
        party_size, hold_token, expires_at, version, created_at`

func scanHold(row interface{ Scan(...any) error }) (*model.Hold, error) {
	var h model.Hold
	err := row.Scan(&h.ID, &h.ServiceID, &h.SlotStartsAt, &h.SlotEndsAt, &h.UserID,
		&h.SessionID, &h.PartySize, &h.HoldToken, &h.ExpiresAt, &h.Version, &h.CreatedAt)
	if err != nil {
		return nil, err
	}
	return &h, nil
}

// InsertHold writes a new hold row and populates the generated id on
// the passed record.  A duplicate (service, slot, session) insert is
// reported as booking.ErrHoldExists so the flow layer can resolve it
// against the session's existing hold.
func (r *HoldRepo) InsertHold(ctx context.Context, h *model.Hold) error {
	const stmt = `
        INSERT INTO holds (service_id, slot_starts_at, slot_ends_at, user_id, session_id,
                           party_size, hold_token, expires_at, version)
        VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`
	res, err := q(ctx, r.db).ExecContext(ctx, stmt,
		h.ServiceID, h.SlotStartsAt.UTC(), h.SlotEndsAt.UTC(), h.UserID, h.SessionID,
		h.PartySize, h.HoldToken, h.ExpiresAt.UTC(), h.Version)
	if err != nil {
		if isDuplicateEntry(err) {
			return booking.ErrHoldExists
		}
		return err
	}
	id, err := res.LastInsertId()
	if err != nil {
		return err
	}
	h.ID = uint64(id)
	return nil
}

// GetHold returns the hold by id regardless of expiry; lifetime checks
// belong to the flow layer, which compares against its own clock.
func (r *HoldRepo) GetHold(ctx context.Context, id uint64) (*model.Hold, error) {
	const query = `SELECT ` + holdColumns + ` FROM holds WHERE id = ?`
	h, err := scanHold(q(ctx, r.db).QueryRowContext(ctx, query, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, booking.ErrHoldNotFound
	}
	return h, err
}

// GetHoldForUpdate reads the hold by id with a row write lock, pinning
// it for the rest of the surrounding transaction.  Outside a
// transaction the FOR UPDATE clause has no effect and this degrades to
// a plain read.
func (r *HoldRepo) GetHoldForUpdate(ctx context.Context, id uint64) (*model.Hold, error) {
	const query = `SELECT ` + holdColumns + ` FROM holds WHERE id = ? FOR UPDATE`
	h, err := scanHold(q(ctx, r.db).QueryRowContext(ctx, query, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, booking.ErrHoldNotFound
	}
	return h, err
}

// GetHoldBySlotSession returns the session's non-expired hold on the
// slot, or booking.ErrHoldNotFound.
func (r *HoldRepo) GetHoldBySlotSession(ctx context.Context, serviceID uint64, slotStartsAt time.Time, sessionID string, now time.Time) (*model.Hold, error) {
	const query = `SELECT ` + holdColumns + `
        FROM holds
        WHERE service_id = ? AND slot_starts_at = ? AND session_id = ? AND expires_at > ?`
	h, err := scanHold(q(ctx, r.db).QueryRowContext(ctx, query,
		serviceID, slotStartsAt.UTC(), sessionID, now.UTC()))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, booking.ErrHoldNotFound
	}
	return h, err
}

// DeleteHoldBySession removes the hold iff the session owns it,
// reporting whether a row was deleted.  Used by explicit release;
// idempotent by construction.
func (r *HoldRepo) DeleteHoldBySession(ctx context.Context, id uint64, sessionID string) (bool, error) {
	const stmt = `DELETE FROM holds WHERE id = ? AND session_id = ?`
	res, err := q(ctx, r.db).ExecContext(ctx, stmt, id, sessionID)
	if err != nil {
		return false, err
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	return affected > 0, nil
}

// DeleteHold removes the hold unconditionally.  Only the conversion
// path calls this, inside the same transaction that inserts the
// booking.
func (r *HoldRepo) DeleteHold(ctx context.Context, id uint64) (bool, error) {
	const stmt = `DELETE FROM holds WHERE id = ?`
	res, err := q(ctx, r.db).ExecContext(ctx, stmt, id)
	if err != nil {
		return false, err
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	return affected > 0, nil
}

// ExtendHold pushes expires_at forward and bumps the version iff the
// session matches and the hold is still live at now.
func (r *HoldRepo) ExtendHold(ctx context.Context, id uint64, sessionID string, now, newExpiresAt time.Time) (bool, error) {
	const stmt = `
        UPDATE holds
        SET expires_at = ?, version = version + 1
        WHERE id = ? AND session_id = ? AND expires_at > ?`
	res, err := q(ctx, r.db).ExecContext(ctx, stmt, newExpiresAt.UTC(), id, sessionID, now.UTC())
	if err != nil {
		return false, err
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	return affected > 0, nil
}

// SumActiveHoldParties totals party_size across the slot's non-expired
// holds.  Counted straight from timestamps: a hold the sweeper has not
// reaped yet still stops counting the instant it lapses.
func (r *HoldRepo) SumActiveHoldParties(ctx context.Context, serviceID uint64, slotStartsAt, now time.Time) (uint32, error) {
	const query = `
        SELECT COALESCE(SUM(party_size), 0)
        FROM holds
        WHERE service_id = ? AND slot_starts_at = ? AND expires_at > ?`
	var total uint32
	err := q(ctx, r.db).QueryRowContext(ctx, query,
		serviceID, slotStartsAt.UTC(), now.UTC()).Scan(&total)
	return total, err
}

// DeleteExpiredHolds reaps every hold past the cutoff, returning the
// number of rows removed.
func (r *HoldRepo) DeleteExpiredHolds(ctx context.Context, now time.Time) (int64, error) {
	const stmt = `DELETE FROM holds WHERE expires_at <= ?`
	res, err := q(ctx, r.db).ExecContext(ctx, stmt, now.UTC())
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}
