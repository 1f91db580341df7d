package repository

import (
	"context"
	"database/sql"
	"errors"

	"github.com/mariiahub/booking-core/internal/model"
)

// ErrWaitlistNotFound is returned when no entry exists for the caller.
var ErrWaitlistNotFound = errors.New("waitlist entry not found")

// WaitlistRepo provides data access to the waitlist_entries table.
// Status transitions are conditional updates guarded on the current
// status, so the promoter's "exactly one promotion" rule survives
// concurrent writers at the row level.
type WaitlistRepo struct {
	db *sql.DB
}

// NewWaitlistRepo returns a WaitlistRepo bound to the provided database.
func NewWaitlistRepo(db *sql.DB) *WaitlistRepo { return &WaitlistRepo{db: db} }

const waitlistColumns = `id, service_id, user_id, party_size, preferred_starts_at, flexible,
        tolerance_min, priority_score, status, promotion_attempts, max_attempts,
        booking_id, contact_name, contact_phone, created_at, updated_at`

func scanWaitlistEntry(row interface{ Scan(...any) error }) (*model.WaitlistEntry, error) {
	var e model.WaitlistEntry
	var bookingID sql.NullInt64
	err := row.Scan(&e.ID, &e.ServiceID, &e.UserID, &e.PartySize, &e.PreferredStartsAt,
		&e.Flexible, &e.ToleranceMin, &e.PriorityScore, &e.Status, &e.PromotionAttempts,
		&e.MaxAttempts, &bookingID, &e.ContactName, &e.ContactPhone, &e.CreatedAt, &e.UpdatedAt)
	if err != nil {
		return nil, err
	}
	if bookingID.Valid {
		id := uint64(bookingID.Int64)
		e.BookingID = &id
	}
	return &e, nil
}

// Create inserts a new pending entry and populates the generated id.
func (r *WaitlistRepo) Create(ctx context.Context, e *model.WaitlistEntry) error {
	const stmt = `
        INSERT INTO waitlist_entries (service_id, user_id, party_size, preferred_starts_at,
                                      flexible, tolerance_min, priority_score, status,
                                      promotion_attempts, max_attempts, contact_name, contact_phone)
        VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`
	res, err := q(ctx, r.db).ExecContext(ctx, stmt,
		e.ServiceID, e.UserID, e.PartySize, e.PreferredStartsAt.UTC(),
		e.Flexible, e.ToleranceMin, e.PriorityScore, e.Status,
		e.PromotionAttempts, e.MaxAttempts, e.ContactName, e.ContactPhone)
	if err != nil {
		return err
	}
	id, err := res.LastInsertId()
	if err != nil {
		return err
	}
	e.ID = uint64(id)
	return nil
}

// ListPromotable returns pending entries with attempts left, ordered by
// (priority_score desc, created_at asc).  This ordering is the only
// place waitlist priority exists — it decides who is attempted first,
// not who wins a live race against a direct booking.
func (r *WaitlistRepo) ListPromotable(ctx context.Context, limit int) ([]*model.WaitlistEntry, error) {
	const query = `SELECT ` + waitlistColumns + `
        FROM waitlist_entries
        WHERE status = 'PENDING' AND promotion_attempts < max_attempts
        ORDER BY priority_score DESC, created_at ASC
        LIMIT ?`
	rows, err := q(ctx, r.db).QueryContext(ctx, query, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []*model.WaitlistEntry
	for rows.Next() {
		e, err := scanWaitlistEntry(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, e)
	}
	return out, rows.Err()
}

// MarkPromoted transitions a still-pending entry to PROMOTED with its
// booking reference.  The status guard in the WHERE clause is what
// makes double promotion impossible: the second writer updates zero
// rows and learns it lost.
func (r *WaitlistRepo) MarkPromoted(ctx context.Context, entryID, bookingID uint64) (bool, error) {
	const stmt = `
        UPDATE waitlist_entries
        SET status = 'PROMOTED', booking_id = ?
        WHERE id = ? AND status = 'PENDING'`
	res, err := q(ctx, r.db).ExecContext(ctx, stmt, bookingID, entryID)
	if err != nil {
		return false, err
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	return affected > 0, nil
}

// MarkExpired transitions a still-pending entry to EXPIRED.
func (r *WaitlistRepo) MarkExpired(ctx context.Context, entryID uint64) (bool, error) {
	const stmt = `UPDATE waitlist_entries SET status = 'EXPIRED' WHERE id = ? AND status = 'PENDING'`
	res, err := q(ctx, r.db).ExecContext(ctx, stmt, entryID)
	if err != nil {
		return false, err
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	return affected > 0, nil
}

// IncrementAttempts bumps the failed-attempt counter.
func (r *WaitlistRepo) IncrementAttempts(ctx context.Context, entryID uint64) error {
	const stmt = `UPDATE waitlist_entries SET promotion_attempts = promotion_attempts + 1 WHERE id = ?`
	_, err := q(ctx, r.db).ExecContext(ctx, stmt, entryID)
	return err
}

// GetByIDForUser returns the user's entry, or ErrWaitlistNotFound.
func (r *WaitlistRepo) GetByIDForUser(ctx context.Context, entryID, userID uint64) (*model.WaitlistEntry, error) {
	const query = `SELECT ` + waitlistColumns + ` FROM waitlist_entries WHERE id = ? AND user_id = ?`
	e, err := scanWaitlistEntry(q(ctx, r.db).QueryRowContext(ctx, query, entryID, userID))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrWaitlistNotFound
	}
	return e, err
}

// CancelByUser lets a customer withdraw their own pending entry,
// reporting whether a row changed.
func (r *WaitlistRepo) CancelByUser(ctx context.Context, entryID, userID uint64) (bool, error) {
	const stmt = `
        UPDATE waitlist_entries
        SET status = 'CANCELLED'
        WHERE id = ? AND user_id = ? AND status = 'PENDING'`
	res, err := q(ctx, r.db).ExecContext(ctx, stmt, entryID, userID)
	if err != nil {
		return false, err
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	return affected > 0, nil
}
