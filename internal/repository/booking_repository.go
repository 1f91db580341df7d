package repository

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/mariiahub/booking-core/internal/booking"
	"github.com/mariiahub/booking-core/internal/model"
)

// BookingRepo provides data access to the bookings table.
type BookingRepo struct {
	db *sql.DB
}

// NewBookingRepo returns a BookingRepo bound to the provided database.
func NewBookingRepo(db *sql.DB) *BookingRepo { return &BookingRepo{db: db} }

const bookingColumns = `id, service_id, slot_starts_at, slot_ends_at, user_id, party_size,
        status, hold_id, contact_name, contact_phone, payment_ref,
        base_amount_cents, discount_cents, final_amount_cents, applied_rules,
        version, created_at, updated_at`

func scanBooking(row interface{ Scan(...any) error }) (*model.Booking, error) {
	var b model.Booking
	var paymentRef sql.NullString
	err := row.Scan(&b.ID, &b.ServiceID, &b.SlotStartsAt, &b.SlotEndsAt, &b.UserID,
		&b.PartySize, &b.Status, &b.HoldID, &b.ContactName, &b.ContactPhone, &paymentRef,
		&b.BaseAmountCents, &b.DiscountCents, &b.FinalAmountCents, &b.AppliedRules,
		&b.Version, &b.CreatedAt, &b.UpdatedAt)
	if err != nil {
		return nil, err
	}
	if paymentRef.Valid {
		ref := paymentRef.String
		b.PaymentRef = &ref
	}
	return &b, nil
}

// InsertBooking writes the booking row and populates the generated id.
// Called only from the conversion transaction alongside the hold
// delete.
func (r *BookingRepo) InsertBooking(ctx context.Context, b *model.Booking) error {
	const stmt = `
        INSERT INTO bookings (service_id, slot_starts_at, slot_ends_at, user_id, party_size,
                              status, hold_id, contact_name, contact_phone, payment_ref,
                              base_amount_cents, discount_cents, final_amount_cents,
                              applied_rules, version)
        VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`
	var paymentRef any
	if b.PaymentRef != nil {
		paymentRef = *b.PaymentRef
	}
	res, err := q(ctx, r.db).ExecContext(ctx, stmt,
		b.ServiceID, b.SlotStartsAt.UTC(), b.SlotEndsAt.UTC(), b.UserID, b.PartySize,
		b.Status, b.HoldID, b.ContactName, b.ContactPhone, paymentRef,
		b.BaseAmountCents, b.DiscountCents, b.FinalAmountCents, b.AppliedRules, b.Version)
	if err != nil {
		return err
	}
	id, err := res.LastInsertId()
	if err != nil {
		return err
	}
	b.ID = uint64(id)
	return nil
}

// SumBookedParties totals party_size across the slot's capacity-holding
// bookings (PENDING and CONFIRMED).  Cancellations drop out of this sum
// the moment their status flips, with no cache in between.
func (r *BookingRepo) SumBookedParties(ctx context.Context, serviceID uint64, slotStartsAt time.Time) (uint32, error) {
	const query = `
        SELECT COALESCE(SUM(party_size), 0)
        FROM bookings
        WHERE service_id = ? AND slot_starts_at = ? AND status IN ('PENDING', 'CONFIRMED')`
	var total uint32
	err := q(ctx, r.db).QueryRowContext(ctx, query, serviceID, slotStartsAt.UTC()).Scan(&total)
	return total, err
}

// CancelBooking transitions the user's booking to CANCELLED, reporting
// whether a row changed.  Restricting the update to capacity-holding
// statuses makes repeated cancels report false instead of rewriting
// history on completed bookings.
func (r *BookingRepo) CancelBooking(ctx context.Context, bookingID, userID uint64) (bool, error) {
	const stmt = `
        UPDATE bookings
        SET status = 'CANCELLED', version = version + 1
        WHERE id = ? AND user_id = ? AND status IN ('PENDING', 'CONFIRMED')`
	res, err := q(ctx, r.db).ExecContext(ctx, stmt, bookingID, userID)
	if err != nil {
		return false, err
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	return affected > 0, nil
}

// GetByIDForUser returns a single booking owned by the user, or
// booking.ErrBookingNotFound.  Ownership is enforced in the query so a
// wrong owner and a missing row are indistinguishable to the caller.
func (r *BookingRepo) GetByIDForUser(ctx context.Context, bookingID, userID uint64) (*model.Booking, error) {
	const query = `SELECT ` + bookingColumns + ` FROM bookings WHERE id = ? AND user_id = ?`
	b, err := scanBooking(q(ctx, r.db).QueryRowContext(ctx, query, bookingID, userID))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, booking.ErrBookingNotFound
	}
	return b, err
}

// ListByUser returns the user's bookings, newest slot first.
func (r *BookingRepo) ListByUser(ctx context.Context, userID uint64) ([]*model.Booking, error) {
	const query = `SELECT ` + bookingColumns + `
        FROM bookings WHERE user_id = ? ORDER BY slot_starts_at DESC, id DESC`
	rows, err := q(ctx, r.db).QueryContext(ctx, query, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []*model.Booking
	for rows.Next() {
		b, err := scanBooking(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, b)
	}
	return out, rows.Err()
}
