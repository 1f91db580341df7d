package handler

import (
    "errors"   // errors.Is comparisons
    "net/http" // HTTP status codes
    "time"     // formatting timestamps in responses

    "github.com/labstack/echo/v4" // Echo web framework

    "github.com/mariiahub/booking-core/internal/booking"
    "github.com/mariiahub/booking-core/internal/model"
    "github.com/mariiahub/booking-core/internal/repository"
)

// BookingHandler serves confirmed bookings for the authenticated user:
// listing, fetching a single booking and cancelling.  Ownership is
// enforced in the repository layer; a booking belonging to another user
// is indistinguishable from a missing one.
type BookingHandler struct {
    Bookings *repository.BookingRepo
}

// NewBookingHandler constructs a BookingHandler.
func NewBookingHandler(bookings *repository.BookingRepo) *BookingHandler {
    if bookings == nil {
        panic("nil repository passed to NewBookingHandler")
    }
    return &BookingHandler{Bookings: bookings}
}

// ListBookings handles GET /v1/bookings.  It returns all bookings of
// the current user, newest slot first.  When no bookings exist, it
// returns an empty array.
func (h *BookingHandler) ListBookings(c echo.Context) error {
    userID, err := getUserID(c)
    if err != nil {
        return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
    }
    items, err := h.Bookings.ListByUser(c.Request().Context(), userID)
    if err != nil {
        return c.JSON(http.StatusInternalServerError, echo.Map{"error": "failed to load bookings"})
    }
    out := make([]echo.Map, 0, len(items))
    for _, b := range items {
        out = append(out, bookingJSON(b))
    }
    return c.JSON(http.StatusOK, echo.Map{"items": out})
}

// GetBooking handles GET /v1/bookings/:id.
func (h *BookingHandler) GetBooking(c echo.Context) error {
    userID, err := getUserID(c)
    if err != nil {
        return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
    }
    bookingID, err := parseIDParam(c, "id")
    if err != nil {
        return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid booking id"})
    }
    b, err := h.Bookings.GetByIDForUser(c.Request().Context(), bookingID, userID)
    if err != nil {
        if errors.Is(err, booking.ErrBookingNotFound) {
            return c.JSON(http.StatusNotFound, echo.Map{"error": "booking not found"})
        }
        return c.JSON(http.StatusInternalServerError, echo.Map{"error": "failed to fetch booking"})
    }
    return c.JSON(http.StatusOK, echo.Map{"item": bookingJSON(b)})
}

// CancelBooking handles DELETE /v1/bookings/:id.  Cancelling releases
// the booking's capacity: the slot immediately admits new holds and the
// waitlist promoter may fill it on its next sweep.  Returns 204 on
// success and 404 when no cancellable booking exists for this user.
func (h *BookingHandler) CancelBooking(c echo.Context) error {
    userID, err := getUserID(c)
    if err != nil {
        return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
    }
    bookingID, err := parseIDParam(c, "id")
    if err != nil {
        return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid booking id"})
    }
    if err := booking.CancelBooking(c.Request().Context(), h.Bookings, bookingID, userID); err != nil {
        if errors.Is(err, booking.ErrBookingNotFound) {
            return c.JSON(http.StatusNotFound, echo.Map{"error": "booking not found"})
        }
        return c.JSON(http.StatusInternalServerError, echo.Map{"error": "failed to cancel booking"})
    }
    return c.NoContent(http.StatusNoContent)
}

// bookingJSON renders a booking in the shape shared by list and detail
// responses.
func bookingJSON(b *model.Booking) echo.Map {
    m := echo.Map{
        "booking_id":         b.ID,
        "service_id":         b.ServiceID,
        "slot_starts_at":     b.SlotStartsAt.Format(time.RFC3339),
        "slot_ends_at":       b.SlotEndsAt.Format(time.RFC3339),
        "party_size":         b.PartySize,
        "status":             b.Status,
        "base_amount_cents":  b.BaseAmountCents,
        "discount_cents":     b.DiscountCents,
        "final_amount_cents": b.FinalAmountCents,
        "applied_rules":      b.AppliedRules,
        "contact_name":       b.ContactName,
        "contact_phone":      b.ContactPhone,
        "created_at":         b.CreatedAt.Format(time.RFC3339),
    }
    if b.PaymentRef != nil {
        m["payment_ref"] = *b.PaymentRef
    }
    return m
}
