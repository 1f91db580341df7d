package handler

import (
    "context"  // detached context for post-commit event publishing
    "errors"   // errors.Is comparisons against flow sentinels
    "net/http" // HTTP status codes
    "time"     // formatting timestamps in responses

    "github.com/labstack/echo/v4" // Echo web framework

    "github.com/mariiahub/booking-core/internal/booking"
    "github.com/mariiahub/booking-core/internal/queue"
    "github.com/mariiahub/booking-core/internal/repository"
    queuepub "github.com/mariiahub/booking-core/internal/service"
)

// HoldHandler exposes the checkout flow over HTTP: placing a hold on a
// slot, keeping it alive, abandoning it, and converting it into a
// confirmed booking.  All methods assume JWT authentication has already
// been performed by middleware; they additionally require the
// X-Session-ID header because holds are owned by checkout sessions.
type HoldHandler struct {
    Holds     *booking.HoldManager // hold lifecycle operations
    Converter *booking.Converter   // hold to booking conversion
    Services  *repository.ServiceRepo
}

// NewHoldHandler constructs a HoldHandler.  All dependencies must be non-nil.
func NewHoldHandler(holds *booking.HoldManager, converter *booking.Converter, services *repository.ServiceRepo) *HoldHandler {
    if holds == nil || converter == nil || services == nil {
        panic("nil dependency passed to NewHoldHandler")
    }
    return &HoldHandler{Holds: holds, Converter: converter, Services: services}
}

// CreateHold handles POST /v1/holds.  The request body carries the
// service, the slot (date + start time, UTC) and the party size.  On
// success it returns 201 with the hold id, its opaque token and the
// expiration timestamp.  A retry of the same request by the same
// session returns the existing hold.
func (h *HoldHandler) CreateHold(c echo.Context) error {
    userID, err := getUserID(c)
    if err != nil {
        return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
    }
    sessionID, err := getSessionID(c)
    if err != nil {
        return c.JSON(http.StatusBadRequest, echo.Map{"error": err.Error()})
    }
    var body struct {
        ServiceID uint64 `json:"service_id"`
        Date      string `json:"date"` // YYYY-MM-DD
        At        string `json:"at"`   // HH:MM, 24h UTC
        PartySize uint32 `json:"party_size"`
    }
    if err := c.Bind(&body); err != nil {
        return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid request body"})
    }
    if body.ServiceID == 0 {
        return c.JSON(http.StatusBadRequest, echo.Map{"error": "service_id is required"})
    }
    key, err := booking.ParseSlotKey(body.ServiceID, body.Date, body.At)
    if err != nil {
        return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid slot date or time"})
    }

    hold, err := h.Holds.CreateHold(c.Request().Context(), key, userID, sessionID, body.PartySize)
    if err != nil {
        return holdFlowError(c, err)
    }
    return c.JSON(http.StatusCreated, echo.Map{
        "hold_id":       hold.ID,
        "hold_token":    hold.HoldToken,
        "service_id":    hold.ServiceID,
        "slot_starts_at": hold.SlotStartsAt.Format(time.RFC3339),
        "slot_ends_at":  hold.SlotEndsAt.Format(time.RFC3339),
        "party_size":    hold.PartySize,
        "expires_at":    hold.ExpiresAt.Format(time.RFC3339),
    })
}

// ReleaseHold handles DELETE /v1/holds/:id.  Releasing is idempotent:
// releasing a hold that is already gone returns released=false with 200
// rather than an error, so clients can fire it on every abandoned
// checkout.
func (h *HoldHandler) ReleaseHold(c echo.Context) error {
    if _, err := getUserID(c); err != nil {
        return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
    }
    sessionID, err := getSessionID(c)
    if err != nil {
        return c.JSON(http.StatusBadRequest, echo.Map{"error": err.Error()})
    }
    holdID, err := parseIDParam(c, "id")
    if err != nil {
        return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid hold id"})
    }
    released, err := h.Holds.ReleaseHold(c.Request().Context(), holdID, sessionID)
    if err != nil {
        return c.JSON(http.StatusInternalServerError, echo.Map{"error": "failed to release hold"})
    }
    return c.JSON(http.StatusOK, echo.Map{"released": released})
}

// RenewHold handles POST /v1/holds/:id/renew.  It pushes the expiry of
// an unexpired hold forward by one TTL and returns the new expiry.
func (h *HoldHandler) RenewHold(c echo.Context) error {
    if _, err := getUserID(c); err != nil {
        return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
    }
    sessionID, err := getSessionID(c)
    if err != nil {
        return c.JSON(http.StatusBadRequest, echo.Map{"error": err.Error()})
    }
    holdID, err := parseIDParam(c, "id")
    if err != nil {
        return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid hold id"})
    }
    expiresAt, err := h.Holds.RenewHold(c.Request().Context(), holdID, sessionID)
    if err != nil {
        switch {
        case errors.Is(err, booking.ErrHoldNotFound):
            return c.JSON(http.StatusNotFound, echo.Map{"error": "hold not found"})
        case errors.Is(err, booking.ErrHoldExpired):
            return c.JSON(http.StatusGone, echo.Map{"error": "hold expired"})
        case errors.Is(err, booking.ErrOwnershipMismatch):
            return c.JSON(http.StatusForbidden, echo.Map{"error": "hold owned by another session"})
        }
        return c.JSON(http.StatusInternalServerError, echo.Map{"error": "failed to renew hold"})
    }
    return c.JSON(http.StatusOK, echo.Map{"expires_at": expiresAt.Format(time.RFC3339)})
}

// ConvertHold handles POST /v1/holds/:id/convert.  It finalises a hold
// into a confirmed booking in a single transaction, repricing at commit
// time.  On success a booking.confirmed event is published on a
// best-effort basis and 201 is returned with the booking and the final
// price breakdown.
func (h *HoldHandler) ConvertHold(c echo.Context) error {
    userID, err := getUserID(c)
    if err != nil {
        return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
    }
    sessionID, err := getSessionID(c)
    if err != nil {
        return c.JSON(http.StatusBadRequest, echo.Map{"error": err.Error()})
    }
    holdID, err := parseIDParam(c, "id")
    if err != nil {
        return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid hold id"})
    }
    var body struct {
        ContactName  string `json:"contact_name"`
        ContactPhone string `json:"contact_phone"`
        PaymentRef   string `json:"payment_ref"`
    }
    if err := c.Bind(&body); err != nil {
        return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid request body"})
    }
    if body.ContactName == "" || body.ContactPhone == "" {
        return c.JSON(http.StatusBadRequest, echo.Map{"error": "contact_name and contact_phone are required"})
    }

    res, err := h.Converter.Convert(c.Request().Context(), booking.ConvertInput{
        HoldID:       holdID,
        SessionID:    sessionID,
        ContactName:  body.ContactName,
        ContactPhone: body.ContactPhone,
        PaymentRef:   body.PaymentRef,
    })
    if err != nil {
        return holdFlowError(c, err)
    }

    b := res.Booking
    serviceName := ""
    if svc, errSvc := h.Services.GetService(c.Request().Context(), b.ServiceID); errSvc == nil {
        serviceName = svc.Name
    }
    // Event publishing is best effort and must not delay the response.
    go func() {
        ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
        defer cancel()
        _ = queuepub.PublishBookingConfirmed(ctx, queue.BookingConfirmedEvent{
            BookingID:        b.ID,
            UserID:           userID,
            ServiceID:        b.ServiceID,
            ServiceName:      serviceName,
            SlotStartsAt:     b.SlotStartsAt.Format(time.RFC3339),
            SlotEndsAt:       b.SlotEndsAt.Format(time.RFC3339),
            PartySize:        b.PartySize,
            BaseAmountCents:  b.BaseAmountCents,
            DiscountCents:    b.DiscountCents,
            FinalAmountCents: b.FinalAmountCents,
            AppliedRules:     b.AppliedRules,
            ConfirmedAt:      time.Now().UTC().Format(time.RFC3339),
        })
    }()

    return c.JSON(http.StatusCreated, echo.Map{
        "booking_id":         b.ID,
        "status":             b.Status,
        "service_id":         b.ServiceID,
        "slot_starts_at":     b.SlotStartsAt.Format(time.RFC3339),
        "slot_ends_at":       b.SlotEndsAt.Format(time.RFC3339),
        "party_size":         b.PartySize,
        "base_amount_cents":  b.BaseAmountCents,
        "discount_cents":     b.DiscountCents,
        "final_amount_cents": b.FinalAmountCents,
        "applied_rules":      b.AppliedRules,
    })
}

// holdFlowError maps the flow-layer sentinels onto HTTP status codes.
// Contention and capacity both surface as client-retryable situations,
// but with distinct codes so clients can tell "try again shortly" (409)
// from "pick another slot" (422).
func holdFlowError(c echo.Context, err error) error {
    switch {
    case errors.Is(err, booking.ErrSlotContended):
        return c.JSON(http.StatusConflict, echo.Map{"error": "slot is contended, retry shortly"})
    case errors.Is(err, booking.ErrCapacityExceeded):
        return c.JSON(http.StatusUnprocessableEntity, echo.Map{"error": "slot is full"})
    case errors.Is(err, booking.ErrGroupSizeNotAllowed):
        return c.JSON(http.StatusUnprocessableEntity, echo.Map{"error": "party size not allowed for this service"})
    case errors.Is(err, booking.ErrInvalidPartySize):
        return c.JSON(http.StatusBadRequest, echo.Map{"error": "party_size must be positive"})
    case errors.Is(err, booking.ErrServiceNotFound):
        return c.JSON(http.StatusNotFound, echo.Map{"error": "service not found"})
    case errors.Is(err, booking.ErrServiceInactive):
        return c.JSON(http.StatusUnprocessableEntity, echo.Map{"error": "service is not bookable"})
    case errors.Is(err, booking.ErrHoldNotFound):
        return c.JSON(http.StatusNotFound, echo.Map{"error": "hold not found"})
    case errors.Is(err, booking.ErrHoldExpired):
        return c.JSON(http.StatusGone, echo.Map{"error": "hold expired"})
    case errors.Is(err, booking.ErrOwnershipMismatch):
        return c.JSON(http.StatusForbidden, echo.Map{"error": "hold owned by another session"})
    case errors.Is(err, booking.ErrHoldConflict):
        return c.JSON(http.StatusConflict, echo.Map{"error": "session already holds this slot with a different party size"})
    case errors.Is(err, booking.ErrRepricingFailed):
        return c.JSON(http.StatusBadGateway, echo.Map{"error": "pricing unavailable, hold is still active"})
    case errors.Is(err, booking.ErrCatalogUnavailable):
        return c.JSON(http.StatusBadGateway, echo.Map{"error": "catalog unavailable"})
    }
    return c.JSON(http.StatusInternalServerError, echo.Map{"error": "internal error"})
}
