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

// WaitlistHandler lets customers queue for a full slot and manage their
// queue entries.  Entries are picked up asynchronously by the promoter
// worker; this handler never promotes anything itself.
type WaitlistHandler struct {
    Waitlist    *repository.WaitlistRepo
    Services    *repository.ServiceRepo
    MaxAttempts uint32 // promotion attempt budget stamped on new entries
}

// NewWaitlistHandler constructs a WaitlistHandler.
func NewWaitlistHandler(waitlist *repository.WaitlistRepo, services *repository.ServiceRepo, maxAttempts uint32) *WaitlistHandler {
    if waitlist == nil || services == nil {
        panic("nil repository passed to NewWaitlistHandler")
    }
    if maxAttempts == 0 {
        maxAttempts = 10
    }
    return &WaitlistHandler{Waitlist: waitlist, Services: services, MaxAttempts: maxAttempts}
}

// JoinWaitlist handles POST /v1/waitlist.  The body carries the desired
// service, the preferred slot, the party size and optional flexibility:
// flexible entries may be placed in any slot within tolerance_min
// minutes of the preferred start.  Returns 201 with the entry id.
func (h *WaitlistHandler) JoinWaitlist(c echo.Context) error {
    userID, err := getUserID(c)
    if err != nil {
        return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
    }
    var body struct {
        ServiceID    uint64 `json:"service_id"`
        Date         string `json:"date"` // YYYY-MM-DD
        At           string `json:"at"`   // HH:MM, 24h UTC
        PartySize    uint32 `json:"party_size"`
        Flexible     bool   `json:"flexible"`
        ToleranceMin uint32 `json:"tolerance_min"`
        ContactName  string `json:"contact_name"`
        ContactPhone string `json:"contact_phone"`
    }
    if err := c.Bind(&body); err != nil {
        return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid request body"})
    }
    if body.ServiceID == 0 {
        return c.JSON(http.StatusBadRequest, echo.Map{"error": "service_id is required"})
    }
    if body.PartySize == 0 {
        return c.JSON(http.StatusBadRequest, echo.Map{"error": "party_size must be positive"})
    }
    if body.ContactName == "" || body.ContactPhone == "" {
        return c.JSON(http.StatusBadRequest, echo.Map{"error": "contact_name and contact_phone are required"})
    }
    key, err := booking.ParseSlotKey(body.ServiceID, body.Date, body.At)
    if err != nil {
        return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid slot date or time"})
    }
    ctx := c.Request().Context()

    // Validate the service up front so customers cannot queue for a
    // service that will never be promotable.
    svc, err := h.Services.GetService(ctx, key.ServiceID)
    if err != nil {
        if errors.Is(err, booking.ErrServiceNotFound) {
            return c.JSON(http.StatusNotFound, echo.Map{"error": "service not found"})
        }
        return c.JSON(http.StatusInternalServerError, echo.Map{"error": "database error"})
    }
    if !svc.Active {
        return c.JSON(http.StatusUnprocessableEntity, echo.Map{"error": "service is not bookable"})
    }
    if body.PartySize > 1 && (!svc.GroupAllowed || body.PartySize > svc.MaxGroupSize) {
        return c.JSON(http.StatusUnprocessableEntity, echo.Map{"error": "party size not allowed for this service"})
    }

    entry := &model.WaitlistEntry{
        ServiceID:         key.ServiceID,
        UserID:            userID,
        PartySize:         body.PartySize,
        PreferredStartsAt: key.StartsAt,
        Flexible:          body.Flexible,
        ToleranceMin:      body.ToleranceMin,
        Status:            model.WaitlistStatusPending,
        MaxAttempts:       h.MaxAttempts,
        ContactName:       body.ContactName,
        ContactPhone:      body.ContactPhone,
    }
    if !entry.Flexible {
        entry.ToleranceMin = 0
    }
    if err := h.Waitlist.Create(ctx, entry); err != nil {
        return c.JSON(http.StatusInternalServerError, echo.Map{"error": "failed to join waitlist"})
    }
    return c.JSON(http.StatusCreated, echo.Map{
        "entry_id": entry.ID,
        "status":   entry.Status,
    })
}

// GetWaitlistEntry handles GET /v1/waitlist/:id.  Promoted entries
// carry the booking id the customer was placed into.
func (h *WaitlistHandler) GetWaitlistEntry(c echo.Context) error {
    userID, err := getUserID(c)
    if err != nil {
        return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
    }
    entryID, err := parseIDParam(c, "id")
    if err != nil {
        return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid entry id"})
    }
    entry, err := h.Waitlist.GetByIDForUser(c.Request().Context(), entryID, userID)
    if err != nil {
        if errors.Is(err, repository.ErrWaitlistNotFound) {
            return c.JSON(http.StatusNotFound, echo.Map{"error": "waitlist entry not found"})
        }
        return c.JSON(http.StatusInternalServerError, echo.Map{"error": "failed to fetch waitlist entry"})
    }
    m := echo.Map{
        "entry_id":            entry.ID,
        "service_id":          entry.ServiceID,
        "preferred_starts_at": entry.PreferredStartsAt.Format(time.RFC3339),
        "party_size":          entry.PartySize,
        "flexible":            entry.Flexible,
        "tolerance_min":       entry.ToleranceMin,
        "status":              entry.Status,
        "promotion_attempts":  entry.PromotionAttempts,
        "created_at":          entry.CreatedAt.Format(time.RFC3339),
    }
    if entry.BookingID != nil {
        m["booking_id"] = *entry.BookingID
    }
    return c.JSON(http.StatusOK, echo.Map{"item": m})
}

// CancelWaitlistEntry handles DELETE /v1/waitlist/:id.  Only pending
// entries can be cancelled; an entry that was already promoted keeps
// its booking, which the customer cancels separately if unwanted.
func (h *WaitlistHandler) CancelWaitlistEntry(c echo.Context) error {
    userID, err := getUserID(c)
    if err != nil {
        return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
    }
    entryID, err := parseIDParam(c, "id")
    if err != nil {
        return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid entry id"})
    }
    cancelled, err := h.Waitlist.CancelByUser(c.Request().Context(), entryID, userID)
    if err != nil {
        return c.JSON(http.StatusInternalServerError, echo.Map{"error": "failed to cancel waitlist entry"})
    }
    if !cancelled {
        return c.JSON(http.StatusNotFound, echo.Map{"error": "no pending waitlist entry found"})
    }
    return c.NoContent(http.StatusNoContent)
}
