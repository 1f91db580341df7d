package handler

import (
    "errors"   // errors.Is comparisons
    "net/http" // HTTP status codes
    "time"     // slot arithmetic and formatting

    "github.com/labstack/echo/v4" // Echo web framework

    "github.com/mariiahub/booking-core/internal/booking"
    "github.com/mariiahub/booking-core/internal/clock"
    "github.com/mariiahub/booking-core/internal/repository"
)

// CatalogHandler serves the public, unauthenticated read surface: the
// list of bookable services and per-day availability.  These endpoints
// sit behind the response cache middleware, so availability figures may
// be up to one cache TTL stale; the definitive capacity check happens
// at hold time.
type CatalogHandler struct {
    Services *repository.ServiceRepo
    Eval     *booking.Evaluator
    Clock    clock.Clock
    OpenHour  int // first bookable slot hour of the day (UTC)
    CloseHour int // hour after the last bookable slot (UTC)
}

// NewCatalogHandler constructs a CatalogHandler.
func NewCatalogHandler(services *repository.ServiceRepo, eval *booking.Evaluator, clk clock.Clock, openHour, closeHour int) *CatalogHandler {
    if services == nil || eval == nil || clk == nil {
        panic("nil dependency passed to NewCatalogHandler")
    }
    if openHour < 0 || closeHour <= openHour || closeHour > 24 {
        openHour, closeHour = 9, 18
    }
    return &CatalogHandler{Services: services, Eval: eval, Clock: clk, OpenHour: openHour, CloseHour: closeHour}
}

// ListServices handles GET /v1/services.  Only active services are
// returned, ordered by category then name.
func (h *CatalogHandler) ListServices(c echo.Context) error {
    items, err := h.Services.ListActive(c.Request().Context())
    if err != nil {
        return c.JSON(http.StatusInternalServerError, echo.Map{"error": "failed to load services"})
    }
    out := make([]echo.Map, 0, len(items))
    for _, s := range items {
        out = append(out, echo.Map{
            "service_id":       s.ID,
            "name":             s.Name,
            "category":         s.Category,
            "duration_min":     s.DurationMin,
            "capacity":         s.Capacity,
            "group_allowed":    s.GroupAllowed,
            "max_group_size":   s.MaxGroupSize,
            "base_price_cents": s.BasePriceCents,
        })
    }
    return c.JSON(http.StatusOK, echo.Map{"items": out})
}

// GetAvailability handles GET /v1/services/:id/availability?date=YYYY-MM-DD.
// It walks the service's slot grid for the requested day (duration-
// spaced starts between the opening hours) and reports the remaining
// capacity of each slot that has not yet started.
func (h *CatalogHandler) GetAvailability(c echo.Context) error {
    serviceID, err := parseIDParam(c, "id")
    if err != nil {
        return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid service id"})
    }
    date := c.QueryParam("date")
    day, err := time.ParseInLocation("2006-01-02", date, time.UTC)
    if err != nil {
        return c.JSON(http.StatusBadRequest, echo.Map{"error": "date query parameter must be YYYY-MM-DD"})
    }
    ctx := c.Request().Context()
    svc, err := h.Eval.Service(ctx, serviceID)
    if err != nil {
        if errors.Is(err, booking.ErrServiceNotFound) {
            return c.JSON(http.StatusNotFound, echo.Map{"error": "service not found"})
        }
        return c.JSON(http.StatusInternalServerError, echo.Map{"error": "database error"})
    }
    if !svc.Active {
        return c.JSON(http.StatusNotFound, echo.Map{"error": "service not found"})
    }

    now := h.Clock.Now()
    step := time.Duration(svc.DurationMin) * time.Minute
    open := day.Add(time.Duration(h.OpenHour) * time.Hour)
    closeAt := day.Add(time.Duration(h.CloseHour) * time.Hour)

    slots := make([]echo.Map, 0)
    if step <= 0 {
        // A zero-duration catalog row has no slot grid; without this the
        // loop below would never advance.
        return c.JSON(http.StatusOK, echo.Map{
            "service_id": svc.ID,
            "date":       date,
            "slots":      slots,
        })
    }
    for start := open; !start.Add(step).After(closeAt); start = start.Add(step) {
        if !start.After(now) {
            continue // slot already started
        }
        key := booking.NewSlotKey(svc.ID, start)
        remaining, err := h.Eval.Remaining(ctx, key, svc)
        if err != nil {
            return c.JSON(http.StatusInternalServerError, echo.Map{"error": "failed to compute availability"})
        }
        if remaining < 0 {
            remaining = 0
        }
        slots = append(slots, echo.Map{
            "starts_at": start.Format(time.RFC3339),
            "ends_at":   start.Add(step).Format(time.RFC3339),
            "remaining": remaining,
            "available": remaining > 0,
        })
    }
    return c.JSON(http.StatusOK, echo.Map{
        "service_id": svc.ID,
        "date":       date,
        "slots":      slots,
    })
}
