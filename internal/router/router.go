package router // package router defines how HTTP routes are registered for the API

import (
    "github.com/labstack/echo/v4" // import the Echo web framework to handle routing

    "github.com/mariiahub/booking-core/internal/handler"    // import the handlers that implement business logic
    "github.com/mariiahub/booking-core/internal/middleware" // import middleware for JWT authentication and role enforcement
)

// RegisterRoutes registers routes that do not require authentication on the
// provided Echo instance.  Currently it exposes only a health check.
func RegisterRoutes(e *echo.Echo) {
    // Map the GET request at path "/healthz" to the Health handler.  This
    // endpoint can be used by load balancers or monitoring systems to verify
    // that the service is up and running.
    e.GET("/healthz", handler.Health)
}

// RegisterPublic registers unauthenticated browse endpoints on the provided
// Echo instance.  The catalog handler exposes the list of bookable services
// and per-day availability.  These routes apply no JWT or role middleware and
// are intended for guest users; the extra middlewares (response cache, rate
// limiting) are optional and skipped when nil.
func RegisterPublic(e *echo.Echo, cat *handler.CatalogHandler, extra ...echo.MiddlewareFunc) {
    mws := make([]echo.MiddlewareFunc, 0, len(extra))
    for _, mw := range extra {
        if mw != nil {
            mws = append(mws, mw)
        }
    }
    g := e.Group("/v1", mws...)
    // Expose list of all active services
    g.GET("/services", cat.ListServices)
    // Per-day slot availability for one service
    g.GET("/services/:id/availability", cat.GetAvailability)
}

// RegisterBooking registers the authenticated booking surface under /v1.
// All routes require a valid JWT with the CUSTOMER or ADMIN role.  The
// hold endpoints additionally require the X-Session-ID header, enforced
// inside the handlers because the session is an application concept, not
// an authentication one.
func RegisterBooking(e *echo.Echo, h *handler.HoldHandler, b *handler.BookingHandler, w *handler.WaitlistHandler, jwtSecret string) {
    g := e.Group(
        "/v1",
        middleware.JWTAuth(jwtSecret),
        middleware.RequireRole("CUSTOMER", "ADMIN"),
    )

    // Checkout flow: place, keep alive, abandon and convert holds.
    g.POST("/holds", h.CreateHold)
    g.DELETE("/holds/:id", h.ReleaseHold)
    g.POST("/holds/:id/renew", h.RenewHold)
    g.POST("/holds/:id/convert", h.ConvertHold)

    // Confirmed bookings of the current user.
    g.GET("/bookings", b.ListBookings)
    g.GET("/bookings/:id", b.GetBooking)
    g.DELETE("/bookings/:id", b.CancelBooking)

    // Waitlist entries of the current user.
    g.POST("/waitlist", w.JoinWaitlist)
    g.GET("/waitlist/:id", w.GetWaitlistEntry)
    g.DELETE("/waitlist/:id", w.CancelWaitlistEntry)
}
