package middleware

import (
    "net/http"

    "github.com/labstack/echo/v4"
)

// RequireRole gates a route group to callers whose JWT "role" claim is in
// the allowed set.  JWTAuth must run first; a missing or non-string role
// is rejected the same as a disallowed one.
func RequireRole(roles ...string) echo.MiddlewareFunc {
    allowed := make(map[string]bool, len(roles))
    for _, r := range roles {
        allowed[r] = true
    }
    return func(next echo.HandlerFunc) echo.HandlerFunc {
        return func(c echo.Context) error {
            role, ok := c.Get("role").(string)
            if !ok || !allowed[role] {
                return c.JSON(http.StatusForbidden, echo.Map{"error": "forbidden"})
            }
            return next(c)
        }
    }
}
