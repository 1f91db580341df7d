package middleware

// identity.go provides the user identity helper shared by middleware key
// builders. JWTAuth stores the token's sub claim under "user_id" without
// normalising its type, so the helper accepts the scalar forms a decoded
// claim can take.

import (
    "strconv"

    "github.com/labstack/echo/v4"
)

// userID returns a string form of the authenticated user's ID from the Echo
// context. Unauthenticated requests return "anon" so they share one bucket
// per key dimension.
func userID(c echo.Context) string {
    v := c.Get("user_id")
    if v == nil {
        return "anon"
    }
    switch t := v.(type) {
    case string:
        if t != "" {
            return t
        }
    case float64:
        // JSON numbers decode as float64.
        return strconv.FormatUint(uint64(t), 10)
    case uint64:
        return strconv.FormatUint(t, 10)
    case int64:
        return strconv.FormatInt(t, 10)
    case int:
        return strconv.Itoa(t)
    }
    return "anon"
}
