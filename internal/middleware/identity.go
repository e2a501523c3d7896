package middleware

// identity.go defines the context keys and accessors shared by the auth
// middleware, the rate limiter and the handlers.  JWTAuth stores the
// parsed claims under these keys; everything downstream goes through the
// typed getters instead of touching c.Get directly.

import (
	"strconv"

	"github.com/labstack/echo/v4"
)

// Roles carried in the JWT "role" claim.
const (
	RolePassenger = "PASSENGER"
	RoleOperator  = "OPERATOR"
)

const (
	ctxUserID = "user_id"
	ctxRole   = "role"
)

// UserID returns the authenticated user's id, or 0 when the request is
// unauthenticated.
func UserID(c echo.Context) uint64 {
	if v, ok := c.Get(ctxUserID).(uint64); ok {
		return v
	}
	return 0
}

// Role returns the authenticated user's role, or "" when unauthenticated.
func Role(c echo.Context) string {
	if v, ok := c.Get(ctxRole).(string); ok {
		return v
	}
	return ""
}

// currentUserID renders the caller's identity for rate-limit keys.
// Anonymous requests share the "anon" bucket per IP.
func currentUserID(c echo.Context) string {
	if id := UserID(c); id != 0 {
		return strconv.FormatUint(id, 10)
	}
	return "anon"
}
