package middleware

import "github.com/labstack/echo/v4"

// Context keys set by JWTAuth.
const (
	ctxClientID = "client_id"
	ctxRole     = "role"
)

// ClientID returns the authenticated client, or "anon" before JWTAuth ran.
func ClientID(c echo.Context) string {
	if s, ok := c.Get(ctxClientID).(string); ok && s != "" {
		return s
	}
	return "anon"
}

// Role returns the role claim of the authenticated client.
func Role(c echo.Context) string {
	s, _ := c.Get(ctxRole).(string)
	return s
}
