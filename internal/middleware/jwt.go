// Package middleware holds the Echo middleware guarding the analysis API.
package middleware

import (
	"net/http"
	"strings"

	"github.com/golang-jwt/jwt/v5"
	"github.com/labstack/echo/v4"
)

// JWTAuth requires an HS256 bearer token signed with secret and stores its
// sub and role claims in the request context.
func JWTAuth(secret string) echo.MiddlewareFunc {
	keyFunc := func(*jwt.Token) (any, error) { return []byte(secret), nil }
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			auth := c.Request().Header.Get(echo.HeaderAuthorization)
			raw, ok := strings.CutPrefix(auth, "Bearer ")
			if !ok || raw == "" {
				return c.JSON(http.StatusUnauthorized, echo.Map{"error": "missing bearer token"})
			}

			claims := jwt.MapClaims{}
			tok, err := jwt.ParseWithClaims(raw, claims, keyFunc, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}))
			if err != nil || !tok.Valid {
				return c.JSON(http.StatusUnauthorized, echo.Map{"error": "invalid token"})
			}
			sub, err := claims.GetSubject()
			if err != nil || sub == "" {
				return c.JSON(http.StatusUnauthorized, echo.Map{"error": "invalid claims"})
			}

			c.Set(ctxClientID, sub)
			c.Set(ctxRole, claims["role"])
			return next(c)
		}
	}
}
