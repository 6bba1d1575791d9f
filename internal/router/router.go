// Package router registers the HTTP routes.
package router

import (
	"github.com/labstack/echo/v4"

	"github.com/iliyamo/rental-analytics/internal/handler"
	"github.com/iliyamo/rental-analytics/internal/middleware"
	"github.com/iliyamo/rental-analytics/internal/utils"
)

// RegisterRoutes registers routes that need no authentication.
func RegisterRoutes(e *echo.Echo) {
	e.GET("/healthz", handler.Health)
}

// RegisterAuth registers token issuing under /v1/auth.
func RegisterAuth(e *echo.Echo, a *handler.AuthHandler) {
	e.POST("/v1/auth/token", a.Token)
}

// RegisterAnalyses registers the analysis endpoints behind JWT auth and the
// ANALYST or ADMIN role. extra runs after the auth checks, so the rate
// limiter and cache can key on the client.
func RegisterAnalyses(e *echo.Echo, h *handler.AnalysisHandler, jwtSecret string, extra ...echo.MiddlewareFunc) {
	mws := append([]echo.MiddlewareFunc{
		middleware.JWTAuth(jwtSecret),
		middleware.RequireRole(utils.RoleAnalyst, "ADMIN"),
	}, extra...)
	g := e.Group("/v1/analyses", mws...)
	g.GET("", h.List)
	g.POST("/run", h.RunAll)
	g.GET("/:name", h.Run)
}
