// Package handler implements the HTTP endpoints of the analytics API.
package handler

import (
	"net/http"

	"github.com/labstack/echo/v4"
)

// Health reports that the process is serving.
func Health(c echo.Context) error {
	return c.String(http.StatusOK, "ok")
}
