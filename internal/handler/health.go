package handler

import (
	"net/http"

	"github.com/labstack/echo/v4"
)

// Health reports process liveness for load balancers and monitoring.
// It answers 200 without touching the database or any upstream.
func Health(c echo.Context) error {
	return c.JSON(http.StatusOK, map[string]string{
		"status":  "ok",
		"service": "api-4-turnos",
	})
}
