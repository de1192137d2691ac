package router

import (
	"github.com/labstack/echo/v4"

	"github.com/turnosmed/api-turnos/internal/handler"
	"github.com/turnosmed/api-turnos/internal/middleware"
)

// RegisterRoutes registers routes that do not require authentication on the
// provided Echo instance.  Currently it exposes only a health check.
func RegisterRoutes(e *echo.Echo) {
	// Load balancers and monitoring probe this endpoint to verify the
	// service is up.
	e.GET("/healthz", handler.Health)
}

// RegisterTurnos registers the turnos API under the /api-4-turnos prefix.
// Every endpoint in the group runs the JWTAuth middleware first, so the
// handlers can rely on the requester identity being present in the
// context.  The rate limiter may be nil when Redis is unavailable, in
// which case requests pass through unlimited.
func RegisterTurnos(e *echo.Echo, t *handler.TurnoHandler, s *handler.StreamHandler, jwtSecret string, limiter, availCache echo.MiddlewareFunc) {
	g := e.Group("/api-4-turnos")
	g.Use(middleware.JWTAuth(jwtSecret))
	g.Use(middleware.RequireRol("cliente", "admin"))
	if limiter != nil {
		g.Use(limiter)
	}

	// Reserve a slot for the authenticated requester.
	g.POST("/turnos", t.Create)
	// Cancel an owned reservation.  The slot becomes available again.
	g.PUT("/turnos/:id/cancelar", t.Cancel)
	// List the requester's reservations, newest dates last, optionally
	// filtered by ?fecha= and ?servicio=.
	g.GET("/turnos", t.List)
	// Free slot labels for ?servicioId= and ?fecha=.  A short-lived
	// Redis cache absorbs polling; the claim path stays authoritative.
	if availCache != nil {
		g.GET("/turnos/disponibilidad", t.Availability, availCache)
	} else {
		g.GET("/turnos/disponibilidad", t.Availability)
	}
	// Live feed of reservation events over SSE.  EventSource clients
	// cannot set headers, so JWTAuth also accepts ?token= here.
	g.GET("/turnos/stream", s.Events)
}
