package middleware // middleware provides shared request processing for handlers

import (
	"net/http" // http package defines standard HTTP status codes

	"github.com/labstack/echo/v4" // echo provides middleware chaining and context

	"github.com/turnosmed/api-turnos/internal/apperror"
)

// RequireRol returns a middleware function that enforces that the
// authenticated user carries one of the specified roles.  The accepted
// values correspond to the JWT's "rol" claim as issued by the auth
// service ("cliente", "admin").  It assumes JWTAuth already stored the
// role in the context.
func RequireRol(roles ...string) echo.MiddlewareFunc {
	allowed := make(map[string]bool, len(roles))
	for _, r := range roles {
		allowed[r] = true
	}
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			rol, ok := c.Get(CtxRol).(string)
			if !ok || !allowed[rol] {
				return c.JSON(http.StatusForbidden, apperror.ErrForbidden)
			}
			return next(c)
		}
	}
}
