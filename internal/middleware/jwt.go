package middleware // declare the middleware package; contains reusable HTTP middleware functions

import (
	"fmt"
	"strings"

	"github.com/golang-jwt/jwt/v5" // JWT library for parsing and validating tokens
	"github.com/labstack/echo/v4"  // Echo framework used for defining middleware and handlers

	"github.com/turnosmed/api-turnos/internal/apperror"
)

// Context keys populated by JWTAuth for downstream handlers.
const (
	CtxUserID = "user_id" // requester id from the token's "id" claim
	CtxRol    = "rol"     // role from the token's "rol" claim
	CtxToken  = "token"   // raw bearer token, forwarded to collaborators
)

// JWTAuth returns an Echo middleware that validates a Bearer access
// token and injects the requester id, role and the raw token into the
// request context.  Tokens are issued by the external auth service;
// this service only verifies the HS256 signature with the shared
// secret.  The same verification guards the live stream at connection
// time, so a listener is authenticated once, before any subscription.
func JWTAuth(secret string) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			userID, rol, raw, err := VerifyRequest(c, secret)
			if err != nil {
				ae := apperror.From(err)
				return c.JSON(ae.Status, ae)
			}
			c.Set(CtxUserID, userID)
			c.Set(CtxRol, rol)
			c.Set(CtxToken, raw)
			return next(c)
		}
	}
}

// VerifyRequest extracts and verifies the bearer token of a request,
// returning the requester id, role and the raw token.  It is used by
// both the JWTAuth middleware and the stream handler (which must
// authenticate before upgrading to an event stream).
func VerifyRequest(c echo.Context, secret string) (userID, rol, raw string, err error) {
	auth := c.Request().Header.Get("Authorization")
	if !strings.HasPrefix(auth, "Bearer ") {
		// The stream endpoint cannot set headers from EventSource;
		// accept the token as a query parameter there.
		if qt := c.QueryParam("token"); qt != "" {
			auth = "Bearer " + qt
		} else {
			return "", "", "", apperror.ErrUnauthenticated.WithMessage("token requerido")
		}
	}
	raw = strings.TrimPrefix(auth, "Bearer ")

	tok, err := jwt.Parse(raw, func(t *jwt.Token) (interface{}, error) {
		// Only HMAC is acceptable; reject any other signing method.
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method %v", t.Header["alg"])
		}
		return []byte(secret), nil
	})
	if err != nil || !tok.Valid {
		return "", "", "", apperror.ErrUnauthenticated.WithErr(err)
	}
	claims, ok := tok.Claims.(jwt.MapClaims)
	if !ok {
		return "", "", "", apperror.ErrUnauthenticated.WithMessage("claims inválidos")
	}
	// The auth service issues tokens with "id" and "rol" claims; both
	// arrive as strings.
	userID, _ = claims["id"].(string)
	rol, _ = claims["rol"].(string)
	if userID == "" {
		return "", "", "", apperror.ErrUnauthenticated.WithMessage("token sin identidad")
	}
	return userID, rol, raw, nil
}
