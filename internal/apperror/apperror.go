// Package apperror defines the coded errors surfaced by the turnos API.
// Every failure a client can observe carries a stable machine-readable
// code plus a human message; handlers translate the code into an HTTP
// status and clients are expected to branch on the code, never on the
// message text.
package apperror

import (
	"errors"
	"fmt"
	"net/http"
)

// Error is a tagged application error.  Code is stable and machine
// readable, Message is for humans, Status is the HTTP status the error
// maps to, and Err optionally wraps an underlying cause which is kept
// out of the JSON body.
type Error struct {
	Code    string `json:"code"`
	Message string `json:"error"`
	Status  int    `json:"-"`
	Err     error  `json:"-"`
}

// Error implements the error interface.
func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Code, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// Unwrap exposes the underlying cause for errors.Is / errors.As.
func (e *Error) Unwrap() error { return e.Err }

// Is matches two application errors by code so that sentinel values
// below work with errors.Is even after WithErr/WithMessage copies.
func (e *Error) Is(target error) bool {
	var ae *Error
	if errors.As(target, &ae) {
		return e.Code == ae.Code
	}
	return false
}

// WithErr returns a copy of e wrapping the given cause.
func (e *Error) WithErr(err error) *Error {
	return &Error{Code: e.Code, Message: e.Message, Status: e.Status, Err: err}
}

// WithMessage returns a copy of e with a more specific human message.
// The code and status are preserved so client branching is unaffected.
func (e *Error) WithMessage(msg string) *Error {
	return &Error{Code: e.Code, Message: msg, Status: e.Status, Err: e.Err}
}

// New builds an ad hoc coded error.  Prefer the predefined values; New
// exists for messages that must carry request-specific detail.
func New(code, message string, status int) *Error {
	return &Error{Code: code, Message: message, Status: status}
}

// Predefined errors enumerating the full taxonomy.
var (
	// ErrUnauthenticated covers missing, malformed, invalid or expired
	// bearer tokens.
	ErrUnauthenticated = &Error{Code: "UNAUTHENTICATED", Message: "token inválido o ausente", Status: http.StatusUnauthorized}

	// ErrForbidden is returned when a valid requester attempts to act on
	// a turno owned by someone else.
	ErrForbidden = &Error{Code: "FORBIDDEN", Message: "no autorizado para operar sobre este turno", Status: http.StatusForbidden}

	// ErrServicioNotFound indicates the referenced service id does not
	// exist in the external catalog.
	ErrServicioNotFound = &Error{Code: "SERVICE_NOT_FOUND", Message: "servicio no encontrado", Status: http.StatusNotFound}

	// ErrUsuarioNotFound indicates the requester id does not exist in the
	// external user directory.
	ErrUsuarioNotFound = &Error{Code: "USER_NOT_FOUND", Message: "usuario no encontrado", Status: http.StatusNotFound}

	// ErrTurnoNotFound indicates no turno exists with the given id.
	ErrTurnoNotFound = &Error{Code: "NOT_FOUND", Message: "turno no encontrado", Status: http.StatusNotFound}

	// ErrSlotConflict is returned when a claim loses the race for a slot.
	// The client should re-fetch availability and retry with another slot.
	ErrSlotConflict = &Error{Code: "SLOT_CONFLICT", Message: "el turno ya está reservado", Status: http.StatusConflict}

	// ErrAlreadyCancelled is returned when cancelling a turno that is not
	// active anymore.  Failing loudly here surfaces client bugs that a
	// silent no-op would hide.
	ErrAlreadyCancelled = &Error{Code: "ALREADY_CANCELLED", Message: "el turno ya fue cancelado", Status: http.StatusConflict}

	// ErrValidation covers missing required fields and malformed dates,
	// times or notes.
	ErrValidation = &Error{Code: "VALIDATION_ERROR", Message: "datos de entrada inválidos", Status: http.StatusBadRequest}

	// ErrUpstream is returned when an external collaborator times out or
	// fails; the client may retry with backoff.
	ErrUpstream = &Error{Code: "UPSTREAM_UNAVAILABLE", Message: "servicio externo no disponible", Status: http.StatusBadGateway}

	// ErrInternal is the fallback for unexpected failures.
	ErrInternal = &Error{Code: "INTERNAL", Message: "error interno", Status: http.StatusInternalServerError}
)

// From extracts the *Error from err, falling back to ErrInternal wrapping
// the original so no raw storage or transport error leaks to clients.
func From(err error) *Error {
	var ae *Error
	if errors.As(err, &ae) {
		return ae
	}
	return ErrInternal.WithErr(err)
}
