package handler

import (
	"context"
	"net/http"
	"strconv"

	"github.com/labstack/echo/v4"

	"github.com/turnosmed/api-turnos/internal/apperror"
	"github.com/turnosmed/api-turnos/internal/booking"
	"github.com/turnosmed/api-turnos/internal/middleware"
	"github.com/turnosmed/api-turnos/internal/model"
	"github.com/turnosmed/api-turnos/internal/repository"
)

// Booker is the slice of the booking service the HTTP layer needs.
// Tests substitute a stub.
type Booker interface {
	Crear(ctx context.Context, in booking.CrearInput) (*model.Turno, error)
	Cancelar(ctx context.Context, id uint64, userID, token string) (*model.Turno, error)
	Listar(ctx context.Context, userID, token string, f repository.ListFilter) ([]booking.TurnoEnriquecido, error)
	Disponibilidad(ctx context.Context, servicioID, fecha, token string) ([]string, error)
}

// TurnoHandler exposes the turnos endpoints.  All methods assume the
// JWTAuth middleware already verified the bearer token and stored the
// requester identity in the context.
type TurnoHandler struct {
	Bookings Booker
}

// NewTurnoHandler constructs a TurnoHandler.
func NewTurnoHandler(b Booker) *TurnoHandler {
	if b == nil {
		panic("nil booking service passed to NewTurnoHandler")
	}
	return &TurnoHandler{Bookings: b}
}

// identity pulls the verified requester id and raw token out of the
// request context.
func identity(c echo.Context) (userID, token string, err error) {
	userID, _ = c.Get(middleware.CtxUserID).(string)
	token, _ = c.Get(middleware.CtxToken).(string)
	if userID == "" {
		return "", "", apperror.ErrUnauthenticated
	}
	return userID, token, nil
}

// fail writes the coded error body for err.  Raw storage or transport
// errors arrive wrapped in INTERNAL and never leak their cause.
func fail(c echo.Context, err error) error {
	ae := apperror.From(err)
	return c.JSON(ae.Status, ae)
}

type crearReq struct {
	Servicio string `json:"servicio"`
	Fecha    string `json:"fecha"`
	Hora     string `json:"hora"`
	Notas    string `json:"notas"`
}

// Create handles POST /turnos.  It claims the requested slot for the
// authenticated requester and returns the reservation with 201.
func (h *TurnoHandler) Create(c echo.Context) error {
	userID, token, err := identity(c)
	if err != nil {
		return fail(c, err)
	}
	var req crearReq
	if err := c.Bind(&req); err != nil {
		return fail(c, apperror.ErrValidation.WithMessage("cuerpo de la solicitud inválido"))
	}
	turno, err := h.Bookings.Crear(c.Request().Context(), booking.CrearInput{
		Servicio: req.Servicio,
		Fecha:    req.Fecha,
		Hora:     req.Hora,
		Notas:    req.Notas,
		UserID:   userID,
		Token:    token,
	})
	if err != nil {
		return fail(c, err)
	}
	return c.JSON(http.StatusCreated, turno)
}

// Cancel handles PUT /turnos/:id/cancelar.  Only the owner may cancel;
// cancelling an already-cancelled turno fails with ALREADY_CANCELLED.
func (h *TurnoHandler) Cancel(c echo.Context) error {
	userID, token, err := identity(c)
	if err != nil {
		return fail(c, err)
	}
	id, err := strconv.ParseUint(c.Param("id"), 10, 64)
	if err != nil || id == 0 {
		return fail(c, apperror.ErrValidation.WithMessage("id de turno inválido"))
	}
	turno, err := h.Bookings.Cancelar(c.Request().Context(), id, userID, token)
	if err != nil {
		return fail(c, err)
	}
	return c.JSON(http.StatusOK, turno)
}

// List handles GET /turnos.  Results are scoped to the caller, ordered
// by (fecha, hora) and enriched with collaborator data where available.
func (h *TurnoHandler) List(c echo.Context) error {
	userID, token, err := identity(c)
	if err != nil {
		return fail(c, err)
	}
	f := repository.ListFilter{
		Fecha:    c.QueryParam("fecha"),
		Servicio: c.QueryParam("servicio"),
	}
	turnos, err := h.Bookings.Listar(c.Request().Context(), userID, token, f)
	if err != nil {
		return fail(c, err)
	}
	return c.JSON(http.StatusOK, turnos)
}

// Availability handles GET /turnos/disponibilidad.  It returns the slot
// labels still free for the given service and date.
func (h *TurnoHandler) Availability(c echo.Context) error {
	_, token, err := identity(c)
	if err != nil {
		return fail(c, err)
	}
	horarios, err := h.Bookings.Disponibilidad(
		c.Request().Context(),
		c.QueryParam("servicioId"),
		c.QueryParam("fecha"),
		token,
	)
	if err != nil {
		return fail(c, err)
	}
	return c.JSON(http.StatusOK, horarios)
}
