package handler

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/labstack/echo/v4"

	"github.com/turnosmed/api-turnos/internal/apperror"
	"github.com/turnosmed/api-turnos/internal/booking"
	"github.com/turnosmed/api-turnos/internal/middleware"
	"github.com/turnosmed/api-turnos/internal/model"
	"github.com/turnosmed/api-turnos/internal/repository"
)

// stubBooker records the last call and returns canned results.
type stubBooker struct {
	crearIn   booking.CrearInput
	cancelID  uint64
	listF     repository.ListFilter
	dispoSvc  string
	dispoDate string

	turno    *model.Turno
	turnos   []booking.TurnoEnriquecido
	horarios []string
	err      error
}

func (s *stubBooker) Crear(_ context.Context, in booking.CrearInput) (*model.Turno, error) {
	s.crearIn = in
	return s.turno, s.err
}

func (s *stubBooker) Cancelar(_ context.Context, id uint64, _, _ string) (*model.Turno, error) {
	s.cancelID = id
	return s.turno, s.err
}

func (s *stubBooker) Listar(_ context.Context, _, _ string, f repository.ListFilter) ([]booking.TurnoEnriquecido, error) {
	s.listF = f
	return s.turnos, s.err
}

func (s *stubBooker) Disponibilidad(_ context.Context, servicioID, fecha, _ string) ([]string, error) {
	s.dispoSvc = servicioID
	s.dispoDate = fecha
	return s.horarios, s.err
}

// newCtx builds an echo context with the identity values the JWT
// middleware would have stored.
func newCtx(t *testing.T, method, target, body string) (echo.Context, *httptest.ResponseRecorder) {
	t.Helper()
	req := httptest.NewRequest(method, target, strings.NewReader(body))
	if body != "" {
		req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	}
	rec := httptest.NewRecorder()
	c := echo.New().NewContext(req, rec)
	c.Set(middleware.CtxUserID, "u1")
	c.Set(middleware.CtxRol, "cliente")
	c.Set(middleware.CtxToken, "tok-u1")
	return c, rec
}

func decodeErr(t *testing.T, rec *httptest.ResponseRecorder) string {
	t.Helper()
	var body struct {
		Code string `json:"code"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
		t.Fatalf("decode error body: %v", err)
	}
	return body.Code
}

func TestCreateReturns201(t *testing.T) {
	sb := &stubBooker{turno: &model.Turno{ID: 7, Servicio: "consulta-general", Usuario: "u1", Fecha: "2025-06-02", Hora: "09:00", Estado: model.EstadoReservado}}
	h := NewTurnoHandler(sb)

	c, rec := newCtx(t, http.MethodPost, "/turnos",
		`{"servicio":"consulta-general","fecha":"2025-06-02","hora":"09:00","notas":"primera vez"}`)
	if err := h.Create(c); err != nil {
		t.Fatalf("Create: %v", err)
	}
	if rec.Code != http.StatusCreated {
		t.Fatalf("status = %d, want 201", rec.Code)
	}
	if sb.crearIn.UserID != "u1" || sb.crearIn.Token != "tok-u1" {
		t.Fatalf("identity not forwarded: %+v", sb.crearIn)
	}
	if sb.crearIn.Notas != "primera vez" {
		t.Fatalf("notas = %q", sb.crearIn.Notas)
	}
	var got model.Turno
	if err := json.Unmarshal(rec.Body.Bytes(), &got); err != nil {
		t.Fatalf("decode body: %v", err)
	}
	if got.ID != 7 || got.Estado != model.EstadoReservado {
		t.Fatalf("unexpected body: %+v", got)
	}
}

func TestCreateMapsConflict(t *testing.T) {
	sb := &stubBooker{err: apperror.ErrSlotConflict}
	h := NewTurnoHandler(sb)

	c, rec := newCtx(t, http.MethodPost, "/turnos",
		`{"servicio":"consulta-general","fecha":"2025-06-02","hora":"09:00"}`)
	if err := h.Create(c); err != nil {
		t.Fatalf("Create: %v", err)
	}
	if rec.Code != http.StatusConflict {
		t.Fatalf("status = %d, want 409", rec.Code)
	}
	if code := decodeErr(t, rec); code != "SLOT_CONFLICT" {
		t.Fatalf("code = %q", code)
	}
}

func TestCreateRejectsMalformedBody(t *testing.T) {
	sb := &stubBooker{}
	h := NewTurnoHandler(sb)

	c, rec := newCtx(t, http.MethodPost, "/turnos", `{"servicio":`)
	if err := h.Create(c); err != nil {
		t.Fatalf("Create: %v", err)
	}
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", rec.Code)
	}
	if code := decodeErr(t, rec); code != "VALIDATION_ERROR" {
		t.Fatalf("code = %q", code)
	}
}

func TestCreateWithoutIdentity(t *testing.T) {
	h := NewTurnoHandler(&stubBooker{})
	req := httptest.NewRequest(http.MethodPost, "/turnos", strings.NewReader(`{}`))
	rec := httptest.NewRecorder()
	c := echo.New().NewContext(req, rec)

	if err := h.Create(c); err != nil {
		t.Fatalf("Create: %v", err)
	}
	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("status = %d, want 401", rec.Code)
	}
}

func TestCancelParsesID(t *testing.T) {
	sb := &stubBooker{turno: &model.Turno{ID: 42, Estado: model.EstadoCancelado}}
	h := NewTurnoHandler(sb)

	c, rec := newCtx(t, http.MethodPut, "/turnos/42/cancelar", "")
	c.SetParamNames("id")
	c.SetParamValues("42")
	if err := h.Cancel(c); err != nil {
		t.Fatalf("Cancel: %v", err)
	}
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
	if sb.cancelID != 42 {
		t.Fatalf("cancelID = %d", sb.cancelID)
	}
}

func TestCancelRejectsBadID(t *testing.T) {
	h := NewTurnoHandler(&stubBooker{})
	for _, raw := range []string{"abc", "0", "-3", ""} {
		c, rec := newCtx(t, http.MethodPut, "/turnos/"+raw+"/cancelar", "")
		c.SetParamNames("id")
		c.SetParamValues(raw)
		if err := h.Cancel(c); err != nil {
			t.Fatalf("Cancel(%q): %v", raw, err)
		}
		if rec.Code != http.StatusBadRequest {
			t.Fatalf("Cancel(%q) status = %d, want 400", raw, rec.Code)
		}
	}
}

func TestCancelMapsNotFoundAndOwnership(t *testing.T) {
	cases := []struct {
		err    error
		status int
		code   string
	}{
		{apperror.ErrTurnoNotFound, http.StatusNotFound, "NOT_FOUND"},
		{apperror.ErrForbidden, http.StatusForbidden, "FORBIDDEN"},
		{apperror.ErrAlreadyCancelled, http.StatusConflict, "ALREADY_CANCELLED"},
		{errors.New("mysql gone"), http.StatusInternalServerError, "INTERNAL"},
	}
	for _, tc := range cases {
		h := NewTurnoHandler(&stubBooker{err: tc.err})
		c, rec := newCtx(t, http.MethodPut, "/turnos/9/cancelar", "")
		c.SetParamNames("id")
		c.SetParamValues("9")
		if err := h.Cancel(c); err != nil {
			t.Fatalf("Cancel: %v", err)
		}
		if rec.Code != tc.status {
			t.Fatalf("%v: status = %d, want %d", tc.err, rec.Code, tc.status)
		}
		if code := decodeErr(t, rec); code != tc.code {
			t.Fatalf("%v: code = %q, want %q", tc.err, code, tc.code)
		}
	}
}

func TestListForwardsFilters(t *testing.T) {
	sb := &stubBooker{turnos: []booking.TurnoEnriquecido{}}
	h := NewTurnoHandler(sb)

	c, rec := newCtx(t, http.MethodGet, "/turnos?fecha=2025-06-02&servicio=odontologia", "")
	if err := h.List(c); err != nil {
		t.Fatalf("List: %v", err)
	}
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
	if sb.listF.Fecha != "2025-06-02" || sb.listF.Servicio != "odontologia" {
		t.Fatalf("filter = %+v", sb.listF)
	}
	if strings.TrimSpace(rec.Body.String()) != "[]" {
		t.Fatalf("body = %q, want empty array", rec.Body.String())
	}
}

func TestAvailabilityForwardsParams(t *testing.T) {
	sb := &stubBooker{horarios: []string{"08:00", "08:30"}}
	h := NewTurnoHandler(sb)

	c, rec := newCtx(t, http.MethodGet, "/turnos/disponibilidad?servicioId=consulta-general&fecha=2025-06-02", "")
	if err := h.Availability(c); err != nil {
		t.Fatalf("Availability: %v", err)
	}
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
	if sb.dispoSvc != "consulta-general" || sb.dispoDate != "2025-06-02" {
		t.Fatalf("params = %q %q", sb.dispoSvc, sb.dispoDate)
	}
	var got []string
	if err := json.Unmarshal(rec.Body.Bytes(), &got); err != nil {
		t.Fatalf("decode body: %v", err)
	}
	if len(got) != 2 || got[0] != "08:00" {
		t.Fatalf("horarios = %v", got)
	}
}
