// Package booking orchestrates turno creation, cancellation and
// listing.  It validates referenced entities against the external
// collaborators, delegates the atomic slot claim to the reservation
// store, and publishes a change event after every successful mutation.
// The claim commit is the single atomic boundary: any precondition
// failure before it leaves no partial state behind.
package booking

import (
	"context"
	"errors"
	"log"
	"strings"
	"sync"
	"time"

	"github.com/turnosmed/api-turnos/internal/apperror"
	"github.com/turnosmed/api-turnos/internal/client"
	"github.com/turnosmed/api-turnos/internal/model"
	"github.com/turnosmed/api-turnos/internal/notify"
	"github.com/turnosmed/api-turnos/internal/queue"
	"github.com/turnosmed/api-turnos/internal/repository"
	"github.com/turnosmed/api-turnos/internal/slots"
)

// maxNotasLen bounds the free-text notes field.
const maxNotasLen = 500

// enrichConcurrency caps how many turnos are enriched at once, so a
// long listing does not open an unbounded burst of collaborator calls.
const enrichConcurrency = 8

// Store is the reservation store contract the service depends on.  The
// MySQL TurnoRepo satisfies it; tests substitute an in-memory fake.
type Store interface {
	FindActive(ctx context.Context, servicio, fecha, hora string) (*model.Turno, error)
	Claim(ctx context.Context, p repository.ClaimParams) (*model.Turno, error)
	GetByID(ctx context.Context, id uint64) (*model.Turno, error)
	Release(ctx context.Context, id uint64, usuario string) (*model.Turno, error)
	ListByUser(ctx context.Context, usuario string, f repository.ListFilter) ([]model.Turno, error)
	ListReservedTimes(ctx context.Context, servicio, fecha string) ([]string, error)
}

// Catalog looks up services in the external catalog.
type Catalog interface {
	GetServicio(ctx context.Context, id, token string) (*client.Servicio, error)
}

// Users looks up requesters in the external user directory.
type Users interface {
	GetUsuario(ctx context.Context, id, token string) (*client.Usuario, error)
}

// Service wires the reservation store, the external collaborators and
// the notification emitter.  Now is the wall clock; tests pin it.
type Service struct {
	store   Store
	catalog Catalog
	users   Users
	emitter notify.Emitter
	Now     func() time.Time
}

// NewService constructs a booking Service.  All dependencies must be
// non-nil; pass notify.Noop{} when no transport is configured.
func NewService(store Store, catalog Catalog, users Users, emitter notify.Emitter) *Service {
	if store == nil || catalog == nil || users == nil || emitter == nil {
		panic("nil dependency passed to booking.NewService")
	}
	return &Service{store: store, catalog: catalog, users: users, emitter: emitter, Now: time.Now}
}

// CrearInput carries the request to claim a slot.  UserID and Token come
// from the verified bearer token, never from the request body.
type CrearInput struct {
	Servicio string
	Fecha    string
	Hora     string
	Notas    string
	UserID   string
	Token    string
}

// Crear claims (servicio, fecha, hora) for the requester.  Precondition
// order follows the booking contract: input validation, service
// existence, requester existence, availability pre-check, atomic claim.
// The pre-check gives fast feedback; correctness under concurrency rests
// solely on the store's atomic Claim.
func (s *Service) Crear(ctx context.Context, in CrearInput) (*model.Turno, error) {
	if err := s.validateCrear(&in); err != nil {
		return nil, err
	}
	if _, err := s.catalog.GetServicio(ctx, in.Servicio, in.Token); err != nil {
		return nil, err
	}
	if _, err := s.users.GetUsuario(ctx, in.UserID, in.Token); err != nil {
		return nil, err
	}

	existing, err := s.store.FindActive(ctx, in.Servicio, in.Fecha, in.Hora)
	if err != nil {
		return nil, apperror.ErrInternal.WithErr(err)
	}
	if existing != nil {
		return nil, apperror.ErrSlotConflict
	}

	var notas *string
	if in.Notas != "" {
		notas = &in.Notas
	}
	turno, err := s.store.Claim(ctx, repository.ClaimParams{
		Servicio: in.Servicio,
		Usuario:  in.UserID,
		Fecha:    in.Fecha,
		Hora:     in.Hora,
		Notas:    notas,
	})
	if err != nil {
		if errors.Is(err, repository.ErrSlotTaken) {
			return nil, apperror.ErrSlotConflict
		}
		return nil, apperror.ErrInternal.WithErr(err)
	}

	s.publish(ctx, queue.TopicTurnoCreated, *turno)
	return turno, nil
}

// validateCrear enforces the input shape: required fields, a calendar
// day that is today or later, a well-formed template slot label that has
// not already passed today, and bounded notes.
func (s *Service) validateCrear(in *CrearInput) error {
	in.Servicio = strings.TrimSpace(in.Servicio)
	in.Fecha = strings.TrimSpace(in.Fecha)
	in.Hora = strings.TrimSpace(in.Hora)
	in.Notas = strings.TrimSpace(in.Notas)
	if in.Servicio == "" || in.Fecha == "" || in.Hora == "" {
		return apperror.ErrValidation.WithMessage("faltan campos requeridos: servicio, fecha, hora")
	}
	fecha, _, err := slots.CanonicalDate(in.Fecha)
	if err != nil {
		return apperror.ErrValidation.WithMessage("fecha inválida, formato esperado AAAA-MM-DD")
	}
	// Store the canonical spelling; index keys and availability compare
	// dates as strings.
	in.Fecha = fecha
	now := s.Now()
	hoy := now.Format(slots.DateLayout)
	if in.Fecha < hoy {
		return apperror.ErrValidation.WithMessage("la fecha debe ser hoy o en el futuro")
	}
	if !slots.ValidLabel(in.Hora) {
		return apperror.ErrValidation.WithMessage("horario laboral: 08:00 a 19:30 en intervalos de 30 minutos")
	}
	if in.Fecha == hoy && in.Hora <= now.Format(slots.HoraLayout) {
		return apperror.ErrValidation.WithMessage("el horario solicitado ya pasó")
	}
	if len(in.Notas) > maxNotasLen {
		return apperror.ErrValidation.WithMessage("las notas no deben exceder 500 caracteres")
	}
	return nil
}

// Cancelar releases the turno on behalf of the requester.  Ownership and
// state checks happen inside the store's transaction; this layer only
// translates sentinels and publishes the update.
func (s *Service) Cancelar(ctx context.Context, id uint64, userID, token string) (*model.Turno, error) {
	turno, err := s.store.Release(ctx, id, userID)
	if err != nil {
		switch {
		case errors.Is(err, repository.ErrTurnoNotFound):
			return nil, apperror.ErrTurnoNotFound
		case errors.Is(err, repository.ErrNotOwner):
			return nil, apperror.ErrForbidden
		case errors.Is(err, repository.ErrAlreadyCancelled):
			return nil, apperror.ErrAlreadyCancelled
		default:
			return nil, apperror.ErrInternal.WithErr(err)
		}
	}

	s.publish(ctx, queue.TopicTurnoUpdated, *turno)
	return turno, nil
}

// TurnoEnriquecido decorates a turno with denormalized collaborator
// data.  The detail fields are nil when the corresponding lookup failed;
// the raw ids in the embedded turno always remain usable.
type TurnoEnriquecido struct {
	model.Turno
	ServicioDetalle *client.Servicio `json:"servicioDetalle,omitempty"`
	UsuarioDetalle  *client.Usuario  `json:"usuarioDetalle,omitempty"`
}

// Listar returns the requester's active turnos ordered by (fecha, hora),
// each enriched with service and user details fetched in parallel.  A
// failed enrichment degrades that record to raw ids instead of failing
// the whole list.
func (s *Service) Listar(ctx context.Context, userID, token string, f repository.ListFilter) ([]TurnoEnriquecido, error) {
	if f.Fecha != "" {
		fecha, _, err := slots.CanonicalDate(f.Fecha)
		if err != nil {
			return nil, apperror.ErrValidation.WithMessage("fecha inválida, formato esperado AAAA-MM-DD")
		}
		f.Fecha = fecha
	}
	turnos, err := s.store.ListByUser(ctx, userID, f)
	if err != nil {
		return nil, apperror.ErrInternal.WithErr(err)
	}

	out := make([]TurnoEnriquecido, len(turnos))
	var wg sync.WaitGroup
	sem := make(chan struct{}, enrichConcurrency)
	for i, t := range turnos {
		wg.Add(1)
		sem <- struct{}{}
		go func(i int, t model.Turno) {
			defer wg.Done()
			defer func() { <-sem }()
			out[i] = s.enrich(ctx, t, token)
		}(i, t)
	}
	wg.Wait()
	return out, nil
}

// enrich fetches both collaborator records concurrently.  Errors are
// logged and swallowed: enrichment is best effort by design.
func (s *Service) enrich(ctx context.Context, t model.Turno, token string) TurnoEnriquecido {
	e := TurnoEnriquecido{Turno: t}
	var wg sync.WaitGroup
	wg.Add(2)
	go func() {
		defer wg.Done()
		svc, err := s.catalog.GetServicio(ctx, t.Servicio, token)
		if err != nil {
			log.Printf("booking: enrich servicio %s for turno %d failed: %v", t.Servicio, t.ID, err)
			return
		}
		e.ServicioDetalle = svc
	}()
	go func() {
		defer wg.Done()
		u, err := s.users.GetUsuario(ctx, t.Usuario, token)
		if err != nil {
			log.Printf("booking: enrich usuario %s for turno %d failed: %v", t.Usuario, t.ID, err)
			return
		}
		e.UsuarioDetalle = u
	}()
	wg.Wait()
	return e
}

// Disponibilidad verifies the service exists and returns the free slot
// labels for the given day: the fixed template minus reserved labels,
// and minus already-started slots when the day is today.
func (s *Service) Disponibilidad(ctx context.Context, servicioID, fecha, token string) ([]string, error) {
	servicioID = strings.TrimSpace(servicioID)
	fecha = strings.TrimSpace(fecha)
	if servicioID == "" || fecha == "" {
		return nil, apperror.ErrValidation.WithMessage("faltan parámetros requeridos: servicioId, fecha")
	}
	fecha, _, err := slots.CanonicalDate(fecha)
	if err != nil {
		return nil, apperror.ErrValidation.WithMessage("fecha inválida, formato esperado AAAA-MM-DD")
	}
	if _, err := s.catalog.GetServicio(ctx, servicioID, token); err != nil {
		return nil, err
	}
	reserved, err := s.store.ListReservedTimes(ctx, servicioID, fecha)
	if err != nil {
		return nil, apperror.ErrInternal.WithErr(err)
	}
	return slots.Available(reserved, fecha, s.Now()), nil
}

// publish broadcasts a change event.  Delivery is fire-and-forget: a
// transport failure is logged inside notify and never fails the booking
// that triggered it.
func (s *Service) publish(ctx context.Context, topic string, t model.Turno) {
	if err := s.emitter.Publish(ctx, topic, t); err != nil {
		log.Printf("booking: publish %s for turno %d failed: %v", topic, t.ID, err)
	}
}
