package model

import "time"

// Estado values for a turno.  A row is created directly in the
// "reservado" state when a slot is claimed and moves to "cancelado"
// when its owner cancels.  There is no transition out of "cancelado";
// re-booking a freed slot inserts a fresh row instead.
const (
	EstadoReservado = "reservado" // active claim on a slot
	EstadoCancelado = "cancelado" // released; the slot is claimable again
)

// Metadata carries the audit trail of a turno.  CreadoPor is always the
// requester who claimed the slot.  CanceladoPor is set only after a
// cancellation.  TokenUsed exists in the wire shape for compatibility with
// older clients but is never persisted; storing raw bearer tokens would
// leak credentials into the database.
type Metadata struct {
	CreadoPor          string    `json:"creadoPor"`            // turnos.creado_por
	CanceladoPor       *string   `json:"canceladoPor,omitempty"` // turnos.cancelado_por (nullable)
	UltimaModificacion time.Time `json:"ultimaModificacion"`   // turnos.ultima_modificacion
	TokenUsed          *string   `json:"tokenUsed,omitempty"`  // never persisted
}

// Turno records a requester's exclusive claim on a (servicio, fecha, hora)
// slot.  Servicio and Usuario are opaque identifiers owned by the external
// catalog and user services; this service stores and forwards them without
// inspecting their structure.
//
// Fields:
//  ID       – primary key identifier.
//  Servicio – external id of the booked service.
//  Usuario  – external id of the owning requester.
//  Fecha    – calendar day in "2006-01-02" form, no time component.
//  Hora     – slot label "HH:MM", half-hour aligned within business hours.
//  Estado   – reservado or cancelado.
//  Notas    – optional free text, at most 500 characters.
type Turno struct {
	ID        uint64    `json:"id"`              // turnos.id
	Servicio  string    `json:"servicio"`        // turnos.servicio
	Usuario   string    `json:"usuario"`         // turnos.usuario
	Fecha     string    `json:"fecha"`           // turnos.fecha (DATE)
	Hora      string    `json:"hora"`            // turnos.hora
	Estado    string    `json:"estado"`          // turnos.estado
	Notas     *string   `json:"notas,omitempty"` // turnos.notas (nullable)
	Metadata  Metadata  `json:"metadata"`
	CreatedAt time.Time `json:"createdAt"` // turnos.created_at
	UpdatedAt time.Time `json:"updatedAt"` // turnos.updated_at
}

// Activo reports whether the turno currently holds its slot.
func (t *Turno) Activo() bool { return t.Estado == EstadoReservado }
