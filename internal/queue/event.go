// Package queue defines the event envelope exchanged over the message
// broker and the live channel, plus the background consumer feeding the
// booking audit log.
package queue

import "github.com/turnosmed/api-turnos/internal/model"

// Topics emitted by the booking service.  The live stream forwards the
// topic verbatim as the SSE event name.
const (
	TopicTurnoCreated = "turno:created"
	TopicTurnoUpdated = "turno:updated"
)

// TurnoEvent wraps a turno state change.  It carries the full
// reservation payload so downstream consumers can log, notify or render
// without querying the primary database.
type TurnoEvent struct {
	Event     string      `json:"event"`
	Turno     model.Turno `json:"turno"`
	EmittedAt string      `json:"emittedAt"` // RFC3339, UTC
}
