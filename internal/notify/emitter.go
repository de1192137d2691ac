// Package notify decouples booking orchestration from event transport.
// The booking service publishes through the Emitter interface and never
// touches a broker or socket directly; wiring decides which transports
// receive events.  Delivery is fire-and-forget with at-most-once
// semantics: a failed publish is logged, never retried, and never fails
// the booking that triggered it.
package notify

import (
	"context"
	"time"

	"github.com/turnosmed/api-turnos/internal/model"
	"github.com/turnosmed/api-turnos/internal/queue"
)

// Emitter broadcasts a turno state change to interested listeners.
type Emitter interface {
	Publish(ctx context.Context, topic string, turno model.Turno) error
}

// envelope builds the wire event for a publication.
func envelope(topic string, turno model.Turno) queue.TurnoEvent {
	return queue.TurnoEvent{
		Event:     topic,
		Turno:     turno,
		EmittedAt: time.Now().UTC().Format(time.RFC3339),
	}
}

// Multi fans a publication out to several emitters.  Each transport
// fails independently; the first error is returned after all emitters
// have been attempted so one dead transport cannot starve the others.
type Multi []Emitter

// Publish implements Emitter.
func (m Multi) Publish(ctx context.Context, topic string, turno model.Turno) error {
	var first error
	for _, e := range m {
		if err := e.Publish(ctx, topic, turno); err != nil && first == nil {
			first = err
		}
	}
	return first
}

// Noop discards publications.  Used when no transport is configured.
type Noop struct{}

// Publish implements Emitter.
func (Noop) Publish(context.Context, string, model.Turno) error { return nil }
