// Package repository persists turnos in MySQL and owns the uniqueness
// invariant on (servicio, fecha, hora).  The sentinel values below let
// the booking layer distinguish failure scenarios without inspecting
// driver errors; the booking service translates them into the coded
// errors returned to clients.
package repository

import "errors"

// ErrSlotTaken is returned by Claim when an active turno already holds
// the requested (servicio, fecha, hora) tuple at commit time.
var ErrSlotTaken = errors.New("slot already reserved")

// ErrTurnoNotFound is returned when no turno exists with the given id.
var ErrTurnoNotFound = errors.New("turno not found")

// ErrNotOwner is returned when a requester attempts to release a turno
// owned by someone else.
var ErrNotOwner = errors.New("turno owned by another user")

// ErrAlreadyCancelled is returned when releasing a turno that is no
// longer active.  A concurrent second cancel loses the guarded update
// and surfaces this same error instead of corrupting the record.
var ErrAlreadyCancelled = errors.New("turno already cancelled")
