package repository

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/go-sql-driver/mysql"

	"github.com/turnosmed/api-turnos/internal/model"
)

// mysqlDupEntry is the MySQL error number for duplicate-key violations.
const mysqlDupEntry = 1062

// dateLayout matches the DATE column format of the turnos table.  All
// timestamps are stored and compared in UTC.
const dateLayout = "2006-01-02"

// TurnoRepo provides persistence for turnos.  It is both the
// reservation store (claim/release/list) and the availability index
// (ListReservedTimes); reads always hit committed state directly so the
// index can never serve a stale "free" answer past a booking commit.
type TurnoRepo struct {
	db *sql.DB
}

// NewTurnoRepo returns a new TurnoRepo bound to the given database.
func NewTurnoRepo(db *sql.DB) *TurnoRepo { return &TurnoRepo{db: db} }

// DB exposes the underlying handle for callers that need to open
// transactions spanning repository calls.
func (r *TurnoRepo) DB() *sql.DB { return r.db }

// turnoColumns is the column list shared by every SELECT so scanTurno
// stays in sync with a single definition.
const turnoColumns = `id, servicio, usuario, fecha, hora, estado, notas,
       creado_por, cancelado_por, ultima_modificacion, created_at, updated_at`

// rowScanner abstracts *sql.Row and *sql.Rows for scanTurno.
type rowScanner interface {
	Scan(dest ...interface{}) error
}

// scanTurno reads one turnos row into a model.Turno.  fecha arrives as a
// time.Time thanks to parseTime=true and is rendered back to the
// calendar-day string used throughout the API.
func scanTurno(s rowScanner) (*model.Turno, error) {
	var t model.Turno
	var fecha time.Time
	var notas sql.NullString
	var canceladoPor sql.NullString
	if err := s.Scan(
		&t.ID, &t.Servicio, &t.Usuario, &fecha, &t.Hora, &t.Estado, &notas,
		&t.Metadata.CreadoPor, &canceladoPor, &t.Metadata.UltimaModificacion,
		&t.CreatedAt, &t.UpdatedAt,
	); err != nil {
		return nil, err
	}
	t.Fecha = fecha.Format(dateLayout)
	if notas.Valid {
		n := notas.String
		t.Notas = &n
	}
	if canceladoPor.Valid {
		cb := canceladoPor.String
		t.Metadata.CanceladoPor = &cb
	}
	return &t, nil
}

// FindActive returns the active turno holding (servicio, fecha, hora),
// or nil when the slot is free.  This is the authoritative existence
// check used before and independently of Claim.
func (r *TurnoRepo) FindActive(ctx context.Context, servicio, fecha, hora string) (*model.Turno, error) {
	const q = `SELECT ` + turnoColumns + `
               FROM turnos
               WHERE servicio = ? AND fecha = ? AND hora = ? AND estado = 'reservado'`
	t, err := scanTurno(r.db.QueryRowContext(ctx, q, servicio, fecha, hora))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return t, nil
}

// ClaimParams carries the inputs for Claim.  Notas may be nil.
type ClaimParams struct {
	Servicio string
	Usuario  string
	Fecha    string
	Hora     string
	Notas    *string
}

// Claim atomically reserves the slot for the requester.  It relies on
// the uniq_turno_activo index: the INSERT either commits, making this
// requester the sole active owner of the tuple, or fails with a
// duplicate-key error that is surfaced as ErrSlotTaken.  There is no
// separate availability check inside Claim, so two concurrent claims on
// the same tuple resolve entirely inside the storage engine.
func (r *TurnoRepo) Claim(ctx context.Context, p ClaimParams) (*model.Turno, error) {
	const q = `INSERT INTO turnos (servicio, usuario, fecha, hora, estado, notas, creado_por, ultima_modificacion)
               VALUES (?, ?, ?, ?, 'reservado', ?, ?, UTC_TIMESTAMP())`
	var notas sql.NullString
	if p.Notas != nil {
		notas = sql.NullString{String: *p.Notas, Valid: true}
	}
	res, err := r.db.ExecContext(ctx, q, p.Servicio, p.Usuario, p.Fecha, p.Hora, notas, p.Usuario)
	if err != nil {
		var me *mysql.MySQLError
		if errors.As(err, &me) && me.Number == mysqlDupEntry {
			return nil, ErrSlotTaken
		}
		return nil, err
	}
	id, err := res.LastInsertId()
	if err != nil {
		return nil, err
	}
	return r.GetByID(ctx, uint64(id))
}

// GetByID returns the turno with the given id or ErrTurnoNotFound.
func (r *TurnoRepo) GetByID(ctx context.Context, id uint64) (*model.Turno, error) {
	const q = `SELECT ` + turnoColumns + ` FROM turnos WHERE id = ?`
	t, err := scanTurno(r.db.QueryRowContext(ctx, q, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrTurnoNotFound
	}
	if err != nil {
		return nil, err
	}
	return t, nil
}

// Release cancels the turno with the given id on behalf of usuario.  The
// row is locked inside a transaction so ownership and state checks are
// consistent with the guarded UPDATE that follows; a concurrent second
// cancel observes estado='cancelado' and gets ErrAlreadyCancelled.  On
// success the updated record is returned.
func (r *TurnoRepo) Release(ctx context.Context, id uint64, usuario string) (*model.Turno, error) {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, err
	}
	committed := false
	defer func() {
		if !committed {
			_ = tx.Rollback()
		}
	}()

	const sel = `SELECT usuario, estado FROM turnos WHERE id = ? FOR UPDATE`
	var owner, estado string
	if err := tx.QueryRowContext(ctx, sel, id).Scan(&owner, &estado); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrTurnoNotFound
		}
		return nil, err
	}
	if owner != usuario {
		return nil, ErrNotOwner
	}
	if estado != model.EstadoReservado {
		return nil, ErrAlreadyCancelled
	}

	// The estado guard makes the update a no-op if another transaction
	// cancelled the row between lock release and commit.
	const upd = `UPDATE turnos
                 SET estado = 'cancelado', cancelado_por = ?, ultima_modificacion = UTC_TIMESTAMP()
                 WHERE id = ? AND estado = 'reservado'`
	res, err := tx.ExecContext(ctx, upd, usuario, id)
	if err != nil {
		return nil, err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return nil, err
	}
	if n == 0 {
		return nil, ErrAlreadyCancelled
	}
	if err := tx.Commit(); err != nil {
		return nil, err
	}
	committed = true
	return r.GetByID(ctx, id)
}

// ListFilter narrows ListByUser results.  Empty fields are ignored.
type ListFilter struct {
	Fecha    string // exact calendar day
	Servicio string // exact service id
}

// ListByUser returns the requester's active turnos ordered by
// (fecha, hora) ascending.  Cancelled history rows are not listed.
func (r *TurnoRepo) ListByUser(ctx context.Context, usuario string, f ListFilter) ([]model.Turno, error) {
	q := `SELECT ` + turnoColumns + `
          FROM turnos
          WHERE usuario = ? AND estado = 'reservado'`
	args := []interface{}{usuario}
	if f.Fecha != "" {
		q += ` AND fecha = ?`
		args = append(args, f.Fecha)
	}
	if f.Servicio != "" {
		q += ` AND servicio = ?`
		args = append(args, f.Servicio)
	}
	q += ` ORDER BY fecha ASC, hora ASC`

	rows, err := r.db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	turnos := make([]model.Turno, 0)
	for rows.Next() {
		t, err := scanTurno(rows)
		if err != nil {
			return nil, err
		}
		turnos = append(turnos, *t)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return turnos, nil
}

// ListReservedTimes returns the slot labels currently reserved for a
// service on a given day, ordered ascending.  This backs the
// availability computation; it reads committed rows directly with no
// cache in between.
func (r *TurnoRepo) ListReservedTimes(ctx context.Context, servicio, fecha string) ([]string, error) {
	const q = `SELECT hora FROM turnos
               WHERE servicio = ? AND fecha = ? AND estado = 'reservado'
               ORDER BY hora ASC`
	rows, err := r.db.QueryContext(ctx, q, servicio, fecha)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	horas := make([]string, 0)
	for rows.Next() {
		var h string
		if err := rows.Scan(&h); err != nil {
			return nil, err
		}
		horas = append(horas, h)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return horas, nil
}
