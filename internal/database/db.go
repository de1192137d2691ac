package database

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	_ "github.com/go-sql-driver/mysql"
)

// Open connects to MySQL and verifies the connection.
func Open(user, pass, host, port, name string) (*sql.DB, error) {
	auth := user
	if pass != "" {
		auth = fmt.Sprintf("%s:%s", user, pass)
	}
	// parseTime=true -> DATETIME -> time.Time | loc=UTC keeps times consistent
	dsn := fmt.Sprintf("%s@tcp(%s:%s)/%s?charset=utf8mb4&parseTime=true&loc=UTC",
		auth, host, port, name)

	db, err := sql.Open("mysql", dsn)
	if err != nil {
		return nil, err
	}

	// Pool settings
	db.SetMaxOpenConns(25)
	db.SetMaxIdleConns(25)
	db.SetConnMaxLifetime(30 * time.Minute)

	// Ping with timeout
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := db.PingContext(ctx); err != nil {
		return nil, err
	}
	return db, nil
}

// EnsureSchema creates the turnos table if it does not exist.
//
// The hora_activa generated column is the heart of the uniqueness
// invariant: it mirrors hora while estado='reservado' and is NULL
// otherwise.  MySQL unique indexes ignore NULLs, so any number of
// cancelled rows may share a (servicio, fecha, hora) tuple while at most
// one active row can hold it.  Claiming a slot is therefore a single
// INSERT that either commits or fails with a duplicate-key error -- no
// check-then-write window exists.
func EnsureSchema(ctx context.Context, db *sql.DB) error {
	const ddl = `CREATE TABLE IF NOT EXISTS turnos (
        id                  BIGINT UNSIGNED AUTO_INCREMENT PRIMARY KEY,
        servicio            VARCHAR(64)  NOT NULL,
        usuario             VARCHAR(64)  NOT NULL,
        fecha               DATE         NOT NULL,
        hora                CHAR(5)      NOT NULL,
        estado              ENUM('reservado','cancelado') NOT NULL DEFAULT 'reservado',
        notas               VARCHAR(500) NULL,
        creado_por          VARCHAR(64)  NOT NULL,
        cancelado_por       VARCHAR(64)  NULL,
        ultima_modificacion DATETIME     NOT NULL DEFAULT CURRENT_TIMESTAMP ON UPDATE CURRENT_TIMESTAMP,
        created_at          DATETIME     NOT NULL DEFAULT CURRENT_TIMESTAMP,
        updated_at          DATETIME     NOT NULL DEFAULT CURRENT_TIMESTAMP ON UPDATE CURRENT_TIMESTAMP,
        hora_activa         CHAR(5) GENERATED ALWAYS AS (IF(estado = 'reservado', hora, NULL)) STORED,
        UNIQUE KEY uniq_turno_activo (servicio, fecha, hora_activa),
        KEY idx_turnos_usuario (usuario, fecha, hora),
        KEY idx_turnos_disponibilidad (servicio, fecha, estado)
    ) ENGINE=InnoDB DEFAULT CHARSET=utf8mb4`
	_, err := db.ExecContext(ctx, ddl)
	return err
}
