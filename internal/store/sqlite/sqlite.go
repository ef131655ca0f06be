// Package sqlite implements the case store on a local SQLite database.
package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	sqlite3 "modernc.org/sqlite"
	sqlite3lib "modernc.org/sqlite/lib"

	"github.com/zasylogic/casebridge/internal/store"
)

type sqliteStore struct {
	db *sql.DB
}

// Open opens (creating if needed) the case database with WAL mode enabled
// and the schema initialized.
func Open(ctx context.Context, path string) (store.Store, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, err
	}

	// WAL keeps concurrent provider runs from serializing on the writer.
	if _, err := db.ExecContext(ctx, "PRAGMA journal_mode=WAL"); err != nil {
		db.Close()
		return nil, err
	}
	if _, err := db.ExecContext(ctx, "PRAGMA foreign_keys=ON"); err != nil {
		db.Close()
		return nil, err
	}

	if err := initSchema(ctx, db); err != nil {
		db.Close()
		return nil, err
	}

	return &sqliteStore{db: db}, nil
}

func (s *sqliteStore) Close() error {
	return s.db.Close()
}

func initSchema(ctx context.Context, db *sql.DB) error {
	schema := `
CREATE TABLE IF NOT EXISTS expedientes (
	id INTEGER PRIMARY KEY AUTOINCREMENT,
	data TEXT NOT NULL,
	data_raw TEXT NOT NULL DEFAULT '',
	status TEXT NOT NULL DEFAULT 'pendiente',
	servicio TEXT,
	fecha_asignacion TEXT,
	cliente TEXT NOT NULL,
	id_unico TEXT NOT NULL UNIQUE,
	tipo_registro TEXT NOT NULL DEFAULT '',
	created_at TEXT NOT NULL DEFAULT (datetime('now'))
);

CREATE INDEX IF NOT EXISTS idx_expedientes_cliente ON expedientes(cliente);

CREATE TABLE IF NOT EXISTS run_log (
	id TEXT PRIMARY KEY,
	cliente TEXT NOT NULL,
	estado TEXT NOT NULL,
	mensaje TEXT NOT NULL DEFAULT '',
	procesados INTEGER NOT NULL DEFAULT 0,
	omitidos INTEGER NOT NULL DEFAULT 0,
	started_at TEXT NOT NULL,
	duration_ms INTEGER NOT NULL DEFAULT 0
);
`
	if _, err := db.ExecContext(ctx, schema); err != nil {
		return fmt.Errorf("init schema: %w", err)
	}
	return nil
}

func (s *sqliteStore) Exists(ctx context.Context, idUnico string) (bool, error) {
	var id int64
	err := s.db.QueryRowContext(ctx,
		`SELECT id FROM expedientes WHERE id_unico = ?`, idUnico).Scan(&id)
	if errors.Is(err, sql.ErrNoRows) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return true, nil
}

func (s *sqliteStore) Insert(ctx context.Context, row store.CaseRow) error {
	status := row.Status
	if status == "" {
		status = "pendiente"
	}
	_, err := s.db.ExecContext(ctx, `
INSERT INTO expedientes (data, data_raw, status, servicio, fecha_asignacion, cliente, id_unico, tipo_registro)
VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		row.Data, row.DataRaw, status,
		nullable(row.Servicio), nullable(row.FechaAsignacion),
		row.Cliente, row.IDUnico, row.TipoRegistro)
	if err != nil {
		if isUniqueViolation(err) {
			return store.ErrDuplicate
		}
		return fmt.Errorf("insert expediente: %w", err)
	}
	return nil
}

func (s *sqliteStore) CountByCliente(ctx context.Context, cliente string) (int, error) {
	var n int
	err := s.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM expedientes WHERE cliente = ?`, cliente).Scan(&n)
	return n, err
}

func (s *sqliteStore) RecordRun(ctx context.Context, log store.RunLog) error {
	_, err := s.db.ExecContext(ctx, `
INSERT INTO run_log (id, cliente, estado, mensaje, procesados, omitidos, started_at, duration_ms)
VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		log.ID, log.Cliente, log.Estado, log.Mensaje,
		log.Procesados, log.Omitidos,
		log.StartedAt.UTC().Format("2006-01-02 15:04:05"),
		log.Duration.Milliseconds())
	if err != nil {
		return fmt.Errorf("record run: %w", err)
	}
	return nil
}

// isUniqueViolation unwraps the driver error and checks for the SQLite
// unique-constraint codes.
func isUniqueViolation(err error) bool {
	var se *sqlite3.Error
	if errors.As(err, &se) {
		code := se.Code()
		return code == sqlite3lib.SQLITE_CONSTRAINT_UNIQUE ||
			code == sqlite3lib.SQLITE_CONSTRAINT_PRIMARYKEY
	}
	return false
}

// nullable maps "" to NULL so optional columns stay NULL like the legacy
// schema expects.
func nullable(s string) any {
	if s == "" {
		return nil
	}
	return s
}
