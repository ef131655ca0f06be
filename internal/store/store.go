// Package store persists ingested expedientes. The UNIQUE index on
// id_unico is the load-bearing integrity invariant of the whole pipeline:
// the existence pre-check in the resolver is only an optimization, and a
// concurrent run racing past it must be stopped here.
package store

import (
	"context"
	"errors"
	"time"
)

// ErrDuplicate is returned by Insert when a row with the same id_unico
// already exists. Callers treat it as "already ingested", never as a
// hard failure.
var ErrDuplicate = errors.New("store: duplicate id_unico")

// CaseRow is the persisted shape of one expediente.
type CaseRow struct {
	ID              int64
	Data            string // canonical CaseRecord as JSON
	DataRaw         string // original upstream payload, may be empty
	Status          string // lifecycle status, defaults to "pendiente"
	Servicio        string // case/service number, may be empty
	FechaAsignacion string // assignment date (yyyy-mm-dd), may be empty
	Cliente         string // provider/tenant name
	IDUnico         string // identity key, UNIQUE
	TipoRegistro    string // classify value at ingest time
}

// RunLog is the bookkeeping row written after each provider run.
type RunLog struct {
	ID         string // ULID
	Cliente    string
	Estado     string // "completado" or "error"
	Mensaje    string
	Procesados int
	Omitidos   int
	StartedAt  time.Time
	Duration   time.Duration
}

// Store is the persistence boundary of the ingestion core.
type Store interface {
	// Exists reports whether a row with the given identity key is stored.
	Exists(ctx context.Context, idUnico string) (bool, error)

	// Insert stores one expediente; ErrDuplicate on id_unico collision.
	Insert(ctx context.Context, row CaseRow) error

	// CountByCliente returns the number of stored rows for one provider.
	CountByCliente(ctx context.Context, cliente string) (int, error)

	// RecordRun appends one run-log row.
	RecordRun(ctx context.Context, log RunLog) error

	Close() error
}
