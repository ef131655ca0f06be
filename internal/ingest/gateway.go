package ingest

import (
	"context"
	"encoding/json"
	"errors"

	"github.com/rs/zerolog"

	"github.com/zasylogic/casebridge/internal/dedup"
	"github.com/zasylogic/casebridge/internal/model"
	"github.com/zasylogic/casebridge/internal/store"
)

// Gateway performs the idempotent insert of one normalized case record
// and keeps the run's processed/omitted bookkeeping. It never aborts a
// run: every failure short of a broken store connection degrades to an
// omitted record.
type Gateway struct {
	store store.Store
	log   zerolog.Logger
}

// NewGateway wires a gateway over the given store.
func NewGateway(st store.Store, log zerolog.Logger) *Gateway {
	return &Gateway{store: st, log: log}
}

// Save resolves the record's identity, applies the dedup policy and
// persists it, updating the outcome counters. The pre-check and the
// UNIQUE-constraint violation converge on the same omitted semantics; a
// concurrent run slipping between the two is handled, not fatal. The
// return reports whether the record counted as processed.
func (g *Gateway) Save(ctx context.Context, rec *model.CaseRecord, out *model.IngestionOutcome) bool {
	ref := rec.CaseNumber
	if rec.DedupRef != "" {
		ref = rec.DedupRef
	}
	idUnico := dedup.Key(rec.Provider, ref)

	exists, err := g.store.Exists(ctx, idUnico)
	if err != nil {
		g.log.Error().Err(err).Str("id_unico", idUnico).Msg("existence lookup failed")
		out.AddOmitted(rec.CaseNumber)
		return false
	}

	decision := dedup.Decide(exists, rec.Classify)
	if !decision.Insert {
		g.log.Info().
			Str("id_unico", idUnico).
			Str("classify", string(rec.Classify)).
			Str("razon", decision.Reason).
			Msg("expediente omitido")
		out.AddOmitted(rec.CaseNumber)
		return false
	}

	row, err := buildRow(rec, idUnico)
	if err != nil {
		g.log.Error().Err(err).Str("id_unico", idUnico).Msg("serialize expediente")
		out.AddOmitted(rec.CaseNumber)
		return false
	}

	switch err := g.store.Insert(ctx, row); {
	case errors.Is(err, store.ErrDuplicate):
		// Lost the race against a concurrent run; same outcome as the
		// pre-check skip.
		g.log.Info().Str("id_unico", idUnico).Msg("expediente duplicado omitido")
		out.AddOmitted(rec.CaseNumber)
		return false
	case err != nil:
		g.log.Error().Err(err).Str("id_unico", idUnico).Msg("insert expediente")
		out.AddOmitted(rec.CaseNumber)
		return false
	case rec.Classify == model.KindEnrichmentError:
		// Stored for the audit trail, but the run reports it as omitted:
		// the record is incomplete until someone follows it up.
		out.AddOmitted(rec.CaseNumber)
		return false
	default:
		out.Processed++
		g.log.Info().
			Str("id_unico", idUnico).
			Str("classify", string(rec.Classify)).
			Msg("expediente procesado")
		return true
	}
}

func buildRow(rec *model.CaseRecord, idUnico string) (store.CaseRow, error) {
	data, err := json.Marshal(rec)
	if err != nil {
		return store.CaseRow{}, err
	}

	raw := ""
	if rec.RawSource != nil {
		if b, err := json.Marshal(rec.RawSource); err == nil {
			raw = string(b)
		}
	}

	fecha := rec.CaseDate
	if len(fecha) > 10 {
		fecha = fecha[:10]
	}

	return store.CaseRow{
		Data:            string(data),
		DataRaw:         raw,
		Status:          "pendiente",
		Servicio:        rec.CaseNumber,
		FechaAsignacion: fecha,
		Cliente:         rec.Provider,
		IDUnico:         idUnico,
		TipoRegistro:    string(rec.Classify),
	}, nil
}
