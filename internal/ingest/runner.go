// Package ingest is the provider ingestion pipeline: authenticate, fetch,
// then normalize/resolve/persist one record at a time.
package ingest

import (
	"context"
	"fmt"

	"github.com/rs/zerolog"

	"github.com/zasylogic/casebridge/internal/model"
	"github.com/zasylogic/casebridge/internal/provider"
	"github.com/zasylogic/casebridge/internal/store"
)

// Runner executes provider runs against one gateway. Safe to invoke
// repeatedly for the same window: already-stored records are skipped by
// the dedup policy, so a scheduler tick racing a manual trigger converges
// on one stored row per identity key.
type Runner struct {
	gateway *Gateway
	log     zerolog.Logger
}

// NewRunner builds a runner over the given store.
func NewRunner(st store.Store, log zerolog.Logger) *Runner {
	return &Runner{
		gateway: NewGateway(st, log),
		log:     log,
	}
}

// Run executes one full ingestion for the adapter.
//
// Authentication and fetch failures are fatal for the run and propagate;
// no partial outcome is returned for them. Inside the per-record loop
// every failure is contained: the record is counted as omitted and the
// loop continues. Records are processed strictly in fetch order, since a
// later record's dedup decision may depend on an earlier insert from the
// same batch.
func (r *Runner) Run(ctx context.Context, ad provider.Adapter, opts model.RunOptions) (*model.IngestionOutcome, error) {
	log := r.log.With().Str("provider", ad.Name()).Logger()
	log.Info().Msg("iniciando procesamiento")

	sess, err := ad.Authenticate(ctx)
	if err != nil {
		return nil, fmt.Errorf("authenticate %s: %w", ad.Name(), err)
	}

	raws, err := ad.FetchRaw(ctx, sess, opts)
	if err != nil {
		return nil, fmt.Errorf("fetch %s: %w", ad.Name(), err)
	}

	out := &model.IngestionOutcome{TotalAvailable: len(raws)}

	for _, raw := range raws {
		rec, err := ad.Normalize(ctx, raw)
		if err != nil {
			// Not acknowledged: the source redelivers the record on the
			// next run.
			log.Error().Err(err).Msg("error procesando mensaje")
			out.CountOmitted()
			continue
		}
		if rec == nil {
			// Consumed by the adapter (outside the window, or forwarded
			// straight downstream). Neither processed nor omitted.
			r.ack(ctx, ad, raw, log)
			continue
		}
		if rec.Provider == "" {
			rec.Provider = ad.Name()
		}
		stored := r.gateway.Save(ctx, rec, out)
		if stored {
			if fw, ok := ad.(provider.Forwarder); ok {
				if err := fw.Forward(ctx, rec); err != nil {
					// The row is already persisted; the batch resync picks up
					// failed submissions later.
					log.Error().Err(err).Str("case", rec.CaseNumber).Msg("error enviando a diaple")
				}
			}
		}
		r.ack(ctx, ad, raw, log)
	}

	log.Info().
		Int("procesados", out.Processed).
		Int("omitidos", out.Omitted).
		Int("total_disponible", out.TotalAvailable).
		Msg("procesamiento completado")
	return out, nil
}

// ack marks a handled record as consumed on sources that hold messages
// until acknowledged. An ack failure is logged only; the worst case is
// one redelivered record, which dedup already absorbs.
func (r *Runner) ack(ctx context.Context, ad provider.Adapter, raw provider.Raw, log zerolog.Logger) {
	ak, ok := ad.(provider.Acker)
	if !ok {
		return
	}
	if err := ak.Ack(ctx, raw); err != nil {
		log.Error().Err(err).Msg("error confirmando mensaje")
	}
}

// Store exposes the underlying store for callers that record run logs.
func (r *Runner) Store() store.Store {
	return r.gateway.store
}
