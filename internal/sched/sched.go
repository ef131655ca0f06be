// Package sched runs configured provider accounts on their intervals.
// Accounts run concurrently on a worker pool; overlapping runs for the
// same account are safe because the identity key makes re-ingestion
// converge on one stored row, so there is no per-account mutual
// exclusion here.
package sched

import (
	"context"
	"time"

	"github.com/oklog/ulid/v2"
	"github.com/rs/zerolog"

	"github.com/zasylogic/casebridge/internal/ingest"
	"github.com/zasylogic/casebridge/internal/model"
	"github.com/zasylogic/casebridge/internal/provider/registry"
	"github.com/zasylogic/casebridge/internal/store"
	"github.com/zasylogic/casebridge/internal/worker"
)

// DefaultInterval is used for accounts with no interval configured.
const DefaultInterval = 5 * time.Minute

// Job is one provider-account run, executable on the worker pool.
type Job struct {
	Account model.ProviderAccount
	Deps    registry.Deps
	Runner  *ingest.Runner
	Opts    model.RunOptions
}

// RunResult is the outcome of one account run.
type RunResult struct {
	Account  string
	Outcome  *model.IngestionOutcome
	Err      error
	Started  time.Time
	Duration time.Duration
}

// GetError implements worker.Result.
func (r RunResult) GetError() error { return r.Err }

// Execute resolves the account's adapter and runs the ingestion pipeline.
func (j Job) Execute(ctx context.Context) worker.Result {
	res := RunResult{Account: j.Account.Name, Started: time.Now()}

	ad, err := registry.Resolve(j.Account, j.Deps)
	if err != nil {
		res.Err = err
		res.Duration = time.Since(res.Started)
		return res
	}

	res.Outcome, res.Err = j.Runner.Run(ctx, ad, j.Opts)
	res.Duration = time.Since(res.Started)
	return res
}

// RunAccounts runs the given accounts concurrently and appends one run-log
// row per account. Used by the scheduler tick and by the manual run
// command; a run-log write failure is logged and does not fail the run.
func RunAccounts(ctx context.Context, runner *ingest.Runner, st store.Store, deps registry.Deps,
	accounts []model.ProviderAccount, opts model.RunOptions, workers int, log zerolog.Logger) []RunResult {

	pool := worker.NewPool(workers)
	pool.Start()
	for _, account := range accounts {
		pool.Submit(Job{Account: account, Deps: deps, Runner: runner, Opts: opts})
	}

	results := make([]RunResult, 0, len(accounts))
	for _, res := range pool.Wait() {
		rr := res.(RunResult)
		results = append(results, rr)

		entry := store.RunLog{
			ID:         ulid.Make().String(),
			Cliente:    rr.Account,
			Estado:     "completado",
			Procesados: processed(rr.Outcome),
			Omitidos:   omitted(rr.Outcome),
			StartedAt:  rr.Started,
			Duration:   rr.Duration,
		}
		if rr.Err != nil {
			entry.Estado = "error"
			entry.Mensaje = rr.Err.Error()
		}
		if err := st.RecordRun(ctx, entry); err != nil {
			log.Error().Err(err).Str("cliente", rr.Account).Msg("error registrando ejecución")
		}
	}
	return results
}

func processed(out *model.IngestionOutcome) int {
	if out == nil {
		return 0
	}
	return out.Processed
}

func omitted(out *model.IngestionOutcome) int {
	if out == nil {
		return 0
	}
	return out.Omitted
}
