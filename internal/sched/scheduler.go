package sched

import (
	"context"
	"time"

	"github.com/rs/zerolog"

	"github.com/zasylogic/casebridge/internal/ingest"
	"github.com/zasylogic/casebridge/internal/model"
	"github.com/zasylogic/casebridge/internal/provider/registry"
	"github.com/zasylogic/casebridge/internal/store"
)

// Scheduler triggers provider runs when their interval elapses. It checks
// for due accounts on a fixed cadence rather than keeping one timer per
// account; with a handful of accounts the sweep is cheap and restart
// behavior is trivial (everything is due on the first check).
type Scheduler struct {
	accounts []model.ProviderAccount
	deps     registry.Deps
	runner   *ingest.Runner
	store    store.Store
	check    time.Duration
	workers  int
	log      zerolog.Logger

	now     func() time.Time
	lastRun map[string]time.Time
}

// New builds a scheduler over the configured accounts.
func New(accounts []model.ProviderAccount, deps registry.Deps, runner *ingest.Runner,
	st store.Store, cfg model.SchedulerConfig, workers int, log zerolog.Logger) *Scheduler {

	check := cfg.CheckInterval
	if check <= 0 {
		check = time.Minute
	}
	return &Scheduler{
		accounts: accounts,
		deps:     deps,
		runner:   runner,
		store:    st,
		check:    check,
		workers:  workers,
		log:      log,
		now:      time.Now,
		lastRun:  make(map[string]time.Time),
	}
}

// Run loops until the context is cancelled. Every account is due on the
// first sweep.
func (s *Scheduler) Run(ctx context.Context) error {
	s.log.Info().
		Int("cuentas", len(s.accounts)).
		Dur("check", s.check).
		Msg("scheduler iniciado")

	ticker := time.NewTicker(s.check)
	defer ticker.Stop()

	s.sweep(ctx)
	for {
		select {
		case <-ctx.Done():
			s.log.Info().Msg("scheduler detenido")
			return ctx.Err()
		case <-ticker.C:
			s.sweep(ctx)
		}
	}
}

func (s *Scheduler) sweep(ctx context.Context) {
	due := s.due(s.now())
	if len(due) == 0 {
		return
	}
	names := make([]string, len(due))
	for i, a := range due {
		names[i] = a.Name
	}
	s.log.Info().Strs("cuentas", names).Msg("ejecutando cuentas")

	results := RunAccounts(ctx, s.runner, s.store, s.deps, due, model.RunOptions{}, s.workers, s.log)
	for _, r := range results {
		if r.Err != nil {
			s.log.Error().Err(r.Err).Str("cuenta", r.Account).Msg("ejecución fallida")
		}
	}
}

// due returns the accounts whose interval has elapsed and marks them as
// started. lastRun advances before the run executes, so a slow run does
// not pile up repeat triggers behind itself.
func (s *Scheduler) due(now time.Time) []model.ProviderAccount {
	var out []model.ProviderAccount
	for _, account := range s.accounts {
		interval := account.Interval
		if interval <= 0 {
			interval = DefaultInterval
		}
		last, ran := s.lastRun[account.Name]
		if ran && now.Sub(last) < interval {
			continue
		}
		s.lastRun[account.Name] = now
		out = append(out, account)
	}
	return out
}
