package sched

import (
	"context"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"github.com/zasylogic/casebridge/internal/ingest"
	"github.com/zasylogic/casebridge/internal/mail"
	"github.com/zasylogic/casebridge/internal/model"
	"github.com/zasylogic/casebridge/internal/provider/registry"
	"github.com/zasylogic/casebridge/internal/store/memstore"
)

type fakeAPI struct{}

func (fakeAPI) SubmitInbound(context.Context, any) error       { return nil }
func (fakeAPI) SubmitUnprocessable(context.Context, any) error { return nil }

func emptyMailbox() mail.Source {
	return mail.SourceFunc(func(context.Context, model.ProviderAccount) ([]mail.Message, error) {
		return nil, nil
	})
}

func TestRunAccounts_RecordsRunLog(t *testing.T) {
	st := memstore.New()
	runner := ingest.NewRunner(st, zerolog.Nop())
	deps := registry.Deps{Mail: emptyMailbox(), Downstream: fakeAPI{}, Log: zerolog.Nop()}

	accounts := []model.ProviderAccount{
		{Name: "AsiturTgn", Provider: "asitur"},
		{Name: "Roto", Provider: "desconocido"},
	}

	results := RunAccounts(context.Background(), runner, st, deps, accounts, model.RunOptions{}, 2, zerolog.Nop())
	if len(results) != 2 {
		t.Fatalf("expected 2 results, got %d", len(results))
	}

	runs := st.Runs()
	if len(runs) != 2 {
		t.Fatalf("expected 2 run logs, got %d", len(runs))
	}
	byCliente := make(map[string]string)
	for _, r := range runs {
		byCliente[r.Cliente] = r.Estado
		if len(r.ID) != 26 {
			t.Errorf("run id %q is not a ULID", r.ID)
		}
	}
	if byCliente["AsiturTgn"] != "completado" {
		t.Errorf("AsiturTgn estado = %q", byCliente["AsiturTgn"])
	}
	if byCliente["Roto"] != "error" {
		t.Errorf("Roto estado = %q", byCliente["Roto"])
	}
}

func TestScheduler_Due(t *testing.T) {
	accounts := []model.ProviderAccount{
		{Name: "rapida", Provider: "asitur", Interval: time.Minute},
		{Name: "lenta", Provider: "asitur", Interval: time.Hour},
		{Name: "sin-intervalo", Provider: "asitur"},
	}
	s := New(accounts, registry.Deps{}, nil, memstore.New(), model.SchedulerConfig{}, 1, zerolog.Nop())

	t0 := time.Date(2026, 8, 27, 10, 0, 0, 0, time.UTC)

	// First sweep: everything is due.
	if got := s.due(t0); len(got) != 3 {
		t.Fatalf("first sweep: %d due, want 3", len(got))
	}

	// Two minutes later only the one-minute account is due again.
	due := s.due(t0.Add(2 * time.Minute))
	if len(due) != 1 || due[0].Name != "rapida" {
		t.Fatalf("second sweep: %v", names(due))
	}

	// After the default interval the interval-less account comes back.
	due = s.due(t0.Add(DefaultInterval + time.Second))
	if len(due) != 2 {
		t.Fatalf("third sweep: %v", names(due))
	}
}

func names(accounts []model.ProviderAccount) []string {
	out := make([]string, len(accounts))
	for i, a := range accounts {
		out[i] = a.Name
	}
	return out
}
