package registry

import (
	"context"
	"testing"

	"github.com/rs/zerolog"

	"github.com/zasylogic/casebridge/internal/mail"
	"github.com/zasylogic/casebridge/internal/model"
	"github.com/zasylogic/casebridge/internal/worker"
)

type fakeAPI struct{}

func (fakeAPI) SubmitInbound(context.Context, any) error       { return nil }
func (fakeAPI) SubmitUnprocessable(context.Context, any) error { return nil }

func testDeps() Deps {
	return Deps{
		Mail: mail.SourceFunc(func(context.Context, model.ProviderAccount) ([]mail.Message, error) {
			return nil, nil
		}),
		Downstream: fakeAPI{},
		Limits:     worker.NewLimiter(2, 4),
		Log:        zerolog.Nop(),
	}
}

func TestResolve(t *testing.T) {
	deps := testDeps()

	tests := []struct {
		provider string
		name     string
	}{
		{"multiasistencia", "MlSevilla"},
		{"asitur", "AsiturTgn"},
		{"generali", "GeneraliMad"},
		{"ima", "IMA"},
		{"  Generali  ", "trimmed and case-folded"},
	}
	for _, tt := range tests {
		t.Run(tt.provider, func(t *testing.T) {
			account := model.ProviderAccount{Name: tt.name, Provider: tt.provider}
			ad, err := Resolve(account, deps)
			if err != nil {
				t.Fatalf("Resolve(%q): %v", tt.provider, err)
			}
			if ad.Name() != tt.name {
				t.Errorf("Name() = %q, want %q", ad.Name(), tt.name)
			}
		})
	}
}

func TestResolve_UnknownProvider(t *testing.T) {
	_, err := Resolve(model.ProviderAccount{Name: "X", Provider: "mapfre"}, testDeps())
	if err == nil {
		t.Fatal("expected an error for an unknown provider")
	}
}

func TestResolve_AsiturNeedsDownstream(t *testing.T) {
	deps := testDeps()
	deps.Downstream = nil
	_, err := Resolve(model.ProviderAccount{Name: "AsiturTgn", Provider: "asitur"}, deps)
	if err == nil {
		t.Fatal("expected an error when the downstream API is missing")
	}
}

func TestAvailable(t *testing.T) {
	got := Available()
	want := []string{"asitur", "generali", "ima", "multiasistencia"}
	if len(got) != len(want) {
		t.Fatalf("Available() = %v", got)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("Available()[%d] = %q, want %q", i, got[i], want[i])
		}
	}
}
