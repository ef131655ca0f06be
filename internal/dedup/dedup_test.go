package dedup

import (
	"testing"

	"github.com/zasylogic/casebridge/internal/model"
)

func TestKey(t *testing.T) {
	if got := Key("MlSev", "1234"); got != "MlSev_1234" {
		t.Errorf("got %q", got)
	}
	// A missing case number degrades to "provider_": all keyless records
	// of a provider collide on the first stored one. Known sharp edge,
	// pinned here so nobody "fixes" it silently.
	if got := Key("MlSev", ""); got != "MlSev_" {
		t.Errorf("got %q", got)
	}
}

func TestDecide_PolicyTable(t *testing.T) {
	tests := []struct {
		name   string
		exists bool
		kind   model.CaseKind
		insert bool
	}{
		{"missing record always inserts", false, model.KindNew, true},
		{"missing record inserts for any kind", false, model.KindOther, true},
		{"existing new skips", true, model.KindNew, false},
		{"existing message inserts", true, model.KindMessage, true},
		{"existing cancellation inserts", true, model.KindCancelled, true},
		{"existing other skips", true, model.KindOther, false},
		{"existing unprocessable skips", true, model.KindUnprocessable, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			d := Decide(tt.exists, tt.kind)
			if d.Insert != tt.insert {
				t.Errorf("Decide(%v, %s).Insert = %v, want %v", tt.exists, tt.kind, d.Insert, tt.insert)
			}
			if !d.Insert && d.Reason == "" {
				t.Error("skip decisions must carry a reason")
			}
		})
	}
}
