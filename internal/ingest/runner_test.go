package ingest

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/rs/zerolog"

	"github.com/zasylogic/casebridge/internal/model"
	"github.com/zasylogic/casebridge/internal/provider"
	"github.com/zasylogic/casebridge/internal/store/memstore"
)

// fakeAdapter replays a fixed batch of records.
type fakeAdapter struct {
	name      string
	records   []*model.CaseRecord
	authErr   error
	fetchErr  error
	failIndex int // 1-based index whose Normalize fails; 0 disables
}

func (f *fakeAdapter) Name() string { return f.name }

func (f *fakeAdapter) Authenticate(context.Context) (provider.Session, error) {
	return nil, f.authErr
}

func (f *fakeAdapter) FetchRaw(context.Context, provider.Session, model.RunOptions) ([]provider.Raw, error) {
	if f.fetchErr != nil {
		return nil, f.fetchErr
	}
	raws := make([]provider.Raw, len(f.records))
	for i := range f.records {
		raws[i] = i
	}
	return raws, nil
}

func (f *fakeAdapter) Normalize(_ context.Context, raw provider.Raw) (*model.CaseRecord, error) {
	i := raw.(int)
	if f.failIndex > 0 && i == f.failIndex-1 {
		return nil, fmt.Errorf("registro %d corrupto", i+1)
	}
	return f.records[i], nil
}

func newRecord(num string, kind model.CaseKind) *model.CaseRecord {
	return &model.CaseRecord{
		Provider:   "TestCo",
		CaseNumber: num,
		Classify:   kind,
		CaseDate:   "2025-07-16",
	}
}

func TestRun_IdempotentIngestion(t *testing.T) {
	st := memstore.New()
	runner := NewRunner(st, zerolog.Nop())
	ad := &fakeAdapter{name: "TestCo", records: []*model.CaseRecord{
		newRecord("100", model.KindNew),
		newRecord("101", model.KindNew),
	}}

	first, err := runner.Run(context.Background(), ad, model.RunOptions{})
	if err != nil {
		t.Fatalf("first run: %v", err)
	}
	if first.Processed != 2 || first.Omitted != 0 {
		t.Fatalf("first run: processed=%d omitted=%d", first.Processed, first.Omitted)
	}

	second, err := runner.Run(context.Background(), ad, model.RunOptions{})
	if err != nil {
		t.Fatalf("second run: %v", err)
	}
	if second.Processed != 0 || second.Omitted != 2 {
		t.Errorf("second run: processed=%d omitted=%d, want 0/2", second.Processed, second.Omitted)
	}
	if rows := st.Rows(); len(rows) != 2 {
		t.Errorf("stored rows = %d, want 2 (unchanged)", len(rows))
	}
}

func TestRun_ConstraintBackstop(t *testing.T) {
	st := memstore.New()
	// Simulate the pre-check losing a race: it never sees the row even
	// after the first insert.
	st.ExistsFn = func(string) (bool, error) { return false, nil }

	runner := NewRunner(st, zerolog.Nop())
	ad := &fakeAdapter{name: "TestCo", records: []*model.CaseRecord{
		newRecord("200", model.KindNew),
		newRecord("200", model.KindNew),
	}}

	out, err := runner.Run(context.Background(), ad, model.RunOptions{})
	if err != nil {
		t.Fatalf("run must not fail on a duplicate constraint: %v", err)
	}
	if out.Processed != 1 || out.Omitted != 1 {
		t.Errorf("processed=%d omitted=%d, want 1/1", out.Processed, out.Omitted)
	}
	if rows := st.Rows(); len(rows) != 1 {
		t.Errorf("stored rows = %d, want exactly 1", len(rows))
	}
}

func TestRun_MessagesAppendToExistingCase(t *testing.T) {
	st := memstore.New()
	runner := NewRunner(st, zerolog.Nop())

	// First run stores the new case.
	ad := &fakeAdapter{name: "TestCo", records: []*model.CaseRecord{
		newRecord("300", model.KindNew),
	}}
	if _, err := runner.Run(context.Background(), ad, model.RunOptions{}); err != nil {
		t.Fatal(err)
	}

	// A follow-up message for the same case number is allowed through the
	// pre-check, then stopped by the unique constraint (same key). The
	// policy decision is what this test pins: Message resolves to insert.
	ad.records = []*model.CaseRecord{newRecord("300", model.KindMessage)}
	out, err := runner.Run(context.Background(), ad, model.RunOptions{})
	if err != nil {
		t.Fatal(err)
	}
	if out.Processed != 0 || out.Omitted != 1 {
		t.Errorf("processed=%d omitted=%d, want 0/1 (constraint converges to omitted)", out.Processed, out.Omitted)
	}
}

func TestRun_PerRecordFaultIsolation(t *testing.T) {
	st := memstore.New()
	runner := NewRunner(st, zerolog.Nop())

	records := make([]*model.CaseRecord, 5)
	for i := range records {
		records[i] = newRecord(fmt.Sprintf("40%d", i), model.KindNew)
	}
	ad := &fakeAdapter{name: "TestCo", records: records, failIndex: 3}

	out, err := runner.Run(context.Background(), ad, model.RunOptions{})
	if err != nil {
		t.Fatalf("run aborted on a per-record failure: %v", err)
	}
	if out.Processed != 4 || out.Omitted != 1 {
		t.Errorf("processed=%d omitted=%d, want 4/1", out.Processed, out.Omitted)
	}
	// A record that never yielded a case number is counted, not listed.
	if len(out.OmittedIDs) != 0 {
		t.Errorf("omitted ids = %v, want none", out.OmittedIDs)
	}
}

// ackingAdapter wraps fakeAdapter with an Ack recorder.
type ackingAdapter struct {
	fakeAdapter
	acked []int
}

func (a *ackingAdapter) Ack(_ context.Context, raw provider.Raw) error {
	a.acked = append(a.acked, raw.(int))
	return nil
}

func TestRun_AcksHandledRecordsOnly(t *testing.T) {
	st := memstore.New()
	runner := NewRunner(st, zerolog.Nop())

	// Stored, consumed-by-adapter (nil), stored, Normalize failure.
	ad := &ackingAdapter{fakeAdapter: fakeAdapter{
		name: "TestCo",
		records: []*model.CaseRecord{
			newRecord("900", model.KindNew),
			nil,
			newRecord("901", model.KindNew),
			newRecord("902", model.KindNew),
		},
		failIndex: 4,
	}}

	out, err := runner.Run(context.Background(), ad, model.RunOptions{})
	if err != nil {
		t.Fatal(err)
	}
	if out.Processed != 2 || out.Omitted != 1 {
		t.Errorf("processed=%d omitted=%d, want 2/1", out.Processed, out.Omitted)
	}
	// The failed record stays unacknowledged so its source redelivers it.
	if len(ad.acked) != 3 || ad.acked[0] != 0 || ad.acked[1] != 1 || ad.acked[2] != 2 {
		t.Errorf("acked = %v, want [0 1 2]", ad.acked)
	}
}

func TestRun_AuthFailureIsFatal(t *testing.T) {
	runner := NewRunner(memstore.New(), zerolog.Nop())
	ad := &fakeAdapter{name: "TestCo", authErr: errors.New("login rechazado")}

	if _, err := runner.Run(context.Background(), ad, model.RunOptions{}); err == nil {
		t.Fatal("expected fatal error on authentication failure")
	}
}

func TestRun_FetchFailureIsFatal(t *testing.T) {
	runner := NewRunner(memstore.New(), zerolog.Nop())
	ad := &fakeAdapter{name: "TestCo", fetchErr: errors.New("buzón inaccesible")}

	if _, err := runner.Run(context.Background(), ad, model.RunOptions{}); err == nil {
		t.Fatal("expected fatal error on fetch failure")
	}
}

// forwardingAdapter wraps fakeAdapter with a Forward recorder.
type forwardingAdapter struct {
	fakeAdapter
	forwarded  []string
	forwardErr error
}

func (f *forwardingAdapter) Forward(_ context.Context, rec *model.CaseRecord) error {
	f.forwarded = append(f.forwarded, rec.CaseNumber)
	return f.forwardErr
}

func TestRun_ForwardsOnlyStoredRecords(t *testing.T) {
	st := memstore.New()
	runner := NewRunner(st, zerolog.Nop())
	ad := &forwardingAdapter{fakeAdapter: fakeAdapter{name: "TestCo", records: []*model.CaseRecord{
		newRecord("700", model.KindNew),
		newRecord("700", model.KindNew), // duplicate, skipped, must not forward
	}}}

	out, err := runner.Run(context.Background(), ad, model.RunOptions{})
	if err != nil {
		t.Fatal(err)
	}
	if out.Processed != 1 {
		t.Errorf("processed=%d, want 1", out.Processed)
	}
	if len(ad.forwarded) != 1 || ad.forwarded[0] != "700" {
		t.Errorf("forwarded = %v, want [700]", ad.forwarded)
	}
}

func TestRun_ForwardFailureKeepsRecordProcessed(t *testing.T) {
	st := memstore.New()
	runner := NewRunner(st, zerolog.Nop())
	ad := &forwardingAdapter{
		fakeAdapter: fakeAdapter{name: "TestCo", records: []*model.CaseRecord{
			newRecord("800", model.KindNew),
		}},
		forwardErr: errors.New("diaple caído"),
	}

	out, err := runner.Run(context.Background(), ad, model.RunOptions{})
	if err != nil {
		t.Fatalf("forward failure must not fail the run: %v", err)
	}
	if out.Processed != 1 || out.Omitted != 0 {
		t.Errorf("processed=%d omitted=%d, want 1/0", out.Processed, out.Omitted)
	}
	if rows := st.Rows(); len(rows) != 1 {
		t.Errorf("stored rows = %d, want 1", len(rows))
	}
}

func TestGateway_StorageErrorCountsAsOmitted(t *testing.T) {
	st := memstore.New()
	st.InsertErr = errors.New("disco lleno")

	g := NewGateway(st, zerolog.Nop())
	out := &model.IngestionOutcome{}
	g.Save(context.Background(), newRecord("500", model.KindNew), out)

	if out.Processed != 0 || out.Omitted != 1 {
		t.Errorf("processed=%d omitted=%d, want 0/1", out.Processed, out.Omitted)
	}
}

func TestGateway_EnrichmentErrorStoredButOmitted(t *testing.T) {
	st := memstore.New()
	g := NewGateway(st, zerolog.Nop())
	out := &model.IngestionOutcome{}

	rec := newRecord("600", model.KindEnrichmentError)
	g.Save(context.Background(), rec, out)

	if out.Omitted != 1 {
		t.Errorf("omitted=%d, want 1", out.Omitted)
	}
	rows := st.Rows()
	if len(rows) != 1 {
		t.Fatalf("expected the error record to be stored, got %d rows", len(rows))
	}
	if rows[0].TipoRegistro != string(model.KindEnrichmentError) {
		t.Errorf("tipo_registro = %q", rows[0].TipoRegistro)
	}
}

func TestGateway_KeylessRecordsCollide(t *testing.T) {
	st := memstore.New()
	g := NewGateway(st, zerolog.Nop())
	out := &model.IngestionOutcome{}

	// Two distinct records without a case number share the degenerate key
	// "TestCo_": the first wins, the second is omitted. Inherited source
	// ambiguity, pinned on purpose.
	g.Save(context.Background(), newRecord("", model.KindNew), out)
	g.Save(context.Background(), newRecord("", model.KindNew), out)

	if out.Processed != 1 || out.Omitted != 1 {
		t.Errorf("processed=%d omitted=%d, want 1/1", out.Processed, out.Omitted)
	}
}
