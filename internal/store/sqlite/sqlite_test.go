package sqlite

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"github.com/zasylogic/casebridge/internal/store"
)

func openTemp(t *testing.T) store.Store {
	t.Helper()
	st, err := Open(context.Background(), filepath.Join(t.TempDir(), "cases.db"))
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { st.Close() })
	return st
}

func TestInsertAndExists(t *testing.T) {
	st := openTemp(t)
	ctx := context.Background()

	row := store.CaseRow{
		Data:            `{"numExpediente":"20259912345"}`,
		Servicio:        "20259912345",
		FechaAsignacion: "2026-08-27",
		Cliente:         "AsiturTgn",
		IDUnico:         "AsiturTgn_20259912345",
		TipoRegistro:    "Nuevo",
	}
	if err := st.Insert(ctx, row); err != nil {
		t.Fatal(err)
	}

	ok, err := st.Exists(ctx, "AsiturTgn_20259912345")
	if err != nil {
		t.Fatal(err)
	}
	if !ok {
		t.Error("inserted row not found")
	}

	ok, err = st.Exists(ctx, "AsiturTgn_otro")
	if err != nil {
		t.Fatal(err)
	}
	if ok {
		t.Error("missing row reported as existing")
	}
}

func TestInsert_DuplicateIDUnico(t *testing.T) {
	st := openTemp(t)
	ctx := context.Background()

	row := store.CaseRow{Data: "{}", Cliente: "Ge", IDUnico: "Ge_1001"}
	if err := st.Insert(ctx, row); err != nil {
		t.Fatal(err)
	}

	err := st.Insert(ctx, row)
	if !errors.Is(err, store.ErrDuplicate) {
		t.Fatalf("expected ErrDuplicate, got %v", err)
	}
}

func TestCountByCliente(t *testing.T) {
	st := openTemp(t)
	ctx := context.Background()

	for i, id := range []string{"IM_1", "IM_2", "Ge_1"} {
		cliente := "IMA"
		if i == 2 {
			cliente = "Ge"
		}
		if err := st.Insert(ctx, store.CaseRow{Data: "{}", Cliente: cliente, IDUnico: id}); err != nil {
			t.Fatal(err)
		}
	}

	n, err := st.CountByCliente(ctx, "IMA")
	if err != nil {
		t.Fatal(err)
	}
	if n != 2 {
		t.Errorf("CountByCliente(IMA) = %d, want 2", n)
	}
}

func TestRecordRun(t *testing.T) {
	st := openTemp(t)
	ctx := context.Background()

	entry := store.RunLog{
		ID:         "01J5ABCDEF0123456789ABCDEF",
		Cliente:    "MlSevilla",
		Estado:     "completado",
		Procesados: 3,
		Omitidos:   1,
		StartedAt:  time.Date(2026, 8, 27, 12, 0, 0, 0, time.UTC),
		Duration:   1500 * time.Millisecond,
	}
	if err := st.RecordRun(ctx, entry); err != nil {
		t.Fatal(err)
	}

	// A second run with the same ULID must be rejected by the primary key.
	if err := st.RecordRun(ctx, entry); err == nil {
		t.Error("duplicate run id accepted")
	}
}
