// Package memstore is an in-memory Store used by unit tests.
package memstore

import (
	"context"
	"sync"

	"github.com/zasylogic/casebridge/internal/store"
)

// MemStore keeps rows in a map keyed by id_unico. The zero value is not
// usable; call New.
type MemStore struct {
	mu     sync.Mutex
	rows   map[string]store.CaseRow
	order  []string
	runs   []store.RunLog
	nextID int64

	// ExistsFn, when set, replaces the existence lookup. Tests use it to
	// simulate a pre-check racing a concurrent insert.
	ExistsFn func(idUnico string) (bool, error)

	// InsertErr, when set, is returned by the next Insert call and then
	// cleared. Lets tests exercise non-duplicate storage failures.
	InsertErr error
}

// New returns an empty in-memory store.
func New() *MemStore {
	return &MemStore{rows: make(map[string]store.CaseRow)}
}

func (m *MemStore) Exists(_ context.Context, idUnico string) (bool, error) {
	if m.ExistsFn != nil {
		return m.ExistsFn(idUnico)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	_, ok := m.rows[idUnico]
	return ok, nil
}

func (m *MemStore) Insert(_ context.Context, row store.CaseRow) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.InsertErr != nil {
		err := m.InsertErr
		m.InsertErr = nil
		return err
	}
	if _, ok := m.rows[row.IDUnico]; ok {
		return store.ErrDuplicate
	}
	m.nextID++
	row.ID = m.nextID
	if row.Status == "" {
		row.Status = "pendiente"
	}
	m.rows[row.IDUnico] = row
	m.order = append(m.order, row.IDUnico)
	return nil
}

func (m *MemStore) CountByCliente(_ context.Context, cliente string) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	n := 0
	for _, r := range m.rows {
		if r.Cliente == cliente {
			n++
		}
	}
	return n, nil
}

func (m *MemStore) RecordRun(_ context.Context, log store.RunLog) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.runs = append(m.runs, log)
	return nil
}

func (m *MemStore) Close() error { return nil }

// Rows returns the stored rows in insertion order.
func (m *MemStore) Rows() []store.CaseRow {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]store.CaseRow, 0, len(m.order))
	for _, k := range m.order {
		out = append(out, m.rows[k])
	}
	return out
}

// Runs returns the recorded run logs.
func (m *MemStore) Runs() []store.RunLog {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]store.RunLog(nil), m.runs...)
}
