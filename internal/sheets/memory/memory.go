package memory

import (
	"context"
	"sync"

	"ledger/internal/core"
	ports "ledger/internal/sheets"
)

// Mirror is an in-process TransactionMirror, used when no spreadsheet is
// configured and in tests.
type Mirror struct {
	mu   sync.Mutex
	rows []core.Transaction
}

var _ ports.TransactionMirror = (*Mirror)(nil)

func New() *Mirror {
	return &Mirror{}
}

func (m *Mirror) Append(_ context.Context, t core.Transaction) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.rows = append(m.rows, t)
	return nil
}

func (m *Mirror) Remove(_ context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for i, t := range m.rows {
		if t.ID == id {
			m.rows = append(m.rows[:i], m.rows[i+1:]...)
			return nil
		}
	}
	return nil
}

func (m *Mirror) ReplaceAll(_ context.Context, ts []core.Transaction) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.rows = append([]core.Transaction(nil), ts...)
	return nil
}

// Rows returns a copy of the mirrored transactions in sheet order.
func (m *Mirror) Rows() []core.Transaction {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]core.Transaction(nil), m.rows...)
}
