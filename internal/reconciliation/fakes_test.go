package reconciliation

import (
	"context"
	"sort"
	"sync"

	"github.com/wakala/status-reconciler/internal/domain"
)

type fakeSource struct {
	mu      sync.Mutex
	reports [][]byte
	err     error
	calls   int
}

func (s *fakeSource) FetchReport(ctx context.Context) ([]byte, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.calls++
	if s.err != nil {
		return nil, s.err
	}
	if len(s.reports) == 0 {
		return []byte(`{}`), nil
	}
	r := s.reports[0]
	if len(s.reports) > 1 {
		s.reports = s.reports[1:]
	}
	return r, nil
}

// memStore is a TransactionStore that applies saves only when the locked
// function returns nil.
type memStore struct {
	mu        sync.Mutex
	txns      map[string]domain.Transaction
	lockCalls int
	saved     []domain.Transaction

	findErr     error
	saveErr     error
	panicOnSave bool
}

func newMemStore(txns ...domain.Transaction) *memStore {
	s := &memStore{txns: make(map[string]domain.Transaction)}
	for _, tx := range txns {
		s.txns[tx.ID] = tx
	}
	return s
}

func (s *memStore) WithinLock(ctx context.Context, fn func(domain.LockedTransactions) error) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.lockCalls++

	l := &memLocked{store: s}
	if err := fn(l); err != nil {
		return err
	}
	for _, tx := range l.pending {
		s.txns[tx.ID] = tx
	}
	s.saved = append(s.saved, l.pending...)
	return nil
}

func (s *memStore) get(id string) domain.Transaction {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.txns[id]
}

type memLocked struct {
	store   *memStore
	pending []domain.Transaction
}

func (l *memLocked) FindEligibleByIDs(ctx context.Context, ids []string) ([]domain.Transaction, error) {
	if l.store.findErr != nil {
		return nil, l.store.findErr
	}
	var out []domain.Transaction
	for _, id := range ids {
		tx, ok := l.store.txns[id]
		if ok && tx.Status == domain.StatusEligible {
			out = append(out, tx)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (l *memLocked) SaveAll(ctx context.Context, txns []domain.Transaction) error {
	if l.store.panicOnSave {
		panic("store exploded")
	}
	if l.store.saveErr != nil {
		return l.store.saveErr
	}
	l.pending = append(l.pending, txns...)
	return nil
}

type fakeRecorder struct {
	mu     sync.Mutex
	cycles []*domain.Cycle
	err    error
}

func (r *fakeRecorder) RecordCycle(ctx context.Context, c *domain.Cycle) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.cycles = append(r.cycles, c)
	return r.err
}
