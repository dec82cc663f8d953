package memory

import (
	"context"
	"slices"

	"treemark/internal/domain/models/bookmarks"
	"treemark/internal/domain/repositories"
)

type txContextKey struct{}

// TransactionManager gives the memory store all-or-nothing mutations:
// callers are serialized and the record set is restored if fn fails.
type TransactionManager struct {
	store *Store
}

// NewTransactionManager creates a transaction manager for store.
func NewTransactionManager(store *Store) repositories.TransactionManager {
	return &TransactionManager{store: store}
}

// ExecTx runs fn with exclusive access to the store. Nested calls run fn
// directly inside the outer transaction.
func (tm *TransactionManager) ExecTx(ctx context.Context, fn repositories.TxFn) error {
	if ctx.Value(txContextKey{}) != nil {
		return fn(ctx)
	}

	s := tm.store
	s.txMu.Lock()
	defer s.txMu.Unlock()

	snapshot := s.snapshot()
	if err := fn(context.WithValue(ctx, txContextKey{}, true)); err != nil {
		s.restore(snapshot)
		return err
	}
	return nil
}

func (s *Store) snapshot() []bookmarks.Bookmark {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]bookmarks.Bookmark, len(s.records))
	for i, r := range s.records {
		out[i] = r.Clone()
	}
	return out
}

func (s *Store) restore(records []bookmarks.Bookmark) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.records = slices.Clip(records)
	s.reindex()
}
