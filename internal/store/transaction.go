package store

import (
	"sync"

	"github.com/efreitasn/marketsim/internal/domain"
)

// TransactionStore is a thread-safe, append-only log of settled
// transactions. The global slice preserves settlement order across all
// instruments; the per-symbol view preserves it within one.
type TransactionStore struct {
	mu       sync.RWMutex
	all      []*domain.Transaction
	bySymbol map[string][]*domain.Transaction
}

// NewTransactionStore creates an empty TransactionStore.
func NewTransactionStore() *TransactionStore {
	return &TransactionStore{
		bySymbol: make(map[string][]*domain.Transaction),
	}
}

// Append adds a transaction to the log.
func (s *TransactionStore) Append(t *domain.Transaction) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.all = append(s.all, t)
	s.bySymbol[t.Symbol] = append(s.bySymbol[t.Symbol], t)
}

// All returns every transaction in settlement order.
func (s *TransactionStore) All() []*domain.Transaction {
	s.mu.RLock()
	defer s.mu.RUnlock()

	result := make([]*domain.Transaction, len(s.all))
	copy(result, s.all)
	return result
}

// BySymbol returns all transactions for one instrument in settlement order.
// Returns an empty slice if the instrument never traded.
func (s *TransactionStore) BySymbol(symbol string) []*domain.Transaction {
	s.mu.RLock()
	defer s.mu.RUnlock()

	txs := s.bySymbol[symbol]
	if txs == nil {
		return []*domain.Transaction{}
	}
	result := make([]*domain.Transaction, len(txs))
	copy(result, txs)
	return result
}

// Len returns the total number of settled transactions.
func (s *TransactionStore) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return len(s.all)
}
