package reserve

import (
	"context"
	"sync"

	"dustledger/internal/ledger/models"
	"dustledger/pkg/domain"
)

// InMemoryStore holds the single aggregate reserve record.
type InMemoryStore struct {
	mu      sync.RWMutex
	reserve models.Reserve
}

func NewInMemoryStore(backingRatio float64) *InMemoryStore {
	return &InMemoryStore{reserve: models.Reserve{BackingRatio: backingRatio}}
}

func (s *InMemoryStore) Get(_ context.Context) (models.Reserve, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.reserve, nil
}

func (s *InMemoryStore) Add(_ context.Context, units domain.Amount) (models.Reserve, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.reserve.Units += units
	return s.reserve, nil
}
