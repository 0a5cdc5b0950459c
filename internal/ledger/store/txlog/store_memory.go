package txlog

import (
	"context"
	"sync"
	"time"

	"dustledger/internal/ledger/models"
	"dustledger/pkg/domain"
)

// InMemoryStore is the append-only transaction log backed by a slice.
// Entries are stored in append order, which is also timestamp order.
type InMemoryStore struct {
	mu      sync.RWMutex
	entries []models.Transaction
}

func NewInMemoryStore() *InMemoryStore {
	return &InMemoryStore{}
}

func (s *InMemoryStore) Append(_ context.Context, tx *models.Transaction) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.entries = append(s.entries, *tx)
	return nil
}

func (s *InMemoryStore) ListRecent(_ context.Context, limit int) ([]*models.Transaction, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if limit <= 0 || limit > len(s.entries) {
		limit = len(s.entries)
	}
	out := make([]*models.Transaction, 0, limit)
	for i := len(s.entries) - 1; i >= len(s.entries)-limit; i-- {
		copied := s.entries[i]
		out = append(out, &copied)
	}
	return out, nil
}

func (s *InMemoryStore) ListByActor(_ context.Context, actor domain.AccountID, limit int) ([]*models.Transaction, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []*models.Transaction
	for i := len(s.entries) - 1; i >= 0; i-- {
		if s.entries[i].Actor != actor {
			continue
		}
		copied := s.entries[i]
		out = append(out, &copied)
		if limit > 0 && len(out) == limit {
			break
		}
	}
	return out, nil
}

func (s *InMemoryStore) ListSince(_ context.Context, since time.Time) ([]*models.Transaction, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []*models.Transaction
	for i := range s.entries {
		if s.entries[i].Timestamp.Before(since) {
			continue
		}
		copied := s.entries[i]
		out = append(out, &copied)
	}
	return out, nil
}
