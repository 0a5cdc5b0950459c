package ban

import (
	"context"
	"sync"

	"dustledger/internal/admission/models"
)

// InMemoryStore keeps ban records in a map for tests and single-node runs.
type InMemoryStore struct {
	mu      sync.RWMutex
	records map[string]models.BanRecord
}

func NewInMemoryStore() *InMemoryStore {
	return &InMemoryStore{records: make(map[string]models.BanRecord)}
}

func (s *InMemoryStore) Get(ctx context.Context, actor string) (*models.BanRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	r, ok := s.records[actor]
	if !ok {
		return nil, nil
	}
	cp := r
	if r.ExpiresAt != nil {
		t := *r.ExpiresAt
		cp.ExpiresAt = &t
	}
	return &cp, nil
}

func (s *InMemoryStore) Save(ctx context.Context, record *models.BanRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	cp := *record
	if record.ExpiresAt != nil {
		t := *record.ExpiresAt
		cp.ExpiresAt = &t
	}
	s.records[record.Actor] = cp
	return nil
}

func (s *InMemoryStore) Delete(ctx context.Context, actor string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	delete(s.records, actor)
	return nil
}
