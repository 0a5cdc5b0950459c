package account

import (
	"context"
	"sync"

	"dustledger/internal/ledger/models"
	"dustledger/pkg/domain"
	dErrors "dustledger/pkg/errors"
)

// InMemoryStore keeps accounts in a map. It intentionally favors clarity
// over performance; the service layer owns serialization of mutations.
type InMemoryStore struct {
	mu       sync.RWMutex
	accounts map[domain.AccountID]models.Account
}

func NewInMemoryStore() *InMemoryStore {
	return &InMemoryStore{accounts: make(map[domain.AccountID]models.Account)}
}

func (s *InMemoryStore) Get(_ context.Context, id domain.AccountID) (*models.Account, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if account, ok := s.accounts[id]; ok {
		return &account, nil
	}
	return nil, dErrors.Newf(dErrors.CodeNotFound, "account %s not found", id)
}

func (s *InMemoryStore) GetOrCreate(_ context.Context, id domain.AccountID) (*models.Account, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if account, ok := s.accounts[id]; ok {
		return &account, nil
	}
	account, err := models.NewAccount(id)
	if err != nil {
		return nil, err
	}
	s.accounts[id] = *account
	created := *account
	return &created, nil
}

func (s *InMemoryStore) Save(_ context.Context, account *models.Account) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.accounts[account.ID] = *account
	return nil
}

func (s *InMemoryStore) List(_ context.Context) ([]*models.Account, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]*models.Account, 0, len(s.accounts))
	for _, account := range s.accounts {
		copied := account
		out = append(out, &copied)
	}
	return out, nil
}
