package proposal

import (
	"context"
	"sync"

	"dustledger/internal/ledger/models"
	dErrors "dustledger/pkg/errors"
)

// InMemoryStore keeps proposals and their embedded vote sets in a map.
// Reads return deep copies; the service layer serializes vote mutations.
type InMemoryStore struct {
	mu        sync.RWMutex
	proposals map[string]*models.Proposal
}

func NewInMemoryStore() *InMemoryStore {
	return &InMemoryStore{proposals: make(map[string]*models.Proposal)}
}

func (s *InMemoryStore) Create(_ context.Context, proposal *models.Proposal) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.proposals[proposal.ID]; ok {
		return dErrors.Newf(dErrors.CodeConflict, "proposal %s already exists", proposal.ID)
	}
	s.proposals[proposal.ID] = proposal.Clone()
	return nil
}

func (s *InMemoryStore) Get(_ context.Context, id string) (*models.Proposal, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if proposal, ok := s.proposals[id]; ok {
		return proposal.Clone(), nil
	}
	return nil, dErrors.Newf(dErrors.CodeNotFound, "proposal %s not found", id)
}

func (s *InMemoryStore) Update(_ context.Context, proposal *models.Proposal) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.proposals[proposal.ID]; !ok {
		return dErrors.Newf(dErrors.CodeNotFound, "proposal %s not found", proposal.ID)
	}
	s.proposals[proposal.ID] = proposal.Clone()
	return nil
}

func (s *InMemoryStore) ListActive(_ context.Context) ([]*models.Proposal, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []*models.Proposal
	for _, proposal := range s.proposals {
		if proposal.Status == models.ProposalActive {
			out = append(out, proposal.Clone())
		}
	}
	return out, nil
}

func (s *InMemoryStore) List(_ context.Context) ([]*models.Proposal, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]*models.Proposal, 0, len(s.proposals))
	for _, proposal := range s.proposals {
		out = append(out, proposal.Clone())
	}
	return out, nil
}
