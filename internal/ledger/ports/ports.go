// Package ports defines the persistence interfaces for the ledger module.
// Stores are pure I/O: every business rule (overdraft policy, vote
// uniqueness, resolution thresholds) lives in the service layer so memory and
// postgres implementations stay interchangeable.
package ports

import (
	"context"
	"time"

	"dustledger/internal/ledger/models"
	"dustledger/pkg/domain"
)

// AccountStore persists per-identity balances and stake state.
type AccountStore interface {
	// Get retrieves an account, returning a coded not_found error when the
	// identity is unknown.
	Get(ctx context.Context, id domain.AccountID) (*models.Account, error)

	// GetOrCreate retrieves an account, creating an empty one on first use.
	GetOrCreate(ctx context.Context, id domain.AccountID) (*models.Account, error)

	// Save upserts the full account record.
	Save(ctx context.Context, account *models.Account) error

	// List returns every account. Used by the observability layer only.
	List(ctx context.Context) ([]*models.Account, error)
}

// TransactionLog is the append-only record of every ledger mutation.
type TransactionLog interface {
	Append(ctx context.Context, tx *models.Transaction) error

	// ListRecent returns up to limit entries, newest first.
	ListRecent(ctx context.Context, limit int) ([]*models.Transaction, error)

	// ListByActor returns up to limit entries for one actor, newest first.
	ListByActor(ctx context.Context, actor domain.AccountID, limit int) ([]*models.Transaction, error)

	// ListSince returns all entries at or after the given time, oldest first.
	ListSince(ctx context.Context, since time.Time) ([]*models.Transaction, error)
}

// ProposalStore persists governance proposals and their embedded votes.
type ProposalStore interface {
	Create(ctx context.Context, proposal *models.Proposal) error

	Get(ctx context.Context, id string) (*models.Proposal, error)

	// Update replaces the stored proposal, including tallies and vote set.
	Update(ctx context.Context, proposal *models.Proposal) error

	// ListActive returns proposals still in the active status.
	ListActive(ctx context.Context) ([]*models.Proposal, error)

	// List returns every proposal regardless of status. Used by the
	// observability layer, which must see resolved proposals' votes too.
	List(ctx context.Context) ([]*models.Proposal, error)
}

// ReserveStore persists the aggregate external-asset backing.
type ReserveStore interface {
	Get(ctx context.Context) (models.Reserve, error)

	// Add atomically increments the reserve units and returns the new state.
	Add(ctx context.Context, units domain.Amount) (models.Reserve, error)
}

// ReputationSource supplies externally computed reputation scores. The
// ledger never writes reputation.
type ReputationSource interface {
	Reputation(ctx context.Context, id domain.AccountID) (float64, error)
}
