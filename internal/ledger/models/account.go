package models

import (
	"time"

	"dustledger/pkg/domain"
	dErrors "dustledger/pkg/errors"
)

// Account holds one identity's balances. Balance and stake are mutated only
// through the ledger service; stores never apply business rules.
type Account struct {
	ID             domain.AccountID `json:"id"`
	Balance        domain.Amount    `json:"balance"`
	Staked         domain.Amount    `json:"staked"`
	StakeStartedAt *time.Time       `json:"stake_started_at,omitempty"`
	// Reputation is supplied by an external source and is read-only here.
	Reputation     float64   `json:"reputation"`
	CreatedAt      time.Time `json:"created_at"`
	LastActivityAt time.Time `json:"last_activity_at"`
}

// NewAccount creates an empty account with domain invariant validation.
func NewAccount(id domain.AccountID) (*Account, error) {
	if id == "" {
		return nil, dErrors.New(dErrors.CodeInvalidInput, "account id cannot be empty")
	}
	now := time.Now()
	return &Account{ID: id, CreatedAt: now, LastActivityAt: now}, nil
}

// Liquid returns the spendable balance, which is also an account's voting
// weight. Staked funds neither spend nor vote.
func (a *Account) Liquid() domain.Amount {
	return a.Balance
}

// IsDormant reports whether the account has been inactive longer than the
// given window.
func (a *Account) IsDormant(now time.Time, window time.Duration) bool {
	return now.Sub(a.LastActivityAt) > window
}
