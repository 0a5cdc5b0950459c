package models

import (
	"time"

	"github.com/google/uuid"

	"dustledger/pkg/domain"
	dErrors "dustledger/pkg/errors"
)

// TransactionKind is the closed set of ledger mutations. Every state change
// appends exactly one transaction of one of these kinds; there is no
// free-form event type.
type TransactionKind string

const (
	KindCredit     TransactionKind = "credit"
	KindDebit      TransactionKind = "debit"
	KindTransfer   TransactionKind = "transfer"
	KindBurn       TransactionKind = "burn"
	KindStake      TransactionKind = "stake"
	KindUnstake    TransactionKind = "unstake"
	KindRedemption TransactionKind = "redemption"
)

// IsValid checks if the kind is one of the supported enum values.
func (k TransactionKind) IsValid() bool {
	switch k {
	case KindCredit, KindDebit, KindTransfer, KindBurn, KindStake, KindUnstake, KindRedemption:
		return true
	}
	return false
}

// Transaction is one immutable entry of the append-only log. The log is the
// source of truth for audit and trajectory analytics; entries are never
// updated or deleted.
type Transaction struct {
	ID        string           `json:"id"`
	Timestamp time.Time        `json:"timestamp"`
	Actor     domain.AccountID `json:"actor"`
	Kind      TransactionKind  `json:"kind"`
	Amount    domain.Amount    `json:"amount"`
	// Balance is the actor's balance after the mutation was applied.
	Balance domain.Amount `json:"balance"`
	Note    string        `json:"note,omitempty"`
}

// NewTransaction creates a log entry with domain invariant validation.
func NewTransaction(actor domain.AccountID, kind TransactionKind, amount, balance domain.Amount, note string) (*Transaction, error) {
	if actor == "" {
		return nil, dErrors.New(dErrors.CodeInvalidInput, "actor cannot be empty")
	}
	if !kind.IsValid() {
		return nil, dErrors.Newf(dErrors.CodeInvalidInput, "invalid transaction kind %q", kind)
	}
	return &Transaction{
		ID:        uuid.NewString(),
		Timestamp: time.Now(),
		Actor:     actor,
		Kind:      kind,
		Amount:    amount,
		Balance:   balance,
		Note:      note,
	}, nil
}
