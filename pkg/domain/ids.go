package domain

import (
	"strings"

	dErrors "dustledger/pkg/errors"
)

// AccountID is the opaque identity key an account is stored under. The ledger
// does not interpret it beyond non-emptiness; callers own the namespace.
type AccountID string

// Well-known system accounts. They participate in normal ledger accounting so
// the conservation law stays checkable over the whole transaction log.
const (
	// BurnAccount accumulates transfer burns removed from circulation.
	BurnAccount AccountID = "system:burn"
	// TreasuryAccount accumulates unstaking fees.
	TreasuryAccount AccountID = "system:treasury"
	// GovernanceAccount accumulates proposal fees.
	GovernanceAccount AccountID = "system:governance"
)

// ParseAccountID validates an identity key at the trust boundary.
func ParseAccountID(s string) (AccountID, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return "", dErrors.New(dErrors.CodeInvalidInput, "account id cannot be empty")
	}
	return AccountID(s), nil
}

// IsSystem reports whether the account is one of the internal bookkeeping
// accounts that are permitted to hold policy-exempt balances.
func (id AccountID) IsSystem() bool {
	return strings.HasPrefix(string(id), "system:")
}

func (id AccountID) String() string { return string(id) }
