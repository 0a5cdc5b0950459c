package models

import (
	"time"

	dErrors "dustledger/pkg/errors"
)

// Action categorizes mutating ledger calls for differentiated rate limiting
// and structural payload checks.
type Action string

const (
	ActionCredit   Action = "credit"
	ActionDebit    Action = "debit"
	ActionTransfer Action = "transfer"
	ActionStake    Action = "stake"
	ActionUnstake  Action = "unstake"
	ActionProposal Action = "proposal"
	ActionVote     Action = "vote"
	ActionWager    Action = "wager"
	ActionReserve  Action = "reserve"
)

// IsValid checks if the action is one of the supported enum values.
func (a Action) IsValid() bool {
	switch a {
	case ActionCredit, ActionDebit, ActionTransfer, ActionStake, ActionUnstake,
		ActionProposal, ActionVote, ActionWager, ActionReserve:
		return true
	}
	return false
}

// Request is one admission check in front of a mutating ledger call.
type Request struct {
	// Caller is the internal module asking on the actor's behalf.
	Caller string `json:"caller"`
	// Actor is the identity the rate limits and bans attach to.
	Actor   string            `json:"actor"`
	Action  Action            `json:"action"`
	Payload map[string]string `json:"payload,omitempty"`
}

// Validate enforces request invariants at the trust boundary.
func (r Request) Validate() error {
	if r.Caller == "" {
		return dErrors.New(dErrors.CodeInvalidInput, "caller cannot be empty")
	}
	if r.Actor == "" {
		return dErrors.New(dErrors.CodeInvalidInput, "actor cannot be empty")
	}
	if !r.Action.IsValid() {
		return dErrors.Newf(dErrors.CodeInvalidInput, "unknown action %q", r.Action)
	}
	return nil
}

// Result is the outcome of an admission check. Rejections are ordinary
// values, never errors; only storage failures surface as errors.
type Result struct {
	Allowed bool `json:"allowed"`
	// Code classifies the rejection when Allowed is false.
	Code dErrors.Code `json:"code,omitempty"`
	// Reason names the violated rule or offending pattern.
	Reason string `json:"reason,omitempty"`
	// RetryAfter is the seconds until the window resets or the ban lifts.
	RetryAfter int       `json:"retry_after,omitempty"`
	ResetAt    time.Time `json:"reset_at,omitzero"`
	// Remaining is the allowance left in the tighter window when allowed.
	Remaining int `json:"remaining"`
}

// Limits caps one action's rate: a burst window and an hourly window.
type Limits struct {
	Burst  int
	Hourly int
}

// Window is one fixed rate-limit window's state for a (actor, action) key.
type Window struct {
	Count   int       `json:"count"`
	StartAt time.Time `json:"start_at"`
}

// BanRecord tracks an actor's violation escalation. A nil ExpiresAt means
// the actor is not banned; violations accumulate until the threshold trips.
type BanRecord struct {
	Actor      string     `json:"actor"`
	Violations int        `json:"violations"`
	ExpiresAt  *time.Time `json:"expires_at,omitempty"`
}

// IsBanned checks whether a ban is in force at the given time.
func (b *BanRecord) IsBanned(now time.Time) bool {
	return b != nil && b.ExpiresAt != nil && now.Before(*b.ExpiresAt)
}
