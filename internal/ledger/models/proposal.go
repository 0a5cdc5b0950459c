package models

import (
	"time"

	"github.com/google/uuid"

	"dustledger/pkg/domain"
	dErrors "dustledger/pkg/errors"
)

// ProposalStatus is the lifecycle of a governance proposal. Active is the
// only non-terminal state.
type ProposalStatus string

const (
	ProposalActive ProposalStatus = "active"
	ProposalPassed ProposalStatus = "passed"
	ProposalFailed ProposalStatus = "failed"
)

// IsValid checks if the status is one of the supported enum values.
func (s ProposalStatus) IsValid() bool {
	switch s {
	case ProposalActive, ProposalPassed, ProposalFailed:
		return true
	}
	return false
}

// VoteChoice is a yes/no governance vote.
type VoteChoice string

const (
	VoteYes VoteChoice = "yes"
	VoteNo  VoteChoice = "no"
)

// IsValid checks if the choice is one of the supported enum values.
func (c VoteChoice) IsValid() bool {
	return c == VoteYes || c == VoteNo
}

// Vote records one voter's weighted choice. The (proposal, voter) pair is
// unique; a voter appears at most once.
type Vote struct {
	Voter  domain.AccountID `json:"voter"`
	Choice VoteChoice       `json:"choice"`
	Weight domain.Amount    `json:"weight"`
	CastAt time.Time        `json:"cast_at"`
}

// Proposal is a governance item voted on with balance-weighted ballots.
// Mutated only by vote casting and the expiry-resolution sweep; terminal once
// resolved.
type Proposal struct {
	ID          string            `json:"id"`
	Creator     domain.AccountID  `json:"creator"`
	Description string            `json:"description"`
	Parameters  map[string]string `json:"parameters,omitempty"`
	YesWeight   domain.Amount     `json:"yes_weight"`
	NoWeight    domain.Amount     `json:"no_weight"`
	Votes       map[domain.AccountID]Vote `json:"votes"`
	Status      ProposalStatus    `json:"status"`
	CreatedAt   time.Time         `json:"created_at"`
	ExpiresAt   time.Time         `json:"expires_at"`
}

// NewProposal creates an active proposal with domain invariant validation.
func NewProposal(creator domain.AccountID, description string, params map[string]string, duration time.Duration) (*Proposal, error) {
	if creator == "" {
		return nil, dErrors.New(dErrors.CodeInvalidInput, "creator cannot be empty")
	}
	if description == "" {
		return nil, dErrors.New(dErrors.CodeInvalidInput, "description cannot be empty")
	}
	if duration <= 0 {
		return nil, dErrors.New(dErrors.CodeInvalidInput, "duration must be positive")
	}
	now := time.Now()
	return &Proposal{
		ID:          uuid.NewString(),
		Creator:     creator,
		Description: description,
		Parameters:  params,
		Votes:       make(map[domain.AccountID]Vote),
		Status:      ProposalActive,
		CreatedAt:   now,
		ExpiresAt:   now.Add(duration),
	}, nil
}

// IsExpired reports whether the voting window has closed.
func (p *Proposal) IsExpired(now time.Time) bool {
	return !now.Before(p.ExpiresAt)
}

// HasVoted reports whether the voter already cast a ballot.
func (p *Proposal) HasVoted(voter domain.AccountID) bool {
	_, ok := p.Votes[voter]
	return ok
}

// Resolve computes the terminal status at expiry. A proposal with zero total
// weight always fails.
func (p *Proposal) Resolve(passThreshold float64) ProposalStatus {
	total := p.YesWeight + p.NoWeight
	if total <= 0 {
		return ProposalFailed
	}
	yesRatio := float64(p.YesWeight) / float64(total)
	if yesRatio >= passThreshold {
		return ProposalPassed
	}
	return ProposalFailed
}

// Clone deep-copies the proposal so store reads never share vote maps with
// callers.
func (p *Proposal) Clone() *Proposal {
	cloned := *p
	cloned.Votes = make(map[domain.AccountID]Vote, len(p.Votes))
	for k, v := range p.Votes {
		cloned.Votes[k] = v
	}
	if p.Parameters != nil {
		cloned.Parameters = make(map[string]string, len(p.Parameters))
		for k, v := range p.Parameters {
			cloned.Parameters[k] = v
		}
	}
	return &cloned
}
