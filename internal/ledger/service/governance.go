package service

import (
	"context"
	"time"

	"dustledger/internal/ledger/models"
	"dustledger/pkg/domain"
	dErrors "dustledger/pkg/errors"
	"dustledger/pkg/platform/audit"
	"dustledger/pkg/requestcontext"
)

// CreateProposal opens an active proposal after debiting the fixed fee from
// the creator. The fee lands in the governance account so it stays inside
// the conservation law.
func (s *Service) CreateProposal(ctx context.Context, creator domain.AccountID, description string, params map[string]string) (*models.Proposal, error) {
	if err := guardSystem(creator); err != nil {
		return nil, err
	}
	proposal, err := models.NewProposal(creator, description, params, s.cfg.ProposalDuration)
	if err != nil {
		return nil, err
	}
	proposal.CreatedAt = requestcontext.Now(ctx)
	proposal.ExpiresAt = proposal.CreatedAt.Add(s.cfg.ProposalDuration)

	fee := domain.AmountFromFloat(s.cfg.ProposalFee)
	if err := s.Debit(ctx, creator, fee, "proposal fee"); err != nil {
		return nil, err
	}
	if err := s.creditGovernance(ctx, fee); err != nil {
		return nil, err
	}

	if err := s.proposals.Create(ctx, proposal); err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "create proposal")
	}

	s.emit(ctx, audit.Event{
		Timestamp: proposal.CreatedAt,
		Actor:     creator,
		Action:    audit.EventProposalCreated,
		Decision:  "applied",
		Amount:    fee,
		Details:   map[string]string{"proposal_id": proposal.ID},
	})
	return proposal, nil
}

// CastVote adds the voter's balance-weighted ballot to an active proposal.
// Vote tallies are serialized per proposal; a vote that loses the race
// against resolution is rejected as closed, never silently dropped.
func (s *Service) CastVote(ctx context.Context, proposalID string, voter domain.AccountID, choice models.VoteChoice) error {
	if !choice.IsValid() {
		return dErrors.Newf(dErrors.CodeInvalidInput, "invalid vote choice %q", choice)
	}

	unlock := s.proposalLocks.lock(proposalID)
	defer unlock()

	proposal, err := s.proposals.Get(ctx, proposalID)
	if err != nil {
		return err
	}
	now := requestcontext.Now(ctx)
	if proposal.Status != models.ProposalActive || proposal.IsExpired(now) {
		return dErrors.New(dErrors.CodeConflict, "proposal is closed")
	}
	if proposal.HasVoted(voter) {
		return dErrors.Newf(dErrors.CodeAlreadyActed, "voter %s already voted", voter)
	}

	weight, err := s.votingWeight(ctx, voter)
	if err != nil {
		return err
	}
	if weight <= 0 {
		return dErrors.Newf(dErrors.CodeInvalidInput, "voter %s has no voting power", voter)
	}

	vote := models.Vote{Voter: voter, Choice: choice, Weight: weight, CastAt: now}
	proposal.Votes[voter] = vote
	switch choice {
	case models.VoteYes:
		proposal.YesWeight += weight
	case models.VoteNo:
		proposal.NoWeight += weight
	}

	if err := s.proposals.Update(ctx, proposal); err != nil {
		return dErrors.Wrap(err, dErrors.CodeInternal, "update proposal")
	}

	s.emit(ctx, audit.Event{
		Timestamp: now,
		Actor:     voter,
		Action:    audit.EventVoteCast,
		Decision:  string(choice),
		Amount:    weight,
		Details:   map[string]string{"proposal_id": proposalID},
	})
	return nil
}

// votingWeight is the voter's current liquid balance. Unknown voters have
// zero weight rather than an error; the zero-power rejection covers them.
func (s *Service) votingWeight(ctx context.Context, voter domain.AccountID) (domain.Amount, error) {
	account, err := s.accounts.Get(ctx, voter)
	if err != nil {
		if dErrors.HasCode(err, dErrors.CodeNotFound) {
			return 0, nil
		}
		return 0, dErrors.Wrap(err, dErrors.CodeInternal, "load voter")
	}
	return account.Liquid(), nil
}

// ResolveExpiredProposals sweeps every active proposal whose expiry passed,
// settling each to passed or failed. The sweep is idempotent and safe to run
// concurrently with vote casting; the caller's scheduler owns the cadence.
func (s *Service) ResolveExpiredProposals(ctx context.Context, now time.Time) (int, error) {
	active, err := s.proposals.ListActive(ctx)
	if err != nil {
		return 0, dErrors.Wrap(err, dErrors.CodeInternal, "list active proposals")
	}

	resolved := 0
	for _, candidate := range active {
		if !candidate.IsExpired(now) {
			continue
		}
		if err := s.resolveOne(ctx, candidate.ID, now); err != nil {
			return resolved, err
		}
		resolved++
	}
	return resolved, nil
}

func (s *Service) resolveOne(ctx context.Context, proposalID string, now time.Time) error {
	unlock := s.proposalLocks.lock(proposalID)
	defer unlock()

	// Re-read under the lock: a vote may have landed since the sweep list.
	proposal, err := s.proposals.Get(ctx, proposalID)
	if err != nil {
		return err
	}
	if proposal.Status != models.ProposalActive || !proposal.IsExpired(now) {
		return nil
	}

	proposal.Status = proposal.Resolve(s.cfg.PassThreshold)
	if err := s.proposals.Update(ctx, proposal); err != nil {
		return dErrors.Wrap(err, dErrors.CodeInternal, "resolve proposal")
	}

	s.emit(ctx, audit.Event{
		Timestamp: now,
		Actor:     proposal.Creator,
		Action:    audit.EventProposalResolved,
		Decision:  string(proposal.Status),
		Details: map[string]string{
			"proposal_id": proposal.ID,
			"yes_weight":  proposal.YesWeight.String(),
			"no_weight":   proposal.NoWeight.String(),
		},
	})
	return nil
}

// ActiveProposals lists proposals still open for voting.
func (s *Service) ActiveProposals(ctx context.Context) ([]*models.Proposal, error) {
	proposals, err := s.proposals.ListActive(ctx)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "list active proposals")
	}
	return proposals, nil
}

func (s *Service) creditGovernance(ctx context.Context, fee domain.Amount) error {
	unlock := s.accountLocks.lock(domain.GovernanceAccount)
	defer unlock()
	return s.mutateLocked(ctx, domain.GovernanceAccount, models.KindCredit, fee, "proposal fee", func(account *models.Account) error {
		account.Balance += fee
		return nil
	})
}
