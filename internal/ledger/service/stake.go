package service

import (
	"context"

	"dustledger/internal/ledger/models"
	"dustledger/pkg/domain"
	dErrors "dustledger/pkg/errors"
	"dustledger/pkg/platform/audit"
	"dustledger/pkg/requestcontext"
)

// UnstakeResult itemizes what an unstake returned to the account. Principal
// and yield are credited as separate log entries so audits can tell them
// apart.
type UnstakeResult struct {
	Principal domain.Amount `json:"principal"`
	Yield     domain.Amount `json:"yield"`
	Fee       domain.Amount `json:"fee"`
}

// Stake moves amount from the liquid balance into the stake. The stake clock
// starts when a stake is opened and is not reset by topping up.
func (s *Service) Stake(ctx context.Context, id domain.AccountID, amount domain.Amount) error {
	if err := guardSystem(id); err != nil {
		s.recordOp(models.KindStake, "rejected")
		return err
	}
	if amount <= 0 {
		s.recordOp(models.KindStake, "rejected")
		return dErrors.New(dErrors.CodeInvalidInput, "stake amount must be positive")
	}
	unlock := s.accountLocks.lock(id)
	defer unlock()

	now := requestcontext.Now(ctx)
	err := s.mutateLocked(ctx, id, models.KindStake, amount, "stake", func(account *models.Account) error {
		if account.Balance < amount {
			return dErrors.Newf(dErrors.CodeInsufficientFunds,
				"balance %s is less than stake %s", account.Balance, amount)
		}
		account.Balance -= amount
		if account.Staked == 0 {
			start := now
			account.StakeStartedAt = &start
		}
		account.Staked += amount
		return nil
	})
	s.recordOp(models.KindStake, outcome(err))
	return err
}

// Unstake returns amount of staked principal to the liquid balance. The
// prorated yield is credited separately and in full; the unstaking fee comes
// out of principal only and is routed to the treasury.
func (s *Service) Unstake(ctx context.Context, id domain.AccountID, amount domain.Amount) (*UnstakeResult, error) {
	if err := guardSystem(id); err != nil {
		s.recordOp(models.KindUnstake, "rejected")
		return nil, err
	}
	if amount <= 0 {
		s.recordOp(models.KindUnstake, "rejected")
		return nil, dErrors.New(dErrors.CodeInvalidInput, "unstake amount must be positive")
	}
	unlock := s.accountLocks.lock(id)
	defer unlock()

	now := requestcontext.Now(ctx)

	account, err := s.accounts.GetOrCreate(ctx, id)
	if err != nil {
		s.recordOp(models.KindUnstake, "error")
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "load account")
	}
	if account.Staked < amount {
		s.recordOp(models.KindUnstake, "rejected")
		return nil, dErrors.Newf(dErrors.CodeInsufficientStake,
			"staked %s is less than unstake %s", account.Staked, amount)
	}

	var days float64
	if account.StakeStartedAt != nil {
		days = elapsedDays(now.Sub(*account.StakeStartedAt))
	}
	yield := amount.MulRate(s.cfg.StakeAPR * days / 365)
	fee := amount.MulRate(s.cfg.UnstakeFeeRate)
	principal := amount - fee

	account.Staked -= amount
	if account.Staked == 0 {
		account.StakeStartedAt = nil
	}
	account.Balance += principal
	account.LastActivityAt = now
	if err := s.accounts.Save(ctx, account); err != nil {
		s.recordOp(models.KindUnstake, "error")
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "save account")
	}
	if err := s.appendLog(ctx, id, models.KindUnstake, principal, account.Balance, "unstake principal"); err != nil {
		s.recordOp(models.KindUnstake, "error")
		return nil, err
	}

	// Yield is a separate credit entry so audit can distinguish returned
	// principal from newly minted yield.
	if yield > 0 {
		account.Balance += yield
		if err := s.accounts.Save(ctx, account); err != nil {
			s.recordOp(models.KindUnstake, "error")
			return nil, dErrors.Wrap(err, dErrors.CodeInternal, "save account")
		}
		if err := s.appendLog(ctx, id, models.KindCredit, yield, account.Balance, "stake yield"); err != nil {
			s.recordOp(models.KindUnstake, "error")
			return nil, err
		}
	}

	if fee > 0 {
		if err := s.creditTreasury(ctx, fee); err != nil {
			s.recordOp(models.KindUnstake, "error")
			return nil, err
		}
	}

	s.emit(ctx, audit.Event{
		Timestamp: now,
		Actor:     id,
		Action:    audit.EventUnstake,
		Decision:  "applied",
		Amount:    amount,
		Details: map[string]string{
			"principal": principal.String(),
			"yield":     yield.String(),
			"fee":       fee.String(),
		},
	})
	s.recordOp(models.KindUnstake, "ok")
	return &UnstakeResult{Principal: principal, Yield: yield, Fee: fee}, nil
}

func (s *Service) creditTreasury(ctx context.Context, fee domain.Amount) error {
	unlock := s.accountLocks.lock(domain.TreasuryAccount)
	defer unlock()
	return s.mutateLocked(ctx, domain.TreasuryAccount, models.KindCredit, fee, "unstake fee", func(account *models.Account) error {
		account.Balance += fee
		return nil
	})
}
