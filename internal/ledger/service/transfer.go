package service

import (
	"context"
	"strings"

	"dustledger/internal/ledger/models"
	"dustledger/pkg/domain"
	dErrors "dustledger/pkg/errors"
	"dustledger/pkg/platform/audit"
	"dustledger/pkg/requestcontext"
)

// TransferResult reports what a transfer actually moved.
type TransferResult struct {
	// Net is what the recipient received after the burn.
	Net domain.Amount `json:"net"`
	// Burn is the fee removed from circulation.
	Burn domain.Amount `json:"burn"`
}

// Transfer moves amount from one account to another, withholding the burn
// fee unless waived. The sender is debited the full amount; the recipient is
// credited amount minus burn; the burn lands in the system burn account and
// a configured share of it converts into reserve backing.
//
// Validation collects every violated rule into one rejection so callers can
// show a complete diagnostic instead of fixing one error at a time.
func (s *Service) Transfer(ctx context.Context, from, to domain.AccountID, amount domain.Amount, note string, waiveFee bool) (*TransferResult, error) {
	unlock := lockOrdered(&s.accountLocks, from, to)
	defer unlock()

	sender, err := s.accounts.GetOrCreate(ctx, from)
	if err != nil {
		s.recordOp(models.KindTransfer, "error")
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "load sender")
	}

	var violations []string
	if amount <= 0 {
		violations = append(violations, "amount must be positive")
	}
	if from == to {
		violations = append(violations, "cannot transfer to self")
	}
	if from.IsSystem() || to.IsSystem() {
		violations = append(violations, "system accounts cannot take part in transfers")
	}
	if max := domain.AmountFromFloat(s.cfg.MaxTransfer); amount > max {
		violations = append(violations, "amount exceeds maximum transfer size")
	}
	// Funds are only judged against a well-formed amount; a negative request
	// names the amount rule, not a funds problem.
	if amount > 0 && sender.Balance < amount {
		violations = append(violations, "insufficient funds")
	}
	if len(violations) > 0 {
		s.recordOp(models.KindTransfer, "rejected")
		return nil, dErrors.Newf(dErrors.CodeInvalidInput, "transfer rejected: %s", strings.Join(violations, "; "))
	}

	burn := domain.Amount(0)
	if !waiveFee {
		burn = amount.MulRate(s.cfg.BurnRate)
	}
	net := amount - burn

	now := requestcontext.Now(ctx)

	sender.Balance -= amount
	sender.LastActivityAt = now
	if err := s.accounts.Save(ctx, sender); err != nil {
		s.recordOp(models.KindTransfer, "error")
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "save sender")
	}
	if err := s.appendLog(ctx, from, models.KindTransfer, -amount, sender.Balance, note); err != nil {
		s.recordOp(models.KindTransfer, "error")
		return nil, err
	}

	recipient, err := s.accounts.GetOrCreate(ctx, to)
	if err != nil {
		s.recordOp(models.KindTransfer, "error")
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "load recipient")
	}
	recipient.Balance += net
	recipient.LastActivityAt = now
	if err := s.accounts.Save(ctx, recipient); err != nil {
		s.recordOp(models.KindTransfer, "error")
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "save recipient")
	}
	if err := s.appendLog(ctx, to, models.KindTransfer, net, recipient.Balance, note); err != nil {
		s.recordOp(models.KindTransfer, "error")
		return nil, err
	}

	if burn > 0 {
		if err := s.applyBurn(ctx, burn); err != nil {
			s.recordOp(models.KindTransfer, "error")
			return nil, err
		}
	}

	s.emit(ctx, audit.Event{
		Timestamp: now,
		Actor:     from,
		Action:    audit.EventTransfer,
		Decision:  "applied",
		Amount:    amount,
		Details: map[string]string{
			"to":   to.String(),
			"net":  net.String(),
			"burn": burn.String(),
		},
	})
	s.recordOp(models.KindTransfer, "ok")
	return &TransferResult{Net: net, Burn: burn}, nil
}

// applyBurn routes a withheld fee into the system burn account and converts
// the configured share into reserve backing. The caller must not hold the
// burn account lock.
func (s *Service) applyBurn(ctx context.Context, burn domain.Amount) error {
	unlock := s.accountLocks.lock(domain.BurnAccount)
	defer unlock()

	err := s.mutateLocked(ctx, domain.BurnAccount, models.KindBurn, burn, "transfer burn", func(account *models.Account) error {
		account.Balance += burn
		return nil
	})
	if err != nil {
		return err
	}
	s.metrics.RecordBurn(burn.Float())

	// Heat-to-reserve conversion: a share of the burned dust becomes
	// external backing at the configured ratio.
	if s.cfg.BackingRatio > 0 && s.cfg.BurnReserveShare > 0 {
		share := burn.MulRate(s.cfg.BurnReserveShare)
		units := share.MulRate(1 / s.cfg.BackingRatio)
		if units > 0 {
			if _, err := s.reserve.Add(ctx, units); err != nil {
				return dErrors.Wrap(err, dErrors.CodeInternal, "add burn share to reserve")
			}
		}
	}
	return nil
}
