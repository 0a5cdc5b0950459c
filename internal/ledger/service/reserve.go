package service

import (
	"context"

	"dustledger/internal/ledger/models"
	"dustledger/pkg/domain"
	dErrors "dustledger/pkg/errors"
	"dustledger/pkg/platform/audit"
	"dustledger/pkg/requestcontext"
)

// AddReserve deposits external-asset units into the backing reserve.
func (s *Service) AddReserve(ctx context.Context, units domain.Amount, note string) (models.Reserve, error) {
	if units <= 0 {
		return models.Reserve{}, dErrors.New(dErrors.CodeInvalidInput, "reserve units must be positive")
	}
	reserve, err := s.reserve.Add(ctx, units)
	if err != nil {
		return models.Reserve{}, dErrors.Wrap(err, dErrors.CodeInternal, "add reserve")
	}

	s.emit(ctx, audit.Event{
		Timestamp: requestcontext.Now(ctx),
		Action:    audit.EventReserveAdded,
		Decision:  "applied",
		Amount:    units,
		Details:   map[string]string{"note": note},
	})
	return reserve, nil
}

// ReserveStatus reports the solvency of the dust supply against the backing
// reserve. Circulating supply counts liquid and staked dust of non-system
// accounts; dust parked in system accounts is out of circulation.
func (s *Service) ReserveStatus(ctx context.Context) (*models.ReserveStatus, error) {
	reserve, err := s.reserve.Get(ctx)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "get reserve")
	}
	supply, err := s.circulatingSupply(ctx)
	if err != nil {
		return nil, err
	}

	status := &models.ReserveStatus{
		Units:             reserve.Units,
		BackingRatio:      reserve.BackingRatio,
		CirculatingSupply: supply,
		CoverageRatio:     reserve.Coverage(supply),
	}
	if s.metrics != nil {
		s.metrics.CirculatingSupply.Set(supply.Float())
		s.metrics.ReserveCoverage.Set(status.CoverageRatio)
	}
	return status, nil
}

func (s *Service) circulatingSupply(ctx context.Context) (domain.Amount, error) {
	accounts, err := s.accounts.List(ctx)
	if err != nil {
		return 0, dErrors.Wrap(err, dErrors.CodeInternal, "list accounts")
	}
	var supply domain.Amount
	for _, account := range accounts {
		if account.ID.IsSystem() {
			continue
		}
		supply += account.Balance + account.Staked
	}
	return supply, nil
}
