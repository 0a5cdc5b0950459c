package service

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"dustledger/internal/ledger/store/account"
	"dustledger/internal/ledger/store/proposal"
	"dustledger/internal/ledger/store/reserve"
	"dustledger/internal/ledger/store/txlog"
	"dustledger/internal/platform/config"
	"dustledger/internal/platform/logger"
	"dustledger/pkg/domain"
	dErrors "dustledger/pkg/errors"
)

func newReserveService(t *testing.T) *Service {
	t.Helper()
	cfg := config.Default()
	svc, err := New(
		account.NewInMemoryStore(),
		txlog.NewInMemoryStore(),
		proposal.NewInMemoryStore(),
		reserve.NewInMemoryStore(cfg.BackingRatio),
		cfg,
		WithLogger(logger.Discard()),
	)
	require.NoError(t, err)
	return svc
}

func TestAddReserve(t *testing.T) {
	ctx := context.Background()
	svc := newReserveService(t)

	t.Run("rejects non-positive deposits", func(t *testing.T) {
		_, err := svc.AddReserve(ctx, 0, "nothing")
		assert.True(t, dErrors.HasCode(err, dErrors.CodeInvalidInput))
	})

	t.Run("accumulates units", func(t *testing.T) {
		first, err := svc.AddReserve(ctx, domain.AmountFromFloat(2), "deposit")
		require.NoError(t, err)
		assert.Equal(t, domain.AmountFromFloat(2), first.Units)

		second, err := svc.AddReserve(ctx, domain.AmountFromFloat(3), "deposit")
		require.NoError(t, err)
		assert.Equal(t, domain.AmountFromFloat(5), second.Units)
	})
}

func TestReserveStatus(t *testing.T) {
	ctx := context.Background()
	svc := newReserveService(t)

	t.Run("empty economy reports full coverage", func(t *testing.T) {
		status, err := svc.ReserveStatus(ctx)
		require.NoError(t, err)
		assert.Equal(t, domain.Amount(0), status.CirculatingSupply)
		assert.Equal(t, 1.0, status.CoverageRatio)
	})

	t.Run("coverage tracks supply against backing", func(t *testing.T) {
		// 1 unit at ratio 100 backs 100 dust; 200 dust in circulation
		// puts coverage at one half.
		_, err := svc.AddReserve(ctx, domain.AmountFromFloat(1), "deposit")
		require.NoError(t, err)
		require.NoError(t, svc.Credit(ctx, "alice", domain.AmountFromFloat(200), "seed"))

		status, err := svc.ReserveStatus(ctx)
		require.NoError(t, err)
		assert.Equal(t, domain.AmountFromFloat(200), status.CirculatingSupply)
		assert.InDelta(t, 0.5, status.CoverageRatio, 1e-9)
	})

	t.Run("system balances are out of circulation", func(t *testing.T) {
		svc := newReserveService(t)
		require.NoError(t, svc.Credit(ctx, "alice", domain.AmountFromFloat(100), "seed"))
		_, err := svc.Transfer(ctx, "alice", "bob", domain.AmountFromFloat(50), "pay", false)
		require.NoError(t, err)

		status, err := svc.ReserveStatus(ctx)
		require.NoError(t, err)
		// 100 credited minus the 0.5 burned into the system account.
		assert.Equal(t, domain.AmountFromFloat(99.5), status.CirculatingSupply)
	})
}
