package service

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"golang.org/x/sync/errgroup"

	ledger "dustledger/internal/ledger/models"
	"dustledger/internal/observer/models"
	"dustledger/pkg/domain"
	"dustledger/pkg/platform/audit"
	"dustledger/pkg/requestcontext"
)

// EconomySnapshot aggregates the current state of the economy. The ledger
// stores are queried concurrently; a failed source leaves its fields at
// neutral values and flags the snapshot as partial.
func (s *Service) EconomySnapshot(ctx context.Context) (*models.EconomySnapshot, error) {
	now := requestcontext.Now(ctx)
	snap := &models.EconomySnapshot{TakenAt: now}

	var (
		mu        sync.Mutex
		accounts  []*ledger.Account
		reserve   ledger.Reserve
		proposals []*ledger.Proposal
	)
	degrade := func(source string, err error) {
		s.logger.WarnContext(ctx, "snapshot source degraded", "source", source, "error", err)
		mu.Lock()
		defer mu.Unlock()
		snap.Partial = true
		snap.Degraded = append(snap.Degraded, source)
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		if accounts, err = s.accounts.List(gctx); err != nil {
			degrade("accounts", err)
		}
		return nil
	})
	g.Go(func() error {
		var err error
		if reserve, err = s.reserve.Get(gctx); err != nil {
			degrade("reserve", err)
		}
		return nil
	})
	g.Go(func() error {
		var err error
		if proposals, err = s.proposals.ListActive(gctx); err != nil {
			degrade("proposals", err)
		}
		return nil
	})
	if err := g.Wait(); err != nil {
		return nil, err
	}
	sort.Strings(snap.Degraded)

	wealth := make([]float64, 0, len(accounts))
	for _, account := range accounts {
		if account.ID.IsSystem() {
			continue
		}
		snap.Accounts++
		if account.IsDormant(now, s.cfg.DormantAfter) {
			snap.DormantAccounts++
		} else {
			snap.ActiveAccounts++
		}
		snap.CirculatingSupply += account.Balance + account.Staked
		snap.StakedTotal += account.Staked
		wealth = append(wealth, (account.Balance + account.Staked).Float())
	}

	snap.Gini = gini(wealth)
	snap.TopDecileShare = topDecileShare(wealth)
	snap.ReserveUnits = reserve.Units
	snap.ReserveCoverage = reserve.Coverage(snap.CirculatingSupply)
	snap.ActiveProposals = len(proposals)

	dormantRatio := 0.0
	if snap.Accounts > 0 {
		dormantRatio = float64(snap.DormantAccounts) / float64(snap.Accounts)
	}
	s.metrics.RecordSnapshot(snap.Gini, snap.TopDecileShare, dormantRatio)

	s.archive(ctx, audit.Event{
		Timestamp: now,
		Action:    audit.EventObserverReport,
		Decision:  "snapshot",
		Details: map[string]string{
			"accounts":           fmt.Sprintf("%d", snap.Accounts),
			"circulating_supply": snap.CirculatingSupply.String(),
			"gini":               fmt.Sprintf("%.4f", snap.Gini),
			"partial":            fmt.Sprintf("%t", snap.Partial),
		},
	})
	return snap, nil
}

// gini computes the Gini coefficient over individual wealth. Empty and
// zero-sum populations score 0: no wealth means no inequality.
func gini(wealth []float64) float64 {
	n := len(wealth)
	if n == 0 {
		return 0
	}
	sorted := make([]float64, n)
	copy(sorted, wealth)
	sort.Float64s(sorted)

	var total, weighted float64
	for i, w := range sorted {
		total += w
		weighted += float64(2*(i+1)-n-1) * w
	}
	if total == 0 {
		return 0
	}
	return weighted / (float64(n) * total)
}

// topDecileShare returns the fraction of total wealth held by the richest
// tenth of accounts, rounding the decile up so small populations still
// report their single richest account.
func topDecileShare(wealth []float64) float64 {
	n := len(wealth)
	if n == 0 {
		return 0
	}
	sorted := make([]float64, n)
	copy(sorted, wealth)
	sort.Sort(sort.Reverse(sort.Float64Slice(sorted)))

	decile := (n + 9) / 10
	var total, top float64
	for i, w := range sorted {
		total += w
		if i < decile {
			top += w
		}
	}
	if total == 0 {
		return 0
	}
	return top / total
}

// circulating returns balance+staked, the unit of wealth analytics.
func circulating(account *ledger.Account) domain.Amount {
	return account.Balance + account.Staked
}
