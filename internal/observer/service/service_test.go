package service

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/suite"

	ledger "dustledger/internal/ledger/models"
	"dustledger/internal/ledger/store/account"
	"dustledger/internal/ledger/store/proposal"
	"dustledger/internal/ledger/store/reserve"
	"dustledger/internal/ledger/store/txlog"
	obsmodels "dustledger/internal/observer/models"
	"dustledger/internal/platform/config"
	"dustledger/internal/platform/logger"
	"dustledger/pkg/domain"
	dErrors "dustledger/pkg/errors"
	"dustledger/pkg/requestcontext"
)

type ObserverSuite struct {
	suite.Suite
	accounts  *account.InMemoryStore
	log       *txlog.InMemoryStore
	proposals *proposal.InMemoryStore
	service   *Service
	now       time.Time
}

func TestObserverSuite(t *testing.T) {
	suite.Run(t, new(ObserverSuite))
}

func (s *ObserverSuite) SetupTest() {
	cfg := config.Default()
	s.accounts = account.NewInMemoryStore()
	s.log = txlog.NewInMemoryStore()
	s.proposals = proposal.NewInMemoryStore()
	s.now = time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)

	var err error
	s.service, err = New(
		s.accounts,
		s.log,
		s.proposals,
		reserve.NewInMemoryStore(cfg.BackingRatio),
		cfg,
		WithLogger(logger.Discard()),
	)
	s.Require().NoError(err)
}

func (s *ObserverSuite) ctx() context.Context {
	return requestcontext.WithTime(context.Background(), s.now)
}

func (s *ObserverSuite) seedAccount(id domain.AccountID, balance, staked float64, lastActive time.Time) {
	s.Require().NoError(s.accounts.Save(context.Background(), &ledger.Account{
		ID:             id,
		Balance:        domain.AmountFromFloat(balance),
		Staked:         domain.AmountFromFloat(staked),
		CreatedAt:      lastActive,
		LastActivityAt: lastActive,
	}))
}

func (s *ObserverSuite) seedTx(actor domain.AccountID, kind ledger.TransactionKind, amount float64, at time.Time) {
	tx, err := ledger.NewTransaction(actor, kind, domain.AmountFromFloat(amount), 0, "")
	s.Require().NoError(err)
	tx.Timestamp = at
	s.Require().NoError(s.log.Append(context.Background(), tx))
}

func (s *ObserverSuite) TestGini() {
	cases := []struct {
		name   string
		wealth []float64
		want   float64
	}{
		{"empty population", nil, 0},
		{"zero-sum economy", []float64{0, 0, 0}, 0},
		{"perfect equality", []float64{10, 10, 10, 10}, 0},
		{"total concentration", []float64{0, 0, 0, 100}, 0.75},
		{"moderate spread", []float64{10, 20, 30, 40}, 0.25},
	}
	for _, tc := range cases {
		s.Run(tc.name, func() {
			s.InDelta(tc.want, gini(tc.wealth), 1e-9)
		})
	}
}

func (s *ObserverSuite) TestTopDecileShare() {
	s.Run("small population uses richest account", func() {
		s.InDelta(0.4, topDecileShare([]float64{10, 20, 30, 40}), 1e-9)
	})

	s.Run("empty population", func() {
		s.Zero(topDecileShare(nil))
	})

	s.Run("twenty accounts use top two", func() {
		wealth := make([]float64, 20)
		for i := range wealth {
			wealth[i] = 10
		}
		wealth[0], wealth[1] = 100, 100
		// 200 of 380 total.
		s.InDelta(200.0/380.0, topDecileShare(wealth), 1e-9)
	})
}

func (s *ObserverSuite) TestEconomySnapshot() {
	s.seedAccount("alice", 100, 50, s.now)
	s.seedAccount("bob", 30, 0, s.now)
	s.seedAccount("carol", 20, 0, s.now.Add(-30*24*time.Hour))
	s.seedAccount(domain.TreasuryAccount, 1000, 0, s.now)

	snapshot, err := s.service.EconomySnapshot(s.ctx())
	s.Require().NoError(err)

	s.False(snapshot.Partial)
	s.Equal(3, snapshot.Accounts, "system accounts are not part of the population")
	s.Equal(2, snapshot.ActiveAccounts)
	s.Equal(1, snapshot.DormantAccounts)
	s.Equal(domain.AmountFromFloat(200), snapshot.CirculatingSupply)
	s.Equal(domain.AmountFromFloat(50), snapshot.StakedTotal)
	s.InDelta(0.75, snapshot.TopDecileShare, 1e-9)
	s.Positive(snapshot.Gini)
}

func (s *ObserverSuite) TestSnapshotEmptyEconomy() {
	snapshot, err := s.service.EconomySnapshot(s.ctx())
	s.Require().NoError(err)

	s.False(snapshot.Partial)
	s.Zero(snapshot.Accounts)
	s.Zero(snapshot.Gini)
	s.Zero(snapshot.CirculatingSupply)
	s.InDelta(1.0, snapshot.ReserveCoverage, 1e-9, "empty economy is fully covered")
}

func (s *ObserverSuite) TestSnapshotDegradation() {
	svc, err := New(
		failingAccounts{},
		s.log,
		s.proposals,
		reserve.NewInMemoryStore(100),
		config.Default(),
		WithLogger(logger.Discard()),
	)
	s.Require().NoError(err)

	snapshot, err := svc.EconomySnapshot(s.ctx())
	s.Require().NoError(err, "store failures must not fail the snapshot")

	s.True(snapshot.Partial)
	s.Contains(snapshot.Degraded, "accounts")
	s.Zero(snapshot.Accounts)
}

func (s *ObserverSuite) TestSystemTrajectory() {
	day := 24 * time.Hour
	s.seedTx("alice", ledger.KindCredit, 100, s.now.Add(-2*day))
	s.seedTx("alice", ledger.KindDebit, 40, s.now.Add(-2*day))
	s.seedTx("bob", ledger.KindCredit, 10, s.now.Add(-time.Hour))
	s.seedTx("bob", ledger.KindBurn, 1, s.now.Add(-time.Hour))
	// Previous window.
	s.seedTx("carol", ledger.KindCredit, 500, s.now.Add(-10*day))

	trajectory, err := s.service.SystemTrajectory(s.ctx(), 7)
	s.Require().NoError(err)

	s.Equal(7, trajectory.WindowDays)
	s.False(trajectory.Partial)
	s.Equal(domain.AmountFromFloat(151), trajectory.CurrentVolume)
	s.Equal(domain.AmountFromFloat(500), trajectory.PreviousVolume)
	s.InDelta(151.0/500.0-1, trajectory.VolumeTrend, 1e-9)

	s.Require().Len(trajectory.Days, 2)
	first := trajectory.Days[0]
	s.Equal(2, first.Transactions)
	s.Equal(domain.AmountFromFloat(100), first.Credits)
	s.Equal(domain.AmountFromFloat(40), first.Debits)
	s.Equal(domain.AmountFromFloat(60), first.NetFlow)

	last := trajectory.Days[1]
	s.Equal(domain.AmountFromFloat(1), last.Burned)
	s.Equal(domain.AmountFromFloat(9), last.NetFlow)
}

func (s *ObserverSuite) TestTrajectoryCountsVotesOnResolvedProposals() {
	day := 24 * time.Hour

	// The proposal resolved mid-window; its ballots still belong to the
	// participation counts.
	s.Require().NoError(s.proposals.Create(context.Background(), &ledger.Proposal{
		ID:        "settled",
		Creator:   "alice",
		Status:    ledger.ProposalPassed,
		CreatedAt: s.now.Add(-6 * day),
		ExpiresAt: s.now.Add(-3 * day),
		Votes: map[domain.AccountID]ledger.Vote{
			"bob": {Voter: "bob", Choice: ledger.VoteYes, Weight: domain.AmountFromFloat(10), CastAt: s.now.Add(-5 * day)},
		},
	}))
	s.Require().NoError(s.proposals.Create(context.Background(), &ledger.Proposal{
		ID:        "open",
		Creator:   "alice",
		Status:    ledger.ProposalActive,
		CreatedAt: s.now.Add(-12 * day),
		ExpiresAt: s.now.Add(12 * day),
		Votes: map[domain.AccountID]ledger.Vote{
			"carol": {Voter: "carol", Choice: ledger.VoteNo, Weight: domain.AmountFromFloat(5), CastAt: s.now.Add(-10 * day)},
		},
	}))

	trajectory, err := s.service.SystemTrajectory(s.ctx(), 7)
	s.Require().NoError(err)

	s.Equal(1, trajectory.CurrentVoters)
	s.Equal(1, trajectory.PreviousVoters)

	s.Require().Len(trajectory.Days, 1)
	s.Equal(1, trajectory.Days[0].Voters)
}

func (s *ObserverSuite) TestTrajectoryValidation() {
	s.Run("default window", func() {
		trajectory, err := s.service.SystemTrajectory(s.ctx(), 0)
		s.Require().NoError(err)
		s.Equal(defaultWindowDays, trajectory.WindowDays)
	})

	s.Run("window too large", func() {
		_, err := s.service.SystemTrajectory(s.ctx(), 365)
		s.True(dErrors.HasCode(err, dErrors.CodeInvalidInput))
	})
}

func (s *ObserverSuite) TestDetectEmergentPatterns() {
	s.Run("quiet economy detects nothing", func() {
		s.seedAccount("alice", 10, 0, s.now)
		s.seedAccount("bob", 10, 0, s.now)

		patterns := s.service.DetectEmergentPatterns(s.ctx())
		s.Require().Len(patterns, 4)
		for _, p := range patterns {
			s.False(p.Detected, p.Name)
			s.Zero(p.Confidence, p.Name)
		}
	})

	s.Run("whale trips wealth concentration", func() {
		s.seedAccount("whale", 100000, 0, s.now)
		for i := 0; i < 12; i++ {
			s.seedAccount(domain.AccountID(fmt.Sprintf("minnow-%d", i)), 1, 0, s.now)
		}

		patterns := s.service.DetectEmergentPatterns(s.ctx())
		concentration := findPattern(s.T(), patterns, "wealth_concentration")
		s.True(concentration.Detected)
		s.Positive(concentration.Confidence)
	})

	s.Run("credit flood trips reputation velocity", func() {
		for i := 0; i < 25; i++ {
			s.seedTx("farmer", ledger.KindCredit, 1, s.now.Add(-time.Minute))
		}

		patterns := s.service.DetectEmergentPatterns(s.ctx())
		velocity := findPattern(s.T(), patterns, "reputation_velocity")
		s.True(velocity.Detected)
		s.Equal("farmer", velocity.Evidence["top_actor"])
	})
}

func findPattern(t *testing.T, patterns []obsmodels.Pattern, name string) obsmodels.Pattern {
	t.Helper()
	for _, p := range patterns {
		if p.Name == name {
			return p
		}
	}
	t.Fatalf("pattern %q not in battery", name)
	return obsmodels.Pattern{}
}

// failingAccounts simulates a store outage.
type failingAccounts struct{}

func (failingAccounts) Get(ctx context.Context, id domain.AccountID) (*ledger.Account, error) {
	return nil, errors.New("account store down")
}

func (failingAccounts) GetOrCreate(ctx context.Context, id domain.AccountID) (*ledger.Account, error) {
	return nil, errors.New("account store down")
}

func (failingAccounts) Save(ctx context.Context, account *ledger.Account) error {
	return errors.New("account store down")
}

func (failingAccounts) List(ctx context.Context) ([]*ledger.Account, error) {
	return nil, errors.New("account store down")
}
