package service

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/suite"

	"dustledger/internal/ledger/models"
	"dustledger/internal/ledger/store/account"
	proposalStore "dustledger/internal/ledger/store/proposal"
	"dustledger/internal/ledger/store/reserve"
	"dustledger/internal/ledger/store/txlog"
	"dustledger/internal/platform/config"
	"dustledger/internal/platform/logger"
	"dustledger/pkg/domain"
	dErrors "dustledger/pkg/errors"
)

type GovernanceSuite struct {
	suite.Suite
	accounts  *account.InMemoryStore
	proposals *proposalStore.InMemoryStore
	service   *Service
}

func TestGovernanceSuite(t *testing.T) {
	suite.Run(t, new(GovernanceSuite))
}

func (s *GovernanceSuite) SetupTest() {
	cfg := config.Default()
	s.accounts = account.NewInMemoryStore()
	s.proposals = proposalStore.NewInMemoryStore()

	var err error
	s.service, err = New(
		s.accounts,
		txlog.NewInMemoryStore(),
		s.proposals,
		reserve.NewInMemoryStore(cfg.BackingRatio),
		cfg,
		WithLogger(logger.Discard()),
	)
	s.Require().NoError(err)
}

func (s *GovernanceSuite) seed(id domain.AccountID, dust float64) {
	s.Require().NoError(s.service.Credit(context.Background(), id, domain.AmountFromFloat(dust), "seed"))
}

func (s *GovernanceSuite) create(creator domain.AccountID) *models.Proposal {
	p, err := s.service.CreateProposal(context.Background(), creator, "adjust the burn rate", nil)
	s.Require().NoError(err)
	return p
}

func (s *GovernanceSuite) TestCreateProposal() {
	ctx := context.Background()

	s.Run("debits the proposal fee", func() {
		s.seed("alice", 100)
		p := s.create("alice")

		balance, err := s.service.Balance(ctx, "alice")
		s.Require().NoError(err)
		s.Equal(domain.AmountFromFloat(90), balance)
		s.Equal(models.ProposalActive, p.Status)

		// Fee lands in the governance account.
		gov, err := s.service.Balance(ctx, domain.GovernanceAccount)
		s.Require().NoError(err)
		s.Equal(domain.AmountFromFloat(10), gov)
	})

	s.Run("rejects creators who cannot pay", func() {
		s.seed("pauper", 1)
		_, err := s.service.CreateProposal(ctx, "pauper", "free dust for all", nil)
		s.True(dErrors.HasCode(err, dErrors.CodeInsufficientFunds))
	})

	s.Run("rejects system creators", func() {
		_, err := s.service.CreateProposal(ctx, domain.GovernanceAccount, "self-dealing", nil)
		s.True(dErrors.HasCode(err, dErrors.CodeInvalidInput))
	})
}

func (s *GovernanceSuite) TestCastVote() {
	ctx := context.Background()

	s.Run("weight is the liquid balance", func() {
		s.seed("alice", 100)
		s.seed("bob", 70)
		p := s.create("alice")

		s.Require().NoError(s.service.CastVote(ctx, p.ID, "bob", models.VoteYes))

		stored, err := s.proposals.Get(ctx, p.ID)
		s.Require().NoError(err)
		s.Equal(domain.AmountFromFloat(70), stored.YesWeight)
		s.True(stored.HasVoted("bob"))
	})

	s.Run("second vote is rejected", func() {
		s.seed("alice", 100)
		s.seed("bob", 70)
		p := s.create("alice")

		s.Require().NoError(s.service.CastVote(ctx, p.ID, "bob", models.VoteYes))
		err := s.service.CastVote(ctx, p.ID, "bob", models.VoteNo)
		s.True(dErrors.HasCode(err, dErrors.CodeAlreadyActed))
	})

	s.Run("zero balance has no voting power", func() {
		s.seed("alice", 100)
		p := s.create("alice")
		err := s.service.CastVote(ctx, p.ID, "broke", models.VoteYes)
		s.True(dErrors.HasCode(err, dErrors.CodeInvalidInput))
		s.Contains(err.Error(), "no voting power")
	})

	s.Run("unknown proposal", func() {
		err := s.service.CastVote(ctx, "missing", "bob", models.VoteYes)
		s.True(dErrors.HasCode(err, dErrors.CodeNotFound))
	})

	s.Run("invalid choice", func() {
		err := s.service.CastVote(ctx, "whatever", "bob", models.VoteChoice("maybe"))
		s.True(dErrors.HasCode(err, dErrors.CodeInvalidInput))
	})
}

func (s *GovernanceSuite) resolveAfterVotes(yes, no float64) models.ProposalStatus {
	ctx := context.Background()
	s.SetupTest()
	s.seed("creator", 100)
	p := s.create("creator")

	if yes > 0 {
		s.seed("yes-voter", yes)
		s.Require().NoError(s.service.CastVote(ctx, p.ID, "yes-voter", models.VoteYes))
	}
	if no > 0 {
		s.seed("no-voter", no)
		s.Require().NoError(s.service.CastVote(ctx, p.ID, "no-voter", models.VoteNo))
	}

	resolved, err := s.service.ResolveExpiredProposals(ctx, p.ExpiresAt.Add(time.Minute))
	s.Require().NoError(err)
	s.Equal(1, resolved)

	stored, err := s.proposals.Get(ctx, p.ID)
	s.Require().NoError(err)
	return stored.Status
}

func (s *GovernanceSuite) TestResolveExpiredProposals() {
	s.Run("seventy thirty passes at sixty percent threshold", func() {
		s.Equal(models.ProposalPassed, s.resolveAfterVotes(70, 30))
	})

	s.Run("fifty fifty fails", func() {
		s.Equal(models.ProposalFailed, s.resolveAfterVotes(50, 50))
	})

	s.Run("zero votes always fails", func() {
		s.Equal(models.ProposalFailed, s.resolveAfterVotes(0, 0))
	})

	s.Run("sweep is idempotent and skips unexpired proposals", func() {
		ctx := context.Background()
		s.SetupTest()
		s.seed("creator", 100)
		p := s.create("creator")

		n, err := s.service.ResolveExpiredProposals(ctx, p.CreatedAt.Add(time.Hour))
		s.Require().NoError(err)
		s.Equal(0, n)

		n, err = s.service.ResolveExpiredProposals(ctx, p.ExpiresAt.Add(time.Minute))
		s.Require().NoError(err)
		s.Equal(1, n)

		n, err = s.service.ResolveExpiredProposals(ctx, p.ExpiresAt.Add(time.Hour))
		s.Require().NoError(err)
		s.Equal(0, n)
	})

	s.Run("vote after resolution is rejected as closed", func() {
		ctx := context.Background()
		s.SetupTest()
		s.seed("creator", 100)
		s.seed("late-voter", 10)
		p := s.create("creator")

		_, err := s.service.ResolveExpiredProposals(ctx, p.ExpiresAt.Add(time.Minute))
		s.Require().NoError(err)

		err = s.service.CastVote(ctx, p.ID, "late-voter", models.VoteYes)
		s.True(dErrors.HasCode(err, dErrors.CodeConflict))
	})
}

// TestConcurrentVotes drives many voters at one proposal to confirm the
// per-proposal serialization never loses a tally increment.
func (s *GovernanceSuite) TestConcurrentVotes() {
	ctx := context.Background()
	s.seed("creator", 100)
	p := s.create("creator")

	const voters = 20
	for i := 0; i < voters; i++ {
		s.seed(domain.AccountID(string(rune('a'+i))+"-voter"), 1)
	}

	var wg sync.WaitGroup
	for i := 0; i < voters; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			voter := domain.AccountID(string(rune('a'+i)) + "-voter")
			_ = s.service.CastVote(ctx, p.ID, voter, models.VoteYes)
		}(i)
	}
	wg.Wait()

	stored, err := s.proposals.Get(ctx, p.ID)
	s.Require().NoError(err)
	s.Equal(domain.AmountFromFloat(voters), stored.YesWeight)
	s.Len(stored.Votes, voters)
}
