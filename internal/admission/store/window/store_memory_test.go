package window

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/suite"

	"dustledger/pkg/requestcontext"
)

type WindowStoreSuite struct {
	suite.Suite
	store *InMemoryStore
	now   time.Time
}

func TestWindowStoreSuite(t *testing.T) {
	suite.Run(t, new(WindowStoreSuite))
}

func (s *WindowStoreSuite) SetupTest() {
	s.store = NewInMemoryStore()
	s.now = time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)
}

func (s *WindowStoreSuite) ctx() context.Context {
	return requestcontext.WithTime(context.Background(), s.now)
}

func (s *WindowStoreSuite) TestIncr() {
	s.Run("counts within a window", func() {
		for want := 1; want <= 3; want++ {
			count, resetAt, err := s.store.Incr(s.ctx(), "k", time.Minute)
			s.Require().NoError(err)
			s.Equal(want, count)
			s.Equal(s.now.Add(time.Minute), resetAt)
		}
	})

	s.Run("keys are independent", func() {
		count, _, err := s.store.Incr(s.ctx(), "other", time.Minute)
		s.Require().NoError(err)
		s.Equal(1, count)
	})

	s.Run("lapsed window restarts at one", func() {
		s.now = s.now.Add(time.Minute)

		count, resetAt, err := s.store.Incr(s.ctx(), "k", time.Minute)
		s.Require().NoError(err)
		s.Equal(1, count)
		s.Equal(s.now.Add(time.Minute), resetAt)
	})
}

func (s *WindowStoreSuite) TestSweepEvictsLapsedWindows() {
	_, _, err := s.store.Incr(s.ctx(), "burst:alice", time.Minute)
	s.Require().NoError(err)
	_, _, err = s.store.Incr(s.ctx(), "hourly:alice", time.Hour)
	s.Require().NoError(err)
	s.Len(s.store.windows, 2)

	// Past both expiries and the sweep interval, activity on any key drops
	// the idle actor's entries entirely.
	s.now = s.now.Add(2 * time.Hour)
	_, _, err = s.store.Incr(s.ctx(), "burst:bob", time.Minute)
	s.Require().NoError(err)

	s.Len(s.store.windows, 1)
	_, ok := s.store.windows["burst:alice"]
	s.False(ok)
	_, ok = s.store.windows["hourly:alice"]
	s.False(ok)
}

func (s *WindowStoreSuite) TestIncrMidWindowKeepsReset() {
	start := s.now
	_, _, err := s.store.Incr(s.ctx(), "k", time.Hour)
	s.Require().NoError(err)

	s.now = s.now.Add(30 * time.Minute)
	count, resetAt, err := s.store.Incr(s.ctx(), "k", time.Hour)
	s.Require().NoError(err)
	s.Equal(2, count)
	s.Equal(start.Add(time.Hour), resetAt)
}
