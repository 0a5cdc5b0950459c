package proposal

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"dustledger/internal/ledger/models"
	"dustledger/pkg/domain"
	dErrors "dustledger/pkg/errors"
)

func newProposal(t *testing.T) *models.Proposal {
	t.Helper()
	p, err := models.NewProposal("alice", "raise the burn rate", nil, time.Hour)
	require.NoError(t, err)
	return p
}

func TestInMemoryStore(t *testing.T) {
	ctx := context.Background()

	t.Run("create then get round trips", func(t *testing.T) {
		store := NewInMemoryStore()
		p := newProposal(t)
		require.NoError(t, store.Create(ctx, p))

		got, err := store.Get(ctx, p.ID)
		require.NoError(t, err)
		assert.Equal(t, p.Description, got.Description)
		assert.Equal(t, models.ProposalActive, got.Status)
	})

	t.Run("duplicate create conflicts", func(t *testing.T) {
		store := NewInMemoryStore()
		p := newProposal(t)
		require.NoError(t, store.Create(ctx, p))
		err := store.Create(ctx, p)
		assert.True(t, dErrors.HasCode(err, dErrors.CodeConflict))
	})

	t.Run("unknown proposal not found", func(t *testing.T) {
		store := NewInMemoryStore()
		_, err := store.Get(ctx, "missing")
		assert.True(t, dErrors.HasCode(err, dErrors.CodeNotFound))

		err = store.Update(ctx, newProposal(t))
		assert.True(t, dErrors.HasCode(err, dErrors.CodeNotFound))
	})

	t.Run("reads return deep copies", func(t *testing.T) {
		store := NewInMemoryStore()
		p := newProposal(t)
		require.NoError(t, store.Create(ctx, p))

		got, err := store.Get(ctx, p.ID)
		require.NoError(t, err)
		got.Votes["mallory"] = models.Vote{Voter: "mallory", Choice: models.VoteYes, Weight: domain.AmountFromFloat(1)}

		fresh, err := store.Get(ctx, p.ID)
		require.NoError(t, err)
		assert.Empty(t, fresh.Votes)
	})

	t.Run("list active excludes resolved", func(t *testing.T) {
		store := NewInMemoryStore()
		active := newProposal(t)
		resolved := newProposal(t)
		require.NoError(t, store.Create(ctx, active))
		require.NoError(t, store.Create(ctx, resolved))

		resolved.Status = models.ProposalFailed
		require.NoError(t, store.Update(ctx, resolved))

		list, err := store.ListActive(ctx)
		require.NoError(t, err)
		require.Len(t, list, 1)
		assert.Equal(t, active.ID, list[0].ID)

		all, err := store.List(ctx)
		require.NoError(t, err)
		assert.Len(t, all, 2)
	})
}
