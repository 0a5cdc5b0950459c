package account

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"dustledger/pkg/domain"
	dErrors "dustledger/pkg/errors"
)

func TestInMemoryStore(t *testing.T) {
	ctx := context.Background()

	t.Run("get unknown account returns not found", func(t *testing.T) {
		store := NewInMemoryStore()
		_, err := store.Get(ctx, "ghost")
		require.Error(t, err)
		assert.True(t, dErrors.HasCode(err, dErrors.CodeNotFound))
	})

	t.Run("get or create is idempotent", func(t *testing.T) {
		store := NewInMemoryStore()
		first, err := store.GetOrCreate(ctx, "alice")
		require.NoError(t, err)

		first.Balance = domain.AmountFromFloat(100)
		require.NoError(t, store.Save(ctx, first))

		again, err := store.GetOrCreate(ctx, "alice")
		require.NoError(t, err)
		assert.Equal(t, domain.AmountFromFloat(100), again.Balance)
	})

	t.Run("reads return copies not aliases", func(t *testing.T) {
		store := NewInMemoryStore()
		_, err := store.GetOrCreate(ctx, "alice")
		require.NoError(t, err)

		read, err := store.Get(ctx, "alice")
		require.NoError(t, err)
		read.Balance = domain.AmountFromFloat(999)

		fresh, err := store.Get(ctx, "alice")
		require.NoError(t, err)
		assert.Equal(t, domain.Amount(0), fresh.Balance)
	})

	t.Run("list covers all accounts", func(t *testing.T) {
		store := NewInMemoryStore()
		for _, id := range []domain.AccountID{"a", "b", "c"} {
			_, err := store.GetOrCreate(ctx, id)
			require.NoError(t, err)
		}
		accounts, err := store.List(ctx)
		require.NoError(t, err)
		assert.Len(t, accounts, 3)
	})
}
