package domain

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	dErrors "dustledger/pkg/errors"
)

func TestParseAccountID(t *testing.T) {
	t.Run("accepts and trims", func(t *testing.T) {
		id, err := ParseAccountID("  alice  ")
		require.NoError(t, err)
		assert.Equal(t, AccountID("alice"), id)
	})

	t.Run("rejects empty", func(t *testing.T) {
		_, err := ParseAccountID("")
		require.Error(t, err)
		assert.Equal(t, dErrors.CodeInvalidInput, dErrors.CodeOf(err))
	})

	t.Run("rejects whitespace only", func(t *testing.T) {
		_, err := ParseAccountID("   ")
		require.Error(t, err)
		assert.Equal(t, dErrors.CodeInvalidInput, dErrors.CodeOf(err))
	})
}

func TestAccountIDIsSystem(t *testing.T) {
	assert.True(t, BurnAccount.IsSystem())
	assert.True(t, TreasuryAccount.IsSystem())
	assert.True(t, GovernanceAccount.IsSystem())
	assert.False(t, AccountID("alice").IsSystem())
	assert.False(t, AccountID("systemic").IsSystem())
}
