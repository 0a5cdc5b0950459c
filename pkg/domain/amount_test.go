package domain

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAmountConversion(t *testing.T) {
	t.Run("round trips display units", func(t *testing.T) {
		a := AmountFromFloat(50)
		assert.Equal(t, Amount(50_000), a)
		assert.InDelta(t, 50.0, a.Float(), 1e-9)
	})

	t.Run("rounds sub-minor precision", func(t *testing.T) {
		assert.Equal(t, Amount(1), AmountFromFloat(0.0005))
		assert.Equal(t, Amount(0), AmountFromFloat(0.0004))
	})

	t.Run("rejects non-finite input", func(t *testing.T) {
		_, err := ParseAmount(math.NaN())
		require.Error(t, err)

		_, err = ParseAmount(math.Inf(1))
		require.Error(t, err)
	})
}

func TestMulRate(t *testing.T) {
	t.Run("one percent burn of 50", func(t *testing.T) {
		burn := AmountFromFloat(50).MulRate(0.01)
		assert.Equal(t, AmountFromFloat(0.5), burn)
	})

	t.Run("zero rate yields zero", func(t *testing.T) {
		assert.Equal(t, Amount(0), AmountFromFloat(100).MulRate(0))
	})

	t.Run("full year APR on a stake", func(t *testing.T) {
		yield := AmountFromFloat(1000).MulRate(0.05)
		assert.Equal(t, AmountFromFloat(50), yield)
	})
}

func TestMulRatio(t *testing.T) {
	assert.Equal(t, Amount(333), Amount(1000).MulRatio(1, 3))
	assert.Equal(t, Amount(-333), Amount(-1000).MulRatio(1, 3))
	assert.Equal(t, Amount(0), Amount(1000).MulRatio(1, 0))
}
