package liquidity

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func relDelta(want float64) float64 {
	return math.Max(math.Abs(want)*1e-9, 1e-12)
}

func TestAmountsForLiquidityInsideRange(t *testing.T) {
	a0, a1 := AmountsForLiquidity(100, 0, 200, 1000)

	sp := math.Pow(1.0001, 50)
	sb := math.Pow(1.0001, 100)
	want0 := 1000 * (1/sp - 1/sb)
	want1 := 1000 * (sp - 1)

	assert.InDelta(t, want0, a0, relDelta(want0))
	assert.InDelta(t, want1, a1, relDelta(want1))
	assert.Greater(t, a0, 0.0)
	assert.Greater(t, a1, 0.0)
}

func TestAmountsForLiquidityBelowAndAbove(t *testing.T) {
	a0, a1 := AmountsForLiquidity(-10, 0, 200, 1000)
	assert.Greater(t, a0, 0.0)
	assert.Zero(t, a1)

	a0, a1 = AmountsForLiquidity(0, 0, 200, 1000)
	assert.Greater(t, a0, 0.0)
	assert.Zero(t, a1)

	a0, a1 = AmountsForLiquidity(200, 0, 200, 1000)
	assert.Zero(t, a0)
	assert.Greater(t, a1, 0.0)
}

func TestAmountsForLiquidityDegenerate(t *testing.T) {
	a0, a1 := AmountsForLiquidity(5, 10, 10, 1000)
	assert.Zero(t, a0)
	assert.Zero(t, a1)

	a0, a1 = AmountsForLiquidity(5, 0, 10, 0)
	assert.Zero(t, a0)
	assert.Zero(t, a1)
}

func TestLiquidityRoundTrip(t *testing.T) {
	cases := []struct {
		tick, lower, upper int32
		liquidity          float64
	}{
		{tick: 100, lower: 0, upper: 200, liquidity: 1000},
		{tick: -887, lower: -1200, upper: 600, liquidity: 12345.678},
		{tick: -5000, lower: -1200, upper: 600, liquidity: 42},
		{tick: 9000, lower: -1200, upper: 600, liquidity: 42},
		{tick: 201000, lower: 200000, upper: 202000, liquidity: 3.5e6},
	}

	for _, tc := range cases {
		a0, a1 := AmountsForLiquidity(tc.tick, tc.lower, tc.upper, tc.liquidity)
		got := LiquidityForAmounts(tc.tick, tc.lower, tc.upper, a0, a1)
		require.InDelta(t, tc.liquidity, got, tc.liquidity*1e-9, "tick %d range [%d,%d)", tc.tick, tc.lower, tc.upper)
	}
}

func TestLiquidityForAmountsBindingSide(t *testing.T) {
	a0, a1 := AmountsForLiquidity(100, 0, 200, 1000)
	// Excess token1 must not raise liquidity above what token0 supports.
	got := LiquidityForAmounts(100, 0, 200, a0, a1*10)
	assert.InDelta(t, 1000, got, 1e-6)
}

func TestInRangeStrictBounds(t *testing.T) {
	assert.True(t, InRange(100, 0, 200))
	assert.False(t, InRange(0, 0, 200))
	assert.False(t, InRange(200, 0, 200))
	assert.False(t, InRange(-1, 0, 200))
}
