package epoch

import (
	"context"
	"errors"
	"testing"

	"github.com/ethereum/go-ethereum/common"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"incentiveScope/internal/liquidity"
	"incentiveScope/internal/model"
	"incentiveScope/internal/position"
)

var (
	holderA = common.HexToAddress("0x00000000000000000000000000000000000000aa")
	holderB = common.HexToAddress("0x00000000000000000000000000000000000000bb")
)

func nftUnit(owner common.Address, tick, lower, upper int32, liq float64) position.Unit {
	a0, a1 := liquidity.AmountsForLiquidity(tick, lower, upper, liq)
	return position.Unit{
		Source: "nft:test",
		Ranges: []position.Range{{TickLower: lower, TickUpper: upper, Liquidity: liq, Amount0: a0, Amount1: a1}},
		Claims: []position.Claim{{Holder: owner, Share: 1}},
	}
}

func TestAttributeSingleSwap(t *testing.T) {
	swap := model.SwapEvent{Tick: 100, AmountUSD: 500, BlockNumber: 1}
	unit := nftUnit(holderA, 100, 0, 200, 1000)

	scratch, inRange := AttributeUnits(swap, 500, []position.Unit{unit})
	require.Equal(t, 1, inRange)

	got := scratch[holderA]
	assert.InDelta(t, 500000, got.Fees, 1e-6)
	assert.InDelta(t, unit.Ranges[0].Amount0, got.Token0, 1e-12)
	assert.InDelta(t, unit.Ranges[0].Amount1, got.Token1, 1e-12)
	assert.Greater(t, got.Token0, 0.0)
	assert.Greater(t, got.Token1, 0.0)
}

func TestAttributeStrictBounds(t *testing.T) {
	for _, tick := range []int32{0, 200, -5, 250} {
		swap := model.SwapEvent{Tick: tick, AmountUSD: 500}
		scratch, inRange := AttributeUnits(swap, 500, []position.Unit{nftUnit(holderA, tick, 0, 200, 1000)})
		assert.Zero(t, inRange, "tick %d", tick)
		assert.Empty(t, scratch, "tick %d", tick)
	}
}

func TestAttributeVaultSplit(t *testing.T) {
	swap := model.SwapEvent{Tick: 0, AmountUSD: 250}
	unit := position.Unit{
		Source: "vault:test",
		Ranges: []position.Range{{
			TickLower: -100,
			TickUpper: 100,
			Liquidity: liquidity.LiquidityForAmounts(0, -100, 100, 100, 200),
			Amount0:   100,
			Amount1:   200,
		}},
		Claims: []position.Claim{{Holder: holderA, Share: 0.6}, {Holder: holderB, Share: 0.4}},
	}

	scratch, _ := AttributeUnits(swap, 250, []position.Unit{unit})
	assert.InDelta(t, 60, scratch[holderA].Token0, 1e-9)
	assert.InDelta(t, 120, scratch[holderA].Token1, 1e-9)
	assert.InDelta(t, 40, scratch[holderB].Token0, 1e-9)
	assert.InDelta(t, 80, scratch[holderB].Token1, 1e-9)
}

func TestAttributeDualRangeSumsInRangeOnly(t *testing.T) {
	swap := model.SwapEvent{Tick: 10, AmountUSD: 100}
	unit := position.Unit{
		Ranges: []position.Range{
			{TickLower: -50, TickUpper: 50, Liquidity: 10, Amount0: 1, Amount1: 2},
			{TickLower: 0, TickUpper: 20, Liquidity: 5, Amount0: 3, Amount1: 4},
			{TickLower: 20, TickUpper: 40, Liquidity: 7, Amount0: 9, Amount1: 9},
		},
		Claims: []position.Claim{{Holder: holderA, Share: 1}},
	}
	scratch, inRange := AttributeUnits(swap, 200, []position.Unit{unit})
	assert.Equal(t, 2, inRange)
	assert.InDelta(t, 1500, scratch[holderA].Fees, 1e-9)
	assert.InDelta(t, 2, scratch[holderA].Token0, 1e-12)
	assert.InDelta(t, 3, scratch[holderA].Token1, 1e-12)
}

func TestAttributeZeroTotalUSD(t *testing.T) {
	swap := model.SwapEvent{Tick: 100, AmountUSD: 0}
	scratch, _ := AttributeUnits(swap, 0, []position.Unit{nftUnit(holderA, 100, 0, 200, 1000)})
	assert.Equal(t, model.Exposure{}, scratch[holderA])
}

type staticResolver struct {
	name  string
	units map[uint64][]position.Unit
	skips map[uint64][]position.Skip
	fail  map[uint64]bool
}

func (s staticResolver) Name() string { return s.name }

func (s staticResolver) Resolve(_ context.Context, swap model.SwapEvent) (position.Resolution, error) {
	if s.fail[swap.Timestamp] {
		return position.Resolution{}, errors.New("multicall reverted")
	}
	return position.Resolution{Units: s.units[swap.Timestamp], Skips: s.skips[swap.Timestamp]}, nil
}

func TestAttributeResolverErrorFailsSwap(t *testing.T) {
	good := staticResolver{name: "good", units: map[uint64][]position.Unit{1: {nftUnit(holderA, 100, 0, 200, 1)}}}
	bad := staticResolver{name: "bad", fail: map[uint64]bool{1: true}}

	_, _, err := Attribute(context.Background(), model.SwapEvent{Timestamp: 1, Tick: 100, AmountUSD: 1}, 1, []position.Resolver{good, bad})
	require.Error(t, err)
}
