package boost

import (
	"context"
	"math/big"
	"testing"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"incentiveScope/internal/chain"
	"incentiveScope/internal/contracts"
	"incentiveScope/internal/model"
)

func TestMultiplierCapped(t *testing.T) {
	// Exposure share 0.1, ve share 0.5.
	got := Multiplier(10, 100, 50, 100)
	assert.InDelta(t, 2.5, got, 1e-12)
}

func TestMultiplierUncapped(t *testing.T) {
	// 1.5 * 0.1 / 0.5 = 0.3
	got := Multiplier(50, 100, 10, 100)
	assert.InDelta(t, 1.3, got, 1e-12)
}

func TestMultiplierNeutralCases(t *testing.T) {
	assert.Equal(t, 1.0, Multiplier(0, 100, 50, 100))
	assert.Equal(t, 1.0, Multiplier(10, 0, 50, 100))
	assert.Equal(t, 1.0, Multiplier(10, 100, 50, 0))
	assert.Equal(t, 1.0, Multiplier(10, 100, 0, 100))
}

func TestApplyBounds(t *testing.T) {
	holders := []common.Address{
		common.HexToAddress("0x01"),
		common.HexToAddress("0x02"),
		common.HexToAddress("0x03"),
	}
	exposure := model.ExposureMap{
		holders[0]: {Fees: 10, Token0: 0, Token1: 3},
		holders[1]: {Fees: 80, Token0: 5, Token1: 0},
		holders[2]: {Fees: 10, Token0: 5, Token1: 1},
	}
	ve := map[common.Address]float64{
		holders[0]: 500,
		holders[2]: 1,
	}

	boosted, factors := Apply(exposure, ve)
	require.Len(t, factors, 3)
	for holder, f := range factors {
		for _, m := range []float64{f.Fees, f.Token0, f.Token1} {
			assert.GreaterOrEqual(t, m, 1.0, holder.Hex())
			assert.LessOrEqual(t, m, 1+MaxBonus, holder.Hex())
		}
	}

	// Input is untouched.
	assert.Equal(t, 10.0, exposure[holders[0]].Fees)
	// Holder without ve keeps its exposure.
	assert.Equal(t, exposure[holders[1]], boosted[holders[1]])
	// Zero dimension stays zero.
	assert.Equal(t, 0.0, boosted[holders[0]].Token0)
	assert.InDelta(t, 25.0, boosted[holders[0]].Fees, 1e-9)
}

func TestApplyWithoutVe(t *testing.T) {
	exposure := model.ExposureMap{
		common.HexToAddress("0x01"): {Fees: 1, Token0: 2, Token1: 3},
	}
	boosted, _ := Apply(exposure, nil)
	assert.Equal(t, exposure, boosted)
}

type veReader struct {
	balances map[common.Address]*big.Int
	ends     map[common.Address]*big.Int
	block    uint64
}

func (v *veReader) Call(_ context.Context, calls []chain.Call, blockNumber uint64) ([]chain.Result, error) {
	v.block = blockNumber
	ve, err := contracts.VeTokenABI()
	if err != nil {
		return nil, err
	}
	out := make([]chain.Result, len(calls))
	for i, c := range calls {
		method, err := ve.MethodById(c.Data[:4])
		if err != nil {
			return nil, err
		}
		args, err := method.Inputs.Unpack(c.Data[4:])
		if err != nil {
			return nil, err
		}
		values := v.balances
		if method.Name == "locked__end" {
			values = v.ends
		}
		value, ok := values[args[0].(common.Address)]
		if !ok {
			continue
		}
		data, err := method.Outputs.Pack(value)
		if err != nil {
			return nil, err
		}
		out[i] = chain.Result{Success: true, Data: data}
	}
	return out, nil
}

func TestEngineBoost(t *testing.T) {
	a := common.HexToAddress("0x0a")
	b := common.HexToAddress("0x0b")
	one := new(big.Int).Exp(big.NewInt(10), big.NewInt(18), nil)
	reader := &veReader{balances: map[common.Address]*big.Int{
		a: new(big.Int).Mul(big.NewInt(5), one),
		// b's read fails and counts as zero.
	}}

	engine, err := NewEngine(reader, common.HexToAddress("0xfe"), nil)
	require.NoError(t, err)

	exposure := model.ExposureMap{
		a: {Fees: 10},
		b: {Fees: 90},
	}
	boosted, err := engine.Boost(context.Background(), exposure, 77)
	require.NoError(t, err)

	assert.Equal(t, uint64(77), reader.block)
	assert.InDelta(t, 25.0, boosted[a].Fees, 1e-9)
	assert.InDelta(t, 90.0, boosted[b].Fees, 1e-9)
}

func TestLockMultiplierKnots(t *testing.T) {
	for _, p := range lockPoints {
		assert.InDelta(t, p[1], LockMultiplier(p[0]), 1e-9)
	}
	assert.InDelta(t, 1.0, LockMultiplier(10), 1e-9)
	assert.InDelta(t, 3.3, LockMultiplier(5000), 1e-9)

	prev := LockMultiplier(90)
	for d := 97.0; d <= 1095; d += 7 {
		cur := LockMultiplier(d)
		assert.GreaterOrEqual(t, cur, prev-1e-9)
		prev = cur
	}
}

func TestLockMultipliersFromChain(t *testing.T) {
	a := common.HexToAddress("0x0a")
	b := common.HexToAddress("0x0b")
	c := common.HexToAddress("0x0c")
	d := common.HexToAddress("0x0d")
	now := time.Unix(1_700_000_000, 0).UTC()
	day := int64(24 * 60 * 60)

	reader := &veReader{ends: map[common.Address]*big.Int{
		a: big.NewInt(now.Unix() + 365*day),
		b: big.NewInt(now.Unix() - day),
		c: big.NewInt(0),
		// d's read fails.
	}}
	engine, err := NewEngine(reader, common.HexToAddress("0xfe"), nil)
	require.NoError(t, err)

	ends, err := engine.LockEnds(context.Background(), []common.Address{a, b, c, d}, 0)
	require.NoError(t, err)
	assert.Equal(t, uint64(0), reader.block)
	require.Len(t, ends, 2)
	assert.NotContains(t, ends, c)
	assert.NotContains(t, ends, d)

	got := LockMultipliers(ends, now)
	require.Len(t, got, 1)
	assert.InDelta(t, 1.3, got[a], 1e-9)
}
