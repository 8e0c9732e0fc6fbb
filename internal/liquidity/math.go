// Package liquidity converts between concentrated-liquidity positions and their
// underlying token amounts using sqrtPrice = 1.0001^(tick/2).
package liquidity

import "math"

const tickBase = 1.0001

// SqrtPriceAtTick returns sqrt(1.0001^tick).
func SqrtPriceAtTick(tick int32) float64 {
	return math.Pow(tickBase, float64(tick)/2)
}

// InRange reports whether tick lies strictly inside (lower, upper).
// A tick sitting exactly on either bound is out of range.
func InRange(tick, lower, upper int32) bool {
	return lower < tick && tick < upper
}

// AmountsForLiquidity returns the token0 and token1 amounts backing liquidity
// in [lower, upper) at the given pool tick.
func AmountsForLiquidity(tick, lower, upper int32, liquidity float64) (float64, float64) {
	if lower >= upper || liquidity <= 0 {
		return 0, 0
	}
	sa := SqrtPriceAtTick(lower)
	sb := SqrtPriceAtTick(upper)

	switch {
	case tick <= lower:
		return liquidity * (1/sa - 1/sb), 0
	case tick >= upper:
		return 0, liquidity * (sb - sa)
	default:
		sp := SqrtPriceAtTick(tick)
		return liquidity * (1/sp - 1/sb), liquidity * (sp - sa)
	}
}

// LiquidityForAmounts is the inverse of AmountsForLiquidity. Inside the range
// the binding side (the smaller implied liquidity) wins.
func LiquidityForAmounts(tick, lower, upper int32, amount0, amount1 float64) float64 {
	if lower >= upper {
		return 0
	}
	sa := SqrtPriceAtTick(lower)
	sb := SqrtPriceAtTick(upper)

	switch {
	case tick <= lower:
		return liquidityForAmount0(sa, sb, amount0)
	case tick >= upper:
		return liquidityForAmount1(sa, sb, amount1)
	default:
		sp := SqrtPriceAtTick(tick)
		l0 := liquidityForAmount0(sp, sb, amount0)
		l1 := liquidityForAmount1(sa, sp, amount1)
		return math.Min(l0, l1)
	}
}

func liquidityForAmount0(sa, sb, amount0 float64) float64 {
	if sb <= sa {
		return 0
	}
	return amount0 * sa * sb / (sb - sa)
}

func liquidityForAmount1(sa, sb, amount1 float64) float64 {
	if sb <= sa {
		return 0
	}
	return amount1 / (sb - sa)
}
