package epoch

import (
	"context"
	"fmt"

	"incentiveScope/internal/liquidity"
	"incentiveScope/internal/model"
	"incentiveScope/internal/position"
)

// SwapReport summarizes the attribution of one swap.
type SwapReport struct {
	Swap    model.SwapEvent
	Units   int
	InRange int
	Skips   []position.Skip
}

// Attribute resolves every position at the swap's block and credits the
// holders of ranges strictly containing the swap tick. The returned map is
// fresh for each call. Any resolver error fails the whole swap.
func Attribute(ctx context.Context, swap model.SwapEvent, totalUSD float64, resolvers []position.Resolver) (model.ExposureMap, SwapReport, error) {
	report := SwapReport{Swap: swap}
	var units []position.Unit
	for _, r := range resolvers {
		res, err := r.Resolve(ctx, swap)
		if err != nil {
			return nil, report, fmt.Errorf("resolve %s: %w", r.Name(), err)
		}
		units = append(units, res.Units...)
		report.Skips = append(report.Skips, res.Skips...)
	}

	scratch, inRange := AttributeUnits(swap, totalUSD, units)
	report.Units = len(units)
	report.InRange = inRange
	return scratch, report, nil
}

// AttributeUnits credits already-resolved units for one swap and returns the
// scratch map plus the number of in-range ranges.
//
//	fees   += swapUSD * L * share
//	token0 += amount0 * share * swapUSD / totalUSD
//	token1 += amount1 * share * swapUSD / totalUSD
func AttributeUnits(swap model.SwapEvent, totalUSD float64, units []position.Unit) (model.ExposureMap, int) {
	scratch := make(model.ExposureMap)
	weight := 0.0
	if totalUSD > 0 {
		weight = swap.AmountUSD / totalUSD
	}

	inRange := 0
	for _, unit := range units {
		for _, rng := range unit.Ranges {
			if !liquidity.InRange(swap.Tick, rng.TickLower, rng.TickUpper) {
				continue
			}
			inRange++
			for _, claim := range unit.Claims {
				if claim.Share <= 0 {
					continue
				}
				scratch.Add(claim.Holder, model.Exposure{
					Fees:   swap.AmountUSD * rng.Liquidity * claim.Share,
					Token0: rng.Amount0 * claim.Share * weight,
					Token1: rng.Amount1 * claim.Share * weight,
				})
			}
		}
	}
	return scratch, inRange
}
