package epoch

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"incentiveScope/internal/model"
	"incentiveScope/internal/position"
)

// Accumulator folds per-swap scratch maps into the epoch exposure map. It is
// owned by a single run and never shared.
type Accumulator struct {
	exposure  model.ExposureMap
	totalUSD  float64
	processed int
	skipped   []SwapSkip
	posSkips  int
	lastBlock uint64
	logger    *zap.Logger
}

// NewAccumulator creates an empty accumulator weighting swaps against totalUSD.
func NewAccumulator(totalUSD float64, logger *zap.Logger) *Accumulator {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Accumulator{
		exposure: make(model.ExposureMap),
		totalUSD: totalUSD,
		logger:   logger,
	}
}

// Process attributes swaps in ascending timestamp order. A swap whose
// attribution fails is dropped whole and recorded. Context cancellation
// aborts the run.
func (a *Accumulator) Process(ctx context.Context, swaps []model.SwapEvent, resolvers []position.Resolver) error {
	ordered := append([]model.SwapEvent(nil), swaps...)
	model.SortSwaps(ordered)

	for i, swap := range ordered {
		if err := ctx.Err(); err != nil {
			return err
		}

		scratch, report, err := Attribute(ctx, swap, a.totalUSD, resolvers)
		if err != nil {
			if ctxErr := ctx.Err(); ctxErr != nil {
				return ctxErr
			}
			a.Skip(swap, err)
			continue
		}
		a.Add(report, scratch)

		a.logger.Info("swap attributed",
			zap.Int("index", i+1),
			zap.Int("total", len(ordered)),
			zap.Uint64("block", swap.BlockNumber),
			zap.Int32("tick", swap.Tick),
			zap.Float64("amount_usd", swap.AmountUSD),
			zap.Int("units", report.Units),
			zap.Int("in_range", report.InRange),
			zap.Int("skipped_items", len(report.Skips)),
			zap.String("progress", fmt.Sprintf("%.2f%%", float64(i+1)*100/float64(len(ordered)))),
		)
	}
	return nil
}

// Add merges one swap's scratch map.
func (a *Accumulator) Add(report SwapReport, scratch model.ExposureMap) {
	a.exposure.Merge(scratch)
	a.processed++
	a.posSkips += len(report.Skips)
	for _, skip := range report.Skips {
		a.logger.Warn("position skipped",
			zap.Uint64("block", report.Swap.BlockNumber),
			zap.String("skip", skip.String()),
		)
	}
	if report.Swap.BlockNumber > a.lastBlock {
		a.lastBlock = report.Swap.BlockNumber
	}
}

// Skip records a dropped swap without touching the exposure map.
func (a *Accumulator) Skip(swap model.SwapEvent, err error) {
	a.skipped = append(a.skipped, SwapSkip{Swap: swap, Reason: err.Error()})
	a.logger.Warn("swap skipped",
		zap.Uint64("block", swap.BlockNumber),
		zap.Uint64("timestamp", swap.Timestamp),
		zap.Error(err),
	)
}

// Exposure returns a copy of the accumulated exposure.
func (a *Accumulator) Exposure() model.ExposureMap {
	return a.exposure.Clone()
}

// Processed is the number of swaps merged.
func (a *Accumulator) Processed() int {
	return a.processed
}

// Skipped lists dropped swaps.
func (a *Accumulator) Skipped() []SwapSkip {
	return append([]SwapSkip(nil), a.skipped...)
}

// PositionSkips is the number of per-item skips across merged swaps.
func (a *Accumulator) PositionSkips() int {
	return a.posSkips
}

// LastBlock returns the highest block among processed swaps, or 0.
func (a *Accumulator) LastBlock() uint64 {
	return a.lastBlock
}
