// Package boost rescales epoch exposure by a capped vote-escrow multiplier.
package boost

import (
	"context"
	"fmt"
	"math"

	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"
	"go.uber.org/zap"

	"incentiveScope/internal/chain"
	"incentiveScope/internal/contracts"
	"incentiveScope/internal/model"
)

// MaxBonus caps the multiplier at 1 + MaxBonus.
const MaxBonus = 1.5

// Multiplier returns 1 + min(1.5, 1.5*(ve/totalVe)/(x/total)). Zero exposure,
// a zero dimension total, or zero total ve all yield 1.
func Multiplier(x, total, ve, totalVe float64) float64 {
	if x == 0 || total == 0 || totalVe == 0 {
		return 1
	}
	share := x / total
	bonus := MaxBonus * (ve / totalVe) / share
	if math.IsNaN(bonus) || bonus < 0 {
		return 1
	}
	return 1 + math.Min(MaxBonus, bonus)
}

// Factors are the per-dimension multipliers applied to one holder.
type Factors struct {
	Fees   float64
	Token0 float64
	Token1 float64
}

// Apply returns a boosted copy of exposure. The input map is not modified;
// the result must not be fed back in.
func Apply(exposure model.ExposureMap, ve map[common.Address]float64) (model.ExposureMap, map[common.Address]Factors) {
	totals := exposure.Totals()
	totalVe := 0.0
	for _, holder := range exposure.Holders() {
		totalVe += ve[holder]
	}

	out := make(model.ExposureMap, len(exposure))
	factors := make(map[common.Address]Factors, len(exposure))
	for holder, exp := range exposure {
		bal := ve[holder]
		f := Factors{
			Fees:   Multiplier(exp.Fees, totals.Fees, bal, totalVe),
			Token0: Multiplier(exp.Token0, totals.Token0, bal, totalVe),
			Token1: Multiplier(exp.Token1, totals.Token1, bal, totalVe),
		}
		factors[holder] = f
		out[holder] = model.Exposure{
			Fees:   exp.Fees * f.Fees,
			Token0: exp.Token0 * f.Token0,
			Token1: exp.Token1 * f.Token1,
		}
	}
	return out, factors
}

// Engine reads ve balances and applies the boost.
type Engine struct {
	reader chain.BatchReader
	token  common.Address
	ve     abi.ABI
	logger *zap.Logger
}

// NewEngine builds a boost engine reading the ve token.
func NewEngine(reader chain.BatchReader, veToken common.Address, logger *zap.Logger) (*Engine, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	ve, err := contracts.VeTokenABI()
	if err != nil {
		return nil, fmt.Errorf("parse ve token abi: %w", err)
	}
	return &Engine{reader: reader, token: veToken, ve: ve, logger: logger}, nil
}

// Balances reads ve balances for holders in one batch at blockNumber. A
// failed read counts as zero.
func (e *Engine) Balances(ctx context.Context, holders []common.Address, blockNumber uint64) (map[common.Address]float64, error) {
	calls := make([]chain.Call, 0, len(holders))
	for _, h := range holders {
		data, err := contracts.Pack(e.ve, "balanceOf", h)
		if err != nil {
			return nil, err
		}
		calls = append(calls, chain.Call{Target: e.token, Data: data, AllowFailure: true})
	}
	results, err := e.reader.Call(ctx, calls, blockNumber)
	if err != nil {
		return nil, fmt.Errorf("read ve balances at block %d: %w", blockNumber, err)
	}

	out := make(map[common.Address]float64, len(holders))
	failed := 0
	for i, h := range holders {
		if !results[i].Success {
			failed++
			continue
		}
		bal, err := contracts.UnpackBigInt(e.ve, "balanceOf", results[i].Data, 0)
		if err != nil {
			failed++
			continue
		}
		out[h] = contracts.ToFloat(bal, 18)
	}
	if failed > 0 {
		e.logger.Warn("ve balance reads failed", zap.Int("failed", failed), zap.Int("total", len(holders)))
	}
	return out, nil
}

// Boost reads ve balances for exactly the holders in exposure and returns the
// boosted copy.
func (e *Engine) Boost(ctx context.Context, exposure model.ExposureMap, blockNumber uint64) (model.ExposureMap, error) {
	if len(exposure) == 0 {
		return exposure.Clone(), nil
	}
	holders := exposure.Holders()
	ve, err := e.Balances(ctx, holders, blockNumber)
	if err != nil {
		return nil, err
	}
	boosted, factors := Apply(exposure, ve)

	boostedHolders := 0
	for _, f := range factors {
		if f.Fees > 1 || f.Token0 > 1 || f.Token1 > 1 {
			boostedHolders++
		}
	}
	e.logger.Info("boost applied",
		zap.Uint64("block", blockNumber),
		zap.Int("holders", len(holders)),
		zap.Int("boosted", boostedHolders),
	)
	return boosted, nil
}
