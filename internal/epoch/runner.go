package epoch

import (
	"context"
	"fmt"
	"math/big"

	"github.com/ethereum/go-ethereum/common"
	"go.uber.org/zap"

	"incentiveScope/internal/boost"
	"incentiveScope/internal/chain"
	"incentiveScope/internal/model"
	"incentiveScope/internal/position"
	"incentiveScope/internal/reward"
)

// Source lists the swaps, positions and holders of an epoch.
type Source interface {
	FetchSwaps(ctx context.Context, ep model.Epoch) ([]model.SwapEvent, error)
	FetchPositionIDs(ctx context.Context, pool common.Address) ([]*big.Int, error)
	FetchHistoricalHolders(ctx context.Context, token common.Address, start, end uint64) ([]common.Address, error)
}

// VaultKind selects the resolver used for a vault.
type VaultKind string

const (
	VaultSingle VaultKind = "single"
	VaultDual   VaultKind = "dual"
)

// VaultSpec names a vault to resolve. Holders are fetched per epoch.
type VaultSpec struct {
	Kind    VaultKind
	Name    string
	Address common.Address
	Gauge   common.Address
}

// RunConfig holds the inputs of one epoch computation.
type RunConfig struct {
	Epoch           model.Epoch
	PositionManager common.Address
	Vaults          []VaultSpec
	Weights         reward.Weights
	Schedule        reward.Schedule
	// VeToken enables the boost when set and HomeChain is true.
	VeToken   common.Address
	HomeChain bool
}

// Result is the complete output of one epoch.
type Result struct {
	Epoch         model.Epoch
	Swaps         int
	TotalUSD      float64
	Processed     int
	Skipped       []SwapSkip
	PositionSkips int
	LastBlock     uint64
	Exposure      model.ExposureMap
	Boosted       model.ExposureMap
	Budget        float64
	Rewards       map[common.Address]float64
	Fixed         map[common.Address]*big.Int
}

// Runner drives resolvers, attribution, boost and reward for one epoch.
type Runner struct {
	cfg    RunConfig
	source Source
	reader chain.BatchReader
	logger *zap.Logger
}

// NewRunner builds a Runner with its dependencies.
func NewRunner(cfg RunConfig, source Source, reader chain.BatchReader, logger *zap.Logger) *Runner {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Runner{cfg: cfg, source: source, reader: reader, logger: logger}
}

// Run computes the epoch. It returns either a complete result or an error;
// listing failures surface as *FetchError.
func (r *Runner) Run(ctx context.Context) (*Result, error) {
	if r.source == nil {
		return nil, fmt.Errorf("source is nil")
	}
	if r.reader == nil {
		return nil, fmt.Errorf("batch reader is nil")
	}
	ep := r.cfg.Epoch

	swaps, err := r.source.FetchSwaps(ctx, ep)
	if err != nil {
		return nil, &FetchError{Op: "swaps", Err: err}
	}
	resolvers, err := r.resolvers(ctx)
	if err != nil {
		return nil, err
	}

	totalUSD := model.TotalUSD(swaps)
	r.logger.Info("epoch start",
		zap.String("epoch", ep.String()),
		zap.Int("swaps", len(swaps)),
		zap.Float64("total_usd", totalUSD),
		zap.Int("resolvers", len(resolvers)),
	)

	acc := NewAccumulator(totalUSD, r.logger)
	if err := acc.Process(ctx, swaps, resolvers); err != nil {
		return nil, err
	}

	res := &Result{
		Epoch:         ep,
		Swaps:         len(swaps),
		TotalUSD:      totalUSD,
		Processed:     acc.Processed(),
		Skipped:       acc.Skipped(),
		PositionSkips: acc.PositionSkips(),
		LastBlock:     acc.LastBlock(),
		Exposure:      acc.Exposure(),
	}

	res.Boosted = res.Exposure.Clone()
	if r.cfg.HomeChain && r.cfg.VeToken != (common.Address{}) && res.LastBlock > 0 {
		engine, err := boost.NewEngine(r.reader, r.cfg.VeToken, r.logger)
		if err != nil {
			return nil, err
		}
		res.Boosted, err = engine.Boost(ctx, res.Exposure, res.LastBlock)
		if err != nil {
			return nil, fmt.Errorf("boost: %w", err)
		}
	}

	res.Budget, err = r.cfg.Schedule.Budget()
	if err != nil {
		return nil, fmt.Errorf("emission budget: %w", err)
	}
	res.Rewards = reward.Compute(res.Boosted, r.cfg.Weights, res.Budget)
	res.Fixed, err = reward.FixedRewards(res.Rewards)
	if err != nil {
		return nil, fmt.Errorf("encode rewards: %w", err)
	}

	r.logger.Info("epoch complete",
		zap.String("epoch", ep.String()),
		zap.Int("total", res.Swaps),
		zap.Int("processed", res.Processed),
		zap.Int("skipped", len(res.Skipped)),
		zap.Int("position_skips", res.PositionSkips),
		zap.Int("holders", len(res.Fixed)),
		zap.Float64("budget", res.Budget),
	)
	return res, nil
}

func (r *Runner) resolvers(ctx context.Context) ([]position.Resolver, error) {
	ep := r.cfg.Epoch
	var out []position.Resolver

	if r.cfg.PositionManager != (common.Address{}) {
		ids, err := r.source.FetchPositionIDs(ctx, ep.Pool)
		if err != nil {
			return nil, &FetchError{Op: "positions", Err: err}
		}
		nft, err := position.NewNFTResolver(r.cfg.PositionManager, ids, r.reader, r.logger)
		if err != nil {
			return nil, err
		}
		out = append(out, nft)
	}

	for _, spec := range r.cfg.Vaults {
		holders, err := r.source.FetchHistoricalHolders(ctx, spec.Address, ep.Start(), ep.End())
		if err != nil {
			return nil, &FetchError{Op: "holders of " + spec.Address.Hex(), Err: err}
		}
		vc := position.VaultConfig{Name: spec.Name, Address: spec.Address, Holders: holders}

		switch spec.Kind {
		case VaultSingle:
			if spec.Gauge != (common.Address{}) {
				stakers, err := r.source.FetchHistoricalHolders(ctx, spec.Gauge, ep.Start(), ep.End())
				if err != nil {
					return nil, &FetchError{Op: "stakers of " + spec.Gauge.Hex(), Err: err}
				}
				vc.Gauge = spec.Gauge
				vc.Stakers = stakers
			}
			v, err := position.NewSingleRangeVault(vc, r.reader, r.logger)
			if err != nil {
				return nil, err
			}
			out = append(out, v)
		case VaultDual:
			v, err := position.NewDualRangeVault(vc, r.reader, r.logger)
			if err != nil {
				return nil, err
			}
			out = append(out, v)
		default:
			return nil, fmt.Errorf("unknown vault kind %q", spec.Kind)
		}
	}
	return out, nil
}
