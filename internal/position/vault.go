package position

import (
	"context"
	"fmt"
	"math/big"

	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"
	"go.uber.org/zap"

	"incentiveScope/internal/chain"
	"incentiveScope/internal/contracts"
	"incentiveScope/internal/liquidity"
	"incentiveScope/internal/model"
)

// VaultConfig describes one share-token vault and its candidate holders.
// Gauge and Stakers are only used by single-range vaults.
type VaultConfig struct {
	Name    string
	Address common.Address
	Holders []common.Address
	Gauge   common.Address
	Stakers []common.Address
}

func (c VaultConfig) source(kind string) string {
	if c.Name != "" {
		return kind + ":" + c.Name
	}
	return kind + ":" + c.Address.Hex()
}

// SingleRangeVault resolves a vault wrapping one range, optionally with a
// gauge whose staked shares are split again among its stakers.
type SingleRangeVault struct {
	cfg    VaultConfig
	reader chain.BatchReader
	vault  abi.ABI
	erc20  abi.ABI
	logger *zap.Logger
}

// NewSingleRangeVault builds a single-range vault resolver.
func NewSingleRangeVault(cfg VaultConfig, reader chain.BatchReader, logger *zap.Logger) (*SingleRangeVault, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	vault, err := contracts.SingleRangeVaultABI()
	if err != nil {
		return nil, fmt.Errorf("parse vault abi: %w", err)
	}
	erc20, err := contracts.ERC20ABI()
	if err != nil {
		return nil, fmt.Errorf("parse erc20 abi: %w", err)
	}
	return &SingleRangeVault{cfg: cfg, reader: reader, vault: vault, erc20: erc20, logger: logger}, nil
}

func (v *SingleRangeVault) Name() string {
	return v.cfg.source("vault")
}

func (v *SingleRangeVault) hasGauge() bool {
	return v.cfg.Gauge != (common.Address{})
}

func (v *SingleRangeVault) calls() ([]chain.Call, error) {
	calls := make([]chain.Call, 0, 6+len(v.cfg.Holders)+len(v.cfg.Stakers))
	for _, method := range []string{"getUnderlyingBalances", "lowerTick", "upperTick"} {
		data, err := contracts.Pack(v.vault, method)
		if err != nil {
			return nil, err
		}
		calls = append(calls, chain.Call{Target: v.cfg.Address, Data: data, AllowFailure: true})
	}
	supply, err := supplyCall(v.erc20, v.cfg.Address)
	if err != nil {
		return nil, err
	}
	calls = append(calls, supply)

	holders, err := balanceCalls(v.erc20, v.cfg.Address, v.cfg.Holders)
	if err != nil {
		return nil, err
	}
	calls = append(calls, holders...)

	if !v.hasGauge() {
		return calls, nil
	}
	gaugeBal, err := balanceCalls(v.erc20, v.cfg.Address, []common.Address{v.cfg.Gauge})
	if err != nil {
		return nil, err
	}
	gaugeSupply, err := supplyCall(v.erc20, v.cfg.Gauge)
	if err != nil {
		return nil, err
	}
	stakers, err := balanceCalls(v.erc20, v.cfg.Gauge, v.cfg.Stakers)
	if err != nil {
		return nil, err
	}
	calls = append(calls, gaugeBal[0], gaugeSupply)
	return append(calls, stakers...), nil
}

// Resolve reads vault state and every holder balance in one batch.
func (v *SingleRangeVault) Resolve(ctx context.Context, swap model.SwapEvent) (Resolution, error) {
	calls, err := v.calls()
	if err != nil {
		return Resolution{}, err
	}
	results, err := v.reader.Call(ctx, calls, swap.BlockNumber)
	if err != nil {
		return Resolution{}, fmt.Errorf("read %s at block %d: %w", v.Name(), swap.BlockNumber, err)
	}

	source := v.Name()
	rng, supply, err := v.decodeState(swap.Tick, results[:4])
	if err != nil {
		v.logger.Debug("vault skipped", zap.String("source", source), zap.Error(err))
		return Resolution{Skips: []Skip{{Source: source, Reason: err.Error()}}}, nil
	}

	holderEnd := 4 + len(v.cfg.Holders)
	claims, skips := splitClaims(v.erc20, source, v.cfg.Holders, results[4:holderEnd], supply, 1, v.cfg.Gauge)

	if v.hasGauge() {
		gaugeClaims, gaugeSkips := v.gaugeClaims(source, supply, results[holderEnd:])
		claims = append(claims, gaugeClaims...)
		skips = append(skips, gaugeSkips...)
	}

	out := Resolution{Skips: skips}
	if len(claims) > 0 {
		out.Units = []Unit{{Source: source, Ranges: []Range{rng}, Claims: claims}}
	}
	return out, nil
}

func (v *SingleRangeVault) decodeState(tick int32, results []chain.Result) (Range, *big.Int, error) {
	if !results[0].Success {
		return Range{}, nil, fmt.Errorf("getUnderlyingBalances reverted")
	}
	values, err := contracts.Unpack(v.vault, "getUnderlyingBalances", results[0].Data)
	if err != nil {
		return Range{}, nil, err
	}
	if len(values) != 2 {
		return Range{}, nil, fmt.Errorf("getUnderlyingBalances return size %d", len(values))
	}
	raw0, err := contracts.AsBigInt(values[0])
	if err != nil {
		return Range{}, nil, err
	}
	raw1, err := contracts.AsBigInt(values[1])
	if err != nil {
		return Range{}, nil, err
	}
	lower, err := decodeTick(v.vault, "lowerTick", results[1])
	if err != nil {
		return Range{}, nil, err
	}
	upper, err := decodeTick(v.vault, "upperTick", results[2])
	if err != nil {
		return Range{}, nil, err
	}
	supply, err := decodeBig(v.erc20, "totalSupply", results[3])
	if err != nil {
		return Range{}, nil, err
	}
	if supply.Sign() == 0 {
		return Range{}, nil, fmt.Errorf("zero total supply")
	}

	a0 := contracts.ToFloat(raw0, amountDecimals)
	a1 := contracts.ToFloat(raw1, amountDecimals)
	return Range{
		TickLower: lower,
		TickUpper: upper,
		Liquidity: liquidity.LiquidityForAmounts(tick, lower, upper, a0, a1),
		Amount0:   a0,
		Amount1:   a1,
	}, supply, nil
}

// gaugeClaims redistributes the gauge's vault share to its stakers.
// results holds vault.balanceOf(gauge), gauge.totalSupply, then one
// balance per staker.
func (v *SingleRangeVault) gaugeClaims(source string, vaultSupply *big.Int, results []chain.Result) ([]Claim, []Skip) {
	gaugeSource := source + "/gauge"
	staked, err := decodeBig(v.erc20, "balanceOf", results[0])
	if err != nil {
		return nil, []Skip{{Source: gaugeSource, Reason: err.Error()}}
	}
	gaugeSupply, err := decodeBig(v.erc20, "totalSupply", results[1])
	if err != nil {
		return nil, []Skip{{Source: gaugeSource, Reason: err.Error()}}
	}
	gaugeShare := shareOf(staked, vaultSupply)
	if gaugeShare == 0 {
		return nil, nil
	}
	return splitClaims(v.erc20, gaugeSource, v.cfg.Stakers, results[2:], gaugeSupply, gaugeShare, common.Address{})
}
