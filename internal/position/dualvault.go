package position

import (
	"context"
	"fmt"

	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"
	"go.uber.org/zap"

	"incentiveScope/internal/chain"
	"incentiveScope/internal/contracts"
	"incentiveScope/internal/model"
)

var dualStateMethods = []string{
	"getBasePosition",
	"getLimitPosition",
	"baseLower",
	"baseUpper",
	"limitLower",
	"limitUpper",
}

// DualRangeVault resolves a base+limit vault. Both ranges are reported and
// share one holder split.
type DualRangeVault struct {
	cfg    VaultConfig
	reader chain.BatchReader
	vault  abi.ABI
	erc20  abi.ABI
	logger *zap.Logger
}

// NewDualRangeVault builds a dual-range vault resolver.
func NewDualRangeVault(cfg VaultConfig, reader chain.BatchReader, logger *zap.Logger) (*DualRangeVault, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	vault, err := contracts.DualRangeVaultABI()
	if err != nil {
		return nil, fmt.Errorf("parse dual vault abi: %w", err)
	}
	erc20, err := contracts.ERC20ABI()
	if err != nil {
		return nil, fmt.Errorf("parse erc20 abi: %w", err)
	}
	return &DualRangeVault{cfg: cfg, reader: reader, vault: vault, erc20: erc20, logger: logger}, nil
}

func (v *DualRangeVault) Name() string {
	return v.cfg.source("dual")
}

func (v *DualRangeVault) Resolve(ctx context.Context, swap model.SwapEvent) (Resolution, error) {
	calls := make([]chain.Call, 0, len(dualStateMethods)+1+len(v.cfg.Holders))
	for _, method := range dualStateMethods {
		data, err := contracts.Pack(v.vault, method)
		if err != nil {
			return Resolution{}, err
		}
		calls = append(calls, chain.Call{Target: v.cfg.Address, Data: data, AllowFailure: true})
	}
	supplyC, err := supplyCall(v.erc20, v.cfg.Address)
	if err != nil {
		return Resolution{}, err
	}
	calls = append(calls, supplyC)
	holders, err := balanceCalls(v.erc20, v.cfg.Address, v.cfg.Holders)
	if err != nil {
		return Resolution{}, err
	}
	calls = append(calls, holders...)

	results, err := v.reader.Call(ctx, calls, swap.BlockNumber)
	if err != nil {
		return Resolution{}, fmt.Errorf("read %s at block %d: %w", v.Name(), swap.BlockNumber, err)
	}

	source := v.Name()
	ranges, err := v.decodeRanges(results[:6])
	if err != nil {
		v.logger.Debug("vault skipped", zap.String("source", source), zap.Error(err))
		return Resolution{Skips: []Skip{{Source: source, Reason: err.Error()}}}, nil
	}
	supply, err := decodeBig(v.erc20, "totalSupply", results[6])
	if err != nil {
		return Resolution{Skips: []Skip{{Source: source, Reason: err.Error()}}}, nil
	}
	if supply.Sign() == 0 {
		return Resolution{Skips: []Skip{{Source: source, Reason: "zero total supply"}}}, nil
	}

	claims, skips := splitClaims(v.erc20, source, v.cfg.Holders, results[7:], supply, 1, common.Address{})
	out := Resolution{Skips: skips}
	if len(claims) > 0 {
		out.Units = []Unit{{Source: source, Ranges: ranges, Claims: claims}}
	}
	return out, nil
}

func (v *DualRangeVault) decodeRanges(results []chain.Result) ([]Range, error) {
	base, err := v.decodePosition("getBasePosition", results[0])
	if err != nil {
		return nil, err
	}
	limit, err := v.decodePosition("getLimitPosition", results[1])
	if err != nil {
		return nil, err
	}
	if base.TickLower, err = decodeTick(v.vault, "baseLower", results[2]); err != nil {
		return nil, err
	}
	if base.TickUpper, err = decodeTick(v.vault, "baseUpper", results[3]); err != nil {
		return nil, err
	}
	if limit.TickLower, err = decodeTick(v.vault, "limitLower", results[4]); err != nil {
		return nil, err
	}
	if limit.TickUpper, err = decodeTick(v.vault, "limitUpper", results[5]); err != nil {
		return nil, err
	}
	return []Range{base, limit}, nil
}

func (v *DualRangeVault) decodePosition(method string, res chain.Result) (Range, error) {
	if !res.Success {
		return Range{}, fmt.Errorf("%s reverted", method)
	}
	values, err := contracts.Unpack(v.vault, method, res.Data)
	if err != nil {
		return Range{}, err
	}
	if len(values) != 3 {
		return Range{}, fmt.Errorf("%s return size %d", method, len(values))
	}
	var raw [3]float64
	for i, value := range values {
		n, err := contracts.AsBigInt(value)
		if err != nil {
			return Range{}, fmt.Errorf("%s: %w", method, err)
		}
		raw[i] = contracts.ToFloat(n, amountDecimals)
	}
	return Range{Liquidity: raw[0], Amount0: raw[1], Amount1: raw[2]}, nil
}
