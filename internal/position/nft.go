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

// NFTResolver reads NonfungiblePositionManager positions directly.
type NFTResolver struct {
	manager common.Address
	ids     []*big.Int
	reader  chain.BatchReader
	abi     abi.ABI
	logger  *zap.Logger
}

// NewNFTResolver builds a resolver over the given position ids.
func NewNFTResolver(manager common.Address, ids []*big.Int, reader chain.BatchReader, logger *zap.Logger) (*NFTResolver, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	parsed, err := contracts.PositionManagerABI()
	if err != nil {
		return nil, fmt.Errorf("parse position manager abi: %w", err)
	}
	return &NFTResolver{
		manager: manager,
		ids:     ids,
		reader:  reader,
		abi:     parsed,
		logger:  logger,
	}, nil
}

func (r *NFTResolver) Name() string {
	return "nft"
}

// Resolve reads positions(id) and ownerOf(id) for every id in one batch.
func (r *NFTResolver) Resolve(ctx context.Context, swap model.SwapEvent) (Resolution, error) {
	if len(r.ids) == 0 {
		return Resolution{}, nil
	}

	calls := make([]chain.Call, 0, len(r.ids)*2)
	for _, id := range r.ids {
		posData, err := contracts.Pack(r.abi, "positions", id)
		if err != nil {
			return Resolution{}, err
		}
		ownerData, err := contracts.Pack(r.abi, "ownerOf", id)
		if err != nil {
			return Resolution{}, err
		}
		calls = append(calls,
			chain.Call{Target: r.manager, Data: posData, AllowFailure: true},
			chain.Call{Target: r.manager, Data: ownerData, AllowFailure: true},
		)
	}

	results, err := r.reader.Call(ctx, calls, swap.BlockNumber)
	if err != nil {
		return Resolution{}, fmt.Errorf("read positions at block %d: %w", swap.BlockNumber, err)
	}

	var out Resolution
	for i, id := range r.ids {
		source := "nft:" + id.String()
		unit, err := r.decode(swap.Tick, results[2*i], results[2*i+1])
		if err != nil {
			out.Skips = append(out.Skips, Skip{Source: source, Reason: err.Error()})
			r.logger.Debug("position skipped", zap.String("source", source), zap.Error(err))
			continue
		}
		if unit == nil {
			continue
		}
		unit.Source = source
		out.Units = append(out.Units, *unit)
	}
	return out, nil
}

func (r *NFTResolver) decode(tick int32, posRes, ownerRes chain.Result) (*Unit, error) {
	if !posRes.Success {
		return nil, fmt.Errorf("positions reverted")
	}
	if !ownerRes.Success {
		return nil, fmt.Errorf("ownerOf reverted")
	}

	values, err := contracts.Unpack(r.abi, "positions", posRes.Data)
	if err != nil {
		return nil, err
	}
	if len(values) < 8 {
		return nil, fmt.Errorf("positions return size %d", len(values))
	}
	lowerBig, err := contracts.AsBigInt(values[5])
	if err != nil {
		return nil, fmt.Errorf("tickLower: %w", err)
	}
	upperBig, err := contracts.AsBigInt(values[6])
	if err != nil {
		return nil, fmt.Errorf("tickUpper: %w", err)
	}
	lower, err := contracts.Int24FromBig(lowerBig)
	if err != nil {
		return nil, err
	}
	upper, err := contracts.Int24FromBig(upperBig)
	if err != nil {
		return nil, err
	}
	liqBig, err := contracts.AsBigInt(values[7])
	if err != nil {
		return nil, fmt.Errorf("liquidity: %w", err)
	}

	ownerValues, err := contracts.Unpack(r.abi, "ownerOf", ownerRes.Data)
	if err != nil {
		return nil, err
	}
	owner, ok := ownerValues[0].(common.Address)
	if !ok {
		return nil, fmt.Errorf("unexpected owner type %T", ownerValues[0])
	}

	liq := contracts.ToFloat(liqBig, amountDecimals)
	if liq <= 0 {
		return nil, nil
	}
	a0, a1 := liquidity.AmountsForLiquidity(tick, lower, upper, liq)
	return &Unit{
		Ranges: []Range{{TickLower: lower, TickUpper: upper, Liquidity: liq, Amount0: a0, Amount1: a1}},
		Claims: []Claim{{Holder: owner, Share: 1}},
	}, nil
}
