package chain

import (
	"context"
	"fmt"

	"github.com/ethereum/go-ethereum/common"

	"incentiveScope/internal/contracts"
	"incentiveScope/internal/model"
)

// ReadTokenMeta reads decimals and symbol of each token at the latest block.
// A token without a symbol() keeps an empty one; decimals are required.
func ReadTokenMeta(ctx context.Context, reader BatchReader, tokens []common.Address) (map[common.Address]model.TokenMeta, error) {
	erc20, err := contracts.ERC20ABI()
	if err != nil {
		return nil, fmt.Errorf("parse erc20 abi: %w", err)
	}
	decimalsData, err := contracts.Pack(erc20, "decimals")
	if err != nil {
		return nil, err
	}
	symbolData, err := contracts.Pack(erc20, "symbol")
	if err != nil {
		return nil, err
	}

	calls := make([]Call, 0, 2*len(tokens))
	for _, token := range tokens {
		calls = append(calls,
			Call{Target: token, Data: decimalsData, AllowFailure: true},
			Call{Target: token, Data: symbolData, AllowFailure: true},
		)
	}
	results, err := reader.Call(ctx, calls, 0)
	if err != nil {
		return nil, fmt.Errorf("read token metadata: %w", err)
	}

	out := make(map[common.Address]model.TokenMeta, len(tokens))
	for i, token := range tokens {
		dec, sym := results[2*i], results[2*i+1]
		if !dec.Success {
			return nil, fmt.Errorf("decimals of %s reverted", token.Hex())
		}
		decimals, err := contracts.UnpackBigInt(erc20, "decimals", dec.Data, 0)
		if err != nil {
			return nil, fmt.Errorf("decimals of %s: %w", token.Hex(), err)
		}
		meta := model.TokenMeta{Address: token, Decimals: uint8(decimals.Uint64())}
		if sym.Success {
			if values, err := contracts.Unpack(erc20, "symbol", sym.Data); err == nil {
				if s, ok := values[0].(string); ok {
					meta.Symbol = s
				}
			}
		}
		out[token] = meta
	}
	return out, nil
}

// ReadPoolMeta reads a pool's tokens and their metadata.
func ReadPoolMeta(ctx context.Context, reader BatchReader, pool common.Address) (model.PoolMeta, error) {
	poolABI, err := contracts.PoolABI()
	if err != nil {
		return model.PoolMeta{}, fmt.Errorf("parse pool abi: %w", err)
	}
	token0Data, err := contracts.Pack(poolABI, "token0")
	if err != nil {
		return model.PoolMeta{}, err
	}
	token1Data, err := contracts.Pack(poolABI, "token1")
	if err != nil {
		return model.PoolMeta{}, err
	}

	results, err := reader.Call(ctx, []Call{
		{Target: pool, Data: token0Data},
		{Target: pool, Data: token1Data},
	}, 0)
	if err != nil {
		return model.PoolMeta{}, fmt.Errorf("read pool tokens: %w", err)
	}

	tokens := make([]common.Address, 0, 2)
	for i, method := range []string{"token0", "token1"} {
		if !results[i].Success {
			return model.PoolMeta{}, fmt.Errorf("%s of %s reverted", method, pool.Hex())
		}
		values, err := contracts.Unpack(poolABI, method, results[i].Data)
		if err != nil {
			return model.PoolMeta{}, err
		}
		addr, ok := values[0].(common.Address)
		if !ok {
			return model.PoolMeta{}, fmt.Errorf("%s: unexpected type %T", method, values[0])
		}
		tokens = append(tokens, addr)
	}

	metas, err := ReadTokenMeta(ctx, reader, tokens)
	if err != nil {
		return model.PoolMeta{}, err
	}
	return model.PoolMeta{Address: pool, Token0: metas[tokens[0]], Token1: metas[tokens[1]]}, nil
}
