package position

import (
	"math/big"

	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"

	"incentiveScope/internal/chain"
	"incentiveScope/internal/contracts"
)

func balanceCalls(erc20 abi.ABI, token common.Address, holders []common.Address) ([]chain.Call, error) {
	calls := make([]chain.Call, 0, len(holders))
	for _, h := range holders {
		data, err := contracts.Pack(erc20, "balanceOf", h)
		if err != nil {
			return nil, err
		}
		calls = append(calls, chain.Call{Target: token, Data: data, AllowFailure: true})
	}
	return calls, nil
}

func supplyCall(erc20 abi.ABI, token common.Address) (chain.Call, error) {
	data, err := contracts.Pack(erc20, "totalSupply")
	if err != nil {
		return chain.Call{}, err
	}
	return chain.Call{Target: token, Data: data, AllowFailure: true}, nil
}

// splitClaims turns holder balances into claims of scale*balance/supply.
// Holders equal to exclude are left out, failed balances become skips.
func splitClaims(erc20 abi.ABI, source string, holders []common.Address, results []chain.Result, supply *big.Int, scale float64, exclude common.Address) ([]Claim, []Skip) {
	var (
		claims []Claim
		skips  []Skip
	)
	seen := make(map[common.Address]struct{}, len(holders))
	for i, h := range holders {
		if h == exclude && exclude != (common.Address{}) {
			continue
		}
		if _, dup := seen[h]; dup {
			continue
		}
		seen[h] = struct{}{}

		bal, err := decodeBig(erc20, "balanceOf", results[i])
		if err != nil {
			skips = append(skips, Skip{Source: source, Holder: h, Reason: err.Error()})
			continue
		}
		share := scale * shareOf(bal, supply)
		if share <= 0 {
			continue
		}
		claims = append(claims, Claim{Holder: h, Share: share})
	}
	return claims, skips
}
