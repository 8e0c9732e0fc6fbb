// Package position decomposes on-chain liquidity wrappers into normalized
// ranges and the holders that claim them, read at a swap's block.
package position

import (
	"context"
	"fmt"
	"math/big"

	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"

	"incentiveScope/internal/chain"
	"incentiveScope/internal/contracts"
	"incentiveScope/internal/model"
)

// amountDecimals normalizes on-chain liquidity and token amounts.
const amountDecimals = 18

// Range is one tick range with its liquidity and underlying amounts.
type Range struct {
	TickLower int32
	TickUpper int32
	Liquidity float64
	Amount0   float64
	Amount1   float64
}

// Claim is a holder's fraction of a Unit.
type Claim struct {
	Holder common.Address
	Share  float64
}

// Unit is one resolved position or vault at one swap.
type Unit struct {
	Source string
	Ranges []Range
	Claims []Claim
}

// Skip records an item that could not be read and contributes nothing.
type Skip struct {
	Source string
	Holder common.Address
	Reason string
}

func (s Skip) String() string {
	if s.Holder != (common.Address{}) {
		return fmt.Sprintf("%s holder %s: %s", s.Source, s.Holder.Hex(), s.Reason)
	}
	return fmt.Sprintf("%s: %s", s.Source, s.Reason)
}

// Resolution is the resolver output for one swap.
type Resolution struct {
	Units []Unit
	Skips []Skip
}

// Resolver is implemented by every supported wrapper variant. An error means
// the batch itself could not be read; per-item failures are reported as Skips.
type Resolver interface {
	Name() string
	Resolve(ctx context.Context, swap model.SwapEvent) (Resolution, error)
}

func decodeBig(parsed abi.ABI, method string, res chain.Result) (*big.Int, error) {
	if !res.Success {
		return nil, fmt.Errorf("%s reverted", method)
	}
	return contracts.UnpackBigInt(parsed, method, res.Data, 0)
}

func decodeTick(parsed abi.ABI, method string, res chain.Result) (int32, error) {
	if !res.Success {
		return 0, fmt.Errorf("%s reverted", method)
	}
	return contracts.UnpackInt24(parsed, method, res.Data)
}

// shareOf returns part/whole as a float in [0, 1].
func shareOf(part, whole *big.Int) float64 {
	if part == nil || whole == nil || whole.Sign() <= 0 || part.Sign() <= 0 {
		return 0
	}
	if part.Cmp(whole) >= 0 {
		return 1
	}
	out, _ := new(big.Float).Quo(new(big.Float).SetInt(part), new(big.Float).SetInt(whole)).Float64()
	return out
}
