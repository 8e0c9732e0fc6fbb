package chain

import (
	"context"
	"fmt"
	"math/big"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/common"

	"incentiveScope/internal/contracts"
)

// EmissionParams are the schedule constants of an emission distributor.
type EmissionParams struct {
	Rate        *big.Int
	Coefficient *big.Int
}

// ReadEmissionParams reads rate() and RATE_REDUCTION_COEFFICIENT() at the latest block.
func ReadEmissionParams(ctx context.Context, caller ContractCaller, distributor common.Address) (EmissionParams, error) {
	parsed, err := contracts.EmissionDistributorABI()
	if err != nil {
		return EmissionParams{}, fmt.Errorf("parse emission abi: %w", err)
	}

	read := func(method string) (*big.Int, error) {
		data, err := contracts.Pack(parsed, method)
		if err != nil {
			return nil, err
		}
		to := distributor
		resp, err := caller.CallContract(ctx, ethereum.CallMsg{To: &to, Data: data}, nil)
		if err != nil {
			return nil, fmt.Errorf("call %s: %w", method, err)
		}
		return contracts.UnpackBigInt(parsed, method, resp, 0)
	}

	rate, err := read("rate")
	if err != nil {
		return EmissionParams{}, err
	}
	coef, err := read("RATE_REDUCTION_COEFFICIENT")
	if err != nil {
		return EmissionParams{}, err
	}
	if coef.Sign() == 0 {
		return EmissionParams{}, fmt.Errorf("zero rate reduction coefficient")
	}
	return EmissionParams{Rate: rate, Coefficient: coef}, nil
}
