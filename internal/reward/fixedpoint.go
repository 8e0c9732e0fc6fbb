package reward

import (
	"fmt"
	"math"
	"math/big"

	"github.com/ethereum/go-ethereum/common"
)

var (
	fractionScale = 1e10
	tailScale     = new(big.Int).Exp(big.NewInt(10), big.NewInt(8), nil)
)

// ToFixed encodes a token amount as an 18-decimal integer by truncating
// amount*1e10 and then scaling by 1e8. The two steps are kept apart so
// amounts match previously published ledgers bit for bit.
func ToFixed(amount float64) (*big.Int, error) {
	if math.IsNaN(amount) || math.IsInf(amount, 0) || amount < 0 {
		return nil, fmt.Errorf("invalid reward amount %v", amount)
	}
	truncated := math.Floor(amount * fractionScale)
	head, _ := new(big.Float).SetFloat64(truncated).Int(nil)
	return head.Mul(head, tailScale), nil
}

// FixedRewards encodes every holder's reward. Zero rewards are dropped.
func FixedRewards(rewards map[common.Address]float64) (map[common.Address]*big.Int, error) {
	out := make(map[common.Address]*big.Int, len(rewards))
	for holder, amount := range rewards {
		fixed, err := ToFixed(amount)
		if err != nil {
			return nil, fmt.Errorf("holder %s: %w", holder.Hex(), err)
		}
		if fixed.Sign() == 0 {
			continue
		}
		out[holder] = fixed
	}
	return out, nil
}
