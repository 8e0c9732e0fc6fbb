// Package reward turns boosted exposure into per-holder token rewards under
// a decaying weekly emission budget.
package reward

import (
	"fmt"
	"math/big"

	"incentiveScope/internal/model"
)

var weiPerToken = new(big.Int).Exp(big.NewInt(10), big.NewInt(18), nil)

// Schedule describes the emission for one epoch.
//
// Rate is the distributor's per-second rate carrying an extra 1e18 of
// precision, Coefficient the per-period reduction factor scaled by 1e18.
// Elapsed is the signed number of periods between the rate's reference
// period and the epoch. GaugeWeight splits emission across pools; zero
// means the whole budget.
type Schedule struct {
	Rate        *big.Int
	Coefficient *big.Int
	Elapsed     int
	GaugeWeight float64
}

// WeeklyWei returns the epoch budget in wei before the gauge weight.
func (s Schedule) WeeklyWei() (*big.Int, error) {
	if s.Rate == nil || s.Rate.Sign() < 0 {
		return nil, fmt.Errorf("invalid emission rate")
	}
	if s.Coefficient == nil || s.Coefficient.Sign() <= 0 {
		return nil, fmt.Errorf("invalid rate reduction coefficient")
	}

	weekly := new(big.Int).Mul(s.Rate, new(big.Int).SetUint64(model.WeekSeconds))
	for i := 0; i < s.Elapsed; i++ {
		weekly.Mul(weekly, weiPerToken)
		weekly.Quo(weekly, s.Coefficient)
	}
	for i := 0; i < -s.Elapsed; i++ {
		weekly.Mul(weekly, s.Coefficient)
		weekly.Quo(weekly, weiPerToken)
	}
	return weekly.Quo(weekly, weiPerToken), nil
}

// Budget returns the epoch budget in whole tokens, gauge weight applied.
func (s Schedule) Budget() (float64, error) {
	wei, err := s.WeeklyWei()
	if err != nil {
		return 0, err
	}
	tokens, _ := new(big.Float).Quo(new(big.Float).SetInt(wei), new(big.Float).SetInt(weiPerToken)).Float64()
	if s.GaugeWeight > 0 {
		tokens *= s.GaugeWeight
	}
	return tokens, nil
}
