package reward

import (
	"github.com/ethereum/go-ethereum/common"

	"incentiveScope/internal/model"
)

// Weights weigh the three exposure dimensions. They need not sum to 1.
type Weights struct {
	Fees   float64 `yaml:"fees" json:"fees"`
	Token0 float64 `yaml:"token0" json:"token0"`
	Token1 float64 `yaml:"token1" json:"token1"`
}

// Ratios returns each holder's weighted share of the epoch. A dimension whose
// total is zero contributes nothing.
func Ratios(exposure model.ExposureMap, w Weights) map[common.Address]float64 {
	totals := exposure.Totals()
	out := make(map[common.Address]float64, len(exposure))
	for holder, exp := range exposure {
		ratio := term(w.Fees, exp.Fees, totals.Fees) +
			term(w.Token0, exp.Token0, totals.Token0) +
			term(w.Token1, exp.Token1, totals.Token1)
		out[holder] = ratio
	}
	return out
}

func term(weight, x, total float64) float64 {
	if total == 0 {
		return 0
	}
	return weight * x / total
}

// Compute returns budget*ratio per holder in whole tokens.
func Compute(exposure model.ExposureMap, w Weights, budget float64) map[common.Address]float64 {
	ratios := Ratios(exposure, w)
	out := make(map[common.Address]float64, len(ratios))
	for holder, ratio := range ratios {
		out[holder] = budget * ratio
	}
	return out
}
