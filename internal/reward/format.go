package reward

import (
	"math/big"

	"github.com/shopspring/decimal"
)

// FormatUnits renders a fixed-point integer in whole token units.
func FormatUnits(value *big.Int, decimals int32) string {
	if value == nil {
		return "0"
	}
	return decimal.NewFromBigInt(value, -decimals).String()
}

// SumUnits adds fixed-point amounts and renders the total.
func SumUnits(values []*big.Int, decimals int32) string {
	total := decimal.Zero
	for _, v := range values {
		if v == nil {
			continue
		}
		total = total.Add(decimal.NewFromBigInt(v, -decimals))
	}
	return total.String()
}
