package model

import "sort"

// SwapEvent is one price sample used to probe active positions.
type SwapEvent struct {
	ID          string  `json:"id,omitempty"`
	Timestamp   uint64  `json:"timestamp"`
	Tick        int32   `json:"tick"`
	AmountUSD   float64 `json:"amount_usd"`
	BlockNumber uint64  `json:"block_number"`
}

// SortSwaps orders swaps by timestamp, keeping input order for ties.
func SortSwaps(swaps []SwapEvent) {
	sort.SliceStable(swaps, func(i, j int) bool {
		return swaps[i].Timestamp < swaps[j].Timestamp
	})
}

// TotalUSD sums the USD volume of swaps.
func TotalUSD(swaps []SwapEvent) float64 {
	total := 0.0
	for _, s := range swaps {
		total += s.AmountUSD
	}
	return total
}
