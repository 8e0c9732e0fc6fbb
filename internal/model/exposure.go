package model

import (
	"bytes"
	"sort"

	"github.com/ethereum/go-ethereum/common"
)

// Exposure is one holder's accumulated economic exposure.
type Exposure struct {
	Fees   float64 `json:"fees"`
	Token0 float64 `json:"token0"`
	Token1 float64 `json:"token1"`
}

// Plus returns the component-wise sum.
func (e Exposure) Plus(o Exposure) Exposure {
	return Exposure{
		Fees:   e.Fees + o.Fees,
		Token0: e.Token0 + o.Token0,
		Token1: e.Token1 + o.Token1,
	}
}

// IsZero reports whether every dimension is zero.
func (e Exposure) IsZero() bool {
	return e.Fees == 0 && e.Token0 == 0 && e.Token1 == 0
}

// ExposureMap is keyed by canonical address, so differently-cased inputs
// collapse on parse.
type ExposureMap map[common.Address]Exposure

// Add accumulates delta into holder.
func (m ExposureMap) Add(holder common.Address, delta Exposure) {
	m[holder] = m[holder].Plus(delta)
}

// Merge folds other into m additively.
func (m ExposureMap) Merge(other ExposureMap) {
	for holder, exp := range other {
		m.Add(holder, exp)
	}
}

// Totals sums every dimension across holders.
func (m ExposureMap) Totals() Exposure {
	var total Exposure
	for _, holder := range m.Holders() {
		total = total.Plus(m[holder])
	}
	return total
}

// Clone returns an independent copy.
func (m ExposureMap) Clone() ExposureMap {
	out := make(ExposureMap, len(m))
	for holder, exp := range m {
		out[holder] = exp
	}
	return out
}

// Holders returns the keys sorted by address bytes.
func (m ExposureMap) Holders() []common.Address {
	out := make([]common.Address, 0, len(m))
	for holder := range m {
		out = append(out, holder)
	}
	SortAddresses(out)
	return out
}

// SortAddresses orders addresses ascending by their 20 bytes.
func SortAddresses(addrs []common.Address) {
	sort.Slice(addrs, func(i, j int) bool {
		return bytes.Compare(addrs[i].Bytes(), addrs[j].Bytes()) < 0
	})
}
