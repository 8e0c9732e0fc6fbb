package model

import (
	"fmt"
	"time"

	"github.com/ethereum/go-ethereum/common"
)

// WeekSeconds is the length of one accounting epoch.
const WeekSeconds uint64 = 604800

// Epoch identifies one pool's weekly window on one chain.
type Epoch struct {
	ChainID uint64
	Pool    common.Address
	Week    uint64
}

// Start is the first second of the window (inclusive).
func (e Epoch) Start() uint64 {
	return e.Week * WeekSeconds
}

// End is the first second after the window (exclusive).
func (e Epoch) End() uint64 {
	return (e.Week + 1) * WeekSeconds
}

// Contains reports whether ts falls within [Start, End).
func (e Epoch) Contains(ts uint64) bool {
	return ts >= e.Start() && ts < e.End()
}

func (e Epoch) String() string {
	return fmt.Sprintf("%d/%s/week-%d", e.ChainID, e.Pool.Hex(), e.Week)
}

// WeekOf returns the epoch index containing t.
func WeekOf(t time.Time) uint64 {
	unix := t.Unix()
	if unix < 0 {
		return 0
	}
	return uint64(unix) / WeekSeconds
}
