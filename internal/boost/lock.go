package boost

import (
	"context"
	"fmt"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"go.uber.org/zap"

	"incentiveScope/internal/chain"
	"incentiveScope/internal/contracts"
)

// lockPoints are (days, multiplier) knots of the lock-duration curve.
var lockPoints = [4][2]float64{
	{90, 1},
	{365, 1.3},
	{730, 1.95},
	{1095, 3.3},
}

// LockMultiplier evaluates the cubic through lockPoints at the given lock
// length in days, clamped to the first and last knot.
func LockMultiplier(days float64) float64 {
	first, last := lockPoints[0][0], lockPoints[len(lockPoints)-1][0]
	if days < first {
		days = first
	}
	if days > last {
		days = last
	}

	out := 0.0
	for i, pi := range lockPoints {
		term := pi[1]
		for j, pj := range lockPoints {
			if i == j {
				continue
			}
			term *= (days - pj[0]) / (pi[0] - pj[0])
		}
		out += term
	}
	return out
}

// LockMultiplierFor converts a lock duration to days.
func LockMultiplierFor(d time.Duration) float64 {
	return LockMultiplier(d.Hours() / 24)
}

// LockEnds reads each holder's ve lock end at blockNumber (0 is latest).
// Holders whose read fails or who have no lock are left out.
func (e *Engine) LockEnds(ctx context.Context, holders []common.Address, blockNumber uint64) (map[common.Address]time.Time, error) {
	calls := make([]chain.Call, 0, len(holders))
	for _, h := range holders {
		data, err := contracts.Pack(e.ve, "locked__end", h)
		if err != nil {
			return nil, err
		}
		calls = append(calls, chain.Call{Target: e.token, Data: data, AllowFailure: true})
	}
	results, err := e.reader.Call(ctx, calls, blockNumber)
	if err != nil {
		return nil, fmt.Errorf("read lock ends: %w", err)
	}

	out := make(map[common.Address]time.Time, len(holders))
	failed := 0
	for i, h := range holders {
		if !results[i].Success {
			failed++
			continue
		}
		end, err := contracts.UnpackBigInt(e.ve, "locked__end", results[i].Data, 0)
		if err != nil {
			failed++
			continue
		}
		if end.Sign() == 0 || !end.IsInt64() {
			continue
		}
		out[h] = time.Unix(end.Int64(), 0).UTC()
	}
	if failed > 0 {
		e.logger.Warn("lock end reads failed", zap.Int("failed", failed), zap.Int("total", len(holders)))
	}
	return out, nil
}

// LockMultipliers maps every lock still running at now to the multiplier of
// its remaining duration.
func LockMultipliers(ends map[common.Address]time.Time, now time.Time) map[common.Address]float64 {
	out := make(map[common.Address]float64, len(ends))
	for h, end := range ends {
		if !end.After(now) {
			continue
		}
		out[h] = LockMultiplierFor(end.Sub(now))
	}
	return out
}
