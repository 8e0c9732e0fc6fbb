package chain

import (
	"context"
	"fmt"
)

// BlockClock reports block heights and their timestamps.
type BlockClock interface {
	LatestBlockNumber(ctx context.Context) (uint64, error)
	BlockTimestamp(ctx context.Context, number uint64) (uint64, error)
}

// BlockBefore returns the highest block whose timestamp is strictly below ts.
// It returns 0 when no such block exists.
func BlockBefore(ctx context.Context, clock BlockClock, ts uint64) (uint64, error) {
	latest, err := clock.LatestBlockNumber(ctx)
	if err != nil {
		return 0, fmt.Errorf("latest block: %w", err)
	}
	latestTs, err := clock.BlockTimestamp(ctx, latest)
	if err != nil {
		return 0, fmt.Errorf("block timestamp %d: %w", latest, err)
	}
	if latestTs < ts {
		return latest, nil
	}

	lo, hi := uint64(0), latest
	for lo < hi {
		mid := lo + (hi-lo+1)/2
		midTs, err := clock.BlockTimestamp(ctx, mid)
		if err != nil {
			return 0, fmt.Errorf("block timestamp %d: %w", mid, err)
		}
		if midTs < ts {
			lo = mid
		} else {
			hi = mid - 1
		}
	}
	return lo, nil
}
