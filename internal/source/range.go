package source

import "fmt"

// blockRange is an inclusive block range.
type blockRange struct {
	From uint64
	To   uint64
}

func splitRange(from, to, batchSize uint64) ([]blockRange, error) {
	if batchSize == 0 {
		return nil, fmt.Errorf("batch size must be greater than zero")
	}
	if to < from {
		return nil, fmt.Errorf("to block must be >= from block")
	}

	ranges := make([]blockRange, 0, (to-from)/batchSize+1)
	for start := from; ; {
		end := to
		if to-start >= batchSize {
			end = start + batchSize - 1
		}
		ranges = append(ranges, blockRange{From: start, To: end})
		if end == to {
			break
		}
		start = end + 1
	}
	return ranges, nil
}
