package chain

// batchRange is an inclusive index range into a call list.
type batchRange struct {
	From int
	To   int
}

// splitBatches splits n items into consecutive ranges of at most size items.
func splitBatches(n, size int) []batchRange {
	if n <= 0 {
		return nil
	}
	if size <= 0 {
		size = n
	}

	ranges := make([]batchRange, 0, (n+size-1)/size)
	for start := 0; start < n; start += size {
		end := start + size - 1
		if end >= n {
			end = n - 1
		}
		ranges = append(ranges, batchRange{From: start, To: end})
	}
	return ranges
}
