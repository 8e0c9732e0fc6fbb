package epoch

import (
	"fmt"

	"incentiveScope/internal/model"
)

// SwapSkip records a swap whose attribution was dropped entirely.
type SwapSkip struct {
	Swap   model.SwapEvent
	Reason string
}

// FetchError means the swap or position listing for an epoch failed. No
// partial epoch is ever returned alongside it.
type FetchError struct {
	Op  string
	Err error
}

func (e *FetchError) Error() string {
	return fmt.Sprintf("fetch %s: %v", e.Op, e.Err)
}

func (e *FetchError) Unwrap() error {
	return e.Err
}
