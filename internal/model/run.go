package model

import (
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/google/uuid"
)

// EpochRun is the audit record of one computation.
type EpochRun struct {
	RunID         uuid.UUID
	Epoch         Epoch
	Label         string
	Swaps         int
	Processed     int
	SwapSkips     int
	PositionSkips int
	TotalUSD      float64
	Budget        float64
	StartedAt     time.Time
	FinishedAt    time.Time
}

// HolderReward is one holder's epoch outcome.
type HolderReward struct {
	Holder   common.Address
	Exposure Exposure
	Boosted  Exposure
	Amount   string
}
