package source

import (
	"context"
	"fmt"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/ethereum/go-ethereum/crypto"
	"go.uber.org/zap"

	"incentiveScope/internal/chain"
)

// TransferTopic is topic0 of the ERC-20 Transfer event.
var TransferTopic = crypto.Keccak256Hash([]byte("Transfer(address,address,uint256)"))

// LogClient is the chain surface the holder scan needs.
type LogClient interface {
	chain.BlockClock
	FilterLogs(ctx context.Context, fromBlock, toBlock uint64, addresses []common.Address, topics [][]common.Hash) ([]types.Log, error)
}

// HolderConfig controls the Transfer log scan.
type HolderConfig struct {
	// FromBlock is where the scan starts, typically the token's deployment.
	FromBlock    uint64
	BatchSize    uint64
	MaxRetries   int
	RetryBackoff time.Duration
}

// HolderScanner lists every address that held a token at any point before an
// epoch closes by replaying its Transfer logs.
type HolderScanner struct {
	cfg    HolderConfig
	client LogClient
	logger *zap.Logger
}

// NewHolderScanner builds a scanner over client.
func NewHolderScanner(cfg HolderConfig, client LogClient, logger *zap.Logger) (*HolderScanner, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	if client == nil {
		return nil, fmt.Errorf("log client is nil")
	}
	if cfg.BatchSize == 0 {
		cfg.BatchSize = 5000
	}
	return &HolderScanner{cfg: cfg, client: client, logger: logger}, nil
}

// FetchHistoricalHolders returns the distinct senders and recipients of token
// transfers up to the last block before end, in first-seen order. The zero
// address is never a holder.
func (h *HolderScanner) FetchHistoricalHolders(ctx context.Context, token common.Address, start, end uint64) ([]common.Address, error) {
	if end <= start {
		return nil, fmt.Errorf("invalid window [%d, %d)", start, end)
	}
	toBlock, err := h.blockBeforeWithRetry(ctx, end)
	if err != nil {
		return nil, err
	}
	if toBlock < h.cfg.FromBlock {
		return nil, nil
	}

	ranges, err := splitRange(h.cfg.FromBlock, toBlock, h.cfg.BatchSize)
	if err != nil {
		return nil, err
	}

	seen := make(map[common.Address]struct{})
	holders := make([]common.Address, 0)
	add := func(a common.Address) {
		if a == (common.Address{}) {
			return
		}
		if _, ok := seen[a]; ok {
			return
		}
		seen[a] = struct{}{}
		holders = append(holders, a)
	}

	total := 0
	for _, r := range ranges {
		logs, err := h.filterLogsWithRetry(ctx, token, r)
		if err != nil {
			return nil, fmt.Errorf("filter logs %d-%d: %w", r.From, r.To, err)
		}
		for _, log := range logs {
			if log.Removed || len(log.Topics) < 3 {
				continue
			}
			add(common.BytesToAddress(log.Topics[1].Bytes()))
			add(common.BytesToAddress(log.Topics[2].Bytes()))
			total++
		}
	}

	h.logger.Info("holders scanned",
		zap.String("token", token.Hex()),
		zap.Uint64("from", h.cfg.FromBlock),
		zap.Uint64("to", toBlock),
		zap.Int("transfers", total),
		zap.Int("holders", len(holders)),
		zap.Time("window_end", time.Unix(int64(end), 0).UTC()),
	)
	return holders, nil
}

func (h *HolderScanner) filterLogsWithRetry(ctx context.Context, token common.Address, r blockRange) ([]types.Log, error) {
	var logs []types.Log
	topics := [][]common.Hash{{TransferTopic}}
	err := withRetry(ctx, h.cfg.MaxRetries, h.cfg.RetryBackoff, func(ctx context.Context) error {
		var err error
		logs, err = h.client.FilterLogs(ctx, r.From, r.To, []common.Address{token}, topics)
		if err != nil {
			h.logger.Warn("filter logs failed", zap.Error(err), zap.Uint64("from", r.From), zap.Uint64("to", r.To))
		}
		return err
	})
	return logs, err
}

func (h *HolderScanner) blockBeforeWithRetry(ctx context.Context, ts uint64) (uint64, error) {
	var block uint64
	err := withRetry(ctx, h.cfg.MaxRetries, h.cfg.RetryBackoff, func(ctx context.Context) error {
		var err error
		block, err = chain.BlockBefore(ctx, h.client, ts)
		if err != nil {
			h.logger.Warn("block lookup failed", zap.Error(err), zap.Uint64("timestamp", ts))
		}
		return err
	})
	if err != nil {
		return 0, fmt.Errorf("block before %d: %w", ts, err)
	}
	return block, nil
}
