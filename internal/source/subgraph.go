package source

import (
	"context"
	"errors"
	"fmt"
	"math/big"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/machinebox/graphql"
	"go.uber.org/zap"

	"incentiveScope/internal/model"
)

const positionPageSize = 1000

// MaxSwapsLimit is the largest page hosted Graph endpoints accept.
const MaxSwapsLimit = 1000

const swapsQuery = `query epochSwaps($pool: String!, $start: BigInt!, $end: BigInt!, $minUSD: BigDecimal!, $first: Int!) {
  swaps(
    where: { pool: $pool, timestamp_gte: $start, timestamp_lt: $end, amountUSD_gt: $minUSD }
    orderBy: amountUSD
    orderDirection: desc
    first: $first
  ) {
    id
    timestamp
    amountUSD
    tick
    transaction { blockNumber }
  }
}`

const positionsQuery = `query poolPositions($pool: String!, $skip: Int!) {
  positionSnapshots(where: { pool_: { id: $pool } }, first: 1000, skip: $skip) {
    position { id }
  }
}`

// SubgraphConfig controls the swap and position listing client.
type SubgraphConfig struct {
	URL          string
	MinUSD       float64
	MaxSwaps     int
	Timeout      time.Duration
	MaxRetries   int
	RetryBackoff time.Duration
}

// Subgraph lists swaps and position ids from a Uniswap-V3 style subgraph.
type Subgraph struct {
	cfg    SubgraphConfig
	client *graphql.Client
	logger *zap.Logger
}

// NewSubgraph builds a subgraph client.
func NewSubgraph(cfg SubgraphConfig, logger *zap.Logger) (*Subgraph, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	if strings.TrimSpace(cfg.URL) == "" {
		return nil, fmt.Errorf("subgraph url is required")
	}
	if cfg.MinUSD < 0 {
		return nil, fmt.Errorf("min usd must be >= 0")
	}
	if cfg.MaxSwaps <= 0 {
		cfg.MaxSwaps = MaxSwapsLimit
	}
	if cfg.MaxSwaps > MaxSwapsLimit {
		return nil, fmt.Errorf("max swaps %d exceeds %d", cfg.MaxSwaps, MaxSwapsLimit)
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 30 * time.Second
	}
	client := graphql.NewClient(cfg.URL, graphql.WithHTTPClient(&http.Client{Timeout: cfg.Timeout}))
	client.Log = func(msg string) { logger.Debug(msg) }
	return &Subgraph{
		cfg:    cfg,
		client: client,
		logger: logger,
	}, nil
}

type swapRow struct {
	ID          string `json:"id"`
	Timestamp   string `json:"timestamp"`
	AmountUSD   string `json:"amountUSD"`
	Tick        string `json:"tick"`
	Transaction struct {
		BlockNumber string `json:"blockNumber"`
	} `json:"transaction"`
}

// FetchSwaps returns the epoch's swaps above the USD floor, capped to the
// largest MaxSwaps by value and ordered by timestamp.
func (s *Subgraph) FetchSwaps(ctx context.Context, ep model.Epoch) ([]model.SwapEvent, error) {
	vars := map[string]interface{}{
		"pool":   strings.ToLower(ep.Pool.Hex()),
		"start":  strconv.FormatUint(ep.Start(), 10),
		"end":    strconv.FormatUint(ep.End(), 10),
		"minUSD": strconv.FormatFloat(s.cfg.MinUSD, 'f', -1, 64),
		"first":  s.cfg.MaxSwaps,
	}
	var out struct {
		Swaps []swapRow `json:"swaps"`
	}
	if err := s.query(ctx, swapsQuery, vars, &out); err != nil {
		return nil, fmt.Errorf("query swaps: %w", err)
	}
	if out.Swaps == nil {
		return nil, fmt.Errorf("query swaps: subgraph returned no data")
	}

	swaps := make([]model.SwapEvent, 0, len(out.Swaps))
	for _, row := range out.Swaps {
		swap, err := row.toModel()
		if err != nil {
			return nil, fmt.Errorf("swap %s: %w", row.ID, err)
		}
		swaps = append(swaps, swap)
	}
	model.SortSwaps(swaps)

	s.logger.Info("swaps fetched",
		zap.String("epoch", ep.String()),
		zap.Int("swaps", len(swaps)),
		zap.Float64("min_usd", s.cfg.MinUSD),
	)
	return swaps, nil
}

func (r swapRow) toModel() (model.SwapEvent, error) {
	ts, err := strconv.ParseUint(r.Timestamp, 10, 64)
	if err != nil {
		return model.SwapEvent{}, fmt.Errorf("parse timestamp: %w", err)
	}
	tick, err := strconv.ParseInt(r.Tick, 10, 32)
	if err != nil {
		return model.SwapEvent{}, fmt.Errorf("parse tick: %w", err)
	}
	usd, err := strconv.ParseFloat(r.AmountUSD, 64)
	if err != nil {
		return model.SwapEvent{}, fmt.Errorf("parse amountUSD: %w", err)
	}
	block, err := strconv.ParseUint(r.Transaction.BlockNumber, 10, 64)
	if err != nil {
		return model.SwapEvent{}, fmt.Errorf("parse block number: %w", err)
	}
	return model.SwapEvent{
		ID:          r.ID,
		Timestamp:   ts,
		Tick:        int32(tick),
		AmountUSD:   usd,
		BlockNumber: block,
	}, nil
}

// FetchPositionIDs pages through every position snapshot of the pool and
// returns the distinct position ids in first-seen order.
func (s *Subgraph) FetchPositionIDs(ctx context.Context, pool common.Address) ([]*big.Int, error) {
	seen := make(map[string]struct{})
	ids := make([]*big.Int, 0)
	for skip := 0; ; skip += positionPageSize {
		var page struct {
			PositionSnapshots []struct {
				Position struct {
					ID string `json:"id"`
				} `json:"position"`
			} `json:"positionSnapshots"`
		}
		vars := map[string]interface{}{
			"pool": strings.ToLower(pool.Hex()),
			"skip": skip,
		}
		if err := s.query(ctx, positionsQuery, vars, &page); err != nil {
			return nil, fmt.Errorf("query positions (skip %d): %w", skip, err)
		}
		if page.PositionSnapshots == nil {
			return nil, fmt.Errorf("query positions (skip %d): subgraph returned no data", skip)
		}

		for _, snap := range page.PositionSnapshots {
			raw := snap.Position.ID
			if _, ok := seen[raw]; ok {
				continue
			}
			id, ok := new(big.Int).SetString(raw, 10)
			if !ok {
				return nil, fmt.Errorf("invalid position id %q", raw)
			}
			seen[raw] = struct{}{}
			ids = append(ids, id)
		}
		if len(page.PositionSnapshots) < positionPageSize {
			break
		}
	}

	s.logger.Info("positions fetched", zap.String("pool", pool.Hex()), zap.Int("positions", len(ids)))
	return ids, nil
}

func (s *Subgraph) query(ctx context.Context, query string, vars map[string]interface{}, out interface{}) error {
	return withRetry(ctx, s.cfg.MaxRetries, s.cfg.RetryBackoff, func(ctx context.Context) error {
		req := graphql.NewRequest(query)
		for k, v := range vars {
			req.Var(k, v)
		}
		if err := s.client.Run(ctx, req, out); err != nil {
			s.logger.Warn("subgraph request failed", zap.Error(err))
			return classify(err)
		}
		return nil
	})
}

const nonOKStatus = "non-200 status code:"

// classify marks responses the server meant, such as query errors or client
// statuses, as permanent. Transport failures and 5xx/429 stay retryable.
func classify(err error) error {
	var urlErr *url.Error
	if errors.As(err, &urlErr) {
		return err
	}
	msg := err.Error()
	if i := strings.Index(msg, nonOKStatus); i >= 0 {
		code, convErr := strconv.Atoi(strings.TrimSpace(msg[i+len(nonOKStatus):]))
		if convErr != nil || retryableStatus(code) {
			return err
		}
		return permanent(err)
	}
	if strings.Contains(msg, "decoding response") {
		return err
	}
	return permanent(err)
}
