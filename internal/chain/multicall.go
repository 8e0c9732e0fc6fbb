package chain

import (
	"context"
	"fmt"
	"time"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/patrickmn/go-cache"
	"go.uber.org/zap"

	"incentiveScope/internal/contracts"
)

// DefaultMulticall3 is the canonical Multicall3 deployment address.
var DefaultMulticall3 = common.HexToAddress("0xcA11bde05977b3631167028862bE2a173976CA11")

// Call is one entry of a batched read.
type Call struct {
	Target       common.Address
	Data         []byte
	AllowFailure bool
}

// Result is the tagged outcome of one Call.
type Result struct {
	Success bool
	Data    []byte
}

// BatchReader executes a list of calls against one historical block and
// returns one Result per call, in order.
type BatchReader interface {
	Call(ctx context.Context, calls []Call, blockNumber uint64) ([]Result, error)
}

type call3 struct {
	Target       common.Address
	AllowFailure bool
	CallData     []byte
}

type result3 struct {
	Success    bool
	ReturnData []byte
}

// MulticallConfig controls the Multicall reader.
type MulticallConfig struct {
	Address   common.Address
	ChunkSize int
	CacheTTL  time.Duration
}

// Multicall batches reads through Multicall3.aggregate3. Successful reads at
// a pinned block are memoized; latest-block reads never are.
type Multicall struct {
	caller  ContractCaller
	address common.Address
	chunk   int
	abi     abi.ABI
	cache   *cache.Cache
	logger  *zap.Logger
}

// NewMulticall builds a Multicall reader.
func NewMulticall(cfg MulticallConfig, caller ContractCaller, logger *zap.Logger) (*Multicall, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	parsed, err := contracts.Multicall3ABI()
	if err != nil {
		return nil, fmt.Errorf("parse multicall abi: %w", err)
	}
	address := cfg.Address
	if address == (common.Address{}) {
		address = DefaultMulticall3
	}
	chunk := cfg.ChunkSize
	if chunk <= 0 {
		chunk = 500
	}
	ttl := cfg.CacheTTL
	if ttl <= 0 {
		ttl = 30 * time.Minute
	}
	return &Multicall{
		caller:  caller,
		address: address,
		chunk:   chunk,
		abi:     parsed,
		cache:   cache.New(ttl, 2*ttl),
		logger:  logger,
	}, nil
}

// Call implements BatchReader.
func (m *Multicall) Call(ctx context.Context, calls []Call, blockNumber uint64) ([]Result, error) {
	if m.caller == nil {
		return nil, fmt.Errorf("contract caller is nil")
	}
	results := make([]Result, len(calls))
	pending := make([]int, 0, len(calls))
	for i, c := range calls {
		if blockNumber > 0 {
			if data, ok := m.cache.Get(cacheKey(blockNumber, c)); ok {
				results[i] = Result{Success: true, Data: data.([]byte)}
				continue
			}
		}
		pending = append(pending, i)
	}
	if len(pending) == 0 {
		return results, nil
	}

	for _, batch := range splitBatches(len(pending), m.chunk) {
		idx := pending[batch.From : batch.To+1]
		out, err := m.aggregate(ctx, calls, idx, blockNumber)
		if err != nil {
			return nil, err
		}
		for j, i := range idx {
			results[i] = Result{Success: out[j].Success, Data: out[j].ReturnData}
			if blockNumber > 0 && out[j].Success && len(out[j].ReturnData) > 0 {
				m.cache.Set(cacheKey(blockNumber, calls[i]), out[j].ReturnData, cache.DefaultExpiration)
			}
		}
	}

	m.logger.Debug("multicall",
		zap.Uint64("block", blockNumber),
		zap.Int("calls", len(calls)),
		zap.Int("fetched", len(pending)),
	)
	return results, nil
}

func (m *Multicall) aggregate(ctx context.Context, calls []Call, idx []int, blockNumber uint64) ([]result3, error) {
	packed := make([]call3, 0, len(idx))
	for _, i := range idx {
		packed = append(packed, call3{
			Target:       calls[i].Target,
			AllowFailure: calls[i].AllowFailure,
			CallData:     calls[i].Data,
		})
	}

	data, err := m.abi.Pack("aggregate3", packed)
	if err != nil {
		return nil, fmt.Errorf("pack aggregate3: %w", err)
	}
	to := m.address
	resp, err := m.caller.CallContract(ctx, ethereum.CallMsg{To: &to, Data: data}, blockArg(blockNumber))
	if err != nil {
		return nil, fmt.Errorf("call aggregate3 at block %d: %w", blockNumber, err)
	}
	values, err := m.abi.Unpack("aggregate3", resp)
	if err != nil {
		return nil, fmt.Errorf("unpack aggregate3: %w", err)
	}
	if len(values) != 1 {
		return nil, fmt.Errorf("aggregate3 return size %d", len(values))
	}
	out := *abi.ConvertType(values[0], new([]result3)).(*[]result3)
	if len(out) != len(idx) {
		return nil, fmt.Errorf("aggregate3 returned %d results for %d calls", len(out), len(idx))
	}
	return out, nil
}

func cacheKey(blockNumber uint64, c Call) string {
	return fmt.Sprintf("%d:%s:%s", blockNumber, c.Target.Hex(), hexutil.Encode(c.Data))
}
