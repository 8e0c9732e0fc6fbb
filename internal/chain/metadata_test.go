package chain

import (
	"context"
	"testing"

	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"

	"incentiveScope/internal/contracts"
)

// tableReader answers calls from a target+calldata table; unknown calls fail.
type tableReader map[string][]byte

func (r tableReader) Call(_ context.Context, calls []Call, _ uint64) ([]Result, error) {
	out := make([]Result, len(calls))
	for i, c := range calls {
		if data, ok := r[c.Target.Hex()+hexutil.Encode(c.Data)]; ok {
			out[i] = Result{Success: true, Data: data}
		}
	}
	return out, nil
}

func TestReadPoolMeta(t *testing.T) {
	erc20, _ := contracts.ERC20ABI()
	poolABI, _ := contracts.PoolABI()

	pool := common.HexToAddress("0x8db1b906d47dfc1d84a87fc49bd0522e285b98b9")
	newo := common.HexToAddress("0x98585dFc8d9e7D48F0b1aE47ce33332CF4237D96")
	usdc := common.HexToAddress("0xA0b86991c6218b36c1d19D4a2e9Eb0cE3606eB48")

	reader := tableReader{}
	put := func(target common.Address, parsed abi.ABI, method string, out []byte) {
		data, err := parsed.Pack(method)
		if err != nil {
			t.Fatalf("pack %s: %v", method, err)
		}
		reader[target.Hex()+hexutil.Encode(data)] = out
	}
	pack := func(method string, args ...interface{}) []byte {
		abiSet := erc20
		if method == "token0" || method == "token1" {
			abiSet = poolABI
		}
		out, err := abiSet.Methods[method].Outputs.Pack(args...)
		if err != nil {
			t.Fatalf("pack %s output: %v", method, err)
		}
		return out
	}

	put(pool, poolABI, "token0", pack("token0", newo))
	put(pool, poolABI, "token1", pack("token1", usdc))
	put(newo, erc20, "decimals", pack("decimals", uint8(18)))
	put(newo, erc20, "symbol", pack("symbol", "NEWO"))
	put(usdc, erc20, "decimals", pack("decimals", uint8(6)))

	meta, err := ReadPoolMeta(context.Background(), reader, pool)
	if err != nil {
		t.Fatalf("read pool meta: %v", err)
	}
	if meta.Token0.Address != newo || meta.Token0.Decimals != 18 || meta.Token0.Symbol != "NEWO" {
		t.Fatalf("token0 mismatch: %+v", meta.Token0)
	}
	if meta.Token1.Decimals != 6 || meta.Token1.Symbol != "" {
		t.Fatalf("token1 mismatch: %+v", meta.Token1)
	}
	if meta.Pair() != "NEWO/" {
		t.Fatalf("pair mismatch: %s", meta.Pair())
	}

	if _, err := ReadTokenMeta(context.Background(), reader, []common.Address{pool}); err == nil {
		t.Fatalf("expected error for a token without decimals")
	}
}
