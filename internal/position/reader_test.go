package position

import (
	"context"
	"fmt"
	"math/big"

	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"

	"incentiveScope/internal/chain"
)

// fakeReader answers calls registered by target and calldata; anything
// else comes back as a failed entry.
type fakeReader struct {
	answers map[string][]byte
	err     error
	blocks  []uint64
}

func newFakeReader() *fakeReader {
	return &fakeReader{answers: make(map[string][]byte)}
}

func readerKey(target common.Address, data []byte) string {
	return target.Hex() + ":" + hexutil.Encode(data)
}

func (f *fakeReader) answer(parsed abi.ABI, target common.Address, method string, args []interface{}, outputs ...interface{}) {
	in, err := parsed.Pack(method, args...)
	if err != nil {
		panic(fmt.Sprintf("pack %s: %v", method, err))
	}
	out, err := parsed.Methods[method].Outputs.Pack(outputs...)
	if err != nil {
		panic(fmt.Sprintf("pack %s outputs: %v", method, err))
	}
	f.answers[readerKey(target, in)] = out
}

func (f *fakeReader) Call(_ context.Context, calls []chain.Call, blockNumber uint64) ([]chain.Result, error) {
	if f.err != nil {
		return nil, f.err
	}
	f.blocks = append(f.blocks, blockNumber)
	out := make([]chain.Result, len(calls))
	for i, c := range calls {
		if data, ok := f.answers[readerKey(c.Target, c.Data)]; ok {
			out[i] = chain.Result{Success: true, Data: data}
		}
	}
	return out, nil
}

func wei(units int64) *big.Int {
	return new(big.Int).Mul(big.NewInt(units), new(big.Int).Exp(big.NewInt(10), big.NewInt(18), nil))
}

func addr(b byte) common.Address {
	var a common.Address
	for i := range a {
		a[i] = b
	}
	return a
}
