package contracts

import (
	"fmt"
	"math"
	"math/big"

	"github.com/ethereum/go-ethereum/accounts/abi"
)

// Pack encodes a method call, failing loudly on ABI misuse.
func Pack(parsed abi.ABI, method string, args ...interface{}) ([]byte, error) {
	data, err := parsed.Pack(method, args...)
	if err != nil {
		return nil, fmt.Errorf("pack %s: %w", method, err)
	}
	return data, nil
}

// Unpack decodes a method's return data.
func Unpack(parsed abi.ABI, method string, data []byte) ([]interface{}, error) {
	if len(data) == 0 {
		return nil, fmt.Errorf("unpack %s: empty return data", method)
	}
	values, err := parsed.Unpack(method, data)
	if err != nil {
		return nil, fmt.Errorf("unpack %s: %w", method, err)
	}
	return values, nil
}

// UnpackBigInt decodes a method returning a single integer at index.
func UnpackBigInt(parsed abi.ABI, method string, data []byte, index int) (*big.Int, error) {
	values, err := Unpack(parsed, method, data)
	if err != nil {
		return nil, err
	}
	if len(values) <= index {
		return nil, fmt.Errorf("%s return size %d", method, len(values))
	}
	return AsBigInt(values[index])
}

// UnpackInt24 decodes a method returning a single int24.
func UnpackInt24(parsed abi.ABI, method string, data []byte) (int32, error) {
	value, err := UnpackBigInt(parsed, method, data, 0)
	if err != nil {
		return 0, err
	}
	return Int24FromBig(value)
}

// AsBigInt converts an ABI-decoded integer into *big.Int.
func AsBigInt(value interface{}) (*big.Int, error) {
	switch v := value.(type) {
	case *big.Int:
		return new(big.Int).Set(v), nil
	case big.Int:
		return new(big.Int).Set(&v), nil
	case uint8:
		return new(big.Int).SetUint64(uint64(v)), nil
	case uint16:
		return new(big.Int).SetUint64(uint64(v)), nil
	case uint32:
		return new(big.Int).SetUint64(uint64(v)), nil
	case uint64:
		return new(big.Int).SetUint64(v), nil
	case int8:
		return big.NewInt(int64(v)), nil
	case int16:
		return big.NewInt(int64(v)), nil
	case int32:
		return big.NewInt(int64(v)), nil
	case int64:
		return big.NewInt(v), nil
	default:
		return nil, fmt.Errorf("unsupported int type %T", value)
	}
}

// Int24FromBig bounds-checks an int24 value.
func Int24FromBig(value *big.Int) (int32, error) {
	min := big.NewInt(-1 << 23)
	max := big.NewInt((1 << 23) - 1)
	if value.Cmp(min) < 0 || value.Cmp(max) > 0 {
		return 0, fmt.Errorf("int24 overflow: %s", value.String())
	}
	return int32(value.Int64()), nil
}

// ToFloat scales an on-chain integer down by 10^decimals.
func ToFloat(value *big.Int, decimals int) float64 {
	if value == nil {
		return 0
	}
	f := new(big.Float).SetInt(value)
	if decimals > 0 {
		denom := new(big.Float).SetInt(new(big.Int).Exp(big.NewInt(10), big.NewInt(int64(decimals)), nil))
		f.Quo(f, denom)
	}
	out, _ := f.Float64()
	if math.IsInf(out, 0) {
		return 0
	}
	return out
}
