// Package ledger keeps the cumulative reward ledger and its Merkle
// commitment.
package ledger

import (
	"encoding/json"
	"fmt"
	"math/big"
	"sort"
	"strings"

	"github.com/ethereum/go-ethereum/common"
	"github.com/holiman/uint256"

	"incentiveScope/internal/model"
)

// Ledger maps holder -> label -> cumulative amount in 18-decimal fixed point.
// Amounts only ever grow.
type Ledger map[common.Address]map[string]*uint256.Int

// New returns an empty ledger.
func New() Ledger {
	return make(Ledger)
}

// Add credits amount to holder under label.
func (l Ledger) Add(holder common.Address, label string, amount *uint256.Int) error {
	if amount == nil {
		return nil
	}
	labels, ok := l[holder]
	if !ok {
		labels = make(map[string]*uint256.Int)
		l[holder] = labels
	}
	prev, ok := labels[label]
	if !ok {
		labels[label] = new(uint256.Int).Set(amount)
		return nil
	}
	sum, overflow := new(uint256.Int).AddOverflow(prev, amount)
	if overflow {
		return fmt.Errorf("amount overflow for %s/%s", holder.Hex(), label)
	}
	labels[label] = sum
	return nil
}

// Get returns the amount for holder and label, zero when absent.
func (l Ledger) Get(holder common.Address, label string) *uint256.Int {
	if v, ok := l[holder][label]; ok {
		return new(uint256.Int).Set(v)
	}
	return new(uint256.Int)
}

// Clone returns a deep copy.
func (l Ledger) Clone() Ledger {
	out := make(Ledger, len(l))
	for holder, labels := range l {
		cp := make(map[string]*uint256.Int, len(labels))
		for label, v := range labels {
			cp[label] = new(uint256.Int).Set(v)
		}
		out[holder] = cp
	}
	return out
}

// Merge returns a new ledger holding the sum of all inputs. Merge order does
// not affect the result.
func Merge(ledgers ...Ledger) (Ledger, error) {
	out := New()
	for _, l := range ledgers {
		for holder, labels := range l {
			for label, v := range labels {
				if err := out.Add(holder, label, v); err != nil {
					return nil, err
				}
			}
		}
	}
	return out, nil
}

// FromRewards builds a single-label ledger from an epoch's fixed-point rewards.
func FromRewards(label string, rewards map[common.Address]*big.Int) (Ledger, error) {
	out := New()
	for holder, amount := range rewards {
		if amount == nil || amount.Sign() == 0 {
			continue
		}
		if amount.Sign() < 0 {
			return nil, fmt.Errorf("negative reward for %s", holder.Hex())
		}
		v, overflow := uint256.FromBig(amount)
		if overflow {
			return nil, fmt.Errorf("reward overflow for %s", holder.Hex())
		}
		if err := out.Add(holder, label, v); err != nil {
			return nil, err
		}
	}
	return out, nil
}

// Holders returns the holders sorted ascending by address.
func (l Ledger) Holders() []common.Address {
	out := make([]common.Address, 0, len(l))
	for holder := range l {
		out = append(out, holder)
	}
	model.SortAddresses(out)
	return out
}

// Total sums a holder's amounts over every label.
func (l Ledger) Total(holder common.Address) (*uint256.Int, error) {
	total := new(uint256.Int)
	for label, v := range l[holder] {
		var overflow bool
		total, overflow = new(uint256.Int).AddOverflow(total, v)
		if overflow {
			return nil, fmt.Errorf("total overflow for %s at %s", holder.Hex(), label)
		}
	}
	return total, nil
}

// Labels returns every label present, sorted.
func (l Ledger) Labels() []string {
	seen := make(map[string]struct{})
	for _, labels := range l {
		for label := range labels {
			seen[label] = struct{}{}
		}
	}
	out := make([]string, 0, len(seen))
	for label := range seen {
		out = append(out, label)
	}
	sort.Strings(out)
	return out
}

// MarshalJSON writes checksummed holder keys and decimal string amounts.
// encoding/json sorts map keys, so output is deterministic.
func (l Ledger) MarshalJSON() ([]byte, error) {
	raw := make(map[string]map[string]string, len(l))
	for holder, labels := range l {
		entry := make(map[string]string, len(labels))
		for label, v := range labels {
			entry[label] = v.Dec()
		}
		raw[holder.Hex()] = entry
	}
	return json.Marshal(raw)
}

// UnmarshalJSON accepts holder keys in any case; duplicates are summed.
func (l *Ledger) UnmarshalJSON(data []byte) error {
	var raw map[string]map[string]string
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	out := New()
	for key, labels := range raw {
		key = strings.TrimSpace(key)
		if !common.IsHexAddress(key) {
			return fmt.Errorf("invalid holder address: %s", key)
		}
		holder := common.HexToAddress(key)
		for label, amount := range labels {
			v, err := uint256.FromDecimal(amount)
			if err != nil {
				return fmt.Errorf("invalid amount %q for %s/%s: %w", amount, key, label, err)
			}
			if err := out.Add(holder, label, v); err != nil {
				return err
			}
		}
	}
	*l = out
	return nil
}

// Encode serializes the ledger.
func Encode(l Ledger) ([]byte, error) {
	return json.Marshal(l)
}

// Decode parses a serialized ledger.
func Decode(data []byte) (Ledger, error) {
	var l Ledger
	if err := json.Unmarshal(data, &l); err != nil {
		return nil, fmt.Errorf("decode ledger: %w", err)
	}
	if l == nil {
		l = New()
	}
	return l, nil
}
