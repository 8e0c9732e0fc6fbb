package ledger

import (
	"bytes"
	"fmt"

	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/holiman/uint256"
)

var leafArgs = func() abi.Arguments {
	addressTy, _ := abi.NewType("address", "", nil)
	uintTy, _ := abi.NewType("uint256", "", nil)
	return abi.Arguments{{Type: addressTy}, {Type: addressTy}, {Type: uintTy}}
}()

// Leaf is keccak256(abi.encode(holder, token, amount)).
func Leaf(holder, token common.Address, amount *uint256.Int) (common.Hash, error) {
	encoded, err := leafArgs.Pack(holder, token, amount.ToBig())
	if err != nil {
		return common.Hash{}, fmt.Errorf("encode leaf: %w", err)
	}
	return crypto.Keccak256Hash(encoded), nil
}

func hashPair(a, b common.Hash) common.Hash {
	if bytes.Compare(a[:], b[:]) > 0 {
		a, b = b, a
	}
	return crypto.Keccak256Hash(a[:], b[:])
}

// Tree is a sorted-pair keccak Merkle tree with one leaf per holder, leaves
// ordered by holder address. An odd node at the end of a layer is promoted
// unchanged.
type Tree struct {
	token   common.Address
	holders []common.Address
	amounts map[common.Address]*uint256.Int
	index   map[common.Address]int
	layers  [][]common.Hash
}

// BuildTree commits to every holder's total across labels for token.
func BuildTree(l Ledger, token common.Address) (*Tree, error) {
	holders := l.Holders()
	t := &Tree{
		token:   token,
		holders: holders,
		amounts: make(map[common.Address]*uint256.Int, len(holders)),
		index:   make(map[common.Address]int, len(holders)),
	}

	leaves := make([]common.Hash, 0, len(holders))
	for i, holder := range holders {
		total, err := l.Total(holder)
		if err != nil {
			return nil, err
		}
		leaf, err := Leaf(holder, token, total)
		if err != nil {
			return nil, err
		}
		t.amounts[holder] = total
		t.index[holder] = i
		leaves = append(leaves, leaf)
	}

	t.layers = [][]common.Hash{leaves}
	for layer := leaves; len(layer) > 1; {
		next := make([]common.Hash, 0, (len(layer)+1)/2)
		for i := 0; i < len(layer); i += 2 {
			if i+1 == len(layer) {
				next = append(next, layer[i])
				continue
			}
			next = append(next, hashPair(layer[i], layer[i+1]))
		}
		t.layers = append(t.layers, next)
		layer = next
	}
	return t, nil
}

// Root returns the tree root, zero for an empty ledger.
func (t *Tree) Root() common.Hash {
	top := t.layers[len(t.layers)-1]
	if len(top) == 0 {
		return common.Hash{}
	}
	return top[0]
}

// Token is the reward token committed in every leaf.
func (t *Tree) Token() common.Address {
	return t.token
}

// Holders lists the holders in leaf order.
func (t *Tree) Holders() []common.Address {
	return append([]common.Address(nil), t.holders...)
}

// Amount is the committed total of holder.
func (t *Tree) Amount(holder common.Address) (*uint256.Int, bool) {
	v, ok := t.amounts[holder]
	if !ok {
		return nil, false
	}
	return new(uint256.Int).Set(v), true
}

// Proof returns the sibling path from holder's leaf to the root.
func (t *Tree) Proof(holder common.Address) ([]common.Hash, error) {
	idx, ok := t.index[holder]
	if !ok {
		return nil, fmt.Errorf("holder %s not in tree", holder.Hex())
	}
	var proof []common.Hash
	for _, layer := range t.layers[:len(t.layers)-1] {
		sibling := idx ^ 1
		if sibling < len(layer) {
			proof = append(proof, layer[sibling])
		}
		idx /= 2
	}
	return proof, nil
}

// VerifyProof folds proof into leaf and compares with root.
func VerifyProof(leaf common.Hash, proof []common.Hash, root common.Hash) bool {
	node := leaf
	for _, sibling := range proof {
		node = hashPair(node, sibling)
	}
	return node == root
}
