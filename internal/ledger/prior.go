package ledger

import (
	"context"
	"fmt"

	"github.com/ethereum/go-ethereum/common"

	"incentiveScope/internal/model"
)

// LoadCommitted reads the current commitment, fetches its content and checks
// that the content rebuilds the committed root. A zero commitment yields an
// empty ledger.
func LoadCommitted(ctx context.Context, sink CommitmentReader, store ContentStore, token common.Address) (Ledger, model.Commitment, error) {
	current, err := sink.CurrentTree(ctx)
	if err != nil {
		return nil, model.Commitment{}, fmt.Errorf("read current tree: %w", err)
	}
	if current.IsZero() {
		return New(), current, nil
	}

	data, err := store.Fetch(ctx, current.ContentHash)
	if err != nil {
		return nil, current, fmt.Errorf("fetch committed ledger: %w", err)
	}
	l, err := Decode(data)
	if err != nil {
		return nil, current, err
	}
	if err := VerifyRoot(l, token, current.MerkleRoot); err != nil {
		return nil, current, err
	}
	return l, current, nil
}

// VerifyRoot rebuilds the tree of l and compares it with root.
func VerifyRoot(l Ledger, token common.Address, root common.Hash) error {
	tree, err := BuildTree(l, token)
	if err != nil {
		return err
	}
	if tree.Root() != root {
		return fmt.Errorf("ledger root %s does not match committed %s", tree.Root().Hex(), root.Hex())
	}
	return nil
}
