package model

import "github.com/ethereum/go-ethereum/common"

// Commitment is the published snapshot of the ledger.
type Commitment struct {
	MerkleRoot  common.Hash `json:"merkle_root"`
	ContentHash common.Hash `json:"content_hash"`
}

// IsZero reports whether nothing has been committed yet.
func (c Commitment) IsZero() bool {
	return c.MerkleRoot == (common.Hash{}) && c.ContentHash == (common.Hash{})
}
