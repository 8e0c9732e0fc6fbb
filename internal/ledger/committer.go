package ledger

import (
	"bytes"
	"context"
	"errors"
	"fmt"

	"github.com/ethereum/go-ethereum/common"
	"go.uber.org/zap"

	"incentiveScope/internal/model"
)

// ContentStore publishes and fetches serialized ledgers by content hash.
type ContentStore interface {
	Publish(ctx context.Context, data []byte) (common.Hash, error)
	Fetch(ctx context.Context, hash common.Hash) ([]byte, error)
}

// CommitmentReader reads the authoritative commitment.
type CommitmentReader interface {
	CurrentTree(ctx context.Context) (model.Commitment, error)
}

// CommitmentSink stores the authoritative commitment.
type CommitmentSink interface {
	CommitmentReader
	UpdateTree(ctx context.Context, c model.Commitment) (common.Hash, error)
}

// Checkpoint serializes commits: a week at or below the last committed one is
// refused.
type Checkpoint interface {
	LastCommitted(ctx context.Context) (uint64, bool, error)
	SaveCommitted(ctx context.Context, week uint64, c model.Commitment) error
}

// ErrAlreadyCommitted is returned when the checkpoint already covers a week.
var ErrAlreadyCommitted = errors.New("week already committed")

// PublicationError means the ledger could not be made authoritative; the
// previous commitment still stands and the epoch must be retried.
type PublicationError struct {
	Stage string
	Err   error
}

func (e *PublicationError) Error() string {
	return fmt.Sprintf("publication failed at %s: %v", e.Stage, e.Err)
}

func (e *PublicationError) Unwrap() error {
	return e.Err
}

// Receipt describes a successful commit.
type Receipt struct {
	Week       uint64
	Commitment model.Commitment
	TxHash     common.Hash
	Tree       *Tree
	Content    []byte
}

// Committer publishes a ledger and then updates the on-chain tree.
type Committer struct {
	store      ContentStore
	sink       CommitmentSink
	checkpoint Checkpoint
	token      common.Address
	logger     *zap.Logger
}

// NewCommitter builds a Committer. checkpoint may be nil.
func NewCommitter(store ContentStore, sink CommitmentSink, checkpoint Checkpoint, token common.Address, logger *zap.Logger) *Committer {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Committer{store: store, sink: sink, checkpoint: checkpoint, token: token, logger: logger}
}

// Commit publishes l, verifies the stored bytes, then updates the tree.
func (c *Committer) Commit(ctx context.Context, week uint64, l Ledger) (*Receipt, error) {
	if c.store == nil || c.sink == nil {
		return nil, fmt.Errorf("committer is missing a content store or sink")
	}
	if c.checkpoint != nil {
		last, ok, err := c.checkpoint.LastCommitted(ctx)
		if err != nil {
			return nil, fmt.Errorf("load checkpoint: %w", err)
		}
		if ok && week <= last {
			return nil, fmt.Errorf("week %d (last %d): %w", week, last, ErrAlreadyCommitted)
		}
	}

	tree, err := BuildTree(l, c.token)
	if err != nil {
		return nil, fmt.Errorf("build tree: %w", err)
	}
	content, err := Encode(l)
	if err != nil {
		return nil, fmt.Errorf("encode ledger: %w", err)
	}

	hash, err := c.store.Publish(ctx, content)
	if err != nil {
		return nil, &PublicationError{Stage: "publish", Err: err}
	}
	stored, err := c.store.Fetch(ctx, hash)
	if err != nil {
		return nil, &PublicationError{Stage: "verify", Err: err}
	}
	if !bytes.Equal(stored, content) {
		return nil, &PublicationError{Stage: "verify", Err: fmt.Errorf("stored content differs from published ledger")}
	}

	commitment := model.Commitment{MerkleRoot: tree.Root(), ContentHash: hash}
	txHash, err := c.sink.UpdateTree(ctx, commitment)
	if err != nil {
		return nil, &PublicationError{Stage: "update tree", Err: err}
	}

	c.logger.Info("ledger committed",
		zap.Uint64("week", week),
		zap.String("root", commitment.MerkleRoot.Hex()),
		zap.String("content", commitment.ContentHash.Hex()),
		zap.String("tx", txHash.Hex()),
		zap.Int("holders", len(l)),
	)

	receipt := &Receipt{Week: week, Commitment: commitment, TxHash: txHash, Tree: tree, Content: content}
	if c.checkpoint != nil {
		if err := c.checkpoint.SaveCommitted(ctx, week, commitment); err != nil {
			return receipt, fmt.Errorf("save checkpoint after commit: %w", err)
		}
	}
	return receipt, nil
}
