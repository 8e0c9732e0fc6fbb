package chain

import (
	"context"
	"crypto/ecdsa"
	"fmt"
	"math/big"
	"strings"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/accounts/abi/bind"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/ethereum/go-ethereum/crypto"
	"go.uber.org/zap"

	"incentiveScope/internal/contracts"
	"incentiveScope/internal/model"
)

// merkleTree mirrors the distributor's MerkleTree struct.
type merkleTree struct {
	MerkleRoot [32]byte
	IpfsHash   [32]byte
}

// DistributorConfig configures the on-chain commitment sink.
type DistributorConfig struct {
	Address    common.Address
	PrivateKey string
	ChainID    *big.Int
	GasLimit   uint64
}

// Distributor reads and updates the committed tree of a Merkle distributor.
type Distributor struct {
	address common.Address
	backend TxBackend
	abi     abi.ABI
	key     *ecdsa.PrivateKey
	chainID *big.Int
	gas     uint64
	logger  *zap.Logger
}

// NewDistributor builds a sink. A missing private key yields a read-only sink.
func NewDistributor(cfg DistributorConfig, backend TxBackend, logger *zap.Logger) (*Distributor, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	if cfg.Address == (common.Address{}) {
		return nil, fmt.Errorf("distributor address is required")
	}
	parsed, err := contracts.MerkleDistributorABI()
	if err != nil {
		return nil, fmt.Errorf("parse distributor abi: %w", err)
	}

	d := &Distributor{
		address: cfg.Address,
		backend: backend,
		abi:     parsed,
		chainID: cfg.ChainID,
		gas:     cfg.GasLimit,
		logger:  logger,
	}
	if key := strings.TrimPrefix(strings.TrimSpace(cfg.PrivateKey), "0x"); key != "" {
		d.key, err = crypto.HexToECDSA(key)
		if err != nil {
			return nil, fmt.Errorf("parse private key: %w", err)
		}
	}
	return d, nil
}

// CurrentTree returns the commitment stored on-chain at the latest block.
func (d *Distributor) CurrentTree(ctx context.Context) (model.Commitment, error) {
	data, err := contracts.Pack(d.abi, "tree")
	if err != nil {
		return model.Commitment{}, err
	}
	to := d.address
	resp, err := d.backend.CallContract(ctx, ethereum.CallMsg{To: &to, Data: data}, nil)
	if err != nil {
		return model.Commitment{}, fmt.Errorf("call tree: %w", err)
	}
	values, err := contracts.Unpack(d.abi, "tree", resp)
	if err != nil {
		return model.Commitment{}, err
	}
	if len(values) != 2 {
		return model.Commitment{}, fmt.Errorf("tree return size %d", len(values))
	}
	root, ok := values[0].([32]byte)
	if !ok {
		return model.Commitment{}, fmt.Errorf("unexpected merkleRoot type %T", values[0])
	}
	content, ok := values[1].([32]byte)
	if !ok {
		return model.Commitment{}, fmt.Errorf("unexpected ipfsHash type %T", values[1])
	}
	return model.Commitment{MerkleRoot: root, ContentHash: content}, nil
}

// UpdateTree sends updateTree and waits for a successful receipt.
func (d *Distributor) UpdateTree(ctx context.Context, c model.Commitment) (common.Hash, error) {
	if d.key == nil {
		return common.Hash{}, fmt.Errorf("distributor sink has no signing key")
	}
	chainID := d.chainID
	if chainID == nil {
		id, err := d.backend.ChainID(ctx)
		if err != nil {
			return common.Hash{}, fmt.Errorf("get chain id: %w", err)
		}
		chainID = id
	}
	opts, err := bind.NewKeyedTransactorWithChainID(d.key, chainID)
	if err != nil {
		return common.Hash{}, fmt.Errorf("build transactor: %w", err)
	}
	opts.Context = ctx
	opts.GasLimit = d.gas

	contract := bind.NewBoundContract(d.address, d.abi, d.backend, d.backend, d.backend)
	tx, err := contract.Transact(opts, "updateTree", merkleTree{
		MerkleRoot: c.MerkleRoot,
		IpfsHash:   c.ContentHash,
	})
	if err != nil {
		return common.Hash{}, fmt.Errorf("send updateTree: %w", err)
	}
	d.logger.Info("updateTree sent",
		zap.String("tx", tx.Hash().Hex()),
		zap.String("root", c.MerkleRoot.Hex()),
		zap.String("content", c.ContentHash.Hex()),
	)

	receipt, err := bind.WaitMined(ctx, d.backend, tx)
	if err != nil {
		return tx.Hash(), fmt.Errorf("wait updateTree: %w", err)
	}
	if receipt.Status != types.ReceiptStatusSuccessful {
		return tx.Hash(), fmt.Errorf("updateTree reverted in block %d", receipt.BlockNumber.Uint64())
	}
	return tx.Hash(), nil
}
