package main

import (
	"context"
	"fmt"
	"math/big"
	"time"

	"go.uber.org/zap"

	"incentiveScope/internal/chain"
	"incentiveScope/internal/config"
	"incentiveScope/internal/ledger"
	"incentiveScope/internal/storage"
)

type storeOptions struct {
	ContentDir  string
	IPFSAPI     string
	IPFSGateway string
	IPFSToken   string
	Timeout     time.Duration
}

// openContentStore prefers IPFS when an endpoint is configured and falls
// back to the local directory.
func openContentStore(opts storeOptions, logger *zap.Logger) (ledger.ContentStore, error) {
	if opts.IPFSAPI != "" || opts.IPFSGateway != "" {
		return storage.NewIPFSStore(storage.IPFSConfig{
			APIURL:     opts.IPFSAPI,
			GatewayURL: opts.IPFSGateway,
			Token:      opts.IPFSToken,
			Timeout:    opts.Timeout,
		}, logger), nil
	}
	if opts.ContentDir != "" {
		return storage.NewFileContentStore(opts.ContentDir), nil
	}
	return nil, fmt.Errorf("no content store configured (ipfs-api, ipfs-gateway or content-dir)")
}

func openDistributor(ctx context.Context, client *chain.Client, program *config.Program, key string, gasLimit uint64, logger *zap.Logger) (*chain.Distributor, error) {
	chainID, err := client.GetChainID(ctx)
	if err != nil {
		return nil, fmt.Errorf("get chain id: %w", err)
	}
	if program.ChainID != 0 && chainID.Cmp(new(big.Int).SetUint64(program.ChainID)) != 0 {
		return nil, fmt.Errorf("rpc chain id %s does not match program chain id %d", chainID, program.ChainID)
	}
	return chain.NewDistributor(chain.DistributorConfig{
		Address:    program.DistributorAddress(),
		PrivateKey: key,
		ChainID:    chainID,
		GasLimit:   gasLimit,
	}, client.Backend(), logger)
}
