package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"incentiveScope/internal/boost"
	"incentiveScope/internal/chain"
	"incentiveScope/internal/config"
	"incentiveScope/internal/ledger"
	"incentiveScope/internal/storage"
)

func runVerify(cmd *cobra.Command, _ []string) error {
	cfgFile, _ := cmd.Flags().GetString("config")
	cfg, err := config.LoadVerify(cfgFile, cmd.Flags())
	if err != nil {
		return err
	}

	logger, err := newLogger(cfg.LogLevel)
	if err != nil {
		return err
	}
	defer logger.Sync()

	program, err := config.LoadProgram(cfg.Program)
	if err != nil {
		return err
	}
	if program.Distributor == "" {
		return fmt.Errorf("program has no distributor to verify against")
	}
	holders, err := config.ParseAddresses(cfg.Holders)
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	chainClient, err := chain.NewClient(ctx, cfg.RPCURL)
	if err != nil {
		return fmt.Errorf("connect rpc: %w", err)
	}
	defer chainClient.Close()

	distributor, err := openDistributor(ctx, chainClient, program, "", 0, logger)
	if err != nil {
		return err
	}
	token := program.RewardTokenAddress()

	var l ledger.Ledger
	if cfg.In != "" {
		data, err := os.ReadFile(cfg.In)
		if err != nil {
			return fmt.Errorf("read ledger: %w", err)
		}
		l, err = ledger.Decode(data)
		if err != nil {
			return err
		}
		current, err := distributor.CurrentTree(ctx)
		if err != nil {
			return fmt.Errorf("read current tree: %w", err)
		}
		if err := ledger.VerifyRoot(l, token, current.MerkleRoot); err != nil {
			return err
		}
	} else {
		store, err := openContentStore(storeOptions{ContentDir: cfg.ContentDir, IPFSGateway: cfg.IPFSGateway}, logger)
		if err != nil {
			return err
		}
		l, _, err = ledger.LoadCommitted(ctx, distributor, store, token)
		if err != nil {
			return err
		}
	}

	tree, err := ledger.BuildTree(l, token)
	if err != nil {
		return fmt.Errorf("build tree: %w", err)
	}
	logger.Info("ledger matches committed root",
		zap.String("root", tree.Root().Hex()),
		zap.Int("holders", len(l)),
	)

	if len(holders) == 0 {
		holders = tree.Holders()
	}
	var veToken common.Address
	if program.HomeChain {
		veToken = program.VeTokenAddress()
	}
	locks, err := lockMultipliers(ctx, chainClient, veToken, holders, logger)
	if err != nil {
		return err
	}
	claims, err := buildClaims(l, tree, holders, locks)
	if err != nil {
		return err
	}

	writer := storage.NewJsonlWriter(cfg.Out)
	if err := writer.Truncate(); err != nil {
		return fmt.Errorf("truncate proofs: %w", err)
	}
	if err := writer.Append(claims); err != nil {
		return fmt.Errorf("write proofs: %w", err)
	}

	logger.Info("verify complete", zap.Int("proofs", len(claims)), zap.String("out", cfg.Out))
	return nil
}

// claimRecord is one line of the proofs file.
type claimRecord struct {
	ledger.Claim
	LockMultiplier *float64 `json:"lock_multiplier,omitempty"`
}

// lockMultipliers reports the current ve lock multiplier of each holder. It
// returns nil when the program has no ve token.
func lockMultipliers(ctx context.Context, client *chain.Client, veToken common.Address, holders []common.Address, logger *zap.Logger) (map[common.Address]float64, error) {
	if veToken == (common.Address{}) || len(holders) == 0 {
		return nil, nil
	}
	reader, err := chain.NewMulticall(chain.MulticallConfig{}, client, logger)
	if err != nil {
		return nil, err
	}
	engine, err := boost.NewEngine(reader, veToken, logger)
	if err != nil {
		return nil, err
	}
	ends, err := engine.LockEnds(ctx, holders, 0)
	if err != nil {
		return nil, err
	}
	out := boost.LockMultipliers(ends, time.Now())
	logger.Info("lock multipliers read", zap.Int("holders", len(holders)), zap.Int("locked", len(out)))
	return out, nil
}

// buildClaims checks every proof against the root before it is written.
func buildClaims(l ledger.Ledger, tree *ledger.Tree, holders []common.Address, locks map[common.Address]float64) ([]interface{}, error) {
	claims := make([]interface{}, 0, len(holders))
	for _, holder := range holders {
		claim, err := ledger.ClaimFor(l, tree, holder)
		if err != nil {
			return nil, err
		}
		amount, _ := tree.Amount(holder)
		leaf, err := ledger.Leaf(holder, tree.Token(), amount)
		if err != nil {
			return nil, err
		}
		proof := make([]common.Hash, 0, len(claim.Proof))
		for _, p := range claim.Proof {
			proof = append(proof, common.HexToHash(p))
		}
		if !ledger.VerifyProof(leaf, proof, tree.Root()) {
			return nil, fmt.Errorf("proof for %s does not verify", holder.Hex())
		}
		record := claimRecord{Claim: claim}
		if m, ok := locks[holder]; ok {
			record.LockMultiplier = &m
		}
		claims = append(claims, record)
	}
	return claims, nil
}
