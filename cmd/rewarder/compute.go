package main

import (
	"context"
	"errors"
	"fmt"
	"math/big"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/google/uuid"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"incentiveScope/internal/chain"
	"incentiveScope/internal/config"
	"incentiveScope/internal/epoch"
	"incentiveScope/internal/ledger"
	"incentiveScope/internal/model"
	"incentiveScope/internal/reward"
	"incentiveScope/internal/source"
	"incentiveScope/internal/storage"
	"incentiveScope/internal/storage/postgres"
)

const tokenDecimals = 18

func runCompute(cmd *cobra.Command, _ []string) error {
	cfgFile, _ := cmd.Flags().GetString("config")
	cfg, err := config.LoadCompute(cfgFile, cmd.Flags())
	if err != nil {
		return err
	}

	logger, err := newLogger(cfg.LogLevel)
	if err != nil {
		return err
	}
	defer logger.Sync()

	if cfg.RPCURL == "" {
		return fmt.Errorf("rpc url is required")
	}
	program, err := config.LoadProgram(cfg.Program)
	if err != nil {
		return err
	}
	week, err := config.ResolveWeek(cfg.Week, cfg.At, time.Now())
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

	var multicallAddress common.Address
	if cfg.Multicall != "" {
		if !common.IsHexAddress(cfg.Multicall) {
			return fmt.Errorf("invalid multicall address: %s", cfg.Multicall)
		}
		multicallAddress = common.HexToAddress(cfg.Multicall)
	}
	reader, err := chain.NewMulticall(chain.MulticallConfig{
		Address:   multicallAddress,
		ChunkSize: cfg.MulticallChunk,
	}, chainClient, logger)
	if err != nil {
		return err
	}

	rewardToken := program.RewardTokenAddress()
	tokenMeta, err := chain.ReadTokenMeta(ctx, reader, []common.Address{rewardToken})
	if err != nil {
		logger.Warn("reward token metadata unavailable", zap.Error(err))
	} else if meta := tokenMeta[rewardToken]; meta.Decimals != tokenDecimals {
		logger.Warn("reward token decimals differ from the 18-decimal ledger encoding",
			zap.String("token", rewardToken.Hex()),
			zap.String("symbol", meta.Symbol),
			zap.Uint8("decimals", meta.Decimals),
		)
	}

	schedule, err := emissionSchedule(ctx, chainClient, program, week)
	if err != nil {
		return err
	}

	subgraph, err := source.NewSubgraph(source.SubgraphConfig{
		URL:          program.Subgraph.URL,
		MinUSD:       program.Subgraph.MinUSD,
		MaxSwaps:     program.Subgraph.MaxSwaps,
		Timeout:      cfg.Timeout,
		MaxRetries:   cfg.MaxRetries,
		RetryBackoff: cfg.RetryBackoff,
	}, logger)
	if err != nil {
		return err
	}
	scanner, err := source.NewHolderScanner(source.HolderConfig{
		FromBlock:    program.Holders.FromBlock,
		BatchSize:    cfg.HolderBatchSize,
		MaxRetries:   cfg.MaxRetries,
		RetryBackoff: cfg.RetryBackoff,
	}, chainClient, logger)
	if err != nil {
		return err
	}
	src := source.Source{Subgraph: subgraph, HolderScanner: scanner}

	var store *postgres.Store
	if cfg.PGDSN != "" {
		store, err = postgres.NewStore(ctx, cfg.PGDSN)
		if err != nil {
			return fmt.Errorf("connect postgres: %w", err)
		}
		defer store.Close()
		if err := store.Migrate(ctx); err != nil {
			return fmt.Errorf("migrate postgres: %w", err)
		}
	}

	logger.Info("compute start",
		zap.String("network", program.Network),
		zap.Uint64("chain_id", program.ChainID),
		zap.Uint64("week", week),
		zap.Int("incentives", len(program.Incentives)),
		zap.String("prior", cfg.Prior),
		zap.Bool("dry_run", cfg.DryRun),
	)

	epochLedgers := make([]ledger.Ledger, 0, len(program.Incentives))
	for _, inc := range program.Incentives {
		l, err := computeIncentive(ctx, program, inc, week, schedule, src, reader, store, logger)
		if err != nil {
			return fmt.Errorf("incentive %q: %w", inc.Label, err)
		}
		epochLedgers = append(epochLedgers, l)
	}

	contentStore, err := openContentStore(storeOptions{
		ContentDir:  cfg.ContentDir,
		IPFSAPI:     cfg.IPFSAPI,
		IPFSGateway: cfg.IPFSGateway,
		IPFSToken:   cfg.IPFSToken,
		Timeout:     cfg.Timeout,
	}, logger)
	if err != nil && (!cfg.DryRun || cfg.Prior == config.PriorChain) {
		return err
	}

	var distributor *chain.Distributor
	if program.Distributor != "" {
		distributor, err = openDistributor(ctx, chainClient, program, cfg.PrivateKey, cfg.GasLimit, logger)
		if err != nil {
			return err
		}
	}

	prior, err := loadPrior(ctx, cfg, program, week, distributor, contentStore, logger)
	if err != nil {
		return err
	}
	merged, err := ledger.Merge(append([]ledger.Ledger{prior}, epochLedgers...)...)
	if err != nil {
		return fmt.Errorf("merge ledgers: %w", err)
	}

	ep := model.Epoch{ChainID: program.ChainID, Week: week}
	artifacts := storage.NewFileArtifacts(cfg.ArtifactDir, program.Network)
	path, err := artifacts.PublishArtifact(ctx, ep, merged)
	if err != nil {
		return err
	}
	tree, err := ledger.BuildTree(merged, rewardToken)
	if err != nil {
		return fmt.Errorf("build tree: %w", err)
	}
	logger.Info("ledger merged",
		zap.String("artifact", path),
		zap.Int("holders", len(merged)),
		zap.Strings("labels", merged.Labels()),
		zap.String("root", tree.Root().Hex()),
	)

	if cfg.DryRun {
		logger.Info("dry run, skipping commit")
		return nil
	}
	if distributor == nil {
		return fmt.Errorf("program has no distributor to commit to")
	}

	var checkpoint ledger.Checkpoint = ledger.NewFileCheckpoint(cfg.Checkpoint)
	if store != nil {
		checkpoint = &postgres.Checkpoint{Store: store, Name: fmt.Sprintf("commit:%s", program.Network)}
	}
	committer := ledger.NewCommitter(contentStore, distributor, checkpoint, rewardToken, logger)
	receipt, err := committer.Commit(ctx, week, merged)
	if err != nil {
		var pubErr *ledger.PublicationError
		if errors.As(err, &pubErr) {
			logger.Error("publication failed, prior commitment stands", zap.String("stage", pubErr.Stage), zap.Error(pubErr.Err))
		}
		if receipt == nil {
			return err
		}
		logger.Warn("commit landed but checkpoint was not saved", zap.Error(err))
	}

	if store != nil {
		if err := store.SaveCommitment(ctx, program.ChainID, week, receipt.Commitment, receipt.TxHash.Hex()); err != nil {
			return fmt.Errorf("record commitment: %w", err)
		}
	}
	ref, err := storage.Bytes32ToCID(receipt.Commitment.ContentHash)
	if err != nil {
		return err
	}
	logger.Info("compute complete",
		zap.Uint64("week", week),
		zap.String("root", receipt.Commitment.MerkleRoot.Hex()),
		zap.String("cid", ref),
		zap.String("tx", receipt.TxHash.Hex()),
	)
	return nil
}

func emissionSchedule(ctx context.Context, client *chain.Client, program *config.Program, week uint64) (reward.Schedule, error) {
	rate, coefficient := program.EmissionOverrides()
	if rate == nil || coefficient == nil {
		params, err := chain.ReadEmissionParams(ctx, client, program.EmissionDistributorAddress())
		if err != nil {
			return reward.Schedule{}, fmt.Errorf("read emission params: %w", err)
		}
		if rate == nil {
			rate = params.Rate
		}
		if coefficient == nil {
			coefficient = params.Coefficient
		}
	}

	// The on-chain rate applies to the current week.
	elapsed := int(int64(week) - int64(model.WeekOf(time.Now())))
	if program.Emission.Elapsed != nil {
		elapsed = *program.Emission.Elapsed
	}
	return reward.Schedule{Rate: rate, Coefficient: coefficient, Elapsed: elapsed}, nil
}

func computeIncentive(
	ctx context.Context,
	program *config.Program,
	inc config.Incentive,
	week uint64,
	schedule reward.Schedule,
	src epoch.Source,
	reader chain.BatchReader,
	store *postgres.Store,
	logger *zap.Logger,
) (ledger.Ledger, error) {
	runID := uuid.New()
	logger = logger.With(zap.String("run_id", runID.String()), zap.String("label", inc.Label))
	startedAt := time.Now().UTC()

	schedule.GaugeWeight = inc.GaugeWeight
	ep := model.Epoch{ChainID: program.ChainID, Pool: inc.PoolAddress(), Week: week}
	if meta, err := chain.ReadPoolMeta(ctx, reader, ep.Pool); err != nil {
		logger.Warn("pool metadata unavailable", zap.String("pool", ep.Pool.Hex()), zap.Error(err))
	} else {
		logger = logger.With(zap.String("pair", meta.Pair()))
	}
	runner := epoch.NewRunner(epoch.RunConfig{
		Epoch:           ep,
		PositionManager: program.PositionManagerAddress(),
		Vaults:          inc.VaultSpecs(),
		Weights:         inc.Weights,
		Schedule:        schedule,
		VeToken:         program.VeTokenAddress(),
		HomeChain:       program.HomeChain,
	}, src, reader, logger)

	res, err := runner.Run(ctx)
	if err != nil {
		return nil, err
	}
	logRewards(logger, res)

	if store != nil {
		run := model.EpochRun{
			RunID:         runID,
			Epoch:         ep,
			Label:         inc.Label,
			Swaps:         res.Swaps,
			Processed:     res.Processed,
			SwapSkips:     len(res.Skipped),
			PositionSkips: res.PositionSkips,
			TotalUSD:      res.TotalUSD,
			Budget:        res.Budget,
			StartedAt:     startedAt,
			FinishedAt:    time.Now().UTC(),
		}
		if err := store.SaveRun(ctx, run, holderRewards(res)); err != nil {
			return nil, fmt.Errorf("save run: %w", err)
		}
	}

	return ledger.FromRewards(inc.Label, res.Fixed)
}

func logRewards(logger *zap.Logger, res *epoch.Result) {
	amounts := make([]*big.Int, 0, len(res.Fixed))
	holders := make([]common.Address, 0, len(res.Fixed))
	for h := range res.Fixed {
		holders = append(holders, h)
	}
	model.SortAddresses(holders)
	for _, h := range holders {
		amounts = append(amounts, res.Fixed[h])
		logger.Debug("holder reward",
			zap.String("holder", h.Hex()),
			zap.String("amount", reward.FormatUnits(res.Fixed[h], tokenDecimals)),
		)
	}
	for _, skip := range res.Skipped {
		logger.Warn("swap skipped", zap.String("swap", skip.Swap.ID), zap.Uint64("block", skip.Swap.BlockNumber), zap.String("reason", skip.Reason))
	}
	logger.Info("epoch rewards",
		zap.Int("holders", len(holders)),
		zap.String("total", reward.SumUnits(amounts, tokenDecimals)),
		zap.Float64("budget", res.Budget),
	)
}

func holderRewards(res *epoch.Result) []model.HolderReward {
	holders := res.Exposure.Holders()
	out := make([]model.HolderReward, 0, len(holders))
	for _, h := range holders {
		amount := "0"
		if v, ok := res.Fixed[h]; ok {
			amount = v.String()
		}
		out = append(out, model.HolderReward{
			Holder:   h,
			Exposure: res.Exposure[h],
			Boosted:  res.Boosted[h],
			Amount:   amount,
		})
	}
	return out
}

func loadPrior(
	ctx context.Context,
	cfg config.ComputeConfig,
	program *config.Program,
	week uint64,
	distributor *chain.Distributor,
	store ledger.ContentStore,
	logger *zap.Logger,
) (ledger.Ledger, error) {
	switch cfg.Prior {
	case config.PriorNone:
		return ledger.New(), nil
	case config.PriorArtifact:
		fetcher, err := source.NewArtifactFetcher(source.ArtifactConfig{
			BaseURL:      cfg.PriorURL,
			Network:      program.Network,
			Timeout:      cfg.Timeout,
			MaxRetries:   cfg.MaxRetries,
			RetryBackoff: cfg.RetryBackoff,
		}, logger)
		if err != nil {
			return nil, err
		}
		if week == 0 {
			return ledger.New(), nil
		}
		return fetcher.Fetch(ctx, week-1)
	default:
		if distributor == nil {
			return nil, fmt.Errorf("prior %q needs a distributor in the program", config.PriorChain)
		}
		l, current, err := ledger.LoadCommitted(ctx, distributor, store, program.RewardTokenAddress())
		if err != nil {
			return nil, fmt.Errorf("load committed ledger: %w", err)
		}
		logger.Info("prior ledger loaded",
			zap.String("root", current.MerkleRoot.Hex()),
			zap.Int("holders", len(l)),
		)
		return l, nil
	}
}
