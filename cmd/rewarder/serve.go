package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"incentiveScope/internal/chain"
	"incentiveScope/internal/config"
	"incentiveScope/internal/server"
)

func runServe(cmd *cobra.Command, _ []string) error {
	cfgFile, _ := cmd.Flags().GetString("config")
	cfg, err := config.LoadServe(cfgFile, cmd.Flags())
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
		return fmt.Errorf("program has no distributor to serve")
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
	store, err := openContentStore(storeOptions{ContentDir: cfg.ContentDir, IPFSGateway: cfg.IPFSGateway}, logger)
	if err != nil {
		return err
	}

	srv := server.New(server.Config{
		Addr:     cfg.Listen,
		CacheTTL: cfg.CacheTTL,
		Token:    program.RewardTokenAddress(),
	}, distributor, store, logger)

	logger.Info("serve start",
		zap.String("listen", cfg.Listen),
		zap.String("distributor", program.DistributorAddress().Hex()),
		zap.Duration("cache_ttl", cfg.CacheTTL),
	)
	return srv.ListenAndServe(ctx)
}
