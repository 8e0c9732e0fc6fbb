package main

import (
	"os"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

func main() {
	// A missing .env is fine; the environment may already be populated.
	_ = godotenv.Load()

	root := &cobra.Command{
		Use:          "rewarder",
		Short:        "Weekly liquidity incentive rewards",
		SilenceUsage: true,
	}

	root.PersistentFlags().String("config", "", "config file path")

	computeCmd := &cobra.Command{
		Use:   "compute",
		Short: "Compute an epoch, merge it into the ledger and commit the tree",
		RunE:  runCompute,
	}

	computeCmd.Flags().String("rpc", "", "RPC URL of the reward chain")
	computeCmd.Flags().String("program", "./program.yaml", "incentive program file")
	computeCmd.Flags().Uint64("week", 0, "epoch index (unix/604800), 0 means the last completed week")
	computeCmd.Flags().String("at", "", "compute the week containing this timestamp (unix seconds or RFC3339)")
	computeCmd.Flags().String("prior", "chain", "prior ledger source (chain, artifact, none)")
	computeCmd.Flags().String("prior-url", "", "base URL of published artifacts when prior is artifact")
	computeCmd.Flags().String("artifact-dir", "./data/artifacts", "directory for rewards_<week>.json artifacts")
	computeCmd.Flags().String("content-dir", "", "local content store directory (used when ipfs-api is unset)")
	computeCmd.Flags().String("ipfs-api", "", "IPFS HTTP API URL")
	computeCmd.Flags().String("ipfs-gateway", "", "IPFS gateway URL")
	computeCmd.Flags().String("ipfs-token", "", "IPFS API bearer token")
	computeCmd.Flags().String("private-key", "", "hex key allowed to call updateTree")
	computeCmd.Flags().Uint64("gas-limit", 0, "gas limit for updateTree, 0 means estimate")
	computeCmd.Flags().String("pg-dsn", "", "Postgres DSN for the audit store")
	computeCmd.Flags().String("checkpoint", "./data/checkpoint.json", "commit checkpoint file (ignored with pg-dsn)")
	computeCmd.Flags().Bool("dry-run", false, "compute and write the artifact without committing")
	computeCmd.Flags().String("multicall", "", "Multicall3 address override")
	computeCmd.Flags().Int("multicall-chunk", 500, "calls per multicall round trip")
	computeCmd.Flags().Uint64("holder-batch-size", 5000, "blocks per Transfer log query")
	computeCmd.Flags().Int("max-retries", 5, "maximum retry attempts")
	computeCmd.Flags().Duration("retry-backoff", 500*time.Millisecond, "initial retry backoff")
	computeCmd.Flags().Duration("timeout", 30*time.Second, "HTTP timeout")
	computeCmd.Flags().String("log-level", "info", "log level (debug, info, warn, error)")

	root.AddCommand(computeCmd)

	verifyCmd := &cobra.Command{
		Use:   "verify",
		Short: "Check a ledger against the committed root and write holder proofs",
		RunE:  runVerify,
	}

	verifyCmd.Flags().String("rpc", "", "RPC URL of the reward chain")
	verifyCmd.Flags().String("program", "./program.yaml", "incentive program file")
	verifyCmd.Flags().String("in", "", "ledger JSON file, empty means the committed content")
	verifyCmd.Flags().String("content-dir", "", "local content store directory")
	verifyCmd.Flags().String("ipfs-gateway", "", "IPFS gateway URL")
	verifyCmd.Flags().String("out", "./data/proofs.jsonl", "output proofs JSONL")
	verifyCmd.Flags().StringSlice("holder", nil, "only write proofs for these holders (comma-separated)")
	verifyCmd.Flags().String("log-level", "info", "log level (debug, info, warn, error)")

	root.AddCommand(verifyCmd)

	serveCmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve the committed tree and holder proofs over HTTP",
		RunE:  runServe,
	}

	serveCmd.Flags().String("rpc", "", "RPC URL of the reward chain")
	serveCmd.Flags().String("program", "./program.yaml", "incentive program file")
	serveCmd.Flags().String("listen", ":8080", "listen address")
	serveCmd.Flags().String("content-dir", "", "local content store directory")
	serveCmd.Flags().String("ipfs-gateway", "", "IPFS gateway URL")
	serveCmd.Flags().Duration("cache-ttl", 5*time.Minute, "how long a loaded tree is served before re-reading the root")
	serveCmd.Flags().String("log-level", "info", "log level (debug, info, warn, error)")

	root.AddCommand(serveCmd)

	if err := root.Execute(); err != nil {
		os.Exit(1)
	}
}

func newLogger(level string) (*zap.Logger, error) {
	cfg := zap.NewProductionConfig()
	cfg.Level = zap.NewAtomicLevel()
	if err := cfg.Level.UnmarshalText([]byte(level)); err != nil {
		return nil, err
	}

	cfg.EncoderConfig.TimeKey = "ts"
	cfg.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder

	return cfg.Build()
}
