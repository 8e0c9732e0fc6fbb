package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/pflag"
	"github.com/spf13/viper"
)

// ComputeConfig holds configuration for the compute command.
type ComputeConfig struct {
	RPCURL          string
	Program         string
	Week            uint64
	At              string
	Prior           string
	PriorURL        string
	ArtifactDir     string
	ContentDir      string
	IPFSAPI         string
	IPFSGateway     string
	IPFSToken       string
	PrivateKey      string
	GasLimit        uint64
	PGDSN           string
	Checkpoint      string
	DryRun          bool
	Multicall       string
	MulticallChunk  int
	HolderBatchSize uint64
	MaxRetries      int
	RetryBackoff    time.Duration
	Timeout         time.Duration
	LogLevel        string
}

// Prior ledger sources.
const (
	PriorChain    = "chain"
	PriorArtifact = "artifact"
	PriorNone     = "none"
)

// LoadCompute merges config file, environment variables, and flags into ComputeConfig.
func LoadCompute(cfgFile string, flags *pflag.FlagSet) (ComputeConfig, error) {
	v, err := newViper(cfgFile, flags, func(v *viper.Viper) {
		v.SetDefault("program", "./program.yaml")
		v.SetDefault("prior", PriorChain)
		v.SetDefault("artifact-dir", "./data/artifacts")
		v.SetDefault("checkpoint", "./data/checkpoint.json")
		v.SetDefault("multicall-chunk", 500)
		v.SetDefault("holder-batch-size", uint64(5000))
		v.SetDefault("max-retries", 5)
		v.SetDefault("retry-backoff", 500*time.Millisecond)
		v.SetDefault("timeout", 30*time.Second)
		v.SetDefault("log-level", "info")
	})
	if err != nil {
		return ComputeConfig{}, err
	}

	cfg := ComputeConfig{
		RPCURL:          v.GetString("rpc"),
		Program:         v.GetString("program"),
		Week:            v.GetUint64("week"),
		At:              v.GetString("at"),
		Prior:           strings.ToLower(v.GetString("prior")),
		PriorURL:        v.GetString("prior-url"),
		ArtifactDir:     v.GetString("artifact-dir"),
		ContentDir:      v.GetString("content-dir"),
		IPFSAPI:         v.GetString("ipfs-api"),
		IPFSGateway:     v.GetString("ipfs-gateway"),
		IPFSToken:       v.GetString("ipfs-token"),
		PrivateKey:      v.GetString("private-key"),
		GasLimit:        v.GetUint64("gas-limit"),
		PGDSN:           v.GetString("pg-dsn"),
		Checkpoint:      v.GetString("checkpoint"),
		DryRun:          v.GetBool("dry-run"),
		Multicall:       v.GetString("multicall"),
		MulticallChunk:  v.GetInt("multicall-chunk"),
		HolderBatchSize: v.GetUint64("holder-batch-size"),
		MaxRetries:      v.GetInt("max-retries"),
		RetryBackoff:    v.GetDuration("retry-backoff"),
		Timeout:         v.GetDuration("timeout"),
		LogLevel:        v.GetString("log-level"),
	}

	switch cfg.Prior {
	case PriorChain, PriorArtifact, PriorNone:
	default:
		return ComputeConfig{}, fmt.Errorf("unknown prior source %q", cfg.Prior)
	}
	if cfg.Prior == PriorArtifact && strings.TrimSpace(cfg.PriorURL) == "" {
		return ComputeConfig{}, fmt.Errorf("prior-url is required when prior is %q", PriorArtifact)
	}

	return cfg, nil
}

func newViper(cfgFile string, flags *pflag.FlagSet, defaults func(*viper.Viper)) (*viper.Viper, error) {
	v := viper.New()
	v.SetEnvPrefix("REWARDS")
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	v.AutomaticEnv()

	if defaults != nil {
		defaults(v)
	}

	if flags != nil {
		if err := v.BindPFlags(flags); err != nil {
			return nil, fmt.Errorf("bind flags: %w", err)
		}
	}

	if cfgFile != "" {
		v.SetConfigFile(cfgFile)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("read config: %w", err)
		}
	} else {
		v.SetConfigName("config")
		v.AddConfigPath(".")
		if err := v.ReadInConfig(); err != nil {
			if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
				return nil, fmt.Errorf("read config: %w", err)
			}
		}
	}
	return v, nil
}

func getStringSlice(v *viper.Viper, key string) []string {
	if !v.IsSet(key) {
		return nil
	}

	val := v.Get(key)
	switch typed := val.(type) {
	case []string:
		return cleanStrings(typed)
	case string:
		return splitAndClean(typed)
	case []interface{}:
		items := make([]string, 0, len(typed))
		for _, item := range typed {
			items = append(items, fmt.Sprintf("%v", item))
		}
		return cleanStrings(items)
	default:
		return nil
	}
}

func splitAndClean(input string) []string {
	if input == "" {
		return nil
	}
	parts := strings.Split(input, ",")
	return cleanStrings(parts)
}

func cleanStrings(items []string) []string {
	out := make([]string, 0, len(items))
	for _, item := range items {
		item = strings.TrimSpace(item)
		if item == "" {
			continue
		}
		out = append(out, item)
	}
	return out
}
