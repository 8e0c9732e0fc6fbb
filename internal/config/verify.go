package config

import (
	"fmt"
	"strings"

	"github.com/spf13/pflag"
	"github.com/spf13/viper"
)

// VerifyConfig holds configuration for the verify command.
type VerifyConfig struct {
	RPCURL      string
	Program     string
	In          string
	ContentDir  string
	IPFSGateway string
	Out         string
	Holders     []string
	LogLevel    string
}

// LoadVerify merges config file, environment variables, and flags into VerifyConfig.
func LoadVerify(cfgFile string, flags *pflag.FlagSet) (VerifyConfig, error) {
	v, err := newViper(cfgFile, flags, func(v *viper.Viper) {
		v.SetDefault("program", "./program.yaml")
		v.SetDefault("out", "./data/proofs.jsonl")
		v.SetDefault("log-level", "info")
	})
	if err != nil {
		return VerifyConfig{}, err
	}

	cfg := VerifyConfig{
		RPCURL:      v.GetString("rpc"),
		Program:     v.GetString("program"),
		In:          v.GetString("in"),
		ContentDir:  v.GetString("content-dir"),
		IPFSGateway: v.GetString("ipfs-gateway"),
		Out:         v.GetString("out"),
		Holders:     getStringSlice(v, "holder"),
		LogLevel:    v.GetString("log-level"),
	}
	if strings.TrimSpace(cfg.RPCURL) == "" {
		return VerifyConfig{}, fmt.Errorf("rpc is required")
	}
	return cfg, nil
}
