package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/pflag"
	"github.com/spf13/viper"
)

// ServeConfig holds configuration for the proof server.
type ServeConfig struct {
	RPCURL      string
	Program     string
	Listen      string
	ContentDir  string
	IPFSGateway string
	CacheTTL    time.Duration
	LogLevel    string
}

// LoadServe merges config file, environment variables, and flags into ServeConfig.
func LoadServe(cfgFile string, flags *pflag.FlagSet) (ServeConfig, error) {
	v, err := newViper(cfgFile, flags, func(v *viper.Viper) {
		v.SetDefault("program", "./program.yaml")
		v.SetDefault("listen", ":8080")
		v.SetDefault("cache-ttl", 5*time.Minute)
		v.SetDefault("log-level", "info")
	})
	if err != nil {
		return ServeConfig{}, err
	}

	cfg := ServeConfig{
		RPCURL:      v.GetString("rpc"),
		Program:     v.GetString("program"),
		Listen:      v.GetString("listen"),
		ContentDir:  v.GetString("content-dir"),
		IPFSGateway: v.GetString("ipfs-gateway"),
		CacheTTL:    v.GetDuration("cache-ttl"),
		LogLevel:    v.GetString("log-level"),
	}
	if strings.TrimSpace(cfg.RPCURL) == "" {
		return ServeConfig{}, fmt.Errorf("rpc is required")
	}
	if cfg.ContentDir == "" && cfg.IPFSGateway == "" {
		return ServeConfig{}, fmt.Errorf("one of content-dir or ipfs-gateway is required")
	}
	return cfg, nil
}
