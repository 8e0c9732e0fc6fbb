package config

import (
	"fmt"
	"math/big"
	"os"
	"strings"

	"github.com/ethereum/go-ethereum/common"
	"gopkg.in/yaml.v3"

	"incentiveScope/internal/epoch"
	"incentiveScope/internal/reward"
	"incentiveScope/internal/source"
)

// Program describes the incentive programs of one network.
type Program struct {
	Network         string         `yaml:"network"`
	ChainID         uint64         `yaml:"chain_id"`
	HomeChain       bool           `yaml:"home_chain"`
	RewardToken     string         `yaml:"reward_token"`
	Distributor     string         `yaml:"distributor"`
	VeToken         string         `yaml:"ve_token"`
	PositionManager string         `yaml:"position_manager"`
	Emission        EmissionConfig `yaml:"emission"`
	Subgraph        SubgraphConfig `yaml:"subgraph"`
	Holders         HoldersConfig  `yaml:"holders"`
	Incentives      []Incentive    `yaml:"incentives"`
}

// EmissionConfig locates the emission schedule. Rate and Coefficient are
// decimal wei strings that override the on-chain values when set.
type EmissionConfig struct {
	Distributor string `yaml:"distributor"`
	Rate        string `yaml:"rate"`
	Coefficient string `yaml:"coefficient"`
	// Elapsed overrides the period offset between the rate and the epoch.
	Elapsed *int `yaml:"elapsed"`
}

// SubgraphConfig controls swap selection.
type SubgraphConfig struct {
	URL      string  `yaml:"url"`
	MinUSD   float64 `yaml:"min_usd"`
	MaxSwaps int     `yaml:"max_swaps"`
}

// HoldersConfig controls the Transfer log scan for vault holders.
type HoldersConfig struct {
	FromBlock uint64 `yaml:"from_block"`
}

// Incentive is one labelled reward stream over one pool.
type Incentive struct {
	Label       string         `yaml:"label"`
	Pool        string         `yaml:"pool"`
	Weights     reward.Weights `yaml:"weights"`
	GaugeWeight float64        `yaml:"gauge_weight"`
	Vaults      []Vault        `yaml:"vaults"`
}

// Vault is a fungible position manager deposited into the pool.
type Vault struct {
	Kind    string `yaml:"kind"`
	Name    string `yaml:"name"`
	Address string `yaml:"address"`
	Gauge   string `yaml:"gauge"`
}

// LoadProgram reads a YAML program file and expands environment variables.
func LoadProgram(path string) (*Program, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read program file: %w", err)
	}
	return ParseProgram(data)
}

// ParseProgram parses program YAML, applies defaults and validates it.
func ParseProgram(data []byte) (*Program, error) {
	expanded := os.ExpandEnv(string(data))

	var p Program
	if err := yaml.Unmarshal([]byte(expanded), &p); err != nil {
		return nil, fmt.Errorf("parse program yaml: %w", err)
	}
	p.applyDefaults()
	if err := p.Validate(); err != nil {
		return nil, fmt.Errorf("validate program: %w", err)
	}
	return &p, nil
}

func (p *Program) applyDefaults() {
	if p.Network == "" {
		p.Network = "mainnet"
	}
	if p.ChainID == 0 {
		p.ChainID = 1
	}
	if p.Subgraph.MinUSD == 0 {
		p.Subgraph.MinUSD = 50
	}
	if p.Subgraph.MaxSwaps == 0 {
		p.Subgraph.MaxSwaps = source.MaxSwapsLimit
	}
	for i := range p.Incentives {
		for j := range p.Incentives[i].Vaults {
			v := &p.Incentives[i].Vaults[j]
			if v.Kind == "" {
				v.Kind = string(epoch.VaultSingle)
			}
			v.Kind = strings.ToLower(v.Kind)
		}
	}
}

// Validate checks required fields and address formats.
func (p *Program) Validate() error {
	if err := optionalAddress("reward_token", p.RewardToken, true); err != nil {
		return err
	}
	if err := optionalAddress("distributor", p.Distributor, false); err != nil {
		return err
	}
	if err := optionalAddress("ve_token", p.VeToken, false); err != nil {
		return err
	}
	if err := optionalAddress("position_manager", p.PositionManager, false); err != nil {
		return err
	}
	if err := optionalAddress("emission.distributor", p.Emission.Distributor, false); err != nil {
		return err
	}
	if p.Emission.Distributor == "" && (p.Emission.Rate == "" || p.Emission.Coefficient == "") {
		return fmt.Errorf("emission needs a distributor or both rate and coefficient")
	}
	if _, err := parseWei("emission.rate", p.Emission.Rate); err != nil {
		return err
	}
	coef, err := parseWei("emission.coefficient", p.Emission.Coefficient)
	if err != nil {
		return err
	}
	if coef != nil && coef.Sign() == 0 {
		return fmt.Errorf("emission.coefficient must be > 0")
	}
	if p.Subgraph.URL == "" {
		return fmt.Errorf("subgraph.url is required")
	}
	if p.Subgraph.MinUSD < 0 {
		return fmt.Errorf("subgraph.min_usd must be >= 0")
	}
	if p.Subgraph.MaxSwaps < 0 || p.Subgraph.MaxSwaps > source.MaxSwapsLimit {
		return fmt.Errorf("subgraph.max_swaps must be between 1 and %d", source.MaxSwapsLimit)
	}
	if len(p.Incentives) == 0 {
		return fmt.Errorf("at least one incentive is required")
	}

	labels := make(map[string]struct{}, len(p.Incentives))
	for i, inc := range p.Incentives {
		if strings.TrimSpace(inc.Label) == "" {
			return fmt.Errorf("incentives[%d].label is required", i)
		}
		if _, dup := labels[inc.Label]; dup {
			return fmt.Errorf("duplicate incentive label %q", inc.Label)
		}
		labels[inc.Label] = struct{}{}
		if err := optionalAddress(fmt.Sprintf("incentives[%d].pool", i), inc.Pool, true); err != nil {
			return err
		}
		w := inc.Weights
		if w.Fees < 0 || w.Token0 < 0 || w.Token1 < 0 {
			return fmt.Errorf("incentives[%d].weights must be >= 0", i)
		}
		if w.Fees+w.Token0+w.Token1 == 0 {
			return fmt.Errorf("incentives[%d].weights are all zero", i)
		}
		if inc.GaugeWeight < 0 || inc.GaugeWeight > 1 {
			return fmt.Errorf("incentives[%d].gauge_weight must be in [0, 1]", i)
		}
		if p.PositionManager == "" && len(inc.Vaults) == 0 {
			return fmt.Errorf("incentives[%d] has no position source", i)
		}
		for j, v := range inc.Vaults {
			field := fmt.Sprintf("incentives[%d].vaults[%d]", i, j)
			switch epoch.VaultKind(v.Kind) {
			case epoch.VaultSingle, epoch.VaultDual:
			default:
				return fmt.Errorf("%s.kind %q is not single or dual", field, v.Kind)
			}
			if err := optionalAddress(field+".address", v.Address, true); err != nil {
				return err
			}
			if err := optionalAddress(field+".gauge", v.Gauge, false); err != nil {
				return err
			}
			if v.Gauge != "" && epoch.VaultKind(v.Kind) == epoch.VaultDual {
				return fmt.Errorf("%s: gauges are only supported on single vaults", field)
			}
		}
	}
	return nil
}

// RewardTokenAddress returns the reward token.
func (p *Program) RewardTokenAddress() common.Address { return common.HexToAddress(p.RewardToken) }

// DistributorAddress returns the Merkle distributor, zero when unset.
func (p *Program) DistributorAddress() common.Address { return addressOrZero(p.Distributor) }

// VeTokenAddress returns the vote-escrow token, zero when unset.
func (p *Program) VeTokenAddress() common.Address { return addressOrZero(p.VeToken) }

// PositionManagerAddress returns the NFT position manager, zero when unset.
func (p *Program) PositionManagerAddress() common.Address { return addressOrZero(p.PositionManager) }

// EmissionDistributorAddress returns the emission schedule contract.
func (p *Program) EmissionDistributorAddress() common.Address {
	return addressOrZero(p.Emission.Distributor)
}

// EmissionOverrides returns the configured rate and coefficient; nil entries
// are read on-chain.
func (p *Program) EmissionOverrides() (rate, coefficient *big.Int) {
	rate, _ = parseWei("emission.rate", p.Emission.Rate)
	coefficient, _ = parseWei("emission.coefficient", p.Emission.Coefficient)
	return rate, coefficient
}

// PoolAddress returns the incentive's pool.
func (inc Incentive) PoolAddress() common.Address { return common.HexToAddress(inc.Pool) }

// VaultSpecs converts the configured vaults.
func (inc Incentive) VaultSpecs() []epoch.VaultSpec {
	out := make([]epoch.VaultSpec, 0, len(inc.Vaults))
	for _, v := range inc.Vaults {
		out = append(out, epoch.VaultSpec{
			Kind:    epoch.VaultKind(v.Kind),
			Name:    v.Name,
			Address: common.HexToAddress(v.Address),
			Gauge:   addressOrZero(v.Gauge),
		})
	}
	return out
}

func optionalAddress(field, value string, required bool) error {
	if strings.TrimSpace(value) == "" {
		if required {
			return fmt.Errorf("%s is required", field)
		}
		return nil
	}
	if !common.IsHexAddress(value) {
		return fmt.Errorf("%s: invalid address %q", field, value)
	}
	return nil
}

func addressOrZero(value string) common.Address {
	if strings.TrimSpace(value) == "" {
		return common.Address{}
	}
	return common.HexToAddress(value)
}

func parseWei(field, value string) (*big.Int, error) {
	if strings.TrimSpace(value) == "" {
		return nil, nil
	}
	n, ok := new(big.Int).SetString(strings.TrimSpace(value), 10)
	if !ok || n.Sign() < 0 {
		return nil, fmt.Errorf("%s: invalid integer %q", field, value)
	}
	return n, nil
}
