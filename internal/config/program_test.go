package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/ethereum/go-ethereum/common"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"incentiveScope/internal/epoch"
)

const sampleProgram = `
network: mainnet
chain_id: 1
home_chain: true
reward_token: "0x98585dFc8d9e7D48F0b1aE47ce33332CF4237D96"
distributor: "0x00000000000000000000000000000000000000d1"
ve_token: "0x44dd83E0598e7A3709cF0b2e59D3319418068a65"
position_manager: "0xC36442b4a4522E871399CD717aBDD847Ab11FE88"
emission:
  distributor: "0x00000000000000000000000000000000000000e1"
  coefficient: "1010000000000000000"
subgraph:
  url: ${TEST_SUBGRAPH_URL}
holders:
  from_block: 14000000
incentives:
  - label: Uni-V3 NEWO/USDC LP
    pool: "0x8db1b906d47dfc1d84a87fc49bd0522e285b98b9"
    weights: {fees: 0.4, token0: 0.4, token1: 0.2}
    vaults:
      - name: arrakis
        address: "0x00000000000000000000000000000000000000a1"
        gauge: "0x00000000000000000000000000000000000000a2"
      - kind: DUAL
        name: gamma
        address: "0x00000000000000000000000000000000000000b1"
`

func TestParseProgram(t *testing.T) {
	t.Setenv("TEST_SUBGRAPH_URL", "https://graph.example/subgraphs/uniswap-v3")

	p, err := ParseProgram([]byte(sampleProgram))
	require.NoError(t, err)

	assert.Equal(t, "https://graph.example/subgraphs/uniswap-v3", p.Subgraph.URL)
	assert.Equal(t, 50.0, p.Subgraph.MinUSD)
	assert.Equal(t, 1000, p.Subgraph.MaxSwaps)
	assert.Equal(t, uint64(14000000), p.Holders.FromBlock)
	assert.Nil(t, p.Emission.Elapsed)

	rate, coef := p.EmissionOverrides()
	assert.Nil(t, rate)
	assert.Equal(t, "1010000000000000000", coef.String())

	require.Len(t, p.Incentives, 1)
	inc := p.Incentives[0]
	assert.InDelta(t, 0.4, inc.Weights.Fees, 1e-12)
	assert.Equal(t, common.HexToAddress("0x8db1b906d47dfc1d84a87fc49bd0522e285b98b9"), inc.PoolAddress())

	specs := inc.VaultSpecs()
	require.Len(t, specs, 2)
	assert.Equal(t, epoch.VaultSingle, specs[0].Kind)
	assert.Equal(t, common.HexToAddress("0xa2"), specs[0].Gauge)
	assert.Equal(t, epoch.VaultDual, specs[1].Kind)
	assert.Equal(t, common.Address{}, specs[1].Gauge)
}

func TestValidateProgram(t *testing.T) {
	base := func() Program {
		return Program{
			RewardToken: "0x00000000000000000000000000000000000000c1",
			Emission:    EmissionConfig{Rate: "100", Coefficient: "1000000000000000000"},
			Subgraph:    SubgraphConfig{URL: "http://graph"},
			Incentives: []Incentive{{
				Label:   "pool",
				Pool:    "0x00000000000000000000000000000000000000c2",
				Weights: weightsAll(),
				Vaults:  []Vault{{Kind: "single", Address: "0x00000000000000000000000000000000000000c3"}},
			}},
		}
	}

	p := base()
	require.NoError(t, p.Validate())

	cases := map[string]func(p *Program){
		"missing reward token": func(p *Program) { p.RewardToken = "" },
		"bad pool":             func(p *Program) { p.Incentives[0].Pool = "0x1234" },
		"no emission source":   func(p *Program) { p.Emission = EmissionConfig{Rate: "1"} },
		"zero coefficient":     func(p *Program) { p.Emission.Coefficient = "0" },
		"negative rate":        func(p *Program) { p.Emission.Rate = "-4" },
		"max swaps too large":  func(p *Program) { p.Subgraph.MaxSwaps = 1001 },
		"zero weights":         func(p *Program) { p.Incentives[0].Weights = weightsNone() },
		"gauge weight":         func(p *Program) { p.Incentives[0].GaugeWeight = 1.5 },
		"no positions":         func(p *Program) { p.Incentives[0].Vaults = nil },
		"unknown vault kind":   func(p *Program) { p.Incentives[0].Vaults[0].Kind = "triple" },
		"gauge on dual vault": func(p *Program) {
			p.Incentives[0].Vaults[0].Kind = "dual"
			p.Incentives[0].Vaults[0].Gauge = "0x00000000000000000000000000000000000000c4"
		},
		"duplicate label": func(p *Program) {
			p.Incentives = append(p.Incentives, p.Incentives[0])
		},
	}
	for name, mutate := range cases {
		p := base()
		mutate(&p)
		assert.Error(t, p.Validate(), name)
	}
}

func TestLoadProgramMissingFile(t *testing.T) {
	_, err := LoadProgram(filepath.Join(t.TempDir(), "absent.yaml"))
	assert.Error(t, err)
}

func TestLoadProgramFromDisk(t *testing.T) {
	t.Setenv("TEST_SUBGRAPH_URL", "http://graph")
	path := filepath.Join(t.TempDir(), "program.yaml")
	require.NoError(t, os.WriteFile(path, []byte(sampleProgram), 0o644))

	p, err := LoadProgram(path)
	require.NoError(t, err)
	assert.Equal(t, "mainnet", p.Network)
	assert.Equal(t, common.HexToAddress("0xd1"), p.DistributorAddress())
	assert.Equal(t, common.HexToAddress("0xe1"), p.EmissionDistributorAddress())
}
