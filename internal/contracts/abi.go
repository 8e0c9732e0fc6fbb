package contracts

import (
	"strings"
	"sync"

	"github.com/ethereum/go-ethereum/accounts/abi"
)

const multicall3ABIJSON = `[
  {
    "inputs": [
      {
        "components": [
          {"internalType": "address", "name": "target", "type": "address"},
          {"internalType": "bool", "name": "allowFailure", "type": "bool"},
          {"internalType": "bytes", "name": "callData", "type": "bytes"}
        ],
        "internalType": "struct Multicall3.Call3[]",
        "name": "calls",
        "type": "tuple[]"
      }
    ],
    "name": "aggregate3",
    "outputs": [
      {
        "components": [
          {"internalType": "bool", "name": "success", "type": "bool"},
          {"internalType": "bytes", "name": "returnData", "type": "bytes"}
        ],
        "internalType": "struct Multicall3.Result[]",
        "name": "returnData",
        "type": "tuple[]"
      }
    ],
    "stateMutability": "payable",
    "type": "function"
  }
]`

const positionManagerABIJSON = `[
  {
    "inputs": [{"internalType": "uint256", "name": "tokenId", "type": "uint256"}],
    "name": "positions",
    "outputs": [
      {"internalType": "uint96", "name": "nonce", "type": "uint96"},
      {"internalType": "address", "name": "operator", "type": "address"},
      {"internalType": "address", "name": "token0", "type": "address"},
      {"internalType": "address", "name": "token1", "type": "address"},
      {"internalType": "uint24", "name": "fee", "type": "uint24"},
      {"internalType": "int24", "name": "tickLower", "type": "int24"},
      {"internalType": "int24", "name": "tickUpper", "type": "int24"},
      {"internalType": "uint128", "name": "liquidity", "type": "uint128"},
      {"internalType": "uint256", "name": "feeGrowthInside0LastX128", "type": "uint256"},
      {"internalType": "uint256", "name": "feeGrowthInside1LastX128", "type": "uint256"},
      {"internalType": "uint128", "name": "tokensOwed0", "type": "uint128"},
      {"internalType": "uint128", "name": "tokensOwed1", "type": "uint128"}
    ],
    "stateMutability": "view",
    "type": "function"
  },
  {
    "inputs": [{"internalType": "uint256", "name": "tokenId", "type": "uint256"}],
    "name": "ownerOf",
    "outputs": [{"internalType": "address", "name": "", "type": "address"}],
    "stateMutability": "view",
    "type": "function"
  }
]`

const singleRangeVaultABIJSON = `[
  {"inputs": [], "name": "getUnderlyingBalances", "outputs": [{"internalType": "uint256", "name": "amount0Current", "type": "uint256"}, {"internalType": "uint256", "name": "amount1Current", "type": "uint256"}], "stateMutability": "view", "type": "function"},
  {"inputs": [], "name": "lowerTick", "outputs": [{"internalType": "int24", "name": "", "type": "int24"}], "stateMutability": "view", "type": "function"},
  {"inputs": [], "name": "upperTick", "outputs": [{"internalType": "int24", "name": "", "type": "int24"}], "stateMutability": "view", "type": "function"}
]`

const dualRangeVaultABIJSON = `[
  {"inputs": [], "name": "getBasePosition", "outputs": [{"internalType": "uint128", "name": "liquidity", "type": "uint128"}, {"internalType": "uint256", "name": "amount0", "type": "uint256"}, {"internalType": "uint256", "name": "amount1", "type": "uint256"}], "stateMutability": "view", "type": "function"},
  {"inputs": [], "name": "getLimitPosition", "outputs": [{"internalType": "uint128", "name": "liquidity", "type": "uint128"}, {"internalType": "uint256", "name": "amount0", "type": "uint256"}, {"internalType": "uint256", "name": "amount1", "type": "uint256"}], "stateMutability": "view", "type": "function"},
  {"inputs": [], "name": "baseLower", "outputs": [{"internalType": "int24", "name": "", "type": "int24"}], "stateMutability": "view", "type": "function"},
  {"inputs": [], "name": "baseUpper", "outputs": [{"internalType": "int24", "name": "", "type": "int24"}], "stateMutability": "view", "type": "function"},
  {"inputs": [], "name": "limitLower", "outputs": [{"internalType": "int24", "name": "", "type": "int24"}], "stateMutability": "view", "type": "function"},
  {"inputs": [], "name": "limitUpper", "outputs": [{"internalType": "int24", "name": "", "type": "int24"}], "stateMutability": "view", "type": "function"}
]`

const erc20ABIJSON = `[
  {"inputs": [{"internalType": "address", "name": "account", "type": "address"}], "name": "balanceOf", "outputs": [{"internalType": "uint256", "name": "", "type": "uint256"}], "stateMutability": "view", "type": "function"},
  {"inputs": [], "name": "totalSupply", "outputs": [{"internalType": "uint256", "name": "", "type": "uint256"}], "stateMutability": "view", "type": "function"},
  {"inputs": [], "name": "decimals", "outputs": [{"internalType": "uint8", "name": "", "type": "uint8"}], "stateMutability": "view", "type": "function"},
  {"inputs": [], "name": "symbol", "outputs": [{"internalType": "string", "name": "", "type": "string"}], "stateMutability": "view", "type": "function"}
]`

const poolABIJSON = `[
  {"inputs": [], "name": "token0", "outputs": [{"internalType": "address", "name": "", "type": "address"}], "stateMutability": "view", "type": "function"},
  {"inputs": [], "name": "token1", "outputs": [{"internalType": "address", "name": "", "type": "address"}], "stateMutability": "view", "type": "function"}
]`

const veTokenABIJSON = `[
  {"inputs": [{"internalType": "address", "name": "addr", "type": "address"}], "name": "balanceOf", "outputs": [{"internalType": "uint256", "name": "", "type": "uint256"}], "stateMutability": "view", "type": "function"},
  {"inputs": [{"internalType": "address", "name": "_addr", "type": "address"}], "name": "locked__end", "outputs": [{"internalType": "uint256", "name": "", "type": "uint256"}], "stateMutability": "view", "type": "function"}
]`

const emissionDistributorABIJSON = `[
  {"inputs": [], "name": "rate", "outputs": [{"internalType": "uint256", "name": "", "type": "uint256"}], "stateMutability": "view", "type": "function"},
  {"inputs": [], "name": "RATE_REDUCTION_COEFFICIENT", "outputs": [{"internalType": "uint256", "name": "", "type": "uint256"}], "stateMutability": "view", "type": "function"}
]`

const merkleDistributorABIJSON = `[
  {
    "inputs": [
      {
        "components": [
          {"internalType": "bytes32", "name": "merkleRoot", "type": "bytes32"},
          {"internalType": "bytes32", "name": "ipfsHash", "type": "bytes32"}
        ],
        "internalType": "struct MerkleTree",
        "name": "_tree",
        "type": "tuple"
      }
    ],
    "name": "updateTree",
    "outputs": [],
    "stateMutability": "nonpayable",
    "type": "function"
  },
  {
    "inputs": [],
    "name": "tree",
    "outputs": [
      {"internalType": "bytes32", "name": "merkleRoot", "type": "bytes32"},
      {"internalType": "bytes32", "name": "ipfsHash", "type": "bytes32"}
    ],
    "stateMutability": "view",
    "type": "function"
  }
]`

type lazyABI struct {
	raw    string
	once   sync.Once
	parsed abi.ABI
	err    error
}

func (l *lazyABI) get() (abi.ABI, error) {
	l.once.Do(func() {
		l.parsed, l.err = abi.JSON(strings.NewReader(l.raw))
	})
	return l.parsed, l.err
}

var (
	multicall3ABI          = &lazyABI{raw: multicall3ABIJSON}
	positionManagerABI     = &lazyABI{raw: positionManagerABIJSON}
	singleRangeVaultABI    = &lazyABI{raw: singleRangeVaultABIJSON}
	dualRangeVaultABI      = &lazyABI{raw: dualRangeVaultABIJSON}
	erc20ABI               = &lazyABI{raw: erc20ABIJSON}
	poolABI                = &lazyABI{raw: poolABIJSON}
	veTokenABI             = &lazyABI{raw: veTokenABIJSON}
	emissionDistributorABI = &lazyABI{raw: emissionDistributorABIJSON}
	merkleDistributorABI   = &lazyABI{raw: merkleDistributorABIJSON}
)

// Multicall3ABI returns the parsed Multicall3 aggregate3 ABI.
func Multicall3ABI() (abi.ABI, error) { return multicall3ABI.get() }

// PositionManagerABI returns the NonfungiblePositionManager ABI subset.
func PositionManagerABI() (abi.ABI, error) { return positionManagerABI.get() }

// SingleRangeVaultABI returns the single-range vault ABI subset.
func SingleRangeVaultABI() (abi.ABI, error) { return singleRangeVaultABI.get() }

// DualRangeVaultABI returns the base+limit vault ABI subset.
func DualRangeVaultABI() (abi.ABI, error) { return dualRangeVaultABI.get() }

// ERC20ABI returns balanceOf/totalSupply/decimals/symbol.
func ERC20ABI() (abi.ABI, error) { return erc20ABI.get() }

// PoolABI returns the pool's token0/token1 getters.
func PoolABI() (abi.ABI, error) { return poolABI.get() }

// VeTokenABI returns the vote-escrow balance and lock end getters.
func VeTokenABI() (abi.ABI, error) { return veTokenABI.get() }

// EmissionDistributorABI returns the emission schedule getters.
func EmissionDistributorABI() (abi.ABI, error) { return emissionDistributorABI.get() }

// MerkleDistributorABI returns updateTree/tree.
func MerkleDistributorABI() (abi.ABI, error) { return merkleDistributorABI.get() }
