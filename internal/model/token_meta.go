package model

import "github.com/ethereum/go-ethereum/common"

// TokenMeta captures ERC20 metadata.
type TokenMeta struct {
	Address  common.Address `json:"address"`
	Decimals uint8          `json:"decimals"`
	Symbol   string         `json:"symbol"`
}

// PoolMeta is a pool and its two tokens.
type PoolMeta struct {
	Address common.Address `json:"address"`
	Token0  TokenMeta      `json:"token0"`
	Token1  TokenMeta      `json:"token1"`
}

// Pair renders the pool as SYMBOL0/SYMBOL1.
func (p PoolMeta) Pair() string {
	return p.Token0.Symbol + "/" + p.Token1.Symbol
}
