package main

import (
	"encoding/json"
	"testing"

	"github.com/ethereum/go-ethereum/common"
	"github.com/holiman/uint256"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"incentiveScope/internal/ledger"
)

func TestBuildClaimsReportsLockMultiplier(t *testing.T) {
	token := common.HexToAddress("0x00000000000000000000000000000000000000c1")
	locked := common.HexToAddress("0x00000000000000000000000000000000000000a1")
	unlocked := common.HexToAddress("0x00000000000000000000000000000000000000a2")

	l := ledger.New()
	require.NoError(t, l.Add(locked, "pool", uint256.NewInt(30)))
	require.NoError(t, l.Add(unlocked, "pool", uint256.NewInt(70)))
	tree, err := ledger.BuildTree(l, token)
	require.NoError(t, err)

	claims, err := buildClaims(l, tree, []common.Address{locked, unlocked}, map[common.Address]float64{locked: 1.3})
	require.NoError(t, err)
	require.Len(t, claims, 2)

	var first, second map[string]interface{}
	raw, err := json.Marshal(claims[0])
	require.NoError(t, err)
	require.NoError(t, json.Unmarshal(raw, &first))
	raw, err = json.Marshal(claims[1])
	require.NoError(t, err)
	require.NoError(t, json.Unmarshal(raw, &second))

	assert.Equal(t, locked.Hex(), first["holder"])
	assert.Equal(t, "30", first["amount"])
	assert.InDelta(t, 1.3, first["lock_multiplier"], 1e-12)
	assert.NotContains(t, second, "lock_multiplier")
	assert.Equal(t, tree.Root().Hex(), second["root"])
}

func TestBuildClaimsRejectsUnknownHolder(t *testing.T) {
	token := common.HexToAddress("0x00000000000000000000000000000000000000c1")
	l := ledger.New()
	require.NoError(t, l.Add(common.HexToAddress("0xa1"), "pool", uint256.NewInt(1)))
	tree, err := ledger.BuildTree(l, token)
	require.NoError(t, err)

	_, err = buildClaims(l, tree, []common.Address{common.HexToAddress("0xb2")}, nil)
	assert.Error(t, err)
}
