package server

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/holiman/uint256"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"incentiveScope/internal/ledger"
	"incentiveScope/internal/model"
)

var token = common.HexToAddress("0x98585dFc8d9e7D48F0b1aE47ce33332CF4237D96")

type memoryStore map[common.Hash][]byte

func (m memoryStore) Publish(_ context.Context, data []byte) (common.Hash, error) {
	h := crypto.Keccak256Hash(data)
	m[h] = data
	return h, nil
}

func (m memoryStore) Fetch(_ context.Context, h common.Hash) ([]byte, error) {
	data, ok := m[h]
	if !ok {
		return nil, errors.New("not found")
	}
	return data, nil
}

type countingSink struct {
	current model.Commitment
	reads   int
}

func (c *countingSink) CurrentTree(context.Context) (model.Commitment, error) {
	c.reads++
	return c.current, nil
}

func setup(t *testing.T) (*Server, *countingSink, ledger.Ledger) {
	t.Helper()
	l := ledger.New()
	for i, amount := range []uint64{1500, 700, 42} {
		require.NoError(t, l.Add(common.BigToAddress(uint256.NewInt(uint64(0xa0+i)).ToBig()), "Uni-V3 A/B LP", uint256.NewInt(amount)))
	}
	require.NoError(t, l.Add(common.HexToAddress("0xa1"), "Vault A/B", uint256.NewInt(300)))

	store := memoryStore{}
	content, err := ledger.Encode(l)
	require.NoError(t, err)
	hash, err := store.Publish(context.Background(), content)
	require.NoError(t, err)
	tree, err := ledger.BuildTree(l, token)
	require.NoError(t, err)

	sink := &countingSink{current: model.Commitment{MerkleRoot: tree.Root(), ContentHash: hash}}
	return New(Config{Token: token}, sink, store, nil), sink, l
}

func get(t *testing.T, s *Server, path string) *httptest.ResponseRecorder {
	t.Helper()
	rec := httptest.NewRecorder()
	s.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, path, nil))
	return rec
}

func TestProofVerifiesAgainstCommittedRoot(t *testing.T) {
	s, sink, _ := setup(t)

	rec := get(t, s, "/proof/0x00000000000000000000000000000000000000a1")
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	var resp ledger.Claim
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, "1000", resp.Amount)
	assert.Equal(t, map[string]string{"Uni-V3 A/B LP": "700", "Vault A/B": "300"}, resp.Labels)
	assert.Equal(t, sink.current.MerkleRoot.Hex(), resp.Root)

	proof := make([]common.Hash, 0, len(resp.Proof))
	for _, p := range resp.Proof {
		proof = append(proof, common.HexToHash(p))
	}
	leaf, err := ledger.Leaf(common.HexToAddress("0xa1"), token, uint256.NewInt(1000))
	require.NoError(t, err)
	assert.True(t, ledger.VerifyProof(leaf, proof, sink.current.MerkleRoot))
}

func TestTreeIsCached(t *testing.T) {
	s, sink, l := setup(t)

	rec := get(t, s, "/commitment")
	require.Equal(t, http.StatusOK, rec.Code)
	var resp commitmentResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, len(l), resp.Holders)
	assert.Equal(t, sink.current.ContentHash.Hex(), resp.ContentHash)

	get(t, s, "/proof/0x00000000000000000000000000000000000000a0")
	get(t, s, "/commitment")
	assert.Equal(t, 1, sink.reads)
}

func TestProofErrors(t *testing.T) {
	s, _, _ := setup(t)

	assert.Equal(t, http.StatusBadRequest, get(t, s, "/proof/not-an-address").Code)
	assert.Equal(t, http.StatusNotFound, get(t, s, "/proof/0x00000000000000000000000000000000000000ff").Code)
}

func TestUnavailableContent(t *testing.T) {
	sink := &countingSink{current: model.Commitment{
		MerkleRoot:  common.HexToHash("0x01"),
		ContentHash: common.HexToHash("0x02"),
	}}
	s := New(Config{Token: token}, sink, memoryStore{}, nil)
	assert.Equal(t, http.StatusBadGateway, get(t, s, "/commitment").Code)
}
