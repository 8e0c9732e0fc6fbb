package storage

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/holiman/uint256"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"incentiveScope/internal/ledger"
	"incentiveScope/internal/model"
)

func TestCIDRoundTrip(t *testing.T) {
	digest := crypto.Keccak256Hash([]byte("rewards"))
	ref, err := Bytes32ToCID(digest)
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(ref, "Qm"), ref)
	assert.Len(t, ref, 46)

	back, err := CIDToBytes32(ref)
	require.NoError(t, err)
	assert.Equal(t, digest, back)

	_, err = CIDToBytes32("bafybeigdyrzt5sfp7udm7hu76uh7y26nf3efuylqabf3oclgtqy55fbzdi")
	assert.Error(t, err)
}

func TestCIDToBytes32RejectsMalformed(t *testing.T) {
	for _, in := range []string{"", "Qm", "not-a-cid", "QmYwAPJzv5CZsnA625s3Xf2nemtYgPpHdWEz79ojWnPbd"} {
		_, err := CIDToBytes32(in)
		assert.Error(t, err, in)
	}
}

func TestFileContentStore(t *testing.T) {
	dir := t.TempDir()
	store := NewFileContentStore(dir)
	data := []byte(`{"0x0000000000000000000000000000000000000001":{"pool":"1"}}`)

	hash, err := store.Publish(context.Background(), data)
	require.NoError(t, err)
	assert.Equal(t, crypto.Keccak256Hash(data), hash)

	got, err := store.Fetch(context.Background(), hash)
	require.NoError(t, err)
	assert.Equal(t, data, got)

	require.NoError(t, os.WriteFile(filepath.Join(dir, hash.Hex()+".json"), []byte("{}"), 0o644))
	_, err = store.Fetch(context.Background(), hash)
	assert.Error(t, err)
}

func TestIPFSStore(t *testing.T) {
	content := map[string][]byte{}
	digest := crypto.Keccak256Hash([]byte("pinned"))
	ref, err := Bytes32ToCID(digest)
	require.NoError(t, err)

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch {
		case r.Method == http.MethodPost && r.URL.Path == "/api/v0/add":
			assert.Equal(t, "Bearer secret", r.Header.Get("Authorization"))
			file, _, err := r.FormFile("file")
			if err != nil {
				http.Error(w, err.Error(), http.StatusBadRequest)
				return
			}
			data, err := io.ReadAll(file)
			if err != nil {
				http.Error(w, err.Error(), http.StatusBadRequest)
				return
			}
			content[ref] = data
			_ = json.NewEncoder(w).Encode(addResponse{Hash: ref, Name: "rewards.json"})
		case r.Method == http.MethodGet && strings.HasPrefix(r.URL.Path, "/ipfs/"):
			data, ok := content[strings.TrimPrefix(r.URL.Path, "/ipfs/")]
			if !ok {
				http.NotFound(w, r)
				return
			}
			_, _ = w.Write(data)
		default:
			http.Error(w, "unexpected", http.StatusBadRequest)
		}
	}))
	defer srv.Close()

	store := NewIPFSStore(IPFSConfig{APIURL: srv.URL, GatewayURL: srv.URL + "/", Token: "secret"}, nil)
	data := []byte(`{"a":"b"}`)

	hash, err := store.Publish(context.Background(), data)
	require.NoError(t, err)
	assert.Equal(t, digest, hash)

	got, err := store.Fetch(context.Background(), hash)
	require.NoError(t, err)
	assert.Equal(t, data, got)

	_, err = store.Fetch(context.Background(), common.HexToHash("0x01"))
	assert.Error(t, err)
}

func TestFileArtifacts(t *testing.T) {
	root := t.TempDir()
	artifacts := NewFileArtifacts(root, "mainnet")

	l := ledger.New()
	holder := common.HexToAddress("0xde0b295669a9fd93d5f28d9ec85e40f4cb697bae")
	require.NoError(t, l.Add(holder, "pool", uint256.NewInt(42)))

	path, err := artifacts.PublishArtifact(context.Background(), model.Epoch{Week: 2801}, l)
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(root, "mainnet", "rewards_2801.json"), path)

	loaded, ok, err := artifacts.LoadArtifact(2801)
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, l, loaded)

	_, ok, err = artifacts.LoadArtifact(2800)
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestJsonlWriter(t *testing.T) {
	path := filepath.Join(t.TempDir(), "out", "proofs.jsonl")
	w := NewJsonlWriter(path)
	require.NoError(t, w.Truncate())
	require.NoError(t, w.Append([]interface{}{map[string]int{"a": 1}, map[string]int{"b": 2}}))

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "{\"a\":1}\n{\"b\":2}\n", string(data))
}
