package storage

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"strings"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ipfs/go-cid"
	mh "github.com/multiformats/go-multihash"
	"go.uber.org/zap"
)

// CIDToBytes32 extracts the sha2-256 digest of a CIDv0 ("Qm...").
func CIDToBytes32(s string) (common.Hash, error) {
	c, err := cid.Decode(strings.TrimSpace(s))
	if err != nil {
		return common.Hash{}, fmt.Errorf("decode cid %q: %w", s, err)
	}
	if c.Version() != 0 {
		return common.Hash{}, fmt.Errorf("not a CIDv0: %q", s)
	}
	decoded, err := mh.Decode(c.Hash())
	if err != nil {
		return common.Hash{}, fmt.Errorf("decode multihash of %q: %w", s, err)
	}
	if decoded.Code != mh.SHA2_256 || len(decoded.Digest) != common.HashLength {
		return common.Hash{}, fmt.Errorf("cid %q is not a 32-byte sha2-256 digest", s)
	}
	return common.BytesToHash(decoded.Digest), nil
}

// Bytes32ToCID rebuilds the CIDv0 of a sha2-256 digest.
func Bytes32ToCID(hash common.Hash) (string, error) {
	digest, err := mh.Encode(hash.Bytes(), mh.SHA2_256)
	if err != nil {
		return "", fmt.Errorf("encode multihash: %w", err)
	}
	return cid.NewCidV0(digest).String(), nil
}

// IPFSConfig points at an IPFS HTTP API for adds and a gateway for reads.
type IPFSConfig struct {
	APIURL     string
	GatewayURL string
	Token      string
	Timeout    time.Duration
}

// IPFSStore publishes content to IPFS and references it by its CID digest.
type IPFSStore struct {
	cfg    IPFSConfig
	client *http.Client
	logger *zap.Logger
}

func NewIPFSStore(cfg IPFSConfig, logger *zap.Logger) *IPFSStore {
	if logger == nil {
		logger = zap.NewNop()
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 30 * time.Second
	}
	cfg.APIURL = strings.TrimRight(cfg.APIURL, "/")
	cfg.GatewayURL = strings.TrimRight(cfg.GatewayURL, "/")
	return &IPFSStore{cfg: cfg, client: &http.Client{Timeout: cfg.Timeout}, logger: logger}
}

type addResponse struct {
	Hash string `json:"Hash"`
	Name string `json:"Name"`
	Size string `json:"Size"`
}

// Publish adds and pins data, returning the CID digest.
func (s *IPFSStore) Publish(ctx context.Context, data []byte) (common.Hash, error) {
	var body bytes.Buffer
	form := multipart.NewWriter(&body)
	part, err := form.CreateFormFile("file", "rewards.json")
	if err != nil {
		return common.Hash{}, fmt.Errorf("build form: %w", err)
	}
	if _, err := part.Write(data); err != nil {
		return common.Hash{}, fmt.Errorf("build form: %w", err)
	}
	if err := form.Close(); err != nil {
		return common.Hash{}, fmt.Errorf("build form: %w", err)
	}

	url := s.cfg.APIURL + "/api/v0/add?pin=true&cid-version=0"
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, &body)
	if err != nil {
		return common.Hash{}, err
	}
	req.Header.Set("Content-Type", form.FormDataContentType())
	if s.cfg.Token != "" {
		req.Header.Set("Authorization", "Bearer "+s.cfg.Token)
	}

	resp, err := s.client.Do(req)
	if err != nil {
		return common.Hash{}, fmt.Errorf("ipfs add: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		msg, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return common.Hash{}, fmt.Errorf("ipfs add: status %d: %s", resp.StatusCode, strings.TrimSpace(string(msg)))
	}

	var added addResponse
	if err := json.NewDecoder(resp.Body).Decode(&added); err != nil {
		return common.Hash{}, fmt.Errorf("decode ipfs add response: %w", err)
	}
	hash, err := CIDToBytes32(added.Hash)
	if err != nil {
		return common.Hash{}, err
	}
	s.logger.Info("ipfs pinned", zap.String("cid", added.Hash), zap.Int("bytes", len(data)))
	return hash, nil
}

// Fetch reads content through the gateway.
func (s *IPFSStore) Fetch(ctx context.Context, hash common.Hash) ([]byte, error) {
	ref, err := Bytes32ToCID(hash)
	if err != nil {
		return nil, err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, s.cfg.GatewayURL+"/ipfs/"+ref, nil)
	if err != nil {
		return nil, err
	}
	resp, err := s.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("ipfs fetch %s: %w", ref, err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("ipfs fetch %s: status %d", ref, resp.StatusCode)
	}
	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("ipfs fetch %s: %w", ref, err)
	}
	return data, nil
}
