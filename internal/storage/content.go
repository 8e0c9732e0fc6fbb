package storage

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/crypto"
)

// FileContentStore keeps content in a directory, addressed by keccak256.
type FileContentStore struct {
	dir string
}

func NewFileContentStore(dir string) *FileContentStore {
	return &FileContentStore{dir: dir}
}

func (s *FileContentStore) pathFor(hash common.Hash) string {
	return filepath.Join(s.dir, hash.Hex()+".json")
}

// Publish writes data atomically and returns its keccak256.
func (s *FileContentStore) Publish(_ context.Context, data []byte) (common.Hash, error) {
	hash := crypto.Keccak256Hash(data)
	if err := writeFileAtomic(s.pathFor(hash), data); err != nil {
		return common.Hash{}, err
	}
	return hash, nil
}

// Fetch reads content and checks it still hashes to hash.
func (s *FileContentStore) Fetch(_ context.Context, hash common.Hash) ([]byte, error) {
	data, err := os.ReadFile(s.pathFor(hash))
	if err != nil {
		return nil, fmt.Errorf("read content %s: %w", hash.Hex(), err)
	}
	if got := crypto.Keccak256Hash(data); got != hash {
		return nil, fmt.Errorf("content %s hashes to %s", hash.Hex(), got.Hex())
	}
	return data, nil
}

func writeFileAtomic(path string, data []byte) error {
	dir := filepath.Dir(path)
	if dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create dir: %w", err)
		}
	}
	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return fmt.Errorf("write tmp: %w", err)
	}
	if err := os.Rename(tmp, path); err != nil {
		return fmt.Errorf("rename: %w", err)
	}
	return nil
}
