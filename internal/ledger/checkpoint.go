package ledger

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"incentiveScope/internal/model"
)

type fileCheckpoint struct {
	LastCommittedWeek uint64 `json:"last_committed_week"`
	MerkleRoot        string `json:"merkle_root"`
	ContentHash       string `json:"content_hash"`
	UpdatedAt         string `json:"updated_at"`
}

// FileCheckpoint persists the last committed week to disk.
type FileCheckpoint struct {
	path string
}

func NewFileCheckpoint(path string) *FileCheckpoint {
	return &FileCheckpoint{path: path}
}

func (c *FileCheckpoint) LastCommitted(context.Context) (uint64, bool, error) {
	stat, err := os.Stat(c.path)
	if err != nil {
		if os.IsNotExist(err) {
			return 0, false, nil
		}
		return 0, false, fmt.Errorf("stat checkpoint: %w", err)
	}
	if stat.IsDir() {
		return 0, false, fmt.Errorf("checkpoint path is a directory")
	}

	data, err := os.ReadFile(c.path)
	if err != nil {
		return 0, false, fmt.Errorf("read checkpoint: %w", err)
	}
	var cp fileCheckpoint
	if err := json.Unmarshal(data, &cp); err != nil {
		return 0, false, fmt.Errorf("parse checkpoint: %w", err)
	}
	return cp.LastCommittedWeek, true, nil
}

func (c *FileCheckpoint) SaveCommitted(_ context.Context, week uint64, commitment model.Commitment) error {
	dir := filepath.Dir(c.path)
	if dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create checkpoint dir: %w", err)
		}
	}

	data, err := json.Marshal(fileCheckpoint{
		LastCommittedWeek: week,
		MerkleRoot:        commitment.MerkleRoot.Hex(),
		ContentHash:       commitment.ContentHash.Hex(),
		UpdatedAt:         time.Now().UTC().Format(time.RFC3339Nano),
	})
	if err != nil {
		return fmt.Errorf("marshal checkpoint: %w", err)
	}

	tmpPath := c.path + ".tmp"
	if err := os.WriteFile(tmpPath, data, 0o644); err != nil {
		return fmt.Errorf("write checkpoint tmp: %w", err)
	}
	if err := os.Rename(tmpPath, c.path); err != nil {
		return fmt.Errorf("rename checkpoint: %w", err)
	}
	return nil
}
