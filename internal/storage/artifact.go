package storage

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"incentiveScope/internal/ledger"
	"incentiveScope/internal/model"
)

// ArtifactName is the relative path of an epoch's reward artifact.
func ArtifactName(network string, week uint64) string {
	return fmt.Sprintf("%s/rewards_%d.json", network, week)
}

// FileArtifacts writes reward artifacts under a root directory.
type FileArtifacts struct {
	root    string
	network string
}

func NewFileArtifacts(root, network string) *FileArtifacts {
	return &FileArtifacts{root: root, network: network}
}

// PublishArtifact writes the ledger for ep and returns the file path.
func (a *FileArtifacts) PublishArtifact(_ context.Context, ep model.Epoch, l ledger.Ledger) (string, error) {
	data, err := ledger.Encode(l)
	if err != nil {
		return "", err
	}
	path := filepath.Join(a.root, filepath.FromSlash(ArtifactName(a.network, ep.Week)))
	if err := writeFileAtomic(path, data); err != nil {
		return "", fmt.Errorf("write artifact: %w", err)
	}
	return path, nil
}

// LoadArtifact reads the artifact of a week, reporting false when absent.
func (a *FileArtifacts) LoadArtifact(week uint64) (ledger.Ledger, bool, error) {
	path := filepath.Join(a.root, filepath.FromSlash(ArtifactName(a.network, week)))
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, false, nil
		}
		return nil, false, fmt.Errorf("read artifact: %w", err)
	}
	l, err := ledger.Decode(data)
	if err != nil {
		return nil, false, err
	}
	return l, true, nil
}
