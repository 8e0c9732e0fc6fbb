package storage

import (
	"context"

	"incentiveScope/internal/ledger"
	"incentiveScope/internal/model"
)

// ArtifactPublisher persists an epoch's ledger as a named, versioned file.
type ArtifactPublisher interface {
	PublishArtifact(ctx context.Context, ep model.Epoch, l ledger.Ledger) (string, error)
}
