package postgres

import (
	"context"

	"incentiveScope/internal/model"
)

// Checkpoint stores the last committed week in the rewarder_state table.
type Checkpoint struct {
	Store *Store
	Name  string
}

func (c *Checkpoint) LastCommitted(ctx context.Context) (uint64, bool, error) {
	if c == nil || c.Store == nil {
		return 0, false, nil
	}
	return c.Store.LoadCommittedWeek(ctx, c.Name)
}

func (c *Checkpoint) SaveCommitted(ctx context.Context, week uint64, commitment model.Commitment) error {
	if c == nil || c.Store == nil {
		return nil
	}
	return c.Store.SaveCommittedWeek(ctx, c.Name, week, commitment)
}
