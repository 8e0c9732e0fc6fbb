package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"incentiveScope/internal/model"
)

const schema = `
CREATE TABLE IF NOT EXISTS epoch_runs (
	run_id UUID PRIMARY KEY,
	chain_id BIGINT NOT NULL,
	pool_address TEXT NOT NULL,
	week BIGINT NOT NULL,
	label TEXT NOT NULL,
	swap_count INT NOT NULL,
	processed INT NOT NULL,
	swap_skips INT NOT NULL,
	position_skips INT NOT NULL,
	total_usd DOUBLE PRECISION NOT NULL,
	budget DOUBLE PRECISION NOT NULL,
	started_at TIMESTAMPTZ NOT NULL,
	finished_at TIMESTAMPTZ NOT NULL
);
CREATE TABLE IF NOT EXISTS epoch_rewards (
	run_id UUID NOT NULL REFERENCES epoch_runs (run_id),
	holder TEXT NOT NULL,
	fees DOUBLE PRECISION NOT NULL,
	token0 DOUBLE PRECISION NOT NULL,
	token1 DOUBLE PRECISION NOT NULL,
	boosted_fees DOUBLE PRECISION NOT NULL,
	boosted_token0 DOUBLE PRECISION NOT NULL,
	boosted_token1 DOUBLE PRECISION NOT NULL,
	amount NUMERIC(78, 0) NOT NULL,
	PRIMARY KEY (run_id, holder)
);
CREATE TABLE IF NOT EXISTS commitments (
	chain_id BIGINT NOT NULL,
	week BIGINT NOT NULL,
	merkle_root TEXT NOT NULL,
	content_hash TEXT NOT NULL,
	tx_hash TEXT NOT NULL,
	created_at TIMESTAMPTZ NOT NULL DEFAULT now(),
	PRIMARY KEY (chain_id, week)
);
CREATE TABLE IF NOT EXISTS rewarder_state (
	name TEXT PRIMARY KEY,
	last_committed_week BIGINT NOT NULL,
	merkle_root TEXT NOT NULL,
	content_hash TEXT NOT NULL,
	updated_at TIMESTAMPTZ NOT NULL
);
`

// Store provides Postgres persistence for runs, rewards and commitments.
type Store struct {
	pool *pgxpool.Pool
}

func NewStore(ctx context.Context, dsn string) (*Store, error) {
	if dsn == "" {
		return nil, fmt.Errorf("pg dsn is required")
	}
	pool, err := pgxpool.New(ctx, dsn)
	if err != nil {
		return nil, err
	}
	return &Store{pool: pool}, nil
}

func (s *Store) Close() {
	if s.pool != nil {
		s.pool.Close()
	}
}

// Migrate creates the tables when missing.
func (s *Store) Migrate(ctx context.Context) error {
	_, err := s.pool.Exec(ctx, schema)
	return err
}

// SaveRun records a run and its per-holder rewards in one transaction.
func (s *Store) SaveRun(ctx context.Context, run model.EpochRun, rewards []model.HolderReward) error {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return err
	}
	defer tx.Rollback(ctx)

	_, err = tx.Exec(ctx, `
		INSERT INTO epoch_runs (
			run_id, chain_id, pool_address, week, label, swap_count, processed,
			swap_skips, position_skips, total_usd, budget, started_at, finished_at
		) VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13)
	`,
		run.RunID,
		int64(run.Epoch.ChainID),
		run.Epoch.Pool.Hex(),
		int64(run.Epoch.Week),
		run.Label,
		run.Swaps,
		run.Processed,
		run.SwapSkips,
		run.PositionSkips,
		run.TotalUSD,
		run.Budget,
		run.StartedAt,
		run.FinishedAt,
	)
	if err != nil {
		return fmt.Errorf("insert run: %w", err)
	}

	if len(rewards) > 0 {
		batch := &pgx.Batch{}
		for _, r := range rewards {
			batch.Queue(`
				INSERT INTO epoch_rewards (
					run_id, holder, fees, token0, token1,
					boosted_fees, boosted_token0, boosted_token1, amount
				) VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9::numeric)
				ON CONFLICT (run_id, holder)
				DO UPDATE SET amount = EXCLUDED.amount
			`,
				run.RunID,
				r.Holder.Hex(),
				r.Exposure.Fees,
				r.Exposure.Token0,
				r.Exposure.Token1,
				r.Boosted.Fees,
				r.Boosted.Token0,
				r.Boosted.Token1,
				r.Amount,
			)
		}
		br := tx.SendBatch(ctx, batch)
		for range rewards {
			if _, err := br.Exec(); err != nil {
				br.Close()
				return fmt.Errorf("insert reward: %w", err)
			}
		}
		if err := br.Close(); err != nil {
			return err
		}
	}

	return tx.Commit(ctx)
}

// SaveCommitment records a published commitment.
func (s *Store) SaveCommitment(ctx context.Context, chainID, week uint64, c model.Commitment, txHash string) error {
	_, err := s.pool.Exec(ctx, `
		INSERT INTO commitments (chain_id, week, merkle_root, content_hash, tx_hash)
		VALUES ($1, $2, $3, $4, $5)
		ON CONFLICT (chain_id, week) DO UPDATE
		SET merkle_root = EXCLUDED.merkle_root,
			content_hash = EXCLUDED.content_hash,
			tx_hash = EXCLUDED.tx_hash
	`, int64(chainID), int64(week), c.MerkleRoot.Hex(), c.ContentHash.Hex(), txHash)
	return err
}

// LoadCommittedWeek returns the last committed week for a name.
func (s *Store) LoadCommittedWeek(ctx context.Context, name string) (uint64, bool, error) {
	if name == "" {
		return 0, false, fmt.Errorf("state name required")
	}
	var week int64
	row := s.pool.QueryRow(ctx, `SELECT last_committed_week FROM rewarder_state WHERE name=$1`, name)
	if err := row.Scan(&week); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return 0, false, nil
		}
		return 0, false, err
	}
	return uint64(week), true, nil
}

// SaveCommittedWeek upserts the last committed week for a name.
func (s *Store) SaveCommittedWeek(ctx context.Context, name string, week uint64, c model.Commitment) error {
	if name == "" {
		return fmt.Errorf("state name required")
	}
	_, err := s.pool.Exec(ctx, `
		INSERT INTO rewarder_state (name, last_committed_week, merkle_root, content_hash, updated_at)
		VALUES ($1, $2, $3, $4, now())
		ON CONFLICT (name) DO UPDATE
		SET last_committed_week = EXCLUDED.last_committed_week,
			merkle_root = EXCLUDED.merkle_root,
			content_hash = EXCLUDED.content_hash,
			updated_at = now()
	`, name, int64(week), c.MerkleRoot.Hex(), c.ContentHash.Hex())
	return err
}
