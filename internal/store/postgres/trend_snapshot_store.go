package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/coshare/coshare-backend/internal/store"
	"github.com/coshare/coshare-backend/types"
	"github.com/jackc/pgx/v5"
)

// TrendSnapshotStore implements store.TrendSnapshotStore using PostgreSQL
type TrendSnapshotStore struct {
	db DBTX
}

// NewTrendSnapshotStore creates a new TrendSnapshotStore instance
func NewTrendSnapshotStore(db DBTX) *TrendSnapshotStore {
	return &TrendSnapshotStore{db: db}
}

const findSnapshotQuery = `
		SELECT id::text, group_id::text, period_start, period_end, score, created_at, updated_at
		FROM fairness_trend_snapshots
		WHERE group_id = $1 AND period_start = $2 AND period_end = $3`

// The WHERE clause on the conflict branch skips the write entirely when the
// score is unchanged, so RowsAffected is 0 for a no-op.
const upsertSnapshotQuery = `
		INSERT INTO fairness_trend_snapshots (group_id, period_start, period_end, score)
		VALUES ($1, $2, $3, $4)
		ON CONFLICT (group_id, period_start, period_end)
		DO UPDATE SET score = EXCLUDED.score, updated_at = now()
		WHERE fairness_trend_snapshots.score IS DISTINCT FROM EXCLUDED.score`

func (s *TrendSnapshotStore) FindSnapshot(ctx context.Context, groupID string, periodStart, periodEnd time.Time) (*types.FairnessSnapshot, error) {
	snap := &types.FairnessSnapshot{}
	err := s.db.QueryRow(ctx, findSnapshotQuery, groupID, periodStart, periodEnd).Scan(
		&snap.ID,
		&snap.GroupID,
		&snap.PeriodStart,
		&snap.PeriodEnd,
		&snap.Score,
		&snap.CreatedAt,
		&snap.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, store.ErrNotFound
		}
		return nil, fmt.Errorf("error getting fairness snapshot: %w", err)
	}
	return snap, nil
}

func (s *TrendSnapshotStore) UpsertSnapshot(ctx context.Context, groupID string, periodStart, periodEnd time.Time, score float64) (bool, error) {
	cmdTag, err := s.db.Exec(ctx, upsertSnapshotQuery, groupID, periodStart, periodEnd, score)
	if err != nil {
		return false, fmt.Errorf("error upserting fairness snapshot: %w", err)
	}
	return cmdTag.RowsAffected() > 0, nil
}
