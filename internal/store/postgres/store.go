package postgres

import (
	"context"

	"github.com/coshare/coshare-backend/internal/store"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
)

// DBTX is the subset of *pgxpool.Pool used by the stores. pgxmock pools and
// pgx transactions satisfy it too.
type DBTX interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// Store implements store.Store using PostgreSQL
type Store struct {
	analytics *AnalyticsReader
	snapshots *TrendSnapshotStore
}

// NewStore creates a new Store instance
func NewStore(db DBTX) *Store {
	return &Store{
		analytics: NewAnalyticsReader(db),
		snapshots: NewTrendSnapshotStore(db),
	}
}

func (s *Store) Analytics() store.AnalyticsReader {
	return s.analytics
}

func (s *Store) TrendSnapshots() store.TrendSnapshotStore {
	return s.snapshots
}

var _ store.Store = (*Store)(nil)
