//go:build integration

package postgres

import (
	"context"
	"runtime"
	"testing"
	"time"

	"github.com/coshare/coshare-backend/db"
	"github.com/coshare/coshare-backend/internal/store"
	"github.com/coshare/coshare-backend/logger"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	tcpostgres "github.com/testcontainers/testcontainers-go/modules/postgres"
)

// setupTestDB starts PostgreSQL, applies the embedded migrations and returns a pool.
func setupTestDB(t *testing.T) *pgxpool.Pool {
	t.Helper()
	if runtime.GOOS == "windows" {
		t.Skip("Skipping PostgreSQL container tests on Windows")
	}
	logger.IsTest = true

	ctx := context.Background()
	container, err := tcpostgres.Run(ctx, "postgres:16-alpine",
		tcpostgres.WithDatabase("testdb"),
		tcpostgres.WithUsername("testuser"),
		tcpostgres.WithPassword("testpass"),
		tcpostgres.BasicWaitStrategies(),
	)
	require.NoError(t, err)
	t.Cleanup(func() {
		if err := testcontainers.TerminateContainer(container); err != nil {
			t.Logf("failed to terminate container: %s", err)
		}
	})

	connStr, err := container.ConnectionString(ctx, "sslmode=disable")
	require.NoError(t, err)
	require.NoError(t, db.RunMigrations(connStr))

	pool, err := pgxpool.New(ctx, connStr)
	require.NoError(t, err)
	t.Cleanup(pool.Close)
	return pool
}

func TestIntegration_SnapshotUpsertIsIdempotent(t *testing.T) {
	pool := setupTestDB(t)
	ctx := context.Background()
	s := NewTrendSnapshotStore(pool)

	groupID := uuid.NewString()
	start := time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC)
	end := time.Date(2024, 5, 30, 0, 0, 0, 0, time.UTC)

	_, err := s.FindSnapshot(ctx, groupID, start, end)
	assert.ErrorIs(t, err, store.ErrNotFound)

	written, err := s.UpsertSnapshot(ctx, groupID, start, end, 72.5)
	require.NoError(t, err)
	assert.True(t, written)

	written, err = s.UpsertSnapshot(ctx, groupID, start, end, 72.5)
	require.NoError(t, err)
	assert.False(t, written, "unchanged score must not write")

	written, err = s.UpsertSnapshot(ctx, groupID, start, end, 80)
	require.NoError(t, err)
	assert.True(t, written)

	var rows int
	require.NoError(t, pool.QueryRow(ctx,
		`SELECT COUNT(*) FROM fairness_trend_snapshots WHERE group_id = $1`, groupID).Scan(&rows))
	assert.Equal(t, 1, rows)

	snap, err := s.FindSnapshot(ctx, groupID, start, end)
	require.NoError(t, err)
	assert.Equal(t, 80.0, snap.Score)
	assert.True(t, start.Equal(snap.PeriodStart))
}

func TestIntegration_ConcurrentUpsertsKeepOneRow(t *testing.T) {
	pool := setupTestDB(t)
	ctx := context.Background()
	s := NewTrendSnapshotStore(pool)

	groupID := uuid.NewString()
	start := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	end := start.AddDate(0, 3, 0)

	errs := make(chan error, 10)
	for i := 0; i < 10; i++ {
		go func() {
			_, err := s.UpsertSnapshot(ctx, groupID, start, end, 64)
			errs <- err
		}()
	}
	for i := 0; i < 10; i++ {
		require.NoError(t, <-errs)
	}

	var rows int
	require.NoError(t, pool.QueryRow(ctx,
		`SELECT COUNT(*) FROM fairness_trend_snapshots WHERE group_id = $1`, groupID).Scan(&rows))
	assert.Equal(t, 1, rows)
}

func TestIntegration_AnalyticsReader(t *testing.T) {
	pool := setupTestDB(t)
	ctx := context.Background()
	r := NewAnalyticsReader(pool)

	var groupID string
	require.NoError(t, pool.QueryRow(ctx,
		`INSERT INTO co_ownership_groups (name) VALUES ('Test Group') RETURNING id::text`).Scan(&groupID))

	alice, bob := uuid.NewString(), uuid.NewString()
	_, err := pool.Exec(ctx, `INSERT INTO group_members (group_id, user_id, ownership_share) VALUES ($1, $2, 0.5), ($1, $3, 0.5)`, groupID, alice, bob)
	require.NoError(t, err)

	periodStart := time.Date(2024, 2, 1, 0, 0, 0, 0, time.UTC)
	_, err = pool.Exec(ctx, `
		INSERT INTO usage_records (group_id, user_id, period_start, period_end, ownership_share, usage_share, total_usage_hours)
		VALUES ($1, $2, $4, $5, 0.5, 0.7, 14), ($1, $3, $4, $5, 0.5, NULL, 6)`,
		groupID, alice, bob, periodStart, periodStart.AddDate(0, 0, 7))
	require.NoError(t, err)

	var bookingID string
	require.NoError(t, pool.QueryRow(ctx, `
		INSERT INTO bookings (group_id, user_id, start_at, end_at, status)
		VALUES ($1, $2, $3, $4, 'Completed') RETURNING id::text`,
		groupID, alice, periodStart.Add(9*time.Hour), periodStart.Add(12*time.Hour)).Scan(&bookingID))
	_, err = pool.Exec(ctx, `
		INSERT INTO booking_check_events (booking_id, event_type, odometer, recorded_at)
		VALUES ($1, 'CheckIn', 1000, $2), ($1, 'CheckOut', 1120, $3)`,
		bookingID, periodStart.Add(9*time.Hour), periodStart.Add(12*time.Hour))
	require.NoError(t, err)

	_, err = pool.Exec(ctx, `
		INSERT INTO expenses (group_id, amount, expense_type, date_incurred, description)
		VALUES ($1, 89.99, 'Maintenance', $2, 'Oil change at Smith Garage')`, groupID, periodStart.AddDate(0, 0, 3))
	require.NoError(t, err)

	from, to := periodStart.AddDate(0, -1, 0), periodStart.AddDate(0, 1, 0)

	exists, err := r.GroupExists(ctx, groupID)
	require.NoError(t, err)
	assert.True(t, exists)

	records, err := r.ListUsageRecords(ctx, groupID, from, to)
	require.NoError(t, err)
	assert.Len(t, records, 2)

	completed, err := r.ListCompletedBookings(ctx, groupID, from, to)
	require.NoError(t, err)
	require.Len(t, completed, 1)
	require.NotNil(t, completed[0].CheckOut)
	assert.Equal(t, 120.0, completed[0].CheckOut.Odometer-completed[0].CheckIn.Odometer)

	expenses, err := r.ListExpenses(ctx, groupID, from, to)
	require.NoError(t, err)
	require.Len(t, expenses, 1)
	assert.InDelta(t, 89.99, expenses[0].Amount, 0.001)

	count, err := r.CountMembers(ctx, groupID)
	require.NoError(t, err)
	assert.Equal(t, 2, count)
}
