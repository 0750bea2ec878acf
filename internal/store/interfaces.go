package store

import (
	"context"
	"time"

	"github.com/coshare/coshare-backend/types"
)

// Store provides a unified interface for all data the analytics module reads or writes.
type Store interface {
	Analytics() AnalyticsReader
	TrendSnapshots() TrendSnapshotStore
}

// AnalyticsReader loads the plain records the analytics engine consumes.
// Implementations never filter on analytics semantics; they only scope by group and time.
type AnalyticsReader interface {
	// GroupExists reports whether a group record exists.
	GroupExists(ctx context.Context, groupID string) (bool, error)
	ListUsageRecords(ctx context.Context, groupID string, from, to time.Time) ([]types.UsageRecord, error)
	ListBookings(ctx context.Context, groupID string, from, to time.Time) ([]types.ExistingBooking, error)
	ListCompletedBookings(ctx context.Context, groupID string, from, to time.Time) ([]types.CompletedBooking, error)
	ListExpenses(ctx context.Context, groupID string, from, to time.Time) ([]types.ExpenseRecord, error)
	ListVehicles(ctx context.Context, groupID string) ([]types.VehicleInfo, error)
	CountMembers(ctx context.Context, groupID string) (int, error)
}

// TrendSnapshotStore persists one fairness score per (group, periodStart, periodEnd).
type TrendSnapshotStore interface {
	// FindSnapshot returns ErrNotFound when no row exists for the exact key.
	FindSnapshot(ctx context.Context, groupID string, periodStart, periodEnd time.Time) (*types.FairnessSnapshot, error)
	// UpsertSnapshot atomically inserts or updates the row for the key and reports
	// whether a row was written. An unchanged score writes nothing.
	UpsertSnapshot(ctx context.Context, groupID string, periodStart, periodEnd time.Time, score float64) (bool, error)
}
