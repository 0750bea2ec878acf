package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/coshare/coshare-backend/types"
	"github.com/jackc/pgx/v5"
)

// AnalyticsReader implements store.AnalyticsReader using PostgreSQL
type AnalyticsReader struct {
	db DBTX
}

// NewAnalyticsReader creates a new AnalyticsReader instance
func NewAnalyticsReader(db DBTX) *AnalyticsReader {
	return &AnalyticsReader{db: db}
}

func (r *AnalyticsReader) GroupExists(ctx context.Context, groupID string) (bool, error) {
	query := `SELECT EXISTS (SELECT 1 FROM co_ownership_groups WHERE id = $1)`

	var exists bool
	if err := r.db.QueryRow(ctx, query, groupID).Scan(&exists); err != nil {
		return false, fmt.Errorf("error checking group: %w", err)
	}
	return exists, nil
}

func (r *AnalyticsReader) ListUsageRecords(ctx context.Context, groupID string, from, to time.Time) ([]types.UsageRecord, error) {
	query := `
		SELECT group_id::text, user_id::text, period_start, period_end,
			ownership_share, COALESCE(usage_share, 'NaN'::float8), total_usage_hours
		FROM usage_records
		WHERE group_id = $1 AND period_end > $2 AND period_start < $3
		ORDER BY period_start, user_id`

	rows, err := r.db.Query(ctx, query, groupID, from, to)
	if err != nil {
		return nil, fmt.Errorf("error listing usage records: %w", err)
	}

	records, err := pgx.CollectRows(rows, func(row pgx.CollectableRow) (types.UsageRecord, error) {
		var rec types.UsageRecord
		err := row.Scan(
			&rec.GroupID,
			&rec.UserID,
			&rec.PeriodStart,
			&rec.PeriodEnd,
			&rec.OwnershipShare,
			&rec.UsageShare,
			&rec.TotalUsageHours,
		)
		return rec, err
	})
	if err != nil {
		return nil, fmt.Errorf("error scanning usage records: %w", err)
	}
	return records, nil
}

func (r *AnalyticsReader) ListBookings(ctx context.Context, groupID string, from, to time.Time) ([]types.ExistingBooking, error) {
	query := `
		SELECT user_id::text, start_at, end_at, status
		FROM bookings
		WHERE group_id = $1
			AND start_at < $3 AND end_at > $2
			AND status NOT IN ('Cancelled', 'Rejected')
		ORDER BY start_at`

	rows, err := r.db.Query(ctx, query, groupID, from, to)
	if err != nil {
		return nil, fmt.Errorf("error listing bookings: %w", err)
	}

	bookings, err := pgx.CollectRows(rows, func(row pgx.CollectableRow) (types.ExistingBooking, error) {
		var b types.ExistingBooking
		err := row.Scan(&b.UserID, &b.Start, &b.End, &b.Status)
		return b, err
	})
	if err != nil {
		return nil, fmt.Errorf("error scanning bookings: %w", err)
	}
	return bookings, nil
}

func (r *AnalyticsReader) ListCompletedBookings(ctx context.Context, groupID string, from, to time.Time) ([]types.CompletedBooking, error) {
	query := `
		SELECT b.id::text, b.user_id::text, b.start_at, b.end_at,
			ci.odometer, ci.recorded_at, co.odometer, co.recorded_at
		FROM bookings b
		LEFT JOIN LATERAL (
			SELECT odometer, recorded_at FROM booking_check_events
			WHERE booking_id = b.id AND event_type = 'CheckIn'
			ORDER BY recorded_at ASC LIMIT 1
		) ci ON true
		LEFT JOIN LATERAL (
			SELECT odometer, recorded_at FROM booking_check_events
			WHERE booking_id = b.id AND event_type = 'CheckOut'
			ORDER BY recorded_at DESC LIMIT 1
		) co ON true
		WHERE b.group_id = $1 AND b.status = 'Completed'
			AND b.end_at >= $2 AND b.start_at < $3
		ORDER BY b.start_at`

	rows, err := r.db.Query(ctx, query, groupID, from, to)
	if err != nil {
		return nil, fmt.Errorf("error listing completed bookings: %w", err)
	}

	bookings, err := pgx.CollectRows(rows, func(row pgx.CollectableRow) (types.CompletedBooking, error) {
		var (
			b               types.CompletedBooking
			inOdo, outOdo   *float64
			inTime, outTime *time.Time
		)
		if err := row.Scan(&b.ID, &b.UserID, &b.Start, &b.End, &inOdo, &inTime, &outOdo, &outTime); err != nil {
			return b, err
		}
		b.CheckIn = odometerEvent(inOdo, inTime)
		b.CheckOut = odometerEvent(outOdo, outTime)
		return b, nil
	})
	if err != nil {
		return nil, fmt.Errorf("error scanning completed bookings: %w", err)
	}
	return bookings, nil
}

func odometerEvent(odometer *float64, recordedAt *time.Time) *types.OdometerEvent {
	if odometer == nil {
		return nil
	}
	ev := &types.OdometerEvent{Odometer: *odometer}
	if recordedAt != nil {
		ev.RecordedAt = *recordedAt
	}
	return ev
}

func (r *AnalyticsReader) ListExpenses(ctx context.Context, groupID string, from, to time.Time) ([]types.ExpenseRecord, error) {
	query := `
		SELECT id::text, group_id::text, COALESCE(vehicle_id::text, ''), amount::float8,
			expense_type, date_incurred, description, COALESCE(notes, '')
		FROM expenses
		WHERE group_id = $1 AND date_incurred >= $2 AND date_incurred < $3
		ORDER BY date_incurred`

	rows, err := r.db.Query(ctx, query, groupID, from, to)
	if err != nil {
		return nil, fmt.Errorf("error listing expenses: %w", err)
	}

	expenses, err := pgx.CollectRows(rows, func(row pgx.CollectableRow) (types.ExpenseRecord, error) {
		var e types.ExpenseRecord
		err := row.Scan(&e.ID, &e.GroupID, &e.VehicleID, &e.Amount, &e.Type, &e.DateIncurred, &e.Description, &e.Notes)
		return e, err
	})
	if err != nil {
		return nil, fmt.Errorf("error scanning expenses: %w", err)
	}
	return expenses, nil
}

func (r *AnalyticsReader) ListVehicles(ctx context.Context, groupID string) ([]types.VehicleInfo, error) {
	query := `
		SELECT id::text, COALESCE(year, 0), odometer
		FROM vehicles
		WHERE group_id = $1
		ORDER BY id`

	rows, err := r.db.Query(ctx, query, groupID)
	if err != nil {
		return nil, fmt.Errorf("error listing vehicles: %w", err)
	}

	vehicles, err := pgx.CollectRows(rows, func(row pgx.CollectableRow) (types.VehicleInfo, error) {
		var v types.VehicleInfo
		err := row.Scan(&v.ID, &v.Year, &v.Odometer)
		return v, err
	})
	if err != nil {
		return nil, fmt.Errorf("error scanning vehicles: %w", err)
	}
	return vehicles, nil
}

func (r *AnalyticsReader) CountMembers(ctx context.Context, groupID string) (int, error) {
	query := `SELECT COUNT(*) FROM group_members WHERE group_id = $1`

	var count int
	if err := r.db.QueryRow(ctx, query, groupID).Scan(&count); err != nil {
		return 0, fmt.Errorf("error counting members: %w", err)
	}
	return count, nil
}
