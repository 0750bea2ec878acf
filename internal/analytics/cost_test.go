package analytics

import (
	"testing"
	"time"

	"github.com/coshare/coshare-backend/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var costNow = time.Date(2024, 6, 15, 12, 0, 0, 0, time.UTC)

func newTestAnalyzer() *CostOptimizationAnalyzer {
	a := NewCostOptimizationAnalyzer()
	a.now = func() time.Time { return costNow }
	return a
}

func expense(t types.ExpenseType, amount float64, date time.Time, description, notes string) types.ExpenseRecord {
	return types.ExpenseRecord{GroupID: "group-1", Amount: amount, Type: t, DateIncurred: date, Description: description, Notes: notes}
}

func trip(start time.Time, hours, km float64) types.CompletedBooking {
	return types.CompletedBooking{
		UserID:   "alice",
		Start:    start,
		End:      start.Add(time.Duration(hours * float64(time.Hour))),
		CheckIn:  &types.OdometerEvent{Odometer: 1000, RecordedAt: start},
		CheckOut: &types.OdometerEvent{Odometer: 1000 + km, RecordedAt: start.Add(time.Hour)},
	}
}

func findRecommendation(recs []types.CostRecommendation, title string) (types.CostRecommendation, bool) {
	for _, r := range recs {
		if r.Title == title {
			return r, true
		}
	}
	return types.CostRecommendation{}, false
}

func findAlert(alerts []types.CostAlert, alertType string) (types.CostAlert, bool) {
	for _, a := range alerts {
		if a.Type == alertType {
			return a, true
		}
	}
	return types.CostAlert{}, false
}

func TestAnalyze_NotFound(t *testing.T) {
	result, err := newTestAnalyzer().Analyze(CostInput{GroupID: "ghost"})
	assert.Nil(t, result)
	assert.ErrorIs(t, err, ErrGroupNotFound)
}

func TestAnalyze_InsufficientData(t *testing.T) {
	result, err := newTestAnalyzer().Analyze(CostInput{
		GroupID:     "group-1",
		GroupExists: true,
		Expenses:    []types.ExpenseRecord{expense(types.ExpenseTypeFuel, 50, costNow, "", "")},
	})
	require.NoError(t, err)
	assert.True(t, result.InsufficientData)
	assert.Empty(t, result.Recommendations)
}

func TestAnalyze_InsuranceOnlyWithoutDistance(t *testing.T) {
	result, err := newTestAnalyzer().Analyze(CostInput{
		GroupID:     "group-1",
		GroupExists: true,
		MemberCount: 3,
		Expenses:    []types.ExpenseRecord{expense("insurance", 1200, costNow.AddDate(0, -2, 0), "Annual policy", "")},
		Bookings:    []types.CompletedBooking{{UserID: "alice", Start: costNow.AddDate(0, 0, -3), End: costNow.AddDate(0, 0, -3).Add(4 * time.Hour)}},
	})
	require.NoError(t, err)
	require.False(t, result.InsufficientData)

	assert.Equal(t, 0.0, result.EfficiencyMetrics.CostPerKilometer)
	assert.Equal(t, 1200.0, result.EfficiencyMetrics.CostPerTrip)
	assert.Equal(t, 400.0, result.EfficiencyMetrics.CostPerMember)
	assert.Equal(t, 300.0, result.EfficiencyMetrics.CostPerHour)
	assert.Equal(t, "No Data", result.Benchmarks.CostPerKilometer.Status)

	rec, ok := findRecommendation(result.Recommendations, "Review Insurance Plan")
	require.True(t, ok)
	assert.Equal(t, 180.0, rec.EstimatedSavings)
	_, ok = findRecommendation(result.Recommendations, "Lower Overall Running Costs")
	assert.False(t, ok)
}

func TestAnalyze_RepairHeavyGroup(t *testing.T) {
	expenses := []types.ExpenseRecord{
		expense(types.ExpenseTypeInsurance, 1200, time.Date(2023, 7, 1, 0, 0, 0, 0, time.UTC), "Policy renewal", ""),
		expense(types.ExpenseTypeRepair, 900, time.Date(2024, 1, 10, 0, 0, 0, 0, time.UTC), "Brake repair at Smith Garage", ""),
		expense(types.ExpenseTypeMaintenance, 200, time.Date(2024, 2, 1, 0, 0, 0, 0, time.UTC), "Oil change at the dealer", ""),
		expense(types.ExpenseTypeRepair, 1100, time.Date(2024, 3, 5, 0, 0, 0, 0, time.UTC), "Transmission fix, Smith Garage", ""),
		expense(types.ExpenseTypeRepair, 1000, time.Date(2024, 5, 20, 0, 0, 0, 0, time.UTC), "Suspension repair", "Downtown Mechanic"),
	}
	for m := 1; m <= 6; m++ {
		expenses = append(expenses, expense(types.ExpenseTypeFuel, 100, time.Date(2024, time.Month(m), 2, 0, 0, 0, 0, time.UTC), "Fuel", ""))
	}
	var bookings []types.CompletedBooking
	for i := 0; i < 10; i++ {
		bookings = append(bookings, trip(costNow.AddDate(0, 0, -i*10), 2, 100))
	}

	result, err := newTestAnalyzer().Analyze(CostInput{
		GroupID:     "group-1",
		GroupExists: true,
		MemberCount: 2,
		Expenses:    expenses,
		Bookings:    bookings,
	})
	require.NoError(t, err)

	assert.Equal(t, 5000.0, result.Summary.TotalExpenses)
	assert.Equal(t, 1000.0, result.Summary.TotalDistance)
	assert.Equal(t, 5.0, result.EfficiencyMetrics.CostPerKilometer)
	assert.Equal(t, "Well Above Average", result.Benchmarks.CostPerKilometer.Status)
	assert.Nil(t, result.Benchmarks.VehicleAdjusted)

	areas := result.HighCostAreas
	assert.Equal(t, 3, areas.RepairCount)
	assert.True(t, areas.FrequentRepairs)
	assert.Equal(t, types.ExpenseType("Repair"), areas.ByType[0].Type)
	require.NotEmpty(t, areas.TopProviders)
	assert.Equal(t, "Smith Garage", areas.TopProviders[0].Name)
	assert.Equal(t, 2000.0, areas.TopProviders[0].Amount)

	preventive, ok := findRecommendation(result.Recommendations, "Schedule Preventive Maintenance")
	require.True(t, ok)
	assert.Equal(t, 900.0, preventive.EstimatedSavings)
	providers, ok := findRecommendation(result.Recommendations, "Compare Service Providers")
	require.True(t, ok)
	assert.Equal(t, 300.0, providers.EstimatedSavings)
	for i := 1; i < len(result.Recommendations); i++ {
		assert.GreaterOrEqual(t, result.Recommendations[i-1].EstimatedSavings, result.Recommendations[i].EstimatedSavings)
	}

	var insuranceDue bool
	for _, u := range result.Predictions.Upcoming {
		if u.Type == types.ExpenseTypeInsurance {
			insuranceDue = true
			require.NotNil(t, u.ExpectedDate)
			assert.Equal(t, time.Date(2024, 7, 1, 0, 0, 0, 0, time.UTC), *u.ExpectedDate)
			assert.Equal(t, 1200.0, u.EstimatedAmount)
		}
		if u.Type == types.ExpenseTypeMaintenance {
			assert.Equal(t, 32000.0, u.EstimatedAmount)
		}
	}
	assert.True(t, insuranceDue)

	scenarios := map[string]types.ROICalculation{}
	for _, r := range result.ROICalculations {
		scenarios[r.Scenario] = r
	}
	require.Contains(t, scenarios, "replace_vs_repair")
	assert.Equal(t, 2400.0, scenarios["replace_vs_repair"].AnnualSavings)
	assert.False(t, scenarios["replace_vs_repair"].Recommended)
	require.Contains(t, scenarios, "preventive_maintenance")
	assert.Equal(t, 900.0, scenarios["preventive_maintenance"].AnnualSavings)
	assert.True(t, scenarios["preventive_maintenance"].Recommended)
	require.Contains(t, scenarios, "lease_vs_own")
	assert.Equal(t, 6000.0, scenarios["lease_vs_own"].Details["annualLeaseCost"])
}

func TestAnalyze_SpendingAlerts(t *testing.T) {
	var expenses []types.ExpenseRecord
	for m := 1; m <= 3; m++ {
		expenses = append(expenses, expense(types.ExpenseTypeFuel, 100, time.Date(2024, time.Month(m), 5, 0, 0, 0, 0, time.UTC), "", ""))
	}
	expenses = append(expenses,
		expense(types.ExpenseTypeMaintenance, 99, time.Date(2024, 4, 1, 0, 0, 0, 0, time.UTC), "Wash and check", ""),
		expense(types.ExpenseTypeMaintenance, 100, time.Date(2024, 4, 8, 0, 0, 0, 0, time.UTC), "Wash and check", ""),
		expense(types.ExpenseTypeMaintenance, 101, time.Date(2024, 4, 15, 0, 0, 0, 0, time.UTC), "Wash and check", ""),
		expense(types.ExpenseTypeFuel, 700, time.Date(2024, 4, 20, 0, 0, 0, 0, time.UTC), "", ""),
	)

	result, err := newTestAnalyzer().Analyze(CostInput{
		GroupID:     "group-1",
		GroupExists: true,
		Expenses:    expenses,
		Bookings:    []types.CompletedBooking{trip(costNow.AddDate(0, -1, 0), 1, 20)},
	})
	require.NoError(t, err)

	budget, ok := findAlert(result.Alerts, "budget_exceeded")
	require.True(t, ok)
	assert.Equal(t, "High", budget.Severity)
	assert.Equal(t, 1000.0, budget.Amount)

	_, ok = findAlert(result.Alerts, "unusual_spike")
	assert.True(t, ok)

	recurring, ok := findAlert(result.Alerts, "recurring_overcharge")
	require.True(t, ok)
	assert.Equal(t, 300.0, recurring.Amount)
}

func TestTripDistance(t *testing.T) {
	start := costNow
	backwards := trip(start, 1, 0)
	backwards.CheckOut.Odometer = 900

	assert.Equal(t, 150.0, TripDistance([]types.CompletedBooking{
		trip(start, 1, 100),
		trip(start, 1, 50),
		backwards,
		{Start: start, End: start.Add(time.Hour), CheckIn: &types.OdometerEvent{Odometer: 10}},
	}))
}

func TestBenchmarkStatus(t *testing.T) {
	assert.Equal(t, "No Data", BenchmarkStatus(0, 0.25))
	assert.Equal(t, "Well Below Average", BenchmarkStatus(0.1, 0.25))
	assert.Equal(t, "Below Average", BenchmarkStatus(0.2, 0.25))
	assert.Equal(t, "At Average", BenchmarkStatus(0.26, 0.25))
	assert.Equal(t, "Above Average", BenchmarkStatus(0.3, 0.25))
	assert.Equal(t, "Well Above Average", BenchmarkStatus(0.5, 0.25))
}

func TestVehicleAgeReference(t *testing.T) {
	assert.Equal(t, 0.20, VehicleAgeReferenceCostPerKm(2))
	assert.Equal(t, 0.28, VehicleAgeReferenceCostPerKm(5))
	assert.Equal(t, 0.35, VehicleAgeReferenceCostPerKm(7))
}

func TestCostTrendFactor(t *testing.T) {
	assert.Equal(t, 0.0, CostTrendFactor(nil))
	assert.Equal(t, 0.0, CostTrendFactor([]float64{100}))
	assert.InDelta(t, 1.0, CostTrendFactor([]float64{100, 100, 100, 200, 200, 200}), 1e-9)
	assert.InDelta(t, 0.5, CostTrendFactor([]float64{50, 100, 100, 100, 150, 150, 150}), 1e-9)
}
