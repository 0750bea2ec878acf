package analytics

import (
	"sort"
	"time"

	"github.com/coshare/coshare-backend/types"
)

const (
	// DefaultCostLookbackMonths is how many months of expenses a report covers.
	DefaultCostLookbackMonths = 12

	referenceCostPerKm   = 0.25
	referenceCostPerTrip = 15.0

	frequentRepairCount = 3
	topProviderCount    = 5

	maintenanceInterval = 10000.0
	renewalHorizon      = 3 // months
)

// CostInput is the data a cost report runs over.
type CostInput struct {
	GroupID     string
	GroupExists bool
	PeriodStart time.Time
	PeriodEnd   time.Time
	MemberCount int
	Vehicles    []types.VehicleInfo
	Expenses    []types.ExpenseRecord
	Bookings    []types.CompletedBooking
}

// CostOptimizationAnalyzer turns expenses and trips into a savings report.
type CostOptimizationAnalyzer struct {
	now func() time.Time
}

func NewCostOptimizationAnalyzer() *CostOptimizationAnalyzer {
	return &CostOptimizationAnalyzer{now: time.Now}
}

// costFacts are the intermediate totals shared by every section of the report.
type costFacts struct {
	now          time.Time
	total        float64
	distance     float64
	bookedHours  float64
	trips        int
	members      int
	byType       map[string]float64
	countByType  map[string]int
	serviceTotal float64
	serviceCount int
	repairTotal  float64
	repairCount  int
	monthly      []monthTotal
	monthsSpan   int
	avgAge       float64
	hasVehicles  bool
	costPerKm    float64
}

type monthTotal struct {
	month time.Time
	total float64
}

// Analyze builds the cost optimization report. It returns ErrGroupNotFound for
// an unknown group and a report flagged InsufficientData when there are no
// expenses or no completed trips.
func (a *CostOptimizationAnalyzer) Analyze(in CostInput) (*types.CostOptimization, error) {
	if !in.GroupExists {
		return nil, ErrGroupNotFound
	}

	result := &types.CostOptimization{
		GroupID:         in.GroupID,
		Recommendations: []types.CostRecommendation{},
		Alerts:          []types.CostAlert{},
		ROICalculations: []types.ROICalculation{},
		Summary: types.CostSummary{
			PeriodStart:  in.PeriodStart,
			PeriodEnd:    in.PeriodEnd,
			ExpenseCount: len(in.Expenses),
			TripCount:    len(in.Bookings),
			MemberCount:  in.MemberCount,
		},
		HighCostAreas: types.HighCostAreas{
			ByType:       []types.ExpenseCategoryBreakdown{},
			TopProviders: []types.ProviderSpend{},
		},
		Predictions: types.CostPredictions{Upcoming: []types.UpcomingExpense{}},
	}
	if len(in.Expenses) == 0 || len(in.Bookings) == 0 {
		result.InsufficientData = true
		return result, nil
	}

	f := a.collectFacts(in)

	result.Summary.TotalExpenses = round2(f.total)
	result.Summary.TotalDistance = round2(f.distance)
	result.Summary.TotalBookedHours = round2(f.bookedHours)
	result.EfficiencyMetrics = types.EfficiencyMetrics{
		CostPerKilometer: round2(f.costPerKm),
		CostPerTrip:      round2(safeDiv(f.total, float64(f.trips))),
		CostPerMember:    round2(safeDiv(f.total, float64(f.members))),
		CostPerHour:      round2(safeDiv(f.total, f.bookedHours)),
	}
	result.HighCostAreas = highCostAreas(in.Expenses, f)
	result.Benchmarks = costBenchmarks(f)
	result.Recommendations = costRecommendations(result.HighCostAreas, f)
	result.Predictions = costPredictions(in.Expenses, f)
	result.Alerts = costAlerts(in.Expenses, f)
	result.ROICalculations = roiCalculations(f)

	return result, nil
}

// TripDistance sums checkout minus checkin odometer readings. Trips missing a
// reading are skipped and negative deltas count as 0.
func TripDistance(bookings []types.CompletedBooking) float64 {
	var total float64
	for _, b := range bookings {
		if b.CheckIn == nil || b.CheckOut == nil {
			continue
		}
		if d := b.CheckOut.Odometer - b.CheckIn.Odometer; d > 0 && isFinite(d) {
			total += d
		}
	}
	return total
}

func (a *CostOptimizationAnalyzer) collectFacts(in CostInput) costFacts {
	f := costFacts{
		now:         a.now(),
		trips:       len(in.Bookings),
		members:     in.MemberCount,
		distance:    TripDistance(in.Bookings),
		byType:      make(map[string]float64),
		countByType: make(map[string]int),
	}

	for _, b := range in.Bookings {
		f.bookedHours += b.Hours()
	}

	byMonth := make(map[time.Time]float64)
	for _, e := range in.Expenses {
		amt := e.Amount
		if !isFinite(amt) {
			continue
		}
		key := canonicalType(e.Type)
		f.total += amt
		f.byType[key] += amt
		f.countByType[key]++
		if e.Type.IsServiceWork() {
			f.serviceTotal += amt
			f.serviceCount++
		}
		if e.Type.Is(types.ExpenseTypeRepair) {
			f.repairTotal += amt
			f.repairCount++
		}

		byMonth[startOfMonth(e.DateIncurred.UTC())] += amt
	}

	for m, t := range byMonth {
		f.monthly = append(f.monthly, monthTotal{month: m, total: t})
	}
	sort.Slice(f.monthly, func(i, j int) bool { return f.monthly[i].month.Before(f.monthly[j].month) })

	f.monthsSpan = 1
	if len(f.monthly) > 0 {
		firstMonth, lastMonth := f.monthly[0].month, f.monthly[len(f.monthly)-1].month
		f.monthsSpan = (lastMonth.Year()-firstMonth.Year())*12 + int(lastMonth.Month()-firstMonth.Month()) + 1
	}

	var ages []float64
	for _, v := range in.Vehicles {
		if v.Year <= 0 {
			continue
		}
		age := float64(f.now.Year() - v.Year)
		if age < 0 {
			age = 0
		}
		ages = append(ages, age)
	}
	f.hasVehicles = len(ages) > 0
	f.avgAge = mean(ages)
	f.costPerKm = safeDiv(f.total, f.distance)

	return f
}

// canonicalType maps a free-form expense type onto its canonical spelling.
func canonicalType(t types.ExpenseType) string {
	for _, known := range []types.ExpenseType{
		types.ExpenseTypeFuel, types.ExpenseTypeCharging, types.ExpenseTypeMaintenance,
		types.ExpenseTypeRepair, types.ExpenseTypeInsurance, types.ExpenseTypeRegistration,
		types.ExpenseTypeCleaning, types.ExpenseTypeParking, types.ExpenseTypeToll,
	} {
		if t.Is(known) {
			return string(known)
		}
	}
	return string(types.ExpenseTypeOther)
}

func highCostAreas(expenses []types.ExpenseRecord, f costFacts) types.HighCostAreas {
	areas := types.HighCostAreas{
		ByType:          []types.ExpenseCategoryBreakdown{},
		TopProviders:    []types.ProviderSpend{},
		RepairCount:     f.repairCount,
		FrequentRepairs: f.repairCount >= frequentRepairCount,
	}

	for t, amt := range f.byType {
		n := f.countByType[t]
		areas.ByType = append(areas.ByType, types.ExpenseCategoryBreakdown{
			Type:       types.ExpenseType(t),
			Amount:     round2(amt),
			Count:      n,
			Average:    round2(safeDiv(amt, float64(n))),
			Percentage: round2(safeDiv(amt, f.total) * 100),
		})
	}
	sort.Slice(areas.ByType, func(i, j int) bool {
		if areas.ByType[i].Amount != areas.ByType[j].Amount {
			return areas.ByType[i].Amount > areas.ByType[j].Amount
		}
		return areas.ByType[i].Type < areas.ByType[j].Type
	})

	providers := make(map[string]*types.ProviderSpend)
	for _, e := range expenses {
		if !e.Type.IsServiceWork() || !isFinite(e.Amount) {
			continue
		}
		name := ExtractProviderName(e.Description, e.Notes)
		p, ok := providers[name]
		if !ok {
			p = &types.ProviderSpend{Name: name}
			providers[name] = p
		}
		p.Amount += e.Amount
		p.Count++
	}
	for _, p := range providers {
		areas.TopProviders = append(areas.TopProviders, types.ProviderSpend{
			Name:    p.Name,
			Amount:  round2(p.Amount),
			Count:   p.Count,
			Average: round2(safeDiv(p.Amount, float64(p.Count))),
		})
	}
	sort.Slice(areas.TopProviders, func(i, j int) bool {
		if areas.TopProviders[i].Amount != areas.TopProviders[j].Amount {
			return areas.TopProviders[i].Amount > areas.TopProviders[j].Amount
		}
		return areas.TopProviders[i].Name < areas.TopProviders[j].Name
	})
	if len(areas.TopProviders) > topProviderCount {
		areas.TopProviders = areas.TopProviders[:topProviderCount]
	}
	return areas
}

// BenchmarkStatus labels actual against reference by ±10% and ±30% bands.
func BenchmarkStatus(actual, reference float64) string {
	if actual == 0 || reference == 0 {
		return "No Data"
	}
	diff := (actual - reference) / reference
	switch {
	case diff < -0.3:
		return "Well Below Average"
	case diff < -0.1:
		return "Below Average"
	case diff <= 0.1:
		return "At Average"
	case diff <= 0.3:
		return "Above Average"
	default:
		return "Well Above Average"
	}
}

// VehicleAgeReferenceCostPerKm is the expected cost per km for a fleet of the given age.
func VehicleAgeReferenceCostPerKm(ageYears float64) float64 {
	switch {
	case ageYears < 3:
		return 0.20
	case ageYears < 7:
		return 0.28
	default:
		return 0.35
	}
}

func costBenchmarks(f costFacts) types.CostBenchmarks {
	perTrip := safeDiv(f.total, float64(f.trips))
	b := types.CostBenchmarks{
		CostPerKilometer: types.Benchmark{
			Actual:    round2(f.costPerKm),
			Reference: referenceCostPerKm,
			Status:    BenchmarkStatus(f.costPerKm, referenceCostPerKm),
		},
		CostPerTrip: types.Benchmark{
			Actual:    round2(perTrip),
			Reference: referenceCostPerTrip,
			Status:    BenchmarkStatus(perTrip, referenceCostPerTrip),
		},
	}
	if f.hasVehicles {
		ref := VehicleAgeReferenceCostPerKm(f.avgAge)
		b.VehicleAdjusted = &types.Benchmark{
			Actual:    round2(f.costPerKm),
			Reference: ref,
			Status:    BenchmarkStatus(f.costPerKm, ref),
		}
		b.AverageVehicleAgeYears = round(f.avgAge, 1)
	}
	return b
}
