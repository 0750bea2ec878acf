package analytics

import (
	"fmt"
	"math"
	"sort"

	"github.com/coshare/coshare-backend/types"
)

const (
	replacementCost         = 25000.0
	replacementRepairShare  = 0.3
	replacementMinAnnual    = 2000.0
	vehicleServiceLifeYears = 12.0
	defaultRemainingYears   = 5.0
	preventiveInvestment    = 500.0
	preventiveReduction     = 0.3
	leaseMarkup             = 1.2

	priorityHigh   = "High"
	priorityMedium = "Medium"
	priorityLow    = "Low"
)

func priorityFor(savings float64) string {
	switch {
	case savings >= 500:
		return priorityHigh
	case savings >= 100:
		return priorityMedium
	default:
		return priorityLow
	}
}

func newRecommendation(title, category, description string, savings float64) types.CostRecommendation {
	return types.CostRecommendation{
		Title:            title,
		Category:         category,
		Description:      description,
		EstimatedSavings: round2(savings),
		Priority:         priorityFor(savings),
	}
}

func costRecommendations(areas types.HighCostAreas, f costFacts) []types.CostRecommendation {
	recs := []types.CostRecommendation{}

	serviceAvg := safeDiv(f.serviceTotal, float64(f.serviceCount))
	for _, p := range areas.TopProviders {
		if p.Name == UnknownProvider || p.Count < 2 {
			continue
		}
		if p.Average > serviceAvg {
			recs = append(recs, newRecommendation(
				"Compare Service Providers",
				string(types.ExpenseTypeMaintenance),
				fmt.Sprintf("%s charges %.2f per visit on average, above the group's service average of %.2f. Get quotes from other providers.", p.Name, p.Average, serviceAvg),
				0.15*p.Average*float64(p.Count),
			))
		}
		break
	}

	if f.repairCount >= frequentRepairCount {
		recs = append(recs, newRecommendation(
			"Schedule Preventive Maintenance",
			string(types.ExpenseTypeRepair),
			fmt.Sprintf("%d repairs were recorded in this period. Regular servicing usually prevents a large share of them.", f.repairCount),
			0.3*f.repairTotal,
		))
	}

	if ins := f.byType[string(types.ExpenseTypeInsurance)]; ins > 0 {
		recs = append(recs, newRecommendation(
			"Review Insurance Plan",
			string(types.ExpenseTypeInsurance),
			"Compare shared-vehicle insurance quotes and coverage levels at renewal.",
			0.15*ins,
		))
	}

	cleaning := f.byType[string(types.ExpenseTypeCleaning)]
	if n := f.countByType[string(types.ExpenseTypeCleaning)]; n > 0 && cleaning/float64(n) > 50 {
		recs = append(recs, newRecommendation(
			"Reduce Cleaning Costs",
			string(types.ExpenseTypeCleaning),
			"Cleaning averages more than 50 per visit. Agree on a cleaning rota or a cheaper subscription service.",
			0.25*cleaning,
		))
	}

	if energy := f.byType[string(types.ExpenseTypeFuel)] + f.byType[string(types.ExpenseTypeCharging)]; energy > 0 {
		recs = append(recs, newRecommendation(
			"Optimize Fuel and Charging",
			string(types.ExpenseTypeFuel),
			"Charge off-peak, use loyalty programs and share routes to cut energy spend.",
			0.25*energy,
		))
	}

	if f.distance > 0 && f.costPerKm > referenceCostPerKm*1.2 {
		recs = append(recs, newRecommendation(
			"Lower Overall Running Costs",
			"General",
			fmt.Sprintf("Cost per km is %.2f against a reference of %.2f.", f.costPerKm, referenceCostPerKm),
			0.15*f.total,
		))
	}

	sort.SliceStable(recs, func(i, j int) bool {
		return recs[i].EstimatedSavings > recs[j].EstimatedSavings
	})
	return recs
}

func monthlyValues(monthly []monthTotal) []float64 {
	out := make([]float64, len(monthly))
	for i, m := range monthly {
		out[i] = m.total
	}
	return out
}

// CostTrendFactor compares the mean of the latest three months with the three
// months before them. It is 0 without an earlier window.
func CostTrendFactor(totals []float64) float64 {
	n := len(totals)
	if n < 2 {
		return 0
	}
	recentLen := 3
	if n < 6 {
		recentLen = n / 2
		if n-recentLen > 3 {
			recentLen = n - 3
		}
	}
	recent := totals[n-recentLen:]
	olderStart := n - recentLen - 3
	if olderStart < 0 {
		olderStart = 0
	}
	older := totals[olderStart : n-recentLen]
	return safeDiv(mean(recent)-mean(older), mean(older))
}

func costPredictions(expenses []types.ExpenseRecord, f costFacts) types.CostPredictions {
	totals := monthlyValues(f.monthly)
	avg := mean(totals)
	trend := CostTrendFactor(totals)
	nextMonth := avg * (1 + trend*0.5)

	p := types.CostPredictions{
		AverageMonthlySpend: round2(avg),
		TrendFactor:         round(trend, 4),
		NextMonth:           round2(nextMonth),
		NextQuarter:         round2(nextMonth * 3),
		Upcoming:            []types.UpcomingExpense{},
	}

	horizon := f.now.AddDate(0, renewalHorizon, 0)
	for _, t := range []types.ExpenseType{types.ExpenseTypeInsurance, types.ExpenseTypeRegistration} {
		var last *types.ExpenseRecord
		for i := range expenses {
			e := &expenses[i]
			if e.Type.Is(t) && (last == nil || e.DateIncurred.After(last.DateIncurred)) {
				last = e
			}
		}
		if last == nil {
			continue
		}
		due := last.DateIncurred.AddDate(1, 0, 0)
		if due.After(horizon) {
			continue
		}
		p.Upcoming = append(p.Upcoming, types.UpcomingExpense{
			Type:            t,
			ExpectedDate:    &due,
			EstimatedAmount: round2(last.Amount),
			Description:     fmt.Sprintf("Annual %s renewal due %s", string(t), due.Format("2006-01-02")),
		})
	}

	if f.distance > 0 && f.serviceTotal > 0 {
		p.Upcoming = append(p.Upcoming, types.UpcomingExpense{
			Type:            types.ExpenseTypeMaintenance,
			EstimatedAmount: round2(f.serviceTotal / f.distance * maintenanceInterval),
			Description:     "Estimated maintenance spend for the next 10,000 km",
		})
	}
	return p
}

func costAlerts(expenses []types.ExpenseRecord, f costFacts) []types.CostAlert {
	alerts := []types.CostAlert{}
	totals := monthlyValues(f.monthly)
	if len(totals) == 0 {
		return alerts
	}

	latest := totals[len(totals)-1]
	avg := mean(totals)
	if avg > 0 && latest > avg*1.2 {
		severity := priorityMedium
		if latest > avg*1.5 {
			severity = priorityHigh
		}
		alerts = append(alerts, types.CostAlert{
			Type:     "budget_exceeded",
			Severity: severity,
			Message:  fmt.Sprintf("Spending this month is %.0f%% above the monthly average.", (latest/avg-1)*100),
			Amount:   round2(latest),
		})
	}

	if len(totals) >= 3 {
		prior := totals[:len(totals)-1]
		m := mean(prior)
		if latest > m+2*popStdDev(prior) && latest > m {
			alerts = append(alerts, types.CostAlert{
				Type:     "unusual_spike",
				Severity: priorityHigh,
				Message:  "The latest month's spending is far outside the usual range.",
				Amount:   round2(latest),
			})
		}
	}

	buckets := make(map[float64][]float64)
	for _, e := range expenses {
		if !e.Type.IsServiceWork() || !isFinite(e.Amount) || e.Amount <= 0 {
			continue
		}
		key := math.Round(e.Amount/10) * 10
		buckets[key] = append(buckets[key], e.Amount)
	}
	keys := make([]float64, 0, len(buckets))
	for k := range buckets {
		keys = append(keys, k)
	}
	sort.Float64s(keys)
	for _, k := range keys {
		amounts := buckets[k]
		if len(amounts) < 3 {
			continue
		}
		m := mean(amounts)
		if popVariance(amounts) < 0.1*m {
			alerts = append(alerts, types.CostAlert{
				Type:     "recurring_overcharge",
				Severity: priorityMedium,
				Message:  fmt.Sprintf("%d service charges of about %.0f were recorded. Check whether they are duplicate or avoidable.", len(amounts), k),
				Amount:   round2(m * float64(len(amounts))),
			})
		}
	}
	return alerts
}

func roiCalculations(f costFacts) []types.ROICalculation {
	out := []types.ROICalculation{}
	months := float64(f.monthsSpan)
	annualRepair := f.repairTotal * 12 / months

	remaining := defaultRemainingYears
	if f.hasVehicles {
		remaining = math.Max(1, vehicleServiceLifeYears-f.avgAge)
	}

	if projected := annualRepair * remaining; annualRepair > replacementMinAnnual && projected > replacementCost*replacementRepairShare {
		savings := 0.8 * annualRepair
		roi := (savings*remaining - replacementCost) / replacementCost * 100
		calc := types.ROICalculation{
			Scenario:      "replace_vs_repair",
			Description:   "Replace the vehicle instead of continuing to pay for repairs",
			Investment:    replacementCost,
			AnnualSavings: round2(savings),
			PaybackMonths: round(safeDiv(replacementCost, savings)*12, 1),
			ROIPercentage: round2(roi),
			Recommended:   roi > 0,
			Details: map[string]float64{
				"annualRepairCost":    round2(annualRepair),
				"remainingYears":      round(remaining, 1),
				"projectedRepairCost": round2(projected),
			},
		}
		calc.Recommendation = "Keep repairing for now, replacement does not pay back over the remaining life."
		if calc.Recommended {
			calc.Recommendation = "Replacement pays back within the vehicle's remaining life. Start pricing a replacement."
		}
		out = append(out, calc)
	}

	if f.repairCount >= frequentRepairCount {
		savings := preventiveReduction * annualRepair
		calc := types.ROICalculation{
			Scenario:      "preventive_maintenance",
			Description:   "Annual preventive maintenance program",
			Investment:    preventiveInvestment,
			AnnualSavings: round2(savings),
			PaybackMonths: round(safeDiv(preventiveInvestment, savings)*12, 1),
			ROIPercentage: round2((savings - preventiveInvestment) / preventiveInvestment * 100),
			Recommended:   savings > preventiveInvestment,
			Details: map[string]float64{
				"annualRepairCost": round2(annualRepair),
				"repairCount":      float64(f.repairCount),
			},
		}
		calc.Recommendation = "The program costs more than the repairs it is expected to prevent."
		if calc.Recommended {
			calc.Recommendation = "Enroll in a preventive maintenance program."
		}
		out = append(out, calc)
	}

	if f.bookedHours > 0 {
		annualOwn := f.total * 12 / months
		annualLease := annualOwn * leaseMarkup
		annualHours := f.bookedHours * 12 / months
		out = append(out, types.ROICalculation{
			Scenario:       "lease_vs_own",
			Description:    "Compare owning the shared vehicle with an equivalent lease",
			AnnualSavings:  round2(annualLease - annualOwn),
			ROIPercentage:  round2(safeDiv(annualLease-annualOwn, annualOwn) * 100),
			Recommended:    false,
			Recommendation: "Owning remains cheaper than an equivalent lease.",
			Details: map[string]float64{
				"annualOwnCost":      round2(annualOwn),
				"annualLeaseCost":    round2(annualLease),
				"ownCostPerHour":     round2(safeDiv(annualOwn, annualHours)),
				"leaseCostPerHour":   round2(safeDiv(annualLease, annualHours)),
				"ownCostPerMember":   round2(safeDiv(annualOwn, float64(f.members))),
				"leaseCostPerMember": round2(safeDiv(annualLease, float64(f.members))),
			},
		})
	}
	return out
}
