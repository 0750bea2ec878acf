package types

import "time"

type CostSummary struct {
	PeriodStart      time.Time `json:"periodStart"`
	PeriodEnd        time.Time `json:"periodEnd"`
	TotalExpenses    float64   `json:"totalExpenses"`
	ExpenseCount     int       `json:"expenseCount"`
	TotalDistance    float64   `json:"totalDistance"`
	TripCount        int       `json:"tripCount"`
	MemberCount      int       `json:"memberCount"`
	TotalBookedHours float64   `json:"totalBookedHours"`
}

type EfficiencyMetrics struct {
	CostPerKilometer float64 `json:"costPerKilometer"`
	CostPerTrip      float64 `json:"costPerTrip"`
	CostPerMember    float64 `json:"costPerMember"`
	CostPerHour      float64 `json:"costPerHour"`
}

type ExpenseCategoryBreakdown struct {
	Type       ExpenseType `json:"type"`
	Amount     float64     `json:"amount"`
	Count      int         `json:"count"`
	Average    float64     `json:"average"`
	Percentage float64     `json:"percentage"`
}

type ProviderSpend struct {
	Name    string  `json:"name"`
	Amount  float64 `json:"amount"`
	Count   int     `json:"count"`
	Average float64 `json:"average"`
}

type HighCostAreas struct {
	ByType          []ExpenseCategoryBreakdown `json:"byType"`
	TopProviders    []ProviderSpend            `json:"topProviders"`
	RepairCount     int                        `json:"repairCount"`
	FrequentRepairs bool                       `json:"frequentRepairs"`
}

// Benchmark compares an actual metric against a reference value.
type Benchmark struct {
	Actual    float64 `json:"actual"`
	Reference float64 `json:"reference"`
	Status    string  `json:"status"`
}

type CostBenchmarks struct {
	CostPerKilometer       Benchmark  `json:"costPerKilometer"`
	CostPerTrip            Benchmark  `json:"costPerTrip"`
	VehicleAdjusted        *Benchmark `json:"vehicleAdjusted,omitempty"`
	AverageVehicleAgeYears float64    `json:"averageVehicleAgeYears,omitempty"`
}

type CostRecommendation struct {
	Title            string  `json:"title"`
	Category         string  `json:"category"`
	Description      string  `json:"description"`
	EstimatedSavings float64 `json:"estimatedSavings"`
	Priority         string  `json:"priority"`
}

// UpcomingExpense is a recurring cost expected within the prediction horizon.
type UpcomingExpense struct {
	Type            ExpenseType `json:"type"`
	ExpectedDate    *time.Time  `json:"expectedDate,omitempty"`
	EstimatedAmount float64     `json:"estimatedAmount"`
	Description     string      `json:"description"`
}

type CostPredictions struct {
	AverageMonthlySpend float64           `json:"averageMonthlySpend"`
	TrendFactor         float64           `json:"trendFactor"`
	NextMonth           float64           `json:"nextMonth"`
	NextQuarter         float64           `json:"nextQuarter"`
	Upcoming            []UpcomingExpense `json:"upcoming"`
}

type CostAlert struct {
	Type     string  `json:"type"`
	Severity string  `json:"severity"`
	Message  string  `json:"message"`
	Amount   float64 `json:"amount"`
}

type ROICalculation struct {
	Scenario       string             `json:"scenario"`
	Description    string             `json:"description"`
	Investment     float64            `json:"investment"`
	AnnualSavings  float64            `json:"annualSavings"`
	PaybackMonths  float64            `json:"paybackMonths"`
	ROIPercentage  float64            `json:"roiPercentage"`
	Recommended    bool               `json:"recommended"`
	Recommendation string             `json:"recommendation"`
	Details        map[string]float64 `json:"details,omitempty"`
}

// CostOptimization is the full cost report for a group.
type CostOptimization struct {
	GroupID           string               `json:"groupId"`
	InsufficientData  bool                 `json:"insufficientData"`
	Summary           CostSummary          `json:"summary"`
	HighCostAreas     HighCostAreas        `json:"highCostAreas"`
	EfficiencyMetrics EfficiencyMetrics    `json:"efficiencyMetrics"`
	Benchmarks        CostBenchmarks       `json:"benchmarks"`
	Recommendations   []CostRecommendation `json:"recommendations"`
	Predictions       CostPredictions      `json:"predictions"`
	Alerts            []CostAlert          `json:"alerts"`
	ROICalculations   []ROICalculation     `json:"roiCalculations"`
}
