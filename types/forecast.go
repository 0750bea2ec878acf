package types

import "time"

// PeakHour is a heuristic estimate of a busy hour of the day.
type PeakHour struct {
	Hour         int     `json:"hour"`
	Category     string  `json:"category"`
	RelativeLoad float64 `json:"relativeLoad"`
	Confidence   float64 `json:"confidence"`
}

// DailyForecast is the expected usage for one future day.
type DailyForecast struct {
	Date          time.Time `json:"date"`
	DayOfWeek     int       `json:"dayOfWeek"`
	ExpectedHours float64   `json:"expectedHours"`
	Confidence    float64   `json:"confidence"`
}

// LikelihoodSlot is the likelihood that a member uses the vehicle at a weekday/hour.
type LikelihoodSlot struct {
	DayOfWeek  int     `json:"dayOfWeek"`
	Hour       int     `json:"hour"`
	Likelihood float64 `json:"likelihood"`
}

type MemberLikelihood struct {
	UserID     string           `json:"userId"`
	UsageShare float64          `json:"usageShare"`
	Slots      []LikelihoodSlot `json:"slots"`
}

type ForecastInsight struct {
	Type    string `json:"type"`
	Message string `json:"message"`
}

// UsageAnomaly flags a sudden change between consecutive usage days.
type UsageAnomaly struct {
	Date          time.Time `json:"date"`
	Type          string    `json:"type"`
	Description   string    `json:"description"`
	Hours         float64   `json:"hours"`
	PreviousHours float64   `json:"previousHours"`
	Factor        float64   `json:"factor"`
}

// Bottleneck is a forecast day where demand is expected to exceed normal capacity.
type Bottleneck struct {
	Date          time.Time `json:"date"`
	DayOfWeek     int       `json:"dayOfWeek"`
	ExpectedHours float64   `json:"expectedHours"`
	Threshold     float64   `json:"threshold"`
	Message       string    `json:"message"`
}

// UsageForecast is the full forecast for a group.
type UsageForecast struct {
	GroupID             string             `json:"groupId"`
	InsufficientHistory bool               `json:"insufficientHistory"`
	HistoryDays         int                `json:"historyDays"`
	TrendPercentage     float64            `json:"trendPercentage"`
	DayOfWeekAverages   [7]float64         `json:"dayOfWeekAverages"`
	PeakHours           []PeakHour         `json:"peakHours"`
	Next30Days          []DailyForecast    `json:"next30Days"`
	MemberLikelihoods   []MemberLikelihood `json:"memberLikelihoods"`
	Insights            []ForecastInsight  `json:"insights"`
	Anomalies           []UsageAnomaly     `json:"anomalies"`
	Bottlenecks         []Bottleneck       `json:"bottlenecks"`
	Recommendations     []string           `json:"recommendations"`
}
