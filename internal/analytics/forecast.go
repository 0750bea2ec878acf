package analytics

import (
	"fmt"
	"math"
	"time"

	"github.com/coshare/coshare-backend/types"
)

const (
	// DefaultForecastLookback is how far back usage history is loaded.
	DefaultForecastLookback = 120 * 24 * time.Hour

	minHistoryDays  = 30
	forecastDays    = 30
	trendWindowDays = 30

	spikeFactor      = 2.5
	dropFactor       = 0.4
	bottleneckFactor = 1.5
)

var (
	commuteHours    = []int{8, 9, 18, 19}
	leisureHours    = []int{14}
	likelihoodHours = []int{8, 9, 14, 18, 19}
)

const (
	recBookAhead      = "Book weekday commute slots a few days in advance, they fill up first."
	recOffPeak        = "Plan longer trips on weekends or off-peak hours to avoid conflicts."
	recCapacity       = "Usage is growing quickly. Consider adding a vehicle or expanding the group's booking capacity."
	recCoordinate     = "High demand is expected on some upcoming days. Coordinate those bookings in the group calendar early."
	recMoreHistory    = "Keep logging trips. A forecast needs at least 30 days of usage history."
	anomalySpike      = "spike"
	anomalyDrop       = "drop"
	insightSeasonal   = "seasonal"
	insightPattern    = "pattern"
	insightTrend      = "trend"
	categoryCommute   = "commute"
	categoryLeisure   = "leisure"
	confidenceCommute = 0.6
	confidenceLeisure = 0.5
)

// ForecastInput is the usage history a forecast runs over.
type ForecastInput struct {
	GroupID     string
	GroupExists bool
	Records     []types.UsageRecord
}

// UsageForecaster projects group usage over the next 30 days.
type UsageForecaster struct {
	now func() time.Time
}

func NewUsageForecaster() *UsageForecaster {
	return &UsageForecaster{now: time.Now}
}

// Forecast builds the usage forecast. It returns ErrGroupNotFound when the group
// is unknown and has no usage history.
func (f *UsageForecaster) Forecast(in ForecastInput) (*types.UsageForecast, error) {
	if !in.GroupExists && len(in.Records) == 0 {
		return nil, ErrGroupNotFound
	}

	historyDays := HistorySpanDays(in.Records)
	result := &types.UsageForecast{
		GroupID:           in.GroupID,
		HistoryDays:       historyDays,
		PeakHours:         []types.PeakHour{},
		Next30Days:        []types.DailyForecast{},
		MemberLikelihoods: []types.MemberLikelihood{},
		Insights:          []types.ForecastInsight{},
		Anomalies:         []types.UsageAnomaly{},
		Bottlenecks:       []types.Bottleneck{},
	}
	if historyDays < minHistoryDays {
		result.InsufficientHistory = true
		result.Recommendations = []string{recMoreHistory}
		return result, nil
	}

	series := BuildDailySeries(in.Records)
	today := startOfDay(f.now().UTC())

	trend := TrendPercentage(series, today)
	dowAvg := DayOfWeekAverages(series)
	overall := overallMean(series)

	result.TrendPercentage = round2(trend)
	for i := range dowAvg {
		result.DayOfWeekAverages[i] = round2(dowAvg[i])
	}
	result.PeakHours = peakHours(dowAvg, overall)
	result.Next30Days = forecastNextDays(today, dowAvg, overall, trend, historyDays)
	result.MemberLikelihoods = memberLikelihoods(in.Records)
	result.Insights = forecastInsights(series, dowAvg, trend)
	result.Anomalies = DetectAnomalies(series)
	result.Bottlenecks = predictBottlenecks(result.Next30Days, overall)
	result.Recommendations = forecastRecommendations(trend, len(result.Bottlenecks) > 0)

	return result, nil
}

// HistorySpanDays is the number of whole days between the earliest record start
// and the latest record end.
func HistorySpanDays(records []types.UsageRecord) int {
	if len(records) == 0 {
		return 0
	}
	minStart, maxEnd := records[0].PeriodStart, records[0].PeriodEnd
	for _, r := range records[1:] {
		if r.PeriodStart.Before(minStart) {
			minStart = r.PeriodStart
		}
		if r.PeriodEnd.After(maxEnd) {
			maxEnd = r.PeriodEnd
		}
	}
	if !maxEnd.After(minStart) {
		return 0
	}
	return int(maxEnd.Sub(minStart).Hours() / 24)
}

// BuildDailySeries spreads each record's hours evenly over the UTC calendar days
// it covers and returns one bucket per day from the first to the last covered
// day, including days with no usage.
func BuildDailySeries(records []types.UsageRecord) []types.UsageDayBucket {
	if len(records) == 0 {
		return []types.UsageDayBucket{}
	}

	hoursByDay := make(map[time.Time]float64)
	var first, last time.Time
	for i, r := range records {
		days := coveredDays(r.PeriodStart.UTC(), r.PeriodEnd.UTC())
		if i == 0 || days[0].Before(first) {
			first = days[0]
		}
		if i == 0 || days[len(days)-1].After(last) {
			last = days[len(days)-1]
		}
		if !isFinite(r.TotalUsageHours) || r.TotalUsageHours <= 0 {
			continue
		}
		per := r.TotalUsageHours / float64(len(days))
		for _, d := range days {
			hoursByDay[d] += per
		}
	}

	series := make([]types.UsageDayBucket, 0, int(last.Sub(first).Hours()/24)+1)
	for d := first; !d.After(last); d = d.AddDate(0, 0, 1) {
		series = append(series, types.UsageDayBucket{Date: d, Hours: hoursByDay[d]})
	}
	return series
}

// coveredDays lists the day starts touched by [start, end). An end at exactly
// midnight does not cover that day.
func coveredDays(start, end time.Time) []time.Time {
	first := startOfDay(start)
	if !end.After(start) {
		return []time.Time{first}
	}
	lastInstant := end.Add(-time.Nanosecond)
	lastDay := startOfDay(lastInstant)

	var days []time.Time
	for d := first; !d.After(lastDay); d = d.AddDate(0, 0, 1) {
		days = append(days, d)
	}
	return days
}

// TrendPercentage compares total usage over the 30 days before today with the
// 30 days before that. It is 0 when the earlier window has no usage.
func TrendPercentage(series []types.UsageDayBucket, today time.Time) float64 {
	lastFrom := today.AddDate(0, 0, -trendWindowDays)
	prevFrom := today.AddDate(0, 0, -2*trendWindowDays)

	var last, prev float64
	for _, b := range series {
		switch {
		case !b.Date.Before(lastFrom) && b.Date.Before(today):
			last += b.Hours
		case !b.Date.Before(prevFrom) && b.Date.Before(lastFrom):
			prev += b.Hours
		}
	}
	return safeDiv(last-prev, prev) * 100
}

// DayOfWeekAverages is the mean daily usage per weekday, Sunday first.
func DayOfWeekAverages(series []types.UsageDayBucket) [7]float64 {
	var sums [7]float64
	var counts [7]int
	for _, b := range series {
		wd := int(b.Date.Weekday())
		sums[wd] += b.Hours
		counts[wd]++
	}
	var avg [7]float64
	for i := range avg {
		avg[i] = safeDiv(sums[i], float64(counts[i]))
	}
	return avg
}

func overallMean(series []types.UsageDayBucket) float64 {
	hours := make([]float64, len(series))
	for i, b := range series {
		hours[i] = b.Hours
	}
	return mean(hours)
}

func peakHours(dowAvg [7]float64, overall float64) []types.PeakHour {
	weekday := mean(dowAvg[1:6])
	weekend := mean([]float64{dowAvg[0], dowAvg[6]})

	commuteWeight, leisureWeight := 1.0, 0.5
	if weekday < weekend {
		commuteWeight, leisureWeight = 0.5, 1.0
	}

	var out []types.PeakHour
	for _, h := range commuteHours {
		out = append(out, types.PeakHour{
			Hour:         h,
			Category:     categoryCommute,
			RelativeLoad: round2(math.Min(1, safeDiv(weekday, overall)*commuteWeight)),
			Confidence:   confidenceCommute,
		})
	}
	for _, h := range leisureHours {
		out = append(out, types.PeakHour{
			Hour:         h,
			Category:     categoryLeisure,
			RelativeLoad: round2(math.Min(1, safeDiv(weekend, overall)*leisureWeight)),
			Confidence:   confidenceLeisure,
		})
	}
	return out
}

func forecastNextDays(today time.Time, dowAvg [7]float64, overall, trend float64, historyDays int) []types.DailyForecast {
	factor := 1 + clamp(trend/100, -0.5, 0.5)
	confidence := round2(clamp(0.4+float64(historyDays)/180, 0.4, 0.9))

	out := make([]types.DailyForecast, 0, forecastDays)
	for i := 1; i <= forecastDays; i++ {
		day := today.AddDate(0, 0, i)
		dow := int(day.Weekday())
		base := dowAvg[dow]
		if base == 0 {
			base = overall
		}
		out = append(out, types.DailyForecast{
			Date:          day,
			DayOfWeek:     dow,
			ExpectedHours: round2(base * factor),
			Confidence:    confidence,
		})
	}
	return out
}

func memberLikelihoods(records []types.UsageRecord) []types.MemberLikelihood {
	out := []types.MemberLikelihood{}
	for _, m := range NormalizeUsage(AggregateMemberUsage(records)) {
		if m.UsageShare <= 0 {
			continue
		}
		ml := types.MemberLikelihood{UserID: m.UserID, UsageShare: round(m.UsageShare, 4)}
		for dow := 0; dow < 7; dow++ {
			bonus := 0.0
			if dow == int(time.Sunday) || dow == int(time.Saturday) {
				bonus = 0.1
			}
			for _, h := range likelihoodHours {
				ml.Slots = append(ml.Slots, types.LikelihoodSlot{
					DayOfWeek:  dow,
					Hour:       h,
					Likelihood: round2(math.Min(1, 0.5*m.UsageShare+bonus)),
				})
			}
		}
		out = append(out, ml)
	}
	return out
}

func forecastInsights(series []types.UsageDayBucket, dowAvg [7]float64, trend float64) []types.ForecastInsight {
	insights := []types.ForecastInsight{}

	type month struct {
		key   time.Time
		sum   float64
		count int
	}
	var months []*month
	for _, b := range series {
		key := startOfMonth(b.Date)
		if len(months) == 0 || !months[len(months)-1].key.Equal(key) {
			months = append(months, &month{key: key})
		}
		m := months[len(months)-1]
		m.sum += b.Hours
		m.count++
	}
	if len(months) >= 2 {
		first, last := months[0], months[len(months)-1]
		firstAvg := safeDiv(first.sum, float64(first.count))
		lastAvg := safeDiv(last.sum, float64(last.count))
		if firstAvg > 0 {
			change := (lastAvg - firstAvg) / firstAvg * 100
			switch {
			case lastAvg > firstAvg*1.2:
				insights = append(insights, types.ForecastInsight{
					Type:    insightSeasonal,
					Message: fmt.Sprintf("Average daily usage rose %.0f%% from %s to %s.", change, first.key.Format("January"), last.key.Format("January")),
				})
			case lastAvg < firstAvg*0.8:
				insights = append(insights, types.ForecastInsight{
					Type:    insightSeasonal,
					Message: fmt.Sprintf("Average daily usage fell %.0f%% from %s to %s.", -change, first.key.Format("January"), last.key.Format("January")),
				})
			}
		}
	}

	busiest := 0
	for i := 1; i < 7; i++ {
		if dowAvg[i] > dowAvg[busiest] {
			busiest = i
		}
	}
	if dowAvg[busiest] > 0 {
		insights = append(insights, types.ForecastInsight{
			Type:    insightPattern,
			Message: fmt.Sprintf("%s is the busiest day with %.1f hours of use on average.", time.Weekday(busiest), dowAvg[busiest]),
		})
	}

	if math.Abs(trend) >= 10 {
		dir := "increased"
		if trend < 0 {
			dir = "decreased"
		}
		insights = append(insights, types.ForecastInsight{
			Type:    insightTrend,
			Message: fmt.Sprintf("Usage %s %.0f%% over the last 30 days compared to the 30 days before.", dir, math.Abs(trend)),
		})
	}
	return insights
}

// DetectAnomalies walks the daily series in order and flags sudden spikes and
// drops relative to the day before. Days following a zero day are not compared.
func DetectAnomalies(series []types.UsageDayBucket) []types.UsageAnomaly {
	anomalies := []types.UsageAnomaly{}
	for i := 1; i < len(series); i++ {
		prev, cur := series[i-1], series[i]
		if prev.Hours <= 0 {
			continue
		}
		factor := cur.Hours / prev.Hours
		var kind, description string
		switch {
		case cur.Hours > prev.Hours*spikeFactor:
			kind, description = anomalySpike, "Sudden usage spike"
		case cur.Hours < prev.Hours*dropFactor:
			kind, description = anomalyDrop, "Sudden usage drop"
		default:
			continue
		}
		anomalies = append(anomalies, types.UsageAnomaly{
			Date:          cur.Date,
			Type:          kind,
			Description:   description,
			Hours:         round2(cur.Hours),
			PreviousHours: round2(prev.Hours),
			Factor:        round2(factor),
		})
	}
	return anomalies
}

func predictBottlenecks(days []types.DailyForecast, overall float64) []types.Bottleneck {
	out := []types.Bottleneck{}
	threshold := overall * bottleneckFactor
	if threshold <= 0 {
		return out
	}
	for _, d := range days {
		if d.ExpectedHours > threshold {
			out = append(out, types.Bottleneck{
				Date:          d.Date,
				DayOfWeek:     d.DayOfWeek,
				ExpectedHours: d.ExpectedHours,
				Threshold:     round2(threshold),
				Message:       fmt.Sprintf("Expected demand on %s is well above the daily average.", d.Date.Format("Mon Jan 2")),
			})
		}
	}
	return out
}

func forecastRecommendations(trend float64, hasBottlenecks bool) []string {
	recs := []string{recBookAhead, recOffPeak}
	if trend > 30 {
		recs = append(recs, recCapacity)
	}
	if hasBottlenecks {
		recs = append(recs, recCoordinate)
	}
	return recs
}
