package analytics

import (
	"context"
	"errors"
	"math"
	"sort"
	"time"

	"github.com/coshare/coshare-backend/internal/store"
	"github.com/coshare/coshare-backend/logger"
	"github.com/coshare/coshare-backend/types"
)

const (
	// DefaultFairnessWindow is used when a request names no period.
	DefaultFairnessWindow = 90 * 24 * time.Hour

	trendMonths = 6

	severeOverThreshold  = 150.0
	severeUnderThreshold = 50.0
	lowGroupThreshold    = 70.0
)

const (
	recOverUtilizers  = "Members using more than their ownership share should consider booking fewer peak-time slots or increasing their ownership stake."
	recUnderUtilizers = "Members using less than their ownership share should be given booking priority to bring usage in line with ownership."
	recGroupLow       = "Group fairness is low. Review the booking policy or rebalance ownership shares to match actual usage."
	recBalanced       = "Usage is well balanced with ownership shares. Keep the current booking arrangement."
)

// FairnessInput is the data a fairness calculation runs over.
type FairnessInput struct {
	GroupID     string
	GroupExists bool
	PeriodStart time.Time
	PeriodEnd   time.Time
	// Records are the usage rows inside [PeriodStart, PeriodEnd].
	Records []types.UsageRecord
	// History covers at least the trend months and is used to rebuild
	// missing trend points.
	History []types.UsageRecord
}

// FairnessCalculator scores how each member's usage compares to ownership.
type FairnessCalculator struct {
	snapshots store.TrendSnapshotStore
	now       func() time.Time
}

// NewFairnessCalculator creates a calculator. A nil snapshot store disables
// trend persistence and lookups.
func NewFairnessCalculator(snapshots store.TrendSnapshotStore) *FairnessCalculator {
	return &FairnessCalculator{snapshots: snapshots, now: time.Now}
}

// Calculate computes the fairness result for the input window. It returns
// ErrGroupNotFound when the group is unknown and has no usage at all.
func (c *FairnessCalculator) Calculate(ctx context.Context, in FairnessInput) (*types.FairnessResult, error) {
	if !in.GroupExists && len(in.Records) == 0 && len(in.History) == 0 {
		return nil, ErrGroupNotFound
	}

	end := in.PeriodEnd
	if end.IsZero() {
		end = c.now()
	}
	start := in.PeriodStart
	if start.IsZero() {
		start = end.Add(-DefaultFairnessWindow)
	}

	members := ScoreMembers(NormalizeUsage(AggregateMemberUsage(in.Records)))
	groupScore := GroupFairnessScore(members)

	usage := make([]float64, len(members))
	diffs := make([]float64, len(members))
	for i, m := range members {
		usage[i] = m.UsagePercentage / 100
		diffs[i] = m.UsagePercentage - m.OwnershipPercentage
	}

	alerts := buildFairnessAlerts(members, groupScore)

	result := &types.FairnessResult{
		GroupID:            in.GroupID,
		PeriodStart:        start,
		PeriodEnd:          end,
		GroupFairnessScore: groupScore,
		GiniCoefficient:    round(GiniCoefficient(usage), 4),
		StandardDeviation:  round2(popStdDev(diffs)),
		Members:            members,
		Alerts:             alerts,
		Recommendations:    fairnessRecommendations(members, alerts.GroupFairnessLow),
		Visualization:      buildFairnessVisualization(members),
	}

	result.Trend = c.buildTrend(ctx, in.GroupID, end, in.History)
	c.saveSnapshot(ctx, in.GroupID, start, end, groupScore)

	return result, nil
}

// AggregateMemberUsage groups raw records by member. Ownership is taken from the
// member's most recent record, usage share is the mean across records and hours
// are summed. The result is ordered by user ID.
func AggregateMemberUsage(records []types.UsageRecord) []types.MemberUsageAggregate {
	type acc struct {
		agg        types.MemberUsageAggregate
		latestEnd  time.Time
		shareSum   float64
		shareCount int
	}

	byUser := make(map[string]*acc)
	for _, r := range records {
		a, ok := byUser[r.UserID]
		if !ok {
			a = &acc{agg: types.MemberUsageAggregate{UserID: r.UserID}}
			byUser[r.UserID] = a
		}
		if a.shareCount == 0 || !r.PeriodEnd.Before(a.latestEnd) {
			a.agg.OwnershipShare = r.OwnershipShare
			a.latestEnd = r.PeriodEnd
		}
		a.shareSum += r.UsageShare
		a.shareCount++
		if isFinite(r.TotalUsageHours) && r.TotalUsageHours > 0 {
			a.agg.TotalUsageHours += r.TotalUsageHours
		}
	}

	out := make([]types.MemberUsageAggregate, 0, len(byUser))
	for _, a := range byUser {
		a.agg.UsageShare = a.shareSum / float64(a.shareCount)
		out = append(out, a.agg)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].UserID < out[j].UserID })
	return out
}

// NormalizeUsage repairs usage shares. When every share is 0, or any share is
// NaN or infinite, shares are recomputed from usage hours. Shares are clamped
// to [0,1].
func NormalizeUsage(aggs []types.MemberUsageAggregate) []types.MemberUsageAggregate {
	out := make([]types.MemberUsageAggregate, len(aggs))
	copy(out, aggs)

	allZero := true
	invalid := false
	var totalHours float64
	for _, a := range out {
		if !isFinite(a.UsageShare) {
			invalid = true
		} else if a.UsageShare != 0 {
			allZero = false
		}
		totalHours += a.TotalUsageHours
	}

	for i := range out {
		if allZero || invalid {
			out[i].UsageShare = safeDiv(out[i].TotalUsageHours, totalHours)
		}
		if !isFinite(out[i].OwnershipShare) {
			out[i].OwnershipShare = 0
		}
		out[i].UsageShare = clamp(out[i].UsageShare, 0, 1)
		out[i].OwnershipShare = clamp(out[i].OwnershipShare, 0, 1)
	}
	return out
}

// ScoreMembers converts normalized aggregates into fairness entries.
func ScoreMembers(aggs []types.MemberUsageAggregate) []types.MemberFairness {
	members := make([]types.MemberFairness, 0, len(aggs))
	for _, a := range aggs {
		ownershipPct := round2(a.OwnershipShare * 100)
		usagePct := round2(a.UsageShare * 100)
		score := 0.0
		if ownershipPct > 0 {
			score = round2(usagePct / ownershipPct * 100)
		}
		members = append(members, types.MemberFairness{
			UserID:              a.UserID,
			OwnershipPercentage: ownershipPct,
			UsagePercentage:     usagePct,
			TotalUsageHours:     round2(a.TotalUsageHours),
			FairnessScore:       score,
			IsOverUtilizer:      score > 100,
			IsUnderUtilizer:     score < 100,
		})
	}
	return members
}

// GroupFairnessScore is 100 minus the mean absolute gap between usage and
// ownership percentages, floored at 0. A group with no members scores 0.
func GroupFairnessScore(members []types.MemberFairness) float64 {
	if len(members) == 0 {
		return 0
	}
	gaps := make([]float64, len(members))
	for i, m := range members {
		gaps[i] = math.Abs(m.UsagePercentage - m.OwnershipPercentage)
	}
	return round2(math.Max(0, 100-mean(gaps)))
}

func buildFairnessAlerts(members []types.MemberFairness, groupScore float64) types.FairnessAlerts {
	alerts := types.FairnessAlerts{
		SevereOverUtilizers:  []string{},
		SevereUnderUtilizers: []string{},
		GroupFairnessLow:     groupScore < lowGroupThreshold,
	}
	for _, m := range members {
		if m.FairnessScore >= severeOverThreshold {
			alerts.SevereOverUtilizers = append(alerts.SevereOverUtilizers, m.UserID)
		}
		if m.FairnessScore <= severeUnderThreshold {
			alerts.SevereUnderUtilizers = append(alerts.SevereUnderUtilizers, m.UserID)
		}
	}
	alerts.HasSevereOverUtilizers = len(alerts.SevereOverUtilizers) > 0
	alerts.HasSevereUnderUtilizers = len(alerts.SevereUnderUtilizers) > 0
	return alerts
}

func fairnessRecommendations(members []types.MemberFairness, groupLow bool) []string {
	var over, under bool
	for _, m := range members {
		over = over || m.IsOverUtilizer
		under = under || m.IsUnderUtilizer
	}

	recs := []string{}
	if over {
		recs = append(recs, recOverUtilizers)
	}
	if under {
		recs = append(recs, recUnderUtilizers)
	}
	if groupLow {
		recs = append(recs, recGroupLow)
	}
	if len(recs) == 0 {
		recs = append(recs, recBalanced)
	}
	return recs
}

var fairnessBands = []struct {
	label string
	upper float64
}{
	{"<50", 50},
	{"50-80", 80},
	{"80-120", 120},
	{"120-150", 150},
	{">=150", math.Inf(1)},
}

func buildFairnessVisualization(members []types.MemberFairness) types.FairnessVisualization {
	vis := types.FairnessVisualization{
		OwnershipVsUsage:     make([]types.OwnershipUsagePoint, 0, len(members)),
		FairnessDistribution: make([]types.FairnessBucket, len(fairnessBands)),
	}
	for i, b := range fairnessBands {
		vis.FairnessDistribution[i].Label = b.label
	}
	for _, m := range members {
		vis.OwnershipVsUsage = append(vis.OwnershipVsUsage, types.OwnershipUsagePoint{
			UserID:    m.UserID,
			Ownership: m.OwnershipPercentage,
			Usage:     m.UsagePercentage,
			Fairness:  m.FairnessScore,
		})
		for i, b := range fairnessBands {
			if m.FairnessScore < b.upper {
				vis.FairnessDistribution[i].Count++
				break
			}
		}
	}
	return vis
}

// TrendMonths returns the [start, end) bounds of the six calendar months ending
// with the month containing periodEnd, oldest first.
func TrendMonths(periodEnd time.Time) [][2]time.Time {
	last := startOfMonth(periodEnd.UTC())
	months := make([][2]time.Time, 0, trendMonths)
	for i := trendMonths - 1; i >= 0; i-- {
		start := last.AddDate(0, -i, 0)
		months = append(months, [2]time.Time{start, start.AddDate(0, 1, 0)})
	}
	return months
}

func (c *FairnessCalculator) buildTrend(ctx context.Context, groupID string, periodEnd time.Time, history []types.UsageRecord) []types.FairnessTrendPoint {
	log := logger.GetLogger()
	points := make([]types.FairnessTrendPoint, 0, trendMonths)

	for _, m := range TrendMonths(periodEnd) {
		point := types.FairnessTrendPoint{PeriodStart: m[0], PeriodEnd: m[1]}

		if c.snapshots != nil {
			snap, err := c.snapshots.FindSnapshot(ctx, groupID, m[0], m[1])
			switch {
			case err == nil && snap != nil:
				point.GroupFairnessScore = snap.Score
				points = append(points, point)
				continue
			case err != nil && !errors.Is(err, store.ErrNotFound):
				log.Warnw("Failed to load fairness snapshot, recomputing", "groupId", groupID, "periodStart", m[0], "error", err)
			}
		}

		var monthRecords []types.UsageRecord
		for _, r := range history {
			if !r.PeriodStart.Before(m[0]) && r.PeriodStart.Before(m[1]) {
				monthRecords = append(monthRecords, r)
			}
		}
		if len(monthRecords) > 0 {
			point.GroupFairnessScore = GroupFairnessScore(ScoreMembers(NormalizeUsage(AggregateMemberUsage(monthRecords))))
		}
		points = append(points, point)
	}
	return points
}

func (c *FairnessCalculator) saveSnapshot(ctx context.Context, groupID string, start, end time.Time, score float64) {
	if c.snapshots == nil {
		return
	}
	if _, err := c.snapshots.UpsertSnapshot(ctx, groupID, start, end, score); err != nil {
		logger.GetLogger().Warnw("Failed to persist fairness snapshot", "groupId", groupID, "periodStart", start, "periodEnd", end, "error", err)
	}
}
