package types

import "time"

// MemberFairness describes how one co-owner's usage compares to their ownership.
type MemberFairness struct {
	UserID              string  `json:"userId"`
	OwnershipPercentage float64 `json:"ownershipPercentage"`
	UsagePercentage     float64 `json:"usagePercentage"`
	TotalUsageHours     float64 `json:"totalUsageHours"`
	FairnessScore       float64 `json:"fairnessScore"`
	IsOverUtilizer      bool    `json:"isOverUtilizer"`
	IsUnderUtilizer     bool    `json:"isUnderUtilizer"`
}

// FairnessTrendPoint is a group fairness score for one discrete period.
type FairnessTrendPoint struct {
	PeriodStart        time.Time `json:"periodStart"`
	PeriodEnd          time.Time `json:"periodEnd"`
	GroupFairnessScore float64   `json:"groupFairnessScore"`
}

// FairnessSnapshot is the persisted form of a FairnessTrendPoint.
type FairnessSnapshot struct {
	ID          string    `json:"id"`
	GroupID     string    `json:"groupId"`
	PeriodStart time.Time `json:"periodStart"`
	PeriodEnd   time.Time `json:"periodEnd"`
	Score       float64   `json:"score"`
	CreatedAt   time.Time `json:"createdAt"`
	UpdatedAt   time.Time `json:"updatedAt"`
}

// FairnessAlerts summarizes members and group states that need attention.
type FairnessAlerts struct {
	HasSevereOverUtilizers  bool     `json:"hasSevereOverUtilizers"`
	HasSevereUnderUtilizers bool     `json:"hasSevereUnderUtilizers"`
	GroupFairnessLow        bool     `json:"groupFairnessLow"`
	SevereOverUtilizers     []string `json:"severeOverUtilizers"`
	SevereUnderUtilizers    []string `json:"severeUnderUtilizers"`
}

// OwnershipUsagePoint is one member's point on the ownership-vs-usage chart.
type OwnershipUsagePoint struct {
	UserID    string  `json:"userId"`
	Ownership float64 `json:"ownership"`
	Usage     float64 `json:"usage"`
	Fairness  float64 `json:"fairness"`
}

// FairnessBucket counts members whose fairness score falls in a band.
type FairnessBucket struct {
	Label string `json:"label"`
	Count int    `json:"count"`
}

type FairnessVisualization struct {
	OwnershipVsUsage     []OwnershipUsagePoint `json:"ownershipVsUsage"`
	FairnessDistribution []FairnessBucket      `json:"fairnessDistribution"`
}

// FairnessResult is the full fairness analysis of a group over a period.
type FairnessResult struct {
	GroupID            string                `json:"groupId"`
	PeriodStart        time.Time             `json:"periodStart"`
	PeriodEnd          time.Time             `json:"periodEnd"`
	GroupFairnessScore float64               `json:"groupFairnessScore"`
	GiniCoefficient    float64               `json:"giniCoefficient"`
	StandardDeviation  float64               `json:"standardDeviation"`
	Members            []MemberFairness      `json:"members"`
	Alerts             FairnessAlerts        `json:"alerts"`
	Recommendations    []string              `json:"recommendations"`
	Visualization      FairnessVisualization `json:"visualization"`
	Trend              []FairnessTrendPoint  `json:"trend"`
}

// Member returns the fairness entry for userID, if present.
func (r *FairnessResult) Member(userID string) (MemberFairness, bool) {
	if r == nil {
		return MemberFairness{}, false
	}
	for _, m := range r.Members {
		if m.UserID == userID {
			return m, true
		}
	}
	return MemberFairness{}, false
}
