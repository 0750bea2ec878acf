package types

import "time"

// UsageRecord is one raw per-period usage row for a co-owner, as provided by the
// persistence layer. Shares are fractions in [0,1].
type UsageRecord struct {
	GroupID         string    `json:"groupId"`
	UserID          string    `json:"userId"`
	PeriodStart     time.Time `json:"periodStart"`
	PeriodEnd       time.Time `json:"periodEnd"`
	OwnershipShare  float64   `json:"ownershipShare"`
	UsageShare      float64   `json:"usageShare"`
	TotalUsageHours float64   `json:"totalUsageHours"`
}

// MemberUsageAggregate is the per-member rollup of UsageRecords over a window.
type MemberUsageAggregate struct {
	UserID          string  `json:"userId"`
	OwnershipShare  float64 `json:"ownershipShare"`
	UsageShare      float64 `json:"usageShare"`
	TotalUsageHours float64 `json:"totalUsageHours"`
}

// UsageDayBucket holds the usage hours attributed to one calendar day.
type UsageDayBucket struct {
	Date  time.Time `json:"date"`
	Hours float64   `json:"hours"`
}

// ExistingBooking is a confirmed or pending booking used for conflict checks.
type ExistingBooking struct {
	UserID string    `json:"userId,omitempty"`
	Start  time.Time `json:"start"`
	End    time.Time `json:"end"`
	Status string    `json:"status,omitempty"`
}
