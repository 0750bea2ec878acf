package analytics

import (
	"fmt"
	"math"
	"sort"
	"strings"
	"time"

	"github.com/coshare/coshare-backend/types"
)

const (
	DefaultBookingHorizonDays = 7
	DefaultMaxSuggestions     = 5
	MinBookingDuration        = 30 * time.Minute
)

var standardBookingHours = []int{8, 10, 12, 14, 16, 18, 20}

// BookingInput is everything the recommender needs for one request.
type BookingInput struct {
	GroupID        string
	UserID         string
	PreferredStart *time.Time
	Duration       time.Duration
	// Fairness is the group's current fairness result. It may be nil.
	Fairness *types.FairnessResult
	Existing []types.ExistingBooking
}

// BookingSlotRecommender enumerates and ranks candidate booking slots.
type BookingSlotRecommender struct {
	horizonDays    int
	maxSuggestions int
	now            func() time.Time
}

func NewBookingSlotRecommender(horizonDays, maxSuggestions int) *BookingSlotRecommender {
	if horizonDays <= 0 {
		horizonDays = DefaultBookingHorizonDays
	}
	if maxSuggestions <= 0 {
		maxSuggestions = DefaultMaxSuggestions
	}
	return &BookingSlotRecommender{horizonDays: horizonDays, maxSuggestions: maxSuggestions, now: time.Now}
}

// HorizonDays is the number of days, starting at the base date, searched for slots.
func (r *BookingSlotRecommender) HorizonDays() int { return r.horizonDays }

// BaseDate is the first day searched: the preferred day if given, otherwise today.
func (r *BookingSlotRecommender) BaseDate(preferred *time.Time) time.Time {
	if preferred != nil && !preferred.IsZero() {
		return startOfDay(*preferred)
	}
	return startOfDay(r.now())
}

// Recommend returns up to maxSuggestions ranked slots that do not overlap any
// existing booking.
func (r *BookingSlotRecommender) Recommend(in BookingInput) *types.BookingSuggestions {
	now := r.now()
	duration := in.Duration
	if duration < MinBookingDuration {
		duration = MinBookingDuration
	}

	var pref *time.Time
	if in.PreferredStart != nil && !in.PreferredStart.IsZero() {
		p := *in.PreferredStart
		pref = &p
	}
	base := r.BaseDate(pref)

	requesterFairness := 100.0
	groupFairness := 100.0
	if in.Fairness != nil {
		groupFairness = in.Fairness.GroupFairnessScore
		if m, ok := in.Fairness.Member(in.UserID); ok {
			requesterFairness = m.FairnessScore
		}
	}

	hours := CandidateHours(pref)
	var slots []types.BookingCandidateSlot

	for offset := 0; offset < r.horizonDays; offset++ {
		day := base.AddDate(0, 0, offset)
		lastMinute := day.Add(23*time.Hour + 59*time.Minute)

		for _, hour := range hours {
			minute := 0
			if pref != nil && hour == pref.Hour() {
				minute = pref.Minute()
			} else if hour%2 == 1 {
				minute = 30
			}

			start := time.Date(day.Year(), day.Month(), day.Day(), hour, minute, 0, 0, day.Location())
			end := start.Add(duration)
			if end.After(lastMinute) || start.Before(now) {
				continue
			}
			if overlapsAny(start, end, in.Existing) {
				continue
			}

			score, reasons := scoreSlot(start, offset, pref, requesterFairness, groupFairness)
			slots = append(slots, types.BookingCandidateSlot{
				Start:     start,
				End:       end,
				DayOffset: offset,
				Score:     round2(score),
				Reasons:   dedupe(reasons),
			})
		}
	}

	sort.SliceStable(slots, func(i, j int) bool {
		if slots[i].DayOffset != slots[j].DayOffset {
			return slots[i].DayOffset < slots[j].DayOffset
		}
		if slots[i].Score != slots[j].Score {
			return slots[i].Score > slots[j].Score
		}
		return slots[i].Start.Before(slots[j].Start)
	})
	if len(slots) > r.maxSuggestions {
		slots = slots[:r.maxSuggestions]
	}
	if slots == nil {
		slots = []types.BookingCandidateSlot{}
	}

	return &types.BookingSuggestions{
		UserID:      in.UserID,
		GroupID:     in.GroupID,
		Suggestions: slots,
	}
}

// CandidateHours lists the start hours to try. With a preference it is the
// preferred hour, its neighbours within three hours and the daytime hours 6-22.
func CandidateHours(pref *time.Time) []int {
	if pref == nil {
		out := make([]int, len(standardBookingHours))
		copy(out, standardBookingHours)
		return out
	}

	set := map[int]struct{}{}
	h := pref.Hour()
	set[h] = struct{}{}
	for d := 1; d <= 3; d++ {
		for _, n := range []int{h - d, h + d} {
			if n >= 0 && n <= 23 {
				set[n] = struct{}{}
			}
		}
	}
	for n := 6; n <= 22; n++ {
		set[n] = struct{}{}
	}

	out := make([]int, 0, len(set))
	for n := range set {
		out = append(out, n)
	}
	sort.Ints(out)
	return out
}

// IsPeakTime reports whether t falls in a weekday commute window.
func IsPeakTime(t time.Time) bool {
	if isWeekend(t) {
		return false
	}
	h := t.Hour()
	return (h >= 7 && h < 9) || (h >= 17 && h < 21)
}

// IsOffPeakTime reports whether t falls in a low-demand window. Weekends are
// off-peak all day.
func IsOffPeakTime(t time.Time) bool {
	if isWeekend(t) {
		return true
	}
	h := t.Hour()
	return (h >= 9 && h < 12) || (h >= 13 && h < 17) || (h >= 21 && h < 23)
}

func overlapsAny(start, end time.Time, existing []types.ExistingBooking) bool {
	for _, b := range existing {
		switch strings.ToLower(b.Status) {
		case "cancelled", "canceled", "rejected":
			continue
		}
		if start.Before(b.End) && end.After(b.Start) {
			return true
		}
	}
	return false
}

func scoreSlot(start time.Time, offset int, pref *time.Time, requesterFairness, groupFairness float64) (float64, []string) {
	score := 0.5
	var reasons []string

	if offset == 0 {
		score += 0.6
		reasons = append(reasons, "Available on your requested day")
	} else {
		score -= 0.2 * float64(offset)
		reasons = append(reasons, fmt.Sprintf("Available %d day(s) after your requested day", offset))
	}

	peak := IsPeakTime(start)
	offPeak := IsOffPeakTime(start)

	if requesterFairness < 100 {
		score += math.Min(0.4, (100-requesterFairness)/250)
		reasons = append(reasons, "Priority for members using less than their ownership share")
	}
	if requesterFairness > 120 {
		if peak {
			score -= 0.2
			reasons = append(reasons, "Peak slot while you are using more than your ownership share")
		} else if offPeak {
			score += 0.2
			reasons = append(reasons, "Off-peak slot helps rebalance your usage")
		}
	}
	if groupFairness < lowGroupThreshold && peak {
		score -= 0.1
		reasons = append(reasons, "Group fairness is low, peak slots are discouraged")
	}

	if pref != nil && sameDate(start, *pref) {
		diff := math.Abs(start.Sub(*pref).Minutes())
		hourGap := start.Hour() - pref.Hour()
		if hourGap < 0 {
			hourGap = -hourGap
		}
		switch {
		case diff <= 30:
			score += 0.5
			reasons = append(reasons, "Matches your preferred time")
		case hourGap == 0:
			score += 0.4
			reasons = append(reasons, "Within your preferred hour")
		case hourGap == 1:
			score += 0.3
			reasons = append(reasons, "Within 1 hour of your preferred time")
		case hourGap == 2:
			score += 0.15
			reasons = append(reasons, "Within 2 hours of your preferred time")
		}
	}

	if peak {
		score -= 0.15
		reasons = append(reasons, "Peak demand window")
	} else {
		score += 0.1
		reasons = append(reasons, "Lower demand outside peak hours")
	}

	return clamp(score, 0, 1), reasons
}
