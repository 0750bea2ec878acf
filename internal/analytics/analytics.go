// Package analytics implements the deterministic co-ownership analytics engine:
// fairness scoring, booking slot recommendation, usage forecasting and cost
// optimization. Every component works on records already loaded by the caller
// and is safe to call without the advisory service.
package analytics

import (
	"errors"
	"math"
	"time"

	"github.com/shopspring/decimal"
)

// ErrGroupNotFound is returned when a group has neither a group record nor any
// usage history. It is distinct from a found group with no data.
var ErrGroupNotFound = errors.New("group not found")

// round rounds v to the given number of decimal places. NaN and infinities become 0.
func round(v float64, places int32) float64 {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return 0
	}
	f, _ := decimal.NewFromFloat(v).Round(places).Float64()
	return f
}

func round2(v float64) float64 { return round(v, 2) }

func clamp(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

// safeDiv returns n/d, or 0 when d is 0 or the result is not finite.
func safeDiv(n, d float64) float64 {
	if d == 0 {
		return 0
	}
	q := n / d
	if math.IsNaN(q) || math.IsInf(q, 0) {
		return 0
	}
	return q
}

func isFinite(v float64) bool {
	return !math.IsNaN(v) && !math.IsInf(v, 0)
}

func startOfDay(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, t.Location())
}

func startOfMonth(t time.Time) time.Time {
	y, m, _ := t.Date()
	return time.Date(y, m, 1, 0, 0, 0, 0, t.Location())
}

func sameDate(a, b time.Time) bool {
	ay, am, ad := a.Date()
	by, bm, bd := b.Date()
	return ay == by && am == bm && ad == bd
}

func isWeekend(t time.Time) bool {
	wd := t.Weekday()
	return wd == time.Saturday || wd == time.Sunday
}

// dedupe returns items with duplicates removed, keeping first occurrences in order.
func dedupe(items []string) []string {
	seen := make(map[string]struct{}, len(items))
	out := make([]string, 0, len(items))
	for _, it := range items {
		if _, ok := seen[it]; ok {
			continue
		}
		seen[it] = struct{}{}
		out = append(out, it)
	}
	return out
}
