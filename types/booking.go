package types

import "time"

// BookingCandidateSlot is a scored candidate time slot.
type BookingCandidateSlot struct {
	Start     time.Time `json:"start"`
	End       time.Time `json:"end"`
	DayOffset int       `json:"dayOffset"`
	Score     float64   `json:"score"`
	Reasons   []string  `json:"reasons"`
}

// BookingSuggestions is the ranked short-list returned to a requester.
type BookingSuggestions struct {
	UserID      string                 `json:"userId"`
	GroupID     string                 `json:"groupId"`
	Suggestions []BookingCandidateSlot `json:"suggestions"`
}

// BookingSuggestionRequest carries the requester's preferences.
type BookingSuggestionRequest struct {
	UserID          string     `json:"userId" binding:"required"`
	PreferredStart  *time.Time `json:"preferredStart,omitempty"`
	DurationMinutes int        `json:"durationMinutes"`
}
