package types

import "time"

// OutcomeSource records which path produced an analytics result.
type OutcomeSource string

const (
	SourceAdvisory OutcomeSource = "advisory"
	SourceFallback OutcomeSource = "fallback"
)

// Outcome wraps an analytics result with where it came from.
type Outcome[T any] struct {
	Result      T             `json:"result"`
	Source      OutcomeSource `json:"source"`
	GeneratedAt time.Time     `json:"generatedAt"`
}

// IsAdvisory reports whether the result came from the advisory service.
func (o Outcome[T]) IsAdvisory() bool {
	return o.Source == SourceAdvisory
}
