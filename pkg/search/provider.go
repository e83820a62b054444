package search

import "context"

// Provider defines the interface for web search providers.
type Provider interface {
	Search(ctx context.Context, query string, opts SearchOptions) ([]Result, error)
}

// Result represents a single search result.
type Result struct {
	Title   string
	URL     string
	Content string
	Score   float64
}

// Recency windows for trend-sensitive queries. Stale results are worse
// than none when researching what is currently moving on LinkedIn.
const (
	RecencyDay   = "day"
	RecencyWeek  = "week"
	RecencyMonth = "month"
)

// SearchOptions controls search behavior across providers.
type SearchOptions struct {
	Limit       int
	SearchDepth string
	// Recency restricts results to a trailing window (RecencyDay/Week/
	// Month). Providers that cannot filter by age ignore it.
	Recency string
}

// recencyDays maps a recency window to a trailing day count for providers
// that take an age limit in days. Zero means no limit.
func recencyDays(recency string) int {
	switch recency {
	case RecencyDay:
		return 1
	case RecencyWeek:
		return 7
	case RecencyMonth:
		return 30
	default:
		return 0
	}
}
