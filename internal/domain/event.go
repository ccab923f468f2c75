package domain

import "time"

// View names used in fetch events and metrics labels.
const (
	ViewTimeSeries = "timeseries"
	ViewComparison = "comparison"
)

// Fetch outcomes.
const (
	OutcomeSuccess = "success"
	OutcomeError   = "error"
)

// FetchEvent records one completed upstream fetch.
type FetchEvent struct {
	ID          string        `json:"id"`
	View        string        `json:"view"`
	Chemical    Chemical      `json:"chemical"`
	Sites       []Site        `json:"sites"`
	Range       Range         `json:"range,omitempty"`
	Year        int           `json:"year,omitempty"`
	Outcome     string        `json:"outcome"`
	Error       string        `json:"error,omitempty"`
	Points      int           `json:"points"`
	Duration    time.Duration `json:"duration_ns"`
	CompletedAt time.Time     `json:"completed_at"`
}
