package domain

import "context"

// MeasurementSource fetches pre-aggregated measurements from the upstream API.
type MeasurementSource interface {
	// TimeSeries returns one site's series for a range.
	TimeSeries(ctx context.Context, q TimeSeriesQuery) (TimeSeries, error)

	// Compare returns monthly buckets per site for one year.
	Compare(ctx context.Context, q CompareQuery) (Comparison, error)
}
