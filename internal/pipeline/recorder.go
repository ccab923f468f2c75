package pipeline

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/couchcryptid/pandora-dashboard/internal/domain"
)

// EventSink accepts fetch events without blocking.
type EventSink interface {
	Enqueue(event domain.FetchEvent) bool
}

// Recorder is a domain.MeasurementSource that reports every completed fetch
// of the wrapped source to a sink.
type Recorder struct {
	source domain.MeasurementSource
	sink   EventSink
}

// NewRecorder wraps source so each fetch produces a FetchEvent on sink.
func NewRecorder(source domain.MeasurementSource, sink EventSink) *Recorder {
	return &Recorder{source: source, sink: sink}
}

func (r *Recorder) TimeSeries(ctx context.Context, q domain.TimeSeriesQuery) (domain.TimeSeries, error) {
	start := domain.Clock().Now()
	ts, err := r.source.TimeSeries(ctx, q)

	r.record(domain.FetchEvent{
		View:     domain.ViewTimeSeries,
		Chemical: q.Chemical,
		Sites:    []domain.Site{q.Site},
		Range:    q.Range,
		Points:   ts.Len(),
	}, start, err)
	return ts, err
}

func (r *Recorder) Compare(ctx context.Context, q domain.CompareQuery) (domain.Comparison, error) {
	start := domain.Clock().Now()
	cmp, err := r.source.Compare(ctx, q)

	r.record(domain.FetchEvent{
		View:     domain.ViewComparison,
		Chemical: q.Chemical,
		Sites:    append([]domain.Site(nil), q.Sites...),
		Year:     q.Year,
		Points:   cmp.Count(),
	}, start, err)
	return cmp, err
}

func (r *Recorder) record(event domain.FetchEvent, start time.Time, err error) {
	clock := domain.Clock()
	event.ID = uuid.NewString()
	event.Outcome = domain.OutcomeSuccess
	if err != nil {
		event.Outcome = domain.OutcomeError
		event.Error = err.Error()
		event.Points = 0
	}
	event.CompletedAt = clock.Now().UTC()
	event.Duration = clock.Since(start)
	r.sink.Enqueue(event)
}
