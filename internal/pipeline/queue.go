package pipeline

import (
	"context"
	"time"

	"github.com/couchcryptid/pandora-dashboard/internal/domain"
	"github.com/couchcryptid/pandora-dashboard/internal/observability"
)

// Queue buffers fetch events between the views and the pipeline. It
// implements EventSink and BatchExtractor.
type Queue struct {
	events        chan domain.FetchEvent
	flushInterval time.Duration
	metrics       *observability.Metrics
}

// NewQueue creates a queue holding up to capacity events. ExtractBatch
// returns a partial batch once flushInterval has passed since its first event.
func NewQueue(capacity int, flushInterval time.Duration, metrics *observability.Metrics) *Queue {
	return &Queue{
		events:        make(chan domain.FetchEvent, capacity),
		flushInterval: flushInterval,
		metrics:       metrics,
	}
}

// Enqueue adds an event, dropping it when the queue is full.
func (q *Queue) Enqueue(event domain.FetchEvent) bool {
	select {
	case q.events <- event:
		q.metrics.FetchEventsQueued.Inc()
		return true
	default:
		q.metrics.FetchEventsDropped.Inc()
		return false
	}
}

// Len returns the number of buffered events.
func (q *Queue) Len() int {
	return len(q.events)
}

// ExtractBatch blocks for the first event, then collects up to batchSize
// events or until the flush interval elapses.
func (q *Queue) ExtractBatch(ctx context.Context, batchSize int) ([]domain.FetchEvent, error) {
	var first domain.FetchEvent
	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	case first = <-q.events:
	}

	batch := make([]domain.FetchEvent, 0, batchSize)
	batch = append(batch, first)

	timer := domain.Clock().NewTimer(q.flushInterval)
	defer timer.Stop()

	for len(batch) < batchSize {
		select {
		case <-ctx.Done():
			return batch, nil
		case <-timer.Chan():
			return batch, nil
		case ev := <-q.events:
			batch = append(batch, ev)
		}
	}
	return batch, nil
}

// Drain removes and returns every buffered event without blocking.
func (q *Queue) Drain() []domain.FetchEvent {
	var out []domain.FetchEvent
	for {
		select {
		case ev := <-q.events:
			out = append(out, ev)
		default:
			return out
		}
	}
}
