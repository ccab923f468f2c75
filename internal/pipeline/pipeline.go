package pipeline

import (
	"context"
	"log/slog"
	"time"

	"github.com/couchcryptid/storm-data-shared/retry"

	"github.com/couchcryptid/pandora-dashboard/internal/domain"
	"github.com/couchcryptid/pandora-dashboard/internal/observability"
)

const (
	initialBackoff = 200 * time.Millisecond
	maxBackoff     = 5 * time.Second

	// Grace period for publishing what is still queued at shutdown.
	drainTimeout = 2 * time.Second
)

// BatchExtractor reads up to batchSize fetch events.
type BatchExtractor interface {
	ExtractBatch(ctx context.Context, batchSize int) ([]domain.FetchEvent, error)
}

// BatchLoader writes fetch events to the destination.
type BatchLoader interface {
	LoadBatch(ctx context.Context, events []domain.FetchEvent) error
}

// drainer is implemented by extractors that can hand back buffered events
// without blocking.
type drainer interface {
	Drain() []domain.FetchEvent
}

// Pipeline moves fetch events from the queue to the loader in batches.
type Pipeline struct {
	extractor BatchExtractor
	loader    BatchLoader
	logger    *slog.Logger
	metrics   *observability.Metrics
	batchSize int
}

// New creates a Pipeline with the given stages and observability.
func New(e BatchExtractor, l BatchLoader, logger *slog.Logger, metrics *observability.Metrics, batchSize int) *Pipeline {
	return &Pipeline{
		extractor: e,
		loader:    l,
		logger:    logger,
		metrics:   metrics,
		batchSize: batchSize,
	}
}

// Run executes the batch loop until the context is cancelled. A failed load
// is retried with exponential backoff; the batch is kept until it succeeds
// or the pipeline stops.
func (p *Pipeline) Run(ctx context.Context) error {
	p.logger.Info("fetch event pipeline started", "batch_size", p.batchSize)
	p.metrics.PipelineRunning.Set(1)
	defer p.metrics.PipelineRunning.Set(0)

	var pending []domain.FetchEvent
	for ctx.Err() == nil {
		batch, err := p.extractor.ExtractBatch(ctx, p.batchSize)
		if err != nil {
			if ctx.Err() != nil {
				break
			}
			p.logger.Error("extract batch failed", "error", err)
			continue
		}
		if len(batch) == 0 {
			continue
		}
		if !p.loadWithRetry(ctx, batch) {
			pending = batch
			break
		}
	}

	p.drain(pending)
	p.logger.Info("fetch event pipeline stopped")
	return nil
}

// loadWithRetry loads batch, backing off between failures. Returns false if
// the context ended before the batch was written.
func (p *Pipeline) loadWithRetry(ctx context.Context, batch []domain.FetchEvent) bool {
	backoff := initialBackoff
	for {
		start := time.Now()
		err := p.loader.LoadBatch(ctx, batch)
		if err == nil {
			p.metrics.BatchSize.Observe(float64(len(batch)))
			p.metrics.BatchProcessingDuration.Observe(time.Since(start).Seconds())
			p.metrics.FetchEventsPublished.Add(float64(len(batch)))
			return true
		}

		p.metrics.PublishErrors.Inc()
		if ctx.Err() != nil {
			return false
		}
		p.logger.Error("load batch failed", "error", err, "batch_size", len(batch), "retry_in", backoff)
		if !retry.SleepWithContext(ctx, backoff) {
			return false
		}
		backoff = retry.NextBackoff(backoff, maxBackoff)
	}
}

// drain makes one bounded attempt to publish the interrupted batch and
// whatever is still queued at shutdown.
func (p *Pipeline) drain(pending []domain.FetchEvent) {
	rest := pending
	if d, ok := p.extractor.(drainer); ok {
		rest = append(rest, d.Drain()...)
	}
	if len(rest) == 0 {
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), drainTimeout)
	defer cancel()
	if err := p.loader.LoadBatch(ctx, rest); err != nil {
		p.metrics.PublishErrors.Inc()
		p.logger.Warn("dropping queued fetch events at shutdown", "count", len(rest), "error", err)
		return
	}
	p.metrics.FetchEventsPublished.Add(float64(len(rest)))
}
