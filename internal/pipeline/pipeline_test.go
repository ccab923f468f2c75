package pipeline_test

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/google/go-cmp/cmp/cmpopts"
	"github.com/jonboulle/clockwork"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/couchcryptid/pandora-dashboard/internal/domain"
	"github.com/couchcryptid/pandora-dashboard/internal/observability"
	"github.com/couchcryptid/pandora-dashboard/internal/pipeline"
)

// --- mocks ---

type mockLoader struct {
	mu       sync.Mutex
	batches  [][]domain.FetchEvent
	failures int // fail this many calls before succeeding
	calls    int
}

func (m *mockLoader) LoadBatch(_ context.Context, events []domain.FetchEvent) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.calls++
	if m.calls <= m.failures {
		return errors.New("broker unavailable")
	}
	m.batches = append(m.batches, append([]domain.FetchEvent(nil), events...))
	return nil
}

func (m *mockLoader) loaded() []domain.FetchEvent {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []domain.FetchEvent
	for _, b := range m.batches {
		out = append(out, b...)
	}
	return out
}

type stubSource struct {
	ts  domain.TimeSeries
	cmp domain.Comparison
	err error
}

func (s stubSource) TimeSeries(context.Context, domain.TimeSeriesQuery) (domain.TimeSeries, error) {
	return s.ts, s.err
}

func (s stubSource) Compare(context.Context, domain.CompareQuery) (domain.Comparison, error) {
	return s.cmp, s.err
}

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func event(id string) domain.FetchEvent {
	return domain.FetchEvent{ID: id, View: domain.ViewTimeSeries, Chemical: domain.HCHO, Outcome: domain.OutcomeSuccess}
}

// --- recorder ---

func TestRecorder_TimeSeries(t *testing.T) {
	fakeClock := clockwork.NewFakeClockAt(time.Date(2024, time.June, 1, 12, 0, 0, 0, time.UTC))
	domain.SetClock(fakeClock)
	t.Cleanup(func() { domain.SetClock(nil) })

	metrics := observability.NewMetricsForTesting()
	q := pipeline.NewQueue(10, time.Second, metrics)
	src := stubSource{ts: domain.TimeSeries{Datetime: []string{"a", "b"}, VerticalAmount: []float64{1, 2}}}
	rec := pipeline.NewRecorder(src, q)

	ts, err := rec.TimeSeries(context.Background(), domain.TimeSeriesQuery{
		Chemical: domain.NO2, Site: domain.Goddard, Range: domain.Range7Days,
	})
	require.NoError(t, err)
	assert.Equal(t, 2, ts.Len())

	events := q.Drain()
	require.Len(t, events, 1)
	want := domain.FetchEvent{
		View:        domain.ViewTimeSeries,
		Chemical:    domain.NO2,
		Sites:       []domain.Site{domain.Goddard},
		Range:       domain.Range7Days,
		Outcome:     domain.OutcomeSuccess,
		Points:      2,
		CompletedAt: fakeClock.Now(),
	}
	if diff := cmp.Diff(want, events[0], cmpopts.IgnoreFields(domain.FetchEvent{}, "ID")); diff != "" {
		t.Errorf("event mismatch (-want +got):\n%s", diff)
	}
	assert.NotEmpty(t, events[0].ID)
	assert.Equal(t, float64(1), testutil.ToFloat64(metrics.FetchEventsQueued))
}

func TestRecorder_CompareError(t *testing.T) {
	q := pipeline.NewQueue(10, time.Second, observability.NewMetricsForTesting())
	rec := pipeline.NewRecorder(stubSource{err: errors.New("status 500")}, q)

	_, err := rec.Compare(context.Background(), domain.CompareQuery{
		Chemical: domain.HCHO, Sites: []domain.Site{domain.Mcmillan, domain.Beltsville}, Year: 2023,
	})
	require.Error(t, err)

	events := q.Drain()
	require.Len(t, events, 1)
	assert.Equal(t, domain.ViewComparison, events[0].View)
	assert.Equal(t, domain.OutcomeError, events[0].Outcome)
	assert.Equal(t, "status 500", events[0].Error)
	assert.Equal(t, []domain.Site{domain.Mcmillan, domain.Beltsville}, events[0].Sites)
	assert.Equal(t, 2023, events[0].Year)
	assert.Zero(t, events[0].Points)
}

// --- queue ---

func TestQueue_DropsWhenFull(t *testing.T) {
	metrics := observability.NewMetricsForTesting()
	q := pipeline.NewQueue(2, time.Second, metrics)

	assert.True(t, q.Enqueue(event("1")))
	assert.True(t, q.Enqueue(event("2")))
	assert.False(t, q.Enqueue(event("3")))

	assert.Equal(t, 2, q.Len())
	assert.Equal(t, float64(1), testutil.ToFloat64(metrics.FetchEventsDropped))
}

func TestQueue_ExtractBatchFillsToSize(t *testing.T) {
	q := pipeline.NewQueue(10, time.Hour, observability.NewMetricsForTesting())
	for _, id := range []string{"1", "2", "3"} {
		q.Enqueue(event(id))
	}

	batch, err := q.ExtractBatch(context.Background(), 2)
	require.NoError(t, err)
	require.Len(t, batch, 2)
	assert.Equal(t, "1", batch[0].ID)
	assert.Equal(t, "2", batch[1].ID)
	assert.Equal(t, 1, q.Len())
}

func TestQueue_ExtractBatchFlushesOnInterval(t *testing.T) {
	fakeClock := clockwork.NewFakeClock()
	domain.SetClock(fakeClock)
	t.Cleanup(func() { domain.SetClock(nil) })

	q := pipeline.NewQueue(10, 500*time.Millisecond, observability.NewMetricsForTesting())
	q.Enqueue(event("1"))

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	done := make(chan []domain.FetchEvent, 1)
	go func() {
		batch, _ := q.ExtractBatch(ctx, 50)
		done <- batch
	}()

	require.NoError(t, fakeClock.BlockUntilContext(ctx, 1))
	fakeClock.Advance(500 * time.Millisecond)

	select {
	case batch := <-done:
		require.Len(t, batch, 1)
		assert.Equal(t, "1", batch[0].ID)
	case <-ctx.Done():
		t.Fatal("batch was not flushed")
	}
}

func TestQueue_ExtractBatchCancelled(t *testing.T) {
	q := pipeline.NewQueue(10, time.Second, observability.NewMetricsForTesting())
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	batch, err := q.ExtractBatch(ctx, 10)
	require.ErrorIs(t, err, context.Canceled)
	assert.Empty(t, batch)
}

// --- pipeline ---

func TestPipeline_Run_HappyPath(t *testing.T) {
	metrics := observability.NewMetricsForTesting()
	q := pipeline.NewQueue(10, 10*time.Millisecond, metrics)
	ldr := &mockLoader{}
	p := pipeline.New(q, ldr, discardLogger(), metrics, 5)

	q.Enqueue(event("evt-1"))
	q.Enqueue(event("evt-2"))

	ctx, cancel := context.WithTimeout(context.Background(), 300*time.Millisecond)
	defer cancel()

	require.NoError(t, p.Run(ctx))
	loaded := ldr.loaded()
	require.Len(t, loaded, 2)
	assert.Equal(t, "evt-1", loaded[0].ID)
	assert.Equal(t, "evt-2", loaded[1].ID)
	assert.Equal(t, float64(2), testutil.ToFloat64(metrics.FetchEventsPublished))
	assert.Equal(t, float64(0), testutil.ToFloat64(metrics.PipelineRunning))
}

func TestPipeline_Run_ContextCancellation(t *testing.T) {
	metrics := observability.NewMetricsForTesting()
	ldr := &mockLoader{}
	p := pipeline.New(pipeline.NewQueue(10, time.Second, metrics), ldr, discardLogger(), metrics, 5)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	require.NoError(t, p.Run(ctx))
	assert.Empty(t, ldr.loaded())
}

func TestPipeline_Run_RetriesFailedLoad(t *testing.T) {
	metrics := observability.NewMetricsForTesting()
	q := pipeline.NewQueue(10, 10*time.Millisecond, metrics)
	ldr := &mockLoader{failures: 2}
	p := pipeline.New(q, ldr, discardLogger(), metrics, 5)

	q.Enqueue(event("evt-1"))

	// Two failures back off 200ms then 400ms before the third attempt.
	ctx, cancel := context.WithTimeout(context.Background(), 1500*time.Millisecond)
	defer cancel()

	require.NoError(t, p.Run(ctx))
	loaded := ldr.loaded()
	require.Len(t, loaded, 1)
	assert.Equal(t, "evt-1", loaded[0].ID)
	assert.Equal(t, float64(2), testutil.ToFloat64(metrics.PublishErrors))
}

func TestPipeline_Run_DrainsQueueOnShutdown(t *testing.T) {
	metrics := observability.NewMetricsForTesting()
	q := pipeline.NewQueue(10, time.Second, metrics)
	ldr := &mockLoader{}
	p := pipeline.New(q, ldr, discardLogger(), metrics, 5)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	q.Enqueue(event("late"))

	require.NoError(t, p.Run(ctx))
	loaded := ldr.loaded()
	require.Len(t, loaded, 1)
	assert.Equal(t, "late", loaded[0].ID)
}
