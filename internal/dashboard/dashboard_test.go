package dashboard

import (
	"context"
	"io"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"

	"github.com/couchcryptid/pandora-dashboard/internal/domain"
	"github.com/couchcryptid/pandora-dashboard/internal/observability"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

type reply struct {
	ts  domain.TimeSeries
	cmp domain.Comparison
	err error
}

type call struct {
	ts    domain.TimeSeriesQuery
	cmp   domain.CompareQuery
	reply chan reply
}

// gatedSource hands every request to the test, which answers it explicitly.
type gatedSource struct {
	calls chan *call
}

func newGatedSource() *gatedSource {
	return &gatedSource{calls: make(chan *call)}
}

func (s *gatedSource) do(ctx context.Context, c *call) (reply, error) {
	select {
	case s.calls <- c:
	case <-ctx.Done():
		return reply{}, ctx.Err()
	}
	select {
	case r := <-c.reply:
		return r, r.err
	case <-ctx.Done():
		return reply{}, ctx.Err()
	}
}

func (s *gatedSource) TimeSeries(ctx context.Context, q domain.TimeSeriesQuery) (domain.TimeSeries, error) {
	r, err := s.do(ctx, &call{ts: q, reply: make(chan reply, 1)})
	return r.ts, err
}

func (s *gatedSource) Compare(ctx context.Context, q domain.CompareQuery) (domain.Comparison, error) {
	r, err := s.do(ctx, &call{cmp: q, reply: make(chan reply, 1)})
	return r.cmp, err
}

func (s *gatedSource) next(t *testing.T) *call {
	t.Helper()
	select {
	case c := <-s.calls:
		return c
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for a fetch")
		return nil
	}
}

func (s *gatedSource) assertNoCall(t *testing.T) {
	t.Helper()
	select {
	case c := <-s.calls:
		t.Fatalf("unexpected fetch: %+v %+v", c.ts, c.cmp)
	case <-time.After(50 * time.Millisecond):
	}
}

// staticSource answers immediately and counts requests.
type staticSource struct {
	mu       sync.Mutex
	tsCalls  int
	cmpCalls int
	ts       domain.TimeSeries
	cmp      domain.Comparison
}

func (s *staticSource) TimeSeries(context.Context, domain.TimeSeriesQuery) (domain.TimeSeries, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.tsCalls++
	return s.ts, nil
}

func (s *staticSource) Compare(context.Context, domain.CompareQuery) (domain.Comparison, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.cmpCalls++
	return s.cmp, nil
}

func testDeps(src domain.MeasurementSource) Deps {
	return Deps{
		Source:  src,
		Metrics: observability.NewMetricsForTesting(),
		Logger:  slog.New(slog.NewTextHandler(io.Discard, nil)),
	}
}

func waitIdle(t *testing.T, w interface{ WaitIdle(context.Context) error }) {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	require.NoError(t, w.WaitIdle(ctx))
}

func series(points ...float64) domain.TimeSeries {
	ts := domain.TimeSeries{Datetime: []string{}, VerticalAmount: []float64{}}
	for i, p := range points {
		ts.Datetime = append(ts.Datetime, time.Date(2024, 6, 1, 10, 15*i, 0, 0, domain.EST).Format(domain.TimestampLayout))
		ts.VerticalAmount = append(ts.VerticalAmount, p)
	}
	return ts
}
