package dashboard

import (
	"context"
	"testing"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/couchcryptid/pandora-dashboard/internal/domain"
)

func TestRegistry_OpenGivesEachLoadItsOwnPage(t *testing.T) {
	src := &staticSource{ts: series(1)}
	deps := testDeps(src)
	r := NewRegistry(deps, time.Hour)
	defer r.Close()

	session := NewSessionID()
	first := r.Open(session, domain.HCHO)
	second := r.Open(session, domain.HCHO)
	assert.NotSame(t, first, second)
	assert.NotEqual(t, first.ID, second.ID)
	assert.True(t, ValidPageID(first.ID))

	waitIdle(t, first.Main)
	waitIdle(t, second.Main)
	require.NoError(t, first.Main.SetRange(domain.Range3Days))
	require.NoError(t, first.Main.SetSite(domain.Goddard))

	snap := second.Main.Snapshot()
	assert.Equal(t, domain.RangeAll, snap.Range, "other tab keeps its own filter")
	assert.Equal(t, domain.Mcmillan, snap.Site)

	got, ok := r.Get(session, first.ID, domain.HCHO)
	require.True(t, ok)
	assert.Same(t, first, got)
	_, ok = r.Get(session, first.ID, domain.NO2)
	assert.False(t, ok)
	_, ok = r.Get(NewSessionID(), first.ID, domain.HCHO)
	assert.False(t, ok, "page ids are scoped to their session")

	assert.Equal(t, 2, r.Len())
	assert.Equal(t, float64(4), testutil.ToFloat64(deps.Metrics.ViewsActive))
}

func TestRegistry_OpenEvictsLeastRecentlyUsed(t *testing.T) {
	fake := clockwork.NewFakeClock()
	domain.SetClock(fake)
	defer domain.SetClock(nil)

	r := NewRegistry(testDeps(&staticSource{}), time.Hour)
	defer r.Close()

	session := NewSessionID()
	oldest := r.Open(session, domain.HCHO)
	for range maxPagesPerSession - 1 {
		fake.Advance(time.Second)
		r.Open(session, domain.NO2)
	}
	assert.Equal(t, maxPagesPerSession, r.Len())

	fake.Advance(time.Second)
	r.Open(session, domain.HCHO)
	assert.Equal(t, maxPagesPerSession, r.Len())
	_, ok := r.Get(session, oldest.ID, domain.HCHO)
	assert.False(t, ok)
	assert.ErrorIs(t, oldest.Main.SetRange(domain.Range7Days), ErrViewClosed)

	r.Open(NewSessionID(), domain.HCHO)
	assert.Equal(t, maxPagesPerSession+1, r.Len(), "the cap is per session")
}

func TestRegistry_ScratchPage(t *testing.T) {
	r := NewRegistry(testDeps(&staticSource{}), time.Hour)
	defer r.Close()

	a, b := NewSessionID(), NewSessionID()
	pa := r.Scratch(a, domain.HCHO)
	pb := r.Scratch(b, domain.HCHO)
	pn := r.Scratch(a, domain.NO2)
	assert.Same(t, pa, r.Scratch(a, domain.HCHO))
	assert.Empty(t, pa.ID)

	got, ok := r.Get(a, "", domain.HCHO)
	require.True(t, ok)
	assert.Same(t, pa, got)

	waitIdle(t, pa.Main)
	require.NoError(t, pa.Main.SetSite(domain.Beltsville))
	assert.Equal(t, domain.Mcmillan, pb.Main.Snapshot().Site)
	assert.Equal(t, domain.Mcmillan, pn.Main.Snapshot().Site)
	assert.Equal(t, domain.NO2, pn.Main.Chemical())
	assert.Equal(t, 3, r.Len())
	assert.Equal(t, float64(2), testutil.ToFloat64(r.deps.Metrics.Sessions))
}

func TestRegistry_SweepClosesIdlePages(t *testing.T) {
	fake := clockwork.NewFakeClock()
	domain.SetClock(fake)
	defer domain.SetClock(nil)

	r := NewRegistry(testDeps(&staticSource{}), 10*time.Minute)
	defer r.Close()

	stale := r.Open("stale", domain.HCHO)
	fake.Advance(6 * time.Minute)
	fresh := r.Open("fresh", domain.HCHO)
	fake.Advance(6 * time.Minute)

	assert.Equal(t, 1, r.Sweep())
	_, ok := r.Get("stale", stale.ID, domain.HCHO)
	assert.False(t, ok)
	require.ErrorIs(t, stale.Main.SetRange(domain.Range7Days), ErrViewClosed)
	select {
	case <-stale.Done():
	default:
		t.Fatal("swept page not marked done")
	}

	got, ok := r.Get("fresh", fresh.ID, domain.HCHO)
	require.True(t, ok)
	assert.Same(t, fresh, got)

	fake.Advance(9 * time.Minute)
	assert.Equal(t, 0, r.Sweep(), "Get refreshed the page")
}

func TestRegistry_SweepSkipsAttachedPages(t *testing.T) {
	fake := clockwork.NewFakeClock()
	domain.SetClock(fake)
	defer domain.SetClock(nil)

	r := NewRegistry(testDeps(&staticSource{}), 10*time.Minute)
	defer r.Close()

	session := NewSessionID()
	opened := r.Open(session, domain.NO2)
	page, release, ok := r.Attach(session, opened.ID, domain.NO2)
	require.True(t, ok)
	assert.Same(t, opened, page)

	fake.Advance(time.Hour)
	assert.Equal(t, 0, r.Sweep(), "a connected stream keeps its page")
	require.NoError(t, page.Compare.SetYear(2023))

	release()
	release()
	fake.Advance(5 * time.Minute)
	assert.Equal(t, 0, r.Sweep(), "idle clock restarts on release")
	fake.Advance(6 * time.Minute)
	assert.Equal(t, 1, r.Sweep())
	<-page.Done()

	_, _, ok = r.Attach(session, opened.ID, domain.NO2)
	assert.False(t, ok)
}

func TestRegistry_RunSweepsUntilCancelled(t *testing.T) {
	fake := clockwork.NewFakeClock()
	domain.SetClock(fake)
	defer domain.SetClock(nil)

	r := NewRegistry(testDeps(&staticSource{}), time.Minute)
	r.Open(NewSessionID(), domain.NO2)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- r.Run(ctx, 30*time.Second) }()

	require.NoError(t, fake.BlockUntilContext(ctx, 1))
	fake.Advance(2 * time.Minute)
	assert.Eventually(t, func() bool { return r.Len() == 0 }, time.Second, 5*time.Millisecond)

	r.Open(NewSessionID(), domain.HCHO)
	cancel()
	require.NoError(t, <-done)
	assert.Equal(t, 0, r.Len())
}

func TestValidSessionID(t *testing.T) {
	assert.True(t, ValidSessionID(NewSessionID()))
	assert.False(t, ValidSessionID("not-a-session"))
	assert.False(t, ValidSessionID(""))
	assert.False(t, ValidPageID("../etc"))
}
