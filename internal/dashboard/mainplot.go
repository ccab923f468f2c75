package dashboard

import (
	"fmt"

	"github.com/jonboulle/clockwork"

	"github.com/couchcryptid/pandora-dashboard/internal/domain"
)

// MainPlot is the time-series view of one chemical. The marker color trails
// the data: it switches to the fetched site's color MarkerDelay after the
// response is applied.
type MainPlot struct {
	view

	chemical domain.Chemical
	deps     Deps
	clock    clockwork.Clock

	filter      domain.MainFilter
	data        domain.TimeSeries
	err         error
	markerColor string

	// Scheduled color changes not yet applied.
	timers       map[int]clockwork.Timer
	nextTimer    int
	pendingColor string
}

// MainSnapshot is a consistent copy of a MainPlot's state.
type MainSnapshot struct {
	Chemical           domain.Chemical   `json:"chemical"`
	Site               domain.Site       `json:"site"`
	Range              domain.Range      `json:"range"`
	Figure             domain.Figure     `json:"figure"`
	Loading            bool              `json:"loading"`
	Error              string            `json:"error,omitempty"`
	MarkerColor        string            `json:"marker_color"`
	MarkerColorPending bool              `json:"marker_color_pending"`
	NextMarkerColor    string            `json:"next_marker_color,omitempty"`
	MarkerDelayMS      int64             `json:"marker_delay_ms"`
	Series             domain.TimeSeries `json:"-"`
	Err                error             `json:"-"`
}

// NewMainPlot creates the view with the default filter and starts its first fetch.
func NewMainPlot(chemical domain.Chemical, deps Deps) *MainPlot {
	v := &MainPlot{
		chemical:    chemical,
		deps:        deps,
		clock:       domain.Clock(),
		filter:      domain.DefaultMainFilter(),
		data:        domain.TimeSeries{Datetime: []string{}, VerticalAmount: []float64{}},
		markerColor: domain.Mcmillan.Color(),
		timers:      make(map[int]clockwork.Timer),
	}
	v.init()
	deps.Metrics.ViewsActive.Inc()

	v.mu.Lock()
	v.fetchLocked(v.filter)
	v.mu.Unlock()
	return v
}

// Chemical returns the chemical the view was opened for.
func (v *MainPlot) Chemical() domain.Chemical { return v.chemical }

// SetSite selects a site. Selecting the current site does nothing.
func (v *MainPlot) SetSite(site domain.Site) error {
	return v.update(func(f domain.MainFilter) domain.MainFilter {
		f.Site = site
		return f
	})
}

// SetRange selects a time window. Selecting the current range does nothing.
func (v *MainPlot) SetRange(r domain.Range) error {
	return v.update(func(f domain.MainFilter) domain.MainFilter {
		f.Range = r
		return f
	})
}

// SetFilter applies site and range together, issuing at most one fetch.
func (v *MainPlot) SetFilter(f domain.MainFilter) error {
	return v.update(func(domain.MainFilter) domain.MainFilter { return f })
}

func (v *MainPlot) update(change func(domain.MainFilter) domain.MainFilter) error {
	v.mu.Lock()
	if v.closed {
		v.mu.Unlock()
		return ErrViewClosed
	}
	next := change(v.filter)
	if next == v.filter {
		v.mu.Unlock()
		return nil
	}
	v.filter = next
	v.fetchLocked(next)
	v.mu.Unlock()

	v.notify()
	return nil
}

// fetchLocked starts a fetch for f. Caller holds mu.
func (v *MainPlot) fetchLocked(f domain.MainFilter) {
	v.beginLocked()
	v.wg.Add(1)
	go func() {
		defer v.wg.Done()

		ts, err := v.deps.Source.TimeSeries(v.ctx, domain.TimeSeriesQuery{
			Chemical: v.chemical,
			Site:     f.Site,
			Range:    f.Range,
		})

		v.mu.Lock()
		v.endLocked()
		if v.closed {
			v.mu.Unlock()
			return
		}
		if err != nil {
			v.err = fmt.Errorf("fetch %s %s %s: %w", v.chemical, f.Site, f.Range, err)
			v.deps.Logger.Warn("time series fetch failed",
				"chemical", v.chemical,
				"site", f.Site,
				"range", f.Range,
				"error", err,
			)
		} else {
			v.data = ts
			v.err = nil
			v.scheduleColorLocked(f.Site.Color())
		}
		v.mu.Unlock()

		v.notify()
	}()
}

// scheduleColorLocked applies color after the marker delay. Every completed
// fetch schedules its own change; none is cancelled by a later one. Caller
// holds mu.
func (v *MainPlot) scheduleColorLocked(color string) {
	if v.deps.MarkerDelay <= 0 {
		v.markerColor = color
		return
	}

	id := v.nextTimer
	v.nextTimer++
	v.pendingColor = color
	v.wg.Add(1)
	v.timers[id] = v.clock.AfterFunc(v.deps.MarkerDelay, func() {
		defer v.wg.Done()

		v.mu.Lock()
		if _, ok := v.timers[id]; !ok {
			v.mu.Unlock()
			return
		}
		delete(v.timers, id)
		if v.closed {
			v.mu.Unlock()
			return
		}
		v.markerColor = color
		if len(v.timers) == 0 {
			v.pendingColor = ""
		}
		v.mu.Unlock()

		v.notify()
	})
}

// Snapshot returns the current filter, figure and status.
func (v *MainPlot) Snapshot() MainSnapshot {
	v.mu.Lock()
	defer v.mu.Unlock()

	return MainSnapshot{
		Chemical:           v.chemical,
		Site:               v.filter.Site,
		Range:              v.filter.Range,
		Figure:             domain.TimeSeriesFigure(v.filter.Site, v.filter.Range, v.data, v.markerColor),
		Loading:            v.inflight > 0,
		Error:              errString(v.err),
		MarkerColor:        v.markerColor,
		MarkerColorPending: len(v.timers) > 0,
		NextMarkerColor:    v.pendingColor,
		MarkerDelayMS:      v.deps.MarkerDelay.Milliseconds(),
		Series:             v.data,
		Err:                v.err,
	}
}

// Close cancels outstanding fetches and pending color changes and waits for
// them to finish. Close is idempotent.
func (v *MainPlot) Close() {
	if !v.shutdown() {
		return
	}

	v.mu.Lock()
	for id, t := range v.timers {
		if t.Stop() {
			delete(v.timers, id)
			v.wg.Done()
		}
	}
	v.mu.Unlock()

	v.wg.Wait()
	v.deps.Metrics.ViewsActive.Dec()
}
