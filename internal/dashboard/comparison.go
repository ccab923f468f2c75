package dashboard

import (
	"fmt"
	"slices"

	"github.com/couchcryptid/pandora-dashboard/internal/domain"
)

// ComparisonPlot is the monthly distribution view of one chemical across the
// selected sites for one year.
type ComparisonPlot struct {
	view

	chemical domain.Chemical
	deps     Deps

	filter domain.CompareFilter
	data   domain.Comparison // nil while cleared
	err    error
}

// CompareSnapshot is a consistent copy of a ComparisonPlot's state.
type CompareSnapshot struct {
	Chemical domain.Chemical   `json:"chemical"`
	Sites    []domain.Site     `json:"sites"`
	Year     int               `json:"year"`
	Figure   domain.Figure     `json:"figure"`
	Loading  bool              `json:"loading"`
	Error    string            `json:"error,omitempty"`
	Data     domain.Comparison `json:"-"`
	Err      error             `json:"-"`
}

// NewComparisonPlot creates the view with the default filter and starts its
// first fetch.
func NewComparisonPlot(chemical domain.Chemical, deps Deps) *ComparisonPlot {
	v := &ComparisonPlot{
		chemical: chemical,
		deps:     deps,
		filter:   domain.DefaultCompareFilter(),
	}
	v.init()
	deps.Metrics.ViewsActive.Inc()

	v.mu.Lock()
	v.fetchLocked(v.filter)
	v.mu.Unlock()
	return v
}

// Chemical returns the chemical the view was opened for.
func (v *ComparisonPlot) Chemical() domain.Chemical { return v.chemical }

// Toggle checks or unchecks one site.
func (v *ComparisonPlot) Toggle(site domain.Site, checked bool) error {
	return v.update(func(f domain.CompareFilter) (domain.CompareFilter, error) {
		return f.Toggle(site, checked), nil
	})
}

// SetSites replaces the selection. Order is kept; duplicates are dropped.
func (v *ComparisonPlot) SetSites(sites []domain.Site) error {
	return v.update(func(f domain.CompareFilter) (domain.CompareFilter, error) {
		f.Sites = dedupe(sites)
		return f, nil
	})
}

// SetYear selects the year. Years outside MinYear..MaxYear are rejected.
func (v *ComparisonPlot) SetYear(year int) error {
	return v.update(func(f domain.CompareFilter) (domain.CompareFilter, error) {
		if err := domain.ValidateYear(year); err != nil {
			return f, err
		}
		f.Year = year
		return f, nil
	})
}

// SetFilter applies sites and year together, issuing at most one fetch.
func (v *ComparisonPlot) SetFilter(next domain.CompareFilter) error {
	return v.update(func(domain.CompareFilter) (domain.CompareFilter, error) {
		if err := domain.ValidateYear(next.Year); err != nil {
			return domain.CompareFilter{}, err
		}
		return domain.CompareFilter{Sites: dedupe(next.Sites), Year: next.Year}, nil
	})
}

func (v *ComparisonPlot) update(change func(domain.CompareFilter) (domain.CompareFilter, error)) error {
	v.mu.Lock()
	if v.closed {
		v.mu.Unlock()
		return ErrViewClosed
	}
	next, err := change(v.filter)
	if err != nil {
		v.mu.Unlock()
		return err
	}
	if next.Year == v.filter.Year && slices.Equal(next.Sites, v.filter.Sites) {
		v.mu.Unlock()
		return nil
	}
	v.filter = next
	v.fetchLocked(next)
	v.mu.Unlock()

	v.notify()
	return nil
}

// fetchLocked clears the previous response and starts a fetch for f. An
// empty selection fetches nothing and keeps whatever was applied last.
// Caller holds mu.
func (v *ComparisonPlot) fetchLocked(f domain.CompareFilter) {
	if len(f.Sites) == 0 {
		return
	}
	v.data = nil

	v.beginLocked()
	v.wg.Add(1)
	go func() {
		defer v.wg.Done()

		cmp, err := v.deps.Source.Compare(v.ctx, domain.CompareQuery{
			Chemical: v.chemical,
			Sites:    f.Sites,
			Year:     f.Year,
		})

		v.mu.Lock()
		v.endLocked()
		if v.closed {
			v.mu.Unlock()
			return
		}
		if err != nil {
			v.err = fmt.Errorf("compare %s %v %d: %w", v.chemical, f.Sites, f.Year, err)
			v.deps.Logger.Warn("comparison fetch failed",
				"chemical", v.chemical,
				"sites", f.Sites,
				"year", f.Year,
				"error", err,
			)
		} else {
			v.data = cmp
			v.err = nil
		}
		v.mu.Unlock()

		v.notify()
	}()
}

// Snapshot returns the current filter, figure and status.
func (v *ComparisonPlot) Snapshot() CompareSnapshot {
	v.mu.Lock()
	defer v.mu.Unlock()

	return CompareSnapshot{
		Chemical: v.chemical,
		Sites:    append([]domain.Site{}, v.filter.Sites...),
		Year:     v.filter.Year,
		Figure:   domain.ComparisonFigure(v.filter.Sites, v.filter.Year, v.data),
		Loading:  v.inflight > 0,
		Error:    errString(v.err),
		Data:     v.data,
		Err:      v.err,
	}
}

// Close cancels outstanding fetches and waits for them to finish. Close is
// idempotent.
func (v *ComparisonPlot) Close() {
	if !v.shutdown() {
		return
	}
	v.wg.Wait()
	v.deps.Metrics.ViewsActive.Dec()
}

func dedupe(sites []domain.Site) []domain.Site {
	out := make([]domain.Site, 0, len(sites))
	for _, s := range sites {
		if !slices.Contains(out, s) {
			out = append(out, s)
		}
	}
	return out
}
