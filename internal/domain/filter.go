package domain

import (
	"errors"
	"fmt"
	"slices"
)

// Year bounds accepted by the comparison year input.
const (
	MinYear = 2000
	MaxYear = 2100
)

var ErrYearOutOfRange = errors.New("year out of range")

// MainFilter is the time-series view filter.
type MainFilter struct {
	Site  Site
	Range Range
}

// DefaultMainFilter is the filter of a freshly opened time-series view.
func DefaultMainFilter() MainFilter {
	return MainFilter{Site: Mcmillan, Range: DefaultRange}
}

// CompareFilter is the comparison view filter.
type CompareFilter struct {
	Sites []Site
	Year  int
}

// DefaultCompareFilter selects Mcmillan for the current year.
func DefaultCompareFilter() CompareFilter {
	return CompareFilter{Sites: []Site{Mcmillan}, Year: clock.Now().Year()}
}

// ValidateYear checks the year against the selector bounds.
func ValidateYear(year int) error {
	if year < MinYear || year > MaxYear {
		return fmt.Errorf("%w: %d (allowed %d-%d)", ErrYearOutOfRange, year, MinYear, MaxYear)
	}
	return nil
}

// Has reports whether the site is selected.
func (f CompareFilter) Has(site Site) bool {
	return slices.Contains(f.Sites, site)
}

// Toggle returns a copy with the site checked or unchecked. Checking appends
// the site after the current selection.
func (f CompareFilter) Toggle(site Site, checked bool) CompareFilter {
	out := CompareFilter{Year: f.Year, Sites: make([]Site, 0, len(f.Sites)+1)}
	for _, s := range f.Sites {
		if s != site {
			out.Sites = append(out.Sites, s)
		}
	}
	if checked {
		if f.Has(site) {
			return f.clone()
		}
		out.Sites = append(out.Sites, site)
	}
	return out
}

func (f CompareFilter) clone() CompareFilter {
	return CompareFilter{Sites: slices.Clone(f.Sites), Year: f.Year}
}
