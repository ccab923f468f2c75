package domain

import (
	"errors"
	"fmt"
	"strings"
)

var (
	ErrUnknownSite     = errors.New("unknown site")
	ErrUnknownChemical = errors.New("unknown chemical")
	ErrUnknownRange    = errors.New("unknown range")
)

// Site is a fixed Pandora observation location.
type Site string

const (
	Mcmillan   Site = "Mcmillan"
	Goddard    Site = "Goddard"
	Beltsville Site = "Beltsville"
)

// Sites lists every site in display order.
var Sites = []Site{Mcmillan, Goddard, Beltsville}

// Marker colors used by both plots and the legend.
const (
	ColorMcmillan   = "red"
	ColorGoddard    = "blue"
	ColorBeltsville = "green"
	ColorFallback   = "gray"
)

// ParseSite resolves a site name case-insensitively, so the legacy
// "BeltsVille" spelling maps to Beltsville.
func ParseSite(s string) (Site, error) {
	name := strings.TrimSpace(s)
	for _, site := range Sites {
		if strings.EqualFold(name, string(site)) {
			return site, nil
		}
	}
	return "", fmt.Errorf("%w: %q", ErrUnknownSite, s)
}

// ParseSites resolves each name and drops duplicates, keeping first-seen order.
func ParseSites(names []string) ([]Site, error) {
	sites := make([]Site, 0, len(names))
	seen := make(map[Site]bool, len(names))
	for _, n := range names {
		site, err := ParseSite(n)
		if err != nil {
			return nil, err
		}
		if seen[site] {
			continue
		}
		seen[site] = true
		sites = append(sites, site)
	}
	return sites, nil
}

func (s Site) String() string { return string(s) }

// WireName is the location name the measurement API expects. It still
// spells Beltsville the legacy way.
func (s Site) WireName() string {
	if s == Beltsville {
		return "BeltsVille"
	}
	return string(s)
}

// Color returns the marker color for the site.
func (s Site) Color() string {
	switch s {
	case Mcmillan:
		return ColorMcmillan
	case Goddard:
		return ColorGoddard
	case Beltsville:
		return ColorBeltsville
	default:
		return ColorFallback
	}
}

// Chemical is a measured trace gas.
type Chemical string

const (
	HCHO Chemical = "HCHO"
	NO2  Chemical = "NO2"
)

// Chemicals lists every chemical in navigation order.
var Chemicals = []Chemical{HCHO, NO2}

// ParseChemical accepts the chemical code ("HCHO", "no2") or its page slug
// ("formaldehyde", "nitrogen-dioxide").
func ParseChemical(s string) (Chemical, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "hcho", "formaldehyde":
		return HCHO, nil
	case "no2", "nitrogen-dioxide":
		return NO2, nil
	default:
		return "", fmt.Errorf("%w: %q", ErrUnknownChemical, s)
	}
}

func (c Chemical) String() string { return string(c) }

// Name is the human-readable species name.
func (c Chemical) Name() string {
	switch c {
	case HCHO:
		return "Formaldehyde"
	case NO2:
		return "Nitrogen Dioxide"
	default:
		return string(c)
	}
}

// Formula is the display formula with subscripts.
func (c Chemical) Formula() string {
	if c == NO2 {
		return "NO₂"
	}
	return string(c)
}

// Path is the page route for the chemical.
func (c Chemical) Path() string {
	switch c {
	case HCHO:
		return "/formaldehyde"
	case NO2:
		return "/no2"
	default:
		return "/"
	}
}

// Range is a relative time window for the time-series query.
type Range string

const (
	Range3Days  Range = "3d"
	Range7Days  Range = "7d"
	Range1Month Range = "1m"
	RangeAll    Range = "all"
)

// DefaultRange is the range a fresh time-series view starts with.
const DefaultRange = RangeAll

// Ranges lists every range in selector order.
var Ranges = []Range{Range3Days, Range7Days, Range1Month, RangeAll}

// ParseRange validates a range key.
func ParseRange(s string) (Range, error) {
	r := Range(strings.ToLower(strings.TrimSpace(s)))
	for _, known := range Ranges {
		if r == known {
			return r, nil
		}
	}
	return "", fmt.Errorf("%w: %q", ErrUnknownRange, s)
}

func (r Range) String() string { return string(r) }

// Label is the selector label.
func (r Range) Label() string {
	switch r {
	case Range3Days:
		return "Last 3 Days"
	case Range7Days:
		return "Last 7 Days"
	case Range1Month:
		return "Last 1 Month"
	case RangeAll:
		return "All Time"
	default:
		return string(r)
	}
}
