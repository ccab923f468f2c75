package domain

import (
	"encoding/json"
	"errors"
	"fmt"
	"maps"
	"net/url"
	"slices"
	"sort"
	"strconv"
	"strings"
	"time"
)

var (
	ErrMisalignedSeries = errors.New("datetime and vertical_amount lengths differ")
	ErrInvalidMonth     = errors.New("month out of range 1-12")
	ErrInvalidTimestamp = errors.New("invalid timestamp")
)

// EST is the fixed zone of upstream wall-clock timestamps.
var EST = time.FixedZone("EST", -5*60*60)

// TimestampLayout is the upstream datetime format.
const TimestampLayout = "2006-01-02 15:04:05"

// Measurement is one total-column reading at a site.
type Measurement struct {
	Timestamp      time.Time `json:"timestamp"`
	VerticalAmount float64   `json:"vertical_amount"`
}

// TimeSeries is the /data response: two index-aligned arrays.
type TimeSeries struct {
	Datetime       []string  `json:"datetime"`
	VerticalAmount []float64 `json:"vertical_amount"`
}

// Len returns the number of points, or the shorter length when misaligned.
func (ts TimeSeries) Len() int {
	return min(len(ts.Datetime), len(ts.VerticalAmount))
}

// Validate checks that both arrays have the same length.
func (ts TimeSeries) Validate() error {
	if len(ts.Datetime) != len(ts.VerticalAmount) {
		return fmt.Errorf("%w: %d datetimes, %d amounts", ErrMisalignedSeries, len(ts.Datetime), len(ts.VerticalAmount))
	}
	return nil
}

// Points parses the series into typed measurements.
func (ts TimeSeries) Points() ([]Measurement, error) {
	if err := ts.Validate(); err != nil {
		return nil, err
	}
	points := make([]Measurement, len(ts.Datetime))
	for i, raw := range ts.Datetime {
		t, err := ParseTimestamp(raw)
		if err != nil {
			return nil, fmt.Errorf("point %d: %w", i, err)
		}
		points[i] = Measurement{Timestamp: t, VerticalAmount: ts.VerticalAmount[i]}
	}
	return points, nil
}

// ParseTimestamp parses an upstream timestamp. The upstream format is tried
// first, then RFC 3339 and a bare date.
func ParseTimestamp(s string) (time.Time, error) {
	s = strings.TrimSpace(s)
	if t, err := time.ParseInLocation(TimestampLayout, s, EST); err == nil {
		return t, nil
	}
	if t, err := time.Parse(time.RFC3339, s); err == nil {
		return t, nil
	}
	if t, err := time.ParseInLocation(time.DateOnly, s, EST); err == nil {
		return t, nil
	}
	return time.Time{}, fmt.Errorf("%w: %q", ErrInvalidTimestamp, s)
}

// Record is one reading inside a comparison month bucket.
type Record struct {
	Date           string  `json:"date"`
	VerticalAmount float64 `json:"vertical_amount"`
}

// MonthlyRecords maps a month number (1-12) to its readings.
type MonthlyRecords map[int][]Record

// Months returns the month keys in ascending order.
func (m MonthlyRecords) Months() []int {
	months := make([]int, 0, len(m))
	for month := range m {
		months = append(months, month)
	}
	sort.Ints(months)
	return months
}

// HasData reports whether any month holds at least one record.
func (m MonthlyRecords) HasData() bool {
	for _, recs := range m {
		if len(recs) > 0 {
			return true
		}
	}
	return false
}

// Count returns the total number of records across months.
func (m MonthlyRecords) Count() int {
	n := 0
	for _, recs := range m {
		n += len(recs)
	}
	return n
}

// Comparison is the /compare response: site -> month -> records.
type Comparison map[Site]MonthlyRecords

// UnmarshalJSON normalizes site keys through ParseSite and month keys to
// integers. Unrecognized site keys are kept verbatim. Keys naming the same
// site are merged, in key order.
func (c *Comparison) UnmarshalJSON(data []byte) error {
	var raw map[string]map[string][]Record
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	out := make(Comparison, len(raw))
	for _, siteKey := range slices.Sorted(maps.Keys(raw)) {
		months := raw[siteKey]
		site, err := ParseSite(siteKey)
		if err != nil {
			site = Site(strings.TrimSpace(siteKey))
		}
		monthly, ok := out[site]
		if !ok {
			monthly = make(MonthlyRecords, len(months))
		}
		for monthKey, recs := range months {
			month, err := strconv.Atoi(strings.TrimSpace(monthKey))
			if err != nil || month < 1 || month > 12 {
				return fmt.Errorf("site %s: %w: %q", site, ErrInvalidMonth, monthKey)
			}
			monthly[month] = append(monthly[month], recs...)
		}
		out[site] = monthly
	}
	*c = out
	return nil
}

// Count returns the total number of records across all sites.
func (c Comparison) Count() int {
	n := 0
	for _, m := range c {
		n += m.Count()
	}
	return n
}

// TimeSeriesQuery selects one site's series for a range.
type TimeSeriesQuery struct {
	Chemical Chemical
	Site     Site
	Range    Range
}

// Values encodes the query parameters of the /data endpoint.
func (q TimeSeriesQuery) Values() url.Values {
	return url.Values{
		"range":    {q.Range.String()},
		"location": {q.Site.WireName()},
		"chemical": {q.Chemical.String()},
	}
}

// CompareQuery selects monthly buckets for several sites in one year.
type CompareQuery struct {
	Chemical Chemical
	Sites    []Site
	Year     int
}

// Values encodes the query parameters of the /compare endpoint. Sites are
// repeated "locations" parameters in selection order.
func (q CompareQuery) Values() url.Values {
	v := url.Values{}
	for _, s := range q.Sites {
		v.Add("locations", s.WireName())
	}
	v.Set("chemical", q.Chemical.String())
	v.Set("year", strconv.Itoa(q.Year))
	return v
}
