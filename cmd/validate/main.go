// Command validate checks /data and /compare responses, either the genmock
// fixtures on disk or a live measurement API, against the shapes the
// dashboard relies on. It verifies array alignment, timestamps, range
// windows, month buckets and how the responses reshape into figures.
//
// Usage:
//
//	go run ./cmd/validate -fixtures data/mock -year 2024
//	go run ./cmd/validate -api-url http://localhost:8000 -year 2024
package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"math"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/couchcryptid/pandora-dashboard/internal/adapter/pandora"
	"github.com/couchcryptid/pandora-dashboard/internal/domain"
	"github.com/couchcryptid/pandora-dashboard/internal/observability"
)

// Year genmock writes /compare fixtures for by default.
const defaultYear = 2024

// phase tracks pass/fail for a validation phase.
type phase struct {
	name   string
	errors []string
}

func (p *phase) errorf(format string, args ...any) {
	p.errors = append(p.errors, fmt.Sprintf(format, args...))
}

func (p *phase) passed() bool { return len(p.errors) == 0 }

// series is one /data response with the query that produced it.
type series struct {
	query domain.TimeSeriesQuery
	ts    domain.TimeSeries
}

func (s series) String() string {
	return fmt.Sprintf("%s/%s/%s", s.query.Chemical, s.query.Site, s.query.Range)
}

// comparison is one /compare response covering every site.
type comparison struct {
	chemical domain.Chemical
	year     int
	cmp      domain.Comparison
}

func main() {
	fixtures := flag.String("fixtures", "", "directory of genmock fixtures")
	apiURL := flag.String("api-url", "", "measurement API base URL, instead of -fixtures")
	year := flag.Int("year", defaultYear, "year of the /compare responses")
	timeout := flag.Duration("timeout", 30*time.Second, "per-request timeout for -api-url")
	flag.Parse()

	if (*fixtures == "") == (*apiURL == "") {
		flag.Usage()
		os.Exit(1)
	}

	var src domain.MeasurementSource
	if *apiURL != "" {
		logger := observability.NewTextLogger(os.Stderr, "warn")
		src = pandora.NewClient(*apiURL, *timeout, observability.NewMetricsWith(prometheus.NewRegistry()), logger)
	} else {
		src = fixtureSource{dir: *fixtures}
	}

	if code := run(context.Background(), src, *year); code != 0 {
		os.Exit(code)
	}
}

func run(ctx context.Context, src domain.MeasurementSource, year int) int {
	// ── Load all responses ──
	fmt.Println("=== Pandora Measurement Validation ===")
	fmt.Println()

	if err := domain.ValidateYear(year); err != nil {
		fmt.Fprintf(os.Stderr, "FATAL: %v\n", err)
		return 1
	}

	all, err := loadSeries(ctx, src)
	if err != nil {
		fmt.Fprintf(os.Stderr, "FATAL: load time series: %v\n", err)
		return 1
	}
	cmps, err := loadComparisons(ctx, src, year)
	if err != nil {
		fmt.Fprintf(os.Stderr, "FATAL: load comparisons: %v\n", err)
		return 1
	}

	// ── Run validation phases ──
	phases := []*phase{
		validateAlignment(all),
		validateWindows(all),
		validateComparisons(cmps),
		validateFigures(all, cmps),
	}

	// ── Report results ──
	fmt.Println()
	allPassed := true
	for _, p := range phases {
		status := "\033[32mPASS\033[0m"
		if !p.passed() {
			status = fmt.Sprintf("\033[31mFAIL (%d errors)\033[0m", len(p.errors))
			allPassed = false
		}
		fmt.Printf("  %-42s %s\n", p.name, status)
	}

	fmt.Println()
	fmt.Printf("Responses: %d time series (%d points), %d comparisons (%d records)\n",
		len(all), countPoints(all), len(cmps), countRecords(cmps))

	// Print detailed errors.
	for _, p := range phases {
		if p.passed() {
			continue
		}
		fmt.Printf("\n--- %s ---\n", p.name)
		for i, e := range p.errors {
			fmt.Printf("  [%d] %s\n", i+1, e)
		}
	}

	if allPassed {
		fmt.Println("\nAll validations passed.")
		return 0
	}
	fmt.Println("\nValidation FAILED.")
	return 1
}

// ── Data loading ──

// fixtureSource serves responses from genmock's output directory.
type fixtureSource struct {
	dir string
}

func (f fixtureSource) TimeSeries(_ context.Context, q domain.TimeSeriesQuery) (domain.TimeSeries, error) {
	var ts domain.TimeSeries
	err := loadJSON(filepath.Join(f.dir, dataFile(q.Chemical, q.Site, q.Range)), &ts)
	return ts, err
}

func (f fixtureSource) Compare(_ context.Context, q domain.CompareQuery) (domain.Comparison, error) {
	var cmp domain.Comparison
	err := loadJSON(filepath.Join(f.dir, compareFile(q.Chemical, q.Year)), &cmp)
	return cmp, err
}

func dataFile(chem domain.Chemical, site domain.Site, r domain.Range) string {
	return fmt.Sprintf("data_%s_%s_%s.json", slug(chem), slug(site), r)
}

func compareFile(chem domain.Chemical, year int) string {
	return fmt.Sprintf("compare_%s_%d.json", slug(chem), year)
}

func slug[T ~string](v T) string { return strings.ToLower(string(v)) }

func loadJSON(path string, out any) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return err
	}
	return json.Unmarshal(data, out)
}

func loadSeries(ctx context.Context, src domain.MeasurementSource) ([]series, error) {
	var out []series
	for _, chem := range domain.Chemicals {
		for _, site := range domain.Sites {
			for _, r := range domain.Ranges {
				q := domain.TimeSeriesQuery{Chemical: chem, Site: site, Range: r}
				ts, err := src.TimeSeries(ctx, q)
				if err != nil {
					return nil, fmt.Errorf("%s %s %s: %w", chem, site, r, err)
				}
				out = append(out, series{query: q, ts: ts})
			}
		}
	}
	return out, nil
}

func loadComparisons(ctx context.Context, src domain.MeasurementSource, year int) ([]comparison, error) {
	var out []comparison
	for _, chem := range domain.Chemicals {
		cmp, err := src.Compare(ctx, domain.CompareQuery{Chemical: chem, Sites: domain.Sites, Year: year})
		if err != nil {
			return nil, fmt.Errorf("%s %d: %w", chem, year, err)
		}
		out = append(out, comparison{chemical: chem, year: year, cmp: cmp})
	}
	return out, nil
}

func countPoints(all []series) int {
	n := 0
	for _, s := range all {
		n += s.ts.Len()
	}
	return n
}

func countRecords(cmps []comparison) int {
	n := 0
	for _, c := range cmps {
		n += c.cmp.Count()
	}
	return n
}

// ── Phase 1: time-series alignment ──

// validateAlignment checks that datetime and vertical_amount pair up, every
// timestamp parses and amounts are finite.
func validateAlignment(all []series) *phase {
	p := &phase{name: "Time series alignment"}
	for _, s := range all {
		points, err := s.ts.Points()
		if err != nil {
			p.errorf("%s: %v", s, err)
			continue
		}
		for i, pt := range points {
			if math.IsNaN(pt.VerticalAmount) || math.IsInf(pt.VerticalAmount, 0) {
				p.errorf("%s: point %d: vertical_amount %v is not finite", s, i, pt.VerticalAmount)
			}
		}
	}
	return p
}

// ── Phase 2: range windows ──

// validateWindows checks that each series is in ascending time order and
// spans no more than its range. Spans are measured back from the newest
// point so live responses validate the same way as fixtures.
func validateWindows(all []series) *phase {
	p := &phase{name: "Time series range windows"}
	for _, s := range all {
		points, err := s.ts.Points()
		if err != nil || len(points) == 0 {
			continue
		}
		for i := 1; i < len(points); i++ {
			if points[i].Timestamp.Before(points[i-1].Timestamp) {
				p.errorf("%s: point %d at %s is before point %d", s, i, s.ts.Datetime[i], i-1)
				break
			}
		}
		limit, ok := maxSpan(s.query.Range)
		if !ok {
			continue
		}
		span := points[len(points)-1].Timestamp.Sub(points[0].Timestamp)
		if span > limit {
			p.errorf("%s: series spans %s, more than %s", s, span.Round(time.Hour), limit)
		}
	}
	return p
}

// maxSpan is the widest span a range may cover, with a day of slack for
// upstream rounding. RangeAll has no limit.
func maxSpan(r domain.Range) (time.Duration, bool) {
	day := 24 * time.Hour
	switch r {
	case domain.Range3Days:
		return 4 * day, true
	case domain.Range7Days:
		return 8 * day, true
	case domain.Range1Month:
		return 32 * day, true
	default:
		return 0, false
	}
}

// ── Phase 3: comparison buckets ──

// validateComparisons checks site keys, and that every record date parses
// and falls into its month bucket of the requested year.
func validateComparisons(cmps []comparison) *phase {
	p := &phase{name: "Comparison month buckets"}
	for _, c := range cmps {
		for site, monthly := range c.cmp {
			if _, err := domain.ParseSite(site.String()); err != nil {
				p.errorf("%s %d: %v", c.chemical, c.year, err)
			}
			for _, month := range monthly.Months() {
				for i, rec := range monthly[month] {
					checkRecord(p, c, site, month, i, rec)
				}
			}
		}
	}
	return p
}

func checkRecord(p *phase, c comparison, site domain.Site, month, i int, rec domain.Record) {
	pf := func(format string, args ...any) {
		p.errorf("%s %d %s month %d record %d: "+format,
			append([]any{c.chemical, c.year, site, month, i}, args...)...)
	}
	t, err := domain.ParseTimestamp(rec.Date)
	if err != nil {
		pf("%v", err)
		return
	}
	if t.Year() != c.year {
		pf("date %s outside year %d", rec.Date, c.year)
	}
	if int(t.Month()) != month {
		pf("date %s in month bucket %d", rec.Date, month)
	}
	if math.IsNaN(rec.VerticalAmount) || math.IsInf(rec.VerticalAmount, 0) {
		pf("vertical_amount %v is not finite", rec.VerticalAmount)
	}
}

// ── Phase 4: figure reshaping ──

// validateFigures builds both figures the way the dashboard does and checks
// that no point is lost or duplicated along the way.
func validateFigures(all []series, cmps []comparison) *phase {
	p := &phase{name: "Figure reshaping"}
	for _, s := range all {
		fig := domain.TimeSeriesFigure(s.query.Site, s.query.Range, s.ts, s.query.Site.Color())
		if len(fig.Data) != 1 {
			p.errorf("%s: %d traces, want 1", s, len(fig.Data))
			continue
		}
		trace, ok := fig.Data[0].(domain.ScatterTrace)
		if !ok {
			p.errorf("%s: trace is %s, want scatter", s, fig.Data[0].TraceType())
			continue
		}
		if len(trace.X) != len(s.ts.Datetime) || len(trace.Y) != len(s.ts.VerticalAmount) {
			p.errorf("%s: trace has %d x and %d y for %d points", s, len(trace.X), len(trace.Y), s.ts.Len())
		}
	}

	for _, c := range cmps {
		fig := domain.ComparisonFigure(domain.Sites, c.year, c.cmp)
		withData := domain.SitesWithData(domain.Sites, c.cmp)
		if len(fig.Data) != len(withData) {
			p.errorf("%s %d: %d traces for %d sites with data", c.chemical, c.year, len(fig.Data), len(withData))
			continue
		}
		for i, site := range withData {
			checkBoxTrace(p, c, site, fig.Data[i])
		}
	}
	return p
}

func checkBoxTrace(p *phase, c comparison, site domain.Site, tr domain.Trace) {
	box, ok := tr.(domain.BoxTrace)
	if !ok {
		p.errorf("%s %d %s: trace is %s, want box", c.chemical, c.year, site, tr.TraceType())
		return
	}
	want := c.cmp[site].Count()
	if len(box.X) != want || len(box.Y) != want || len(box.CustomData) != want {
		p.errorf("%s %d %s: x/y/customdata lengths %d/%d/%d, want %d",
			c.chemical, c.year, site, len(box.X), len(box.Y), len(box.CustomData), want)
	}
	for i := 1; i < len(box.X); i++ {
		if box.X[i] < box.X[i-1] {
			p.errorf("%s %d %s: month %d follows month %d", c.chemical, c.year, site, box.X[i], box.X[i-1])
			break
		}
	}
	if box.Marker.Color != site.Color() {
		p.errorf("%s %d %s: marker color %q, want %q", c.chemical, c.year, site, box.Marker.Color, site.Color())
	}
}
