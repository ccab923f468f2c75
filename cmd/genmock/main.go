// Command genmock writes deterministic /data and /compare responses for every
// chemical, site, range and year so the dashboard can be run and validated
// against a static mock API.
//
// Usage:
//
//	go run ./cmd/genmock -out data/mock -year 2024
package main

import (
	"encoding/json"
	"flag"
	"fmt"
	"log"
	"math"
	"math/rand/v2"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/jonboulle/clockwork"

	"github.com/couchcryptid/pandora-dashboard/internal/domain"
)

// Fixtures end at this instant; validate uses the same clock.
var baseDate = time.Date(2024, time.December, 16, 22, 0, 0, 0, time.UTC)

// Daylight sampling window in EST. Pandora only measures with direct sun.
const (
	firstHour = 8
	lastHour  = 17
)

// chemicalProfile shapes the synthetic total columns of one chemical.
type chemicalProfile struct {
	base      map[domain.Site]float64
	amplitude float64 // diurnal peak above base
	seasonal  float64 // summer peak above base
	noise     float64
}

var profiles = map[domain.Chemical]chemicalProfile{
	domain.HCHO: {
		base:      map[domain.Site]float64{domain.Mcmillan: 0.55, domain.Goddard: 0.45, domain.Beltsville: 0.40},
		amplitude: 0.20,
		seasonal:  0.35,
		noise:     0.06,
	},
	domain.NO2: {
		base:      map[domain.Site]float64{domain.Mcmillan: 0.75, domain.Goddard: 0.40, domain.Beltsville: 0.35},
		amplitude: 0.30,
		seasonal:  -0.15,
		noise:     0.10,
	},
}

// Beltsville has no readings before this month of the compare year.
const beltsvilleFirstMonth = time.June

func main() {
	if err := run(); err != nil {
		log.Fatal(err)
	}
}

func run() error {
	out := flag.String("out", "", "output directory for the fixtures")
	year := flag.Int("year", baseDate.Year(), "year of the /compare fixtures")
	seed := flag.Uint64("seed", 240426, "random seed")
	flag.Parse()

	if *out == "" {
		flag.Usage()
		return fmt.Errorf("missing required flag: -out")
	}
	if err := domain.ValidateYear(*year); err != nil {
		return err
	}

	domain.SetClock(clockwork.NewFakeClockAt(baseDate))
	defer domain.SetClock(nil)

	rng := rand.New(rand.NewPCG(*seed, uint64(*year)))
	now := domain.Clock().Now()

	var points, records int
	for _, chem := range domain.Chemicals {
		for _, site := range domain.Sites {
			for _, r := range domain.Ranges {
				ts := timeSeries(rng, chem, site, r, now)
				path := filepath.Join(*out, dataFile(chem, site, r))
				if err := writeJSON(path, ts); err != nil {
					return fmt.Errorf("writing %s: %w", path, err)
				}
				points += ts.Len()
			}
		}

		cmp := comparison(rng, chem, *year)
		path := filepath.Join(*out, compareFile(chem, *year))
		if err := writeJSON(path, cmp); err != nil {
			return fmt.Errorf("writing %s: %w", path, err)
		}
		records += cmp.Count()
		printStats(chem, *year, cmp)
	}

	log.Printf("wrote %d time-series points and %d comparison records to %s", points, records, *out)
	return nil
}

// dataFile names the /data fixture for one query.
func dataFile(chem domain.Chemical, site domain.Site, r domain.Range) string {
	return fmt.Sprintf("data_%s_%s_%s.json", slug(chem), slug(site), r)
}

// compareFile names the /compare fixture holding every site for one year.
func compareFile(chem domain.Chemical, year int) string {
	return fmt.Sprintf("compare_%s_%d.json", slug(chem), year)
}

func slug[T ~string](v T) string { return strings.ToLower(string(v)) }

// window returns how far back a range reaches and the sampling step.
func window(r domain.Range) (time.Duration, time.Duration) {
	day := 24 * time.Hour
	switch r {
	case domain.Range3Days:
		return 3 * day, 15 * time.Minute
	case domain.Range7Days:
		return 7 * day, 15 * time.Minute
	case domain.Range1Month:
		return 30 * day, 15 * time.Minute
	default:
		return 365 * day, time.Hour
	}
}

func timeSeries(rng *rand.Rand, chem domain.Chemical, site domain.Site, r domain.Range, now time.Time) domain.TimeSeries {
	back, step := window(r)
	end := now.In(domain.EST)
	start := end.Add(-back).Truncate(step)

	var ts domain.TimeSeries
	for t := start; !t.After(end); t = t.Add(step) {
		if t.Hour() < firstHour || t.Hour() > lastHour {
			continue
		}
		ts.Datetime = append(ts.Datetime, t.Format(domain.TimestampLayout))
		ts.VerticalAmount = append(ts.VerticalAmount, amount(rng, chem, site, t))
	}
	return ts
}

func comparison(rng *rand.Rand, chem domain.Chemical, year int) domain.Comparison {
	cmp := make(domain.Comparison, len(domain.Sites))
	for _, site := range domain.Sites {
		monthly := make(domain.MonthlyRecords, 12)
		for m := time.January; m <= time.December; m++ {
			if site == domain.Beltsville && m < beltsvilleFirstMonth {
				continue
			}
			days := time.Date(year, m+1, 0, 0, 0, 0, 0, domain.EST).Day()
			n := 8 + rng.IntN(8)
			recs := make([]domain.Record, 0, n)
			for range n {
				day := 1 + rng.IntN(days)
				hour := firstHour + rng.IntN(lastHour-firstHour+1)
				t := time.Date(year, m, day, hour, 0, 0, 0, domain.EST)
				recs = append(recs, domain.Record{
					Date:           t.Format(time.DateOnly),
					VerticalAmount: amount(rng, chem, site, t),
				})
			}
			monthly[int(m)] = recs
		}
		cmp[site] = monthly
	}
	return cmp
}

// amount is base + diurnal bump + seasonal bump + noise, rounded to four
// decimals and never negative.
func amount(rng *rand.Rand, chem domain.Chemical, site domain.Site, t time.Time) float64 {
	p := profiles[chem]
	hour := float64(t.Hour()) + float64(t.Minute())/60
	diurnal := math.Sin(math.Pi * (hour - firstHour) / (lastHour - firstHour + 1))
	seasonal := math.Cos(2 * math.Pi * float64(t.YearDay()-196) / 365)
	v := p.base[site] + p.amplitude*diurnal + p.seasonal*seasonal + p.noise*rng.NormFloat64()
	return math.Round(max(v, 0)*1e4) / 1e4
}

func writeJSON(path string, v any) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return err
	}
	data = append(data, '\n')
	return os.WriteFile(path, data, 0o600)
}

// printStats logs per-site record counts and means of a comparison fixture.
func printStats(chem domain.Chemical, year int, cmp domain.Comparison) {
	fmt.Printf("\n=== %s %d ===\n", chem, year)
	fmt.Printf("  %-12s %8s %8s %8s\n", "site", "months", "records", "mean")
	for _, site := range domain.Sites {
		monthly := cmp[site]
		var sum float64
		for _, recs := range monthly {
			for _, rec := range recs {
				sum += rec.VerticalAmount
			}
		}
		mean := 0.0
		if n := monthly.Count(); n > 0 {
			mean = sum / float64(n)
		}
		fmt.Printf("  %-12s %8d %8d %8.4f\n", site, len(monthly.Months()), monthly.Count(), mean)
	}
}
