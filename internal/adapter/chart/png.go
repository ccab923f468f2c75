// Package chart renders the dashboard views as static PNG images.
package chart

import (
	"fmt"
	"io"
	"time"

	chart "github.com/wcharczuk/go-chart/v2"
	"github.com/wcharczuk/go-chart/v2/drawing"

	"github.com/couchcryptid/pandora-dashboard/internal/domain"
)

const (
	timeSeriesWidth  = 1200
	timeSeriesHeight = 650
	comparisonHeight = 600

	dotWidth = 4

	// Horizontal spacing between site strips inside one month slot.
	stripOffset = 0.22
)

var grayDot = drawing.ColorFromHex("808080")

var background = chart.Style{Padding: chart.Box{Top: 40, Left: 20, Right: 20, Bottom: 20}}

// dotStyle renders points only, with no connecting line.
func dotStyle(col drawing.Color) chart.Style {
	return chart.Style{
		StrokeWidth: chart.Disabled,
		DotWidth:    dotWidth,
		DotColor:    col,
	}
}

// color resolves a marker color name. Names go-chart does not know fall
// back to gray.
func color(name string) drawing.Color {
	c := drawing.ParseColor(name)
	if c.IsZero() {
		return grayDot
	}
	return c
}

// TimeSeriesPNG writes the scatter of ts for site as a PNG.
func TimeSeriesPNG(w io.Writer, site domain.Site, r domain.Range, ts domain.TimeSeries, markerColor string) error {
	points, err := ts.Points()
	if err != nil {
		return fmt.Errorf("render time series: %w", err)
	}
	if len(points) == 0 {
		return renderEmpty(w, timeSeriesWidth, timeSeriesHeight)
	}

	xs := make([]time.Time, len(points))
	ys := make([]float64, len(points))
	for i, p := range points {
		xs[i] = p.Timestamp
		ys[i] = p.VerticalAmount
	}

	ch := chart.Chart{
		Title:      fmt.Sprintf("%s Vertical Amount (%s)", site, r.Label()),
		Width:      timeSeriesWidth,
		Height:     timeSeriesHeight,
		Background: background,
		XAxis: chart.XAxis{
			Name:           "EST Time",
			ValueFormatter: chart.TimeValueFormatterWithFormat("2006-01-02 15:04"),
		},
		YAxis: chart.YAxis{Name: "Total Column (micromole/m²)"},
		Series: []chart.Series{
			chart.TimeSeries{Name: site.String(), XValues: xs, YValues: ys, Style: dotStyle(color(markerColor))},
		},
	}
	if first, last := xs[0], xs[len(xs)-1]; first.Equal(last) {
		// A single instant has no x extent; widen it by an hour each side.
		ch.XAxis.Range = &chart.ContinuousRange{
			Min: chart.TimeToFloat64(first.Add(-time.Hour)),
			Max: chart.TimeToFloat64(last.Add(time.Hour)),
		}
	}
	ch.YAxis.Range = flatRange(ys)

	if err := ch.Render(chart.PNG, w); err != nil {
		return fmt.Errorf("render time series: %w", err)
	}
	return nil
}

// ComparisonPNG writes the monthly readings of every selected site with data
// as side-by-side dot strips, one per site within each month.
func ComparisonPNG(w io.Writer, selected []domain.Site, year int, cmp domain.Comparison) error {
	sites := domain.SitesWithData(selected, cmp)
	if len(sites) == 0 {
		return renderEmpty(w, domain.ComparisonWidth, comparisonHeight)
	}

	series := make([]chart.Series, 0, len(sites))
	var all []float64
	for i, site := range sites {
		offset := (float64(i) - float64(len(sites)-1)/2) * stripOffset
		months := cmp[site]
		xs := make([]float64, 0, months.Count())
		ys := make([]float64, 0, months.Count())
		for _, month := range months.Months() {
			for _, rec := range months[month] {
				xs = append(xs, float64(month)+offset)
				ys = append(ys, rec.VerticalAmount)
			}
		}
		all = append(all, ys...)
		series = append(series, chart.ContinuousSeries{
			Name:    site.String(),
			XValues: xs,
			YValues: ys,
			Style:   dotStyle(color(site.Color())),
		})
	}

	ch := chart.Chart{
		Title:      fmt.Sprintf("Monthly Distribution (%d)", year),
		Width:      domain.ComparisonWidth,
		Height:     comparisonHeight,
		Background: background,
		XAxis:      chart.XAxis{Name: "Month", Ticks: monthTicks()},
		YAxis:      chart.YAxis{Name: "Total Column (micromole/m²)", Range: flatRange(all)},
		Series:     series,
	}
	ch.Elements = []chart.Renderable{chart.Legend(&ch)}

	if err := ch.Render(chart.PNG, w); err != nil {
		return fmt.Errorf("render comparison: %w", err)
	}
	return nil
}

// monthTicks labels 1..12 and pads half a slot each side so the outer
// strips are not clipped.
func monthTicks() []chart.Tick {
	labels := []string{"Jan", "Feb", "Mar", "Apr", "May", "Jun", "Jul", "Aug", "Sep", "Oct", "Nov", "Dec"}
	ticks := make([]chart.Tick, 0, len(labels)+2)
	ticks = append(ticks, chart.Tick{Value: 0.5})
	for i, label := range labels {
		ticks = append(ticks, chart.Tick{Value: float64(i + 1), Label: label})
	}
	return append(ticks, chart.Tick{Value: 12.5})
}

// flatRange returns an explicit y range when every value is equal, which
// go-chart cannot scale on its own. Otherwise nil lets the chart decide.
func flatRange(ys []float64) chart.Range {
	if len(ys) == 0 {
		return nil
	}
	lo, hi := ys[0], ys[0]
	for _, y := range ys[1:] {
		lo = min(lo, y)
		hi = max(hi, y)
	}
	if lo != hi {
		return nil
	}
	return &chart.ContinuousRange{Min: lo - 1, Max: hi + 1}
}

// renderEmpty draws a titled, axis-less placeholder.
func renderEmpty(w io.Writer, width, height int) error {
	ch := chart.Chart{
		Title:      domain.NoDataTitle,
		Width:      width,
		Height:     height,
		Background: background,
		XAxis:      chart.XAxis{Style: chart.Style{Hidden: true}},
		YAxis:      chart.YAxis{Style: chart.Style{Hidden: true}},
		Series: []chart.Series{
			chart.ContinuousSeries{
				XValues: []float64{0, 1},
				YValues: []float64{0, 1},
				Style:   chart.Style{StrokeWidth: chart.Disabled, DotWidth: chart.Disabled},
			},
		},
	}
	if err := ch.Render(chart.PNG, w); err != nil {
		return fmt.Errorf("render placeholder: %w", err)
	}
	return nil
}
