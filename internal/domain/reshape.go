package domain

import (
	"fmt"
	"strings"
)

const (
	yAxisTitle = "Total Column (micromole/m²)"

	timeSeriesHover = "Date: %{customdata}<br>Total Column: %{y:.3f}<extra></extra>"
	comparisonHover = "Date: %{customdata}<br>Value: %{y:.3f}<extra></extra>"

	// NoDataTitle replaces the distribution title when no selected site
	// has readings for the year.
	NoDataTitle = "No Data Available"
)

// ComparisonWidth is fixed for the full site list so toggling sites does
// not resize the plot.
var ComparisonWidth = 470 + len(Sites)*270

var monthLabels = []string{"Jan", "Feb", "Mar", "Apr", "May", "Jun", "Jul", "Aug", "Sep", "Oct", "Nov", "Dec"}

var plotMargin = Margin{L: 80, R: 50, B: 80, T: 50, Pad: 10}

// TimeSeriesFigure builds the scatter figure straight from the response
// arrays. The arrays are not copied or reordered.
func TimeSeriesFigure(site Site, r Range, ts TimeSeries, markerColor string) Figure {
	x := ts.Datetime
	if x == nil {
		x = []string{}
	}
	y := ts.VerticalAmount
	if y == nil {
		y = []float64{}
	}
	trace := ScatterTrace{
		Type:       "scatter",
		Mode:       "markers",
		Name:       site.String(),
		X:          x,
		Y:          y,
		CustomData: x,
		Marker: Marker{
			Color: markerColor,
			Line:  &MarkerLine{Color: "white", Width: 0.1},
		},
		HoverTemplate: timeSeriesHover,
	}
	return Figure{
		Data: []Trace{trace},
		Layout: Layout{
			Width:  1200,
			Height: 650,
			Title:  fmt.Sprintf("Vertical Amount (%s)", strings.ToUpper(r.String())),
			XAxis:  Axis{Title: AxisTitle{Text: "EST Time", Standoff: 10}, AutoMargin: true},
			YAxis:  Axis{Title: AxisTitle{Text: yAxisTitle, Standoff: 10}, AutoMargin: true},
			Margin: plotMargin,
		},
	}
}

// SitesWithData keeps the selected sites, in selection order, that have at
// least one non-empty month in the response.
func SitesWithData(selected []Site, cmp Comparison) []Site {
	var out []Site
	for _, site := range selected {
		if cmp[site].HasData() {
			out = append(out, site)
		}
	}
	return out
}

// ComparisonFigure flattens the nested response into one box trace per site
// with data. Months are visited in ascending order; every record contributes
// its month to x, its amount to y and its date to customdata.
func ComparisonFigure(selected []Site, year int, cmp Comparison) Figure {
	sites := SitesWithData(selected, cmp)

	data := make([]Trace, 0, len(sites))
	for _, site := range sites {
		months := cmp[site]
		n := months.Count()
		trace := BoxTrace{
			Type:          "box",
			Name:          site.String(),
			X:             make([]int, 0, n),
			Y:             make([]float64, 0, n),
			CustomData:    make([]string, 0, n),
			Marker:        Marker{Color: site.Color()},
			BoxPoints:     "outliers",
			LegendGroup:   site.String(),
			ShowLegend:    true,
			HoverInfo:     "y+name",
			HoverTemplate: comparisonHover,
		}
		for _, month := range months.Months() {
			for _, rec := range months[month] {
				trace.X = append(trace.X, month)
				trace.Y = append(trace.Y, rec.VerticalAmount)
				trace.CustomData = append(trace.CustomData, rec.Date)
			}
		}
		data = append(data, trace)
	}

	title := NoDataTitle
	if len(sites) > 0 {
		title = fmt.Sprintf("Monthly Distribution (%d)", year)
	}

	tickVals := make([]int, len(monthLabels))
	for i := range tickVals {
		tickVals[i] = i + 1
	}

	return Figure{
		Data: data,
		Layout: Layout{
			Width:       ComparisonWidth,
			Height:      600,
			Title:       title,
			BoxMode:     "group",
			BoxGroupGap: 0.15,
			BoxGap:      0.05,
			XAxis:       Axis{Title: AxisTitle{Text: "Month"}, TickVals: tickVals, TickText: monthLabels},
			YAxis:       Axis{Title: AxisTitle{Text: yAxisTitle, Standoff: 10}, AutoMargin: true},
			Margin:      plotMargin,
		},
	}
}
