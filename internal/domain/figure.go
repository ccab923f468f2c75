package domain

// Figure is a Plotly figure: traces plus layout, serialized as-is for
// Plotly.react in the browser.
type Figure struct {
	Data   []Trace `json:"data"`
	Layout Layout  `json:"layout"`
}

// Trace is one Plotly trace.
type Trace interface {
	TraceType() string
}

type Marker struct {
	Color string      `json:"color,omitempty"`
	Line  *MarkerLine `json:"line,omitempty"`
}

type MarkerLine struct {
	Color string  `json:"color"`
	Width float64 `json:"width"`
}

// ScatterTrace is a markers-only time-series trace.
type ScatterTrace struct {
	Type          string    `json:"type"`
	Mode          string    `json:"mode"`
	Name          string    `json:"name"`
	X             []string  `json:"x"`
	Y             []float64 `json:"y"`
	CustomData    []string  `json:"customdata"`
	Marker        Marker    `json:"marker"`
	HoverTemplate string    `json:"hovertemplate"`
}

func (ScatterTrace) TraceType() string { return "scatter" }

// BoxTrace is one site's monthly distribution. Quartiles, whiskers and
// outliers are computed by Plotly from X/Y.
type BoxTrace struct {
	Type          string    `json:"type"`
	Name          string    `json:"name"`
	X             []int     `json:"x"`
	Y             []float64 `json:"y"`
	CustomData    []string  `json:"customdata"`
	Marker        Marker    `json:"marker"`
	BoxPoints     string    `json:"boxpoints"`
	LegendGroup   string    `json:"legendgroup"`
	ShowLegend    bool      `json:"showlegend"`
	HoverInfo     string    `json:"hoverinfo"`
	HoverTemplate string    `json:"hovertemplate"`
}

func (BoxTrace) TraceType() string { return "box" }

type Layout struct {
	Width       int     `json:"width"`
	Height      int     `json:"height"`
	Title       string  `json:"title"`
	BoxMode     string  `json:"boxmode,omitempty"`
	BoxGroupGap float64 `json:"boxgroupgap,omitempty"`
	BoxGap      float64 `json:"boxgap,omitempty"`
	XAxis       Axis    `json:"xaxis"`
	YAxis       Axis    `json:"yaxis"`
	Margin      Margin  `json:"margin"`
}

type Axis struct {
	Title      AxisTitle `json:"title"`
	AutoMargin bool      `json:"automargin,omitempty"`
	TickVals   []int     `json:"tickvals,omitempty"`
	TickText   []string  `json:"ticktext,omitempty"`
}

type AxisTitle struct {
	Text     string `json:"text"`
	Standoff int    `json:"standoff,omitempty"`
}

type Margin struct {
	L   int `json:"l"`
	R   int `json:"r"`
	B   int `json:"b"`
	T   int `json:"t"`
	Pad int `json:"pad"`
}
