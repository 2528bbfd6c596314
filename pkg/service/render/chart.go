package render

import (
	"fmt"
	"html/template"
	"time"

	"github.com/goccy/go-json"
	"github.com/m-mizutani/goerr/v2"
	"github.com/secmon-lab/caselens/pkg/domain/model"
	"github.com/secmon-lab/caselens/pkg/domain/types"
)

// PlotlyScriptURL is the Plotly bundle loaded by generated reports
const PlotlyScriptURL = "https://cdn.plot.ly/plotly-2.35.2.min.js"

const (
	chartWidth  = 900
	chartHeight = 600
)

// Figure is a Plotly figure: traces, layout and config
type Figure struct {
	Data   []Trace `json:"data"`
	Layout Layout  `json:"layout"`
	Config Config  `json:"config"`
}

// Trace is one Plotly trace. Only the attributes used by reports are modeled.
type Trace struct {
	Type          string   `json:"type"`
	Name          string   `json:"name,omitempty"`
	X             any      `json:"x,omitempty"`
	Y             any      `json:"y,omitempty"`
	Labels        []string `json:"labels,omitempty"`
	Values        []int    `json:"values,omitempty"`
	Hole          float64  `json:"hole,omitempty"`
	Orientation   string   `json:"orientation,omitempty"`
	Mode          string   `json:"mode,omitempty"`
	Fill          string   `json:"fill,omitempty"`
	Text          []int    `json:"text,omitempty"`
	TextPosition  string   `json:"textposition,omitempty"`
	TextInfo      string   `json:"textinfo,omitempty"`
	Marker        *Marker  `json:"marker,omitempty"`
	Line          *Line    `json:"line,omitempty"`
	HoverTemplate string   `json:"hovertemplate,omitempty"`
}

// Marker sets trace colors. Bars use Color, pies use Colors.
type Marker struct {
	Color  any      `json:"color,omitempty"`
	Colors []string `json:"colors,omitempty"`
	Size   int      `json:"size,omitempty"`
	Line   *Line    `json:"line,omitempty"`
}

type Line struct {
	Color string `json:"color,omitempty"`
	Width int    `json:"width,omitempty"`
	Dash  string `json:"dash,omitempty"`
}

type Layout struct {
	Title       Text         `json:"title"`
	Font        Font         `json:"font"`
	Width       int          `json:"width,omitempty"`
	Height      int          `json:"height,omitempty"`
	PaperColor  string       `json:"paper_bgcolor,omitempty"`
	PlotColor   string       `json:"plot_bgcolor,omitempty"`
	ShowLegend  bool         `json:"showlegend"`
	XAxis       *Axis        `json:"xaxis,omitempty"`
	YAxis       *Axis        `json:"yaxis,omitempty"`
	Margin      Margin       `json:"margin"`
	Annotations []Annotation `json:"annotations,omitempty"`
}

type Text struct {
	Text string `json:"text"`
}

type Font struct {
	Family string `json:"family"`
	Size   int    `json:"size"`
}

type Axis struct {
	Title      Text   `json:"title"`
	RangeMode  string `json:"rangemode,omitempty"`
	AutoRange  string `json:"autorange,omitempty"`
	Automargin bool   `json:"automargin,omitempty"`
}

type Margin struct {
	L int `json:"l"`
	R int `json:"r"`
	T int `json:"t"`
	B int `json:"b"`
}

type Annotation struct {
	Text      string  `json:"text"`
	X         float64 `json:"x"`
	Y         float64 `json:"y"`
	XRef      string  `json:"xref"`
	YRef      string  `json:"yref"`
	ShowArrow bool    `json:"showarrow"`
}

// Config is the Plotly display config shared by all charts
type Config struct {
	Responsive             bool     `json:"responsive"`
	DisplayLogo            bool     `json:"displaylogo"`
	ModeBarButtonsToRemove []string `json:"modeBarButtonsToRemove"`
}

// Chart is a figure ready to be embedded into a report
type Chart struct {
	ID     string
	Figure Figure
}

// Spec returns the figure as a JavaScript object literal
func (c *Chart) Spec() (template.JS, error) {
	raw, err := json.Marshal(c.Figure)
	if err != nil {
		return "", goerr.Wrap(err, "failed to encode chart", goerr.V("id", c.ID))
	}
	return template.JS(raw), nil
}

// ChartBuilder creates figures following the configured chart types and colors
type ChartBuilder struct {
	charts         model.ChartsConfig
	palette        []string
	severityColors map[string]string
}

// NewChartBuilder creates a ChartBuilder
func NewChartBuilder(cfg *model.ReportConfig) *ChartBuilder {
	palette := cfg.Charts.Colors()
	if len(palette) == 0 {
		palette = model.DefaultPalettes()[model.DefaultPalette]
	}
	return &ChartBuilder{
		charts:         cfg.Charts,
		palette:        palette,
		severityColors: cfg.GetSeveritiesConfig().Colors(),
	}
}

func (x *ChartBuilder) color(i int) string {
	return x.palette[i%len(x.palette)]
}

// colors returns one color per label, preferring fixed colors over the palette
func (x *ChartBuilder) colors(labels []string, fixed map[string]string) []string {
	result := make([]string, len(labels))
	for i, label := range labels {
		if c, ok := fixed[label]; ok {
			result[i] = c
		} else {
			result[i] = x.color(i)
		}
	}
	return result
}

func baseLayout(title string) Layout {
	return Layout{
		Title:      Text{Text: title},
		Font:       Font{Family: "Arial, sans-serif", Size: 12},
		Width:      chartWidth,
		Height:     chartHeight,
		PaperColor: "white",
		PlotColor:  "white",
		Margin:     Margin{L: 40, R: 40, T: 100, B: 80},
	}
}

func baseConfig() Config {
	return Config{
		Responsive:             true,
		DisplayLogo:            false,
		ModeBarButtonsToRemove: []string{"pan2d", "select2d", "lasso2d", "autoScale2d"},
	}
}

// MonthLabel formats a YYYY-MM bucket as "Jan 2006"
func MonthLabel(month string) string {
	t, err := time.Parse("2006-01", month)
	if err != nil {
		return month
	}
	return t.Format("Jan 2006")
}

// Monthly creates the case volume chart with an optional dashed trend line
func (x *ChartBuilder) Monthly(m *model.MonthlyTrends) *Chart {
	labels := make([]string, len(m.Months))
	values := make([]int, len(m.Months))
	for i, mc := range m.Months {
		labels[i] = MonthLabel(mc.Month)
		values[i] = mc.Count
	}

	primary := x.color(0)
	fig := Figure{Layout: baseLayout("TAC Cases Created by Month"), Config: baseConfig()}
	fig.Layout.ShowLegend = true
	fig.Layout.XAxis = &Axis{Title: Text{Text: "Month"}}
	fig.Layout.YAxis = &Axis{Title: Text{Text: "Number of Cases"}, RangeMode: "tozero"}

	switch x.charts.MonthlyTrends {
	case types.ChartBar:
		fig.Data = append(fig.Data, Trace{
			Type:          "bar",
			Name:          "Cases Created",
			X:             labels,
			Y:             values,
			Text:          values,
			TextPosition:  "outside",
			Marker:        &Marker{Color: primary},
			HoverTemplate: "<b>%{x}</b><br>Cases: %{y}<extra></extra>",
		})
	case types.ChartArea:
		fig.Data = append(fig.Data, Trace{
			Type:          "scatter",
			Name:          "Cases Created",
			X:             labels,
			Y:             values,
			Mode:          "lines+markers",
			Fill:          "tozeroy",
			Line:          &Line{Color: primary, Width: 2},
			Marker:        &Marker{Color: primary, Size: 6},
			HoverTemplate: "<b>%{x}</b><br>Cases: %{y}<extra></extra>",
		})
	default:
		fig.Data = append(fig.Data, Trace{
			Type:          "scatter",
			Name:          "Cases Created",
			X:             labels,
			Y:             values,
			Mode:          "lines+markers",
			Line:          &Line{Color: primary, Width: 3},
			Marker:        &Marker{Color: primary, Size: 8},
			HoverTemplate: "<b>%{x}</b><br>Cases: %{y}<extra></extra>",
		})
	}

	if x.charts.ShowTrend && m.Trend != nil && len(values) > 2 {
		trend := make([]float64, len(values))
		for i := range values {
			trend[i] = model.Round1(m.Trend.At(i))
		}
		fig.Data = append(fig.Data, Trace{
			Type:          "scatter",
			Name:          "Trend",
			X:             labels,
			Y:             trend,
			Mode:          "lines",
			Line:          &Line{Color: x.color(2), Width: 2, Dash: "dash"},
			HoverTemplate: "Trend: %{y:.1f}<extra></extra>",
		})
	}

	return &Chart{ID: "monthly_cases_chart", Figure: fig}
}

// Distribution creates a pie, donut or bar chart of a breakdown
func (x *ChartBuilder) Distribution(id, title string, counts model.Counts, chartType types.ChartType, fixed map[string]string) *Chart {
	labels := counts.Labels()
	values := counts.Values()
	colors := x.colors(labels, fixed)

	fig := Figure{Layout: baseLayout(title), Config: baseConfig()}

	switch chartType {
	case types.ChartPie, types.ChartDonut:
		hole := 0.0
		if chartType == types.ChartDonut {
			hole = 0.5
		}
		fig.Data = append(fig.Data, Trace{
			Type:          "pie",
			Labels:        labels,
			Values:        values,
			Hole:          hole,
			TextInfo:      "label+value",
			TextPosition:  "outside",
			Marker:        &Marker{Colors: colors, Line: &Line{Color: "white", Width: 3}},
			HoverTemplate: "<b>%{label}</b><br>Cases: <b>%{value}</b><br>Percentage: <b>%{percent}</b><br><extra></extra>",
		})
		fig.Layout.ShowLegend = true
		fig.Layout.Annotations = []Annotation{{
			Text: fmt.Sprintf("Total Cases: %d", counts.Total()),
			X:    0.5,
			Y:    -0.15,
			XRef: "paper",
			YRef: "paper",
		}}

	case types.ChartHorizontalBar:
		fig.Data = append(fig.Data, Trace{
			Type:          "bar",
			X:             values,
			Y:             labels,
			Orientation:   "h",
			Text:          values,
			TextPosition:  "outside",
			Marker:        &Marker{Color: colors},
			HoverTemplate: "<b>%{y}</b><br>Cases: %{x}<extra></extra>",
		})
		fig.Layout.XAxis = &Axis{Title: Text{Text: "Number of Cases"}, RangeMode: "tozero"}
		fig.Layout.YAxis = &Axis{Title: Text{Text: "Category"}, AutoRange: "reversed", Automargin: true}

	default:
		fig.Data = append(fig.Data, Trace{
			Type:          "bar",
			X:             labels,
			Y:             values,
			Text:          values,
			TextPosition:  "outside",
			Marker:        &Marker{Color: colors},
			HoverTemplate: "<b>%{x}</b><br>Cases: %{y}<extra></extra>",
		})
		fig.Layout.XAxis = &Axis{Title: Text{Text: "Category"}, Automargin: true}
		fig.Layout.YAxis = &Axis{Title: Text{Text: "Number of Cases"}, RangeMode: "tozero"}
	}

	return &Chart{ID: id, Figure: fig}
}

// Assignment creates a bar chart of the top N people by case count
func (x *ChartBuilder) Assignment(id, title, axis string, counts model.Counts, chartType types.ChartType) *Chart {
	top := counts.Top(x.charts.TopN)
	chart := x.Distribution(id, title, top, chartType, nil)
	switch {
	case chartType == types.ChartHorizontalBar && chart.Figure.Layout.YAxis != nil:
		chart.Figure.Layout.YAxis.Title = Text{Text: axis}
	case chart.Figure.Layout.XAxis != nil:
		chart.Figure.Layout.XAxis.Title = Text{Text: axis}
	}
	return chart
}
