package types

import (
	"strings"

	"github.com/m-mizutani/goerr/v2"
)

// OutputFormat represents a generated report file format
type OutputFormat string

const (
	OutputFormatHTML OutputFormat = "html"
	OutputFormatPDF  OutputFormat = "pdf"
	OutputFormatJSON OutputFormat = "json"
)

// String returns the string representation of the format
func (f OutputFormat) String() string {
	return string(f)
}

// IsValid checks if the format is supported
func (f OutputFormat) IsValid() bool {
	switch f {
	case OutputFormatHTML, OutputFormatPDF, OutputFormatJSON:
		return true
	default:
		return false
	}
}

// ParseFormats parses a comma separated format list. "both" expands to html and pdf.
// Duplicates are removed and the input order is kept.
func ParseFormats(s string) ([]OutputFormat, error) {
	var result []OutputFormat
	seen := make(map[OutputFormat]bool)
	add := func(f OutputFormat) {
		if !seen[f] {
			seen[f] = true
			result = append(result, f)
		}
	}

	for _, part := range strings.Split(s, ",") {
		name := strings.ToLower(strings.TrimSpace(part))
		if name == "" {
			continue
		}
		if name == "both" {
			add(OutputFormatHTML)
			add(OutputFormatPDF)
			continue
		}

		f := OutputFormat(name)
		if !f.IsValid() {
			return nil, goerr.New("unsupported output format", goerr.V("format", part))
		}
		add(f)
	}

	if len(result) == 0 {
		return nil, goerr.New("no output format given", goerr.V("input", s))
	}
	return result, nil
}

// ChartType represents how a chart is drawn
type ChartType string

const (
	ChartLine          ChartType = "line"
	ChartBar           ChartType = "bar"
	ChartArea          ChartType = "area"
	ChartPie           ChartType = "pie"
	ChartDonut         ChartType = "donut"
	ChartHorizontalBar ChartType = "horizontal_bar"
)

// String returns the string representation of the chart type
func (c ChartType) String() string {
	return string(c)
}

// IsValid checks if the chart type is supported
func (c ChartType) IsValid() bool {
	switch c {
	case ChartLine, ChartBar, ChartArea, ChartPie, ChartDonut, ChartHorizontalBar:
		return true
	default:
		return false
	}
}

// IsCircular returns true for chart types drawn as a pie
func (c ChartType) IsCircular() bool {
	return c == ChartPie || c == ChartDonut
}
