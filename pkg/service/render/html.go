package render

import (
	"embed"
	"html/template"
	"io"
	"path/filepath"
	"sort"
	"time"

	"github.com/m-mizutani/goerr/v2"
	"github.com/secmon-lab/caselens/pkg/domain/model"
	"github.com/secmon-lab/caselens/pkg/domain/types"
	"github.com/secmon-lab/caselens/pkg/service/aggregate"
)

//go:embed templates/*.html templates/*.css
var templateFS embed.FS

// maxWarnings is the number of data quality notes listed in a report
const maxWarnings = 50

// ReportView is the data of one HTML report
type ReportView struct {
	Title        string
	Subtitle     string
	SourceName   string
	GeneratedAt  time.Time
	Analytics    *model.Analytics
	Analysis     *model.FileAnalysis
	Narrative    *model.Narrative
	Sections     []Section
	Warnings     []model.Warning
	MoreWarnings int
}

// BatchFile is one row of the batch summary
type BatchFile struct {
	Name     string
	Success  bool
	Error    string
	Duration time.Duration
	Report   string
}

// BatchView is the data of the batch summary page
type BatchView struct {
	GeneratedAt time.Time
	Batch       *model.BatchResult
	Files       []BatchFile
	Products    model.Counts
	Severities  model.Counts
}

// HTMLRenderer renders reports and batch summaries from embedded templates
type HTMLRenderer struct {
	title      string
	charts     *ChartBuilder
	severities *model.SeveritiesConfig
	report     *template.Template
	batch      *template.Template
}

// NewHTMLRenderer parses the embedded templates
func NewHTMLRenderer(cfg *model.ReportConfig) (*HTMLRenderer, error) {
	css, err := templateFS.ReadFile("templates/report.css")
	if err != nil {
		return nil, goerr.Wrap(err, "failed to read stylesheet")
	}

	funcs := template.FuncMap{
		"stylesheet": func() template.CSS { return template.CSS(css) },
		"plotlyURL":  func() string { return PlotlyScriptURL },
		"number":     FormatNumber,
		"decimal1":   func(v float64) string { return FormatDecimal(model.Round1(v)) },
		"size":       FormatFileSize,
		"duration":   FormatDuration,
		"datetime":   func(t time.Time) string { return t.Format("2006-01-02 15:04:05") },
		"date": func(t *time.Time) string {
			if t == nil {
				return "Unknown"
			}
			return t.Format("January 02, 2006")
		},
	}

	report, err := template.New("report.html").Funcs(funcs).ParseFS(templateFS, "templates/report.html")
	if err != nil {
		return nil, goerr.Wrap(err, "failed to parse report template")
	}
	batch, err := template.New("batch.html").Funcs(funcs).ParseFS(templateFS, "templates/batch.html")
	if err != nil {
		return nil, goerr.Wrap(err, "failed to parse batch template")
	}

	title := cfg.Title
	if title == "" {
		title = model.DefaultReportConfig().Title
	}

	return &HTMLRenderer{
		title:      title,
		charts:     NewChartBuilder(cfg),
		severities: cfg.GetSeveritiesConfig(),
		report:     report,
		batch:      batch,
	}, nil
}

// NewReportView assembles the view of a processed file
func (x *HTMLRenderer) NewReportView(result *model.FileResult, generatedAt time.Time) (*ReportView, error) {
	if result.Analytics == nil || result.Analysis == nil {
		return nil, goerr.New("result has no analytics", goerr.V("input", result.Input))
	}

	base := BaseName(result.Input)
	view := &ReportView{
		Title:       x.title,
		Subtitle:    DisplayName(base),
		SourceName:  filepath.Base(result.Input),
		GeneratedAt: generatedAt,
		Analytics:   result.Analytics,
		Analysis:    result.Analysis,
		Narrative:   result.Narrative,
		Sections:    x.charts.Sections(result.Analytics),
		Warnings:    result.Analysis.Warnings,
	}
	if len(view.Warnings) > maxWarnings {
		view.MoreWarnings = len(view.Warnings) - maxWarnings
		view.Warnings = view.Warnings[:maxWarnings]
	}
	return view, nil
}

// Render writes the HTML report of a processed file
func (x *HTMLRenderer) Render(w io.Writer, result *model.FileResult, generatedAt time.Time) error {
	view, err := x.NewReportView(result, generatedAt)
	if err != nil {
		return err
	}
	if err := x.report.Execute(w, view); err != nil {
		return goerr.Wrap(err, "failed to render report", goerr.V("input", result.Input))
	}
	return nil
}

// NewBatchView assembles the batch summary, adding up products and severities
// over all successful files
func (x *HTMLRenderer) NewBatchView(batch *model.BatchResult, generatedAt time.Time) *BatchView {
	view := &BatchView{GeneratedAt: generatedAt, Batch: batch}

	products := make(map[string]int)
	severities := make(map[string]int)
	total := 0
	for _, r := range batch.Results {
		f := BatchFile{
			Name:     filepath.Base(r.Input),
			Success:  r.Success,
			Error:    r.Error,
			Duration: r.Duration,
		}
		for _, g := range r.Files {
			if g.Format == types.OutputFormatHTML && !g.Substitute {
				f.Report = filepath.Base(g.Path)
			}
		}
		view.Files = append(view.Files, f)

		if !r.Success || r.Analytics == nil {
			continue
		}
		total += r.Analytics.Summary.TotalCases
		if r.Analytics.Product.Available {
			for _, c := range r.Analytics.Product.Counts {
				products[c.Label] += c.Count
			}
		}
		if r.Analytics.Severity.Available {
			for _, c := range r.Analytics.Severity.Counts {
				severities[c.Label] += c.Count
			}
		}
	}

	view.Products = aggregate.Rank(products, total)
	view.Severities = aggregate.Rank(severities, total)
	sort.SliceStable(view.Severities, func(i, j int) bool {
		return x.severities.Rank(view.Severities[i].Label) < x.severities.Rank(view.Severities[j].Label)
	})
	return view
}

// RenderBatch writes the batch summary page
func (x *HTMLRenderer) RenderBatch(w io.Writer, batch *model.BatchResult, generatedAt time.Time) error {
	if err := x.batch.Execute(w, x.NewBatchView(batch, generatedAt)); err != nil {
		return goerr.Wrap(err, "failed to render batch summary")
	}
	return nil
}
