package render_test

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
	"unicode/utf8"

	"github.com/goccy/go-json"
	"github.com/m-mizutani/gt"
	"github.com/secmon-lab/caselens/pkg/domain/model"
	"github.com/secmon-lab/caselens/pkg/domain/types"
	"github.com/secmon-lab/caselens/pkg/service/aggregate"
	"github.com/secmon-lab/caselens/pkg/service/mapper"
	"github.com/secmon-lab/caselens/pkg/service/render"
)

var generatedAt = time.Date(2025, 3, 1, 9, 30, 0, 0, time.UTC)

func ptr(t time.Time) *time.Time { return &t }

func newResult(t *testing.T, cfg *model.ReportConfig, headers []string) *model.FileResult {
	t.Helper()
	ctx := context.Background()

	m, err := mapper.New(cfg.GetFieldsConfig()).Resolve(ctx, headers)
	gt.NoError(t, err).Required()

	cases := []model.Case{
		{ID: "1", Status: "Open", Severity: "1 - Critical", Product: "Alteon", BugRef: "AL-1", Engineer: "alice",
			CreatedAt: ptr(time.Date(2025, 1, 3, 0, 0, 0, 0, time.UTC))},
		{ID: "2", Status: "Closed", Severity: "2 - High", Product: "Alteon", BugRef: "N/A", Engineer: "bob",
			CreatedAt: ptr(time.Date(2025, 1, 15, 0, 0, 0, 0, time.UTC))},
		{ID: "3", Status: "Closed", Severity: "3 - Medium", Product: "DefensePro", BugRef: "N/A", Engineer: "alice",
			CreatedAt: ptr(time.Date(2025, 2, 10, 0, 0, 0, 0, time.UTC))},
		{ID: "4", Status: "Open", Severity: "4 - Low", Product: "DefensePro", BugRef: "N/A", Engineer: "alice",
			CreatedAt: ptr(time.Date(2025, 3, 20, 0, 0, 0, 0, time.UTC))},
	}

	return &model.FileResult{
		RunID:   types.RunID("run-1"),
		Input:   "/data/open cases_q1.csv",
		Success: true,
		Analysis: &model.FileAnalysis{
			Name:      "open cases_q1.csv",
			SizeBytes: 2048,
			Headers:   headers,
			Columns:   m.Columns(),
			Rows:      4,
			Warnings:  []model.Warning{{Row: 7, Message: "row has no case reference and is skipped"}},
		},
		Analytics: aggregate.New(cfg).Compute(ctx, cases, m),
	}
}

var defaultHeaders = []string{"Reference #", "Status", "Date Created", "Severity", "Product Hierarchy", "Experienced Bug", "Assigned Account"}

func TestFormatHelpers(t *testing.T) {
	t.Run("CleanFilename", func(t *testing.T) {
		testCases := map[string]string{
			"open cases.csv":         "open_cases.csv",
			`a<b>c:d"e/f\g|h?i*j`:    "a_b_c_d_e_f_g_h_i_j",
			"  ._report  2025_. ":    "report_2025",
			strings.Repeat("x", 150): strings.Repeat("x", 100),
		}
		for input, expected := range testCases {
			gt.Equal(t, render.CleanFilename(input), expected)
		}
	})

	t.Run("CleanFilename keeps multi-byte characters whole", func(t *testing.T) {
		got := render.CleanFilename("x" + strings.Repeat("é", 60))
		gt.True(t, utf8.ValidString(got))
		gt.Equal(t, got, "x"+strings.Repeat("é", 49))
	})

	t.Run("OutputBase", func(t *testing.T) {
		gt.Equal(t, render.OutputBase(&model.FileResult{Input: "/in/cases.csv"}), "cases")
		gt.Equal(t, render.OutputBase(&model.FileResult{Input: "/in/cases.csv", OutputName: "cases_csv"}), "cases_csv")
	})

	t.Run("BaseName and DisplayName", func(t *testing.T) {
		gt.Equal(t, render.BaseName("/in/Open Cases All.xlsx"), "Open_Cases_All")
		gt.Equal(t, render.BaseName("/in/....csv"), "report")
		gt.Equal(t, render.DisplayName("open_cases_q1"), "Open Cases Q1")
	})

	t.Run("FormatDuration", func(t *testing.T) {
		gt.Equal(t, render.FormatDuration(1500*time.Millisecond), "1.5 seconds")
		gt.Equal(t, render.FormatDuration(90*time.Second), "1.5 minutes")
		gt.Equal(t, render.FormatDuration(3*time.Hour), "3.0 hours")
		gt.Equal(t, render.FormatDuration(36*time.Hour), "1.5 days")
	})

	t.Run("numbers", func(t *testing.T) {
		gt.Equal(t, render.FormatNumber(1234567), "1,234,567")
		gt.Equal(t, render.FormatDecimal(12.0), "12")
		gt.Equal(t, render.FormatFileSize(2048), "2.0 KiB")
		gt.Equal(t, render.MonthLabel("2025-02"), "Feb 2025")
		gt.Equal(t, render.MonthLabel("bogus"), "bogus")
	})
}

func TestChartBuilder(t *testing.T) {
	cfg := model.DefaultReportConfig()
	b := render.NewChartBuilder(cfg)
	counts := model.Counts{{Label: "2 - High", Count: 3}, {Label: "Unknown", Count: 1}}

	t.Run("pie uses fixed colors and no hole", func(t *testing.T) {
		c := b.Distribution("sev", "Case Distribution by Severity", counts, types.ChartPie, cfg.GetSeveritiesConfig().Colors())
		gt.Equal(t, len(c.Figure.Data), 1)
		tr := c.Figure.Data[0]
		gt.Equal(t, tr.Type, "pie")
		gt.Equal(t, tr.Hole, 0.0)
		gt.Equal(t, tr.Marker.Colors[0], "#ff6b35")
		gt.Equal(t, tr.Marker.Colors[1], cfg.Charts.Colors()[1])
		gt.Equal(t, c.Figure.Layout.Annotations[0].Text, "Total Cases: 4")
	})

	t.Run("donut has a hole", func(t *testing.T) {
		c := b.Distribution("sev", "t", counts, types.ChartDonut, nil)
		gt.Equal(t, c.Figure.Data[0].Hole, 0.5)
	})

	t.Run("horizontal bar is reversed", func(t *testing.T) {
		c := b.Assignment("eng", "Cases by Assigned Engineer (Top 15)", "Engineer", counts, types.ChartHorizontalBar)
		gt.Equal(t, c.Figure.Data[0].Orientation, "h")
		gt.Equal(t, c.Figure.Layout.YAxis.AutoRange, "reversed")
		gt.Equal(t, c.Figure.Layout.YAxis.Title.Text, "Engineer")
	})

	t.Run("monthly trend line needs three months", func(t *testing.T) {
		m := &model.MonthlyTrends{
			Section: model.Section{Available: true},
			Months:  []model.MonthCount{{Month: "2025-01", Count: 1}, {Month: "2025-02", Count: 2}, {Month: "2025-03", Count: 3}},
			Trend:   aggregate.FitTrend([]float64{1, 2, 3}),
		}
		c := b.Monthly(m)
		gt.Equal(t, len(c.Figure.Data), 2)
		gt.Equal(t, c.Figure.Data[0].Type, "bar")
		gt.Equal(t, c.Figure.Data[1].Line.Dash, "dash")
		gt.Equal(t, c.Figure.Data[1].Line.Color, cfg.Charts.Colors()[2])

		m.Months = m.Months[:2]
		m.Trend = nil
		gt.Equal(t, len(b.Monthly(m).Figure.Data), 1)
	})

	t.Run("figure is a JSON object", func(t *testing.T) {
		c := b.Distribution("x", "t", counts, types.ChartBar, nil)
		spec, err := c.Spec()
		gt.NoError(t, err)

		var decoded map[string]any
		gt.NoError(t, json.Unmarshal([]byte(spec), &decoded))
		gt.V(t, decoded["data"]).NotNil()
		cfgValue := decoded["config"].(map[string]any)
		gt.Equal(t, cfgValue["displaylogo"], any(false))
	})
}

func TestHTMLRenderer(t *testing.T) {
	cfg := model.DefaultReportConfig()
	gt.NoError(t, cfg.Validate()).Required()
	r, err := render.NewHTMLRenderer(cfg)
	gt.NoError(t, err).Required()

	result := newResult(t, cfg, defaultHeaders)
	result.Narrative = &model.Narrative{Headline: "Volume is rising", Highlights: []string{"Alteon leads"}}

	var buf bytes.Buffer
	gt.NoError(t, r.Render(&buf, result, generatedAt)).Required()
	html := buf.String()

	for _, want := range []string{
		"<title>TAC Executive Report - Open Cases Q1</title>",
		"Period Analyzed:</strong> January 03, 2025 to March 20, 2025",
		"This report analyzes <strong>4 TAC cases</strong>",
		"<strong>Bug Impact:</strong> 25% of cases",
		"<strong>High Priority Cases:</strong> 2 critical and high severity cases",
		"Analyst Notes",
		"Volume is rising",
		"Monthly Case Volume Trends",
		`Plotly.newPlot("monthly_cases_chart"`,
		"Bug vs Non-Bug Cases",
		"Cases by Assigned Engineer (Top 15)",
		"No queue column found",
		"No internal case column found",
		"No case owner/full name column found",
		"open cases_q1.csv (2.0 KiB)",
		"Row 7",
		"Generated on 2025-03-01 09:30:00",
		render.PlotlyScriptURL,
	} {
		gt.S(t, html).Contains(want)
	}
	gt.False(t, strings.Contains(html, "Response Time:"))
}

func TestHTMLRendererRequiresAnalytics(t *testing.T) {
	r, err := render.NewHTMLRenderer(model.DefaultReportConfig())
	gt.NoError(t, err).Required()
	gt.Error(t, r.Render(&bytes.Buffer{}, &model.FileResult{Input: "x.csv"}, generatedAt))
}

func TestBatchSummary(t *testing.T) {
	cfg := model.DefaultReportConfig()
	r, err := render.NewHTMLRenderer(cfg)
	gt.NoError(t, err).Required()

	ok := newResult(t, cfg, defaultHeaders)
	ok.Duration = 2 * time.Second
	ok.Files = []model.GeneratedFile{{Format: types.OutputFormatHTML, Path: "/out/open_cases_q1_executive_report.html"}}

	batch := &model.BatchResult{
		StartedAt:  generatedAt,
		FinishedAt: generatedAt.Add(5 * time.Second),
		Results: []*model.FileResult{
			ok,
			{Input: "/data/broken.csv", Error: "required columns not found", Duration: time.Second},
		},
	}

	view := r.NewBatchView(batch, generatedAt)
	gt.Equal(t, len(view.Files), 2)
	gt.Equal(t, view.Files[0].Report, "open_cases_q1_executive_report.html")
	gt.Equal(t, view.Products.Get("Alteon"), 2)
	gt.Equal(t, view.Severities[0].Label, "1 - Critical")

	var buf bytes.Buffer
	gt.NoError(t, r.RenderBatch(&buf, batch, generatedAt)).Required()
	html := buf.String()
	gt.S(t, html).Contains("TAC Batch Processing Summary")
	gt.S(t, html).Contains("broken.csv</strong> - &#10007; Error: required columns not found")
	gt.S(t, html).Contains("Total processing time:</strong> 5.0 seconds")
}

func TestPublisher(t *testing.T) {
	ctx := context.Background()
	cfg := model.DefaultReportConfig()
	r, err := render.NewHTMLRenderer(cfg)
	gt.NoError(t, err).Required()

	// a browser that cannot run forces the instructions fallback
	pdf := render.NewPDFConverter(filepath.Join(t.TempDir(), "no-such-chromium"))

	t.Run("html and json", func(t *testing.T) {
		dir := t.TempDir()
		p := render.NewPublisher(r, pdf, dir)
		files, err := p.Publish(ctx, newResult(t, cfg, defaultHeaders), []types.OutputFormat{types.OutputFormatHTML, types.OutputFormatJSON}, generatedAt)
		gt.NoError(t, err).Required()
		gt.Equal(t, len(files), 2)
		gt.Equal(t, files[0].Path, filepath.Join(dir, "open_cases_q1"+render.HTMLSuffix))
		gt.Equal(t, files[1].Path, filepath.Join(dir, "open_cases_q1"+render.JSONSuffix))

		raw, err := os.ReadFile(files[1].Path)
		gt.NoError(t, err).Required()
		var export render.AnalyticsExport
		gt.NoError(t, json.Unmarshal(raw, &export))
		gt.Equal(t, export.RunID, types.RunID("run-1"))
		gt.Equal(t, export.Analytics.Summary.TotalCases, 4)
	})

	t.Run("pdf falls back to instructions and keeps html", func(t *testing.T) {
		dir := t.TempDir()
		p := render.NewPublisher(r, pdf, dir)
		files, err := p.Publish(ctx, newResult(t, cfg, defaultHeaders), []types.OutputFormat{types.OutputFormatPDF}, generatedAt)
		gt.NoError(t, err).Required()
		gt.Equal(t, len(files), 2)
		gt.Equal(t, files[0].Format, types.OutputFormatHTML)
		gt.Equal(t, files[1].Format, types.OutputFormatPDF)
		gt.True(t, files[1].Substitute)

		raw, err := os.ReadFile(filepath.Join(dir, "open_cases_q1"+render.InstructionsSuffix))
		gt.NoError(t, err).Required()
		gt.S(t, string(raw)).Contains("HTML Report Location: " + files[0].Path)
	})

	t.Run("batch summary name has timestamp", func(t *testing.T) {
		dir := t.TempDir()
		p := render.NewPublisher(r, pdf, dir)
		f, err := p.PublishBatch(ctx, &model.BatchResult{StartedAt: generatedAt, FinishedAt: generatedAt}, generatedAt)
		gt.NoError(t, err).Required()
		gt.Equal(t, filepath.Base(f.Path), "tac_batch_summary_20250301_093000.html")
		_, err = os.Stat(f.Path)
		gt.NoError(t, err)
	})
}
