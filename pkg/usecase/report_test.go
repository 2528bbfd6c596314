package usecase_test

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/m-mizutani/goerr/v2"
	"github.com/m-mizutani/gt"
	"github.com/secmon-lab/caselens/pkg/domain/interfaces/mocks"
	"github.com/secmon-lab/caselens/pkg/domain/model"
	"github.com/secmon-lab/caselens/pkg/domain/types"
	"github.com/secmon-lab/caselens/pkg/repository"
	"github.com/secmon-lab/caselens/pkg/service/render"
	"github.com/secmon-lab/caselens/pkg/usecase"
)

const sampleCSV = "Reference #,Subject,Status,Date Created,Severity,Product Hierarchy,Experienced Bug,Assigned Account\n" +
	"CS-1,Login fails,Open,2025-01-05,1,Alteon,AL-100,Alice\n" +
	"CS-2,Slow dashboard,Closed,2025-01-20,high,CyberController,,Bob\n" +
	"CS-3,Config question,Closed,2025-02-11,3,Alteon,,Alice\n" +
	"CS-4,Crash on boot,Open,2025-03-02,critical,DefensePro,DP-7,Carol\n"

type fakeNarrator struct {
	narrative *model.Narrative
	err       error
	titles    []string
}

func (x *fakeNarrator) Narrate(ctx context.Context, title string, analytics *model.Analytics) (*model.Narrative, error) {
	x.titles = append(x.titles, title)
	return x.narrative, x.err
}

type fakeNotifier struct {
	mu      sync.Mutex
	results []*model.FileResult
	err     error
}

func (x *fakeNotifier) NotifyReport(ctx context.Context, result *model.FileResult) error {
	x.mu.Lock()
	defer x.mu.Unlock()
	x.results = append(x.results, result)
	return x.err
}

func writeInput(t *testing.T, dir, name, data string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	gt.NoError(t, os.WriteFile(path, []byte(data), 0o644)).Required()
	return path
}

func newReporter(t *testing.T, outDir string, opts ...usecase.ReporterOption) *usecase.Reporter {
	t.Helper()
	cfg := model.DefaultReportConfig()
	html, err := render.NewHTMLRenderer(cfg)
	gt.NoError(t, err).Required()
	pdf := render.NewPDFConverter(filepath.Join(t.TempDir(), "no-such-chromium"))
	clock := func() time.Time { return time.Date(2025, 4, 1, 9, 30, 0, 0, time.UTC) }
	opts = append([]usecase.ReporterOption{usecase.WithClock(clock)}, opts...)
	return usecase.NewReporter(cfg, render.NewPublisher(html, pdf, outDir), opts...)
}

func TestReporter_ProcessFile(t *testing.T) {
	ctx := context.Background()

	t.Run("generates report and archives run", func(t *testing.T) {
		inDir, outDir := t.TempDir(), t.TempDir()
		path := writeInput(t, inDir, "Acme Cases.csv", sampleCSV)

		archive := repository.NewMemory()
		notifier := &fakeNotifier{}
		narrator := &fakeNarrator{narrative: &model.Narrative{Headline: "Alteon leads case volume.", Highlights: []string{"Two critical cases."}}}
		reporter := newReporter(t, outDir,
			usecase.WithArchive(archive),
			usecase.WithNotifier(notifier),
			usecase.WithNarrator(narrator),
		)

		result := reporter.ProcessFile(ctx, path, []types.OutputFormat{types.OutputFormatHTML, types.OutputFormatJSON})
		gt.True(t, result.Success)
		gt.Equal(t, result.Error, "")
		gt.Equal(t, result.Analytics.Summary.TotalCases, 4)
		gt.Equal(t, result.Analytics.HighPriorityCases, 3)
		gt.Equal(t, result.Analysis.Name, "Acme Cases.csv")
		gt.Equal(t, result.Analysis.Rows, 4)
		gt.Equal(t, result.Narrative.Headline, "Alteon leads case volume.")
		gt.Equal(t, narrator.titles, []string{"TAC Executive Report"})

		gt.Equal(t, len(result.Files), 2)
		gt.Equal(t, result.Files[0].Path, filepath.Join(outDir, "Acme_Cases"+render.HTMLSuffix))
		for _, f := range result.Files {
			_, err := os.Stat(f.Path)
			gt.NoError(t, err)
		}

		html, err := os.ReadFile(result.Files[0].Path)
		gt.NoError(t, err).Required()
		gt.S(t, string(html)).Contains("Alteon leads case volume.")

		record, err := archive.GetRun(ctx, result.RunID)
		gt.NoError(t, err).Required()
		gt.Equal(t, record.SourceFile, "Acme Cases.csv")
		gt.Equal(t, record.TotalCases, 4)

		gt.Equal(t, len(notifier.results), 1)
		gt.Equal(t, notifier.results[0].RunID, result.RunID)
	})

	t.Run("optional failures do not fail the report", func(t *testing.T) {
		inDir, outDir := t.TempDir(), t.TempDir()
		path := writeInput(t, inDir, "cases.csv", sampleCSV)

		reporter := newReporter(t, outDir,
			usecase.WithNarrator(&fakeNarrator{err: errors.New("quota exceeded")}),
			usecase.WithNotifier(&fakeNotifier{err: errors.New("channel_not_found")}),
		)

		result := reporter.ProcessFile(ctx, path, nil)
		gt.True(t, result.Success)
		gt.Nil(t, result.Narrative)
		// configured default format
		gt.Equal(t, len(result.Files), 1)
		gt.Equal(t, result.Files[0].Format, types.OutputFormatHTML)
	})

	t.Run("archive failure does not fail the report", func(t *testing.T) {
		inDir, outDir := t.TempDir(), t.TempDir()
		path := writeInput(t, inDir, "cases.csv", sampleCSV)

		archive := &mocks.ArchiveMock{
			PutRunFunc: func(ctx context.Context, run *model.RunRecord) error {
				return errors.New("database is locked")
			},
		}
		result := newReporter(t, outDir, usecase.WithArchive(archive)).ProcessFile(ctx, path, nil)
		gt.True(t, result.Success)

		calls := archive.PutRunCalls()
		gt.Equal(t, len(calls), 1)
		gt.Equal(t, calls[0].Run.ID, result.RunID)
		gt.Equal(t, calls[0].Run.TotalCases, 4)
		gt.Equal(t, calls[0].Run.HighPriority, 3)
		gt.True(t, calls[0].Run.GeneratedAt.Equal(time.Date(2025, 4, 1, 9, 30, 0, 0, time.UTC)))
	})

	t.Run("missing required column", func(t *testing.T) {
		inDir, outDir := t.TempDir(), t.TempDir()
		path := writeInput(t, inDir, "cases.csv", "Subject,Owner\nLogin fails,Alice\n")
		notifier := &fakeNotifier{}

		result := newReporter(t, outDir, usecase.WithNotifier(notifier)).ProcessFile(ctx, path, nil)
		gt.False(t, result.Success)
		gt.S(t, result.Error).Contains("required columns not found")
		gt.Equal(t, len(result.Files), 0)
		gt.Equal(t, len(notifier.results), 1)
	})

	t.Run("missing file", func(t *testing.T) {
		result := newReporter(t, t.TempDir()).ProcessFile(ctx, filepath.Join(t.TempDir(), "none.csv"), nil)
		gt.False(t, result.Success)
		gt.S(t, result.Error).Contains("input file not found")
	})

	t.Run("empty file", func(t *testing.T) {
		path := writeInput(t, t.TempDir(), "empty.csv", "")
		result := newReporter(t, t.TempDir()).ProcessFile(ctx, path, nil)
		gt.False(t, result.Success)
		gt.S(t, result.Error).Contains("input file is empty")
	})

	t.Run("legacy workbook", func(t *testing.T) {
		path := writeInput(t, t.TempDir(), "cases.xls", "not really a workbook")
		result := newReporter(t, t.TempDir()).ProcessFile(ctx, path, nil)
		gt.False(t, result.Success)
		gt.S(t, result.Error).Contains("legacy .xls")
	})
}

func TestReporter_InspectFile(t *testing.T) {
	ctx := context.Background()
	path := writeInput(t, t.TempDir(), "cases.csv", sampleCSV)

	analysis, err := newReporter(t, t.TempDir()).InspectFile(ctx, path)
	gt.NoError(t, err).Required()
	gt.Equal(t, analysis.Rows, 4)
	gt.Equal(t, analysis.ColumnsFound(), 8)
	gt.True(t, analysis.DateRange.Start.Equal(time.Date(2025, 1, 5, 0, 0, 0, 0, time.UTC)))
	gt.Equal(t, analysis.DateRange.Days, 57)

	var engineer string
	for _, c := range analysis.Columns {
		if c.Field == types.FieldEngineer {
			engineer = c.Header
		}
	}
	gt.Equal(t, engineer, "Assigned Account")

	latin := writeInput(t, t.TempDir(), "latin.csv", "Reference #,Status,Date Created,End Customer\n1,Open,2025-01-01,Soci\xe9t\xe9\n")
	analysis, err = newReporter(t, t.TempDir()).InspectFile(ctx, latin)
	gt.NoError(t, err).Required()
	gt.Equal(t, analysis.Encoding, "windows-1252")
	var decoded bool
	for _, w := range analysis.Warnings {
		decoded = decoded || strings.Contains(w.Message, "Windows-1252")
	}
	gt.True(t, decoded)

	_, err = newReporter(t, t.TempDir()).InspectFile(ctx, writeInput(t, t.TempDir(), "bad.csv", "Subject\nx\n"))
	gt.Error(t, err)
	gt.True(t, goerr.HasTag(err, model.ErrTagRequiredField))
}

func TestReporter_ProcessDir(t *testing.T) {
	ctx := context.Background()

	t.Run("processes every export and writes batch summary", func(t *testing.T) {
		inDir, outDir := t.TempDir(), t.TempDir()
		writeInput(t, inDir, "b_cases.csv", sampleCSV)
		writeInput(t, inDir, "a_cases.csv", sampleCSV)
		writeInput(t, inDir, "broken.csv", "Subject\nx\n")
		writeInput(t, inDir, "notes.txt", "ignored")
		writeInput(t, inDir, "~$a_cases.xlsx", "lock file")

		batch, err := newReporter(t, outDir, usecase.WithWorkers(2)).ProcessDir(ctx, inDir, []types.OutputFormat{types.OutputFormatHTML})
		gt.NoError(t, err).Required()
		gt.Equal(t, len(batch.Results), 3)
		gt.Equal(t, filepath.Base(batch.Results[0].Input), "a_cases.csv")
		gt.Equal(t, filepath.Base(batch.Results[1].Input), "b_cases.csv")
		gt.Equal(t, filepath.Base(batch.Results[2].Input), "broken.csv")
		gt.Equal(t, batch.Successful(), 2)
		gt.Equal(t, batch.Failed(), 1)
		gt.False(t, batch.OK())

		gt.NotNil(t, batch.SummaryFile)
		gt.Equal(t, batch.SummaryFile.Path, filepath.Join(outDir, render.BatchSummaryPrefix+"20250401_093000.html"))
		_, err = os.Stat(batch.SummaryFile.Path)
		gt.NoError(t, err)
	})

	t.Run("inputs sharing a name get distinct reports", func(t *testing.T) {
		inDir, outDir := t.TempDir(), t.TempDir()
		writeInput(t, inDir, "CASES.csv", sampleCSV)
		writeInput(t, inDir, "cases.csv", sampleCSV)
		writeInput(t, inDir, "cases.tsv", sampleCSV)
		writeInput(t, inDir, "other.csv", sampleCSV)

		archive := repository.NewMemory()
		formats := []types.OutputFormat{types.OutputFormatHTML, types.OutputFormatJSON}
		batch, err := newReporter(t, outDir, usecase.WithWorkers(4), usecase.WithArchive(archive)).ProcessDir(ctx, inDir, formats)
		gt.NoError(t, err).Required()
		gt.True(t, batch.OK())
		gt.Equal(t, len(batch.Results), 4)

		expected := []string{"CASES_csv", "cases_csv_2", "cases_tsv", "other"}
		for i, name := range expected {
			r := batch.Results[i]
			gt.Equal(t, r.OutputName, name)
			gt.Equal(t, r.Analytics.Summary.TotalCases, 4)
			gt.Equal(t, r.Analytics.Bug.BugCases, 1)
			gt.Equal(t, len(r.Files), 2)
			for _, suffix := range []string{render.HTMLSuffix, render.JSONSuffix} {
				_, err := os.Stat(filepath.Join(outDir, name+suffix))
				gt.NoError(t, err)
			}
		}

		runs, err := archive.ListRuns(ctx, 10)
		gt.NoError(t, err).Required()
		gt.Equal(t, len(runs), 4)
	})

	t.Run("single file has no batch summary", func(t *testing.T) {
		inDir := t.TempDir()
		writeInput(t, inDir, "cases.csv", sampleCSV)

		batch, err := newReporter(t, t.TempDir()).ProcessDir(ctx, inDir, nil)
		gt.NoError(t, err).Required()
		gt.True(t, batch.OK())
		gt.Nil(t, batch.SummaryFile)
	})

	t.Run("no inputs", func(t *testing.T) {
		_, err := newReporter(t, t.TempDir()).ProcessDir(ctx, t.TempDir(), nil)
		gt.Error(t, err)
		gt.True(t, errors.Is(err, model.ErrNoInputFiles))
	})

	t.Run("missing directory", func(t *testing.T) {
		_, err := newReporter(t, t.TempDir()).ProcessDir(ctx, filepath.Join(t.TempDir(), "missing"), nil)
		gt.Error(t, err)
	})
}

func TestOutputNames(t *testing.T) {
	testCases := []struct {
		name     string
		paths    []string
		expected []string
	}{
		{
			name:     "distinct names are kept",
			paths:    []string{"/in/a.csv", "/in/b.xlsx"},
			expected: []string{"a", "b"},
		},
		{
			name:     "same name with different extensions",
			paths:    []string{"/in/cases.csv", "/in/cases.xlsx"},
			expected: []string{"cases_csv", "cases_xlsx"},
		},
		{
			name:     "suffix clashes with another input",
			paths:    []string{"/in/cases.csv", "/in/cases.xlsx", "/in/cases_csv.csv"},
			expected: []string{"cases_csv", "cases_xlsx", "cases_csv_2"},
		},
		{
			name:     "names differing only in case",
			paths:    []string{"/in/Cases.csv", "/in/cases.csv"},
			expected: []string{"Cases_csv", "cases_csv_2"},
		},
	}
	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			gt.Equal(t, usecase.OutputNames(tc.paths), tc.expected)
		})
	}
}

func TestDiscoverInputs(t *testing.T) {
	dir := t.TempDir()
	writeInput(t, dir, "z.xlsx", "x")
	writeInput(t, dir, "a.csv", "x")
	writeInput(t, dir, "m.xlsm", "x")
	writeInput(t, dir, "old.xls", "x")
	writeInput(t, dir, ".hidden.csv", "x")
	writeInput(t, dir, "readme.md", "x")
	gt.NoError(t, os.Mkdir(filepath.Join(dir, "nested.csv"), 0o755))

	paths, err := usecase.DiscoverInputs(dir)
	gt.NoError(t, err).Required()
	var names []string
	for _, p := range paths {
		names = append(names, filepath.Base(p))
	}
	gt.Equal(t, names, []string{"a.csv", "m.xlsm", "old.xls", "z.xlsx"})
}
