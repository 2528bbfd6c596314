package usecase

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/m-mizutani/ctxlog"
	"github.com/m-mizutani/goerr/v2"
	"github.com/secmon-lab/caselens/pkg/domain/interfaces"
	"github.com/secmon-lab/caselens/pkg/domain/model"
	"github.com/secmon-lab/caselens/pkg/domain/types"
	"github.com/secmon-lab/caselens/pkg/service/aggregate"
	"github.com/secmon-lab/caselens/pkg/service/loader"
	"github.com/secmon-lab/caselens/pkg/service/mapper"
	"github.com/secmon-lab/caselens/pkg/service/normalize"
	"github.com/secmon-lab/caselens/pkg/service/render"
	"github.com/secmon-lab/caselens/pkg/utils/apperr"
	"github.com/secmon-lab/caselens/pkg/utils/async"
)

// ReporterOption is a functional option for configuring Reporter
type ReporterOption func(*Reporter)

// WithArchive stores a summary of every generated report
func WithArchive(archive interfaces.Archive) ReporterOption {
	return func(r *Reporter) {
		r.archive = archive
	}
}

// WithNarrator adds generated analyst notes to reports
func WithNarrator(narrator interfaces.Narrator) ReporterOption {
	return func(r *Reporter) {
		r.narrator = narrator
	}
}

// WithNotifier announces every processed file
func WithNotifier(notifier interfaces.Notifier) ReporterOption {
	return func(r *Reporter) {
		r.notifier = notifier
	}
}

// WithWorkers sets the number of files processed at the same time
func WithWorkers(n int) ReporterOption {
	return func(r *Reporter) {
		r.workers = n
	}
}

// WithClock replaces time.Now
func WithClock(now func() time.Time) ReporterOption {
	return func(r *Reporter) {
		r.now = now
	}
}

// Reporter turns case exports into executive reports
type Reporter struct {
	cfg        *model.ReportConfig
	loader     *loader.Loader
	mapper     *mapper.Mapper
	normalizer *normalize.Normalizer
	aggregator *aggregate.Aggregator
	publisher  *render.Publisher

	archive  interfaces.Archive
	narrator interfaces.Narrator
	notifier interfaces.Notifier
	workers  int
	now      func() time.Time
}

// NewReporter creates a new Reporter instance
func NewReporter(cfg *model.ReportConfig, publisher *render.Publisher, opts ...ReporterOption) *Reporter {
	r := &Reporter{
		cfg:        cfg,
		loader:     loader.New(cfg.Loader, loader.WithHeaderAliases(cfg.GetFieldsConfig().AllAliases()...)),
		mapper:     mapper.New(cfg.GetFieldsConfig()),
		normalizer: normalize.New(cfg),
		aggregator: aggregate.New(cfg),
		publisher:  publisher,
		workers:    1,
		now:        time.Now,
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// inspection is an export after loading and column mapping
type inspection struct {
	analysis *model.FileAnalysis
	table    *loader.Table
	mapping  *mapper.Mapping
}

// InspectFile loads an export and resolves its columns without writing anything
func (r *Reporter) InspectFile(ctx context.Context, path string) (*model.FileAnalysis, error) {
	in, err := r.inspect(ctx, path)
	if err != nil {
		return nil, err
	}

	cases, warnings := r.normalizer.BuildCases(ctx, in.table, in.mapping)
	in.analysis.Warnings = append(in.analysis.Warnings, warnings...)
	in.analysis.DateRange = aggregate.DateRangeOf(cases)
	return in.analysis, nil
}

func (r *Reporter) inspect(ctx context.Context, path string) (*inspection, error) {
	logger := ctxlog.From(ctx)

	info, err := os.Stat(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, goerr.Wrap(err, "input file not found", goerr.V("path", path))
		}
		return nil, goerr.Wrap(err, "failed to access input file", goerr.V("path", path))
	}
	if !info.Mode().IsRegular() {
		return nil, goerr.New("input is not a regular file", goerr.V("path", path))
	}
	if info.Size() == 0 {
		return nil, goerr.New("input file is empty", goerr.V("path", path), goerr.T(model.ErrTagEmptyFile))
	}
	if r.cfg.LargeFileBytes > 0 && info.Size() > r.cfg.LargeFileBytes {
		logger.Warn("Large input file, processing may be slow",
			"path", path,
			"size", humanize.IBytes(uint64(info.Size())))
	}

	table, err := r.loader.Load(ctx, path)
	if err != nil {
		return nil, goerr.Wrap(err, "failed to load input file", goerr.V("path", path))
	}

	mapping, err := r.mapper.Resolve(ctx, table.Headers)
	if err != nil {
		return nil, goerr.Wrap(err, "failed to map columns", goerr.V("path", path))
	}

	analysis := &model.FileAnalysis{
		Name:          filepath.Base(path),
		Path:          path,
		SizeBytes:     info.Size(),
		Encoding:      table.Encoding,
		Sheet:         table.Sheet,
		Rows:          len(table.Rows),
		SkippedRows:   table.SkippedRows,
		Headers:       table.Headers,
		Columns:       mapping.Columns(),
		MissingFields: mapping.Missing,
		Warnings:      append(append([]model.Warning(nil), table.Warnings...), mapping.Warnings...),
	}

	return &inspection{analysis: analysis, table: table, mapping: mapping}, nil
}

// ProcessFile generates the requested report formats for one export.
// Failures are recorded in the returned result.
func (r *Reporter) ProcessFile(ctx context.Context, path string, formats []types.OutputFormat) *model.FileResult {
	return r.processFile(ctx, path, render.BaseName(path), formats)
}

func (r *Reporter) processFile(ctx context.Context, path, outputName string, formats []types.OutputFormat) *model.FileResult {
	start := r.now()
	result := &model.FileResult{
		RunID:      types.NewRunID(),
		Input:      path,
		OutputName: outputName,
	}

	logger := ctxlog.From(ctx).With("run_id", result.RunID, "input", filepath.Base(path))
	ctx = ctxlog.With(ctx, logger)
	logger.Info("Processing file", "path", path)

	if len(formats) == 0 {
		formats = r.cfg.Formats
	}

	err := r.process(ctx, path, formats, start, result)
	result.Duration = r.now().Sub(start)
	if err != nil {
		result.Success = false
		result.Error = err.Error()
		apperr.Handle(ctx, err)
	} else {
		result.Success = true
		logger.Info("Processed file",
			"cases", result.Analytics.Summary.TotalCases,
			"files", len(result.Files),
			"duration", result.Duration)
	}

	if r.notifier != nil {
		if err := r.notifier.NotifyReport(ctx, result); err != nil {
			apperr.Warn(ctx, "Failed to send report notification", err)
		}
	}

	return result
}

func (r *Reporter) process(ctx context.Context, path string, formats []types.OutputFormat, generatedAt time.Time, result *model.FileResult) error {
	in, err := r.inspect(ctx, path)
	if err != nil {
		return err
	}
	result.Analysis = in.analysis

	cases, warnings := r.normalizer.BuildCases(ctx, in.table, in.mapping)
	if len(cases) == 0 {
		return goerr.New("no valid cases found", goerr.V("path", path), goerr.V("rows", len(in.table.Rows)))
	}
	in.analysis.Warnings = append(in.analysis.Warnings, warnings...)

	result.Analytics = r.aggregator.Compute(ctx, cases, in.mapping)
	in.analysis.DateRange = result.Analytics.Summary.DateRange

	if r.narrator != nil {
		narrative, err := r.narrator.Narrate(ctx, r.cfg.Title, result.Analytics)
		if err != nil {
			apperr.Warn(ctx, "Failed to generate analyst notes, continuing without them", err)
		} else {
			result.Narrative = narrative
		}
	}

	files, err := r.publisher.Publish(ctx, result, formats, generatedAt)
	result.Files = files
	if err != nil {
		return goerr.Wrap(err, "failed to write report", goerr.V("path", path))
	}

	if r.archive != nil {
		record, err := model.NewRunRecord(result, generatedAt)
		if err == nil {
			err = r.archive.PutRun(ctx, record)
		}
		if err != nil {
			apperr.Warn(ctx, "Failed to archive report run", err)
		}
	}

	return nil
}

// ProcessDir processes every supported export at the top level of dir and
// writes a batch summary when more than one file was processed
func (r *Reporter) ProcessDir(ctx context.Context, dir string, formats []types.OutputFormat) (*model.BatchResult, error) {
	logger := ctxlog.From(ctx)

	paths, err := DiscoverInputs(dir)
	if err != nil {
		return nil, err
	}
	if len(paths) == 0 {
		return nil, goerr.Wrap(model.ErrNoInputFiles, "nothing to process", goerr.V("dir", dir))
	}
	logger.Info("Found input files", "dir", dir, "count", len(paths))

	batch := &model.BatchResult{
		StartedAt: r.now(),
		Results:   make([]*model.FileResult, len(paths)),
	}
	names := OutputNames(paths)
	for i, p := range paths {
		if names[i] != render.BaseName(p) {
			logger.Warn("Input files share a report name, adding a suffix",
				"input", filepath.Base(p),
				"output_name", names[i])
		}
	}

	errs := async.Each(ctx, r.workers, len(paths), func(ctx context.Context, i int) error {
		batch.Results[i] = r.processFile(ctx, paths[i], names[i], formats)
		return nil
	})
	for i, err := range errs {
		if err != nil {
			batch.Results[i] = &model.FileResult{
				RunID:      types.NewRunID(),
				Input:      paths[i],
				OutputName: names[i],
				Error:      err.Error(),
			}
		}
	}
	batch.FinishedAt = r.now()

	if len(paths) > 1 {
		summary, err := r.publisher.PublishBatch(ctx, batch, batch.FinishedAt)
		if err != nil {
			apperr.Warn(ctx, "Failed to write batch summary", err)
		} else {
			batch.SummaryFile = summary
		}
	}

	logger.Info("Processed directory",
		"dir", dir,
		"successful", batch.Successful(),
		"failed", batch.Failed(),
		"duration", batch.Duration())
	return batch, nil
}

// OutputNames returns a distinct output file prefix for every input. Inputs
// that would share a prefix, such as cases.csv and cases.xlsx, get their
// extension appended, and a counter when that still clashes. Names are
// compared case-insensitively.
func OutputNames(paths []string) []string {
	shared := make(map[string]int)
	for _, p := range paths {
		shared[strings.ToLower(render.BaseName(p))]++
	}

	names := make([]string, len(paths))
	taken := make(map[string]bool)
	for i, p := range paths {
		base := render.BaseName(p)
		name := base
		if shared[strings.ToLower(base)] > 1 {
			if ext := strings.TrimPrefix(strings.ToLower(filepath.Ext(p)), "."); ext != "" {
				name = base + "_" + ext
			}
		}
		candidate := name
		for n := 2; taken[strings.ToLower(candidate)]; n++ {
			candidate = fmt.Sprintf("%s_%d", name, n)
		}
		taken[strings.ToLower(candidate)] = true
		names[i] = candidate
	}
	return names
}

// DiscoverInputs lists the supported exports at the top level of dir in name order.
// Office lock files and hidden files are ignored.
func DiscoverInputs(dir string) ([]string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, goerr.Wrap(err, "input directory not found", goerr.V("dir", dir))
		}
		return nil, goerr.Wrap(err, "failed to read input directory", goerr.V("dir", dir))
	}

	var paths []string
	for _, e := range entries {
		name := e.Name()
		if e.IsDir() || strings.HasPrefix(name, ".") || strings.HasPrefix(name, "~$") {
			continue
		}
		if !loader.IsInput(name) {
			continue
		}
		paths = append(paths, filepath.Join(dir, name))
	}
	return paths, nil
}
