package config

import (
	"context"
	"log/slog"
	"time"

	"github.com/m-mizutani/ctxlog"
	"github.com/m-mizutani/goerr/v2"
	"github.com/secmon-lab/caselens/pkg/domain/model"
	"github.com/secmon-lab/caselens/pkg/domain/types"
	"github.com/secmon-lab/caselens/pkg/service/render"
	"github.com/urfave/cli/v3"
)

// Output holds where reports are read from and written to, and in which formats
type Output struct {
	InputDir     string
	OutputDir    string
	Format       string
	ChromiumPath string
	PDFTimeout   time.Duration
	Workers      int
}

// Flags returns CLI flags for Output configuration
func (o *Output) Flags() []cli.Flag {
	return []cli.Flag{
		&cli.StringFlag{
			Name:        "input-dir",
			Aliases:     []string{"i"},
			Usage:       "Directory containing CSV and Excel case exports",
			Category:    "Output",
			Value:       "input_data",
			Sources:     cli.EnvVars("CASELENS_INPUT_DIR"),
			Destination: &o.InputDir,
		},
		&cli.StringFlag{
			Name:        "output-dir",
			Aliases:     []string{"o"},
			Usage:       "Directory for generated reports",
			Category:    "Output",
			Value:       "reports",
			Sources:     cli.EnvVars("CASELENS_OUTPUT_DIR"),
			Destination: &o.OutputDir,
		},
		&cli.StringFlag{
			Name:        "format",
			Aliases:     []string{"f"},
			Usage:       "Comma separated output formats (html, pdf, both, json). Defaults to the configured formats",
			Category:    "Output",
			Sources:     cli.EnvVars("CASELENS_FORMAT"),
			Destination: &o.Format,
		},
		&cli.StringFlag{
			Name:        "chromium-path",
			Usage:       "Chrome or Chromium binary used for PDF output. Searched in PATH when empty",
			Category:    "Output",
			Sources:     cli.EnvVars("CASELENS_CHROMIUM_PATH"),
			Destination: &o.ChromiumPath,
		},
		&cli.DurationFlag{
			Name:        "pdf-timeout",
			Usage:       "Time limit of one PDF conversion",
			Category:    "Output",
			Value:       render.DefaultPDFTimeout,
			Sources:     cli.EnvVars("CASELENS_PDF_TIMEOUT"),
			Destination: &o.PDFTimeout,
		},
		&cli.IntFlag{
			Name:        "workers",
			Usage:       "Number of files processed at the same time",
			Category:    "Output",
			Value:       1,
			Sources:     cli.EnvVars("CASELENS_WORKERS"),
			Destination: &o.Workers,
		},
	}
}

// Formats returns the requested output formats, or the configured ones when none were given
func (o *Output) Formats(cfg *model.ReportConfig) ([]types.OutputFormat, error) {
	if o.Format == "" {
		return cfg.Formats, nil
	}
	formats, err := types.ParseFormats(o.Format)
	if err != nil {
		return nil, goerr.Wrap(err, "invalid --format", goerr.T(model.ErrTagInvalidConfig))
	}
	if len(formats) == 0 {
		return nil, goerr.New("no output format given", goerr.V("format", o.Format), goerr.T(model.ErrTagInvalidConfig))
	}
	return formats, nil
}

// Configure creates the publisher writing into the output directory
func (o *Output) Configure(ctx context.Context, cfg *model.ReportConfig) (*render.Publisher, error) {
	html, err := render.NewHTMLRenderer(cfg)
	if err != nil {
		return nil, goerr.Wrap(err, "failed to prepare HTML renderer")
	}

	var opts []render.PDFOption
	if o.PDFTimeout > 0 {
		opts = append(opts, render.WithPDFTimeout(o.PDFTimeout))
	}
	pdf := render.NewPDFConverter(o.ChromiumPath, opts...)
	ctxlog.From(ctx).Debug("PDF converter", "available", pdf.Available())

	return render.NewPublisher(html, pdf, o.OutputDir), nil
}

// LogValue returns structured log value
func (o Output) LogValue() slog.Value {
	return slog.GroupValue(
		slog.String("input_dir", o.InputDir),
		slog.String("output_dir", o.OutputDir),
		slog.String("format", o.Format),
		slog.String("chromium_path", o.ChromiumPath),
		slog.Duration("pdf_timeout", o.PDFTimeout),
		slog.Int("workers", o.Workers),
	)
}
