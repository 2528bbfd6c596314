package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"path/filepath"
	"strings"

	"github.com/m-mizutani/ctxlog"
	"github.com/m-mizutani/goerr/v2"
	"github.com/secmon-lab/caselens/pkg/cli/config"
	"github.com/secmon-lab/caselens/pkg/domain/model"
	"github.com/secmon-lab/caselens/pkg/service/render"
	"github.com/secmon-lab/caselens/pkg/usecase"
	"github.com/urfave/cli/v3"
)

func cmdReport() *cli.Command {
	var (
		outputCfg  config.Output
		reportCfg  config.Report
		archiveCfg config.Archive
		slackCfg   config.Slack
		geminiCfg  config.Gemini
	)

	flags := joinFlags(
		outputCfg.Flags(),
		reportCfg.Flags(),
		archiveCfg.Flags(),
		slackCfg.Flags(),
		geminiCfg.Flags(),
	)

	return &cli.Command{
		Name:  "report",
		Usage: "Generate executive reports for every export in the input directory",
		Flags: flags,
		Action: func(ctx context.Context, c *cli.Command) error {
			logger := ctxlog.From(ctx)

			logger.Info("Starting report generation",
				slog.Any("output", outputCfg),
				slog.Any("config", reportCfg),
				slog.Any("archive", archiveCfg),
				slog.Any("slack", slackCfg),
				slog.Any("gemini", geminiCfg),
			)

			cfg, err := reportCfg.Configure(ctx)
			if err != nil {
				return err
			}
			formats, err := outputCfg.Formats(cfg)
			if err != nil {
				return err
			}
			publisher, err := outputCfg.Configure(ctx, cfg)
			if err != nil {
				return err
			}

			opts := []usecase.ReporterOption{usecase.WithWorkers(outputCfg.Workers)}

			archive, err := archiveCfg.Configure(ctx)
			if err != nil {
				return err
			}
			if archive != nil {
				defer archive.Close()
				opts = append(opts, usecase.WithArchive(archive))
			}

			notifier, err := slackCfg.Configure()
			if err != nil {
				return err
			}
			if notifier != nil {
				opts = append(opts, usecase.WithNotifier(notifier))
			}

			narrator, err := geminiCfg.Configure(ctx)
			if err != nil {
				// analyst notes are optional
				logger.Warn("Gemini is not available, reports are generated without analyst notes", "error", err)
			} else if narrator != nil {
				opts = append(opts, usecase.WithNarrator(narrator))
			}

			reporter := usecase.NewReporter(cfg, publisher, opts...)
			batch, err := reporter.ProcessDir(ctx, outputCfg.InputDir, formats)
			if err != nil {
				if errors.Is(err, model.ErrNoInputFiles) {
					printNoInputs(c.Root().Writer, outputCfg.InputDir)
				}
				return err
			}

			printSummary(c.Root().Writer, batch, publisher.OutDir())
			if !batch.OK() {
				return goerr.New("some files could not be processed",
					goerr.V("failed", batch.Failed()),
					goerr.V("total", len(batch.Results)))
			}
			return nil
		},
	}
}

func printNoInputs(w io.Writer, dir string) {
	fmt.Fprintf(w, "No supported files found in %s\n", dir)
	fmt.Fprintln(w, "Supported formats: .csv, .xlsx, .xlsm (.xls must be converted first)")
}

func printSummary(w io.Writer, batch *model.BatchResult, outDir string) {
	rule := strings.Repeat("=", 60)
	fmt.Fprintln(w)
	fmt.Fprintln(w, rule)
	fmt.Fprintln(w, "PROCESSING COMPLETE")
	fmt.Fprintln(w, rule)
	fmt.Fprintf(w, "Total files processed: %d\n", len(batch.Results))
	fmt.Fprintf(w, "Successful: %d\n", batch.Successful())
	fmt.Fprintf(w, "Failed: %d\n", batch.Failed())
	fmt.Fprintf(w, "Total processing time: %s\n", render.FormatDuration(batch.Duration()))
	fmt.Fprintf(w, "Output directory: %s\n", outDir)

	if files := batch.GeneratedFiles(); len(files) > 0 {
		fmt.Fprintln(w, "\nGenerated files:")
		for _, f := range files {
			note := ""
			if f.Substitute {
				note = " (PDF conversion instructions)"
			}
			fmt.Fprintf(w, "  📄 %s%s\n", filepath.Base(f.Path), note)
		}
	}

	var failed []*model.FileResult
	for _, r := range batch.Results {
		if !r.Success {
			failed = append(failed, r)
		}
	}
	if len(failed) > 0 {
		fmt.Fprintln(w, "\nFailed files:")
		for _, r := range failed {
			fmt.Fprintf(w, "  ❌ %s: %s\n", filepath.Base(r.Input), r.Error)
		}
	}
}
