package cli

import (
	"context"
	"fmt"
	"io"
	"strings"
	"text/tabwriter"

	"github.com/secmon-lab/caselens/pkg/cli/config"
	"github.com/secmon-lab/caselens/pkg/domain/model"
	"github.com/secmon-lab/caselens/pkg/service/render"
	"github.com/secmon-lab/caselens/pkg/usecase"
	"github.com/urfave/cli/v3"
)

func cmdMapping() *cli.Command {
	var (
		reportCfg config.Report
		input     string
	)

	flags := joinFlags(
		[]cli.Flag{
			&cli.StringFlag{
				Name:        "input",
				Aliases:     []string{"i"},
				Usage:       "CSV or Excel export to inspect",
				Required:    true,
				Destination: &input,
			},
		},
		reportCfg.Flags(),
	)

	return &cli.Command{
		Name:  "mapping",
		Usage: "Show how the columns of an export are understood",
		Flags: flags,
		Action: func(ctx context.Context, c *cli.Command) error {
			cfg, err := reportCfg.Configure(ctx)
			if err != nil {
				return err
			}

			// nothing is written, so the publisher is not used
			reporter := usecase.NewReporter(cfg, nil)
			analysis, err := reporter.InspectFile(ctx, input)
			if err != nil {
				return err
			}

			printMapping(c.Root().Writer, analysis, cfg)
			return nil
		},
	}
}

func printMapping(w io.Writer, analysis *model.FileAnalysis, cfg *model.ReportConfig) {
	fmt.Fprintf(w, "File: %s (%s)\n", analysis.Name, render.FormatFileSize(analysis.SizeBytes))
	if analysis.Encoding != "" {
		fmt.Fprintf(w, "Encoding: %s\n", analysis.Encoding)
	}
	if analysis.Sheet != "" {
		fmt.Fprintf(w, "Sheet: %s\n", analysis.Sheet)
	}
	fmt.Fprintf(w, "Rows: %s (skipped %d)\n", render.FormatNumber(analysis.Rows), analysis.SkippedRows)
	if r := analysis.DateRange; r.Start != nil && r.End != nil {
		fmt.Fprintf(w, "Date range: %s to %s (%d days)\n", r.Start.Format("2006-01-02"), r.End.Format("2006-01-02"), r.Days)
	}

	fields := cfg.GetFieldsConfig()
	fmt.Fprintf(w, "\nColumns (%d of %d headers mapped):\n", analysis.ColumnsFound(), len(analysis.Headers))
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "  FIELD\tHEADER\tMATCH")
	for _, col := range analysis.Columns {
		label := col.Field.String()
		if f := fields.FindField(col.Field); f != nil {
			label = f.DisplayName()
		}
		match := "alias"
		if col.Fallback {
			match = "keyword"
		}
		fmt.Fprintf(tw, "  %s\t%s\t%s\n", label, col.Header, match)
	}
	_ = tw.Flush()

	if len(analysis.MissingFields) > 0 {
		var names []string
		for _, name := range analysis.MissingFields {
			if f := fields.FindField(name); f != nil {
				names = append(names, f.DisplayName())
			} else {
				names = append(names, name.String())
			}
		}
		fmt.Fprintf(w, "\nMissing optional columns: %s\n", strings.Join(names, ", "))
	}

	if len(analysis.Warnings) > 0 {
		fmt.Fprintf(w, "\nWarnings (%d):\n", len(analysis.Warnings))
		for _, warning := range analysis.Warnings {
			if warning.Row > 0 {
				fmt.Fprintf(w, "  row %d: %s\n", warning.Row, warning.Message)
			} else {
				fmt.Fprintf(w, "  %s\n", warning.Message)
			}
		}
	}
}
