package cli

import (
	"context"
	"log/slog"

	"github.com/m-mizutani/ctxlog"
	"github.com/m-mizutani/goerr/v2"
	"github.com/secmon-lab/caselens/pkg/cli/config"
	"github.com/urfave/cli/v3"
)

// Run runs the CLI application
func Run(ctx context.Context, args []string) error {
	var (
		loggerCfg config.Logger
		closeLog  = func() {}
	)

	app := &cli.Command{
		Name:  "caselens",
		Usage: "Executive reports from TAC support case exports",
		Flags: loggerCfg.Flags(),
		Before: func(ctx context.Context, c *cli.Command) (context.Context, error) {
			// Configure logger
			logger, closer, err := loggerCfg.Configure()
			if err != nil {
				return nil, err
			}
			closeLog = func() { _ = closer.Close() }

			slog.SetDefault(logger)
			ctx = ctxlog.With(ctx, logger)
			return ctx, nil
		},
		Commands: []*cli.Command{
			cmdReport(),
			cmdMapping(),
			cmdServe(),
		},
	}
	defer func() { closeLog() }()

	if err := app.Run(ctx, args); err != nil {
		slog.Default().Error("command failed", "error", err)
		return goerr.Wrap(err, "CLI execution failed")
	}

	return nil
}

// joinFlags combines the flag sets of several config structs
func joinFlags(flags ...[]cli.Flag) []cli.Flag {
	var result []cli.Flag
	for _, f := range flags {
		result = append(result, f...)
	}
	return result
}
