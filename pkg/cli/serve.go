package cli

import (
	"context"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/m-mizutani/ctxlog"
	"github.com/m-mizutani/goerr/v2"
	"github.com/secmon-lab/caselens/pkg/cli/config"
	controller "github.com/secmon-lab/caselens/pkg/controller/http"
	"github.com/urfave/cli/v3"
)

func cmdServe() *cli.Command {
	var (
		serverCfg  config.Server
		archiveCfg config.Archive
		outputDir  string
	)

	flags := joinFlags(
		serverCfg.Flags(),
		archiveCfg.Flags(),
		[]cli.Flag{
			&cli.StringFlag{
				Name:        "output-dir",
				Aliases:     []string{"o"},
				Usage:       "Directory containing generated reports",
				Value:       "reports",
				Sources:     cli.EnvVars("CASELENS_OUTPUT_DIR"),
				Destination: &outputDir,
			},
		},
	)

	return &cli.Command{
		Name:  "serve",
		Usage: "Start HTTP server to preview generated reports",
		Flags: flags,
		Action: func(ctx context.Context, c *cli.Command) error {
			logger := ctxlog.From(ctx)

			logger.Info("Starting caselens preview server",
				slog.Any("server", serverCfg),
				slog.Any("archive", archiveCfg),
				slog.String("output_dir", outputDir),
			)

			var opts []controller.Option
			archive, err := archiveCfg.Configure(ctx)
			if err != nil {
				return err
			}
			if archive != nil {
				defer archive.Close()
				opts = append(opts, controller.WithArchive(archive))
			}

			server, err := controller.NewServer(ctx, serverCfg.Addr, outputDir, opts...)
			if err != nil {
				return goerr.Wrap(err, "failed to create HTTP server")
			}

			// Start server in goroutine
			errCh := make(chan error, 1)
			go func() {
				logger.Info("HTTP server starting", slog.String("addr", serverCfg.Addr))
				if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
					errCh <- err
				}
			}()

			// Wait for interrupt signal
			sigChan := make(chan os.Signal, 1)
			signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
			defer signal.Stop(sigChan)

			select {
			case <-ctx.Done():
				logger.Info("Context cancelled, shutting down...")
			case sig := <-sigChan:
				logger.Info("Signal received, shutting down...", slog.Any("signal", sig))
			case err := <-errCh:
				return goerr.Wrap(err, "HTTP server failed", goerr.V("addr", serverCfg.Addr))
			}

			// Graceful shutdown
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
			defer cancel()

			if err := server.Shutdown(shutdownCtx); err != nil {
				return goerr.Wrap(err, "failed to shutdown server gracefully")
			}

			logger.Info("Server shutdown complete")
			return nil
		},
	}
}
