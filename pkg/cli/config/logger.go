package config

import (
	"io"
	"log/slog"
	"os"

	"github.com/m-mizutani/goerr/v2"
	"github.com/secmon-lab/caselens/pkg/utils/logging"
	"github.com/urfave/cli/v3"
)

// Logger holds logger configuration
type Logger struct {
	Level   string
	Format  string
	File    string
	Verbose bool
}

// Flags returns CLI flags for Logger configuration
func (l *Logger) Flags() []cli.Flag {
	return []cli.Flag{
		&cli.StringFlag{
			Name:        "log-level",
			Usage:       "Log level (debug, info, warn, error)",
			Category:    "Logging",
			Value:       "info",
			Sources:     cli.EnvVars("CASELENS_LOG_LEVEL"),
			Destination: &l.Level,
		},
		&cli.StringFlag{
			Name:        "log-format",
			Usage:       "Log format (console, json, auto)",
			Category:    "Logging",
			Value:       "auto",
			Sources:     cli.EnvVars("CASELENS_LOG_FORMAT"),
			Destination: &l.Format,
		},
		&cli.StringFlag{
			Name:        "log-file",
			Usage:       "Also write JSON logs to this file",
			Category:    "Logging",
			Sources:     cli.EnvVars("CASELENS_LOG_FILE"),
			Destination: &l.File,
		},
		&cli.BoolFlag{
			Name:        "verbose",
			Aliases:     []string{"v"},
			Usage:       "Enable debug logging (same as --log-level debug)",
			Category:    "Logging",
			Sources:     cli.EnvVars("CASELENS_VERBOSE"),
			Destination: &l.Verbose,
		},
	}
}

// Configure sets up the logger based on configuration. The returned closer
// releases the log file and must be called when the program ends.
func (l *Logger) Configure() (*slog.Logger, io.Closer, error) {
	if err := l.Validate(); err != nil {
		return nil, nil, err
	}

	level := logging.ParseLogLevel(l.Level)
	if l.Verbose {
		level = slog.LevelDebug
	}

	// Parse format option
	format := logging.FormatAuto
	switch l.Format {
	case "console":
		format = logging.FormatConsole
	case "json":
		format = logging.FormatJSON
	}

	logger := logging.NewLoggerWithFormat(level, os.Stdout, format)
	if l.File == "" {
		return logger, io.NopCloser(nil), nil
	}

	f, err := os.OpenFile(l.File, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return nil, nil, goerr.Wrap(err, "failed to open log file", goerr.V("path", l.File))
	}
	fileLogger := logging.NewLoggerWithFormat(level, f, logging.FormatJSON)
	return logging.Tee(logger, fileLogger), f, nil
}

// LogValue returns structured log value
func (l Logger) LogValue() slog.Value {
	return slog.GroupValue(
		slog.String("level", l.Level),
		slog.String("format", l.Format),
		slog.String("file", l.File),
		slog.Bool("verbose", l.Verbose),
	)
}

// Validate validates the logger configuration
func (l *Logger) Validate() error {
	validLevels := map[string]bool{
		"debug": true,
		"info":  true,
		"warn":  true,
		"error": true,
		"":      true, // empty means info
	}
	if !validLevels[l.Level] {
		return goerr.New("invalid log level", goerr.V("level", l.Level))
	}

	validFormats := map[string]bool{
		"console": true,
		"json":    true,
		"auto":    true,
		"":        true, // empty means auto
	}
	if !validFormats[l.Format] {
		return goerr.New("invalid log format", goerr.V("format", l.Format))
	}

	return nil
}
