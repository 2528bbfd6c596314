package config

import (
	"context"
	"log/slog"
	"os"

	"github.com/m-mizutani/ctxlog"
	"github.com/m-mizutani/goerr/v2"
	"github.com/secmon-lab/caselens/pkg/domain/model"
	"github.com/urfave/cli/v3"
	"gopkg.in/yaml.v3"
)

// Report holds the report configuration file location
type Report struct {
	Path string
}

// Flags returns CLI flags for Report configuration
func (r *Report) Flags() []cli.Flag {
	return []cli.Flag{
		&cli.StringFlag{
			Name:        "config",
			Aliases:     []string{"c"},
			Usage:       "YAML file with column aliases, severities, bug rules and chart settings",
			Category:    "Report",
			Sources:     cli.EnvVars("CASELENS_CONFIG"),
			Destination: &r.Path,
		},
	}
}

// Configure returns the built-in configuration, overridden by the YAML file if given
func (r *Report) Configure(ctx context.Context) (*model.ReportConfig, error) {
	if r.Path == "" {
		ctxlog.From(ctx).Debug("Using built-in report configuration")
		cfg := model.DefaultReportConfig()
		if err := cfg.Validate(); err != nil {
			return nil, goerr.Wrap(err, "invalid built-in report configuration")
		}
		return cfg, nil
	}
	return LoadReportConfigFromFile(r.Path)
}

// LoadReportConfigFromFile loads a YAML file on top of the built-in configuration
func LoadReportConfigFromFile(path string) (*model.ReportConfig, error) {
	if path == "" {
		return nil, goerr.New("configuration file path is required")
	}

	// Read file
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, goerr.Wrap(err, "configuration file not found",
				goerr.V("path", path))
		}
		return nil, goerr.Wrap(err, "failed to read configuration file",
			goerr.V("path", path))
	}

	// Keys absent from the file keep their built-in values
	config := model.DefaultReportConfig()
	if err := yaml.Unmarshal(data, config); err != nil {
		return nil, goerr.Wrap(err, "failed to parse YAML configuration",
			goerr.V("path", path),
			goerr.T(model.ErrTagInvalidConfig))
	}

	// Validate configuration
	if err := config.Validate(); err != nil {
		return nil, goerr.Wrap(err, "invalid configuration",
			goerr.V("path", path),
			goerr.T(model.ErrTagInvalidConfig))
	}

	return config, nil
}

// LogValue returns structured log value
func (r Report) LogValue() slog.Value {
	return slog.GroupValue(
		slog.String("path", r.Path),
	)
}
