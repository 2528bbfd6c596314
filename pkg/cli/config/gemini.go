package config

import (
	"context"
	"log/slog"

	"github.com/m-mizutani/goerr/v2"
	"github.com/m-mizutani/gollem/llm/gemini"
	"github.com/secmon-lab/caselens/pkg/service/llm"
	"github.com/urfave/cli/v3"
)

// Gemini holds Gemini configuration
type Gemini struct {
	Project  string
	Location string
	Model    string
}

// Flags returns CLI flags for Gemini configuration
func (g *Gemini) Flags() []cli.Flag {
	return []cli.Flag{
		&cli.StringFlag{
			Name:        "gemini-project",
			Usage:       "GCP project ID for Gemini. Enables generated analyst notes",
			Category:    "Gemini",
			Sources:     cli.EnvVars("CASELENS_GEMINI_PROJECT"),
			Destination: &g.Project,
		},
		&cli.StringFlag{
			Name:        "gemini-location",
			Usage:       "Gemini location",
			Category:    "Gemini",
			Value:       "us-central1",
			Sources:     cli.EnvVars("CASELENS_GEMINI_LOCATION"),
			Destination: &g.Location,
		},
		&cli.StringFlag{
			Name:        "gemini-model",
			Usage:       "Gemini model name",
			Category:    "Gemini",
			Value:       "gemini-2.5-flash",
			Sources:     cli.EnvVars("CASELENS_GEMINI_MODEL"),
			Destination: &g.Model,
		},
	}
}

// Configure creates a narrator backed by Gemini. It returns nil when Gemini is not configured.
func (g *Gemini) Configure(ctx context.Context) (*llm.Narrator, error) {
	if !g.IsConfigured() {
		return nil, nil
	}

	var options []gemini.Option
	if g.Model != "" {
		options = append(options, gemini.WithModel(g.Model))
	}

	client, err := gemini.New(ctx, g.Project, g.Location, options...)
	if err != nil {
		return nil, goerr.Wrap(err, "failed to create Gemini client",
			goerr.V("project", g.Project),
			goerr.V("location", g.Location))
	}

	return llm.NewNarrator(client), nil
}

// IsConfigured checks if Gemini is properly configured
func (g *Gemini) IsConfigured() bool {
	return g.Project != ""
}

// LogValue returns structured log value
func (g Gemini) LogValue() slog.Value {
	return slog.GroupValue(
		slog.String("project", g.Project),
		slog.String("location", g.Location),
		slog.String("model", g.Model),
	)
}
