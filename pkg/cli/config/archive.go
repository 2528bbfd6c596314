package config

import (
	"context"
	"log/slog"
	"net/url"
	"strings"

	"github.com/m-mizutani/ctxlog"
	"github.com/m-mizutani/goerr/v2"
	"github.com/secmon-lab/caselens/pkg/domain/interfaces"
	"github.com/secmon-lab/caselens/pkg/domain/model"
	"github.com/secmon-lab/caselens/pkg/repository"
	"github.com/urfave/cli/v3"
)

// Archive holds the report run archive configuration
type Archive struct {
	DSN string
}

// Flags returns CLI flags for Archive configuration
func (a *Archive) Flags() []cli.Flag {
	return []cli.Flag{
		&cli.StringFlag{
			Name:        "archive",
			Usage:       "Store run summaries: memory, sqlite://path, postgres://..., firestore://project[/database]",
			Category:    "Archive",
			Sources:     cli.EnvVars("CASELENS_ARCHIVE"),
			Destination: &a.DSN,
		},
	}
}

// Configure opens the archive named by the DSN. It returns nil when no archive is configured.
func (a *Archive) Configure(ctx context.Context) (interfaces.Archive, error) {
	logger := ctxlog.From(ctx)

	if !a.IsConfigured() {
		logger.Debug("Archive not configured, run summaries are not stored")
		return nil, nil
	}

	scheme, rest, _ := strings.Cut(a.DSN, "://")
	switch strings.ToLower(scheme) {
	case "memory":
		logger.Warn("Using memory archive. The data will be removed when shutting down")
		return repository.NewMemory(), nil

	case "sqlite", "file":
		if rest == "" {
			return nil, goerr.New("sqlite archive needs a file path", goerr.T(model.ErrTagInvalidConfig))
		}
		archive, err := repository.NewSQLite(ctx, rest)
		if err != nil {
			return nil, goerr.Wrap(err, "failed to init sqlite archive", goerr.V("path", rest))
		}
		return archive, nil

	case "postgres", "postgresql":
		archive, err := repository.NewPostgres(ctx, a.DSN)
		if err != nil {
			return nil, goerr.Wrap(err, "failed to init postgres archive")
		}
		return archive, nil

	case "firestore":
		project, database, _ := strings.Cut(rest, "/")
		if project == "" {
			return nil, goerr.New("firestore archive needs a project ID", goerr.T(model.ErrTagInvalidConfig))
		}
		archive, err := repository.NewFirestore(ctx, project, database)
		if err != nil {
			return nil, goerr.Wrap(err, "failed to init firestore",
				goerr.V("project", project),
				goerr.V("database", database),
			)
		}
		return archive, nil

	default:
		return nil, goerr.New("unsupported archive scheme",
			goerr.V("scheme", scheme),
			goerr.T(model.ErrTagInvalidConfig))
	}
}

// IsConfigured checks if an archive is configured
func (a *Archive) IsConfigured() bool {
	return a.DSN != ""
}

// LogValue returns structured log value. Credentials in the DSN are not logged.
func (a Archive) LogValue() slog.Value {
	return slog.GroupValue(
		slog.String("dsn", redactDSN(a.DSN)),
	)
}

func redactDSN(dsn string) string {
	u, err := url.Parse(dsn)
	if err != nil || u.User == nil {
		return dsn
	}
	return u.Redacted()
}
