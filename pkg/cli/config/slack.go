package config

import (
	"log/slog"

	"github.com/m-mizutani/goerr/v2"
	"github.com/secmon-lab/caselens/pkg/domain/model"
	slackSvc "github.com/secmon-lab/caselens/pkg/service/slack"
	"github.com/urfave/cli/v3"
)

// Slack holds Slack configuration
type Slack struct {
	OAuthToken string
	ChannelID  string
}

// Flags returns CLI flags for Slack configuration
func (s *Slack) Flags() []cli.Flag {
	return []cli.Flag{
		&cli.StringFlag{
			Name:        "slack-oauth-token",
			Usage:       "Slack OAuth token for posting report summaries",
			Category:    "Slack",
			Sources:     cli.EnvVars("CASELENS_SLACK_OAUTH_TOKEN"),
			Destination: &s.OAuthToken,
		},
		&cli.StringFlag{
			Name:        "slack-channel",
			Usage:       "Slack channel ID that receives report summaries",
			Category:    "Slack",
			Sources:     cli.EnvVars("CASELENS_SLACK_CHANNEL"),
			Destination: &s.ChannelID,
		},
	}
}

// Configure creates a report notifier. It returns nil when Slack is not configured.
func (s *Slack) Configure() (*slackSvc.Notifier, error) {
	if s.OAuthToken == "" && s.ChannelID == "" {
		return nil, nil
	}
	if !s.IsConfigured() {
		return nil, goerr.New("both --slack-oauth-token and --slack-channel are required",
			goerr.T(model.ErrTagInvalidConfig))
	}
	return slackSvc.NewNotifier(slackSvc.New(s.OAuthToken), s.ChannelID), nil
}

// IsConfigured checks if Slack is properly configured
func (s *Slack) IsConfigured() bool {
	return s.OAuthToken != "" && s.ChannelID != ""
}

// LogValue returns structured log value
func (s Slack) LogValue() slog.Value {
	return slog.GroupValue(
		slog.Bool("has_oauth_token", s.OAuthToken != ""),
		slog.String("channel", s.ChannelID),
	)
}
