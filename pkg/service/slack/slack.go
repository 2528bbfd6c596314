package slack

import (
	"context"
	"errors"
	"time"

	"github.com/m-mizutani/ctxlog"
	"github.com/m-mizutani/goerr/v2"
	"github.com/slack-go/slack"
)

const defaultMaxRetries = 3

// Service posts report summaries with the Slack Web API
type Service struct {
	client     *slack.Client
	maxRetries int
}

// Option configures Service
type Option func(*serviceOptions)

type serviceOptions struct {
	apiURL     string
	maxRetries int
}

// WithAPIURL points the client at another Web API endpoint. The URL must end with a slash.
func WithAPIURL(url string) Option {
	return func(o *serviceOptions) {
		o.apiURL = url
	}
}

// WithMaxRetries sets how often a rate limited post is retried
func WithMaxRetries(n int) Option {
	return func(o *serviceOptions) {
		o.maxRetries = n
	}
}

// New creates a new Slack service
func New(token string, opts ...Option) *Service {
	o := serviceOptions{maxRetries: defaultMaxRetries}
	for _, opt := range opts {
		opt(&o)
	}

	var clientOpts []slack.Option
	if o.apiURL != "" {
		clientOpts = append(clientOpts, slack.OptionAPIURL(o.apiURL))
	}

	return &Service{
		client:     slack.New(token, clientOpts...),
		maxRetries: o.maxRetries,
	}
}

// PostMessage sends a message to a Slack channel. Rate limited requests are
// retried after the delay Slack asks for.
func (s *Service) PostMessage(ctx context.Context, channelID string, options ...slack.MsgOption) (string, string, error) {
	for attempt := 0; ; attempt++ {
		channel, timestamp, err := s.client.PostMessageContext(ctx, channelID, options...)
		if err == nil {
			return channel, timestamp, nil
		}

		var rateLimited *slack.RateLimitedError
		if !errors.As(err, &rateLimited) || attempt >= s.maxRetries {
			return "", "", goerr.Wrap(err, "failed to post message to Slack",
				goerr.V("channel", channelID),
				goerr.V("attempts", attempt+1))
		}

		ctxlog.From(ctx).Warn("Slack rate limit hit, retrying",
			"channel", channelID,
			"retry_after", rateLimited.RetryAfter,
			"attempt", attempt+1)

		select {
		case <-ctx.Done():
			return "", "", goerr.Wrap(ctx.Err(), "cancelled while waiting for Slack rate limit")
		case <-time.After(rateLimited.RetryAfter):
		}
	}
}
