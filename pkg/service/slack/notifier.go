package slack

import (
	"context"

	"github.com/m-mizutani/ctxlog"
	"github.com/m-mizutani/goerr/v2"
	"github.com/secmon-lab/caselens/pkg/domain/interfaces"
	"github.com/secmon-lab/caselens/pkg/domain/model"
	"github.com/slack-go/slack"
)

// Notifier posts report summaries to a Slack channel
type Notifier struct {
	client    interfaces.SlackClient
	channelID string
	builder   *BlockBuilder
}

var _ interfaces.Notifier = (*Notifier)(nil)

// NewNotifier creates a Notifier posting to channelID
func NewNotifier(client interfaces.SlackClient, channelID string) *Notifier {
	return &Notifier{
		client:    client,
		channelID: channelID,
		builder:   NewBlockBuilder(),
	}
}

// NotifyReport posts the summary of a processed file
func (n *Notifier) NotifyReport(ctx context.Context, result *model.FileResult) error {
	if n.channelID == "" {
		return goerr.New("channel ID is required")
	}
	if result == nil {
		return goerr.New("result is required")
	}

	var blocks []slack.Block
	if result.Success {
		blocks = n.builder.BuildReportBlocks(result)
	} else {
		blocks = n.builder.BuildFailureBlocks(result)
	}

	channel, ts, err := n.client.PostMessage(ctx, n.channelID,
		slack.MsgOptionText(FallbackText(result), false),
		slack.MsgOptionBlocks(blocks...),
	)
	if err != nil {
		return goerr.Wrap(err, "failed to post report summary to Slack",
			goerr.V("channel", n.channelID),
			goerr.V("input", result.Input))
	}

	ctxlog.From(ctx).Info("Posted report summary to Slack",
		"channel", channel,
		"ts", ts,
		"input", result.Input)
	return nil
}
