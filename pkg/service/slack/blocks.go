package slack

import (
	"fmt"
	"path/filepath"
	"strings"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/secmon-lab/caselens/pkg/domain/model"
	"github.com/slack-go/slack"
)

// Block IDs of the report message
const (
	BlockIDHeadline = "report_headline"
	BlockIDMetrics  = "report_metrics"
	BlockIDFiles    = "report_files"
	BlockIDRun      = "report_run"
)

// GetPriorityEmoji returns emoji based on the share of high priority cases
func GetPriorityEmoji(highPriority, total int) string {
	switch {
	case total == 0 || highPriority == 0:
		return "✅"
	case highPriority*4 >= total:
		return "🚨" // a quarter or more
	default:
		return "⚠️"
	}
}

// BlockBuilder provides methods to build Slack message blocks
type BlockBuilder struct{}

// NewBlockBuilder creates a new BlockBuilder instance
func NewBlockBuilder() *BlockBuilder {
	return &BlockBuilder{}
}

// BuildReportBlocks creates the message announcing a generated report
func (b *BlockBuilder) BuildReportBlocks(result *model.FileResult) []slack.Block {
	name := filepath.Base(result.Input)
	blocks := []slack.Block{
		slack.NewHeaderBlock(
			slack.NewTextBlockObject(slack.PlainTextType, "📊 TAC report ready: "+name, true, false),
		),
	}

	if result.Narrative != nil && result.Narrative.Headline != "" {
		blocks = append(blocks, slack.NewSectionBlock(
			slack.NewTextBlockObject(slack.MarkdownType, "*"+result.Narrative.Headline+"*", false, false),
			nil, nil,
			slack.SectionBlockOptionBlockID(BlockIDHeadline),
		))
	}

	if a := result.Analytics; a != nil {
		blocks = append(blocks, slack.NewSectionBlock(nil, buildMetricFields(a), nil,
			slack.SectionBlockOptionBlockID(BlockIDMetrics)))
	}

	if len(result.Files) > 0 {
		var lines []string
		for _, f := range result.Files {
			line := fmt.Sprintf("• `%s` (%s)", filepath.Base(f.Path), f.Format)
			if f.Substitute {
				line += " _conversion instructions_"
			}
			lines = append(lines, line)
		}
		blocks = append(blocks,
			slack.NewDividerBlock(),
			slack.NewSectionBlock(
				slack.NewTextBlockObject(slack.MarkdownType, "*Generated files*\n"+strings.Join(lines, "\n"), false, false),
				nil, nil,
				slack.SectionBlockOptionBlockID(BlockIDFiles),
			),
		)
	}

	blocks = append(blocks, slack.NewContextBlock(BlockIDRun,
		slack.NewTextBlockObject(slack.MarkdownType,
			fmt.Sprintf("Run `%s` • processed in %s", result.RunID, result.Duration.Round(time.Millisecond)), false, false),
	))

	return blocks
}

// BuildFailureBlocks creates the message reporting a file that could not be processed
func (b *BlockBuilder) BuildFailureBlocks(result *model.FileResult) []slack.Block {
	return []slack.Block{
		slack.NewSectionBlock(
			slack.NewTextBlockObject(slack.MarkdownType,
				fmt.Sprintf("❌ *Report generation failed for* `%s`\n%s", filepath.Base(result.Input), result.Error),
				false, false),
			nil, nil,
		),
		slack.NewContextBlock(BlockIDRun,
			slack.NewTextBlockObject(slack.MarkdownType, fmt.Sprintf("Run `%s`", result.RunID), false, false),
		),
	}
}

// FallbackText returns the notification text shown by clients that cannot render blocks
func FallbackText(result *model.FileResult) string {
	name := filepath.Base(result.Input)
	if !result.Success {
		return "Report generation failed for " + name
	}
	if result.Analytics == nil {
		return "TAC report ready: " + name
	}
	return fmt.Sprintf("TAC report ready: %s (%s cases)", name, humanize.Comma(int64(result.Analytics.Summary.TotalCases)))
}

func buildMetricFields(a *model.Analytics) []*slack.TextBlockObject {
	field := func(label, value string) *slack.TextBlockObject {
		return slack.NewTextBlockObject(slack.MarkdownType, fmt.Sprintf("*%s*\n%s", label, value), false, false)
	}

	period := "Unknown"
	if r := a.Summary.DateRange; r.Start != nil && r.End != nil {
		period = fmt.Sprintf("%s to %s", r.Start.Format("2006-01-02"), r.End.Format("2006-01-02"))
	}

	fields := []*slack.TextBlockObject{
		field("Total Cases", humanize.Comma(int64(a.Summary.TotalCases))),
		field("Cases per Month", humanize.CommafWithDigits(a.Summary.CasesPerMonth, 1)),
		field("Period", period),
		field("High Priority", fmt.Sprintf("%s %d", GetPriorityEmoji(a.HighPriorityCases, a.Summary.TotalCases), a.HighPriorityCases)),
	}
	if a.Bug.Available {
		fields = append(fields, field("Bug Related", fmt.Sprintf("%.1f%%", a.Bug.Percentage)))
	}
	if top := a.TopProduct(); top != "" {
		fields = append(fields, field("Top Product", top))
	}
	return fields
}
