package llm

import (
	"bytes"
	"context"
	"embed"
	"strings"
	"text/template"

	"github.com/goccy/go-json"
	"github.com/m-mizutani/goerr/v2"
	"github.com/m-mizutani/gollem"
	"github.com/secmon-lab/caselens/pkg/domain/model"
)

// Error tags for categorization
var (
	ErrTagInvalidJSON     = goerr.NewTag("invalid_json")
	ErrTagMissingField    = goerr.NewTag("missing_field")
	ErrTagEmptyResponse   = goerr.NewTag("empty_response")
	ErrTagTemplateFailure = goerr.NewTag("template_failure")
)

//go:embed templates/*.md
var templateFS embed.FS

// maxHighlights is the number of highlights kept from a response
const maxHighlights = 5

// breakdownSize is the number of entries of each breakdown given to the model
const breakdownSize = 8

// Narrator writes the analyst notes of a report with an LLM
type Narrator struct {
	llmClient gollem.LLMClient
}

// Breakdown is a named ranked list in the prompt
type Breakdown struct {
	Name   string
	Counts model.Counts
}

// NarrativeTemplateData contains the figures given to the model
type NarrativeTemplateData struct {
	Title           string
	PeriodStart     string
	PeriodEnd       string
	Days            int
	TotalCases      int
	CasesPerMonth   float64
	BugCases        int
	BugPercentage   float64
	HighPriority    int
	AvgResponseDays float64
	Months          []model.MonthCount
	Breakdowns      []Breakdown
}

// NewNarrator creates a new Narrator instance
func NewNarrator(llmClient gollem.LLMClient) *Narrator {
	return &Narrator{
		llmClient: llmClient,
	}
}

// Narrate asks the model for a headline and highlights of the analytics
func (s *Narrator) Narrate(ctx context.Context, title string, analytics *model.Analytics) (*model.Narrative, error) {
	if analytics == nil {
		return nil, goerr.New("no analytics provided for narrative")
	}

	prompt, err := renderNarrativeTemplate(buildTemplateData(title, analytics))
	if err != nil {
		return nil, goerr.Wrap(err, "failed to render narrative template",
			goerr.T(ErrTagTemplateFailure))
	}

	session, err := s.llmClient.NewSession(ctx, gollem.WithSessionContentType(gollem.ContentTypeJSON))
	if err != nil {
		return nil, goerr.Wrap(err, "failed to create LLM session")
	}

	response, err := session.GenerateContent(ctx, gollem.Text(prompt))
	if err != nil {
		return nil, goerr.Wrap(err, "failed to generate LLM response")
	}

	if len(response.Texts) == 0 || strings.TrimSpace(response.Texts[0]) == "" {
		return nil, goerr.New("empty response from LLM",
			goerr.T(ErrTagEmptyResponse))
	}

	var narrative model.Narrative
	if err := json.Unmarshal([]byte(response.Texts[0]), &narrative); err != nil {
		return nil, goerr.Wrap(err, "failed to parse LLM response as JSON",
			goerr.V("response", response.Texts[0]),
			goerr.T(ErrTagInvalidJSON))
	}

	narrative.Headline = strings.TrimSpace(narrative.Headline)
	if narrative.Headline == "" {
		return nil, goerr.New("LLM response missing headline",
			goerr.T(ErrTagMissingField),
			goerr.V("field", "headline"))
	}

	highlights := make([]string, 0, len(narrative.Highlights))
	for _, h := range narrative.Highlights {
		if h = strings.TrimSpace(h); h != "" {
			highlights = append(highlights, h)
		}
	}
	if len(highlights) > maxHighlights {
		highlights = highlights[:maxHighlights]
	}
	narrative.Highlights = highlights

	return &narrative, nil
}

func buildTemplateData(title string, a *model.Analytics) NarrativeTemplateData {
	data := NarrativeTemplateData{
		Title:         title,
		Days:          a.Summary.DateRange.Days,
		TotalCases:    a.Summary.TotalCases,
		CasesPerMonth: a.Summary.CasesPerMonth,
		BugCases:      a.Bug.BugCases,
		BugPercentage: a.Bug.Percentage,
		HighPriority:  a.HighPriorityCases,
		Months:        a.Monthly.Months,
	}
	if r := a.Summary.DateRange; r.Start != nil && r.End != nil {
		data.PeriodStart = r.Start.Format("2006-01-02")
		data.PeriodEnd = r.End.Format("2006-01-02")
	}
	if a.ResponseTimes.Available {
		data.AvgResponseDays = a.ResponseTimes.AvgDays
	}

	add := func(name string, available bool, counts model.Counts) {
		if available && len(counts) > 0 {
			data.Breakdowns = append(data.Breakdowns, Breakdown{Name: name, Counts: counts.Top(breakdownSize)})
		}
	}
	add("Severity", a.Severity.Available, a.Severity.Counts)
	add("Product Hierarchy", a.Product.Available, a.Product.Counts)
	add("Bug Types", a.Bug.Available, a.Bug.Types)
	add("Status", a.Statuses.Available, a.Statuses.Counts)
	add("Queue", a.Queues.Available, a.Queues.Counts)
	add("Assigned Engineer", a.Engineers.Available, a.Engineers.Counts)

	return data
}

func renderNarrativeTemplate(data NarrativeTemplateData) (string, error) {
	templateContent, err := templateFS.ReadFile("templates/narrative.md")
	if err != nil {
		return "", goerr.Wrap(err, "failed to read narrative template")
	}

	tmpl, err := template.New("narrative").Parse(string(templateContent))
	if err != nil {
		return "", goerr.Wrap(err, "failed to parse narrative template")
	}

	var buf bytes.Buffer
	if err := tmpl.Execute(&buf, data); err != nil {
		return "", goerr.Wrap(err, "failed to execute narrative template")
	}

	return buf.String(), nil
}
