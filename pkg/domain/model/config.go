package model

import (
	"regexp"
	"strings"

	"github.com/m-mizutani/goerr/v2"
	"github.com/secmon-lab/caselens/pkg/domain/types"
)

// DefaultPalette is the palette used when none is configured
const DefaultPalette = "professional_blue"

// ReportConfig represents the report configuration: alias table, normalization
// tables and chart settings. Values from a YAML file are applied on top of
// DefaultReportConfig.
type ReportConfig struct {
	Title          string               `yaml:"title"`
	Fields         []Field              `yaml:"fields"`
	Severities     []Severity           `yaml:"severities"`
	Bug            BugConfig            `yaml:"bug"`
	InternalValues []string             `yaml:"internal_values"`
	Charts         ChartsConfig         `yaml:"charts"`
	Loader         LoaderConfig         `yaml:"loader"`
	Formats        []types.OutputFormat `yaml:"formats"`
	LargeFileBytes int64                `yaml:"large_file_bytes"`
}

// Validate validates the entire configuration
func (c *ReportConfig) Validate() error {
	if err := c.GetFieldsConfig().Validate(); err != nil {
		return goerr.Wrap(err, "invalid fields")
	}
	if err := c.GetSeveritiesConfig().Validate(); err != nil {
		return goerr.Wrap(err, "invalid severities")
	}
	if err := c.Bug.Validate(); err != nil {
		return goerr.Wrap(err, "invalid bug settings")
	}
	if err := c.Charts.Validate(); err != nil {
		return goerr.Wrap(err, "invalid chart settings")
	}
	for _, f := range c.Formats {
		if !f.IsValid() {
			return goerr.New("invalid output format", goerr.V("format", f))
		}
	}
	if c.LargeFileBytes < 0 {
		return goerr.New("large_file_bytes must not be negative", goerr.V("value", c.LargeFileBytes))
	}
	return nil
}

// GetFieldsConfig returns FieldsConfig
func (c *ReportConfig) GetFieldsConfig() *FieldsConfig {
	return &FieldsConfig{Fields: c.Fields}
}

// GetSeveritiesConfig returns SeveritiesConfig
func (c *ReportConfig) GetSeveritiesConfig() *SeveritiesConfig {
	return &SeveritiesConfig{Severities: c.Severities}
}

// IsInternal returns true if the value of the internal flag column means "internal"
func (c *ReportConfig) IsInternal(raw string) bool {
	v := strings.ToLower(strings.TrimSpace(raw))
	for _, t := range c.InternalValues {
		if v == strings.ToLower(t) {
			return true
		}
	}
	return false
}

// BugType maps bug reference prefixes to a display name
type BugType struct {
	Name     string   `yaml:"name"`
	Prefixes []string `yaml:"prefixes"`
	Anywhere bool     `yaml:"anywhere,omitempty"` // Match the prefix anywhere in the value
}

// BugConfig decides which cases are bug related and how they are grouped
type BugConfig struct {
	Patterns    []string  `yaml:"patterns"`
	Types       []BugType `yaml:"types"`
	DefaultType string    `yaml:"default_type"`

	compiled []*regexp.Regexp
}

// Validate compiles the patterns and validates the type table
func (b *BugConfig) Validate() error {
	if len(b.Patterns) == 0 {
		return goerr.New("at least one bug pattern is required")
	}
	compiled := make([]*regexp.Regexp, 0, len(b.Patterns))
	for _, p := range b.Patterns {
		re, err := regexp.Compile("(?i)" + p)
		if err != nil {
			return goerr.Wrap(err, "invalid bug pattern", goerr.V("pattern", p))
		}
		compiled = append(compiled, re)
	}
	for i, t := range b.Types {
		if t.Name == "" || len(t.Prefixes) == 0 {
			return goerr.New("bug type needs a name and prefixes", goerr.V("index", i))
		}
	}
	b.compiled = compiled
	return nil
}

// IsBug returns true if the bug column value contains a bug reference
func (b *BugConfig) IsBug(raw string) bool {
	if IsNullText(raw) {
		return false
	}
	for _, re := range b.patterns() {
		if re.MatchString(raw) {
			return true
		}
	}
	return false
}

// patterns returns the patterns compiled by Validate. Without Validate they are
// compiled on every call and not stored.
func (b *BugConfig) patterns() []*regexp.Regexp {
	if b.compiled != nil {
		return b.compiled
	}
	compiled := make([]*regexp.Regexp, 0, len(b.Patterns))
	for _, p := range b.Patterns {
		if re, err := regexp.Compile("(?i)" + p); err == nil {
			compiled = append(compiled, re)
		}
	}
	return compiled
}

// TypeOf returns the bug type name for a bug reference
func (b *BugConfig) TypeOf(raw string) string {
	v := strings.ToUpper(strings.TrimSpace(raw))
	for _, t := range b.Types {
		for _, prefix := range t.Prefixes {
			p := strings.ToUpper(prefix)
			if strings.HasPrefix(v, p) || (t.Anywhere && strings.Contains(v, p)) {
				return t.Name
			}
		}
	}
	if b.DefaultType != "" {
		return b.DefaultType
	}
	return "Other"
}

// ChartsConfig holds chart types and colors
type ChartsConfig struct {
	MonthlyTrends    types.ChartType     `yaml:"monthly_trends"`
	Severity         types.ChartType     `yaml:"severity_distribution"`
	Product          types.ChartType     `yaml:"product_hierarchy"`
	Bug              types.ChartType     `yaml:"bug_analysis"`
	InternalExternal types.ChartType     `yaml:"internal_external"`
	Queue            types.ChartType     `yaml:"queue_distribution"`
	Status           types.ChartType     `yaml:"status_distribution"`
	Engineer         types.ChartType     `yaml:"engineer_assignment"`
	Owner            types.ChartType     `yaml:"case_owner_assignment"`
	ShowTrend        bool                `yaml:"show_trend"`
	TopN             int                 `yaml:"top_n"`
	Palette          string              `yaml:"palette"`
	Palettes         map[string][]string `yaml:"palettes"`
	StatusColors     map[string]string   `yaml:"status_colors,omitempty"`
	BugColors        map[string]string   `yaml:"bug_colors,omitempty"`
}

// Validate validates chart settings
func (c *ChartsConfig) Validate() error {
	switch c.MonthlyTrends {
	case types.ChartLine, types.ChartBar, types.ChartArea:
	default:
		return goerr.New("monthly trends chart must be line, bar or area", goerr.V("type", c.MonthlyTrends))
	}

	for name, t := range map[string]types.ChartType{
		"severity_distribution": c.Severity,
		"product_hierarchy":     c.Product,
		"bug_analysis":          c.Bug,
		"internal_external":     c.InternalExternal,
		"queue_distribution":    c.Queue,
		"status_distribution":   c.Status,
	} {
		if !t.IsValid() || t == types.ChartLine || t == types.ChartArea {
			return goerr.New("invalid distribution chart type", goerr.V("chart", name), goerr.V("type", t))
		}
	}

	for name, t := range map[string]types.ChartType{
		"engineer_assignment":   c.Engineer,
		"case_owner_assignment": c.Owner,
	} {
		if t != types.ChartBar && t != types.ChartHorizontalBar {
			return goerr.New("assignment chart must be bar or horizontal_bar", goerr.V("chart", name), goerr.V("type", t))
		}
	}

	if c.TopN <= 0 {
		return goerr.New("top_n must be positive", goerr.V("top_n", c.TopN))
	}
	if len(c.Colors()) == 0 {
		return goerr.New("palette is not defined or empty", goerr.V("palette", c.Palette))
	}
	return nil
}

// Colors returns the active palette
func (c *ChartsConfig) Colors() []string {
	name := c.Palette
	if name == "" {
		name = DefaultPalette
	}
	return c.Palettes[name]
}

// LoaderConfig controls how title and footer rows of exports are detected
type LoaderConfig struct {
	TitleMarkers  []string `yaml:"title_markers"`
	FooterMarkers []string `yaml:"footer_markers"`
}

// DefaultReportConfig returns the built-in configuration
func DefaultReportConfig() *ReportConfig {
	return &ReportConfig{
		Title:      "TAC Executive Report",
		Fields:     DefaultFields(),
		Severities: DefaultSeverities(),
		Bug: BugConfig{
			Patterns: []string{`AL-\d+`, `CYCON-\d+`, `BUG-\d+`, `DEF-\d+`},
			Types: []BugType{
				{Name: "Alteon", Prefixes: []string{"AL-"}},
				{Name: "CyberController", Prefixes: []string{"CYCON-"}},
				{Name: "DefensePro", Prefixes: []string{"DP-"}},
				{Name: "General", Prefixes: []string{"BUG-", "DEF-"}, Anywhere: true},
			},
			DefaultType: "Other",
		},
		InternalValues: []string{"yes", "y", "true", "1", "internal"},
		Charts: ChartsConfig{
			MonthlyTrends:    types.ChartBar,
			Severity:         types.ChartPie,
			Product:          types.ChartPie,
			Bug:              types.ChartPie,
			InternalExternal: types.ChartPie,
			Queue:            types.ChartPie,
			Status:           types.ChartPie,
			Engineer:         types.ChartHorizontalBar,
			Owner:            types.ChartHorizontalBar,
			ShowTrend:        true,
			TopN:             15,
			Palette:          DefaultPalette,
			Palettes:         DefaultPalettes(),
			BugColors: map[string]string{
				BugCasesLabel:    "#dc3545",
				NonBugCasesLabel: "#003f7f",
			},
		},
		Loader: LoaderConfig{
			TitleMarkers:  []string{"open cases all", "all cases", "case report"},
			FooterMarkers: []string{"record count", "total", "summary"},
		},
		Formats:        []types.OutputFormat{types.OutputFormatHTML},
		LargeFileBytes: 100 * 1024 * 1024,
	}
}

// DefaultPalettes returns the built-in color palettes
func DefaultPalettes() map[string][]string {
	return map[string][]string{
		"corporate": {
			"#003f7f", "#6cb2eb", "#ff6b35", "#28a745", "#ffc107",
			"#dc3545", "#17a2b8", "#6f42c1", "#e83e8c", "#fd7e14",
			"#20c997", "#6610f2", "#e91e63", "#795548", "#607d8b",
		},
		"professional_blue": {
			"#1f4e79", "#2e75b6", "#5b9bd5", "#9fc5e8", "#cfe2f3",
			"#003f7f", "#34495e", "#6cb2eb", "#3a6ea5", "#b4c6e7",
		},
		"modern_minimal": {
			"#2c3e50", "#34495e", "#95a5a6", "#bdc3c7", "#ecf0f1",
			"#e74c3c", "#e67e22", "#f39c12", "#27ae60", "#3498db",
		},
		"vibrant_corporate": {
			"#e74c3c", "#3498db", "#2ecc71", "#f39c12", "#9b59b6",
			"#1abc9c", "#34495e", "#e67e22", "#95a5a6", "#f1c40f",
		},
		"high_contrast": {
			"#000000", "#ffffff", "#ff0000", "#00ff00", "#0000ff",
			"#ffff00", "#ff00ff", "#00ffff", "#800000", "#008000",
		},
		"colorblind_friendly": {
			"#1f77b4", "#ff7f0e", "#2ca02c", "#d62728", "#9467bd",
			"#8c564b", "#e377c2", "#7f7f7f", "#bcbd22", "#17becf",
		},
	}
}
