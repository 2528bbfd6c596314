package model

import (
	"strings"

	"github.com/m-mizutani/goerr/v2"
	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

// UnknownSeverity is the label given to cases without a usable severity value
const UnknownSeverity = "Unknown"

// Severity represents a normalized severity level
type Severity struct {
	ID           string   `yaml:"id"`                      // Unique identifier
	Name         string   `yaml:"name"`                    // Display label, e.g. "1 - Critical"
	Level        int      `yaml:"level"`                   // 1 is the most severe
	Color        string   `yaml:"color,omitempty"`         // Chart color override (optional)
	HighPriority bool     `yaml:"high_priority,omitempty"` // Counted as high priority in the executive summary
	Values       []string `yaml:"values"`                  // Raw values mapped to this level, compared case-insensitively
}

// Validate validates the severity
func (s *Severity) Validate() error {
	if s.ID == "" {
		return goerr.New("severity ID is required")
	}
	if s.Name == "" {
		return goerr.New("severity name is required", goerr.V("id", s.ID))
	}
	if s.Level < 0 || s.Level > 99 {
		return goerr.New("severity level must be between 0 and 99",
			goerr.V("id", s.ID),
			goerr.V("level", s.Level))
	}
	return nil
}

// Matches returns true if the raw value maps to this severity
func (s *Severity) Matches(raw string) bool {
	v := strings.ToLower(strings.TrimSpace(raw))
	if v == strings.ToLower(s.Name) {
		return true
	}
	for _, candidate := range s.Values {
		if v == strings.ToLower(strings.TrimSpace(candidate)) {
			return true
		}
	}
	return false
}

// SeveritiesConfig represents the severity normalization table
type SeveritiesConfig struct {
	Severities []Severity `yaml:"severities"`
}

// Validate validates the severities configuration
func (c *SeveritiesConfig) Validate() error {
	if len(c.Severities) == 0 {
		return goerr.New("at least one severity is required")
	}

	idMap := make(map[string]bool)
	for i, sev := range c.Severities {
		if err := sev.Validate(); err != nil {
			return goerr.Wrap(err, "invalid severity at index",
				goerr.V("index", i),
				goerr.V("id", sev.ID))
		}

		if idMap[sev.ID] {
			return goerr.New("duplicate severity ID",
				goerr.V("id", sev.ID))
		}
		idMap[sev.ID] = true
	}

	return nil
}

// FindSeverityByName finds a severity by its display label
func (c *SeveritiesConfig) FindSeverityByName(name string) *Severity {
	for _, sev := range c.Severities {
		if sev.Name == name {
			result := sev
			return &result
		}
	}
	return nil
}

// Normalize maps a raw severity cell to its display label.
// Empty and null-like values become "Unknown". Values that match no configured
// severity are kept but title-cased so that "HIGH-ish" and "high-ish" group together.
func (c *SeveritiesConfig) Normalize(raw string) string {
	v := strings.TrimSpace(raw)
	if IsNullText(v) {
		return UnknownSeverity
	}

	for _, sev := range c.Severities {
		if sev.Matches(v) {
			return sev.Name
		}
	}

	return cases.Title(language.English).String(strings.ToLower(v))
}

// IsHighPriority returns true if the label belongs to a high priority severity
func (c *SeveritiesConfig) IsHighPriority(label string) bool {
	if sev := c.FindSeverityByName(label); sev != nil {
		return sev.HighPriority
	}
	return false
}

// Rank returns a sort key for a severity label. Configured levels come first
// in level order, everything else after them.
func (c *SeveritiesConfig) Rank(label string) int {
	if sev := c.FindSeverityByName(label); sev != nil {
		return sev.Level
	}
	return 100
}

// Colors returns the configured color overrides keyed by label
func (c *SeveritiesConfig) Colors() map[string]string {
	colors := make(map[string]string)
	for _, sev := range c.Severities {
		if sev.Color != "" {
			colors[sev.Name] = sev.Color
		}
	}
	return colors
}

// DefaultSeverities returns the standard four-level table
func DefaultSeverities() []Severity {
	return []Severity{
		{ID: "critical", Name: "1 - Critical", Level: 1, Color: "#dc3545", HighPriority: true, Values: []string{"1", "critical", "sev1", "p1"}},
		{ID: "high", Name: "2 - High", Level: 2, Color: "#ff6b35", HighPriority: true, Values: []string{"2", "high", "sev2", "p2"}},
		{ID: "medium", Name: "3 - Medium", Level: 3, Color: "#ffc107", Values: []string{"3", "medium", "sev3", "p3"}},
		{ID: "low", Name: "4 - Low", Level: 4, Color: "#28a745", Values: []string{"4", "low", "sev4", "p4"}},
	}
}
