package model_test

import (
	"testing"

	"github.com/m-mizutani/gt"
	"github.com/secmon-lab/caselens/pkg/domain/model"
)

func TestSeverityValidate(t *testing.T) {
	t.Run("valid severity", func(t *testing.T) {
		sev := model.Severity{ID: "critical", Name: "1 - Critical", Level: 1}
		gt.NoError(t, sev.Validate())
	})

	t.Run("error when ID is empty", func(t *testing.T) {
		sev := model.Severity{Name: "1 - Critical", Level: 1}
		gt.Error(t, sev.Validate())
	})

	t.Run("error when Name is empty", func(t *testing.T) {
		sev := model.Severity{ID: "critical", Level: 1}
		gt.Error(t, sev.Validate())
	})

	t.Run("error when Level is 100", func(t *testing.T) {
		sev := model.Severity{ID: "critical", Name: "1 - Critical", Level: 100}
		gt.Error(t, sev.Validate())
	})
}

func TestSeveritiesConfig_Normalize(t *testing.T) {
	cfg := &model.SeveritiesConfig{Severities: model.DefaultSeverities()}

	testCases := []struct {
		raw      string
		expected string
	}{
		{"1", "1 - Critical"},
		{"Critical", "1 - Critical"},
		{"1 - critical", "1 - Critical"},
		{"  HIGH ", "2 - High"},
		{"3", "3 - Medium"},
		{"low", "4 - Low"},
		{"", "Unknown"},
		{"nan", "Unknown"},
		{"No Value", "Unknown"},
		{"needs triage", "Needs Triage"},
		{"BLOCKER", "Blocker"},
	}

	for _, tc := range testCases {
		t.Run(tc.raw, func(t *testing.T) {
			gt.Equal(t, cfg.Normalize(tc.raw), tc.expected)
		})
	}
}

func TestSeveritiesConfig_IsHighPriority(t *testing.T) {
	cfg := &model.SeveritiesConfig{Severities: model.DefaultSeverities()}

	gt.True(t, cfg.IsHighPriority("1 - Critical"))
	gt.True(t, cfg.IsHighPriority("2 - High"))
	gt.False(t, cfg.IsHighPriority("3 - Medium"))
	gt.False(t, cfg.IsHighPriority("Unknown"))
}

func TestSeveritiesConfig_Rank(t *testing.T) {
	cfg := &model.SeveritiesConfig{Severities: model.DefaultSeverities()}

	gt.True(t, cfg.Rank("1 - Critical") < cfg.Rank("4 - Low"))
	gt.True(t, cfg.Rank("4 - Low") < cfg.Rank("Unknown"))
}

func TestSeveritiesConfig_Validate(t *testing.T) {
	t.Run("defaults are valid", func(t *testing.T) {
		cfg := &model.SeveritiesConfig{Severities: model.DefaultSeverities()}
		gt.NoError(t, cfg.Validate())
	})

	t.Run("empty is invalid", func(t *testing.T) {
		cfg := &model.SeveritiesConfig{}
		gt.Error(t, cfg.Validate())
	})

	t.Run("duplicate ID is invalid", func(t *testing.T) {
		cfg := &model.SeveritiesConfig{Severities: []model.Severity{
			{ID: "high", Name: "High", Level: 1},
			{ID: "high", Name: "Higher", Level: 2},
		}}
		gt.Error(t, cfg.Validate())
	})
}

func TestCleanText(t *testing.T) {
	testCases := map[string]string{
		"":                 "N/A",
		"  ":               "N/A",
		"NaN":              "N/A",
		"null":             "N/A",
		"Not Available":    "N/A",
		"na":               "N/A",
		"  Acme Corp  ":    "Acme Corp",
		"Pending Customer": "Pending Customer",
	}

	for input, expected := range testCases {
		t.Run(input, func(t *testing.T) {
			gt.Equal(t, model.CleanText(input), expected)
		})
	}
}
