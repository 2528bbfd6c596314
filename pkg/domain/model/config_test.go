package model_test

import (
	"sync"
	"testing"

	"github.com/m-mizutani/gt"
	"github.com/secmon-lab/caselens/pkg/domain/model"
	"github.com/secmon-lab/caselens/pkg/domain/types"
)

func TestDefaultReportConfig_Validate(t *testing.T) {
	cfg := model.DefaultReportConfig()
	gt.NoError(t, cfg.Validate())
	gt.Equal(t, cfg.Charts.TopN, 15)
	gt.Equal(t, len(cfg.Charts.Colors()), 10)
}

func TestReportConfig_ValidateErrors(t *testing.T) {
	testCases := []struct {
		name   string
		mutate func(c *model.ReportConfig)
	}{
		{
			name: "missing essential field",
			mutate: func(c *model.ReportConfig) {
				c.Fields = c.Fields[1:]
			},
		},
		{
			name: "duplicate field",
			mutate: func(c *model.ReportConfig) {
				c.Fields = append(c.Fields, c.Fields[0])
			},
		},
		{
			name: "field without alias",
			mutate: func(c *model.ReportConfig) {
				c.Fields[1].Aliases = nil
			},
		},
		{
			name: "broken bug pattern",
			mutate: func(c *model.ReportConfig) {
				c.Bug.Patterns = []string{"AL-("}
			},
		},
		{
			name: "pie chart for monthly trends",
			mutate: func(c *model.ReportConfig) {
				c.Charts.MonthlyTrends = types.ChartPie
			},
		},
		{
			name: "line chart for distribution",
			mutate: func(c *model.ReportConfig) {
				c.Charts.Queue = types.ChartLine
			},
		},
		{
			name: "donut chart for assignment",
			mutate: func(c *model.ReportConfig) {
				c.Charts.Engineer = types.ChartDonut
			},
		},
		{
			name: "unknown palette",
			mutate: func(c *model.ReportConfig) {
				c.Charts.Palette = "neon"
			},
		},
		{
			name: "zero top n",
			mutate: func(c *model.ReportConfig) {
				c.Charts.TopN = 0
			},
		},
		{
			name: "unknown output format",
			mutate: func(c *model.ReportConfig) {
				c.Formats = []types.OutputFormat{"docx"}
			},
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			cfg := model.DefaultReportConfig()
			tc.mutate(cfg)
			gt.Error(t, cfg.Validate())
		})
	}
}

func TestBugConfig(t *testing.T) {
	cfg := model.DefaultReportConfig()
	gt.NoError(t, cfg.Validate())
	bug := cfg.Bug

	t.Run("IsBug", func(t *testing.T) {
		testCases := []struct {
			value    string
			expected bool
		}{
			{"AL-12345", true},
			{"see cycon-42 for details", true},
			{"BUG-7", true},
			{"DEF-99", true},
			{"DP-100", false},
			{"N/A", false},
			{"", false},
			{"no bug", false},
		}
		for _, tc := range testCases {
			t.Run(tc.value, func(t *testing.T) {
				gt.Equal(t, bug.IsBug(tc.value), tc.expected)
			})
		}
	})

	t.Run("TypeOf", func(t *testing.T) {
		testCases := []struct {
			value    string
			expected string
		}{
			{"AL-12345", "Alteon"},
			{"cycon-1", "CyberController"},
			{"DP-3", "DefensePro"},
			{"BUG-7", "General"},
			{"ref DEF-9", "General"},
			{"XYZ-1", "Other"},
		}
		for _, tc := range testCases {
			t.Run(tc.value, func(t *testing.T) {
				gt.Equal(t, bug.TypeOf(tc.value), tc.expected)
			})
		}
	})

	t.Run("works without explicit validation", func(t *testing.T) {
		b := model.BugConfig{Patterns: []string{`AL-\d+`}}
		gt.True(t, b.IsBug("al-1"))
	})

	t.Run("concurrent use without validation", func(t *testing.T) {
		shared := model.DefaultReportConfig()
		var wg sync.WaitGroup
		results := make([]bool, 8)
		for i := range results {
			wg.Add(1)
			go func(i int) {
				defer wg.Done()
				results[i] = shared.Bug.IsBug("AL-1") && !shared.Bug.IsBug("DP-1")
			}(i)
		}
		wg.Wait()
		for _, ok := range results {
			gt.True(t, ok)
		}
	})
}

func TestReportConfig_IsInternal(t *testing.T) {
	cfg := model.DefaultReportConfig()

	gt.True(t, cfg.IsInternal("Yes"))
	gt.True(t, cfg.IsInternal(" TRUE "))
	gt.True(t, cfg.IsInternal("1"))
	gt.True(t, cfg.IsInternal("internal"))
	gt.False(t, cfg.IsInternal("No"))
	gt.False(t, cfg.IsInternal("N/A"))
}

func TestFieldsConfig(t *testing.T) {
	cfg := model.DefaultReportConfig().GetFieldsConfig()

	required := cfg.RequiredFields()
	gt.Equal(t, required, []types.FieldName{types.FieldCaseID, types.FieldStatus, types.FieldCreatedAt})

	f := cfg.FindField(types.FieldEngineer)
	gt.V(t, f).NotNil()
	gt.Equal(t, f.Aliases[0], "Assigned Account")
	gt.Equal(t, f.DisplayName(), "Assigned Engineer")

	gt.V(t, cfg.FindField(types.FieldName("unknown"))).Nil()
}
