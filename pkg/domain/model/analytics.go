package model

import (
	"math"
	"time"
)

// Labels used by the bug and internal/external breakdowns
const (
	BugCasesLabel    = "Bug Cases"
	NonBugCasesLabel = "Non-Bug Cases"
	InternalLabel    = "Internal"
	ExternalLabel    = "External"
)

// Count is one entry of a ranked breakdown
type Count struct {
	Label   string  `json:"label"`
	Count   int     `json:"count"`
	Percent float64 `json:"percent"`
}

// Counts is a breakdown sorted by count (descending) unless stated otherwise
type Counts []Count

// Total returns the sum of all counts
func (c Counts) Total() int {
	total := 0
	for _, v := range c {
		total += v.Count
	}
	return total
}

// Get returns the count for a label, 0 if absent
func (c Counts) Get(label string) int {
	for _, v := range c {
		if v.Label == label {
			return v.Count
		}
	}
	return 0
}

// Top returns at most n leading entries
func (c Counts) Top(n int) Counts {
	if n <= 0 || len(c) <= n {
		return c
	}
	return c[:n]
}

// Labels returns the labels in order
func (c Counts) Labels() []string {
	labels := make([]string, len(c))
	for i, v := range c {
		labels[i] = v.Label
	}
	return labels
}

// Values returns the counts in order
func (c Counts) Values() []int {
	values := make([]int, len(c))
	for i, v := range c {
		values[i] = v.Count
	}
	return values
}

// Section carries whether an analysis could be computed from the mapped columns
type Section struct {
	Available bool   `json:"available"`
	Reason    string `json:"reason,omitempty"`
}

// Unavailable returns a Section explaining why an analysis is missing
func Unavailable(reason string) Section {
	return Section{Available: false, Reason: reason}
}

// DateRange is the span of case creation dates
type DateRange struct {
	Start *time.Time `json:"start,omitempty"`
	End   *time.Time `json:"end,omitempty"`
	Days  int        `json:"days"`
}

// Summary holds headline metrics
type Summary struct {
	TotalCases      int       `json:"total_cases"`
	DateRange       DateRange `json:"date_range"`
	StatusBreakdown Counts    `json:"status_breakdown"`
	CasesPerMonth   float64   `json:"cases_per_month"`
	AvgCasesPerDay  float64   `json:"avg_cases_per_day"`
	UndatedCases    int       `json:"undated_cases"`
}

// MonthCount is the number of cases created in one month
type MonthCount struct {
	Month    string `json:"month"` // YYYY-MM
	Count    int    `json:"count"`
	Status   Counts `json:"status,omitempty"`
	Severity Counts `json:"severity,omitempty"`
}

// TrendLine is a least-squares line over month indexes
type TrendLine struct {
	Intercept float64 `json:"intercept"`
	Slope     float64 `json:"slope"`
}

// At returns the trend value at month index x
func (t TrendLine) At(x int) float64 {
	return t.Intercept + t.Slope*float64(x)
}

// MonthlyTrends is the case volume per month, oldest first
type MonthlyTrends struct {
	Section
	Months []MonthCount `json:"months,omitempty"`
	Trend  *TrendLine   `json:"trend,omitempty"` // nil with fewer than three months
}

// SeverityAnalysis is the severity distribution, ordered by severity level
type SeverityAnalysis struct {
	Section
	Counts Counts `json:"counts,omitempty"`
	Total  int    `json:"total"`
}

// ProductAnalysis is the product distribution with versions per product
type ProductAnalysis struct {
	Section
	Counts   Counts            `json:"counts,omitempty"`
	Versions map[string]Counts `json:"versions,omitempty"`
}

// BugAnalysis describes bug related cases
type BugAnalysis struct {
	Section
	BugCases    int     `json:"bug_cases"`
	NonBugCases int     `json:"non_bug_cases"`
	Types       Counts  `json:"types,omitempty"`
	Severity    Counts  `json:"severity,omitempty"`
	Percentage  float64 `json:"percentage"`
}

// BugVsNonBug returns the two-slice breakdown used by charts
func (b *BugAnalysis) BugVsNonBug() Counts {
	total := b.BugCases + b.NonBugCases
	return Counts{
		{Label: BugCasesLabel, Count: b.BugCases, Percent: Percentage(b.BugCases, total)},
		{Label: NonBugCasesLabel, Count: b.NonBugCases, Percent: Percentage(b.NonBugCases, total)},
	}
}

// Distribution is a single ranked breakdown
type Distribution struct {
	Section
	Counts Counts `json:"counts,omitempty"`
}

// Assignment is a ranked breakdown of cases per person with status per person
type Assignment struct {
	Section
	Counts          Counts            `json:"counts,omitempty"`
	StatusBreakdown map[string]Counts `json:"status_breakdown,omitempty"`
}

// ResponseTimes is the average time from creation to last response
type ResponseTimes struct {
	Section
	AvgHours          float64 `json:"avg_hours"`
	AvgDays           float64 `json:"avg_days"`
	CasesWithResponse int     `json:"cases_with_response"`
}

// Analytics is the complete result of aggregating one export
type Analytics struct {
	Summary           Summary          `json:"summary"`
	Monthly           MonthlyTrends    `json:"monthly_trends"`
	Severity          SeverityAnalysis `json:"severity"`
	Product           ProductAnalysis  `json:"product"`
	Bug               BugAnalysis      `json:"bug"`
	Customers         Distribution     `json:"customers"`
	InternalExternal  Distribution     `json:"internal_external"`
	Queues            Distribution     `json:"queues"`
	Statuses          Distribution     `json:"statuses"`
	Engineers         Assignment       `json:"engineers"`
	Owners            Assignment       `json:"owners"`
	ResponseTimes     ResponseTimes    `json:"response_times"`
	HighPriorityCases int              `json:"high_priority_cases"`
}

// TopProduct returns the product with most cases, empty when unavailable
func (a *Analytics) TopProduct() string {
	if !a.Product.Available || len(a.Product.Counts) == 0 {
		return ""
	}
	return a.Product.Counts[0].Label
}

// Percentage returns part/total*100 rounded to one decimal, 0 when total is 0
func Percentage(part, total int) float64 {
	if total == 0 {
		return 0
	}
	return Round1(float64(part) / float64(total) * 100)
}

// Round1 rounds to one decimal place
func Round1(v float64) float64 {
	return math.Round(v*10) / 10
}
