package aggregate

import (
	"context"
	"math"
	"sort"
	"time"

	"github.com/m-mizutani/ctxlog"
	"github.com/secmon-lab/caselens/pkg/domain/model"
	"github.com/secmon-lab/caselens/pkg/domain/types"
	"github.com/secmon-lab/caselens/pkg/service/mapper"
)

// Reasons shown in place of a section that cannot be computed
const (
	ReasonNoCreatedColumn   = "No date created column found"
	ReasonNoValidDates      = "No valid creation dates found"
	ReasonNoSeverityColumn  = "No severity column found"
	ReasonNoProductColumn   = "No product hierarchy column found"
	ReasonNoBugColumn       = "No experienced bug column found"
	ReasonNoInternalColumn  = "No internal case column found"
	ReasonNoQueueColumn     = "No queue column found"
	ReasonNoOwnerColumn     = "No case owner/full name column found"
	ReasonNoStatusColumn    = "No status column found"
	ReasonNoEngineerColumn  = "No assigned account column found"
	ReasonNoCustomerColumn  = "No end customer column found"
	ReasonNoResponseColumns = "Missing date columns for response time analysis"
	ReasonNoResponseData    = "No valid response time data found"
)

// daysPerMonth is the average month length used for the monthly rate
const daysPerMonth = 30.44

// Aggregator computes report analytics from normalized cases
type Aggregator struct {
	cfg        *model.ReportConfig
	severities *model.SeveritiesConfig
}

// New creates an Aggregator
func New(cfg *model.ReportConfig) *Aggregator {
	return &Aggregator{
		cfg:        cfg,
		severities: cfg.GetSeveritiesConfig(),
	}
}

// Compute builds every analytics section. A section whose source column was
// not mapped is returned with Available=false and a reason.
func (x *Aggregator) Compute(ctx context.Context, cases []model.Case, m *mapper.Mapping) *model.Analytics {
	a := &model.Analytics{
		Statuses:         x.distribution(cases, m, types.FieldStatus, ReasonNoStatusColumn, func(c *model.Case) string { return c.Status }),
		Customers:        x.distribution(cases, m, types.FieldCustomer, ReasonNoCustomerColumn, func(c *model.Case) string { return c.Customer }),
		Queues:           x.distribution(cases, m, types.FieldQueue, ReasonNoQueueColumn, func(c *model.Case) string { return c.Queue }),
		InternalExternal: x.distribution(cases, m, types.FieldInternal, ReasonNoInternalColumn, internalLabel),
		Engineers:        x.assignment(cases, m, types.FieldEngineer, ReasonNoEngineerColumn, func(c *model.Case) string { return c.Engineer }),
		Owners:           x.assignment(cases, m, types.FieldOwner, ReasonNoOwnerColumn, func(c *model.Case) string { return c.Owner }),
		Monthly:          x.monthly(cases, m),
		Severity:         x.severity(cases, m),
		Product:          x.product(cases, m),
		Bug:              x.bug(cases, m),
		ResponseTimes:    x.responseTimes(cases, m),
	}
	a.Summary = x.summary(cases, a.Statuses.Counts)

	for i := range cases {
		if x.severities.IsHighPriority(cases[i].Severity) {
			a.HighPriorityCases++
		}
	}

	ctxlog.From(ctx).Debug("Computed analytics",
		"cases", a.Summary.TotalCases,
		"months", len(a.Monthly.Months),
		"bug_cases", a.Bug.BugCases,
		"undated", a.Summary.UndatedCases,
	)
	return a
}

func (x *Aggregator) summary(cases []model.Case, statuses model.Counts) model.Summary {
	s := model.Summary{
		TotalCases:      len(cases),
		StatusBreakdown: statuses,
		DateRange:       DateRangeOf(cases),
	}
	for i := range cases {
		if !cases[i].HasCreatedAt() {
			s.UndatedCases++
		}
	}

	// Without any dated case there is no period: cases per month stays 0 and
	// the daily average is taken over a single day.
	if s.DateRange.Days > 0 {
		months := math.Max(float64(s.DateRange.Days)/daysPerMonth, 1)
		s.CasesPerMonth = model.Round1(float64(s.TotalCases) / months)
	}
	s.AvgCasesPerDay = model.Round1(float64(s.TotalCases) / float64(max(s.DateRange.Days, 1)))
	return s
}

// DateRangeOf returns the span of creation dates. Days counts both ends, so a
// single day of cases is one day long. Days is 0 when no case has a date.
func DateRangeOf(cases []model.Case) model.DateRange {
	var start, end *time.Time
	for i := range cases {
		t := cases[i].CreatedAt
		if t == nil {
			continue
		}
		if start == nil || t.Before(*start) {
			start = t
		}
		if end == nil || t.After(*end) {
			end = t
		}
	}
	if start == nil {
		return model.DateRange{}
	}

	first := truncateDay(*start)
	last := truncateDay(*end)
	return model.DateRange{
		Start: start,
		End:   end,
		Days:  int(last.Sub(first).Hours()/24) + 1,
	}
}

func truncateDay(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}

func (x *Aggregator) monthly(cases []model.Case, m *mapper.Mapping) model.MonthlyTrends {
	if !m.Has(types.FieldCreatedAt) {
		return model.MonthlyTrends{Section: model.Unavailable(ReasonNoCreatedColumn)}
	}

	type bucket struct {
		count    int
		status   map[string]int
		severity map[string]int
	}
	buckets := make(map[string]*bucket)
	for i := range cases {
		c := &cases[i]
		if c.CreatedAt == nil {
			continue
		}
		key := c.CreatedAt.Format("2006-01")
		b, ok := buckets[key]
		if !ok {
			b = &bucket{status: make(map[string]int), severity: make(map[string]int)}
			buckets[key] = b
		}
		b.count++
		b.status[c.Status]++
		b.severity[c.Severity]++
	}
	if len(buckets) == 0 {
		return model.MonthlyTrends{Section: model.Unavailable(ReasonNoValidDates)}
	}

	keys := make([]string, 0, len(buckets))
	for k := range buckets {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	result := model.MonthlyTrends{Section: model.Section{Available: true}}
	for _, k := range keys {
		b := buckets[k]
		result.Months = append(result.Months, model.MonthCount{
			Month:    k,
			Count:    b.count,
			Status:   Rank(b.status, b.count),
			Severity: x.rankSeverity(b.severity, b.count),
		})
	}

	if len(result.Months) >= 3 {
		values := make([]float64, len(result.Months))
		for i, mc := range result.Months {
			values[i] = float64(mc.Count)
		}
		result.Trend = FitTrend(values)
	}
	return result
}

// FitTrend fits a least-squares line to values indexed 0..n-1. It returns
// nil when fewer than two points are given.
func FitTrend(values []float64) *model.TrendLine {
	n := float64(len(values))
	if len(values) < 2 {
		return nil
	}

	var sumX, sumY, sumXY, sumXX float64
	for i, y := range values {
		x := float64(i)
		sumX += x
		sumY += y
		sumXY += x * y
		sumXX += x * x
	}
	denom := n*sumXX - sumX*sumX
	if denom == 0 {
		return nil
	}
	slope := (n*sumXY - sumX*sumY) / denom
	return &model.TrendLine{
		Slope:     slope,
		Intercept: (sumY - slope*sumX) / n,
	}
}

func (x *Aggregator) severity(cases []model.Case, m *mapper.Mapping) model.SeverityAnalysis {
	if !m.Has(types.FieldSeverity) {
		return model.SeverityAnalysis{Section: model.Unavailable(ReasonNoSeverityColumn)}
	}
	counts := make(map[string]int)
	for i := range cases {
		counts[cases[i].Severity]++
	}
	return model.SeverityAnalysis{
		Section: model.Section{Available: true},
		Counts:  x.rankSeverity(counts, len(cases)),
		Total:   len(cases),
	}
}

func (x *Aggregator) product(cases []model.Case, m *mapper.Mapping) model.ProductAnalysis {
	if !m.Has(types.FieldProduct) {
		return model.ProductAnalysis{Section: model.Unavailable(ReasonNoProductColumn)}
	}

	counts := make(map[string]int)
	versions := make(map[string]map[string]int)
	for i := range cases {
		c := &cases[i]
		counts[c.Product]++
		if m.Has(types.FieldProductVersion) {
			if versions[c.Product] == nil {
				versions[c.Product] = make(map[string]int)
			}
			versions[c.Product][c.ProductVersion]++
		}
	}

	result := model.ProductAnalysis{
		Section: model.Section{Available: true},
		Counts:  Rank(counts, len(cases)),
	}
	if len(versions) > 0 {
		result.Versions = make(map[string]model.Counts, len(versions))
		for product, v := range versions {
			result.Versions[product] = Rank(v, counts[product])
		}
	}
	return result
}

func (x *Aggregator) bug(cases []model.Case, m *mapper.Mapping) model.BugAnalysis {
	if !m.Has(types.FieldBug) && !m.Has(types.FieldJiraBug) {
		return model.BugAnalysis{Section: model.Unavailable(ReasonNoBugColumn)}
	}

	result := model.BugAnalysis{Section: model.Section{Available: true}}
	bugTypes := make(map[string]int)
	severity := make(map[string]int)
	for i := range cases {
		c := &cases[i]
		if !x.cfg.Bug.IsBug(c.BugRef) {
			result.NonBugCases++
			continue
		}
		result.BugCases++
		bugTypes[x.cfg.Bug.TypeOf(c.BugRef)]++
		severity[c.Severity]++
	}

	result.Types = Rank(bugTypes, result.BugCases)
	result.Severity = x.rankSeverity(severity, result.BugCases)
	result.Percentage = model.Percentage(result.BugCases, len(cases))
	return result
}

func (x *Aggregator) distribution(cases []model.Case, m *mapper.Mapping, field types.FieldName, reason string, label func(*model.Case) string) model.Distribution {
	if !m.Has(field) {
		return model.Distribution{Section: model.Unavailable(reason)}
	}
	counts := make(map[string]int)
	for i := range cases {
		counts[label(&cases[i])]++
	}
	return model.Distribution{
		Section: model.Section{Available: true},
		Counts:  Rank(counts, len(cases)),
	}
}

func (x *Aggregator) assignment(cases []model.Case, m *mapper.Mapping, field types.FieldName, reason string, label func(*model.Case) string) model.Assignment {
	if !m.Has(field) {
		return model.Assignment{Section: model.Unavailable(reason)}
	}

	counts := make(map[string]int)
	statuses := make(map[string]map[string]int)
	for i := range cases {
		c := &cases[i]
		person := label(c)
		counts[person]++
		if statuses[person] == nil {
			statuses[person] = make(map[string]int)
		}
		statuses[person][c.Status]++
	}

	result := model.Assignment{
		Section:         model.Section{Available: true},
		Counts:          Rank(counts, len(cases)),
		StatusBreakdown: make(map[string]model.Counts, len(statuses)),
	}
	for person, s := range statuses {
		result.StatusBreakdown[person] = Rank(s, counts[person])
	}
	return result
}

func (x *Aggregator) responseTimes(cases []model.Case, m *mapper.Mapping) model.ResponseTimes {
	if !m.Has(types.FieldCreatedAt) || !m.Has(types.FieldRespondedAt) {
		return model.ResponseTimes{Section: model.Unavailable(ReasonNoResponseColumns)}
	}

	var total time.Duration
	n := 0
	for i := range cases {
		if d, ok := cases[i].ResponseTime(); ok {
			total += d
			n++
		}
	}
	if n == 0 {
		return model.ResponseTimes{Section: model.Unavailable(ReasonNoResponseData)}
	}

	hours := total.Hours() / float64(n)
	return model.ResponseTimes{
		Section:           model.Section{Available: true},
		AvgHours:          model.Round1(hours),
		AvgDays:           model.Round1(hours / 24),
		CasesWithResponse: n,
	}
}

func internalLabel(c *model.Case) string {
	if c.Internal {
		return model.InternalLabel
	}
	return model.ExternalLabel
}

// Rank converts label counts into a breakdown sorted by count, highest first.
// Equal counts are ordered by label.
func Rank(counts map[string]int, total int) model.Counts {
	result := make(model.Counts, 0, len(counts))
	for label, n := range counts {
		result = append(result, model.Count{Label: label, Count: n, Percent: model.Percentage(n, total)})
	}
	sort.Slice(result, func(i, j int) bool {
		if result[i].Count != result[j].Count {
			return result[i].Count > result[j].Count
		}
		return result[i].Label < result[j].Label
	})
	return result
}

// rankSeverity orders severities by configured level, unknown labels last by name
func (x *Aggregator) rankSeverity(counts map[string]int, total int) model.Counts {
	result := Rank(counts, total)
	sort.SliceStable(result, func(i, j int) bool {
		ri, rj := x.severities.Rank(result[i].Label), x.severities.Rank(result[j].Label)
		if ri != rj {
			return ri < rj
		}
		return result[i].Label < result[j].Label
	})
	return result
}
