package render

import (
	"fmt"

	"github.com/secmon-lab/caselens/pkg/domain/model"
	"github.com/secmon-lab/caselens/pkg/domain/types"
)

const noDataReason = "No data available"

// Missing replaces the charts of a section that could not be computed
type Missing struct {
	Name   string
	Reason string
}

// Section is one titled block of charts in the report
type Section struct {
	Title       string
	Description string
	Charts      []*Chart
	Missing     *Missing
}

func missing(title, name string, s model.Section) Section {
	reason := s.Reason
	if reason == "" {
		reason = noDataReason
	}
	return Section{Title: title, Missing: &Missing{Name: name, Reason: reason}}
}

// Sections builds all chart sections of a report in display order
func (x *ChartBuilder) Sections(a *model.Analytics) []Section {
	sections := []Section{
		x.monthlySection(a),
		x.severitySection(a),
		x.distributionSection(
			"Product Hierarchy Analysis", "Product Hierarchy", "product_hierarchy_chart", "Cases by Product Hierarchy",
			"Product distribution shows which product lines generate the most support requests, enabling targeted improvement efforts and resource planning.",
			a.Product.Section, a.Product.Counts, x.charts.Product, nil),
		x.bugSection(a),
		x.assignmentSection(
			"Engineer Case Distribution", "Engineer Assignment", "engineer_assignment_chart",
			"Cases by Assigned Engineer", "Engineer",
			"Case distribution by engineer provides insights into workload balance and individual performance metrics for team management.",
			&a.Engineers, x.charts.Engineer),
		x.assignmentSection(
			"Case Owner Distribution", "Case Owner Assignment", "case_owner_assignment_chart",
			"Cases by Case Owner", "Case Owner",
			"Case distribution by owner shows who raises support requests and how their cases progress.",
			&a.Owners, x.charts.Owner),
		x.distributionSection(
			"Internal vs External Cases", "Internal vs External", "internal_external_chart", "Internal vs External Cases",
			"The ratio of internal to external cases helps understand resource allocation between customer support and internal technical issues.",
			a.InternalExternal.Section, a.InternalExternal.Counts, x.charts.InternalExternal, nil),
		x.distributionSection(
			"Queue Distribution", "Queue Distribution", "queue_distribution_chart", "Cases by Queue",
			"Queue distribution shows how cases are distributed across different support teams, enabling optimization of team structures and specialization areas.",
			a.Queues.Section, a.Queues.Counts, x.charts.Queue, nil),
		x.distributionSection(
			"Case Status Distribution", "Status Distribution", "status_distribution_chart", "Case Distribution by Status",
			"Status distribution shows how much of the reported workload is still open and how much has been resolved.",
			a.Statuses.Section, a.Statuses.Counts, x.charts.Status, x.charts.StatusColors),
	}
	return sections
}

func (x *ChartBuilder) monthlySection(a *model.Analytics) Section {
	const title = "Monthly Case Volume Trends"
	if !a.Monthly.Available || len(a.Monthly.Months) == 0 {
		return missing(title, "Monthly Trends", a.Monthly.Section)
	}
	return Section{
		Title:       title,
		Description: "This chart shows the monthly distribution of TAC cases, helping identify seasonal patterns, workload trends, and capacity planning requirements.",
		Charts:      []*Chart{x.Monthly(&a.Monthly)},
	}
}

func (x *ChartBuilder) severitySection(a *model.Analytics) Section {
	const title = "Case Severity Distribution"
	if !a.Severity.Available || len(a.Severity.Counts) == 0 {
		return missing(title, "Severity Distribution", a.Severity.Section)
	}
	return Section{
		Title:       title,
		Description: "Severity distribution provides insight into the criticality of support requests and helps prioritize resource allocation for high-impact issues.",
		Charts: []*Chart{
			x.Distribution("severity_distribution_chart", "Case Distribution by Severity", a.Severity.Counts, x.charts.Severity, x.severityColors),
		},
	}
}

func (x *ChartBuilder) bugSection(a *model.Analytics) Section {
	const title = "Bug-Related Case Analysis"
	if !a.Bug.Available {
		return missing(title, "Bug Analysis", a.Bug.Section)
	}
	s := Section{
		Title:       title,
		Description: "Understanding the proportion of bug-related cases helps assess product quality and the effectiveness of quality assurance processes.",
		Charts: []*Chart{
			x.Distribution("bug_analysis_chart", "Bug vs Non-Bug Cases", a.Bug.BugVsNonBug(), x.charts.Bug, x.charts.BugColors),
		},
	}
	if len(a.Bug.Types) > 0 {
		s.Charts = append(s.Charts,
			x.Distribution("bug_types_chart", "Bug Types Breakdown", a.Bug.Types, x.charts.Bug, nil))
	}
	return s
}

func (x *ChartBuilder) distributionSection(title, name, id, chartTitle, description string, section model.Section, counts model.Counts, chartType types.ChartType, fixed map[string]string) Section {
	if !section.Available || len(counts) == 0 {
		return missing(title, name, section)
	}
	return Section{
		Title:       title,
		Description: description,
		Charts:      []*Chart{x.Distribution(id, chartTitle, counts, chartType, fixed)},
	}
}

func (x *ChartBuilder) assignmentSection(title, name, id, chartTitle, axis, description string, assignment *model.Assignment, chartType types.ChartType) Section {
	if !assignment.Available || len(assignment.Counts) == 0 {
		return missing(title, name, assignment.Section)
	}
	chartTitle = fmt.Sprintf("%s (Top %d)", chartTitle, x.charts.TopN)
	return Section{
		Title:       title,
		Description: description,
		Charts:      []*Chart{x.Assignment(id, chartTitle, axis, assignment.Counts, chartType)},
	}
}
