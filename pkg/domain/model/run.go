package model

import (
	"path/filepath"
	"time"

	"github.com/m-mizutani/goerr/v2"
	"github.com/secmon-lab/caselens/pkg/domain/types"
)

// RunRecord is the archived summary of one generated report
type RunRecord struct {
	ID             types.RunID    `json:"id" firestore:"id"`
	SourceFile     string         `json:"source_file" firestore:"source_file"`
	GeneratedAt    time.Time      `json:"generated_at" firestore:"generated_at"`
	PeriodStart    *time.Time     `json:"period_start,omitempty" firestore:"period_start"`
	PeriodEnd      *time.Time     `json:"period_end,omitempty" firestore:"period_end"`
	TotalCases     int            `json:"total_cases" firestore:"total_cases"`
	CasesPerMonth  float64        `json:"cases_per_month" firestore:"cases_per_month"`
	BugPercentage  float64        `json:"bug_percentage" firestore:"bug_percentage"`
	HighPriority   int            `json:"high_priority" firestore:"high_priority"`
	SeverityCounts map[string]int `json:"severity_counts" firestore:"severity_counts"`
	ProductCounts  map[string]int `json:"product_counts" firestore:"product_counts"`
	Files          []string       `json:"files" firestore:"files"`
}

// NewRunRecord builds an archive record from a successful file result
func NewRunRecord(result *FileResult, generatedAt time.Time) (*RunRecord, error) {
	if result == nil || result.Analytics == nil {
		return nil, goerr.New("analytics are required to archive a run")
	}
	if result.RunID == "" {
		return nil, goerr.New("run ID is required")
	}

	a := result.Analytics
	record := &RunRecord{
		ID:             result.RunID,
		SourceFile:     filepath.Base(result.Input),
		GeneratedAt:    generatedAt,
		PeriodStart:    a.Summary.DateRange.Start,
		PeriodEnd:      a.Summary.DateRange.End,
		TotalCases:     a.Summary.TotalCases,
		CasesPerMonth:  a.Summary.CasesPerMonth,
		BugPercentage:  a.Bug.Percentage,
		HighPriority:   a.HighPriorityCases,
		SeverityCounts: countsToMap(a.Severity.Counts),
		ProductCounts:  countsToMap(a.Product.Counts),
	}
	for _, f := range result.Files {
		record.Files = append(record.Files, filepath.Base(f.Path))
	}
	return record, nil
}

func countsToMap(counts Counts) map[string]int {
	m := make(map[string]int, len(counts))
	for _, c := range counts {
		m[c.Label] = c.Count
	}
	return m
}
