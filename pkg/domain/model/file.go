package model

import (
	"time"

	"github.com/secmon-lab/caselens/pkg/domain/types"
)

// ColumnMatch records which header a canonical field was resolved to
type ColumnMatch struct {
	Field    types.FieldName `json:"field"`
	Header   string          `json:"header"`
	Index    int             `json:"index"`
	Fallback bool            `json:"fallback,omitempty"` // Found by keyword search instead of alias
}

// Warning is a non-fatal problem found while reading an export
type Warning struct {
	Row     int    `json:"row,omitempty"` // 0 when the warning is not about a single row
	Message string `json:"message"`
}

// FileAnalysis describes an input file and how its columns were understood
type FileAnalysis struct {
	Name          string            `json:"name"`
	Path          string            `json:"path"`
	SizeBytes     int64             `json:"size_bytes"`
	Encoding      string            `json:"encoding,omitempty"`
	Sheet         string            `json:"sheet,omitempty"`
	Rows          int               `json:"rows"`
	SkippedRows   int               `json:"skipped_rows"`
	Headers       []string          `json:"headers"`
	Columns       []ColumnMatch     `json:"columns"`
	MissingFields []types.FieldName `json:"missing_fields,omitempty"`
	Warnings      []Warning         `json:"warnings,omitempty"`
	DateRange     DateRange         `json:"date_range"`
}

// ColumnsFound returns the number of resolved canonical fields
func (f *FileAnalysis) ColumnsFound() int {
	return len(f.Columns)
}

// GeneratedFile is one file written for a report
type GeneratedFile struct {
	Format types.OutputFormat `json:"format"`
	Path   string             `json:"path"`
	// Substitute is true when the file stands in for the requested format,
	// e.g. PDF instructions written because no PDF converter was found.
	Substitute bool `json:"substitute,omitempty"`
}

// FileResult is the outcome of processing one input file
type FileResult struct {
	RunID      types.RunID     `json:"run_id"`
	Input      string          `json:"input"`
	OutputName string          `json:"output_name,omitempty"` // prefix of the generated files
	Success    bool            `json:"success"`
	Error      string          `json:"error,omitempty"`
	Duration   time.Duration   `json:"duration"`
	Analysis   *FileAnalysis   `json:"analysis,omitempty"`
	Analytics  *Analytics      `json:"analytics,omitempty"`
	Narrative  *Narrative      `json:"narrative,omitempty"`
	Files      []GeneratedFile `json:"files,omitempty"`
}

// BatchResult is the outcome of processing a directory
type BatchResult struct {
	StartedAt   time.Time      `json:"started_at"`
	FinishedAt  time.Time      `json:"finished_at"`
	Results     []*FileResult  `json:"results"`
	SummaryFile *GeneratedFile `json:"summary_file,omitempty"`
}

// Successful returns the number of files that produced a report
func (b *BatchResult) Successful() int {
	n := 0
	for _, r := range b.Results {
		if r.Success {
			n++
		}
	}
	return n
}

// Failed returns the number of files that could not be processed
func (b *BatchResult) Failed() int {
	return len(b.Results) - b.Successful()
}

// OK returns true if at least one file was processed and none failed
func (b *BatchResult) OK() bool {
	return len(b.Results) > 0 && b.Failed() == 0
}

// TotalCases returns the number of cases over all successful files
func (b *BatchResult) TotalCases() int {
	total := 0
	for _, r := range b.Results {
		if r.Success && r.Analytics != nil {
			total += r.Analytics.Summary.TotalCases
		}
	}
	return total
}

// Duration returns the wall clock time of the batch
func (b *BatchResult) Duration() time.Duration {
	return b.FinishedAt.Sub(b.StartedAt)
}

// GeneratedFiles returns every file written by the batch
func (b *BatchResult) GeneratedFiles() []GeneratedFile {
	var files []GeneratedFile
	for _, r := range b.Results {
		files = append(files, r.Files...)
	}
	if b.SummaryFile != nil {
		files = append(files, *b.SummaryFile)
	}
	return files
}

// Narrative is the optional generated commentary of the executive summary
type Narrative struct {
	Headline   string   `json:"headline"`
	Highlights []string `json:"highlights"`
}
