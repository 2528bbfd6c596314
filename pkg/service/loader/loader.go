package loader

import (
	"context"
	"path/filepath"
	"strings"

	"github.com/m-mizutani/ctxlog"
	"github.com/m-mizutani/goerr/v2"
	"github.com/secmon-lab/caselens/pkg/domain/model"
)

// Table is the raw content of an export: one header row and the data rows below it
type Table struct {
	Headers     []string
	Rows        [][]string
	RowNumbers  []int // 1-based position of each row in the source file
	Encoding    string
	Sheet       string
	SkippedRows int // title, footer and blank rows that were dropped
	Warnings    []model.Warning
}

// SourceRow returns the row number of Rows[i] in the source file
func (t *Table) SourceRow(i int) int {
	if i >= 0 && i < len(t.RowNumbers) {
		return t.RowNumbers[i]
	}
	return i + 1
}

// Cell returns the value at row/col, or "" for cells beyond a short row
func (t *Table) Cell(row, col int) string {
	if row < 0 || row >= len(t.Rows) || col < 0 {
		return ""
	}
	r := t.Rows[row]
	if col >= len(r) {
		return ""
	}
	return r[col]
}

// Loader reads CSV and Excel case exports
type Loader struct {
	titleMarkers  []string
	footerMarkers []string
	headerAliases map[string]bool
}

// Option is a functional option for configuring Loader
type Option func(*Loader)

// WithHeaderAliases sets the known header names. A first row without any of
// them is treated as a title when the row below has one.
func WithHeaderAliases(aliases ...string) Option {
	return func(l *Loader) {
		for _, a := range aliases {
			if k := headerKey(a); k != "" {
				l.headerAliases[k] = true
			}
		}
	}
}

// New creates a Loader with title and footer row detection rules
func New(cfg model.LoaderConfig, opts ...Option) *Loader {
	l := &Loader{headerAliases: make(map[string]bool)}
	for _, m := range cfg.TitleMarkers {
		l.titleMarkers = append(l.titleMarkers, strings.ToLower(strings.TrimSpace(m)))
	}
	for _, m := range cfg.FooterMarkers {
		l.footerMarkers = append(l.footerMarkers, strings.ToLower(strings.TrimSpace(m)))
	}
	for _, opt := range opts {
		opt(l)
	}
	return l
}

// Kind is the file type of an input file
type Kind int

const (
	KindUnsupported Kind = iota
	KindCSV
	KindExcel
	KindLegacyExcel
)

// KindOf returns the file type from the file extension
func KindOf(path string) Kind {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".csv", ".tsv":
		return KindCSV
	case ".xlsx", ".xlsm":
		return KindExcel
	case ".xls":
		return KindLegacyExcel
	default:
		return KindUnsupported
	}
}

// IsInput returns true if the file looks like a case export, including formats
// that are recognized only to be reported as unsupported
func IsInput(path string) bool {
	return KindOf(path) != KindUnsupported
}

// Load reads a case export from path
func (l *Loader) Load(ctx context.Context, path string) (*Table, error) {
	if err := ctx.Err(); err != nil {
		return nil, goerr.Wrap(err, "load cancelled", goerr.V("path", path))
	}

	var (
		table *Table
		err   error
	)
	switch KindOf(path) {
	case KindCSV:
		table, err = l.loadCSV(path)
	case KindExcel:
		table, err = l.loadExcel(path)
	case KindLegacyExcel:
		return nil, goerr.New("legacy .xls workbooks are not supported, save the file as .xlsx or .csv",
			goerr.V("path", path),
			goerr.T(model.ErrTagUnsupportedFile))
	default:
		return nil, goerr.New("unsupported file type",
			goerr.V("path", path),
			goerr.T(model.ErrTagUnsupportedFile))
	}
	if err != nil {
		return nil, err
	}

	logger := ctxlog.From(ctx)
	for _, w := range table.Warnings {
		logger.Warn(w.Message, "path", path)
	}
	logger.Debug("Loaded case export",
		"path", path,
		"encoding", table.Encoding,
		"sheet", table.Sheet,
		"columns", len(table.Headers),
		"rows", len(table.Rows),
		"skipped", table.SkippedRows,
	)
	return table, nil
}

// buildTable finds the header row and drops title, blank and footer rows.
// lines holds the source row number of every record; nil means records are
// numbered from 1.
func (l *Loader) buildTable(records [][]string, lines []int) (*Table, error) {
	table := &Table{}
	rowNumber := func(i int) int {
		if i < len(lines) {
			return lines[i]
		}
		return i + 1
	}

	start := 0
	for start < len(records) && isBlank(records[start]) {
		start++
		table.SkippedRows++
	}
	if start >= len(records) {
		return nil, goerr.New("file has no header row", goerr.T(model.ErrTagEmptyFile))
	}

	if l.isTitleRow(records[start], records[start+1:]) {
		start++
		table.SkippedRows++
		for start < len(records) && isBlank(records[start]) {
			start++
			table.SkippedRows++
		}
	}
	if start >= len(records) {
		return nil, goerr.New("file has a title but no header row", goerr.T(model.ErrTagEmptyFile))
	}

	headers := make([]string, len(records[start]))
	for i, h := range records[start] {
		headers[i] = strings.TrimSpace(strings.TrimPrefix(h, "\ufeff"))
	}
	table.Headers = headers

	for i := start + 1; i < len(records); i++ {
		rec := records[i]
		if isBlank(rec) || l.isFooterRow(rec) {
			table.SkippedRows++
			continue
		}
		table.Rows = append(table.Rows, rec)
		table.RowNumbers = append(table.RowNumbers, rowNumber(i))
	}

	return table, nil
}

// isTitleRow reports whether the first row is a report title above the real
// header. A known title text always counts. A row without any known header
// name counts when the next row has one. Otherwise a row with a single filled
// cell followed by a wider row is treated as a title.
func (l *Loader) isTitleRow(row []string, rest [][]string) bool {
	first := strings.ToLower(strings.Trim(strings.TrimSpace(firstCell(row)), `"`))
	for _, m := range l.titleMarkers {
		if first == m {
			return true
		}
	}

	var next []string
	for _, r := range rest {
		if !isBlank(r) {
			next = r
			break
		}
	}
	if next == nil {
		return false
	}

	if len(l.headerAliases) > 0 {
		if l.hasHeaderAlias(row) {
			return false
		}
		if l.hasHeaderAlias(next) {
			return true
		}
	}

	return filledCells(row) == 1 && filledCells(next) > 1
}

func (l *Loader) hasHeaderAlias(row []string) bool {
	for _, c := range row {
		if l.headerAliases[headerKey(c)] {
			return true
		}
	}
	return false
}

// isFooterRow reports whether a data row is a trailer such as "Record Count: 18".
// A row with an empty first cell is data.
func (l *Loader) isFooterRow(row []string) bool {
	first := strings.ToLower(strings.TrimSpace(firstCell(row)))
	if first == "" {
		return false
	}
	for _, m := range l.footerMarkers {
		if strings.HasPrefix(first, m) {
			return true
		}
	}
	return false
}

// headerKey folds a header name the same way the column mapper compares them
func headerKey(value string) string {
	value = strings.ToLower(strings.TrimSpace(value))
	return strings.NewReplacer(" ", "", "_", "", "-", "").Replace(value)
}

func firstCell(row []string) string {
	if len(row) == 0 {
		return ""
	}
	return row[0]
}

func filledCells(row []string) int {
	n := 0
	for _, c := range row {
		if strings.TrimSpace(c) != "" {
			n++
		}
	}
	return n
}

func isBlank(row []string) bool {
	return filledCells(row) == 0
}
