package repository

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/goccy/go-json"
	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/m-mizutani/ctxlog"
	"github.com/m-mizutani/goerr/v2"
	"github.com/secmon-lab/caselens/pkg/domain/interfaces"
	"github.com/secmon-lab/caselens/pkg/domain/model"
	"github.com/secmon-lab/caselens/pkg/domain/types"
	_ "modernc.org/sqlite"
)

// Dialect selects the SQL driver and placeholder style
type Dialect string

const (
	DialectSQLite   Dialect = "sqlite"
	DialectPostgres Dialect = "pgx"
)

// timeLayout keeps stored timestamps fixed width so that text order equals time order
const timeLayout = "2006-01-02T15:04:05.000000000Z"

const runColumns = "id, source_file, generated_at, period_start, period_end, total_cases, cases_per_month, bug_percentage, high_priority, severity_counts, product_counts, files"

var schema = []string{
	`CREATE TABLE IF NOT EXISTS report_runs (
		id TEXT PRIMARY KEY,
		source_file TEXT NOT NULL,
		generated_at TEXT NOT NULL,
		period_start TEXT,
		period_end TEXT,
		total_cases INTEGER NOT NULL,
		cases_per_month DOUBLE PRECISION NOT NULL,
		bug_percentage DOUBLE PRECISION NOT NULL,
		high_priority INTEGER NOT NULL,
		severity_counts TEXT NOT NULL,
		product_counts TEXT NOT NULL,
		files TEXT NOT NULL
	)`,
	`CREATE INDEX IF NOT EXISTS report_runs_generated_at ON report_runs (generated_at)`,
}

// SQL implements Archive interface with a relational database
type SQL struct {
	db      *sql.DB
	dialect Dialect
}

var _ interfaces.Archive = (*SQL)(nil)

// NewSQLite opens or creates a SQLite archive file
func NewSQLite(ctx context.Context, path string) (*SQL, error) {
	db, err := sql.Open(string(DialectSQLite), path)
	if err != nil {
		return nil, goerr.Wrap(err, "failed to open sqlite archive", goerr.V("path", path))
	}
	// A single connection avoids "database is locked" errors on concurrent writes
	db.SetMaxOpenConns(1)

	return newSQL(ctx, db, DialectSQLite)
}

// NewPostgres connects to a PostgreSQL archive
func NewPostgres(ctx context.Context, url string) (*SQL, error) {
	db, err := sql.Open(string(DialectPostgres), url)
	if err != nil {
		return nil, goerr.Wrap(err, "failed to open postgres archive")
	}
	return newSQL(ctx, db, DialectPostgres)
}

func newSQL(ctx context.Context, db *sql.DB, dialect Dialect) (*SQL, error) {
	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, goerr.Wrap(err, "failed to connect archive database", goerr.V("dialect", dialect))
	}

	for _, stmt := range schema {
		if _, err := db.ExecContext(ctx, stmt); err != nil {
			_ = db.Close()
			return nil, goerr.Wrap(err, "failed to bootstrap archive schema", goerr.V("dialect", dialect))
		}
	}

	ctxlog.From(ctx).Info("SQL archive initialized successfully", "dialect", dialect)
	return &SQL{db: db, dialect: dialect}, nil
}

// rebind converts ? placeholders to $n for PostgreSQL
func (s *SQL) rebind(query string) string {
	if s.dialect != DialectPostgres {
		return query
	}
	var b strings.Builder
	n := 0
	for _, r := range query {
		if r == '?' {
			n++
			fmt.Fprintf(&b, "$%d", n)
			continue
		}
		b.WriteRune(r)
	}
	return b.String()
}

// PutRun saves a run record, replacing a record with the same ID
func (s *SQL) PutRun(ctx context.Context, run *model.RunRecord) error {
	if err := validateRun(run); err != nil {
		return err
	}

	severity, err := json.Marshal(nonNilMap(run.SeverityCounts))
	if err != nil {
		return goerr.Wrap(err, "failed to encode severity counts", goerr.V("id", run.ID))
	}
	product, err := json.Marshal(nonNilMap(run.ProductCounts))
	if err != nil {
		return goerr.Wrap(err, "failed to encode product counts", goerr.V("id", run.ID))
	}
	files, err := json.Marshal(append([]string{}, run.Files...))
	if err != nil {
		return goerr.Wrap(err, "failed to encode files", goerr.V("id", run.ID))
	}

	query := s.rebind(`INSERT INTO report_runs (` + runColumns + `)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT (id) DO UPDATE SET
			source_file = excluded.source_file,
			generated_at = excluded.generated_at,
			period_start = excluded.period_start,
			period_end = excluded.period_end,
			total_cases = excluded.total_cases,
			cases_per_month = excluded.cases_per_month,
			bug_percentage = excluded.bug_percentage,
			high_priority = excluded.high_priority,
			severity_counts = excluded.severity_counts,
			product_counts = excluded.product_counts,
			files = excluded.files`)

	if _, err := s.db.ExecContext(ctx, query,
		run.ID.String(),
		run.SourceFile,
		formatTime(run.GeneratedAt),
		nullTime(run.PeriodStart),
		nullTime(run.PeriodEnd),
		run.TotalCases,
		run.CasesPerMonth,
		run.BugPercentage,
		run.HighPriority,
		string(severity),
		string(product),
		string(files),
	); err != nil {
		return goerr.Wrap(err, "failed to save run", goerr.V("id", run.ID))
	}
	return nil
}

// GetRun retrieves a run record by ID
func (s *SQL) GetRun(ctx context.Context, id types.RunID) (*model.RunRecord, error) {
	if id == "" {
		return nil, goerr.New("run ID is empty")
	}

	row := s.db.QueryRowContext(ctx, s.rebind(`SELECT `+runColumns+` FROM report_runs WHERE id = ?`), id.String())
	run, err := scanRun(row)
	if err == sql.ErrNoRows {
		return nil, goerr.Wrap(model.ErrRunNotFound, "run not found in database", goerr.V("id", id))
	}
	if err != nil {
		return nil, goerr.Wrap(err, "failed to get run", goerr.V("id", id))
	}
	return run, nil
}

// ListRuns returns up to limit runs, newest first. A limit of 0 or less returns every run.
func (s *SQL) ListRuns(ctx context.Context, limit int) ([]*model.RunRecord, error) {
	query := `SELECT ` + runColumns + ` FROM report_runs ORDER BY generated_at DESC, id DESC`
	var args []any
	if limit > 0 {
		query += ` LIMIT ?`
		args = append(args, limit)
	}

	rows, err := s.db.QueryContext(ctx, s.rebind(query), args...)
	if err != nil {
		return nil, goerr.Wrap(err, "failed to query runs")
	}
	defer rows.Close()

	var runs []*model.RunRecord
	for rows.Next() {
		run, err := scanRun(rows)
		if err != nil {
			return nil, goerr.Wrap(err, "failed to read run")
		}
		runs = append(runs, run)
	}
	if err := rows.Err(); err != nil {
		return nil, goerr.Wrap(err, "failed to iterate runs")
	}
	return runs, nil
}

// Close closes the database connection
func (s *SQL) Close() error {
	return s.db.Close()
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanRun(row rowScanner) (*model.RunRecord, error) {
	var (
		run                      model.RunRecord
		id, generatedAt          string
		periodStart, periodEnd   sql.NullString
		severity, product, files string
	)
	if err := row.Scan(&id, &run.SourceFile, &generatedAt, &periodStart, &periodEnd,
		&run.TotalCases, &run.CasesPerMonth, &run.BugPercentage, &run.HighPriority,
		&severity, &product, &files); err != nil {
		return nil, err
	}

	run.ID = types.RunID(id)

	var err error
	if run.GeneratedAt, err = time.Parse(timeLayout, generatedAt); err != nil {
		return nil, goerr.Wrap(err, "invalid generated_at", goerr.V("id", id))
	}
	if run.PeriodStart, err = parseNullTime(periodStart); err != nil {
		return nil, goerr.Wrap(err, "invalid period_start", goerr.V("id", id))
	}
	if run.PeriodEnd, err = parseNullTime(periodEnd); err != nil {
		return nil, goerr.Wrap(err, "invalid period_end", goerr.V("id", id))
	}

	if err := json.Unmarshal([]byte(severity), &run.SeverityCounts); err != nil {
		return nil, goerr.Wrap(err, "invalid severity_counts", goerr.V("id", id))
	}
	if err := json.Unmarshal([]byte(product), &run.ProductCounts); err != nil {
		return nil, goerr.Wrap(err, "invalid product_counts", goerr.V("id", id))
	}
	if err := json.Unmarshal([]byte(files), &run.Files); err != nil {
		return nil, goerr.Wrap(err, "invalid files", goerr.V("id", id))
	}

	return &run, nil
}

func formatTime(t time.Time) string {
	return t.UTC().Format(timeLayout)
}

func nullTime(t *time.Time) sql.NullString {
	if t == nil {
		return sql.NullString{}
	}
	return sql.NullString{String: formatTime(*t), Valid: true}
}

func parseNullTime(v sql.NullString) (*time.Time, error) {
	if !v.Valid {
		return nil, nil
	}
	t, err := time.Parse(timeLayout, v.String)
	if err != nil {
		return nil, err
	}
	return &t, nil
}

func nonNilMap(m map[string]int) map[string]int {
	if m == nil {
		return map[string]int{}
	}
	return m
}
