package http

import (
	"errors"
	"html/template"
	"net/http"
	"os"
	"path"
	"path/filepath"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/go-chi/chi/v5"
	"github.com/m-mizutani/goerr/v2"
	"github.com/secmon-lab/caselens/pkg/domain/interfaces"
	"github.com/secmon-lab/caselens/pkg/domain/model"
	"github.com/secmon-lab/caselens/pkg/domain/types"
	"github.com/secmon-lab/caselens/pkg/service/render"
)

const (
	defaultRunsLimit = 50
	maxRunsLimit     = 500
)

// ReportFile is one generated file listed on the index page
type ReportFile struct {
	Name    string
	Kind    string
	Size    int64
	ModTime time.Time
}

// HumanSize returns the size for display
func (f ReportFile) HumanSize() string {
	return humanize.IBytes(uint64(f.Size))
}

// Age returns the modification time relative to now
func (f ReportFile) Age() string {
	return humanize.Time(f.ModTime)
}

// ReportsHandler serves generated reports and the run history
type ReportsHandler struct {
	outDir  string
	archive interfaces.Archive
}

// NewReportsHandler creates a handler for the reports in outDir. archive may be nil.
func NewReportsHandler(outDir string, archive interfaces.Archive) *ReportsHandler {
	return &ReportsHandler{outDir: outDir, archive: archive}
}

// reportKind classifies a file written by the publisher. Other files are not served.
func reportKind(name string) string {
	switch {
	case strings.HasPrefix(name, render.BatchSummaryPrefix) && strings.HasSuffix(name, ".html"):
		return "Batch summary"
	case strings.HasSuffix(name, render.HTMLSuffix):
		return "HTML report"
	case strings.HasSuffix(name, render.PDFSuffix):
		return "PDF report"
	case strings.HasSuffix(name, render.JSONSuffix):
		return "Analytics"
	case strings.HasSuffix(name, render.InstructionsSuffix):
		return "PDF instructions"
	}
	return ""
}

// ListReports returns the generated files in the output directory, newest first
func (h *ReportsHandler) ListReports() ([]ReportFile, error) {
	entries, err := os.ReadDir(h.outDir)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, goerr.Wrap(err, "failed to read output directory", goerr.V("dir", h.outDir))
	}

	var files []ReportFile
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		kind := reportKind(e.Name())
		if kind == "" {
			continue
		}
		info, err := e.Info()
		if err != nil {
			continue
		}
		files = append(files, ReportFile{
			Name:    e.Name(),
			Kind:    kind,
			Size:    info.Size(),
			ModTime: info.ModTime(),
		})
	}

	sort.SliceStable(files, func(i, j int) bool {
		if !files[i].ModTime.Equal(files[j].ModTime) {
			return files[i].ModTime.After(files[j].ModTime)
		}
		return files[i].Name < files[j].Name
	})
	return files, nil
}

var indexTemplate = template.Must(template.New("index").Parse(`<!DOCTYPE html>
<html lang="en">
<head>
<meta charset="utf-8">
<title>TAC Reports</title>
<style>
body { font-family: -apple-system, BlinkMacSystemFont, "Segoe UI", Roboto, Arial, sans-serif; margin: 2rem auto; max-width: 960px; color: #1f2933; }
h1 { font-size: 1.6rem; }
table { border-collapse: collapse; width: 100%; }
th, td { text-align: left; padding: 0.5rem 0.75rem; border-bottom: 1px solid #e4e7eb; }
th { background: #f5f7fa; }
.empty { color: #7b8794; }
</style>
</head>
<body>
<h1>TAC Reports</h1>
{{if .Files}}
<table>
<thead><tr><th>File</th><th>Type</th><th>Size</th><th>Generated</th></tr></thead>
<tbody>
{{range .Files}}<tr><td><a href="/reports/{{.Name}}">{{.Name}}</a></td><td>{{.Kind}}</td><td>{{.HumanSize}}</td><td title="{{.ModTime.Format "2006-01-02 15:04:05"}}">{{.Age}}</td></tr>
{{end}}</tbody>
</table>
{{else}}
<p class="empty">No reports in {{.Dir}} yet. Run <code>caselens report</code> to generate them.</p>
{{end}}
{{if .Archive}}<p><a href="/api/runs">Run history (JSON)</a></p>{{end}}
</body>
</html>
`))

// HandleIndex lists the generated reports
func (h *ReportsHandler) HandleIndex(w http.ResponseWriter, r *http.Request) {
	files, err := h.ListReports()
	if err != nil {
		writeError(w, r, err, http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	if err := indexTemplate.Execute(w, map[string]any{
		"Files":   files,
		"Dir":     h.outDir,
		"Archive": h.archive != nil,
	}); err != nil {
		writeError(w, r, goerr.Wrap(err, "failed to render index"), http.StatusInternalServerError)
	}
}

var contentTypes = map[string]string{
	".html": "text/html; charset=utf-8",
	".pdf":  "application/pdf",
	".json": "application/json; charset=utf-8",
	".txt":  "text/plain; charset=utf-8",
}

// HandleReport serves one generated file from the output directory
func (h *ReportsHandler) HandleReport(w http.ResponseWriter, r *http.Request) {
	name := chi.URLParam(r, "name")

	// Only plain file names written by the publisher are served
	cleaned := path.Clean("/" + name)[1:]
	if cleaned != name || strings.ContainsAny(name, `/\`) || strings.HasPrefix(name, ".") || reportKind(name) == "" {
		writeError(w, r, goerr.New("report not found", goerr.V("name", name)), http.StatusNotFound)
		return
	}

	fullPath := filepath.Join(h.outDir, name)
	if rel, err := filepath.Rel(h.outDir, fullPath); err != nil || rel != name {
		writeError(w, r, goerr.New("report not found", goerr.V("name", name)), http.StatusNotFound)
		return
	}

	file, err := os.Open(fullPath) // #nosec G304 name is restricted to the output directory
	if err != nil {
		if os.IsNotExist(err) {
			writeError(w, r, goerr.New("report not found", goerr.V("name", name)), http.StatusNotFound)
			return
		}
		writeError(w, r, goerr.Wrap(err, "failed to open report"), http.StatusInternalServerError)
		return
	}
	defer file.Close()

	info, err := file.Stat()
	if err != nil {
		writeError(w, r, goerr.Wrap(err, "failed to stat report"), http.StatusInternalServerError)
		return
	}
	if !info.Mode().IsRegular() {
		writeError(w, r, goerr.New("report not found", goerr.V("name", name)), http.StatusNotFound)
		return
	}

	if ct, ok := contentTypes[filepath.Ext(name)]; ok {
		w.Header().Set("Content-Type", ct)
	}
	http.ServeContent(w, r, name, info.ModTime(), file)
}

// HandleRuns lists archived runs, newest first. The limit query parameter caps the count.
func (h *ReportsHandler) HandleRuns(w http.ResponseWriter, r *http.Request) {
	if h.archive == nil {
		writeError(w, r, goerr.New("run archive is not configured"), http.StatusNotFound)
		return
	}

	limit := defaultRunsLimit
	if v := r.URL.Query().Get("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n <= 0 {
			writeError(w, r, goerr.New("limit must be a positive integer", goerr.V("limit", v)), http.StatusBadRequest)
			return
		}
		limit = min(n, maxRunsLimit)
	}

	runs, err := h.archive.ListRuns(r.Context(), limit)
	if err != nil {
		writeError(w, r, goerr.Wrap(err, "failed to list runs"), http.StatusInternalServerError)
		return
	}
	if runs == nil {
		runs = []*model.RunRecord{}
	}

	writeJSON(w, r, http.StatusOK, map[string]any{
		"runs": runs,
	})
}

// HandleRun returns one archived run
func (h *ReportsHandler) HandleRun(w http.ResponseWriter, r *http.Request) {
	if h.archive == nil {
		writeError(w, r, goerr.New("run archive is not configured"), http.StatusNotFound)
		return
	}

	id := types.RunID(chi.URLParam(r, "id"))
	run, err := h.archive.GetRun(r.Context(), id)
	if err != nil {
		if errors.Is(err, model.ErrRunNotFound) {
			writeError(w, r, err, http.StatusNotFound)
			return
		}
		writeError(w, r, err, http.StatusInternalServerError)
		return
	}

	writeJSON(w, r, http.StatusOK, run)
}
