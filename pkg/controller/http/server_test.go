package http_test

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/goccy/go-json"
	"github.com/m-mizutani/ctxlog"
	"github.com/m-mizutani/gt"
	controller "github.com/secmon-lab/caselens/pkg/controller/http"
	"github.com/secmon-lab/caselens/pkg/domain/interfaces/mocks"
	"github.com/secmon-lab/caselens/pkg/domain/model"
	"github.com/secmon-lab/caselens/pkg/domain/types"
	"github.com/secmon-lab/caselens/pkg/repository"
)

func testContext() context.Context {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	return ctxlog.With(context.Background(), logger)
}

func writeReport(t *testing.T, dir, name, body string, modTime time.Time) {
	t.Helper()
	path := filepath.Join(dir, name)
	gt.NoError(t, os.WriteFile(path, []byte(body), 0o644)).Required()
	gt.NoError(t, os.Chtimes(path, modTime, modTime)).Required()
}

func newTestServer(t *testing.T, outDir string, opts ...controller.Option) *controller.Server {
	t.Helper()
	server, err := controller.NewServer(testContext(), "localhost:0", outDir, opts...)
	gt.NoError(t, err).Required()
	return server
}

func get(server *controller.Server, target string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodGet, target, nil)
	rec := httptest.NewRecorder()
	server.Handler.ServeHTTP(rec, req)
	return rec
}

func TestNewServer_RequiresOutputDir(t *testing.T) {
	_, err := controller.NewServer(testContext(), "localhost:0", "")
	gt.Error(t, err)
}

func TestServer_Health(t *testing.T) {
	rec := get(newTestServer(t, t.TempDir()), "/health")
	gt.Equal(t, rec.Code, http.StatusOK)

	var body map[string]string
	gt.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body)).Required()
	gt.Equal(t, body["status"], "healthy")
	gt.Equal(t, body["service"], "caselens")
	gt.Equal(t, rec.Header().Get("X-Content-Type-Options"), "nosniff")
}

func TestServer_Index(t *testing.T) {
	t.Run("lists reports newest first", func(t *testing.T) {
		dir := t.TempDir()
		base := time.Date(2025, 4, 1, 9, 0, 0, 0, time.UTC)
		writeReport(t, dir, "old_executive_report.html", "<html>old</html>", base)
		writeReport(t, dir, "new_executive_report.html", "<html>new</html>", base.Add(time.Hour))
		writeReport(t, dir, "new_analytics.json", "{}", base.Add(30*time.Minute))
		writeReport(t, dir, "notes.txt", "not a report", base.Add(2*time.Hour))

		handler := controller.NewReportsHandler(dir, nil)
		files, err := handler.ListReports()
		gt.NoError(t, err).Required()
		gt.Equal(t, len(files), 3)
		gt.Equal(t, files[0].Name, "new_executive_report.html")
		gt.Equal(t, files[1].Name, "new_analytics.json")
		gt.Equal(t, files[1].Kind, "Analytics")
		gt.Equal(t, files[2].Name, "old_executive_report.html")

		rec := get(newTestServer(t, dir), "/")
		gt.Equal(t, rec.Code, http.StatusOK)
		gt.S(t, rec.Body.String()).Contains(`href="/reports/new_executive_report.html"`)
		gt.S(t, rec.Body.String()).Contains("HTML report")
		gt.False(t, strings.Contains(rec.Body.String(), "notes.txt"))
	})

	t.Run("missing output directory", func(t *testing.T) {
		rec := get(newTestServer(t, filepath.Join(t.TempDir(), "missing")), "/")
		gt.Equal(t, rec.Code, http.StatusOK)
		gt.S(t, rec.Body.String()).Contains("No reports in")
	})
}

func TestServer_Report(t *testing.T) {
	dir := t.TempDir()
	writeReport(t, dir, "acme_executive_report.html", "<html>acme</html>", time.Now())
	writeReport(t, dir, "acme_pdf_instructions.txt", "install chromium", time.Now())
	writeReport(t, dir, "secret.txt", "do not serve", time.Now())
	server := newTestServer(t, dir)

	rec := get(server, "/reports/acme_executive_report.html")
	gt.Equal(t, rec.Code, http.StatusOK)
	gt.Equal(t, rec.Header().Get("Content-Type"), "text/html; charset=utf-8")
	gt.Equal(t, rec.Body.String(), "<html>acme</html>")

	rec = get(server, "/reports/acme_pdf_instructions.txt")
	gt.Equal(t, rec.Code, http.StatusOK)
	gt.Equal(t, rec.Header().Get("Content-Type"), "text/plain; charset=utf-8")

	testCases := []struct {
		name   string
		target string
	}{
		{name: "unknown file", target: "/reports/other_executive_report.html"},
		{name: "not a report", target: "/reports/secret.txt"},
		{name: "hidden file", target: "/reports/.acme_executive_report.html"},
		{name: "encoded traversal", target: "/reports/..%2Fetc_executive_report.html"},
	}
	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			rec := get(server, tc.target)
			gt.Equal(t, rec.Code, http.StatusNotFound)
		})
	}
}

func TestServer_Runs(t *testing.T) {
	ctx := context.Background()

	t.Run("without archive", func(t *testing.T) {
		rec := get(newTestServer(t, t.TempDir()), "/api/runs")
		gt.Equal(t, rec.Code, http.StatusNotFound)
	})

	t.Run("lists archived runs", func(t *testing.T) {
		archive := repository.NewMemory()
		base := time.Date(2025, 4, 1, 9, 0, 0, 0, time.UTC)
		var ids []types.RunID
		for i := range 3 {
			run := &model.RunRecord{
				ID:          types.NewRunID(),
				SourceFile:  "acme.csv",
				GeneratedAt: base.Add(time.Duration(i) * time.Minute),
				TotalCases:  10 + i,
			}
			gt.NoError(t, archive.PutRun(ctx, run)).Required()
			ids = append(ids, run.ID)
		}
		server := newTestServer(t, t.TempDir(), controller.WithArchive(archive))

		rec := get(server, "/api/runs?limit=2")
		gt.Equal(t, rec.Code, http.StatusOK)
		var body struct {
			Runs []*model.RunRecord `json:"runs"`
		}
		gt.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body)).Required()
		gt.Equal(t, len(body.Runs), 2)
		gt.Equal(t, body.Runs[0].ID, ids[2])
		gt.Equal(t, body.Runs[0].TotalCases, 12)

		rec = get(server, "/api/runs/"+ids[0].String())
		gt.Equal(t, rec.Code, http.StatusOK)
		var run model.RunRecord
		gt.NoError(t, json.Unmarshal(rec.Body.Bytes(), &run)).Required()
		gt.Equal(t, run.ID, ids[0])

		rec = get(server, "/api/runs/"+types.NewRunID().String())
		gt.Equal(t, rec.Code, http.StatusNotFound)

		rec = get(server, "/api/runs?limit=abc")
		gt.Equal(t, rec.Code, http.StatusBadRequest)

		rec = get(server, "/")
		gt.S(t, rec.Body.String()).Contains("/api/runs")
	})
}

func TestServer_RunsArchiveError(t *testing.T) {
	archive := &mocks.ArchiveMock{
		ListRunsFunc: func(ctx context.Context, limit int) ([]*model.RunRecord, error) {
			return nil, errors.New("connection refused")
		},
		GetRunFunc: func(ctx context.Context, id types.RunID) (*model.RunRecord, error) {
			return nil, errors.New("connection refused")
		},
	}
	server := newTestServer(t, t.TempDir(), controller.WithArchive(archive))

	rec := get(server, "/api/runs?limit=1000")
	gt.Equal(t, rec.Code, http.StatusInternalServerError)
	calls := archive.ListRunsCalls()
	gt.Equal(t, len(calls), 1)
	gt.Equal(t, calls[0].Limit, 500)

	rec = get(server, "/api/runs/"+types.NewRunID().String())
	gt.Equal(t, rec.Code, http.StatusInternalServerError)
}
