package http

import (
	"context"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/goccy/go-json"
	"github.com/m-mizutani/ctxlog"
	"github.com/m-mizutani/goerr/v2"
	"github.com/secmon-lab/caselens/pkg/domain/interfaces"
)

// Server represents the report preview server
type Server struct {
	*http.Server
	router  chi.Router
	reports *ReportsHandler
}

// Option is a functional option for configuring Server
type Option func(*options)

type options struct {
	archive interfaces.Archive
}

// WithArchive enables the run history API
func WithArchive(archive interfaces.Archive) Option {
	return func(o *options) {
		o.archive = archive
	}
}

// NewServer creates a new HTTP server serving the reports in outDir
func NewServer(ctx context.Context, addr, outDir string, opts ...Option) (*Server, error) {
	if outDir == "" {
		return nil, goerr.New("output directory is required")
	}

	var o options
	for _, opt := range opts {
		opt(&o)
	}

	router := chi.NewRouter()

	// Apply global middleware
	router.Use(middleware.RequestID)
	router.Use(middleware.RealIP)
	router.Use(LoggingMiddleware(ctx))
	router.Use(SecurityHeaders)
	router.Use(middleware.Recoverer)

	reports := NewReportsHandler(outDir, o.archive)

	// Health check
	router.Get("/health", handleHealth)

	router.Get("/", reports.HandleIndex)
	router.Get("/reports/{name}", reports.HandleReport)

	router.Route("/api", func(r chi.Router) {
		r.Get("/runs", reports.HandleRuns)
		r.Get("/runs/{id}", reports.HandleRun)
	})

	ctxlog.From(ctx).Info("Preview server configured",
		"addr", addr,
		"output_dir", outDir,
		"archive", o.archive != nil,
	)

	server := &Server{
		Server: &http.Server{
			Addr:              addr,
			Handler:           router,
			ReadHeaderTimeout: 15 * time.Second,
		},
		router:  router,
		reports: reports,
	}

	return server, nil
}

// handleHealth handles health check requests
func handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, r, http.StatusOK, map[string]string{
		"status":  "healthy",
		"service": "caselens",
	})
}

func writeJSON(w http.ResponseWriter, r *http.Request, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		ctxlog.From(r.Context()).Error("Failed to encode response", "error", err)
	}
}

// writeError writes an error response
func writeError(w http.ResponseWriter, r *http.Request, err error, status int) {
	var message string
	if goErr := goerr.Unwrap(err); goErr != nil {
		message = goErr.Error()
	} else {
		message = err.Error()
	}

	if status >= http.StatusInternalServerError {
		ctxlog.From(r.Context()).Error("Request failed", "error", err, "path", r.URL.Path)
	}

	writeJSON(w, r, status, map[string]string{
		"error": message,
	})
}
