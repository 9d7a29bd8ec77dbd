// Package http serves health, metrics and run results over HTTP.
package http

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	sharedobs "github.com/couchcryptid/storm-data-shared/observability"
	"github.com/go-chi/httprate"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/couchcryptid/storm-flash-track/internal/adapter/export"
	"github.com/couchcryptid/storm-flash-track/internal/domain"
	"github.com/couchcryptid/storm-flash-track/internal/pipeline"
)

// Rerun requests are limited per client IP.
const (
	runRequestLimit  = 2
	runRequestWindow = time.Minute
	runWriteTimeout  = 5 * time.Minute
)

// RunService runs the pipeline and exposes its most recent result.
type RunService interface {
	sharedobs.ReadinessChecker
	Run(ctx context.Context, params domain.TrajectoryParams) (*pipeline.Result, error)
	Last() (*pipeline.Result, bool)
}

// Server exposes health, readiness, metrics and run endpoints.
type Server struct {
	httpServer *http.Server
	svc        RunService
	params     domain.TrajectoryParams
	logger     *slog.Logger
}

// NewServer creates an HTTP server with /healthz, /readyz, /metrics,
// GET /series, GET /series.csv and POST /runs routes. Reruns use params.
func NewServer(addr string, svc RunService, params domain.TrajectoryParams, logger *slog.Logger) *Server {
	mux := http.NewServeMux()

	s := &Server{
		httpServer: &http.Server{
			Addr:         addr,
			Handler:      mux,
			ReadTimeout:  10 * time.Second,
			WriteTimeout: runWriteTimeout,
			IdleTimeout:  60 * time.Second,
		},
		svc:    svc,
		params: params,
		logger: logger,
	}

	mux.HandleFunc("GET /healthz", sharedobs.LivenessHandler())
	mux.HandleFunc("GET /readyz", sharedobs.ReadinessHandler(svc))
	mux.Handle("GET /metrics", promhttp.Handler())
	mux.HandleFunc("GET /series", s.handleSeries)
	mux.HandleFunc("GET /series.csv", s.handleSeriesCSV)
	mux.Handle("POST /runs", httprate.LimitByIP(runRequestLimit, runRequestWindow)(http.HandlerFunc(s.handleRun)))

	return s
}

// Start begins listening. Returns http.ErrServerClosed on graceful shutdown.
func (s *Server) Start() error {
	s.logger.Info("http server starting", "addr", s.httpServer.Addr)
	return s.httpServer.ListenAndServe()
}

// Shutdown gracefully drains connections within the given context deadline.
func (s *Server) Shutdown(ctx context.Context) error {
	return s.httpServer.Shutdown(ctx)
}

// ServeHTTP delegates to the underlying handler, useful for testing.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.httpServer.Handler.ServeHTTP(w, r)
}

func (s *Server) handleSeries(w http.ResponseWriter, _ *http.Request) {
	result, ok := s.svc.Last()
	if !ok {
		sharedobs.WriteJSON(w, http.StatusNotFound, map[string]string{"error": "no completed run"})
		return
	}
	sharedobs.WriteJSON(w, http.StatusOK, result)
}

func (s *Server) handleSeriesCSV(w http.ResponseWriter, _ *http.Request) {
	result, ok := s.svc.Last()
	if !ok {
		sharedobs.WriteJSON(w, http.StatusNotFound, map[string]string{"error": "no completed run"})
		return
	}
	w.Header().Set("Content-Type", "text/csv")
	if err := export.WriteCSV(w, result.Series); err != nil {
		s.logger.Warn("write csv response", "error", err)
	}
}

func (s *Server) handleRun(w http.ResponseWriter, r *http.Request) {
	result, err := s.svc.Run(r.Context(), s.params)
	if err != nil {
		body := map[string]string{"error": err.Error()}
		if result != nil {
			body["run_id"] = result.RunID
		}
		sharedobs.WriteJSON(w, http.StatusInternalServerError, body)
		return
	}
	sharedobs.WriteJSON(w, http.StatusCreated, result)
}
