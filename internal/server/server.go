// Package server exposes a running engine over HTTP: health, Prometheus
// metrics, the latest snapshot, the raw event log, and the task table.
// All endpoints are read-only; the engine goroutine stays the single
// writer of scheduling state.
package server

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/me/mcsched/internal/engine"
	"github.com/me/mcsched/internal/metrics"
	"github.com/me/mcsched/internal/telemetry"
	"github.com/me/mcsched/pkg/model"
)

// Server is the mcsched status API server.
type Server struct {
	router    chi.Router
	logger    *slog.Logger
	engine    *engine.Engine
	store     telemetry.Store // optional; enables the /runs endpoints
	startTime time.Time

	// Captured at construction, before the engine starts. The task set
	// and discipline are immutable for the lifetime of a run.
	mode        model.SchedulerMode
	policy      string
	tasks       []model.TaskInfo
	utilization float64

	prom *prometheus.Registry
}

// Option configures optional Server dependencies.
type Option func(*Server)

// WithStore enables the stored-run endpoints backed by st.
func WithStore(st telemetry.Store) Option {
	return func(s *Server) {
		s.store = st
	}
}

// New creates a Server over eng with all routes registered. Construct it
// before starting the engine: the task table is captured here.
func New(eng *engine.Engine, logger *slog.Logger, opts ...Option) *Server {
	state := eng.State()
	s := &Server{
		router:      chi.NewRouter(),
		logger:      logger.With("component", "server"),
		engine:      eng,
		startTime:   time.Now(),
		mode:        state.Mode,
		policy:      state.Policy,
		tasks:       eng.Registry().Infos(),
		utilization: eng.Registry().Utilization(),
		prom:        prometheus.NewRegistry(),
	}
	for _, opt := range opts {
		opt(s)
	}

	s.prom.MustRegister(metrics.NewPrometheusCollector(eng.Snapshot))

	s.routes()
	return s
}

// ServeHTTP implements http.Handler.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.router.ServeHTTP(w, r)
}

// Handler returns the http.Handler for this server.
func (s *Server) Handler() http.Handler {
	return s.router
}

func (s *Server) routes() {
	r := s.router

	// Global middleware
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)
	r.Use(requestIDMiddleware)
	r.Use(loggingMiddleware(s.logger))

	r.Get("/healthz", s.handleHealth)
	r.Method("GET", "/metrics", promhttp.HandlerFor(s.prom, promhttp.HandlerOpts{}))

	r.Route("/api/v1", func(r chi.Router) {
		r.Get("/snapshot", s.handleSnapshot)
		r.Get("/events", s.handleEvents)
		r.Get("/tasks", s.handleTasks)

		// Stored runs, only when a telemetry store is attached.
		if s.store != nil {
			r.Route("/runs", func(r chi.Router) {
				r.Get("/", s.handleListRuns)
				r.Get("/{id}", s.handleGetRun)
			})
		}
	})
}
