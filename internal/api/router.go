package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"

	"github.com/hackgods/careportal/internal/simulator"
)

// ReportSource is satisfied by *simulator.Simulator.
type ReportSource interface {
	Report() []simulator.FamilyReport
	Running() bool
}

type RouterConfig struct {
	Checks    []Check
	Simulator ReportSource
	Registry  *prometheus.Registry
	Metrics   *Metrics
	Logger    zerolog.Logger
	Env       string
	Version   string
}

// NewRouter serves the operational endpoints of a portal process:
// health probes, Prometheus metrics and the simulator report.
func NewRouter(cfg RouterConfig) http.Handler {
	r := chi.NewRouter()

	// Apply middleware
	r.Use(RequestIDMiddleware)
	r.Use(LoggingMiddleware(cfg.Logger))
	if cfg.Metrics != nil {
		r.Use(cfg.Metrics.Middleware)
	}

	// Health endpoints
	health := NewHealthHandler(cfg.Checks, cfg.Env, cfg.Version)
	r.Get("/health/live", health.Liveness)
	r.Get("/health/ready", health.Readiness)

	if cfg.Registry != nil {
		r.Handle("/metrics", promhttp.HandlerFor(cfg.Registry, promhttp.HandlerOpts{}))
	}
	if cfg.Simulator != nil {
		r.Get("/simulator", simulatorReportHandler(cfg.Simulator))
	}

	r.NotFound(func(w http.ResponseWriter, r *http.Request) {
		writeError(w, http.StatusNotFound, "not_found", r.URL.Path)
	})
	r.MethodNotAllowed(func(w http.ResponseWriter, r *http.Request) {
		writeError(w, http.StatusMethodNotAllowed, "method_not_allowed", r.Method+" "+r.URL.Path)
	})

	return r
}
