// Package api is the request/response transport: a chi HTTP server
// serving health, metrics and the REST routes, with every failure
// funnelled through the shared normalizer.
package api

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/mkamau/groundwork/internal/api/rest"
	"github.com/mkamau/groundwork/internal/failure"
	"github.com/mkamau/groundwork/internal/health"
	"github.com/mkamau/groundwork/internal/logging"
	"github.com/mkamau/groundwork/internal/observability"
)

var apiLog = logging.Component("api")

// ServerConfig holds server wiring.
type ServerConfig struct {
	Normalizer     *failure.Normalizer
	Checker        *health.Checker
	Metrics        *observability.Metrics
	Notes          rest.NotesStore
	RequestTimeout time.Duration
}

// Server is the HTTP server.
type Server struct {
	router *chi.Mux
	errors *ErrorHandler
}

// NewServer builds the router and middleware stack.
func NewServer(cfg ServerConfig) *Server {
	if cfg.RequestTimeout <= 0 {
		cfg.RequestTimeout = 30 * time.Second
	}

	errorHandler := NewErrorHandler(cfg.Normalizer, cfg.Metrics)

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(errorHandler.Recover)
	r.Use(middleware.Timeout(cfg.RequestTimeout))
	r.Use(loggingMiddleware(cfg.Metrics))

	s := &Server{router: r, errors: errorHandler}

	r.Get("/health", errorHandler.Wrap(s.healthHandler(cfg.Checker)))

	if cfg.Metrics != nil {
		r.Handle("/metrics", cfg.Metrics.Handler())
	}

	if cfg.Notes != nil {
		wrap := func(fn rest.HandlerFunc) http.HandlerFunc {
			return errorHandler.Wrap(HandlerFunc(fn))
		}
		notesHandler := rest.NewHandler(cfg.Notes, wrap)
		r.Mount("/api/v1", notesHandler.Router())
	}

	return s
}

// Handler returns the HTTP handler.
func (s *Server) Handler() http.Handler {
	return s.router
}

// Errors exposes the transport's error adapter, mainly for tests.
func (s *Server) Errors() *ErrorHandler {
	return s.errors
}

func (s *Server) healthHandler(checker *health.Checker) HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) error {
		report := health.Report{Status: health.StatusOK}
		if checker != nil {
			report = checker.Check(r.Context())
		}

		status := http.StatusOK
		if report.Status != health.StatusOK {
			status = http.StatusServiceUnavailable
		}
		respondJSON(w, status, report)
		return nil
	}
}

func loggingMiddleware(metrics *observability.Metrics) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
			next.ServeHTTP(ww, r)

			duration := time.Since(start)
			apiLog.Info("request",
				"method", r.Method,
				"path", r.URL.Path,
				"status", ww.Status(),
				"duration", duration,
			)
			if metrics != nil {
				metrics.HTTPRequest(r.Method, routePattern(r), ww.Status(), duration)
			}
		})
	}
}

// routePattern prefers the chi route template over the raw path so
// metric labels stay bounded.
func routePattern(r *http.Request) string {
	if rctx := chi.RouteContext(r.Context()); rctx != nil {
		if pattern := rctx.RoutePattern(); pattern != "" {
			return pattern
		}
	}
	return r.URL.Path
}
