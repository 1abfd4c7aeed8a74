// Package routing wires the parley HTTP surface onto a chi router: the
// global middleware chain followed by the landing page, chat, health and
// metrics routes.
package routing

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/teilomillet/parley/config"
	"github.com/teilomillet/parley/server/handlers"
	"github.com/teilomillet/parley/server/metrics"
	"github.com/teilomillet/parley/server/middleware"
	"github.com/teilomillet/parley/server/validation"
	"go.uber.org/zap"
)

// Router is the root HTTP handler.
type Router struct {
	router chi.Router
	logger *zap.Logger
}

// Option configures optional routes.
type Option func(*options)

type options struct {
	health handlers.HealthReporter
}

// WithReadiness mounts GET /ready backed by reporter.
func WithReadiness(reporter handlers.HealthReporter) Option {
	return func(o *options) { o.health = reporter }
}

// NewRouter creates the router. chat answers POST /chat after validation;
// m may be nil, which disables metrics collection and the metrics route.
//
// Middleware order, outermost first: request ID, access log, metrics, CORS,
// panic recovery. CORS sits outside recovery so a 500 still carries the
// cross-origin headers.
func NewRouter(cfg *config.Config, chat http.Handler, m *metrics.Metrics, logger *zap.Logger, opts ...Option) *Router {
	var o options
	for _, opt := range opts {
		opt(&o)
	}

	r := &Router{
		router: chi.NewRouter(),
		logger: logger,
	}

	r.router.Use(middleware.RequestID)
	r.router.Use(middleware.Logging(logger))
	if m != nil {
		r.router.Use(middleware.PrometheusMetrics(m))
	}
	r.router.Use(middleware.CORS(cfg.CORS))
	r.router.Use(middleware.Recovery(logger, m))

	r.router.Get("/", handlers.IndexHandler(logger))
	r.router.Get("/health", handlers.HealthHandler)
	if o.health != nil {
		r.router.Get("/ready", handlers.ReadinessHandler(o.health))
	}
	r.router.With(validation.ValidateChat(logger, cfg.Server.MaxBodyBytes, m)).Post("/chat", chat.ServeHTTP)

	if m != nil && cfg.Metrics.Enabled {
		RegisterMetricsRoutes(r.router, cfg.Metrics.Path, m)
	}

	return r
}

// ServeHTTP implements http.Handler
func (r *Router) ServeHTTP(w http.ResponseWriter, req *http.Request) {
	r.router.ServeHTTP(w, req)
}
