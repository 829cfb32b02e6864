package api

import (
	"net/http"
	"time"

	"github.com/gorilla/mux"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"

	"github.com/platinummonkey/warden/pkg/httputil"
	"github.com/platinummonkey/warden/pkg/middleware"
	"github.com/platinummonkey/warden/pkg/observability"
)

// Options wires the server's collaborators. Gate and Logger are required;
// the rest may be left zero.
type Options struct {
	Gate        *middleware.AuthMiddleware
	RateLimiter *middleware.RateLimitMiddleware
	Health      *observability.HealthChecker
	Metrics     *observability.Metrics
	Logger      *observability.Logger

	AllowOrigins   []string
	RequestTimeout time.Duration
	// ServiceName enables OpenTelemetry HTTP spans when non-empty
	ServiceName string
}

// Server represents our API server
type Server struct {
	router  *mux.Router
	handler http.Handler
	opts    Options
}

// NewServer creates a new API server
func NewServer(opts Options) *Server {
	s := &Server{
		router: mux.NewRouter(),
		opts:   opts,
	}

	s.setupRoutes()

	var handler http.Handler = s.router
	handler = httputil.Chain(
		httputil.RecoveryMiddleware(opts.Logger),
		httputil.RequestIDMiddleware(opts.Logger),
		httputil.LoggingMiddleware(opts.Logger),
		httputil.CORSMiddleware(opts.AllowOrigins),
		httputil.TimeoutMiddleware(opts.RequestTimeout),
	)(handler)
	if opts.ServiceName != "" {
		handler = otelhttp.NewHandler(handler, opts.ServiceName)
	}
	s.handler = handler

	return s
}

// setupRoutes configures all the API routes
func (s *Server) setupRoutes() {
	s.router.NotFoundHandler = http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		httputil.WriteNotFound(w)
	})
	s.router.MethodNotAllowedHandler = http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		httputil.WriteMethodNotAllowed(w)
	})

	if s.opts.Metrics != nil {
		s.router.Use(observability.HTTPMetricsMiddleware(s.opts.Metrics))
	}

	// Public routes
	if s.opts.Health != nil {
		s.router.HandleFunc("/health/live", s.opts.Health.Liveness).Methods("GET")
		s.router.HandleFunc("/health/ready", s.opts.Health.Readiness).Methods("GET")
	}

	// Protected routes
	protected := s.router.PathPrefix("/api/v1").Subrouter()
	protected.Use(s.opts.Gate.Handler)
	if s.opts.RateLimiter != nil {
		protected.Use(s.opts.RateLimiter.Handler)
	}
	protected.HandleFunc("/me", s.getMe).Methods("GET")
}

// ServeHTTP implements http.Handler
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.handler.ServeHTTP(w, r)
}

// Router exposes the underlying router so callers can mount extra routes
func (s *Server) Router() *mux.Router {
	return s.router
}

// getMe returns the claims of the calling token
func (s *Server) getMe(w http.ResponseWriter, r *http.Request) {
	identity := middleware.GetIdentity(r)
	if identity == nil {
		httputil.WriteUnauthorized(w)
		return
	}

	if err := httputil.WriteSuccess(w, identity.Claims); err != nil {
		observability.FromContext(r.Context()).WithError(err).Warn("failed to write response")
	}
}
