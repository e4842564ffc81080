package api

import (
	"net/http"

	"github.com/apnisec/issuetracker/pkg/auth"
	"github.com/apnisec/issuetracker/pkg/httputil"
	"github.com/apnisec/issuetracker/pkg/issues"
	"github.com/apnisec/issuetracker/pkg/middleware"
	"github.com/apnisec/issuetracker/pkg/notify"
	"github.com/apnisec/issuetracker/pkg/observability"
	"github.com/apnisec/issuetracker/pkg/ratelimit"
	"github.com/gorilla/mux"
)

// DefaultMaxBodyBytes caps JSON request bodies.
const DefaultMaxBodyBytes int64 = 1 << 20

// Options wires the server's collaborators.
type Options struct {
	Auth     *auth.Service
	Issues   issues.Store
	Limiter  *ratelimit.Limiter
	Notifier notify.Notifier // optional
	Metrics  *observability.Metrics
	Logger   *observability.Logger

	CORSOrigins  []string
	MaxBodyBytes int64
}

// Server represents our API server
type Server struct {
	router        *mux.Router
	handler       http.Handler
	authHandlers  *AuthHandlers
	issueHandlers *IssueHandlers
}

// NewServer creates a new API server
func NewServer(opts Options) *Server {
	if opts.MaxBodyBytes <= 0 {
		opts.MaxBodyBytes = DefaultMaxBodyBytes
	}

	requireAuth := middleware.NewAuthMiddleware(opts.Auth, opts.Metrics)
	rateLimit := middleware.NewRateLimitMiddleware(opts.Limiter, opts.Metrics)

	s := &Server{
		router:        mux.NewRouter(),
		authHandlers:  NewAuthHandlers(opts.Auth, opts.Metrics, requireAuth, rateLimit),
		issueHandlers: NewIssueHandlers(opts.Issues, opts.Notifier, opts.Metrics, requireAuth, rateLimit),
	}

	s.setupRoutes(opts.Metrics)

	s.handler = httputil.Chain(
		httputil.RequestIDMiddleware,
		httputil.LoggingMiddleware(opts.Logger),
		httputil.RecoveryMiddleware,
		httputil.CORSMiddleware(opts.CORSOrigins),
		httputil.MaxBytesMiddleware(opts.MaxBodyBytes),
		httputil.ContentTypeMiddleware,
	)(s.router)

	return s
}

// setupRoutes configures all the API routes
func (s *Server) setupRoutes(metrics *observability.Metrics) {
	if metrics != nil {
		s.router.Use(observability.HTTPMetricsMiddleware(metrics))
	}

	apiRouter := s.router.PathPrefix("/api").Subrouter()
	s.authHandlers.RegisterRoutes(apiRouter)
	s.issueHandlers.RegisterRoutes(apiRouter)

	s.router.NotFoundHandler = http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		httputil.WriteNotFoundError(w, "not found")
	})
	s.router.MethodNotAllowedHandler = http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		httputil.WriteMethodNotAllowed(w)
	})
}

// ServeHTTP implements http.Handler
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.handler.ServeHTTP(w, r)
}

// Router exposes the route table, for inspection and extra routes.
func (s *Server) Router() *mux.Router {
	return s.router
}
