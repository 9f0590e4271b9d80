package httpserver

import (
	"context"
	"net/http"
	"strings"
	"time"

	"catalog/backend/internal/config"
	"catalog/backend/internal/logging"
	"catalog/backend/internal/metrics"
	authusecase "catalog/backend/internal/usecase/auth"
	productusecase "catalog/backend/internal/usecase/product"

	"go.uber.org/zap"
)

// Server wraps the HTTP server lifecycle.
type Server struct {
	httpServer     *http.Server
	router         *http.ServeMux
	authService    *authusecase.Service
	productService *productusecase.Service
	logger         *zap.Logger
	metrics        *metrics.Collector
	healthCheck    func(context.Context) error
	allowedOrigins []string
	addr           string
}

// Option customises a Server.
type Option func(*Server)

// WithLogger sets the access and error logger.
func WithLogger(l *zap.Logger) Option {
	return func(s *Server) { s.logger = logging.OrNop(l).Named("http") }
}

// WithMetrics records request metrics and serves them on /metrics.
func WithMetrics(m *metrics.Collector) Option {
	return func(s *Server) { s.metrics = m }
}

// WithHealthCheck makes /health report the result of check.
func WithHealthCheck(check func(context.Context) error) Option {
	return func(s *Server) { s.healthCheck = check }
}

// NewServer constructs a new Server with configured dependencies. authService may be nil,
// in which case catalog writes are open and the /auth routes are not mounted.
func NewServer(cfg config.Config, productService *productusecase.Service, authService *authusecase.Service, opts ...Option) *Server {
	mux := http.NewServeMux()
	addr := cfg.HTTPPort
	if !strings.Contains(addr, ":") {
		addr = ":" + addr
	}

	srv := &Server{
		router:         mux,
		authService:    authService,
		productService: productService,
		logger:         zap.NewNop(),
		allowedOrigins: cfg.AllowedOrigins,
		addr:           addr,
	}
	for _, opt := range opts {
		opt(srv)
	}

	handler := withRequestID(
		srv.withLogging(
			srv.withRecovery(
				withCORS(mux, cfg.AllowedOrigins))))

	srv.httpServer = &http.Server{
		Addr:         addr,
		Handler:      handler,
		ReadTimeout:  time.Duration(cfg.ReadTimeoutSec) * time.Second,
		WriteTimeout: time.Duration(cfg.WriteTimeoutSec) * time.Second,
		IdleTimeout:  time.Duration(cfg.IdleTimeoutSec) * time.Second,
	}
	srv.registerRoutes()
	return srv
}

// Start bootstraps the HTTP server on the configured address.
func (s *Server) Start() error {
	return s.httpServer.ListenAndServe()
}

// Shutdown gracefully stops the HTTP server.
func (s *Server) Shutdown(ctx context.Context) error {
	return s.httpServer.Shutdown(ctx)
}

// Handler returns the fully wrapped handler, for tests and embedding.
func (s *Server) Handler() http.Handler {
	return s.httpServer.Handler
}

// Addr returns the configured network address for the HTTP server.
func (s *Server) Addr() string {
	return s.addr
}
