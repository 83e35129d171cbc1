// Package http serves the agent's local status endpoints: health, readiness,
// the loaded keys (metadata only), and Prometheus metrics.
package http

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/gin-contrib/requestid"
	"github.com/gin-gonic/gin"

	cryptoDomain "github.com/allisson/keymanager/internal/crypto/domain"
	"github.com/allisson/keymanager/internal/metrics"
)

// KeySource exposes the loaded keys to the handlers. *registry.Registry satisfies it.
type KeySource interface {
	Keys() []*cryptoDomain.Key
	Get(id string) (*cryptoDomain.Key, error)
	IsCurrent(key *cryptoDomain.Key) bool
}

// Server is the agent's HTTP server.
type Server struct {
	server *http.Server
	logger *slog.Logger
	keys   KeySource
	ready  func() bool
}

// Option configures optional middleware of the Server.
type Option func(*serverOptions)

type serverOptions struct {
	corsOrigins string
	rateLimit   bool
	rps         float64
	burst       int
}

// WithCORS allows cross-origin GET requests from the comma-separated origins.
func WithCORS(allowOrigins string) Option {
	return func(o *serverOptions) {
		o.corsOrigins = allowOrigins
	}
}

// WithRateLimit limits the server to rps requests per second with the given burst.
func WithRateLimit(rps float64, burst int) Option {
	return func(o *serverOptions) {
		o.rateLimit = true
		o.rps = rps
		o.burst = burst
	}
}

// NewServer builds the router. metricsProvider may be nil, in which case neither
// /metrics nor request metrics are set up. ready reports readiness for /ready.
func NewServer(
	addr string,
	logger *slog.Logger,
	keys KeySource,
	metricsProvider *metrics.Provider,
	namespace string,
	ready func() bool,
	opts ...Option,
) *Server {
	s := &Server{
		logger: logger,
		keys:   keys,
		ready:  ready,
	}

	var o serverOptions
	for _, opt := range opts {
		opt(&o)
	}

	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(requestid.New())
	router.Use(LoggerMiddleware(logger))
	if o.corsOrigins != "" {
		if corsMiddleware := createCORSMiddleware(o.corsOrigins, logger); corsMiddleware != nil {
			router.Use(corsMiddleware)
		}
	}
	if o.rateLimit {
		router.Use(RateLimitMiddleware(o.rps, o.burst, logger))
	}
	if metricsProvider != nil {
		router.Use(metrics.HTTPMetricsMiddleware(metricsProvider.MeterProvider(), namespace))
		router.GET("/metrics", gin.WrapH(metricsProvider.Handler()))
	}

	router.GET("/health", s.healthHandler)
	router.GET("/ready", s.readinessHandler)
	router.GET("/keys", s.listKeysHandler)
	router.GET("/keys/:id", s.getKeyHandler)

	s.server = &http.Server{
		Addr:         addr,
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}
	return s
}

// Handler returns the router, for tests.
func (s *Server) Handler() http.Handler {
	return s.server.Handler
}

// Start listens until Shutdown is called.
func (s *Server) Start(ctx context.Context) error {
	s.logger.Info("starting http server", slog.String("addr", s.server.Addr))

	if err := s.server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return fmt.Errorf("failed to start http server: %w", err)
	}
	return nil
}

// Shutdown gracefully stops the server.
func (s *Server) Shutdown(ctx context.Context) error {
	s.logger.Info("shutting down http server")
	return s.server.Shutdown(ctx)
}
