// Package server assembles the gin engine, middleware chain, and HTTP
// server for the gateway.
package server

import (
	"context"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/vkorolev/shopgw/internal/auth"
	"github.com/vkorolev/shopgw/internal/health"
	"github.com/vkorolev/shopgw/internal/middleware"
	"github.com/vkorolev/shopgw/internal/observability"
)

// ginModeOnce ensures gin.SetMode is only called once to avoid race
// conditions across servers created in the same process (tests).
var ginModeOnce sync.Once

// defaultMaxRequestBodySize bounds inbound request bodies.
const defaultMaxRequestBodySize = 10 << 20

// Config holds the HTTP server settings.
type Config struct {
	Address        string
	Port           int
	ReadTimeout    time.Duration
	WriteTimeout   time.Duration
	IdleTimeout    time.Duration
	MaxHeaderBytes int

	// MaxRequestBodySize is the maximum allowed request body size in
	// bytes. Zero selects the default.
	MaxRequestBodySize int64
}

// Options carries the collaborators the server wires into its routes.
type Options struct {
	Handlers       *Handlers
	Resolver       *auth.Resolver
	PublicPaths    []string
	Checker        *health.Checker
	Metrics        *observability.Metrics
	MetricsEnabled bool
	Logger         *zap.Logger
}

// Server is the gateway HTTP server.
type Server struct {
	engine     *gin.Engine
	httpServer *http.Server
	logger     *zap.Logger
	config     Config
	mu         sync.RWMutex
	running    bool
}

// New creates the server, installs the middleware chain, and registers
// the routes. The chain order is fixed: recovery first so panics in any
// later stage are caught, correlation before logging so every log line
// carries the ID, auth last so rejected requests are still logged and
// counted.
func New(cfg Config, opts Options) *Server {
	ginModeOnce.Do(func() {
		gin.SetMode(gin.ReleaseMode)
	})

	logger := opts.Logger
	if logger == nil {
		logger = zap.NewNop()
	}

	engine := gin.New()

	maxBody := cfg.MaxRequestBodySize
	if maxBody == 0 {
		maxBody = defaultMaxRequestBodySize
	}
	engine.Use(func(c *gin.Context) {
		c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, maxBody)
		c.Next()
	})

	engine.Use(middleware.Recovery(logger))
	engine.Use(middleware.CorrelationID())
	engine.Use(middleware.Logging(logger))
	if opts.MetricsEnabled && opts.Metrics != nil {
		engine.Use(middleware.Metrics(opts.Metrics))
	}
	engine.Use(middleware.Auth(opts.Resolver, opts.PublicPaths, logger))

	registerRoutes(engine, opts)

	s := &Server{
		engine: engine,
		logger: logger,
		config: cfg,
	}

	s.httpServer = &http.Server{
		Addr:           fmt.Sprintf("%s:%d", cfg.Address, cfg.Port),
		Handler:        engine,
		ReadTimeout:    cfg.ReadTimeout,
		WriteTimeout:   cfg.WriteTimeout,
		IdleTimeout:    cfg.IdleTimeout,
		MaxHeaderBytes: cfg.MaxHeaderBytes,
	}

	return s
}

// registerRoutes binds the HTTP surface. Static paths take priority over
// the :service parameter, so the liveness and metrics endpoints never
// reach the routing engine.
func registerRoutes(engine *gin.Engine, opts Options) {
	h := opts.Handlers

	engine.GET("/", opts.Checker.Handler())
	engine.POST("/token", h.Token)
	if opts.MetricsEnabled && opts.Metrics != nil {
		engine.GET("/metrics", gin.WrapH(opts.Metrics.Handler()))
	}

	engine.GET("/:service", h.ServiceRead)
	engine.POST("/post_product", h.PostProduct)
	engine.POST("/post_order", h.PostOrder)
}

// Engine returns the underlying gin engine, used by tests.
func (s *Server) Engine() *gin.Engine {
	return s.engine
}

// Addr returns the address the server listens on.
func (s *Server) Addr() string {
	return s.httpServer.Addr
}

// Start begins serving. It blocks until the listener fails or the server
// is stopped; a clean shutdown returns nil.
func (s *Server) Start() error {
	s.mu.Lock()
	if s.running {
		s.mu.Unlock()
		return fmt.Errorf("server already running")
	}
	s.running = true
	s.mu.Unlock()

	s.logger.Info("http server starting", zap.String("addr", s.httpServer.Addr))

	if err := s.httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return fmt.Errorf("http server failed: %w", err)
	}
	return nil
}

// Stop shuts the server down gracefully, bounded by the context.
func (s *Server) Stop(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.running {
		return nil
	}
	s.running = false

	s.logger.Info("http server stopping")
	return s.httpServer.Shutdown(ctx)
}
