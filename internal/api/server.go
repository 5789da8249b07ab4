package api

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"brandpulse/internal/api/health"
	"brandpulse/internal/api/stream"
	"brandpulse/internal/metrics"
	"brandpulse/pkg/errors"
	"brandpulse/pkg/logger"
)

// ServerConfig contains configuration for HTTP server
type ServerConfig struct {
	Port         int
	ServiceName  string
	Version      string
	Debug        bool
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
}

// Server wraps HTTP server with lifecycle management
type Server struct {
	httpServer *http.Server
	log        *logger.Logger
}

// NewServer creates and configures HTTP server with all routes.
// alerts and hub may be nil; their routes then answer 503 or are absent.
func NewServer(
	cfg ServerConfig,
	healthHandler *health.Handler,
	analyzer Analyzer,
	alerts AlertService,
	hub *stream.Hub,
	log *logger.Logger,
) *Server {
	router := NewRouter(cfg, healthHandler, analyzer, alerts, hub, log)

	port := 8080
	if cfg.Port > 0 {
		port = cfg.Port
	}
	readTimeout := cfg.ReadTimeout
	if readTimeout <= 0 {
		readTimeout = 10 * time.Second
	}
	// analyses run the whole pipeline inside the request
	writeTimeout := cfg.WriteTimeout
	if writeTimeout <= 0 {
		writeTimeout = 2 * time.Minute
	}

	log.Infof("HTTP server configured on port %d", port)

	httpServer := &http.Server{
		Addr:         fmt.Sprintf(":%d", port),
		Handler:      router,
		ReadTimeout:  readTimeout,
		WriteTimeout: writeTimeout,
		IdleTimeout:  60 * time.Second,
	}

	return &Server{
		httpServer: httpServer,
		log:        log,
	}
}

// NewRouter builds the gin engine with every route registered
func NewRouter(
	cfg ServerConfig,
	healthHandler *health.Handler,
	analyzer Analyzer,
	alerts AlertService,
	hub *stream.Hub,
	log *logger.Logger,
) *gin.Engine {
	if !cfg.Debug {
		gin.SetMode(gin.ReleaseMode)
	}

	router := gin.New()
	router.Use(gin.Recovery(), requestLogger(log))

	// Health check endpoints (Kubernetes probes)
	router.GET("/health/live", gin.WrapF(healthHandler.HandleLiveness))
	router.GET("/health/ready", gin.WrapF(healthHandler.HandleReadiness))

	// Prometheus metrics endpoint
	router.GET("/metrics", gin.WrapH(metrics.Handler()))

	if hub != nil {
		router.GET("/ws", stream.NewHandler(hub).Connect)
	}

	h := &handlers{analyzer: analyzer, alerts: alerts, log: log.With("component", "http_api")}
	v1 := router.Group("/api/v1")
	{
		v1.POST("/analyses", h.createAnalysis)
		v1.GET("/alerts", h.listAlerts)
		v1.GET("/alerts/:id", h.getAlert)
		v1.POST("/alerts/:id/acknowledge", h.acknowledgeAlert)
		v1.POST("/alerts/:id/resolve", h.resolveAlert)
	}

	// Root endpoint (service info)
	router.GET("/", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{
			"service": cfg.ServiceName,
			"version": cfg.Version,
			"status":  "running",
		})
	})

	return router
}

// Start begins listening for HTTP requests
// Blocks until server is stopped or encounters an error
func (s *Server) Start() error {
	s.log.Infof("Starting HTTP server on %s", s.httpServer.Addr)

	if err := s.httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return errors.Wrap(err, "http server failed")
	}

	return nil
}

// Shutdown gracefully stops the HTTP server
// Waits for active connections to complete within timeout
func (s *Server) Shutdown(ctx context.Context) error {
	s.log.Info("Stopping HTTP server...")

	if err := s.httpServer.Shutdown(ctx); err != nil {
		return errors.Wrap(err, "http server shutdown failed")
	}

	s.log.Info("✓ HTTP server stopped")
	return nil
}

func requestLogger(log *logger.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		log.Debugw("HTTP request",
			"method", c.Request.Method,
			"path", c.FullPath(),
			"status", c.Writer.Status(),
			"latency", time.Since(start),
		)
	}
}
