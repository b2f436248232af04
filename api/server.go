// Package api - HTTP API
// The API ingests requests, hands them to the calculator and serializes
// the result. It never decides a rate itself.
package api

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"vat-calculator/core/geo"
	"vat-calculator/core/resolver"
	"vat-calculator/core/vies"
	"vat-calculator/internal/config"
	"vat-calculator/internal/logging"
	"vat-calculator/internal/metrics"
)

// Deps are the collaborators of the API
type Deps struct {
	Resolver  *resolver.Resolver
	Validator *vies.Validator
	Geo       *geo.Resolver
	Audit     AuditLogger
	Logger    *zap.Logger
	Version   string
}

// Server is the API server
type Server struct {
	cfg     config.ServerConfig
	engine  *gin.Engine
	handler *Handler
	http    *http.Server
	logger  *zap.Logger
	version string
}

// NewServer creates a server. The gin mode is process-wide and is set
// by the caller.
func NewServer(cfg config.ServerConfig, deps Deps) *Server {
	deps.Logger = logging.OrNop(deps.Logger)

	engine := gin.New()
	engine.Use(
		gin.Recovery(),
		RequestID(),
		Metrics(),
		AccessLog(deps.Logger.Named("http")),
		BodyLimit(cfg.MaxBodySize),
	)

	s := &Server{
		cfg:     cfg,
		engine:  engine,
		handler: NewHandler(deps),
		logger:  deps.Logger,
		version: deps.Version,
	}
	s.registerRoutes()

	s.http = &http.Server{
		Addr:         cfg.Address,
		Handler:      engine,
		ReadTimeout:  cfg.ReadTimeout,
		WriteTimeout: cfg.WriteTimeout,
	}
	return s
}

// registerRoutes registers all API routes
func (s *Server) registerRoutes() {
	s.engine.GET("/health", s.handleHealth)
	s.engine.GET("/version", s.handleVersion)
	s.engine.GET("/metrics", gin.WrapH(metrics.Handler()))

	v1 := s.engine.Group("/v1")
	{
		v1.POST("/calculate", s.handler.Calculate)
		v1.GET("/rates", s.handler.ListRates)
		v1.GET("/rates/:country", s.handler.GetRate)
		v1.POST("/vat-numbers/validate", s.handler.ValidateNumber)
		v1.GET("/geo", s.handler.Locate)
	}
}

// handleHealth handles GET /health
func (s *Server) handleHealth(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status":  "healthy",
		"version": s.version,
		"time":    time.Now().UTC().Format(time.RFC3339),
	})
}

// handleVersion handles GET /version
func (s *Server) handleVersion(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"version":     s.version,
		"engine":      "vat-calculator",
		"api_version": "v1",
	})
}

// ServeHTTP implements http.Handler
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.engine.ServeHTTP(w, r)
}

// ListenAndServe starts the server. It returns http.ErrServerClosed
// after Shutdown.
func (s *Server) ListenAndServe() error {
	s.logger.Info("starting API server", zap.String("address", s.cfg.Address))
	return s.http.ListenAndServe()
}

// Shutdown stops accepting requests and waits for in-flight ones
func (s *Server) Shutdown(ctx context.Context) error {
	s.logger.Info("shutting down API server")
	return s.http.Shutdown(ctx)
}
