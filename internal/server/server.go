// Package server exposes the moderation engine and the review queue over HTTP.
package server

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/digimosa/content-moderation/internal/allowlist"
	"github.com/digimosa/content-moderation/internal/config"
	"github.com/digimosa/content-moderation/internal/moderation"
	"github.com/digimosa/content-moderation/internal/redaction"
	"github.com/digimosa/content-moderation/internal/storage"
)

type Server struct {
	cfg      config.ServerConfig
	log      *zap.Logger
	engine   *moderation.Engine
	redactor *redaction.Redactor
	store    *storage.Store
	allow    *allowlist.Allowlist
	router   *gin.Engine
}

// NewServer wires the routes. store may be nil, in which case verdicts are
// returned but not queued and the queue routes answer 503. A nil allow
// likewise turns the allowlist routes into 503s.
func NewServer(cfg config.ServerConfig, log *zap.Logger, engine *moderation.Engine, redactor *redaction.Redactor, store *storage.Store, allow *allowlist.Allowlist) *Server {
	if cfg.GinMode != "" {
		gin.SetMode(cfg.GinMode)
	}
	if cfg.MaxUploadBytes <= 0 {
		cfg.MaxUploadBytes = 10 << 20
	}

	router := gin.New()
	router.MaxMultipartMemory = cfg.MaxUploadBytes
	router.Use(gin.Recovery(), requestLogger(log))

	s := &Server{
		cfg:      cfg,
		log:      log.Named("server"),
		engine:   engine,
		redactor: redactor,
		store:    store,
		allow:    allow,
		router:   router,
	}
	s.setupRoutes()
	return s
}

func (s *Server) setupRoutes() {
	s.router.GET("/ping", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"message": "pong"})
	})
	s.router.GET("/metrics", gin.WrapH(promhttp.Handler()))

	api := s.router.Group("/api")
	{
		api.POST("/moderate/text", s.handleModerateText)
		api.POST("/moderate/image", s.handleModerateImage)
		api.POST("/moderate/review", s.handleModerateReview)
		api.POST("/redact", s.handleRedact)

		api.GET("/queue", s.handleQueue)
		api.GET("/results/:id", s.handleGetResult)
		api.POST("/results/:id/review", s.handleReview)
		api.GET("/stats", s.handleStats)

		api.GET("/scans", s.handleListScans)
		api.GET("/scans/:id", s.handleGetScan)

		api.GET("/allowlist", s.handleListAllowlist)
		api.POST("/allowlist", s.handleAllowlist)
	}
}

// Handler returns the router, mainly for tests.
func (s *Server) Handler() http.Handler {
	return s.router
}

// Start serves on cfg.Addr until ctx is cancelled, then shuts down
// gracefully.
func (s *Server) Start(ctx context.Context) error {
	srv := &http.Server{
		Addr:              s.cfg.Addr,
		Handler:           s.router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		s.log.Info("starting review server", zap.String("addr", s.cfg.Addr))
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		s.log.Info("shutting down review server")
		return srv.Shutdown(shutdownCtx)
	}
}

func requestLogger(log *zap.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		log.Info("http request",
			zap.String("method", c.Request.Method),
			zap.String("path", c.FullPath()),
			zap.Int("status", c.Writer.Status()),
			zap.Duration("latency", time.Since(start)))
	}
}
