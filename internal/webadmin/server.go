// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package webadmin serves the operator-facing status API: a public health
// probe plus token-guarded endpoints for pipeline stats and the configured
// sources. It exposes read-only state; all mutation goes through the CLI.
package webadmin

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/kaamos-labs/watchdog/internal/store"
	"github.com/kaamos-labs/watchdog/pkg/types"
)

const shutdownGrace = 5 * time.Second

// Server is the admin/status HTTP server.
type Server struct {
	store  *store.Store
	cfg    types.AdminConfig
	budget float64
	log    *zap.Logger
}

// NewServer builds a Server over the given store. budget is the advisory
// monthly model spend ceiling reported alongside stats.
func NewServer(s *store.Store, cfg types.AdminConfig, budget float64, log *zap.Logger) *Server {
	gin.SetMode(gin.ReleaseMode)
	return &Server{store: s, cfg: cfg, budget: budget, log: log.Named("webadmin")}
}

// Router constructs the gin engine with all routes registered.
func (s *Server) Router() *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery(), s.requestLog())

	r.GET("/healthz", s.handleHealth)

	admin := r.Group("/api/admin")
	admin.Use(s.requireToken())
	admin.GET("/stats", s.handleStats)
	admin.GET("/sources", s.handleSources)
	return r
}

// Run serves until ctx is cancelled, then shuts down gracefully.
func (s *Server) Run(ctx context.Context) error {
	srv := &http.Server{
		Addr:    s.cfg.ListenAddr,
		Handler: s.Router(),
	}

	errc := make(chan error, 1)
	go func() {
		errc <- srv.ListenAndServe()
	}()
	s.log.Info("admin server listening", zap.String("addr", s.cfg.ListenAddr))

	select {
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownGrace)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("shutting down admin server: %w", err)
		}
		return nil
	case err := <-errc:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("admin server: %w", err)
		}
		return nil
	}
}

func (s *Server) handleHealth(c *gin.Context) {
	if err := s.store.Ping(c.Request.Context()); err != nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"status": "degraded", "error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

func (s *Server) handleStats(c *gin.Context) {
	st, err := s.store.Stats(c.Request.Context())
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"stats":              st,
		"monthly_budget_eur": s.budget,
	})
}

func (s *Server) handleSources(c *gin.Context) {
	sources, err := s.store.ListSources(c.Request.Context())
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"sources": sources})
}

// requestLog tags each request with an id and logs method, path, status,
// and duration once the handler chain finishes.
func (s *Server) requestLog() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		id := uuid.NewString()
		c.Header("X-Request-Id", id)

		c.Next()

		s.log.Debug("http request",
			zap.String("request_id", id),
			zap.String("method", c.Request.Method),
			zap.String("path", c.Request.URL.Path),
			zap.Int("status", c.Writer.Status()),
			zap.Duration("duration", time.Since(start)),
			zap.String("remote_addr", c.ClientIP()))
	}
}
