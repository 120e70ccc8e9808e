// Package server exposes site QA sessions over HTTP.
package server

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
)

type Server struct {
	registry *Registry
	opts     *Options
	log      *slog.Logger
	engine   *gin.Engine
}

func New(registry *Registry, opts ...Option) *Server {
	options := defaultOptions()
	for _, opt := range opts {
		opt(options)
	}
	logger := options.Logger
	if logger == nil {
		logger = slog.Default()
	}

	s := &Server{
		registry: registry,
		opts:     options,
		log:      logger,
	}
	s.engine = s.routes()
	return s
}

func (s *Server) routes() *gin.Engine {
	if !s.opts.Debug {
		gin.SetMode(gin.ReleaseMode)
	}
	router := gin.New()
	router.Use(gin.Recovery(), s.requestLogger())

	router.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{
			"status":   "healthy",
			"service":  "siteqa",
			"sessions": s.registry.Len(),
		})
	})

	v1 := router.Group("/api/v1")
	v1.POST("/sessions", s.createSession)

	session := v1.Group("/sessions/:id")
	session.GET("", s.getSession)
	session.DELETE("", s.deleteSession)
	session.POST("/crawl", s.crawl)
	session.POST("/ask", s.ask)
	session.DELETE("/history", s.clearHistory)
	session.POST("/index/save", s.saveIndex)
	session.POST("/index/load", s.loadIndex)

	return router
}

func (s *Server) requestLogger() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		s.log.Debug("request",
			"method", c.Request.Method,
			"path", c.FullPath(),
			"status", c.Writer.Status(),
			"elapsed", time.Since(start))
	}
}

func (s *Server) Handler() http.Handler {
	return s.engine
}

// Run serves on addr until ctx is cancelled, then shuts down and closes
// every session.
func (s *Server) Run(ctx context.Context, addr string) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           s.engine,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		s.log.Info("server listening", "addr", addr)
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return fmt.Errorf("listen on %s: %w", addr, err)
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), s.opts.ShutdownTimeout)
	defer cancel()

	s.log.Info("server shutting down")
	err := srv.Shutdown(shutdownCtx)
	if cerr := s.registry.CloseAll(shutdownCtx); cerr != nil {
		err = errors.Join(err, cerr)
	}
	return err
}
