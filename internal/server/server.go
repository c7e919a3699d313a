// Package server exposes the engine over a JSON HTTP API.
package server

import (
	"context"
	"errors"
	"log/slog"
	"net"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/abatilo/taskflow/internal/engine"
)

const shutdownTimeout = 5 * time.Second

// Options configures a Server.
type Options struct {
	Engine *engine.Engine
	// Driver names the configured remote driver, empty when none.
	Driver string
	Logger *slog.Logger
}

// Server is the taskflow HTTP API.
type Server struct {
	engine *engine.Engine
	driver string
	logger *slog.Logger
	router *gin.Engine
}

// New creates a server and registers its routes.
func New(opts Options) *Server {
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}

	router := gin.New()
	router.Use(gin.Recovery(), requestLogger(logger))

	s := &Server{
		engine: opts.Engine,
		driver: opts.Driver,
		logger: logger,
		router: router,
	}

	api := router.Group("/api")
	{
		api.GET("/tasks", s.handleListTasks)
		api.POST("/tasks", s.handleCreateTask)
		api.GET("/tasks/:id", s.handleGetTask)
		api.PATCH("/tasks/:id", s.handleUpdateTask)
		api.DELETE("/tasks/:id", s.handleDeleteTask)
		api.POST("/tasks/:id/start", s.handleStartTask)
		api.POST("/tasks/:id/pause", s.handlePauseTask)
		api.POST("/tasks/:id/complete", s.handleCompleteTask)
		api.GET("/active", s.handleActive)
		api.GET("/history", s.handleHistory)
		api.GET("/sessions", s.handleSessions)
		api.GET("/analytics", s.handleAnalytics)
		api.GET("/stats", s.handleStats)
		api.GET("/mode", s.handleMode)
		api.GET("/templates", s.handleTemplates)
		api.GET("/events", s.handleEvents)
	}

	return s
}

// Handler returns the HTTP handler serving the API.
func (s *Server) Handler() http.Handler {
	return s.router
}

// Run serves on addr until ctx is cancelled, then shuts down gracefully.
func (s *Server) Run(ctx context.Context, addr string) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           s.router,
		ReadHeaderTimeout: 10 * time.Second,
		// Event streams end when ctx is cancelled.
		BaseContext: func(net.Listener) context.Context { return ctx },
	}

	errCh := make(chan error, 1)
	go func() {
		s.logger.Info("http server listening", "addr", addr)
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return err
	}
	if err := <-errCh; !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

func requestLogger(logger *slog.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		logger.Debug("http request",
			"method", c.Request.Method,
			"path", c.FullPath(),
			"status", c.Writer.Status(),
			"duration", time.Since(start),
		)
	}
}
