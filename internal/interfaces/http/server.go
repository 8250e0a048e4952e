// Package http provides the HTTP admin adapter for the application layer.
// This is a thin layer that translates HTTP requests to application service
// calls; the chat platform, not this API, is the primary user surface.
package http

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/kaiwen/taskline/internal/application/service"
	"github.com/kaiwen/taskline/internal/scheduler"
)

// Logger interface for logging operations
type Logger interface {
	Info(msg string, keysAndValues ...interface{})
	Error(msg string, keysAndValues ...interface{})
}

// ServerConfig holds HTTP server configuration
type ServerConfig struct {
	Host         string
	Port         int
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
}

// Server is the HTTP server adapter
type Server struct {
	config      ServerConfig
	httpServer  *http.Server
	router      *gin.Engine
	taskService service.TaskService
	sched       *scheduler.Scheduler
	jobs        *scheduler.Jobs
	logger      Logger
}

// NewServer creates a new HTTP server with the given services
func NewServer(
	config ServerConfig,
	taskService service.TaskService,
	sched *scheduler.Scheduler,
	jobs *scheduler.Jobs,
	logger Logger,
) *Server {
	gin.SetMode(gin.ReleaseMode)

	server := &Server{
		config:      config,
		router:      gin.New(),
		taskService: taskService,
		sched:       sched,
		jobs:        jobs,
		logger:      logger,
	}

	server.setupMiddleware()
	server.setupRoutes()

	return server
}

// setupMiddleware configures middleware for the router
func (s *Server) setupMiddleware() {
	s.router.Use(gin.Recovery())
	s.router.Use(s.loggingMiddleware())
}

// loggingMiddleware creates a logging middleware
func (s *Server) loggingMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		path := c.Request.URL.Path
		method := c.Request.Method

		c.Next()

		latency := time.Since(start)
		status := c.Writer.Status()

		s.logger.Info("HTTP request",
			"method", method,
			"path", path,
			"status", status,
			"latency", latency.String(),
			"client_ip", c.ClientIP(),
		)
	}
}

// setupRoutes configures all HTTP routes
func (s *Server) setupRoutes() {
	handlers := NewHandlers(s.taskService, s.sched, s.jobs, s.logger)

	s.router.GET("/health", handlers.HealthCheck)

	api := s.router.Group("/api/v1")
	{
		api.POST("/tasks", handlers.CreateTask)
		api.GET("/tasks/:id", handlers.GetTask)
		api.DELETE("/tasks/:id", handlers.DeleteTask)
		api.POST("/tasks/:id/submissions", handlers.RecordSubmission)
		api.POST("/tasks/:id/review/approve", handlers.ApproveReview)
		api.POST("/tasks/:id/review/reject", handlers.RejectAndExtend)
		api.POST("/tasks/:id/approve-completion", handlers.ApproveCompletion)
		api.POST("/tasks/:id/complete", handlers.CompleteTask)

		api.GET("/groups/:id/tasks", handlers.ListGroupTasks)

		api.GET("/scheduler/jobs", handlers.ListJobs)
		api.POST("/scheduler/jobs/:name/trigger", handlers.TriggerJob)
	}
}

// Start starts the HTTP server
func (s *Server) Start() error {
	addr := fmt.Sprintf("%s:%d", s.config.Host, s.config.Port)

	s.httpServer = &http.Server{
		Addr:         addr,
		Handler:      s.router,
		ReadTimeout:  s.config.ReadTimeout,
		WriteTimeout: s.config.WriteTimeout,
	}

	s.logger.Info("Starting HTTP server", "address", addr)

	if err := s.httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return fmt.Errorf("http server error: %w", err)
	}
	return nil
}

// Shutdown gracefully stops the HTTP server
func (s *Server) Shutdown(ctx context.Context) error {
	if s.httpServer == nil {
		return nil
	}

	s.logger.Info("Shutting down HTTP server")
	return s.httpServer.Shutdown(ctx)
}
