package http

import (
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/kaiwen/taskline/internal/application/service"
	"github.com/kaiwen/taskline/internal/domain/entity"
	"github.com/kaiwen/taskline/internal/scheduler"
)

// Handlers contains all HTTP request handlers
type Handlers struct {
	taskService service.TaskService
	sched       *scheduler.Scheduler
	jobs        *scheduler.Jobs
	logger      Logger
}

// NewHandlers creates a new Handlers instance
func NewHandlers(
	taskService service.TaskService,
	sched *scheduler.Scheduler,
	jobs *scheduler.Jobs,
	logger Logger,
) *Handlers {
	return &Handlers{
		taskService: taskService,
		sched:       sched,
		jobs:        jobs,
		logger:      logger,
	}
}

// Response represents a standard JSON response
type Response struct {
	Success bool        `json:"success"`
	Data    interface{} `json:"data,omitempty"`
	Error   string      `json:"error,omitempty"`
}

// HealthResponse represents the health check response
type HealthResponse struct {
	Status    string `json:"status"`
	Timestamp string `json:"timestamp"`
	Version   string `json:"version"`
}

// CreateTaskRequest is the body of POST /api/v1/tasks
type CreateTaskRequest struct {
	GroupID           string    `json:"group_id" binding:"required"`
	Title             string    `json:"title" binding:"required"`
	Description       string    `json:"description"`
	DueTime           time.Time `json:"due_time" binding:"required"`
	Priority          string    `json:"priority"`
	Tags              []string  `json:"tags"`
	RequireAttachment bool      `json:"require_attachment"`
	CreatedBy         string    `json:"created_by"`
	AssignedUsers     []string  `json:"assigned_users" binding:"required"`
	ReviewerUserID    string    `json:"reviewer_user_id"`
}

// SubmissionRequest is the body of POST /api/v1/tasks/:id/submissions
type SubmissionRequest struct {
	SubmittedBy string   `json:"submitted_by" binding:"required"`
	FileIDs     []string `json:"file_ids"`
	Comment     string   `json:"comment"`
	Links       []string `json:"links"`
}

// ActorRequest carries the acting user for review and completion endpoints
type ActorRequest struct {
	UserID string `json:"user_id" binding:"required"`
}

// RejectRequest is the body of POST /api/v1/tasks/:id/review/reject
type RejectRequest struct {
	UserID        string `json:"user_id" binding:"required"`
	ExtensionDays int    `json:"extension_days"`
	Reason        string `json:"reason"`
}

// HealthCheck handles GET /health
func (h *Handlers) HealthCheck(c *gin.Context) {
	c.JSON(http.StatusOK, Response{
		Success: true,
		Data: HealthResponse{
			Status:    "healthy",
			Timestamp: time.Now().UTC().Format(time.RFC3339),
			Version:   "1.0.0",
		},
	})
}

// CreateTask handles POST /api/v1/tasks
func (h *Handlers) CreateTask(c *gin.Context) {
	var req CreateTaskRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, Response{Success: false, Error: "invalid request body"})
		return
	}

	task, err := h.taskService.CreateTask(c.Request.Context(), service.CreateTaskSpec{
		GroupID:           req.GroupID,
		Title:             req.Title,
		Description:       req.Description,
		DueTime:           req.DueTime,
		Priority:          entity.Priority(req.Priority),
		Tags:              req.Tags,
		RequireAttachment: req.RequireAttachment,
		CreatedBy:         req.CreatedBy,
		AssignedUsers:     req.AssignedUsers,
		ReviewerUserID:    req.ReviewerUserID,
	})
	if err != nil {
		h.respondError(c, err)
		return
	}

	c.JSON(http.StatusCreated, Response{Success: true, Data: task})
}

// GetTask handles GET /api/v1/tasks/:id
func (h *Handlers) GetTask(c *gin.Context) {
	task, err := h.taskService.GetTask(c.Request.Context(), c.Param("id"))
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, Response{Success: true, Data: task})
}

// DeleteTask handles DELETE /api/v1/tasks/:id
func (h *Handlers) DeleteTask(c *gin.Context) {
	if err := h.taskService.DeleteTask(c.Request.Context(), c.Param("id")); err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, Response{Success: true})
}

// RecordSubmission handles POST /api/v1/tasks/:id/submissions
func (h *Handlers) RecordSubmission(c *gin.Context) {
	var req SubmissionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, Response{Success: false, Error: "invalid request body"})
		return
	}

	task, err := h.taskService.RecordSubmission(c.Request.Context(),
		c.Param("id"), req.SubmittedBy, req.FileIDs, req.Comment, req.Links)
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, Response{Success: true, Data: task})
}

// ApproveReview handles POST /api/v1/tasks/:id/review/approve
func (h *Handlers) ApproveReview(c *gin.Context) {
	var req ActorRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, Response{Success: false, Error: "invalid request body"})
		return
	}

	task, err := h.taskService.ApproveReview(c.Request.Context(), c.Param("id"), req.UserID)
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, Response{Success: true, Data: task})
}

// RejectAndExtend handles POST /api/v1/tasks/:id/review/reject
func (h *Handlers) RejectAndExtend(c *gin.Context) {
	var req RejectRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, Response{Success: false, Error: "invalid request body"})
		return
	}

	task, err := h.taskService.RejectAndExtend(c.Request.Context(),
		c.Param("id"), req.UserID, req.ExtensionDays, req.Reason)
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, Response{Success: true, Data: task})
}

// ApproveCompletion handles POST /api/v1/tasks/:id/approve-completion
func (h *Handlers) ApproveCompletion(c *gin.Context) {
	var req ActorRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, Response{Success: false, Error: "invalid request body"})
		return
	}

	task, err := h.taskService.ApproveCompletion(c.Request.Context(), c.Param("id"), req.UserID)
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, Response{Success: true, Data: task})
}

// CompleteTask handles POST /api/v1/tasks/:id/complete
func (h *Handlers) CompleteTask(c *gin.Context) {
	var req ActorRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, Response{Success: false, Error: "invalid request body"})
		return
	}

	task, err := h.taskService.CompleteTask(c.Request.Context(), c.Param("id"), req.UserID)
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, Response{Success: true, Data: task})
}

// ListGroupTasks handles GET /api/v1/groups/:id/tasks?status=a,b
func (h *Handlers) ListGroupTasks(c *gin.Context) {
	var statuses []entity.TaskStatus
	if raw, ok := c.GetQueryArray("status"); ok {
		for _, s := range raw {
			statuses = append(statuses, entity.TaskStatus(s))
		}
	}

	tasks, err := h.taskService.ListGroupTasks(c.Request.Context(), c.Param("id"), statuses)
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, Response{Success: true, Data: tasks})
}

// ListJobs handles GET /api/v1/scheduler/jobs
func (h *Handlers) ListJobs(c *gin.Context) {
	c.JSON(http.StatusOK, Response{Success: true, Data: h.sched.Entries()})
}

// TriggerJob handles POST /api/v1/scheduler/jobs/:name/trigger
func (h *Handlers) TriggerJob(c *gin.Context) {
	name := c.Param("name")
	handler, ok := h.jobs.Handler(name)
	if !ok {
		c.JSON(http.StatusNotFound, Response{Success: false, Error: "unknown job"})
		return
	}

	h.sched.Trigger(name, handler)
	c.JSON(http.StatusAccepted, Response{Success: true})
}

// respondError maps service sentinel errors onto HTTP status codes.
func (h *Handlers) respondError(c *gin.Context, err error) {
	status := http.StatusInternalServerError
	switch {
	case errors.Is(err, service.ErrValidation), errors.Is(err, service.ErrDuplicate):
		status = http.StatusBadRequest
	case errors.Is(err, service.ErrPermission):
		status = http.StatusForbidden
	case errors.Is(err, service.ErrNotFound):
		status = http.StatusNotFound
	}

	if status == http.StatusInternalServerError {
		h.logger.Error("Request failed", "error", err)
	}
	c.JSON(status, Response{Success: false, Error: err.Error()})
}
