package service

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"

	"github.com/kaiwen/taskline/internal/application/dispatcher"
	"github.com/kaiwen/taskline/internal/application/port"
	"github.com/kaiwen/taskline/internal/domain/entity"
	"github.com/kaiwen/taskline/internal/domain/event"
	"github.com/kaiwen/taskline/internal/domain/workflow"
)

// Logger is the minimal logging dependency used by services.
type Logger interface {
	Info(msg string, keysAndValues ...interface{})
	Warn(msg string, keysAndValues ...interface{})
	Error(msg string, keysAndValues ...interface{})
}

// Review SLA and create-debounce constants.
const (
	reviewSLA       = 48 * time.Hour
	duplicateWindow = 2 * time.Minute

	defaultExtensionDays = 3
)

// CreateTaskSpec is the input to CreateTask.
type CreateTaskSpec struct {
	GroupID           string `validate:"required"`
	Title             string `validate:"required"`
	Description       string
	DueTime           time.Time `validate:"required"`
	StartTime         *time.Time
	Priority          entity.Priority
	Tags              []string
	RequireAttachment bool
	CreatedBy         string   `validate:"required"`
	AssignedUsers     []string `validate:"required,min=1"`
	ReviewerUserID    string

	// Set when spawned from a recurring template.
	RecurringTaskID   string
	RecurringInstance int
}

// TaskService is the task lifecycle engine. It owns every state transition of
// the Task aggregate and enforces the permission rules of the review and
// approval workflow. Notification side effects are emitted as domain events
// and are never fatal to the operation that raised them.
type TaskService interface {
	CreateTask(ctx context.Context, spec CreateTaskSpec) (*entity.Task, error)
	RecordSubmission(ctx context.Context, taskID, submitterID string, fileIDs []string, comment string, links []string) (*entity.Task, error)
	ApproveReview(ctx context.Context, taskID, approverID string) (*entity.Task, error)
	ApproveCompletion(ctx context.Context, taskID, creatorID string) (*entity.Task, error)
	CompleteTask(ctx context.Context, taskID, actorID string) (*entity.Task, error)
	RejectAndExtend(ctx context.Context, taskID, rejectorID string, extensionDays int, reason string) (*entity.Task, error)
	MarkOverdue(ctx context.Context, taskID string) (*entity.Task, error)

	// AutoApproveIfPastReviewDeadline completes a task whose review has
	// been pending past its deadline. Dormant by policy: callable, but
	// not registered on the default job table.
	AutoApproveIfPastReviewDeadline(ctx context.Context, taskID string) (*entity.Task, error)

	// RecordReminderSent appends a reminder record to the task.
	RecordReminderSent(ctx context.Context, taskID string, rec entity.ReminderRecord) error

	GetTask(ctx context.Context, id string) (*entity.Task, error)
	ListGroupTasks(ctx context.Context, groupID string, statuses []entity.TaskStatus) ([]*entity.Task, error)
	DeleteTask(ctx context.Context, id string) error
}

type taskServiceImpl struct {
	taskRepo   port.TaskRepository
	txManager  port.TransactionManager
	clock      port.Clock
	fileLinker port.FileLinker
	dispatcher dispatcher.Dispatcher
	validate   *validator.Validate
	logger     Logger
}

// NewTaskService creates the lifecycle engine.
func NewTaskService(
	taskRepo port.TaskRepository,
	txManager port.TransactionManager,
	clock port.Clock,
	fileLinker port.FileLinker,
	d dispatcher.Dispatcher,
	logger Logger,
) TaskService {
	return &taskServiceImpl{
		taskRepo:   taskRepo,
		txManager:  txManager,
		clock:      clock,
		fileLinker: fileLinker,
		dispatcher: d,
		validate:   validator.New(),
		logger:     logger,
	}
}

// CreateTask validates the spec, applies defaulting policies and persists a
// new pending task. Rejects identical (group, title, creator) tasks created
// within the duplicate window.
func (s *taskServiceImpl) CreateTask(ctx context.Context, spec CreateTaskSpec) (*entity.Task, error) {
	// Fallback policy: a task arriving without an explicit creator is
	// attributed to its first assignee.
	if spec.CreatedBy == "" && len(spec.AssignedUsers) > 0 {
		spec.CreatedBy = spec.AssignedUsers[0]
	}
	spec.Title = strings.TrimSpace(spec.Title)

	if err := s.validate.Struct(spec); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrValidation, err)
	}

	now := s.clock.Now()

	// Duplicate-create guard.
	existing, err := s.taskRepo.FindRecentCreation(ctx, spec.GroupID, spec.Title, spec.CreatedBy, now.Add(-duplicateWindow))
	if err != nil {
		s.logger.Error("Failed to check duplicate task",
			"error", err,
			"group_id", spec.GroupID,
			"title", spec.Title)
		return nil, fmt.Errorf("check duplicate task: %w", err)
	}
	if existing != nil {
		return nil, fmt.Errorf("%w: %q created by %s within the last %s", ErrDuplicate, spec.Title, spec.CreatedBy, duplicateWindow)
	}

	reviewer := spec.ReviewerUserID
	if reviewer == "" {
		reviewer = spec.CreatedBy
	}
	priority := spec.Priority
	if priority == "" {
		priority = entity.PriorityMedium
	}

	task := &entity.Task{
		ID:                uuid.NewString(),
		GroupID:           spec.GroupID,
		Title:             spec.Title,
		Description:       spec.Description,
		DueTime:           spec.DueTime,
		StartTime:         spec.StartTime,
		Status:            entity.TaskStatusPending,
		Priority:          priority,
		Tags:              spec.Tags,
		RequireAttachment: spec.RequireAttachment,
		CreatedBy:         spec.CreatedBy,
		AssignedUsers:     spec.AssignedUsers,
		RecurringTaskID:   spec.RecurringTaskID,
		RecurringInstance: spec.RecurringInstance,
		Review: entity.ReviewState{
			ReviewerUserID: reviewer,
			Status:         entity.ReviewStatusNotRequested,
		},
		Approval:  entity.ApprovalState{Status: entity.ApprovalStatusNotRequested},
		CreatedAt: now,
		UpdatedAt: now,
	}
	task.AppendHistory(entity.HistoryActionCreate, spec.CreatedBy, "", now)

	if err := s.taskRepo.Create(ctx, task); err != nil {
		s.logger.Error("Failed to create task",
			"error", err,
			"group_id", spec.GroupID,
			"title", spec.Title)
		return nil, fmt.Errorf("create task: %w", err)
	}

	s.logger.Info("Task created",
		"task_id", task.ID,
		"group_id", task.GroupID,
		"due_time", task.DueTime,
		"assignees", len(task.AssignedUsers))

	// Notification is best-effort; a transient failure here must not fail
	// task creation.
	s.dispatchEvent(ctx, event.TypeTaskCreated, task, nil)

	return task, nil
}

// RecordSubmission appends a submission record and moves the review sub-state
// to pending with a fresh review deadline.
func (s *taskServiceImpl) RecordSubmission(ctx context.Context, taskID, submitterID string, fileIDs []string, comment string, links []string) (*entity.Task, error) {
	task, err := s.getTask(ctx, taskID)
	if err != nil {
		return nil, err
	}

	if task.RequireAttachment && len(fileIDs) == 0 {
		return nil, fmt.Errorf("%w: task %s requires an attachment", ErrValidation, taskID)
	}

	now := s.clock.Now()
	sub := entity.SubmissionRecord{
		ID:             uuid.NewString(),
		SubmittedBy:    submitterID,
		SubmittedAt:    now,
		FileIDs:        fileIDs,
		Comment:        comment,
		Links:          links,
		LateSubmission: now.After(task.DueTime),
	}
	task.AppendSubmission(sub)
	task.SubmittedAt = &now

	// Review request: a submission always (re)opens the review window,
	// except when the review has already concluded in approval.
	switch task.Review.Status {
	case entity.ReviewStatusApproved, entity.ReviewStatusAutoApproved:
		// concluded, leave untouched
	default:
		reviewDue := now.Add(reviewSLA)
		task.Review.Status = entity.ReviewStatusPending
		task.Review.ReviewRequestedAt = &now
		task.Review.ReviewDueAt = &reviewDue
		if task.Review.ReviewerUserID == "" {
			task.Review.ReviewerUserID = task.CreatedBy
		}
	}

	if task.Status != entity.TaskStatusCompleted && task.Review.Status != entity.ReviewStatusApproved {
		if task.Status != entity.TaskStatusSubmitted {
			machine := workflow.BuildTaskStateMachine(workflow.State(task.Status))
			if err := machine.Fire(ctx, workflow.TriggerSubmit); err != nil {
				return nil, fmt.Errorf("%w: %v", ErrValidation, err)
			}
			task.Status = entity.TaskStatus(machine.State())
		}
	}

	task.AppendHistory(entity.HistoryActionSubmit, submitterID, comment, now)
	task.UpdatedAt = now

	if err := s.persist(ctx, task); err != nil {
		return nil, err
	}

	// File links are an association only; failures are transient and
	// never undo the recorded submission.
	for _, fileID := range fileIDs {
		if err := s.fileLinker.LinkFile(ctx, fileID, task.ID); err != nil {
			s.logger.Warn("Failed to link submission file",
				"error", err,
				"task_id", task.ID,
				"file_id", fileID)
		}
	}

	s.logger.Info("Submission recorded",
		"task_id", task.ID,
		"submitted_by", submitterID,
		"late", sub.LateSubmission,
		"files", len(fileIDs))

	s.dispatchEvent(ctx, event.TypeTaskSubmitted, task, map[string]interface{}{
		"submitted_by": submitterID,
		"late":         sub.LateSubmission,
	})

	return task, nil
}

// ApproveReview records the reviewer's pass judgment. When the approver is
// also the creator the task is completed in the same step; otherwise the
// creator is asked for the final sign-off.
func (s *taskServiceImpl) ApproveReview(ctx context.Context, taskID, approverID string) (*entity.Task, error) {
	task, err := s.getTask(ctx, taskID)
	if err != nil {
		return nil, err
	}

	if approverID != task.CreatedBy && approverID != task.Review.ReviewerUserID {
		return nil, fmt.Errorf("%w: %s is neither creator nor reviewer of task %s", ErrPermission, approverID, taskID)
	}
	if !workflow.ReviewTransitionAllowed(workflow.ReviewState(task.Review.Status), workflow.ReviewApproved) {
		return nil, fmt.Errorf("%w: review is %s, not pending", ErrValidation, task.Review.Status)
	}

	now := s.clock.Now()
	task.Review.Status = entity.ReviewStatusApproved
	task.Review.ReviewedAt = &now
	task.Review.LateReview = task.Review.ReviewDueAt != nil && now.After(*task.Review.ReviewDueAt)
	task.AppendHistory(entity.HistoryActionReviewApproved, approverID, "", now)

	if approverID == task.CreatedBy {
		// Creator approving the review is also the completion sign-off.
		if err := s.completeLocked(ctx, task, approverID, now); err != nil {
			return nil, err
		}
		if err := s.persist(ctx, task); err != nil {
			return nil, err
		}
		s.logger.Info("Review approved by creator, task completed",
			"task_id", task.ID,
			"approver", approverID)
		s.dispatchEvent(ctx, event.TypeTaskCompleted, task, nil)
		return task, nil
	}

	task.Approval.Status = entity.ApprovalStatusRequested
	task.UpdatedAt = now

	if err := s.persist(ctx, task); err != nil {
		return nil, err
	}

	s.logger.Info("Review approved, awaiting creator sign-off",
		"task_id", task.ID,
		"approver", approverID,
		"creator", task.CreatedBy)

	s.dispatchEvent(ctx, event.TypeReviewApproved, task, map[string]interface{}{"approver": approverID})
	s.dispatchEvent(ctx, event.TypeApprovalRequested, task, map[string]interface{}{"creator": task.CreatedBy})

	return task, nil
}

// ApproveCompletion is the creator's final sign-off after a reviewer-approved
// review.
func (s *taskServiceImpl) ApproveCompletion(ctx context.Context, taskID, creatorID string) (*entity.Task, error) {
	task, err := s.getTask(ctx, taskID)
	if err != nil {
		return nil, err
	}

	if creatorID != task.CreatedBy {
		return nil, fmt.Errorf("%w: only the creator may approve completion of task %s", ErrPermission, taskID)
	}
	if task.Review.Status != entity.ReviewStatusApproved {
		return nil, fmt.Errorf("%w: review is %s, completion requires an approved review", ErrValidation, task.Review.Status)
	}

	now := s.clock.Now()
	if err := s.completeLocked(ctx, task, creatorID, now); err != nil {
		return nil, err
	}
	// Replace the generic completion entry with the sign-off action.
	task.History[len(task.History)-1].Action = entity.HistoryActionCompletionApproved

	if err := s.persist(ctx, task); err != nil {
		return nil, err
	}

	s.logger.Info("Completion approved",
		"task_id", task.ID,
		"creator", creatorID)

	s.dispatchEvent(ctx, event.TypeTaskCompleted, task, nil)
	return task, nil
}

// CompleteTask closes a task. Before review it is the approval shortcut for
// creator or reviewer; after an approved review only the reviewer may close.
func (s *taskServiceImpl) CompleteTask(ctx context.Context, taskID, actorID string) (*entity.Task, error) {
	task, err := s.getTask(ctx, taskID)
	if err != nil {
		return nil, err
	}

	switch task.Status {
	case entity.TaskStatusPending, entity.TaskStatusInProgress:
		if actorID != task.CreatedBy && actorID != task.Review.ReviewerUserID {
			return nil, fmt.Errorf("%w: %s may not complete task %s before review", ErrPermission, actorID, taskID)
		}
	default:
		if actorID != task.Review.ReviewerUserID {
			return nil, fmt.Errorf("%w: only the reviewer may close task %s after review", ErrPermission, taskID)
		}
	}

	now := s.clock.Now()
	if err := s.completeLocked(ctx, task, actorID, now); err != nil {
		return nil, err
	}

	if err := s.persist(ctx, task); err != nil {
		return nil, err
	}

	s.logger.Info("Task completed",
		"task_id", task.ID,
		"actor", actorID)

	s.dispatchEvent(ctx, event.TypeTaskCompleted, task, nil)
	return task, nil
}

// RejectAndExtend records a failed review and gives the assignees an extended
// due date for a rework cycle.
func (s *taskServiceImpl) RejectAndExtend(ctx context.Context, taskID, rejectorID string, extensionDays int, reason string) (*entity.Task, error) {
	task, err := s.getTask(ctx, taskID)
	if err != nil {
		return nil, err
	}

	if rejectorID != task.CreatedBy && rejectorID != task.Review.ReviewerUserID {
		return nil, fmt.Errorf("%w: %s may not reject task %s", ErrPermission, rejectorID, taskID)
	}
	if !workflow.ReviewTransitionAllowed(workflow.ReviewState(task.Review.Status), workflow.ReviewRejected) {
		return nil, fmt.Errorf("%w: review is %s, not pending", ErrValidation, task.Review.Status)
	}
	if extensionDays <= 0 {
		extensionDays = defaultExtensionDays
	}

	now := s.clock.Now()

	machine := workflow.BuildTaskStateMachine(workflow.State(task.Status))
	if err := machine.Fire(ctx, workflow.TriggerReject); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrValidation, err)
	}
	task.Status = entity.TaskStatus(machine.State())

	task.DueTime = task.DueTime.AddDate(0, 0, extensionDays)
	task.Review.Status = entity.ReviewStatusRejected
	task.Review.ReviewedAt = &now
	task.Review.RejectionReason = reason
	task.AppendHistory(entity.HistoryActionReviewRejected, rejectorID,
		fmt.Sprintf("due time extended by %d days to %s", extensionDays, task.DueTime.Format(time.RFC3339)), now)
	task.UpdatedAt = now

	if err := s.persist(ctx, task); err != nil {
		return nil, err
	}

	s.logger.Info("Review rejected, due time extended",
		"task_id", task.ID,
		"rejector", rejectorID,
		"extension_days", extensionDays,
		"new_due_time", task.DueTime)

	s.dispatchEvent(ctx, event.TypeTaskRejected, task, map[string]interface{}{
		"reason":       reason,
		"new_due_time": task.DueTime,
	})

	return task, nil
}

// MarkOverdue flags a task overdue. Idempotent: tasks that are already
// overdue, not yet due, terminal, or carry any submission evidence are left
// untouched.
func (s *taskServiceImpl) MarkOverdue(ctx context.Context, taskID string) (*entity.Task, error) {
	task, err := s.getTask(ctx, taskID)
	if err != nil {
		return nil, err
	}

	if task.Status != entity.TaskStatusPending && task.Status != entity.TaskStatusInProgress {
		return task, nil
	}

	now := s.clock.Now()
	if !now.After(task.DueTime) || task.HasSubmission() {
		return task, nil
	}

	machine := workflow.BuildTaskStateMachine(workflow.State(task.Status))
	if err := machine.Fire(ctx, workflow.TriggerMarkOverdue); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrValidation, err)
	}
	task.Status = entity.TaskStatus(machine.State())
	task.AppendHistory(entity.HistoryActionMarkedOverdue, "system", "", now)
	task.UpdatedAt = now

	if err := s.persist(ctx, task); err != nil {
		return nil, err
	}

	s.logger.Info("Task marked overdue",
		"task_id", task.ID,
		"group_id", task.GroupID,
		"due_time", task.DueTime)

	s.dispatchEvent(ctx, event.TypeTaskOverdue, task, nil)
	return task, nil
}

// AutoApproveIfPastReviewDeadline completes a task whose review has been
// pending past its deadline.
func (s *taskServiceImpl) AutoApproveIfPastReviewDeadline(ctx context.Context, taskID string) (*entity.Task, error) {
	task, err := s.getTask(ctx, taskID)
	if err != nil {
		return nil, err
	}

	now := s.clock.Now()
	if task.Review.Status != entity.ReviewStatusPending ||
		task.Review.ReviewDueAt == nil || now.Before(*task.Review.ReviewDueAt) {
		return task, nil
	}

	machine := workflow.BuildTaskStateMachine(workflow.State(task.Status))
	if err := machine.Fire(ctx, workflow.TriggerAutoApprove); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrValidation, err)
	}
	task.Status = entity.TaskStatus(machine.State())
	task.Review.Status = entity.ReviewStatusAutoApproved
	task.Review.ReviewedAt = &now
	task.Review.LateReview = true
	task.CompletedAt = &now
	task.AppendHistory(entity.HistoryActionAutoApproved, "system", "review deadline passed", now)
	task.UpdatedAt = now

	if err := s.persist(ctx, task); err != nil {
		return nil, err
	}

	s.logger.Info("Task auto-approved past review deadline",
		"task_id", task.ID,
		"review_due_at", task.Review.ReviewDueAt)

	s.dispatchEvent(ctx, event.TypeTaskCompleted, task, map[string]interface{}{"auto_approved": true})
	return task, nil
}

// RecordReminderSent appends a reminder record to the task.
func (s *taskServiceImpl) RecordReminderSent(ctx context.Context, taskID string, rec entity.ReminderRecord) error {
	task, err := s.getTask(ctx, taskID)
	if err != nil {
		return err
	}

	task.RemindersSent = append(task.RemindersSent, rec)
	task.UpdatedAt = s.clock.Now()
	return s.persist(ctx, task)
}

// GetTask retrieves a task by ID.
func (s *taskServiceImpl) GetTask(ctx context.Context, id string) (*entity.Task, error) {
	return s.getTask(ctx, id)
}

// ListGroupTasks returns tasks in a group, optionally filtered by status.
func (s *taskServiceImpl) ListGroupTasks(ctx context.Context, groupID string, statuses []entity.TaskStatus) ([]*entity.Task, error) {
	tasks, err := s.taskRepo.ListByGroup(ctx, groupID, statuses)
	if err != nil {
		s.logger.Error("Failed to list group tasks",
			"error", err,
			"group_id", groupID)
		return nil, fmt.Errorf("list group tasks: %w", err)
	}
	return tasks, nil
}

// DeleteTask destroys a task.
func (s *taskServiceImpl) DeleteTask(ctx context.Context, id string) error {
	task, err := s.getTask(ctx, id)
	if err != nil {
		return err
	}

	if err := s.taskRepo.Delete(ctx, task.ID); err != nil {
		s.logger.Error("Failed to delete task",
			"error", err,
			"task_id", id)
		return fmt.Errorf("delete task: %w", err)
	}

	s.logger.Info("Task deleted", "task_id", id)
	return nil
}

// completeLocked applies the completion transition to an in-memory task. The
// caller persists.
func (s *taskServiceImpl) completeLocked(ctx context.Context, task *entity.Task, actorID string, now time.Time) error {
	machine := workflow.BuildTaskStateMachine(workflow.State(task.Status))
	if err := machine.Fire(ctx, workflow.TriggerComplete); err != nil {
		return fmt.Errorf("%w: %v", ErrValidation, err)
	}
	task.Status = entity.TaskStatus(machine.State())
	task.CompletedAt = &now
	if task.Review.Status != entity.ReviewStatusAutoApproved {
		task.Review.Status = entity.ReviewStatusApproved
	}
	if task.Review.ReviewedAt == nil {
		task.Review.ReviewedAt = &now
	}
	task.Approval.Status = entity.ApprovalStatusApproved
	task.Approval.ApprovedAt = &now
	task.AppendHistory(entity.HistoryActionCompleted, actorID, "", now)
	task.UpdatedAt = now
	return nil
}

func (s *taskServiceImpl) getTask(ctx context.Context, id string) (*entity.Task, error) {
	task, err := s.taskRepo.GetByID(ctx, id)
	if err != nil {
		s.logger.Error("Failed to get task",
			"error", err,
			"task_id", id)
		return nil, fmt.Errorf("get task: %w", err)
	}
	if task == nil {
		return nil, fmt.Errorf("%w: task %s", ErrNotFound, id)
	}
	return task, nil
}

// persist writes the aggregate inside a transaction so a racing submission
// and review cannot interleave partial updates.
func (s *taskServiceImpl) persist(ctx context.Context, task *entity.Task) error {
	err := s.txManager.WithTransaction(ctx, func(txCtx context.Context) error {
		return s.taskRepo.Update(txCtx, task)
	})
	if err != nil {
		s.logger.Error("Failed to persist task",
			"error", err,
			"task_id", task.ID)
		return fmt.Errorf("persist task: %w", err)
	}
	return nil
}

func (s *taskServiceImpl) dispatchEvent(ctx context.Context, t event.Type, task *entity.Task, payload map[string]interface{}) {
	if s.dispatcher == nil {
		return
	}
	s.dispatcher.DispatchAsync(ctx, event.NewEvent(t, task.ID, task.GroupID, payload))
}

// Verify interface compliance
var _ TaskService = (*taskServiceImpl)(nil)
