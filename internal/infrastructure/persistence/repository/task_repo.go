package repository

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/kaiwen/taskline/internal/application/port"
	"github.com/kaiwen/taskline/internal/domain/entity"
	"github.com/kaiwen/taskline/internal/infrastructure/persistence/sqlite"
)

// TaskRepository implements port.TaskRepository over the tasks,
// task_submissions and task_history tables. The aggregate is loaded and
// stored as a unit: Update writes the task row and appends any submission or
// history records not yet persisted.
type TaskRepository struct {
	db     *sql.DB
	logger *zap.Logger
}

// NewTaskRepository creates a new task repository
func NewTaskRepository(db *sql.DB, logger *zap.Logger) port.TaskRepository {
	return &TaskRepository{
		db:     db,
		logger: logger,
	}
}

const taskColumns = `
	id, group_id, title, description, due_time, start_time,
	status, priority, tags, require_attachment,
	created_by, assigned_users, submitted_at, completed_at,
	recurring_task_id, recurring_instance, reminders_sent,
	reviewer_user_id, review_status, review_requested_at, review_due_at,
	reviewed_at, late_review, rejection_reason,
	approval_status, approved_at, created_at, updated_at`

// Create inserts the task row plus its initial history entries.
func (r *TaskRepository) Create(ctx context.Context, task *entity.Task) error {
	exec := sqlite.ExecutorFrom(ctx, r.db)

	query := `
		INSERT INTO tasks (` + taskColumns + `)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`

	_, err := exec.ExecContext(ctx, query,
		task.ID, task.GroupID, task.Title, task.Description,
		task.DueTime, nullTime(task.StartTime),
		string(task.Status), string(task.Priority),
		marshalJSON(task.Tags), task.RequireAttachment,
		task.CreatedBy, marshalJSON(task.AssignedUsers),
		nullTime(task.SubmittedAt), nullTime(task.CompletedAt),
		task.RecurringTaskID, task.RecurringInstance,
		marshalJSON(task.RemindersSent),
		task.Review.ReviewerUserID, string(task.Review.Status),
		nullTime(task.Review.ReviewRequestedAt), nullTime(task.Review.ReviewDueAt),
		nullTime(task.Review.ReviewedAt), task.Review.LateReview, task.Review.RejectionReason,
		string(task.Approval.Status), nullTime(task.Approval.ApprovedAt),
		task.CreatedAt, task.UpdatedAt,
	)
	if err != nil {
		r.logger.Error("Failed to create task", zap.Error(err), zap.String("task_id", task.ID))
		return fmt.Errorf("failed to create task: %w", err)
	}

	for _, entry := range task.History {
		if err := r.insertHistory(ctx, exec, task.ID, entry); err != nil {
			return err
		}
	}
	return nil
}

// GetByID retrieves a task with its submissions and history.
func (r *TaskRepository) GetByID(ctx context.Context, id string) (*entity.Task, error) {
	exec := sqlite.ExecutorFrom(ctx, r.db)

	query := `SELECT ` + taskColumns + ` FROM tasks WHERE id = ?`
	task, err := r.scanTask(exec.QueryRowContext(ctx, query, id))
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		r.logger.Error("Failed to get task", zap.Error(err), zap.String("task_id", id))
		return nil, fmt.Errorf("failed to get task: %w", err)
	}

	if err := r.loadChildren(ctx, exec, task); err != nil {
		return nil, err
	}
	return task, nil
}

// Update writes the task row and appends submissions/history rows beyond what
// is already persisted. Meant to run inside WithTransaction.
func (r *TaskRepository) Update(ctx context.Context, task *entity.Task) error {
	exec := sqlite.ExecutorFrom(ctx, r.db)

	query := `
		UPDATE tasks SET
			group_id = ?, title = ?, description = ?, due_time = ?, start_time = ?,
			status = ?, priority = ?, tags = ?, require_attachment = ?,
			created_by = ?, assigned_users = ?, submitted_at = ?, completed_at = ?,
			recurring_task_id = ?, recurring_instance = ?, reminders_sent = ?,
			reviewer_user_id = ?, review_status = ?, review_requested_at = ?, review_due_at = ?,
			reviewed_at = ?, late_review = ?, rejection_reason = ?,
			approval_status = ?, approved_at = ?, updated_at = ?
		WHERE id = ?
	`

	result, err := exec.ExecContext(ctx, query,
		task.GroupID, task.Title, task.Description,
		task.DueTime, nullTime(task.StartTime),
		string(task.Status), string(task.Priority),
		marshalJSON(task.Tags), task.RequireAttachment,
		task.CreatedBy, marshalJSON(task.AssignedUsers),
		nullTime(task.SubmittedAt), nullTime(task.CompletedAt),
		task.RecurringTaskID, task.RecurringInstance,
		marshalJSON(task.RemindersSent),
		task.Review.ReviewerUserID, string(task.Review.Status),
		nullTime(task.Review.ReviewRequestedAt), nullTime(task.Review.ReviewDueAt),
		nullTime(task.Review.ReviewedAt), task.Review.LateReview, task.Review.RejectionReason,
		string(task.Approval.Status), nullTime(task.Approval.ApprovedAt),
		task.UpdatedAt,
		task.ID,
	)
	if err != nil {
		r.logger.Error("Failed to update task", zap.Error(err), zap.String("task_id", task.ID))
		return fmt.Errorf("failed to update task: %w", err)
	}
	affected, err := result.RowsAffected()
	if err == nil && affected == 0 {
		return fmt.Errorf("task %s not found", task.ID)
	}

	if err := r.syncSubmissions(ctx, exec, task); err != nil {
		return err
	}
	return r.syncHistory(ctx, exec, task)
}

// Delete removes a task; submissions and history cascade.
func (r *TaskRepository) Delete(ctx context.Context, id string) error {
	exec := sqlite.ExecutorFrom(ctx, r.db)

	_, err := exec.ExecContext(ctx, "DELETE FROM tasks WHERE id = ?", id)
	if err != nil {
		r.logger.Error("Failed to delete task", zap.Error(err), zap.String("task_id", id))
		return fmt.Errorf("failed to delete task: %w", err)
	}
	return nil
}

// DeleteByGroupID purges all tasks of a group, returning the count.
func (r *TaskRepository) DeleteByGroupID(ctx context.Context, groupID string) (int64, error) {
	exec := sqlite.ExecutorFrom(ctx, r.db)

	result, err := exec.ExecContext(ctx, "DELETE FROM tasks WHERE group_id = ?", groupID)
	if err != nil {
		r.logger.Error("Failed to delete group tasks", zap.Error(err), zap.String("group_id", groupID))
		return 0, fmt.Errorf("failed to delete group tasks: %w", err)
	}
	return result.RowsAffected()
}

// ListByGroup returns tasks in a group, optionally filtered by status.
func (r *TaskRepository) ListByGroup(ctx context.Context, groupID string, statuses []entity.TaskStatus) ([]*entity.Task, error) {
	query := `SELECT ` + taskColumns + ` FROM tasks WHERE group_id = ?`
	args := []interface{}{groupID}

	if len(statuses) > 0 {
		query += ` AND status IN (` + placeholders(len(statuses)) + `)`
		for _, s := range statuses {
			args = append(args, string(s))
		}
	}
	query += ` ORDER BY due_time`

	return r.queryTasks(ctx, query, args...)
}

// ListByStatus returns tasks across all groups in any of the statuses.
func (r *TaskRepository) ListByStatus(ctx context.Context, statuses []entity.TaskStatus) ([]*entity.Task, error) {
	if len(statuses) == 0 {
		return nil, nil
	}

	query := `SELECT ` + taskColumns + ` FROM tasks WHERE status IN (` + placeholders(len(statuses)) + `) ORDER BY due_time`
	args := make([]interface{}, 0, len(statuses))
	for _, s := range statuses {
		args = append(args, string(s))
	}
	return r.queryTasks(ctx, query, args...)
}

// ListDueBetween returns tasks with due time in [from, to) in any of the
// statuses.
func (r *TaskRepository) ListDueBetween(ctx context.Context, from, to time.Time, statuses []entity.TaskStatus) ([]*entity.Task, error) {
	query := `SELECT ` + taskColumns + ` FROM tasks WHERE due_time >= ? AND due_time < ?`
	args := []interface{}{from, to}

	if len(statuses) > 0 {
		query += ` AND status IN (` + placeholders(len(statuses)) + `)`
		for _, s := range statuses {
			args = append(args, string(s))
		}
	}
	query += ` ORDER BY due_time`

	return r.queryTasks(ctx, query, args...)
}

// ListPendingReview returns tasks whose review sub-state is pending.
func (r *TaskRepository) ListPendingReview(ctx context.Context) ([]*entity.Task, error) {
	query := `SELECT ` + taskColumns + ` FROM tasks WHERE review_status = ? ORDER BY review_due_at`
	return r.queryTasks(ctx, query, string(entity.ReviewStatusPending))
}

// FindRecentCreation backs the duplicate-create guard.
func (r *TaskRepository) FindRecentCreation(ctx context.Context, groupID, title, createdBy string, since time.Time) (*entity.Task, error) {
	exec := sqlite.ExecutorFrom(ctx, r.db)

	query := `SELECT ` + taskColumns + ` FROM tasks
		WHERE group_id = ? AND title = ? AND created_by = ? AND created_at >= ?
		ORDER BY created_at DESC LIMIT 1`

	task, err := r.scanTask(exec.QueryRowContext(ctx, query, groupID, title, createdBy, since))
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		r.logger.Error("Failed to find recent creation", zap.Error(err), zap.String("group_id", groupID))
		return nil, fmt.Errorf("failed to find recent creation: %w", err)
	}
	return task, nil
}

func (r *TaskRepository) queryTasks(ctx context.Context, query string, args ...interface{}) ([]*entity.Task, error) {
	exec := sqlite.ExecutorFrom(ctx, r.db)

	rows, err := exec.QueryContext(ctx, query, args...)
	if err != nil {
		r.logger.Error("Failed to query tasks", zap.Error(err))
		return nil, fmt.Errorf("failed to query tasks: %w", err)
	}
	defer rows.Close()

	var tasks []*entity.Task
	for rows.Next() {
		task, err := r.scanTask(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan task: %w", err)
		}
		tasks = append(tasks, task)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate tasks: %w", err)
	}

	for _, task := range tasks {
		if err := r.loadChildren(ctx, exec, task); err != nil {
			return nil, err
		}
	}
	return tasks, nil
}

type rowScanner interface {
	Scan(dest ...interface{}) error
}

func (r *TaskRepository) scanTask(row rowScanner) (*entity.Task, error) {
	var task entity.Task
	var startTime, submittedAt, completedAt sql.NullTime
	var reviewRequestedAt, reviewDueAt, reviewedAt, approvedAt sql.NullTime
	var status, priority, reviewStatus, approvalStatus string
	var tags, assignedUsers, remindersSent string

	err := row.Scan(
		&task.ID, &task.GroupID, &task.Title, &task.Description,
		&task.DueTime, &startTime,
		&status, &priority, &tags, &task.RequireAttachment,
		&task.CreatedBy, &assignedUsers, &submittedAt, &completedAt,
		&task.RecurringTaskID, &task.RecurringInstance, &remindersSent,
		&task.Review.ReviewerUserID, &reviewStatus, &reviewRequestedAt, &reviewDueAt,
		&reviewedAt, &task.Review.LateReview, &task.Review.RejectionReason,
		&approvalStatus, &approvedAt, &task.CreatedAt, &task.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}

	task.Status = entity.TaskStatus(status)
	task.Priority = entity.Priority(priority)
	task.Review.Status = entity.ReviewStatus(reviewStatus)
	task.Approval.Status = entity.ApprovalStatus(approvalStatus)
	task.StartTime = timePtr(startTime)
	task.SubmittedAt = timePtr(submittedAt)
	task.CompletedAt = timePtr(completedAt)
	task.Review.ReviewRequestedAt = timePtr(reviewRequestedAt)
	task.Review.ReviewDueAt = timePtr(reviewDueAt)
	task.Review.ReviewedAt = timePtr(reviewedAt)
	task.Approval.ApprovedAt = timePtr(approvedAt)

	unmarshalJSON(tags, &task.Tags)
	unmarshalJSON(assignedUsers, &task.AssignedUsers)
	unmarshalJSON(remindersSent, &task.RemindersSent)

	return &task, nil
}

func (r *TaskRepository) loadChildren(ctx context.Context, exec sqlite.Executor, task *entity.Task) error {
	subs, err := r.loadSubmissions(ctx, exec, task.ID)
	if err != nil {
		return err
	}
	task.Submissions = subs

	history, err := r.loadHistory(ctx, exec, task.ID)
	if err != nil {
		return err
	}
	task.History = history
	return nil
}

func (r *TaskRepository) loadSubmissions(ctx context.Context, exec sqlite.Executor, taskID string) ([]entity.SubmissionRecord, error) {
	rows, err := exec.QueryContext(ctx, `
		SELECT id, submitted_by, submitted_at, file_ids, comment, links, late_submission
		FROM task_submissions WHERE task_id = ? ORDER BY submitted_at, id
	`, taskID)
	if err != nil {
		return nil, fmt.Errorf("failed to query submissions: %w", err)
	}
	defer rows.Close()

	var subs []entity.SubmissionRecord
	for rows.Next() {
		var sub entity.SubmissionRecord
		var fileIDs, links string
		if err := rows.Scan(&sub.ID, &sub.SubmittedBy, &sub.SubmittedAt,
			&fileIDs, &sub.Comment, &links, &sub.LateSubmission); err != nil {
			return nil, fmt.Errorf("failed to scan submission: %w", err)
		}
		unmarshalJSON(fileIDs, &sub.FileIDs)
		unmarshalJSON(links, &sub.Links)
		subs = append(subs, sub)
	}
	return subs, rows.Err()
}

func (r *TaskRepository) loadHistory(ctx context.Context, exec sqlite.Executor, taskID string) ([]entity.HistoryEntry, error) {
	rows, err := exec.QueryContext(ctx, `
		SELECT action, by_user_id, at, note
		FROM task_history WHERE task_id = ? ORDER BY at, id
	`, taskID)
	if err != nil {
		return nil, fmt.Errorf("failed to query history: %w", err)
	}
	defer rows.Close()

	var history []entity.HistoryEntry
	for rows.Next() {
		var entry entity.HistoryEntry
		if err := rows.Scan(&entry.Action, &entry.ByUserID, &entry.At, &entry.Note); err != nil {
			return nil, fmt.Errorf("failed to scan history entry: %w", err)
		}
		history = append(history, entry)
	}
	return history, rows.Err()
}

// syncSubmissions inserts submissions not yet present. Submission IDs are
// client-generated UUIDs so INSERT OR IGNORE keeps the table append-only.
func (r *TaskRepository) syncSubmissions(ctx context.Context, exec sqlite.Executor, task *entity.Task) error {
	for _, sub := range task.Submissions {
		_, err := exec.ExecContext(ctx, `
			INSERT OR IGNORE INTO task_submissions
				(id, task_id, submitted_by, submitted_at, file_ids, comment, links, late_submission)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?)
		`, sub.ID, task.ID, sub.SubmittedBy, sub.SubmittedAt,
			marshalJSON(sub.FileIDs), sub.Comment, marshalJSON(sub.Links), sub.LateSubmission)
		if err != nil {
			return fmt.Errorf("failed to insert submission: %w", err)
		}
	}
	return nil
}

// syncHistory rewrites the history rows from the aggregate. History entries
// carry no client IDs, and a completion sign-off renames the latest entry, so
// replace-all is the simplest faithful write.
func (r *TaskRepository) syncHistory(ctx context.Context, exec sqlite.Executor, task *entity.Task) error {
	if _, err := exec.ExecContext(ctx, "DELETE FROM task_history WHERE task_id = ?", task.ID); err != nil {
		return fmt.Errorf("failed to clear history: %w", err)
	}
	for _, entry := range task.History {
		if err := r.insertHistory(ctx, exec, task.ID, entry); err != nil {
			return err
		}
	}
	return nil
}

func (r *TaskRepository) insertHistory(ctx context.Context, exec sqlite.Executor, taskID string, entry entity.HistoryEntry) error {
	_, err := exec.ExecContext(ctx, `
		INSERT INTO task_history (task_id, action, by_user_id, at, note)
		VALUES (?, ?, ?, ?, ?)
	`, taskID, entry.Action, entry.ByUserID, entry.At, entry.Note)
	if err != nil {
		return fmt.Errorf("failed to insert history entry: %w", err)
	}
	return nil
}

// Verify interface compliance
var _ port.TaskRepository = (*TaskRepository)(nil)
