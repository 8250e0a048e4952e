package port

import (
	"context"
	"time"

	"github.com/kaiwen/taskline/internal/domain/entity"
)

// TaskRepository defines persistence operations for the Task aggregate.
// Update persists the whole aggregate: the task row plus any newly appended
// submission and history records.
type TaskRepository interface {
	Create(ctx context.Context, task *entity.Task) error
	GetByID(ctx context.Context, id string) (*entity.Task, error)
	Update(ctx context.Context, task *entity.Task) error
	Delete(ctx context.Context, id string) error

	// DeleteByGroupID purges all tasks of a group, returning the count.
	DeleteByGroupID(ctx context.Context, groupID string) (int64, error)

	// ListByGroup returns tasks in a group, optionally filtered by status.
	ListByGroup(ctx context.Context, groupID string, statuses []entity.TaskStatus) ([]*entity.Task, error)

	// ListByStatus returns tasks across all groups in any of the statuses.
	ListByStatus(ctx context.Context, statuses []entity.TaskStatus) ([]*entity.Task, error)

	// ListDueBetween returns tasks with due time in [from, to) in any of
	// the statuses.
	ListDueBetween(ctx context.Context, from, to time.Time, statuses []entity.TaskStatus) ([]*entity.Task, error)

	// ListPendingReview returns tasks whose review sub-state is pending.
	ListPendingReview(ctx context.Context) ([]*entity.Task, error)

	// FindRecentCreation returns a task with the same group, trimmed
	// title and creator created at or after since, or nil. Backs the
	// duplicate-create guard.
	FindRecentCreation(ctx context.Context, groupID, title, createdBy string, since time.Time) (*entity.Task, error)
}

// TemplateRepository defines persistence operations for RecurringTaskTemplate.
type TemplateRepository interface {
	Create(ctx context.Context, tpl *entity.RecurringTaskTemplate) error
	GetByID(ctx context.Context, id string) (*entity.RecurringTaskTemplate, error)
	Update(ctx context.Context, tpl *entity.RecurringTaskTemplate) error

	// ListDue returns active templates with next_run_at <= now.
	ListDue(ctx context.Context, now time.Time) ([]*entity.RecurringTaskTemplate, error)
}

// GroupRepository defines persistence operations for Group.
type GroupRepository interface {
	GetByID(ctx context.Context, id string) (*entity.Group, error)
	ListActive(ctx context.Context) ([]*entity.Group, error)
	ListBotLeft(ctx context.Context) ([]*entity.Group, error)
	MarkBotLeft(ctx context.Context, id string) error
	Delete(ctx context.Context, id string) error
}

// UserRepository defines persistence operations for User.
type UserRepository interface {
	GetByID(ctx context.Context, id string) (*entity.User, error)
	ListSupervisors(ctx context.Context) ([]*entity.User, error)
}

// KPIRepository defines persistence operations for KPIScore.
type KPIRepository interface {
	Upsert(ctx context.Context, score *entity.KPIScore) error

	// RecordZero writes a zero score marker once per (group, user, period).
	RecordZero(ctx context.Context, groupID, userID string, periodStart time.Time) error

	ListByGroup(ctx context.Context, groupID string) ([]*entity.KPIScore, error)
}

// TransactionManager handles database transactions
type TransactionManager interface {
	WithTransaction(ctx context.Context, fn func(ctx context.Context) error) error
}
