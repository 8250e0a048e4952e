// Package calendar holds the calendar sync collaborator. Only a logging no-op
// ships; a provider-backed implementation plugs in behind the same port.
package calendar

import (
	"context"

	"go.uber.org/zap"

	"github.com/kaiwen/taskline/internal/application/port"
	"github.com/kaiwen/taskline/internal/domain/entity"
)

// NoopSync logs calendar mirroring calls without contacting any provider.
type NoopSync struct {
	logger *zap.Logger
}

// NewNoopSync creates the logging calendar stub
func NewNoopSync(logger *zap.Logger) *NoopSync {
	return &NoopSync{logger: logger}
}

// UpsertUserEvent logs the mirrored due date
func (s *NoopSync) UpsertUserEvent(ctx context.Context, task *entity.Task, userID string) error {
	s.logger.Debug("Calendar upsert (noop)",
		zap.String("task_id", task.ID),
		zap.String("user_id", userID),
		zap.Time("due_time", task.DueTime))
	return nil
}

// RemoveUserEvent logs the removal
func (s *NoopSync) RemoveUserEvent(ctx context.Context, task *entity.Task, userID string) error {
	s.logger.Debug("Calendar removal (noop)",
		zap.String("task_id", task.ID),
		zap.String("user_id", userID))
	return nil
}

// Verify interface compliance
var _ port.CalendarSync = (*NoopSync)(nil)
