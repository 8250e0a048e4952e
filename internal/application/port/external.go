package port

import (
	"context"
	"time"

	"github.com/kaiwen/taskline/internal/domain/entity"
)

// Notifier delivers rendered messages to the chat platform. Payloads are
// opaque to the core; delivery failures are retriable and never fatal to the
// calling operation.
type Notifier interface {
	SendToGroup(ctx context.Context, groupID string, payload string) error
	SendToUser(ctx context.Context, userID string, payload string) error
}

// FileLinker associates pre-existing file records with tasks. The core never
// touches file bytes.
type FileLinker interface {
	LinkFile(ctx context.Context, fileID, taskID string) error
	UnlinkFile(ctx context.Context, fileID, taskID string) error
}

// CalendarSync mirrors task due dates into user calendars. Best-effort:
// failures are logged by callers, never propagated.
type CalendarSync interface {
	UpsertUserEvent(ctx context.Context, task *entity.Task, userID string) error
	RemoveUserEvent(ctx context.Context, task *entity.Task, userID string) error
}

// BackupRunner delegates data backup to an external collaborator.
type BackupRunner interface {
	Run(ctx context.Context) error
}

// Clock supplies the current time and timezone contexts; injectable so time
// arithmetic is deterministic under test.
type Clock interface {
	Now() time.Time
	Location(name string) (*time.Location, error)
}
