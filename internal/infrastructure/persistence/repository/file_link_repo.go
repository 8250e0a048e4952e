package repository

import (
	"context"
	"database/sql"
	"fmt"

	"go.uber.org/zap"

	"github.com/kaiwen/taskline/internal/application/port"
	"github.com/kaiwen/taskline/internal/infrastructure/persistence/sqlite"
)

// FileLinkRepository implements port.FileLinker over the file_links table.
// It only records associations; file bytes live elsewhere.
type FileLinkRepository struct {
	db     *sql.DB
	logger *zap.Logger
}

// NewFileLinkRepository creates a new file link repository
func NewFileLinkRepository(db *sql.DB, logger *zap.Logger) port.FileLinker {
	return &FileLinkRepository{
		db:     db,
		logger: logger,
	}
}

// LinkFile associates a file record with a task. Idempotent.
func (r *FileLinkRepository) LinkFile(ctx context.Context, fileID, taskID string) error {
	exec := sqlite.ExecutorFrom(ctx, r.db)

	_, err := exec.ExecContext(ctx,
		`INSERT OR IGNORE INTO file_links (file_id, task_id, created_at) VALUES (?, ?, CURRENT_TIMESTAMP)`,
		fileID, taskID)
	if err != nil {
		r.logger.Error("Failed to link file", zap.Error(err),
			zap.String("file_id", fileID), zap.String("task_id", taskID))
		return fmt.Errorf("failed to link file: %w", err)
	}
	return nil
}

// UnlinkFile removes the association
func (r *FileLinkRepository) UnlinkFile(ctx context.Context, fileID, taskID string) error {
	exec := sqlite.ExecutorFrom(ctx, r.db)

	_, err := exec.ExecContext(ctx,
		`DELETE FROM file_links WHERE file_id = ? AND task_id = ?`, fileID, taskID)
	if err != nil {
		r.logger.Error("Failed to unlink file", zap.Error(err),
			zap.String("file_id", fileID), zap.String("task_id", taskID))
		return fmt.Errorf("failed to unlink file: %w", err)
	}
	return nil
}

// Verify interface compliance
var _ port.FileLinker = (*FileLinkRepository)(nil)
