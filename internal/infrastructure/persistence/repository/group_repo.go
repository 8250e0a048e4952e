package repository

import (
	"context"
	"database/sql"
	"fmt"

	"go.uber.org/zap"

	"github.com/kaiwen/taskline/internal/application/port"
	"github.com/kaiwen/taskline/internal/domain/entity"
	"github.com/kaiwen/taskline/internal/infrastructure/persistence/sqlite"
)

// GroupRepository implements port.GroupRepository
type GroupRepository struct {
	db     *sql.DB
	logger *zap.Logger
}

// NewGroupRepository creates a new group repository
func NewGroupRepository(db *sql.DB, logger *zap.Logger) port.GroupRepository {
	return &GroupRepository{
		db:     db,
		logger: logger,
	}
}

const groupColumns = `id, name, timezone, weekly_report_enabled, bot_left, created_at, updated_at`

// GetByID retrieves a group by ID
func (r *GroupRepository) GetByID(ctx context.Context, id string) (*entity.Group, error) {
	exec := sqlite.ExecutorFrom(ctx, r.db)

	var group entity.Group
	err := exec.QueryRowContext(ctx,
		`SELECT `+groupColumns+` FROM groups WHERE id = ?`, id,
	).Scan(&group.ID, &group.Name, &group.Timezone,
		&group.WeeklyReportEnabled, &group.BotLeft, &group.CreatedAt, &group.UpdatedAt)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		r.logger.Error("Failed to get group", zap.Error(err), zap.String("group_id", id))
		return nil, fmt.Errorf("failed to get group: %w", err)
	}
	return &group, nil
}

// ListActive returns groups the bot is still a member of
func (r *GroupRepository) ListActive(ctx context.Context) ([]*entity.Group, error) {
	return r.list(ctx, `SELECT `+groupColumns+` FROM groups WHERE bot_left = 0 ORDER BY id`)
}

// ListBotLeft returns groups the bot has departed, pending cleanup
func (r *GroupRepository) ListBotLeft(ctx context.Context) ([]*entity.Group, error) {
	return r.list(ctx, `SELECT `+groupColumns+` FROM groups WHERE bot_left = 1 ORDER BY id`)
}

// MarkBotLeft flags a group as departed
func (r *GroupRepository) MarkBotLeft(ctx context.Context, id string) error {
	exec := sqlite.ExecutorFrom(ctx, r.db)

	_, err := exec.ExecContext(ctx,
		`UPDATE groups SET bot_left = 1, updated_at = CURRENT_TIMESTAMP WHERE id = ?`, id)
	if err != nil {
		r.logger.Error("Failed to mark group departed", zap.Error(err), zap.String("group_id", id))
		return fmt.Errorf("failed to mark group departed: %w", err)
	}
	return nil
}

// Delete removes a group row
func (r *GroupRepository) Delete(ctx context.Context, id string) error {
	exec := sqlite.ExecutorFrom(ctx, r.db)

	_, err := exec.ExecContext(ctx, `DELETE FROM groups WHERE id = ?`, id)
	if err != nil {
		r.logger.Error("Failed to delete group", zap.Error(err), zap.String("group_id", id))
		return fmt.Errorf("failed to delete group: %w", err)
	}
	return nil
}

func (r *GroupRepository) list(ctx context.Context, query string) ([]*entity.Group, error) {
	exec := sqlite.ExecutorFrom(ctx, r.db)

	rows, err := exec.QueryContext(ctx, query)
	if err != nil {
		r.logger.Error("Failed to list groups", zap.Error(err))
		return nil, fmt.Errorf("failed to list groups: %w", err)
	}
	defer rows.Close()

	var groups []*entity.Group
	for rows.Next() {
		var group entity.Group
		if err := rows.Scan(&group.ID, &group.Name, &group.Timezone,
			&group.WeeklyReportEnabled, &group.BotLeft, &group.CreatedAt, &group.UpdatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan group: %w", err)
		}
		groups = append(groups, &group)
	}
	return groups, rows.Err()
}

// Verify interface compliance
var _ port.GroupRepository = (*GroupRepository)(nil)
