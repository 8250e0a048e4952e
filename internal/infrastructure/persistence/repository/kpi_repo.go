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

// KPIRepository implements port.KPIRepository
type KPIRepository struct {
	db     *sql.DB
	logger *zap.Logger
}

// NewKPIRepository creates a new KPI repository
func NewKPIRepository(db *sql.DB, logger *zap.Logger) port.KPIRepository {
	return &KPIRepository{
		db:     db,
		logger: logger,
	}
}

// Upsert writes a score, replacing any existing (group, user, period) row
func (r *KPIRepository) Upsert(ctx context.Context, score *entity.KPIScore) error {
	exec := sqlite.ExecutorFrom(ctx, r.db)

	query := `
		INSERT INTO kpi_scores (group_id, user_id, score, completed_count, late_count, overdue_count, period_start, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT (group_id, user_id, period_start) DO UPDATE SET
			score = excluded.score,
			completed_count = excluded.completed_count,
			late_count = excluded.late_count,
			overdue_count = excluded.overdue_count,
			updated_at = excluded.updated_at
	`
	_, err := exec.ExecContext(ctx, query,
		score.GroupID, score.UserID, score.Score,
		score.CompletedCount, score.LateCount, score.OverdueCount,
		score.PeriodStart, score.UpdatedAt)
	if err != nil {
		r.logger.Error("Failed to upsert KPI score", zap.Error(err),
			zap.String("group_id", score.GroupID), zap.String("user_id", score.UserID))
		return fmt.Errorf("failed to upsert kpi score: %w", err)
	}
	return nil
}

// RecordZero writes a zero score marker once per (group, user, period). An
// existing row is left untouched so a later refresh cannot be clobbered.
func (r *KPIRepository) RecordZero(ctx context.Context, groupID, userID string, periodStart time.Time) error {
	exec := sqlite.ExecutorFrom(ctx, r.db)

	query := `
		INSERT OR IGNORE INTO kpi_scores (group_id, user_id, score, period_start, updated_at)
		VALUES (?, ?, 0, ?, CURRENT_TIMESTAMP)
	`
	_, err := exec.ExecContext(ctx, query, groupID, userID, periodStart)
	if err != nil {
		r.logger.Error("Failed to record zero score", zap.Error(err),
			zap.String("group_id", groupID), zap.String("user_id", userID))
		return fmt.Errorf("failed to record zero score: %w", err)
	}
	return nil
}

// ListByGroup returns the latest-period scores of a group, best first
func (r *KPIRepository) ListByGroup(ctx context.Context, groupID string) ([]*entity.KPIScore, error) {
	exec := sqlite.ExecutorFrom(ctx, r.db)

	query := `
		SELECT id, group_id, user_id, score, completed_count, late_count, overdue_count, period_start, updated_at
		FROM kpi_scores
		WHERE group_id = ? AND period_start = (
			SELECT MAX(period_start) FROM kpi_scores WHERE group_id = ?
		)
		ORDER BY score DESC, user_id
	`
	rows, err := exec.QueryContext(ctx, query, groupID, groupID)
	if err != nil {
		r.logger.Error("Failed to list KPI scores", zap.Error(err), zap.String("group_id", groupID))
		return nil, fmt.Errorf("failed to list kpi scores: %w", err)
	}
	defer rows.Close()

	var scores []*entity.KPIScore
	for rows.Next() {
		var score entity.KPIScore
		if err := rows.Scan(&score.ID, &score.GroupID, &score.UserID,
			&score.Score, &score.CompletedCount, &score.LateCount, &score.OverdueCount,
			&score.PeriodStart, &score.UpdatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan kpi score: %w", err)
		}
		scores = append(scores, &score)
	}
	return scores, rows.Err()
}

// Verify interface compliance
var _ port.KPIRepository = (*KPIRepository)(nil)
