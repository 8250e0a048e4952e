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

// TemplateRepository implements port.TemplateRepository
type TemplateRepository struct {
	db     *sql.DB
	logger *zap.Logger
}

// NewTemplateRepository creates a new template repository
func NewTemplateRepository(db *sql.DB, logger *zap.Logger) port.TemplateRepository {
	return &TemplateRepository{
		db:     db,
		logger: logger,
	}
}

const templateColumns = `
	id, group_id, title, description, recurrence, timezone,
	priority, tags, require_attachment,
	created_by_line_user_id, reviewer_user_id, assignee_ids,
	next_run_at, last_run_at, total_instances, active,
	created_at, updated_at`

// Create inserts a new recurring template
func (r *TemplateRepository) Create(ctx context.Context, tpl *entity.RecurringTaskTemplate) error {
	exec := sqlite.ExecutorFrom(ctx, r.db)

	query := `
		INSERT INTO recurring_templates (` + templateColumns + `)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`
	_, err := exec.ExecContext(ctx, query,
		tpl.ID, tpl.GroupID, tpl.Title, tpl.Description,
		string(tpl.Recurrence), tpl.Timezone,
		string(tpl.Priority), marshalJSON(tpl.Tags), tpl.RequireAttachment,
		tpl.CreatedByLineUserID, tpl.ReviewerUserID, marshalJSON(tpl.AssigneeIDs),
		tpl.NextRunAt, nullTime(tpl.LastRunAt), tpl.TotalInstances, tpl.Active,
		tpl.CreatedAt, tpl.UpdatedAt,
	)
	if err != nil {
		r.logger.Error("Failed to create template", zap.Error(err), zap.String("template_id", tpl.ID))
		return fmt.Errorf("failed to create template: %w", err)
	}
	return nil
}

// GetByID retrieves a template by ID
func (r *TemplateRepository) GetByID(ctx context.Context, id string) (*entity.RecurringTaskTemplate, error) {
	exec := sqlite.ExecutorFrom(ctx, r.db)

	query := `SELECT ` + templateColumns + ` FROM recurring_templates WHERE id = ?`
	tpl, err := scanTemplate(exec.QueryRowContext(ctx, query, id))
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		r.logger.Error("Failed to get template", zap.Error(err), zap.String("template_id", id))
		return nil, fmt.Errorf("failed to get template: %w", err)
	}
	return tpl, nil
}

// Update writes the template row
func (r *TemplateRepository) Update(ctx context.Context, tpl *entity.RecurringTaskTemplate) error {
	exec := sqlite.ExecutorFrom(ctx, r.db)

	query := `
		UPDATE recurring_templates SET
			group_id = ?, title = ?, description = ?, recurrence = ?, timezone = ?,
			priority = ?, tags = ?, require_attachment = ?,
			created_by_line_user_id = ?, reviewer_user_id = ?, assignee_ids = ?,
			next_run_at = ?, last_run_at = ?, total_instances = ?, active = ?,
			updated_at = ?
		WHERE id = ?
	`
	result, err := exec.ExecContext(ctx, query,
		tpl.GroupID, tpl.Title, tpl.Description,
		string(tpl.Recurrence), tpl.Timezone,
		string(tpl.Priority), marshalJSON(tpl.Tags), tpl.RequireAttachment,
		tpl.CreatedByLineUserID, tpl.ReviewerUserID, marshalJSON(tpl.AssigneeIDs),
		tpl.NextRunAt, nullTime(tpl.LastRunAt), tpl.TotalInstances, tpl.Active,
		tpl.UpdatedAt,
		tpl.ID,
	)
	if err != nil {
		r.logger.Error("Failed to update template", zap.Error(err), zap.String("template_id", tpl.ID))
		return fmt.Errorf("failed to update template: %w", err)
	}
	affected, err := result.RowsAffected()
	if err == nil && affected == 0 {
		return fmt.Errorf("template %s not found", tpl.ID)
	}
	return nil
}

// ListDue returns active templates with next_run_at <= now
func (r *TemplateRepository) ListDue(ctx context.Context, now time.Time) ([]*entity.RecurringTaskTemplate, error) {
	exec := sqlite.ExecutorFrom(ctx, r.db)

	query := `SELECT ` + templateColumns + `
		FROM recurring_templates
		WHERE active = 1 AND next_run_at <= ?
		ORDER BY next_run_at`

	rows, err := exec.QueryContext(ctx, query, now)
	if err != nil {
		r.logger.Error("Failed to list due templates", zap.Error(err))
		return nil, fmt.Errorf("failed to list due templates: %w", err)
	}
	defer rows.Close()

	var templates []*entity.RecurringTaskTemplate
	for rows.Next() {
		tpl, err := scanTemplate(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan template: %w", err)
		}
		templates = append(templates, tpl)
	}
	return templates, rows.Err()
}

func scanTemplate(row rowScanner) (*entity.RecurringTaskTemplate, error) {
	var tpl entity.RecurringTaskTemplate
	var recurrence, priority, tags, assigneeIDs string
	var lastRunAt sql.NullTime

	err := row.Scan(
		&tpl.ID, &tpl.GroupID, &tpl.Title, &tpl.Description,
		&recurrence, &tpl.Timezone,
		&priority, &tags, &tpl.RequireAttachment,
		&tpl.CreatedByLineUserID, &tpl.ReviewerUserID, &assigneeIDs,
		&tpl.NextRunAt, &lastRunAt, &tpl.TotalInstances, &tpl.Active,
		&tpl.CreatedAt, &tpl.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}

	tpl.Recurrence = entity.Recurrence(recurrence)
	tpl.Priority = entity.Priority(priority)
	tpl.LastRunAt = timePtr(lastRunAt)
	unmarshalJSON(tags, &tpl.Tags)
	unmarshalJSON(assigneeIDs, &tpl.AssigneeIDs)
	return &tpl, nil
}

// Verify interface compliance
var _ port.TemplateRepository = (*TemplateRepository)(nil)
