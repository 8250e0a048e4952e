package service

import (
	"context"
	"fmt"
	"time"

	"github.com/kaiwen/taskline/internal/application/port"
	"github.com/kaiwen/taskline/internal/domain/entity"
)

// RecurringService spawns task instances from recurring templates.
type RecurringService interface {
	// GenerateDueInstances processes all active templates whose next run
	// time has arrived and returns the number of tasks spawned. A failure
	// on one template is logged and does not block the remaining ones.
	GenerateDueInstances(ctx context.Context, now time.Time) (int, error)
}

type recurringServiceImpl struct {
	templateRepo port.TemplateRepository
	taskService  TaskService
	logger       Logger
}

// NewRecurringService creates a new RecurringService.
func NewRecurringService(templateRepo port.TemplateRepository, taskService TaskService, logger Logger) RecurringService {
	return &recurringServiceImpl{
		templateRepo: templateRepo,
		taskService:  taskService,
		logger:       logger,
	}
}

// GenerateDueInstances selects active templates with nextRunAt <= now and
// spawns one task per template.
func (s *recurringServiceImpl) GenerateDueInstances(ctx context.Context, now time.Time) (int, error) {
	templates, err := s.templateRepo.ListDue(ctx, now)
	if err != nil {
		s.logger.Error("Failed to list due templates", "error", err)
		return 0, fmt.Errorf("list due templates: %w", err)
	}

	spawned := 0
	for _, tpl := range templates {
		if err := s.generateOne(ctx, tpl, now); err != nil {
			s.logger.Error("Failed to generate recurring instance",
				"error", err,
				"template_id", tpl.ID,
				"title", tpl.Title)
			continue
		}
		spawned++
	}

	if spawned > 0 {
		s.logger.Info("Recurring instances generated",
			"templates_due", len(templates),
			"spawned", spawned)
	}
	return spawned, nil
}

func (s *recurringServiceImpl) generateOne(ctx context.Context, tpl *entity.RecurringTaskTemplate, now time.Time) error {
	loc := tpl.Location()
	prevDue := tpl.NextRunAt.In(loc)
	nextDue := NextDueDate(prevDue, tpl.Recurrence)

	// The spawned instance is due at the post-increment nextDue: each
	// cycle pre-generates the task for the following period.
	task, err := s.taskService.CreateTask(ctx, CreateTaskSpec{
		GroupID:           tpl.GroupID,
		Title:             tpl.Title,
		Description:       tpl.Description,
		DueTime:           nextDue,
		Priority:          tpl.Priority,
		Tags:              tpl.Tags,
		RequireAttachment: tpl.RequireAttachment,
		CreatedBy:         tpl.CreatedByLineUserID,
		AssignedUsers:     tpl.AssigneeIDs,
		ReviewerUserID:    tpl.ReviewerUserID,
		RecurringTaskID:   tpl.ID,
		RecurringInstance: tpl.TotalInstances + 1,
	})
	if err != nil {
		return fmt.Errorf("spawn task from template %s: %w", tpl.ID, err)
	}

	tpl.LastRunAt = &now
	tpl.NextRunAt = nextDue
	tpl.TotalInstances++
	if err := s.templateRepo.Update(ctx, tpl); err != nil {
		return fmt.Errorf("advance template %s: %w", tpl.ID, err)
	}

	s.logger.Info("Recurring task spawned",
		"template_id", tpl.ID,
		"task_id", task.ID,
		"instance", tpl.TotalInstances,
		"next_run_at", tpl.NextRunAt)
	return nil
}

// NextDueDate advances a due date by one cadence period. Monthly and
// quarterly cadences clamp the day of month to the length of the target
// month, so Jan 31 + 1 month lands on Feb 28 (29 in leap years).
func NextDueDate(prev time.Time, rec entity.Recurrence) time.Time {
	if rec == entity.RecurrenceWeekly {
		return prev.AddDate(0, 0, 7)
	}

	months := 1
	if rec == entity.RecurrenceQuarterly {
		months = 3
	}

	loc := prev.Location()
	year, month, _ := prev.Date()
	// time.Date normalizes month overflow (e.g. December + 1).
	firstOfTarget := time.Date(year, month+time.Month(months), 1, 0, 0, 0, 0, loc)
	daysInTarget := firstOfTarget.AddDate(0, 1, -1).Day()

	day := prev.Day()
	if day > daysInTarget {
		day = daysInTarget
	}

	return time.Date(firstOfTarget.Year(), firstOfTarget.Month(), day,
		prev.Hour(), prev.Minute(), prev.Second(), prev.Nanosecond(), loc)
}
