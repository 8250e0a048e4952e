package scheduler

import (
	"context"
	"fmt"
	"time"

	"github.com/kaiwen/taskline/internal/application/port"
	"github.com/kaiwen/taskline/internal/application/service"
	"github.com/kaiwen/taskline/internal/config"
	"github.com/kaiwen/taskline/internal/domain/entity"
)

// WeeklyReportExporter writes the weekly stats workbook for one group and
// returns the output path.
type WeeklyReportExporter interface {
	Export(ctx context.Context, group *entity.Group) (string, error)
}

// Jobs bundles the handlers of the fixed job table with their dependencies.
type Jobs struct {
	taskService   service.TaskService
	recurring     service.RecurringService
	notifications service.NotificationService
	reports       service.ReportService
	exporter      WeeklyReportExporter
	backup        port.BackupRunner

	taskRepo  port.TaskRepository
	groupRepo port.GroupRepository
	userRepo  port.UserRepository
	clock     port.Clock

	reminderIntervals map[string]time.Duration
	logger            Logger
}

// NewJobs creates the job handler set.
func NewJobs(
	taskService service.TaskService,
	recurring service.RecurringService,
	notifications service.NotificationService,
	reports service.ReportService,
	exporter WeeklyReportExporter,
	backup port.BackupRunner,
	taskRepo port.TaskRepository,
	groupRepo port.GroupRepository,
	userRepo port.UserRepository,
	clock port.Clock,
	reminderIntervals map[string]time.Duration,
	logger Logger,
) *Jobs {
	return &Jobs{
		taskService:       taskService,
		recurring:         recurring,
		notifications:     notifications,
		reports:           reports,
		exporter:          exporter,
		backup:            backup,
		taskRepo:          taskRepo,
		groupRepo:         groupRepo,
		userRepo:          userRepo,
		clock:             clock,
		reminderIntervals: reminderIntervals,
		logger:            logger,
	}
}

// RegisterAll wires the full job table onto the scheduler using the cron
// specs from configuration.
func (j *Jobs) RegisterAll(s *Scheduler, cfg config.SchedulerConfig) error {
	table := []struct {
		name    string
		spec    string
		handler Handler
	}{
		{"reminder_scan", cfg.ReminderScanSpec, j.ReminderScan},
		{"overdue_scan", cfg.OverdueScanSpec, j.OverdueScan},
		{"overdue_digest", cfg.OverdueDigestSpec, j.OverdueDigest},
		{"review_reminder", cfg.ReviewReminderSpec, j.ReviewReminder},
		{"incomplete_summary", cfg.IncompleteSummarySpec, j.IncompleteSummary},
		{"supervisor_weekly", cfg.SupervisorWeeklySpec, j.SupervisorWeekly},
		{"weekly_report", cfg.WeeklyReportSpec, j.WeeklyReport},
		{"kpi_refresh", cfg.KPIRefreshSpec, j.KPIRefresh},
		{"recurring_tick", cfg.RecurringTickSpec, j.RecurringTick},
		{"backup", cfg.BackupSpec, j.Backup},
		{"membership_cleanup", cfg.MembershipCleanupSpec, j.MembershipCleanup},
	}

	for _, row := range table {
		if err := s.Register(row.name, row.spec, row.handler); err != nil {
			return err
		}
	}
	return nil
}

// Handler looks up a job handler by name, for manual admin triggers.
func (j *Jobs) Handler(name string) (Handler, bool) {
	handlers := map[string]Handler{
		"reminder_scan":      j.ReminderScan,
		"overdue_scan":       j.OverdueScan,
		"overdue_digest":     j.OverdueDigest,
		"review_reminder":    j.ReviewReminder,
		"incomplete_summary": j.IncompleteSummary,
		"supervisor_weekly":  j.SupervisorWeekly,
		"weekly_report":      j.WeeklyReport,
		"kpi_refresh":        j.KPIRefresh,
		"recurring_tick":     j.RecurringTick,
		"backup":             j.Backup,
		"membership_cleanup": j.MembershipCleanup,
	}
	h, ok := handlers[name]
	return h, ok
}

// ReminderScan sends due-date reminders for tasks entering one of the
// configured reminder intervals. The dedup cache bounds each (task, interval)
// to one reminder per hour bucket.
func (j *Jobs) ReminderScan(ctx context.Context) error {
	now := j.clock.Now()

	var maxInterval time.Duration
	for _, d := range j.reminderIntervals {
		if d > maxInterval {
			maxInterval = d
		}
	}

	tasks, err := j.taskRepo.ListDueBetween(ctx, now, now.Add(maxInterval), []entity.TaskStatus{
		entity.TaskStatusPending,
		entity.TaskStatusInProgress,
	})
	if err != nil {
		return fmt.Errorf("list upcoming tasks: %w", err)
	}

	for _, task := range tasks {
		remaining := task.DueTime.Sub(now)
		for tag, interval := range j.reminderIntervals {
			if remaining > interval {
				continue
			}

			sent, err := j.notifications.SendReminder(ctx, task, tag)
			if err != nil {
				j.logger.Warn("Reminder send failed",
					"task_id", task.ID, "interval", tag, "error", err)
				continue
			}
			if !sent {
				continue
			}

			if err := j.taskService.RecordReminderSent(ctx, task.ID, entity.ReminderRecord{
				Type:   tag,
				SentAt: now,
			}); err != nil {
				j.logger.Warn("Failed to record reminder",
					"task_id", task.ID, "interval", tag, "error", err)
			}
		}
	}
	return nil
}

// OverdueScan flags due tasks without submission evidence as overdue, and
// pins zero KPI markers for tasks overdue past the grace period.
func (j *Jobs) OverdueScan(ctx context.Context) error {
	now := j.clock.Now()

	groups, err := j.groupRepo.ListActive(ctx)
	if err != nil {
		return fmt.Errorf("list active groups: %w", err)
	}

	for _, group := range groups {
		tasks, err := j.taskRepo.ListByGroup(ctx, group.ID, []entity.TaskStatus{
			entity.TaskStatusPending,
			entity.TaskStatusInProgress,
			entity.TaskStatusOverdue,
		})
		if err != nil {
			j.logger.Error("Overdue scan skipping group",
				"group_id", group.ID, "error", err)
			continue
		}

		for _, task := range tasks {
			updated, err := j.markOverdueOne(ctx, task, now)
			if err != nil {
				j.logger.Error("Overdue scan skipping task",
					"task_id", task.ID, "error", err)
				continue
			}
			if updated.Status != entity.TaskStatusOverdue {
				continue
			}
			if err := j.reports.RecordOverdueZero(ctx, updated, now); err != nil {
				j.logger.Error("Failed to record zero score",
					"task_id", updated.ID, "error", err)
			}
		}
	}
	return nil
}

func (j *Jobs) markOverdueOne(ctx context.Context, task *entity.Task, now time.Time) (*entity.Task, error) {
	if task.Status == entity.TaskStatusOverdue {
		return task, nil
	}
	if !now.After(task.DueTime) || task.HasSubmission() {
		return task, nil
	}
	return j.taskService.MarkOverdue(ctx, task.ID)
}

// OverdueDigest delivers per-user aggregations of overdue tasks.
func (j *Jobs) OverdueDigest(ctx context.Context) error {
	groups, err := j.groupRepo.ListActive(ctx)
	if err != nil {
		return fmt.Errorf("list active groups: %w", err)
	}

	for _, group := range groups {
		digests, err := j.reports.BuildOverdueDigests(ctx, group.ID)
		if err != nil {
			j.logger.Error("Overdue digest skipping group",
				"group_id", group.ID, "error", err)
			continue
		}
		for userID, msg := range digests {
			if err := j.notifications.SendUserDigest(ctx, userID, msg); err != nil {
				j.logger.Warn("Overdue digest delivery failed",
					"user_id", userID, "group_id", group.ID, "error", err)
			}
		}
	}
	return nil
}

// ReviewReminder nudges reviewers of tasks whose review is still pending.
func (j *Jobs) ReviewReminder(ctx context.Context) error {
	tasks, err := j.taskRepo.ListPendingReview(ctx)
	if err != nil {
		return fmt.Errorf("list pending reviews: %w", err)
	}

	for _, task := range tasks {
		reviewer := task.Review.ReviewerUserID
		if reviewer == "" {
			continue
		}

		due := ""
		if task.Review.ReviewDueAt != nil {
			due = fmt.Sprintf("\nReview due: %s", task.Review.ReviewDueAt.Format("2006-01-02 15:04"))
		}
		msg := fmt.Sprintf("🔍 Review still pending: %s%s", task.Title, due)
		if err := j.notifications.SendUserDigest(ctx, reviewer, msg); err != nil {
			j.logger.Warn("Review reminder delivery failed",
				"task_id", task.ID, "reviewer", reviewer, "error", err)
		}
	}
	return nil
}

// IncompleteSummary delivers the per-group digest of non-terminal tasks.
func (j *Jobs) IncompleteSummary(ctx context.Context) error {
	groups, err := j.groupRepo.ListActive(ctx)
	if err != nil {
		return fmt.Errorf("list active groups: %w", err)
	}

	for _, group := range groups {
		msg, err := j.reports.BuildIncompleteSummary(ctx, group.ID)
		if err != nil {
			j.logger.Error("Incomplete summary skipping group",
				"group_id", group.ID, "error", err)
			continue
		}
		if msg == "" {
			continue
		}
		if err := j.notifications.SendGroupDigest(ctx, group.ID, msg); err != nil {
			j.logger.Warn("Incomplete summary delivery failed",
				"group_id", group.ID, "error", err)
		}
	}
	return nil
}

// SupervisorWeekly delivers the escalation digest to every supervisor.
func (j *Jobs) SupervisorWeekly(ctx context.Context) error {
	supervisors, err := j.userRepo.ListSupervisors(ctx)
	if err != nil {
		return fmt.Errorf("list supervisors: %w", err)
	}

	for _, supervisor := range supervisors {
		msg, err := j.reports.BuildSupervisorDigest(ctx, supervisor)
		if err != nil {
			j.logger.Error("Supervisor digest skipping user",
				"user_id", supervisor.ID, "error", err)
			continue
		}
		if msg == "" {
			continue
		}
		if err := j.notifications.SendUserDigest(ctx, supervisor.ID, msg); err != nil {
			j.logger.Warn("Supervisor digest delivery failed",
				"user_id", supervisor.ID, "error", err)
		}
	}
	return nil
}

// WeeklyReport delivers stats and the leaderboard to groups that opted in,
// and writes the Excel workbook alongside.
func (j *Jobs) WeeklyReport(ctx context.Context) error {
	groups, err := j.groupRepo.ListActive(ctx)
	if err != nil {
		return fmt.Errorf("list active groups: %w", err)
	}

	for _, group := range groups {
		if !group.WeeklyReportEnabled {
			continue
		}

		msg, err := j.reports.BuildWeeklyReport(ctx, group.ID)
		if err != nil {
			j.logger.Error("Weekly report skipping group",
				"group_id", group.ID, "error", err)
			continue
		}
		if msg == "" {
			continue
		}
		if err := j.notifications.SendGroupDigest(ctx, group.ID, msg); err != nil {
			j.logger.Warn("Weekly report delivery failed",
				"group_id", group.ID, "error", err)
		}

		if j.exporter == nil {
			continue
		}
		path, err := j.exporter.Export(ctx, group)
		if err != nil {
			j.logger.Warn("Weekly report export failed",
				"group_id", group.ID, "error", err)
			continue
		}
		j.logger.Info("Weekly report exported",
			"group_id", group.ID, "path", path)
	}
	return nil
}

// KPIRefresh recomputes leaderboard scores.
func (j *Jobs) KPIRefresh(ctx context.Context) error {
	_, err := j.reports.RefreshKPIScores(ctx, j.clock.Now())
	return err
}

// RecurringTick spawns task instances from due recurring templates.
func (j *Jobs) RecurringTick(ctx context.Context) error {
	_, err := j.recurring.GenerateDueInstances(ctx, j.clock.Now())
	return err
}

// Backup delegates to the backup collaborator.
func (j *Jobs) Backup(ctx context.Context) error {
	return j.backup.Run(ctx)
}

// MembershipCleanup purges tasks of groups the bot is no longer a member of.
func (j *Jobs) MembershipCleanup(ctx context.Context) error {
	groups, err := j.groupRepo.ListBotLeft(ctx)
	if err != nil {
		return fmt.Errorf("list departed groups: %w", err)
	}

	for _, group := range groups {
		deleted, err := j.taskRepo.DeleteByGroupID(ctx, group.ID)
		if err != nil {
			j.logger.Error("Membership cleanup skipping group",
				"group_id", group.ID, "error", err)
			continue
		}
		if err := j.groupRepo.Delete(ctx, group.ID); err != nil {
			j.logger.Error("Failed to delete departed group",
				"group_id", group.ID, "error", err)
			continue
		}
		j.logger.Info("Departed group purged",
			"group_id", group.ID, "tasks_deleted", deleted)
	}
	return nil
}
