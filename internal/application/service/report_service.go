package service

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/kaiwen/taskline/internal/application/port"
	"github.com/kaiwen/taskline/internal/domain/entity"
)

// Scoring weights for the leaderboard. On-time completion is worth double a
// late one; tasks overdue past the grace period pin a zero marker instead.
const (
	scoreOnTimeCompletion = 2
	scoreLateCompletion   = 1
	overdueZeroGrace      = 7 * 24 * time.Hour
)

// ReportService recomputes KPI scores and renders the digest and report
// messages the scheduler fans out. Rendering is pure; only RefreshKPIScores
// and RecordOverdueZero write to storage.
type ReportService interface {
	// RefreshKPIScores recomputes per-user scores for the week containing
	// now and upserts them. Returns the number of scores written.
	RefreshKPIScores(ctx context.Context, now time.Time) (int, error)

	// RecordOverdueZero writes a zero-score marker for every assignee of a
	// task that has been overdue for at least the grace period. Idempotent
	// per (group, user, period).
	RecordOverdueZero(ctx context.Context, task *entity.Task, now time.Time) error

	// BuildWeeklyReport renders the stats-and-leaderboard message for one
	// group. Returns "" when the group has nothing to report.
	BuildWeeklyReport(ctx context.Context, groupID string) (string, error)

	// BuildIncompleteSummary renders the per-assignee digest of non-terminal
	// tasks for one group. Returns "" when nothing is outstanding.
	BuildIncompleteSummary(ctx context.Context, groupID string) (string, error)

	// BuildOverdueDigests aggregates overdue tasks per assignee across one
	// group, keyed by user ID.
	BuildOverdueDigests(ctx context.Context, groupID string) (map[string]string, error)

	// BuildSupervisorDigest renders the weekly escalation digest across all
	// groups a supervisor oversees. Returns "" when nothing needs attention.
	BuildSupervisorDigest(ctx context.Context, supervisor *entity.User) (string, error)
}

type reportServiceImpl struct {
	taskRepo  port.TaskRepository
	groupRepo port.GroupRepository
	kpiRepo   port.KPIRepository
	clock     port.Clock
	logger    Logger
}

// NewReportService creates a new ReportService.
func NewReportService(
	taskRepo port.TaskRepository,
	groupRepo port.GroupRepository,
	kpiRepo port.KPIRepository,
	clock port.Clock,
	logger Logger,
) ReportService {
	return &reportServiceImpl{
		taskRepo:  taskRepo,
		groupRepo: groupRepo,
		kpiRepo:   kpiRepo,
		clock:     clock,
		logger:    logger,
	}
}

// RefreshKPIScores walks every active group and recomputes scores from tasks
// completed or overdue within the current week.
func (s *reportServiceImpl) RefreshKPIScores(ctx context.Context, now time.Time) (int, error) {
	groups, err := s.groupRepo.ListActive(ctx)
	if err != nil {
		return 0, fmt.Errorf("list active groups: %w", err)
	}

	periodStart := StartOfWeek(now)
	written := 0
	for _, group := range groups {
		n, err := s.refreshGroup(ctx, group.ID, periodStart, now)
		if err != nil {
			s.logger.Error("KPI refresh failed for group",
				"group_id", group.ID, "error", err)
			continue
		}
		written += n
	}

	s.logger.Info("KPI scores refreshed",
		"groups", len(groups), "scores_written", written, "period_start", periodStart)
	return written, nil
}

func (s *reportServiceImpl) refreshGroup(ctx context.Context, groupID string, periodStart, now time.Time) (int, error) {
	tasks, err := s.taskRepo.ListByGroup(ctx, groupID, []entity.TaskStatus{
		entity.TaskStatusCompleted,
		entity.TaskStatusOverdue,
	})
	if err != nil {
		return 0, fmt.Errorf("list group tasks: %w", err)
	}

	scores := make(map[string]*entity.KPIScore)
	scoreFor := func(userID string) *entity.KPIScore {
		if sc, ok := scores[userID]; ok {
			return sc
		}
		sc := &entity.KPIScore{
			GroupID:     groupID,
			UserID:      userID,
			PeriodStart: periodStart,
		}
		scores[userID] = sc
		return sc
	}

	for _, task := range tasks {
		switch task.Status {
		case entity.TaskStatusCompleted:
			if task.CompletedAt == nil || task.CompletedAt.Before(periodStart) {
				continue
			}
			onTime := !task.CompletedAt.After(task.DueTime)
			for _, userID := range task.AssignedUsers {
				sc := scoreFor(userID)
				sc.CompletedCount++
				if onTime {
					sc.Score += scoreOnTimeCompletion
				} else {
					sc.Score += scoreLateCompletion
					sc.LateCount++
				}
			}
		case entity.TaskStatusOverdue:
			for _, userID := range task.AssignedUsers {
				scoreFor(userID).OverdueCount++
			}
		}
	}

	written := 0
	for _, sc := range scores {
		sc.UpdatedAt = now
		if err := s.kpiRepo.Upsert(ctx, sc); err != nil {
			s.logger.Error("KPI upsert failed",
				"group_id", groupID, "user_id", sc.UserID, "error", err)
			continue
		}
		written++
	}
	return written, nil
}

// RecordOverdueZero pins a zero score once per period for tasks overdue past
// the grace window.
func (s *reportServiceImpl) RecordOverdueZero(ctx context.Context, task *entity.Task, now time.Time) error {
	if now.Sub(task.DueTime) < overdueZeroGrace {
		return nil
	}

	periodStart := StartOfWeek(now)
	for _, userID := range task.AssignedUsers {
		if err := s.kpiRepo.RecordZero(ctx, task.GroupID, userID, periodStart); err != nil {
			return fmt.Errorf("record zero score for %s: %w", userID, err)
		}
	}
	return nil
}

// BuildWeeklyReport renders group stats and the score leaderboard.
func (s *reportServiceImpl) BuildWeeklyReport(ctx context.Context, groupID string) (string, error) {
	scores, err := s.kpiRepo.ListByGroup(ctx, groupID)
	if err != nil {
		return "", fmt.Errorf("list kpi scores: %w", err)
	}
	if len(scores) == 0 {
		return "", nil
	}

	sort.Slice(scores, func(i, j int) bool {
		if scores[i].Score != scores[j].Score {
			return scores[i].Score > scores[j].Score
		}
		return scores[i].UserID < scores[j].UserID
	})

	var completed, late, overdue int
	for _, sc := range scores {
		completed += sc.CompletedCount
		late += sc.LateCount
		overdue += sc.OverdueCount
	}

	var b strings.Builder
	b.WriteString("📊 Weekly report\n")
	fmt.Fprintf(&b, "Completed: %d (late: %d) / Overdue: %d\n\n🏆 Leaderboard:\n", completed, late, overdue)
	for i, sc := range scores {
		fmt.Fprintf(&b, "%d. %s — %d pts\n", i+1, sc.UserID, sc.Score)
	}
	return strings.TrimRight(b.String(), "\n"), nil
}

// BuildIncompleteSummary renders outstanding tasks grouped per assignee.
func (s *reportServiceImpl) BuildIncompleteSummary(ctx context.Context, groupID string) (string, error) {
	tasks, err := s.taskRepo.ListByGroup(ctx, groupID, []entity.TaskStatus{
		entity.TaskStatusPending,
		entity.TaskStatusInProgress,
		entity.TaskStatusSubmitted,
		entity.TaskStatusOverdue,
	})
	if err != nil {
		return "", fmt.Errorf("list open tasks: %w", err)
	}
	if len(tasks) == 0 {
		return "", nil
	}

	byUser := make(map[string][]*entity.Task)
	for _, task := range tasks {
		for _, userID := range task.AssignedUsers {
			byUser[userID] = append(byUser[userID], task)
		}
	}

	userIDs := make([]string, 0, len(byUser))
	for userID := range byUser {
		userIDs = append(userIDs, userID)
	}
	sort.Strings(userIDs)

	var b strings.Builder
	fmt.Fprintf(&b, "📋 Open tasks (%d)\n", len(tasks))
	for _, userID := range userIDs {
		fmt.Fprintf(&b, "\n%s:\n", userID)
		for _, task := range byUser[userID] {
			fmt.Fprintf(&b, "  • %s [%s] due %s\n", task.Title, task.Status, formatDue(task.DueTime))
		}
	}
	return strings.TrimRight(b.String(), "\n"), nil
}

// BuildOverdueDigests aggregates overdue tasks per assignee.
func (s *reportServiceImpl) BuildOverdueDigests(ctx context.Context, groupID string) (map[string]string, error) {
	tasks, err := s.taskRepo.ListByGroup(ctx, groupID, []entity.TaskStatus{entity.TaskStatusOverdue})
	if err != nil {
		return nil, fmt.Errorf("list overdue tasks: %w", err)
	}

	byUser := make(map[string][]*entity.Task)
	for _, task := range tasks {
		for _, userID := range task.AssignedUsers {
			byUser[userID] = append(byUser[userID], task)
		}
	}

	digests := make(map[string]string, len(byUser))
	for userID, userTasks := range byUser {
		var b strings.Builder
		fmt.Fprintf(&b, "⚠️ You have %d overdue task(s):\n", len(userTasks))
		for _, task := range userTasks {
			fmt.Fprintf(&b, "  • %s (was due %s)\n", task.Title, formatDue(task.DueTime))
		}
		digests[userID] = strings.TrimRight(b.String(), "\n")
	}
	return digests, nil
}

// BuildSupervisorDigest aggregates open and overdue counts across the groups a
// supervisor oversees.
func (s *reportServiceImpl) BuildSupervisorDigest(ctx context.Context, supervisor *entity.User) (string, error) {
	if len(supervisor.SupervisorOf) == 0 {
		return "", nil
	}

	var b strings.Builder
	b.WriteString("📈 Weekly supervisor digest\n")
	lines := 0
	for _, groupID := range supervisor.SupervisorOf {
		group, err := s.groupRepo.GetByID(ctx, groupID)
		if err != nil {
			s.logger.Warn("Supervisor digest skipping group",
				"group_id", groupID, "error", err)
			continue
		}

		tasks, err := s.taskRepo.ListByGroup(ctx, groupID, []entity.TaskStatus{
			entity.TaskStatusPending,
			entity.TaskStatusInProgress,
			entity.TaskStatusSubmitted,
			entity.TaskStatusOverdue,
		})
		if err != nil {
			s.logger.Warn("Supervisor digest skipping group",
				"group_id", groupID, "error", err)
			continue
		}

		overdue := 0
		for _, task := range tasks {
			if task.Status == entity.TaskStatusOverdue {
				overdue++
			}
		}
		fmt.Fprintf(&b, "\n%s: %d open, %d overdue", group.Name, len(tasks), overdue)
		lines++
	}

	if lines == 0 {
		return "", nil
	}
	return b.String(), nil
}

// StartOfWeek returns midnight of the Monday of the week containing t, in t's
// location.
func StartOfWeek(t time.Time) time.Time {
	weekday := int(t.Weekday())
	if weekday == 0 {
		weekday = 7 // Sunday belongs to the preceding Monday's week
	}
	day := t.AddDate(0, 0, -(weekday - 1))
	return time.Date(day.Year(), day.Month(), day.Day(), 0, 0, 0, 0, t.Location())
}

var _ ReportService = (*reportServiceImpl)(nil)
