package service

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/kaiwen/taskline/internal/application/dedup"
	"github.com/kaiwen/taskline/internal/application/dispatcher"
	"github.com/kaiwen/taskline/internal/application/port"
	"github.com/kaiwen/taskline/internal/domain/entity"
	"github.com/kaiwen/taskline/internal/domain/event"
)

// NotificationService turns domain events into chat messages and calendar
// updates. Every delivery is best-effort: a failed send or calendar call is
// logged and never propagated back into the lifecycle operation that raised
// the event.
type NotificationService interface {
	// RegisterHandlers subscribes the service to all lifecycle events.
	RegisterHandlers(d dispatcher.Dispatcher)

	// SendReminder delivers a due-date reminder for one task, deduplicated
	// per interval tag. Returns true only when a message went out.
	SendReminder(ctx context.Context, task *entity.Task, intervalTag string) (bool, error)

	// SendGroupDigest delivers an aggregate message to a group without
	// per-task dedup; callers control cadence via the scheduler.
	SendGroupDigest(ctx context.Context, groupID, message string) error

	// SendUserDigest delivers an aggregate message to a single user.
	SendUserDigest(ctx context.Context, userID, message string) error
}

type notificationServiceImpl struct {
	taskRepo port.TaskRepository
	notifier port.Notifier
	calendar port.CalendarSync
	cache    dedup.Cache
	clock    port.Clock
	logger   Logger
}

// NewNotificationService creates a new NotificationService.
func NewNotificationService(
	taskRepo port.TaskRepository,
	notifier port.Notifier,
	calendar port.CalendarSync,
	cache dedup.Cache,
	clock port.Clock,
	logger Logger,
) NotificationService {
	return &notificationServiceImpl{
		taskRepo: taskRepo,
		notifier: notifier,
		calendar: calendar,
		cache:    cache,
		clock:    clock,
		logger:   logger,
	}
}

// RegisterHandlers subscribes one named handler per lifecycle event type.
func (s *notificationServiceImpl) RegisterHandlers(d dispatcher.Dispatcher) {
	d.SubscribeNamed(event.TypeTaskCreated, "notify-task-created", s.onTaskCreated)
	d.SubscribeNamed(event.TypeTaskSubmitted, "notify-task-submitted", s.onTaskSubmitted)
	d.SubscribeNamed(event.TypeReviewApproved, "notify-review-approved", s.onReviewApproved)
	d.SubscribeNamed(event.TypeApprovalRequested, "notify-approval-requested", s.onApprovalRequested)
	d.SubscribeNamed(event.TypeTaskCompleted, "notify-task-completed", s.onTaskCompleted)
	d.SubscribeNamed(event.TypeTaskRejected, "notify-task-rejected", s.onTaskRejected)
	d.SubscribeNamed(event.TypeTaskOverdue, "notify-task-overdue", s.onTaskOverdue)
}

func (s *notificationServiceImpl) onTaskCreated(ctx context.Context, evt *event.Event) error {
	if !s.cache.ShouldSend(dedup.TaskCreatedKey(evt.TaskID), dedup.TTLTaskCreated) {
		return nil
	}

	task := s.lookupTask(ctx, evt.TaskID, "task_created")
	if task == nil {
		return nil
	}

	msg := fmt.Sprintf("📋 New task: %s\nDue: %s\nAssigned: %s",
		task.Title, formatDue(task.DueTime), formatAssignees(task.AssignedUsers))
	s.sendToGroup(ctx, task.GroupID, msg, "task_created", task.ID)

	for _, userID := range task.AssignedUsers {
		if err := s.calendar.UpsertUserEvent(ctx, task, userID); err != nil {
			s.logger.Warn("Calendar upsert failed",
				"task_id", task.ID, "user_id", userID, "error", err)
		}
	}
	return nil
}

func (s *notificationServiceImpl) onTaskSubmitted(ctx context.Context, evt *event.Event) error {
	if !s.cache.ShouldSend(dedup.SubmissionKey(evt.TaskID), dedup.TTLSubmission) {
		return nil
	}

	task := s.lookupTask(ctx, evt.TaskID, "task_submitted")
	if task == nil {
		return nil
	}

	late := ""
	if evt.GetPayloadBool("late") {
		late = " (after the due time)"
	}
	msg := fmt.Sprintf("📨 %s submitted work for: %s%s",
		evt.GetPayloadString("submitted_by"), task.Title, late)
	s.sendToGroup(ctx, task.GroupID, msg, "task_submitted", task.ID)

	// The reviewer gets a direct review-request nudge with its own window.
	if task.Review.ReviewerUserID != "" && task.Review.Status == entity.ReviewStatusPending {
		if s.cache.ShouldSend(dedup.ReviewRequestKey(task.ID), dedup.TTLReviewRequest) {
			due := ""
			if task.Review.ReviewDueAt != nil {
				due = fmt.Sprintf("\nReview due: %s", formatDue(*task.Review.ReviewDueAt))
			}
			s.sendToUser(ctx, task.Review.ReviewerUserID,
				fmt.Sprintf("🔍 Please review: %s%s", task.Title, due),
				"review_request", task.ID)
		}
	}
	return nil
}

func (s *notificationServiceImpl) onReviewApproved(ctx context.Context, evt *event.Event) error {
	task := s.lookupTask(ctx, evt.TaskID, "review_approved")
	if task == nil {
		return nil
	}

	msg := fmt.Sprintf("✅ Review passed for: %s", task.Title)
	s.sendToGroup(ctx, task.GroupID, msg, "review_approved", task.ID)
	return nil
}

func (s *notificationServiceImpl) onApprovalRequested(ctx context.Context, evt *event.Event) error {
	task := s.lookupTask(ctx, evt.TaskID, "approval_requested")
	if task == nil {
		return nil
	}

	// Completion sign-off sits with the creator once the reviewer passes it.
	s.sendToUser(ctx, task.CreatedBy,
		fmt.Sprintf("🖋️ %s was reviewed and awaits your sign-off", task.Title),
		"approval_requested", task.ID)
	return nil
}

func (s *notificationServiceImpl) onTaskCompleted(ctx context.Context, evt *event.Event) error {
	if !s.cache.ShouldSend(dedup.TaskCompletedKey(evt.TaskID), dedup.TTLCompletion) {
		return nil
	}

	task := s.lookupTask(ctx, evt.TaskID, "task_completed")
	if task == nil {
		return nil
	}

	auto := ""
	if task.Review.Status == entity.ReviewStatusAutoApproved {
		auto = " (auto-approved after review deadline)"
	}
	msg := fmt.Sprintf("🎉 Task completed: %s%s", task.Title, auto)
	s.sendToGroup(ctx, task.GroupID, msg, "task_completed", task.ID)

	for _, userID := range task.AssignedUsers {
		if err := s.calendar.RemoveUserEvent(ctx, task, userID); err != nil {
			s.logger.Warn("Calendar removal failed",
				"task_id", task.ID, "user_id", userID, "error", err)
		}
	}
	return nil
}

func (s *notificationServiceImpl) onTaskRejected(ctx context.Context, evt *event.Event) error {
	task := s.lookupTask(ctx, evt.TaskID, "task_rejected")
	if task == nil {
		return nil
	}

	reason := evt.GetPayloadString("reason")
	if reason != "" {
		reason = "\nReason: " + reason
	}
	msg := fmt.Sprintf("↩️ Task sent back: %s%s\nNew due: %s",
		task.Title, reason, formatDue(task.DueTime))
	s.sendToGroup(ctx, task.GroupID, msg, "task_rejected", task.ID)

	// Due date moved, mirror the extension into assignee calendars.
	for _, userID := range task.AssignedUsers {
		if err := s.calendar.UpsertUserEvent(ctx, task, userID); err != nil {
			s.logger.Warn("Calendar upsert failed",
				"task_id", task.ID, "user_id", userID, "error", err)
		}
	}
	return nil
}

func (s *notificationServiceImpl) onTaskOverdue(ctx context.Context, evt *event.Event) error {
	if !s.cache.ShouldSend(dedup.TaskOverdueKey(evt.TaskID), dedup.TTLOverdue) {
		return nil
	}

	task := s.lookupTask(ctx, evt.TaskID, "task_overdue")
	if task == nil {
		return nil
	}

	msg := fmt.Sprintf("⚠️ Task overdue: %s\nWas due: %s\nAssigned: %s",
		task.Title, formatDue(task.DueTime), formatAssignees(task.AssignedUsers))
	s.sendToGroup(ctx, task.GroupID, msg, "task_overdue", task.ID)
	return nil
}

// SendReminder delivers a reminder for an upcoming due time, at most once per
// (task, interval) per dedup window.
func (s *notificationServiceImpl) SendReminder(ctx context.Context, task *entity.Task, intervalTag string) (bool, error) {
	if !s.cache.ShouldSend(dedup.ReminderKey(task.ID, intervalTag), dedup.TTLReminder) {
		return false, nil
	}

	remaining := task.DueTime.Sub(s.clock.Now()).Round(time.Minute)

	msg := fmt.Sprintf("⏰ Reminder: %s is due %s (in %s)\nAssigned: %s",
		task.Title, formatDue(task.DueTime), remaining, formatAssignees(task.AssignedUsers))
	if err := s.notifier.SendToGroup(ctx, task.GroupID, msg); err != nil {
		s.logger.Warn("Reminder delivery failed",
			"task_id", task.ID, "interval", intervalTag, "error", err)
		return false, fmt.Errorf("%w: send reminder: %v", ErrTransientIO, err)
	}

	s.logger.Info("Reminder sent", "task_id", task.ID, "interval", intervalTag)
	return true, nil
}

// SendGroupDigest delivers an aggregate message to a group.
func (s *notificationServiceImpl) SendGroupDigest(ctx context.Context, groupID, message string) error {
	if err := s.notifier.SendToGroup(ctx, groupID, message); err != nil {
		s.logger.Warn("Group digest delivery failed", "group_id", groupID, "error", err)
		return fmt.Errorf("%w: send group digest: %v", ErrTransientIO, err)
	}
	return nil
}

// SendUserDigest delivers an aggregate message to a single user.
func (s *notificationServiceImpl) SendUserDigest(ctx context.Context, userID, message string) error {
	if err := s.notifier.SendToUser(ctx, userID, message); err != nil {
		s.logger.Warn("User digest delivery failed", "user_id", userID, "error", err)
		return fmt.Errorf("%w: send user digest: %v", ErrTransientIO, err)
	}
	return nil
}

// lookupTask fetches the task behind an event. A failed or empty lookup only
// skips the notification; the event itself has already happened.
func (s *notificationServiceImpl) lookupTask(ctx context.Context, taskID, kind string) *entity.Task {
	task, err := s.taskRepo.GetByID(ctx, taskID)
	if err != nil {
		s.logger.Warn("Skipping notification, task lookup failed",
			"kind", kind, "task_id", taskID, "error", err)
		return nil
	}
	if task == nil {
		s.logger.Warn("Skipping notification, task is gone",
			"kind", kind, "task_id", taskID)
		return nil
	}
	return task
}

func (s *notificationServiceImpl) sendToGroup(ctx context.Context, groupID, msg, kind, taskID string) {
	if err := s.notifier.SendToGroup(ctx, groupID, msg); err != nil {
		s.logger.Warn("Notification delivery failed",
			"kind", kind, "task_id", taskID, "group_id", groupID, "error", err)
		return
	}
	s.logger.Info("Notification sent", "kind", kind, "task_id", taskID, "group_id", groupID)
}

func (s *notificationServiceImpl) sendToUser(ctx context.Context, userID, msg, kind, taskID string) {
	if err := s.notifier.SendToUser(ctx, userID, msg); err != nil {
		s.logger.Warn("Notification delivery failed",
			"kind", kind, "task_id", taskID, "user_id", userID, "error", err)
		return
	}
	s.logger.Info("Notification sent", "kind", kind, "task_id", taskID, "user_id", userID)
}

func formatDue(t time.Time) string {
	return t.Format("2006-01-02 15:04")
}

func formatAssignees(userIDs []string) string {
	if len(userIDs) == 0 {
		return "-"
	}
	return strings.Join(userIDs, ", ")
}

var _ NotificationService = (*notificationServiceImpl)(nil)
