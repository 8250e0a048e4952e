package dedup

import (
	"fmt"
	"time"
)

// Event-specific TTL windows. Short windows bound duplicate sends within one
// scheduling cycle while allowing legitimate re-sends on later cycles.
const (
	TTLTaskCreated   = 5 * time.Minute
	TTLCompletion    = 10 * time.Minute
	TTLReviewRequest = 10 * time.Minute
	TTLOverdue       = 30 * time.Minute
	TTLReminder      = 60 * time.Minute
	TTLSubmission    = 60 * time.Minute
)

// TaskCreatedKey keys the creation notification of a task.
func TaskCreatedKey(taskID string) string {
	return fmt.Sprintf("task_created_%s", taskID)
}

// TaskCompletedKey keys the completion notification of a task.
func TaskCompletedKey(taskID string) string {
	return fmt.Sprintf("task_completed_%s", taskID)
}

// ReviewRequestKey keys the review-request notification of a task.
func ReviewRequestKey(taskID string) string {
	return fmt.Sprintf("task_review_request_%s", taskID)
}

// TaskOverdueKey keys the overdue notification of a task.
func TaskOverdueKey(taskID string) string {
	return fmt.Sprintf("task_overdue_%s", taskID)
}

// SubmissionKey keys the submission notification of a task.
func SubmissionKey(taskID string) string {
	return fmt.Sprintf("task_submission_%s", taskID)
}

// ReminderKey keys one reminder interval of a task, e.g.
// task_reminder_<id>_P1D. Combined with TTLReminder this bounds reminders to
// one per interval per hour bucket.
func ReminderKey(taskID, intervalTag string) string {
	return fmt.Sprintf("task_reminder_%s_%s", taskID, intervalTag)
}
