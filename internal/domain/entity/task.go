package entity

import "time"

// Task is the aggregate root of the task lifecycle. It is owned by the
// lifecycle engine and mutated only through engine operations; the embedded
// workflow sub-records (review, submissions, approval, history) travel with
// the task as a single unit.
type Task struct {
	ID          string `json:"id"`
	GroupID     string `json:"group_id"`
	Title       string `json:"title"`
	Description string `json:"description,omitempty"`

	DueTime   time.Time  `json:"due_time"`
	StartTime *time.Time `json:"start_time,omitempty"`

	Status   TaskStatus `json:"status"`
	Priority Priority   `json:"priority"`
	Tags     []string   `json:"tags,omitempty"`

	RequireAttachment bool `json:"require_attachment"`

	CreatedBy     string   `json:"created_by"`
	AssignedUsers []string `json:"assigned_users"`

	SubmittedAt *time.Time `json:"submitted_at,omitempty"`
	CompletedAt *time.Time `json:"completed_at,omitempty"`

	// Set when the task was spawned from a recurring template.
	RecurringTaskID   string `json:"recurring_task_id,omitempty"`
	RecurringInstance int    `json:"recurring_instance,omitempty"`

	RemindersSent []ReminderRecord `json:"reminders_sent,omitempty"`

	Review      ReviewState        `json:"review"`
	Submissions []SubmissionRecord `json:"submissions,omitempty"`
	Approval    ApprovalState      `json:"approval"`
	History     []HistoryEntry     `json:"history,omitempty"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// TaskStatus is the primary lifecycle state of a task.
type TaskStatus string

const (
	TaskStatusPending    TaskStatus = "pending"
	TaskStatusInProgress TaskStatus = "in_progress"
	TaskStatusSubmitted  TaskStatus = "submitted"
	TaskStatusCompleted  TaskStatus = "completed"
	TaskStatusOverdue    TaskStatus = "overdue"
	TaskStatusCancelled  TaskStatus = "cancelled"
)

// String returns the string representation of the status.
func (s TaskStatus) String() string {
	return string(s)
}

// IsTerminal returns true when no further lifecycle transitions are allowed.
func (s TaskStatus) IsTerminal() bool {
	return s == TaskStatusCompleted || s == TaskStatusCancelled
}

// Priority of a task.
type Priority string

const (
	PriorityLow    Priority = "low"
	PriorityMedium Priority = "medium"
	PriorityHigh   Priority = "high"
)

// ReminderRecord tracks a reminder that has been sent for a task.
type ReminderRecord struct {
	Type     string    `json:"type"` // reminder interval tag, e.g. "P1D"
	SentAt   time.Time `json:"sent_at"`
	Channels []string  `json:"channels,omitempty"`
}

// HasSubmission reports whether any submission evidence exists on the task.
// A task with submission evidence must never be flagged overdue.
func (t *Task) HasSubmission() bool {
	if len(t.Submissions) > 0 {
		return true
	}
	if t.SubmittedAt != nil {
		return true
	}
	return t.Review.Status != ReviewStatusNotRequested
}

// IsAssignee reports whether userID is among the task's assignees.
func (t *Task) IsAssignee(userID string) bool {
	for _, u := range t.AssignedUsers {
		if u == userID {
			return true
		}
	}
	return false
}

// AppendHistory records an audit entry. History is append-only; entries are
// never mutated after this call.
func (t *Task) AppendHistory(action, byUserID, note string, at time.Time) {
	t.History = append(t.History, HistoryEntry{
		Action:   action,
		ByUserID: byUserID,
		At:       at,
		Note:     note,
	})
}

// AppendSubmission records a new submission. Submissions are append-only.
func (t *Task) AppendSubmission(sub SubmissionRecord) {
	t.Submissions = append(t.Submissions, sub)
}
