package entity

import "time"

// RecurringTaskTemplate periodically spawns concrete task instances. The
// generator owns the template; NextRunAt advances monotonically once per
// generation cycle and TotalInstances increments exactly once per spawned
// task.
type RecurringTaskTemplate struct {
	ID          string `json:"id"`
	GroupID     string `json:"group_id"`
	Title       string `json:"title"`
	Description string `json:"description,omitempty"`

	Recurrence Recurrence `json:"recurrence"`
	Timezone   string     `json:"timezone"` // IANA name, e.g. "Asia/Tokyo"

	NextRunAt      time.Time  `json:"next_run_at"`
	LastRunAt      *time.Time `json:"last_run_at,omitempty"`
	TotalInstances int        `json:"total_instances"`

	AssigneeIDs         []string `json:"assignee_ids"`
	CreatedByLineUserID string   `json:"created_by_line_user_id"`
	ReviewerUserID      string   `json:"reviewer_user_id,omitempty"`

	Priority          Priority `json:"priority"`
	Tags              []string `json:"tags,omitempty"`
	RequireAttachment bool     `json:"require_attachment"`

	Active bool `json:"active"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// Recurrence cadence of a template.
type Recurrence string

const (
	RecurrenceWeekly    Recurrence = "weekly"
	RecurrenceMonthly   Recurrence = "monthly"
	RecurrenceQuarterly Recurrence = "quarterly"
)

// IsValid returns true if the recurrence is a supported cadence.
func (r Recurrence) IsValid() bool {
	switch r {
	case RecurrenceWeekly, RecurrenceMonthly, RecurrenceQuarterly:
		return true
	}
	return false
}

// Location resolves the template timezone, falling back to UTC when the name
// is empty or unknown.
func (t *RecurringTaskTemplate) Location() *time.Location {
	if t.Timezone == "" {
		return time.UTC
	}
	loc, err := time.LoadLocation(t.Timezone)
	if err != nil {
		return time.UTC
	}
	return loc
}
