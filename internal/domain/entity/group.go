package entity

import "time"

// Group is a chat group the assistant tracks tasks for.
type Group struct {
	ID       string `json:"id"`
	Name     string `json:"name"`
	Timezone string `json:"timezone,omitempty"`

	// Feature flags per group.
	WeeklyReportEnabled bool `json:"weekly_report_enabled"`

	// BotLeft marks groups the bot is no longer a member of; their tasks
	// are purged by the membership cleanup job.
	BotLeft bool `json:"bot_left"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// User is a chat-platform user known to the assistant.
type User struct {
	ID          string `json:"id"`
	DisplayName string `json:"display_name"`

	// SupervisorOf lists group IDs this user oversees; the weekly
	// escalation digest aggregates across them.
	SupervisorOf []string `json:"supervisor_of,omitempty"`

	CreatedAt time.Time `json:"created_at"`
}

// KPIScore is a per-user productivity score within a group, refreshed by the
// nightly leaderboard job.
type KPIScore struct {
	ID      int64  `json:"id"`
	GroupID string `json:"group_id"`
	UserID  string `json:"user_id"`

	Score          int       `json:"score"`
	CompletedCount int       `json:"completed_count"`
	LateCount      int       `json:"late_count"`
	OverdueCount   int       `json:"overdue_count"`
	PeriodStart    time.Time `json:"period_start"`
	UpdatedAt      time.Time `json:"updated_at"`
}
