package entity

import "time"

// ReviewState is the reviewer's sub-state machine embedded on a task.
type ReviewState struct {
	ReviewerUserID    string       `json:"reviewer_user_id,omitempty"`
	Status            ReviewStatus `json:"status"`
	ReviewRequestedAt *time.Time   `json:"review_requested_at,omitempty"`
	ReviewDueAt       *time.Time   `json:"review_due_at,omitempty"`
	ReviewedAt        *time.Time   `json:"reviewed_at,omitempty"`
	LateReview        bool         `json:"late_review,omitempty"`
	RejectionReason   string       `json:"rejection_reason,omitempty"`
}

// ReviewStatus values.
type ReviewStatus string

const (
	ReviewStatusNotRequested ReviewStatus = "not_requested"
	ReviewStatusPending      ReviewStatus = "pending"
	ReviewStatusApproved     ReviewStatus = "approved"
	ReviewStatusRejected     ReviewStatus = "rejected"
	ReviewStatusAutoApproved ReviewStatus = "auto_approved"
)

// String returns the string representation of the review status.
func (s ReviewStatus) String() string {
	return string(s)
}

// SubmissionRecord is one delivery of work against a task. The submissions
// list on a task is append-only and ordered by submission time.
type SubmissionRecord struct {
	ID             string    `json:"id"`
	SubmittedBy    string    `json:"submitted_by"`
	SubmittedAt    time.Time `json:"submitted_at"`
	FileIDs        []string  `json:"file_ids,omitempty"`
	Comment        string    `json:"comment,omitempty"`
	Links          []string  `json:"links,omitempty"`
	LateSubmission bool      `json:"late_submission"`
}

// ApprovalState is the creator's post-review sign-off.
type ApprovalState struct {
	Status     ApprovalStatus `json:"status"`
	ApprovedAt *time.Time     `json:"approved_at,omitempty"`
}

// ApprovalStatus values.
type ApprovalStatus string

const (
	ApprovalStatusNotRequested ApprovalStatus = "not_requested"
	ApprovalStatusRequested    ApprovalStatus = "requested"
	ApprovalStatusApproved     ApprovalStatus = "approved"
)

// HistoryEntry is one audit-trail record. History is append-only.
type HistoryEntry struct {
	Action   string    `json:"action"`
	ByUserID string    `json:"by_user_id"`
	At       time.Time `json:"at"`
	Note     string    `json:"note,omitempty"`
}

// History action constants.
const (
	HistoryActionCreate             = "create"
	HistoryActionSubmit             = "submit"
	HistoryActionReviewApproved     = "review_approved"
	HistoryActionReviewRejected     = "review_rejected"
	HistoryActionCompletionApproved = "completion_approved"
	HistoryActionCompleted          = "completed"
	HistoryActionAutoApproved       = "auto_approved"
	HistoryActionMarkedOverdue      = "marked_overdue"
	HistoryActionCancelled          = "cancelled"
)
