package event

// Type identifies the type of domain event
type Type string

const (
	TypeTaskCreated       Type = "task.created"
	TypeTaskSubmitted     Type = "task.submitted"
	TypeReviewApproved    Type = "task.review_approved"
	TypeApprovalRequested Type = "task.approval_requested"
	TypeTaskCompleted     Type = "task.completed"
	TypeTaskRejected      Type = "task.rejected"
	TypeTaskOverdue       Type = "task.overdue"
)

// String returns the string representation of the event type
func (t Type) String() string {
	return string(t)
}

// IsValid checks if the event type is one of the defined constants
func (t Type) IsValid() bool {
	switch t {
	case TypeTaskCreated,
		TypeTaskSubmitted,
		TypeReviewApproved,
		TypeApprovalRequested,
		TypeTaskCompleted,
		TypeTaskRejected,
		TypeTaskOverdue:
		return true
	default:
		return false
	}
}
