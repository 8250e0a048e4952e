package workflow

// State represents a lifecycle state of a tracked task.
type State string

const (
	StatePending    State = "pending"
	StateInProgress State = "in_progress"
	StateSubmitted  State = "submitted"
	StateCompleted  State = "completed"
	StateOverdue    State = "overdue"
	StateCancelled  State = "cancelled"
)

var validStates = map[State]bool{
	StatePending:    true,
	StateInProgress: true,
	StateSubmitted:  true,
	StateCompleted:  true,
	StateOverdue:    true,
	StateCancelled:  true,
}

var terminalStates = map[State]bool{
	StateCompleted: true,
	StateCancelled: true,
}

// IsTerminal returns true if the state is a terminal state (no further transitions allowed)
func (s State) IsTerminal() bool {
	return terminalStates[s]
}

// String returns the string representation of the state
func (s State) String() string {
	return string(s)
}

// IsValid returns true if the state is a valid lifecycle state
func (s State) IsValid() bool {
	return validStates[s]
}

// ReviewState represents a state of the orthogonal review sub-machine.
type ReviewState string

const (
	ReviewNotRequested ReviewState = "not_requested"
	ReviewPending      ReviewState = "pending"
	ReviewApproved     ReviewState = "approved"
	ReviewRejected     ReviewState = "rejected"
	ReviewAutoApproved ReviewState = "auto_approved"
)

var validReviewStates = map[ReviewState]bool{
	ReviewNotRequested: true,
	ReviewPending:      true,
	ReviewApproved:     true,
	ReviewRejected:     true,
	ReviewAutoApproved: true,
}

// IsValid returns true if the state is a valid review state
func (s ReviewState) IsValid() bool {
	return validReviewStates[s]
}

// String returns the string representation of the review state
func (s ReviewState) String() string {
	return string(s)
}
