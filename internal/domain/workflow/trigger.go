package workflow

// Trigger represents an event that can cause a state transition
type Trigger string

const (
	TriggerStart       Trigger = "START"
	TriggerSubmit      Trigger = "SUBMIT"
	TriggerApprove     Trigger = "APPROVE"
	TriggerReject      Trigger = "REJECT"
	TriggerComplete    Trigger = "COMPLETE"
	TriggerAutoApprove Trigger = "AUTO_APPROVE"
	TriggerMarkOverdue Trigger = "MARK_OVERDUE"
	TriggerCancel      Trigger = "CANCEL"
)

// String returns the string representation of the trigger
func (t Trigger) String() string {
	return string(t)
}
