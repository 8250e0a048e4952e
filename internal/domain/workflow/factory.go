package workflow

// BuildTaskStateMachine builds the lifecycle state machine for a task,
// positioned at the given state.
//
// pending -> in_progress -> submitted -> completed, with overdue and
// cancelled as side states. Approval-path completion is permitted straight
// from pending/in_progress; rejection sends a submitted task back to pending
// with an extended due time.
func BuildTaskStateMachine(initialState State) StateMachine {
	builder := NewBuilder()

	builder.Configure(StatePending).
		Permit(TriggerStart, StateInProgress).
		Permit(TriggerSubmit, StateSubmitted).
		Permit(TriggerComplete, StateCompleted).
		Permit(TriggerMarkOverdue, StateOverdue).
		Permit(TriggerCancel, StateCancelled)

	builder.Configure(StateInProgress).
		Permit(TriggerSubmit, StateSubmitted).
		Permit(TriggerComplete, StateCompleted).
		Permit(TriggerMarkOverdue, StateOverdue).
		Permit(TriggerCancel, StateCancelled)

	builder.Configure(StateSubmitted).
		Permit(TriggerComplete, StateCompleted).
		Permit(TriggerAutoApprove, StateCompleted).
		Permit(TriggerReject, StatePending).
		Permit(TriggerCancel, StateCancelled)

	// A late submission moves an overdue task back onto the review path.
	builder.Configure(StateOverdue).
		Permit(TriggerSubmit, StateSubmitted).
		Permit(TriggerComplete, StateCompleted).
		Permit(TriggerCancel, StateCancelled)

	return builder.Build(initialState)
}
