package workflow

// reviewTransitions is the orthogonal review sub-machine:
// not_requested -> pending -> {approved|rejected|auto_approved}.
// A rejected review may be re-requested by a later submission.
var reviewTransitions = map[ReviewState][]ReviewState{
	ReviewNotRequested: {ReviewPending},
	ReviewPending:      {ReviewApproved, ReviewRejected, ReviewAutoApproved},
	ReviewRejected:     {ReviewPending},
}

// ReviewTransitionAllowed reports whether the review sub-state may move from
// one state to another.
func ReviewTransitionAllowed(from, to ReviewState) bool {
	for _, next := range reviewTransitions[from] {
		if next == to {
			return true
		}
	}
	return false
}
