package service

import "errors"

// Error taxonomy for lifecycle operations. Validation, permission, not-found
// and duplicate errors are returned synchronously and must not be retried;
// transient I/O errors from side-effect collaborators are logged at the call
// site and never roll back a committed state transition.
var (
	// ErrValidation indicates missing or invalid input.
	ErrValidation = errors.New("validation failed")

	// ErrPermission indicates the actor is not allowed to perform the
	// requested transition.
	ErrPermission = errors.New("permission denied")

	// ErrNotFound indicates the task, template or user does not exist.
	ErrNotFound = errors.New("not found")

	// ErrDuplicate indicates the create-task debounce window rejected an
	// identical task.
	ErrDuplicate = errors.New("duplicate task")

	// ErrTransientIO indicates a retriable side-effect failure
	// (notification, calendar, backup).
	ErrTransientIO = errors.New("transient io failure")
)
