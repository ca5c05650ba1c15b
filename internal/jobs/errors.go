package jobs

import "errors"

var (
	// ErrNotFound is returned for job ids that don't exist or whose
	// retention window has expired.
	ErrNotFound = errors.New("job not found")

	// ErrInvalidState is returned when a control operation is applied to a
	// job in a terminal state.
	ErrInvalidState = errors.New("job is in a terminal state")

	// ErrInvalidArgument is returned when a job request is rejected before
	// a job is created.
	ErrInvalidArgument = errors.New("invalid argument")
)
