package wheel

import "errors"

// Sentinel errors returned by the scheduling operations. Range errors are
// wrapped with call-site context; match with errors.Is.
var (
	ErrNilTask          = errors.New("nil task")
	ErrNilRunner        = errors.New("task has no runner")
	ErrAlreadyScheduled = errors.New("task is already scheduled")
	ErrDelayOutOfRange  = errors.New("delay outside wheel range")
	ErrPeriodOutOfRange = errors.New("period outside wheel range")
)
