package timer

import "errors"

var (
	// ErrStopped is returned by operations that need a running pump.
	ErrStopped = errors.New("timer: service not running")
	// ErrBusy is returned when the pump cannot accept a command in time.
	ErrBusy = errors.New("timer: command queue busy")
	// ErrNameRequired is returned when a job is registered without a name.
	ErrNameRequired = errors.New("timer: job name required")
)
