package app

// StopReason labels why the app is shutting down. It only feeds logs and the
// sd_notify STOPPING line; nothing branches on it.
type StopReason string

const (
	StopUnknown    StopReason = "unknown"
	StopSignal     StopReason = "signal"
	StopFatalError StopReason = "fatal_error"
	StopAppStop    StopReason = "app_stop"
)
