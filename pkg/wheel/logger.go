package wheel

import "log"

// Logger receives callback-failure reports from Advance. The wheel logs
// nothing else, so the interface stays small enough to bridge from any
// structured logger.
type Logger interface {
	Printf(format string, args ...any)
}

// LoggerFunc adapts a function to Logger.
type LoggerFunc func(format string, args ...any)

func (f LoggerFunc) Printf(format string, args ...any) { f(format, args...) }

// stdLogger is the default sink: the process-wide standard logger.
type stdLogger struct{}

func (stdLogger) Printf(format string, args ...any) { log.Printf(format, args...) }
