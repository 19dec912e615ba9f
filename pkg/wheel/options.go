package wheel

// TickSource supplies the current absolute tick on demand. Readings must be
// non-decreasing and non-negative; Advance treats a reading at or below the
// cursor as "not advanced yet" and does nothing.
type TickSource func() int64

// Option configures a Wheel at construction.
type Option func(*Wheel)

// WithTickSource makes the wheel pull its tick from src on every Advance.
// A nil src leaves the wheel self-incrementing one tick per call.
func WithTickSource(src TickSource) Option {
	return func(w *Wheel) { w.source = src }
}

// WithClock derives the tick from a monotonic time supplier as
// now()/interval, both in the same unit (typically nanoseconds). interval
// must be positive or New fails. Takes precedence over WithTickSource.
func WithClock(now func() int64, interval int64) Option {
	return func(w *Wheel) {
		w.clockNow = now
		w.clockInterval = interval
	}
}

// WithLogger routes callback-failure reports to l instead of the standard
// logger. A nil l keeps the default.
func WithLogger(l Logger) Option {
	return func(w *Wheel) {
		if l != nil {
			w.log = l
		}
	}
}
