package wheel

import "fmt"

// Wheel is a circular timing wheel. See the package documentation for the
// model and the single-owner contract.
type Wheel struct {
	buckets []*queue
	cursor  int64
	source  TickSource
	log     Logger

	clockNow      func() int64
	clockInterval int64
}

// New returns a wheel of the given length. size bounds delay and period
// exclusively: a wheel of length L accepts delays and periods up to L-1.
//
// Without a tick source option the wheel self-increments one tick per
// Advance call. With one, the cursor is anchored to the source's first
// reading here, so delays are relative to the clock as it stands at
// construction.
func New(size int, opts ...Option) (*Wheel, error) {
	if size <= 0 {
		return nil, fmt.Errorf("wheel length must be positive, got %d", size)
	}
	w := &Wheel{buckets: make([]*queue, size)}
	for _, opt := range opts {
		if opt != nil {
			opt(w)
		}
	}
	if w.log == nil {
		w.log = stdLogger{}
	}
	if w.clockNow != nil {
		if w.clockInterval <= 0 {
			return nil, fmt.Errorf("tick interval must be positive, got %d", w.clockInterval)
		}
		now, interval := w.clockNow, w.clockInterval
		w.source = func() int64 { return now() / interval }
	}
	if w.source != nil {
		w.cursor = w.source()
	}
	return w, nil
}

// Size returns the wheel length, the exclusive upper bound for delays and
// periods.
func (w *Wheel) Size() int { return len(w.buckets) }

// Now returns the cursor, the latest tick Advance has dispatched up to.
func (w *Wheel) Now() int64 { return w.cursor }

// Len returns the number of tasks currently linked into the wheel.
func (w *Wheel) Len() int {
	n := 0
	for _, q := range w.buckets {
		if q != nil {
			n += q.size
		}
	}
	return n
}

// Schedule arms t for the next dispatch: no delay, no repetition.
func (w *Wheel) Schedule(t *Task) error { return w.register(t, 0, 0) }

// ScheduleAfter arms t to fire once, delay ticks from the cursor. Negative
// delays clamp to zero; delay must be smaller than the wheel length.
func (w *Wheel) ScheduleAfter(t *Task, delay int) error {
	return w.register(t, max(delay, 0), 0)
}

// ScheduleEvery arms t to fire after delay ticks and then every period ticks
// until cancelled. Negative delays clamp to zero and periods below one clamp
// to one; both must be smaller than the wheel length.
func (w *Wheel) ScheduleEvery(t *Task, delay, period int) error {
	return w.register(t, max(delay, 0), max(period, 1))
}

func (w *Wheel) register(t *Task, delay, period int) error {
	if t == nil {
		return ErrNilTask
	}
	if t.runner == nil {
		return ErrNilRunner
	}
	if t.state == StateScheduled {
		return ErrAlreadyScheduled
	}
	size := len(w.buckets)
	if delay >= size {
		return fmt.Errorf("%w: delay %d, wheel length %d", ErrDelayOutOfRange, delay, size)
	}
	if period >= size {
		return fmt.Errorf("%w: period %d, wheel length %d", ErrPeriodOutOfRange, period, size)
	}
	// A running task is being rescheduled from inside its own dispatch:
	// detach it from the bucket draining it before linking it anew.
	if t.state == StateRunning && t.q != nil {
		t.q.unlink(t)
	}
	t.period = period
	t.nextRun = w.cursor + int64(delay)
	w.link(t)
	return nil
}

func (w *Wheel) link(t *Task) {
	i := int(t.nextRun % int64(len(w.buckets)))
	q := w.buckets[i]
	if q == nil {
		q = &queue{}
		w.buckets[i] = q
	}
	q.linkLast(t)
	t.state = StateScheduled
}

// Advance performs one dispatch step. It reads the tick source (or
// self-increments), and if the tick moved past the cursor it drains every
// bucket in between, firing due tasks and re-linking periodic ones. Work is
// capped at one full rotation per call; a larger jump leaves backlog for the
// next call. If the tick has not advanced, Advance is a no-op.
func (w *Wheel) Advance() {
	cur := w.cursor
	newTick := cur + 1
	if w.source != nil {
		newTick = w.source()
	}
	if newTick <= cur {
		return
	}
	// Publish the new tick before draining so callbacks that reschedule
	// compute delays against the tick being dispatched.
	w.cursor = newTick

	target := newTick
	if m := cur + int64(len(w.buckets)) - 1; target > m {
		target = m
	}
	for t := cur; t <= target; t++ {
		q := w.buckets[t%int64(len(w.buckets))]
		if q == nil {
			continue
		}
		for head := q.peek(); head != nil && head.nextRun <= newTick; head = q.peek() {
			w.fire(q, head)
		}
	}
}

func (w *Wheel) fire(q *queue, t *Task) {
	t.state = StateRunning
	w.invoke(t)
	// The callback may have cancelled or rescheduled the task; only a task
	// still Running takes the automatic post-run transition.
	if t.state != StateRunning {
		return
	}
	q.unlinkFirst()
	if t.period > 0 {
		t.nextRun += int64(t.period)
		w.link(t)
		return
	}
	t.state = StateExecuted
}

func (w *Wheel) invoke(t *Task) {
	defer func() {
		if r := recover(); r != nil {
			w.log.Printf("wheel: task callback panicked at tick %d: %v", t.nextRun, r)
		}
	}()
	t.runner.Run()
}

// Clear cancels every pending task and empties all buckets: afterwards no
// task is reachable from the wheel and every previously pending task is in
// StateCancelled. Safe to call from inside a callback; the running task is
// cancelled like any other.
func (w *Wheel) Clear() {
	for i, q := range w.buckets {
		if q == nil {
			continue
		}
		for t := q.unlinkFirst(); t != nil; t = q.unlinkFirst() {
			t.state = StateCancelled
		}
		w.buckets[i] = nil
	}
}
