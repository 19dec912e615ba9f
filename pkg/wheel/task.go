package wheel

// State tracks a task through its lifecycle.
type State uint8

const (
	// StateIdle is the state of a task that has never been scheduled.
	StateIdle State = iota
	// StateScheduled means the task is linked into a bucket, waiting for
	// its tick.
	StateScheduled
	// StateRunning means the task's callback is executing inside Advance.
	StateRunning
	// StateExecuted means a one-shot task has fired. Terminal.
	StateExecuted
	// StateCancelled means Cancel (or Clear) detached the task. Terminal.
	StateCancelled
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateScheduled:
		return "scheduled"
	case StateRunning:
		return "running"
	case StateExecuted:
		return "executed"
	case StateCancelled:
		return "cancelled"
	default:
		return "unknown"
	}
}

// Terminal reports whether s permits no further transitions. Terminal tasks
// may still be re-armed with Schedule, which starts a fresh lifecycle.
func (s State) Terminal() bool { return s == StateExecuted || s == StateCancelled }

// Runner is the unit of work carried by a Task. Run is invoked by the wheel
// exactly once per firing and may reentrantly schedule or cancel any task,
// including its own.
type Runner interface {
	Run()
}

// RunnerFunc adapts a plain function to Runner.
type RunnerFunc func()

func (f RunnerFunc) Run() { f() }

// Task is a cancellable, possibly periodic unit of work. Tasks are intrusive
// list nodes: the wheel links them directly into buckets, so a Task value
// must not be copied after first use and belongs to at most one wheel at a
// time.
type Task struct {
	q          *queue
	prev, next *Task

	runner  Runner
	state   State
	period  int
	nextRun int64
}

// NewTask returns an idle task carrying r.
func NewTask(r Runner) *Task { return &Task{runner: r} }

// NewTaskFunc returns an idle task carrying f.
func NewTaskFunc(f func()) *Task {
	if f == nil {
		return &Task{}
	}
	return &Task{runner: RunnerFunc(f)}
}

// State returns the task's current lifecycle state.
func (t *Task) State() State { return t.state }

// NextRun returns the absolute tick the task is next due at. It is
// meaningful only while the task is scheduled or running.
func (t *Task) NextRun() int64 { return t.nextRun }

// Cancel detaches the task from its wheel so it never fires again.
//
// It returns false if the task was never scheduled or is already terminal,
// and true otherwise: the task is unlinked from its bucket (if linked) and
// moved to StateCancelled. Cancelling from inside the task's own callback is
// allowed and suppresses the dispatcher's post-run requeue.
func (t *Task) Cancel() bool {
	switch t.state {
	case StateScheduled, StateRunning:
		if t.q != nil {
			t.q.unlink(t)
		}
		t.state = StateCancelled
		return true
	default:
		return false
	}
}
