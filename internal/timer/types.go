package timer

import (
	"context"
	"sync/atomic"
	"time"

	"github.com/robfig/cron/v3"

	"tickwheel/pkg/wheel"
)

// Clock modes. Monotonic derives the tick from elapsed wall time and
// catches up after stalls; counter advances one tick per pump wake.
const (
	ClockMonotonic = "monotonic"
	ClockCounter   = "counter"
)

// Event types published on the bus around job execution.
const (
	EventJobStarted  = "job.started"
	EventJobFinished = "job.finished"
	EventJobFailed   = "job.failed"
	EventJobDropped  = "job.dropped"
)

// Config controls the timer service.
type Config struct {
	Enabled      bool
	WheelSize    int           // number of buckets (>= 2)
	TickInterval time.Duration // real time per tick
	Clock        string        // "monotonic" or "counter"
	Timezone     string        // IANA TZ for cron evaluation, e.g. "Asia/Jakarta"

	Workers     int // executor goroutines
	QueueSize   int // executor queue capacity
	HistorySize int // retained run records

	// FailureLogEvery throttles per-service failure warnings; failures past
	// the limit still count and still publish bus events.
	FailureLogEvery time.Duration

	Jobs []JobSpec
}

func (c Config) withDefaults() Config {
	if c.WheelSize <= 0 {
		c.WheelSize = 512
	}
	if c.TickInterval <= 0 {
		c.TickInterval = 100 * time.Millisecond
	}
	if c.Clock == "" {
		c.Clock = ClockMonotonic
	}
	if c.Workers <= 0 {
		c.Workers = 2
	}
	if c.QueueSize <= 0 {
		c.QueueSize = 64
	}
	if c.HistorySize <= 0 {
		c.HistorySize = 128
	}
	if c.FailureLogEvery <= 0 {
		c.FailureLogEvery = time.Second
	}
	return c
}

// JobSpec is one configured job definition.
type JobSpec struct {
	Name    string
	Spec    string        // schedule expression, see package doc
	Command string        // shell command; empty logs a heartbeat instead
	Timeout time.Duration // per-run timeout; 0 means no limit
	Enabled bool
}

// RunRecord describes one finished (or dropped) job run.
type RunRecord struct {
	Job      string
	Tick     int64
	Started  time.Time
	Duration time.Duration
	OK       bool
	ExitCode int
	Error    string
	Output   string
}

type jobKind int

const (
	jobInterval jobKind = iota // rides the wheel as a periodic task
	jobHop                     // interval longer than one rotation
	jobCron                    // cron schedule, hops toward each next time
	jobOnce                    // single shot, removed after firing
)

func (k jobKind) String() string {
	switch k {
	case jobInterval:
		return "interval"
	case jobHop:
		return "interval"
	case jobCron:
		return "cron"
	case jobOnce:
		return "once"
	default:
		return "unknown"
	}
}

// execFn performs one run. Output and exit code are informational and may
// be zero-valued for non-command jobs.
type execFn func(ctx context.Context) (output string, exitCode int, err error)

// job is the pump-owned state for one scheduled entry. Only the pump
// goroutine touches the scheduling fields; runs/fails are atomic because
// workers bump them.
type job struct {
	name    string
	spec    string
	kind    jobKind
	every   time.Duration // jobInterval/jobHop period
	ticks   int64         // every in ticks
	sched   cron.Schedule // jobCron only
	timeout time.Duration
	exec    execFn

	task    *wheel.Task // currently armed wheel task, nil when idle
	dueTick int64       // jobHop/jobCron/jobOnce: tick the job actually runs at
	nextAt  time.Time   // informational, for snapshots

	runs  atomic.Uint64
	fails atomic.Uint64
}

// run is one unit handed to the worker pool.
type run struct {
	job  *job
	tick int64
}

// JobInfo is the snapshot view of one job.
type JobInfo struct {
	Name     string    `json:"name"`
	Spec     string    `json:"spec"`
	Kind     string    `json:"kind"`
	NextTick int64     `json:"next_tick"`
	NextAt   time.Time `json:"next_at,omitempty"`
	Runs     uint64    `json:"runs"`
	Fails    uint64    `json:"fails"`
}

// Snapshot is a point-in-time view of the service.
type Snapshot struct {
	Enabled      bool          `json:"enabled"`
	Running      bool          `json:"running"`
	Tick         int64         `json:"tick"`
	WheelSize    int           `json:"wheel_size"`
	TickInterval time.Duration `json:"tick_interval"`
	Clock        string        `json:"clock"`
	Workers      int           `json:"workers"`
	QueueLen     int           `json:"queue_len"`
	QueueCap     int           `json:"queue_cap"`
	Dropped      uint64        `json:"dropped"`
	Suppressed   uint64        `json:"suppressed_logs"`
	Jobs         []JobInfo     `json:"jobs"`
	History      []RunRecord   `json:"history"`
}
