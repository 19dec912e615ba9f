package config

// Config is the full on-disk configuration tree.
//
// The file may be JSON or YAML (chosen by extension); YAML is coerced to JSON
// before decoding so both formats go through the same strict decoder.
type Config struct {
	Logging LoggingConfig  `json:"logging"`
	Timer   TimerConfig    `json:"timer"`
	Storage *StorageConfig `json:"storage,omitempty"`
	Pprof   PprofConfig    `json:"pprof,omitempty"`
	Systemd SystemdConfig  `json:"systemd,omitempty"`
}

type LoggingConfig struct {
	Level   string      `json:"level"`
	Console bool        `json:"console"`
	File    LoggingFile `json:"file"`
}

type LoggingFile struct {
	Enabled bool   `json:"enabled"`
	Path    string `json:"path"`
}

// TimerConfig controls the timing-wheel service.
//
// All durations are Go duration strings (e.g. "500ms", "10s", "1m").
//
// Defaults (when fields are omitted/zero):
//   - wheel_size: 512
//   - tick_interval: "100ms"
//   - clock: "monotonic"
//   - workers: 2
//   - queue_size: 64
//   - history_size: 128
//   - failure_log_every: "1s"
type TimerConfig struct {
	Enabled bool `json:"enabled"`

	// WheelSize is the number of buckets in the wheel. The longest delay a
	// single arm can express is wheel_size-1 ticks; longer waits are split
	// into hops.
	WheelSize int `json:"wheel_size,omitempty"`

	// TickInterval is the real-time width of one tick.
	TickInterval string `json:"tick_interval,omitempty"`

	// Clock selects the tick source:
	//   - "monotonic": ticks derive from elapsed time, so missed ticks
	//     (suspend, GC pause, busy host) are caught up on the next wake.
	//   - "counter": one tick per pump wake; time stretches under load.
	Clock string `json:"clock,omitempty"`

	// Timezone for cron specs (e.g. "Asia/Jakarta"). Empty means local time.
	Timezone string `json:"timezone,omitempty"`

	Workers   int `json:"workers,omitempty"`
	QueueSize int `json:"queue_size,omitempty"`

	HistorySize int `json:"history_size,omitempty"`

	// FailureLogEvery rate-limits repeated job failure logs.
	FailureLogEvery string `json:"failure_log_every,omitempty"`

	Jobs []JobConfig `json:"jobs,omitempty"`
}

// JobConfig declares one scheduled job.
//
// Spec accepts cron expressions (5 or 6 fields), descriptors ("@hourly",
// "@every 90s"), or a bare Go duration ("30s") which behaves like "@every 30s".
type JobConfig struct {
	Name string `json:"name"`
	Spec string `json:"spec"`

	// Command is run via the shell on each trigger. Empty means the job only
	// logs a heartbeat line (useful for wiring and latency checks).
	Command string `json:"command,omitempty"`

	// Timeout is a Go duration string. "0s" or empty disables the per-run timeout.
	Timeout string `json:"timeout,omitempty"`

	// Enabled is a pointer so we can distinguish "omitted" (enabled) from an
	// explicit false.
	Enabled *bool `json:"enabled,omitempty"`
}

func (j JobConfig) IsEnabled() bool { return j.Enabled == nil || *j.Enabled }

// StorageConfig controls the optional run-history persistence layer.
//
// Example:
//
//	"storage": { "driver": "file", "path": "./tickwheel_store" }
type StorageConfig struct {
	Driver      string `json:"driver"`
	Path        string `json:"path"`
	BusyTimeout string `json:"busy_timeout,omitempty"` // Go duration string (sqlite)
}

// PprofConfig controls the optional pprof HTTP server.
//
// Prefer binding to localhost (e.g. "127.0.0.1:6060"). A non-loopback bind is
// allowed but logged loudly at startup.
type PprofConfig struct {
	Enabled bool   `json:"enabled"`
	Addr    string `json:"addr,omitempty"` // default: "127.0.0.1:6060"

	// Server timeouts (Go duration strings). WriteTimeout defaults to 0 (disabled)
	// so /profile (which can take 30s+) works reliably.
	ReadTimeout  string `json:"read_timeout,omitempty"`
	WriteTimeout string `json:"write_timeout,omitempty"`
	IdleTimeout  string `json:"idle_timeout,omitempty"`
}

// SystemdConfig controls sd_notify integration.
//
// Both knobs default to on when omitted. Outside systemd (no NOTIFY_SOCKET in
// the environment) readiness and watchdog notifications are no-ops either way.
type SystemdConfig struct {
	Notify   *bool `json:"notify,omitempty"`
	Watchdog *bool `json:"watchdog,omitempty"`
}

func (s SystemdConfig) NotifyEnabled() bool   { return s.Notify == nil || *s.Notify }
func (s SystemdConfig) WatchdogEnabled() bool { return s.Watchdog == nil || *s.Watchdog }
