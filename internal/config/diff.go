package config

import (
	"sort"
	"strings"

	logx "tickwheel/pkg/logx"
)

// SummarizeConfigChange returns (1) a compact list of changed sections,
// (2) safe structured attrs for logging, and (3) a list of job names whose
// declaration changed (added, removed, or edited).
func SummarizeConfigChange(oldCfg, newCfg *Config) ([]string, []logx.Field, []string) {
	if oldCfg == nil {
		oldCfg = &Config{}
	}
	if newCfg == nil {
		newCfg = &Config{}
	}

	changed := make([]string, 0, 6)
	attrs := make([]logx.Field, 0, 20)

	// Logging
	if oldCfg.Logging.Level != newCfg.Logging.Level ||
		oldCfg.Logging.Console != newCfg.Logging.Console ||
		oldCfg.Logging.File.Enabled != newCfg.Logging.File.Enabled ||
		strings.TrimSpace(oldCfg.Logging.File.Path) != strings.TrimSpace(newCfg.Logging.File.Path) {
		changed = append(changed, "logging")
		attrs = append(attrs,
			logx.String("logx.level", newCfg.Logging.Level),
			logx.Bool("logx.console", newCfg.Logging.Console),
			logx.Bool("logx.file_enabled", newCfg.Logging.File.Enabled),
		)
	}

	// Timer (wheel geometry + executor settings; jobs are diffed separately)
	if oldCfg.Timer.Enabled != newCfg.Timer.Enabled ||
		oldCfg.Timer.WheelSize != newCfg.Timer.WheelSize ||
		strings.TrimSpace(oldCfg.Timer.TickInterval) != strings.TrimSpace(newCfg.Timer.TickInterval) ||
		strings.TrimSpace(oldCfg.Timer.Clock) != strings.TrimSpace(newCfg.Timer.Clock) ||
		strings.TrimSpace(oldCfg.Timer.Timezone) != strings.TrimSpace(newCfg.Timer.Timezone) ||
		oldCfg.Timer.Workers != newCfg.Timer.Workers ||
		oldCfg.Timer.QueueSize != newCfg.Timer.QueueSize ||
		oldCfg.Timer.HistorySize != newCfg.Timer.HistorySize ||
		strings.TrimSpace(oldCfg.Timer.FailureLogEvery) != strings.TrimSpace(newCfg.Timer.FailureLogEvery) {
		changed = append(changed, "timer")
		attrs = append(attrs,
			logx.Bool("timer.enabled", newCfg.Timer.Enabled),
			logx.Int("timer.wheel_size", newCfg.Timer.WheelSize),
			logx.String("timer.tick_interval", strings.TrimSpace(newCfg.Timer.TickInterval)),
			logx.String("timer.clock", strings.TrimSpace(newCfg.Timer.Clock)),
			logx.String("timer.timezone", strings.TrimSpace(newCfg.Timer.Timezone)),
			logx.Int("timer.workers", newCfg.Timer.Workers),
			logx.Int("timer.queue_size", newCfg.Timer.QueueSize),
			logx.Int("timer.history_size", newCfg.Timer.HistorySize),
		)
	}

	// Jobs (summarize only; details at debug)
	jobsChanged := diffJobs(oldCfg.Timer.Jobs, newCfg.Timer.Jobs)
	if len(jobsChanged) > 0 {
		changed = append(changed, "timer.jobs")
		attrs = append(attrs,
			logx.Int("jobs.changed_count", len(jobsChanged)),
			logx.Int("jobs.enabled_count", countEnabledJobs(newCfg.Timer.Jobs)),
		)
	}

	// Storage (persistence). Nil means disabled. The path takes part in the
	// comparison but only its presence is logged.
	oldS := oldCfg.Storage
	newS := newCfg.Storage
	var oDriver, nDriver, oPath, nPath, oBusy, nBusy string
	if oldS != nil {
		oDriver = strings.TrimSpace(oldS.Driver)
		oPath = strings.TrimSpace(oldS.Path)
		oBusy = strings.TrimSpace(oldS.BusyTimeout)
	}
	if newS != nil {
		nDriver = strings.TrimSpace(newS.Driver)
		nPath = strings.TrimSpace(newS.Path)
		nBusy = strings.TrimSpace(newS.BusyTimeout)
	}
	if oDriver != nDriver || oPath != nPath || oBusy != nBusy {
		changed = append(changed, "storage")
		attrs = append(attrs,
			logx.String("storage.driver", nDriver),
			logx.Bool("storage.path_set", nPath != ""),
			logx.String("storage.busy_timeout", nBusy),
		)
	}

	// Pprof
	if oldCfg.Pprof.Enabled != newCfg.Pprof.Enabled ||
		strings.TrimSpace(oldCfg.Pprof.Addr) != strings.TrimSpace(newCfg.Pprof.Addr) ||
		strings.TrimSpace(oldCfg.Pprof.ReadTimeout) != strings.TrimSpace(newCfg.Pprof.ReadTimeout) ||
		strings.TrimSpace(oldCfg.Pprof.WriteTimeout) != strings.TrimSpace(newCfg.Pprof.WriteTimeout) ||
		strings.TrimSpace(oldCfg.Pprof.IdleTimeout) != strings.TrimSpace(newCfg.Pprof.IdleTimeout) {
		changed = append(changed, "pprof")
		attrs = append(attrs,
			logx.Bool("pprof.enabled", newCfg.Pprof.Enabled),
			logx.String("pprof.addr", strings.TrimSpace(newCfg.Pprof.Addr)),
		)
	}

	// Systemd (compare effective values so nil vs explicit true is not a change)
	if oldCfg.Systemd.NotifyEnabled() != newCfg.Systemd.NotifyEnabled() ||
		oldCfg.Systemd.WatchdogEnabled() != newCfg.Systemd.WatchdogEnabled() {
		changed = append(changed, "systemd")
		attrs = append(attrs,
			logx.Bool("systemd.notify", newCfg.Systemd.NotifyEnabled()),
			logx.Bool("systemd.watchdog", newCfg.Systemd.WatchdogEnabled()),
		)
	}

	sort.Strings(changed)
	return changed, attrs, jobsChanged
}

func countEnabledJobs(jobs []JobConfig) int {
	n := 0
	for _, j := range jobs {
		if j.IsEnabled() {
			n++
		}
	}
	return n
}

// diffJobs returns the names of jobs that were added, removed, or edited.
// Jobs are keyed by name; a duplicated name compares by its last declaration.
func diffJobs(oldJobs, newJobs []JobConfig) []string {
	oldM := make(map[string]JobConfig, len(oldJobs))
	for _, j := range oldJobs {
		oldM[j.Name] = j
	}
	newM := make(map[string]JobConfig, len(newJobs))
	for _, j := range newJobs {
		newM[j.Name] = j
	}

	set := map[string]struct{}{}
	for k := range oldM {
		set[k] = struct{}{}
	}
	for k := range newM {
		set[k] = struct{}{}
	}

	out := make([]string, 0, len(set))
	for name := range set {
		o, oOK := oldM[name]
		n, nOK := newM[name]
		if oOK != nOK {
			out = append(out, name)
			continue
		}
		if o.IsEnabled() != n.IsEnabled() ||
			strings.TrimSpace(o.Spec) != strings.TrimSpace(n.Spec) ||
			strings.TrimSpace(o.Command) != strings.TrimSpace(n.Command) ||
			strings.TrimSpace(o.Timeout) != strings.TrimSpace(n.Timeout) {
			out = append(out, name)
		}
	}
	sort.Strings(out)
	return out
}
