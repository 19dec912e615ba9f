package app

import (
	"fmt"
	"strings"
	"time"

	"tickwheel/internal/config"
	"tickwheel/internal/observability/pprof"
	"tickwheel/internal/storage"
	"tickwheel/internal/timer"
	"tickwheel/pkg/logx"
)

// The map* helpers translate the on-disk config tree (string durations,
// pointer booleans) into each service's native config struct. They parse but
// do not apply, so the reload validator can reuse them to reject a bad file
// before anything restarts.

func mapLoggingConfig(cfg *config.Config) logx.Config {
	if cfg == nil {
		return logx.Config{}
	}
	return logx.Config{
		Level:   cfg.Logging.Level,
		Console: cfg.Logging.Console,
		File: logx.FileConfig{
			Enabled: cfg.Logging.File.Enabled,
			Path:    cfg.Logging.File.Path,
		},
	}
}

func mapTimerConfig(cfg *config.Config) (timer.Config, error) {
	if cfg == nil {
		return timer.Config{}, nil
	}
	tc := cfg.Timer

	tick, err := config.ParseDurationOrDefault("timer.tick_interval", tc.TickInterval, 100*time.Millisecond)
	if err != nil {
		return timer.Config{}, err
	}
	failEvery, err := config.ParseDurationOrDefault("timer.failure_log_every", tc.FailureLogEvery, time.Second)
	if err != nil {
		return timer.Config{}, err
	}

	out := timer.Config{
		Enabled:         tc.Enabled,
		WheelSize:       tc.WheelSize,
		TickInterval:    tick,
		Clock:           tc.Clock,
		Timezone:        tc.Timezone,
		Workers:         tc.Workers,
		QueueSize:       tc.QueueSize,
		HistorySize:     tc.HistorySize,
		FailureLogEvery: failEvery,
	}
	for _, jc := range tc.Jobs {
		timeout, err := config.ParseDurationField("timer.jobs."+jc.Name+".timeout", jc.Timeout)
		if err != nil {
			return timer.Config{}, err
		}
		out.Jobs = append(out.Jobs, timer.JobSpec{
			Name:    jc.Name,
			Spec:    jc.Spec,
			Command: jc.Command,
			Timeout: timeout,
			Enabled: jc.IsEnabled(),
		})
	}
	return out, nil
}

// mapStorageConfig returns a zero Config (driver "") when storage is
// disabled; storage.Open treats that as "no store".
func mapStorageConfig(cfg *config.Config) (storage.Config, error) {
	if cfg == nil || cfg.Storage == nil {
		return storage.Config{}, nil
	}
	sc := cfg.Storage
	driver := strings.ToLower(strings.TrimSpace(sc.Driver))
	switch driver {
	case "", "none":
		return storage.Config{}, nil
	case "file", "sqlite", "sqlite3":
		if strings.TrimSpace(sc.Path) == "" {
			return storage.Config{}, fmt.Errorf("storage.path is required for driver %q", driver)
		}
	default:
		return storage.Config{}, fmt.Errorf("storage.driver: unknown driver %q", sc.Driver)
	}
	busy, err := config.ParseDurationField("storage.busy_timeout", sc.BusyTimeout)
	if err != nil {
		return storage.Config{}, err
	}
	return storage.Config{
		Driver:      driver,
		Path:        strings.TrimSpace(sc.Path),
		BusyTimeout: busy,
	}, nil
}

func mapPprofConfig(cfg *config.Config) (pprof.Config, error) {
	if cfg == nil {
		return pprof.Config{}, nil
	}
	pc := cfg.Pprof

	read, err := config.ParseDurationOrDefault("pprof.read_timeout", pc.ReadTimeout, 5*time.Second)
	if err != nil {
		return pprof.Config{}, err
	}
	// WriteTimeout stays 0 unless set: the profile and trace endpoints stream
	// for tens of seconds and a short write deadline truncates them.
	write, err := config.ParseDurationField("pprof.write_timeout", pc.WriteTimeout)
	if err != nil {
		return pprof.Config{}, err
	}
	idle, err := config.ParseDurationOrDefault("pprof.idle_timeout", pc.IdleTimeout, 60*time.Second)
	if err != nil {
		return pprof.Config{}, err
	}

	return pprof.Config{
		Enabled:      pc.Enabled,
		Addr:         strings.TrimSpace(pc.Addr),
		ReadTimeout:  read,
		WriteTimeout: write,
		IdleTimeout:  idle,
	}, nil
}
