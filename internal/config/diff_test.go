package config

import (
	"reflect"
	"testing"
)

func boolPtr(b bool) *bool { return &b }

func baseConfig() *Config {
	return &Config{
		Logging: LoggingConfig{Level: "info", Console: true},
		Timer: TimerConfig{
			Enabled:      true,
			WheelSize:    512,
			TickInterval: "100ms",
			Workers:      2,
			Jobs: []JobConfig{
				{Name: "beat", Spec: "@every 5s"},
				{Name: "backup", Spec: "0 3 * * *", Command: "/opt/backup.sh"},
			},
		},
		Storage: &StorageConfig{Driver: "file", Path: "./store"},
	}
}

func TestSummarizeConfigChangeNoChange(t *testing.T) {
	t.Parallel()

	changed, _, jobs := SummarizeConfigChange(baseConfig(), baseConfig())
	if len(changed) != 0 {
		t.Errorf("changed = %v, want empty", changed)
	}
	if len(jobs) != 0 {
		t.Errorf("jobs = %v, want empty", jobs)
	}
}

func TestSummarizeConfigChangeSections(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name   string
		mutate func(*Config)
		want   []string
	}{
		{
			"logging level",
			func(c *Config) { c.Logging.Level = "debug" },
			[]string{"logging"},
		},
		{
			"timer geometry",
			func(c *Config) { c.Timer.WheelSize = 1024 },
			[]string{"timer"},
		},
		{
			"storage driver",
			func(c *Config) { c.Storage.Driver = "sqlite" },
			[]string{"storage"},
		},
		{
			"storage dropped",
			func(c *Config) { c.Storage = nil },
			[]string{"storage"},
		},
		{
			"storage path moved",
			func(c *Config) { c.Storage.Path = "/var/lib/tickwheel/store" },
			[]string{"storage"},
		},
		{
			"pprof enabled",
			func(c *Config) { c.Pprof.Enabled = true },
			[]string{"pprof"},
		},
		{
			"systemd explicit off",
			func(c *Config) { c.Systemd.Watchdog = boolPtr(false) },
			[]string{"systemd"},
		},
		{
			"multiple sections sorted",
			func(c *Config) {
				c.Timer.Workers = 8
				c.Logging.Console = false
			},
			[]string{"logging", "timer"},
		},
	}
	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			newCfg := baseConfig()
			tt.mutate(newCfg)
			changed, _, _ := SummarizeConfigChange(baseConfig(), newCfg)
			if !reflect.DeepEqual(changed, tt.want) {
				t.Errorf("changed = %v, want %v", changed, tt.want)
			}
		})
	}
}

func TestSummarizeConfigChangeSystemdEffective(t *testing.T) {
	t.Parallel()

	// nil and explicit true are the same effective value; not a change.
	newCfg := baseConfig()
	newCfg.Systemd.Notify = boolPtr(true)
	newCfg.Systemd.Watchdog = boolPtr(true)
	changed, _, _ := SummarizeConfigChange(baseConfig(), newCfg)
	if len(changed) != 0 {
		t.Errorf("changed = %v, want empty for nil vs explicit true", changed)
	}
}

func TestDiffJobs(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name   string
		mutate func(*Config)
		want   []string
	}{
		{
			"job added",
			func(c *Config) {
				c.Timer.Jobs = append(c.Timer.Jobs, JobConfig{Name: "purge", Spec: "@daily"})
			},
			[]string{"purge"},
		},
		{
			"job removed",
			func(c *Config) { c.Timer.Jobs = c.Timer.Jobs[:1] },
			[]string{"backup"},
		},
		{
			"spec edited",
			func(c *Config) { c.Timer.Jobs[0].Spec = "@every 10s" },
			[]string{"beat"},
		},
		{
			"disabled",
			func(c *Config) { c.Timer.Jobs[1].Enabled = boolPtr(false) },
			[]string{"backup"},
		},
		{
			"timeout edited",
			func(c *Config) { c.Timer.Jobs[1].Timeout = "1m" },
			[]string{"backup"},
		},
	}
	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			newCfg := baseConfig()
			tt.mutate(newCfg)
			changed, _, jobs := SummarizeConfigChange(baseConfig(), newCfg)
			if !reflect.DeepEqual(jobs, tt.want) {
				t.Errorf("jobs = %v, want %v", jobs, tt.want)
			}
			found := false
			for _, s := range changed {
				if s == "timer.jobs" {
					found = true
				}
			}
			if !found {
				t.Errorf("changed = %v, want to include timer.jobs", changed)
			}
		})
	}
}
