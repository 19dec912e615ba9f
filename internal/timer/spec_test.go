package timer

import (
	"testing"
	"time"
)

func TestParseSpecVariants(t *testing.T) {
	t.Parallel()
	tests := []struct {
		name     string
		raw      string
		kind     SpecKind
		source   string
		duration time.Duration
	}{
		{name: "cron", raw: "*/5 * * * *", kind: SpecCron, source: "cron"},
		{name: "cron with seconds", raw: "30 */5 * * * *", kind: SpecCron, source: "cron"},
		{name: "cron descriptor", raw: "@hourly", kind: SpecCron, source: "cron"},
		{name: "prefixed cron", raw: "cron:0 0 * * *", kind: SpecCron, source: "cron"},
		{name: "at every", raw: "@every 90s", kind: SpecInterval, source: "duration", duration: 90 * time.Second},
		{name: "at every sub second", raw: "@every 250ms", kind: SpecInterval, source: "duration", duration: 250 * time.Millisecond},
		{name: "duration", raw: "10m", kind: SpecInterval, source: "duration", duration: 10 * time.Minute},
		{name: "prefixed interval", raw: "interval:45s", kind: SpecInterval, source: "duration", duration: 45 * time.Second},
		{name: "prefixed every", raw: "every:02:30", kind: SpecInterval, source: "hhmm", duration: 2*time.Hour + 30*time.Minute},
		{name: "hhmm", raw: "01:30", kind: SpecInterval, source: "hhmm", duration: 90 * time.Minute},
		{name: "hhmm minutes only", raw: "00:50", kind: SpecInterval, source: "hhmm", duration: 50 * time.Minute},
		{name: "padded", raw: "  55m  ", kind: SpecInterval, source: "duration", duration: 55 * time.Minute},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			got, err := ParseSpec(tt.raw)
			if err != nil {
				t.Fatalf("ParseSpec(%q) error: %v", tt.raw, err)
			}
			if got.Kind != tt.kind {
				t.Fatalf("Kind = %v, want %v", got.Kind, tt.kind)
			}
			if got.Source != tt.source {
				t.Fatalf("Source = %s, want %s", got.Source, tt.source)
			}
			if tt.kind == SpecInterval && got.Every != tt.duration {
				t.Fatalf("Every = %v, want %v", got.Every, tt.duration)
			}
		})
	}
}

func TestParseSpecInvalid(t *testing.T) {
	t.Parallel()
	tests := []struct {
		name string
		raw  string
	}{
		{name: "garbage", raw: "not-a-schedule"},
		{name: "empty", raw: "   "},
		{name: "empty cron prefix", raw: "cron:"},
		{name: "empty interval prefix", raw: "interval: "},
		{name: "bare at every", raw: "@every"},
		{name: "at every garbage", raw: "@every soon"},
		{name: "zero interval", raw: "0s"},
		{name: "negative interval", raw: "every:-5m"},
		{name: "bad minutes", raw: "01:75"},
	}
	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			if _, err := ParseSpec(tt.raw); err == nil {
				t.Fatalf("ParseSpec(%q) succeeded, want error", tt.raw)
			}
		})
	}
}

func TestParseHHMMDuration(t *testing.T) {
	t.Parallel()
	d, src, err := parseHHMMDuration("123:05")
	if err != nil {
		t.Fatalf("parseHHMMDuration error: %v", err)
	}
	if src != "hhmm" {
		t.Fatalf("source = %s, want hhmm", src)
	}
	if want := 123*time.Hour + 5*time.Minute; d != want {
		t.Fatalf("duration = %v, want %v", d, want)
	}

	if _, _, err := parseHHMMDuration("00:00"); err == nil {
		t.Fatal("expected error for zero interval")
	}
	if _, _, err := parseHHMMDuration("00:60"); err == nil {
		t.Fatal("expected error for invalid minutes")
	}
}
