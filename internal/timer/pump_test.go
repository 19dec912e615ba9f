package timer

import (
	"testing"
	"time"
)

func TestDurationTicks(t *testing.T) {
	t.Parallel()
	tick := 10 * time.Millisecond
	tests := []struct {
		name string
		d    time.Duration
		want int64
	}{
		{name: "zero", d: 0, want: 0},
		{name: "negative", d: -5 * time.Millisecond, want: 0},
		{name: "sub tick rounds up", d: time.Nanosecond, want: 1},
		{name: "exact tick", d: 10 * time.Millisecond, want: 1},
		{name: "exact multiple", d: 50 * time.Millisecond, want: 5},
		{name: "rounds up", d: 11 * time.Millisecond, want: 2},
		{name: "just under multiple", d: 49 * time.Millisecond, want: 5},
	}
	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			if got := durationTicks(tt.d, tick); got != tt.want {
				t.Fatalf("durationTicks(%v, %v) = %d, want %d", tt.d, tick, got, tt.want)
			}
		})
	}
}

func TestIntervalTicks(t *testing.T) {
	t.Parallel()
	tick := 10 * time.Millisecond
	tests := []struct {
		name string
		d    time.Duration
		want int64
	}{
		{name: "zero floors to one", d: 0, want: 1},
		{name: "sub tick floors to one", d: 5 * time.Millisecond, want: 1},
		{name: "whole ticks", d: 100 * time.Millisecond, want: 10},
	}
	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			if got := intervalTicks(tt.d, tick); got != tt.want {
				t.Fatalf("intervalTicks(%v, %v) = %d, want %d", tt.d, tick, got, tt.want)
			}
		})
	}
}

func TestJobKindString(t *testing.T) {
	t.Parallel()
	if got := jobInterval.String(); got != "interval" {
		t.Fatalf("jobInterval = %q, want interval", got)
	}
	if got := jobHop.String(); got != "interval" {
		t.Fatalf("jobHop = %q, want interval", got)
	}
	if got := jobCron.String(); got != "cron" {
		t.Fatalf("jobCron = %q, want cron", got)
	}
	if got := jobOnce.String(); got != "once" {
		t.Fatalf("jobOnce = %q, want once", got)
	}
}
