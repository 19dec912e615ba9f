package storage

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	logx "tickwheel/pkg/logx"
)

func openTestStore(t *testing.T) Store {
	t.Helper()
	st, err := Open(Config{Driver: "file", Path: filepath.Join(t.TempDir(), "store")}, logx.Nop())
	if err != nil {
		t.Fatalf("Open() error = %v", err)
	}
	if st == nil {
		t.Fatal("Open() = nil store for file driver")
	}
	t.Cleanup(func() { _ = st.Close() })
	return st
}

func TestOpenDisabled(t *testing.T) {
	t.Parallel()

	for _, driver := range []string{"", "none", " NONE "} {
		st, err := Open(Config{Driver: driver}, logx.Nop())
		if err != nil {
			t.Errorf("Open(%q) error = %v, want nil", driver, err)
		}
		if st != nil {
			t.Errorf("Open(%q) = %v, want nil store", driver, st)
		}
	}
}

func TestOpenUnknownDriver(t *testing.T) {
	t.Parallel()

	if _, err := Open(Config{Driver: "postgres", Path: "x"}, logx.Nop()); err == nil {
		t.Fatal("Open(postgres) = nil error, want unknown driver")
	}
}

func TestOpenFileRequiresPath(t *testing.T) {
	t.Parallel()

	if _, err := Open(Config{Driver: "file"}, logx.Nop()); err == nil {
		t.Fatal("Open(file) without path = nil error, want error")
	}
}

func TestFileStoreAppendAndRecent(t *testing.T) {
	t.Parallel()

	st := openTestStore(t)
	ctx := context.Background()

	base := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	entries := []RunEntry{
		{At: base, Job: "beat", Tick: 1, OK: true, TookMS: 3},
		{At: base.Add(time.Second), Job: "backup", Tick: 2, OK: false, ExitCode: 1, Error: "exit status 1"},
		{At: base.Add(2 * time.Second), Job: "beat", Tick: 3, OK: true, TookMS: 2},
		{At: base.Add(3 * time.Second), Job: "beat", Tick: 4, OK: true, TookMS: 4},
	}
	for _, e := range entries {
		if err := st.AppendRun(ctx, e); err != nil {
			t.Fatalf("AppendRun(%s tick %d) error = %v", e.Job, e.Tick, err)
		}
	}

	got, err := st.RecentRuns(ctx, "", 3)
	if err != nil {
		t.Fatalf("RecentRuns() error = %v", err)
	}
	if len(got) != 3 {
		t.Fatalf("len(RecentRuns) = %d, want 3", len(got))
	}
	// Newest first.
	wantTicks := []int64{4, 3, 2}
	for i, e := range got {
		if e.Tick != wantTicks[i] {
			t.Errorf("RecentRuns[%d].Tick = %d, want %d", i, e.Tick, wantTicks[i])
		}
	}

	beat, err := st.RecentRuns(ctx, "beat", 10)
	if err != nil {
		t.Fatalf("RecentRuns(beat) error = %v", err)
	}
	if len(beat) != 3 {
		t.Fatalf("len(RecentRuns beat) = %d, want 3", len(beat))
	}
	for _, e := range beat {
		if e.Job != "beat" {
			t.Errorf("RecentRuns(beat) returned job %q", e.Job)
		}
	}

	if none, err := st.RecentRuns(ctx, "ghost", 10); err != nil || len(none) != 0 {
		t.Errorf("RecentRuns(ghost) = (%v, %v), want empty", none, err)
	}
}

func TestFileStoreRecentBeforeAnyAppend(t *testing.T) {
	t.Parallel()

	st := openTestStore(t)
	got, err := st.RecentRuns(context.Background(), "", 5)
	if err != nil {
		t.Fatalf("RecentRuns() error = %v", err)
	}
	if len(got) != 0 {
		t.Errorf("RecentRuns() = %v, want empty", got)
	}
}

func TestFileStoreFieldsSurvive(t *testing.T) {
	t.Parallel()

	st := openTestStore(t)
	ctx := context.Background()

	in := RunEntry{
		At:       time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC),
		Job:      "backup",
		Tick:     42,
		OK:       false,
		ExitCode: 2,
		Error:    "exit status 2",
		TookMS:   1500,
		Output:   "tar: /data: permission denied",
	}
	if err := st.AppendRun(ctx, in); err != nil {
		t.Fatalf("AppendRun() error = %v", err)
	}
	got, err := st.RecentRuns(ctx, "backup", 1)
	if err != nil {
		t.Fatalf("RecentRuns() error = %v", err)
	}
	if len(got) != 1 {
		t.Fatalf("len(RecentRuns) = %d, want 1", len(got))
	}
	e := got[0]
	if !e.At.Equal(in.At) || e.Tick != in.Tick || e.OK != in.OK ||
		e.ExitCode != in.ExitCode || e.Error != in.Error || e.TookMS != in.TookMS || e.Output != in.Output {
		t.Errorf("round-trip entry = %+v, want %+v", e, in)
	}
}

func TestFileStoreClosed(t *testing.T) {
	t.Parallel()

	st := openTestStore(t)
	if err := st.Close(); err != nil {
		t.Fatalf("Close() error = %v", err)
	}
	// Idempotent close.
	if err := st.Close(); err != nil {
		t.Fatalf("second Close() error = %v", err)
	}
	if err := st.AppendRun(context.Background(), RunEntry{Job: "x"}); err == nil {
		t.Error("AppendRun after Close = nil error, want error")
	}
	if _, err := st.RecentRuns(context.Background(), "", 1); err == nil {
		t.Error("RecentRuns after Close = nil error, want error")
	}
}
