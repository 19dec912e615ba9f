package wheel

import "testing"

func TestStateString(t *testing.T) {
	t.Parallel()
	tests := []struct {
		state State
		want  string
	}{
		{StateIdle, "idle"},
		{StateScheduled, "scheduled"},
		{StateRunning, "running"},
		{StateExecuted, "executed"},
		{StateCancelled, "cancelled"},
		{State(99), "unknown"},
	}
	for _, tt := range tests {
		if got := tt.state.String(); got != tt.want {
			t.Fatalf("State(%d).String() = %q, want %q", tt.state, got, tt.want)
		}
	}
}

func TestStateTerminal(t *testing.T) {
	t.Parallel()
	for _, s := range []State{StateIdle, StateScheduled, StateRunning} {
		if s.Terminal() {
			t.Fatalf("%v should not be terminal", s)
		}
	}
	for _, s := range []State{StateExecuted, StateCancelled} {
		if !s.Terminal() {
			t.Fatalf("%v should be terminal", s)
		}
	}
}

func TestCancelOutsideLifecycle(t *testing.T) {
	t.Parallel()

	idle := NewTaskFunc(func() {})
	if idle.Cancel() {
		t.Fatal("cancelling a never-scheduled task should return false")
	}
	if idle.State() != StateIdle {
		t.Fatalf("state = %v, want idle", idle.State())
	}

	w, err := New(4)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	done := NewTaskFunc(func() {})
	if err := w.Schedule(done); err != nil {
		t.Fatalf("Schedule: %v", err)
	}
	w.Advance()
	if done.State() != StateExecuted {
		t.Fatalf("state = %v, want executed", done.State())
	}
	if done.Cancel() {
		t.Fatal("cancelling an executed task should return false")
	}
	if done.State() != StateExecuted {
		t.Fatal("cancel must not overwrite a terminal state")
	}
}
