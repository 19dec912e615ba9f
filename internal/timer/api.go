package timer

import (
	"context"
	"fmt"
	"strings"
	"time"
)

// submit enqueues a command for the pump. The returned channel is the
// current run's stop signal; callers waiting for a reply must also select
// on it so a concurrent Stop cannot strand them.
func (s *Service) submit(cmd command) (<-chan struct{}, error) {
	s.mu.Lock()
	if s.stopCh == nil || s.stopDone != nil {
		s.mu.Unlock()
		return nil, ErrStopped
	}
	cmds := s.cmds
	stopCh := s.stopCh
	s.mu.Unlock()

	select {
	case cmds <- cmd:
		return stopCh, nil
	default:
	}
	select {
	case cmds <- cmd:
		return stopCh, nil
	case <-stopCh:
		return nil, ErrStopped
	case <-time.After(2 * time.Second):
		return nil, ErrBusy
	}
}

func (s *Service) dynamicJob(name string, fn func(ctx context.Context) error) (*job, Config, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, Config{}, ErrNameRequired
	}
	if fn == nil {
		return nil, Config{}, fmt.Errorf("timer: job %q: nil func", name)
	}
	s.mu.Lock()
	cfg := s.cfg.withDefaults()
	s.mu.Unlock()
	j := &job{
		name: name,
		exec: func(ctx context.Context) (string, int, error) { return "", 0, fn(ctx) },
	}
	return j, cfg, nil
}

// After registers fn to run once, delay from now. The job shows up in
// snapshots under name and replaces any same-named job. Dynamic jobs do
// not survive a configuration reload; see Apply.
func (s *Service) After(name string, delay time.Duration, fn func(ctx context.Context) error) error {
	if delay < 0 {
		delay = 0
	}
	j, cfg, err := s.dynamicJob(name, fn)
	if err != nil {
		return err
	}
	j.kind = jobOnce
	j.spec = "after " + delay.String()
	j.every = delay
	j.ticks = durationTicks(delay, cfg.TickInterval)
	_, err = s.submit(command{kind: cmdArm, job: j})
	return err
}

// Every registers fn to run repeatedly at the given interval, first run
// one interval from now. Same naming and lifetime rules as After.
func (s *Service) Every(name string, every time.Duration, fn func(ctx context.Context) error) error {
	if every <= 0 {
		return fmt.Errorf("timer: job %q: interval must be > 0", name)
	}
	j, cfg, err := s.dynamicJob(name, fn)
	if err != nil {
		return err
	}
	j.spec = "@every " + every.String()
	j.every = every
	j.ticks = intervalTicks(every, cfg.TickInterval)
	if j.ticks < int64(cfg.WheelSize) {
		j.kind = jobInterval
	} else {
		j.kind = jobHop
	}
	_, err = s.submit(command{kind: cmdArm, job: j})
	return err
}

// Cancel removes the named job, configured or dynamic. It reports whether
// the job existed; a stopped service reports false.
func (s *Service) Cancel(name string) bool {
	okCh := make(chan bool, 1)
	stopCh, err := s.submit(command{kind: cmdCancel, name: strings.TrimSpace(name), okCh: okCh})
	if err != nil {
		return false
	}
	select {
	case ok := <-okCh:
		return ok
	case <-stopCh:
		return false
	}
}

// Snapshot returns a point-in-time view. When the pump is running the job
// table and tick come from it; otherwise the static parts are served from
// config so callers always get an answer.
func (s *Service) Snapshot(ctx context.Context) Snapshot {
	s.mu.Lock()
	cfg := s.cfg.withDefaults()
	running := s.stopCh != nil && s.stopDone == nil
	var qLen, qCap int
	if s.queue != nil {
		qLen, qCap = len(s.queue), cap(s.queue)
	}
	s.mu.Unlock()

	snap := Snapshot{
		Enabled:      cfg.Enabled,
		Running:      running,
		WheelSize:    cfg.WheelSize,
		TickInterval: cfg.TickInterval,
		Clock:        cfg.Clock,
		Workers:      cfg.Workers,
		QueueLen:     qLen,
		QueueCap:     qCap,
		Dropped:      s.dropped.Load(),
		Suppressed:   s.suppressed.Load(),
		History:      s.History(0),
	}
	if !running {
		return snap
	}
	reply := make(chan Snapshot, 1)
	stopCh, err := s.submit(command{kind: cmdSnapshot, snapCh: reply})
	if err != nil {
		snap.Running = false
		return snap
	}
	select {
	case live := <-reply:
		snap.Tick = live.Tick
		snap.Jobs = live.Jobs
	case <-stopCh:
		snap.Running = false
	case <-ctx.Done():
	}
	return snap
}

// History returns recent run records, newest first. n <= 0 means all.
func (s *Service) History(n int) []RunRecord {
	s.hmu.Lock()
	defer s.hmu.Unlock()
	h := s.history
	if n > 0 && len(h) > n {
		h = h[len(h)-n:]
	}
	out := make([]RunRecord, len(h))
	for i := range h {
		out[len(h)-1-i] = h[i]
	}
	return out
}
