package timer

import (
	"context"
	"fmt"
	"runtime/debug"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/benbjohnson/clock"
	"github.com/robfig/cron/v3"
	"golang.org/x/time/rate"

	"tickwheel/internal/eventbus"
	"tickwheel/pkg/logx"
	"tickwheel/pkg/wheel"
)

// Service owns a timing wheel and the goroutines around it: one pump that
// advances the wheel and applies scheduling commands, and a bounded worker
// pool that executes due jobs.
type Service struct {
	mu sync.Mutex

	log logx.Logger
	bus eventbus.Bus
	cfg Config
	loc *time.Location

	parser cron.Parser
	clk    clock.Clock

	queue chan run
	cmds  chan command

	stopCh chan struct{}
	// stopDone is non-nil while a Stop() is in progress; it is closed when
	// the pump and workers fully exit.
	stopDone chan struct{}

	// parent is the context Start was last called with; Apply restarts
	// reuse it so a reloaded service inherits the original lifetime.
	parent    context.Context
	runCtx    context.Context
	runCancel context.CancelFunc
	wg        sync.WaitGroup

	// limiter throttles failure and drop warnings; suppressed counts the
	// ones it swallowed.
	limiter    *rate.Limiter
	dropped    atomic.Uint64
	suppressed atomic.Uint64

	hmu     sync.Mutex
	history []RunRecord
	histCap int
}

// RunStart is the bus payload for EventJobStarted.
type RunStart struct {
	Job  string    `json:"job"`
	Tick int64     `json:"tick"`
	At   time.Time `json:"at"`
}

func New(cfg Config, log logx.Logger, bus eventbus.Bus) *Service {
	return &Service{
		cfg: cfg,
		log: log,
		bus: bus,
		// SecondOptional allows both 5-field and 6-field (with seconds) cron specs.
		parser: cron.NewParser(cron.SecondOptional | cron.Minute | cron.Hour | cron.Dom | cron.Month | cron.Dow | cron.Descriptor),
		clk:    clock.New(),
	}
}

// Validate reports whether cfg can be started. It is meant for config
// validators, so it checks everything Start would trip over: geometry,
// clock mode, timezone, and every job spec.
func Validate(cfg Config) error {
	c := cfg.withDefaults()
	if c.WheelSize < 2 {
		return fmt.Errorf("timer: wheel_size must be at least 2, got %d", cfg.WheelSize)
	}
	if c.TickInterval < time.Millisecond {
		return fmt.Errorf("timer: tick_interval must be at least 1ms, got %v", cfg.TickInterval)
	}
	switch c.Clock {
	case ClockMonotonic, ClockCounter:
	default:
		return fmt.Errorf("timer: unknown clock %q (use %q or %q)", c.Clock, ClockMonotonic, ClockCounter)
	}
	if tz := strings.TrimSpace(c.Timezone); tz != "" {
		if _, err := time.LoadLocation(tz); err != nil {
			return fmt.Errorf("timer: invalid timezone %q: %w", tz, err)
		}
	}
	parser := cron.NewParser(cron.SecondOptional | cron.Minute | cron.Hour | cron.Dom | cron.Month | cron.Dow | cron.Descriptor)
	seen := map[string]bool{}
	for i, js := range c.Jobs {
		name := strings.TrimSpace(js.Name)
		if name == "" {
			return fmt.Errorf("timer: job %d: name required", i)
		}
		if seen[name] {
			return fmt.Errorf("timer: duplicate job name %q", name)
		}
		seen[name] = true
		ps, err := ParseSpec(js.Spec)
		if err != nil {
			return fmt.Errorf("timer: job %q: %w", name, err)
		}
		if ps.Kind == SpecCron {
			if _, err := parser.Parse(ps.Cron); err != nil {
				return fmt.Errorf("timer: job %q: invalid cron %q: %w", name, ps.Cron, err)
			}
		}
		if js.Timeout < 0 {
			return fmt.Errorf("timer: job %q: negative timeout", name)
		}
	}
	return nil
}

// Enabled reports the current config flag. (Thread-safe; Apply() may run concurrently.)
func (s *Service) Enabled() bool {
	s.mu.Lock()
	en := s.cfg.Enabled
	s.mu.Unlock()
	return en
}

// Start brings up the wheel, the pump, and the worker pool. It is a no-op
// when the config disables the service or when it is already running; a
// Stop() in progress is waited out first.
func (s *Service) Start(ctx context.Context) error {
	s.mu.Lock()
	// Record the parent context even when disabled, so a later enable via
	// Apply() can start under the original lifetime.
	s.parent = ctx
	cur := s.cfg.withDefaults()
	s.mu.Unlock()
	if !cur.Enabled {
		s.log.Info("timer disabled")
		return nil
	}
	s.log.Debug("start requested",
		logx.Int("wheel_size", cur.WheelSize),
		logx.Duration("tick", cur.TickInterval),
		logx.String("clock", cur.Clock),
		logx.Int("workers", cur.Workers))

	// If a Stop() is in progress, wait for it to complete (prevents double pumps).
	for {
		s.mu.Lock()
		if s.stopCh == nil {
			break
		}
		done := s.stopDone
		// already running (no stop in progress)
		if done == nil {
			s.mu.Unlock()
			return nil
		}
		s.mu.Unlock()
		select {
		case <-done:
			// loop and try again
		case <-ctx.Done():
			return ctx.Err()
		}
	}
	defer s.mu.Unlock()

	cfg := s.cfg.withDefaults()
	if !cfg.Enabled {
		return nil
	}
	loc := s.loadLocationLocked()

	jobs := make([]*job, 0, len(cfg.Jobs))
	for _, js := range cfg.Jobs {
		if !js.Enabled {
			continue
		}
		j, err := s.buildJob(cfg, js)
		if err != nil {
			return err
		}
		jobs = append(jobs, j)
	}

	w, err := s.newWheel(cfg)
	if err != nil {
		return err
	}

	s.loc = loc
	s.stopCh = make(chan struct{})
	s.runCtx, s.runCancel = context.WithCancel(ctx)
	// Fresh channels per run so a stop/start toggle never executes stale work.
	s.queue = make(chan run, cfg.QueueSize)
	s.cmds = make(chan command, 16)
	s.limiter = rate.NewLimiter(rate.Every(cfg.FailureLogEvery), 1)
	s.hmu.Lock()
	s.histCap = cfg.HistorySize
	s.hmu.Unlock()

	p := &pumpState{
		s:     s,
		w:     w,
		jobs:  map[string]*job{},
		queue: s.queue,
		tick:  cfg.TickInterval,
		loc:   loc,
	}
	for _, j := range jobs {
		p.addJob(j)
	}

	// Local captures prevent races if fields are swapped/nilled during Stop().
	runCtx := s.runCtx
	stopCh := s.stopCh
	queue := s.queue
	cmds := s.cmds

	s.wg.Add(1 + cfg.Workers)
	go func() {
		defer s.wg.Done()
		defer func() {
			if r := recover(); r != nil {
				s.log.Error("panic in timer pump", logx.Any("panic", r), logx.String("stack", string(debug.Stack())))
			}
		}()
		s.pump(runCtx, stopCh, cmds, p)
	}()
	for i := 0; i < cfg.Workers; i++ {
		idx := i
		go func() {
			defer s.wg.Done()
			defer func() {
				if r := recover(); r != nil {
					s.log.Error("panic in timer worker", logx.Int("worker", idx), logx.Any("panic", r), logx.String("stack", string(debug.Stack())))
				}
			}()
			s.log.Debug("worker started", logx.Int("worker", idx))
			s.worker(runCtx, stopCh, queue, idx)
			s.log.Debug("worker stopped", logx.Int("worker", idx))
		}()
	}

	s.log.Info("timer started",
		logx.Int("wheel_size", cfg.WheelSize),
		logx.Duration("tick", cfg.TickInterval),
		logx.String("clock", cfg.Clock),
		logx.Int("workers", cfg.Workers),
		logx.String("tz", loc.String()),
		logx.Int("jobs", len(jobs)))
	return nil
}

// Stop shuts the pump and workers down. If ctx expires first, cleanup
// continues in the background and a subsequent Start waits for it.
func (s *Service) Stop(ctx context.Context) {
	start := time.Now()
	// If a stop is already in progress, just wait (best-effort).
	s.mu.Lock()
	if s.stopCh == nil {
		s.mu.Unlock()
		return
	}
	if s.stopDone != nil {
		done := s.stopDone
		s.mu.Unlock()
		select {
		case <-done:
			return
		case <-ctx.Done():
			return
		}
	}
	s.log.Info("stop requested")
	// Initiate stop.
	done := make(chan struct{})
	s.stopDone = done
	stopCh := s.stopCh
	cancel := s.runCancel
	s.runCancel = nil
	s.mu.Unlock()

	// signal pump and workers to exit promptly
	close(stopCh)
	if cancel != nil {
		cancel()
	}

	// finalize cleanup in background so Stop() can return on timeout safely.
	go func() {
		s.wg.Wait()
		s.mu.Lock()
		s.stopCh = nil
		s.runCtx = nil
		s.queue = nil
		s.cmds = nil
		s.stopDone = nil
		s.mu.Unlock()
		close(done)
		s.log.Info("timer stopped", logx.Duration("took", time.Since(start)))
	}()

	select {
	case <-done:
		return
	case <-ctx.Done():
		// stop continues in background
		return
	}
}

// Apply swaps the configuration in. When the service is running this is a
// full restart, so dynamic After/Every jobs do not survive; callers should
// invoke it only when the timer section actually changed. A service that
// was stopped (or disabled) is started when the new config enables it.
func (s *Service) Apply(cfg Config) {
	s.mu.Lock()
	s.cfg = cfg
	running := s.stopCh != nil
	parent := s.parent
	s.mu.Unlock()

	if running {
		s.log.Info("configuration changed, restarting timer")
		stopCtx, cancelStop := context.WithTimeout(context.Background(), 10*time.Second)
		s.Stop(stopCtx)
		cancelStop()
	}
	if !cfg.Enabled {
		return
	}
	if parent == nil || parent.Err() != nil {
		return
	}
	if err := s.Start(parent); err != nil {
		s.log.Error("timer restart failed", logx.Err(err))
	}
}

func (s *Service) newWheel(cfg Config) (*wheel.Wheel, error) {
	log := s.log
	opts := []wheel.Option{
		wheel.WithLogger(wheel.LoggerFunc(func(format string, args ...any) {
			log.Error(fmt.Sprintf(format, args...))
		})),
	}
	if cfg.Clock != ClockCounter {
		clk := s.clk
		epoch := clk.Now()
		opts = append(opts, wheel.WithClock(func() int64 {
			return int64(clk.Since(epoch))
		}, int64(cfg.TickInterval)))
	}
	return wheel.New(cfg.WheelSize, opts...)
}

func (s *Service) buildJob(cfg Config, js JobSpec) (*job, error) {
	name := strings.TrimSpace(js.Name)
	if name == "" {
		return nil, ErrNameRequired
	}
	ps, err := ParseSpec(js.Spec)
	if err != nil {
		return nil, fmt.Errorf("job %q: %w", name, err)
	}
	j := &job{
		name:    name,
		spec:    strings.TrimSpace(js.Spec),
		timeout: js.Timeout,
		exec:    s.execFor(name, js.Command),
	}
	switch ps.Kind {
	case SpecInterval:
		j.every = ps.Every
		j.ticks = intervalTicks(ps.Every, cfg.TickInterval)
		if j.ticks < int64(cfg.WheelSize) {
			j.kind = jobInterval
		} else {
			j.kind = jobHop
		}
	case SpecCron:
		sched, err := s.parser.Parse(ps.Cron)
		if err != nil {
			return nil, fmt.Errorf("job %q: invalid cron %q: %w", name, ps.Cron, err)
		}
		j.kind = jobCron
		j.sched = sched
	}
	return j, nil
}

// execFor resolves a job's command into an execFn. An empty command is a
// heartbeat: the run is just a log line, useful for liveness checks.
func (s *Service) execFor(name, command string) execFn {
	command = strings.TrimSpace(command)
	if command == "" {
		return func(ctx context.Context) (string, int, error) {
			s.log.Info("heartbeat", logx.String("job", name))
			return "", 0, nil
		}
	}
	return func(ctx context.Context) (string, int, error) {
		return runCommand(ctx, command)
	}
}

func (s *Service) loadLocationLocked() *time.Location {
	tz := strings.TrimSpace(s.cfg.Timezone)
	if tz == "" {
		return time.Local
	}
	loc, err := time.LoadLocation(tz)
	if err != nil {
		s.log.Warn("invalid timezone, using local", logx.String("tz", tz), logx.Err(err))
		return time.Local
	}
	return loc
}

func (s *Service) publish(typ string, data any) {
	if s.bus == nil {
		return
	}
	s.bus.Publish(eventbus.Event{Type: typ, Time: time.Now(), Data: data})
}

// noteDrop is called by the pump when the executor queue is full. The run
// is lost; the event still goes out so observers can record it.
func (s *Service) noteDrop(name string, tick int64) {
	if s.limiter.Allow() {
		s.log.Warn("run dropped, executor queue full",
			logx.String("job", name),
			logx.Int64("tick", tick),
			logx.Uint64("dropped", s.dropped.Load()))
	} else {
		s.suppressed.Add(1)
	}
	s.publish(EventJobDropped, RunRecord{
		Job:     name,
		Tick:    tick,
		Started: s.clk.Now(),
		Error:   "executor queue full",
	})
}
