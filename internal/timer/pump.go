package timer

import (
	"context"
	"sort"
	"time"

	"tickwheel/pkg/logx"
	"tickwheel/pkg/wheel"
)

type cmdKind int

const (
	cmdArm cmdKind = iota
	cmdCancel
	cmdSnapshot
)

// command is the pump's mailbox entry. Reply channels must be buffered so
// the pump never blocks on a caller.
type command struct {
	kind   cmdKind
	job    *job          // cmdArm
	name   string        // cmdCancel
	okCh   chan bool     // cmdCancel reply
	snapCh chan Snapshot // cmdSnapshot reply
}

// pumpState is everything the pump goroutine owns. Nothing here is locked:
// the wheel's single-owner contract is upheld by funneling all mutations
// through the command channel.
type pumpState struct {
	s     *Service
	w     *wheel.Wheel
	jobs  map[string]*job
	queue chan run
	tick  time.Duration
	loc   *time.Location
}

// pump is the wheel's owner goroutine. The ticker drives Advance; commands
// interleave between ticks.
func (s *Service) pump(ctx context.Context, stopCh <-chan struct{}, cmds <-chan command, p *pumpState) {
	ticker := s.clk.Ticker(p.tick)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-stopCh:
			return
		case <-ticker.C:
			p.w.Advance()
		case cmd := <-cmds:
			p.handle(cmd)
		}
	}
}

func (p *pumpState) handle(cmd command) {
	switch cmd.kind {
	case cmdArm:
		p.addJob(cmd.job)
	case cmdCancel:
		j, ok := p.jobs[cmd.name]
		if ok {
			if j.task != nil {
				j.task.Cancel()
			}
			delete(p.jobs, cmd.name)
			p.s.log.Debug("job cancelled", logx.String("job", cmd.name))
		}
		if cmd.okCh != nil {
			cmd.okCh <- ok
		}
	case cmdSnapshot:
		if cmd.snapCh != nil {
			cmd.snapCh <- p.snapshot()
		}
	}
}

// addJob registers and arms j, replacing any existing job with the same
// name (last write wins, same as config upserts).
func (p *pumpState) addJob(j *job) {
	if prev, ok := p.jobs[j.name]; ok {
		if prev.task != nil {
			prev.task.Cancel()
		}
		p.s.log.Debug("job replaced", logx.String("job", j.name))
	}
	p.jobs[j.name] = j
	if !p.arm(j) {
		delete(p.jobs, j.name)
		return
	}
	p.s.log.Debug("job armed",
		logx.String("job", j.name),
		logx.String("kind", j.kind.String()),
		logx.String("spec", j.spec),
		logx.Int64("due_tick", j.dueTick))
}

func (p *pumpState) arm(j *job) bool {
	switch j.kind {
	case jobInterval:
		t := wheel.NewTaskFunc(func() { p.dispatch(j) })
		j.task = t
		j.dueTick = p.w.Now() + j.ticks
		j.nextAt = p.s.clk.Now().Add(time.Duration(j.ticks) * p.tick)
		if err := p.w.ScheduleEvery(t, int(j.ticks), int(j.ticks)); err != nil {
			p.s.log.Error("job arm failed", logx.String("job", j.name), logx.Err(err))
			return false
		}
		return true
	case jobHop, jobOnce:
		j.dueTick = p.w.Now() + j.ticks
		j.nextAt = p.s.clk.Now().Add(time.Duration(j.ticks) * p.tick)
		p.armHop(j)
		return true
	case jobCron:
		return p.armCron(j)
	default:
		return false
	}
}

// armCron computes the schedule's next wall time, converts it to a due
// tick, and starts a hop chain toward it. False means the schedule has no
// future run.
func (p *pumpState) armCron(j *job) bool {
	now := p.s.clk.Now().In(p.loc)
	next := j.sched.Next(now)
	if next.IsZero() {
		p.s.log.Warn("cron schedule has no future run", logx.String("job", j.name), logx.String("spec", j.spec))
		return false
	}
	j.nextAt = next
	j.dueTick = p.w.Now() + durationTicks(next.Sub(now), p.tick)
	p.armHop(j)
	return true
}

// armHop arms a one-shot at most one rotation out. The wheel can only
// express size-1 ticks of delay, so far-off due ticks are reached through
// intermediate waypoints that hopFired re-arms.
func (p *pumpState) armHop(j *job) {
	cur := p.w.Now()
	hop := j.dueTick - cur
	if hop < 0 {
		hop = 0
	}
	if m := int64(p.w.Size() - 1); hop > m {
		hop = m
	}
	t := wheel.NewTaskFunc(func() { p.hopFired(j) })
	j.task = t
	if err := p.w.ScheduleAfter(t, int(hop)); err != nil {
		p.s.log.Error("job arm failed", logx.String("job", j.name), logx.Err(err))
	}
}

// hopFired runs inside the wheel callback for hop-chain jobs. A fire
// before the due tick is a waypoint; at or past it, the job dispatches and
// the next occurrence is armed.
func (p *pumpState) hopFired(j *job) {
	if p.w.Now() < j.dueTick {
		p.armHop(j)
		return
	}
	p.dispatch(j)
	if !p.scheduleNext(j) {
		j.task = nil
		delete(p.jobs, j.name)
	}
}

// scheduleNext arms the occurrence after a dispatch. False retires the job.
func (p *pumpState) scheduleNext(j *job) bool {
	switch j.kind {
	case jobHop:
		j.dueTick += j.ticks
		if cur := p.w.Now(); j.dueTick <= cur {
			// occurrences missed during a stall collapse into one
			j.dueTick = cur + j.ticks
		}
		j.nextAt = p.s.clk.Now().Add(time.Duration(j.dueTick-p.w.Now()) * p.tick)
		p.armHop(j)
		return true
	case jobCron:
		return p.armCron(j)
	default:
		return false
	}
}

// dispatch hands a due job to the worker pool. The pump never blocks: a
// full queue drops the run and counts it.
func (p *pumpState) dispatch(j *job) {
	tick := p.w.Now()
	if j.kind == jobInterval {
		j.dueTick = tick + j.ticks
		j.nextAt = p.s.clk.Now().Add(time.Duration(j.ticks) * p.tick)
	}
	select {
	case p.queue <- run{job: j, tick: tick}:
	default:
		p.s.dropped.Add(1)
		p.s.noteDrop(j.name, tick)
	}
}

func (p *pumpState) snapshot() Snapshot {
	jobs := make([]JobInfo, 0, len(p.jobs))
	for _, j := range p.jobs {
		jobs = append(jobs, JobInfo{
			Name:     j.name,
			Spec:     j.spec,
			Kind:     j.kind.String(),
			NextTick: j.dueTick,
			NextAt:   j.nextAt,
			Runs:     j.runs.Load(),
			Fails:    j.fails.Load(),
		})
	}
	sort.Slice(jobs, func(i, k int) bool { return jobs[i].Name < jobs[k].Name })
	return Snapshot{Tick: p.w.Now(), Jobs: jobs}
}

// durationTicks converts a real delay to whole ticks, rounding up so a
// nonzero delay never lands in the past. Non-positive delays are zero.
func durationTicks(d, tick time.Duration) int64 {
	if d <= 0 {
		return 0
	}
	return int64((d + tick - 1) / tick)
}

// intervalTicks is durationTicks with a floor of one: a period of zero
// ticks cannot ride the wheel, so sub-tick intervals fire every tick.
func intervalTicks(d, tick time.Duration) int64 {
	if n := durationTicks(d, tick); n > 0 {
		return n
	}
	return 1
}
