package timer

import (
	"context"
	"errors"
	"fmt"
	"os/exec"
	"runtime/debug"
	"strings"
	"time"

	"tickwheel/pkg/logx"
)

// maxOutputBytes caps captured command output so one chatty job cannot
// bloat history and run records.
const maxOutputBytes = 4 << 10

func (s *Service) worker(ctx context.Context, stopCh <-chan struct{}, queue <-chan run, idx int) {
	for {
		// Fast-exit check so a closed stopCh wins over queued work.
		select {
		case <-ctx.Done():
			return
		case <-stopCh:
			return
		default:
		}

		select {
		case <-ctx.Done():
			return
		case <-stopCh:
			return
		case r := <-queue:
			s.execOne(ctx, r)
		}
	}
}

func (s *Service) execOne(ctx context.Context, r run) {
	j := r.job
	started := s.clk.Now()
	s.publish(EventJobStarted, RunStart{Job: j.name, Tick: r.tick, At: started})

	runCtx := ctx
	var cancel context.CancelFunc
	if j.timeout > 0 {
		runCtx, cancel = context.WithTimeout(ctx, j.timeout)
	}
	out, exit, err := s.runExec(runCtx, j)
	if cancel != nil {
		cancel()
	}
	dur := s.clk.Since(started)
	j.runs.Add(1)

	rec := RunRecord{
		Job:      j.name,
		Tick:     r.tick,
		Started:  started,
		Duration: dur,
		OK:       err == nil,
		ExitCode: exit,
		Output:   out,
	}
	if err != nil {
		rec.Error = err.Error()
		j.fails.Add(1)
		if s.limiter.Allow() {
			s.log.Warn("job failed",
				logx.String("job", j.name),
				logx.Int64("tick", r.tick),
				logx.Duration("took", dur),
				logx.Int("exit", exit),
				logx.Err(err))
		} else {
			s.suppressed.Add(1)
		}
		s.appendHistory(rec)
		s.publish(EventJobFailed, rec)
		return
	}

	// Avoid noisy logs for very frequent jobs: only elevate to INFO when it took noticeable time.
	if dur >= 750*time.Millisecond {
		s.log.Info("job finished", logx.String("job", j.name), logx.Int64("tick", r.tick), logx.Duration("took", dur))
	} else {
		s.log.Debug("job finished", logx.String("job", j.name), logx.Int64("tick", r.tick), logx.Duration("took", dur))
	}
	s.appendHistory(rec)
	s.publish(EventJobFinished, rec)
}

// runExec invokes the job function with panic containment, so one bad job
// cannot take a worker down.
func (s *Service) runExec(ctx context.Context, j *job) (out string, exit int, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("panic: %v", r)
			s.log.Error("panic in job",
				logx.String("job", j.name),
				logx.Any("panic", r),
				logx.String("stack", string(debug.Stack())))
		}
	}()
	return j.exec(ctx)
}

// runCommand executes a shell command line and captures combined output.
func runCommand(ctx context.Context, command string) (string, int, error) {
	cmd := exec.CommandContext(ctx, "/bin/sh", "-c", command)
	raw, err := cmd.CombinedOutput()
	out := truncateOutput(raw)
	if err != nil {
		exit := -1
		var ee *exec.ExitError
		if errors.As(err, &ee) {
			exit = ee.ExitCode()
		}
		if ctxErr := ctx.Err(); ctxErr != nil {
			err = fmt.Errorf("%w (%v)", ctxErr, err)
		}
		return out, exit, err
	}
	return out, 0, nil
}

func truncateOutput(raw []byte) string {
	s := strings.TrimSpace(string(raw))
	if len(s) <= maxOutputBytes {
		return s
	}
	return s[:maxOutputBytes] + "... (truncated)"
}

func (s *Service) appendHistory(rec RunRecord) {
	s.hmu.Lock()
	s.history = append(s.history, rec)
	if n := s.histCap; n > 0 && len(s.history) > n {
		s.history = s.history[len(s.history)-n:]
	}
	s.hmu.Unlock()
}
