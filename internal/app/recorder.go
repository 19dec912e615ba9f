package app

import (
	"context"
	"fmt"
	"time"

	"tickwheel/internal/runtime/supervisor"
	"tickwheel/internal/storage"
	"tickwheel/internal/timer"
)

// startRecorder persists run outcomes published on the bus. It is hosted
// under GoRestart so a storage hiccup (disk full, locked database) never
// takes the app down; each restart re-subscribes, so events published while
// the loop was down are simply not recorded.
func (a *App) startRecorder() {
	if a.store == nil || a.bus == nil {
		return
	}
	a.sup.GoRestart("runs.record", func(c context.Context) error {
		events, unsub := a.bus.Subscribe(256,
			timer.EventJobFinished, timer.EventJobFailed, timer.EventJobDropped)
		defer unsub()
		for {
			select {
			case <-c.Done():
				return nil
			case ev, ok := <-events:
				if !ok {
					return nil
				}
				rec, ok := ev.Data.(timer.RunRecord)
				if !ok {
					continue
				}
				at := rec.Started
				if at.IsZero() {
					at = ev.Time
				}
				entry := storage.RunEntry{
					At:       at,
					Job:      rec.Job,
					Tick:     rec.Tick,
					OK:       rec.OK,
					ExitCode: rec.ExitCode,
					Error:    rec.Error,
					TookMS:   rec.Duration.Milliseconds(),
					Output:   rec.Output,
				}
				wctx, cancel := context.WithTimeout(c, 2*time.Second)
				err := a.store.AppendRun(wctx, entry)
				cancel()
				if err != nil {
					return fmt.Errorf("append run for %s: %w", rec.Job, err)
				}
			}
		}
	}, supervisor.WithRestartBackoff(time.Second, 30*time.Second))
}
