package app

import (
	"context"
	"sync"
	"time"

	"github.com/coreos/go-systemd/v22/daemon"

	"tickwheel/pkg/logx"
)

type watchdog struct {
	interval time.Duration
	once     sync.Once
}

// notifyReady tells the service manager the unit is up. Outside systemd (no
// NOTIFY_SOCKET) or with notify disabled this is a no-op.
func (a *App) notifyReady() {
	cfg := a.cfgm.Get()
	if cfg == nil || !cfg.Systemd.NotifyEnabled() {
		return
	}
	sent, err := daemon.SdNotify(false, daemon.SdNotifyReady)
	if err != nil {
		a.log.Warn("sd_notify READY failed", logx.Err(err))
		return
	}
	if sent {
		a.log.Debug("sd_notify READY sent")
	}
}

func (a *App) notifyStopping() {
	cfg := a.cfgm.Get()
	if cfg == nil || !cfg.Systemd.NotifyEnabled() {
		return
	}
	_, _ = daemon.SdNotify(false, daemon.SdNotifyStopping)
}

func (a *App) startWatchdog(ctx context.Context) {
	cfg := a.cfgm.Get()
	if cfg == nil || !cfg.Systemd.WatchdogEnabled() {
		return
	}
	interval, err := daemon.SdWatchdogEnabled(false)
	if err != nil {
		a.log.Warn("watchdog detection failed", logx.Err(err))
		return
	}
	if interval <= 0 {
		a.log.Debug("systemd watchdog not armed")
		return
	}
	a.wd.interval = interval
	a.log.Info("systemd watchdog armed", logx.Duration("interval", interval))
	a.armWatchdog(ctx)
}

// armWatchdog (re)registers the keep-alive ping at half the watchdog window.
// The timer service carries the ping when it is running, so the ping also
// proves the wheel itself is advancing; dynamic jobs do not survive a timer
// restart, which is why config reloads call this again after Apply. When the
// timer is disabled a plain ticker takes over. A duplicate ping is harmless,
// a starved watchdog kills the unit.
func (a *App) armWatchdog(ctx context.Context) {
	if a.wd.interval <= 0 {
		return
	}
	period := a.wd.interval / 2
	if a.timer != nil && a.timer.Enabled() {
		err := a.timer.Every("systemd.watchdog", period, func(context.Context) error {
			_, err := daemon.SdNotify(false, daemon.SdNotifyWatchdog)
			return err
		})
		if err == nil {
			return
		}
		a.log.Warn("watchdog job registration failed; using ticker fallback", logx.Err(err))
	}
	a.wd.once.Do(func() {
		a.sup.Go0("systemd.watchdog", func(c context.Context) {
			t := time.NewTicker(period)
			defer t.Stop()
			for {
				select {
				case <-c.Done():
					return
				case <-t.C:
					_, _ = daemon.SdNotify(false, daemon.SdNotifyWatchdog)
				}
			}
		})
	})
}
