package storage

import (
	"context"
	"errors"
	"strings"

	logx "tickwheel/pkg/logx"
)

// Store is the persistence API used by the run recorder.
type Store interface {
	AppendRun(ctx context.Context, e RunEntry) error

	// RecentRuns returns up to limit entries, newest first.
	// An empty job matches every job.
	RecentRuns(ctx context.Context, job string, limit int) ([]RunEntry, error)

	Close() error
}

// Open initializes the configured store.
// It returns (nil, nil) if storage is disabled.
func Open(cfg Config, log logx.Logger) (Store, error) {
	driver := strings.ToLower(strings.TrimSpace(cfg.Driver))
	if driver == "" || driver == "none" {
		return nil, nil
	}
	if log.IsZero() {
		log = logx.Nop()
	}

	switch driver {
	case "file":
		return openFile(cfg, log)
	case "sqlite", "sqlite3":
		return openSQLite(cfg, log)
	default:
		return nil, errors.New("unknown storage driver: " + driver)
	}
}
