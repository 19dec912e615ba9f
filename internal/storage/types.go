package storage

import (
	"errors"
	"time"
)

var ErrDisabled = errors.New("storage disabled")

// Config configures storage.
//
// Driver values:
//   - "file": dependency-free file backend (append-only JSON Lines)
//   - "sqlite": SQLite database file
//
// If Driver is empty or "none", storage is disabled.
type Config struct {
	Driver      string
	Path        string
	BusyTimeout time.Duration // sqlite only; 0 means default
}

// RunEntry records one job execution.
// Keep it compact and schema-stable.
type RunEntry struct {
	At       time.Time `json:"at"`
	Job      string    `json:"job"`
	Tick     int64     `json:"tick"`
	OK       bool      `json:"ok"`
	ExitCode int       `json:"exit_code,omitempty"`
	Error    string    `json:"error,omitempty"`
	TookMS   int64     `json:"took_ms"`
	Output   string    `json:"output,omitempty"`
}
