// Package storage persists job run history.
//
// It currently supports:
//   - Run appends (one record per job execution)
//   - Recent-run queries (newest first) for the snapshot surface
package storage
