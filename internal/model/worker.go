package model

import "time"

// Lifecycle event kinds recorded in the journal.
const (
	EventSpawned  = "spawned"
	EventKilled   = "killed"
	EventReset    = "reset"
	EventShutdown = "shutdown"
)

// WorkerInfo is one row of a registry snapshot: a live worker's identifier
// and its counter at the moment that worker's state was read during the scan.
type WorkerInfo struct {
	ID      uint64 `json:"id"`
	Counter int64  `json:"counter"`
}

// Event is a single lifecycle event. WorkerID is zero for process-level
// events (shutdown); worker identifiers are assigned starting from 1.
// Value holds the initial counter for spawned events and the new counter
// for reset events.
type Event struct {
	ID        int64     `json:"id"`
	RunID     string    `json:"run_id"`
	Kind      string    `json:"kind"`
	WorkerID  uint64    `json:"worker_id,omitempty"`
	Value     *int64    `json:"value,omitempty"`
	CreatedAt time.Time `json:"created_at"`
}
