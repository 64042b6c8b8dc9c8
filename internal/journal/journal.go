// Package journal records worker lifecycle events (spawn, kill, reset,
// shutdown) as an append-only audit trail and fans them out to live
// subscribers. Nothing is ever read back to reconstruct worker state; the
// registry remains the only source of truth for live workers.
package journal

import (
	"context"

	"github.com/dlots/foreman/internal/model"
)

// Journal defines the persistence operations for lifecycle events.
type Journal interface {
	// Record appends one event. On success the implementation may fill in
	// the event's assigned ID.
	Record(ctx context.Context, ev *model.Event) error
	// List returns up to limit events, most recent first.
	List(ctx context.Context, limit int) ([]model.Event, error)
	Close() error
}

// Nop is a Journal that discards everything. Used by tests and by callers
// that run without a database.
type Nop struct{}

var _ Journal = Nop{}

func (Nop) Record(context.Context, *model.Event) error       { return nil }
func (Nop) List(context.Context, int) ([]model.Event, error) { return nil, nil }
func (Nop) Close() error                                     { return nil }
