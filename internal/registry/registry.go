package registry

import (
	"context"
	"errors"
	"log/slog"
	"math/rand/v2"
	"slices"
	"sync"
	"sync/atomic"
	"time"

	"github.com/dlots/foreman/internal/journal"
	"github.com/dlots/foreman/internal/model"
)

// DefaultTick is the worker loop period used when none is configured.
const DefaultTick = time.Second

// ErrShuttingDown is returned by Spawn once the global shutdown signal is set.
var ErrShuttingDown = errors.New("registry is shutting down")

// workerState is the mutable record shared between a worker's goroutine and
// the registry. Every access happens under Registry.stateMu.
type workerState struct {
	counter       int64
	killRequested bool
}

// Registry owns the mapping from worker ID to shared worker state and to the
// done channel used to join the worker's goroutine.
//
// Locking: poolMu guards handles, stateMu guards states. Operations that
// need both acquire poolMu first. Joins (receiving on a done channel) always
// happen with no locks held. The coarse one-lock-per-map granularity means an
// Info scan reads all counters under a single critical section, while
// counters of unrelated workers still contend on stateMu; at interactive
// scale that contention is irrelevant.
type Registry struct {
	log    *slog.Logger
	jnl    journal.Journal
	broker *journal.Broker
	runID  string
	tick   time.Duration

	nextID atomic.Uint64
	down   atomic.Bool

	poolMu  sync.Mutex
	handles map[uint64]chan struct{}

	stateMu sync.Mutex
	states  map[uint64]*workerState
}

// New creates a worker registry. Lifecycle events are appended to jnl and
// published to broker (which may be nil when no live subscribers are needed).
// Worker IDs are assigned monotonically starting from 1.
func New(tick time.Duration, runID string, jnl journal.Journal, broker *journal.Broker, logger *slog.Logger) *Registry {
	if tick <= 0 {
		tick = DefaultTick
	}
	return &Registry{
		log:     logger,
		jnl:     jnl,
		broker:  broker,
		runID:   runID,
		tick:    tick,
		handles: make(map[uint64]chan struct{}),
		states:  make(map[uint64]*workerState),
	}
}

// Spawn starts a new worker and returns its assigned ID. The worker's state
// entry is inserted before its goroutine is launched, so the ID is visible
// to Info/Kill/Reset as soon as Spawn returns. If initial is nil the counter
// starts at a pseudo-random non-negative value. Spawn does not wait for the
// worker's first tick. Returns ErrShuttingDown after Shutdown has begun.
func (r *Registry) Spawn(initial *int64) (uint64, error) {
	value := initialValue(initial)
	st := &workerState{counter: value}
	done := make(chan struct{})

	// The shutdown check shares poolMu with Shutdown's handle snapshot, so a
	// spawned worker is always either seen and joined by Shutdown or never
	// started at all.
	r.poolMu.Lock()
	if r.down.Load() {
		r.poolMu.Unlock()
		return 0, ErrShuttingDown
	}
	id := r.nextID.Add(1)
	r.stateMu.Lock()
	r.states[id] = st
	r.handles[id] = done
	r.stateMu.Unlock()
	r.poolMu.Unlock()

	workersSpawnedTotal.Inc()
	workersRunning.Inc()
	go r.run(id, st, done)

	r.log.Info("worker started", "worker_id", id, "value", value)
	r.record(model.EventSpawned, id, &value)
	return id, nil
}

// Info returns a snapshot of all pooled workers sorted by ID. Counters are
// read in one pass under the state lock; snapshots taken concurrently with
// ticks elsewhere see each counter at scan time, nothing stronger.
func (r *Registry) Info() []model.WorkerInfo {
	r.poolMu.Lock()
	ids := make([]uint64, 0, len(r.handles))
	for id := range r.handles {
		ids = append(ids, id)
	}
	r.poolMu.Unlock()
	slices.Sort(ids)

	infos := make([]model.WorkerInfo, 0, len(ids))
	r.stateMu.Lock()
	for _, id := range ids {
		// A Kill may have erased the entry between the two lock sections.
		if st, ok := r.states[id]; ok {
			infos = append(infos, model.WorkerInfo{ID: id, Counter: st.counter})
		}
	}
	r.stateMu.Unlock()
	return infos
}

// Kill requests termination of the worker with the given ID, waits for its
// goroutine to exit (the worker observes the flag within one tick), then
// removes both its state and handle entries. Unknown IDs are a no-op and
// killing the same ID twice has no additional effect. Reports whether this
// call removed the worker.
func (r *Registry) Kill(id uint64) bool {
	r.stateMu.Lock()
	st, ok := r.states[id]
	if !ok {
		r.stateMu.Unlock()
		return false
	}
	st.killRequested = true
	r.stateMu.Unlock()

	r.poolMu.Lock()
	done, ok := r.handles[id]
	r.poolMu.Unlock()
	if !ok {
		// A concurrent Kill is mid-removal; it owns the join and the erase.
		return false
	}

	<-done

	removed := false
	r.poolMu.Lock()
	r.stateMu.Lock()
	if _, ok := r.handles[id]; ok {
		delete(r.handles, id)
		delete(r.states, id)
		removed = true
	}
	r.stateMu.Unlock()
	r.poolMu.Unlock()

	if removed {
		workersKilledTotal.Inc()
		r.log.Info("worker killed", "worker_id", id)
		r.record(model.EventKilled, id, nil)
	}
	return removed
}

// Reset overwrites the counter of the worker with the given ID. The kill
// flag is untouched. Unknown IDs are a no-op; reports whether the worker was
// found.
func (r *Registry) Reset(id uint64, value int64) bool {
	r.stateMu.Lock()
	st, ok := r.states[id]
	if !ok {
		r.stateMu.Unlock()
		return false
	}
	st.counter = value
	r.stateMu.Unlock()

	r.log.Info("worker reset", "worker_id", id, "value", value)
	v := value
	r.record(model.EventReset, id, &v)
	return true
}

// Shutdown sets the process-wide termination signal and waits for every
// pooled worker to finish, in any order. Entries are not erased afterwards;
// the process is exiting. Safe to call more than once: later calls wait for
// the same drain but record nothing.
func (r *Registry) Shutdown() {
	r.poolMu.Lock()
	first := r.down.CompareAndSwap(false, true)
	handles := make([]chan struct{}, 0, len(r.handles))
	for _, done := range r.handles {
		handles = append(handles, done)
	}
	r.poolMu.Unlock()

	for _, done := range handles {
		<-done
	}

	if first {
		r.log.Info("all workers stopped", "count", len(handles))
		r.record(model.EventShutdown, 0, nil)
	}
}

// ShutdownRequested reports whether the global shutdown signal is set.
func (r *Registry) ShutdownRequested() bool {
	return r.down.Load()
}

// record appends a lifecycle event to the journal and publishes it to live
// subscribers. Journal failures are logged, never propagated: the audit
// trail must not break the lifecycle operation it describes.
func (r *Registry) record(kind string, workerID uint64, value *int64) {
	ev := model.Event{
		RunID:     r.runID,
		Kind:      kind,
		WorkerID:  workerID,
		Value:     value,
		CreatedAt: time.Now().UTC(),
	}
	if err := r.jnl.Record(context.Background(), &ev); err != nil {
		r.log.Error("record lifecycle event", "kind", kind, "worker_id", workerID, "error", err)
	}
	if r.broker != nil {
		r.broker.Publish(ev)
	}
}

// initialValue returns the explicit initial counter when provided, otherwise
// a pseudo-random non-negative value.
func initialValue(initial *int64) int64 {
	if initial != nil {
		return *initial
	}
	return rand.Int64()
}
