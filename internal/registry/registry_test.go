package registry_test

import (
	"io"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/dlots/foreman/internal/journal"
	"github.com/dlots/foreman/internal/model"
	"github.com/dlots/foreman/internal/registry"
)

// fastTick keeps worker loops spinning quickly in tests.
const fastTick = 10 * time.Millisecond

// frozenTick is long enough that no tick fires within a test, making
// counter values deterministic.
const frozenTick = time.Hour

func newTestRegistry(t *testing.T, tick time.Duration) *registry.Registry {
	t.Helper()
	logger := slog.New(slog.NewJSONHandler(io.Discard, nil))
	reg := registry.New(tick, model.NewRunID(), journal.Nop{}, nil, logger)
	if tick < time.Second {
		// Joining a worker costs up to one tick, so frozen-tick registries
		// skip the drain and let their sleeping goroutines die with the
		// test process.
		t.Cleanup(reg.Shutdown)
	}
	return reg
}

func ptr(v int64) *int64 {
	return &v
}

// findWorker returns the snapshot row for id, if present.
func findWorker(reg *registry.Registry, id uint64) (model.WorkerInfo, bool) {
	for _, w := range reg.Info() {
		if w.ID == id {
			return w, true
		}
	}
	return model.WorkerInfo{}, false
}

// waitForCounter polls Info until the worker's counter reaches min.
func waitForCounter(t *testing.T, reg *registry.Registry, id uint64, min int64, timeout time.Duration) {
	t.Helper()
	deadline := time.Now().Add(timeout)
	for time.Now().Before(deadline) {
		if w, ok := findWorker(reg, id); ok && w.Counter >= min {
			return
		}
		time.Sleep(time.Millisecond)
	}
	t.Fatalf("worker %d did not reach counter %d within %v", id, min, timeout)
}

func TestSpawnVisibleImmediately(t *testing.T) {
	reg := newTestRegistry(t, frozenTick)

	id, err := reg.Spawn(ptr(5))
	if err != nil {
		t.Fatalf("Spawn: %v", err)
	}
	if id == 0 {
		t.Fatal("Spawn returned zero id")
	}

	w, ok := findWorker(reg, id)
	if !ok {
		t.Fatalf("worker %d not in Info right after Spawn", id)
	}
	if w.Counter != 5 {
		t.Errorf("counter = %d, want 5", w.Counter)
	}
}

func TestSpawnAssignsDistinctIDs(t *testing.T) {
	reg := newTestRegistry(t, frozenTick)

	seen := make(map[uint64]bool)
	for range 10 {
		id, err := reg.Spawn(nil)
		if err != nil {
			t.Fatalf("Spawn: %v", err)
		}
		if seen[id] {
			t.Fatalf("id %d assigned twice", id)
		}
		seen[id] = true
	}

	if got := len(reg.Info()); got != 10 {
		t.Errorf("Info returned %d workers, want 10", got)
	}
}

func TestSpawnRandomInitialValueNonNegative(t *testing.T) {
	reg := newTestRegistry(t, frozenTick)

	id, err := reg.Spawn(nil)
	if err != nil {
		t.Fatalf("Spawn: %v", err)
	}
	w, ok := findWorker(reg, id)
	if !ok {
		t.Fatalf("worker %d not in Info", id)
	}
	if w.Counter < 0 {
		t.Errorf("counter = %d, want non-negative", w.Counter)
	}
}

func TestCounterIncrements(t *testing.T) {
	reg := newTestRegistry(t, fastTick)

	id, err := reg.Spawn(ptr(0))
	if err != nil {
		t.Fatalf("Spawn: %v", err)
	}

	waitForCounter(t, reg, id, 3, time.Second)
}

func TestKillRemovesWorkerAndJoins(t *testing.T) {
	reg := newTestRegistry(t, fastTick)

	id, err := reg.Spawn(ptr(0))
	if err != nil {
		t.Fatalf("Spawn: %v", err)
	}

	start := time.Now()
	if !reg.Kill(id) {
		t.Fatalf("Kill(%d) = false, want true", id)
	}
	// The worker observes the flag on its next tick; Kill returning means
	// the goroutine already exited.
	if elapsed := time.Since(start); elapsed > 50*fastTick {
		t.Errorf("Kill took %v, want about one tick", elapsed)
	}

	if _, ok := findWorker(reg, id); ok {
		t.Errorf("worker %d still in Info after Kill", id)
	}
}

func TestKillIsIdempotent(t *testing.T) {
	reg := newTestRegistry(t, fastTick)

	id, err := reg.Spawn(ptr(0))
	if err != nil {
		t.Fatalf("Spawn: %v", err)
	}

	if !reg.Kill(id) {
		t.Fatalf("first Kill(%d) = false, want true", id)
	}
	if reg.Kill(id) {
		t.Errorf("second Kill(%d) = true, want false", id)
	}
}

func TestKillUnknownIDIsNoOp(t *testing.T) {
	reg := newTestRegistry(t, fastTick)

	if reg.Kill(12345) {
		t.Error("Kill of unknown id = true, want false")
	}
}

func TestResetOverwritesCounterImmediately(t *testing.T) {
	reg := newTestRegistry(t, frozenTick)

	id, err := reg.Spawn(ptr(7))
	if err != nil {
		t.Fatalf("Spawn: %v", err)
	}

	if !reg.Reset(id, 100) {
		t.Fatalf("Reset(%d) = false, want true", id)
	}

	w, ok := findWorker(reg, id)
	if !ok {
		t.Fatalf("worker %d not in Info after Reset", id)
	}
	if w.Counter != 100 {
		t.Errorf("counter = %d, want 100", w.Counter)
	}
}

func TestResetDoesNotTerminate(t *testing.T) {
	reg := newTestRegistry(t, fastTick)

	id, err := reg.Spawn(ptr(0))
	if err != nil {
		t.Fatalf("Spawn: %v", err)
	}

	reg.Reset(id, 50)
	// Counter keeps climbing from the new value.
	waitForCounter(t, reg, id, 51, time.Second)
}

func TestResetUnknownIDIsNoOp(t *testing.T) {
	reg := newTestRegistry(t, fastTick)

	if reg.Reset(12345, 1) {
		t.Error("Reset of unknown id = true, want false")
	}
}

func TestShutdownDrainsAndRejectsSpawn(t *testing.T) {
	reg := newTestRegistry(t, fastTick)

	for range 3 {
		if _, err := reg.Spawn(ptr(0)); err != nil {
			t.Fatalf("Spawn: %v", err)
		}
	}

	reg.Shutdown()

	if !reg.ShutdownRequested() {
		t.Error("ShutdownRequested = false after Shutdown")
	}
	if _, err := reg.Spawn(nil); err != registry.ErrShuttingDown {
		t.Errorf("Spawn after Shutdown: err = %v, want ErrShuttingDown", err)
	}

	// Entries are not erased on shutdown, only joined; counters are frozen.
	before := reg.Info()
	if len(before) != 3 {
		t.Fatalf("Info returned %d workers after Shutdown, want 3", len(before))
	}
	time.Sleep(5 * fastTick)
	after := reg.Info()
	for i := range before {
		if after[i].Counter != before[i].Counter {
			t.Errorf("worker %d counter moved after Shutdown: %d -> %d",
				after[i].ID, before[i].Counter, after[i].Counter)
		}
	}

	// Second Shutdown returns without incident.
	reg.Shutdown()
}

func TestConcurrentOperations(t *testing.T) {
	reg := newTestRegistry(t, fastTick)

	var ids []uint64
	for range 5 {
		id, err := reg.Spawn(ptr(0))
		if err != nil {
			t.Fatalf("Spawn: %v", err)
		}
		ids = append(ids, id)
	}

	stop := make(chan struct{})
	scanDone := make(chan struct{})
	go func() {
		defer close(scanDone)
		for {
			select {
			case <-stop:
				return
			default:
				reg.Info()
			}
		}
	}()

	var wg sync.WaitGroup
	wg.Add(2)
	go func() {
		defer wg.Done()
		for i := 0; i < 100; i++ {
			reg.Reset(ids[i%len(ids)], int64(i))
		}
	}()
	go func() {
		defer wg.Done()
		for _, id := range ids[:2] {
			reg.Kill(id)
		}
	}()

	done := make(chan struct{})
	go func() {
		wg.Wait()
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(5 * time.Second):
		t.Fatal("concurrent operations did not finish")
	}
	close(stop)
	<-scanDone

	if got := len(reg.Info()); got != 3 {
		t.Errorf("Info returned %d workers, want 3", got)
	}
}
