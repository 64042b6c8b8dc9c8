package registry

import "time"

// run is the body of one worker goroutine: sleep one tick, then either exit
// because the global shutdown signal or this worker's kill flag is set, or
// increment the counter and go around again. The flag check and the
// increment share one stateMu critical section, so no increment can land
// after a kill or reset was observed within the same tick. Cancellation is
// cooperative only — the flags are polled once per tick, giving up to one
// tick of exit latency.
func (r *Registry) run(id uint64, st *workerState, done chan struct{}) {
	defer close(done)
	defer workersRunning.Dec()

	log := r.log.With("worker_id", id)
	for {
		time.Sleep(r.tick)

		r.stateMu.Lock()
		if r.down.Load() || st.killRequested {
			value := st.counter
			r.stateMu.Unlock()
			log.Info("worker finished", "value", value)
			return
		}
		st.counter++
		r.stateMu.Unlock()
		workerTicksTotal.Inc()
	}
}
