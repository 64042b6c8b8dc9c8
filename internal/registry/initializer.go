package registry

import (
	"log/slog"
	"time"
)

// Initializer seeds the registry with a fixed number of workers, pausing a
// configured delay between spawns. It never waits for a spawned worker to
// tick; it only issues Spawn calls. It stops early once the global shutdown
// signal is set, checked before every spawn.
type Initializer struct {
	reg   *Registry
	count int
	delay time.Duration
	log   *slog.Logger
	done  chan struct{}
}

// NewInitializer creates an initializer that will spawn count workers delay
// apart, with no explicit initial values.
func NewInitializer(reg *Registry, count int, delay time.Duration, logger *slog.Logger) *Initializer {
	return &Initializer{
		reg:   reg,
		count: count,
		delay: delay,
		log:   logger,
		done:  make(chan struct{}),
	}
}

// Start launches the initializer goroutine and returns immediately. The
// console accepts commands while spawning is still in progress.
func (i *Initializer) Start() {
	go i.run()
}

// Done returns a channel closed when the initializer has finished. It must
// be drained before process exit.
func (i *Initializer) Done() <-chan struct{} {
	return i.done
}

func (i *Initializer) run() {
	defer close(i.done)
	i.log.Info("initializer started", "count", i.count, "delay", i.delay.String())

	started := 0
	for n := 0; n < i.count; n++ {
		if i.reg.ShutdownRequested() {
			break
		}
		if _, err := i.reg.Spawn(nil); err != nil {
			// Only ErrShuttingDown: the signal was set between the check
			// above and the spawn.
			break
		}
		started++
		if n < i.count-1 {
			time.Sleep(i.delay)
		}
	}

	i.log.Info("initializer finished", "started", started)
}
