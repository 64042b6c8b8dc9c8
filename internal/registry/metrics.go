package registry

import "github.com/prometheus/client_golang/prometheus"

var (
	workersRunning = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "foreman_workers_running",
			Help: "Number of currently running workers.",
		},
	)

	workersSpawnedTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "foreman_workers_spawned_total",
			Help: "Total number of workers spawned.",
		},
	)

	workersKilledTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "foreman_workers_killed_total",
			Help: "Total number of workers killed and removed.",
		},
	)

	workerTicksTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "foreman_worker_ticks_total",
			Help: "Total counter increments across all workers.",
		},
	)
)

func init() {
	prometheus.MustRegister(workersRunning)
	prometheus.MustRegister(workersSpawnedTotal)
	prometheus.MustRegister(workersKilledTotal)
	prometheus.MustRegister(workerTicksTotal)
}
