package diag

import (
	"github.com/prometheus/client_golang/prometheus"
)

const namespace = "deskkit"

// registerCollectors exposes the sources on reg and returns the request
// counter used by the router.
func registerCollectors(reg *prometheus.Registry, src Sources) *prometheus.CounterVec {
	requests := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "diag",
			Name:      "requests_total",
			Help:      "Total number of diagnostics requests",
		},
		[]string{"path", "status"},
	)
	reg.MustRegister(requests)

	if src.Store != nil {
		store := src.Store
		reg.MustRegister(
			gauge("eventstore", "entries", "Registrations held by the event store",
				func() float64 { return float64(store.Len()) }),
			counter("eventstore", "added_total", "Registrations added",
				func() float64 { return float64(store.Stats().Added) }),
			counter("eventstore", "overwritten_total", "Registrations replaced by a later one with the same name",
				func() float64 { return float64(store.Stats().Overwritten) }),
			counter("eventstore", "flushed_total", "Registrations removed by Flush",
				func() float64 { return float64(store.Stats().Flushed) }),
			counter("eventstore", "pruned_total", "Registrations removed because their target was collected",
				func() float64 { return float64(store.Stats().Pruned) }),
			counter("eventstore", "dispatched_total", "Handler invocations",
				func() float64 { return float64(store.Stats().Dispatched) }),
			counter("eventstore", "caught_total", "Dispatch failures swallowed",
				func() float64 { return float64(store.Stats().Caught) }),
		)
	}

	if src.Pool != nil {
		pool := src.Pool
		reg.MustRegister(
			gauge("async", "queue_depth", "Tasks waiting in the async pool",
				func() float64 { return float64(pool.QueueDepth()) }),
			counter("async", "submitted_total", "Tasks submitted",
				func() float64 { return float64(pool.Stats().Submitted) }),
			counter("async", "failed_total", "Tasks that returned an error",
				func() float64 { return float64(pool.Stats().Failed) }),
			counter("async", "panicked_total", "Tasks that panicked",
				func() float64 { return float64(pool.Stats().Panicked) }),
			counter("async", "dropped_total", "Tasks rejected because the queue was full",
				func() float64 { return float64(pool.Stats().Dropped) }),
		)
	}

	if src.Loop != nil {
		loop := src.Loop
		reg.MustRegister(
			counter("loop", "tasks_total", "Tasks run on the UI loop",
				func() float64 { return float64(loop().Tasks) }),
			counter("loop", "stalls_total", "UI loop stalls detected",
				func() float64 { return float64(loop().Stalls) }),
			gauge("loop", "pending", "Tasks waiting on the UI loop",
				func() float64 { return float64(loop().Pending) }),
		)
	}

	return requests
}

func gauge(subsystem, name, help string, fn func() float64) prometheus.GaugeFunc {
	return prometheus.NewGaugeFunc(prometheus.GaugeOpts{
		Namespace: namespace,
		Subsystem: subsystem,
		Name:      name,
		Help:      help,
	}, fn)
}

func counter(subsystem, name, help string, fn func() float64) prometheus.CounterFunc {
	return prometheus.NewCounterFunc(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: subsystem,
		Name:      name,
		Help:      help,
	}, fn)
}
