package app

import (
	"math"
	"sync/atomic"
	"time"
)

// Metrics tracks UI loop timing.
type Metrics struct {
	taskCount   atomic.Uint64
	taskTotalNs atomic.Int64
	taskMinNs   atomic.Int64
	taskMaxNs   atomic.Int64
	lastTaskNs  atomic.Int64
	stalls      atomic.Uint64
	rejected    atomic.Uint64

	startTime atomic.Int64
}

// NewMetrics creates a new metrics tracker.
func NewMetrics() *Metrics {
	m := &Metrics{}
	m.Reset()
	return m
}

// RecordTask records the time one loop task took.
func (m *Metrics) RecordTask(d time.Duration) {
	ns := d.Nanoseconds()

	m.taskCount.Add(1)
	m.taskTotalNs.Add(ns)
	m.lastTaskNs.Store(ns)

	for {
		old := m.taskMinNs.Load()
		if ns >= old || m.taskMinNs.CompareAndSwap(old, ns) {
			break
		}
	}
	for {
		old := m.taskMaxNs.Load()
		if ns <= old || m.taskMaxNs.CompareAndSwap(old, ns) {
			break
		}
	}
}

// RecordStall records a task that ran past the stall threshold.
func (m *Metrics) RecordStall() {
	m.stalls.Add(1)
}

// RecordRejected records a post to a stopped loop.
func (m *Metrics) RecordRejected() {
	m.rejected.Add(1)
}

// Reset clears all counters and restarts the uptime clock.
func (m *Metrics) Reset() {
	m.taskCount.Store(0)
	m.taskTotalNs.Store(0)
	m.taskMinNs.Store(math.MaxInt64)
	m.taskMaxNs.Store(0)
	m.lastTaskNs.Store(0)
	m.stalls.Store(0)
	m.rejected.Store(0)
	m.startTime.Store(time.Now().UnixNano())
}

// MetricsSnapshot is a point-in-time copy of Metrics.
type MetricsSnapshot struct {
	Uptime   time.Duration
	Tasks    uint64
	AvgTask  time.Duration
	MinTask  time.Duration
	MaxTask  time.Duration
	LastTask time.Duration
	Stalls   uint64
	Rejected uint64
}

// Snapshot returns the current metrics.
func (m *Metrics) Snapshot() MetricsSnapshot {
	snap := MetricsSnapshot{
		Uptime:   time.Since(time.Unix(0, m.startTime.Load())),
		Tasks:    m.taskCount.Load(),
		MaxTask:  time.Duration(m.taskMaxNs.Load()),
		LastTask: time.Duration(m.lastTaskNs.Load()),
		Stalls:   m.stalls.Load(),
		Rejected: m.rejected.Load(),
	}
	if snap.Tasks > 0 {
		snap.AvgTask = time.Duration(m.taskTotalNs.Load() / int64(snap.Tasks))
		snap.MinTask = time.Duration(m.taskMinNs.Load())
	}
	return snap
}
