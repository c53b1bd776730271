package app

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"github.com/rs/zerolog"
)

// Loop defaults.
const (
	DefaultLoopQueueSize  = 256
	DefaultStallThreshold = 2 * time.Second
)

// eventLoop runs posted tasks one at a time on a single goroutine.
// Every task runs under guard. A watchdog reports tasks that run longer than
// stallAfter to the freeze log.
type eventLoop struct {
	tasks      chan func()
	guard      func(func())
	metrics    *Metrics
	freeze     zerolog.Logger
	stallAfter time.Duration

	running  atomic.Bool
	started  atomic.Int64 // start of the current task, 0 when idle
	reported atomic.Int64 // start of the last task reported as stalled

	stop     chan struct{}
	stopOnce sync.Once
}

func newEventLoop(size int, guard func(func()), metrics *Metrics, freeze zerolog.Logger, stallAfter time.Duration) *eventLoop {
	if size <= 0 {
		size = DefaultLoopQueueSize
	}
	return &eventLoop{
		tasks:      make(chan func(), size),
		guard:      guard,
		metrics:    metrics,
		freeze:     freeze,
		stallAfter: stallAfter,
		stop:       make(chan struct{}),
	}
}

// Post queues fn. It blocks while the queue is full.
func (l *eventLoop) Post(fn func()) error {
	if fn == nil {
		return nil
	}
	select {
	case <-l.stop:
		l.metrics.RecordRejected()
		return ErrLoopStopped
	default:
	}

	select {
	case l.tasks <- fn:
		return nil
	case <-l.stop:
		l.metrics.RecordRejected()
		return ErrLoopStopped
	}
}

// run processes tasks until ctx is done or the loop is stopped.
func (l *eventLoop) run(ctx context.Context) {
	if !l.running.CompareAndSwap(false, true) {
		return
	}
	defer l.running.Store(false)

	done := make(chan struct{})
	defer close(done)
	if l.stallAfter > 0 {
		go l.watch(done)
	}

	for {
		select {
		case <-l.stop:
			return
		case <-ctx.Done():
			return
		default:
		}

		select {
		case <-l.stop:
			return
		case <-ctx.Done():
			return
		case fn := <-l.tasks:
			l.exec(fn)
		}
	}
}

func (l *eventLoop) exec(fn func()) {
	start := time.Now()
	l.started.Store(start.UnixNano())
	l.guard(fn)
	l.started.Store(0)
	l.metrics.RecordTask(time.Since(start))
}

// watch reports each stalled task once.
func (l *eventLoop) watch(done <-chan struct{}) {
	interval := l.stallAfter / 4
	if interval < time.Millisecond {
		interval = time.Millisecond
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-done:
			return
		case <-ticker.C:
			started := l.started.Load()
			if started == 0 {
				continue
			}
			elapsed := time.Since(time.Unix(0, started))
			if elapsed < l.stallAfter || l.reported.Swap(started) == started {
				continue
			}
			l.metrics.RecordStall()
			l.freeze.Warn().
				Dur("elapsed", elapsed).
				Dur("threshold", l.stallAfter).
				Int("pending", len(l.tasks)).
				Msg("ui loop stalled")
		}
	}
}

// Stop makes run return after the current task. Further posts fail.
func (l *eventLoop) Stop() {
	l.stopOnce.Do(func() { close(l.stop) })
}

// Stopped reports whether Stop has been called.
func (l *eventLoop) Stopped() bool {
	select {
	case <-l.stop:
		return true
	default:
		return false
	}
}

// Pending returns the number of queued tasks.
func (l *eventLoop) Pending() int {
	return len(l.tasks)
}
