package async

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"time"
)

// ErrorHandler receives the failure of a task submitted under name.
type ErrorHandler func(name string, err error)

// Pool executes tasks on a fixed set of worker goroutines.
type Pool struct {
	// Configuration
	queueSize int
	workers   int
	timeout   time.Duration
	onError   ErrorHandler

	// State
	mu      sync.Mutex // protects queue creation/destruction
	queue   chan job
	running atomic.Bool
	wg      sync.WaitGroup

	// Stats
	submitted atomic.Uint64
	succeeded atomic.Uint64
	failed    atomic.Uint64
	panicked  atomic.Uint64
	dropped   atomic.Uint64
	timedOut  atomic.Uint64
	totalNs   atomic.Int64
}

type job struct {
	ctx  context.Context
	name string
	task Task
}

// Option configures a Pool.
type Option func(*Pool)

// WithQueueSize sets the task queue size.
func WithQueueSize(size int) Option {
	return func(p *Pool) {
		if size > 0 {
			p.queueSize = size
		}
	}
}

// WithWorkers sets the number of worker goroutines.
func WithWorkers(count int) Option {
	return func(p *Pool) {
		if count > 0 {
			p.workers = count
		}
	}
}

// WithTimeout sets the per-task deadline. Zero disables it.
func WithTimeout(timeout time.Duration) Option {
	return func(p *Pool) {
		if timeout >= 0 {
			p.timeout = timeout
		}
	}
}

// WithErrorHandler sets the handler for failed tasks.
func WithErrorHandler(h ErrorHandler) Option {
	return func(p *Pool) {
		p.onError = h
	}
}

// New creates a stopped pool.
func New(opts ...Option) *Pool {
	p := &Pool{
		queueSize: 256,
		workers:   4,
		timeout:   5 * time.Second,
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Start starts the workers.
func (p *Pool) Start() error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.running.Load() {
		return ErrAlreadyRunning
	}

	p.queue = make(chan job, p.queueSize)
	p.running.Store(true)

	for i := 0; i < p.workers; i++ {
		p.wg.Add(1)
		go p.worker(p.queue)
	}
	return nil
}

// Stop stops accepting tasks and waits for queued tasks to finish,
// or for ctx to be done.
func (p *Pool) Stop(ctx context.Context) error {
	p.mu.Lock()
	if !p.running.Load() {
		p.mu.Unlock()
		return ErrNotRunning
	}
	p.running.Store(false)
	close(p.queue)
	p.mu.Unlock()

	done := make(chan struct{})
	go func() {
		p.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Submit queues task for execution under name.
func (p *Pool) Submit(ctx context.Context, name string, task Task) error {
	if task == nil {
		return ErrNilTask
	}

	p.mu.Lock()
	defer p.mu.Unlock()

	if !p.running.Load() {
		return ErrNotRunning
	}

	select {
	case p.queue <- job{ctx: ctx, name: name, task: task}:
		p.submitted.Add(1)
		return nil
	default:
		p.dropped.Add(1)
		return ErrQueueFull
	}
}

// IsRunning reports whether the pool accepts tasks.
func (p *Pool) IsRunning() bool {
	return p.running.Load()
}

func (p *Pool) worker(queue <-chan job) {
	defer p.wg.Done()
	for j := range queue {
		p.run(j)
	}
}

func (p *Pool) run(j job) {
	result := execute(j.ctx, j.name, j.task, p.timeout)
	p.totalNs.Add(result.Duration.Nanoseconds())

	switch {
	case result.Err == nil:
		p.succeeded.Add(1)
		return
	case result.Panicked:
		p.panicked.Add(1)
	case result.TimedOut:
		p.timedOut.Add(1)
		p.failed.Add(1)
	default:
		p.failed.Add(1)
	}

	p.report(j.name, result.Err)
}

// report passes err to the error handler, shielding the worker from a
// handler that panics.
func (p *Pool) report(name string, err error) {
	if p.onError == nil {
		return
	}
	defer func() { _ = recover() }()
	p.onError(name, err)
}

// QueueDepth returns the number of queued tasks.
func (p *Pool) QueueDepth() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	if !p.running.Load() {
		return 0
	}
	return len(p.queue)
}

// Stats contains pool statistics.
type Stats struct {
	Submitted  uint64
	Succeeded  uint64
	Failed     uint64
	Panicked   uint64
	Dropped    uint64
	TimedOut   uint64
	QueueDepth int

	// AvgDuration is the mean task run time.
	AvgDuration time.Duration
}

// Stats returns a snapshot of the pool statistics.
func (p *Pool) Stats() Stats {
	s := Stats{
		Submitted:  p.submitted.Load(),
		Succeeded:  p.succeeded.Load(),
		Failed:     p.failed.Load(),
		Panicked:   p.panicked.Load(),
		Dropped:    p.dropped.Load(),
		TimedOut:   p.timedOut.Load(),
		QueueDepth: p.QueueDepth(),
	}
	if done := s.Succeeded + s.Failed + s.Panicked; done > 0 {
		s.AvgDuration = time.Duration(p.totalNs.Load() / int64(done))
	}
	return s
}

// IsQueueFull reports whether err is ErrQueueFull.
func IsQueueFull(err error) bool {
	return errors.Is(err, ErrQueueFull)
}
