package async

import (
	"context"
	"errors"
	"runtime/debug"
	"time"
)

// Task is a unit of asynchronous work.
type Task func(ctx context.Context) error

// Result describes the outcome of one task execution.
type Result struct {
	// Err is the error returned by the task, the recovered panic, or the
	// context error if the task was skipped.
	Err error

	// Panicked is true if the task panicked.
	Panicked bool

	// Skipped is true if the context was done before the task started.
	Skipped bool

	// TimedOut is true if the task ended with its deadline exceeded.
	TimedOut bool

	// Duration is how long the task ran.
	Duration time.Duration
}

// execute runs task with panic recovery. A positive timeout bounds the
// task's context; the task must honour ctx for the deadline to take effect.
func execute(ctx context.Context, name string, task Task, timeout time.Duration) (result Result) {
	select {
	case <-ctx.Done():
		return Result{Err: ctx.Err(), Skipped: true}
	default:
	}

	if timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, timeout)
		defer cancel()
	}

	start := time.Now()
	defer func() {
		result.Duration = time.Since(start)
		if r := recover(); r != nil {
			result.Panicked = true
			result.Err = &PanicError{Name: name, Value: r, Stack: string(debug.Stack())}
		}
	}()

	err := task(ctx)
	if err != nil {
		result.Err = err
		result.TimedOut = errors.Is(err, context.DeadlineExceeded)
	}
	return result
}
