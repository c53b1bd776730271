// Package async runs asynchronous slot handlers on a bounded worker pool.
//
// The pool is a fixed set of goroutines reading from a bounded queue. Each
// task runs with panic recovery and, when configured, a deadline. Failures are
// never returned to the submitter; they are passed to the pool's ErrorHandler
// together with the name the task was submitted under.
//
//	pool := async.New(async.WithWorkers(4), async.WithErrorHandler(report))
//	if err := pool.Start(); err != nil {
//	    return err
//	}
//	defer pool.Stop(ctx)
//
//	err := pool.Submit(ctx, "OnSettingsSaved", task)
//
// Submit fails fast with ErrQueueFull when the queue is at capacity.
package async
