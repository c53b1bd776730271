package async

import (
	"errors"
	"fmt"
)

// Sentinel errors for the worker pool.
var (
	// ErrNotRunning is returned when submitting to or stopping a pool that is not running.
	ErrNotRunning = errors.New("pool is not running")

	// ErrAlreadyRunning is returned when Start is called on a running pool.
	ErrAlreadyRunning = errors.New("pool is already running")

	// ErrQueueFull is returned when the task queue is at capacity.
	ErrQueueFull = errors.New("task queue is full")

	// ErrNilTask is returned when a nil task is submitted.
	ErrNilTask = errors.New("task cannot be nil")

	// ErrTaskPanic is reported when a task panics.
	ErrTaskPanic = errors.New("task panicked")
)

// PanicError wraps a panic value recovered from a task.
type PanicError struct {
	// Name is the name the task was submitted under.
	Name string

	// Value is the value passed to panic().
	Value any

	// Stack is the stack trace at the time of the panic.
	Stack string
}

// Error implements the error interface.
func (e *PanicError) Error() string {
	return fmt.Sprintf("task %s panicked: %v", e.Name, e.Value)
}

// Is allows errors.Is to match PanicError with ErrTaskPanic.
func (e *PanicError) Is(target error) bool {
	return target == ErrTaskPanic
}
