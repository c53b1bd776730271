// Package app wires the event store, logging, crash handling and settings
// into a running application with a single UI loop.
package app

import (
	"errors"
	"fmt"
)

// Application errors.
var (
	// ErrRestart is returned by Run when shutdown was requested with restart.
	ErrRestart = errors.New("restart requested")

	// ErrAlreadyRunning indicates the application is already running.
	ErrAlreadyRunning = errors.New("application already running")

	// ErrNotRunning indicates the application is not running.
	ErrNotRunning = errors.New("application not running")

	// ErrLoopStopped is returned when posting to a stopped UI loop.
	ErrLoopStopped = errors.New("ui loop stopped")
)

// InitError represents an error during application initialization.
type InitError struct {
	Component string
	Err       error
}

// Error implements the error interface.
func (e *InitError) Error() string {
	return fmt.Sprintf("init %s: %v", e.Component, e.Err)
}

// Unwrap returns the underlying error.
func (e *InitError) Unwrap() error {
	return e.Err
}
