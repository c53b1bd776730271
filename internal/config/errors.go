package config

import (
	"errors"
	"fmt"
)

// Errors returned by configuration operations.
var (
	// ErrUnsupportedFormat indicates the settings file extension is not recognised.
	ErrUnsupportedFormat = errors.New("unsupported settings format")

	// ErrInvalidSettings indicates the settings failed validation.
	ErrInvalidSettings = errors.New("invalid settings")

	// ErrWatcherClosed indicates the watcher has been closed.
	ErrWatcherClosed = errors.New("watcher is closed")
)

// LoadError describes a failure in one stage of Load.
type LoadError struct {
	// Path is the settings file path.
	Path string
	// Stage is the layer that failed: "read", "decode", "dotenv", "env" or "validate".
	Stage string
	// Err is the underlying error.
	Err error
}

// Error implements the error interface.
func (e *LoadError) Error() string {
	if e.Path == "" {
		return fmt.Sprintf("load settings (%s): %v", e.Stage, e.Err)
	}
	return fmt.Sprintf("load settings %s (%s): %v", e.Path, e.Stage, e.Err)
}

// Unwrap returns the underlying error.
func (e *LoadError) Unwrap() error {
	return e.Err
}

// ValidationError describes one invalid setting.
type ValidationError struct {
	// Field is the dotted setting name, e.g. "log.level".
	Field string
	// Message describes the problem.
	Message string
	// Value is the invalid value.
	Value any
}

// Error implements the error interface.
func (e *ValidationError) Error() string {
	return fmt.Sprintf("%s: %s (value: %v)", e.Field, e.Message, e.Value)
}

// Is allows errors.Is to match ValidationError with ErrInvalidSettings.
func (e *ValidationError) Is(target error) bool {
	return target == ErrInvalidSettings
}
