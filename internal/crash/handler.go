// Package crash turns unexpected errors and panics into exception reports.
//
// A Handler logs each report to the stack-trace log and raises
// ShowGlobalExceptionDialog. If handling the error fails in turn, the handler
// falls back to the fatal path and raises ShutdownApplication.
package crash

import (
	"fmt"
	"runtime/debug"
	"sync/atomic"

	"github.com/rs/zerolog"

	"github.com/dshills/deskkit/internal/eventstore"
	"github.com/dshills/deskkit/internal/events"
)

// User-facing messages.
const (
	UnexpectedErrorMessage = "An unexpected error occurred."
	FatalErrorMessage      = "A fatal error occurred. The program will be terminated."
)

// TraceWriter records formatted exception reports.
type TraceWriter interface {
	WriteStackTrace(report events.ExceptionReport, trace string)
}

// PanicError wraps a value recovered from a panic.
type PanicError struct {
	Value any
	Stack string
}

// Error implements the error interface.
func (e *PanicError) Error() string {
	return fmt.Sprintf("panic: %v", e.Value)
}

// Unwrap returns the panic value if it is an error.
func (e *PanicError) Unwrap() error {
	err, _ := e.Value.(error)
	return err
}

// Handler routes unexpected errors to the stack-trace log and the
// exception dialog slot.
type Handler struct {
	traces     TraceWriter
	dispatcher eventstore.Dispatchable
	log        zerolog.Logger

	handled atomic.Uint64
	fatal   atomic.Uint64
}

// Option configures a Handler.
type Option func(*Handler)

// WithLogger sets the logger used for the fatal path.
func WithLogger(log zerolog.Logger) Option {
	return func(h *Handler) {
		h.log = log
	}
}

// NewHandler creates a handler that writes reports to traces and raises
// slots through d.
func NewHandler(traces TraceWriter, d eventstore.Dispatchable, opts ...Option) *Handler {
	h := &Handler{
		traces:     traces,
		dispatcher: d,
		log:        zerolog.Nop(),
	}
	for _, opt := range opts {
		opt(h)
	}
	return h
}

// Guard runs fn, handling any panic it raises.
func (h *Handler) Guard(fn func()) {
	defer func() {
		if r := recover(); r != nil {
			h.Handle(&PanicError{Value: r, Stack: string(debug.Stack())})
		}
	}()
	fn()
}

// Go runs fn on a new goroutine under Guard.
func (h *Handler) Go(fn func()) {
	go h.Guard(fn)
}

// Handle reports err. A nil err is reported as an unexpected error.
func (h *Handler) Handle(err error) {
	defer func() {
		if r := recover(); r != nil {
			h.handleFatal(&PanicError{Value: r, Stack: string(debug.Stack())})
		}
	}()

	h.handled.Add(1)

	report := NewReport(err, 1)
	h.traces.WriteStackTrace(report, FormatReport(report))

	eventstore.Dispatch1(h.dispatcher, events.ShowGlobalExceptionDialog, report)
}

// handleFatal is the last resort when Handle itself failed.
func (h *Handler) handleFatal(err error) {
	defer func() { _ = recover() }()

	h.fatal.Add(1)
	h.log.Error().Err(err).Msg(FatalErrorMessage)

	eventstore.Dispatch1(h.dispatcher, events.ShutdownApplication, false)
}

// Handled returns the number of errors handled.
func (h *Handler) Handled() uint64 {
	return h.handled.Load()
}

// Fatal returns the number of times the fatal path was taken.
func (h *Handler) Fatal() uint64 {
	return h.fatal.Load()
}
