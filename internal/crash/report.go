package crash

import (
	"errors"
	"fmt"
	"path/filepath"
	"runtime"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/dshills/deskkit/internal/events"
)

const unknown = "Unknown"

// maxFrames bounds the frames captured per report.
const maxFrames = 64

// maxEntries bounds the errors walked per report.
const maxEntries = 32

// NewReport builds a report for err and the current goroutine's stack.
// skip is the number of callers to omit above NewReport itself.
//
// Every error in the Unwrap tree becomes an entry, depth first, following
// both Unwrap() error and Unwrap() []error. Errors carry no stack of their
// own, so the captured frames are attached to the outermost entry.
func NewReport(err error, skip int) events.ExceptionReport {
	if err == nil {
		err = errors.New(UnexpectedErrorMessage)
	}

	report := events.ExceptionReport{
		ID:   uuid.New(),
		Time: time.Now(),
	}

	frames := captureFrames(skip+2, fmt.Sprintf("%T", err))
	for _, e := range unwrapAll(err) {
		entry := events.StackEntry{
			Message: e.Error(),
			Type:    fmt.Sprintf("%T", e),
		}
		if len(report.Entries) == 0 {
			entry.Frames = frames
		}
		report.Entries = append(report.Entries, entry)
	}
	return report
}

// unwrapAll flattens the error tree rooted at err in pre-order.
func unwrapAll(err error) []error {
	var out []error
	stack := []error{err}
	for len(stack) > 0 && len(out) < maxEntries {
		e := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		if e == nil {
			continue
		}
		out = append(out, e)

		switch u := e.(type) {
		case interface{ Unwrap() error }:
			stack = append(stack, u.Unwrap())
		case interface{ Unwrap() []error }:
			children := u.Unwrap()
			for i := len(children) - 1; i >= 0; i-- {
				stack = append(stack, children[i])
			}
		}
	}
	return out
}

// captureFrames records the stack, skipping skip frames.
func captureFrames(skip int, typ string) []events.CallStack {
	pcs := make([]uintptr, maxFrames)
	n := runtime.Callers(skip+1, pcs)
	if n == 0 {
		return nil
	}

	var out []events.CallStack
	frames := runtime.CallersFrames(pcs[:n])
	for {
		f, more := frames.Next()
		out = append(out, events.CallStack{Type: typ, Inner: inner(f)})
		if !more {
			break
		}
	}
	return out
}

func inner(f runtime.Frame) events.CallStackInner {
	module, method := splitFunction(f.Function)

	file := unknown
	if f.File != "" {
		file = filepath.Base(f.File)
	}

	address := unknown
	if f.PC != 0 {
		address = fmt.Sprintf("0x%X", f.PC)
	}

	return events.CallStackInner{
		Module:  module,
		Method:  method,
		File:    file,
		Line:    f.Line,
		Address: address,
	}
}

// splitFunction splits "github.com/a/b/pkg.(*T).Method" into the package path
// and "(*T).Method".
func splitFunction(fn string) (module, method string) {
	if fn == "" {
		return unknown, unknown
	}
	slash := strings.LastIndex(fn, "/")
	dot := strings.Index(fn[slash+1:], ".")
	if dot < 0 {
		return unknown, fn
	}
	dot += slash + 1
	return fn[:dot], fn[dot+1:]
}

// FormatReport renders report as aligned text, one block per entry:
//
//	An unexpected error occurred.: <message>
//	Address    Module                                   Unit            Line  Method
func FormatReport(report events.ExceptionReport) string {
	var b strings.Builder
	for _, entry := range report.Entries {
		fmt.Fprintf(&b, "%s: %s\n", UnexpectedErrorMessage, entry.Message)
		fmt.Fprintf(&b, "%-10s %-40s %-15s %-5s %s\n", "Address", "Module", "Unit", "Line", "Method")
		for _, f := range entry.Frames {
			in := f.Inner
			fmt.Fprintf(&b, "%-10s %-40s %-15s %-5d %s\n", in.Address, in.Module, in.File, in.Line, in.Method)
		}
	}
	b.WriteString("\n")
	return b.String()
}
