package events

import (
	"time"

	"github.com/google/uuid"
)

// ExceptionReport describes an unexpected error for display and logging.
type ExceptionReport struct {
	// ID identifies the report in logs and in the dialog.
	ID uuid.UUID

	// Time is when the error was handled.
	Time time.Time

	// Entries holds one entry per error in the chain, outermost first.
	Entries []StackEntry
}

// Message returns the outermost error message.
func (r ExceptionReport) Message() string {
	if len(r.Entries) == 0 {
		return ""
	}
	return r.Entries[0].Message
}

// StackEntry is one error in a chain together with the frames it carries.
type StackEntry struct {
	Message string
	Type    string
	Frames  []CallStack
}

// CallStack is one frame of a stack entry.
type CallStack struct {
	Type  string
	Inner CallStackInner
}

// CallStackInner holds the location of a frame.
type CallStackInner struct {
	Module  string
	Method  string
	File    string
	Line    int
	Address string
}
