package app

import (
	"sync"
	"time"

	"github.com/rs/zerolog"
)

// DefaultLogViewCapacity is the number of lines each log view keeps.
const DefaultLogViewCapacity = 1000

// TextLine is one line of the text log view.
type TextLine struct {
	Source string
	Line   string
}

// GridRow is one row of the grid log view.
type GridRow struct {
	Time    time.Time
	Level   zerolog.Level
	Message string
}

// LogView holds the most recent control log output in text and grid form.
type LogView struct {
	mu    sync.RWMutex
	lines ring[TextLine]
	rows  ring[GridRow]
}

// NewLogView creates a view that keeps at most capacity entries of each kind.
func NewLogView(capacity int) *LogView {
	if capacity <= 0 {
		capacity = DefaultLogViewCapacity
	}
	return &LogView{
		lines: ring[TextLine]{size: capacity},
		rows:  ring[GridRow]{size: capacity},
	}
}

// AppendText adds a rendered line, dropping the oldest when full.
func (v *LogView) AppendText(source, line string) {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.lines.push(TextLine{Source: source, Line: line})
}

// AppendRow adds a grid row, dropping the oldest when full.
func (v *LogView) AppendRow(t time.Time, level zerolog.Level, msg string) {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.rows.push(GridRow{Time: t, Level: level, Message: msg})
}

// Lines returns a copy of the text lines, oldest first.
func (v *LogView) Lines() []TextLine {
	v.mu.RLock()
	defer v.mu.RUnlock()
	return v.lines.items()
}

// Rows returns a copy of the grid rows, oldest first.
func (v *LogView) Rows() []GridRow {
	v.mu.RLock()
	defer v.mu.RUnlock()
	return v.rows.items()
}

// Clear empties both views.
func (v *LogView) Clear() {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.lines.reset()
	v.rows.reset()
}

// ring is a fixed-size buffer that overwrites its oldest entry when full.
type ring[T any] struct {
	buf   []T
	start int // index of the oldest entry once full
	size  int
}

func (r *ring[T]) push(v T) {
	if len(r.buf) < r.size {
		r.buf = append(r.buf, v)
		return
	}
	r.buf[r.start] = v
	r.start = (r.start + 1) % r.size
}

func (r *ring[T]) items() []T {
	out := make([]T, 0, len(r.buf))
	out = append(out, r.buf[r.start:]...)
	return append(out, r.buf[:r.start]...)
}

func (r *ring[T]) reset() {
	r.buf = nil
	r.start = 0
}
