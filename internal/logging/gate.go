package logging

import (
	"io"
	"sync"
	"sync/atomic"
	"time"

	"github.com/rs/zerolog"
)

// levelGate filters records against the service level at write time, so
// logger copies handed out before SetLevel or Close follow both.
type levelGate struct {
	mu     sync.RWMutex
	level  *atomic.Int32
	closed bool
	out    zerolog.LevelWriter
}

func newLevelGate(level *atomic.Int32, w io.Writer) *levelGate {
	lw, ok := w.(zerolog.LevelWriter)
	if !ok {
		lw = zerolog.MultiLevelWriter(w)
	}
	return &levelGate{level: level, out: lw}
}

func (g *levelGate) allows(l zerolog.Level) bool {
	return l == zerolog.NoLevel || l >= zerolog.Level(g.level.Load())
}

// Write passes records without a level.
func (g *levelGate) Write(p []byte) (int, error) {
	return g.WriteLevel(zerolog.NoLevel, p)
}

// WriteLevel implements zerolog.LevelWriter.
func (g *levelGate) WriteLevel(l zerolog.Level, p []byte) (int, error) {
	if !g.allows(l) {
		return len(p), nil
	}
	g.mu.RLock()
	defer g.mu.RUnlock()
	if g.closed {
		return len(p), nil
	}
	return g.out.WriteLevel(l, p)
}

// close waits for in-flight writes and drops every later one.
func (g *levelGate) close() {
	g.mu.Lock()
	g.closed = true
	g.mu.Unlock()
}

// timestampHook stamps records with nanosecond precision regardless of
// zerolog.TimeFieldFormat.
type timestampHook struct {
	now func() time.Time
}

func (h timestampHook) Run(e *zerolog.Event, _ zerolog.Level, _ string) {
	e.Str(zerolog.TimestampFieldName, h.now().Format(time.RFC3339Nano))
}
