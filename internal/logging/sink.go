package logging

import (
	"bytes"
	"encoding/json"
	"strings"
	"sync/atomic"
	"time"

	"github.com/rs/zerolog"

	"github.com/dshills/deskkit/internal/eventstore"
	"github.com/dshills/deskkit/internal/events"
)

// SinkMode selects which slot a ControlSink raises.
type SinkMode int

const (
	// TextSink raises OnTextLogReceived with a rendered line.
	TextSink SinkMode = iota

	// GridSink raises OnGridLogReceived with the record's columns.
	GridSink
)

// String returns the mode name.
func (m SinkMode) String() string {
	switch m {
	case TextSink:
		return "text"
	case GridSink:
		return "grid"
	default:
		return "unknown"
	}
}

// SourceField is the field BindContext tags control records with.
const SourceField = "source"

// textTimeFormat matches the timestamp layout of the log files.
const textTimeFormat = "2006-01-02 15:04:05.000 -07:00"

// ControlSink turns zerolog records into slot notifications for a log view.
type ControlSink struct {
	eventstore.Slots

	mode    SinkMode
	render  zerolog.ConsoleWriter
	dropped atomic.Uint64
}

// NewControlSink creates a sink that raises the slot for mode.
func NewControlSink(mode SinkMode) *ControlSink {
	s := &ControlSink{mode: mode}
	s.MustDefine(events.TextLogReceived)
	s.MustDefine(events.GridLogReceived)
	s.render = zerolog.ConsoleWriter{
		NoColor:    true,
		TimeFormat: textTimeFormat,
		// The source is delivered separately.
		FieldsExclude: []string{SourceField},
	}
	return s
}

// Mode returns the sink mode.
func (s *ControlSink) Mode() SinkMode {
	return s.mode
}

// Dropped returns the number of records that could not be decoded.
func (s *ControlSink) Dropped() uint64 {
	return s.dropped.Load()
}

// record is the subset of a zerolog JSON record the sink reads.
type record struct {
	Level   string `json:"level"`
	Time    string `json:"time"`
	Message string `json:"message"`
	Source  string `json:"source"`
}

// Write implements io.Writer for zerolog. It never fails; records that cannot
// be decoded are counted and skipped.
func (s *ControlSink) Write(p []byte) (int, error) {
	var rec record
	if err := json.Unmarshal(p, &rec); err != nil {
		s.dropped.Add(1)
		return len(p), nil
	}

	d := eventstore.Direct(s)

	if s.mode == GridSink {
		level, err := zerolog.ParseLevel(rec.Level)
		if err != nil {
			level = zerolog.NoLevel
		}
		eventstore.Dispatch3(d, events.GridLogReceived, parseTime(rec.Time), level, rec.Message)
		return len(p), nil
	}

	var buf bytes.Buffer
	w := s.render
	w.Out = &buf
	if _, err := w.Write(p); err != nil {
		s.dropped.Add(1)
		return len(p), nil
	}
	eventstore.Dispatch2(d, events.TextLogReceived, rec.Source, strings.TrimRight(buf.String(), "\n"))
	return len(p), nil
}

// parseTime reads a zerolog timestamp, falling back to now.
func parseTime(v string) time.Time {
	if v == "" {
		return time.Now()
	}
	if t, err := time.Parse(zerolog.TimeFieldFormat, v); err == nil {
		return t
	}
	if t, err := time.Parse(time.RFC3339Nano, v); err == nil {
		return t
	}
	return time.Now()
}
