package logging

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/dshills/deskkit/internal/events"
)

func readFile(t *testing.T, path string) string {
	t.Helper()
	b, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read %s: %v", path, err)
	}
	return string(b)
}

func TestService_DisabledByDefault(t *testing.T) {
	s := NewService()

	// Nothing has been created, so nothing should panic or be written.
	s.Write(zerolog.InfoLevel, "hello")
	s.WriteStackTrace(events.ExceptionReport{}, "")

	if text, grid := s.Sinks(); text != nil || grid != nil {
		t.Error("expected no sinks before CreateControlLogger")
	}
	if err := s.Close(); err != nil {
		t.Errorf("Close: %v", err)
	}
}

func TestService_ControlLogger(t *testing.T) {
	s := NewService(WithLevel(zerolog.DebugLevel))
	text, grid := s.CreateControlLogger()

	var lines []string
	var sources []string
	textSlot, _ := text.Slot(events.TextLogReceived.Name())
	textSlot.Attach(func(src, line string) {
		sources = append(sources, src)
		lines = append(lines, line)
	})

	var levels []zerolog.Level
	gridSlot, _ := grid.Slot(events.GridLogReceived.Name())
	gridSlot.Attach(func(_ time.Time, level zerolog.Level, _ string) {
		levels = append(levels, level)
	})

	s.Write(zerolog.InfoLevel, "first")
	s.BindContext("MainWindow")
	s.Write(zerolog.WarnLevel, "second")
	s.Write(zerolog.TraceLevel, "filtered")

	if len(lines) != 2 {
		t.Fatalf("expected 2 lines, got %v", lines)
	}
	if sources[0] != "" || sources[1] != "MainWindow" {
		t.Errorf("unexpected sources: %v", sources)
	}
	if !strings.Contains(lines[1], "second") {
		t.Errorf("unexpected line: %q", lines[1])
	}
	if len(levels) != 2 || levels[0] != zerolog.InfoLevel || levels[1] != zerolog.WarnLevel {
		t.Errorf("unexpected grid levels: %v", levels)
	}

	if gotText, gotGrid := s.Sinks(); gotText != text || gotGrid != grid {
		t.Error("expected Sinks to return the created sinks")
	}
}

func TestService_FileLoggers(t *testing.T) {
	dir := t.TempDir()
	s := NewService()

	if err := s.CreateFileLoggers(dir); err != nil {
		t.Fatalf("CreateFileLoggers: %v", err)
	}

	s.Write(zerolog.ErrorLevel, "written to file")

	report := events.ExceptionReport{
		ID:      uuid.New(),
		Entries: []events.StackEntry{{Message: "broken pipe"}},
	}
	s.WriteStackTrace(report, "0x1 main main.go 10 main.run")
	freeze := s.Logger(Freeze)
	freeze.Warn().Dur("stalled", time.Second).Msg("ui loop stalled")

	if err := s.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}

	appLog := readFile(t, filepath.Join(dir, AppLogFile))
	if !strings.Contains(appLog, "written to file") || !strings.Contains(appLog, "ERR") {
		t.Errorf("unexpected app log: %q", appLog)
	}

	stack := readFile(t, filepath.Join(dir, StackTraceDir, StackTraceLogFile))
	if !strings.Contains(stack, report.ID.String()) || !strings.Contains(stack, "broken pipe") {
		t.Errorf("unexpected stack trace log: %q", stack)
	}
	if !strings.Contains(stack, "main.run") {
		t.Errorf("expected trace in stack log: %q", stack)
	}

	freezeLog := readFile(t, filepath.Join(dir, FreezeDir, FreezeLogFile))
	if !strings.Contains(freezeLog, "ui loop stalled") {
		t.Errorf("unexpected freeze log: %q", freezeLog)
	}

	// Loggers are disabled after Close.
	s.Write(zerolog.ErrorLevel, "after close")
	if strings.Contains(readFile(t, filepath.Join(dir, AppLogFile)), "after close") {
		t.Error("expected no writes after Close")
	}
}

func TestService_FileLoggers_EmptyDir(t *testing.T) {
	if err := NewService().CreateFileLoggers(""); err == nil {
		t.Error("expected error for empty directory")
	}
}

func TestService_Console(t *testing.T) {
	var buf bytes.Buffer
	s := NewService(WithConsole(&buf))
	s.CreateControlLogger()

	s.Write(zerolog.InfoLevel, "to console")

	out := buf.String()
	if !strings.Contains(out, "to console") {
		t.Errorf("expected console output, got %q", out)
	}
	if strings.Contains(out, "\x1b[") {
		t.Errorf("expected no colour for a non-terminal writer: %q", out)
	}
}

func TestKind_String(t *testing.T) {
	tests := []struct {
		kind Kind
		want string
	}{
		{Control, "control"},
		{File, "file"},
		{StackTrace, "stack-trace"},
		{Freeze, "freeze"},
		{Kind(42), "unknown"},
	}
	for _, tt := range tests {
		if got := tt.kind.String(); got != tt.want {
			t.Errorf("Kind(%d).String() = %q, want %q", tt.kind, got, tt.want)
		}
	}
}

func TestService_SetLevel(t *testing.T) {
	s := NewService()
	text, _ := s.CreateControlLogger()

	var lines []string
	slot, _ := text.Slot(events.TextLogReceived.Name())
	slot.Attach(func(_, line string) { lines = append(lines, line) })

	s.Write(zerolog.DebugLevel, "hidden")
	s.SetLevel(zerolog.DebugLevel)
	s.Write(zerolog.DebugLevel, "shown")

	if s.Level() != zerolog.DebugLevel {
		t.Errorf("expected debug level, got %v", s.Level())
	}
	if len(lines) != 1 || !strings.Contains(lines[0], "shown") {
		t.Errorf("unexpected lines: %v", lines)
	}
}

func TestService_SetLevel_HeldCopies(t *testing.T) {
	dir := t.TempDir()
	s := NewService()
	if err := s.CreateFileLoggers(dir); err != nil {
		t.Fatalf("CreateFileLoggers: %v", err)
	}

	// Components keep their own copy from startup.
	held := s.Logger(File)

	held.Debug().Msg("debug before")
	s.SetLevel(zerolog.DebugLevel)
	held.Debug().Msg("debug after")
	s.SetLevel(zerolog.ErrorLevel)
	held.Warn().Msg("warn at error level")

	if err := s.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}

	appLog := readFile(t, filepath.Join(dir, AppLogFile))
	if strings.Contains(appLog, "debug before") {
		t.Errorf("expected debug record to be filtered at info: %q", appLog)
	}
	if !strings.Contains(appLog, "debug after") {
		t.Errorf("expected held copy to follow SetLevel: %q", appLog)
	}
	if strings.Contains(appLog, "warn at error level") {
		t.Errorf("expected warn record to be filtered at error: %q", appLog)
	}
}

func TestService_Close_HeldCopies(t *testing.T) {
	dir := t.TempDir()
	s := NewService()
	if err := s.CreateFileLoggers(dir); err != nil {
		t.Fatalf("CreateFileLoggers: %v", err)
	}

	held := s.Logger(StackTrace)
	held.Error().Msg("before close")
	if err := s.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}

	path := filepath.Join(dir, StackTraceDir, StackTraceLogFile)
	before := readFile(t, path)
	held.Error().Msg("after close")

	after := readFile(t, path)
	if after != before || strings.Contains(after, "after close") {
		t.Errorf("expected no writes through a held copy after Close: %q", after)
	}
}

func TestService_CreateFileLoggers_ReplacesGates(t *testing.T) {
	first, second := t.TempDir(), t.TempDir()
	s := NewService()
	if err := s.CreateFileLoggers(first); err != nil {
		t.Fatalf("CreateFileLoggers: %v", err)
	}
	held := s.Logger(File)
	held.Error().Msg("first file")

	if err := s.CreateFileLoggers(second); err != nil {
		t.Fatalf("CreateFileLoggers: %v", err)
	}
	held.Error().Msg("stale copy")
	s.Write(zerolog.ErrorLevel, "current logger")
	if err := s.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}

	old := readFile(t, filepath.Join(first, AppLogFile))
	if !strings.Contains(old, "first file") || strings.Contains(old, "stale copy") {
		t.Errorf("expected replaced file to stop receiving writes: %q", old)
	}
	if !strings.Contains(readFile(t, filepath.Join(second, AppLogFile)), "current logger") {
		t.Error("expected current logger to write the new file")
	}
}

func TestService_ControlTimestampPrecision(t *testing.T) {
	fixed := time.Date(2026, 3, 4, 5, 6, 7, 123456789, time.UTC)
	s := NewService()
	s.now = func() time.Time { return fixed }
	_, grid := s.CreateControlLogger()

	var got time.Time
	slot, _ := grid.Slot(events.GridLogReceived.Name())
	slot.Attach(func(ts time.Time, _ zerolog.Level, _ string) { got = ts })

	s.Write(zerolog.InfoLevel, "first")
	if !got.Equal(fixed) {
		t.Errorf("expected %v, got %v", fixed, got)
	}
	if got.Nanosecond() != 123456789 {
		t.Errorf("expected nanoseconds to survive, got %d", got.Nanosecond())
	}
}

func TestService_FileTimestampPrecision(t *testing.T) {
	dir := t.TempDir()
	s := NewService()
	s.now = func() time.Time { return time.Date(2026, 3, 4, 5, 6, 7, 250000000, time.Local) }
	if err := s.CreateFileLoggers(dir); err != nil {
		t.Fatalf("CreateFileLoggers: %v", err)
	}
	s.Write(zerolog.InfoLevel, "stamped")
	if err := s.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}

	if appLog := readFile(t, filepath.Join(dir, AppLogFile)); !strings.Contains(appLog, "2026-03-04 05:06:07.250") {
		t.Errorf("expected millisecond timestamp in app log: %q", appLog)
	}
}
