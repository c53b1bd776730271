package logging

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sync"
	"sync/atomic"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/term"
	"gopkg.in/natefinch/lumberjack.v2"

	"github.com/dshills/deskkit/internal/events"
)

// Kind selects one of the service's loggers.
type Kind int

const (
	// Control feeds the log views.
	Control Kind = iota
	// File is the general application log.
	File
	// StackTrace receives unexpected error reports.
	StackTrace
	// Freeze receives UI stall notices.
	Freeze
)

// String returns the kind name.
func (k Kind) String() string {
	switch k {
	case Control:
		return "control"
	case File:
		return "file"
	case StackTrace:
		return "stack-trace"
	case Freeze:
		return "freeze"
	default:
		return "unknown"
	}
}

// Log file locations relative to the log directory.
const (
	AppLogFile        = "app-log.txt"
	StackTraceDir     = "stack-trace"
	StackTraceLogFile = "app-stack-trace.txt"
	FreezeDir         = "freeze"
	FreezeLogFile     = "app-freeze-log.txt"
)

// Rotation configures the rolling log files.
type Rotation struct {
	MaxSizeMB  int
	MaxBackups int
	MaxAgeDays int
	Compress   bool
}

// DefaultRotation returns the rotation used when none is configured.
func DefaultRotation() Rotation {
	return Rotation{MaxSizeMB: 10, MaxBackups: 5, MaxAgeDays: 30, Compress: true}
}

// Service owns the application's loggers. Loggers that have not been
// created are disabled.
type Service struct {
	mu sync.RWMutex

	level    atomic.Int32
	rotation Rotation
	console  io.Writer
	now      func() time.Time

	control    zerolog.Logger
	controlCtx *zerolog.Logger
	file       zerolog.Logger
	stackTrace zerolog.Logger
	freeze     zerolog.Logger

	textSink *ControlSink
	gridSink *ControlSink
	files    []*lumberjack.Logger

	controlGate *levelGate
	fileGates   []*levelGate
}

// Option configures a Service.
type Option func(*Service)

// WithLevel sets the minimum level of every logger.
func WithLevel(level zerolog.Level) Option {
	return func(s *Service) {
		s.level.Store(int32(level))
	}
}

// WithRotation sets the rolling file limits.
func WithRotation(r Rotation) Option {
	return func(s *Service) {
		s.rotation = r
	}
}

// WithConsole mirrors control and file output to w in console format.
// Colour is used only when w is a terminal.
func WithConsole(w io.Writer) Option {
	return func(s *Service) {
		s.console = zerolog.ConsoleWriter{
			Out:        w,
			TimeFormat: "15:04:05",
			NoColor:    !isTerminal(w),
		}
	}
}

// NewService creates a service with every logger disabled.
func NewService(opts ...Option) *Service {
	s := &Service{
		rotation:   DefaultRotation(),
		now:        time.Now,
		control:    zerolog.Nop(),
		file:       zerolog.Nop(),
		stackTrace: zerolog.Nop(),
		freeze:     zerolog.Nop(),
	}
	s.level.Store(int32(zerolog.InfoLevel))
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// CreateControlLogger creates the control logger and its two sinks.
func (s *Service) CreateControlLogger() (text, grid *ControlSink) {
	text = NewControlSink(TextSink)
	grid = NewControlSink(GridSink)

	writers := []io.Writer{text, grid}
	if s.console != nil {
		writers = append(writers, s.console)
	}

	gate := newLevelGate(&s.level, zerolog.MultiLevelWriter(writers...))
	logger := zerolog.New(gate).Hook(timestampHook{now: s.now})

	s.mu.Lock()
	if s.controlGate != nil {
		s.controlGate.close()
	}
	s.controlGate = gate
	s.control = logger
	s.controlCtx = nil
	s.textSink = text
	s.gridSink = grid
	s.mu.Unlock()

	return text, grid
}

// Sinks returns the control sinks, or nil before CreateControlLogger.
func (s *Service) Sinks() (text, grid *ControlSink) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.textSink, s.gridSink
}

// CreateFileLoggers opens the rolling log files under dir.
func (s *Service) CreateFileLoggers(dir string) error {
	if dir == "" {
		return errors.New("log directory is empty")
	}

	paths := map[Kind]string{
		File:       filepath.Join(dir, AppLogFile),
		StackTrace: filepath.Join(dir, StackTraceDir, StackTraceLogFile),
		Freeze:     filepath.Join(dir, FreezeDir, FreezeLogFile),
	}

	loggers := make(map[Kind]zerolog.Logger, len(paths))
	var files []*lumberjack.Logger
	var gates []*levelGate

	for kind, path := range paths {
		if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
			return fmt.Errorf("create %s log directory: %w", kind, err)
		}

		lj := &lumberjack.Logger{
			Filename:   path,
			MaxSize:    s.rotation.MaxSizeMB,
			MaxBackups: s.rotation.MaxBackups,
			MaxAge:     s.rotation.MaxAgeDays,
			Compress:   s.rotation.Compress,
		}
		files = append(files, lj)

		var out io.Writer = zerolog.ConsoleWriter{
			Out:        lj,
			NoColor:    true,
			TimeFormat: textTimeFormat,
		}
		if kind == File && s.console != nil {
			out = zerolog.MultiLevelWriter(out, s.console)
		}

		gate := newLevelGate(&s.level, out)
		gates = append(gates, gate)
		loggers[kind] = zerolog.New(gate).Hook(timestampHook{now: s.now})
	}

	s.mu.Lock()
	old := s.files
	for _, g := range s.fileGates {
		g.close()
	}
	s.fileGates = gates
	s.file = loggers[File]
	s.stackTrace = loggers[StackTrace]
	s.freeze = loggers[Freeze]
	s.files = files
	s.mu.Unlock()

	return closeAll(old)
}

// BindContext tags subsequent control records with source.
func (s *Service) BindContext(source string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	ctx := s.control.With().Str(SourceField, source).Logger()
	s.controlCtx = &ctx
}

// Write logs msg at level to the control and file loggers.
func (s *Service) Write(level zerolog.Level, msg string) {
	s.mu.RLock()
	ctrl := s.control
	if s.controlCtx != nil {
		ctrl = *s.controlCtx
	}
	file := s.file
	s.mu.RUnlock()

	ctrl.WithLevel(level).Msg(msg)
	file.WithLevel(level).Msg(msg)
}

// WriteStackTrace logs an exception report with its formatted trace.
func (s *Service) WriteStackTrace(report events.ExceptionReport, trace string) {
	l := s.Logger(StackTrace)
	l.Error().
		Str("report", report.ID.String()).
		Int("errors", len(report.Entries)).
		Msg(report.Message() + "\n" + trace)
}

// SetLevel changes the minimum level of every logger, including copies
// already handed out by Logger.
func (s *Service) SetLevel(level zerolog.Level) {
	s.level.Store(int32(level))
}

// Level returns the current minimum level.
func (s *Service) Level() zerolog.Level {
	return zerolog.Level(s.level.Load())
}

// Logger returns the logger of the given kind.
func (s *Service) Logger(kind Kind) zerolog.Logger {
	s.mu.RLock()
	defer s.mu.RUnlock()

	switch kind {
	case Control:
		if s.controlCtx != nil {
			return *s.controlCtx
		}
		return s.control
	case File:
		return s.file
	case StackTrace:
		return s.stackTrace
	case Freeze:
		return s.freeze
	default:
		return zerolog.Nop()
	}
}

// Close closes the log files and disables every logger. Copies obtained
// from Logger stop writing as well.
func (s *Service) Close() error {
	s.mu.Lock()
	if s.controlGate != nil {
		s.controlGate.close()
		s.controlGate = nil
	}
	for _, g := range s.fileGates {
		g.close()
	}
	s.fileGates = nil
	files := s.files
	s.files = nil
	s.control = zerolog.Nop()
	s.controlCtx = nil
	s.file = zerolog.Nop()
	s.stackTrace = zerolog.Nop()
	s.freeze = zerolog.Nop()
	s.mu.Unlock()

	return closeAll(files)
}

func closeAll(files []*lumberjack.Logger) error {
	var errs []error
	for _, f := range files {
		if err := f.Close(); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// isTerminal reports whether w is a terminal.
func isTerminal(w io.Writer) bool {
	f, ok := w.(*os.File)
	return ok && term.IsTerminal(int(f.Fd()))
}
