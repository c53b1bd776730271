package config

import (
	"errors"
	"time"

	"github.com/rs/zerolog"
)

// EnvPrefix is prepended to every environment variable read by Load.
const EnvPrefix = "DESKKIT_"

// Settings holds the application settings.
type Settings struct {
	Log         LogSettings         `toml:"log" yaml:"log" json:"log" envPrefix:"LOG_"`
	Window      WindowSettings      `toml:"window" yaml:"window" json:"window" envPrefix:"WINDOW_"`
	Async       AsyncSettings       `toml:"async" yaml:"async" json:"async" envPrefix:"ASYNC_"`
	Diagnostics DiagnosticsSettings `toml:"diagnostics" yaml:"diagnostics" json:"diagnostics" envPrefix:"DIAGNOSTICS_"`
}

// LogSettings configures the logging service.
type LogSettings struct {
	// Level is a zerolog level name: trace, debug, info, warn, error.
	Level string `toml:"level" yaml:"level" json:"level" env:"LEVEL"`

	// Dir is the directory for log files. Empty disables file logging.
	Dir string `toml:"dir" yaml:"dir" json:"dir" env:"DIR"`

	// Console also writes log output to stderr.
	Console bool `toml:"console" yaml:"console" json:"console" env:"CONSOLE"`

	// Rotation, passed to the rolling file writer.
	MaxSizeMB  int  `toml:"max_size_mb" yaml:"max_size_mb" json:"max_size_mb" env:"MAX_SIZE_MB"`
	MaxBackups int  `toml:"max_backups" yaml:"max_backups" json:"max_backups" env:"MAX_BACKUPS"`
	MaxAgeDays int  `toml:"max_age_days" yaml:"max_age_days" json:"max_age_days" env:"MAX_AGE_DAYS"`
	Compress   bool `toml:"compress" yaml:"compress" json:"compress" env:"COMPRESS"`
}

// WindowSettings configures the main window.
type WindowSettings struct {
	StartMinimized bool `toml:"start_minimized" yaml:"start_minimized" json:"start_minimized" env:"START_MINIMIZED"`
	CloseToTray    bool `toml:"close_to_tray" yaml:"close_to_tray" json:"close_to_tray" env:"CLOSE_TO_TRAY"`
}

// AsyncSettings configures the worker pool for async slot handlers.
type AsyncSettings struct {
	Workers   int `toml:"workers" yaml:"workers" json:"workers" env:"WORKERS"`
	QueueSize int `toml:"queue_size" yaml:"queue_size" json:"queue_size" env:"QUEUE_SIZE"`
	TimeoutMS int `toml:"timeout_ms" yaml:"timeout_ms" json:"timeout_ms" env:"TIMEOUT_MS"`
}

// Timeout returns the per-handler deadline.
func (a AsyncSettings) Timeout() time.Duration {
	return time.Duration(a.TimeoutMS) * time.Millisecond
}

// DiagnosticsSettings configures the local diagnostics server.
type DiagnosticsSettings struct {
	// Addr is the listen address, e.g. "127.0.0.1:7070". Empty disables the server.
	Addr string `toml:"addr" yaml:"addr" json:"addr" env:"ADDR"`
}

// Default returns the built-in settings.
func Default() Settings {
	return Settings{
		Log: LogSettings{
			Level:      "info",
			MaxSizeMB:  10,
			MaxBackups: 5,
			MaxAgeDays: 30,
			Compress:   true,
		},
		Async: AsyncSettings{
			Workers:   4,
			QueueSize: 256,
			TimeoutMS: 5000,
		},
	}
}

// Validate checks the settings. All problems are reported, joined.
func (s Settings) Validate() error {
	var errs []error
	invalid := func(field, msg string, v any) {
		errs = append(errs, &ValidationError{Field: field, Message: msg, Value: v})
	}

	if _, err := zerolog.ParseLevel(s.Log.Level); err != nil || s.Log.Level == "" {
		invalid("log.level", "unknown level", s.Log.Level)
	}
	if s.Log.MaxSizeMB < 0 {
		invalid("log.max_size_mb", "must not be negative", s.Log.MaxSizeMB)
	}
	if s.Log.MaxBackups < 0 {
		invalid("log.max_backups", "must not be negative", s.Log.MaxBackups)
	}
	if s.Log.MaxAgeDays < 0 {
		invalid("log.max_age_days", "must not be negative", s.Log.MaxAgeDays)
	}
	if s.Async.Workers < 1 {
		invalid("async.workers", "must be at least 1", s.Async.Workers)
	}
	if s.Async.QueueSize < 1 {
		invalid("async.queue_size", "must be at least 1", s.Async.QueueSize)
	}
	if s.Async.TimeoutMS < 0 {
		invalid("async.timeout_ms", "must not be negative", s.Async.TimeoutMS)
	}

	return errors.Join(errs...)
}

// LogLevel returns the parsed log level, or info if it is invalid.
func (s Settings) LogLevel() zerolog.Level {
	level, err := zerolog.ParseLevel(s.Log.Level)
	if err != nil || s.Log.Level == "" {
		return zerolog.InfoLevel
	}
	return level
}
