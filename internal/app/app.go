package app

import (
	"context"
	"io"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/dshills/deskkit/internal/config"
	"github.com/dshills/deskkit/internal/crash"
	"github.com/dshills/deskkit/internal/diag"
	"github.com/dshills/deskkit/internal/eventstore"
	"github.com/dshills/deskkit/internal/eventstore/async"
	"github.com/dshills/deskkit/internal/events"
	"github.com/dshills/deskkit/internal/logging"
)

// shutdownTimeout bounds the teardown of background components.
const shutdownTimeout = 5 * time.Second

// Options configures application startup.
type Options struct {
	// ConfigPath is the settings file. Empty means defaults and environment
	// only, without a watcher.
	ConfigPath string

	// LogDir overrides the configured log directory.
	LogDir string

	// Debug forces debug logging.
	Debug bool

	// Console mirrors log output to the writer.
	Console io.Writer

	// Version is reported by diagnostics.
	Version string

	// StallThreshold is how long a UI loop task may run before it is
	// reported as a freeze. Zero uses DefaultStallThreshold; negative
	// disables detection.
	StallThreshold time.Duration

	// LoopQueueSize bounds pending UI loop tasks.
	LoopQueueSize int
}

// Application owns the event store and every component that registers with
// or dispatches through it.
type Application struct {
	mu       sync.RWMutex
	opts     Options
	settings config.Settings
	session  uuid.UUID

	logs    *logging.Service
	log     zerolog.Logger
	pool    *async.Pool
	store   *eventstore.Store
	crash   *crash.Handler
	window  *MainWindow
	loop    *eventLoop
	watcher *config.Watcher
	diag    *diag.Server
	metrics *Metrics

	running      atomic.Bool
	closed       atomic.Bool
	restart      atomic.Bool
	teardownOnce sync.Once
}

// New creates and initializes an application.
func New(opts Options) (*Application, error) {
	app := &Application{
		opts:    opts,
		session: uuid.New(),
		log:     zerolog.Nop(),
		metrics: NewMetrics(),
	}
	if err := newBootstrapper(app, opts).bootstrap(); err != nil {
		return nil, err
	}
	return app, nil
}

// Run processes the UI loop until shutdown or ctx is done, then tears the
// application down. It returns ErrRestart if shutdown asked for a restart.
func (app *Application) Run(ctx context.Context) error {
	if app.closed.Load() {
		return ErrNotRunning
	}
	if !app.running.CompareAndSwap(false, true) {
		return ErrAlreadyRunning
	}
	defer app.running.Store(false)

	app.log.Info().
		Str("session", app.session.String()).
		Str("version", app.opts.Version).
		Msg("application started")

	app.loop.run(ctx)
	app.teardown()

	if app.restart.Load() {
		return ErrRestart
	}
	return nil
}

// Shutdown asks the main window to shut the application down.
func (app *Application) Shutdown(restart bool) error {
	if !app.running.Load() {
		return ErrNotRunning
	}
	return app.loop.Post(func() {
		if err := eventstore.Dispatch1(app.store, events.ShutdownApplication, restart); err != nil {
			app.shutdown(restart)
		}
	})
}

// Close handles the main window's close button. With CloseToTray set the
// window is hidden and the application keeps running.
func (app *Application) Close() error {
	if app.Settings().Window.CloseToTray {
		return app.Post(app.window.Hide)
	}
	return app.Shutdown(false)
}

// Post runs fn on the UI loop.
func (app *Application) Post(fn func()) error {
	return app.loop.Post(fn)
}

// Go runs fn in the background under the crash handler.
func (app *Application) Go(fn func()) {
	app.crash.Go(fn)
}

// ReportError shows err in the exception dialog from the UI loop.
func (app *Application) ReportError(err error) error {
	return app.loop.Post(func() { app.crash.Handle(err) })
}

// shutdown runs on the UI loop from the ShutdownApplication handler.
func (app *Application) shutdown(restart bool) {
	app.restart.Store(restart)
	flushed := app.store.FlushAll()
	app.log.Info().
		Bool("restart", restart).
		Int("flushed", flushed).
		Msg("shutting down")
	app.loop.Stop()
}

// applySettings runs on the UI loop from the SettingsChanged handler.
func (app *Application) applySettings(s config.Settings) {
	app.mu.Lock()
	app.settings = s
	app.mu.Unlock()

	level := s.LogLevel()
	if app.opts.Debug {
		level = zerolog.DebugLevel
	}
	app.logs.SetLevel(level)
	app.log.Info().Str("level", level.String()).Msg("settings applied")
}

// onReload is called from the config watcher goroutine.
func (app *Application) onReload(s config.Settings, err error) {
	if err != nil {
		app.log.Warn().Err(err).Msg("settings reload failed")
		return
	}
	if app.opts.LogDir != "" {
		s.Log.Dir = app.opts.LogDir
	}
	post := app.loop.Post(func() {
		_ = eventstore.Dispatch1(app.store, events.SettingsChanged, s)
	})
	if post != nil {
		app.log.Debug().Err(post).Msg("settings reload dropped")
	}
}

// teardown releases every component once.
func (app *Application) teardown() {
	app.teardownOnce.Do(func() {
		app.closed.Store(true)
		app.loop.Stop()
		app.store.FlushAll()

		ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()

		if app.diag != nil {
			if err := app.diag.Shutdown(ctx); err != nil {
				app.log.Warn().Err(err).Msg("diagnostics shutdown")
			}
		}
		if app.watcher != nil {
			if err := app.watcher.Close(); err != nil {
				app.log.Warn().Err(err).Msg("config watcher close")
			}
		}
		if err := app.pool.Stop(ctx); err != nil {
			app.log.Warn().Err(err).Msg("async pool stop")
		}

		snap := app.metrics.Snapshot()
		app.log.Info().
			Uint64("tasks", snap.Tasks).
			Uint64("stalls", snap.Stalls).
			Dur("uptime", snap.Uptime).
			Msg("application stopped")
		_ = app.logs.Close()
	})
}

// Settings returns the current settings.
func (app *Application) Settings() config.Settings {
	app.mu.RLock()
	defer app.mu.RUnlock()
	return app.settings
}

// Store returns the event store.
func (app *Application) Store() *eventstore.Store {
	return app.store
}

// Window returns the main window.
func (app *Application) Window() *MainWindow {
	return app.window
}

// Logging returns the logging service.
func (app *Application) Logging() *logging.Service {
	return app.logs
}

// Crash returns the crash handler.
func (app *Application) Crash() *crash.Handler {
	return app.crash
}

// Pool returns the async pool.
func (app *Application) Pool() *async.Pool {
	return app.pool
}

// Session returns the session ID.
func (app *Application) Session() uuid.UUID {
	return app.session
}

// IsRunning reports whether Run is in progress.
func (app *Application) IsRunning() bool {
	return app.running.Load()
}

// Metrics returns the UI loop metrics.
func (app *Application) Metrics() MetricsSnapshot {
	return app.metrics.Snapshot()
}

// DiagnosticsAddr returns the diagnostics address, or "" when disabled.
func (app *Application) DiagnosticsAddr() string {
	if app.diag == nil {
		return ""
	}
	return app.diag.Addr()
}

func (app *Application) loopStats() diag.LoopStats {
	snap := app.metrics.Snapshot()
	return diag.LoopStats{
		Tasks:   snap.Tasks,
		Stalls:  snap.Stalls,
		Pending: app.loop.Pending(),
	}
}
