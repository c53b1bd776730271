package app

import (
	"context"
	"os"

	"github.com/rs/zerolog"

	"github.com/dshills/deskkit/internal/config"
	"github.com/dshills/deskkit/internal/crash"
	"github.com/dshills/deskkit/internal/diag"
	"github.com/dshills/deskkit/internal/eventstore"
	"github.com/dshills/deskkit/internal/eventstore/async"
	"github.com/dshills/deskkit/internal/logging"
)

// bootstrapper handles component initialization with proper cleanup on failure.
type bootstrapper struct {
	app       *Application
	opts      Options
	initOrder []string
}

// newBootstrapper creates a new bootstrapper for the application.
func newBootstrapper(app *Application, opts Options) *bootstrapper {
	return &bootstrapper{
		app:       app,
		opts:      opts,
		initOrder: make([]string, 0, 8),
	}
}

// bootstrap initializes all components in dependency order.
// On failure, it cleans up already-initialized components.
func (b *bootstrapper) bootstrap() error {
	steps := []func() error{
		b.initSettings,
		b.initLogging,
		b.initAsync,
		b.initStore,
		b.initCrash,
		b.initWindow,
		b.initLoop,
		b.initWatcher,
		b.initDiagnostics,
	}
	for _, step := range steps {
		if err := step(); err != nil {
			b.cleanup()
			return err
		}
	}
	return nil
}

// initSettings loads settings from file, .env and the environment.
func (b *bootstrapper) initSettings() error {
	s, err := config.Load(b.opts.ConfigPath)
	if err != nil {
		return &InitError{Component: "settings", Err: err}
	}
	if b.opts.LogDir != "" {
		s.Log.Dir = b.opts.LogDir
	}
	b.app.settings = s
	return nil
}

// initLogging creates the control and file loggers.
func (b *bootstrapper) initLogging() error {
	s := b.app.settings

	level := s.LogLevel()
	if b.opts.Debug {
		level = zerolog.DebugLevel
	}
	opts := []logging.Option{
		logging.WithLevel(level),
		logging.WithRotation(logging.Rotation{
			MaxSizeMB:  s.Log.MaxSizeMB,
			MaxBackups: s.Log.MaxBackups,
			MaxAgeDays: s.Log.MaxAgeDays,
			Compress:   s.Log.Compress,
		}),
	}
	switch {
	case b.opts.Console != nil:
		opts = append(opts, logging.WithConsole(b.opts.Console))
	case s.Log.Console:
		opts = append(opts, logging.WithConsole(os.Stderr))
	}

	b.app.logs = logging.NewService(opts...)
	b.app.logs.CreateControlLogger()
	b.app.logs.BindContext("MainWindow")
	b.initOrder = append(b.initOrder, "logging")

	if s.Log.Dir != "" {
		if err := b.app.logs.CreateFileLoggers(s.Log.Dir); err != nil {
			return &InitError{Component: "logging", Err: err}
		}
	}
	b.app.log = b.app.logs.Logger(logging.File)
	return nil
}

// initAsync starts the pool that runs async handlers.
func (b *bootstrapper) initAsync() error {
	s := b.app.settings.Async
	app := b.app

	app.pool = async.New(
		async.WithWorkers(s.Workers),
		async.WithQueueSize(s.QueueSize),
		async.WithTimeout(s.Timeout()),
		async.WithErrorHandler(func(name string, err error) {
			app.store.Caught(&eventstore.DispatchError{Name: name, Err: err})
		}),
	)
	if err := app.pool.Start(); err != nil {
		return &InitError{Component: "async pool", Err: err}
	}
	b.initOrder = append(b.initOrder, "async")
	return nil
}

// initStore creates the event store.
func (b *bootstrapper) initStore() error {
	app := b.app
	app.store = eventstore.New(
		eventstore.WithLogger(app.log),
		eventstore.WithAsyncPool(app.pool),
		eventstore.WithCatch(func(err error) {
			app.log.Warn().Err(err).Msg("event handler failed")
		}),
	)
	b.initOrder = append(b.initOrder, "store")
	return nil
}

// initCrash creates the crash handler.
func (b *bootstrapper) initCrash() error {
	app := b.app
	app.crash = crash.NewHandler(app.logs, app.store, crash.WithLogger(app.log))
	return nil
}

// initWindow creates the main window and registers its events.
func (b *bootstrapper) initWindow() error {
	app := b.app
	app.window = newMainWindow(app, app.settings)
	b.initOrder = append(b.initOrder, "window")

	text, grid := app.logs.Sinks()
	if err := app.window.InitializeEvents(app.store, text, grid); err != nil {
		return &InitError{Component: "main window", Err: err}
	}
	return nil
}

// initLoop creates the UI loop.
func (b *bootstrapper) initLoop() error {
	app := b.app

	stall := b.opts.StallThreshold
	if stall == 0 {
		stall = DefaultStallThreshold
	}
	app.loop = newEventLoop(b.opts.LoopQueueSize, app.crash.Guard, app.metrics, app.logs.Logger(logging.Freeze), stall)
	b.initOrder = append(b.initOrder, "loop")
	return nil
}

// initWatcher watches the settings file when one was given.
func (b *bootstrapper) initWatcher() error {
	if b.opts.ConfigPath == "" {
		return nil
	}
	app := b.app

	w, err := config.NewWatcher(b.opts.ConfigPath, app.onReload,
		config.WithWatcherLogger(app.log))
	if err != nil {
		return &InitError{Component: "config watcher", Err: err}
	}
	app.watcher = w
	b.initOrder = append(b.initOrder, "watcher")
	return nil
}

// initDiagnostics starts the diagnostics server when an address is set.
func (b *bootstrapper) initDiagnostics() error {
	app := b.app
	addr := app.settings.Diagnostics.Addr
	if addr == "" {
		return nil
	}

	srv := diag.New(addr, diag.Sources{
		Store:   app.store,
		Pool:    app.pool,
		Loop:    app.loopStats,
		Version: b.opts.Version,
	}, diag.WithLogger(app.log))
	if err := srv.Start(); err != nil {
		return &InitError{Component: "diagnostics", Err: err}
	}
	app.diag = srv
	b.initOrder = append(b.initOrder, "diagnostics")
	return nil
}

// cleanup performs cleanup in reverse initialization order.
// Called when bootstrap fails partway through.
func (b *bootstrapper) cleanup() {
	ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	for i := len(b.initOrder) - 1; i >= 0; i-- {
		switch b.initOrder[i] {
		case "diagnostics":
			_ = b.app.diag.Shutdown(ctx)
		case "watcher":
			_ = b.app.watcher.Close()
		case "loop":
			b.app.loop.Stop()
		case "window":
			b.app.store.FlushAll()
		case "async":
			_ = b.app.pool.Stop(ctx)
		case "logging":
			_ = b.app.logs.Close()
		}
	}
	b.initOrder = b.initOrder[:0]
}
