package config

import (
	"path/filepath"
	"sync"
	"sync/atomic"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/rs/zerolog"
)

// ReloadFunc receives the result of each reload.
type ReloadFunc func(s Settings, err error)

// Watcher reloads the settings when the settings file or its .env changes.
// It watches the containing directory, so editors that replace the file on
// save are handled.
type Watcher struct {
	path     string
	dotenv   string
	onReload ReloadFunc
	debounce time.Duration
	log      zerolog.Logger

	watcher *fsnotify.Watcher

	mu      sync.Mutex
	closed  bool
	closeCh chan struct{}
	wg      sync.WaitGroup

	// Stats
	reloads atomic.Uint64
	errors  atomic.Uint64
}

// WatcherOption configures a Watcher.
type WatcherOption func(*Watcher)

// WithDebounce sets how long the watcher waits for changes to settle.
func WithDebounce(d time.Duration) WatcherOption {
	return func(w *Watcher) {
		if d >= 0 {
			w.debounce = d
		}
	}
}

// WithWatcherLogger sets the watcher's logger.
func WithWatcherLogger(log zerolog.Logger) WatcherOption {
	return func(w *Watcher) {
		w.log = log
	}
}

// NewWatcher starts watching the settings file at path.
func NewWatcher(path string, onReload ReloadFunc, opts ...WatcherOption) (*Watcher, error) {
	absPath, err := filepath.Abs(path)
	if err != nil {
		return nil, err
	}

	w := &Watcher{
		path:     absPath,
		dotenv:   filepath.Join(filepath.Dir(absPath), DotEnvFile),
		onReload: onReload,
		debounce: 100 * time.Millisecond,
		log:      zerolog.Nop(),
		closeCh:  make(chan struct{}),
	}
	for _, opt := range opts {
		opt(w)
	}

	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}
	if err := fsw.Add(filepath.Dir(absPath)); err != nil {
		fsw.Close()
		return nil, err
	}
	w.watcher = fsw

	w.wg.Add(1)
	go w.processLoop()

	return w, nil
}

// Path returns the absolute path of the watched settings file.
func (w *Watcher) Path() string {
	return w.path
}

// Reloads returns the number of reloads performed.
func (w *Watcher) Reloads() uint64 {
	return w.reloads.Load()
}

// Close stops the watcher.
func (w *Watcher) Close() error {
	w.mu.Lock()
	if w.closed {
		w.mu.Unlock()
		return ErrWatcherClosed
	}
	w.closed = true
	close(w.closeCh)
	w.mu.Unlock()

	w.wg.Wait()
	return w.watcher.Close()
}

// processLoop coalesces file events and reloads once they settle.
func (w *Watcher) processLoop() {
	defer w.wg.Done()

	var timer *time.Timer
	var fire <-chan time.Time
	defer func() {
		if timer != nil {
			timer.Stop()
		}
	}()

	for {
		select {
		case <-w.closeCh:
			return

		case ev, ok := <-w.watcher.Events:
			if !ok {
				return
			}
			if !w.relevant(ev) {
				continue
			}
			if timer == nil {
				timer = time.NewTimer(w.debounce)
			} else {
				timer.Reset(w.debounce)
			}
			fire = timer.C

		case err, ok := <-w.watcher.Errors:
			if !ok {
				return
			}
			w.errors.Add(1)
			w.log.Warn().Err(err).Msg("settings watcher error")

		case <-fire:
			fire = nil
			w.reload()
		}
	}
}

// relevant reports whether ev touches the settings file or its .env.
func (w *Watcher) relevant(ev fsnotify.Event) bool {
	if !ev.Has(fsnotify.Write) && !ev.Has(fsnotify.Create) && !ev.Has(fsnotify.Rename) {
		return false
	}
	name := filepath.Clean(ev.Name)
	return name == w.path || name == w.dotenv
}

func (w *Watcher) reload() {
	s, err := Load(w.path)
	w.reloads.Add(1)
	if err != nil {
		w.errors.Add(1)
		w.log.Warn().Err(err).Str("path", w.path).Msg("settings reload failed")
	} else {
		w.log.Info().Str("path", w.path).Msg("settings reloaded")
	}

	if w.onReload != nil {
		w.onReload(s, err)
	}
}
