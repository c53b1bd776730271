package app

import (
	"sync"

	"github.com/dshills/deskkit/internal/config"
	"github.com/dshills/deskkit/internal/eventstore"
	"github.com/dshills/deskkit/internal/events"
	"github.com/dshills/deskkit/internal/logging"
)

// windowHost is what the main window asks of its application.
type windowHost interface {
	shutdown(restart bool)
	applySettings(s config.Settings)
}

// ExceptionDialog keeps the reports the user has been shown.
type ExceptionDialog struct {
	mu      sync.RWMutex
	reports []events.ExceptionReport
}

// Show records report as displayed.
func (d *ExceptionDialog) Show(report events.ExceptionReport) {
	d.mu.Lock()
	d.reports = append(d.reports, report)
	d.mu.Unlock()
}

// Reports returns the displayed reports, oldest first.
func (d *ExceptionDialog) Reports() []events.ExceptionReport {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return append([]events.ExceptionReport(nil), d.reports...)
}

// Last returns the most recent report.
func (d *ExceptionDialog) Last() (events.ExceptionReport, bool) {
	d.mu.RLock()
	defer d.mu.RUnlock()
	if len(d.reports) == 0 {
		return events.ExceptionReport{}, false
	}
	return d.reports[len(d.reports)-1], true
}

// MainWindow is the application's main form. It owns the application-level
// slots and the log views.
type MainWindow struct {
	eventstore.Slots

	host   windowHost
	dialog ExceptionDialog
	logs   *LogView

	mu        sync.RWMutex
	settings  config.Settings
	visible   bool
	minimized bool
}

// newMainWindow creates the main window for host with the initial settings.
func newMainWindow(host windowHost, s config.Settings) *MainWindow {
	w := &MainWindow{
		host:      host,
		logs:      NewLogView(DefaultLogViewCapacity),
		settings:  s,
		visible:   true,
		minimized: s.Window.StartMinimized,
	}
	w.MustDefine(events.ShutdownApplication)
	w.MustDefine(events.ShowGlobalExceptionDialog)
	w.MustDefine(events.SettingsChanged)
	return w
}

// InitializeEvents registers the window's handlers, and the log view
// handlers on the control sinks, with store. Nil sinks are skipped.
func (w *MainWindow) InitializeEvents(store *eventstore.Store, text, grid *logging.ControlSink) error {
	err := eventstore.Add(store, w,
		eventstore.On1(events.ShutdownApplication, w.onShutdownApplication),
		eventstore.On1(events.ShowGlobalExceptionDialog, w.dialog.Show),
		eventstore.On1(events.SettingsChanged, w.onSettingsChanged),
	)
	if err != nil {
		return err
	}
	if text != nil {
		if err := eventstore.Add(store, text, eventstore.On2(events.TextLogReceived, w.logs.AppendText)); err != nil {
			return err
		}
	}
	if grid != nil {
		if err := eventstore.Add(store, grid, eventstore.On3(events.GridLogReceived, w.logs.AppendRow)); err != nil {
			return err
		}
	}
	return nil
}

func (w *MainWindow) onShutdownApplication(restart bool) {
	w.host.shutdown(restart)
}

func (w *MainWindow) onSettingsChanged(s config.Settings) {
	w.mu.Lock()
	w.settings = s
	w.mu.Unlock()

	w.host.applySettings(s)
}

// Dialog returns the exception dialog.
func (w *MainWindow) Dialog() *ExceptionDialog {
	return &w.dialog
}

// Logs returns the log views.
func (w *MainWindow) Logs() *LogView {
	return w.logs
}

// Settings returns the settings the window last applied.
func (w *MainWindow) Settings() config.Settings {
	w.mu.RLock()
	defer w.mu.RUnlock()
	return w.settings
}

// Hide removes the window from view, as when closed to the tray.
func (w *MainWindow) Hide() {
	w.mu.Lock()
	w.visible = false
	w.mu.Unlock()
}

// Show restores the window.
func (w *MainWindow) Show() {
	w.mu.Lock()
	w.visible = true
	w.minimized = false
	w.mu.Unlock()
}

// Visible reports whether the window is shown.
func (w *MainWindow) Visible() bool {
	w.mu.RLock()
	defer w.mu.RUnlock()
	return w.visible
}

// Minimized reports whether the window is minimized.
func (w *MainWindow) Minimized() bool {
	w.mu.RLock()
	defer w.mu.RUnlock()
	return w.minimized
}
