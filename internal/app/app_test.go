package app

import (
	"context"
	"errors"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"github.com/dshills/deskkit/internal/config"
	"github.com/dshills/deskkit/internal/logging"
)

type testApp struct {
	*Application
	dir    string
	config string
	errc   chan error
	cancel context.CancelFunc
	exited bool
}

// startApp writes settings to a temp dir, creates the application and
// runs it in the background. mods adjust the options before New.
func startApp(t *testing.T, settings string, mods ...func(*Options)) *testApp {
	t.Helper()
	dir := t.TempDir()
	path := filepath.Join(dir, "deskkit.toml")
	if err := os.WriteFile(path, []byte(settings), 0o644); err != nil {
		t.Fatalf("write settings: %v", err)
	}

	opts := Options{
		ConfigPath:     path,
		LogDir:         filepath.Join(dir, "logs"),
		Version:        "test",
		StallThreshold: -1,
	}
	for _, mod := range mods {
		mod(&opts)
	}
	app, err := New(opts)
	if err != nil {
		t.Fatalf("New: %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	ta := &testApp{Application: app, dir: dir, config: path, errc: make(chan error, 1), cancel: cancel}
	go func() { ta.errc <- app.Run(ctx) }()
	t.Cleanup(func() {
		cancel()
		if ta.exited {
			return
		}
		select {
		case <-ta.errc:
		case <-time.After(5 * time.Second):
		}
	})

	waitFor(t, "application to run", app.IsRunning)
	return ta
}

func (ta *testApp) wait(t *testing.T) error {
	t.Helper()
	select {
	case err := <-ta.errc:
		ta.exited = true
		return err
	case <-time.After(5 * time.Second):
		t.Fatal("timed out waiting for Run to return")
		return nil
	}
}

func (ta *testApp) readLog(t *testing.T, parts ...string) string {
	t.Helper()
	b, err := os.ReadFile(filepath.Join(append([]string{ta.dir, "logs"}, parts...)...))
	if err != nil {
		t.Fatalf("read log: %v", err)
	}
	return string(b)
}

func TestApplication_Bootstrap(t *testing.T) {
	ta := startApp(t, "")

	if n := ta.Store().Len(); n != 5 {
		t.Errorf("expected 5 registrations, got %d (%v)", n, ta.Store().Names())
	}
	if ta.DiagnosticsAddr() != "" {
		t.Error("expected diagnostics to be disabled by default")
	}
	if !ta.Pool().IsRunning() {
		t.Error("expected async pool to be running")
	}
	if ta.Session().String() == "" {
		t.Error("expected a session ID")
	}
	if err := ta.Run(context.Background()); !errors.Is(err, ErrAlreadyRunning) {
		t.Errorf("expected ErrAlreadyRunning, got %v", err)
	}
}

func TestApplication_ShutdownRestart(t *testing.T) {
	ta := startApp(t, "")

	if err := ta.Shutdown(true); err != nil {
		t.Fatalf("Shutdown: %v", err)
	}
	if err := ta.wait(t); !errors.Is(err, ErrRestart) {
		t.Fatalf("expected ErrRestart, got %v", err)
	}

	if ta.Store().Len() != 0 {
		t.Errorf("expected store to be flushed, got %v", ta.Store().Names())
	}
	if ta.Pool().IsRunning() {
		t.Error("expected async pool to be stopped")
	}
	if err := ta.Shutdown(false); !errors.Is(err, ErrNotRunning) {
		t.Errorf("expected ErrNotRunning, got %v", err)
	}
	if err := ta.Run(context.Background()); !errors.Is(err, ErrNotRunning) {
		t.Errorf("expected ErrNotRunning after teardown, got %v", err)
	}

	log := ta.readLog(t, logging.AppLogFile)
	for _, want := range []string{"application started", "shutting down", "restart=true", "application stopped"} {
		if !strings.Contains(log, want) {
			t.Errorf("expected %q in app log:\n%s", want, log)
		}
	}
}

func TestApplication_ShutdownExit(t *testing.T) {
	ta := startApp(t, "")

	if err := ta.Shutdown(false); err != nil {
		t.Fatalf("Shutdown: %v", err)
	}
	if err := ta.wait(t); err != nil {
		t.Errorf("expected nil from Run, got %v", err)
	}
}

func TestApplication_ContextCancel(t *testing.T) {
	ta := startApp(t, "")

	ta.cancel()
	if err := ta.wait(t); err != nil {
		t.Errorf("expected nil from Run, got %v", err)
	}
	if ta.Store().Len() != 0 {
		t.Error("expected store to be flushed on cancel")
	}
}

func TestApplication_ReportError(t *testing.T) {
	ta := startApp(t, "")

	if err := ta.ReportError(errors.New("printer offline")); err != nil {
		t.Fatalf("ReportError: %v", err)
	}
	waitFor(t, "exception dialog", func() bool { return len(ta.Window().Dialog().Reports()) == 1 })

	report, _ := ta.Window().Dialog().Last()
	if report.Message() != "printer offline" {
		t.Errorf("unexpected report message %q", report.Message())
	}

	_ = ta.Shutdown(false)
	_ = ta.wait(t)

	trace := ta.readLog(t, logging.StackTraceDir, logging.StackTraceLogFile)
	if !strings.Contains(trace, report.ID.String()) || !strings.Contains(trace, "printer offline") {
		t.Errorf("unexpected stack trace log:\n%s", trace)
	}
}

func TestApplication_StallAndReportLogs(t *testing.T) {
	ta := startApp(t, "", func(o *Options) { o.StallThreshold = 20 * time.Millisecond })

	if err := ta.Post(func() { time.Sleep(200 * time.Millisecond) }); err != nil {
		t.Fatalf("Post: %v", err)
	}
	waitFor(t, "stall to be recorded", func() bool { return ta.Metrics().Stalls >= 1 })

	if err := ta.ReportError(errors.New("scanner jammed")); err != nil {
		t.Fatalf("ReportError: %v", err)
	}
	waitFor(t, "exception dialog", func() bool { return len(ta.Window().Dialog().Reports()) == 1 })
	report, _ := ta.Window().Dialog().Last()

	_ = ta.Shutdown(false)
	_ = ta.wait(t)

	freeze := ta.readLog(t, logging.FreezeDir, logging.FreezeLogFile)
	if !strings.Contains(freeze, "ui loop stalled") || !strings.Contains(freeze, "threshold=") {
		t.Errorf("unexpected freeze log:\n%s", freeze)
	}

	trace := ta.readLog(t, logging.StackTraceDir, logging.StackTraceLogFile)
	for _, want := range []string{report.ID.String(), "scanner jammed", "errors=1"} {
		if !strings.Contains(trace, want) {
			t.Errorf("expected %q in stack trace log:\n%s", want, trace)
		}
	}
}

func TestApplication_LevelChangeReachesComponents(t *testing.T) {
	ta := startApp(t, "[log]\nlevel = \"info\"\n")

	// The store logs swallowed failures at debug level through its own copy
	// of the file logger.
	ta.Store().Caught(errors.New("before level change"))
	settings := ta.Settings()
	settings.Log.Level = "debug"
	ta.applySettings(settings)
	ta.Store().Caught(errors.New("after level change"))

	_ = ta.Shutdown(false)
	_ = ta.wait(t)

	var before, after bool
	for _, line := range strings.Split(ta.readLog(t, logging.AppLogFile), "\n") {
		if !strings.Contains(line, "dispatch failure swallowed") {
			continue
		}
		before = before || strings.Contains(line, "before level change")
		after = after || strings.Contains(line, "after level change")
	}
	if before {
		t.Error("expected the debug record to be filtered at info")
	}
	if !after {
		t.Error("expected the store's logger to follow the new level")
	}
}

func TestApplication_PanicInTask(t *testing.T) {
	ta := startApp(t, "")

	if err := ta.Post(func() { panic("nil window handle") }); err != nil {
		t.Fatalf("Post: %v", err)
	}
	waitFor(t, "exception dialog", func() bool { return len(ta.Window().Dialog().Reports()) == 1 })

	report, ok := ta.Window().Dialog().Last()
	if !ok || report.Message() != "panic: nil window handle" {
		t.Errorf("unexpected report %+v", report)
	}
	if ta.Crash().Handled() != 1 {
		t.Errorf("expected 1 handled error, got %d", ta.Crash().Handled())
	}
	if !ta.IsRunning() {
		t.Error("expected the application to keep running")
	}
}

func TestApplication_LogView(t *testing.T) {
	ta := startApp(t, "")

	ta.Logging().Write(zerolog.WarnLevel, "disk almost full")

	lines := ta.Window().Logs().Lines()
	if len(lines) == 0 {
		t.Fatal("expected log view lines")
	}
	last := lines[len(lines)-1]
	if last.Source != "MainWindow" || !strings.Contains(last.Line, "disk almost full") {
		t.Errorf("unexpected line %+v", last)
	}
}

func TestApplication_CloseToTray(t *testing.T) {
	ta := startApp(t, "[window]\nclose_to_tray = true\n")

	if err := ta.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}
	waitFor(t, "window to hide", func() bool { return !ta.Window().Visible() })
	if !ta.IsRunning() {
		t.Error("expected the application to keep running")
	}
}

func TestApplication_Close(t *testing.T) {
	ta := startApp(t, "")

	if err := ta.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}
	if err := ta.wait(t); err != nil {
		t.Errorf("expected nil from Run, got %v", err)
	}
}

func TestApplication_SettingsReload(t *testing.T) {
	ta := startApp(t, "[log]\nlevel = \"info\"\n")

	if err := os.WriteFile(ta.config, []byte("[log]\nlevel = \"debug\"\n"), 0o644); err != nil {
		t.Fatalf("rewrite settings: %v", err)
	}
	waitFor(t, "settings reload", func() bool {
		return ta.Logging().Level() == zerolog.DebugLevel
	})

	if ta.Window().Settings().Log.Level != "debug" {
		t.Errorf("expected window to hold the new settings, got %+v", ta.Window().Settings().Log)
	}
	if got := ta.Settings().Log.Dir; got != filepath.Join(ta.dir, "logs") {
		t.Errorf("expected log dir override to survive reload, got %q", got)
	}
}

func TestApplication_Diagnostics(t *testing.T) {
	ta := startApp(t, "[diagnostics]\naddr = \"127.0.0.1:0\"\n")

	addr := ta.DiagnosticsAddr()
	if addr == "" || strings.HasSuffix(addr, ":0") {
		t.Fatalf("expected a bound address, got %q", addr)
	}

	resp, err := http.Get("http://" + addr + "/metrics")
	if err != nil {
		t.Fatalf("GET /metrics: %v", err)
	}
	body, _ := io.ReadAll(resp.Body)
	resp.Body.Close()

	if !strings.Contains(string(body), "deskkit_eventstore_entries 5") {
		t.Errorf("expected store gauge in metrics")
	}
}

func TestNew_InvalidSettings(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "deskkit.toml")
	if err := os.WriteFile(path, []byte("[log]\nlevel = \"loud\"\n"), 0o644); err != nil {
		t.Fatalf("write settings: %v", err)
	}

	_, err := New(Options{ConfigPath: path})

	var initErr *InitError
	if !errors.As(err, &initErr) || initErr.Component != "settings" {
		t.Fatalf("expected settings InitError, got %v", err)
	}
	if !errors.Is(err, config.ErrInvalidSettings) {
		t.Errorf("expected ErrInvalidSettings in chain, got %v", err)
	}
}

func TestNew_BadDiagnosticsAddr(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "deskkit.toml")
	if err := os.WriteFile(path, []byte("[diagnostics]\naddr = \"not-an-address\"\n"), 0o644); err != nil {
		t.Fatalf("write settings: %v", err)
	}

	_, err := New(Options{ConfigPath: path})

	var initErr *InitError
	if !errors.As(err, &initErr) || initErr.Component != "diagnostics" {
		t.Fatalf("expected diagnostics InitError, got %v", err)
	}
}

func TestNew_NoConfig(t *testing.T) {
	app, err := New(Options{})
	if err != nil {
		t.Fatalf("New: %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if err := app.Run(ctx); err != nil {
		t.Errorf("Run: %v", err)
	}
}

func TestInitError(t *testing.T) {
	cause := errors.New("port in use")
	err := &InitError{Component: "diagnostics", Err: cause}
	if err.Error() != "init diagnostics: port in use" {
		t.Errorf("unexpected message %q", err.Error())
	}
	if !errors.Is(err, cause) {
		t.Error("expected InitError to unwrap")
	}
}
