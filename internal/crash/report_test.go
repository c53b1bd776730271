package crash

import (
	"errors"
	"fmt"
	"strings"
	"testing"
)

func TestNewReport_Chain(t *testing.T) {
	root := errors.New("connection refused")
	err := fmt.Errorf("load settings: %w", root)

	report := NewReport(err, 0)

	if len(report.Entries) != 2 {
		t.Fatalf("expected 2 entries, got %d", len(report.Entries))
	}
	if report.Entries[0].Message != "load settings: connection refused" {
		t.Errorf("unexpected outer message: %q", report.Entries[0].Message)
	}
	if report.Entries[1].Message != "connection refused" {
		t.Errorf("unexpected inner message: %q", report.Entries[1].Message)
	}
	if report.Entries[1].Type != "*errors.errorString" {
		t.Errorf("unexpected inner type: %q", report.Entries[1].Type)
	}
	if len(report.Entries[0].Frames) == 0 {
		t.Fatal("expected frames on the outer entry")
	}
	if len(report.Entries[1].Frames) != 0 {
		t.Error("expected no frames on inner entries")
	}
	if report.Message() != report.Entries[0].Message {
		t.Error("expected Message to return the outer message")
	}

	top := report.Entries[0].Frames[0].Inner
	if !strings.HasSuffix(top.Method, "TestNewReport_Chain") {
		t.Errorf("expected first frame to be the caller, got %q", top.Method)
	}
	if top.File != "report_test.go" || top.Line == 0 {
		t.Errorf("unexpected location: %s:%d", top.File, top.Line)
	}
	if !strings.HasPrefix(top.Address, "0x") {
		t.Errorf("unexpected address: %q", top.Address)
	}
}

func TestNewReport_Nil(t *testing.T) {
	report := NewReport(nil, 0)

	if len(report.Entries) != 1 || report.Entries[0].Message != UnexpectedErrorMessage {
		t.Errorf("expected default message, got %+v", report.Entries)
	}
	if report.ID.String() == "" || report.Time.IsZero() {
		t.Error("expected ID and time to be set")
	}
}

func TestNewReport_UniqueIDs(t *testing.T) {
	a := NewReport(errors.New("x"), 0)
	b := NewReport(errors.New("x"), 0)
	if a.ID == b.ID {
		t.Error("expected distinct report IDs")
	}
}

func TestSplitFunction(t *testing.T) {
	tests := []struct {
		fn, module, method string
	}{
		{"github.com/dshills/deskkit/internal/app.(*MainWindow).shutdown", "github.com/dshills/deskkit/internal/app", "(*MainWindow).shutdown"},
		{"main.main", "main", "main"},
		{"runtime.goexit", "runtime", "goexit"},
		{"", unknown, unknown},
		{"nodot", unknown, "nodot"},
	}

	for _, tt := range tests {
		module, method := splitFunction(tt.fn)
		if module != tt.module || method != tt.method {
			t.Errorf("splitFunction(%q) = %q, %q; want %q, %q", tt.fn, module, method, tt.module, tt.method)
		}
	}
}

func TestFormatReport(t *testing.T) {
	report := NewReport(fmt.Errorf("outer: %w", errors.New("inner")), 0)
	out := FormatReport(report)

	if strings.Count(out, UnexpectedErrorMessage) != 2 {
		t.Errorf("expected one header per entry:\n%s", out)
	}
	if !strings.Contains(out, "Address    Module") {
		t.Errorf("expected column header:\n%s", out)
	}
	if !strings.Contains(out, "report_test.go") {
		t.Errorf("expected frame rows:\n%s", out)
	}
	if !strings.HasSuffix(out, "\n\n") {
		t.Error("expected report to end with a blank line")
	}

	lines := strings.Split(out, "\n")
	header := lines[1]
	if idx := strings.Index(header, "Module"); idx != 11 {
		t.Errorf("expected Module column at 11, got %d", idx)
	}
}

func TestNewReport_Joined(t *testing.T) {
	first := errors.New("disk full")
	inner := errors.New("permission denied")
	err := errors.Join(first, fmt.Errorf("open log: %w", inner))

	report := NewReport(err, 0)

	want := []string{err.Error(), "disk full", "open log: permission denied", "permission denied"}
	if len(report.Entries) != len(want) {
		t.Fatalf("expected %d entries, got %+v", len(want), report.Entries)
	}
	for i, msg := range want {
		if report.Entries[i].Message != msg {
			t.Errorf("entry %d: expected %q, got %q", i, msg, report.Entries[i].Message)
		}
	}
	if len(report.Entries[0].Frames) == 0 || len(report.Entries[1].Frames) != 0 {
		t.Error("expected frames on the outermost entry only")
	}
}

type cyclicError struct{}

func (e *cyclicError) Error() string { return "cyclic" }

func (e *cyclicError) Unwrap() error { return e }

func TestNewReport_CyclicChainBounded(t *testing.T) {
	report := NewReport(&cyclicError{}, 0)
	if len(report.Entries) != maxEntries {
		t.Errorf("expected %d entries, got %d", maxEntries, len(report.Entries))
	}
}
