package log

import (
	"bufio"
	"bytes"
	"encoding/json"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestNewTextConsole(t *testing.T) {
	var buf bytes.Buffer
	l, closer := New(Options{Level: "warn"}, &buf)
	defer closer.Close()

	l.Info("hidden")
	l.Warn("shown", "k", "v")

	out := buf.String()
	if strings.Contains(out, "hidden") {
		t.Errorf("info record should be filtered at warn level:\n%s", out)
	}
	if !strings.Contains(out, "msg=shown") || !strings.Contains(out, "k=v") {
		t.Errorf("expected text record, got:\n%s", out)
	}
}

func TestNewJSONFileAndComponent(t *testing.T) {
	var console bytes.Buffer
	fpath := filepath.Join(t.TempDir(), "factory.log")

	l, closer := New(Options{Level: "debug", Format: "json", File: fpath}, &console)
	WithComponent(l, "generator").Debug("generated", slog.Int("entries", 3))
	if err := closer.Close(); err != nil {
		t.Fatalf("Close() failed: %v", err)
	}

	// Console got JSON too.
	var c map[string]any
	if err := json.Unmarshal(bytes.TrimSpace(console.Bytes()), &c); err != nil {
		t.Fatalf("console output is not JSON: %v\n%s", err, console.String())
	}

	b, err := os.ReadFile(fpath)
	if err != nil {
		t.Fatalf("read log file: %v", err)
	}
	scanner := bufio.NewScanner(bytes.NewReader(b))
	var last string
	for scanner.Scan() {
		if s := strings.TrimSpace(scanner.Text()); s != "" {
			last = s
		}
	}
	var m map[string]any
	if err := json.Unmarshal([]byte(last), &m); err != nil {
		t.Fatalf("unmarshal json log: %v", err)
	}
	if m["component"] != "generator" {
		t.Errorf("component attr mismatch: %v", m["component"])
	}
	if m["msg"] != "generated" {
		t.Errorf("msg mismatch: %v", m["msg"])
	}
	if m["entries"] != float64(3) {
		t.Errorf("entries attr mismatch: %v", m["entries"])
	}
}

func TestNewWithoutOutputs(t *testing.T) {
	l, closer := New(Options{}, nil)
	if l == nil {
		t.Fatal("New() returned a nil logger")
	}
	l.Info("dropped")
	if err := closer.Close(); err != nil {
		t.Errorf("Close() failed: %v", err)
	}
}

func TestParseLevel(t *testing.T) {
	tests := map[string]slog.Level{
		"debug":   slog.LevelDebug,
		" INFO ":  slog.LevelInfo,
		"warning": slog.LevelWarn,
		"error":   slog.LevelError,
		"bogus":   slog.LevelInfo,
	}
	for in, want := range tests {
		if got := ParseLevel(in); got != want {
			t.Errorf("ParseLevel(%q) = %v, want %v", in, got, want)
		}
	}
}
