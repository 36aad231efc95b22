package logging

import (
	"context"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestParseLevel(t *testing.T) {
	tests := []struct {
		in   string
		want slog.Level
	}{
		{"debug", slog.LevelDebug},
		{"INFO", slog.LevelInfo},
		{"warn", slog.LevelWarn},
		{"warning", slog.LevelWarn},
		{"error", slog.LevelError},
		{"", slog.LevelInfo},
		{"nonsense", slog.LevelInfo},
	}
	for _, tt := range tests {
		if got := ParseLevel(tt.in); got != tt.want {
			t.Errorf("ParseLevel(%q) = %v, want %v", tt.in, got, tt.want)
		}
	}
}

func TestNew_FileSink(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "log.log")

	logger, closeFn, err := New(Options{Path: path, Level: "warn"})
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	logger.Info("test: dropped")
	logger.Warn("test: kept", "n", 1)
	if err := closeFn(); err != nil {
		t.Fatalf("close: %v", err)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read log: %v", err)
	}
	got := string(data)
	if strings.Contains(got, "dropped") {
		t.Error("info record written at warn level")
	}
	if !strings.Contains(got, `msg="test: kept"`) || !strings.Contains(got, "n=1") {
		t.Errorf("log = %q", got)
	}
}

func TestNew_Console(t *testing.T) {
	logger, closeFn, err := New(Options{Path: "-", Debug: true})
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	defer closeFn()
	if !logger.Enabled(context.Background(), slog.LevelDebug) {
		t.Error("debug logger should enable debug level")
	}
}
