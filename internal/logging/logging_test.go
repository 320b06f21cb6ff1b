package logging

import (
	"bytes"
	"context"
	"encoding/json"
	"log/slog"
	"regexp"
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
		{" warn ", slog.LevelWarn},
		{"warning", slog.LevelWarn},
		{"error", slog.LevelError},
		{"verbose", slog.LevelInfo},
	}
	for _, tt := range tests {
		if got := ParseLevel(tt.in); got != tt.want {
			t.Errorf("ParseLevel(%q) = %v, want %v", tt.in, got, tt.want)
		}
	}
}

func TestNewWithWriter_JSON(t *testing.T) {
	var buf bytes.Buffer
	logger := NewWithWriter(slog.LevelInfo, "json", &buf)
	logger.Debug("hidden")
	logger.Info("tick", "t", 4)

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	if len(lines) != 1 {
		t.Fatalf("got %d lines, want 1: %q", len(lines), buf.String())
	}
	var rec map[string]any
	if err := json.Unmarshal([]byte(lines[0]), &rec); err != nil {
		t.Fatalf("invalid JSON log line: %v", err)
	}
	if rec["msg"] != "tick" || rec["t"] != float64(4) {
		t.Errorf("record = %v", rec)
	}
}

func TestNewWithWriter_Text(t *testing.T) {
	var buf bytes.Buffer
	NewWithWriter(slog.LevelDebug, "text", &buf).Debug("dispatch", "machine", 2)
	out := buf.String()
	if !strings.Contains(out, "msg=dispatch") || !strings.Contains(out, "machine=2") {
		t.Errorf("text output = %q", out)
	}
	if !strings.Contains(out, "source=") {
		t.Errorf("debug output has no source: %q", out)
	}
	if !regexp.MustCompile(`^time=\d{2}:\d{2}:\d{2}\.\d{3} `).MatchString(out) {
		t.Errorf("text output does not start with a clock time: %q", out)
	}
}

func TestNewWithWriter_NoSourceAboveDebug(t *testing.T) {
	var buf bytes.Buffer
	NewWithWriter(slog.LevelInfo, "text", &buf).Info("done")
	if strings.Contains(buf.String(), "source=") {
		t.Errorf("info output has source: %q", buf.String())
	}
}

func TestDiscard(t *testing.T) {
	if Discard().Enabled(context.Background(), slog.LevelError) {
		t.Error("Discard logger should not be enabled at ERROR")
	}
}
