package log

import (
	"bytes"
	"errors"
	"log/slog"
	"strings"
	"testing"
)

func TestLoggerComponent(t *testing.T) {
	var buf bytes.Buffer
	logger := New(Config{Level: slog.LevelInfo, Component: ComponentPipeline, Output: &buf})

	logger.With(FieldDocument, "a.xlsx").WithComponent(ComponentDelivery).Info("stored")
	out := buf.String()

	if strings.Count(out, "component=") != 1 {
		t.Errorf("component should appear once: %q", out)
	}
	if !strings.Contains(out, "component=delivery") {
		t.Errorf("missing component: %q", out)
	}
	if !strings.Contains(out, "document=a.xlsx") {
		t.Errorf("missing document attribute: %q", out)
	}
}

func TestLoggerJSONAndLevel(t *testing.T) {
	var buf bytes.Buffer
	logger := New(Config{Level: ParseLevel("warn"), Format: "json", Output: &buf})

	logger.Info("hidden")
	logger.Failure(t.Context(), "send failed", errors.New("boom"))

	out := buf.String()
	if strings.Contains(out, "hidden") {
		t.Errorf("info should be filtered at warn level: %q", out)
	}
	if !strings.Contains(out, `"error":"boom"`) || !strings.Contains(out, `"component":"app"`) {
		t.Errorf("unexpected JSON output: %q", out)
	}
}

func TestParseLevel(t *testing.T) {
	tests := []struct {
		in       string
		expected slog.Level
	}{
		{"debug", slog.LevelDebug},
		{"INFO", slog.LevelInfo},
		{"warn", slog.LevelWarn},
		{"error", slog.LevelError},
		{"", slog.LevelInfo},
		{"loud", slog.LevelInfo},
	}
	for _, tt := range tests {
		if got := ParseLevel(tt.in); got != tt.expected {
			t.Errorf("ParseLevel(%q) = %v, expected %v", tt.in, got, tt.expected)
		}
	}
}
