package logging

import (
	"bytes"
	"log/slog"
	"strings"
	"testing"
)

func TestNew(t *testing.T) {
	var buf bytes.Buffer
	logger := New(&buf, slog.LevelInfo)

	logger.Info("server starting", "addr", ":8080")
	if !strings.Contains(buf.String(), "server starting") {
		t.Errorf("expected log output in writer, got %q", buf.String())
	}

	logger.Debug("should be filtered")
	if strings.Contains(buf.String(), "should be filtered") {
		t.Error("debug record leaked through an info-level logger")
	}
}

func TestLevelFromEnv(t *testing.T) {
	cases := []struct {
		value string
		want  slog.Level
	}{
		{"debug", slog.LevelDebug},
		{"warn", slog.LevelWarn},
		{"warning", slog.LevelWarn},
		{"ERROR", slog.LevelError},
		{"", slog.LevelInfo},
		{"nonsense", slog.LevelInfo},
	}
	for _, tc := range cases {
		t.Run("LOG_LEVEL="+tc.value, func(t *testing.T) {
			t.Setenv("LOG_LEVEL", tc.value)
			if got := LevelFromEnv(); got != tc.want {
				t.Errorf("got %v, want %v", got, tc.want)
			}
		})
	}
}
