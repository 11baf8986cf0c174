// Package logging builds the tint-backed slog loggers used across the
// service.
//
// Usage:
//
//	logging.Setup()                      // default logger on stderr, level from LOG_LEVEL
//	logger := logging.New(w, slog.LevelDebug)
//
// Environment variables:
//
//	LOG_LEVEL: debug, info, warn, error (default: info)
package logging

import (
	"io"
	"log/slog"
	"os"
	"strings"
	"time"

	"github.com/lmittmann/tint"
)

// Setup installs a logger on stderr as the process default, at the level
// named by LOG_LEVEL.
func Setup() {
	slog.SetDefault(New(os.Stderr, LevelFromEnv()))
}

// New builds a colored, source-annotated logger writing to w.
func New(w io.Writer, level slog.Level) *slog.Logger {
	return slog.New(tint.NewHandler(w, &tint.Options{
		Level:      level,
		TimeFormat: time.Kitchen,
		AddSource:  true,
	}))
}

// LevelFromEnv maps LOG_LEVEL to a slog level, defaulting to info.
func LevelFromEnv() slog.Level {
	switch strings.ToLower(os.Getenv("LOG_LEVEL")) {
	case "debug":
		return slog.LevelDebug
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}
