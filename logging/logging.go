// Package logging configures the process-wide slog logger.
//
// Levels follow the names accepted in DB_TP_LOG_LEVEL: DEBUG, INFO, WARNING and ERROR.
// Anything else falls back to INFO.
package logging

import (
	"io"
	"log/slog"
	"strings"
)

const (
	LevelDebug   = "DEBUG"
	LevelInfo    = "INFO"
	LevelWarning = "WARNING"
	LevelError   = "ERROR"
)

// Levels lists the accepted level names.
var Levels = []string{LevelDebug, LevelInfo, LevelWarning, LevelError}

// Setup builds a logger writing to w and installs it as the slog default.
//
// Format values: "text", "json" (default: "text").
func Setup(level, format string, w io.Writer) *slog.Logger {
	opts := &slog.HandlerOptions{
		Level: ParseLevel(level),
	}

	var handler slog.Handler
	if strings.ToLower(format) == "json" {
		handler = slog.NewJSONHandler(w, opts)
	} else {
		handler = slog.NewTextHandler(w, opts)
	}

	logger := slog.New(handler)
	slog.SetDefault(logger)

	return logger
}

// ParseLevel maps a level name onto a slog.Level. Names are matched exactly.
func ParseLevel(level string) slog.Level {
	switch level {
	case LevelDebug:
		return slog.LevelDebug
	case LevelWarning:
		return slog.LevelWarn
	case LevelError:
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

// ValidLevel reports whether level is one of Levels.
func ValidLevel(level string) bool {
	for _, l := range Levels {
		if l == level {
			return true
		}
	}
	return false
}
