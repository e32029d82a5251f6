package logger

import (
	"io"
	"log/slog"
	"os"
	"strings"
)

// InitLogger initializes and configures the application logger based on environment
// and sets it as the default logger
func InitLogger(environment, level string) *slog.Logger {
	logger := New(os.Stdout, environment, level)
	slog.SetDefault(logger)
	return logger
}

// New builds a logger writing to w. Development gets a text handler with
// source locations at debug level; everything else gets JSON at info.
// A non-empty level overrides the environment default.
func New(w io.Writer, environment, level string) *slog.Logger {
	opts := &slog.HandlerOptions{
		Level: slog.LevelInfo,
	}

	var handler slog.Handler
	if environment == "development" {
		opts.Level = slog.LevelDebug
		opts.AddSource = true
		if lvl, ok := parseLevel(level); ok {
			opts.Level = lvl
		}
		handler = slog.NewTextHandler(w, opts)
	} else {
		if lvl, ok := parseLevel(level); ok {
			opts.Level = lvl
		}
		handler = slog.NewJSONHandler(w, opts)
	}

	return slog.New(handler)
}

func parseLevel(level string) (slog.Level, bool) {
	if strings.TrimSpace(level) == "" {
		return 0, false
	}
	var lvl slog.Level
	if err := lvl.UnmarshalText([]byte(strings.TrimSpace(level))); err != nil {
		return 0, false
	}
	return lvl, true
}
