package logging

import (
	"io"
	"log/slog"
	"os"
	"strings"
)

// ParseLevel maps a LOG_LEVEL value to a slog level. Unknown values yield
// fallback.
func ParseLevel(l string, fallback slog.Level) slog.Level {
	switch strings.ToLower(l) {
	case "dev", "development", "debug":
		return slog.LevelDebug
	case "info":
		return slog.LevelInfo
	case "warn", "warning":
		return slog.LevelWarn
	case "error", "production", "prod":
		return slog.LevelError
	}
	return fallback
}

// Init installs a text logger on stderr as the default. level comes from
// configuration; LOG_LEVEL in the environment wins over it.
func Init(level string, fallback slog.Level) *slog.Logger {
	if l, ok := os.LookupEnv("LOG_LEVEL"); ok {
		level = l
	}
	return InitTo(os.Stderr, ParseLevel(level, fallback))
}

// InitTo installs a text logger writing to w.
func InitTo(w io.Writer, level slog.Level) *slog.Logger {
	logger := slog.New(
		slog.NewTextHandler(w, &slog.HandlerOptions{
			Level: level,
		}),
	)
	slog.SetDefault(logger)
	return logger
}
