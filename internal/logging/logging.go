package logging

import (
	"io"
	"log/slog"
	"os"
	"strings"
)

// New builds the JSON logger shared by all pipeline components. Logs go
// to stderr; stdout is reserved for the pipeline's JSON output.
func New(service, level string) *slog.Logger {
	return NewWithWriter(os.Stderr, service, level)
}

// NewWithWriter is New with an explicit destination.
func NewWithWriter(w io.Writer, service, level string) *slog.Logger {
	handler := slog.NewJSONHandler(w, &slog.HandlerOptions{
		Level: parseLevel(level),
	})
	return slog.New(handler).With("service", service)
}

func parseLevel(level string) slog.Level {
	switch strings.ToLower(strings.TrimSpace(level)) {
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
