// Package logging builds the shared slog setup. Audit lines emitted by
// the query pipeline go through these loggers, so output is always
// structured JSON on stdout.
package logging

import (
	"log/slog"
	"os"
	"strings"
)

// NewJSONLogger returns a service-tagged JSON logger. Unknown level
// strings fall back to info rather than failing startup.
func NewJSONLogger(service, level string) *slog.Logger {
	handler := slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level: ParseLevel(level),
	})
	return slog.New(handler).With(slog.String("service", service))
}

func ParseLevel(level string) slog.Level {
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
