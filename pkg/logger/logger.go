package logger

import (
	"io"
	"log/slog"
	"os"
	"strings"
)

// Init builds the process logger and installs it as the slog default.
// level: "debug", "info", "warn", "error" (defaults to "info")
// format: "json" or "text" (defaults to "text")
func Init(level, format string) *slog.Logger {
	return New(os.Stdout, level, format)
}

func New(w io.Writer, level, format string) *slog.Logger {
	opts := &slog.HandlerOptions{Level: ParseLevel(level)}

	var handler slog.Handler
	if strings.EqualFold(format, "json") {
		handler = slog.NewJSONHandler(w, opts)
	} else {
		handler = slog.NewTextHandler(w, opts)
	}

	l := slog.New(handler)
	slog.SetDefault(l)
	return l
}

func ParseLevel(level string) slog.Level {
	switch strings.ToLower(strings.TrimSpace(level)) {
	case "debug":
		return slog.LevelDebug
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}
