// Package logging builds the process-wide slog loggers. Packages that
// log ambiently use Component(); collaborators that must be testable,
// like the failure normalizer, receive a *slog.Logger explicitly
// instead of reaching for the global one.
package logging

import (
	"io"
	"log/slog"
	"os"
	"strings"
)

var root = slog.New(newHandler(os.Stdout))

// Root returns the process logger. Level comes from LOG_LEVEL; output
// is colored for terminals unless NO_COLOR is set, JSON otherwise.
func Root() *slog.Logger {
	return root
}

// Component returns a logger tagged with a component name. Typical
// use at package level: var log = logging.Component("bus").
func Component(name string) *slog.Logger {
	return root.With("component", name)
}

func newHandler(out io.Writer) slog.Handler {
	opts := &slog.HandlerOptions{Level: ParseLevel(os.Getenv("LOG_LEVEL"))}
	if os.Getenv("NO_COLOR") == "" {
		return NewColorHandler(out, opts)
	}
	return slog.NewJSONHandler(out, opts)
}

// ParseLevel maps a LOG_LEVEL string to a slog level, defaulting to
// info.
func ParseLevel(s string) slog.Level {
	switch strings.ToLower(strings.TrimSpace(s)) {
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
