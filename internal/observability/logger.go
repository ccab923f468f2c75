package observability

import (
	"io"
	"log/slog"
	"os"
	"strings"
	"time"

	sharedobs "github.com/couchcryptid/storm-data-shared/observability"
	"github.com/lmittmann/tint"

	"github.com/couchcryptid/pandora-dashboard/internal/config"
)

// NewLogger creates the service logger and sets it as the slog default.
// LOG_FORMAT=text gets colorized tint output for local development; anything
// else is JSON.
func NewLogger(cfg *config.Config) *slog.Logger {
	if !strings.EqualFold(cfg.LogFormat, "text") {
		return sharedobs.NewLogger(cfg.LogLevel, cfg.LogFormat)
	}
	logger := NewTextLogger(os.Stdout, cfg.LogLevel)
	slog.SetDefault(logger)
	return logger
}

// NewTextLogger returns a tint logger writing to w. Command-line tools use it
// to log to stderr without touching the slog default.
func NewTextLogger(w io.Writer, level string) *slog.Logger {
	return slog.New(newTextHandler(w, level))
}

func newTextHandler(w io.Writer, level string) slog.Handler {
	return tint.NewHandler(w, &tint.Options{
		Level:      parseLevel(level),
		AddSource:  true,
		TimeFormat: time.Kitchen,
	})
}

func parseLevel(s string) slog.Level {
	switch strings.ToLower(s) {
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
