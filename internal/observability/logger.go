package observability

import (
	"context"
	"io"
	"log/slog"
	"os"
	"strings"

	"github.com/couchcryptid/city-locator/internal/config"
	sharedobs "github.com/couchcryptid/storm-data-shared/observability"
)

// NewLogger builds the service logger from LOG_LEVEL and LOG_FORMAT and
// installs it as the slog default.
func NewLogger(cfg *config.Config) *slog.Logger {
	logger := sharedobs.NewLogger(cfg.LogLevel, cfg.LogFormat)
	slog.SetDefault(logger)
	return logger
}

// NewStderrLogger is NewLogger for the CLI, whose stdout carries command
// output. The level is the one the shared logger resolves for LOG_LEVEL.
func NewStderrLogger(cfg *config.Config) *slog.Logger {
	logger := newWriterLogger(os.Stderr, cfg)
	slog.SetDefault(logger)
	return logger
}

func newWriterLogger(w io.Writer, cfg *config.Config) *slog.Logger {
	opts := &slog.HandlerOptions{
		Level: enabledLevel(sharedobs.NewLogger(cfg.LogLevel, cfg.LogFormat).Handler()),
	}
	if strings.EqualFold(cfg.LogFormat, "text") {
		return slog.New(slog.NewTextHandler(w, opts))
	}
	return slog.New(slog.NewJSONHandler(w, opts))
}

// enabledLevel returns the lowest level h accepts.
func enabledLevel(h slog.Handler) slog.Level {
	for _, level := range []slog.Level{slog.LevelDebug, slog.LevelInfo, slog.LevelWarn} {
		if h.Enabled(context.Background(), level) {
			return level
		}
	}
	return slog.LevelError
}
