package logging

import (
	"io"
	"log/slog"
	"os"
	"strings"

	"github.com/google/uuid"

	"github.com/vanshika/kgharvest/internal/config"
)

// New builds a slog.Logger writing to stderr, leaving stdout to command output.
func New(cfg config.LoggingConfig) *slog.Logger {
	return NewWithWriter(os.Stderr, cfg)
}

// NewWithWriter builds a slog.Logger configured according to cfg that writes to w.
func NewWithWriter(w io.Writer, cfg config.LoggingConfig) *slog.Logger {
	opts := &slog.HandlerOptions{
		Level:     parseLevel(cfg.Level),
		AddSource: cfg.IncludeCaller,
	}

	var handler slog.Handler
	if strings.EqualFold(cfg.Format, "json") {
		handler = slog.NewJSONHandler(w, opts)
	} else {
		handler = slog.NewTextHandler(w, opts)
	}

	return slog.New(handler)
}

// WithRun tags every record with a fresh run identifier and returns it.
func WithRun(logger *slog.Logger) (*slog.Logger, string) {
	runID := uuid.NewString()
	return logger.With("run_id", runID), runID
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
