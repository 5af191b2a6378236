package logger

import (
	"log/slog"
	"os"
	"strings"

	"github.com/fleetops/finance-ledger/internal/config"
)

// NewLogger builds the process-wide JSON logger. The level comes from
// configuration and falls back to info when unrecognised; debug level also
// turns on source locations. Every line carries the service name so the
// API and archiver logs can be told apart in a shared sink.
func NewLogger(cfg *config.Config) *slog.Logger {
	level := parseLevel(cfg.Logging.Level)

	handler := slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level:     level,
		AddSource: level == slog.LevelDebug,
	})

	logger := slog.New(handler)
	if cfg.Application.Name != "" {
		logger = logger.With("service", cfg.Application.Name)
	}

	logger.Info("logger initialized", "level", level)

	return logger
}

func parseLevel(s string) slog.Level {
	switch strings.ToLower(s) {
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
