package logger

import (
	"log/slog"
	"os"

	"github.com/marketplace-wallet-ledger/internal/config"
)

// NewLogger builds the process-wide slog.Logger: JSON to stdout, level from
// config. Unparseable levels fall back to info rather than failing startup.
func NewLogger(cfg *config.Config) *slog.Logger {
	level := slog.LevelInfo
	if cfg.Logging.Level != "" {
		var parsed slog.Level
		if err := parsed.UnmarshalText([]byte(cfg.Logging.Level)); err == nil {
			level = parsed
		}
	}

	handler := slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level: level,
		// Source locations are only worth the log volume when debugging.
		AddSource: level == slog.LevelDebug,
	})

	logger := slog.New(handler)
	logger.Info("logger initialized", "level", level)

	return logger
}
