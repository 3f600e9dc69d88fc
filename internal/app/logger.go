package app

import (
	"io"
	"log/slog"
	"os"
	"strings"

	"github.com/heartmarshall/labassist-backend/internal/audit"
	"github.com/heartmarshall/labassist-backend/internal/config"
)

// NewLogger builds the process logger on stderr and installs it as the slog
// default. "json" is meant for production, anything else selects the text
// handler with source locations. Attributes whose key names a credential are
// masked the same way audit metadata is.
func NewLogger(cfg config.LogConfig) *slog.Logger {
	logger := newLogger(os.Stderr, cfg)
	slog.SetDefault(logger)
	return logger
}

func newLogger(w io.Writer, cfg config.LogConfig) *slog.Logger {
	opts := &slog.HandlerOptions{
		Level:       parseLevel(cfg.Level),
		AddSource:   !strings.EqualFold(cfg.Format, "json"),
		ReplaceAttr: maskSecrets,
	}
	if strings.EqualFold(cfg.Format, "json") {
		return slog.New(slog.NewJSONHandler(w, opts))
	}
	return slog.New(slog.NewTextHandler(w, opts))
}

func maskSecrets(_ []string, a slog.Attr) slog.Attr {
	if a.Value.Kind() != slog.KindGroup && audit.IsSensitiveKey(a.Key) {
		return slog.String(a.Key, "[REDACTED]")
	}
	return a
}

func parseLevel(s string) slog.Level {
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
