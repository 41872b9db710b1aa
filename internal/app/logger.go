package app

import (
	"io"
	"log/slog"
	"os"
	"strings"

	"github.com/heartmarshall/hideout-backend/internal/config"
)

// secretKeys are attribute keys whose values never reach the log.
var secretKeys = map[string]bool{
	"access_token":  true,
	"refresh_token": true,
	"password":      true,
	"authorization": true,
	"apikey":        true,
}

// NewLogger builds the process logger and installs it as slog's default.
// Records go to stderr so CLI output on stdout stays parseable. Format
// "text" adds source locations; anything else is JSON. Unknown levels
// fall back to info.
func NewLogger(cfg config.LogConfig) *slog.Logger {
	logger := newLogger(os.Stderr, cfg)
	slog.SetDefault(logger)
	return logger
}

func newLogger(w io.Writer, cfg config.LogConfig) *slog.Logger {
	text := strings.EqualFold(strings.TrimSpace(cfg.Format), "text")
	opts := &slog.HandlerOptions{
		Level:       parseLevel(cfg.Level),
		AddSource:   text,
		ReplaceAttr: redact,
	}

	var h slog.Handler = slog.NewJSONHandler(w, opts)
	if text {
		h = slog.NewTextHandler(w, opts)
	}
	return slog.New(h).With("app", "hideout")
}

func redact(_ []string, a slog.Attr) slog.Attr {
	if secretKeys[strings.ToLower(a.Key)] {
		return slog.String(a.Key, "[redacted]")
	}
	return a
}

// parseLevel accepts slog's own level syntax, so "warn" and "DEBUG+2" both work.
func parseLevel(s string) slog.Level {
	var l slog.Level
	if err := l.UnmarshalText([]byte(strings.TrimSpace(s))); err != nil {
		return slog.LevelInfo
	}
	return l
}
