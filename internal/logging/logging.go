// Package logging builds the slog loggers used by the exporter.
package logging

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"strings"
)

// LevelSuccess sits between Info and Warn and marks a completed export.
const LevelSuccess = slog.Level(2)

// Output formats accepted by New.
const (
	FormatConsole = "console"
	FormatText    = "text"
	FormatJSON    = "json"
)

// New returns a logger writing to w in the given format at the given level.
func New(w io.Writer, format string, level slog.Level) (*slog.Logger, error) {
	opts := &slog.HandlerOptions{Level: level, ReplaceAttr: replaceLevel}
	switch strings.ToLower(format) {
	case "", FormatConsole:
		return slog.New(NewConsoleHandler(w, level)), nil
	case FormatText:
		return slog.New(slog.NewTextHandler(w, opts)), nil
	case FormatJSON:
		return slog.New(slog.NewJSONHandler(w, opts)), nil
	default:
		return nil, fmt.Errorf("unsupported log format %q: use console, text or json", format)
	}
}

// replaceLevel names LevelSuccess instead of rendering it as INFO+2.
func replaceLevel(_ []string, a slog.Attr) slog.Attr {
	if a.Key == slog.LevelKey {
		if lvl, ok := a.Value.Any().(slog.Level); ok && lvl == LevelSuccess {
			a.Value = slog.StringValue("SUCCESS")
		}
	}
	return a
}

// Success logs msg at LevelSuccess.
func Success(ctx context.Context, logger *slog.Logger, msg string, args ...any) {
	logger.Log(ctx, LevelSuccess, msg, args...)
}

// Discard returns a logger that drops every record.
func Discard() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

type loggerKey struct{}

// WithLogger stores logger in the context.
func WithLogger(ctx context.Context, logger *slog.Logger) context.Context {
	return context.WithValue(ctx, loggerKey{}, logger)
}

// FromContext returns the logger stored by WithLogger, or fallback.
func FromContext(ctx context.Context, fallback *slog.Logger) *slog.Logger {
	if l, ok := ctx.Value(loggerKey{}).(*slog.Logger); ok && l != nil {
		return l
	}
	if fallback != nil {
		return fallback
	}
	return slog.Default()
}
