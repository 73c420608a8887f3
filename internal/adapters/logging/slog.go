// Package logging adapts the standard library's structured logger to
// the balancer's ports.Logger port.
package logging

import (
	"log/slog"
	"os"

	"github.com/athebyme/linebalancer/internal/core/ports"
)

// SlogAdapter implements ports.Logger on top of log/slog.
type SlogAdapter struct {
	logger *slog.Logger
}

// New creates a logging adapter. levelStr is one of
// debug/info/warn/error (default info); isJSON selects the handler
// format.
func New(levelStr string, isJSON bool) *SlogAdapter {
	var level slog.Level
	switch levelStr {
	case "debug":
		level = slog.LevelDebug
	case "info":
		level = slog.LevelInfo
	case "warn":
		level = slog.LevelWarn
	case "error":
		level = slog.LevelError
	default:
		level = slog.LevelInfo
	}

	opts := &slog.HandlerOptions{Level: level}

	var handler slog.Handler
	if isJSON {
		handler = slog.NewJSONHandler(os.Stdout, opts)
	} else {
		handler = slog.NewTextHandler(os.Stdout, opts)
	}

	return &SlogAdapter{logger: slog.New(handler)}
}

func (s *SlogAdapter) Debug(msg string, args ...any) { s.logger.Debug(msg, args...) }
func (s *SlogAdapter) Info(msg string, args ...any)  { s.logger.Info(msg, args...) }
func (s *SlogAdapter) Warn(msg string, args ...any)  { s.logger.Warn(msg, args...) }
func (s *SlogAdapter) Error(msg string, args ...any) { s.logger.Error(msg, args...) }

func (s *SlogAdapter) With(args ...any) ports.Logger {
	return &SlogAdapter{logger: s.logger.With(args...)}
}
