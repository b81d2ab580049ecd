// Package logger sets up structured logging on log/slog. The terminal belongs
// to the UI, so records go to a file (or nowhere).
package logger

import (
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
)

type Config struct {
	File  string // empty disables logging
	Level string // debug, info, warn, error
}

// Logger owns the handler's output file.
type Logger struct {
	*slog.Logger
	closer io.Closer
}

// New opens cfg.File for appending and returns a JSON logger writing to it.
func New(cfg Config) (*Logger, error) {
	if cfg.File == "" {
		return Discard(), nil
	}
	if err := os.MkdirAll(filepath.Dir(cfg.File), 0o755); err != nil {
		return nil, fmt.Errorf("create log directory: %w", err)
	}
	f, err := os.OpenFile(cfg.File, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return nil, fmt.Errorf("open log file: %w", err)
	}
	return NewWriter(f, cfg.Level, f), nil
}

// NewWriter logs to w. closer may be nil.
func NewWriter(w io.Writer, level string, closer io.Closer) *Logger {
	h := slog.NewJSONHandler(w, &slog.HandlerOptions{Level: ParseLevel(level)})
	return &Logger{Logger: slog.New(h), closer: closer}
}

// Discard returns a logger that drops everything.
func Discard() *Logger {
	return &Logger{Logger: slog.New(slog.DiscardHandler)}
}

// Module returns a child logger tagged with module=name. Nested modules are
// joined with a dot.
func (l *Logger) Module(name string) *slog.Logger {
	return Module(l.Logger, name)
}

func (l *Logger) Close() error {
	if l.closer == nil {
		return nil
	}
	return l.closer.Close()
}

// Module tags an arbitrary slog logger with a module name.
func Module(l *slog.Logger, name string) *slog.Logger {
	if l == nil {
		l = slog.New(slog.DiscardHandler)
	}
	return l.With(slog.String("module", name))
}

func ParseLevel(level string) slog.Level {
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
