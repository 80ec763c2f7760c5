package logging

import (
	"bytes"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
)

// ErrorWriter adapts a logger to the Writer interface so command output
// streams (cobra's error stream in particular) land in the log.
type ErrorWriter struct {
	logger *slog.Logger
}

// Write logs the given bytes at error level.
func (ew *ErrorWriter) Write(p []byte) (int, error) {
	ew.logger.Error(string(bytes.TrimSpace(p)))
	return len(p), nil
}

// NewErrorWriter creates an ErrorWriter for the given logger.
func NewErrorWriter(logger *slog.Logger) *ErrorWriter {
	return &ErrorWriter{logger}
}

func handler(w io.Writer, debug bool) slog.Handler {
	level := slog.LevelInfo
	addSource := false
	if debug {
		level = slog.LevelDebug
		addSource = true
	}

	return slog.NewTextHandler(w, &slog.HandlerOptions{
		Level:     level,
		AddSource: addSource,
	})
}

// NewLogger creates a logger appending to logfile. If debug is true the
// level is DEBUG with source locations, else INFO.
func NewLogger(logfile string, debug bool) (*slog.Logger, error) {
	if err := os.MkdirAll(filepath.Dir(logfile), 0o755); err != nil {
		return nil, fmt.Errorf("create log directory: %w", err)
	}

	f, err := os.OpenFile(
		logfile,
		os.O_CREATE|os.O_APPEND|os.O_WRONLY,
		0o644,
	)
	if err != nil {
		return nil, fmt.Errorf("open log file %s: %w", logfile, err)
	}

	return slog.New(handler(f, debug)), nil
}

// NewStderrLogger creates a logger writing to stderr, for daemons running in
// the foreground.
func NewStderrLogger(debug bool) *slog.Logger {
	return slog.New(handler(os.Stderr, debug))
}
