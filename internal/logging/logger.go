// Package logging writes timestamped lines to a log file or stderr.
package logging

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"
)

// Printer is what components accept for logging.
type Printer interface {
	Printf(format string, args ...any)
}

// Nop discards everything.
type Nop struct{}

func (Nop) Printf(string, ...any) {}

// Logger appends timestamped lines to a writer.
type Logger struct {
	mu    sync.Mutex
	w     io.Writer
	file  *os.File
	clock func() time.Time
}

// New creates (or reuses) the log file at path. An empty path logs to stderr.
func New(path string) (*Logger, error) {
	if path == "" {
		return NewWriter(os.Stderr), nil
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("logging: ensure log dir: %w", err)
	}
	f, err := os.OpenFile(path, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o644)
	if err != nil {
		return nil, fmt.Errorf("logging: open log file: %w", err)
	}
	return &Logger{w: f, file: f, clock: time.Now}, nil
}

// NewWriter logs to w.
func NewWriter(w io.Writer) *Logger {
	return &Logger{w: w, clock: time.Now}
}

// Close releases the file handle, if any.
func (l *Logger) Close() error {
	if l == nil || l.file == nil {
		return nil
	}
	return l.file.Close()
}

// Printf writes a single timestamped line.
func (l *Logger) Printf(format string, args ...any) {
	if l == nil || l.w == nil {
		return
	}
	line := fmt.Sprintf(format, args...)
	line = strings.TrimRight(line, "\n")
	timestamp := l.clock().Format(time.RFC3339)

	l.mu.Lock()
	defer l.mu.Unlock()
	fmt.Fprintf(l.w, "[%s] %s\n", timestamp, line)
}
