// Package logfile appends timestamped lines to the session log.
//
// The file is opened, written and closed for every entry so it can be
// inspected (tail -f, rotated, truncated) while a session is running.
package logfile

import (
	"fmt"
	"os"
	"path/filepath"
	"time"
)

// Writer appends entries to a single log file
type Writer struct {
	path string // Path to the log file
}

// New creates a writer for path. The parent directory must already exist.
func New(path string) (*Writer, error) {
	if path == "" {
		return nil, fmt.Errorf("log file path cannot be empty")
	}

	absPath, err := filepath.Abs(path)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve path: %w", err)
	}

	return &Writer{path: absPath}, nil
}

// Format renders a log entry without the trailing newline
func Format(ts time.Time, line string) string {
	return fmt.Sprintf("[%s] %s", ts.Format(time.DateTime), line)
}

// Append writes one entry stamped with ts
func (w *Writer) Append(ts time.Time, line string) error {
	return w.write([]byte(Format(ts, line) + "\n"))
}

func (w *Writer) write(data []byte) error {
	f, err := os.OpenFile(w.path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
	if err != nil {
		return fmt.Errorf("failed to open log file: %w", err)
	}

	if _, err := f.Write(data); err != nil {
		f.Close()
		return fmt.Errorf("failed to write log file: %w", err)
	}

	return f.Close()
}

// Path returns the absolute path to the log file
func (w *Writer) Path() string {
	return w.path
}

// OpenAppend opens the log file for a long-lived append-only handle. Used as
// stdout/stderr of the detached relay process.
func (w *Writer) OpenAppend() (*os.File, error) {
	f, err := os.OpenFile(w.path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
	if err != nil {
		return nil, fmt.Errorf("failed to open log file: %w", err)
	}
	return f, nil
}
