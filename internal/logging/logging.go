// Package logging sets up the application logger. The TUI owns the
// terminal, so logs go to a file under the data directory.
package logging

import (
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
)

// Open creates a slog.Logger writing to maildeck.log inside dataDir. The
// returned closer must be closed on shutdown.
func Open(dataDir string) (*slog.Logger, io.Closer, error) {
	if err := os.MkdirAll(dataDir, 0o700); err != nil {
		return nil, nil, fmt.Errorf("failed to create data directory: %w", err)
	}
	path := filepath.Join(dataDir, "maildeck.log")
	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o600)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to open log file: %w", err)
	}
	logger := slog.New(slog.NewTextHandler(f, nil))
	return logger, f, nil
}

// Discard returns a logger that drops everything. CLI one-shot commands
// use it when stderr is preferred over the log file.
func Discard() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}
