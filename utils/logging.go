package utils

import (
	"fmt"
	"io"
	"log"
	"os"

	"github.com/google/uuid"
	"golang.org/x/term"
)

// NewLogger opens the debug log. Without debug everything goes to io.Discard.
// The returned close function is always safe to call.
func NewLogger(debug bool, path string) (*log.Logger, func() error, error) {
	noop := func() error { return nil }
	if !debug {
		return log.New(io.Discard, "", 0), noop, nil
	}

	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return log.New(io.Discard, "", 0), noop, fmt.Errorf("failed to open log file %s: %w", path, err)
	}

	runID := uuid.NewString()
	logger := log.New(f, fmt.Sprintf("[%s] ", runID[:8]), log.Ldate|log.Ltime|log.Lmicroseconds)
	logger.Printf("---------------- run %s started ----------------", runID)
	return logger, f.Close, nil
}

// IsTerminal reports whether f is attached to a terminal
func IsTerminal(f *os.File) bool {
	return term.IsTerminal(int(f.Fd()))
}
