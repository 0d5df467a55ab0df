// Package testutil holds small helpers shared by tests.
package testutil

import (
	"io"
	"log/slog"
	"testing"

	"github.com/mkarpov/usagevault/internal/logging"
)

type testWriter struct{ t *testing.T }

func (w testWriter) Write(p []byte) (int, error) {
	w.t.Logf("%s", p)
	return len(p), nil
}

// NewLogger returns a Logger routing output through t.Log, so log lines show
// up attached to the failing test instead of polluting stdout.
func NewLogger(t *testing.T) logging.Logger {
	t.Helper()
	h := slog.NewTextHandler(testWriter{t}, &slog.HandlerOptions{Level: slog.LevelDebug})
	return logging.NewSlogLogger(slog.New(h))
}

// NewNopLogger returns a Logger that discards everything.
func NewNopLogger() logging.Logger {
	h := slog.NewTextHandler(io.Discard, nil)
	return logging.NewSlogLogger(slog.New(h))
}
