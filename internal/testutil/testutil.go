// Package testutil provides shared test helpers and in-memory collaborators
// for driving the editor.
package testutil

import (
	"io"
	"log/slog"
	"os"
	"testing"
	"time"
)

// Eventually polls fn until it returns true or timeout elapses.
func Eventually(t *testing.T, timeout, tick time.Duration, fn func() bool, msg string) {
	t.Helper()
	deadline := time.Now().Add(timeout)
	for time.Now().Before(deadline) {
		if fn() {
			return
		}
		time.Sleep(tick)
	}
	t.Error(msg)
}

// Logger returns a logger that only reports errors, or nothing when
// QUIRE_TEST_QUIET is set.
func Logger() *slog.Logger {
	var w io.Writer = os.Stderr
	if os.Getenv("QUIRE_TEST_QUIET") != "" {
		w = io.Discard
	}
	return slog.New(slog.NewJSONHandler(w, &slog.HandlerOptions{Level: slog.LevelError}))
}
