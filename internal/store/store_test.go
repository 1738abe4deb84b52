package store

import (
	"log/slog"
	"testing"
)

// openTestStore opens a fresh in-memory store for one test.
func openTestStore(t *testing.T) *Store {
	t.Helper()
	s, err := Open("", string(TokenizerUnicode61), slog.Default())
	if err != nil {
		t.Fatalf("open store: %v", err)
	}
	t.Cleanup(func() { _ = s.Close() })
	return s
}
