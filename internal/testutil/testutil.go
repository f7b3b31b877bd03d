// Package testutil provides shared test helpers for setting up content trees.
package testutil

import (
	"io"
	"log/slog"
	"testing"

	"github.com/starford/starlinks/internal/storage"
)

// ContentTree creates a temporary content directory holding files (relative
// path → content) and returns its storage.FS.
func ContentTree(t *testing.T, files map[string]string) *storage.FS {
	t.Helper()
	store, err := storage.NewFS(t.TempDir())
	if err != nil {
		t.Fatal(err)
	}
	for p, content := range files {
		if err := store.Write(p, []byte(content)); err != nil {
			t.Fatalf("write %s: %v", p, err)
		}
	}
	return store
}

// Abs returns the absolute path of rel inside store, failing the test on error.
func Abs(t *testing.T, store storage.Provider, rel string) string {
	t.Helper()
	abs, err := store.Abs(rel)
	if err != nil {
		t.Fatal(err)
	}
	return abs
}

// Logger returns a logger that discards everything.
func Logger() *slog.Logger {
	return slog.New(slog.NewJSONHandler(io.Discard, &slog.HandlerOptions{Level: slog.LevelError}))
}
