// Package testutil provides shared test helpers for setting up stores
// backed by a temporary SQLite database.
package testutil

import (
	"io"
	"log/slog"
	"os"
	"testing"

	"github.com/starford/ansuz/internal/store"
)

// Logger returns a logger that discards everything.
func Logger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// TestProvider creates a temporary SQLite provider that is
// automatically cleaned up.
func TestProvider(t *testing.T) *store.SQLite {
	t.Helper()
	dbFile, err := os.CreateTemp("", "ansuz-test-*.db")
	if err != nil {
		t.Fatal(err)
	}
	dbFile.Close()
	t.Cleanup(func() { os.Remove(dbFile.Name()) })

	p, err := store.OpenSQLite(dbFile.Name())
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { p.Close() })
	return p
}

// TestStore creates a store over a temporary SQLite database.
func TestStore(t *testing.T, opts ...store.StoreOption) *store.Store {
	t.Helper()
	return store.New(TestProvider(t), Logger(), opts...)
}
