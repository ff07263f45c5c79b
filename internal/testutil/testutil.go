// Package testutil provides shared test helpers for history databases and export directories.
package testutil

import (
	"path/filepath"
	"testing"

	"github.com/starford/snapnotes/internal/history"
	"github.com/starford/snapnotes/internal/storage"
)

// TestHistory opens a history database in a temporary directory that is
// automatically cleaned up.
func TestHistory(t *testing.T, capacity int) *history.DB {
	t.Helper()
	db, err := history.Open(filepath.Join(t.TempDir(), "history.db"), capacity)
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { db.Close() })
	return db
}

// TestExports creates a temporary export directory with a storage.Provider.
func TestExports(t *testing.T) (string, *storage.FS) {
	t.Helper()
	dir := t.TempDir()
	store, err := storage.NewFS(dir)
	if err != nil {
		t.Fatal(err)
	}
	return store.Root(), store
}
