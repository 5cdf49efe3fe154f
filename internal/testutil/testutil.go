// Package testutil provides shared test helpers for setting up capsas and
// databases.
package testutil

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/soltvedt/raido/internal/index"
)

// TempCapsa creates a temporary capsa directory populated with the given
// files. Keys are slash-separated paths relative to the capsa root.
func TempCapsa(t *testing.T, files map[string]string) string {
	t.Helper()
	dir := t.TempDir()
	for rel, content := range files {
		p := filepath.Join(dir, filepath.FromSlash(rel))
		if err := os.MkdirAll(filepath.Dir(p), 0o755); err != nil {
			t.Fatalf("testutil: mkdir %s: %v", rel, err)
		}
		if err := os.WriteFile(p, []byte(content), 0o644); err != nil {
			t.Fatalf("testutil: write %s: %v", rel, err)
		}
	}
	return dir
}

// ReadFile reads a file relative to a capsa root, failing the test on error.
func ReadFile(t *testing.T, root, rel string) string {
	t.Helper()
	data, err := os.ReadFile(filepath.Join(root, filepath.FromSlash(rel)))
	if err != nil {
		t.Fatalf("testutil: read %s: %v", rel, err)
	}
	return string(data)
}

// Lines splits s into lines without a trailing empty element.
func Lines(s string) []string {
	s = strings.TrimSuffix(s, "\n")
	if s == "" {
		return nil
	}
	return strings.Split(s, "\n")
}

// TestDB creates a temporary SQLite database that is automatically cleaned up.
func TestDB(t *testing.T) *index.DB {
	t.Helper()
	dbFile, err := os.CreateTemp("", "raido-test-*.db")
	if err != nil {
		t.Fatal(err)
	}
	dbFile.Close()
	t.Cleanup(func() { os.Remove(dbFile.Name()) })

	db, err := index.Open(dbFile.Name())
	if err != nil {
		t.Fatalf("testutil: open index: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	return db
}
