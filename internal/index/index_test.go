package index

import (
	"log/slog"
	"os"
	"testing"
	"time"

	"github.com/soltvedt/raido/internal/storage"
)

func testDB(t *testing.T) *DB {
	t.Helper()
	f, err := os.CreateTemp("", "raido-test-*.db")
	if err != nil {
		t.Fatal(err)
	}
	f.Close()
	t.Cleanup(func() { os.Remove(f.Name()) })

	db, err := Open(f.Name())
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	return db
}

func quietLogger() *slog.Logger {
	return slog.New(slog.NewJSONHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelError}))
}

func TestSchemaCreation(t *testing.T) {
	db := testDB(t)
	var count int
	if err := db.conn.QueryRow(`SELECT count(*) FROM notes`).Scan(&count); err != nil {
		t.Fatalf("notes table missing: %v", err)
	}
	if err := db.conn.QueryRow(`SELECT count(*) FROM links`).Scan(&count); err != nil {
		t.Fatalf("links table missing: %v", err)
	}
}

func TestUpsertAndGetChecksum(t *testing.T) {
	db := testDB(t)
	row := NoteRow{
		Path:      "note/hello.md",
		Title:     "Hello World",
		Checksum:  "abc123",
		Tags:      []string{"book"},
		UpdatedAt: time.Now(),
	}
	if err := db.UpsertNote(row, "This is a hello world note.", []string{"note/other.md"}); err != nil {
		t.Fatalf("UpsertNote: %v", err)
	}
	cs, err := db.GetChecksum("note/hello.md")
	if err != nil {
		t.Fatalf("GetChecksum: %v", err)
	}
	if cs != "abc123" {
		t.Errorf("checksum = %q, want %q", cs, "abc123")
	}

	n, err := db.GetNote("note/hello.md")
	if err != nil {
		t.Fatalf("GetNote: %v", err)
	}
	if n == nil || n.Title != "Hello World" || len(n.Tags) != 1 || n.Tags[0] != "book" {
		t.Errorf("note = %+v", n)
	}
}

func TestBacklinks(t *testing.T) {
	db := testDB(t)
	_ = db.UpsertNote(NoteRow{Path: "a.md", Checksum: "1", UpdatedAt: time.Now()}, "body", []string{"b.md"})
	_ = db.UpsertNote(NoteRow{Path: "c.md", Checksum: "2", UpdatedAt: time.Now()}, "body", []string{"b.md"})

	bl, err := db.Backlinks("b.md")
	if err != nil {
		t.Fatalf("Backlinks: %v", err)
	}
	if len(bl) != 2 {
		t.Fatalf("expected 2 backlinks, got %d", len(bl))
	}
}

func TestDeleteNote(t *testing.T) {
	db := testDB(t)
	_ = db.UpsertNote(NoteRow{Path: "del.md", Checksum: "x", UpdatedAt: time.Now()}, "body", []string{"target.md"})

	if err := db.DeleteNote("del.md"); err != nil {
		t.Fatalf("DeleteNote: %v", err)
	}
	cs, _ := db.GetChecksum("del.md")
	if cs != "" {
		t.Errorf("deleted note still has checksum %q", cs)
	}
	bl, _ := db.Backlinks("target.md")
	if len(bl) != 0 {
		t.Errorf("expected 0 backlinks after delete, got %d", len(bl))
	}
}

func TestUpsertUpdatesExisting(t *testing.T) {
	db := testDB(t)
	now := time.Now()
	_ = db.UpsertNote(NoteRow{Path: "up.md", Title: "Old", Checksum: "1", UpdatedAt: now}, "old body", []string{"x.md"})
	_ = db.UpsertNote(NoteRow{Path: "up.md", Title: "New", Checksum: "2", UpdatedAt: now}, "new body", []string{"y.md"})

	cs, _ := db.GetChecksum("up.md")
	if cs != "2" {
		t.Errorf("checksum = %q, want %q", cs, "2")
	}
	bl, _ := db.Backlinks("x.md")
	if len(bl) != 0 {
		t.Error("old link should be removed on upsert")
	}
	bl, _ = db.Backlinks("y.md")
	if len(bl) != 1 {
		t.Error("new link should exist")
	}
}

func TestListNotesByTag(t *testing.T) {
	db := testDB(t)
	now := time.Now()
	_ = db.UpsertNote(NoteRow{Path: "a.md", Checksum: "1", Tags: []string{"book"}, UpdatedAt: now}, "", nil)
	_ = db.UpsertNote(NoteRow{Path: "b.md", Checksum: "2", Tags: []string{"work"}, UpdatedAt: now}, "", nil)

	notes, total, err := db.ListNotes(10, 0, "book")
	if err != nil {
		t.Fatalf("ListNotes: %v", err)
	}
	if total != 1 || len(notes) != 1 || notes[0].Path != "a.md" {
		t.Errorf("notes = %+v, total = %d", notes, total)
	}

	_, total, err = db.ListNotes(10, 0, "")
	if err != nil {
		t.Fatalf("ListNotes all: %v", err)
	}
	if total != 2 {
		t.Errorf("total = %d, want 2", total)
	}
}

func TestGetChecksum_NotFound(t *testing.T) {
	db := testDB(t)
	cs, err := db.GetChecksum("nonexistent.md")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cs != "" {
		t.Errorf("expected empty checksum, got %q", cs)
	}
}

func TestSearch_Basic(t *testing.T) {
	db := testDB(t)
	_ = db.UpsertNote(NoteRow{Path: "s.md", Title: "Search Me", Checksum: "1", UpdatedAt: time.Now()}, "uniqueword appears here", nil)

	results, err := db.Search("uniqueword", 10)
	if err != nil {
		t.Fatalf("Search: %v", err)
	}
	if len(results) != 1 || results[0].Path != "s.md" {
		t.Errorf("search results = %+v, want 1 hit for s.md", results)
	}
}

func TestSyncIndexesCapsa(t *testing.T) {
	db := testDB(t)
	dir := t.TempDir()
	store, err := storage.NewFS(dir)
	if err != nil {
		t.Fatal(err)
	}
	_ = store.Write("#daily/20260212/222714-some-task.md", []byte("# Some Task\n\nwith [a link](note/other.md)\n"))
	_ = store.Write("note/other.md", []byte("# Other\n"))
	_ = store.Write("#book.md", []byte("# book\n\n- [other](note/other.md)\n"))

	if err := Sync(db, store, quietLogger()); err != nil {
		t.Fatalf("Sync: %v", err)
	}

	n, _ := db.GetNote("#daily/20260212/222714-some-task.md")
	if n == nil || n.Title != "Some Task" {
		t.Fatalf("daily note not indexed: %+v", n)
	}
	bl, _ := db.Backlinks("note/other.md")
	found := false
	for _, b := range bl {
		if b == "#daily/20260212/222714-some-task.md" {
			found = true
		}
	}
	if !found {
		t.Errorf("backlinks = %v", bl)
	}

	// Tag files map tags onto their targets.
	other, _ := db.GetNote("note/other.md")
	if other == nil || len(other.Tags) != 1 || other.Tags[0] != "book" {
		t.Errorf("tagged note = %+v", other)
	}

	// Deleting the file and re-syncing drops the row.
	_ = store.Delete("note/other.md")
	if err := Sync(db, store, quietLogger()); err != nil {
		t.Fatalf("second Sync: %v", err)
	}
	if cs, _ := db.GetChecksum("note/other.md"); cs != "" {
		t.Error("stale entry survived sync")
	}
}
