package storage

import (
	"os"
	"path/filepath"
	"testing"
)

func tempCapsa(t *testing.T) *FS {
	t.Helper()
	dir := t.TempDir()
	fs, err := NewFS(dir)
	if err != nil {
		t.Fatalf("NewFS: %v", err)
	}
	return fs
}

func TestWriteAndRead(t *testing.T) {
	s := tempCapsa(t)
	content := []byte("# Hello\nWorld\n")
	if err := s.Write("note.md", content); err != nil {
		t.Fatalf("Write: %v", err)
	}
	got, err := s.Read("note.md")
	if err != nil {
		t.Fatalf("Read: %v", err)
	}
	if string(got) != string(content) {
		t.Errorf("content mismatch: got %q", got)
	}
}

func TestWriteCreatesSubdirs(t *testing.T) {
	s := tempCapsa(t)
	if err := s.Write("#daily/20260212/222714-some-task.md", []byte("deep")); err != nil {
		t.Fatalf("Write: %v", err)
	}
	got, err := s.Read("#daily/20260212/222714-some-task.md")
	if err != nil {
		t.Fatalf("Read: %v", err)
	}
	if string(got) != "deep" {
		t.Errorf("content = %q", got)
	}
}

func TestListEntriesSortedAndFiltered(t *testing.T) {
	s := tempCapsa(t)
	_ = s.Write("d/143000-meeting.md", []byte("m"))
	_ = s.Write("d/140000-coffee.md", []byte("c"))
	_ = s.Write("d/notes.txt", []byte("t"))
	_ = s.Write("d/ignore.json", []byte("{}"))

	entries, err := s.ListEntries("d")
	if err != nil {
		t.Fatalf("ListEntries: %v", err)
	}
	want := []Entry{
		{Stem: "140000-coffee", Ext: ".md"},
		{Stem: "143000-meeting", Ext: ".md"},
		{Stem: "notes", Ext: ".txt"},
	}
	if len(entries) != len(want) {
		t.Fatalf("len = %d, want %d (%v)", len(entries), len(want), entries)
	}
	for i := range want {
		if entries[i] != want[i] {
			t.Errorf("entries[%d] = %v, want %v", i, entries[i], want[i])
		}
	}
}

func TestListEntriesExtensionPreference(t *testing.T) {
	s := tempCapsa(t)
	_ = s.Write("d/note.txt", []byte("t"))
	_ = s.Write("d/note.md", []byte("m"))

	entries, err := s.ListEntries("d")
	if err != nil {
		t.Fatalf("ListEntries: %v", err)
	}
	if len(entries) != 1 {
		t.Fatalf("len = %d, want 1", len(entries))
	}
	if entries[0].Ext != ".md" {
		t.Errorf("ext = %q, want .md", entries[0].Ext)
	}
}

func TestListRecursive(t *testing.T) {
	s := tempCapsa(t)
	_ = s.Write("a.md", []byte("a"))
	_ = s.Write("#daily/20260212/b.md", []byte("b"))
	_ = s.Write("readme.json", []byte("not a note"))

	items, err := s.List("")
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if len(items) != 2 {
		t.Errorf("len = %d, want 2", len(items))
	}
}

func TestListDirs(t *testing.T) {
	s := tempCapsa(t)
	_ = s.Write("#daily/20260212/a.md", []byte("a"))
	_ = s.Write("#daily/20260211/b.md", []byte("b"))
	_ = s.Write("#daily/stray.md", []byte("s"))

	dirs, err := s.ListDirs("#daily")
	if err != nil {
		t.Fatalf("ListDirs: %v", err)
	}
	if len(dirs) != 2 || dirs[0] != "20260211" || dirs[1] != "20260212" {
		t.Errorf("dirs = %v", dirs)
	}
}

func TestDelete(t *testing.T) {
	s := tempCapsa(t)
	_ = s.Write("del.md", []byte("bye"))
	if err := s.Delete("del.md"); err != nil {
		t.Fatalf("Delete: %v", err)
	}
	if _, err := s.Read("del.md"); err == nil {
		t.Error("expected error reading deleted file")
	}
}

func TestMove(t *testing.T) {
	s := tempCapsa(t)
	_ = s.Write("old.md", []byte("data"))
	if err := s.Move("old.md", "sub/new.md"); err != nil {
		t.Fatalf("Move: %v", err)
	}
	got, err := s.Read("sub/new.md")
	if err != nil {
		t.Fatalf("Read after move: %v", err)
	}
	if string(got) != "data" {
		t.Errorf("content = %q", got)
	}
	if _, err := s.Read("old.md"); err == nil {
		t.Error("old path should not exist")
	}
}

func TestTraversalBlocked(t *testing.T) {
	s := tempCapsa(t)

	cases := []string{
		"../../etc/passwd",
		"../outside.md",
		"/etc/shadow",
	}
	for _, p := range cases {
		if _, err := s.Read(p); err == nil {
			t.Errorf("expected error for path %q", p)
		}
		if err := s.Write(p, []byte("x")); err == nil {
			t.Errorf("expected error for write to %q", p)
		}
	}
}

func TestBackslashSeparatorAccepted(t *testing.T) {
	s := tempCapsa(t)
	if err := s.Write(`sub\note.md`, []byte("x")); err != nil {
		t.Fatalf("Write: %v", err)
	}
	if !s.FileExists("sub/note.md") {
		t.Error("backslash path did not normalize to forward slash")
	}
}

func TestAtomicWriteNoLeftovers(t *testing.T) {
	s := tempCapsa(t)
	_ = s.Write("atomic.md", []byte("original content"))

	updated := []byte("updated content")
	if err := s.Write("atomic.md", updated); err != nil {
		t.Fatalf("Write: %v", err)
	}
	got, _ := s.Read("atomic.md")
	if string(got) != string(updated) {
		t.Errorf("expected updated content, got %q", got)
	}

	// Confirm no leftover temp files.
	matches, _ := filepath.Glob(filepath.Join(s.root, ".raido-tmp-*"))
	if len(matches) != 0 {
		t.Errorf("leftover temp files: %v", matches)
	}
}

func TestDirAndFileExists(t *testing.T) {
	s := tempCapsa(t)
	_ = s.Write("#daily/20260212/note.md", []byte("x"))
	if !s.DirExists("#daily/20260212") {
		t.Error("DirExists = false for existing dir")
	}
	if s.DirExists("#daily/29990101") {
		t.Error("DirExists = true for missing dir")
	}
	if !s.FileExists("#daily/20260212/note.md") {
		t.Error("FileExists = false for existing file")
	}
	if s.FileExists("#daily/20260212") {
		t.Error("FileExists = true for a directory")
	}
}

func TestNewFS_NonExistentDir(t *testing.T) {
	_, err := NewFS("/tmp/raido-does-not-exist-" + t.Name())
	if err == nil {
		t.Error("expected error for non-existent dir")
	}
}

func TestNewFS_FileNotDir(t *testing.T) {
	f, _ := os.CreateTemp("", "raido-test-*")
	_ = f.Close()
	defer os.Remove(f.Name())
	_, err := NewFS(f.Name())
	if err == nil {
		t.Error("expected error when root is a file")
	}
}
