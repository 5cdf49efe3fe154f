// Package storage defines the capsa file-system abstraction.
package storage

import "time"

// Recognized note extensions, in preference order. When the same stem
// exists with more than one extension the earlier one wins.
var Extensions = []string{".md", ".txt"}

// Entry is one note file in a directory listing, split into stem and
// extension. Path joining is always slash-separated.
type Entry struct {
	Stem string
	Ext  string
}

// Name returns the full filename for the entry.
func (e Entry) Name() string { return e.Stem + e.Ext }

// NoteMeta is a lightweight recursive-listing item used by the content
// index to detect changes.
type NoteMeta struct {
	Path      string
	Checksum  string
	UpdatedAt time.Time
}

// Provider is the interface for capsa file operations. Paths are relative
// to the capsa root and slash-separated.
type Provider interface {
	// ListEntries returns the immediate note files of dir, filtered to
	// recognized extensions, deduplicated by stem (extension preference
	// order), sorted lexicographically by stem.
	ListEntries(dir string) ([]Entry, error)
	// ListDirs returns the names of the immediate subdirectories of dir,
	// sorted lexicographically.
	ListDirs(dir string) ([]string, error)
	// List walks dir recursively and returns metadata for every note file.
	List(dir string) ([]NoteMeta, error)
	// Read returns the raw bytes of the file at path.
	Read(path string) ([]byte, error)
	// Write atomically writes content to path, creating parent directories.
	Write(path string, content []byte) error
	// Delete removes the file at path.
	Delete(path string) error
	// Move renames oldPath to newPath.
	Move(oldPath, newPath string) error
	// DirExists reports whether dir exists and is a directory.
	DirExists(dir string) bool
	// FileExists reports whether path exists and is a regular file.
	FileExists(path string) bool
}
