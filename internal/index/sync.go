package index

import (
	"log/slog"
	"path"
	"strings"
	"time"

	"github.com/soltvedt/raido/internal/markdown"
	"github.com/soltvedt/raido/internal/slug"
	"github.com/soltvedt/raido/internal/storage"
)

// Sync walks the capsa and brings the index up to date:
//   - new/changed files are parsed and upserted
//   - files removed from disk are deleted from the index
func Sync(db *DB, store storage.Provider, logger *slog.Logger) error {
	metas, err := store.List("")
	if err != nil {
		return err
	}

	checksums, err := db.AllChecksums()
	if err != nil {
		return err
	}

	tags := tagMap(store)

	disk := make(map[string]struct{}, len(metas))
	for _, m := range metas {
		disk[m.Path] = struct{}{}

		if checksums[m.Path] == m.Checksum {
			continue
		}

		data, err := store.Read(m.Path)
		if err != nil {
			logger.Warn("sync: read failed", slog.String("path", m.Path), slog.String("error", err.Error()))
			continue
		}
		if err := indexFile(db, m.Path, data, tags[m.Path]); err != nil {
			logger.Warn("sync: index failed", slog.String("path", m.Path), slog.String("error", err.Error()))
		} else {
			logger.Debug("sync: indexed", slog.String("path", m.Path))
		}
	}

	// Remove stale entries.
	for p := range checksums {
		if _, ok := disk[p]; !ok {
			if err := db.DeleteNote(p); err != nil {
				logger.Warn("sync: delete failed", slog.String("path", p), slog.String("error", err.Error()))
			} else {
				logger.Debug("sync: removed stale", slog.String("path", p))
			}
		}
	}

	return nil
}

// indexFile extracts title, body, and links from data and upserts the note.
func indexFile(db *DB, notePath string, data []byte, tags []string) error {
	body := string(data)
	var links []string
	for _, l := range markdown.Links(body) {
		links = append(links, path.Clean(strings.TrimPrefix(l.Target, "./")))
	}

	row := NoteRow{
		Path:      notePath,
		Title:     markdown.Title(body),
		Checksum:  slug.Checksum(data),
		Tags:      tags,
		UpdatedAt: time.Now(),
	}
	return db.UpsertNote(row, body, links)
}

// tagMap scans the tag files at the capsa root (stems starting with '#')
// and returns note path -> tag names. Errors are treated as "no tags";
// tagging is advisory metadata for search, not a source of truth.
func tagMap(store storage.Provider) map[string][]string {
	out := make(map[string][]string)
	entries, err := store.ListEntries("")
	if err != nil {
		return out
	}
	for _, e := range entries {
		if !strings.HasPrefix(e.Stem, "#") {
			continue
		}
		data, err := store.Read(e.Name())
		if err != nil {
			continue
		}
		tag := strings.TrimPrefix(e.Stem, "#")
		for _, link := range markdown.Links(string(data)) {
			target := path.Clean(strings.TrimPrefix(link.Target, "./"))
			out[target] = append(out[target], tag)
		}
	}
	return out
}
