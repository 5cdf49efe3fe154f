// Package engine orchestrates note and task operations over one capsa:
// creating daily and permanent notes, tagging, reference resolution, and
// the read-modify-write cycle around the task ledger.
package engine

import (
	"fmt"
	"os"
	"path"
	"sort"
	"strings"
	"time"

	"github.com/soltvedt/raido/internal/apperr"
	"github.com/soltvedt/raido/internal/markdown"
	"github.com/soltvedt/raido/internal/resolve"
	"github.com/soltvedt/raido/internal/slug"
	"github.com/soltvedt/raido/internal/storage"
)

// Environment overrides.
const (
	// EnvTimestamp pins the clock to a fixed YYYYMMDDHHmmSS for
	// reproducible runs.
	EnvTimestamp = "RAIDO_TIMESTAMP"
	// EnvTaskFile overrides the ledger filename inside the capsa.
	EnvTaskFile = "RAIDO_TASKFILE"
)

// DefaultTaskFile is the ledger filename inside a capsa.
const DefaultTaskFile = "TASK.md"

// DailyRoot and NoteRoot fix the capsa layout.
const (
	DailyRoot = "#daily"
	NoteRoot  = "note"
	// DailyIndex is the running index of daily notes.
	DailyIndex = "note/#daily.md"
	// AssetRoot holds binary attachments referenced from notes.
	AssetRoot = "assets"
)

// Clock supplies the current time; swapped out in tests and by the
// timestamp override.
type Clock interface {
	Now() time.Time
}

type systemClock struct{}

func (systemClock) Now() time.Time { return time.Now() }

type fixedClock struct{ t time.Time }

func (c fixedClock) Now() time.Time { return c.t }

// NewClock returns the system clock, or a fixed clock when the timestamp
// override is set to a valid 14-digit stamp.
func NewClock() Clock {
	v := os.Getenv(EnvTimestamp)
	if v == "" {
		return systemClock{}
	}
	t, err := time.ParseInLocation("20060102150405", v, time.Local)
	if err != nil {
		return systemClock{}
	}
	return fixedClock{t: t}
}

// FixedClock pins the engine clock, for tests.
func FixedClock(t time.Time) Clock { return fixedClock{t: t} }

// Engine runs note and task operations against one capsa.
type Engine struct {
	store    storage.Provider
	clock    Clock
	agent    string
	taskFile string
}

// New builds an Engine. agent may be empty (no identity). The ledger
// filename comes from the environment override or the default.
func New(store storage.Provider, clock Clock, agent string) *Engine {
	taskFile := os.Getenv(EnvTaskFile)
	if taskFile == "" {
		taskFile = DefaultTaskFile
	}
	return &Engine{store: store, clock: clock, agent: agent, taskFile: taskFile}
}

// Agent returns the acting agent identity, empty when unset.
func (e *Engine) Agent() string { return e.agent }

func (e *Engine) dateTime() (date, clock string) {
	now := e.clock.Now()
	return now.Format("20060102"), now.Format("150405")
}

func (e *Engine) resolver() *resolve.Resolver {
	date, _ := e.dateTime()
	return resolve.New(e.store, resolve.DefaultContext(date))
}

// Resolve runs the resolution pipeline for a raw reference.
func (e *Engine) Resolve(raw string) (resolve.Outcome, error) {
	return e.resolver().Resolve(raw)
}

// resolveUnique resolves raw and requires exactly one match.
func (e *Engine) resolveUnique(raw string) (string, error) {
	out, err := e.Resolve(raw)
	if err != nil {
		return "", err
	}
	switch out.State() {
	case resolve.NotFound:
		return "", fmt.Errorf("no note matches %q: %w", raw, apperr.ErrNotFound)
	case resolve.Ambiguous:
		return "", fmt.Errorf("%q matches %s: %w", raw, strings.Join(out.Paths(), ", "), apperr.ErrAmbiguous)
	}
	p, _ := out.UniquePath()
	return p, nil
}

// ReadNote resolves raw to a unique note and returns its path and content.
func (e *Engine) ReadNote(raw string) (string, []byte, error) {
	p, err := e.resolveUnique(raw)
	if err != nil {
		return "", nil, err
	}
	data, err := e.store.Read(p)
	if err != nil {
		return "", nil, err
	}
	return p, data, nil
}

// CreateDailyNote writes a timestamped note under today's day directory
// and records it in the daily index. Returns the note path.
func (e *Engine) CreateDailyNote(title, content string) (string, error) {
	date, clock := e.dateTime()
	stem := clock
	if s := slug.Slugify(title); s != "" {
		stem += "-" + s
	}
	p := path.Join(DailyRoot, date, stem+".md")
	if e.store.FileExists(p) {
		return "", fmt.Errorf("note %s: %w", p, apperr.ErrAlreadyExists)
	}
	if err := e.store.Write(p, noteBody(title, content)); err != nil {
		return "", err
	}
	label := title
	if label == "" {
		label = stem
	}
	if err := e.appendIndexLink(DailyIndex, "# daily\n", label, p); err != nil {
		return "", err
	}
	return p, nil
}

// CreatePermanentNote writes a note under the permanent root. When source
// is given the note lives in a hash subdirectory alongside a .source file
// recording the origin string.
func (e *Engine) CreatePermanentNote(title, source, content string) (string, error) {
	s := slug.Slugify(title)
	if s == "" {
		return "", fmt.Errorf("permanent note needs a title: %w", apperr.ErrInvalidRef)
	}
	dir := NoteRoot
	if source != "" {
		dir = path.Join(NoteRoot, slug.Abbrev(slug.HashSource(source)))
	}
	p := path.Join(dir, s+".md")
	if e.store.FileExists(p) {
		return "", fmt.Errorf("note %s: %w", p, apperr.ErrAlreadyExists)
	}
	if err := e.store.Write(p, noteBody(title, content)); err != nil {
		return "", err
	}
	if source != "" {
		if err := e.store.Write(path.Join(dir, ".source"), []byte(source+"\n")); err != nil {
			return "", err
		}
	}
	return p, nil
}

func noteBody(title, content string) []byte {
	var b strings.Builder
	if title != "" {
		b.WriteString("# ")
		b.WriteString(title)
		b.WriteString("\n\n")
	}
	b.WriteString(content)
	if content != "" && !strings.HasSuffix(content, "\n") {
		b.WriteByte('\n')
	}
	return []byte(b.String())
}

// appendIndexLink adds "- [label](target)" to an index file, creating it
// with the given header on first use. Adding an already-linked target is a
// no-op.
func (e *Engine) appendIndexLink(file, header, label, target string) error {
	var content string
	if data, err := e.store.Read(file); err == nil {
		content = string(data)
	} else {
		content = header + "\n"
	}
	for _, link := range markdown.Links(content) {
		if link.Target == target {
			return nil
		}
	}
	if !strings.HasSuffix(content, "\n") {
		content += "\n"
	}
	content += fmt.Sprintf("- [%s](%s)\n", label, target)
	return e.store.Write(file, []byte(content))
}

// AttachAsset stores raw attachment bytes under the asset root and returns
// the capsa-relative path. Fails when the name is already taken.
func (e *Engine) AttachAsset(name string, data []byte) (string, error) {
	p := path.Join(AssetRoot, name)
	if e.store.FileExists(p) {
		return "", fmt.Errorf("asset %s: %w", p, apperr.ErrAlreadyExists)
	}
	if err := e.store.Write(p, data); err != nil {
		return "", err
	}
	return p, nil
}

// tagFile maps a tag name to its index file at the capsa root.
func tagFile(tag string) string {
	return "#" + slug.Slugify(tag) + ".md"
}

// TagAdd links the notes matching raw into a tag file. Ambiguity fails
// unless force is set, in which case every candidate is tagged (tagging is
// idempotent per path, so batch application is safe).
func (e *Engine) TagAdd(raw, tag string, force bool) ([]string, error) {
	out, err := e.Resolve(raw)
	if err != nil {
		return nil, err
	}
	if out.State() == resolve.NotFound {
		return nil, fmt.Errorf("no note matches %q: %w", raw, apperr.ErrNotFound)
	}
	if out.State() == resolve.Ambiguous && !force {
		return nil, fmt.Errorf("%q matches %s: %w", raw, strings.Join(out.Paths(), ", "), apperr.ErrAmbiguous)
	}
	paths := out.Paths()
	file := tagFile(tag)
	for _, p := range paths {
		label := strings.TrimSuffix(path.Base(p), path.Ext(p))
		if err := e.appendIndexLink(file, "# "+slug.Slugify(tag)+"\n", label, p); err != nil {
			return nil, err
		}
	}
	return paths, nil
}

// TagRemove drops a note's link from a tag file, deleting the file when no
// links remain. Requires a unique resolution.
func (e *Engine) TagRemove(raw, tag string) error {
	p, err := e.resolveUnique(raw)
	if err != nil {
		return err
	}
	file := tagFile(tag)
	data, err := e.store.Read(file)
	if err != nil {
		return fmt.Errorf("tag %q: %w", tag, apperr.ErrNotFound)
	}

	var kept []string
	removed := false
	links := 0
	for _, line := range strings.Split(strings.TrimSuffix(string(data), "\n"), "\n") {
		lineLinks := markdown.Links(line)
		if len(lineLinks) > 0 && lineLinks[0].Target == p {
			removed = true
			continue
		}
		if len(lineLinks) > 0 {
			links++
		}
		kept = append(kept, line)
	}
	if !removed {
		return fmt.Errorf("note %s is not tagged %q: %w", p, tag, apperr.ErrNotFound)
	}
	if links == 0 {
		return e.store.Delete(file)
	}
	return e.store.Write(file, []byte(strings.Join(kept, "\n")+"\n"))
}

// Tags returns the tag names whose files link the note matching raw.
func (e *Engine) Tags(raw string) ([]string, error) {
	p, err := e.resolveUnique(raw)
	if err != nil {
		return nil, err
	}
	entries, err := e.store.ListEntries("")
	if err != nil {
		return nil, err
	}
	var tags []string
	for _, entry := range entries {
		if !strings.HasPrefix(entry.Stem, "#") {
			continue
		}
		data, err := e.store.Read(entry.Name())
		if err != nil {
			return nil, err
		}
		for _, link := range markdown.Links(string(data)) {
			if link.Target == p {
				tags = append(tags, strings.TrimPrefix(entry.Stem, "#"))
				break
			}
		}
	}
	sort.Strings(tags)
	return tags, nil
}

// AllTags lists every tag file name at the capsa root.
func (e *Engine) AllTags() ([]string, error) {
	entries, err := e.store.ListEntries("")
	if err != nil {
		return nil, err
	}
	var tags []string
	for _, entry := range entries {
		if strings.HasPrefix(entry.Stem, "#") {
			tags = append(tags, strings.TrimPrefix(entry.Stem, "#"))
		}
	}
	return tags, nil
}
