// Package ledger implements the task ledger: a semi-structured Markdown
// document tracking task entries and their note references. The parser
// round-trips everything it does not understand byte-for-byte; the mutator
// in mutate.go applies the fixed operation set on top of the model.
package ledger

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/soltvedt/raido/internal/apperr"
	"github.com/soltvedt/raido/internal/markdown"
)

// DefaultPrefix is used for generated task ids when the metadata block
// does not override it.
const DefaultPrefix = "task-"

// Comment is one timestamped note under a body entry. Raw holds the
// original line for lines the mutator did not produce; when Raw is empty
// the comment is serialized from its fields.
type Comment struct {
	Timestamp string // "YYYY-MM-DD HH:MM", may be empty on parsed input
	Text      string
	Hash      string // short git hash reference, optional
	Raw       string
}

// Entry is a task in the body block. An id present only in the reference
// block is a backlog task and has no Entry.
type Entry struct {
	ID       string
	Title    string
	Done     bool
	Owner    string // empty = unowned
	Comments []Comment
}

// Node is one body line-group: either a task entry or opaque text
// (headings, blanks, stray prose) preserved verbatim.
type Node struct {
	Entry *Entry
	Text  string // only when Entry == nil
}

// RefLine is one line of the reference block. Opaque lines keep their Raw
// text and are not indexed.
type RefLine struct {
	ID     string
	Target string
	Raw    string
	Opaque bool
}

// Document is a parsed task ledger. Meta and description lines are kept
// raw so serialization reproduces them exactly.
type Document struct {
	Prefix string

	meta        []string
	description []string
	Body        []Node
	Refs        []RefLine

	hasMeta    bool
	hasRefRule bool
}

var (
	entryRe   = regexp.MustCompile(`^- \[( |x)\] \[(.*)\]\[([^\]]+)\](?: @(\S+))?\s*$`)
	commentRe = regexp.MustCompile(`^\s+- (?:(\d{4}-\d{2}-\d{2} \d{2}:\d{2}) )?(.*?)(?: \[([0-9a-f]{7,40})\])?\s*$`)
	metaKeyRe = regexp.MustCompile(`^([A-Za-z][A-Za-z0-9_-]*):\s*(.*)$`)
)

// New returns an empty ledger with the default structure: a metadata block
// carrying the default prefix, an empty description, empty body, and an
// empty reference block.
func New() *Document {
	return &Document{
		Prefix:      DefaultPrefix,
		meta:        []string{"PREFIX: " + DefaultPrefix},
		description: []string{""},
		Body:        []Node{{Text: ""}},
		Refs:        []RefLine{{Raw: "", Opaque: true}},
		hasMeta:     true,
		hasRefRule:  true,
	}
}

// Parse reads a ledger document. Structure violations (an entry whose id
// has no reference definition, duplicate body entries) surface as
// apperr.ErrMalformedLedger; duplicate reference ids as
// apperr.ErrDuplicateID.
func Parse(text []byte) (*Document, error) {
	lines := strings.Split(strings.TrimSuffix(string(text), "\n"), "\n")
	if len(lines) == 1 && lines[0] == "" {
		lines = nil
	}

	var rules []int
	for i, line := range lines {
		if markdown.IsHorizontalRule(line) {
			rules = append(rules, i)
		}
	}

	d := &Document{Prefix: DefaultPrefix}
	var bodyLines, refLines []string

	switch {
	case len(rules) == 0:
		bodyLines = lines

	case rules[0] != 0:
		// No leading metadata delimiter: everything before the final rule
		// is body, everything after is the reference block.
		last := rules[len(rules)-1]
		bodyLines = lines[:last]
		refLines = lines[last+1:]
		d.hasRefRule = true

	default:
		d.hasMeta = true
		if len(rules) == 1 {
			d.meta = lines[1:]
			break
		}
		d.meta = lines[rules[0]+1 : rules[1]]
		if len(rules) == 2 {
			d.description = lines[rules[1]+1:]
			break
		}
		last := rules[len(rules)-1]
		d.description = lines[rules[1]+1 : rules[2]]
		if len(rules) >= 4 {
			bodyLines = lines[rules[2]+1 : last]
		}
		refLines = lines[last+1:]
		d.hasRefRule = true
	}

	if err := d.parseRefs(refLines); err != nil {
		return nil, err
	}
	if err := d.parseBody(bodyLines); err != nil {
		return nil, err
	}

	if v := strings.TrimSpace(metaValue(d.meta, "PREFIX")); v != "" {
		d.Prefix = v
	}
	return d, nil
}

func metaValue(meta []string, key string) string {
	for _, line := range meta {
		m := metaKeyRe.FindStringSubmatch(line)
		if m != nil && m[1] == key {
			return m[2]
		}
	}
	return ""
}

func (d *Document) parseRefs(lines []string) error {
	seen := make(map[string]bool)
	for _, line := range lines {
		def, ok := markdown.ParseRefDef(line)
		if !ok {
			d.Refs = append(d.Refs, RefLine{Raw: line, Opaque: true})
			continue
		}
		if seen[def.ID] {
			return fmt.Errorf("reference id %q defined twice: %w", def.ID, apperr.ErrDuplicateID)
		}
		seen[def.ID] = true
		d.Refs = append(d.Refs, RefLine{ID: def.ID, Target: def.Target})
	}
	return nil
}

func (d *Document) parseBody(lines []string) error {
	seen := make(map[string]bool)
	for i := 0; i < len(lines); i++ {
		line := lines[i]
		m := entryRe.FindStringSubmatch(line)
		if m == nil {
			d.Body = append(d.Body, Node{Text: line})
			continue
		}
		e := &Entry{
			ID:    m[3],
			Title: m[2],
			Done:  m[1] == "x",
			Owner: m[4],
		}
		if seen[e.ID] {
			return fmt.Errorf("task %q appears twice in body: %w", e.ID, apperr.ErrMalformedLedger)
		}
		seen[e.ID] = true
		if d.refTarget(e.ID) == "" {
			return fmt.Errorf("task %q has no reference definition: %w", e.ID, apperr.ErrMalformedLedger)
		}

		// Indented lines immediately following an entry are its comments.
		for i+1 < len(lines) && isIndented(lines[i+1]) {
			i++
			e.Comments = append(e.Comments, parseComment(lines[i]))
		}
		d.Body = append(d.Body, Node{Entry: e})
	}
	return nil
}

func isIndented(line string) bool {
	return strings.HasPrefix(line, "  ") || strings.HasPrefix(line, "\t")
}

func parseComment(line string) Comment {
	c := Comment{Raw: line}
	if m := commentRe.FindStringSubmatch(line); m != nil {
		c.Timestamp = m[1]
		c.Text = m[2]
		c.Hash = m[3]
	}
	return c
}

// Serialize writes the document back out. A document with a metadata block
// always gets the canonical four-rule layout; untouched description lines
// and opaque body/reference lines are reproduced verbatim.
func (d *Document) Serialize() []byte {
	var b strings.Builder
	writeLines := func(lines []string) {
		for _, line := range lines {
			b.WriteString(line)
			b.WriteByte('\n')
		}
	}

	if d.hasMeta {
		b.WriteString("---\n")
		writeLines(d.meta)
		b.WriteString("---\n")
		writeLines(d.description)
		b.WriteString("---\n")
	}
	for _, n := range d.Body {
		if n.Entry != nil {
			writeEntry(&b, n.Entry)
			continue
		}
		b.WriteString(n.Text)
		b.WriteByte('\n')
	}
	if d.hasMeta || d.hasRefRule {
		b.WriteString("---\n")
	}
	for _, ref := range d.Refs {
		if ref.Opaque {
			b.WriteString(ref.Raw)
		} else {
			fmt.Fprintf(&b, "[%s]: %s", ref.ID, ref.Target)
		}
		b.WriteByte('\n')
	}
	return []byte(b.String())
}

func writeEntry(b *strings.Builder, e *Entry) {
	mark := " "
	if e.Done {
		mark = "x"
	}
	fmt.Fprintf(b, "- [%s] [%s][%s]", mark, e.Title, e.ID)
	if e.Owner != "" {
		fmt.Fprintf(b, " @%s", e.Owner)
	}
	b.WriteByte('\n')
	for _, c := range e.Comments {
		if c.Raw != "" {
			b.WriteString(c.Raw)
			b.WriteByte('\n')
			continue
		}
		b.WriteString("  - ")
		if c.Timestamp != "" {
			b.WriteString(c.Timestamp)
			b.WriteByte(' ')
		}
		b.WriteString(c.Text)
		if c.Hash != "" {
			fmt.Fprintf(b, " [%s]", c.Hash)
		}
		b.WriteByte('\n')
	}
}

// refTarget returns the reference target for id, or "" when undefined.
func (d *Document) refTarget(id string) string {
	for _, ref := range d.Refs {
		if !ref.Opaque && strings.EqualFold(ref.ID, id) {
			return ref.Target
		}
	}
	return ""
}

// RefTarget is the exported form of refTarget.
func (d *Document) RefTarget(id string) string { return d.refTarget(id) }

// FindEntry returns the body entry for id, or nil when the task is not in
// the body (backlog or unknown).
func (d *Document) FindEntry(id string) *Entry {
	for _, n := range d.Body {
		if n.Entry != nil && n.Entry.ID == id {
			return n.Entry
		}
	}
	return nil
}

// Entries returns the body entries in document order.
func (d *Document) Entries() []*Entry {
	var out []*Entry
	for _, n := range d.Body {
		if n.Entry != nil {
			out = append(out, n.Entry)
		}
	}
	return out
}

// Status is the lifecycle state of a task id.
type Status string

const (
	StatusUnknown Status = "unknown"
	StatusBacklog Status = "backlog"
	StatusDoing   Status = "doing"
	StatusDone    Status = "done"
)

// StatusOf derives the task status: in body and done, in body and open,
// reference-only, or unknown.
func (d *Document) StatusOf(id string) Status {
	if e := d.FindEntry(id); e != nil {
		if e.Done {
			return StatusDone
		}
		return StatusDoing
	}
	if d.refTarget(id) != "" {
		return StatusBacklog
	}
	return StatusUnknown
}

// TaskIDs returns every known task id: reference block order, then any
// body-only ids (which parse rejects, so in practice reference order).
func (d *Document) TaskIDs() []string {
	var out []string
	for _, ref := range d.Refs {
		if !ref.Opaque {
			out = append(out, ref.ID)
		}
	}
	return out
}
