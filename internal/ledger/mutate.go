package ledger

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/soltvedt/raido/internal/apperr"
)

// CommentTimeLayout is the timestamp format on mutator-appended comments.
const CommentTimeLayout = "2006-01-02 15:04"

// Add records nodeRef in the reference block and returns its task id.
// Idempotent: an existing reference to the exact same nodeRef returns its
// id without mutation. New tasks start in the backlog (no body entry).
func (d *Document) Add(nodeRef string) (string, error) {
	for _, ref := range d.Refs {
		if !ref.Opaque && ref.Target == nodeRef {
			return ref.ID, nil
		}
	}

	id := d.Prefix + strconv.Itoa(d.nextInteger())
	if d.refTarget(id) != "" {
		return "", fmt.Errorf("allocated id %q already defined: %w", id, apperr.ErrDuplicateID)
	}
	d.insertRef(RefLine{ID: id, Target: nodeRef})
	return id, nil
}

// nextInteger is one greater than the maximum integer suffix among ids
// sharing the document prefix, starting at 1.
func (d *Document) nextInteger() int {
	max := 0
	for _, ref := range d.Refs {
		if ref.Opaque || !strings.HasPrefix(ref.ID, d.Prefix) {
			continue
		}
		n, err := strconv.Atoi(strings.TrimPrefix(ref.ID, d.Prefix))
		if err == nil && n > max {
			max = n
		}
	}
	return max + 1
}

// insertRef places a new reference line after the last definition, before
// any trailing opaque blank lines. A document parsed without any
// horizontal rules cannot carry a reference block that survives a round
// trip, so it is promoted to the canonical metadata layout first.
func (d *Document) insertRef(ref RefLine) {
	if !d.hasMeta && !d.hasRefRule {
		d.hasMeta = true
		d.meta = []string{"PREFIX: " + d.Prefix}
		d.description = []string{""}
		if len(d.Body) == 0 {
			d.Body = []Node{{Text: ""}}
		}
		d.hasRefRule = true
	}
	at := len(d.Refs)
	for at > 0 && d.Refs[at-1].Opaque && strings.TrimSpace(d.Refs[at-1].Raw) == "" {
		at--
	}
	d.Refs = append(d.Refs[:at], append([]RefLine{ref}, d.Refs[at:]...)...)
}

// Take promotes a task into the body (or reopens it) and assigns ownership.
// agent may be empty, leaving the entry unowned. A supplied title on an
// already-titled entry is recorded as a comment rather than replacing it.
func (d *Document) Take(id, title, header, agent string, now time.Time) error {
	e := d.FindEntry(id)
	if e == nil && d.refTarget(id) == "" {
		return fmt.Errorf("task %q: %w", id, apperr.ErrNotFound)
	}
	if e != nil && e.Owner != "" {
		return fmt.Errorf("task %q is owned by @%s: %w", id, e.Owner, apperr.ErrAlreadyOwned)
	}

	// Resolve the placement target before mutating anything.
	headerAt := -1
	if header != "" {
		headerAt = d.findHeading(header)
		if headerAt == -1 {
			return fmt.Errorf("heading %q: %w", header, apperr.ErrHeaderNotFound)
		}
	}

	if e == nil {
		e = &Entry{ID: id, Title: title}
		if e.Title == "" {
			e.Title = d.refTarget(id)
		}
		if headerAt >= 0 {
			d.insertNodeAt(d.endOfSection(headerAt), Node{Entry: e})
		} else {
			d.insertNodeAt(d.beforeFirstHeading(), Node{Entry: e})
		}
	} else {
		if title != "" && e.Title != "" && title != e.Title {
			e.Comments = append(e.Comments, Comment{
				Timestamp: now.Format(CommentTimeLayout),
				Text:      title,
			})
		} else if title != "" && e.Title == "" {
			e.Title = title
		}
		if headerAt >= 0 {
			d.moveEntry(id, headerAt)
		}
	}

	e.Done = false
	e.Owner = agent
	return nil
}

// Comment appends a timestamped comment to a body entry. Backlog tasks
// cannot receive comments.
func (d *Document) Comment(id, text, gitHash string, now time.Time) error {
	e := d.FindEntry(id)
	if e == nil {
		return fmt.Errorf("task %q is not in the body: %w", id, apperr.ErrNotFound)
	}
	e.Comments = append(e.Comments, Comment{
		Timestamp: now.Format(CommentTimeLayout),
		Text:      text,
		Hash:      gitHash,
	})
	return nil
}

// Release clears ownership of the given tasks, optionally marking them
// done. All ids are validated before any mutation. force skips the
// ownership check and is only valid for a single id.
func (d *Document) Release(ids []string, done, force bool) error {
	if force && len(ids) != 1 {
		return fmt.Errorf("force release requires exactly one id, got %d", len(ids))
	}
	for _, id := range ids {
		e := d.FindEntry(id)
		if e == nil {
			return fmt.Errorf("task %q is not in the body: %w", id, apperr.ErrNotFound)
		}
		if e.Owner == "" && !force {
			return fmt.Errorf("task %q has no owner: %w", id, apperr.ErrNotOwned)
		}
	}
	for _, id := range ids {
		e := d.FindEntry(id)
		e.Owner = ""
		if done {
			e.Done = true
		}
	}
	return nil
}

// findHeading returns the body index of the heading whose text matches
// header case-insensitively, or -1.
func (d *Document) findHeading(header string) int {
	for i, n := range d.Body {
		if text, ok := headingText(n); ok && strings.EqualFold(text, header) {
			return i
		}
	}
	return -1
}

func headingText(n Node) (string, bool) {
	if n.Entry != nil || !strings.HasPrefix(n.Text, "#") {
		return "", false
	}
	return strings.TrimSpace(strings.TrimLeft(n.Text, "#")), true
}

// endOfSection returns the insertion index for appending under the heading
// at headerAt: before the next heading, or the end of the body.
func (d *Document) endOfSection(headerAt int) int {
	for i := headerAt + 1; i < len(d.Body); i++ {
		if _, ok := headingText(d.Body[i]); ok {
			return i
		}
	}
	return len(d.Body)
}

// beforeFirstHeading returns the default insertion index for new entries:
// immediately before the first heading, or the end of the body when the
// document has none.
func (d *Document) beforeFirstHeading() int {
	for i, n := range d.Body {
		if _, ok := headingText(n); ok {
			return i
		}
	}
	return len(d.Body)
}

func (d *Document) insertNodeAt(at int, n Node) {
	d.Body = append(d.Body[:at], append([]Node{n}, d.Body[at:]...)...)
}

// moveEntry relocates an existing body entry to the end of the section
// under the heading at headerAt.
func (d *Document) moveEntry(id string, headerAt int) {
	from := -1
	for i, n := range d.Body {
		if n.Entry != nil && n.Entry.ID == id {
			from = i
			break
		}
	}
	if from == -1 {
		return
	}
	node := d.Body[from]
	d.Body = append(d.Body[:from], d.Body[from+1:]...)
	if from < headerAt {
		headerAt--
	}
	d.insertNodeAt(d.endOfSection(headerAt), node)
}
