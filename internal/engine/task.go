package engine

import (
	"errors"
	"fmt"
	"strings"

	"github.com/soltvedt/raido/internal/apperr"
	"github.com/soltvedt/raido/internal/ledger"
)

// TaskInfo is a read-only summary of one ledger task.
type TaskInfo struct {
	ID     string
	Title  string
	Status ledger.Status
	Owner  string
	Target string
}

// LoadLedger parses the capsa's task ledger, returning a fresh default
// document when the file does not exist yet.
func (e *Engine) LoadLedger() (*ledger.Document, error) {
	data, err := e.store.Read(e.taskFile)
	if err != nil {
		if !e.store.FileExists(e.taskFile) {
			return ledger.New(), nil
		}
		return nil, err
	}
	return ledger.Parse(data)
}

// SaveLedger persists the document. The storage write is atomic, so a
// failed mutation never leaves a partial ledger on disk.
func (e *Engine) SaveLedger(d *ledger.Document) error {
	return e.store.Write(e.taskFile, d.Serialize())
}

// mutateLedger runs one read-modify-write cycle. The document is written
// only when fn succeeds.
func (e *Engine) mutateLedger(fn func(*ledger.Document) error) error {
	d, err := e.LoadLedger()
	if err != nil {
		return err
	}
	if err := fn(d); err != nil {
		return err
	}
	return e.SaveLedger(d)
}

// TaskAdd records a note reference in the ledger and returns its task id.
// The reference must be syntactically valid; it does not have to resolve
// to an existing note yet. Idempotent for an already-recorded reference.
func (e *Engine) TaskAdd(nodeRef string) (string, error) {
	if _, err := e.Resolve(nodeRef); errors.Is(err, apperr.ErrInvalidRef) {
		return "", err
	}
	var id string
	err := e.mutateLedger(func(d *ledger.Document) error {
		var addErr error
		id, addErr = d.Add(nodeRef)
		return addErr
	})
	return id, err
}

// TaskTake claims a task for the engine's agent identity.
func (e *Engine) TaskTake(id, title, header string) error {
	return e.mutateLedger(func(d *ledger.Document) error {
		return d.Take(id, title, header, e.agent, e.clock.Now())
	})
}

// TaskComment appends a timestamped comment to an in-progress task.
func (e *Engine) TaskComment(id, text, gitHash string) error {
	return e.mutateLedger(func(d *ledger.Document) error {
		return d.Comment(id, text, gitHash, e.clock.Now())
	})
}

// TaskRelease clears ownership of the given tasks, optionally marking
// them done.
func (e *Engine) TaskRelease(ids []string, done, force bool) error {
	return e.mutateLedger(func(d *ledger.Document) error {
		return d.Release(ids, done, force)
	})
}

// TaskList summarizes every known task in reference-block order.
func (e *Engine) TaskList() ([]TaskInfo, error) {
	d, err := e.LoadLedger()
	if err != nil {
		return nil, err
	}
	var out []TaskInfo
	for _, id := range d.TaskIDs() {
		info := TaskInfo{
			ID:     id,
			Status: d.StatusOf(id),
			Target: d.RefTarget(id),
		}
		if entry := d.FindEntry(id); entry != nil {
			info.Title = entry.Title
			info.Owner = entry.Owner
		}
		out = append(out, info)
	}
	return out, nil
}

// TaskShow returns one task's summary plus its comment log.
func (e *Engine) TaskShow(id string) (TaskInfo, []ledger.Comment, error) {
	d, err := e.LoadLedger()
	if err != nil {
		return TaskInfo{}, nil, err
	}
	if d.StatusOf(id) == ledger.StatusUnknown {
		return TaskInfo{}, nil, fmt.Errorf("task %q: %w", id, apperr.ErrNotFound)
	}
	info := TaskInfo{ID: id, Status: d.StatusOf(id), Target: d.RefTarget(id)}
	var comments []ledger.Comment
	if entry := d.FindEntry(id); entry != nil {
		info.Title = entry.Title
		info.Owner = entry.Owner
		comments = entry.Comments
	}
	return info, comments, nil
}

// TaskFind returns tasks whose title or reference target contains the
// query, case-insensitively.
func (e *Engine) TaskFind(query string) ([]TaskInfo, error) {
	all, err := e.TaskList()
	if err != nil {
		return nil, err
	}
	q := strings.ToLower(query)
	var out []TaskInfo
	for _, info := range all {
		if strings.Contains(strings.ToLower(info.Title), q) ||
			strings.Contains(strings.ToLower(info.Target), q) {
			out = append(out, info)
		}
	}
	return out, nil
}
