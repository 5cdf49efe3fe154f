package ledger

import (
	"errors"
	"testing"

	"github.com/soltvedt/raido/internal/apperr"
)

const sampleLedger = `---
PREFIX: task-
---

Project tasks for the importer.

---

## Doing

- [ ] [fix login bug][task-1] @agent1
  - 2026-02-10 09:15 reproduced locally
- [x] [write changelog][task-2]

## Later

---

[task-1]: 222714
[task-2]: 20260210/changelog
[task-3]: 143022
`

func TestParseBlocks(t *testing.T) {
	d, err := Parse([]byte(sampleLedger))
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	if d.Prefix != "task-" {
		t.Errorf("Prefix = %q", d.Prefix)
	}
	entries := d.Entries()
	if len(entries) != 2 {
		t.Fatalf("entries = %d", len(entries))
	}
	e := entries[0]
	if e.ID != "task-1" || e.Title != "fix login bug" || e.Done || e.Owner != "agent1" {
		t.Errorf("entry = %+v", e)
	}
	if len(e.Comments) != 1 || e.Comments[0].Timestamp != "2026-02-10 09:15" || e.Comments[0].Text != "reproduced locally" {
		t.Errorf("comments = %+v", e.Comments)
	}
	if !entries[1].Done {
		t.Error("task-2 should be done")
	}
	if got := d.RefTarget("task-3"); got != "143022" {
		t.Errorf("RefTarget = %q", got)
	}
}

func TestParseStatuses(t *testing.T) {
	d, err := Parse([]byte(sampleLedger))
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	cases := map[string]Status{
		"task-1": StatusDoing,
		"task-2": StatusDone,
		"task-3": StatusBacklog,
		"task-9": StatusUnknown,
	}
	for id, want := range cases {
		if got := d.StatusOf(id); got != want {
			t.Errorf("StatusOf(%s) = %v, want %v", id, got, want)
		}
	}
}

func TestRoundTrip(t *testing.T) {
	d, err := Parse([]byte(sampleLedger))
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	out := d.Serialize()
	d2, err := Parse(out)
	if err != nil {
		t.Fatalf("reparse: %v", err)
	}
	if string(d2.Serialize()) != string(out) {
		t.Errorf("serialize not stable:\n%s\nvs\n%s", out, d2.Serialize())
	}
	if len(d2.Entries()) != 2 || len(d2.TaskIDs()) != 3 {
		t.Errorf("reparse lost structure: %+v", d2)
	}
}

func TestRoundTripPreservesDescription(t *testing.T) {
	d, err := Parse([]byte(sampleLedger))
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	out := string(d.Serialize())
	if out != sampleLedger {
		t.Errorf("byte round-trip changed the document:\n%q\nvs\n%q", sampleLedger, out)
	}
}

func TestParseNoMetaBlock(t *testing.T) {
	text := "- [ ] [thing][task-1]\n\n---\n\n[task-1]: 140000\n"
	d, err := Parse([]byte(text))
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	if d.Prefix != DefaultPrefix {
		t.Errorf("Prefix = %q", d.Prefix)
	}
	if len(d.Entries()) != 1 {
		t.Errorf("entries = %d", len(d.Entries()))
	}
}

func TestParseCustomPrefix(t *testing.T) {
	text := "---\nPREFIX: bug-\n---\n\n---\n\n---\n\n[bug-7]: 140000\n"
	d, err := Parse([]byte(text))
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	if d.Prefix != "bug-" {
		t.Errorf("Prefix = %q", d.Prefix)
	}
}

func TestParseEntryWithoutRefDef(t *testing.T) {
	text := "---\n---\n\n---\n- [ ] [ghost][task-1]\n---\n"
	_, err := Parse([]byte(text))
	if !errors.Is(err, apperr.ErrMalformedLedger) {
		t.Errorf("err = %v, want ErrMalformedLedger", err)
	}
}

func TestParseDuplicateBodyEntry(t *testing.T) {
	text := "---\n---\n\n---\n- [ ] [a][task-1]\n- [ ] [b][task-1]\n---\n[task-1]: 140000\n"
	_, err := Parse([]byte(text))
	if !errors.Is(err, apperr.ErrMalformedLedger) {
		t.Errorf("err = %v, want ErrMalformedLedger", err)
	}
}

func TestParseDuplicateRefID(t *testing.T) {
	text := "---\n---\n\n---\n\n---\n[task-1]: a\n[task-1]: b\n"
	_, err := Parse([]byte(text))
	if !errors.Is(err, apperr.ErrDuplicateID) {
		t.Errorf("err = %v, want ErrDuplicateID", err)
	}
}

func TestParseOpaqueRefLinesPreserved(t *testing.T) {
	text := "---\n---\n\n---\n\n---\nsome stray note\n[task-1]: 140000\n"
	d, err := Parse([]byte(text))
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	out := string(d.Serialize())
	if out != text {
		t.Errorf("opaque ref line lost:\n%q\nvs\n%q", text, out)
	}
}

func TestNewDefaultDocument(t *testing.T) {
	d := New()
	want := "---\nPREFIX: task-\n---\n\n---\n\n---\n\n"
	if got := string(d.Serialize()); got != want {
		t.Errorf("default doc = %q, want %q", got, want)
	}
	// The default document must reparse to itself.
	d2, err := Parse(d.Serialize())
	if err != nil {
		t.Fatalf("reparse: %v", err)
	}
	if string(d2.Serialize()) != want {
		t.Errorf("default doc not stable: %q", d2.Serialize())
	}
}
