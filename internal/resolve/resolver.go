package resolve

import (
	"fmt"
	"path"
	"strings"

	"github.com/soltvedt/raido/internal/apperr"
	"github.com/soltvedt/raido/internal/markdown"
	"github.com/soltvedt/raido/internal/slug"
	"github.com/soltvedt/raido/internal/storage"
)

// Walker is the read-only view of a capsa the resolver needs.
// *storage.FS satisfies it.
type Walker interface {
	ListEntries(dir string) ([]storage.Entry, error)
	ListDirs(dir string) ([]string, error)
	Read(path string) ([]byte, error)
	FileExists(path string) bool
	DirExists(dir string) bool
}

// Context fixes the directory layout and the current day for one
// resolution call.
type Context struct {
	// DailyRoot holds per-day subdirectories of timestamped notes.
	DailyRoot string
	// NoteRoot holds permanent notes and the daily index file.
	NoteRoot string
	// Today is the current date as YYYYMMDD.
	Today string
}

// DefaultContext is the standard capsa layout for the given day.
func DefaultContext(today string) Context {
	return Context{DailyRoot: "#daily", NoteRoot: "note", Today: today}
}

// Candidate is one matched path plus the rule that produced it. Paths are
// slash-separated and relative to the capsa root.
type Candidate struct {
	Path string
	Rule string
}

// State of a resolution outcome.
type State int

const (
	NotFound State = iota
	Unique
	Ambiguous
)

// Outcome is the result of one resolution pass. Candidate order is rule
// order, then lexicographic directory order within a rule.
type Outcome struct {
	Candidates []Candidate
}

// State classifies the outcome by candidate count.
func (o Outcome) State() State {
	switch len(o.Candidates) {
	case 0:
		return NotFound
	case 1:
		return Unique
	default:
		return Ambiguous
	}
}

// UniquePath returns the single resolved path, or ok=false when the outcome
// is not unique.
func (o Outcome) UniquePath() (string, bool) {
	if len(o.Candidates) == 1 {
		return o.Candidates[0].Path, true
	}
	return "", false
}

// Paths returns every candidate path in order.
func (o Outcome) Paths() []string {
	out := make([]string, len(o.Candidates))
	for i, c := range o.Candidates {
		out[i] = c.Path
	}
	return out
}

// Resolver evaluates the rule chain for one capsa.
type Resolver struct {
	w   Walker
	ctx Context
}

// New builds a Resolver over a capsa walker.
func New(w Walker, ctx Context) *Resolver {
	return &Resolver{w: w, ctx: ctx}
}

// Resolve parses raw and evaluates the rule chain. Zero matches is the
// normal NotFound outcome, not an error; the only error is
// apperr.ErrInvalidRef for numeric references that cannot satisfy any rule.
func (r *Resolver) Resolve(raw string) (Outcome, error) {
	norm := strings.ReplaceAll(raw, "\\", "/")
	if err := checkSyntax(norm); err != nil {
		return Outcome{}, err
	}
	return r.ResolveShape(ParseRef(norm))
}

// checkSyntax rejects all-digit references that no rule can match:
// 7-13 digits, more than 14 digits, or 8/14 digits with invalid
// calendar or clock components.
func checkSyntax(norm string) error {
	head, _, _ := strings.Cut(norm, "/")
	if !allDigits(head) {
		return nil
	}
	switch n := len(head); {
	case n <= 6:
		return nil
	case n == 8:
		if !validDate(head) {
			return fmt.Errorf("invalid date %q: %w", head, apperr.ErrInvalidRef)
		}
		return nil
	case n == 14 && head == norm:
		if !validDate(head[:8]) || !validTime(head[8:]) {
			return fmt.Errorf("invalid timestamp %q: %w", head, apperr.ErrInvalidRef)
		}
		return nil
	default:
		return fmt.Errorf("numeric reference %q matches no rule: %w", norm, apperr.ErrInvalidRef)
	}
}

// ResolveShape evaluates an already-parsed shape.
func (r *Resolver) ResolveShape(q QueryShape) (Outcome, error) {
	switch q.Kind {
	case KindDatePrefix:
		return r.resolveInDateDir(q.Date, q.Rest, true)
	case KindFullTimestamp:
		return r.resolveFullTimestamp(q)
	case KindTimePrefix:
		return r.resolveInDateDir(r.ctx.Today, q.Time, true)
	case KindHybridTimestamp:
		return r.resolveInDateDir(r.ctx.Today, q.Raw, true)
	case KindTitlePrefix:
		return r.resolveTitle(q.Title)
	case KindLiteral:
		return r.resolveLiteral(q.Raw)
	}
	return Outcome{}, fmt.Errorf("unknown query shape %v: %w", q.Kind, apperr.ErrInvalidRef)
}

// resolveInDateDir matches rest against the stems of one day directory.
// rest may itself be a time prefix, a hybrid timestamp, or a title prefix.
// strictTitle requires a direct title match to end at a dash or the end of
// the stem; bare title searches pass false and keep plain prefix matching.
func (r *Resolver) resolveInDateDir(date, rest string, strictTitle bool) (Outcome, error) {
	dir := path.Join(r.ctx.DailyRoot, date)
	if !r.w.DirExists(dir) {
		return Outcome{}, nil
	}
	entries, err := r.w.ListEntries(dir)
	if err != nil {
		return Outcome{}, err
	}

	digits := leadingDigits(rest)
	var title string
	switch {
	case rest == "" || digits == rest:
		// bare time prefix (or list-everything when rest is empty)
	case len(digits) == 6 && len(rest) > 6 && rest[6] == '-':
		title = slug.Slugify(rest[7:])
	default:
		digits = ""
		title = slug.Slugify(rest)
	}

	var out Outcome
	for _, e := range entries {
		if matchStem(e.Stem, digits, title, strictTitle) {
			out.Candidates = append(out.Candidates, Candidate{
				Path: path.Join(dir, e.Name()),
				Rule: "date-dir",
			})
		}
	}
	return out, nil
}

// matchStem implements the day-directory matching rules.
//
// Numeric-only query: the stem must start with the digits and the next
// stem character must be a digit, a dash, or absent, so "14" matches
// "140000-coffee" but not "14th-street".
//
// Hybrid query: the stem's leading digit run must equal the digits exactly,
// followed by a dash and a title-prefix match.
//
// Title query: the title must prefix-match the stem directly, or
// prefix-match what follows a leading "digits-" run, so "some" matches
// both "some-task" and "222714-some-task". When strictTitle is set, a
// direct match must end at a dash or the end of the stem, so
// "20260212/some" does not resolve to "something" while a bare "some"
// still does.
func matchStem(stem, digits, title string, strictTitle bool) bool {
	switch {
	case digits != "" && title != "": // hybrid
		if leadingDigits(stem) != digits {
			return false
		}
		rest := stem[len(digits):]
		return strings.HasPrefix(rest, "-") && strings.HasPrefix(rest[1:], title)

	case digits != "": // numeric prefix
		if !strings.HasPrefix(stem, digits) {
			return false
		}
		if len(stem) == len(digits) {
			return true
		}
		next := stem[len(digits)]
		return next == '-' || (next >= '0' && next <= '9')

	case title != "": // title prefix
		if strings.HasPrefix(stem, title) {
			rest := stem[len(title):]
			if !strictTitle || rest == "" || rest[0] == '-' {
				return true
			}
		}
		run := leadingDigits(stem)
		if run == "" || len(stem) <= len(run) || stem[len(run)] != '-' {
			return false
		}
		return strings.HasPrefix(stem[len(run)+1:], title)

	default: // empty rest: every entry of the day
		return true
	}
}

// resolveFullTimestamp looks in the day directory first, then falls back to
// permanent notes whose stems start with the full 14-digit string (top
// level, then each hash subdirectory).
func (r *Resolver) resolveFullTimestamp(q QueryShape) (Outcome, error) {
	out, err := r.resolveInDateDir(q.Date, q.Time, true)
	if err != nil || len(out.Candidates) > 0 {
		return out, err
	}

	full := q.Date + q.Time
	match := func(dir string) error {
		entries, err := r.w.ListEntries(dir)
		if err != nil {
			return err
		}
		for _, e := range entries {
			if strings.HasPrefix(e.Stem, full) {
				out.Candidates = append(out.Candidates, Candidate{
					Path: path.Join(dir, e.Name()),
					Rule: "full-timestamp",
				})
			}
		}
		return nil
	}

	if r.w.DirExists(r.ctx.NoteRoot) {
		if err := match(r.ctx.NoteRoot); err != nil {
			return Outcome{}, err
		}
		dirs, err := r.w.ListDirs(r.ctx.NoteRoot)
		if err != nil {
			return Outcome{}, err
		}
		for _, d := range dirs {
			if err := match(path.Join(r.ctx.NoteRoot, d)); err != nil {
				return Outcome{}, err
			}
		}
	}
	return out, nil
}

// resolveTitle searches the three title locations in order: today's day
// directory, the permanent note root, then the index files. The first
// location with any match is authoritative; candidates are never merged
// across locations.
func (r *Resolver) resolveTitle(title string) (Outcome, error) {
	out, err := r.resolveInDateDir(r.ctx.Today, title, false)
	if err != nil || len(out.Candidates) > 0 {
		return out, err
	}

	if r.w.DirExists(r.ctx.NoteRoot) {
		entries, err := r.w.ListEntries(r.ctx.NoteRoot)
		if err != nil {
			return Outcome{}, err
		}
		for _, e := range entries {
			if strings.HasPrefix(e.Stem, title) {
				out.Candidates = append(out.Candidates, Candidate{
					Path: path.Join(r.ctx.NoteRoot, e.Name()),
					Rule: "title-note",
				})
			}
		}
		if len(out.Candidates) > 0 {
			return out, nil
		}
	}

	return r.resolveInIndexFiles(title)
}

// resolveInIndexFiles scans tag files at the capsa root and index files in
// the note root (stems starting with '#') for markdown links whose display
// text prefix-matches the title and whose target exists.
func (r *Resolver) resolveInIndexFiles(title string) (Outcome, error) {
	var out Outcome
	seen := make(map[string]bool)

	scan := func(dir string) error {
		entries, err := r.w.ListEntries(dir)
		if err != nil {
			return err
		}
		for _, e := range entries {
			if !strings.HasPrefix(e.Stem, "#") {
				continue
			}
			data, err := r.w.Read(path.Join(dir, e.Name()))
			if err != nil {
				return err
			}
			for _, link := range markdown.Links(string(data)) {
				if !strings.HasPrefix(slug.Slugify(link.Text), title) {
					continue
				}
				target := path.Clean(strings.TrimPrefix(link.Target, "./"))
				if seen[target] || !r.w.FileExists(target) {
					continue
				}
				seen[target] = true
				out.Candidates = append(out.Candidates, Candidate{
					Path: target,
					Rule: "title-index",
				})
			}
		}
		return nil
	}

	if err := scan(""); err != nil {
		return Outcome{}, err
	}
	if r.w.DirExists(r.ctx.NoteRoot) {
		if err := scan(r.ctx.NoteRoot); err != nil {
			return Outcome{}, err
		}
	}
	return out, nil
}

// resolveLiteral treats raw as an opaque source string: its permanent note
// lives under a hash subdirectory of the note root.
func (r *Resolver) resolveLiteral(raw string) (Outcome, error) {
	dir := path.Join(r.ctx.NoteRoot, slug.Abbrev(slug.HashSource(raw)))
	if !r.w.DirExists(dir) {
		return Outcome{}, nil
	}
	entries, err := r.w.ListEntries(dir)
	if err != nil {
		return Outcome{}, err
	}
	var out Outcome
	for _, e := range entries {
		out.Candidates = append(out.Candidates, Candidate{
			Path: path.Join(dir, e.Name()),
			Rule: "literal",
		})
	}
	return out, nil
}
