package resolve

import (
	"errors"
	"testing"

	"github.com/soltvedt/raido/internal/apperr"
	"github.com/soltvedt/raido/internal/slug"
	"github.com/soltvedt/raido/internal/storage"
	"github.com/soltvedt/raido/internal/testutil"
)

const today = "20260212"

func newResolver(t *testing.T, files map[string]string) *Resolver {
	t.Helper()
	dir := testutil.TempCapsa(t, files)
	fs, err := storage.NewFS(dir)
	if err != nil {
		t.Fatalf("NewFS: %v", err)
	}
	return New(fs, DefaultContext(today))
}

func TestResolveTimePrefixUnique(t *testing.T) {
	// Scenario: "22" against a day holding one 22xxxx note.
	r := newResolver(t, map[string]string{
		"#daily/20260212/222714-some-task.md": "x",
	})
	out, err := r.Resolve("22")
	if err != nil {
		t.Fatalf("Resolve: %v", err)
	}
	p, ok := out.UniquePath()
	if !ok || p != "#daily/20260212/222714-some-task.md" {
		t.Errorf("outcome = %+v", out)
	}
}

func TestResolveTimePrefixAmbiguous(t *testing.T) {
	r := newResolver(t, map[string]string{
		"#daily/20260212/140000-coffee.md":  "c",
		"#daily/20260212/143000-meeting.md": "m",
	})
	out, err := r.Resolve("14")
	if err != nil {
		t.Fatalf("Resolve: %v", err)
	}
	if out.State() != Ambiguous {
		t.Fatalf("state = %v, want Ambiguous", out.State())
	}
	paths := out.Paths()
	if len(paths) != 2 || paths[0] != "#daily/20260212/140000-coffee.md" || paths[1] != "#daily/20260212/143000-meeting.md" {
		t.Errorf("paths = %v", paths)
	}
}

func TestResolveTimePrefixNoTextMatch(t *testing.T) {
	// A numeric prefix must not match a stem that continues with text.
	r := newResolver(t, map[string]string{
		"#daily/20260212/14th-street.md":   "s",
		"#daily/20260212/140000-coffee.md": "c",
	})
	out, err := r.Resolve("14")
	if err != nil {
		t.Fatalf("Resolve: %v", err)
	}
	p, ok := out.UniquePath()
	if !ok || p != "#daily/20260212/140000-coffee.md" {
		t.Errorf("outcome = %+v", out)
	}
}

func TestResolveDatePrefix(t *testing.T) {
	r := newResolver(t, map[string]string{
		"#daily/20260210/090000-standup.md":   "s",
		"#daily/20260210/100000-interview.md": "i",
		"#daily/20260212/090000-standup.md":   "today",
	})
	out, err := r.Resolve("20260210/09")
	if err != nil {
		t.Fatalf("Resolve: %v", err)
	}
	p, ok := out.UniquePath()
	if !ok || p != "#daily/20260210/090000-standup.md" {
		t.Errorf("outcome = %+v", out)
	}

	// Bare date lists the whole day.
	out, err = r.Resolve("20260210")
	if err != nil {
		t.Fatalf("Resolve: %v", err)
	}
	if len(out.Candidates) != 2 {
		t.Errorf("candidates = %v", out.Candidates)
	}
}

func TestResolveDatePrefixWithTitle(t *testing.T) {
	r := newResolver(t, map[string]string{
		"#daily/20260210/222714-some-task.md": "x",
		"#daily/20260210/090000-other.md":     "y",
	})
	out, err := r.Resolve("20260210/some")
	if err != nil {
		t.Fatalf("Resolve: %v", err)
	}
	p, ok := out.UniquePath()
	if !ok || p != "#daily/20260210/222714-some-task.md" {
		t.Errorf("outcome = %+v", out)
	}
}

func TestResolveDatePrefixTitleNeedsDashOrEnd(t *testing.T) {
	// Inside an explicit day a direct title match must end at a dash or
	// the end of the stem.
	r := newResolver(t, map[string]string{
		"#daily/20260210/something.md":  "x",
		"#daily/20260210/some-notes.md": "y",
	})
	out, err := r.Resolve("20260210/some")
	if err != nil {
		t.Fatalf("Resolve: %v", err)
	}
	p, ok := out.UniquePath()
	if !ok || p != "#daily/20260210/some-notes.md" {
		t.Errorf("outcome = %+v", out)
	}

	// After a leading timestamp run the title stays a plain prefix match.
	r = newResolver(t, map[string]string{
		"#daily/20260210/222714-something.md": "z",
	})
	out, err = r.Resolve("20260210/some")
	if err != nil {
		t.Fatalf("Resolve: %v", err)
	}
	if p, ok := out.UniquePath(); !ok || p != "#daily/20260210/222714-something.md" {
		t.Errorf("outcome = %+v", out)
	}
}

func TestResolveBareTitleStaysPlainPrefix(t *testing.T) {
	// A bare title search keeps plain prefix matching in today's day
	// directory, unlike the date-prefix form.
	r := newResolver(t, map[string]string{
		"#daily/20260212/something.md": "x",
	})
	out, err := r.Resolve("some")
	if err != nil {
		t.Fatalf("Resolve: %v", err)
	}
	if p, ok := out.UniquePath(); !ok || p != "#daily/20260212/something.md" {
		t.Errorf("outcome = %+v", out)
	}
}

func TestResolveHybridTimestamp(t *testing.T) {
	r := newResolver(t, map[string]string{
		"#daily/20260212/222714-some-task.md":  "x",
		"#daily/20260212/222714-other-one.md":  "y",
		"#daily/20260212/222715-some-thing.md": "z",
	})
	out, err := r.Resolve("222714-some")
	if err != nil {
		t.Fatalf("Resolve: %v", err)
	}
	p, ok := out.UniquePath()
	if !ok || p != "#daily/20260212/222714-some-task.md" {
		t.Errorf("outcome = %+v", out)
	}
}

func TestResolveFullTimestampDailyThenPermanent(t *testing.T) {
	r := newResolver(t, map[string]string{
		"#daily/20260212/143000-meeting.md": "m",
	})
	out, err := r.Resolve("20260212143000")
	if err != nil {
		t.Fatalf("Resolve: %v", err)
	}
	if p, ok := out.UniquePath(); !ok || p != "#daily/20260212/143000-meeting.md" {
		t.Errorf("outcome = %+v", out)
	}

	// Permanent fallback: nothing in the day dir, note/ holds the stem.
	r = newResolver(t, map[string]string{
		"note/20260101120000-archive.md": "a",
	})
	out, err = r.Resolve("20260101120000")
	if err != nil {
		t.Fatalf("Resolve: %v", err)
	}
	if p, ok := out.UniquePath(); !ok || p != "note/20260101120000-archive.md" {
		t.Errorf("outcome = %+v", out)
	}
}

func TestResolveFullTimestampHashSubdir(t *testing.T) {
	r := newResolver(t, map[string]string{
		"note/ab12cd34ef56/20250601080000-imported.md": "i",
	})
	out, err := r.Resolve("20250601080000")
	if err != nil {
		t.Fatalf("Resolve: %v", err)
	}
	if p, ok := out.UniquePath(); !ok || p != "note/ab12cd34ef56/20250601080000-imported.md" {
		t.Errorf("outcome = %+v", out)
	}
}

func TestResolveTitleLocations(t *testing.T) {
	// Daily-today wins over permanent; matching after the timestamp run.
	r := newResolver(t, map[string]string{
		"#daily/20260212/222714-roadmap.md": "d",
		"note/roadmap.md":                   "p",
	})
	out, err := r.Resolve("roadmap")
	if err != nil {
		t.Fatalf("Resolve: %v", err)
	}
	if p, ok := out.UniquePath(); !ok || p != "#daily/20260212/222714-roadmap.md" {
		t.Errorf("outcome = %+v", out)
	}

	// Permanent notes are searched when today has no match.
	r = newResolver(t, map[string]string{
		"#daily/20260212/090000-other.md": "o",
		"note/roadmap.md":                 "p",
	})
	out, err = r.Resolve("roadmap")
	if err != nil {
		t.Fatalf("Resolve: %v", err)
	}
	if p, ok := out.UniquePath(); !ok || p != "note/roadmap.md" {
		t.Errorf("outcome = %+v", out)
	}
}

func TestResolveTitleIndexFiles(t *testing.T) {
	r := newResolver(t, map[string]string{
		"#book.md": "# book\n\n- [project gutenberg](note/gutenberg.md)\n- [missing target](note/nope.md)\n",
		"note/gutenberg.md": "g",
	})
	out, err := r.Resolve("project")
	if err != nil {
		t.Fatalf("Resolve: %v", err)
	}
	if p, ok := out.UniquePath(); !ok || p != "note/gutenberg.md" {
		t.Errorf("outcome = %+v", out)
	}
}

func TestResolveTitleDailyIndex(t *testing.T) {
	// Links in the daily index carry capsa-root-relative targets, exactly
	// as the engine writes them.
	r := newResolver(t, map[string]string{
		"note/#daily.md": "# daily\n\n- [Quarterly planning](#daily/20260210/222714-quarterly-planning.md)\n",
		"#daily/20260210/222714-quarterly-planning.md": "q",
	})
	out, err := r.Resolve("quarterly")
	if err != nil {
		t.Fatalf("Resolve: %v", err)
	}
	if p, ok := out.UniquePath(); !ok || p != "#daily/20260210/222714-quarterly-planning.md" {
		t.Errorf("outcome = %+v", out)
	}
}

func TestResolveNotFound(t *testing.T) {
	r := newResolver(t, map[string]string{
		"#daily/20260212/090000-other.md": "o",
	})
	out, err := r.Resolve("zzz")
	if err != nil {
		t.Fatalf("Resolve: %v", err)
	}
	if out.State() != NotFound {
		t.Errorf("state = %v, want NotFound", out.State())
	}
}

func TestResolveInvalidSyntax(t *testing.T) {
	r := newResolver(t, nil)
	for _, in := range []string{
		"1234567",          // 7 digits: no rule
		"123456789",        // 9 digits
		"20261301",         // month 13
		"20260212146099",   // invalid clock
		"202602121430001",  // 15 digits
		"20261301/meeting", // invalid date before the slash
	} {
		if _, err := r.Resolve(in); !errors.Is(err, apperr.ErrInvalidRef) {
			t.Errorf("Resolve(%q) err = %v, want ErrInvalidRef", in, err)
		}
	}
}

func TestResolveLiteral(t *testing.T) {
	source := "https://example.com/book.epub"
	hash := slug.Abbrev(slug.HashSource(source))
	r := newResolver(t, map[string]string{
		"note/" + hash + "/my-book.md": "b",
	})
	out, err := r.ResolveShape(QueryShape{Kind: KindLiteral, Raw: source})
	if err != nil {
		t.Fatalf("ResolveShape: %v", err)
	}
	if p, ok := out.UniquePath(); !ok || p != "note/"+hash+"/my-book.md" {
		t.Errorf("outcome = %+v", out)
	}
}
