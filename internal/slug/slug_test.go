package slug

import "testing"

func TestSlugify(t *testing.T) {
	cases := []struct {
		in, want string
	}{
		{"Hello World", "hello-world"},
		{"Test@Note#123", "test-note-123"},
		{"  Multiple   Spaces  ", "multiple-spaces"},
		{"already-a-slug", "already-a-slug"},
		{"222714-some", "222714-some"},
		{"---", ""},
		{"", ""},
	}
	for _, c := range cases {
		if got := Slugify(c.in); got != c.want {
			t.Errorf("Slugify(%q) = %q, want %q", c.in, got, c.want)
		}
	}
}

func TestHashSourceStable(t *testing.T) {
	a := HashSource("https://example.com/book")
	b := HashSource("https://example.com/book")
	if a != b {
		t.Error("hash not deterministic")
	}
	if len(a) != 64 {
		t.Errorf("hash length = %d, want 64", len(a))
	}
	if Abbrev(a) != a[:AbbrevLen] {
		t.Errorf("Abbrev = %q", Abbrev(a))
	}
}

func TestAbbrevShortInput(t *testing.T) {
	if got := Abbrev("abc"); got != "abc" {
		t.Errorf("Abbrev(abc) = %q", got)
	}
}
