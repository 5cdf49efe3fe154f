// Package markdown provides the small set of Markdown inspections raido
// needs: reference definitions, inline links, frontmatter keys, and titles.
// It deliberately avoids a full CommonMark parser; note files are plain
// enough that line-oriented scanning is exact.
package markdown

import (
	"regexp"
	"strings"
)

var (
	// [id]: target
	refDefRe = regexp.MustCompile(`^\[([^\]]+)\]:\s*(\S+)\s*$`)
	// [text](target)
	linkRe = regexp.MustCompile(`\[([^\]]*)\]\(([^)]+)\)`)
	// - [text][id] list item reference
	listRefRe = regexp.MustCompile(`^\s*-\s*\[([^\]]*)\]\[([^\]]+)\]`)
)

// RefDef is a link reference definition line.
type RefDef struct {
	ID     string
	Target string
}

// Link is an inline Markdown link.
type Link struct {
	Text   string
	Target string
}

// ParseRefDef parses a single reference definition line, reporting ok=false
// when the line is not one.
func ParseRefDef(line string) (RefDef, bool) {
	m := refDefRe.FindStringSubmatch(line)
	if m == nil {
		return RefDef{}, false
	}
	return RefDef{ID: m[1], Target: m[2]}, true
}

// ExtractRefDefs returns all reference definitions in content, in order.
func ExtractRefDefs(content string) []RefDef {
	var out []RefDef
	for _, line := range strings.Split(content, "\n") {
		if def, ok := ParseRefDef(line); ok {
			out = append(out, def)
		}
	}
	return out
}

// RefDest finds the target for a reference id, case-insensitively per
// CommonMark reference matching. Returns "" when undefined.
func RefDest(content, id string) string {
	for _, def := range ExtractRefDefs(content) {
		if strings.EqualFold(def.ID, id) {
			return def.Target
		}
	}
	return ""
}

// Links returns all inline links in content, in order of appearance.
func Links(content string) []Link {
	var out []Link
	for _, m := range linkRe.FindAllStringSubmatch(content, -1) {
		out = append(out, Link{Text: m[1], Target: m[2]})
	}
	return out
}

// LineLinks returns the inline links found on a single line.
func LineLinks(line string) []Link {
	return Links(line)
}

// ParseListRef parses a `- [text][id]` list item, reporting ok=false when
// the line is not one.
func ParseListRef(line string) (text, id string, ok bool) {
	m := listRefRe.FindStringSubmatch(line)
	if m == nil {
		return "", "", false
	}
	return m[1], m[2], true
}

// IsHorizontalRule reports whether a line is a thematic break as raido
// ledgers use them: exactly "---" or "***" with optional trailing spaces.
func IsHorizontalRule(line string) bool {
	trimmed := strings.TrimRight(line, " \t")
	return trimmed == "---" || trimmed == "***"
}

// FrontmatterValue extracts the value of key from a leading YAML-style
// frontmatter block (--- ... ---). Returns "" when absent.
func FrontmatterValue(content, key string) string {
	lines := strings.Split(content, "\n")
	if len(lines) == 0 || strings.TrimRight(lines[0], " \t") != "---" {
		return ""
	}
	for _, line := range lines[1:] {
		if strings.TrimRight(line, " \t") == "---" {
			return ""
		}
		k, v, ok := strings.Cut(line, ":")
		if !ok {
			continue
		}
		if strings.TrimSpace(k) == key {
			return strings.TrimSpace(v)
		}
	}
	return ""
}

// Title returns the first H1 heading of content, or "" when none exists.
func Title(content string) string {
	for _, line := range strings.Split(content, "\n") {
		if strings.HasPrefix(line, "# ") {
			return strings.TrimSpace(strings.TrimPrefix(line, "# "))
		}
	}
	return ""
}

// Headings returns all heading texts at the given level (1 for H1, 2 for
// H2, ...), in document order.
func Headings(content string, level int) []string {
	prefix := strings.Repeat("#", level) + " "
	var out []string
	for _, line := range strings.Split(content, "\n") {
		if strings.HasPrefix(line, prefix) && !strings.HasPrefix(strings.TrimPrefix(line, prefix), "#") {
			out = append(out, strings.TrimSpace(strings.TrimPrefix(line, prefix)))
		}
	}
	return out
}
