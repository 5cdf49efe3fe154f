// Package resolve turns short, ambiguous note references ("22",
// "20260212/some", "20260212143000") into filesystem paths inside a capsa.
// Parsing classifies the raw string into a query shape; the resolver then
// evaluates a fixed rule chain against the note tree.
package resolve

import (
	"regexp"
	"strings"

	"github.com/soltvedt/raido/internal/slug"
)

// Kind is the query shape of a parsed reference.
type Kind int

const (
	// KindDatePrefix is "YYYYMMDD/rest": an explicit day plus a nested match.
	KindDatePrefix Kind = iota
	// KindFullTimestamp is an exact 14-digit YYYYMMDDHHmmSS.
	KindFullTimestamp
	// KindTimePrefix is 1-6 leading digits matched against today's notes.
	KindTimePrefix
	// KindHybridTimestamp is exactly HHmmSS-title.
	KindHybridTimestamp
	// KindTitlePrefix is a slugified title prefix.
	KindTitlePrefix
	// KindLiteral is an opaque source string, constructed by callers that
	// hash sources into permanent note paths. ParseRef never produces it.
	KindLiteral
)

func (k Kind) String() string {
	switch k {
	case KindDatePrefix:
		return "date-prefix"
	case KindFullTimestamp:
		return "full-timestamp"
	case KindTimePrefix:
		return "time-prefix"
	case KindHybridTimestamp:
		return "hybrid-timestamp"
	case KindTitlePrefix:
		return "title-prefix"
	case KindLiteral:
		return "literal"
	}
	return "unknown"
}

// QueryShape is a classified reference. Exactly the fields relevant to the
// Kind are populated; Raw always holds the normalized input.
type QueryShape struct {
	Kind  Kind
	Date  string // YYYYMMDD
	Time  string // 1-6 digits, or HHmmSS for full/hybrid shapes
	Title string // slugified title prefix
	Rest  string // unparsed remainder of a date-prefix reference
	Raw   string
}

var hybridRe = regexp.MustCompile(`^(\d{6})-(.+)$`)

// ParseRef classifies raw into a query shape. It is total: every input maps
// to exactly one shape, falling through to a title prefix. Backslashes are
// normalized to forward slashes before any rule applies.
func ParseRef(raw string) QueryShape {
	norm := strings.ReplaceAll(raw, "\\", "/")

	// Rule 1: YYYYMMDD or YYYYMMDD/rest with a calendar-valid date.
	if date, rest, ok := splitDatePrefix(norm); ok {
		return QueryShape{Kind: KindDatePrefix, Date: date, Rest: rest, Raw: norm}
	}

	// Rule 2: exact YYYYMMDDHHmmSS.
	if len(norm) == 14 && allDigits(norm) && validDate(norm[:8]) && validTime(norm[8:]) {
		return QueryShape{Kind: KindFullTimestamp, Date: norm[:8], Time: norm[8:], Raw: norm}
	}

	// Rule 3: bare 1-6 digit time prefix.
	if n := len(norm); n >= 1 && n <= 6 && allDigits(norm) {
		return QueryShape{Kind: KindTimePrefix, Time: norm, Raw: norm}
	}

	// Rule 3b: HHmmSS-title.
	if m := hybridRe.FindStringSubmatch(norm); m != nil && validTime(m[1]) {
		return QueryShape{Kind: KindHybridTimestamp, Time: m[1], Title: slug.Slugify(m[2]), Raw: norm}
	}

	// Rule 4: everything else is a title prefix.
	return QueryShape{Kind: KindTitlePrefix, Title: slug.Slugify(norm), Raw: norm}
}

// splitDatePrefix recognizes "YYYYMMDD" and "YYYYMMDD/rest" forms.
func splitDatePrefix(s string) (date, rest string, ok bool) {
	if len(s) == 8 && allDigits(s) && validDate(s) {
		return s, "", true
	}
	if len(s) > 8 && s[8] == '/' && allDigits(s[:8]) && validDate(s[:8]) {
		return s[:8], s[9:], true
	}
	return "", "", false
}

func allDigits(s string) bool {
	if s == "" {
		return false
	}
	for i := 0; i < len(s); i++ {
		if s[i] < '0' || s[i] > '9' {
			return false
		}
	}
	return true
}

// validDate checks an 8-digit YYYYMMDD for calendar plausibility. Day
// validation is intentionally loose (1-31 for every month).
func validDate(s string) bool {
	if len(s) != 8 || !allDigits(s) {
		return false
	}
	year := atoi(s[:4])
	month := atoi(s[4:6])
	day := atoi(s[6:8])
	return year >= 1900 && year <= 2100 && month >= 1 && month <= 12 && day >= 1 && day <= 31
}

// validTime checks a 6-digit HHmmSS for clock validity.
func validTime(s string) bool {
	if len(s) != 6 || !allDigits(s) {
		return false
	}
	return atoi(s[:2]) <= 23 && atoi(s[2:4]) <= 59 && atoi(s[4:6]) <= 59
}

func atoi(s string) int {
	n := 0
	for i := 0; i < len(s); i++ {
		n = n*10 + int(s[i]-'0')
	}
	return n
}

// leadingDigits returns the run of digits at the start of s.
func leadingDigits(s string) string {
	i := 0
	for i < len(s) && s[i] >= '0' && s[i] <= '9' {
		i++
	}
	return s[:i]
}
