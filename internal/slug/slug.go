// Package slug turns arbitrary text into filesystem-safe tokens: lowercase
// dash-separated slugs for filenames and abbreviated SHA-256 digests for
// source identifiers.
package slug

import (
	"crypto/sha256"
	"encoding/hex"
	"strings"
	"unicode"
)

// AbbrevLen is the length of an abbreviated source hash. Git uses 7 hex
// chars for SHA-1; for SHA-256 we use 12.
const AbbrevLen = 12

// Slugify converts title text to a lowercase ascii-ish slug. Runs of
// non-alphanumeric characters collapse to a single dash; leading and
// trailing dashes are stripped.
func Slugify(title string) string {
	var b strings.Builder
	b.Grow(len(title))
	prevDash := false
	for _, r := range strings.ToLower(title) {
		if unicode.IsLetter(r) || unicode.IsDigit(r) {
			b.WriteRune(r)
			prevDash = false
		} else if !prevDash && b.Len() > 0 {
			b.WriteByte('-')
			prevDash = true
		}
	}
	return strings.Trim(b.String(), "-")
}

// HashSource returns the full hex SHA-256 digest of a source string.
func HashSource(source string) string {
	h := sha256.Sum256([]byte(source))
	return hex.EncodeToString(h[:])
}

// Abbrev shortens a full hash to AbbrevLen characters.
func Abbrev(full string) string {
	if len(full) <= AbbrevLen {
		return full
	}
	return full[:AbbrevLen]
}

// Checksum returns the hex SHA-256 digest of raw file content. Used by the
// content index to detect changed files.
func Checksum(data []byte) string {
	h := sha256.Sum256(data)
	return hex.EncodeToString(h[:])
}
