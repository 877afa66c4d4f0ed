// Package classify maps artifact file names to region categories.
package classify

import (
	"path/filepath"
	"regexp"
	"strings"
)

// CatchAll is the category for names without a two-letter region token
const CatchAll = "OTHER"

// Prefix is stripped from normalized names before tokenizing
const Prefix = "wg-"

var collisionSuffix = regexp.MustCompile(`\s*\(\d+\)$`)

// Normalize strips the extension and any trailing " (N)" collision
// suffixes, then trims and lowercases the remainder.
func Normalize(name string) string {
	base := filepath.Base(name)
	base = strings.TrimSuffix(base, filepath.Ext(base))
	for collisionSuffix.MatchString(base) {
		base = collisionSuffix.ReplaceAllString(base, "")
	}
	return strings.ToLower(strings.TrimSpace(base))
}

// Category returns the uppercase two-letter region of name, or CatchAll
func Category(name string) string {
	norm := strings.TrimPrefix(Normalize(name), Prefix)

	token := norm
	if i := strings.IndexAny(norm, "-#"); i >= 0 {
		token = norm[:i]
	}
	token = strings.ToUpper(token)

	if len(token) == 2 && isASCIILetter(token[0]) && isASCIILetter(token[1]) {
		return token
	}
	return CatchAll
}

// DedupKey identifies copies of the same artifact that differ only by a
// collision suffix.
func DedupKey(name string) string {
	return Normalize(name)
}

func isASCIILetter(b byte) bool {
	return b >= 'A' && b <= 'Z'
}
