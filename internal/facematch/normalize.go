// Package facematch provides name handling shared by the identity stores and
// the matching service.
package facematch

import (
	"strings"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

// RemoveDiacritics removes diacritical marks from a string (e.g., "Jiří" -> "Jiri").
func RemoveDiacritics(s string) string {
	t := transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)
	result, _, _ := transform.String(t, s)
	return result
}

// CanonicalName is NFC-composed, trimmed, with internal whitespace runs
// collapsed to one space. Stores keep names verbatim; this form decides
// whether a name is blank and feeds NameKey.
func CanonicalName(name string) string {
	name = norm.NFC.String(name)
	return strings.Join(strings.Fields(name), " ")
}

// NameKey is a loose comparison key (lowercase, no diacritics, dashes as spaces).
// Used only for suggestions, never for identity lookups.
func NameKey(name string) string {
	name = RemoveDiacritics(CanonicalName(name))
	name = strings.ToLower(name)
	name = strings.ReplaceAll(name, "-", " ")
	return name
}
