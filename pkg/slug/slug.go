package slug

import (
	"regexp"
	"strings"
)

var (
	slugRegexp  = regexp.MustCompile(`[^a-z0-9]+`)
	validRegexp = regexp.MustCompile(`^[a-z0-9]+(-[a-z0-9]+)*$`)
)

// accentReplacer folds the accented Latin letters common in catalog names
// (Italian, French, German, Spanish, Turkish) to ASCII.
var accentReplacer = strings.NewReplacer(
	"à", "a", "á", "a", "â", "a", "ä", "a",
	"è", "e", "é", "e", "ê", "e", "ë", "e",
	"ì", "i", "í", "i", "î", "i", "ï", "i", "ı", "i",
	"ò", "o", "ó", "o", "ô", "o", "ö", "o",
	"ù", "u", "ú", "u", "û", "u", "ü", "u",
	"ç", "c", "ñ", "n", "ğ", "g", "ş", "s", "ß", "ss",
)

// Generate creates a URL-friendly slug from the given name.
//
// Examples:
//   - "Divani e Poltrone" → "divani-e-poltrone"
//   - "Lampade Città" → "lampade-citta"
//   - "Hello   World!" → "hello-world"
func Generate(name string) string {
	s := strings.ToLower(strings.TrimSpace(name))
	s = accentReplacer.Replace(s)
	s = slugRegexp.ReplaceAllString(s, "-")
	return strings.Trim(s, "-")
}

// Normalize cleans a slug taken from a path or user input before it is used
// in a lookup: surrounding slashes and whitespace are removed and the result
// is lower-cased. An already valid slug is returned unchanged.
func Normalize(raw string) string {
	s := strings.Trim(strings.TrimSpace(raw), "/")
	if i := strings.LastIndex(s, "/"); i >= 0 {
		s = s[i+1:]
	}
	if Valid(s) {
		return s
	}
	return Generate(s)
}

// Valid reports whether s is already in canonical slug form.
func Valid(s string) bool {
	return validRegexp.MatchString(s)
}
