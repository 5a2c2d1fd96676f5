package util

import (
	"bytes"
	"strings"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

// RemoveAccents folds accented runes to their base form, e.g. "café" -> "cafe".
func RemoveAccents(word string) (string, error) {
	t := transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)

	s, _, err := transform.String(t, word)
	if err != nil {
		return "", err
	}

	return s, nil
}

// IsNilOrEmpty reports whether a *string is nil or blank after trimming.
func IsNilOrEmpty(s *string) bool {
	return s == nil || strings.TrimSpace(*s) == ""
}

// CamelToSnakeCase converts camelCase to snake_case.
func CamelToSnakeCase(str string) string {
	var buffer bytes.Buffer

	for i, character := range str {
		if unicode.IsUpper(character) {
			if i > 0 {
				buffer.WriteString("_")
			}

			buffer.WriteRune(unicode.ToLower(character))
		} else {
			buffer.WriteRune(character)
		}
	}

	return buffer.String()
}

var accentFold = map[rune]string{
	'a': "[aáàãâ]", 'e': "[eéèê]", 'i': "[iíìî]", 'o': "[oóòõô]", 'u': "[uùúû]", 'c': "[cç]",
	'A': "[AÁÀÃÂ]", 'E': "[EÉÈÊ]", 'I': "[IÍÌÎ]", 'O': "[OÓÒÕÔ]", 'U': "[UÙÚÛ]", 'C': "[CÇ]",
}

var accentBase = map[rune]rune{
	'á': 'a', 'à': 'a', 'ã': 'a', 'â': 'a',
	'é': 'e', 'è': 'e', 'ê': 'e',
	'í': 'i', 'ì': 'i', 'î': 'i',
	'ó': 'o', 'ò': 'o', 'õ': 'o', 'ô': 'o',
	'ú': 'u', 'ù': 'u', 'û': 'u',
	'ç': 'c',
	'Á': 'A', 'À': 'A', 'Ã': 'A', 'Â': 'A',
	'É': 'E', 'È': 'E', 'Ê': 'E',
	'Í': 'I', 'Ì': 'I', 'Î': 'I',
	'Ó': 'O', 'Ò': 'O', 'Õ': 'O', 'Ô': 'O',
	'Ú': 'U', 'Ù': 'U', 'Û': 'U',
	'Ç': 'C',
}

// RegexIgnoreAccents expands each accent-foldable character in regex into a
// character class covering its accented variants, so a pattern for "cafe"
// also matches "café".
func RegexIgnoreAccents(regex string) string {
	var s strings.Builder

	for _, ch := range regex {
		base := ch
		if b, ok := accentBase[ch]; ok {
			base = b
		}

		if class, ok := accentFold[base]; ok {
			s.WriteString(class)
			continue
		}

		s.WriteRune(ch)
	}

	return s.String()
}
