package filevalidator

import (
	"strings"
	"unicode"
	"unicode/utf8"
)

// unsafeNameChars are the characters replaced with underscores during name
// sanitization. They are unsafe for storage paths or display.
const unsafeNameChars = `<>:"/\|?*`

// SanitizeFileName returns a storage-safe version of name:
//
//   - each of < > : " / \ | ? * becomes an underscore
//   - runs of whitespace collapse to a single underscore
//   - runs of two or more underscores collapse to one
//   - leading and trailing underscores are trimmed
//   - the result is truncated to maxLength bytes (0 disables truncation)
//
// The transformation is idempotent: sanitizing an already-clean name returns
// it unchanged.
func SanitizeFileName(name string, maxLength int) string {
	var b strings.Builder
	b.Grow(len(name))

	prevUnderscore := false
	for _, r := range name {
		switch {
		case r == '_', unicode.IsSpace(r), strings.ContainsRune(unsafeNameChars, r):
			if !prevUnderscore {
				b.WriteByte('_')
				prevUnderscore = true
			}
		default:
			b.WriteRune(r)
			prevUnderscore = false
		}
	}

	clean := strings.Trim(b.String(), "_")

	if maxLength > 0 && len(clean) > maxLength {
		cut := maxLength
		// Never split a multi-byte rune.
		for cut > 0 && !utf8.RuneStart(clean[cut]) {
			cut--
		}
		clean = clean[:cut]
	}

	return clean
}
