package engine

import (
	"strings"
	"unicode"
)

// Normalize maps raw inbound input to a canonical choice token. A non-empty
// selection (button or list reply ID supplied by the transport) overrides
// the free-text body.
//
// Rules, in order:
//   - purely numeric text is returned unchanged ("12" → "12")
//   - text starting with a digit yields that single digit
//     ("1️⃣ Souscrire PASS" → "1")
//   - anything else is lowercased for keyword and list-ID matching
//     ("  BATELA " → "batela")
func Normalize(text, selection string) string {
	if selection != "" {
		text = selection
	}
	t := strings.TrimSpace(text)
	if t == "" {
		return ""
	}
	if isDigits(t) {
		return t
	}
	if r := []rune(t)[0]; unicode.IsDigit(r) {
		return string(r)
	}
	return strings.ToLower(t)
}

// isDigits reports whether s consists only of ASCII digits.
func isDigits(s string) bool {
	for _, r := range s {
		if r < '0' || r > '9' {
			return false
		}
	}
	return true
}
