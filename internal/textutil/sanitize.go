package textutil

import (
	"strings"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

// MaxTokenLength caps tokens so scratch paths stay well under NAME_MAX.
const MaxTokenLength = 48

// SanitizeToken reduces value to a lowercase ASCII token usable as a
// directory name. Accents are folded ("Café" becomes "cafe"), runs of other
// characters collapse to a single underscore, and an empty result is
// "unknown".
func SanitizeToken(value string) string {
	folded := foldAccents(strings.TrimSpace(value))

	var b strings.Builder
	pendingSep := false
	for _, r := range folded {
		switch {
		case r < unicode.MaxASCII && (unicode.IsLetter(r) || unicode.IsDigit(r)):
			if pendingSep && b.Len() > 0 {
				b.WriteByte('_')
			}
			pendingSep = false
			b.WriteRune(unicode.ToLower(r))
		case r == '-':
			if pendingSep && b.Len() > 0 {
				b.WriteByte('_')
			}
			pendingSep = false
			b.WriteRune(r)
		default:
			pendingSep = true
		}
	}

	out := b.String()
	if len(out) > MaxTokenLength {
		out = out[:MaxTokenLength]
	}
	out = strings.Trim(out, "_-")
	if out == "" {
		return "unknown"
	}
	return out
}

func foldAccents(s string) string {
	t := transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)
	out, _, err := transform.String(t, s)
	if err != nil {
		return s
	}
	return out
}
