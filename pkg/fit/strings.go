package fit

import (
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

// asciiFolder decomposes accented letters, drops the combining marks and
// removes whatever is still outside 7-bit ASCII (plus NUL, which would end
// the field early).
func asciiFolder() transform.Transformer {
	return transform.Chain(
		norm.NFD,
		runes.Remove(runes.In(unicode.Mn)),
		runes.Remove(runes.Predicate(func(r rune) bool {
			return r == 0 || r > unicode.MaxASCII
		})),
	)
}

// ToASCII folds s to the 7-bit subset FIT string fields accept.
func ToASCII(s string) string {
	out, _, err := transform.String(asciiFolder(), s)
	if err != nil {
		// Only reachable on malformed UTF-8; fall back to a byte filter.
		b := make([]byte, 0, len(s))
		for i := 0; i < len(s); i++ {
			if s[i] > 0 && s[i] <= unicode.MaxASCII {
				b = append(b, s[i])
			}
		}
		return string(b)
	}
	return out
}

// asciiField returns a size-byte field holding at most size-1 characters
// of s followed by NUL padding.
func asciiField(s string, size int) []byte {
	field := make([]byte, size)
	if size == 0 {
		return field
	}
	a := ToASCII(s)
	if len(a) > size-1 {
		a = a[:size-1]
	}
	copy(field, a)
	return field
}
