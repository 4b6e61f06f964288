package locate

import (
	"strings"
	"unicode"
	"unicode/utf8"
)

// normalized is a whitespace-collapsed, quote-unified rendering of a source
// string together with a byte-level mapping back to the source. For every
// byte i of text, the source bytes [start[i], end[i]) produced it.
type normalized struct {
	text  string
	start []int
	end   []int
}

// normalizeMapped collapses whitespace runs to a single space and replaces
// typographic quote variants with their ASCII forms, recording the origin of
// every output byte. Nothing else is altered, so mapping a normalized match
// back to source offsets is exact.
func normalizeMapped(s string) normalized {
	var b strings.Builder
	var starts, ends []int

	i := 0
	for i < len(s) {
		r, size := utf8.DecodeRuneInString(s[i:])
		switch {
		case unicode.IsSpace(r):
			j := i + size
			for j < len(s) {
				r2, sz := utf8.DecodeRuneInString(s[j:])
				if !unicode.IsSpace(r2) {
					break
				}
				j += sz
			}
			b.WriteByte(' ')
			starts = append(starts, i)
			ends = append(ends, j)
			i = j
		case isSingleQuote(r):
			b.WriteByte('\'')
			starts = append(starts, i)
			ends = append(ends, i+size)
			i += size
		case isDoubleQuote(r):
			b.WriteByte('"')
			starts = append(starts, i)
			ends = append(ends, i+size)
			i += size
		default:
			for k := 0; k < size; k++ {
				b.WriteByte(s[i+k])
				starts = append(starts, i+k)
				ends = append(ends, i+k+1)
			}
			i += size
		}
	}

	return normalized{text: b.String(), start: starts, end: ends}
}

// normalizeHint collapses and quote-unifies a search hint and trims the
// surrounding whitespace, the form used for searching normalized text.
func normalizeHint(s string) string {
	n := normalizeMapped(s)
	return strings.Trim(n.text, " ")
}

func isSingleQuote(r rune) bool {
	switch r {
	case '\'', '‘', '’', '‚', 'ʼ', '`':
		return true
	}
	return false
}

func isDoubleQuote(r rune) bool {
	switch r {
	case '"', '“', '”', '„', '«', '»':
		return true
	}
	return false
}
