package locate

import (
	"regexp"
	"strings"
	"unicode"
	"unicode/utf8"

	"github.com/pmorozov/sidenote/internal/model"
)

var (
	// Clusters of digits and arithmetic operators, e.g. "2 + 2 = 5" or
	// "3.14 * r^2". These survive paraphrasing better than prose does.
	numericClusterRe = regexp.MustCompile(`[0-9][0-9+\-*/=^(). %]*[0-9)%]`)

	// Assignment-like patterns, e.g. "x = 42" or "total = price * qty".
	assignmentRe = regexp.MustCompile(`[\w.]+\s*=\s*[^\s=]\S*`)
)

// keyFragments extracts short, high-signal substrings from a long hint, in
// preference order: numeric/operator clusters first, then assignment
// patterns, then the hint's leading characters.
func keyFragments(hint string) []string {
	var frags []string
	seen := make(map[string]bool)
	add := func(f string) {
		f = strings.TrimSpace(f)
		if len(f) >= 3 && !seen[f] {
			seen[f] = true
			frags = append(frags, f)
		}
	}

	for _, m := range numericClusterRe.FindAllString(hint, -1) {
		add(m)
	}
	for _, m := range assignmentRe.FindAllString(hint, -1) {
		add(m)
	}
	add(prefixFragment(hint, prefixFragmentLen))

	return frags
}

// prefixFragment returns the first n bytes of s cut back to a rune boundary.
func prefixFragment(s string, n int) string {
	if len(s) <= n {
		return s
	}
	for n > 0 && !utf8.RuneStart(s[n]) {
		n--
	}
	return s[:n]
}

// locateFragment searches for each key fragment of the hint and, on a hit,
// expands the match to the nearest natural boundaries. An expansion that
// would exceed MaxExpansion times the hint length is treated as a false
// positive and rejected.
func locateFragment(hint string, seg model.Segment, opts Options) (Match, bool) {
	maxSpan := int(opts.MaxExpansion * float64(len(hint)))

	for _, frag := range keyFragments(hint) {
		idx := strings.Index(seg.Text, frag)
		if idx < 0 {
			continue
		}
		start, end := expandToBoundaries(seg.Text, idx, idx+len(frag))
		if end-start > maxSpan {
			continue
		}
		return newMatch(seg, start, end, MatchFragment), true
	}
	return Match{}, false
}

// expandToBoundaries grows [start, end) outward until it abuts whitespace,
// sentence punctuation, or the segment edge, so a fragment hit covers whole
// words rather than cutting mid-token.
func expandToBoundaries(text string, start, end int) (int, int) {
	for start > 0 {
		r, size := utf8.DecodeLastRuneInString(text[:start])
		if isBoundary(r) {
			break
		}
		start -= size
	}
	for end < len(text) {
		r, size := utf8.DecodeRuneInString(text[end:])
		if isBoundary(r) {
			break
		}
		end += size
	}
	return start, end
}

func isBoundary(r rune) bool {
	if unicode.IsSpace(r) {
		return true
	}
	switch r {
	case '.', ',', ';', ':', '!', '?':
		return true
	}
	return false
}
