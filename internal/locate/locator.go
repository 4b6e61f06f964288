package locate

import (
	"errors"
	"strings"

	"github.com/pmorozov/sidenote/internal/model"
	"github.com/pmorozov/sidenote/internal/segment"
)

// ErrNotFound reports that no strategy could place the hint in the segment.
// This is a normal outcome for paraphrased extraction output, not a fault.
var ErrNotFound = errors.New("snippet not found in segment")

// Strategy names recorded on successful matches.
const (
	MatchExact      = "exact"
	MatchNormalized = "normalized"
	MatchFragment   = "fragment"
)

const (
	defaultMinPartialLen = 50
	defaultMaxExpansion  = 1.5
	prefixFragmentLen    = 30
)

// Options tunes the locator's fallback behavior.
type Options struct {
	// AllowPartialMatch enables the key-fragment fallback for long hints.
	AllowPartialMatch bool
	// MinPartialLen is the hint length below which the fragment fallback is
	// never attempted. Defaults to 50.
	MinPartialLen int
	// MaxExpansion caps a fragment match's expanded span relative to the
	// hint length. Defaults to 1.5.
	MaxExpansion float64
}

func (o Options) normalized() Options {
	if o.MinPartialLen <= 0 {
		o.MinPartialLen = defaultMinPartialLen
	}
	if o.MaxExpansion <= 0 {
		o.MaxExpansion = defaultMaxExpansion
	}
	return o
}

// Match is a successful relocation of a hint within one segment. The range
// is segment-local; QuotedText always equals the segment text at Range.
type Match struct {
	Range      model.Range     // Local to the segment's text
	QuotedText string          // Exact segment substring at Range
	Strategy   string          // Which strategy produced the match
	Lines      model.LineRange // Segment-local 1-based line span
}

// Locate finds the best placement of hint within seg, trying exact search,
// then whitespace/quote-normalized search, then (if enabled) key-fragment
// search. Returns ErrNotFound when every strategy fails.
func Locate(hint string, seg model.Segment, opts Options) (Match, error) {
	opts = opts.normalized()
	trimmed := strings.TrimSpace(hint)
	if trimmed == "" {
		return Match{}, ErrNotFound
	}

	if idx := strings.Index(seg.Text, trimmed); idx >= 0 {
		return newMatch(seg, idx, idx+len(trimmed), MatchExact), nil
	}

	if m, ok := locateNormalized(trimmed, seg); ok {
		return m, nil
	}

	if opts.AllowPartialMatch && len(trimmed) > opts.MinPartialLen {
		if m, ok := locateFragment(trimmed, seg, opts); ok {
			return m, nil
		}
	}

	return Match{}, ErrNotFound
}

// locateNormalized searches the normalized segment for the normalized hint
// and maps the hit back to raw offsets. The mapped-back span is re-normalized
// and compared against the hint; a mismatch means normalization changed
// something beyond whitespace and quotes, and the attempt is abandoned
// rather than returning a wrong offset.
func locateNormalized(hint string, seg model.Segment) (Match, bool) {
	nh := normalizeHint(hint)
	if nh == "" {
		return Match{}, false
	}
	ns := normalizeMapped(seg.Text)

	idx := strings.Index(ns.text, nh)
	if idx < 0 {
		return Match{}, false
	}

	start := ns.start[idx]
	end := ns.end[idx+len(nh)-1]
	if normalizeHint(seg.Text[start:end]) != nh {
		return Match{}, false
	}
	return newMatch(seg, start, end, MatchNormalized), true
}

func newMatch(seg model.Segment, start, end int, strategy string) Match {
	ix := segment.NewLineIndex(seg.Text)
	return Match{
		Range:      model.Range{Start: start, End: end},
		QuotedText: seg.Text[start:end],
		Strategy:   strategy,
		Lines: model.LineRange{
			StartLine: ix.LineAt(start),
			EndLine:   ix.LineAt(max(start, end-1)),
		},
	}
}
