package segment

import (
	"strings"

	"github.com/google/uuid"

	"github.com/pmorozov/sidenote/internal/model"
)

// Strategy selects how a document is partitioned.
type Strategy string

const (
	// StrategyFixed cuts fixed-size windows, optionally overlapping.
	StrategyFixed Strategy = "fixed"
	// StrategyParagraph cuts at paragraph boundaries, packing paragraphs
	// into segments up to the size limit.
	StrategyParagraph Strategy = "paragraph"
	// StrategyStructural behaves like paragraph but refuses to cut inside a
	// fenced code block or between adjacent list items when the size limit
	// allows an alternative.
	StrategyStructural Strategy = "structural"
)

const defaultMaxSize = 4000

// Options configures a segmentation run. The zero value means structural
// strategy with the default size and no overlap.
type Options struct {
	Strategy Strategy
	MaxSize  int // Maximum segment length in bytes
	Overlap  int // Fixed strategy only; bytes shared between consecutive segments
}

func (o Options) normalized() Options {
	if o.Strategy == "" {
		o.Strategy = StrategyStructural
	}
	if o.MaxSize <= 0 {
		o.MaxSize = defaultMaxSize
	}
	if o.Overlap < 0 {
		o.Overlap = 0
	}
	if o.Overlap >= o.MaxSize {
		o.Overlap = o.MaxSize / 2
	}
	if o.Strategy != StrategyFixed {
		o.Overlap = 0
	}
	return o
}

// Split partitions doc into ordered segments. Without overlap, segment
// ranges tile the document exactly: no gaps, no double coverage. An empty
// document yields no segments; a document no larger than the size limit
// yields exactly one. Split never fails.
func Split(doc string, opts Options) []model.Segment {
	opts = opts.normalized()
	if len(doc) == 0 {
		return nil
	}

	var ranges []model.Range
	switch {
	case len(doc) <= opts.MaxSize:
		ranges = []model.Range{{Start: 0, End: len(doc)}}
	case opts.Strategy == StrategyFixed:
		ranges = fixedRanges(len(doc), opts.MaxSize, opts.Overlap)
	case opts.Strategy == StrategyParagraph:
		ranges = boundaryRanges(doc, opts.MaxSize, paragraphCuts(doc))
	default:
		ranges = boundaryRanges(doc, opts.MaxSize, structuralCuts(doc))
	}

	ix := NewLineIndex(doc)
	segs := make([]model.Segment, len(ranges))
	for i, r := range ranges {
		segs[i] = model.Segment{
			ID:    uuid.NewString(),
			Index: i,
			Text:  doc[r.Start:r.End],
			Range: r,
			Lines: model.LineRange{
				StartLine: ix.LineAt(r.Start),
				EndLine:   ix.LineAt(r.End - 1),
			},
		}
	}
	return segs
}

// fixedRanges cuts [0, n) into windows of size max, each starting overlap
// bytes before the previous window's end.
func fixedRanges(n, max, overlap int) []model.Range {
	var ranges []model.Range
	start := 0
	for {
		end := start + max
		if end >= n {
			ranges = append(ranges, model.Range{Start: start, End: n})
			return ranges
		}
		ranges = append(ranges, model.Range{Start: start, End: end})
		start = end - overlap
	}
}

// boundaryRanges packs the document into segments of at most max bytes,
// cutting only at the given candidate offsets when possible. Cuts must be
// sorted ascending. When no candidate falls inside the current window the
// segment is hard-cut at the size limit so coverage is never compromised.
func boundaryRanges(doc string, max int, cuts []int) []model.Range {
	var ranges []model.Range
	n := len(doc)
	start := 0
	ci := 0
	for start < n {
		if n-start <= max {
			ranges = append(ranges, model.Range{Start: start, End: n})
			break
		}
		limit := start + max
		// Furthest candidate cut inside (start, limit].
		cut := -1
		for ci < len(cuts) && cuts[ci] <= limit {
			if cuts[ci] > start {
				cut = cuts[ci]
			}
			ci++
		}
		if cut < 0 {
			cut = limit
		}
		ranges = append(ranges, model.Range{Start: start, End: cut})
		start = cut
	}
	return ranges
}

// paragraphCuts returns offsets immediately after each blank-line run, the
// natural paragraph boundaries of plain text and Markdown.
func paragraphCuts(doc string) []int {
	var cuts []int
	i := 0
	for i < len(doc) {
		if doc[i] != '\n' {
			i++
			continue
		}
		j := i + 1
		for j < len(doc) && (doc[j] == '\n' || doc[j] == '\r') {
			j++
		}
		if j-i >= 2 && j < len(doc) {
			cuts = append(cuts, j)
		}
		i = j
	}
	return cuts
}

// structuralCuts filters paragraph boundaries down to those that do not
// fall inside a fenced code block and do not separate two list items.
func structuralCuts(doc string) []int {
	cuts := paragraphCuts(doc)
	if len(cuts) == 0 {
		return cuts
	}
	fences := fenceRegions(doc)
	ix := NewLineIndex(doc)

	var safe []int
	for _, cut := range cuts {
		if insideAny(cut, fences) {
			continue
		}
		before := strings.TrimSpace(ix.LineText(ix.LineAt(cut) - 1))
		after := ix.TrimmedLine(ix.LineAt(cut))
		if isListItem(before) && isListItem(after) {
			continue
		}
		safe = append(safe, cut)
	}
	if len(safe) == 0 {
		// A document that is one giant block still has to be cut somewhere.
		return cuts
	}
	return safe
}

// fenceRegions returns the [start, end) spans of ``` fenced blocks. An
// unclosed fence extends to the end of the document.
func fenceRegions(doc string) []model.Range {
	var regions []model.Range
	open := -1
	offset := 0
	for _, line := range strings.SplitAfter(doc, "\n") {
		if strings.HasPrefix(strings.TrimSpace(line), "```") {
			if open < 0 {
				open = offset
			} else {
				regions = append(regions, model.Range{Start: open, End: offset + len(line)})
				open = -1
			}
		}
		offset += len(line)
	}
	if open >= 0 {
		regions = append(regions, model.Range{Start: open, End: len(doc)})
	}
	return regions
}

func insideAny(offset int, regions []model.Range) bool {
	for _, r := range regions {
		if offset > r.Start && offset < r.End {
			return true
		}
	}
	return false
}

func isListItem(line string) bool {
	if strings.HasPrefix(line, "- ") || strings.HasPrefix(line, "* ") || strings.HasPrefix(line, "+ ") {
		return true
	}
	// Ordered list: digits followed by ". " or ") "
	i := 0
	for i < len(line) && line[i] >= '0' && line[i] <= '9' {
		i++
	}
	if i == 0 || i+1 >= len(line) {
		return false
	}
	return (line[i] == '.' || line[i] == ')') && line[i+1] == ' '
}
