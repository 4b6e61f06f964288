package model

// Range is a half-open [Start, End) span of byte offsets into a document.
type Range struct {
	Start int `json:"start"` // Inclusive start offset
	End   int `json:"end"`   // Exclusive end offset
}

// Len returns the number of bytes covered by the range.
func (r Range) Len() int {
	return r.End - r.Start
}

// Overlaps reports whether two half-open ranges share at least one offset.
// Adjacent ranges (r.End == other.Start) do not overlap.
func (r Range) Overlaps(other Range) bool {
	return r.Start < other.End && other.Start < r.End
}

// Shift returns the range moved by delta offsets.
func (r Range) Shift(delta int) Range {
	return Range{Start: r.Start + delta, End: r.End + delta}
}

// LineRange is a 1-based, inclusive span of line numbers.
type LineRange struct {
	StartLine int `json:"start_line"`
	EndLine   int `json:"end_line"`
}

// Segment is one bounded slice of a document. Segments are created once by
// the segmenter and never mutated; Text is always the exact substring of the
// document covered by Range.
type Segment struct {
	ID    string    `json:"id"`    // Unique within one run
	Index int       `json:"index"` // Position in document order (0-based)
	Text  string    `json:"text"`  // Exact document substring
	Range Range     `json:"range"` // Offsets into the original document
	Lines LineRange `json:"lines"` // Absolute line numbers in the document
}
