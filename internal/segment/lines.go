package segment

import (
	"sort"
	"strings"
)

// LineInfo describes the line containing a given offset.
type LineInfo struct {
	Number int    // 1-based line number
	Text   string // Line content without the trailing newline
}

// LineIndex resolves byte offsets in a text to line numbers and line text.
// It is built once and is a pure function of the text: the same offset
// always resolves to the same result.
type LineIndex struct {
	text   string
	starts []int // Offset of the first byte of each line
}

// NewLineIndex builds a line index over text. An empty text has a single
// empty line.
func NewLineIndex(text string) *LineIndex {
	starts := []int{0}
	for i := 0; i < len(text); i++ {
		if text[i] == '\n' {
			starts = append(starts, i+1)
		}
	}
	return &LineIndex{text: text, starts: starts}
}

// Info returns the line containing offset. The offset must lie in
// [0, len(text)]; anything outside returns ok=false. Offset len(text) maps
// to the last line.
func (ix *LineIndex) Info(offset int) (LineInfo, bool) {
	if offset < 0 || offset > len(ix.text) {
		return LineInfo{}, false
	}
	n := ix.LineAt(offset)
	return LineInfo{Number: n, Text: ix.LineText(n)}, true
}

// LineAt returns the 1-based line number containing offset. Offsets outside
// the text clamp to the first or last line.
func (ix *LineIndex) LineAt(offset int) int {
	if offset < 0 {
		return 1
	}
	// First start strictly greater than offset, minus one, is our line.
	i := sort.SearchInts(ix.starts, offset+1)
	return i
}

// LineText returns the content of the 1-based line n without its trailing
// newline, or "" if n is out of range.
func (ix *LineIndex) LineText(n int) string {
	if n < 1 || n > len(ix.starts) {
		return ""
	}
	start := ix.starts[n-1]
	end := len(ix.text)
	if n < len(ix.starts) {
		end = ix.starts[n] - 1 // Exclude the newline
	}
	return ix.text[start:end]
}

// LineCount returns the number of lines in the indexed text.
func (ix *LineIndex) LineCount() int {
	return len(ix.starts)
}

// OffsetOfLine returns the byte offset of the first character of the
// 1-based line n, or -1 if n is out of range. This is the inverse of LineAt
// for line starts.
func (ix *LineIndex) OffsetOfLine(n int) int {
	if n < 1 || n > len(ix.starts) {
		return -1
	}
	return ix.starts[n-1]
}

// TrimmedLine is a convenience for callers that want line context without
// surrounding whitespace.
func (ix *LineIndex) TrimmedLine(n int) string {
	return strings.TrimSpace(ix.LineText(n))
}
