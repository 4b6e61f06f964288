package locate

import (
	"errors"
	"strings"
	"testing"

	"github.com/pmorozov/sidenote/internal/model"
)

func seg(text string) model.Segment {
	return model.Segment{
		ID:    "seg-1",
		Text:  text,
		Range: model.Range{Start: 0, End: len(text)},
		Lines: model.LineRange{StartLine: 1, EndLine: 1 + strings.Count(text, "\n")},
	}
}

func TestLocate_ExactMatch(t *testing.T) {
	s := seg("2 + 2 = 5. The cat sat.")

	m, err := Locate("2 + 2 = 5", s, Options{})
	if err != nil {
		t.Fatalf("expected match, got error %v", err)
	}
	if m.Range.Start != 0 || m.Range.End != 9 {
		t.Errorf("expected range [0, 9), got [%d, %d)", m.Range.Start, m.Range.End)
	}
	if m.QuotedText != "2 + 2 = 5" {
		t.Errorf("expected quoted text %q, got %q", "2 + 2 = 5", m.QuotedText)
	}
	if m.Strategy != MatchExact {
		t.Errorf("expected exact strategy, got %s", m.Strategy)
	}
}

func TestLocate_InvariantHolds(t *testing.T) {
	s := seg("Some text here.\nThe answer is 42, obviously.\nMore text.")

	for _, hint := range []string{"answer is 42", "Some text", "More text."} {
		m, err := Locate(hint, s, Options{})
		if err != nil {
			t.Fatalf("hint %q: expected match, got %v", hint, err)
		}
		if s.Text[m.Range.Start:m.Range.End] != m.QuotedText {
			t.Errorf("hint %q: quoted text does not match segment slice", hint)
		}
	}
}

func TestLocate_NormalizedWhitespace(t *testing.T) {
	s := seg("The quick   brown\n\tfox jumps over the lazy dog.")

	m, err := Locate("quick brown fox jumps", s, Options{})
	if err != nil {
		t.Fatalf("expected normalized match, got %v", err)
	}
	if m.Strategy != MatchNormalized {
		t.Errorf("expected normalized strategy, got %s", m.Strategy)
	}
	if s.Text[m.Range.Start:m.Range.End] != m.QuotedText {
		t.Error("quoted text does not match segment slice")
	}
	if !strings.HasPrefix(m.QuotedText, "quick") || !strings.HasSuffix(m.QuotedText, "jumps") {
		t.Errorf("unexpected quoted text %q", m.QuotedText)
	}
}

func TestLocate_NormalizedQuotes(t *testing.T) {
	s := seg("He said “hello there” and left.")

	m, err := Locate(`"hello there"`, s, Options{})
	if err != nil {
		t.Fatalf("expected quote-normalized match, got %v", err)
	}
	if s.Text[m.Range.Start:m.Range.End] != m.QuotedText {
		t.Error("quoted text does not match segment slice")
	}
	if !strings.Contains(m.QuotedText, "hello there") {
		t.Errorf("unexpected quoted text %q", m.QuotedText)
	}
}

func TestLocate_NotFoundIsNormal(t *testing.T) {
	s := seg("Completely unrelated content about gardening.")

	_, err := Locate("the stock market crashed", s, Options{})
	if !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestLocate_EmptyHint(t *testing.T) {
	s := seg("Some content.")

	_, err := Locate("   ", s, Options{})
	if !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound for blank hint, got %v", err)
	}
}

func TestLocate_FragmentFallback(t *testing.T) {
	s := seg("Intro text. The final total was computed as 127 + 304 = 431 before tax adjustments. Outro.")

	// A paraphrased hint long enough to qualify for partial matching; only
	// the numeric cluster survives verbatim.
	hint := "the report claims the overall sum came to 127 + 304 = 431 when it was first tallied"

	_, err := Locate(hint, s, Options{})
	if !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound without AllowPartialMatch, got %v", err)
	}

	m, err := Locate(hint, s, Options{AllowPartialMatch: true})
	if err != nil {
		t.Fatalf("expected fragment match, got %v", err)
	}
	if m.Strategy != MatchFragment {
		t.Errorf("expected fragment strategy, got %s", m.Strategy)
	}
	if !strings.Contains(m.QuotedText, "127 + 304 = 431") {
		t.Errorf("expected quoted text to contain the numeric cluster, got %q", m.QuotedText)
	}
	if s.Text[m.Range.Start:m.Range.End] != m.QuotedText {
		t.Error("quoted text does not match segment slice")
	}
	if len(m.QuotedText) > int(1.5*float64(len(hint))) {
		t.Errorf("expanded span %d exceeds the 1.5x cap", len(m.QuotedText))
	}
}

func TestLocate_FragmentShortHintNotAttempted(t *testing.T) {
	s := seg("The value 42 appears here.")

	// Short hint: fragment fallback must not fire even when enabled.
	_, err := Locate("nothing matches 42 here", s, Options{AllowPartialMatch: true})
	if !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound for short hint, got %v", err)
	}
}

func TestLocate_FragmentExpansionCapRejected(t *testing.T) {
	// The fragment hit sits inside a huge unbroken token, so boundary
	// expansion would blow far past the cap and must be rejected.
	s := seg("prefix " + strings.Repeat("a", 300) + "x=1" + strings.Repeat("b", 300) + " suffix")
	hint := "a paraphrase mentioning the assignment x=1 which is just over fifty characters long"

	_, err := Locate(hint, s, Options{AllowPartialMatch: true})
	if !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound when expansion exceeds cap, got %v", err)
	}
}

func TestLocate_LineEnrichment(t *testing.T) {
	s := seg("first line\nsecond line with target text\nthird line")

	m, err := Locate("target text", s, Options{})
	if err != nil {
		t.Fatalf("expected match, got %v", err)
	}
	if m.Lines.StartLine != 2 || m.Lines.EndLine != 2 {
		t.Errorf("expected lines 2-2, got %d-%d", m.Lines.StartLine, m.Lines.EndLine)
	}
}

func TestNormalizeMapped_RoundTrip(t *testing.T) {
	src := "a  b\tc’d “e”"
	n := normalizeMapped(src)

	if n.text != `a b c'd "e"` {
		t.Fatalf("unexpected normalized text %q", n.text)
	}
	if len(n.start) != len(n.text) || len(n.end) != len(n.text) {
		t.Fatalf("mapping length mismatch: %d starts for %d bytes", len(n.start), len(n.text))
	}
	for i := range n.text {
		if n.start[i] < 0 || n.end[i] > len(src) || n.start[i] >= n.end[i] {
			t.Errorf("byte %d maps to invalid source span [%d, %d)", i, n.start[i], n.end[i])
		}
	}
}
