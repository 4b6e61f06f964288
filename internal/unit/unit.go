package unit

import (
	"context"
	"fmt"

	"github.com/pmorozov/sidenote/internal/locate"
	"github.com/pmorozov/sidenote/internal/model"
)

// AnalysisUnit is an independent, pluggable analysis capability. The
// orchestrator treats every unit as an opaque, independently failing task:
// it receives the shared read-only segment list and document text and
// returns annotations already relocated to document-global offsets.
type AnalysisUnit interface {
	// Name identifies the unit in outcomes, logs, and annotations.
	Name() string

	// Analyze runs the unit against one document. Implementations must not
	// mutate doc or segs.
	Analyze(ctx context.Context, doc string, segs []model.Segment) (*Result, error)
}

// Result is a successful unit execution: a summary, free-form analysis
// text, located annotations, total cost, and the external-call trace.
type Result struct {
	Summary     string
	Analysis    string
	Annotations []model.Annotation
	Cost        float64
	Trace       []model.Interaction
	Dropped     int // Findings that could not be relocated
}

// Relocate maps a finding's search hint to a document-global annotation
// using the owning segment. The finding's segment-local match is shifted by
// the segment's global start offset, and the result is verified against the
// document before being returned.
func Relocate(doc string, seg model.Segment, f model.Finding, opts locate.Options) (model.Annotation, error) {
	if f.SegmentID != seg.ID {
		return model.Annotation{}, fmt.Errorf("finding belongs to segment %s, not %s", f.SegmentID, seg.ID)
	}

	m, err := locate.Locate(f.SearchHint, seg, opts)
	if err != nil {
		return model.Annotation{}, err
	}

	global := m.Range.Shift(seg.Range.Start)
	quoted := doc[global.Start:global.End]
	if quoted != m.QuotedText {
		// The segment's range no longer describes the document; this is a
		// programming error upstream, never a normal relocation miss.
		return model.Annotation{}, fmt.Errorf("segment %s range is inconsistent with document", seg.ID)
	}

	return model.Annotation{
		Range:      global,
		QuotedText: quoted,
	}, nil
}
