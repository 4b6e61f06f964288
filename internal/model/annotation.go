package model

// Finding is an unresolved result emitted by an analysis unit before
// relocation. It references exactly one segment and never spans segments.
type Finding struct {
	SegmentID  string         `json:"segment_id"`        // Owning segment
	SearchHint string         `json:"search_hint"`       // Literal or near-literal text to search for
	Payload    map[string]any `json:"payload,omitempty"` // Unit-specific structured data
}

// Annotation is a finding relocated to an exact span of the original
// document. QuotedText always equals the document substring at Range.
type Annotation struct {
	Unit        string `json:"unit"`              // Name of the unit that produced it
	Range       Range  `json:"range"`             // Offsets into the original document
	QuotedText  string `json:"quoted_text"`       // Exact document substring at Range
	Description string `json:"description"`       // Human-readable explanation
	Importance  int    `json:"importance"`        // 0 (trivial) to 10 (critical)
	Severity    string `json:"severity,omitempty"` // Unit-specific severity label
	Grade       *int   `json:"grade,omitempty"`    // Optional 0-100 quality grade
}

// Importance bounds for annotations.
const (
	ImportanceMin = 0
	ImportanceMax = 10
)

// ClampImportance forces a unit-reported importance into the allowed scale.
func ClampImportance(v int) int {
	if v < ImportanceMin {
		return ImportanceMin
	}
	if v > ImportanceMax {
		return ImportanceMax
	}
	return v
}
