package model

import "time"

// Report is the consolidated result of one document run: the merged,
// deduplicated annotation list plus per-unit outcomes and aggregate
// accounting. It is plain serializable data with no live references to
// segments or units.
type Report struct {
	RunID     string        `json:"run_id"`
	Source    string        `json:"source,omitempty"` // File path or URL, if known
	StartedAt time.Time     `json:"started_at"`
	Duration  time.Duration `json:"duration"` // Dispatch start to last outcome

	SegmentCount int `json:"segment_count"`
	DocumentLen  int `json:"document_len"` // Bytes

	Annotations []Annotation           `json:"annotations"` // Merged, overlap-deduplicated, sorted by start
	Outcomes    map[string]UnitOutcome `json:"outcomes"`    // Keyed by unit name

	TotalCost       float64 `json:"total_cost"`       // Sum over successful units, USD
	DroppedFindings int     `json:"dropped_findings"` // Findings that could not be relocated
	DroppedOverlaps int     `json:"dropped_overlaps"` // Annotations removed by overlap dedup

	Log []LogEntry `json:"log,omitempty"` // Structured execution log
}

// LogEntry is one structured event in the run's execution log.
type LogEntry struct {
	Time   time.Time `json:"time"`
	Unit   string    `json:"unit,omitempty"` // Empty for run-level events
	Event  string    `json:"event"`          // e.g. "chunking", "dispatch", "retry", "outcome"
	Detail string    `json:"detail,omitempty"`
}

// FailedUnits returns the names of units whose outcome is a failure, in no
// particular order.
func (r *Report) FailedUnits() []string {
	var failed []string
	for name, outcome := range r.Outcomes {
		if !outcome.Succeeded() {
			failed = append(failed, name)
		}
	}
	return failed
}
