package model

import "time"

// OutcomeStatus tags a unit execution outcome as success or failure.
type OutcomeStatus string

const (
	StatusSuccess OutcomeStatus = "success"
	StatusFailure OutcomeStatus = "failure"
)

// Interaction records one call to the external extraction service.
type Interaction struct {
	Model            string        `json:"model"`             // Model that served the call
	PromptTokens     int           `json:"prompt_tokens"`
	CompletionTokens int           `json:"completion_tokens"`
	Cost             float64       `json:"cost"`              // USD
	Duration         time.Duration `json:"duration"`
	Cached           bool          `json:"cached,omitempty"`  // Served from cache, no live call
}

// UnitOutcome is one analysis unit's result for one run. Exactly one of the
// success fields or the failure fields is populated, selected by Status.
type UnitOutcome struct {
	Unit   string        `json:"unit"`
	Status OutcomeStatus `json:"status"`

	// Success fields
	Summary     string        `json:"summary,omitempty"`     // One-line summary of what the unit found
	Analysis    string        `json:"analysis,omitempty"`    // Free-form analysis text
	Annotations []Annotation  `json:"annotations,omitempty"`
	Cost        float64       `json:"cost,omitempty"`    // USD across all extraction calls
	Dropped     int           `json:"dropped,omitempty"` // Findings that could not be relocated
	Trace       []Interaction `json:"trace,omitempty"`

	// Failure fields
	Error        string `json:"error,omitempty"`         // Last error message
	Attempts     int    `json:"attempts,omitempty"`      // Attempts made before giving up
	RecoveryHint string `json:"recovery_hint,omitempty"` // Advisory suggestion, not behavior

	Elapsed time.Duration `json:"elapsed"` // Wall clock for this unit including retries
}

// Succeeded reports whether the outcome is a success.
func (o UnitOutcome) Succeeded() bool {
	return o.Status == StatusSuccess
}
