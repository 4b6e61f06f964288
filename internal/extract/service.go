package extract

import (
	"context"
	"time"
)

// Request asks the extraction service to find items of interest in a piece
// of text. Instruction and Schema are natural-language contracts the
// service forwards to its underlying model.
type Request struct {
	// Instruction tells the service what to look for
	Instruction string

	// Schema describes the expected JSON shape of each item's payload
	Schema string

	// Text is the segment (or whole document) to analyze
	Text string

	// SegmentID identifies the owning segment for all returned items
	SegmentID string

	// MaxItems bounds how many items the service should return (0 = no bound)
	MaxItems int
}

// Item is one candidate finding from the service. SearchHint is the literal
// or near-literal text to relocate; Payload is unit-specific.
type Item struct {
	SearchHint string         `json:"search_hint"`
	Payload    map[string]any `json:"payload,omitempty"`
}

// Usage records token consumption and cost for one extraction call.
type Usage struct {
	Model            string
	PromptTokens     int
	CompletionTokens int
	Cost             float64
	Duration         time.Duration
	Cached           bool
}

// Response is the service's output for one request.
type Response struct {
	Items []Item
	Usage Usage
}

// Service is the opaque extraction collaborator every analysis unit is
// built on. Implementations may fail; callers decide whether to skip the
// segment or surface the failure.
type Service interface {
	Extract(ctx context.Context, req Request) (*Response, error)
}
