package unit

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"

	"github.com/pmorozov/sidenote/internal/extract"
	"github.com/pmorozov/sidenote/internal/locate"
	"github.com/pmorozov/sidenote/internal/model"
	"github.com/pmorozov/sidenote/internal/worker"
)

// enrichFunc turns an extraction item's payload into the annotation fields
// specific to one unit.
type enrichFunc func(item extract.Item) (description string, importance int, severity string, grade *int)

// extractionUnit is the shared engine behind the built-in units: fan the
// segments out to the extraction service, relocate every returned item,
// and accumulate cost and trace. Each concrete unit supplies only its
// instruction, schema, and payload enrichment.
type extractionUnit struct {
	name        string
	instruction string
	schema      string
	service     extract.Service
	workers     int
	locateOpts  locate.Options
	enrich      enrichFunc
}

func (u *extractionUnit) Name() string { return u.name }

// segmentOutcome carries one segment's extraction through the pool.
type segmentOutcome struct {
	seg  model.Segment
	resp *extract.Response
	err  error
}

func (u *extractionUnit) Analyze(ctx context.Context, doc string, segs []model.Segment) (*Result, error) {
	if len(segs) == 0 {
		return &Result{Summary: u.name + ": empty document"}, nil
	}

	pool := worker.NewPool[segmentOutcome](u.workers)
	pool.Start()
	for _, seg := range segs {
		seg := seg
		pool.Submit(worker.TaskFunc[segmentOutcome](func(ctx context.Context) segmentOutcome {
			resp, err := u.service.Extract(ctx, extract.Request{
				Instruction: u.instruction,
				Schema:      u.schema,
				Text:        seg.Text,
				SegmentID:   seg.ID,
			})
			return segmentOutcome{seg: seg, resp: resp, err: err}
		}))
	}
	outcomes := pool.Wait()

	// Pool results arrive in completion order; document order keeps the
	// unit's output reproducible.
	sort.Slice(outcomes, func(i, j int) bool {
		return outcomes[i].seg.Index < outcomes[j].seg.Index
	})

	result := &Result{}
	var failed int
	var firstErr error
	var notes []string

	for _, oc := range outcomes {
		if oc.err != nil {
			failed++
			if firstErr == nil {
				firstErr = oc.err
			}
			continue
		}
		result.Cost += oc.resp.Usage.Cost
		result.Trace = append(result.Trace, model.Interaction{
			Model:            oc.resp.Usage.Model,
			PromptTokens:     oc.resp.Usage.PromptTokens,
			CompletionTokens: oc.resp.Usage.CompletionTokens,
			Cost:             oc.resp.Usage.Cost,
			Duration:         oc.resp.Usage.Duration,
			Cached:           oc.resp.Usage.Cached,
		})

		for _, item := range oc.resp.Items {
			finding := model.Finding{
				SegmentID:  oc.seg.ID,
				SearchHint: item.SearchHint,
				Payload:    item.Payload,
			}
			ann, err := Relocate(doc, oc.seg, finding, u.locateOpts)
			if err != nil {
				if errors.Is(err, locate.ErrNotFound) {
					result.Dropped++ // Paraphrased too loosely to place; expected
					continue
				}
				return nil, err
			}

			desc, importance, severity, grade := u.enrich(item)
			ann.Unit = u.name
			ann.Description = desc
			ann.Importance = model.ClampImportance(importance)
			ann.Severity = severity
			ann.Grade = grade
			result.Annotations = append(result.Annotations, ann)
			if desc != "" {
				notes = append(notes, fmt.Sprintf("[%d:%d] %s", ann.Range.Start, ann.Range.End, desc))
			}
		}
	}

	if failed == len(segs) {
		return nil, fmt.Errorf("%s: extraction failed for all %d segments: %w", u.name, failed, firstErr)
	}

	result.Summary = u.summary(len(segs), failed, result)
	result.Analysis = strings.Join(notes, "\n")
	return result, nil
}

func (u *extractionUnit) summary(total, failed int, r *Result) string {
	s := fmt.Sprintf("%s: %d issue(s) across %d segment(s)", u.name, len(r.Annotations), total)
	if r.Dropped > 0 {
		s += fmt.Sprintf(", %d finding(s) could not be placed", r.Dropped)
	}
	if failed > 0 {
		s += fmt.Sprintf(", %d segment(s) skipped after extraction errors", failed)
	}
	return s
}

// Payload readers shared by the built-in units. Extraction payloads arrive
// as generic JSON, so numbers are float64.

func payloadString(p map[string]any, key string) string {
	if v, ok := p[key].(string); ok {
		return v
	}
	return ""
}

func payloadInt(p map[string]any, key string, fallback int) int {
	switch v := p[key].(type) {
	case float64:
		return int(v)
	case int:
		return v
	}
	return fallback
}
