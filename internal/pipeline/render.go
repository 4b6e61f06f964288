package pipeline

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"sort"
	"strings"
	"time"

	"github.com/pmorozov/sidenote/internal/model"
)

// Renderer writes reports as JSON and Markdown.
type Renderer struct {
	includeFooter bool
}

// NewRenderer creates a renderer.
func NewRenderer(includeFooter bool) *Renderer {
	return &Renderer{includeFooter: includeFooter}
}

// RenderJSON writes the report as indented JSON to path.
func (r *Renderer) RenderJSON(report *model.Report, path string) error {
	data, err := json.MarshalIndent(report, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal report: %w", err)
	}
	if err := os.WriteFile(path, append(data, '\n'), 0644); err != nil {
		return fmt.Errorf("write report: %w", err)
	}
	return nil
}

// RenderMarkdown writes a human-readable report to path.
func (r *Renderer) RenderMarkdown(report *model.Report, path string) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create report: %w", err)
	}
	defer func() { _ = f.Close() }()
	return r.writeMarkdown(f, report)
}

func (r *Renderer) writeMarkdown(w io.Writer, report *model.Report) error {
	var b strings.Builder

	fmt.Fprintf(&b, "# Document analysis\n\n")
	if report.Source != "" {
		fmt.Fprintf(&b, "Source: %s\n\n", report.Source)
	}
	fmt.Fprintf(&b, "- Run: `%s`\n", report.RunID)
	fmt.Fprintf(&b, "- Segments: %d (%d bytes)\n", report.SegmentCount, report.DocumentLen)
	fmt.Fprintf(&b, "- Annotations: %d\n", len(report.Annotations))
	fmt.Fprintf(&b, "- Cost: $%.4f\n", report.TotalCost)
	fmt.Fprintf(&b, "- Duration: %s\n\n", report.Duration.Round(time.Millisecond))

	if len(report.Annotations) > 0 {
		b.WriteString("## Annotations\n\n")
		for _, ann := range report.Annotations {
			fmt.Fprintf(&b, "- **[%d:%d]** (%s", ann.Range.Start, ann.Range.End, ann.Unit)
			if ann.Severity != "" {
				fmt.Fprintf(&b, ", %s", ann.Severity)
			}
			fmt.Fprintf(&b, ") `%s`", truncate(ann.QuotedText, 80))
			if ann.Description != "" {
				fmt.Fprintf(&b, " — %s", ann.Description)
			}
			b.WriteString("\n")
		}
		b.WriteString("\n")
	}

	b.WriteString("## Units\n\n")
	for _, name := range sortedUnitNames(report.Outcomes) {
		oc := report.Outcomes[name]
		if oc.Succeeded() {
			fmt.Fprintf(&b, "- ✓ %s: %s\n", name, oc.Summary)
		} else {
			fmt.Fprintf(&b, "- ✗ %s: %s (attempts: %d; %s)\n", name, oc.Error, oc.Attempts, oc.RecoveryHint)
		}
	}

	if report.DroppedFindings > 0 || report.DroppedOverlaps > 0 {
		fmt.Fprintf(&b, "\n%d finding(s) could not be relocated; %d annotation(s) removed by overlap dedup.\n",
			report.DroppedFindings, report.DroppedOverlaps)
	}

	if r.includeFooter {
		b.WriteString("\n---\nGenerated by sidenote.\n")
	}

	_, err := io.WriteString(w, b.String())
	return err
}

// RenderSummary prints a short run summary to stdout.
func (r *Renderer) RenderSummary(report *model.Report) {
	fmt.Printf("Segments: %d  Annotations: %d  Cost: $%.4f  Duration: %s\n",
		report.SegmentCount, len(report.Annotations), report.TotalCost, report.Duration.Round(time.Millisecond))
	for _, name := range sortedUnitNames(report.Outcomes) {
		oc := report.Outcomes[name]
		if oc.Succeeded() {
			fmt.Printf("  ✓ %s\n", oc.Summary)
		} else {
			fmt.Printf("  ✗ %s failed: %s\n", name, oc.Error)
		}
	}
}

func sortedUnitNames(outcomes map[string]model.UnitOutcome) []string {
	names := make([]string, 0, len(outcomes))
	for name := range outcomes {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

func truncate(s string, n int) string {
	s = strings.ReplaceAll(s, "\n", " ")
	if len(s) <= n {
		return s
	}
	return s[:n] + "…"
}
