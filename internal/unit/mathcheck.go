package unit

import (
	"fmt"

	"github.com/pmorozov/sidenote/internal/extract"
	"github.com/pmorozov/sidenote/internal/locate"
)

// Deps carries what every built-in unit needs: the extraction collaborator
// and the per-unit segment fan-out width.
type Deps struct {
	Service extract.Service
	Workers int
}

const mathInstruction = `Find mathematical errors in the text: wrong arithmetic,
incorrect unit conversions, percentages that do not add up, formulas applied
incorrectly, and statistical claims that contradict their own numbers.
Only report actual errors, not stylistic choices.`

const mathSchema = `{
  "expression": "the erroneous expression as written",
  "correct": "what the correct result would be",
  "explanation": "why this is wrong, one or two sentences",
  "severity": "minor | major",
  "importance": "integer 0-10"
}`

// NewMathCheck verifies arithmetic and quantitative claims. Math hints come
// back nearly verbatim, so the fragment fallback with its numeric-cluster
// extraction works well here.
func NewMathCheck(deps Deps) AnalysisUnit {
	return &extractionUnit{
		name:        "mathcheck",
		instruction: mathInstruction,
		schema:      mathSchema,
		service:     deps.Service,
		workers:     deps.Workers,
		locateOpts:  locate.Options{AllowPartialMatch: true},
		enrich: func(item extract.Item) (string, int, string, *int) {
			desc := payloadString(item.Payload, "explanation")
			if correct := payloadString(item.Payload, "correct"); correct != "" {
				desc = fmt.Sprintf("%s (expected %s)", desc, correct)
			}
			severity := payloadString(item.Payload, "severity")
			importance := payloadInt(item.Payload, "importance", 6)
			if severity == "major" && importance < 7 {
				importance = 7
			}
			return desc, importance, severity, nil
		},
	}
}
