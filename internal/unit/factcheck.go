package unit

import (
	"github.com/pmorozov/sidenote/internal/extract"
	"github.com/pmorozov/sidenote/internal/locate"
)

const factInstruction = `Identify checkable factual claims in the text and
assess them against well-established knowledge: dates, places, attributions,
historical events, scientific consensus. Report only claims that are
questionable or wrong; do not report claims that check out.`

const factSchema = `{
  "claim": "the claim being assessed",
  "verdict": "questionable | false",
  "explanation": "what is wrong or doubtful, with the correct fact if known",
  "importance": "integer 0-10, how load-bearing the claim is for the text"
}`

// NewFactCheck surfaces questionable factual claims. Claims are often
// lightly paraphrased by the extractor, so partial matching is enabled.
func NewFactCheck(deps Deps) AnalysisUnit {
	return &extractionUnit{
		name:        "factcheck",
		instruction: factInstruction,
		schema:      factSchema,
		service:     deps.Service,
		workers:     deps.Workers,
		locateOpts:  locate.Options{AllowPartialMatch: true},
		enrich: func(item extract.Item) (string, int, string, *int) {
			verdict := payloadString(item.Payload, "verdict")
			importance := payloadInt(item.Payload, "importance", 5)
			if verdict == "false" && importance < 6 {
				importance = 6
			}
			return payloadString(item.Payload, "explanation"), importance, verdict, nil
		},
	}
}
