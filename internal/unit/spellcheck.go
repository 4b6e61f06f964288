package unit

import (
	"fmt"

	"github.com/pmorozov/sidenote/internal/extract"
	"github.com/pmorozov/sidenote/internal/locate"
)

const spellInstruction = `Find spelling and grammar errors in the text:
misspelled words, wrong homophones, subject-verb disagreement, broken
sentence structure. Quote the smallest span that contains the error. Skip
intentional stylization, code, and proper nouns you are not sure about.`

const spellSchema = `{
  "correction": "the corrected span",
  "category": "spelling | grammar",
  "explanation": "short note on the error"
}`

// NewSpellCheck flags spelling and grammar problems. Hints are short exact
// quotes, so partial matching stays off.
func NewSpellCheck(deps Deps) AnalysisUnit {
	return &extractionUnit{
		name:        "spellcheck",
		instruction: spellInstruction,
		schema:      spellSchema,
		service:     deps.Service,
		workers:     deps.Workers,
		locateOpts:  locate.Options{},
		enrich: func(item extract.Item) (string, int, string, *int) {
			desc := payloadString(item.Payload, "explanation")
			if correction := payloadString(item.Payload, "correction"); correction != "" {
				if desc != "" {
					desc = fmt.Sprintf("%s; suggest %q", desc, correction)
				} else {
					desc = fmt.Sprintf("suggest %q", correction)
				}
			}
			return desc, 2, payloadString(item.Payload, "category"), nil
		},
	}
}
