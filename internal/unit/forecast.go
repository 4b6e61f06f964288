package unit

import (
	"fmt"

	"github.com/pmorozov/sidenote/internal/extract"
	"github.com/pmorozov/sidenote/internal/locate"
)

const forecastInstruction = `Find predictions and forecasts in the text:
statements about what will happen, by when, with what likelihood. For each,
judge how well-calibrated and resolvable it is. Vague aspirations without a
falsifiable outcome do not count.`

const forecastSchema = `{
  "prediction": "the prediction as stated",
  "probability": "integer 0-100, your estimate that it resolves true",
  "resolvable_by": "date or condition when it can be judged, if stated",
  "grade": "integer 0-100, quality of the forecast as a forecast",
  "explanation": "note on calibration and resolvability"
}`

// NewForecast grades predictions for calibration and resolvability.
func NewForecast(deps Deps) AnalysisUnit {
	return &extractionUnit{
		name:        "forecast",
		instruction: forecastInstruction,
		schema:      forecastSchema,
		service:     deps.Service,
		workers:     deps.Workers,
		locateOpts:  locate.Options{AllowPartialMatch: true},
		enrich: func(item extract.Item) (string, int, string, *int) {
			desc := payloadString(item.Payload, "explanation")
			prob := payloadInt(item.Payload, "probability", -1)
			if prob >= 0 {
				desc = fmt.Sprintf("estimated %d%% likely. %s", prob, desc)
			}
			var grade *int
			if g := payloadInt(item.Payload, "grade", -1); g >= 0 {
				if g > 100 {
					g = 100
				}
				grade = &g
			}
			return desc, 4, "", grade
		},
	}
}
