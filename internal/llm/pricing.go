package llm

import "math"

// modelPricing holds per-1M-token prices in USD.
type modelPricing struct {
	Input  float64
	Output float64
}

// Prices per 1M tokens. Unlisted models fall back to the default entry so
// cost figures stay an estimate rather than silently zero.
var pricing = map[string]modelPricing{
	"gpt-4o":                     {Input: 2.50, Output: 10.00},
	"gpt-4o-mini":                {Input: 0.15, Output: 0.60},
	"claude-opus-4-20250514":     {Input: 15.00, Output: 75.00},
	"claude-3-5-sonnet-20241022": {Input: 3.00, Output: 15.00},
	"claude-3-5-haiku-20241022":  {Input: 0.80, Output: 4.00},
	"claude-3-haiku-20240307":    {Input: 0.25, Output: 1.25},
}

var defaultPricing = modelPricing{Input: 3.00, Output: 15.00}

// Cost returns the USD cost of a call, rounded to 6 decimal places. Local
// models (ollama) cost nothing.
func Cost(provider, model string, promptTokens, completionTokens int) float64 {
	if provider == "ollama" {
		return 0
	}
	p, ok := pricing[model]
	if !ok {
		p = defaultPricing
	}
	cost := float64(promptTokens)/1_000_000*p.Input + float64(completionTokens)/1_000_000*p.Output
	return math.Round(cost*1e6) / 1e6
}
