// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package llm

type tokenRate struct {
	prompt     float64
	completion float64
}

// Per-token EUR rates, from per-1M-token USD prices at a 0.92 EUR/USD
// conversion.
var modelRates = map[string]tokenRate{
	"gpt-4o-mini": {prompt: 0.15 * 0.92 / 1_000_000, completion: 0.60 * 0.92 / 1_000_000},
	"gpt-4o":      {prompt: 2.50 * 0.92 / 1_000_000, completion: 10.00 * 0.92 / 1_000_000},
}

// EstimateCost returns the approximate EUR cost of one model call. Unknown
// models are priced at gpt-4o-mini rates.
func EstimateCost(model string, promptTokens, completionTokens int) float64 {
	r, ok := modelRates[model]
	if !ok {
		r = modelRates["gpt-4o-mini"]
	}
	return float64(promptTokens)*r.prompt + float64(completionTokens)*r.completion
}
