package pipeline

import "github.com/pmorozov/sidenote/internal/extract"

// recoveryHint maps a failed unit's error kind to a short, human-readable
// suggestion. Advisory text only; nothing acts on it.
func recoveryHint(kind extract.Kind) string {
	switch kind {
	case extract.KindTimeout:
		return "reduce the segment size or raise the unit timeout"
	case extract.KindRateLimit:
		return "lower extraction concurrency or the per-model request rate"
	case extract.KindAuth:
		return "check the provider API key and account access"
	case extract.KindNetwork, extract.KindServer:
		return "transient upstream trouble; rerunning usually succeeds"
	default:
		return "analysis continues without this unit"
	}
}
