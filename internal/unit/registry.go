package unit

import "fmt"

// Registry returns the built-in units in their canonical registration
// order. Orchestrator tie-breaks depend on this order being stable.
func Registry(deps Deps) []AnalysisUnit {
	return []AnalysisUnit{
		NewMathCheck(deps),
		NewSpellCheck(deps),
		NewFactCheck(deps),
		NewForecast(deps),
	}
}

// ByNames filters the registry down to the requested unit names, keeping
// registration order. Unknown names are reported rather than ignored.
func ByNames(deps Deps, names []string) ([]AnalysisUnit, error) {
	if len(names) == 0 {
		return Registry(deps), nil
	}
	want := make(map[string]bool, len(names))
	for _, n := range names {
		want[n] = true
	}
	var units []AnalysisUnit
	for _, u := range Registry(deps) {
		if want[u.Name()] {
			units = append(units, u)
			delete(want, u.Name())
		}
	}
	for n := range want {
		return nil, fmt.Errorf("unknown analysis unit: %s", n)
	}
	return units, nil
}
