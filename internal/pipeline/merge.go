package pipeline

import (
	"sort"

	"github.com/pmorozov/sidenote/internal/model"
)

// MergeAnnotations deduplicates annotations by overlap: after a stable sort
// by ascending start offset, an annotation is kept only if its half-open
// range does not overlap any already-kept range. Purely adjacent ranges
// (a.End == b.Start) are not overlapping. First kept wins; with equal start
// offsets the stable sort preserves input order, which is unit registration
// order. Returns the kept annotations and the number dropped.
//
// The merge is idempotent: running it on its own output keeps everything.
func MergeAnnotations(anns []model.Annotation) ([]model.Annotation, int) {
	if len(anns) == 0 {
		return nil, 0
	}

	sorted := make([]model.Annotation, len(anns))
	copy(sorted, anns)
	sort.SliceStable(sorted, func(i, j int) bool {
		return sorted[i].Range.Start < sorted[j].Range.Start
	})

	kept := make([]model.Annotation, 0, len(sorted))
	dropped := 0
	for _, a := range sorted {
		if overlapsAny(a.Range, kept) {
			dropped++
			continue
		}
		kept = append(kept, a)
	}
	return kept, dropped
}

func overlapsAny(r model.Range, kept []model.Annotation) bool {
	// Sorted by start, so only the tail can overlap; scanning backwards
	// exits on the first annotation that ends at or before r.Start only if
	// ranges were non-nested. Annotations can nest, so check them all.
	for i := range kept {
		if kept[i].Range.Overlaps(r) {
			return true
		}
	}
	return false
}
