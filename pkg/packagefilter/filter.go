// Package packagefilter applies the patchesToInclude/patchesToExclude glob
// masks and classification selection to a candidate update list (spec
// §3.2, §4.2 "Installation specifics"). Supplemented from the original
// Python source's package-filter module, not named as its own operation in
// the distilled spec but required by Installation's "filtered set" input.
// Grounded on path.Match, the same glob primitive the teacher reaches for
// in pkg/plugin/manifest's plugin-name matching (no third-party glob
// library appears anywhere in the pack; this is a necessary standard
// library use, see DESIGN.md).
package packagefilter

import (
	"path"

	"github.com/azure/patchcore/pkg/constants"
)

// Candidate is the minimal shape packagefilter needs from an adapter's
// update listing.
type Candidate struct {
	Name           string
	Version        string
	Classification constants.Classification
}

// Filter selects the subset of candidates matching the configured
// classifications and include/exclude glob masks. An empty
// classifications list means "all"; an empty include list also means
// "all" (only exclude narrows it). notSelected carries every candidate this
// pass dropped, so the caller can report the NotSelected per-package outcome
// (spec §4.2) instead of silently discarding it.
func Filter(candidates []Candidate, classifications []constants.Classification, include, exclude []string) (selected, notSelected []Candidate) {
	for _, c := range candidates {
		if !classificationMatches(c.Classification, classifications) {
			notSelected = append(notSelected, c)
			continue
		}
		if len(include) > 0 && !anyGlobMatches(include, c.Name) {
			notSelected = append(notSelected, c)
			continue
		}
		if anyGlobMatches(exclude, c.Name) {
			notSelected = append(notSelected, c)
			continue
		}
		selected = append(selected, c)
	}
	return selected, notSelected
}

func classificationMatches(c constants.Classification, allowed []constants.Classification) bool {
	if len(allowed) == 0 {
		return true
	}
	for _, a := range allowed {
		if a == c {
			return true
		}
	}
	return false
}

func anyGlobMatches(patterns []string, name string) bool {
	for _, p := range patterns {
		if ok, err := path.Match(p, name); err == nil && ok {
			return true
		}
	}
	return false
}
