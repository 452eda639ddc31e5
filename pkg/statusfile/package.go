package statusfile

import "github.com/azure/patchcore/pkg/constants"

// Package is one entry in a PatchAssessmentSummary/PatchInstallationSummary
// package list (spec §3.2 "Package list").
type Package struct {
	PatchID        string                    `json:"patchId,omitempty"`
	Name           string                    `json:"name"`
	Version        string                    `json:"version"`
	Classification constants.Classification  `json:"classifications"`
	PatchState     constants.PatchState      `json:"patchInstallationState,omitempty"`
}

// owner identifies which summary's package list a trackedPackage came from,
// so truncation can remove it from the right place.
type owner int

const (
	ownerAssessment owner = iota
	ownerInstallation
)

// trackedPackage is the unit the truncation pass (spec §4.3, invariant 4)
// sorts and evicts by classification x patch-state drop order.
type trackedPackage struct {
	owner owner
	index int
	pkg   Package
}

// dropOrderLess reports whether a should be evicted before b: higher
// classification key first, then higher patch-state key, i.e. the least
// important combination sorts first for eviction purposes.
func dropOrderLess(a, b trackedPackage) bool {
	ac, bc := a.pkg.Classification.DropKey(), b.pkg.Classification.DropKey()
	if ac != bc {
		return ac > bc
	}
	return a.pkg.PatchState.DropKey() > b.pkg.PatchState.DropKey()
}
