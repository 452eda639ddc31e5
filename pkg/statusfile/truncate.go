package statusfile

import "sort"

// truncateToFit trims assessment and installation package lists in place
// until the marshaled size of the document built by build() is no larger
// than limit, evicting least-important packages first per dropOrderLess
// (spec §4.3, invariant 4). It returns the surviving lists plus how many
// packages were dropped from each, so the caller can record the drop counts
// in the relevant summary per invariant 4's "record how many were dropped".
func truncateToFit(assessment, installation []Package, limit int, build func([]Package, []Package) ([]byte, error)) (survivingAssessment, survivingInstallation []Package, droppedAssessment, droppedInstallation int, err error) {
	for {
		raw, buildErr := build(assessment, installation)
		if buildErr != nil {
			return assessment, installation, droppedAssessment, droppedInstallation, buildErr
		}
		if len(raw) <= limit || (len(assessment) == 0 && len(installation) == 0) {
			return assessment, installation, droppedAssessment, droppedInstallation, nil
		}

		tracked := make([]trackedPackage, 0, len(assessment)+len(installation))
		for i, p := range assessment {
			tracked = append(tracked, trackedPackage{owner: ownerAssessment, index: i, pkg: p})
		}
		for i, p := range installation {
			tracked = append(tracked, trackedPackage{owner: ownerInstallation, index: i, pkg: p})
		}
		sort.Slice(tracked, func(i, j int) bool { return dropOrderLess(tracked[i], tracked[j]) })

		victim := tracked[0]
		switch victim.owner {
		case ownerAssessment:
			assessment = dropAt(assessment, victim.index)
			droppedAssessment++
		case ownerInstallation:
			installation = dropAt(installation, victim.index)
			droppedInstallation++
		}
	}
}

func dropAt(pkgs []Package, index int) []Package {
	out := make([]Package, 0, len(pkgs)-1)
	out = append(out, pkgs[:index]...)
	out = append(out, pkgs[index+1:]...)
	return out
}
