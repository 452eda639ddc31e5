// Package versioncompare wraps github.com/hashicorp/go-version for the two
// version gates the package-manager adapter needs: tdnf's strict-SDP
// minimum and the Ubuntu Pro Client's minimum supported version (spec
// §4.1). Grounded on the teacher's go.mod dependency of the same library
// (pulled in transitively for plugin version checks).
package versioncompare

import (
	hashiversion "github.com/hashicorp/go-version"
	"github.com/pkg/errors"
)

// AtLeast reports whether candidate >= minimum, both parsed as
// github.com/hashicorp/go-version versions.
func AtLeast(candidate, minimum string) (bool, error) {
	c, err := hashiversion.NewVersion(candidate)
	if err != nil {
		return false, errors.Wrapf(err, "parsing candidate version %q", candidate)
	}
	m, err := hashiversion.NewVersion(minimum)
	if err != nil {
		return false, errors.Wrapf(err, "parsing minimum version %q", minimum)
	}
	return c.Compare(m) >= 0, nil
}
