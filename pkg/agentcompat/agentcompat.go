// Package agentcompat implements the agent-compatibility preflight check
// (spec §4.8 step 1, CL_AGENT_TOO_OLD): the platform can demand a minimum
// handler version through the environment settings blob, and a build older
// than that minimum must refuse to run rather than operate against a
// contract it doesn't support. Grounded on Test_EnvHealthManager.py's role
// in the original as the environment-compatibility gate that runs before
// any operator, and implemented with the same version comparator used for
// Ubuntu Pro / tdnf minimum-version gating (pkg/versioncompare).
package agentcompat

import "github.com/azure/patchcore/pkg/versioncompare"

// Check reports whether this build's AgentVersion satisfies required. An
// empty required string means the platform imposed no minimum and the
// check always passes.
func Check(agentVersion, required string) (bool, error) {
	if required == "" {
		return true, nil
	}
	return versioncompare.AtLeast(agentVersion, required)
}
