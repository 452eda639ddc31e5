// Package rebootmanager fulfills the RebootManager contract (spec §4.2
// Installation specifics, SPEC_FULL.md "RebootManager contract fulfilled
// with a real (if minimal) adapter"): a minimal real adapter behind
// start_if_required_and_time_available(remaining_minutes) -> bool, backed
// by the distro-standard reboot-required marker file plus "shutdown -r".
// Reboot command strings and scheduling policy beyond this stay a
// Non-goal; this exists only so the Installer has something real to call
// rather than a stub.
package rebootmanager

import (
	"os"

	"github.com/azure/patchcore/pkg/constants"
	"github.com/azure/patchcore/pkg/envlayer"
)

// rebootRequiredMarker is the well-known Debian/Ubuntu marker file; it is
// the only signal IsRequired checks, on every distro.
const rebootRequiredMarker = "/var/run/reboot-required"

// Manager decides whether to trigger a reboot after an install batch and,
// if permitted, does so.
type Manager struct {
	Setting constants.RebootSetting
}

// New constructs a Manager for the given reboot setting.
func New(setting constants.RebootSetting) *Manager {
	return &Manager{Setting: setting}
}

// IsRequired reports whether the OS has recorded a pending reboot.
func (m *Manager) IsRequired() bool {
	if _, err := os.Stat(rebootRequiredMarker); err == nil {
		return true
	}
	return false
}

// StartIfRequiredAndTimeAvailable implements the RebootManager contract:
// if a reboot is required, permitted by m.Setting, and remainingMinutes
// leaves enough time for the buffer, it issues "shutdown -r" and reports
// true. It never reboots when Setting is RebootNever, and a Setting of
// RebootAlways reboots even when no marker file is present. Callers that
// need the operator retry loop to stop should wrap a true result in
// faults.RebootRequested themselves -- this method only performs the
// reboot decision and the command, it doesn't classify control flow.
func (m *Manager) StartIfRequiredAndTimeAvailable(remainingMinutes int) (bool, error) {
	if m.Setting == constants.RebootNever {
		return false, nil
	}
	if m.Setting == constants.RebootIfRequired && !m.IsRequired() {
		return false, nil
	}
	if remainingMinutes < constants.RebootBufferInMinutes {
		return false, nil
	}

	if _, err := envlayer.RunCommand(0, "shutdown", "-r", "+1"); err != nil {
		return false, err
	}
	return true, nil
}
