// Package maintenance implements the Maintenance Window (spec component I):
// remaining-time and install-time-available math derived from a start time
// and an ISO-8601 maximum duration. Supplemented from the original Python
// source's MaintenanceWindow helper (not present in the distilled spec.md
// operations list, restored per SPEC_FULL.md).
package maintenance

import (
	"time"

	"github.com/azure/patchcore/pkg/constants"
)

// Window exposes the remaining-time math the Installer consults before each
// batch (spec §4.7).
type Window struct {
	startTime      time.Time
	maximumDuration time.Duration
	rebootSetting  constants.RebootSetting
}

// New constructs a Window for a run starting at startTime with the given
// maximum duration and reboot setting.
func New(startTime time.Time, maximumDuration time.Duration, rebootSetting constants.RebootSetting) *Window {
	return &Window{startTime: startTime, maximumDuration: maximumDuration, rebootSetting: rebootSetting}
}

// RemainingMinutes reports minutes left until maximumDuration elapses since
// startTime, never negative (spec §8 P8).
func (w *Window) RemainingMinutes(now time.Time) int {
	total := w.maximumDuration.Minutes()
	elapsed := now.Sub(w.startTime).Minutes()
	remaining := int(total - elapsed)
	if remaining < 0 {
		return 0
	}
	return remaining
}

// UsedPercent reports the percentage of the window elapsed, bounded to
// [0, 100] (spec §8 P8).
func (w *Window) UsedPercent(now time.Time) int {
	total := w.maximumDuration.Minutes()
	if total <= 0 {
		return 100
	}
	elapsed := now.Sub(w.startTime).Minutes()
	pct := int((elapsed / total) * 100)
	if pct < 0 {
		return 0
	}
	if pct > 100 {
		return 100
	}
	return pct
}

// IsPackageInstallTimeAvailable reports whether remaining minutes are
// sufficient to attempt a batch of batchSize packages (spec §4.7).
func (w *Window) IsPackageInstallTimeAvailable(remaining, batchSize int) bool {
	cutoff := constants.PackageInstallExpectedMaxTimeInMinutes * batchSize
	if w.rebootSetting != constants.RebootNever {
		cutoff += constants.RebootBufferInMinutes
	}
	return remaining > cutoff
}
