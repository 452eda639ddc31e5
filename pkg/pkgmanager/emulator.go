package pkgmanager

import "github.com/sirupsen/logrus"

// Emulator wraps an Adapter and intercepts mutating calls, logging the
// action instead of executing it -- grounded directly on the teacher's
// pkg/image dryrun_client.go decorator, which does the same for image
// pulls/pushes. Selected when -emulatorEnabled is set (spec §6.1).
type Emulator struct {
	inner Adapter
}

// NewEmulator wraps inner in dry-run mode.
func NewEmulator(inner Adapter) *Emulator { return &Emulator{inner: inner} }

func (e *Emulator) Name() string { return e.inner.Name() + "-emulator" }

func (e *Emulator) RefreshRepo() error {
	logrus.Info("emulator: skipping RefreshRepo")
	return nil
}

func (e *Emulator) GetAllUpdates(cached bool) ([]UpdatePackage, error) {
	return e.inner.GetAllUpdates(cached)
}

func (e *Emulator) GetSecurityUpdates() ([]UpdatePackage, error) {
	return e.inner.GetSecurityUpdates()
}

func (e *Emulator) GetOtherUpdates() ([]UpdatePackage, error) {
	return e.inner.GetOtherUpdates()
}

func (e *Emulator) IsRebootPending() bool {
	return e.inner.IsRebootPending()
}

func (e *Emulator) InstallUpdates(filter []UpdatePackage, mode InstallMode) (InstallResult, error) {
	logrus.WithField("count", len(filter)).Info("emulator: pretending to install updates")
	var result InstallResult
	result.Installed = append(result.Installed, filter...)
	return result, nil
}

func (e *Emulator) SetMaxPatchPublishDate(iso8601 string) {
	logrus.WithField("date", iso8601).Info("emulator: skipping SetMaxPatchPublishDate")
}

func (e *Emulator) GetCurrentAutoOSPatchState() (string, error) {
	return e.inner.GetCurrentAutoOSPatchState()
}

func (e *Emulator) DisableAutoOSUpdate() error {
	logrus.Info("emulator: skipping DisableAutoOSUpdate")
	return nil
}

func (e *Emulator) BackupImageDefaultConfigIfAbsent() error {
	logrus.Info("emulator: skipping BackupImageDefaultConfigIfAbsent")
	return nil
}
