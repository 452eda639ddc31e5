package pkgmanager

import "testing"

type fakeAdapter struct{ Adapter }

func (f *fakeAdapter) Name() string { return "fake" }
func (f *fakeAdapter) InstallUpdates(filter []UpdatePackage, mode InstallMode) (InstallResult, error) {
	panic("emulator must never call through to a real install")
}

func TestEmulatorNeverInstallsForReal(t *testing.T) {
	e := NewEmulator(&fakeAdapter{})
	filter := []UpdatePackage{{Name: "vim", Version: "2:8.2.3995"}}

	result, err := e.InstallUpdates(filter, InstallModeReal)
	if err != nil {
		t.Fatalf("InstallUpdates: %v", err)
	}
	if len(result.Installed) != 1 || result.Installed[0].Name != "vim" {
		t.Errorf("Installed = %+v, want the filtered package reported as installed", result.Installed)
	}
}
