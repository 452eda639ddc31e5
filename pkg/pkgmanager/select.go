package pkgmanager

import "github.com/azure/patchcore/pkg/envlayer"

// Select picks the Adapter variant for the running distribution, detected
// once at startup (spec §9 design note "distribution detection happens
// once at startup and selects the variant"). emulatorEnabled wraps the
// chosen adapter in the dry-run decorator. tempFolder is where Apt stages
// its security-only sources list (spec §4.1).
func Select(emulatorEnabled bool, tempFolder string) (Adapter, error) {
	var base Adapter
	switch envlayer.DistroID() {
	case "ubuntu", "debian":
		apt := NewApt(tempFolder)
		if proClientAvailable() {
			base = NewUbuntuPro(apt)
		} else {
			base = apt
		}
	case "centos", "rhel", "rocky", "almalinux", "fedora":
		base = NewYum()
	case "sles", "sles_sap", "opensuse-leap":
		base = NewZypper()
	case "mariner", "azurelinux":
		// NewAzureLinuxTdnf already falls back to non-strict mode internally
		// on failure (spec §4.1); the returned adapter is always usable.
		adapter, _ := NewAzureLinuxTdnf()
		base = adapter
	default:
		base = NewTdnf()
	}

	if emulatorEnabled {
		return NewEmulator(base), nil
	}
	return base, nil
}
