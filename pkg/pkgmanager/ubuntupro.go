package pkgmanager

import (
	"encoding/json"
	"strings"

	"github.com/azure/patchcore/pkg/constants"
	"github.com/azure/patchcore/pkg/envlayer"
	"github.com/azure/patchcore/pkg/versioncompare"
)

// ubuntuProMinimumVersion is the minimum `pro` client version required
// before it is trusted as the source of truth for security/ESM updates
// (spec §4.1 "Ubuntu Pro Client").
const ubuntuProMinimumVersion = "27.9"

// UbuntuPro decorates Apt: when the host's Pro client is present and at
// minimum version, it supersedes Apt's security/ESM queries; otherwise
// every call falls through to the wrapped Apt adapter. Selected at runtime
// by a capability probe (spec §9 design note), the same pattern as the
// teacher's Ubuntu-Pro-equivalent capability decorators over pkg/image.Client.
type UbuntuPro struct {
	apt       *Apt
	available bool
}

// NewUbuntuPro probes for a usable `pro` client and wraps apt.
func NewUbuntuPro(apt *Apt) *UbuntuPro {
	return &UbuntuPro{apt: apt, available: proClientAvailable()}
}

func proClientAvailable() bool {
	res, err := envlayer.RunCommand(commandTimeout, "pro", "version")
	if err != nil || res.ExitCode != 0 {
		return false
	}
	ok, err := versioncompare.AtLeast(strings.TrimSpace(res.Output), ubuntuProMinimumVersion)
	return err == nil && ok
}

func (u *UbuntuPro) Name() string { return "apt-ubuntu-pro" }

func (u *UbuntuPro) RefreshRepo() error { return u.apt.RefreshRepo() }

func (u *UbuntuPro) GetAllUpdates(cached bool) ([]UpdatePackage, error) {
	return u.apt.GetAllUpdates(cached)
}

// proSecurityStatus mirrors the subset of `pro api
// u.pro.security.status.v1` this adapter consumes.
type proSecurityStatus struct {
	Summary struct {
		NumEsmInfraPackages int `json:"num_esm_infra_packages"`
		NumEsmAppsPackages  int `json:"num_esm_apps_packages"`
	} `json:"summary"`
	Packages []struct {
		Package        string `json:"package"`
		Version        string `json:"version"`
		ServiceName    string `json:"service_name"`
	} `json:"packages"`
}

func (u *UbuntuPro) GetSecurityUpdates() ([]UpdatePackage, error) {
	if !u.available {
		return u.apt.GetSecurityUpdates()
	}
	res, err := envlayer.RunCommand(commandTimeout, "pro", "api", "u.pro.security.status.v1")
	if err != nil || res.ExitCode != 0 {
		return u.apt.GetSecurityUpdates()
	}
	var status proSecurityStatus
	if jerr := json.Unmarshal([]byte(res.Output), &status); jerr != nil {
		return u.apt.GetSecurityUpdates()
	}
	var out []UpdatePackage
	for _, p := range status.Packages {
		classification := constants.ClassificationSecurity
		if p.ServiceName == "esm-infra" || p.ServiceName == "esm-apps" {
			classification = constants.ClassificationSecurityESM
		}
		out = append(out, UpdatePackage{Name: p.Package, Version: p.Version, Classification: classification})
	}
	return out, nil
}

func (u *UbuntuPro) GetOtherUpdates() ([]UpdatePackage, error) {
	return u.apt.GetOtherUpdates()
}

func (u *UbuntuPro) IsRebootPending() bool { return u.apt.IsRebootPending() }

func (u *UbuntuPro) InstallUpdates(filter []UpdatePackage, mode InstallMode) (InstallResult, error) {
	return u.apt.InstallUpdates(filter, mode)
}

func (u *UbuntuPro) SetMaxPatchPublishDate(iso8601 string) { u.apt.SetMaxPatchPublishDate(iso8601) }

func (u *UbuntuPro) GetCurrentAutoOSPatchState() (string, error) { return u.apt.GetCurrentAutoOSPatchState() }
func (u *UbuntuPro) DisableAutoOSUpdate() error                  { return u.apt.DisableAutoOSUpdate() }
func (u *UbuntuPro) BackupImageDefaultConfigIfAbsent() error     { return u.apt.BackupImageDefaultConfigIfAbsent() }
