package pkgmanager

import (
	"strings"

	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"

	"github.com/azure/patchcore/pkg/constants"
	"github.com/azure/patchcore/pkg/envlayer"
	"github.com/azure/patchcore/pkg/versioncompare"
)

// tdnfStrictSDPMinimumVersion is the minimum tdnf version the
// AzureLinux-Tdnf strict-SDP specialization requires (spec §4.1).
const tdnfStrictSDPMinimumVersion = "3.3.0"

// Tdnf adapts tdnf on Azure Linux / Mariner; RefreshRepo is a no-op (spec
// §4.1 "may be a no-op (tdnf)").
type Tdnf struct {
	maxPatchPublishDate string

	// strict gates the AzureLinux-Tdnf strict safe-deployment behavior:
	// constraining installs via a repository snapshot time, requiring a
	// minimum tdnf version.
	strict bool
}

// NewTdnf constructs the plain Tdnf adapter.
func NewTdnf() *Tdnf { return &Tdnf{} }

// NewAzureLinuxTdnf constructs the strict-SDP specialization, verifying (or
// installing) the minimum tdnf version and falling back to non-strict
// behavior with a recorded error on failure (spec §4.1).
func NewAzureLinuxTdnf() (*Tdnf, error) {
	t := &Tdnf{strict: true}
	version, err := tdnfVersion()
	if err != nil {
		t.strict = false
		return t, errors.Wrap(err, "probing tdnf version")
	}
	ok, err := versioncompare.AtLeast(version, tdnfStrictSDPMinimumVersion)
	if err != nil {
		t.strict = false
		return t, err
	}
	if ok {
		return t, nil
	}

	logrus.Warnf("tdnf %s older than strict-SDP minimum %s, attempting one-shot upgrade", version, tdnfStrictSDPMinimumVersion)
	res, installErr := envlayer.RunCommand(commandTimeout, "tdnf", "install", "-y", "tdnf-"+tdnfStrictSDPMinimumVersion)
	if installErr != nil || res.ExitCode != 0 {
		t.strict = false
		return t, errors.Errorf("%s: unable to install tdnf>=%s, falling back to non-strict mode", constants.ErrCodePackageManagerFailure, tdnfStrictSDPMinimumVersion)
	}
	return t, nil
}

func tdnfVersion() (string, error) {
	res, err := envlayer.RunCommand(commandTimeout, "tdnf", "--version")
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(res.Output), nil
}

func (t *Tdnf) Name() string { return "tdnf" }

func (t *Tdnf) RefreshRepo() error { return nil }

func (t *Tdnf) GetAllUpdates(cached bool) ([]UpdatePackage, error) {
	args := []string{"check-update"}
	if t.strict && t.maxPatchPublishDate != "" {
		args = append(args, "--snapshot-time", t.maxPatchPublishDate)
	}
	res, err := envlayer.RunCommand(commandTimeout, "tdnf", args...)
	if err != nil {
		return nil, errors.Wrap(err, "invoking tdnf check-update")
	}
	if res.ExitCode != 0 && res.ExitCode != 100 {
		return nil, errors.Errorf("%s: tdnf check-update exited %d: %s", constants.ErrCodePackageManagerFailure, res.ExitCode, res.Output)
	}
	return parseYumCheckUpdate(res.Output), nil // tdnf shares yum's column layout
}

// GetSecurityUpdates degrades to the full update set: tdnf has no
// classification metadata unless a repo/plugin supplies it (spec §4.1).
func (t *Tdnf) GetSecurityUpdates() ([]UpdatePackage, error) {
	return t.GetAllUpdates(false)
}

func (t *Tdnf) GetOtherUpdates() ([]UpdatePackage, error) { return nil, nil }

func (t *Tdnf) IsRebootPending() bool {
	return envlayer.FileExists("/var/run/reboot-required")
}

func (t *Tdnf) InstallUpdates(filter []UpdatePackage, mode InstallMode) (InstallResult, error) {
	var result InstallResult
	for _, pkg := range filter {
		if mode == InstallModeDryRun {
			result.Installed = append(result.Installed, pkg)
			continue
		}
		args := []string{"install", "-y", pkg.Name + "-" + pkg.Version}
		if t.strict && t.maxPatchPublishDate != "" {
			args = append(args, "--snapshot-time", t.maxPatchPublishDate)
		}
		res, err := envlayer.RunCommand(commandTimeout, "tdnf", args...)
		if err != nil || (res.ExitCode != 0 && res.ExitCode != 100) {
			result.Failed = append(result.Failed, pkg)
			continue
		}
		result.Installed = append(result.Installed, pkg)
	}
	return result, nil
}

// SetMaxPatchPublishDate is only meaningful for the strict AzureLinux-Tdnf
// variant; the plain Tdnf ignores it functionally but still records it.
func (t *Tdnf) SetMaxPatchPublishDate(iso8601 string) { t.maxPatchPublishDate = iso8601 }

func (t *Tdnf) GetCurrentAutoOSPatchState() (string, error) {
	res, err := envlayer.RunCommand(commandTimeout, "systemctl", "is-enabled", "tdnf-automatic.timer")
	if err != nil {
		return "Disabled", nil
	}
	if strings.TrimSpace(res.Output) == "enabled" {
		return "Enabled", nil
	}
	return "Disabled", nil
}

func (t *Tdnf) DisableAutoOSUpdate() error {
	_, err := envlayer.RunCommand(commandTimeout, "systemctl", "disable", "tdnf-automatic.timer")
	return err
}

func (t *Tdnf) BackupImageDefaultConfigIfAbsent() error { return nil }
