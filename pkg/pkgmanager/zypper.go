package pkgmanager

import (
	"os"
	"strings"

	"github.com/pkg/errors"

	"github.com/azure/patchcore/pkg/constants"
	"github.com/azure/patchcore/pkg/envlayer"
)

const zypperAutoUpdateFile = "/etc/sysconfig/automatic_online_update"

// Zypper adapts zypper on SUSE-family distributions (spec §4.1).
type Zypper struct {
	maxPatchPublishDate string
}

func NewZypper() *Zypper { return &Zypper{} }

func (z *Zypper) Name() string { return "zypper" }

func (z *Zypper) RefreshRepo() error {
	res, err := envlayer.RunCommand(commandTimeout, "zypper", "--non-interactive", "refresh")
	return classifyZypperExit(res, err)
}

func (z *Zypper) GetAllUpdates(cached bool) ([]UpdatePackage, error) {
	res, err := envlayer.RunCommand(commandTimeout, "zypper", "--non-interactive", "list-patches")
	if cerr := classifyZypperExit(res, err); cerr != nil {
		return nil, cerr
	}
	return parseZypperPatches(res.Output, ""), nil
}

func (z *Zypper) GetSecurityUpdates() ([]UpdatePackage, error) {
	res, err := envlayer.RunCommand(commandTimeout, "zypper", "--non-interactive", "list-patches", "--category", "security")
	if cerr := classifyZypperExit(res, err); cerr != nil {
		return nil, cerr
	}
	return parseZypperPatches(res.Output, constants.ClassificationSecurity), nil
}

func (z *Zypper) GetOtherUpdates() ([]UpdatePackage, error) {
	all, err := z.GetAllUpdates(false)
	if err != nil {
		return nil, err
	}
	security, err := z.GetSecurityUpdates()
	if err != nil {
		return nil, err
	}
	securityNames := map[string]bool{}
	for _, s := range security {
		securityNames[s.Name] = true
	}
	var out []UpdatePackage
	for _, p := range all {
		if !securityNames[p.Name] {
			p.Classification = constants.ClassificationOther
			out = append(out, p)
		}
	}
	return out, nil
}

func (z *Zypper) IsRebootPending() bool {
	return envlayer.FileExists("/var/run/reboot-needed") || envlayer.FileExists("/boot/do_purge_kernels")
}

func (z *Zypper) InstallUpdates(filter []UpdatePackage, mode InstallMode) (InstallResult, error) {
	var result InstallResult
	for _, pkg := range filter {
		if mode == InstallModeDryRun {
			result.Installed = append(result.Installed, pkg)
			continue
		}
		res, err := envlayer.RunCommand(commandTimeout, "zypper", "--non-interactive", "install", pkg.Name+"="+pkg.Version)
		if err != nil || !zypperAcceptableExitCodes[res.ExitCode] {
			result.Failed = append(result.Failed, pkg)
			continue
		}
		result.Installed = append(result.Installed, pkg)
	}
	return result, nil
}

func (z *Zypper) SetMaxPatchPublishDate(iso8601 string) { z.maxPatchPublishDate = iso8601 }

// GetCurrentAutoOSPatchState maps AOU_ENABLE_CRONJOB true/false to
// Enabled/Disabled, absence to Disabled (spec §4.1).
func (z *Zypper) GetCurrentAutoOSPatchState() (string, error) {
	raw, err := os.ReadFile(zypperAutoUpdateFile)
	if err != nil {
		return "Disabled", nil
	}
	for _, line := range strings.Split(string(raw), "\n") {
		if strings.HasPrefix(strings.TrimSpace(line), "AOU_ENABLE_CRONJOB=") {
			value := strings.Trim(strings.TrimPrefix(strings.TrimSpace(line), "AOU_ENABLE_CRONJOB="), `"`)
			if value == "true" {
				return "Enabled", nil
			}
			return "Disabled", nil
		}
	}
	return "Disabled", nil
}

func (z *Zypper) DisableAutoOSUpdate() error {
	content := `AOU_ENABLE_CRONJOB="false"` + "\n"
	return envlayer.WriteFileAtomicWithRetry(zypperAutoUpdateFile, []byte(content), 0644)
}

func (z *Zypper) BackupImageDefaultConfigIfAbsent() error {
	backup := zypperAutoUpdateFile + ".bak"
	if envlayer.FileExists(backup) {
		return nil
	}
	raw, err := os.ReadFile(zypperAutoUpdateFile)
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return errors.Wrap(err, "reading automatic_online_update for backup")
	}
	return envlayer.WriteFileAtomicWithRetry(backup, raw, 0644)
}

// zypperAcceptableExitCodes: 0 = no updates, 100 = updates available,
// 101 = security updates available.
var zypperAcceptableExitCodes = map[int]bool{0: true, 100: true, 101: true}

func classifyZypperExit(res envlayer.CommandResult, err error) error {
	if err != nil {
		return errors.Wrap(err, "invoking zypper")
	}
	if !zypperAcceptableExitCodes[res.ExitCode] {
		return errors.Errorf("%s: zypper exited %d: %s", constants.ErrCodePackageManagerFailure, res.ExitCode, res.Output)
	}
	return nil
}

func parseZypperPatches(output string, forceClassification constants.Classification) []UpdatePackage {
	var out []UpdatePackage
	for _, line := range strings.Split(output, "\n") {
		if !strings.HasPrefix(line, "|") {
			continue
		}
		fields := strings.Split(line, "|")
		if len(fields) < 4 {
			continue
		}
		name := strings.TrimSpace(fields[2])
		if name == "" || name == "Name" {
			continue
		}
		pkg := UpdatePackage{Name: name, Classification: forceClassification}
		if len(fields) > 4 {
			pkg.Version = strings.TrimSpace(fields[4])
		}
		out = append(out, pkg)
	}
	return out
}
