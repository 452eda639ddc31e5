package pkgmanager

import (
	"strings"

	"github.com/pkg/errors"

	"github.com/azure/patchcore/pkg/constants"
	"github.com/azure/patchcore/pkg/envlayer"
)

// Yum adapts yum on RHEL/CentOS-family distributions. Per spec §4.1, it
// treats classification as absent unless repo metadata supplies it, so
// GetSecurityUpdates degrades to the full update set.
type Yum struct {
	maxPatchPublishDate string
}

func NewYum() *Yum { return &Yum{} }

func (y *Yum) Name() string { return "yum" }

func (y *Yum) RefreshRepo() error {
	res, err := envlayer.RunCommand(commandTimeout, "yum", "clean", "expire-cache")
	return classifyYumExit(res, err)
}

func (y *Yum) GetAllUpdates(cached bool) ([]UpdatePackage, error) {
	args := []string{"check-update"}
	if cached {
		args = append(args, "-C")
	}
	res, err := envlayer.RunCommand(commandTimeout, "yum", args...)
	// yum check-update exits 100 when updates are available, 0 when none.
	if err != nil {
		return nil, errors.Wrap(err, "invoking yum check-update")
	}
	if res.ExitCode != 0 && res.ExitCode != 100 {
		return nil, errors.Errorf("%s: yum check-update exited %d: %s", constants.ErrCodePackageManagerFailure, res.ExitCode, res.Output)
	}
	return parseYumCheckUpdate(res.Output), nil
}

func (y *Yum) GetSecurityUpdates() ([]UpdatePackage, error) {
	return y.GetAllUpdates(false)
}

func (y *Yum) GetOtherUpdates() ([]UpdatePackage, error) {
	return nil, nil
}

func (y *Yum) IsRebootPending() bool {
	res, err := envlayer.RunCommand(commandTimeout, "needs-restarting", "-r")
	return err == nil && res.ExitCode == 1
}

func (y *Yum) InstallUpdates(filter []UpdatePackage, mode InstallMode) (InstallResult, error) {
	var result InstallResult
	for _, pkg := range filter {
		if mode == InstallModeDryRun {
			result.Installed = append(result.Installed, pkg)
			continue
		}
		res, err := envlayer.RunCommand(commandTimeout, "yum", "update", "-y", pkg.Name+"-"+pkg.Version)
		if err != nil || (res.ExitCode != 0 && res.ExitCode != 100) {
			result.Failed = append(result.Failed, pkg)
			continue
		}
		result.Installed = append(result.Installed, pkg)
	}
	return result, nil
}

func (y *Yum) SetMaxPatchPublishDate(iso8601 string) { y.maxPatchPublishDate = iso8601 }

func (y *Yum) GetCurrentAutoOSPatchState() (string, error) {
	res, err := envlayer.RunCommand(commandTimeout, "systemctl", "is-enabled", "yum-cron")
	if err != nil {
		return "Disabled", nil
	}
	if strings.TrimSpace(res.Output) == "enabled" {
		return "Enabled", nil
	}
	return "Disabled", nil
}

func (y *Yum) DisableAutoOSUpdate() error {
	_, err := envlayer.RunCommand(commandTimeout, "systemctl", "disable", "yum-cron")
	return err
}

func (y *Yum) BackupImageDefaultConfigIfAbsent() error { return nil }

func classifyYumExit(res envlayer.CommandResult, err error) error {
	if err != nil {
		return errors.Wrap(err, "invoking yum")
	}
	if res.ExitCode != 0 {
		return errors.Errorf("%s: yum exited %d: %s", constants.ErrCodePackageManagerFailure, res.ExitCode, res.Output)
	}
	return nil
}

func parseYumCheckUpdate(output string) []UpdatePackage {
	var out []UpdatePackage
	for _, line := range strings.Split(output, "\n") {
		fields := strings.Fields(line)
		if len(fields) < 2 || strings.HasPrefix(line, "Loaded") || strings.Contains(line, ".repo") {
			continue
		}
		name := fields[0]
		if idx := strings.LastIndex(name, "."); idx > 0 {
			name = name[:idx]
		}
		out = append(out, UpdatePackage{Name: name, Version: fields[1]})
	}
	return out
}
