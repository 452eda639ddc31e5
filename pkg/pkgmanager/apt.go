package pkgmanager

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/pkg/errors"

	"github.com/azure/patchcore/pkg/constants"
	"github.com/azure/patchcore/pkg/envlayer"
)

const aptAutoUpgradesFile = "/etc/apt/apt.conf.d/20auto-upgrades"
const aptAutoUpgradesBackupSuffix = ".bak"
const aptSourcesList = "/etc/apt/sources.list"
const aptSourcesListDir = "/etc/apt/sources.list.d"

// Apt adapts apt-get/dpkg on Debian-family distributions (spec §4.1).
type Apt struct {
	tempFolder          string
	maxPatchPublishDate string
}

// NewApt constructs the Apt adapter. tempFolder is where the
// security-archives-only sources list GetSecurityUpdates builds is written;
// the Engine's temp-folder housekeeping (spec §4.8 step 2) cleans it up.
func NewApt(tempFolder string) *Apt { return &Apt{tempFolder: tempFolder} }

func (a *Apt) Name() string { return "apt" }

func (a *Apt) RefreshRepo() error {
	res, err := envlayer.RunCommand(commandTimeout, "apt-get", "update")
	return classifyAptExit(res, err)
}

func (a *Apt) GetAllUpdates(cached bool) ([]UpdatePackage, error) {
	args := []string{"upgrade", "--just-print"}
	if cached {
		args = append(args, "-o", "Dir::Cache::pkgcache=")
	}
	res, err := envlayer.RunCommand(commandTimeout, "apt-get", args...)
	if cerr := classifyAptExit(res, err); cerr != nil {
		return nil, cerr
	}
	return parseAptJustPrint(res.Output), nil
}

// GetSecurityUpdates builds a temporary sources list containing only the
// "*security*" archive entries from the system's apt sources, then asks
// apt-get to compute the upgrade set against that list alone -- without ever
// mutating /etc/apt/sources.list* (spec §4.1 "Apt distinguishes security
// from non-security updates via a custom sources list").
func (a *Apt) GetSecurityUpdates() ([]UpdatePackage, error) {
	securityList, err := a.writeSecuritySourcesList()
	if err != nil {
		return nil, err
	}
	defer os.Remove(securityList)

	res, err := envlayer.RunCommand(commandTimeout, "apt-get", "upgrade",
		"-o", "Dir::Etc::SourceList="+securityList,
		"-o", "Dir::Etc::SourceParts=/dev/null",
		"--just-print")
	if cerr := classifyAptExit(res, err); cerr != nil {
		return nil, cerr
	}

	out := parseAptJustPrint(res.Output)
	for i := range out {
		out[i].Classification = constants.ClassificationSecurity
	}
	return out, nil
}

func (a *Apt) GetOtherUpdates() ([]UpdatePackage, error) {
	all, err := a.GetAllUpdates(false)
	if err != nil {
		return nil, err
	}
	security, err := a.GetSecurityUpdates()
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

// writeSecuritySourcesList copies every non-comment line that contains
// "security" (case-insensitive, anywhere on the line) out of /etc/apt/sources.list and
// /etc/apt/sources.list.d/*.list into a fresh file under tempFolder, leaving
// the real sources files untouched.
func (a *Apt) writeSecuritySourcesList() (string, error) {
	var lines []string
	for _, src := range aptSourceFiles() {
		raw, err := os.ReadFile(src)
		if err != nil {
			continue
		}
		for _, line := range strings.Split(string(raw), "\n") {
			trimmed := strings.TrimSpace(line)
			if trimmed == "" || strings.HasPrefix(trimmed, "#") {
				continue
			}
			if strings.Contains(strings.ToLower(trimmed), "security") {
				lines = append(lines, trimmed)
			}
		}
	}

	path := filepath.Join(a.tempFolder, fmt.Sprintf("apt-security-%d.list", envlayer.Getpid()))
	content := strings.Join(lines, "\n")
	if len(lines) > 0 {
		content += "\n"
	}
	if err := envlayer.WriteFileAtomicWithRetry(path, []byte(content), 0644); err != nil {
		return "", errors.Wrap(err, "writing temporary security sources list")
	}
	return path, nil
}

// aptSourceFiles is a var so tests can override which files
// writeSecuritySourcesList reads from, mirroring envlayer.Now's
// swappable-hook pattern.
var aptSourceFiles = func() []string {
	files := []string{aptSourcesList}
	matches, _ := filepath.Glob(filepath.Join(aptSourcesListDir, "*.list"))
	return append(files, matches...)
}

// aptSourceFilesOverride swaps aptSourceFiles for the duration of a test,
// returning a restore func.
func aptSourceFilesOverride(f func() []string) func() {
	prev := aptSourceFiles
	aptSourceFiles = f
	return func() { aptSourceFiles = prev }
}

func (a *Apt) IsRebootPending() bool {
	return envlayer.FileExists("/var/run/reboot-required")
}

func (a *Apt) InstallUpdates(filter []UpdatePackage, mode InstallMode) (InstallResult, error) {
	var result InstallResult
	for _, pkg := range filter {
		if mode == InstallModeDryRun {
			result.Installed = append(result.Installed, pkg)
			continue
		}
		res, err := envlayer.RunCommand(commandTimeout, "apt-get", "install", "--only-upgrade", "-y", pkg.Name+"="+pkg.Version)
		if err != nil || !acceptableExitCodes[res.ExitCode] {
			result.Failed = append(result.Failed, pkg)
			continue
		}
		result.Installed = append(result.Installed, pkg)
	}
	return result, nil
}

// SetMaxPatchPublishDate records the date; no Apt query or install uses it,
// only the strict-SDP AzureLinux-Tdnf variant honors it (spec §4.1).
func (a *Apt) SetMaxPatchPublishDate(iso8601 string) { a.maxPatchPublishDate = iso8601 }

// GetCurrentAutoOSPatchState reads APT::Periodic::Unattended-Upgrade from
// 20auto-upgrades (spec §4.1 "Apt edits ... preserving a first-seen backup").
func (a *Apt) GetCurrentAutoOSPatchState() (string, error) {
	raw, err := os.ReadFile(aptAutoUpgradesFile)
	if err != nil {
		if os.IsNotExist(err) {
			return "Disabled", nil
		}
		return "", errors.Wrap(err, "reading 20auto-upgrades")
	}
	for _, line := range strings.Split(string(raw), "\n") {
		if strings.Contains(line, "APT::Periodic::Unattended-Upgrade") {
			if strings.Contains(line, `"1"`) {
				return "Enabled", nil
			}
			return "Disabled", nil
		}
	}
	return "Disabled", nil
}

func (a *Apt) DisableAutoOSUpdate() error {
	content := "APT::Periodic::Update-Package-Lists \"0\";\nAPT::Periodic::Unattended-Upgrade \"0\";\n"
	return envlayer.WriteFileAtomicWithRetry(aptAutoUpgradesFile, []byte(content), 0644)
}

func (a *Apt) BackupImageDefaultConfigIfAbsent() error {
	backup := aptAutoUpgradesFile + aptAutoUpgradesBackupSuffix
	if envlayer.FileExists(backup) {
		return nil
	}
	raw, err := os.ReadFile(aptAutoUpgradesFile)
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return errors.Wrap(err, "reading 20auto-upgrades for backup")
	}
	return envlayer.WriteFileAtomicWithRetry(backup, raw, 0644)
}

// aptAcceptableExitCodes are the apt-get exit codes treated as success;
// only 0 is accepted (spec §4.1 "Exit-code handling").
var aptAcceptableExitCodes = map[int]bool{0: true}

func classifyAptExit(res envlayer.CommandResult, err error) error {
	if err != nil {
		return errors.Wrap(err, "invoking apt-get")
	}
	if !aptAcceptableExitCodes[res.ExitCode] {
		return errors.Errorf("%s: apt-get exited %d: %s", constants.ErrCodePackageManagerFailure, res.ExitCode, res.Output)
	}
	return nil
}

// parseAptJustPrint extracts "Inst <name> [<current>] (<candidate> ...)"
// lines from `apt-get upgrade --just-print` output, taking the candidate
// version inside the parentheses.
func parseAptJustPrint(output string) []UpdatePackage {
	var out []UpdatePackage
	for _, line := range strings.Split(output, "\n") {
		if !strings.HasPrefix(line, "Inst ") {
			continue
		}
		fields := strings.Fields(line)
		if len(fields) < 2 {
			continue
		}
		pkg := UpdatePackage{Name: fields[1]}
		if idx := strings.Index(line, "("); idx >= 0 {
			rest := line[idx+1:]
			if end := strings.IndexAny(rest, " )"); end >= 0 {
				pkg.Version = rest[:end]
			}
		}
		out = append(out, pkg)
	}
	return out
}
