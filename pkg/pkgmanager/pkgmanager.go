// Package pkgmanager implements the Package Manager Adapter (spec
// component G): one capability interface with per-distribution variants
// plus decorators for dry-run (Emulator) and Ubuntu Pro ESM awareness.
// Grounded on the teacher's pkg/image.Client interface and its
// dryrun_client.go decorator: a real implementation plus a wrapper that
// intercepts the mutating calls and logs instead of executing, selected at
// construction time rather than by runtime type-switching.
package pkgmanager

import (
	"time"

	"github.com/azure/patchcore/pkg/constants"
)

// UpdatePackage is one entry in a GetAllUpdates/GetSecurityUpdates/
// GetOtherUpdates result.
type UpdatePackage struct {
	Name           string
	Version        string
	Classification constants.Classification
}

// InstallResult partitions a batch's outcome per spec §4.1 InstallUpdates.
type InstallResult struct {
	Installed []UpdatePackage
	Pending   []UpdatePackage
	Failed    []UpdatePackage
	Excluded  []UpdatePackage
}

// InstallMode distinguishes a dry-run install attempt from a real one.
type InstallMode int

const (
	InstallModeReal InstallMode = iota
	InstallModeDryRun
)

// Adapter is the capability surface the core consumes, independent of the
// underlying distribution's tool (spec §4.1).
type Adapter interface {
	Name() string
	RefreshRepo() error
	GetAllUpdates(cached bool) ([]UpdatePackage, error)
	GetSecurityUpdates() ([]UpdatePackage, error)
	GetOtherUpdates() ([]UpdatePackage, error)
	IsRebootPending() bool
	InstallUpdates(filter []UpdatePackage, mode InstallMode) (InstallResult, error)
	SetMaxPatchPublishDate(iso8601 string)
	PatchModeManager
}

// PatchModeManager is the adapter-specific auto-update interrogation/disable
// surface (spec §4.1).
type PatchModeManager interface {
	GetCurrentAutoOSPatchState() (string, error)
	DisableAutoOSUpdate() error
	BackupImageDefaultConfigIfAbsent() error
}

const commandTimeout = 5 * time.Minute

// acceptableExitCodes is the set of package-manager exit codes treated as
// non-failures (spec §4.1 "Exit-code handling"). Apt's InstallUpdates
// consults it; the other adapters check their own tool's codes for
// "no applicable packages" / "updates available" separately.
var acceptableExitCodes = map[int]bool{0: true}
