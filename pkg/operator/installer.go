package operator

import (
	"time"

	"github.com/azure/patchcore/pkg/constants"
	"github.com/azure/patchcore/pkg/envlayer"
	"github.com/azure/patchcore/pkg/execconfig"
	"github.com/azure/patchcore/pkg/faults"
	"github.com/azure/patchcore/pkg/maintenance"
	"github.com/azure/patchcore/pkg/packagefilter"
	"github.com/azure/patchcore/pkg/pkgmanager"
	"github.com/azure/patchcore/pkg/rebootmanager"
	"github.com/azure/patchcore/pkg/statusfile"
)

// Installer implements the Installation operation (spec §4.2 "Installation
// specifics").
type Installer struct {
	Config  *execconfig.ExecutionConfig
	Status  *statusfile.Handler
	Adapter pkgmanager.Adapter

	startedAt time.Time
}

func (i *Installer) Name() constants.Operation { return constants.OpInstallation }
func (i *Installer) MaxRetry() int              { return constants.MaxRetryInstallation }
func (i *Installer) ShouldRun() bool            { return true }

// StartRetryableUnit iterates the filtered package list in batches,
// consulting the Maintenance Window before each batch, and stops early if
// the window is exceeded (spec §4.2).
func (i *Installer) StartRetryableUnit() error {
	i.startedAt = envlayer.Now()
	i.Status.SetPatchInstallationSummary(constants.StatusTransitioning, 0, statusfile.PatchInstallationSummary{
		ActivityID: i.Config.ActivityID,
		StartTime:  i.startedAt.UTC().Format(time.RFC3339),
	})

	all, err := i.Adapter.GetAllUpdates(true)
	if err != nil {
		i.Status.AddError(constants.SubstatusPatchInstallationSummary, constants.ErrCodePackageManagerFailure, err.Error())
		return err
	}

	var candidates []packagefilter.Candidate
	for _, p := range all {
		candidates = append(candidates, packagefilter.Candidate{Name: p.Name, Version: p.Version, Classification: p.Classification})
	}
	filtered, notSelected := packagefilter.Filter(candidates, i.Config.ClassificationsToInclude, i.Config.PatchesToInclude, i.Config.PatchesToExclude)

	var notSelectedPkgs []statusfile.Package
	for _, c := range notSelected {
		notSelectedPkgs = append(notSelectedPkgs, statusfile.Package{Name: c.Name, Version: c.Version, Classification: c.Classification, PatchState: constants.PatchStateNotSelected})
	}

	window := maintenance.New(i.Config.StartTime, i.Config.MaximumDuration, i.Config.RebootSetting)

	var installed, failed, pending, excluded []statusfile.Package
	for offset := 0; offset < len(filtered); offset += constants.MaxBatchSizeForPackages {
		end := offset + constants.MaxBatchSizeForPackages
		if end > len(filtered) {
			end = len(filtered)
		}
		batch := filtered[offset:end]

		remaining := window.RemainingMinutes(envlayer.Now())
		if !window.IsPackageInstallTimeAvailable(remaining, len(batch)) {
			i.Status.AddError(constants.SubstatusPatchInstallationSummary, constants.ErrCodeMaintenanceWindow, "insufficient maintenance window time remaining for next batch")
			for _, c := range filtered[offset:] {
				pending = append(pending, statusfile.Package{Name: c.Name, Version: c.Version, Classification: c.Classification, PatchState: constants.PatchStatePending})
			}
			i.finalize(installed, failed, pending, excluded, notSelectedPkgs, true)
			return nil
		}

		var batchPkgs []pkgmanager.UpdatePackage
		for _, c := range batch {
			batchPkgs = append(batchPkgs, pkgmanager.UpdatePackage{Name: c.Name, Version: c.Version, Classification: c.Classification})
		}

		mode := pkgmanager.InstallModeReal
		if i.Config.EmulatorEnabled {
			mode = pkgmanager.InstallModeDryRun
		}
		result, err := i.Adapter.InstallUpdates(batchPkgs, mode)
		if err != nil {
			i.Status.AddError(constants.SubstatusPatchInstallationSummary, constants.ErrCodePackageManagerFailure, err.Error())
			return err
		}

		installed = append(installed, toStatusPackages(result.Installed, constants.PatchStateInstalled)...)
		failed = append(failed, toStatusPackages(result.Failed, constants.PatchStateFailed)...)
		excluded = append(excluded, toStatusPackages(result.Excluded, constants.PatchStateExcluded)...)
	}

	i.finalize(installed, failed, pending, excluded, notSelectedPkgs, false)

	rebooted, err := rebootmanager.New(i.Config.RebootSetting).StartIfRequiredAndTimeAvailable(window.RemainingMinutes(envlayer.Now()))
	if err != nil {
		i.Status.AddError(constants.SubstatusPatchInstallationSummary, constants.ErrCodeOperationFailed, err.Error())
		return err
	}
	if rebooted {
		return faults.RebootRequested{}
	}
	return nil
}

func toStatusPackages(pkgs []pkgmanager.UpdatePackage, state constants.PatchState) []statusfile.Package {
	var out []statusfile.Package
	for _, p := range pkgs {
		out = append(out, statusfile.Package{Name: p.Name, Version: p.Version, Classification: p.Classification, PatchState: state})
	}
	return out
}

func (i *Installer) finalize(installed, failed, pending, excluded, notSelected []statusfile.Package, maintenanceExceeded bool) {
	var all []statusfile.Package
	all = append(all, installed...)
	all = append(all, failed...)
	all = append(all, pending...)
	all = append(all, excluded...)
	all = append(all, notSelected...)

	status := constants.StatusSuccess
	code := 0
	if maintenanceExceeded || len(failed) > 0 {
		status = constants.StatusError
		code = 1
	}

	i.Status.SetPatchInstallationSummary(status, code, statusfile.PatchInstallationSummary{
		ActivityID:                i.Config.ActivityID,
		StartTime:                 i.startedAt.UTC().Format(time.RFC3339),
		LastModifiedTime:          envlayer.Now().UTC().Format(time.RFC3339),
		MaintenanceWindowExceeded: maintenanceExceeded,
		InstalledPatchCount:       len(installed),
		FailedPatchCount:          len(failed),
		PendingPatchCount:         len(pending),
		ExcludedPatchCount:        len(excluded),
		NotSelectedPatchCount:     len(notSelected),
		Patches:                   all,
		MaintenanceRunID:          i.Config.MaintenanceRunID,
	})
}

func (i *Installer) OnTerminalException(err error) {
	i.Status.AddError(constants.SubstatusPatchInstallationSummary, constants.ErrCodeOperationFailed, err.Error())
	i.Status.SetPatchInstallationSummary(constants.StatusError, 1, statusfile.PatchInstallationSummary{
		ActivityID: i.Config.ActivityID,
		StartTime:  i.startedAt.UTC().Format(time.RFC3339),
	})
}

// SetFinalStatus is a no-op: StartRetryableUnit and OnTerminalException
// write the final Installation substatus themselves. Forcing Installation
// to Error after a failed re-assessment is done by MarkAssessmentFailed,
// which the Engine calls when the re-assessment's StartWithRetries returns
// an error.
func (i *Installer) SetFinalStatus() {}

// MarkAssessmentFailed forces the Installation substatus to Error with the
// documented message when the post-install re-assessment fails.
func (i *Installer) MarkAssessmentFailed() {
	i.Status.AddError(constants.SubstatusPatchInstallationSummary, constants.ErrCodeOperationFailed, "INSTALLATION_FAILED_DUE_TO_ASSESSMENT_FAILURE")
	i.Status.SetPatchInstallationSummary(constants.StatusError, 1, statusfile.PatchInstallationSummary{
		ActivityID: i.Config.ActivityID,
		StartTime:  i.startedAt.UTC().Format(time.RFC3339),
	})
}
