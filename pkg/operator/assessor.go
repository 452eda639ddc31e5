package operator

import (
	"time"

	"github.com/azure/patchcore/pkg/constants"
	"github.com/azure/patchcore/pkg/envlayer"
	"github.com/azure/patchcore/pkg/execconfig"
	"github.com/azure/patchcore/pkg/lifecycle"
	"github.com/azure/patchcore/pkg/pkgmanager"
	"github.com/azure/patchcore/pkg/statusfile"
)

// autoAssessmentIntervalBuffer is subtracted from the configured maximum
// assessment interval to derive the eligibility threshold (spec §4.2
// "Auto-assessment eligibility").
const autoAssessmentIntervalBuffer = 5 * time.Minute

// Assessor implements the Assessment operation (spec §4.2 "Assessment
// specifics").
type Assessor struct {
	Config       *execconfig.ExecutionConfig
	Status       *statusfile.Handler
	Adapter      pkgmanager.Adapter
	ConfigFolder string

	startedAt time.Time
}

func (a *Assessor) Name() constants.Operation { return constants.OpAssessment }
func (a *Assessor) MaxRetry() int              { return constants.MaxRetryAssessment }

// ShouldRun implements the auto-assessment eligibility gate when
// exec_auto_assess_only is set; otherwise assessment always runs.
func (a *Assessor) ShouldRun() bool {
	if !a.Config.ExecAutoAssessOnly {
		return true
	}

	state, err := lifecycle.LoadAssessmentState(a.ConfigFolder)
	if err != nil {
		return true
	}
	if state.LastAttemptTime == "" {
		return true
	}

	lastStart, err := time.Parse(time.RFC3339, state.LastAttemptTime)
	if err != nil {
		return true
	}

	elapsed := envlayer.Now().Sub(lastStart)
	if elapsed < 0 {
		return true // clock skew: run anyway
	}

	required := a.Config.MaximumAssessmentInterval - autoAssessmentIntervalBuffer
	return elapsed >= required
}

// StartRetryableUnit refreshes the repo, fetches updates, classifies
// security vs. other, probes reboot-pending, and writes a successful
// PatchAssessmentSummary. AssessmentState is persisted before the work so
// the next eligibility check is based on attempt time, not completion time.
func (a *Assessor) StartRetryableUnit() error {
	a.startedAt = envlayer.Now()
	_ = lifecycle.SaveAssessmentState(a.ConfigFolder, lifecycle.AssessmentState{
		LastAttemptTime: a.startedAt.UTC().Format(time.RFC3339),
	})

	a.Status.SetPatchAssessmentSummary(constants.StatusTransitioning, 0, statusfile.PatchAssessmentSummary{
		ActivityID: a.Config.ActivityID,
		StartTime:  a.startedAt.UTC().Format(time.RFC3339),
	})

	if err := a.Adapter.RefreshRepo(); err != nil {
		a.Status.AddError(constants.SubstatusPatchAssessmentSummary, constants.ErrCodePackageManagerFailure, err.Error())
		return err
	}

	all, err := a.Adapter.GetAllUpdates(false)
	if err != nil {
		a.Status.AddError(constants.SubstatusPatchAssessmentSummary, constants.ErrCodePackageManagerFailure, err.Error())
		return err
	}
	security, err := a.Adapter.GetSecurityUpdates()
	if err != nil {
		a.Status.AddError(constants.SubstatusPatchAssessmentSummary, constants.ErrCodePackageManagerFailure, err.Error())
		return err
	}

	securityNames := map[string]bool{}
	for _, s := range security {
		securityNames[s.Name] = true
	}

	var patches []statusfile.Package
	criticalAndSecurity, other := 0, 0
	for _, p := range all {
		classification := constants.ClassificationOther
		if securityNames[p.Name] {
			classification = constants.ClassificationSecurity
			criticalAndSecurity++
		} else {
			other++
		}
		patches = append(patches, statusfile.Package{
			Name:           p.Name,
			Version:        p.Version,
			Classification: classification,
			PatchState:     constants.PatchStateAvailable,
		})
	}

	a.Status.SetPatchAssessmentSummary(constants.StatusSuccess, 0, statusfile.PatchAssessmentSummary{
		ActivityID:                    a.Config.ActivityID,
		StartTime:                     a.startedAt.UTC().Format(time.RFC3339),
		LastModifiedTime:              envlayer.Now().UTC().Format(time.RFC3339),
		PatchCount:                    len(patches),
		RebootPending:                 a.Adapter.IsRebootPending(),
		CriticalAndSecurityPatchCount: criticalAndSecurity,
		OtherPatchCount:               other,
		Patches:                       patches,
	})

	_ = lifecycle.SaveAssessmentState(a.ConfigFolder, lifecycle.AssessmentState{
		LastAttemptTime: a.startedAt.UTC().Format(time.RFC3339),
		LastRunTime:     envlayer.Now().UTC().Format(time.RFC3339),
	})

	return nil
}

func (a *Assessor) OnTerminalException(err error) {
	a.Status.AddError(constants.SubstatusPatchAssessmentSummary, constants.ErrCodeOperationFailed, err.Error())
	a.Status.SetPatchAssessmentSummary(constants.StatusError, 1, statusfile.PatchAssessmentSummary{
		ActivityID: a.Config.ActivityID,
		StartTime:  a.startedAt.UTC().Format(time.RFC3339),
	})
}

func (a *Assessor) SetFinalStatus() {}
