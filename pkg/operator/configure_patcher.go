package operator

import (
	"time"

	"github.com/azure/patchcore/pkg/constants"
	"github.com/azure/patchcore/pkg/envlayer"
	"github.com/azure/patchcore/pkg/execconfig"
	"github.com/azure/patchcore/pkg/isoduration"
	"github.com/azure/patchcore/pkg/pkgmanager"
	"github.com/azure/patchcore/pkg/statusfile"
	"github.com/azure/patchcore/pkg/systemdunit"
)


// ConfigurePatcher implements the ConfigurePatching operation (spec §4.2
// "ConfigurePatching specifics"). Its substatus is held in Transitioning
// until Assessment also reaches a terminal state within the same run;
// statusfile.Handler.SetConfigurePatchingSummary enforces that (invariant
// 3), so this operator always reports its own true outcome.
type ConfigurePatcher struct {
	Config  *execconfig.ExecutionConfig
	Status  *statusfile.Handler
	Adapter pkgmanager.Adapter
	Unit    *systemdunit.Manager

	startedAt time.Time
}

func (c *ConfigurePatcher) Name() constants.Operation { return constants.OpConfigurePatching }
func (c *ConfigurePatcher) MaxRetry() int              { return constants.MaxRetryConfigurePatching }
func (c *ConfigurePatcher) ShouldRun() bool             { return true }

func (c *ConfigurePatcher) StartRetryableUnit() error {
	c.startedAt = envlayer.Now()
	c.Status.SetConfigurePatchingSummary(constants.StatusTransitioning, 0, statusfile.ConfigurePatchingSummary{
		ActivityID: c.Config.ActivityID,
		StartTime:  c.startedAt.UTC().Format(time.RFC3339),
	})

	if err := c.reconcilePatchMode(); err != nil {
		c.Status.AddError(constants.SubstatusConfigurePatchingSummary, constants.ErrCodePatchModeSetFailure, err.Error())
		return err
	}

	autoAssessmentState, err := c.reconcileAssessmentMode()
	if err != nil {
		c.Status.AddError(constants.SubstatusConfigurePatchingSummary, constants.ErrCodeSystemdNotPresent, err.Error())
		return err
	}

	c.Status.SetConfigurePatchingSummary(constants.StatusSuccess, 0, statusfile.ConfigurePatchingSummary{
		ActivityID:            c.Config.ActivityID,
		StartTime:             c.startedAt.UTC().Format(time.RFC3339),
		LastModifiedTime:      envlayer.Now().UTC().Format(time.RFC3339),
		AutomaticOSPatchState: autoAssessmentState,
	})
	return nil
}

// reconcilePatchMode disables the OS auto-update mechanism when PatchMode
// is AutomaticByPlatform and it isn't already disabled, backing up the
// original configuration first (spec §4.2).
func (c *ConfigurePatcher) reconcilePatchMode() error {
	if c.Config.PatchMode != constants.ModeAutomaticByPlatform {
		return nil
	}

	current, err := c.Adapter.GetCurrentAutoOSPatchState()
	if err != nil {
		return err
	}
	if current == "Disabled" {
		return nil
	}

	if err := c.Adapter.BackupImageDefaultConfigIfAbsent(); err != nil {
		return err
	}
	return c.Adapter.DisableAutoOSUpdate()
}

// reconcileAssessmentMode creates or removes the auto-assessment
// service+timer pair per AssessmentMode (spec §4.2, §4.6).
func (c *ConfigurePatcher) reconcileAssessmentMode() (string, error) {
	if c.Config.AssessmentMode != constants.ModeAutomaticByPlatform {
		if err := c.Unit.Remove(); err != nil {
			return "Disabled", err
		}
		return "Disabled", nil
	}

	if !envlayer.SystemdExists() {
		return "Disabled", errControlledSystemdMissing
	}

	interval := isoduration.Format(c.Config.MaximumAssessmentInterval)
	execStart := systemdunit.ExecStartCommand("/usr/lib/patchcore/patchcore", "-autoAssessOnly", "true")

	if err := c.Unit.CreateAndSetServiceIdem("Azure Patch Management auto-assessment", execStart); err != nil {
		return "Disabled", err
	}
	if err := c.Unit.CreateAndSetTimerIdem("Azure Patch Management auto-assessment timer", interval); err != nil {
		return "Disabled", err
	}
	return "Enabled", nil
}

var errControlledSystemdMissing = systemdMissingError{}

type systemdMissingError struct{}

func (systemdMissingError) Error() string { return "systemd is not the running init system" }

func (c *ConfigurePatcher) OnTerminalException(err error) {
	c.Status.AddError(constants.SubstatusConfigurePatchingSummary, constants.ErrCodeOperationFailed, err.Error())
	c.Status.SetConfigurePatchingSummary(constants.StatusError, 1, statusfile.ConfigurePatchingSummary{
		ActivityID: c.Config.ActivityID,
		StartTime:  c.startedAt.UTC().Format(time.RFC3339),
	})
}

func (c *ConfigurePatcher) SetFinalStatus() {}
