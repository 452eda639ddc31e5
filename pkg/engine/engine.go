// Package engine implements the Core Execution Engine (spec component K):
// the top-level orchestration of pre-checks, ConfigurePatching, Assessment,
// and Installation, and the fatal-exit classification. Grounded on the
// teacher's cmd/sonobuoy/app run command, which sequences a fixed series of
// steps (preflight, then run, then wait) and maps failures to process exit
// codes the same way this Engine maps them to constants.ExitCode.
package engine

import (
	"errors"

	"github.com/sirupsen/logrus"

	"github.com/azure/patchcore/pkg/agentcompat"
	"github.com/azure/patchcore/pkg/constants"
	"github.com/azure/patchcore/pkg/envlayer"
	"github.com/azure/patchcore/pkg/execconfig"
	"github.com/azure/patchcore/pkg/faults"
	"github.com/azure/patchcore/pkg/lifecycle"
	"github.com/azure/patchcore/pkg/operator"
	"github.com/azure/patchcore/pkg/pkgmanager"
	"github.com/azure/patchcore/pkg/statusfile"
	"github.com/azure/patchcore/pkg/systemdunit"
)

const sudoCheckTimeoutSeconds = 10

// Engine ties every component together for a single process invocation.
type Engine struct {
	Config    *execconfig.ExecutionConfig
	Status    *statusfile.Handler
	Lifecycle *lifecycle.Manager
	Adapter   pkgmanager.Adapter
	Driver    *operator.Driver
	Unit      *systemdunit.Manager
}

// Run executes the orchestration order from spec §4.8 and returns the
// fatal-exit classification the process should exit with.
func (e *Engine) Run() constants.ExitCode {
	if code, ok := e.preflight(); !ok {
		return code
	}

	if err := envlayer.DeleteMatching(e.Config.Environment.TempFolder, "*.list"); err != nil {
		logrus.WithError(err).Warn("engine: temp-folder housekeeping failed, continuing")
	}

	if e.Config.ExecAutoAssessOnly {
		assessor := &operator.Assessor{Config: e.Config, Status: e.Status, Adapter: e.Adapter, ConfigFolder: e.Config.Environment.ConfigFolder}
		if err := e.Driver.StartWithRetries(assessor); err != nil {
			return e.classifySupersession(err)
		}
		return constants.ExitOkay
	}

	configurePatcher := &operator.ConfigurePatcher{Config: e.Config, Status: e.Status, Adapter: e.Adapter, Unit: e.Unit}
	if err := e.Driver.StartWithRetries(configurePatcher); err != nil {
		return e.classifySupersession(err)
	}

	assessor := &operator.Assessor{Config: e.Config, Status: e.Status, Adapter: e.Adapter, ConfigFolder: e.Config.Environment.ConfigFolder}
	if err := e.Driver.StartWithRetries(assessor); err != nil {
		return e.classifySupersession(err)
	}

	if e.Config.Operation == constants.OpInstallation {
		installer := &operator.Installer{Config: e.Config, Status: e.Status, Adapter: e.Adapter}
		if err := e.Driver.StartWithRetries(installer); err != nil {
			return e.classifySupersession(err)
		}

		reassessor := &operator.Assessor{Config: e.Config, Status: e.Status, Adapter: e.Adapter, ConfigFolder: e.Config.Environment.ConfigFolder}
		if err := e.Driver.StartWithRetries(reassessor); err != nil {
			installer.MarkAssessmentFailed()
			return e.classifySupersession(err)
		}
	}

	return constants.ExitOkay
}

// preflight implements check_minimum_environment_requirements_and_report
// (spec §4.8 step 1): sudo invocability and telemetry agent compatibility.
// Go itself supersedes the Python-minimum-version check (the runtime sets
// its own minimum, per spec §4.8).
func (e *Engine) preflight() (constants.ExitCode, bool) {
	passed := true
	if err := envlayer.RunSudo(sudoCheckTimeoutSeconds); err != nil {
		e.recordPreflightFailure(constants.ErrCodeSudoCheckFailed, err)
		passed = false
	}

	compatible, err := agentcompat.Check(constants.AgentVersion, e.Config.Environment.RequiredMinimumAgentVersion)
	if err != nil {
		e.recordPreflightFailure(constants.ErrCodeAgentTooOld, err)
		passed = false
	} else if !compatible {
		e.recordPreflightFailure(constants.ErrCodeAgentTooOld, errAgentTooOld{
			have: constants.AgentVersion,
			want: e.Config.Environment.RequiredMinimumAgentVersion,
		})
		passed = false
	}

	if !passed {
		return constants.ExitCriticalError, false
	}
	return constants.ExitOkay, true
}

type errAgentTooOld struct{ have, want string }

func (e errAgentTooOld) Error() string {
	return "agent version " + e.have + " does not satisfy required minimum " + e.want
}

func (e *Engine) recordPreflightFailure(code string, err error) {
	for _, name := range constants.SubstatusOrder {
		e.Status.AddError(name, code, err.Error())
	}
}

// classifySupersession distinguishes the driver loop's non-error
// short-circuit exits (spec §7.2 "Lifecycle-driven supersession is not an
// error", and a RebootRequested from the Installer's RebootManager call)
// from a genuine unhandled failure, which is recorded as
// CL_NEWER_OPERATION_SUPERSEDED, a clean reboot-triggered exit, or
// UNHANDLED_EXCEPTION respectively.
func (e *Engine) classifySupersession(err error) constants.ExitCode {
	var supersession *faults.Supersession
	if errors.As(err, &supersession) {
		logrus.Info("engine: run superseded by a newer sequence number, exiting cleanly")
		for _, name := range constants.SubstatusOrder {
			e.Status.AddError(name, constants.ErrCodeNewerOperationSuperseded, err.Error())
		}
		return constants.ExitOkay
	}

	var rebootRequested faults.RebootRequested
	if errors.As(err, &rebootRequested) {
		logrus.Info("engine: reboot triggered by the reboot manager, exiting cleanly")
		return constants.ExitOkay
	}

	logrus.WithError(err).Error("engine: unhandled operator error")
	for _, name := range constants.SubstatusOrder {
		e.Status.AddError(name, constants.ErrCodeUnhandledException, err.Error())
	}
	return constants.ExitCriticalErrorReported
}
