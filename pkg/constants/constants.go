// Package constants centralizes the compile-time limits, file names, and
// enum-like string values shared across the patch core packages. Grounded on
// the teacher's habit of a single flat constants surface per concern
// (pkg/plugin/constants.go, pkg/plugin/aggregation status strings) rather
// than scattering magic values through each package.
package constants

import (
	"strings"

	"github.com/c2h5oh/datasize"
)

// Operation is one of the three goal-state operations the handler can
// request, plus the auto-assessment variant of ConfigurePatching.
type Operation string

const (
	OpAssessment                      Operation = "Assessment"
	OpInstallation                    Operation = "Installation"
	OpConfigurePatching                Operation = "ConfigurePatching"
	OpConfigurePatchingAutoAssessment Operation = "ConfigurePatching_AutoAssessment"
)

// Lower returns the lowercased operation string, used at the two call sites
// in the original source that separately compare against
// Constants.CONFIGURE_PATCHING.lower() and Constants.Op.CONFIGURE_PATCHING.lower().
// Both resolve to the same value; this method is the single place that does it.
func (o Operation) Lower() string { return strings.ToLower(string(o)) }

// RebootSetting controls whether the Installer may trigger a reboot.
type RebootSetting string

const (
	RebootNever      RebootSetting = "Never"
	RebootIfRequired RebootSetting = "IfRequired"
	RebootAlways     RebootSetting = "Always"

	DefaultRebootSetting = RebootIfRequired
)

// PatchMode / AssessmentMode values for ConfigurePatching.
type Mode string

const (
	ModeImageDefault        Mode = "ImageDefault"
	ModeAutomaticByPlatform Mode = "AutomaticByPlatform"
)

// CloudType distinguishes the Lifecycle Manager variant in use.
type CloudType string

const (
	CloudAzure CloudType = "Azure"
	CloudArc   CloudType = "Arc"
)

// Classification buckets, ordered by the truncation-drop key in spec §4.3
// (Critical < Security < SecurityESM < Other < Unclassified). The numeric
// value IS the drop-order key: higher drops first.
type Classification string

const (
	ClassificationCritical    Classification = "Critical"
	ClassificationSecurity    Classification = "Security"
	ClassificationSecurityESM Classification = "Security-ESM"
	ClassificationOther       Classification = "Other"
	ClassificationUnclassified Classification = "Unclassified"
)

var classificationOrder = map[Classification]int{
	ClassificationCritical:     1,
	ClassificationSecurity:     2,
	ClassificationSecurityESM:  3,
	ClassificationOther:        4,
	ClassificationUnclassified: 5,
}

// DropKey returns the classification's position in the truncation order;
// the highest-numbered entries are dropped first.
func (c Classification) DropKey() int {
	if k, ok := classificationOrder[c]; ok {
		return k
	}
	return classificationOrder[ClassificationUnclassified]
}

// PatchState is the per-package outcome of an assessment or installation.
type PatchState string

const (
	PatchStateFailed     PatchState = "Failed"
	PatchStateInstalled  PatchState = "Installed"
	PatchStateAvailable  PatchState = "Available"
	PatchStatePending    PatchState = "Pending"
	PatchStateExcluded   PatchState = "Excluded"
	PatchStateNotSelected PatchState = "NotSelected"
)

var patchStateOrder = map[PatchState]int{
	PatchStateFailed:      1,
	PatchStateInstalled:   2,
	PatchStateAvailable:   3,
	PatchStatePending:     4,
	PatchStateExcluded:    5,
	PatchStateNotSelected: 6,
}

// DropKey returns the patch state's position in the truncation order within
// a classification; the highest-numbered entries are dropped first.
func (s PatchState) DropKey() int {
	if k, ok := patchStateOrder[s]; ok {
		return k
	}
	return patchStateOrder[PatchStateNotSelected]
}

// SubstatusStatus is the terminal/non-terminal state of a single substatus.
type SubstatusStatus string

const (
	StatusTransitioning SubstatusStatus = "transitioning"
	StatusSuccess       SubstatusStatus = "success"
	StatusError         SubstatusStatus = "error"
	StatusWarning       SubstatusStatus = "warning"
)

// Substatus names, always emitted in this order when present (spec §4.3).
const (
	SubstatusConfigurePatchingSummary     = "ConfigurePatchingSummary"
	SubstatusPatchAssessmentSummary       = "PatchAssessmentSummary"
	SubstatusPatchInstallationSummary     = "PatchInstallationSummary"
	SubstatusPatchMetadataForHealthStore  = "PatchMetadataForHealthStore"
)

// SubstatusOrder is the fixed emission order for substatus entries.
var SubstatusOrder = []string{
	SubstatusConfigurePatchingSummary,
	SubstatusPatchAssessmentSummary,
	SubstatusPatchInstallationSummary,
	SubstatusPatchMetadataForHealthStore,
}

// Error codes surfaced in substatus (spec §7.1).
const (
	ErrCodePythonTooOld           = "CL_PYTHON_TOO_OLD"
	ErrCodeSudoCheckFailed        = "CL_SUDO_CHECK_FAILED"
	ErrCodeAgentTooOld            = "CL_AGENT_TOO_OLD"
	ErrCodePackageManagerFailure  = "CL_PACKAGE_MANAGER_FAILURE"
	ErrCodeNewerOperationSuperseded = "CL_NEWER_OPERATION_SUPERSEDED"
	ErrCodeSystemdNotPresent      = "CL_SYSTEMD_NOT_PRESENT"
	ErrCodeMaintenanceWindow      = "SV_MAINTENANCE_WINDOW_ERROR"
	ErrCodePatchModeSetFailure    = "PATCH_MODE_SET_FAILURE"
	ErrCodeUAESMRequired          = "UA_ESM_REQUIRED"
	ErrCodeOperationFailed        = "OPERATION_FAILED"
	ErrCodeGeneric                = "ERROR"
	ErrCodeInfo                   = "INFO"
	ErrCodeUnhandledException     = "UNHANDLED_EXCEPTION"
)

// AutoAssessmentUnitName is the systemd unit name used for the
// auto-assessment service+timer pair (spec §4.2, §4.6).
const AutoAssessmentUnitName = "patchcore-autoassessment"

// AgentVersion is this build's handler version, compared against the
// platform-supplied RequiredMinimumAgentVersion during preflight
// (pkg/agentcompat, spec §4.8 step 1).
const AgentVersion = "2.0.0"

// Retry limits per operator (spec §4.2, authoritative).
const (
	MaxRetryAssessment        = 5
	MaxRetryInstallation      = 3
	MaxRetryConfigurePatching = 5
)

// Installation batching.
const MaxBatchSizeForPackages = 3

// Status Handler limits (spec §4.3).
const (
	StatusErrorLimit        = 5
	StatusErrorMsgSizeLimit = 128
	MaxCompleteStatusFilesToRetain = 10
)

// Telemetry Writer limits (spec §4.4), expressed with datasize the way the
// teacher's pkg/config expresses its own byte-size fields.
const (
	MsgSizeLimit      = 3072
	EventSizeLimit    = 6144
	EventFileSizeLimit = int64(4 * datasize.MB) // 4,194,304 chars
	DirSizeLimit       = int64(40 * datasize.MB) // 41,943,040 chars

	MaxEventCountThrottle                     = 72
	MaxTimeInSecondsForEventCountThrottle = 60
)

// Lifecycle Manager limits (spec §4.5).
const (
	MaxAutoAssessmentWaitForMainCoreExecInMinutes = 180
	RebootBufferInMinutes                         = 15
	MaxFileOperationRetryCount                    = 5
	AutoAssessmentPollIntervalSeconds             = 30
)

// Maintenance Window limits (spec §4.7).
const (
	PackageInstallExpectedMaxTimeInMinutes = 5
)

// IMDS probe (spec §6.6).
const (
	IMDSURL           = "http://169.254.169.254/metadata/instance/compute?api-version=2019-06-01"
	IMDSTimeoutSeconds = 2
	IMDSMaxAttempts    = 5
)

// File names under configFolder/statusFolder/eventsFolder.
const (
	ExtStateFileName        = "ExtState.json"
	CoreStateFileName       = "CoreState.json"
	AssessmentStateFileName = "AssessmentState.json"
	ImageDefaultPatchConfigBackupFileName = "ImageDefaultPatchConfiguration.bak"
)

// Environment selector (spec §6.1) for AZPGS_LPE_ENV.
type RuntimeEnv string

const (
	EnvDev  RuntimeEnv = "Dev"
	EnvTest RuntimeEnv = "Test"
	EnvProd RuntimeEnv = "Prod"
)

// NormalizeRuntimeEnv coerces any unrecognized value to Prod, per spec §6.1.
func NormalizeRuntimeEnv(s string) RuntimeEnv {
	switch RuntimeEnv(s) {
	case EnvDev:
		return EnvDev
	case EnvTest:
		return EnvTest
	default:
		return EnvProd
	}
}

// ExitCode is the Engine's fatal-exit classification (spec §4.8).
type ExitCode int

const (
	ExitOkay                   ExitCode = 0
	ExitCriticalError          ExitCode = 1
	ExitCriticalErrorNoLog     ExitCode = 2
	ExitCriticalErrorNoStatus  ExitCode = 3
	ExitCriticalErrorReported  ExitCode = 4
)
