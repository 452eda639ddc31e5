package statusfile

import "github.com/azure/patchcore/pkg/constants"

// ErrorDetail is one entry in an errors.details[] array (spec §6.2).
type ErrorDetail struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// Errors is the embedded error summary every substatus payload carries
// (spec §6.2 "errors={code,details[],message}").
type Errors struct {
	Code    int           `json:"code"` // 0 = SUCCESS, 1 = ERROR (spec §7.1)
	Details []ErrorDetail `json:"details"`
	Message string        `json:"message"`
}

const (
	errorSeveritySuccess = 0
	errorSeverityError   = 1
)

// ConfigurePatchingSummary is the ConfigurePatchingSummary substatus payload
// (spec §6.2, §4.2 "ConfigurePatching specifics").
type ConfigurePatchingSummary struct {
	ActivityID              string      `json:"activityId"`
	StartTime               string      `json:"startTime"`
	LastModifiedTime        string      `json:"lastModifiedTime"`
	Errors                  Errors      `json:"errors"`
	PatchVersion            string      `json:"patchVersion,omitempty"`
	AutomaticOSPatchState   string      `json:"automaticOSPatchState,omitempty"`
	AutoAssessmentStatus    *AutoAssessmentStatus `json:"autoAssessmentStatus,omitempty"`
	ConfigurePatchingErrors *Errors     `json:"configurePatchingErrors,omitempty"`
}

// AutoAssessmentStatus nests inside ConfigurePatchingSummary to describe the
// auto-assessment scheduler state (spec §6.2 "autoAssessmentState").
type AutoAssessmentStatus struct {
	LastRunTime string `json:"lastRunTime,omitempty"`
	Errors      Errors `json:"errors"`
}

// PatchAssessmentSummary is the PatchAssessmentSummary substatus payload
// (spec §4.2 "Assessment specifics").
type PatchAssessmentSummary struct {
	ActivityID               string    `json:"activityId"`
	StartTime                string    `json:"startTime"`
	LastModifiedTime         string    `json:"lastModifiedTime"`
	StartedBy                string    `json:"startedBy,omitempty"`
	Errors                   Errors    `json:"errors"`
	PatchCount               int       `json:"patchCount"`
	RebootPending            bool      `json:"rebootPending"`
	CriticalAndSecurityPatchCount int `json:"criticalAndSecurityPatchCount,omitempty"`
	OtherPatchCount          int       `json:"otherPatchCount,omitempty"`
	Patches                  []Package `json:"patches"`
	AssessmentActivityID     string    `json:"assessmentActivityId,omitempty"`
	// DroppedPatchCount is how many packages the status-file size-bound
	// truncation pass evicted from Patches (spec §4.3 invariant 4).
	DroppedPatchCount        int       `json:"droppedPatchCount,omitempty"`
}

// PatchInstallationSummary is the PatchInstallationSummary substatus payload
// (spec §4.2 "Installation specifics").
type PatchInstallationSummary struct {
	ActivityID                string    `json:"activityId"`
	StartTime                 string    `json:"startTime"`
	LastModifiedTime          string    `json:"lastModifiedTime"`
	MaintenanceWindowExceeded bool      `json:"maintenanceWindowExceeded"`
	NotSelectedPatchCount     int       `json:"notSelectedPatchCount,omitempty"`
	ExcludedPatchCount        int       `json:"excludedPatchCount,omitempty"`
	PendingPatchCount         int       `json:"pendingPatchCount,omitempty"`
	InstalledPatchCount       int       `json:"installedPatchCount"`
	FailedPatchCount          int       `json:"failedPatchCount,omitempty"`
	Errors                    Errors    `json:"errors"`
	Patches                   []Package `json:"patches"`
	RebootStatus              string    `json:"rebootStatus,omitempty"`
	MaintenanceRunID          string    `json:"maintenanceRunId,omitempty"`
	// DroppedPatchCount is how many packages the status-file size-bound
	// truncation pass evicted from Patches (spec §4.3 invariant 4).
	DroppedPatchCount         int       `json:"droppedPatchCount,omitempty"`
}

// PatchMetadataForHealthStore is the PatchMetadataForHealthStore substatus
// payload (spec §3.2).
type PatchMetadataForHealthStore struct {
	PatchVersion   string `json:"patchVersion,omitempty"`
	ShouldReportToHealthStore bool `json:"shouldReportToHealthStore"`
	HealthStoreID  string `json:"healthStoreId,omitempty"`
}

// FormattedMessage wraps a substatus's serialized payload (spec §6.2).
type FormattedMessage struct {
	Lang    string `json:"lang"`
	Message string `json:"message"`
}

// SubstatusEntry is one element of status.substatus[] (spec §6.2).
type SubstatusEntry struct {
	Name             string           `json:"name"`
	Status           constants.SubstatusStatus `json:"status"`
	Code             int              `json:"code"`
	FormattedMessage FormattedMessage `json:"formattedMessage"`
}

// StatusBody is the inner status.status object (spec §6.2).
type StatusBody struct {
	Name             string           `json:"name"`
	Operation        string           `json:"operation"`
	Status           constants.SubstatusStatus `json:"status"`
	Code             int              `json:"code"`
	FormattedMessage FormattedMessage `json:"formattedMessage"`
	Substatus        []SubstatusEntry `json:"substatus"`
}

// StatusDocument is the single element of the on-disk .status JSON array
// (spec §6.2).
type StatusDocument struct {
	Version      float64    `json:"version"`
	TimestampUTC string     `json:"timestampUTC"`
	Status       StatusBody `json:"status"`
}
