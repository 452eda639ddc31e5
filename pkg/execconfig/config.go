// Package execconfig implements the in-memory ExecutionConfig (spec §3.2)
// and its construction from the CLI surface (spec §6.1). Grounded on the
// teacher's cmd/sonobuoy/app flag-binding style (pflag.Var-style custom
// value types, cobra.Command wiring) and on pkg/config for the pattern of a
// single immutable settings struct built once at startup.
package execconfig

import (
	"encoding/base64"
	"encoding/json"
	"time"

	"github.com/google/uuid"
	"github.com/pkg/errors"

	"github.com/azure/patchcore/pkg/constants"
	"github.com/azure/patchcore/pkg/isoduration"
)

// EnvironmentSettings is the decoded -environmentSettings payload.
type EnvironmentSettings struct {
	LogFolder          string `json:"logFolder"`
	ConfigFolder       string `json:"configFolder"`
	StatusFolder       string `json:"statusFolder"`
	EventsFolder       string `json:"eventsFolder"`
	TempFolder         string `json:"tempFolder"`
	TelemetrySupported bool   `json:"telemetrySupported"`

	// RequiredMinimumAgentVersion is the lowest guest-agent handler version
	// this build is compatible with, carried in from the platform. Checked
	// by pkg/agentcompat during the Engine's preflight (spec §4.8 step 1).
	RequiredMinimumAgentVersion string `json:"requiredMinimumAgentVersion"`
}

// rawConfigSettings mirrors the decoded -configSettings JSON shape verbatim
// before it is validated and folded into ExecutionConfig.
type rawConfigSettings struct {
	CloudType                 string   `json:"cloudType"`
	Operation                 string   `json:"operation"`
	ActivityID                string   `json:"activityId"`
	StartTime                 string   `json:"startTime"`
	MaximumDuration            string   `json:"maximumDuration"`
	RebootSetting              string   `json:"rebootSetting"`
	ClassificationsToInclude   []string `json:"classificationsToInclude"`
	PatchesToInclude           []string `json:"patchesToInclude"`
	PatchesToExclude           []string `json:"patchesToExclude"`
	MaintenanceRunID           string   `json:"maintenanceRunId"`
	HealthStoreID              string   `json:"healthStoreId"`
	PatchMode                  string   `json:"patchMode"`
	AssessmentMode              string   `json:"assessmentMode"`
	MaximumAssessmentInterval  string   `json:"maximumAssessmentInterval"`
}

// ExecutionConfig is immutable after construction (spec §3.2, §3.4).
type ExecutionConfig struct {
	SequenceNumber int
	ActivityID     string
	Operation      constants.Operation
	StartTime      time.Time
	MaximumDuration time.Duration

	RebootSetting              constants.RebootSetting
	ClassificationsToInclude   []constants.Classification
	PatchesToInclude           []string
	PatchesToExclude           []string
	MaintenanceRunID           string
	HealthStoreID              string
	PatchMode                  constants.Mode
	AssessmentMode              constants.Mode
	MaximumAssessmentInterval  time.Duration

	CloudType       constants.CloudType
	ExecAutoAssessOnly bool
	RecorderEnabled bool
	EmulatorEnabled bool

	Environment EnvironmentSettings
}

// DecodeEnvironmentSettings base64-decodes and unmarshals the
// -environmentSettings flag value.
func DecodeEnvironmentSettings(encoded string) (EnvironmentSettings, error) {
	var s EnvironmentSettings
	raw, err := base64.StdEncoding.DecodeString(encoded)
	if err != nil {
		return s, errors.Wrap(err, "decoding environmentSettings base64")
	}
	if err := json.Unmarshal(raw, &s); err != nil {
		return s, errors.Wrap(err, "parsing environmentSettings JSON")
	}
	return s, nil
}

// New builds an ExecutionConfig from the CLI's decoded building blocks,
// applying defaults (spec §6.1) and validating required fields.
func New(sequenceNumber int, env EnvironmentSettings, encodedConfigSettings string, autoAssessOnly, recorderEnabled, emulatorEnabled bool) (*ExecutionConfig, error) {
	raw, err := base64.StdEncoding.DecodeString(encodedConfigSettings)
	if err != nil {
		return nil, errors.Wrap(err, "decoding configSettings base64")
	}
	var cs rawConfigSettings
	if err := json.Unmarshal(raw, &cs); err != nil {
		return nil, errors.Wrap(err, "parsing configSettings JSON")
	}

	cfg := &ExecutionConfig{
		SequenceNumber:     sequenceNumber,
		ActivityID:         cs.ActivityID,
		Operation:          constants.Operation(cs.Operation),
		CloudType:          constants.CloudType(cs.CloudType),
		MaintenanceRunID:   cs.MaintenanceRunID,
		HealthStoreID:      cs.HealthStoreID,
		PatchMode:          constants.Mode(cs.PatchMode),
		AssessmentMode:     constants.Mode(cs.AssessmentMode),
		PatchesToInclude:   cs.PatchesToInclude,
		PatchesToExclude:   cs.PatchesToExclude,
		ExecAutoAssessOnly: autoAssessOnly,
		RecorderEnabled:    recorderEnabled,
		EmulatorEnabled:    emulatorEnabled,
		Environment:        env,
		RebootSetting:      constants.DefaultRebootSetting,
	}

	if cs.RebootSetting != "" {
		cfg.RebootSetting = constants.RebootSetting(cs.RebootSetting)
	}

	if cfg.ActivityID == "" {
		cfg.ActivityID = uuid.New().String()
	}

	for _, c := range cs.ClassificationsToInclude {
		cfg.ClassificationsToInclude = append(cfg.ClassificationsToInclude, constants.Classification(c))
	}

	if cs.StartTime != "" {
		st, err := time.Parse(time.RFC3339, cs.StartTime)
		if err != nil {
			return nil, errors.Wrapf(err, "parsing startTime %q", cs.StartTime)
		}
		cfg.StartTime = st
	}

	if cs.MaximumDuration != "" {
		d, err := isoduration.Parse(cs.MaximumDuration)
		if err != nil {
			return nil, errors.Wrapf(err, "parsing maximumDuration %q", cs.MaximumDuration)
		}
		cfg.MaximumDuration = d
	}

	if cs.MaximumAssessmentInterval != "" {
		d, err := isoduration.Parse(cs.MaximumAssessmentInterval)
		if err != nil {
			return nil, errors.Wrapf(err, "parsing maximumAssessmentInterval %q", cs.MaximumAssessmentInterval)
		}
		cfg.MaximumAssessmentInterval = d
	}

	if sequenceNumber == 0 {
		return nil, errors.New("sequenceNumber is required")
	}
	if cfg.Operation == "" {
		return nil, errors.New("configSettings.operation is required")
	}

	return cfg, nil
}

// IsConfigurePatching reports whether this config's operation is
// ConfigurePatching in either its plain or auto-assessment-triggered form,
// resolving the spec's noted ambiguity (§9 design note) between two
// equivalent lowercase comparisons into one method.
func (c *ExecutionConfig) IsConfigurePatching() bool {
	lower := c.Operation.Lower()
	return lower == constants.OpConfigurePatching.Lower() || lower == constants.OpConfigurePatchingAutoAssessment.Lower()
}
