// Package lifecycle implements the Lifecycle Manager (spec component E):
// the Azure/Arc extension-handshake state machine gating when the core
// execution engine may run, including the auto-assessment takeover path.
// Grounded on the teacher's pkg/worker.GatherResults ticker/select poll loop
// (reused below for the auto-assessment wait gate) and on
// envlayer.ReadFileWithRetry/WriteFileAtomicWithRetry for the handshake
// files themselves (spec §4.5.4).
package lifecycle

import (
	"encoding/json"

	"github.com/pkg/errors"

	"github.com/azure/patchcore/pkg/constants"
	"github.com/azure/patchcore/pkg/envlayer"
)

// CoreState records which process owns the current core execution, so a
// second invocation (e.g. an auto-assessment timer firing while a manual
// run is still in progress) can detect and defer to it (spec §4.5.1/4.5.2).
// SequenceNumber/Operation/Completed are the fields §3.1 requires to
// express the ExecutionStartCheck four-way branch; ProcessIDs/LastHeartbeat
// back the PID-ownership and heartbeat bookkeeping from the same section.
type CoreState struct {
	SequenceNumber               int    `json:"number"`
	Operation                    string `json:"operation"`
	Completed                    bool   `json:"completed"`
	ProcessIDs                   []int  `json:"process_ids"`
	CompletedAttempts            int    `json:"completed_attempts"`
	LastHeartbeat                string `json:"last_heartbeat"`
	NumberOfWaitsForMainCoreExec int    `json:"number_of_waits_for_main_core_exec"`
}

// ExtState records the extension sequence number and operation last seen by
// the handler, used to detect a newer operation superseding this one
// (spec §7.1 CL_NEWER_OPERATION_SUPERSEDED).
type ExtState struct {
	SequenceNumber int    `json:"sequenceNumber"`
	Operation      string `json:"operation"`
	ExtensionState string `json:"extensionState"`
}

// AssessmentState records bookkeeping for the auto-assessment scheduler:
// the last time it ran and the activity id it ran under (spec §4.5.2).
type AssessmentState struct {
	LastRunTime       string `json:"lastAutoAssessmentRunTime"`
	LastAttemptTime   string `json:"lastAutoAssessmentAttemptTime"`
	AutoAssessmentActivityID string `json:"autoAssessmentActivityId"`
}

func loadJSON(path string, v interface{}) error {
	raw, err := envlayer.ReadFileWithRetry(path)
	if err != nil {
		return err
	}
	if err := json.Unmarshal(raw, v); err != nil {
		return errors.Wrapf(err, "parsing %q", path)
	}
	return nil
}

func saveJSON(path string, v interface{}) error {
	raw, err := json.Marshal(v)
	if err != nil {
		return errors.Wrapf(err, "marshaling %q", path)
	}
	return envlayer.WriteFileAtomicWithRetry(path, raw, 0644)
}

// LoadCoreState reads CoreState from configFolder, returning a zero value
// (not an error) if the file does not yet exist.
func LoadCoreState(configFolder string) (CoreState, error) {
	var s CoreState
	path := configFolder + "/" + constants.CoreStateFileName
	if !envlayer.FileExists(path) {
		return s, nil
	}
	err := loadJSON(path, &s)
	return s, err
}

// SaveCoreState writes CoreState back to configFolder.
func SaveCoreState(configFolder string, s CoreState) error {
	return saveJSON(configFolder+"/"+constants.CoreStateFileName, s)
}

// LoadExtState reads ExtState from configFolder, returning a zero value if
// absent.
func LoadExtState(configFolder string) (ExtState, error) {
	var s ExtState
	path := configFolder + "/" + constants.ExtStateFileName
	if !envlayer.FileExists(path) {
		return s, nil
	}
	err := loadJSON(path, &s)
	return s, err
}

// SaveExtState writes ExtState back to configFolder.
func SaveExtState(configFolder string, s ExtState) error {
	return saveJSON(configFolder+"/"+constants.ExtStateFileName, s)
}

// LoadAssessmentState reads AssessmentState from configFolder, returning a
// zero value if absent.
func LoadAssessmentState(configFolder string) (AssessmentState, error) {
	var s AssessmentState
	path := configFolder + "/" + constants.AssessmentStateFileName
	if !envlayer.FileExists(path) {
		return s, nil
	}
	err := loadJSON(path, &s)
	return s, err
}

// SaveAssessmentState writes AssessmentState back to configFolder.
func SaveAssessmentState(configFolder string, s AssessmentState) error {
	return saveJSON(configFolder+"/"+constants.AssessmentStateFileName, s)
}
