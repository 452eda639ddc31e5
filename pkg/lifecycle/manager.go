package lifecycle

import (
	"time"

	"github.com/sirupsen/logrus"

	"github.com/azure/patchcore/pkg/constants"
	"github.com/azure/patchcore/pkg/envlayer"
)

// Manager implements the cloud-specific lifecycle handshake. Azure and Arc
// share the same state-file mechanics (state.go); the two constructors
// below only differ in which fields of the handshake they consult, mirroring
// the teacher's interface+two-implementations shape (pkg/image.Client plus
// its dryrun decorator) applied here to two real variants instead of a
// decorator.
type Manager struct {
	cloudType    constants.CloudType
	configFolder string
	pid          int
}

// NewAzureLifecycleManager constructs the Azure Guest Agent extension
// handshake variant.
func NewAzureLifecycleManager(configFolder string) *Manager {
	return &Manager{cloudType: constants.CloudAzure, configFolder: configFolder, pid: envlayer.Getpid()}
}

// NewArcLifecycleManager constructs the Arc (Azure Connected Machine agent)
// extension handshake variant.
func NewArcLifecycleManager(configFolder string) *Manager {
	return &Manager{cloudType: constants.CloudArc, configFolder: configFolder, pid: envlayer.Getpid()}
}

// ExecutionStartCheck implements the non-auto-assessment path (spec
// §4.5.1): the four-way branch comparing ExtState's sequence number
// against cfg.sequence and CoreState's completed flag. Reports whether the
// caller should proceed (true) or exit cleanly because the sequence is
// already done or has been superseded by a newer one.
func (m *Manager) ExecutionStartCheck(sequenceNumber int, operation string) (bool, error) {
	extSeq, err := LoadExtState(m.configFolder)
	if err != nil {
		return false, err
	}
	coreSeq, err := LoadCoreState(m.configFolder)
	if err != nil {
		return false, err
	}

	switch {
	case extSeq.SequenceNumber == sequenceNumber && coreSeq.Completed:
		logrus.Info("lifecycle: sequence already completed, exiting cleanly")
		return false, nil
	case extSeq.SequenceNumber == sequenceNumber && !coreSeq.Completed:
		logrus.Info("lifecycle: resuming an incomplete run for the current sequence")
	case extSeq.SequenceNumber < sequenceNumber:
		logrus.Warnf("lifecycle: ExtState sequence %d behind requested sequence %d, proceeding with the new sequence", extSeq.SequenceNumber, sequenceNumber)
	default: // extSeq.SequenceNumber > sequenceNumber
		logrus.Info("lifecycle: a newer sequence has already superseded this one, exiting cleanly")
		return false, nil
	}

	coreSeq.SequenceNumber = sequenceNumber
	coreSeq.Operation = operation
	coreSeq.Completed = false
	coreSeq.ProcessIDs = []int{m.pid}
	coreSeq.LastHeartbeat = envlayer.Now().UTC().Format(time.RFC3339)
	if err := SaveCoreState(m.configFolder, coreSeq); err != nil {
		return false, err
	}
	return true, nil
}

// AutoAssessmentExecutionStartCheck implements the auto-assessment gate
// (spec §4.5.2): it polls for up to
// MaxAutoAssessmentWaitForMainCoreExecInMinutes for any concurrently
// running main-core execution to vacate, using the teacher's ticker/select
// poll shape (pkg/worker.GatherResults). Returns true if the caller should
// proceed with an auto-triggered assessment.
func (m *Manager) AutoAssessmentExecutionStartCheck(sequenceNumber int, operation string, stop <-chan struct{}) (bool, error) {
	start := envlayer.Now()
	deadline := start.Add(time.Duration(constants.MaxAutoAssessmentWaitForMainCoreExecInMinutes) * time.Minute)
	ticker := time.NewTicker(time.Duration(constants.AutoAssessmentPollIntervalSeconds) * time.Second)
	defer ticker.Stop()

	for {
		extSeq, err := LoadExtState(m.configFolder)
		if err != nil {
			return false, err
		}
		coreSeq, err := LoadCoreState(m.configFolder)
		if err != nil {
			return false, err
		}

		switch {
		case extSeq.SequenceNumber != sequenceNumber:
			// Step 1: sequence mismatch in either direction -- exit OK.
			logrus.Info("lifecycle: sequence mismatch during auto-assessment wait, exiting cleanly")
			return false, nil

		case coreSeq.Completed:
			// Step 2: the main core finished -- take over.
			return m.takeOver(sequenceNumber, operation)

		case len(coreSeq.ProcessIDs) > 0:
			// Step 3: the main core is still owned by a live PID set.
			if m.ownsPID(coreSeq.ProcessIDs) {
				return true, nil
			}
			if envlayer.Now().After(deadline) {
				logrus.Warn("lifecycle: timed out waiting for main core execution to vacate for auto-assessment")
				return false, nil
			}

		default:
			// Step 4: no owning PIDs and not complete -- only take over
			// once REBOOT_BUFFER_IN_MINUTES has elapsed, on the
			// assumption the prior core was reboot-lost; otherwise keep
			// polling so a core that is merely mid-reboot isn't stolen
			// from prematurely.
			if envlayer.Now().Sub(start) > time.Duration(constants.RebootBufferInMinutes)*time.Minute {
				return m.takeOver(sequenceNumber, operation)
			}
		}

		select {
		case <-ticker.C:
			coreSeq.NumberOfWaitsForMainCoreExec++
			_ = SaveCoreState(m.configFolder, coreSeq)
		case <-stop:
			return false, nil
		}
	}
}

// ownsPID reports whether m.pid is among pids.
func (m *Manager) ownsPID(pids []int) bool {
	for _, pid := range pids {
		if pid == m.pid {
			return true
		}
	}
	return false
}

// takeOver writes CoreState claiming ownership for an auto-assessment run
// (spec §4.5.2 "On take-over the manager writes CoreState with
// completed=false, processIds=[self]").
func (m *Manager) takeOver(sequenceNumber int, operation string) (bool, error) {
	coreSeq, err := LoadCoreState(m.configFolder)
	if err != nil {
		return false, err
	}
	coreSeq.SequenceNumber = sequenceNumber
	coreSeq.Operation = operation
	coreSeq.Completed = false
	coreSeq.ProcessIDs = []int{m.pid}
	coreSeq.LastHeartbeat = envlayer.Now().UTC().Format(time.RFC3339)
	if err := SaveCoreState(m.configFolder, coreSeq); err != nil {
		return false, err
	}
	return true, nil
}

// LifecycleStatusCheck implements the §4.5.3 mid-run check: whether the
// extension sequence number on disk still matches what this run started
// under, returning false (caller must abort) if it differs. The operation
// is not compared; a missing ExtState (sequence 0) or a read error reports
// true.
func (m *Manager) LifecycleStatusCheck(expectedSequenceNumber int) (bool, error) {
	state, err := LoadExtState(m.configFolder)
	if err != nil {
		return true, err
	}
	if state.SequenceNumber == 0 {
		return true, nil
	}
	return state.SequenceNumber == expectedSequenceNumber, nil
}

// ReleaseExecution clears this process's ownership of CoreState and marks
// the sequence completed at the end of a run, so a subsequent
// ExecutionStartCheck/AutoAssessmentExecutionStartCheck for the same
// sequence sees completed=true (spec §4.5.1 "already done").
func (m *Manager) ReleaseExecution() error {
	state, err := LoadCoreState(m.configFolder)
	if err != nil {
		return err
	}
	filtered := state.ProcessIDs[:0]
	for _, pid := range state.ProcessIDs {
		if pid != m.pid {
			filtered = append(filtered, pid)
		}
	}
	state.ProcessIDs = filtered
	state.Completed = true
	state.CompletedAttempts++
	return SaveCoreState(m.configFolder, state)
}

// CloudType reports which handshake variant this Manager implements.
func (m *Manager) CloudType() constants.CloudType { return m.cloudType }
