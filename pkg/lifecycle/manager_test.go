package lifecycle

import (
	"testing"
	"time"

	"github.com/azure/patchcore/pkg/envlayer"
)

func TestExecutionStartCheckClaimsOnCleanConfigFolder(t *testing.T) {
	dir := t.TempDir()
	m := NewAzureLifecycleManager(dir)

	ok, err := m.ExecutionStartCheck(3, "Installation")
	if err != nil {
		t.Fatalf("ExecutionStartCheck: %v", err)
	}
	if !ok {
		t.Fatal("expected to proceed when ExtState is absent (sequence 0 < requested sequence)")
	}

	state, err := LoadCoreState(dir)
	if err != nil {
		t.Fatalf("LoadCoreState: %v", err)
	}
	if len(state.ProcessIDs) != 1 || state.ProcessIDs[0] != envlayer.Getpid() {
		t.Errorf("expected CoreState to record this pid, got %+v", state.ProcessIDs)
	}
	if state.SequenceNumber != 3 || state.Operation != "Installation" || state.Completed {
		t.Errorf("CoreState = %+v, want sequence=3 operation=Installation completed=false", state)
	}
}

func TestExecutionStartCheckExitsOkWhenAlreadyCompleted(t *testing.T) {
	dir := t.TempDir()
	m := NewAzureLifecycleManager(dir)

	if err := SaveExtState(dir, ExtState{SequenceNumber: 5}); err != nil {
		t.Fatalf("SaveExtState: %v", err)
	}
	if err := SaveCoreState(dir, CoreState{SequenceNumber: 5, Completed: true}); err != nil {
		t.Fatalf("SaveCoreState: %v", err)
	}

	ok, err := m.ExecutionStartCheck(5, "Assessment")
	if err != nil {
		t.Fatalf("ExecutionStartCheck: %v", err)
	}
	if ok {
		t.Fatal("expected exit-OK: same sequence already marked completed")
	}
}

func TestExecutionStartCheckResumesIncompleteSameSequence(t *testing.T) {
	dir := t.TempDir()
	m := NewAzureLifecycleManager(dir)

	if err := SaveExtState(dir, ExtState{SequenceNumber: 5}); err != nil {
		t.Fatalf("SaveExtState: %v", err)
	}
	if err := SaveCoreState(dir, CoreState{SequenceNumber: 5, Completed: false}); err != nil {
		t.Fatalf("SaveCoreState: %v", err)
	}

	ok, err := m.ExecutionStartCheck(5, "Assessment")
	if err != nil {
		t.Fatalf("ExecutionStartCheck: %v", err)
	}
	if !ok {
		t.Fatal("expected to resume an incomplete run for the same sequence")
	}
}

func TestExecutionStartCheckContinuesOnOlderExtSequence(t *testing.T) {
	dir := t.TempDir()
	m := NewAzureLifecycleManager(dir)

	if err := SaveExtState(dir, ExtState{SequenceNumber: 4}); err != nil {
		t.Fatalf("SaveExtState: %v", err)
	}

	ok, err := m.ExecutionStartCheck(5, "Assessment")
	if err != nil {
		t.Fatalf("ExecutionStartCheck: %v", err)
	}
	if !ok {
		t.Fatal("expected to continue: ExtState sequence is older than the requested sequence")
	}
}

func TestExecutionStartCheckExitsOkWhenSuperseded(t *testing.T) {
	dir := t.TempDir()
	m := NewAzureLifecycleManager(dir)

	if err := SaveExtState(dir, ExtState{SequenceNumber: 6}); err != nil {
		t.Fatalf("SaveExtState: %v", err)
	}

	ok, err := m.ExecutionStartCheck(5, "Assessment")
	if err != nil {
		t.Fatalf("ExecutionStartCheck: %v", err)
	}
	if ok {
		t.Fatal("expected exit-OK: ExtState sequence is newer, this run has been superseded")
	}
}

func TestReleaseExecutionClearsOwnPidAndMarksCompleted(t *testing.T) {
	dir := t.TempDir()
	m := NewAzureLifecycleManager(dir)

	if _, err := m.ExecutionStartCheck(1, "Assessment"); err != nil {
		t.Fatalf("ExecutionStartCheck: %v", err)
	}
	if err := m.ReleaseExecution(); err != nil {
		t.Fatalf("ReleaseExecution: %v", err)
	}

	state, err := LoadCoreState(dir)
	if err != nil {
		t.Fatalf("LoadCoreState: %v", err)
	}
	if len(state.ProcessIDs) != 0 {
		t.Errorf("expected ProcessIDs cleared, got %+v", state.ProcessIDs)
	}
	if state.CompletedAttempts != 1 {
		t.Errorf("expected CompletedAttempts=1, got %d", state.CompletedAttempts)
	}
	if !state.Completed {
		t.Error("expected Completed=true after ReleaseExecution")
	}
}

func TestAutoAssessmentExecutionStartCheckTakesOverWhenMainCoreCompleted(t *testing.T) {
	dir := t.TempDir()
	m := NewAzureLifecycleManager(dir)

	if err := SaveExtState(dir, ExtState{SequenceNumber: 7}); err != nil {
		t.Fatalf("SaveExtState: %v", err)
	}
	if err := SaveCoreState(dir, CoreState{SequenceNumber: 7, Completed: true}); err != nil {
		t.Fatalf("SaveCoreState: %v", err)
	}

	stop := make(chan struct{})
	ok, err := m.AutoAssessmentExecutionStartCheck(7, "Assessment", stop)
	if err != nil {
		t.Fatalf("AutoAssessmentExecutionStartCheck: %v", err)
	}
	if !ok {
		t.Fatal("expected to take over once the main core reports completed=true")
	}

	state, err := LoadCoreState(dir)
	if err != nil {
		t.Fatalf("LoadCoreState: %v", err)
	}
	if state.Completed || len(state.ProcessIDs) != 1 || state.ProcessIDs[0] != envlayer.Getpid() {
		t.Errorf("expected CoreState claimed by this pid with completed=false, got %+v", state)
	}
}

func TestAutoAssessmentExecutionStartCheckExitsOkOnSequenceMismatch(t *testing.T) {
	dir := t.TempDir()
	m := NewAzureLifecycleManager(dir)

	if err := SaveExtState(dir, ExtState{SequenceNumber: 9}); err != nil {
		t.Fatalf("SaveExtState: %v", err)
	}

	stop := make(chan struct{})
	ok, err := m.AutoAssessmentExecutionStartCheck(7, "Assessment", stop)
	if err != nil {
		t.Fatalf("AutoAssessmentExecutionStartCheck: %v", err)
	}
	if ok {
		t.Fatal("expected exit-OK on sequence mismatch")
	}
}

func TestAutoAssessmentExecutionStartCheckReturnsOwnershipWhenAlreadyOwned(t *testing.T) {
	dir := t.TempDir()
	m := NewAzureLifecycleManager(dir)

	if err := SaveExtState(dir, ExtState{SequenceNumber: 7}); err != nil {
		t.Fatalf("SaveExtState: %v", err)
	}
	if err := SaveCoreState(dir, CoreState{SequenceNumber: 7, ProcessIDs: []int{envlayer.Getpid()}}); err != nil {
		t.Fatalf("SaveCoreState: %v", err)
	}

	stop := make(chan struct{})
	ok, err := m.AutoAssessmentExecutionStartCheck(7, "Assessment", stop)
	if err != nil {
		t.Fatalf("AutoAssessmentExecutionStartCheck: %v", err)
	}
	if !ok {
		t.Fatal("expected to proceed: this pid already owns CoreState")
	}
}

func TestAutoAssessmentExecutionStartCheckTakesOverAfterRebootBufferElapses(t *testing.T) {
	dir := t.TempDir()
	m := NewAzureLifecycleManager(dir)

	if err := SaveExtState(dir, ExtState{SequenceNumber: 7}); err != nil {
		t.Fatalf("SaveExtState: %v", err)
	}
	// Owning PIDs empty, not completed: step 4 of spec §4.5.2 -- only take
	// over once REBOOT_BUFFER_IN_MINUTES has elapsed since the wait began.
	if err := SaveCoreState(dir, CoreState{SequenceNumber: 7, Completed: false}); err != nil {
		t.Fatalf("SaveCoreState: %v", err)
	}

	base := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	calls := 0
	prevNow := envlayer.Now
	envlayer.Now = func() time.Time {
		calls++
		if calls == 1 {
			return base
		}
		return base.Add(16 * time.Minute)
	}
	defer func() { envlayer.Now = prevNow }()

	stop := make(chan struct{})
	ok, err := m.AutoAssessmentExecutionStartCheck(7, "Assessment", stop)
	if err != nil {
		t.Fatalf("AutoAssessmentExecutionStartCheck: %v", err)
	}
	if !ok {
		t.Fatal("expected to take over once the reboot buffer has elapsed with no owning PIDs")
	}
}

func TestAutoAssessmentExecutionStartCheckKeepsPollingBeforeRebootBufferElapses(t *testing.T) {
	dir := t.TempDir()
	m := NewAzureLifecycleManager(dir)

	if err := SaveExtState(dir, ExtState{SequenceNumber: 7}); err != nil {
		t.Fatalf("SaveExtState: %v", err)
	}
	if err := SaveCoreState(dir, CoreState{SequenceNumber: 7, Completed: false}); err != nil {
		t.Fatalf("SaveCoreState: %v", err)
	}

	base := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	prevNow := envlayer.Now
	envlayer.Now = func() time.Time { return base.Add(5 * time.Minute) }
	defer func() { envlayer.Now = prevNow }()

	stop := make(chan struct{})
	close(stop)
	ok, err := m.AutoAssessmentExecutionStartCheck(7, "Assessment", stop)
	if err != nil {
		t.Fatalf("AutoAssessmentExecutionStartCheck: %v", err)
	}
	if ok {
		t.Fatal("expected to keep polling (not take over) before the reboot buffer elapses")
	}
}

func TestAutoAssessmentExecutionStartCheckStopsWhileOwnedByAnotherLivePid(t *testing.T) {
	dir := t.TempDir()
	m := NewAzureLifecycleManager(dir)

	if err := SaveExtState(dir, ExtState{SequenceNumber: 7}); err != nil {
		t.Fatalf("SaveExtState: %v", err)
	}
	// Owning PIDs non-empty, not our own, and not completed: the loop must
	// block on the poll ticker/stop select rather than return immediately.
	if err := SaveCoreState(dir, CoreState{SequenceNumber: 7, ProcessIDs: []int{1}}); err != nil {
		t.Fatalf("SaveCoreState: %v", err)
	}

	stop := make(chan struct{})
	close(stop)
	ok, err := m.AutoAssessmentExecutionStartCheck(7, "Assessment", stop)
	if err != nil {
		t.Fatalf("AutoAssessmentExecutionStartCheck: %v", err)
	}
	if ok {
		t.Fatal("expected false when the stop channel fires before the owner vacates")
	}
}
