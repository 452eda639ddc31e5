package engine

import (
	"errors"
	"path/filepath"
	"testing"

	"github.com/azure/patchcore/pkg/constants"
	"github.com/azure/patchcore/pkg/envlayer"
	"github.com/azure/patchcore/pkg/execconfig"
	"github.com/azure/patchcore/pkg/faults"
	"github.com/azure/patchcore/pkg/statusfile"
)

func init() {
	envlayer.RunSudo = func(int) error { return nil }
}

func newTestEngine(t *testing.T) *Engine {
	t.Helper()
	dir := t.TempDir()
	return &Engine{
		Config: &execconfig.ExecutionConfig{ActivityID: "test-activity"},
		Status: statusfile.NewHandler(filepath.Join(dir, "test.status"), "patchcore", "test-activity"),
	}
}

func TestPreflightRejectsTooOldAgent(t *testing.T) {
	e := newTestEngine(t)
	e.Config.Environment.RequiredMinimumAgentVersion = "999.0.0"

	code, ok := e.preflight()
	if ok {
		t.Fatal("preflight should have failed for an agent below the required minimum")
	}
	if code != constants.ExitCriticalError {
		t.Errorf("code = %v, want ExitCriticalError", code)
	}
}

func TestPreflightAcceptsNoMinimumRequired(t *testing.T) {
	e := newTestEngine(t)

	if _, ok := e.preflight(); !ok {
		t.Error("preflight should pass when no minimum agent version is required")
	}
}

func TestClassifySupersessionIsNotAnError(t *testing.T) {
	e := newTestEngine(t)

	code := e.classifySupersession(&faults.Supersession{PreviousSequence: 1, NewSequence: 2})
	if code != constants.ExitOkay {
		t.Errorf("code = %v, want ExitOkay for a supersession", code)
	}
}

func TestClassifySupersessionTreatsRebootRequestedAsCleanExit(t *testing.T) {
	e := newTestEngine(t)

	code := e.classifySupersession(faults.RebootRequested{})
	if code != constants.ExitOkay {
		t.Errorf("code = %v, want ExitOkay when a reboot was triggered", code)
	}
}

func TestClassifySupersessionReportsUnhandledError(t *testing.T) {
	e := newTestEngine(t)

	code := e.classifySupersession(errors.New("boom"))
	if code != constants.ExitCriticalErrorReported {
		t.Errorf("code = %v, want ExitCriticalErrorReported for an unhandled error", code)
	}
}
