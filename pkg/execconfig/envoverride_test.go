package execconfig

import (
	"os"
	"testing"
)

func TestBindEnvOverridesFillsOnlyUnsetFields(t *testing.T) {
	os.Setenv("PATCHCORE_SEQUENCENUMBER", "42")
	os.Setenv("PATCHCORE_AUTOASSESSONLY", "true")
	defer os.Unsetenv("PATCHCORE_SEQUENCENUMBER")
	defer os.Unsetenv("PATCHCORE_AUTOASSESSONLY")

	a := &CLIArgs{SequenceNumber: 7}
	if err := BindEnvOverrides(a); err != nil {
		t.Fatalf("BindEnvOverrides: %v", err)
	}

	if a.SequenceNumber != 7 {
		t.Errorf("SequenceNumber = %d, want 7 (explicit flag value must not be overridden)", a.SequenceNumber)
	}
	if !a.AutoAssessOnly {
		t.Error("AutoAssessOnly should have been filled in from the environment")
	}
}
