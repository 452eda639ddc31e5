package execconfig

import (
	"encoding/base64"
	"testing"

	"github.com/azure/patchcore/pkg/constants"
)

func b64(s string) string { return base64.StdEncoding.EncodeToString([]byte(s)) }

func TestNewValidConfig(t *testing.T) {
	env, err := DecodeEnvironmentSettings(b64(`{"logFolder":"/l","configFolder":"/c","statusFolder":"/s","eventsFolder":"/e","tempFolder":"/t","telemetrySupported":true}`))
	if err != nil {
		t.Fatalf("DecodeEnvironmentSettings: %v", err)
	}

	cfg, err := New(7, env, b64(`{"cloudType":"Azure","operation":"Assessment","activityId":"abc-123"}`), false, false, false)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	if cfg.Operation != constants.OpAssessment {
		t.Errorf("Operation = %q, want %q", cfg.Operation, constants.OpAssessment)
	}
	if cfg.RebootSetting != constants.DefaultRebootSetting {
		t.Errorf("RebootSetting = %q, want default %q", cfg.RebootSetting, constants.DefaultRebootSetting)
	}
	if cfg.Environment.ConfigFolder != "/c" {
		t.Errorf("Environment.ConfigFolder = %q, want %q", cfg.Environment.ConfigFolder, "/c")
	}
}

func TestNewRequiresSequenceNumber(t *testing.T) {
	env := EnvironmentSettings{}
	_, err := New(0, env, b64(`{"operation":"Assessment"}`), false, false, false)
	if err == nil {
		t.Fatal("expected error for missing sequenceNumber")
	}
}

func TestIsConfigurePatchingBothForms(t *testing.T) {
	testCases := []struct {
		desc string
		op   constants.Operation
		want bool
	}{
		{desc: "plain ConfigurePatching", op: constants.OpConfigurePatching, want: true},
		{desc: "auto-assessment triggered ConfigurePatching", op: constants.OpConfigurePatchingAutoAssessment, want: true},
		{desc: "Assessment is not ConfigurePatching", op: constants.OpAssessment, want: false},
	}
	for _, tc := range testCases {
		t.Run(tc.desc, func(t *testing.T) {
			cfg := &ExecutionConfig{Operation: tc.op}
			if got := cfg.IsConfigurePatching(); got != tc.want {
				t.Errorf("IsConfigurePatching() = %v, want %v", got, tc.want)
			}
		})
	}
}
