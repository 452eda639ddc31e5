package rebootmanager

import (
	"testing"

	"github.com/azure/patchcore/pkg/constants"
)

func TestStartIfRequiredAndTimeAvailableNeverRebootsWhenSettingIsNever(t *testing.T) {
	m := New(constants.RebootNever)
	rebooted, err := m.StartIfRequiredAndTimeAvailable(1000)
	if err != nil {
		t.Fatalf("StartIfRequiredAndTimeAvailable: %v", err)
	}
	if rebooted {
		t.Error("rebooted = true, want false when RebootSetting is Never")
	}
}

func TestStartIfRequiredAndTimeAvailableRespectsBuffer(t *testing.T) {
	m := New(constants.RebootAlways)
	rebooted, err := m.StartIfRequiredAndTimeAvailable(constants.RebootBufferInMinutes - 1)
	if err != nil {
		t.Fatalf("StartIfRequiredAndTimeAvailable: %v", err)
	}
	if rebooted {
		t.Error("rebooted = true, want false when remaining time is under the reboot buffer")
	}
}

func TestIsRequiredFalseWithoutMarkerFile(t *testing.T) {
	m := New(constants.RebootIfRequired)
	if m.IsRequired() {
		t.Error("IsRequired() = true, want false: test environment shouldn't have a reboot-required marker")
	}
}

func TestStartIfRequiredAndTimeAvailableSkipsWhenNotRequired(t *testing.T) {
	m := New(constants.RebootIfRequired)
	rebooted, err := m.StartIfRequiredAndTimeAvailable(1000)
	if err != nil {
		t.Fatalf("StartIfRequiredAndTimeAvailable: %v", err)
	}
	if rebooted {
		t.Error("rebooted = true, want false: RebootIfRequired with no marker file present should not reboot")
	}
}
