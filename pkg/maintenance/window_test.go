package maintenance

import (
	"testing"
	"time"

	"github.com/azure/patchcore/pkg/constants"
)

func TestRemainingMinutesNeverNegative(t *testing.T) {
	start := time.Now().Add(-2 * time.Hour)
	w := New(start, time.Hour, constants.RebootNever)
	if got := w.RemainingMinutes(time.Now()); got != 0 {
		t.Errorf("RemainingMinutes() = %d, want 0 when window already elapsed", got)
	}
}

func TestIsPackageInstallTimeAvailable(t *testing.T) {
	testCases := []struct {
		desc          string
		remaining     int
		batchSize     int
		rebootSetting constants.RebootSetting
		want          bool
	}{
		{desc: "ample time, no reboot buffer", remaining: 100, batchSize: 3, rebootSetting: constants.RebootNever, want: true},
		{desc: "exactly at cutoff is not available", remaining: 15, batchSize: 3, rebootSetting: constants.RebootNever, want: false},
		{desc: "reboot buffer added when reboot allowed", remaining: 25, batchSize: 3, rebootSetting: constants.RebootIfRequired, want: false},
	}
	for _, tc := range testCases {
		t.Run(tc.desc, func(t *testing.T) {
			w := New(time.Now(), time.Hour, tc.rebootSetting)
			if got := w.IsPackageInstallTimeAvailable(tc.remaining, tc.batchSize); got != tc.want {
				t.Errorf("IsPackageInstallTimeAvailable() = %v, want %v", got, tc.want)
			}
		})
	}
}
