package versioncompare

import "testing"

func TestAtLeast(t *testing.T) {
	testCases := []struct {
		desc      string
		candidate string
		minimum   string
		want      bool
	}{
		{desc: "newer passes", candidate: "3.1.9", minimum: "3.1.0", want: true},
		{desc: "equal passes", candidate: "3.1.0", minimum: "3.1.0", want: true},
		{desc: "older fails", candidate: "3.0.9", minimum: "3.1.0", want: false},
	}
	for _, tc := range testCases {
		t.Run(tc.desc, func(t *testing.T) {
			got, err := AtLeast(tc.candidate, tc.minimum)
			if err != nil {
				t.Fatalf("AtLeast: %v", err)
			}
			if got != tc.want {
				t.Errorf("AtLeast(%q, %q) = %v, want %v", tc.candidate, tc.minimum, got, tc.want)
			}
		})
	}
}
