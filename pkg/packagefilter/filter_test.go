package packagefilter

import (
	"testing"

	"github.com/azure/patchcore/pkg/constants"
)

func TestFilter(t *testing.T) {
	candidates := []Candidate{
		{Name: "libssl1.1", Classification: constants.ClassificationSecurity},
		{Name: "vim", Classification: constants.ClassificationOther},
		{Name: "libc6", Classification: constants.ClassificationCritical},
	}

	testCases := []struct {
		desc                string
		classifications     []constants.Classification
		include             []string
		exclude             []string
		wantNames           []string
		wantNotSelectedNames []string
	}{
		{
			desc:      "no filters keeps everything",
			wantNames: []string{"libssl1.1", "vim", "libc6"},
		},
		{
			desc:                "classification narrows",
			classifications:     []constants.Classification{constants.ClassificationSecurity, constants.ClassificationCritical},
			wantNames:           []string{"libssl1.1", "libc6"},
			wantNotSelectedNames: []string{"vim"},
		},
		{
			desc:                "include glob narrows",
			include:             []string{"lib*"},
			wantNames:           []string{"libssl1.1", "libc6"},
			wantNotSelectedNames: []string{"vim"},
		},
		{
			desc:                "exclude glob removes",
			exclude:             []string{"libc*"},
			wantNames:           []string{"libssl1.1", "vim"},
			wantNotSelectedNames: []string{"libc6"},
		},
	}
	for _, tc := range testCases {
		t.Run(tc.desc, func(t *testing.T) {
			got, notSelected := Filter(candidates, tc.classifications, tc.include, tc.exclude)
			if len(got) != len(tc.wantNames) {
				t.Fatalf("got %d results, want %d: %+v", len(got), len(tc.wantNames), got)
			}
			for i, name := range tc.wantNames {
				if got[i].Name != name {
					t.Errorf("result[%d].Name = %q, want %q", i, got[i].Name, name)
				}
			}
			if len(notSelected) != len(tc.wantNotSelectedNames) {
				t.Fatalf("got %d notSelected, want %d: %+v", len(notSelected), len(tc.wantNotSelectedNames), notSelected)
			}
			for i, name := range tc.wantNotSelectedNames {
				if notSelected[i].Name != name {
					t.Errorf("notSelected[%d].Name = %q, want %q", i, notSelected[i].Name, name)
				}
			}
		})
	}
}
