package statusfile

import (
	"encoding/json"
	"testing"

	"github.com/azure/patchcore/pkg/constants"
)

func TestDropOrderLess(t *testing.T) {
	testCases := []struct {
		desc string
		a, b trackedPackage
		want bool
	}{
		{
			desc: "lower classification drops before higher",
			a:    trackedPackage{pkg: Package{Classification: constants.ClassificationUnclassified}},
			b:    trackedPackage{pkg: Package{Classification: constants.ClassificationCritical}},
			want: true,
		},
		{
			desc: "same classification, NotSelected drops before Failed",
			a:    trackedPackage{pkg: Package{Classification: constants.ClassificationOther, PatchState: constants.PatchStateNotSelected}},
			b:    trackedPackage{pkg: Package{Classification: constants.ClassificationOther, PatchState: constants.PatchStateFailed}},
			want: true,
		},
	}
	for _, tc := range testCases {
		t.Run(tc.desc, func(t *testing.T) {
			if got := dropOrderLess(tc.a, tc.b); got != tc.want {
				t.Errorf("dropOrderLess() = %v, want %v", got, tc.want)
			}
		})
	}
}

func TestTruncateToFit(t *testing.T) {
	build := func(a, i []Package) ([]byte, error) {
		return json.Marshal(struct {
			A []Package
			I []Package
		}{a, i})
	}

	assessment := []Package{
		{Name: "a", Classification: constants.ClassificationUnclassified, PatchState: constants.PatchStateAvailable},
		{Name: "b", Classification: constants.ClassificationCritical, PatchState: constants.PatchStateAvailable},
	}
	installation := []Package{
		{Name: "c", Classification: constants.ClassificationOther, PatchState: constants.PatchStateInstalled},
	}

	raw, err := build(assessment, installation)
	if err != nil {
		t.Fatalf("build: %v", err)
	}

	gotA, gotI, droppedA, droppedI, err := truncateToFit(assessment, installation, len(raw)-1, build)
	if err != nil {
		t.Fatalf("truncateToFit: %v", err)
	}
	if len(gotA)+len(gotI) != 2 {
		t.Fatalf("expected exactly one package dropped, got %d remaining", len(gotA)+len(gotI))
	}
	if droppedA+droppedI != 1 {
		t.Fatalf("expected dropped count of 1, got assessment=%d installation=%d", droppedA, droppedI)
	}
	if droppedA != 1 {
		t.Errorf("expected the dropped package to come from assessment, got droppedA=%d droppedI=%d", droppedA, droppedI)
	}
	for _, p := range gotA {
		if p.Name == "a" {
			t.Errorf("expected least-important package %q to be dropped first", "a")
		}
	}
}

func TestErrorListDedupeAndCap(t *testing.T) {
	l := newErrorList()
	for i := 0; i < constants.StatusErrorLimit+2; i++ {
		l.add(constants.ErrCodeGeneric, "boom")
	}
	if len(l.entries) != 1 {
		t.Fatalf("expected duplicate entries to collapse to 1, got %d", len(l.entries))
	}

	for i := 0; i < constants.StatusErrorLimit+3; i++ {
		l.add(constants.ErrCodeGeneric, "distinct-"+string(rune('a'+i)))
	}
	if len(l.entries) != constants.StatusErrorLimit {
		t.Fatalf("expected entries capped at %d, got %d", constants.StatusErrorLimit, len(l.entries))
	}
}
