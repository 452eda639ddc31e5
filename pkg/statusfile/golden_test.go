package statusfile

import (
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/kylelemons/godebug/pretty"

	"github.com/azure/patchcore/pkg/constants"
)

// TestAssessmentSummaryStructuredDiff pretty-diffs the serialized
// PatchAssessmentSummary payload against the expected shape, the same
// structured-comparison style the teacher uses for its generated-config
// assertions (cmd/sonobuoy/app/gen_test.go).
func TestAssessmentSummaryStructuredDiff(t *testing.T) {
	dir := t.TempDir()
	h := NewHandler(filepath.Join(dir, "out.status"), "agent", "activity-3")

	h.SetPatchAssessmentSummary(constants.StatusSuccess, 0, PatchAssessmentSummary{
		ActivityID:        "activity-3",
		PatchCount:        2,
		OtherPatchCount:   1,
		CriticalAndSecurityPatchCount: 1,
	})

	raw, err := os.ReadFile(filepath.Join(dir, "out.status"))
	if err != nil {
		t.Fatalf("reading status file: %v", err)
	}
	var docs []StatusDocument
	if err := json.Unmarshal(raw, &docs); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}

	var got *PatchAssessmentSummary
	for i, sub := range docs[0].Status.Substatus {
		if sub.Name == constants.SubstatusPatchAssessmentSummary {
			var summary PatchAssessmentSummary
			if err := json.Unmarshal([]byte(docs[0].Status.Substatus[i].FormattedMessage.Message), &summary); err != nil {
				t.Fatalf("unmarshal substatus message: %v", err)
			}
			got = &summary
		}
	}
	if got == nil {
		t.Fatal("PatchAssessmentSummary substatus missing")
	}

	want := PatchAssessmentSummary{
		ActivityID:        "activity-3",
		PatchCount:        2,
		OtherPatchCount:   1,
		CriticalAndSecurityPatchCount: 1,
	}
	if diff := pretty.Compare(*got, want); diff != "" {
		t.Errorf("PatchAssessmentSummary mismatch (-got +want):\n%s", diff)
	}
}
