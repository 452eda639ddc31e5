package pkgmanager

import "testing"

func TestTdnfRefreshRepoIsNoop(t *testing.T) {
	tdnf := NewTdnf()
	if err := tdnf.RefreshRepo(); err != nil {
		t.Errorf("RefreshRepo() = %v, want nil: tdnf repo metadata refresh has no separate step (spec §4.1)", err)
	}
}

func TestTdnfGetOtherUpdatesIsEmpty(t *testing.T) {
	tdnf := NewTdnf()
	got, err := tdnf.GetOtherUpdates()
	if err != nil || got != nil {
		t.Errorf("GetOtherUpdates() = (%v, %v), want (nil, nil): tdnf has no classification metadata to separate Other from the full set", got, err)
	}
}

func TestTdnfSetMaxPatchPublishDateRecordsEvenWhenNotStrict(t *testing.T) {
	tdnf := NewTdnf()
	tdnf.SetMaxPatchPublishDate("2024-01-01T00:00:00Z")
	if tdnf.maxPatchPublishDate != "2024-01-01T00:00:00Z" {
		t.Errorf("maxPatchPublishDate = %q, want the recorded value even though the plain adapter isn't strict", tdnf.maxPatchPublishDate)
	}
}

func TestTdnfNameIsTdnf(t *testing.T) {
	if got := NewTdnf().Name(); got != "tdnf" {
		t.Errorf("Name() = %q, want %q", got, "tdnf")
	}
}
