package operator

import (
	"encoding/json"
	"path/filepath"
	"testing"
	"time"

	"github.com/azure/patchcore/pkg/constants"
	"github.com/azure/patchcore/pkg/execconfig"
	"github.com/azure/patchcore/pkg/pkgmanager"
	"github.com/azure/patchcore/pkg/statusfile"
)

type fakeAdapter struct {
	updates []pkgmanager.UpdatePackage
}

func (f *fakeAdapter) Name() string                                { return "fake" }
func (f *fakeAdapter) RefreshRepo() error                           { return nil }
func (f *fakeAdapter) GetAllUpdates(cached bool) ([]pkgmanager.UpdatePackage, error) {
	return f.updates, nil
}
func (f *fakeAdapter) GetSecurityUpdates() ([]pkgmanager.UpdatePackage, error) { return f.updates, nil }
func (f *fakeAdapter) GetOtherUpdates() ([]pkgmanager.UpdatePackage, error)    { return nil, nil }
func (f *fakeAdapter) IsRebootPending() bool                                  { return false }
func (f *fakeAdapter) InstallUpdates(filter []pkgmanager.UpdatePackage, mode pkgmanager.InstallMode) (pkgmanager.InstallResult, error) {
	return pkgmanager.InstallResult{Installed: filter}, nil
}
func (f *fakeAdapter) SetMaxPatchPublishDate(iso8601 string)            {}
func (f *fakeAdapter) GetCurrentAutoOSPatchState() (string, error)      { return "Disabled", nil }
func (f *fakeAdapter) DisableAutoOSUpdate() error                       { return nil }
func (f *fakeAdapter) BackupImageDefaultConfigIfAbsent() error          { return nil }

func newTestInstaller(t *testing.T, updates []pkgmanager.UpdatePackage) (*Installer, string) {
	t.Helper()
	statusPath := filepath.Join(t.TempDir(), "test.status")
	return &Installer{
		Config: &execconfig.ExecutionConfig{
			ActivityID:      "test-activity",
			StartTime:       time.Now(),
			MaximumDuration: time.Hour,
			RebootSetting:   constants.RebootNever,
		},
		Status:  statusfile.NewHandler(statusPath, "patchcore", "test-activity"),
		Adapter: &fakeAdapter{updates: updates},
	}, statusPath
}

func TestStartRetryableUnitInstallsAllAndSkipsRebootWhenNever(t *testing.T) {
	i, _ := newTestInstaller(t, []pkgmanager.UpdatePackage{
		{Name: "pkg-a", Version: "1.0"},
		{Name: "pkg-b", Version: "2.0"},
	})

	if err := i.StartRetryableUnit(); err != nil {
		t.Fatalf("StartRetryableUnit: %v", err)
	}
}

func TestStartRetryableUnitWithNoCandidates(t *testing.T) {
	i, _ := newTestInstaller(t, nil)

	if err := i.StartRetryableUnit(); err != nil {
		t.Fatalf("StartRetryableUnit: %v", err)
	}
}

func TestStartRetryableUnitRecordsNotSelectedForExcludedNames(t *testing.T) {
	i, statusPath := newTestInstaller(t, []pkgmanager.UpdatePackage{
		{Name: "pkg-a", Version: "1.0"},
		{Name: "pkg-b", Version: "2.0"},
	})
	i.Config.PatchesToExclude = []string{"pkg-b"}

	if err := i.StartRetryableUnit(); err != nil {
		t.Fatalf("StartRetryableUnit: %v", err)
	}

	doc, err := statusfile.LoadStatusFileComponents(statusPath)
	if err != nil {
		t.Fatalf("LoadStatusFileComponents: %v", err)
	}
	summary := findInstallationSummary(t, doc)
	if summary.NotSelectedPatchCount != 1 {
		t.Errorf("NotSelectedPatchCount = %d, want 1", summary.NotSelectedPatchCount)
	}
	var sawNotSelected bool
	for _, p := range summary.Patches {
		if p.Name == "pkg-b" && p.PatchState == constants.PatchStateNotSelected {
			sawNotSelected = true
		}
	}
	if !sawNotSelected {
		t.Errorf("expected pkg-b recorded with PatchState=NotSelected, got %+v", summary.Patches)
	}
}

func findInstallationSummary(t *testing.T, doc *statusfile.StatusDocument) statusfile.PatchInstallationSummary {
	t.Helper()
	for _, sub := range doc.Status.Substatus {
		if sub.Name != constants.SubstatusPatchInstallationSummary {
			continue
		}
		var summary statusfile.PatchInstallationSummary
		if err := json.Unmarshal([]byte(sub.FormattedMessage.Message), &summary); err != nil {
			t.Fatalf("unmarshal PatchInstallationSummary: %v", err)
		}
		return summary
	}
	t.Fatal("PatchInstallationSummary substatus not present")
	return statusfile.PatchInstallationSummary{}
}
