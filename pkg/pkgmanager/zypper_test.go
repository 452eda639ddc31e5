package pkgmanager

import "testing"

func TestParseZypperPatches(t *testing.T) {
	output := `| Repository | Name           | Category    | Severity  | Interactive | Status | Summary
| repo-sle   | SUSE-2023-1234 | security    | important | ---         | needed | Security fix for bash
| repo-sle   | SUSE-2023-5678 | recommended | moderate  | ---         | needed | Bugfix for vim
`
	got := parseZypperPatches(output, "")
	if len(got) != 2 {
		t.Fatalf("got %d packages, want 2: %+v", len(got), got)
	}
	if got[0].Name != "SUSE-2023-1234" {
		t.Errorf("got[0].Name = %q", got[0].Name)
	}
	if got[1].Name != "SUSE-2023-5678" {
		t.Errorf("got[1].Name = %q", got[1].Name)
	}
}

func TestParseZypperPatchesForcesClassification(t *testing.T) {
	output := `| repo | SUSE-2023-1234 | security | important | --- | needed | Security fix
`
	got := parseZypperPatches(output, "Security")
	if len(got) != 1 || got[0].Classification != "Security" {
		t.Fatalf("got = %+v, want a single Security-classified package", got)
	}
}

func TestParseZypperPatchesSkipsHeaderRow(t *testing.T) {
	output := `| Repository | Name | Category | Severity | Interactive | Status | Summary
`
	got := parseZypperPatches(output, "")
	if len(got) != 0 {
		t.Errorf("got %d packages, want 0 for a header-only row: %+v", len(got), got)
	}
}
