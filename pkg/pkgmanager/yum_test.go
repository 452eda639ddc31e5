package pkgmanager

import "testing"

func TestParseYumCheckUpdate(t *testing.T) {
	output := `Loaded plugins: fastestmirror
bash.x86_64          4.2.46-34.el7         updates
kernel.x86_64        3.10.0-1160.el7       updates
`
	got := parseYumCheckUpdate(output)
	if len(got) != 2 {
		t.Fatalf("got %d packages, want 2: %+v", len(got), got)
	}
	if got[0].Name != "bash" || got[0].Version != "4.2.46-34.el7" {
		t.Errorf("got[0] = %+v", got[0])
	}
	if got[1].Name != "kernel" {
		t.Errorf("got[1].Name = %q, want %q", got[1].Name, "kernel")
	}
}

func TestParseYumCheckUpdateSkipsHeaderLines(t *testing.T) {
	got := parseYumCheckUpdate("Loaded plugins: fastestmirror\n")
	if len(got) != 0 {
		t.Errorf("got %d packages, want 0 for a header-only output", len(got))
	}
}
